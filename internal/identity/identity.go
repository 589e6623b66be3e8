// Package identity describes who is asking the shop for data.  A
// requester is either an authenticated member (resolved from an access
// token by the middleware) or an anonymous browser session.  The rest
// of the application never inspects tokens or cookies; it only sees an
// Identity value and the ownership predicate derived from it.
package identity

// Identity identifies the requester of a shop operation.  Exactly one
// of MemberID and SessionID is set; the zero value means "unknown" and
// matches no rows.
type Identity struct {
	MemberID  uint64 // authenticated member id, 0 when anonymous
	SessionID string // anonymous session token, empty for members
}

// Member returns the identity of an authenticated member.
func Member(id uint64) Identity { return Identity{MemberID: id} }

// Session returns the identity of an anonymous browser session.
func Session(token string) Identity { return Identity{SessionID: token} }

// IsMember reports whether the identity is an authenticated member.
func (id Identity) IsMember() bool { return id.MemberID != 0 }

// IsZero reports whether the identity carries neither a member id nor a
// session token.
func (id Identity) IsZero() bool { return id.MemberID == 0 && id.SessionID == "" }

// OwnershipFilter returns the SQL predicate and arguments that scope a
// consumables or reservations query to rows owned by this identity.
// The prefix is the table alias including the trailing dot (for example
// "c.") or empty for unqualified columns.  For the zero identity the
// predicate matches nothing, so an unidentified requester never sees
// anyone's cart.
func (id Identity) OwnershipFilter(prefix string) (string, []interface{}) {
	switch {
	case id.MemberID != 0:
		return prefix + "member_id = ?", []interface{}{id.MemberID}
	case id.SessionID != "":
		return prefix + "session_id = ?", []interface{}{id.SessionID}
	default:
		return "1 = 0", nil
	}
}
