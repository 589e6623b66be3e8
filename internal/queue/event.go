// Package queue defines message payloads exchanged over the message
// broker, plus the background consumer for the purchase log.
package queue

// TicketPurchasedEvent is published once per purchased unit when a
// checkout completes.  It carries enough information for downstream
// consumers to log, notify or feed analytics without querying the
// primary database.
type TicketPurchasedEvent struct {
	ConsumableID uint64 `json:"consumable_id"`
	TicketID     uint64 `json:"ticket_id"`
	EventID      uint64 `json:"event_id"`
	EventTitle   string `json:"event_title"`
	MemberID     uint64 `json:"member_id,omitempty"`
	SessionID    string `json:"session_id,omitempty"`
	PurchasedAt  string `json:"purchased_at"`
}
