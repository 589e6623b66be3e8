// Package shop computes the client-facing view of purchasable tickets.
// The projection is a pure transform: repositories supply the raw rows
// and aggregate counts, and this package derives the capped stock
// figure and the per-requester booleans.  Nothing identity-scoped or
// count-shaped leaves this package in raw form.
package shop

import (
	"time"

	"github.com/lovisadi/web/internal/model"
)

const (
	// GracePeriod pads every ticket's sales opening.  Clients show the
	// relaxed-rules countdown until AvailableFrom + GracePeriod.
	GracePeriod = 30 * time.Minute

	// MaxVisibleStock caps the remaining-stock figure exposed to
	// clients so large remainders give no competitive buying signal.
	MaxVisibleStock = 10

	// VisibilityGrace keeps a ticket listed for a trailing window after
	// its sales close, so buyers can still find what they bought.
	VisibilityGrace = 10 * 24 * time.Hour
)

// Counts carries the aggregates needed to project one ticket.  Claimed
// and CommittedQueue span all users; the User fields are scoped to the
// requesting identity by the repository queries.
type Counts struct {
	Claimed          int // units counted against stock (purchased or held), all users
	CommittedQueue   int // reservations holding a queue position, all users
	UserPurchased    int // requester's purchased consumables
	UserUnpurchased  int // requester's active cart holds
	UserReservations int // requester's queue reservations
}

// EventSummary is the minimal event data embedded in a ticket view.  It
// deliberately carries no ticket list; the full event payload nests
// ticket views instead, which keeps the event/ticket reference one-way.
type EventSummary struct {
	ID       uint64    `json:"id"`
	Title    string    `json:"title"`
	StartsAt time.Time `json:"starts_at"`
	EndsAt   time.Time `json:"ends_at"`
}

// TicketView is the only shape the shop returns across its boundary.
// It contains public shoppable/ticket fields plus derived values; raw
// consumable lists and counts never appear here.
type TicketView struct {
	ID                uint64        `json:"id"`
	EventID           uint64        `json:"event_id"`
	AvailableFrom     time.Time     `json:"available_from"`
	AvailableTo       *time.Time    `json:"available_to,omitempty"`
	MaxAmountPerUser  int           `json:"max_amount_per_user"`
	GracePeriodEndsAt time.Time     `json:"grace_period_ends_at"`
	TicketsLeft       int           `json:"tickets_left"`
	HasQueue          bool          `json:"has_queue"`
	IsInUsersCart     bool          `json:"is_in_users_cart"`
	UserAlreadyHasMax bool          `json:"user_already_has_max"`
	Event             *EventSummary `json:"event,omitempty"`
}

// Project derives the client-safe view of one ticket from its row and
// the aggregate counts.  TicketsLeft is clamped to MaxVisibleStock on
// the high side only: an oversold ticket reports a negative remainder
// rather than hiding the oversell.
func Project(t model.Ticket, n Counts) TicketView {
	left := t.Stock - n.Claimed
	if left > MaxVisibleStock {
		left = MaxVisibleStock
	}
	return TicketView{
		ID:                t.ID,
		EventID:           t.EventID,
		AvailableFrom:     t.AvailableFrom,
		AvailableTo:       t.AvailableTo,
		MaxAmountPerUser:  t.MaxAmountPerUser,
		GracePeriodEndsAt: t.AvailableFrom.Add(GracePeriod),
		TicketsLeft:       left,
		HasQueue:          n.CommittedQueue > 0,
		IsInUsersCart:     n.UserUnpurchased > 0 || n.UserReservations > 0,
		UserAlreadyHasMax: n.UserPurchased >= t.MaxAmountPerUser,
	}
}

// Visible reports whether a ticket may appear to the public at the
// given instant: not soft-removed (RemovedAt null or in the future) and
// sales not closed longer than VisibilityGrace ago.  The same predicate
// runs in SQL for listings; this form exists for single lookups and
// tests.
func Visible(t model.Ticket, now time.Time) bool {
	if t.RemovedAt != nil && !t.RemovedAt.After(now) {
		return false
	}
	if t.AvailableTo != nil && !t.AvailableTo.After(now.Add(-VisibilityGrace)) {
		return false
	}
	return true
}

// SaleOpen reports whether units of the ticket may be claimed at the
// given instant.  Unlike Visible it has no trailing grace: sales end
// exactly at AvailableTo.
func SaleOpen(t model.Ticket, now time.Time) bool {
	if now.Before(t.AvailableFrom) {
		return false
	}
	if t.AvailableTo != nil && now.After(*t.AvailableTo) {
		return false
	}
	return t.RemovedAt == nil || t.RemovedAt.After(now)
}

// Summary builds the minimal event view embedded in ticket payloads.
func Summary(e model.Event) EventSummary {
	return EventSummary{ID: e.ID, Title: e.Title, StartsAt: e.StartsAt, EndsAt: e.EndsAt}
}
