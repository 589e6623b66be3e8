package model

// Ticket is the event-admission specialization of a shoppable.  The
// `tickets` table is keyed by shoppable_id and adds the per-user
// purchase cap; repositories return the joined row as one struct so
// callers never deal with the split storage.
//
// Fields:
//  Shoppable        – the embedded base row (availability, stock).
//  MaxAmountPerUser – how many units one identity may purchase.
type Ticket struct {
	Shoppable
	MaxAmountPerUser int // tickets.max_amount_per_user
}
