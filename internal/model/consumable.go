package model

import "time"

// Consumable is one claimed unit of a shoppable.  A row with a null
// PurchasedAt and an unexpired ExpiresAt is an active cart hold; a row
// with both null is a never-expiring hold; a non-null PurchasedAt is a
// completed purchase.  All three count against stock.
//
// Ownership is either a member id or an anonymous session id; exactly
// one of the two columns is set.
//
// Fields:
//  ID          – primary key identifier.
//  ShoppableID – shoppable the unit is claimed against.
//  MemberID    – owning member (nil for anonymous owners).
//  SessionID   – owning anonymous session (nil for members).
//  PurchasedAt – when the unit was paid for (nil = still in cart).
//  ExpiresAt   – when the cart hold lapses (nil = never).
//  CreatedAt   – creation timestamp.
type Consumable struct {
	ID          uint64     // consumables.id
	ShoppableID uint64     // consumables.shoppable_id
	MemberID    *uint64    // consumables.member_id (nullable)
	SessionID   *string    // consumables.session_id (nullable)
	PurchasedAt *time.Time // consumables.purchased_at (nullable)
	ExpiresAt   *time.Time // consumables.expires_at (nullable)
	CreatedAt   time.Time  // consumables.created_at
}

// ConsumableReservation is a queue position for a shoppable whose stock
// is exhausted.  A non-null QueueOrder means the requester committed to
// the queue and holds that position; a null QueueOrder is a dangling
// record that does not count as a committed entry.
//
// Fields:
//  ID          – primary key identifier.
//  ShoppableID – shoppable the reservation queues for.
//  MemberID    – owning member (nil for anonymous owners).
//  SessionID   – owning anonymous session (nil for members).
//  QueueOrder  – committed queue position (nullable).
//  CreatedAt   – creation timestamp.
type ConsumableReservation struct {
	ID          uint64    // consumable_reservations.id
	ShoppableID uint64    // consumable_reservations.shoppable_id
	MemberID    *uint64   // consumable_reservations.member_id (nullable)
	SessionID   *string   // consumable_reservations.session_id (nullable)
	QueueOrder  *int      // consumable_reservations.queue_order (nullable)
	CreatedAt   time.Time // consumable_reservations.created_at
}
