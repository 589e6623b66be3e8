package model

import "time"

// Shoppable is the base purchasable entity in the shop.  Every ticket is
// backed by exactly one shoppable row carrying the availability window
// and the stock.  Rows are soft deleted: a non-null RemovedAt in the
// past means the shoppable is gone, while a future RemovedAt schedules
// removal without hiding it yet.
//
// Fields:
//  ID            – primary key identifier.
//  EventID       – event this shoppable belongs to.
//  AvailableFrom – when sales open.
//  AvailableTo   – when sales close (nil = open ended).
//  RemovedAt     – soft delete marker (nil = not removed).
//  Stock         – total number of units that may ever be claimed.
//  CreatedAt     – creation timestamp.
//  UpdatedAt     – last update timestamp.
type Shoppable struct {
	ID            uint64     // shoppables.id
	EventID       uint64     // shoppables.event_id
	AvailableFrom time.Time  // shoppables.available_from
	AvailableTo   *time.Time // shoppables.available_to (nullable)
	RemovedAt     *time.Time // shoppables.removed_at (nullable)
	Stock         int        // shoppables.stock
	CreatedAt     time.Time  // shoppables.created_at
	UpdatedAt     time.Time  // shoppables.updated_at
}
