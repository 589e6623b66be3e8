package model

import "time"

// Event represents a happening that tickets are sold for, such as a
// member party or an annual meeting.  Events own zero or more tickets
// via the shoppables table.  This struct corresponds to a row in the
// `events` table.
//
// Fields:
//  ID          – primary key identifier.
//  Title       – display title of the event.
//  Description – optional longer description.
//  StartsAt    – when the event begins.
//  EndsAt      – when the event ends.
//  Published   – whether the event is visible to the public shop.
//  CreatedAt   – timestamp when the event was created.
//  UpdatedAt   – timestamp of last update.
type Event struct {
	ID          uint64    // events.id
	Title       string    // events.title
	Description *string   // events.description (nullable)
	StartsAt    time.Time // events.starts_at
	EndsAt      time.Time // events.ends_at
	Published   bool      // events.published
	CreatedAt   time.Time // events.created_at
	UpdatedAt   time.Time // events.updated_at
}
