// Package repository defines error types that are reused across
// multiple repositories.  These sentinel values let handlers translate
// failure scenarios into HTTP statuses without inspecting SQL errors:
// ErrSoldOut and ErrMaxReached reject cart additions, ErrConflict
// signals a duplicate queue entry.
package repository

import "errors"

// ErrSoldOut is returned when a cart addition would claim more units
// than the shoppable has stock for.  Handlers should translate this
// into an HTTP 409 response and point the client at the queue.
var ErrSoldOut = errors.New("sold out")

// ErrMaxReached is returned when the requester already holds the
// maximum allowed amount of a ticket, counting purchases and active
// cart holds.  Handlers should translate this into an HTTP 409.
var ErrMaxReached = errors.New("max amount per user reached")

// ErrConflict is returned when an insert cannot proceed because of
// existing state, such as joining a queue the requester is already in.
var ErrConflict = errors.New("conflict")
