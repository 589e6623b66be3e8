package repository // repository for queue reservation persistence

import (
	"context"
	"database/sql"
	"time"

	"github.com/lovisadi/web/internal/identity"
	"github.com/lovisadi/web/internal/model"
)

// ReservationRepo provides data access to the consumable_reservations
// table: the waiting queue that forms once a shoppable's stock is
// exhausted.  Queue positions are assigned inside a transaction so two
// concurrent joins cannot get the same position.
type ReservationRepo struct {
	db *sql.DB
}

// NewReservationRepo returns a ReservationRepo bound to the provided database.
func NewReservationRepo(db *sql.DB) *ReservationRepo {
	return &ReservationRepo{db: db}
}

// CountCommitted returns how many reservations hold a queue position
// for the shoppable, across all users.
func (r *ReservationRepo) CountCommitted(ctx context.Context, shoppableID uint64) (int, error) {
	const q = `SELECT COUNT(*) FROM consumable_reservations cr
               WHERE cr.shoppable_id = ? AND cr.queue_order IS NOT NULL`
	var n int
	err := r.db.QueryRowContext(ctx, q, shoppableID).Scan(&n)
	return n, err
}

// CountBy returns how many reservations the requester holds on the
// shoppable, committed or not.
func (r *ReservationRepo) CountBy(ctx context.Context, shoppableID uint64, ident identity.Identity) (int, error) {
	where, args := ident.OwnershipFilter("cr.")
	q := `SELECT COUNT(*) FROM consumable_reservations cr WHERE cr.shoppable_id = ? AND ` + where
	var n int
	err := r.db.QueryRowContext(ctx, q, append([]interface{}{shoppableID}, args...)...).Scan(&n)
	return n, err
}

// Create appends the requester to the shoppable's queue and returns
// the new reservation with its assigned position.  Joining a queue the
// requester is already in returns ErrConflict.
func (r *ReservationRepo) Create(ctx context.Context, shoppableID uint64, ident identity.Identity, now time.Time) (res *model.ConsumableReservation, err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	where, args := ident.OwnershipFilter("cr.")
	dupQ := `SELECT COUNT(*) FROM consumable_reservations cr WHERE cr.shoppable_id = ? AND ` + where
	var dup int
	if err = tx.QueryRowContext(ctx, dupQ, append([]interface{}{shoppableID}, args...)...).Scan(&dup); err != nil {
		return nil, err
	}
	if dup > 0 {
		err = ErrConflict
		return nil, err
	}

	// Lock the current tail of the queue while picking the next position.
	var next int
	if err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(queue_order), 0) + 1 FROM consumable_reservations WHERE shoppable_id = ? FOR UPDATE`,
		shoppableID,
	).Scan(&next); err != nil {
		return nil, err
	}

	memberID, sessionID := ownerValues(ident)
	out, err := tx.ExecContext(ctx,
		`INSERT INTO consumable_reservations (shoppable_id, member_id, session_id, queue_order, created_at) VALUES (?, ?, ?, ?, ?)`,
		shoppableID, memberID, sessionID, next, now.UTC(),
	)
	if err != nil {
		return nil, err
	}
	id, err := out.LastInsertId()
	if err != nil {
		return nil, err
	}

	reservation := model.ConsumableReservation{
		ID:          uint64(id),
		ShoppableID: shoppableID,
		QueueOrder:  &next,
		CreatedAt:   now.UTC(),
	}
	if ident.IsMember() {
		m := ident.MemberID
		reservation.MemberID = &m
	} else {
		s := ident.SessionID
		reservation.SessionID = &s
	}
	return &reservation, nil
}
