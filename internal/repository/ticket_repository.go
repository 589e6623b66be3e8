package repository // repository for ticket persistence

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lovisadi/web/internal/model"
	"github.com/lovisadi/web/internal/shop"
)

// ErrTicketNotFound indicates that a ticket was not located in the DB
// or is no longer visible to the public.
var ErrTicketNotFound = errors.New("ticket not found")

// TicketRepo manages persistence for tickets.  A ticket is the join of
// a shoppables row with its tickets row; every query here reproduces
// the public visibility rule in SQL: not soft-removed (removed_at null
// or in the future) and sales not closed longer than the trailing
// grace window ago.
type TicketRepo struct {
	db *sql.DB
}

// NewTicketRepo constructs a TicketRepo with the given DB handle.
func NewTicketRepo(db *sql.DB) *TicketRepo {
	return &TicketRepo{db: db}
}

const ticketColumns = `s.id, s.event_id, s.available_from, s.available_to, s.removed_at, s.stock, t.max_amount_per_user`

// visibleWhere is the SQL form of shop.Visible.  Placeholders: now,
// now minus shop.VisibilityGrace.
const visibleWhere = `(s.removed_at IS NULL OR s.removed_at > ?) AND (s.available_to IS NULL OR s.available_to > ?)`

func visibleArgs(now time.Time) []interface{} {
	return []interface{}{now.UTC(), now.Add(-shop.VisibilityGrace).UTC()}
}

// GetByID retrieves a visible ticket by its shoppable ID.  Removed and
// long-closed tickets resolve to ErrTicketNotFound just like absent
// ones, so the lookup boundary leaks nothing about removed rows.
func (r *TicketRepo) GetByID(ctx context.Context, id uint64, now time.Time) (*model.Ticket, error) {
	const q = `SELECT ` + ticketColumns + `
               FROM shoppables s
               JOIN tickets t ON t.shoppable_id = s.id
               WHERE s.id = ? AND ` + visibleWhere
	args := append([]interface{}{id}, visibleArgs(now)...)
	var tk model.Ticket
	err := r.db.QueryRowContext(ctx, q, args...).Scan(
		&tk.ID, &tk.EventID, &tk.AvailableFrom, &tk.AvailableTo, &tk.RemovedAt, &tk.Stock, &tk.MaxAmountPerUser,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTicketNotFound
		}
		return nil, err
	}
	return &tk, nil
}

// ListVisible returns all publicly visible tickets ordered by sales
// opening ascending.  When no tickets match it returns an empty slice
// and nil error.
func (r *TicketRepo) ListVisible(ctx context.Context, now time.Time) ([]model.Ticket, error) {
	const q = `SELECT ` + ticketColumns + `
               FROM shoppables s
               JOIN tickets t ON t.shoppable_id = s.id
               WHERE ` + visibleWhere + `
               ORDER BY s.available_from ASC`
	return r.list(ctx, q, visibleArgs(now)...)
}

// ListVisibleByEvent returns the visible tickets of one event, ordered
// by sales opening ascending.
func (r *TicketRepo) ListVisibleByEvent(ctx context.Context, eventID uint64, now time.Time) ([]model.Ticket, error) {
	const q = `SELECT ` + ticketColumns + `
               FROM shoppables s
               JOIN tickets t ON t.shoppable_id = s.id
               WHERE s.event_id = ? AND ` + visibleWhere + `
               ORDER BY s.available_from ASC`
	args := append([]interface{}{eventID}, visibleArgs(now)...)
	return r.list(ctx, q, args...)
}

func (r *TicketRepo) list(ctx context.Context, q string, args ...interface{}) ([]model.Ticket, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []model.Ticket
	for rows.Next() {
		var tk model.Ticket
		if err := rows.Scan(
			&tk.ID, &tk.EventID, &tk.AvailableFrom, &tk.AvailableTo, &tk.RemovedAt, &tk.Stock, &tk.MaxAmountPerUser,
		); err != nil {
			return nil, err
		}
		result = append(result, tk)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
