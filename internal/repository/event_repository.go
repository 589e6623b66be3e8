// Package repository contains data access logic for the shop.  This
// file covers events.  The base visibility rule for events (published,
// not ended longer than the trailing grace window ago) lives here;
// callers may supply extra predicate fragments that are ANDed onto it,
// so the listing endpoints can narrow by date or tag without the
// repository growing a method per combination.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lovisadi/web/internal/model"
	"github.com/lovisadi/web/internal/shop"
)

// ErrEventNotFound indicates that an event was not located in the DB.
var ErrEventNotFound = errors.New("event not found")

// EventFilter is an extra predicate ANDed to the base event visibility
// filter.  Where must be a complete boolean SQL fragment over the `e`
// alias; Args supplies its placeholders.
type EventFilter struct {
	Where string
	Args  []interface{}
}

// EventRepo manages persistence for events.
type EventRepo struct {
	db *sql.DB
}

// NewEventRepo constructs an EventRepo with the given DB handle.
func NewEventRepo(db *sql.DB) *EventRepo {
	return &EventRepo{db: db}
}

const eventColumns = `e.id, e.title, e.description, e.starts_at, e.ends_at, e.published, e.created_at, e.updated_at`

// GetByID retrieves a published event by its ID.  It returns
// ErrEventNotFound when there is no matching row.
func (r *EventRepo) GetByID(ctx context.Context, id uint64) (*model.Event, error) {
	const q = `SELECT ` + eventColumns + ` FROM events e WHERE e.id = ? AND e.published = TRUE`
	var e model.Event
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&e.ID, &e.Title, &e.Description, &e.StartsAt, &e.EndsAt, &e.Published, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	return &e, nil
}

// ListVisible returns published events ordered by start time ascending.
// Events that ended longer than shop.VisibilityGrace before now are
// excluded, mirroring the ticket listing's trailing window.  Extra
// filters are ANDed to the base predicate.  When no events match it
// returns an empty slice and nil error.
func (r *EventRepo) ListVisible(ctx context.Context, now time.Time, extra ...EventFilter) ([]model.Event, error) {
	q := `SELECT ` + eventColumns + ` FROM events e WHERE e.published = TRUE AND e.ends_at > ?`
	args := []interface{}{now.Add(-shop.VisibilityGrace).UTC()}
	for _, f := range extra {
		q += ` AND (` + f.Where + `)`
		args = append(args, f.Args...)
	}
	q += ` ORDER BY e.starts_at ASC`

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []model.Event
	for rows.Next() {
		var e model.Event
		if err := rows.Scan(
			&e.ID, &e.Title, &e.Description, &e.StartsAt, &e.EndsAt, &e.Published, &e.CreatedAt, &e.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
