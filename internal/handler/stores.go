// The handlers depend on narrow store interfaces instead of the
// concrete repositories, so tests can substitute in-memory fakes.
// Each interface lists exactly the methods its handlers call.
package handler

import (
	"context"
	"time"

	"github.com/lovisadi/web/internal/identity"
	"github.com/lovisadi/web/internal/model"
	"github.com/lovisadi/web/internal/repository"
)

type eventStore interface {
	GetByID(ctx context.Context, id uint64) (*model.Event, error)
	ListVisible(ctx context.Context, now time.Time, extra ...repository.EventFilter) ([]model.Event, error)
}

type ticketStore interface {
	GetByID(ctx context.Context, id uint64, now time.Time) (*model.Ticket, error)
	ListVisible(ctx context.Context, now time.Time) ([]model.Ticket, error)
	ListVisibleByEvent(ctx context.Context, eventID uint64, now time.Time) ([]model.Ticket, error)
}

type consumableStore interface {
	CountClaimed(ctx context.Context, shoppableID uint64, now time.Time) (int, error)
	CountPurchasedBy(ctx context.Context, shoppableID uint64, ident identity.Identity) (int, error)
	CountUnpurchasedBy(ctx context.Context, shoppableID uint64, ident identity.Identity, now time.Time) (int, error)
	CreateHold(ctx context.Context, t model.Ticket, ident identity.Identity, expiresAt time.Time, now time.Time) (*model.Consumable, error)
	DeleteHoldBy(ctx context.Context, shoppableID uint64, ident identity.Identity) error
	MarkPurchasedBy(ctx context.Context, ident identity.Identity, now time.Time) ([]model.Consumable, error)
}

type reservationStore interface {
	CountCommitted(ctx context.Context, shoppableID uint64) (int, error)
	CountBy(ctx context.Context, shoppableID uint64, ident identity.Identity) (int, error)
	Create(ctx context.Context, shoppableID uint64, ident identity.Identity, now time.Time) (*model.ConsumableReservation, error)
}

var (
	_ eventStore       = (*repository.EventRepo)(nil)
	_ ticketStore      = (*repository.TicketRepo)(nil)
	_ consumableStore  = (*repository.ConsumableRepo)(nil)
	_ reservationStore = (*repository.ReservationRepo)(nil)
)
