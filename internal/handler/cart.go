// This file defines the cart and queue endpoints: adding a ticket to
// the cart creates an expiring hold, checkout converts the requester's
// holds into purchases and publishes a ticket.purchased event, and
// sold-out tickets accept queue reservations instead.
package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/lovisadi/web/internal/middleware"
	"github.com/lovisadi/web/internal/queue"
	"github.com/lovisadi/web/internal/repository"
	queue_publisher "github.com/lovisadi/web/internal/service"
	"github.com/lovisadi/web/internal/shop"
)

// CartHandler aggregates the stores needed by the cart flows.  HoldTTL
// is how long a cart hold lives before its unit returns to stock.
type CartHandler struct {
	Events       eventStore
	Tickets      ticketStore
	Consumables  consumableStore
	Reservations reservationStore
	HoldTTL      time.Duration
}

// AddToCart claims one unit of the ticket for the requester.  The hold
// expires after HoldTTL unless checked out first.
func (h *CartHandler) AddToCart(c echo.Context) error {
	ctx := c.Request().Context()
	now := time.Now().UTC()
	ident := middleware.Requester(c)

	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	t, err := h.Tickets.GetByID(ctx, id, now)
	if err != nil {
		if errors.Is(err, repository.ErrTicketNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "ticket not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if !shop.SaleOpen(*t, now) {
		return c.JSON(http.StatusConflict, echo.Map{"error": "sales closed"})
	}

	co, err := h.Consumables.CreateHold(ctx, *t, ident, now.Add(h.HoldTTL), now)
	switch {
	case err == nil:
	case errors.Is(err, repository.ErrSoldOut):
		return c.JSON(http.StatusConflict, echo.Map{"error": "sold out"})
	case errors.Is(err, repository.ErrMaxReached):
		return c.JSON(http.StatusConflict, echo.Map{"error": "max amount reached"})
	case errors.Is(err, repository.ErrTicketNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "ticket not found"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"consumable_id": co.ID,
		"ticket_id":     co.ShoppableID,
		"expires_at":    co.ExpiresAt,
	})
}

// RemoveFromCart drops the requester's unpurchased holds on the ticket.
func (h *CartHandler) RemoveFromCart(c echo.Context) error {
	ctx := c.Request().Context()
	ident := middleware.Requester(c)

	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	if err := h.Consumables.DeleteHoldBy(ctx, id, ident); err != nil {
		if errors.Is(err, repository.ErrHoldNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "cart entry not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.NoContent(http.StatusNoContent)
}

// Checkout converts every active hold of the requester into a
// purchase.  Payment itself is handled upstream; by the time this
// endpoint is called the amount has been settled.  One
// ticket.purchased event is published per purchased unit; publish
// failures are logged by the publisher and do not fail the purchase.
func (h *CartHandler) Checkout(c echo.Context) error {
	ctx := c.Request().Context()
	now := time.Now().UTC()
	ident := middleware.Requester(c)

	purchased, err := h.Consumables.MarkPurchasedBy(ctx, ident, now)
	if err != nil {
		if errors.Is(err, repository.ErrHoldNotFound) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "cart is empty"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	items := make([]echo.Map, 0, len(purchased))
	for _, co := range purchased {
		ev := queue.TicketPurchasedEvent{
			ConsumableID: co.ID,
			TicketID:     co.ShoppableID,
			PurchasedAt:  now.Format("2006-01-02 15:04:05"),
		}
		if co.MemberID != nil {
			ev.MemberID = *co.MemberID
		}
		if co.SessionID != nil {
			ev.SessionID = *co.SessionID
		}
		if t, tErr := h.Tickets.GetByID(ctx, co.ShoppableID, now); tErr == nil {
			ev.EventID = t.EventID
			if e, eErr := h.Events.GetByID(ctx, t.EventID); eErr == nil {
				ev.EventTitle = e.Title
			}
		}
		_ = queue_publisher.PublishTicketPurchased(ctx, ev)

		items = append(items, echo.Map{"consumable_id": co.ID, "ticket_id": co.ShoppableID})
	}
	return c.JSON(http.StatusOK, echo.Map{"purchased": items, "count": len(items)})
}

// JoinQueue appends the requester to a sold-out ticket's waiting
// queue.  Tickets that still have stock reject the request; joining
// twice answers 409.
func (h *CartHandler) JoinQueue(c echo.Context) error {
	ctx := c.Request().Context()
	now := time.Now().UTC()
	ident := middleware.Requester(c)

	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	t, err := h.Tickets.GetByID(ctx, id, now)
	if err != nil {
		if errors.Is(err, repository.ErrTicketNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "ticket not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	claimed, err := h.Consumables.CountClaimed(ctx, id, now)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if claimed < t.Stock {
		return c.JSON(http.StatusConflict, echo.Map{"error": "stock available, add to cart instead"})
	}

	res, err := h.Reservations.Create(ctx, id, ident, now)
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "already in queue"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"reservation_id": res.ID,
		"ticket_id":      res.ShoppableID,
		"queue_order":    res.QueueOrder,
	})
}
