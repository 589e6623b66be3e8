// Package handler exposes the HTTP handlers of the shop.  This file
// defines the public browsing endpoints: ticket listings, single
// ticket lookups and the event feed with nested tickets.  Every
// response goes through the shop projection, so raw consumable rows
// and aggregate counts never reach a client.
package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/lovisadi/web/internal/middleware"
	"github.com/lovisadi/web/internal/model"
	"github.com/lovisadi/web/internal/repository"
	"github.com/lovisadi/web/internal/shop"
)

// ShopHandler aggregates the stores needed for browsing.
type ShopHandler struct {
	Events       eventStore
	Tickets      ticketStore
	Consumables  consumableStore
	Reservations reservationStore
}

// EventResponse is an event with its visible tickets nested.  The
// nested ticket views each carry an EventSummary back-reference; the
// summary has no ticket list, which keeps the payload acyclic.
type EventResponse struct {
	ID          uint64            `json:"id"`
	Title       string            `json:"title"`
	Description *string           `json:"description,omitempty"`
	StartsAt    time.Time         `json:"starts_at"`
	EndsAt      time.Time         `json:"ends_at"`
	Tickets     []shop.TicketView `json:"tickets"`
}

// counts gathers the aggregates the projection needs for one ticket.
// The stock-wide numbers span all users; the user-scoped queries use
// the requester's ownership predicate.
func (h *ShopHandler) counts(c echo.Context, shoppableID uint64, now time.Time) (shop.Counts, error) {
	ctx := c.Request().Context()
	ident := middleware.Requester(c)

	var n shop.Counts
	var err error
	if n.Claimed, err = h.Consumables.CountClaimed(ctx, shoppableID, now); err != nil {
		return n, err
	}
	if n.CommittedQueue, err = h.Reservations.CountCommitted(ctx, shoppableID); err != nil {
		return n, err
	}
	if n.UserPurchased, err = h.Consumables.CountPurchasedBy(ctx, shoppableID, ident); err != nil {
		return n, err
	}
	if n.UserUnpurchased, err = h.Consumables.CountUnpurchasedBy(ctx, shoppableID, ident, now); err != nil {
		return n, err
	}
	if n.UserReservations, err = h.Reservations.CountBy(ctx, shoppableID, ident); err != nil {
		return n, err
	}
	return n, nil
}

func (h *ShopHandler) project(c echo.Context, t model.Ticket, now time.Time) (shop.TicketView, error) {
	n, err := h.counts(c, t.ID, now)
	if err != nil {
		return shop.TicketView{}, err
	}
	return shop.Project(t, n), nil
}

// GetTickets lists all visible tickets for the requester, ordered by
// sales opening ascending.  Response JSON contains an "items" array of
// ticket views.
func (h *ShopHandler) GetTickets(c echo.Context) error {
	ctx := c.Request().Context()
	now := time.Now().UTC()

	tickets, err := h.Tickets.ListVisible(ctx, now)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	out := make([]shop.TicketView, 0, len(tickets))
	for _, t := range tickets {
		view, err := h.project(c, t, now)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
		}
		out = append(out, view)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out})
}

// GetTicket returns the projection of a single ticket.  Missing,
// removed and long-closed tickets all answer 404.
func (h *ShopHandler) GetTicket(c echo.Context) error {
	ctx := c.Request().Context()
	now := time.Now().UTC()

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
	view, err := h.project(c, *t, now)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	// Attach the minimal event data when the event is still published.
	if ev, evErr := h.Events.GetByID(ctx, t.EventID); evErr == nil {
		summary := shop.Summary(*ev)
		view.Event = &summary
	}
	return c.JSON(http.StatusOK, view)
}

// GetEvents lists published events ordered by start time ascending,
// each with its visible tickets nested.  Optional `from` and `until`
// query parameters (RFC 3339) narrow the listing by event start time.
// Response JSON contains an "items" array of EventResponse.
func (h *ShopHandler) GetEvents(c echo.Context) error {
	ctx := c.Request().Context()
	now := time.Now().UTC()

	var extra []repository.EventFilter
	if v := c.QueryParam("from"); v != "" {
		from, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid from"})
		}
		extra = append(extra, repository.EventFilter{Where: "e.starts_at >= ?", Args: []interface{}{from.UTC()}})
	}
	if v := c.QueryParam("until"); v != "" {
		until, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid until"})
		}
		extra = append(extra, repository.EventFilter{Where: "e.starts_at < ?", Args: []interface{}{until.UTC()}})
	}

	events, err := h.Events.ListVisible(ctx, now, extra...)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	out := make([]EventResponse, 0, len(events))
	for _, ev := range events {
		tickets, err := h.Tickets.ListVisibleByEvent(ctx, ev.ID, now)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
		}
		summary := shop.Summary(ev)
		views := make([]shop.TicketView, 0, len(tickets))
		for _, t := range tickets {
			view, err := h.project(c, t, now)
			if err != nil {
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
			}
			s := summary
			view.Event = &s
			views = append(views, view)
		}
		out = append(out, EventResponse{
			ID:          ev.ID,
			Title:       ev.Title,
			Description: ev.Description,
			StartsAt:    ev.StartsAt,
			EndsAt:      ev.EndsAt,
			Tickets:     views,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out})
}
