package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/lovisadi/web/internal/handler"
)

// RegisterRoutes registers routes that need no identity or limiting.
// Currently that is only the health check used by load balancers.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterShop registers the shop API under /v1/shop.  Every route
// runs the identity resolver first (the projection and the cart are
// requester-scoped) followed by the rate limiter; the response cache
// additionally wraps the read-only listing endpoints.
func RegisterShop(e *echo.Echo, s *handler.ShopHandler, cart *handler.CartHandler, ident, limiter, cache echo.MiddlewareFunc) {
	g := e.Group("/v1/shop", ident, limiter)

	// Browsing. Cached per identity because the views embed cart state.
	g.GET("/tickets", s.GetTickets, cache)
	g.GET("/tickets/:id", s.GetTicket, cache)
	g.GET("/events", s.GetEvents, cache)

	// Cart and queue flows.
	g.POST("/tickets/:id/cart", cart.AddToCart)
	g.DELETE("/tickets/:id/cart", cart.RemoveFromCart)
	g.POST("/cart/checkout", cart.Checkout)
	g.POST("/tickets/:id/queue", cart.JoinQueue)
}
