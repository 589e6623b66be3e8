package main // Entry point package

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/lovisadi/web/internal/config"
	"github.com/lovisadi/web/internal/database"
	"github.com/lovisadi/web/internal/handler"
	"github.com/lovisadi/web/internal/middleware"
	"github.com/lovisadi/web/internal/queue"
	"github.com/lovisadi/web/internal/repository"
	"github.com/lovisadi/web/internal/router"
)

func main() {
	_ = godotenv.Load() // .env is optional; real env vars win
	cfg := config.Load()

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatalf("database: %v", err)
	}

	// Redis is optional: a nil client turns the limiter and the cache
	// into pass-throughs.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis unavailable; rate limiting and caching disabled")
	}

	events := repository.NewEventRepo(db)
	tickets := repository.NewTicketRepo(db)
	consumables := repository.NewConsumableRepo(db)
	reservations := repository.NewReservationRepo(db)

	shopHandler := &handler.ShopHandler{
		Events:       events,
		Tickets:      tickets,
		Consumables:  consumables,
		Reservations: reservations,
	}
	cartHandler := &handler.CartHandler{
		Events:       events,
		Tickets:      tickets,
		Consumables:  consumables,
		Reservations: reservations,
		HoldTTL:      time.Duration(cfg.CartHoldTTLMin) * time.Minute,
	}

	e := echo.New()
	router.RegisterRoutes(e)
	router.RegisterShop(e, shopHandler, cartHandler,
		middleware.Identify(cfg.JWTSecret),
		middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb),
		middleware.NewRedisCache(config.LoadCacheConfig(), rdb),
	)

	// The purchase log consumer reconnects forever on its own.
	go func() {
		if err := queue.StartPurchaseConsumer(); err != nil {
			log.Printf("purchase-consumer stopped: %v", err)
		}
	}()

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
