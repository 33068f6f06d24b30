package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-ticketing/internal/config"
	"github.com/iliyamo/event-ticketing/internal/database"
	"github.com/iliyamo/event-ticketing/internal/gateway"
	"github.com/iliyamo/event-ticketing/internal/handler"
	"github.com/iliyamo/event-ticketing/internal/inventory"
	"github.com/iliyamo/event-ticketing/internal/ledger"
	"github.com/iliyamo/event-ticketing/internal/loyalty"
	"github.com/iliyamo/event-ticketing/internal/model"
	"github.com/iliyamo/event-ticketing/internal/queue"
	"github.com/iliyamo/event-ticketing/internal/reaper"
	"github.com/iliyamo/event-ticketing/internal/repository"
	"github.com/iliyamo/event-ticketing/internal/router"
	queue_publisher "github.com/iliyamo/event-ticketing/internal/service"
	"github.com/iliyamo/event-ticketing/internal/txlog"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()
	rlCfg := config.LoadRateLimitConfig()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	rdb := config.NewRedisClient() // nil when Redis is unavailable; rate limiting degrades open

	httpClient := &http.Client{Timeout: 15 * time.Second}
	adapters := map[model.Gateway]gateway.Adapter{
		model.GatewayEsewa:  gateway.NewEsewa(cfg.Esewa, httpClient),
		model.GatewayKhalti: gateway.NewKhalti(cfg.Khalti, httpClient),
	}

	inv := inventory.New(repository.NewInventoryStore(db))
	bookings := repository.NewBookingRepo(db)
	audit := txlog.New(repository.NewPaymentEventRepo(db))
	points := loyalty.New(repository.NewUserRepo(db))
	notifier := queue_publisher.NewNotifier()

	led := ledger.New(ledger.Config{HoldTTL: cfg.HoldTTL, Currency: cfg.Currency},
		bookings, inv, adapters, audit, points, notifier)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sweeper := reaper.New(inv, led, cfg.ReaperInterval)
	go sweeper.Start(ctx)

	go func() {
		if err := queue.StartBookingConsumer(); err != nil {
			log.Printf("booking consumer disabled: %v", err)
		}
	}()

	e := echo.New()
	router.RegisterRoutes(e)
	router.RegisterBooking(e, handler.NewBookingHandler(led, sweeper), cfg.JWTSecret, rlCfg, rdb)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			log.Printf("shutdown: %v", err)
		}
	}()

	if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
}
