package main // Entry point package

import (
	"log"

	_ "github.com/joho/godotenv/autoload" // load .env before config.Load
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/studio-class-booking/internal/booking"
	"github.com/iliyamo/studio-class-booking/internal/config"
	"github.com/iliyamo/studio-class-booking/internal/database"
	"github.com/iliyamo/studio-class-booking/internal/handler"
	"github.com/iliyamo/studio-class-booking/internal/identity"
	"github.com/iliyamo/studio-class-booking/internal/queue"
	"github.com/iliyamo/studio-class-booking/internal/repository"
	"github.com/iliyamo/studio-class-booking/internal/router"
	queue_publisher "github.com/iliyamo/studio-class-booking/internal/service"
	"github.com/iliyamo/studio-class-booking/internal/store/filestore"
)

func main() {
	cfg := config.Load()
	e := echo.New()
	router.RegisterRoutes(e)

	rdb := config.NewRedisClient() // nil disables caching and rate limiting
	if rdb == nil {
		log.Printf("redis unavailable; response cache and rate limiting disabled")
	}
	events := queue_publisher.BrokerEvents{}

	if cfg.DBHost != "" {
		db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
		if err != nil {
			log.Fatalf("mysql: %v", err)
		}
		users := repository.NewUserRepo(db)
		tokens := repository.NewTokenRepo(db)
		sessions := repository.NewSessionRepo(db)
		reservations := repository.NewReservationRepo(db)
		catalog := repository.NewCatalogRepo(db)

		gate := identity.NewGate(cfg.JWTSecret, users)
		svc := booking.NewService(gate, sessions, reservations, events)

		router.RegisterAuth(e, handler.NewAuthHandler(cfg, users, tokens), gate)
		router.RegisterCatalog(e, handler.NewCatalogHandler(sessions, catalog), rdb)
		router.RegisterBooking(e, handler.NewBookingHandler(svc, reservations), gate)
	} else {
		// Dev mode: file-backed catalog and ledger under DataDir, with a
		// fixed known-user set.  The auth endpoints need MySQL and stay
		// unregistered; tokens are minted out of band with JWT_SECRET.
		log.Printf("DB_HOST not set; using file store in %s (auth endpoints disabled)", cfg.DataDir)
		st, err := filestore.Open(cfg.DataDir)
		if err != nil {
			log.Fatalf("filestore: %v", err)
		}
		userSet, err := filestore.LoadUsers(cfg.DataDir)
		if err != nil {
			log.Fatalf("filestore: %v", err)
		}

		gate := identity.NewGate(cfg.JWTSecret, userSet)
		svc := booking.NewService(gate, st, st, events)

		router.RegisterCatalog(e, handler.NewCatalogHandler(st, st), rdb)
		router.RegisterBooking(e, handler.NewBookingHandler(svc, st), gate)
	}

	// Drain confirmation and reconcile queues into operator logs.
	go func() {
		if err := queue.StartConsumer(); err != nil {
			log.Printf("queue consumer stopped: %v", err)
		}
	}()

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
