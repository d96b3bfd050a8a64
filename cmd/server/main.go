package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"github.com/kennyp2233/nilo-back/internal/app"
	"github.com/kennyp2233/nilo-back/internal/config"
	"github.com/kennyp2233/nilo-back/internal/handler"
	"github.com/kennyp2233/nilo-back/internal/hub"
	"github.com/kennyp2233/nilo-back/internal/maps"
	internalRedis "github.com/kennyp2233/nilo-back/internal/redis"
	"github.com/kennyp2233/nilo-back/internal/repository/postgres"
	"github.com/kennyp2233/nilo-back/internal/service"
)

func main() {
	// Load configuration.
	cfg := config.Load()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize New Relic FIRST (before database so we can instrument DB).
	var nrApp *newrelic.Application
	var err error
	if cfg.NewRelic.Enabled && cfg.NewRelic.LicenseKey != "" {
		nrApp, err = newrelic.NewApplication(
			newrelic.ConfigAppName(cfg.NewRelic.AppName),
			newrelic.ConfigLicense(cfg.NewRelic.LicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
			newrelic.ConfigAppLogForwardingEnabled(true),
		)
		if err != nil {
			log.Printf("failed to initialize New Relic: %v", err)
		} else {
			log.Printf("New Relic enabled: app=%s (with DB instrumentation)", cfg.NewRelic.AppName)
		}
	}

	// Initialize database with New Relic instrumentation.
	db, err := app.NewDatabase(ctx, cfg.Database, nrApp)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Connected to PostgreSQL")

	// Initialize Redis with New Relic instrumentation.
	redisClient, err := app.NewRedisClient(ctx, cfg.Redis, nrApp)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()
	log.Println("Connected to Redis")

	// Wire dependencies.
	server, dispatchService := wireServer(db, redisClient, nrApp, cfg)

	// Run the search-deadline scheduler until shutdown.
	schedulerCtx, stopScheduler := context.WithCancel(context.Background())
	defer stopScheduler()
	go dispatchService.RunDeadlineScheduler(schedulerCtx)

	// Start server in goroutine.
	go func() {
		log.Printf("Starting server on port %s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	stopScheduler()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}

// wireServer wires all dependencies and returns the HTTP server and the
// dispatch service that owns the deadline scheduler.
func wireServer(db *sql.DB, redisClient *redis.Client, nrApp *newrelic.Application, cfg *config.Config) (*http.Server, *service.DispatchService) {
	// Initialize Redis stores.
	locationStore := internalRedis.NewLocationStore(redisClient)
	deadlineStore := internalRedis.NewDeadlineStore(redisClient)

	// Initialize repositories.
	tripRepo := postgres.NewTripRepository(db)
	passengerRepo := postgres.NewTripPassengerRepository(db)
	driverRepo := postgres.NewDriverRepository(db)
	walletRepo := postgres.NewWalletRepository(db)
	paymentRepo := postgres.NewPaymentRepository(db)
	promoRepo := postgres.NewPromoRepository(db)
	tariffRepo := postgres.NewTariffRepository(db)
	ratingRepo := postgres.NewRatingRepository(db)

	// Initialize routing provider.
	routeService, err := maps.NewRouteService(cfg.Maps.APIKey)
	if err != nil {
		log.Fatalf("failed to initialize maps client: %v", err)
	}

	// Initialize services. The hub needs the trip service for subscribe-time
	// access checks and the services need the hub for fan-out, so the hub is
	// built against a late-bound checker.
	checker := &accessChecker{}
	eventHub := hub.NewHub(checker)

	notificationService := service.NewNotificationService(eventHub)
	fareService := service.NewFareService(tariffRepo, promoRepo)
	tripService := service.NewTripService(
		db, tripRepo, passengerRepo, driverRepo, ratingRepo,
		fareService, routeService, deadlineStore, notificationService, eventHub,
		cfg.Dispatch.SearchTimeout,
	)
	checker.trips = tripService

	dispatchService := service.NewDispatchService(
		db, tripRepo, passengerRepo, driverRepo,
		locationStore, deadlineStore, notificationService, eventHub,
	)
	settlementService := service.NewSettlementService(
		db, tripRepo, passengerRepo, driverRepo, walletRepo, paymentRepo, notificationService,
	)

	// Initialize handlers.
	tripHandler := handler.NewTripHandler(tripService, dispatchService)
	driverHandler := handler.NewDriverHandler(dispatchService)
	paymentHandler := handler.NewPaymentHandler(settlementService)
	walletHandler := handler.NewWalletHandler(settlementService)
	promoHandler := handler.NewPromoHandler(fareService)
	wsHandler := handler.NewWSHandler(eventHub)

	// Create router.
	router := app.NewRouter(app.RouterDeps{
		TripHandler:    tripHandler,
		DriverHandler:  driverHandler,
		PaymentHandler: paymentHandler,
		WalletHandler:  walletHandler,
		PromoHandler:   promoHandler,
		WSHandler:      wsHandler,
		RedisClient:    redisClient,
		NewRelicApp:    nrApp,
	})

	// Create HTTP server.
	return &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, dispatchService
}

// accessChecker defers to the trip service once it exists.
type accessChecker struct {
	trips *service.TripService
}

func (a *accessChecker) UserHasAccessToTrip(ctx context.Context, tripID, userID string) (bool, error) {
	return a.trips.UserHasAccessToTrip(ctx, tripID, userID)
}
