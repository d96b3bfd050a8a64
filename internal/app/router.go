package app

import (
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"github.com/kennyp2233/nilo-back/internal/handler"
	"github.com/kennyp2233/nilo-back/internal/middleware"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	TripHandler    *handler.TripHandler
	DriverHandler  *handler.DriverHandler
	PaymentHandler *handler.PaymentHandler
	WalletHandler  *handler.WalletHandler
	PromoHandler   *handler.PromoHandler
	WSHandler      *handler.WSHandler
	RedisClient    *redis.Client
	NewRelicApp    *newrelic.Application
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	// Global middleware.
	router.Use(gin.Recovery())
	router.Use(gin.Logger())
	router.Use(middleware.CORSMiddleware())

	// Add New Relic middleware if enabled.
	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
	}

	router.Use(middleware.IdempotencyMiddleware(deps.RedisClient))

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// API v1 routes.
	v1 := router.Group("/v1")
	{
		// Trip routes.
		trips := v1.Group("/trips")
		{
			trips.POST("", deps.TripHandler.CreateTrip)
			trips.GET("", deps.TripHandler.ListTrips)
			trips.GET("/:id", deps.TripHandler.GetTrip)
			trips.POST("/:id/accept", deps.TripHandler.AcceptTrip)
			trips.PATCH("/:id/status", deps.TripHandler.AdvanceTrip)
			trips.POST("/:id/cancel", deps.TripHandler.CancelTrip)
			trips.POST("/:id/rate", deps.TripHandler.RateTrip)
		}

		// Driver routes.
		drivers := v1.Group("/drivers")
		{
			drivers.POST("/availability", deps.DriverHandler.SetAvailability)
			drivers.POST("/location", deps.DriverHandler.UpdateLocation)
			drivers.GET("/nearby", deps.DriverHandler.NearbyDrivers)
		}

		// Payment routes.
		payments := v1.Group("/payments")
		{
			payments.POST("", deps.PaymentHandler.Settle)
			payments.GET("/:id", deps.PaymentHandler.GetPayment)
		}

		// Wallet routes.
		wallet := v1.Group("/wallet")
		{
			wallet.GET("", deps.WalletHandler.GetWallet)
			wallet.GET("/transactions", deps.WalletHandler.GetTransactions)
			wallet.POST("/deposit", deps.WalletHandler.Deposit)
			wallet.POST("/withdraw", deps.WalletHandler.Withdraw)
		}

		// Promo code routes.
		promos := v1.Group("/promos")
		{
			promos.POST("", deps.PromoHandler.CreatePromo)
			promos.GET("", deps.PromoHandler.ListPromos)
			promos.POST("/apply", deps.PromoHandler.ApplyPromo)
		}

		// Real-time event stream.
		v1.GET("/ws", deps.WSHandler.Connect)
	}

	return router
}
