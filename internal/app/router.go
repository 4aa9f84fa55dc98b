package app

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/dknog/indico-plugin-stripe/internal/handler"
	"github.com/dknog/indico-plugin-stripe/internal/middleware"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	PaymentHandler  *handler.PaymentHandler
	CallbackHandler *handler.CallbackHandler
	RedisClient     *redis.Client
	NewRelicApp     *newrelic.Application
	IdempotencyTTL  time.Duration
	Logger          *slog.Logger
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	// Global middleware.
	router.Use(gin.Recovery())
	router.Use(gin.Logger())

	// Add New Relic middleware if enabled.
	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
	}

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	payment := router.Group("/event/:event_id/registrations/:reg_form_id/payment")
	{
		// Checkout creation.
		checkout := payment.Group("/stripe")
		if deps.RedisClient != nil {
			checkout.Use(middleware.IdempotencyMiddleware(deps.RedisClient, middleware.IdempotencyOptions{
				TTL:    deps.IdempotencyTTL,
				Logger: deps.Logger,
			}))
		}
		checkout.POST("/checkout", deps.PaymentHandler.CreateCheckout)
		checkout.GET("/transactions", deps.PaymentHandler.ListTransactions)

		// Provider redirects.
		callbacks := payment.Group("/response/stripe")
		{
			callbacks.GET("/success", deps.CallbackHandler.Success)
			callbacks.POST("/success", deps.CallbackHandler.Success)
			callbacks.GET("/cancel", deps.CallbackHandler.Cancel)
			callbacks.POST("/cancel", deps.CallbackHandler.Cancel)
		}
	}

	return router
}
