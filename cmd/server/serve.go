package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/dknog/indico-plugin-stripe/internal/app"
	"github.com/dknog/indico-plugin-stripe/internal/config"
	"github.com/dknog/indico-plugin-stripe/internal/domain"
	"github.com/dknog/indico-plugin-stripe/internal/handler"
	"github.com/dknog/indico-plugin-stripe/internal/psp"
	internalRedis "github.com/dknog/indico-plugin-stripe/internal/redis"
	"github.com/dknog/indico-plugin-stripe/internal/repository/postgres"
	"github.com/dknog/indico-plugin-stripe/internal/service"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server (default)",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Log, os.Stdout)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize New Relic FIRST (before database so we can instrument DB).
	var nrApp *newrelic.Application
	if cfg.NewRelic.Enabled && cfg.NewRelic.LicenseKey != "" {
		nrApp, err = newrelic.NewApplication(
			newrelic.ConfigAppName(cfg.NewRelic.AppName),
			newrelic.ConfigLicense(cfg.NewRelic.LicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
			newrelic.ConfigAppLogForwardingEnabled(true),
		)
		if err != nil {
			logger.Warn("failed to initialize New Relic", "error", err)
		} else {
			logger.Info("New Relic enabled", "app", cfg.NewRelic.AppName)
		}
	}

	db, err := app.NewDatabase(ctx, cfg.Database, nrApp)
	if err != nil {
		return err
	}
	defer db.Close()
	logger.Info("connected to PostgreSQL")

	redisClient, err := app.NewRedisClient(ctx, cfg.Redis, nrApp)
	if err != nil {
		return err
	}
	defer redisClient.Close()
	logger.Info("connected to Redis")

	if cfg.Stripe.SecretKey == "" {
		logger.Warn("STRIPE_SECRET_KEY is empty; only events with their own keys can be charged")
	}

	server := wireServer(db, redisClient, nrApp, cfg, logger)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", "port", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		return err
	}
	logger.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if nrApp != nil {
		nrApp.Shutdown(5 * time.Second)
	}

	logger.Info("server exited")
	return nil
}

// wireServer wires all dependencies and returns the HTTP server.
func wireServer(db *sql.DB, redisClient *redis.Client, nrApp *newrelic.Application, cfg *config.Config, logger *slog.Logger) *http.Server {
	// Initialize Redis stores.
	cacheStore := internalRedis.NewCacheStore(redisClient, cfg.Callback.SettingsCacheTTL)
	lockStore := internalRedis.NewLockStore(redisClient, cfg.Callback.DedupTTL)

	// Initialize repositories.
	registrationRepo := postgres.NewRegistrationRepository(db)
	settingsRepo := postgres.NewSettingsRepository(db)
	ledger := postgres.NewTransactionLedger(db)

	// Payment provider.
	stripeProvider := psp.NewStripeProvider(psp.StripeOptions{
		APIURL:  cfg.Stripe.APIURL,
		Timeout: cfg.Stripe.Timeout,
		Logger:  logger,
	})
	provider := psp.NewBreakerProvider(stripeProvider, psp.BreakerOptions{
		MaxFailures: cfg.Stripe.BreakerFailures,
		Timeout:     cfg.Stripe.BreakerTimeout,
		Logger:      logger,
	})

	// Initialize services.
	plugin := domain.PluginSettings{
		MethodName:     cfg.Stripe.MethodName,
		PublishableKey: cfg.Stripe.PublishableKey,
		SecretKey:      cfg.Stripe.SecretKey,
		OrgName:        cfg.Stripe.OrgName,
		Description:    cfg.Stripe.Description,
	}
	urls := service.NewURLBuilder(cfg.Server.PublicBaseURL)
	settingsService := service.NewSettingsService(plugin, settingsRepo, cacheStore, logger)
	checkoutService := service.NewCheckoutService(registrationRepo, settingsService, provider, urls, logger)
	callbackService := service.NewCallbackService(registrationRepo, ledger, settingsService, provider, lockStore, urls, logger)
	transactionService := service.NewTransactionService(registrationRepo, ledger)

	// Create router.
	router := app.NewRouter(app.RouterDeps{
		PaymentHandler:  handler.NewPaymentHandler(checkoutService, transactionService),
		CallbackHandler: handler.NewCallbackHandler(callbackService, cfg.Callback.FlashCookieSecure),
		RedisClient:     redisClient,
		NewRelicApp:     nrApp,
		IdempotencyTTL:  cfg.Callback.IdempotencyTTL,
		Logger:          logger,
	})

	// Create HTTP server.
	return &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
}
