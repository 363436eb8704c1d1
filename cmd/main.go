package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Sammk21/medusa-admin/handler"
	"github.com/Sammk21/medusa-admin/infra/cache"
	"github.com/Sammk21/medusa-admin/infra/config"
	"github.com/Sammk21/medusa-admin/infra/conn"
	"github.com/Sammk21/medusa-admin/infra/logger"
	"github.com/Sammk21/medusa-admin/infra/middle"
	"github.com/Sammk21/medusa-admin/infra/opensearch"
	"github.com/Sammk21/medusa-admin/infra/postgres"
	"github.com/Sammk21/medusa-admin/infra/validate"
	"github.com/Sammk21/medusa-admin/provider"
	_ "github.com/Sammk21/medusa-admin/provider/razorpay"
	"github.com/Sammk21/medusa-admin/router"
	v1 "github.com/Sammk21/medusa-admin/router/v1"
	"github.com/joho/godotenv"
)

const version = "1.0.0"

func main() {
	// .env is optional, real deployments set the environment directly
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Load Env Error: %v", err)
	}

	appConf := config.App()
	if err := validate.CustomValidate(); err != nil {
		log.Fatalf("Validator setup failed: %v", err)
	}
	cfg := config.GetAppConfig()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// OpenSearch receives system logs and the webhook audit trail
	var (
		osClient *opensearch.Client
		osLogger *opensearch.Logger
	)
	if cfg.EnableOpenSearchLogging {
		client, err := opensearch.NewClient(cfg)
		if err != nil {
			log.Printf("Failed to initialize OpenSearch client: %v", err)
			log.Println("Continuing without OpenSearch logging...")
		} else {
			osClient = client
			osLogger = opensearch.NewLogger(client)
		}
	}
	if osLogger != nil {
		logger.InitGlobalLogger(osLogger)
	} else {
		logger.InitGlobalLogger(nil)
	}

	// provider credentials
	var storage *config.SQLiteStorage
	if cfg.ProviderConfigDB != "" {
		s, err := config.NewSQLiteStorage(cfg.ProviderConfigDB)
		if err != nil {
			logger.Fatal("Failed to open provider config storage", err)
		}
		storage = s
		defer storage.Close()
	}
	providerConfig := config.NewProviderConfig(storage)
	loaded := providerConfig.LoadFromEnv()
	logger.Info("Provider configuration loaded", logger.LogContext{
		Fields: map[string]any{"from_env": loaded, "persistent": storage != nil},
	})

	opts := []provider.ServiceOption{
		provider.WithDefaultEnvironment(cfg.PaymentEnvironment),
	}

	// call log database
	var callLogs *postgres.Logger
	if cfg.DatabaseURL != "" {
		db, err := conn.ConnectDatabase(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("Failed to connect to database", err)
		}
		defer db.CloseDatabase()

		if err := postgres.Migrate(ctx, db.DB); err != nil {
			logger.Fatal("Failed to migrate database", err)
		}
		callLogs = postgres.NewLogger(db)
		opts = append(opts, provider.WithPaymentLogger(callLogs))
	}

	// webhook deduplication
	var redisStore *cache.RedisWebhookEventStore
	if cfg.RedisURL != "" {
		client, err := cache.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal("Failed to connect to redis", err)
		}
		defer client.Close()
		redisStore = cache.NewRedisWebhookEventStore(client, cfg.WebhookEventTTL)
		opts = append(opts, provider.WithWebhookEventStore(redisStore))
	} else {
		logger.Warn("REDIS_URL not set, webhook deduplication is process local")
		opts = append(opts, provider.WithWebhookEventStore(cache.NewMemoryWebhookEventStore(cfg.WebhookEventTTL)))
	}

	paymentService := provider.NewPaymentService(providerConfig, opts...)

	if osClient != nil {
		if err := osClient.SetupIndices(ctx, provider.GetAvailableProviders()); err != nil {
			logger.Warn("Failed to set up OpenSearch indices", logger.LogContext{
				Fields: map[string]any{"error": err.Error()},
			})
		}
	}

	var audit handler.WebhookAuditLogger
	if osLogger != nil {
		audit = osLogger
	}
	paymentHandler := handler.NewPaymentHandler(paymentService, appConf.Validator, audit)

	health := handler.NewHealthHandler(paymentService, cfg.Environment, version)
	health.AddCheck("provider_config", "SQLite provider configuration storage", true, sqliteCheck(storage))
	if callLogs != nil {
		health.AddCheck("postgres", "PostgreSQL call logs", false, callLogs.Ping)
	} else {
		health.AddCheck("postgres", "PostgreSQL call logs", false, nil)
	}
	if redisStore != nil {
		health.AddCheck("redis", "Redis webhook event store", false, redisStore.Ping)
	} else {
		health.AddCheck("redis", "Redis webhook event store", false, nil)
	}
	if osClient != nil {
		health.AddCheck("opensearch", "OpenSearch system logs", false, osClient.Ping)
	} else {
		health.AddCheck("opensearch", "OpenSearch system logs", false, nil)
	}

	api := v1.Handlers{
		Payment: paymentHandler,
		Config:  handler.NewConfigHandler(providerConfig, provider.DefaultRegistry, paymentService),
	}
	if callLogs != nil {
		api.Logs = handler.NewLogsHandler(callLogs)
	}

	if cfg.APIKey == "" {
		logger.Warn("API_KEY not set, authenticated endpoints will refuse every request")
	}

	r := router.New(router.Options{
		APIKey:         cfg.APIKey,
		AllowedOrigins: splitOrigins(cfg.AllowedOrigins),
		RateLimiter:    middle.NewRateLimiter(ctx, cfg.RateLimit),
		Health:         health,
		Webhook:        paymentHandler,
		API:            api,
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           r,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server failed", err)
		}
	}()

	logger.Info("API is running", logger.LogContext{
		Fields: map[string]any{
			"port":                cfg.Port,
			"payment_environment": cfg.PaymentEnvironment,
			"providers":           provider.GetAvailableProviders(),
		},
	})

	// Block until a signal is received
	<-ctx.Done()

	logger.Info("Shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", err)
	}
}

func sqliteCheck(storage *config.SQLiteStorage) handler.HealthCheck {
	if storage == nil {
		return nil
	}
	return func(context.Context) error {
		return storage.Ping()
	}
}

func splitOrigins(raw string) []string {
	var origins []string
	for _, origin := range strings.Split(raw, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}
