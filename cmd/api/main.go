package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"petanco-intake-api/internal/cache"
	"petanco-intake-api/internal/config"
	"petanco-intake-api/internal/database"
	"petanco-intake-api/internal/events"
	"petanco-intake-api/internal/handler"
	"petanco-intake-api/internal/logger"
	"petanco-intake-api/internal/messages"
	"petanco-intake-api/internal/middleware"
	"petanco-intake-api/internal/notifier"
	"petanco-intake-api/internal/response"
	"petanco-intake-api/internal/router"
	"petanco-intake-api/internal/service"
	"petanco-intake-api/internal/store"
	"petanco-intake-api/internal/tracing"
	"petanco-intake-api/internal/validation"
)

var version = "dev"

func main() {
	configFile := flag.String("config", "", "Path to a YAML config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zapLogger := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLogger.Sync()
	appLog := logger.NewZapAdapter(zapLogger)

	if err := run(cfg, appLog); err != nil {
		appLog.WithError(err).Error("server stopped with error", nil)
		os.Exit(1)
	}
}

func run(cfg *config.Config, appLog logger.Logger) error {
	ctx := context.Background()

	if _, err := tracing.InitTracing(tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		Endpoint:    cfg.Tracing.Endpoint,
		ServiceName: cfg.Tracing.ServiceName,
		Version:     version,
		Environment: cfg.Tracing.Environment,
	}); err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tracing.Shutdown(shutdownCtx)
	}()

	schema, err := validation.ParseSchema(cfg.Intake.Schema)
	if err != nil {
		return err
	}
	scope, err := middleware.ParseScope(cfg.Intake.RateLimitScope)
	if err != nil {
		return err
	}
	catalog := messages.For(cfg.Intake.Locale)

	counter, closeCounter, err := openCounter(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeCounter()

	messageStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer messageStore.Close()

	eventManager := events.NewManager(true, appLog)
	defer eventManager.Shutdown()

	webhooks := notifier.NewWebhookNotifier(cfg.Webhooks.SuccessURL, cfg.Webhooks.FailureURL, cfg.Webhooks.Timeout, appLog)
	if webhooks.Enabled() {
		webhooks.Subscribe(eventManager)
	}
	if cfg.SNS.Enabled {
		snsClient, err := notifier.NewSNSClient(ctx, cfg.SNS.Region)
		if err != nil {
			return err
		}
		notifier.NewSNSPublisher(snsClient, cfg.SNS.TopicARN, appLog).Subscribe(eventManager)
	}

	svc := service.NewService(service.Options{
		Schema:  schema,
		Catalog: catalog,
		Store:   messageStore,
		Events:  eventManager,
		Log:     appLog,
	})

	writer := response.NewWriter(cfg.Location(), cfg.EmitCallout(), appLog)

	h := handler.NewHandlerWithOptions(svc, handler.NewHandlerOptions{
		Writer:      writer,
		Catalog:     catalog,
		Log:         appLog,
		MaxBodySize: cfg.Security.MaxRequestBodySize,
	})

	auth := middleware.NewAuthenticator(middleware.AuthenticatorOptions{
		Secret:   cfg.Intake.SecretKey,
		Hardened: cfg.IsHardened(),
		Limiter:  middleware.NewRateLimiter(counter, cfg.Intake.RateLimit, middleware.RateLimitWindow, scope),
		Catalog:  catalog,
		Writer:   writer,
		Log:      appLog,
	})

	r := router.New(router.Options{
		Handler:             h,
		Authenticator:       auth,
		Writer:              writer,
		Log:                 appLog,
		Enabled:             cfg.Intake.Enabled,
		CORSMode:            cfg.CORS.Mode,
		AllowedOrigin:       cfg.CORS.AllowedOrigin,
		OriginRejectMessage: catalog.Get(messages.OriginNotAllowed),
		Tracing:             cfg.Tracing.Enabled,
	})

	if cfg.Intake.SecretKey == "" {
		appLog.Warn("no shared secret configured; every submission will be rejected", nil)
	}

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Graceful shutdown
	idle := make(chan struct{})
	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
		<-sigint

		appLog.Info("shutting down server", nil)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			appLog.WithError(err).Error("error during shutdown", nil)
		}
		close(idle)
	}()

	appLog.Info("starting server", map[string]interface{}{
		"addr":       addr,
		"tls":        cfg.Server.EnableTLS,
		"schema":     string(schema),
		"cors_mode":  cfg.CORS.Mode,
		"store":      cfg.Store.Driver,
		"rate_limit": cfg.Intake.RateLimit,
		"enabled":    cfg.Intake.Enabled,
		"version":    version,
	})

	if cfg.Server.EnableTLS {
		err = server.ListenAndServeTLS(cfg.Server.CertFile, cfg.Server.KeyFile)
	} else {
		err = server.ListenAndServe()
	}
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", err)
	}

	<-idle
	return nil
}

// openCounter selects Redis when an address is configured.
func openCounter(ctx context.Context, cfg *config.Config) (cache.Counter, func(), error) {
	if cfg.Redis.Address == "" {
		return cache.NewInMemoryCounter(), func() {}, nil
	}

	client, err := cache.NewRedisClient(ctx, cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return nil, nil, err
	}
	counter := cache.NewRedisCounter(client, cfg.Redis.KeyPrefix)
	return counter, func() { _ = counter.Close() }, nil
}

func openStore(ctx context.Context, cfg *config.Config) (store.MessageStore, error) {
	var (
		backend store.MessageStore
		err     error
	)

	switch cfg.Store.Driver {
	case config.StoreSQLite:
		backend, err = database.Open(database.DriverSQLite, cfg.Store.DSN)
	case config.StorePostgres:
		backend, err = database.Open(database.DriverPostgres, cfg.Store.DSN)
	case config.StoreMongo:
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		backend, err = store.ConnectMongo(connectCtx, cfg.Store.MongoURI, cfg.Store.MongoDatabase, cfg.Store.MongoCollection)
	case config.StoreMemory:
		backend = store.NewMemoryStore()
	default:
		err = fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open message store: %w", err)
	}

	return store.NewInstrumented(backend, cfg.Store.Driver), nil
}
