package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"goldennest/api"
	"goldennest/config"
	"goldennest/database"
	"goldennest/events"
	"goldennest/infrastructure"
	"goldennest/infrastructure/observability"
	"goldennest/repository"
	"goldennest/service"

	log "github.com/sirupsen/logrus"
)

// Run initializes and starts the application
func Run(ctx context.Context) error {
	cfg := config.Get()
	ConfigureLogging(cfg)

	log.WithField("environment", cfg.Environment).Info("Starting goldennest...")

	metrics := observability.NewMetricsProvider(cfg)
	if err := metrics.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}

	databaseURL := database.ConstructDatabaseURL(cfg.DatabaseURL, cfg.DatabaseName)

	log.Info("Applying database migrations...")
	if err := database.RunMigrationsWithURL(databaseURL); err != nil {
		return err
	}

	log.Info("Connecting to database...")
	db, err := database.NewConnection(ctx, databaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Info("Database connection established successfully")

	eventBus := events.NewBus()
	metrics.Attach(eventBus)
	infrastructure.NewAchievementHook(eventBus).Attach()

	natsClient, err := attachNATS(ctx, cfg, eventBus, metrics)
	if err != nil {
		db.Close()
		return err
	}

	if cfg.DiscordWebhookURL != "" {
		notifier, err := infrastructure.NewDiscordNotifier(cfg.DiscordWebhookURL, metrics)
		if err != nil {
			log.WithError(err).Warn("Discord notifications disabled")
		} else {
			notifier.Attach(eventBus)
			log.Info("Discord notifications enabled")
		}
	}

	uowFactory := repository.NewUnitOfWorkFactory(db, eventBus)

	approvalService := service.NewApprovalService(uowFactory, metrics)
	equityService := service.NewEquityService(uowFactory)
	familyService := service.NewFamilyService(uowFactory, approvalService, cfg)
	dividendService := service.NewDividendService(uowFactory, metrics)
	log.Info("Services initialized successfully")

	handler := api.NewHandler(approvalService, equityService, familyService, dividendService, db)
	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.NewRouter(cfg, handler),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.HTTPAddr).Info("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutting down...")
	case err := <-serverErr:
		if err != nil {
			log.WithError(err).Error("HTTP server failed")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("HTTP server did not shut down cleanly")
	}

	// Side channels still run for events committed before shutdown
	eventBus.Wait()

	if natsClient != nil {
		if err := natsClient.Close(); err != nil {
			log.WithError(err).Warn("Failed to close NATS connection")
		}
	}

	if err := metrics.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("Failed to flush metrics")
	}

	log.Info("Closing database connection...")
	db.Close()

	log.Info("Shutdown completed")
	return nil
}

// attachNATS connects the event forwarder when NATS_URL is set. A nil client means forwarding is off.
func attachNATS(ctx context.Context, cfg *config.Config, bus *events.Bus, failures infrastructure.FailureRecorder) (*infrastructure.NATSClient, error) {
	if cfg.NATSURL == "" {
		log.Info("NATS_URL not set, event forwarding disabled")
		return nil, nil
	}

	client := infrastructure.NewNATSClient(cfg.NATSURL)
	if err := client.Connect(ctx); err != nil {
		return nil, err
	}

	mapper := infrastructure.NewEventSubjectMapper()
	if err := infrastructure.EnsureEventStream(client, cfg.NATSStream, mapper); err != nil {
		_ = client.Close()
		return nil, err
	}

	infrastructure.NewNATSEventPublisher(client, mapper, failures).Attach(bus)
	return client, nil
}

// ConfigureLogging applies LOG_LEVEL and LOG_FORMAT to the global logger
func ConfigureLogging(cfg *config.Config) {
	if cfg.LogFormat == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}

	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.WithField("level", cfg.LogLevel).Warn("Unknown log level, using info")
		level = log.InfoLevel
	}
	log.SetLevel(level)
}
