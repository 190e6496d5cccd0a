package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"heist/bot"
	"heist/config"
	"heist/conversation"
	"heist/database"
	"heist/events"
	"heist/metrics"
	"heist/notify"
	"heist/repository"
	"heist/service"

	log "github.com/sirupsen/logrus"
)

const (
	sweepInterval   = time.Minute
	shutdownTimeout = 10 * time.Second
)

// ConfigureLogging applies the configured level and picks the formatter for the environment
func ConfigureLogging(cfg *config.Config) {
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.WithField("level", cfg.LogLevel).Warn("Unknown log level, using info")
		level = log.InfoLevel
	}
	log.SetLevel(level)
	log.SetOutput(os.Stdout)

	if cfg.Environment == "production" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}

// Run initializes and starts the application
func Run(ctx context.Context) error {
	// Load configuration
	cfg := config.Get()
	ConfigureLogging(cfg)
	log.Info("Starting heist bot...")

	// Initialize database connection
	log.Info("Connecting to database...")
	db, err := database.NewConnection(ctx, cfg.GetDatabaseURL())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()
	log.Info("Database connection established successfully")

	// Initialize event bus and unit of work factory
	eventBus := events.NewBus()
	uowFactory := repository.NewUnitOfWorkFactory(db, eventBus)

	// Initialize services
	log.Info("Initializing services...")
	resolver := service.NewTheftResolver(service.NewRandomSource(time.Now().UnixNano()))
	ledgerService := service.NewLedgerService(uowFactory, resolver, cfg)
	permissionService := service.NewPermissionService(uowFactory, cfg)
	if err := permissionService.Load(ctx); err != nil {
		return fmt.Errorf("failed to load permissions: %w", err)
	}
	keywordService := service.NewKeywordService(uowFactory, permissionService, cfg)
	statsService := service.NewStatsService(uowFactory, cfg)
	salaryService := service.NewSalaryService(uowFactory, ledgerService, cfg)
	log.Info("Services initialized successfully")

	// Discord session is created first so notifications can share it
	discordBot, err := bot.New(bot.Config{
		Token:          cfg.DiscordToken,
		HandlerTimeout: 2 * cfg.StorageTimeout,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize Discord bot: %w", err)
	}

	// Initialize notification delivery
	senders := []notify.Sender{
		notify.NewDiscordSender(discordBot.Session(), cfg.AnnounceChannelID),
		notify.LogSender{},
	}
	if cfg.NATSURL != "" {
		natsSender, err := notify.ConnectNATS(cfg.NATSURL)
		if err != nil {
			return fmt.Errorf("failed to connect to NATS: %w", err)
		}
		defer natsSender.Close()
		senders = append(senders, natsSender)
		log.Info("NATS notifications enabled")
	}
	notifier := notify.NewService(senders, cfg)
	notifier.Subscribe(eventBus)
	metrics.Subscribe(eventBus)

	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()
	notifier.Start(workerCtx)

	// Initialize conversation state machine
	machine, err := conversation.NewMachine(
		conversation.Handlers(ledgerService, permissionService, keywordService, notifier, cfg.InvestmentMinimum),
		cfg,
	)
	if err != nil {
		return fmt.Errorf("failed to initialize conversations: %w", err)
	}
	go machine.RunSweeper(workerCtx, sweepInterval, cfg.SessionTTL)

	// Initialize metrics server
	var metricsServer *metrics.Server
	if cfg.MetricsAddr != "" {
		metricsServer = metrics.NewServer(cfg.MetricsAddr, db)
		metricsServer.Start()
	}

	// Connect to Discord
	dispatcher := bot.NewDispatcher(machine, ledgerService, permissionService, keywordService, statsService, salaryService)
	if err := discordBot.Start(dispatcher); err != nil {
		return fmt.Errorf("failed to connect to Discord: %w", err)
	}
	log.WithField("environment", cfg.Environment).Info("Bot is running")

	// Wait for context cancellation
	<-ctx.Done()
	log.Info("Shutting down bot...")

	if err := discordBot.Close(); err != nil {
		log.WithError(err).Error("Error closing Discord bot")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Error("Error stopping metrics server")
		}
	}

	// Queued notifications are dropped once the workers stop
	stopWorkers()
	done := make(chan struct{})
	go func() {
		notifier.Wait()
		close(done)
	}()
	select {
	case <-done:
		log.Info("Shutdown completed")
	case <-shutdownCtx.Done():
		log.Warn("Shutdown timeout exceeded")
	}

	return nil
}
