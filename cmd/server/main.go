package main

import (
	_ "github.com/joho/godotenv/autoload" // Load .env file automatically

	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"announcebot-api/api/routes"
	"announcebot-api/internal/announcement"
	"announcebot-api/internal/broadcast"
	"announcebot-api/internal/chatbot"
	"announcebot-api/internal/common"
	"announcebot-api/internal/config"
	"announcebot-api/internal/database"
	"announcebot-api/internal/events"
	"announcebot-api/internal/scheduler"
	"announcebot-api/internal/stats"
	"announcebot-api/internal/user"
	"announcebot-api/pkg/logger"

	"github.com/gin-gonic/gin"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger := logger.NewWithLevel(cfg.Log.Level)
	defer logger.Sync()

	zapLogger := logger.Zap()

	db, err := database.NewConnection(cfg.Database, zapLogger)
	if err != nil {
		logger.Fatalw("Failed to connect to database", "error", err)
	}
	if err := database.Migrate(db, cfg.Database.Driver); err != nil {
		logger.Fatalw("Failed to run migrations", "error", err)
	}

	clock := common.NewRealClock()
	eventBus := events.NewEventBus(zapLogger)
	collector := stats.NewCollector(eventBus, zapLogger)

	userRepository := user.NewGormRepository(db, zapLogger)
	announcementRepository := announcement.NewGormRepository(db, zapLogger)
	registry := user.NewRegistry(userRepository, eventBus, clock, zapLogger, cfg.Broadcast.BroadcasterChatIDs)

	provider, err := chatbot.NewTelegramProvider(cfg.Chatbot, zapLogger)
	if err != nil {
		logger.Fatalw("Failed to initialize Telegram provider", "error", err)
	}
	botName := cfg.Chatbot.BotName
	if me, err := provider.GetMe(); err == nil && me.UserName != "" {
		botName = me.UserName
	}

	sender := chatbot.NewMessageSender(provider, zapLogger)
	confirmations := chatbot.NewConfirmationFlow(sender, clock,
		time.Duration(cfg.Confirmation.TTL)*time.Second, eventBus, zapLogger)
	broadcaster := broadcast.NewBroadcaster(registry, announcementRepository, sender, eventBus, clock, cfg.Broadcast, zapLogger)
	router := chatbot.NewCommandRouter(registry, broadcaster, sender, confirmations, eventBus, zapLogger)

	dispatcher := chatbot.NewDispatcher(router, confirmations, cfg.Chatbot.Workers, cfg.Chatbot.QueueSize, zapLogger)
	dispatcher.Start()

	menuCtx, menuCancel := context.WithTimeout(context.Background(), time.Duration(cfg.Chatbot.Timeout)*time.Second)
	if err := sender.RegisterCommandMenu(menuCtx); err != nil {
		logger.Warnw("Failed to register command menu", "error", err)
	}
	menuCancel()

	jobScheduler, err := scheduler.NewScheduler(shutdownTimeout, zapLogger)
	if err != nil {
		logger.Fatalw("Failed to create scheduler", "error", err)
	}
	if cfg.Broadcast.Enabled {
		if err := jobScheduler.AddJob(scheduler.JobBroadcast, cfg.Broadcast.Schedule,
			scheduler.BroadcastJob(broadcaster, zapLogger)); err != nil {
			logger.Fatalw("Failed to schedule broadcast", "error", err, "schedule", cfg.Broadcast.Schedule)
		}
	} else {
		logger.Info("Scheduled broadcast disabled")
	}
	if err := jobScheduler.AddJob(scheduler.JobConfirmationSweep, cfg.Confirmation.SweepSchedule,
		scheduler.SweepJob(confirmations, clock, zapLogger)); err != nil {
		logger.Fatalw("Failed to schedule confirmation sweep", "error", err, "schedule", cfg.Confirmation.SweepSchedule)
	}
	if err := jobScheduler.Start(context.Background()); err != nil {
		logger.Fatalw("Failed to start scheduler", "error", err)
	}

	pollCtx, stopPolling := context.WithCancel(context.Background())
	pollDone := make(chan struct{})
	switch cfg.Chatbot.Mode {
	case config.ModeWebhook:
		close(pollDone)
		if err := provider.SetWebhook(cfg.Chatbot.WebhookURL); err != nil {
			logger.Fatalw("Failed to set webhook", "error", err)
		}
		logger.Infow("Receiving updates via webhook", "bot", botName)
	default:
		// getUpdates is rejected while a webhook is set
		if err := provider.DeleteWebhook(); err != nil {
			logger.Warnw("Failed to delete webhook", "error", err)
		}
		updates := provider.GetUpdatesChan(cfg.Chatbot.PollTimeout)
		go func() {
			defer close(pollDone)
			if err := dispatcher.Run(pollCtx, updates); err != nil && !errors.Is(err, chatbot.ErrDispatcherStopped) {
				logger.Errorw("Polling stopped", "error", err)
			}
		}()
		logger.Infow("Receiving updates via long polling", "bot", botName)
	}

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	routes.SetupRoutes(engine, routes.Dependencies{
		DB:            db,
		Logger:        logger,
		BotName:       botName,
		Dispatcher:    dispatcher,
		WebhookSecret: cfg.Chatbot.WebhookSecret,
		Announcements: announcementRepository,
		Clock:         clock,
		Broadcaster:   broadcaster,
		Scheduler:     jobScheduler,
		Stats:         collector,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Infow("Starting server", "port", cfg.Server.Port, "bot", botName)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalw("Failed to start server", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// inbound first: polling, then webhook requests
	stopPolling()
	if cfg.Chatbot.Mode != config.ModeWebhook {
		provider.StopReceivingUpdates()
	}
	<-pollDone

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorw("Server forced to shutdown", "error", err)
	}

	dispatcher.Stop()
	router.Wait()

	if err := jobScheduler.Stop(); err != nil {
		logger.Errorw("Failed to stop scheduler gracefully", "error", err)
	}

	if err := eventBus.Close(); err != nil {
		logger.Errorw("Failed to close event bus", "error", err)
	}

	if err := database.Close(db); err != nil {
		logger.Errorw("Failed to close database", "error", err)
	}

	logger.Info("Server exited")
}
