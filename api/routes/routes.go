package routes

import (
	"announcebot-api/api/handlers"
	"announcebot-api/api/middleware"
	"announcebot-api/internal/announcement"
	"announcebot-api/internal/common"
	"announcebot-api/internal/scheduler"
	"announcebot-api/pkg/logger"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Dependencies are the services the HTTP surface calls into. Scheduler
// may be nil. AdminMiddleware runs in front of the announcement, broadcast
// and stats routes only.
type Dependencies struct {
	DB              *gorm.DB
	Logger          *logger.Logger
	BotName         string
	Dispatcher      handlers.WebhookDispatcher
	WebhookSecret   string
	AdminMiddleware []gin.HandlerFunc
	Announcements   announcement.Repository
	Clock           common.Clock
	Broadcaster     handlers.BroadcastRunner
	Scheduler       scheduler.Scheduler
	Stats           handlers.StatsSource
}

func SetupRoutes(router *gin.Engine, deps Dependencies) {
	router.Use(middleware.RequestLogging(deps.Logger))
	router.Use(gin.Recovery())

	healthHandler := handlers.NewHealthHandler(deps.DB, deps.BotName, deps.Scheduler, deps.Logger)
	webhookHandler := handlers.NewWebhookHandler(deps.Dispatcher, deps.WebhookSecret, deps.Logger)
	announcementHandler := handlers.NewAnnouncementHandler(deps.Announcements, deps.Clock, deps.Logger)
	broadcastHandler := handlers.NewBroadcastHandler(deps.Broadcaster, deps.Logger)
	statsHandler := handlers.NewStatsHandler(deps.Stats, deps.Scheduler)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", healthHandler.Check)

		v1.POST("/telegram/webhook", webhookHandler.HandleTelegramWebhook)
	}

	admin := v1.Group("", deps.AdminMiddleware...)
	{
		admin.GET("/announcements", announcementHandler.List)
		admin.POST("/announcements", announcementHandler.Create)
		admin.DELETE("/announcements/:id", announcementHandler.Delete)

		admin.POST("/broadcast/run", broadcastHandler.Run)
		admin.GET("/stats", statsHandler.Get)
	}

	router.GET("/health", healthHandler.Check)
}
