package handlers

import (
	"net/http"
	"time"

	"announcebot-api/internal/database"
	"announcebot-api/internal/scheduler"
	"announcebot-api/pkg/logger"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type HealthHandler struct {
	db        *gorm.DB
	botName   string
	scheduler scheduler.Scheduler
	logger    *logger.Logger
}

// NewHealthHandler creates a HealthHandler. sched may be nil when no jobs
// are scheduled.
func NewHealthHandler(db *gorm.DB, botName string, sched scheduler.Scheduler, logger *logger.Logger) *HealthHandler {
	return &HealthHandler{
		db:        db,
		botName:   botName,
		scheduler: sched,
		logger:    logger,
	}
}

func (h *HealthHandler) Check(c *gin.Context) {
	status := "ok"
	statusCode := http.StatusOK

	if err := database.HealthCheck(h.db); err != nil {
		h.logger.Errorw("Database health check failed", "error", err)
		status = "error"
		statusCode = http.StatusServiceUnavailable
	}

	response := gin.H{
		"status":    status,
		"timestamp": time.Now().UTC(),
		"service":   "announcebot-api",
		"bot":       h.botName,
	}

	if h.scheduler != nil {
		response["scheduler"] = gin.H{
			"running": h.scheduler.IsRunning(),
			"health":  h.scheduler.GetMetrics().GetHealthStatus(),
		}
	}

	c.JSON(statusCode, response)
}
