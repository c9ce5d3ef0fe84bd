package handlers

import (
	"context"
	"net/http"

	"announcebot-api/internal/broadcast"
	"announcebot-api/internal/events"
	"announcebot-api/pkg/logger"

	"github.com/gin-gonic/gin"
)

// BroadcastRunner delivers every announcement to every user once
type BroadcastRunner interface {
	Run(ctx context.Context, source string) (broadcast.Result, error)
}

type BroadcastHandler struct {
	runner BroadcastRunner
	logger *logger.Logger
}

func NewBroadcastHandler(runner BroadcastRunner, logger *logger.Logger) *BroadcastHandler {
	return &BroadcastHandler{runner: runner, logger: logger}
}

// Run triggers an announcement tick outside the schedule and waits for it
func (h *BroadcastHandler) Run(c *gin.Context) {
	log := requestLogger(c, h.logger)

	result, err := h.runner.Run(c.Request.Context(), events.SourceAdmin)
	if err != nil {
		log.Errorw("Manual broadcast failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Broadcast failed",
			"details": err.Error(),
		})
		return
	}

	log.Infow("Manual broadcast completed",
		"attempted", result.Attempted,
		"delivered", result.Delivered,
		"failed", result.Failed)
	c.JSON(http.StatusOK, result)
}
