package handlers

import (
	"net/http"

	"announcebot-api/internal/scheduler"
	"announcebot-api/internal/stats"

	"github.com/gin-gonic/gin"
)

// StatsSource exposes the collected event counters
type StatsSource interface {
	Snapshot() stats.Snapshot
}

type StatsHandler struct {
	source    StatsSource
	scheduler scheduler.Scheduler
}

func NewStatsHandler(source StatsSource, sched scheduler.Scheduler) *StatsHandler {
	return &StatsHandler{source: source, scheduler: sched}
}

func (h *StatsHandler) Get(c *gin.Context) {
	response := gin.H{"events": h.source.Snapshot()}

	if h.scheduler != nil {
		response["jobs"] = h.scheduler.Entries()
		response["scheduler"] = h.scheduler.GetMetrics().GetMetricsSummary()
	}

	c.JSON(http.StatusOK, response)
}
