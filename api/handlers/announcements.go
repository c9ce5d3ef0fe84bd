package handlers

import (
	"errors"
	"net/http"

	"announcebot-api/internal/announcement"
	"announcebot-api/internal/common"
	"announcebot-api/pkg/logger"

	"github.com/gin-gonic/gin"
)

// AnnouncementHandler manages the stored announcement bodies
type AnnouncementHandler struct {
	repo   announcement.Repository
	clock  common.Clock
	logger *logger.Logger
}

func NewAnnouncementHandler(repo announcement.Repository, clock common.Clock, logger *logger.Logger) *AnnouncementHandler {
	return &AnnouncementHandler{repo: repo, clock: clock, logger: logger}
}

type createAnnouncementRequest struct {
	Body string `json:"body" binding:"required"`
}

// List returns every announcement, oldest first
func (h *AnnouncementHandler) List(c *gin.Context) {
	items, err := h.repo.ListAll(c.Request.Context())
	if err != nil {
		requestLogger(c, h.logger).Errorw("Failed to list announcements", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list announcements"})
		return
	}
	if items == nil {
		items = []announcement.Announcement{}
	}

	c.JSON(http.StatusOK, gin.H{"announcements": items, "count": len(items)})
}

// Create stores a new announcement
func (h *AnnouncementHandler) Create(c *gin.Context) {
	var request createAnnouncementRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	item, err := announcement.New(request.Body, h.clock.Now())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid announcement",
			"details": err.Error(),
		})
		return
	}

	if err := h.repo.Create(c.Request.Context(), item); err != nil {
		requestLogger(c, h.logger).Errorw("Failed to create announcement", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create announcement"})
		return
	}

	c.JSON(http.StatusCreated, item)
}

// Delete removes one announcement by ID
func (h *AnnouncementHandler) Delete(c *gin.Context) {
	id := common.ID(c.Param("id"))
	if !id.IsValid() {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid announcement ID",
			"details": c.Param("id"),
		})
		return
	}

	err := h.repo.Delete(c.Request.Context(), id)
	switch {
	case errors.Is(err, announcement.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Announcement not found"})
	case err != nil:
		requestLogger(c, h.logger).Errorw("Failed to delete announcement", "error", err, "announcement_id", id.String())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete announcement"})
	default:
		c.Status(http.StatusNoContent)
	}
}
