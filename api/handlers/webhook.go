package handlers

import (
	"context"
	"crypto/subtle"
	"io"
	"net/http"

	"announcebot-api/internal/chatbot"
	"announcebot-api/pkg/logger"

	"github.com/gin-gonic/gin"
)

// WebhookDispatcher queues one raw Telegram update
type WebhookDispatcher interface {
	HandleWebhook(ctx context.Context, body []byte) error
}

// SecretTokenHeader carries the secret_token registered with setWebhook.
const SecretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"

// WebhookHandler handles Telegram webhook requests
type WebhookHandler struct {
	dispatcher WebhookDispatcher
	secret     []byte
	logger     *logger.Logger
}

// NewWebhookHandler creates a new WebhookHandler instance. With an empty
// secret every request is rejected, which is the polling-mode setup.
func NewWebhookHandler(dispatcher WebhookDispatcher, secret string, logger *logger.Logger) *WebhookHandler {
	return &WebhookHandler{
		dispatcher: dispatcher,
		secret:     []byte(secret),
		logger:     logger,
	}
}

// HandleTelegramWebhook queues an incoming update. Requests without the
// registered secret token get 401. Authenticated requests are answered 200
// even on failure so Telegram does not redeliver updates it cannot process.
func (h *WebhookHandler) HandleTelegramWebhook(c *gin.Context) {
	log := requestLogger(c, h.logger)

	if !h.authorized(c.GetHeader(SecretTokenHeader)) {
		log.Warnw("Rejected webhook request without a valid secret token", "client_ip", c.ClientIP())
		c.JSON(http.StatusUnauthorized, gin.H{"ok": false})
		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		log.Errorw("Failed to read webhook body", "error", err)
		c.JSON(http.StatusOK, gin.H{"ok": true})
		return
	}

	if len(body) == 0 {
		log.Warnw("Received empty webhook body")
		c.JSON(http.StatusOK, gin.H{"ok": true})
		return
	}

	if contentType := c.ContentType(); contentType != "application/json" {
		log.Warnw("Unexpected content type", "content_type", contentType)
	}

	if err := h.dispatcher.HandleWebhook(c.Request.Context(), body); err != nil {
		if chatbot.IsWebhookParsingError(err) {
			log.Warnw("Discarding malformed update", "error", err, "body_size", len(body))
		} else {
			log.Errorw("Failed to process webhook", "error", err, "body_size", len(body))
		}
		c.JSON(http.StatusOK, gin.H{"ok": true})
		return
	}

	log.Debugw("Webhook queued", "body_size", len(body))
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *WebhookHandler) authorized(token string) bool {
	if len(h.secret) == 0 {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), h.secret) == 1
}

// requestLogger returns the request-scoped logger set by the logging
// middleware, or fallback when the middleware is not installed.
func requestLogger(c *gin.Context, fallback *logger.Logger) *logger.Logger {
	if value, ok := c.Get("logger"); ok {
		if log, ok := value.(*logger.Logger); ok {
			return log
		}
	}
	return fallback
}
