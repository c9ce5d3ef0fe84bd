package chatbot

import (
	"errors"
	"fmt"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

var ErrEmptyMessage = errors.New("refusing to send empty message")

// TelegramAPIError is a failed Bot API call. StatusCode is 500 when the
// request never produced an API response.
type TelegramAPIError struct {
	Operation   string
	StatusCode  int
	Description string
	RetryAfter  int
	Cause       error
}

func (e TelegramAPIError) Error() string {
	return fmt.Sprintf("telegram %s failed with %d: %s", e.Operation, e.StatusCode, e.Description)
}

// Temporary reports flood control and server-side failures. A 403 from a
// user who blocked the bot is permanent.
func (e TelegramAPIError) Temporary() bool {
	return e.RetryAfter > 0 ||
		e.StatusCode == http.StatusTooManyRequests ||
		e.StatusCode >= http.StatusInternalServerError
}

func (e TelegramAPIError) Unwrap() error { return e.Cause }

// WebhookParsingError means an inbound update body could not be decoded.
type WebhookParsingError struct {
	Details string
	Cause   error
}

func (e WebhookParsingError) Error() string {
	if e.Cause == nil {
		return "webhook update: " + e.Details
	}
	return fmt.Sprintf("webhook update: %s: %v", e.Details, e.Cause)
}

func (e WebhookParsingError) Unwrap() error { return e.Cause }

// CommandProcessingError is logged when a command handler hits a storage failure.
type CommandProcessingError struct {
	Command Command
	ChatID  int64
	Reason  string
	Cause   error
}

func (e CommandProcessingError) Error() string {
	return fmt.Sprintf("%s in chat %d: %s: %v", e.Command, e.ChatID, e.Reason, e.Cause)
}

func (e CommandProcessingError) Unwrap() error { return e.Cause }

// ConfigurationError rejects bot settings before any API call is made.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e ConfigurationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// WrapTelegramError converts err into a TelegramAPIError, lifting the status
// code and flood-control hint out of a Bot API response when there is one.
func WrapTelegramError(err error, operation string) error {
	if err == nil {
		return nil
	}

	out := TelegramAPIError{
		Operation:   operation,
		StatusCode:  http.StatusInternalServerError,
		Description: err.Error(),
		Cause:       err,
	}
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) {
		out.StatusCode = apiErr.Code
		out.Description = apiErr.Message
		out.RetryAfter = apiErr.RetryAfter
	}
	return out
}

func WrapParsingError(err error, details string) error {
	if err == nil {
		return nil
	}
	return WebhookParsingError{Details: details, Cause: err}
}

// IsTemporaryError reports whether err wraps a retryable Telegram failure.
func IsTemporaryError(err error) bool {
	var apiErr TelegramAPIError
	return errors.As(err, &apiErr) && apiErr.Temporary()
}

func IsTelegramAPIError(err error) bool {
	var apiErr TelegramAPIError
	return errors.As(err, &apiErr)
}

func IsWebhookParsingError(err error) bool {
	var parseErr WebhookParsingError
	return errors.As(err, &parseErr)
}
