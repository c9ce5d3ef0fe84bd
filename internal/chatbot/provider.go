package chatbot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

//go:generate mockgen -source=provider.go -destination=../mocks/telegram_provider_mock.go -package=mocks

// TelegramProvider defines the contract for Telegram API operations
type TelegramProvider interface {
	// SendMessage sends text with optional reply markup and returns the new message ID
	SendMessage(chatID int64, text string, markup interface{}) (int, error)

	// EditMessageText replaces the text of a message the bot sent earlier
	EditMessageText(chatID int64, messageID int, text string) error

	// AnswerCallback acknowledges a callback query, optionally showing a toast
	AnswerCallback(callbackID string, text string) error

	// SetMyCommands publishes the command menu shown by clients
	SetMyCommands(commands []tgbotapi.BotCommand) error

	// GetUpdatesChan starts long polling
	GetUpdatesChan(timeout int) tgbotapi.UpdatesChannel

	// StopReceivingUpdates stops long polling
	StopReceivingUpdates()

	// SetWebhook configures the webhook URL for receiving updates
	SetWebhook(webhookURL string) error

	// DeleteWebhook removes the configured webhook
	DeleteWebhook() error

	// GetMe returns information about the bot
	GetMe() (*tgbotapi.User, error)
}
