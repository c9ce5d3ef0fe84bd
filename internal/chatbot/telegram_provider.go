package chatbot

import (
	"fmt"
	"net/http"
	"time"

	"announcebot-api/internal/config"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// telegramProvider implements the TelegramProvider interface using the telegram-bot-api library
type telegramProvider struct {
	bot           *tgbotapi.BotAPI
	webhookSecret string
	logger        *zap.Logger
}

// NewTelegramProvider creates a new TelegramProvider instance. The token is
// validated against the Bot API before returning.
func NewTelegramProvider(cfg config.ChatbotConfig, logger *zap.Logger) (TelegramProvider, error) {
	if cfg.Token == "" {
		return nil, ConfigurationError{Field: "chatbot.token", Reason: "telegram bot token is required"}
	}

	client := &http.Client{Timeout: time.Duration(cfg.Timeout) * time.Second}
	if cfg.Mode == config.ModePolling && cfg.PollTimeout >= cfg.Timeout {
		// long polling holds the request open for poll_timeout seconds
		client.Timeout = time.Duration(cfg.PollTimeout+10) * time.Second
	}

	bot, err := tgbotapi.NewBotAPIWithClient(cfg.Token, tgbotapi.APIEndpoint, client)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	logger.Info("Telegram bot initialized successfully",
		zap.String("username", bot.Self.UserName),
		zap.String("bot_name", cfg.BotName))

	return &telegramProvider{
		bot:           bot,
		webhookSecret: cfg.WebhookSecret,
		logger:        logger,
	}, nil
}

func (p *telegramProvider) SendMessage(chatID int64, text string, markup interface{}) (int, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	if markup != nil {
		msg.ReplyMarkup = markup
	}

	sent, err := p.bot.Send(msg)
	if err != nil {
		return 0, WrapTelegramError(err, "sendMessage")
	}
	return sent.MessageID, nil
}

func (p *telegramProvider) EditMessageText(chatID int64, messageID int, text string) error {
	if _, err := p.bot.Request(tgbotapi.NewEditMessageText(chatID, messageID, text)); err != nil {
		return WrapTelegramError(err, "editMessageText")
	}
	return nil
}

func (p *telegramProvider) AnswerCallback(callbackID string, text string) error {
	if _, err := p.bot.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		return WrapTelegramError(err, "answerCallbackQuery")
	}
	return nil
}

func (p *telegramProvider) SetMyCommands(commands []tgbotapi.BotCommand) error {
	if _, err := p.bot.Request(tgbotapi.NewSetMyCommands(commands...)); err != nil {
		return WrapTelegramError(err, "setMyCommands")
	}
	return nil
}

func (p *telegramProvider) GetUpdatesChan(timeout int) tgbotapi.UpdatesChannel {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = timeout
	return p.bot.GetUpdatesChan(u)
}

func (p *telegramProvider) StopReceivingUpdates() {
	p.bot.StopReceivingUpdates()
}

// SetWebhook points Telegram at webhookURL. The configured secret is sent as
// secret_token so Telegram echoes it in X-Telegram-Bot-Api-Secret-Token.
// WebhookConfig in this library version has no secret field, so the call is
// made with raw params.
func (p *telegramProvider) SetWebhook(webhookURL string) error {
	p.logger.Info("Setting webhook", zap.String("webhook_url", webhookURL))

	params, err := webhookParams(webhookURL, p.webhookSecret)
	if err != nil {
		return err
	}

	if _, err := p.bot.MakeRequest("setWebhook", params); err != nil {
		return WrapTelegramError(err, "setWebhook")
	}

	p.logger.Info("Webhook set successfully",
		zap.String("webhook_url", webhookURL),
		zap.Bool("secret_token", p.webhookSecret != ""))
	return nil
}

func webhookParams(webhookURL, secret string) (tgbotapi.Params, error) {
	webhookConfig, err := tgbotapi.NewWebhook(webhookURL)
	if err != nil {
		return nil, ConfigurationError{Field: "chatbot.webhook_url", Reason: err.Error()}
	}
	if secret == "" {
		return nil, ConfigurationError{Field: "chatbot.webhook_secret", Reason: "required to authenticate webhook requests"}
	}

	params := tgbotapi.Params{"url": webhookConfig.URL.String()}
	params.AddNonEmpty("secret_token", secret)
	return params, nil
}

// DeleteWebhook removes the configured webhook
func (p *telegramProvider) DeleteWebhook() error {
	if _, err := p.bot.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		return WrapTelegramError(err, "deleteWebhook")
	}

	p.logger.Info("Webhook deleted successfully")
	return nil
}

// GetMe returns information about the bot
func (p *telegramProvider) GetMe() (*tgbotapi.User, error) {
	me, err := p.bot.GetMe()
	if err != nil {
		return nil, WrapTelegramError(err, "getMe")
	}
	return &me, nil
}
