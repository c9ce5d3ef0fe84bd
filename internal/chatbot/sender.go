package chatbot

import (
	"context"
	"strings"

	"go.uber.org/zap"
)

// Sender is the outbound surface used by the router and confirmation flow
type Sender interface {
	SendPlain(ctx context.Context, chatID int64, text string) error
	SendWithMainKeyboard(ctx context.Context, chatID int64, text string) error
	SendConfirmationPrompt(ctx context.Context, chatID int64, text, yesData, noData string) (int, error)
	EditMessage(ctx context.Context, chatID int64, messageID int, text string) error
	AnswerCallback(ctx context.Context, callbackID, text string) error
}

var _ Sender = (*MessageSender)(nil)

// MessageSender is the outbound side of the bot. Every method returns the
// transport error instead of retrying; callers log and move on.
type MessageSender struct {
	provider  TelegramProvider
	keyboards *KeyboardBuilder
	logger    *zap.Logger
}

// NewMessageSender creates a MessageSender over provider
func NewMessageSender(provider TelegramProvider, logger *zap.Logger) *MessageSender {
	return &MessageSender{
		provider:  provider,
		keyboards: NewKeyboardBuilder(),
		logger:    logger,
	}
}

// SendPlain sends text without markup
func (s *MessageSender) SendPlain(ctx context.Context, chatID int64, text string) error {
	_, err := s.send(ctx, chatID, text, nil)
	return err
}

// SendWithMainKeyboard sends text and attaches the main reply keyboard
func (s *MessageSender) SendWithMainKeyboard(ctx context.Context, chatID int64, text string) error {
	_, err := s.send(ctx, chatID, text, s.keyboards.BuildMainKeyboard())
	return err
}

// SendConfirmationPrompt sends text with a Yes/No inline row and returns the
// ID of the sent message so callbacks can be matched to it.
func (s *MessageSender) SendConfirmationPrompt(ctx context.Context, chatID int64, text, yesData, noData string) (int, error) {
	return s.send(ctx, chatID, text, s.keyboards.BuildConfirmationKeyboard(yesData, noData))
}

// EditMessage replaces the text of a previously sent message
func (s *MessageSender) EditMessage(ctx context.Context, chatID int64, messageID int, text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyMessage
	}

	err := s.call(ctx, func() error {
		return s.provider.EditMessageText(chatID, messageID, text)
	})
	if err != nil {
		s.logger.Error("Failed to edit message",
			zap.Int64("chat_id", chatID),
			zap.Int("message_id", messageID),
			zap.Error(err))
	}
	return err
}

// AnswerCallback acknowledges a button press so the client stops its spinner
func (s *MessageSender) AnswerCallback(ctx context.Context, callbackID, text string) error {
	err := s.call(ctx, func() error {
		return s.provider.AnswerCallback(callbackID, text)
	})
	if err != nil {
		s.logger.Warn("Failed to answer callback",
			zap.String("callback_id", callbackID),
			zap.Error(err))
	}
	return err
}

// RegisterCommandMenu publishes the client-side command menu
func (s *MessageSender) RegisterCommandMenu(ctx context.Context) error {
	commands := s.keyboards.BuildCommandMenu()
	err := s.call(ctx, func() error {
		return s.provider.SetMyCommands(commands)
	})
	if err != nil {
		s.logger.Error("Error setting bot's command list", zap.Error(err))
		return err
	}

	s.logger.Info("Command menu registered", zap.Int("commands", len(commands)))
	return nil
}

func (s *MessageSender) send(ctx context.Context, chatID int64, text string, markup interface{}) (int, error) {
	if strings.TrimSpace(text) == "" {
		s.logger.Debug("Skipping empty message", zap.Int64("chat_id", chatID))
		return 0, ErrEmptyMessage
	}

	var messageID int
	err := s.call(ctx, func() error {
		var sendErr error
		messageID, sendErr = s.provider.SendMessage(chatID, text, markup)
		return sendErr
	})
	if err != nil {
		fields := []zap.Field{
			zap.Int64("chat_id", chatID),
			zap.Int("text_length", len(text)),
			zap.Bool("temporary", IsTemporaryError(err)),
			zap.Error(err),
		}
		// 4xx from Telegram (blocked bot, deleted chat) is routine for broadcasts
		if IsTelegramAPIError(err) && !IsTemporaryError(err) {
			s.logger.Warn("Message rejected by Telegram", fields...)
		} else {
			s.logger.Error("Failed to send message", fields...)
		}
		return 0, err
	}

	s.logger.Debug("Message sent",
		zap.Int64("chat_id", chatID),
		zap.Int("message_id", messageID),
		zap.Bool("with_markup", markup != nil))
	return messageID, nil
}

// call runs a blocking provider request and gives up when ctx ends. The
// request itself cannot be cancelled and finishes in the background.
func (s *MessageSender) call(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() { done <- fn() }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
