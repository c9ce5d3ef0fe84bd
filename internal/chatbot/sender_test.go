package chatbot

import (
	"context"
	"errors"
	"testing"
	"time"

	"announcebot-api/internal/mocks"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"
)

func newMockSender(t *testing.T) (*MessageSender, *mocks.MockTelegramProvider) {
	ctrl := gomock.NewController(t)
	provider := mocks.NewMockTelegramProvider(ctrl)
	return NewMessageSender(provider, zap.NewNop()), provider
}

func TestMessageSender_SendPlain(t *testing.T) {
	sender, provider := newMockSender(t)

	provider.EXPECT().SendMessage(int64(42), "hello", nil).Return(10, nil)

	require.NoError(t, sender.SendPlain(context.Background(), 42, "hello"))
}

func TestMessageSender_SendWithMainKeyboard(t *testing.T) {
	sender, provider := newMockSender(t)

	provider.EXPECT().
		SendMessage(int64(42), "hi", gomock.AssignableToTypeOf(tgbotapi.ReplyKeyboardMarkup{})).
		DoAndReturn(func(_ int64, _ string, markup interface{}) (int, error) {
			keyboard := markup.(tgbotapi.ReplyKeyboardMarkup)
			assert.True(t, keyboard.ResizeKeyboard)
			assert.Len(t, keyboard.Keyboard, 2)
			return 11, nil
		})

	require.NoError(t, sender.SendWithMainKeyboard(context.Background(), 42, "hi"))
}

func TestMessageSender_SendConfirmationPrompt(t *testing.T) {
	sender, provider := newMockSender(t)

	provider.EXPECT().
		SendMessage(int64(42), RegisterPromptText, gomock.AssignableToTypeOf(tgbotapi.InlineKeyboardMarkup{})).
		Return(77, nil)

	messageID, err := sender.SendConfirmationPrompt(context.Background(), 42, RegisterPromptText, CallbackYes, CallbackNo)
	require.NoError(t, err)
	assert.Equal(t, 77, messageID)
}

func TestMessageSender_EmptyTextIsNeverSent(t *testing.T) {
	sender, _ := newMockSender(t)
	ctx := context.Background()

	// no EXPECT: any provider call fails the test
	assert.ErrorIs(t, sender.SendPlain(ctx, 42, ""), ErrEmptyMessage)
	assert.ErrorIs(t, sender.SendWithMainKeyboard(ctx, 42, "   "), ErrEmptyMessage)
	assert.ErrorIs(t, sender.EditMessage(ctx, 42, 1, ""), ErrEmptyMessage)
}

func TestMessageSender_ReturnsTransportErrors(t *testing.T) {
	sender, provider := newMockSender(t)
	transportErr := WrapTelegramError(&tgbotapi.Error{Code: 403, Message: "Forbidden"}, "sendMessage")

	provider.EXPECT().SendMessage(int64(42), "hello", nil).Return(0, transportErr)
	provider.EXPECT().EditMessageText(int64(42), 5, "edited").Return(transportErr)
	provider.EXPECT().AnswerCallback("cb", "").Return(transportErr)

	ctx := context.Background()
	assert.True(t, IsTelegramAPIError(sender.SendPlain(ctx, 42, "hello")))
	assert.True(t, IsTelegramAPIError(sender.EditMessage(ctx, 42, 5, "edited")))
	assert.True(t, IsTelegramAPIError(sender.AnswerCallback(ctx, "cb", "")))
}

func TestMessageSender_RespectsContext(t *testing.T) {
	t.Run("already cancelled", func(t *testing.T) {
		sender, _ := newMockSender(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		assert.ErrorIs(t, sender.SendPlain(ctx, 42, "late"), context.Canceled)
	})

	t.Run("deadline while waiting on the api", func(t *testing.T) {
		sender, provider := newMockSender(t)
		release := make(chan struct{})
		defer close(release)

		provider.EXPECT().SendMessage(int64(42), "slow", nil).DoAndReturn(func(int64, string, interface{}) (int, error) {
			<-release
			return 1, nil
		})

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		err := sender.SendPlain(ctx, 42, "slow")
		assert.True(t, errors.Is(err, context.DeadlineExceeded))
	})
}

func TestMessageSender_RegisterCommandMenu(t *testing.T) {
	sender, provider := newMockSender(t)

	provider.EXPECT().SetMyCommands(gomock.Len(5)).Return(nil)
	require.NoError(t, sender.RegisterCommandMenu(context.Background()))

	provider.EXPECT().SetMyCommands(gomock.Any()).Return(errors.New("unauthorized"))
	assert.Error(t, sender.RegisterCommandMenu(context.Background()))
}
