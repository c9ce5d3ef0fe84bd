package chatbot

import (
	"context"
	"errors"
	"testing"
	"time"

	"announcebot-api/internal/common"
	"announcebot-api/internal/events"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type confirmationFixture struct {
	provider *fakeProvider
	clock    *common.MockClock
	bus      *events.MockEventBus
	flow     *ConfirmationFlow
}

func newConfirmationFixture() *confirmationFixture {
	provider := newFakeProvider()
	clock := common.NewMockClock(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
	bus := events.NewMockEventBus()
	sender := NewMessageSender(provider, zap.NewNop())
	return &confirmationFixture{
		provider: provider,
		clock:    clock,
		bus:      bus,
		flow:     NewConfirmationFlow(sender, clock, time.Hour, bus, zap.NewNop()),
	}
}

// open sends a prompt to chatID and returns its message ID
func (f *confirmationFixture) open(t *testing.T, chatID int64) int {
	t.Helper()
	require.NoError(t, f.flow.Open(context.Background(), chatID, RegisterPromptText))
	sent := f.provider.Sent()
	return sent[len(sent)-1].MessageID
}

func TestConfirmationFlow_Open(t *testing.T) {
	f := newConfirmationFixture()
	f.open(t, 42)

	sent := f.provider.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, RegisterPromptText, sent[0].Text)
	assert.IsType(t, tgbotapi.InlineKeyboardMarkup{}, sent[0].Markup)
	assert.Equal(t, 1, f.flow.Pending())
}

func TestConfirmationFlow_OpenSendFailureRecordsNothing(t *testing.T) {
	f := newConfirmationFixture()
	f.provider.FailSendFor(42)

	assert.Error(t, f.flow.Open(context.Background(), 42, RegisterPromptText))
	assert.Equal(t, 0, f.flow.Pending())
}

func TestConfirmationFlow_Resolve(t *testing.T) {
	tests := []struct {
		name     string
		data     string
		expected string
	}{
		{"yes", CallbackYes, PressedYesText},
		{"no", CallbackNo, PressedNoText},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newConfirmationFixture()
			messageID := f.open(t, 42)

			f.flow.Resolve(context.Background(), Callback{ID: "cb-1", ChatID: 42, MessageID: messageID, Data: tt.data})

			assert.Equal(t, []editedMessage{{ChatID: 42, MessageID: messageID, Text: tt.expected}}, f.provider.Edits())
			assert.Equal(t, []answeredCallback{{ID: "cb-1", Text: ""}}, f.provider.Answers())
			assert.Equal(t, 0, f.flow.Pending())

			published := f.bus.GetPublishedEvents(events.TopicConfirmationResolved)
			require.Len(t, published, 1)
			assert.Equal(t, tt.data, published[0].(events.ConfirmationResolved).Answer)
		})
	}
}

func TestConfirmationFlow_UnknownDataDoesNotEdit(t *testing.T) {
	f := newConfirmationFixture()
	messageID := f.open(t, 42)

	f.flow.Resolve(context.Background(), Callback{ID: "cb-1", ChatID: 42, MessageID: messageID, Data: "MAYBE_BUTTON"})

	assert.Empty(t, f.provider.Edits())
	assert.Len(t, f.provider.Answers(), 1)
	assert.Equal(t, 1, f.flow.Pending())
}

func TestConfirmationFlow_NotPending(t *testing.T) {
	f := newConfirmationFixture()

	f.flow.Resolve(context.Background(), Callback{ID: "cb-1", ChatID: 42, MessageID: 999, Data: CallbackYes})

	assert.Empty(t, f.provider.Edits())
	assert.Equal(t, []answeredCallback{{ID: "cb-1", Text: PromptExpiredText}}, f.provider.Answers())
}

func TestConfirmationFlow_KeyedByChatAndMessage(t *testing.T) {
	f := newConfirmationFixture()
	messageID := f.open(t, 42)

	// same message ID, different chat
	f.flow.Resolve(context.Background(), Callback{ID: "cb-1", ChatID: 43, MessageID: messageID, Data: CallbackYes})
	assert.Empty(t, f.provider.Edits())
	assert.Equal(t, 1, f.flow.Pending())
}

func TestConfirmationFlow_ResolvesOnce(t *testing.T) {
	f := newConfirmationFixture()
	messageID := f.open(t, 42)
	ctx := context.Background()

	f.flow.Resolve(ctx, Callback{ID: "cb-1", ChatID: 42, MessageID: messageID, Data: CallbackNo})
	f.flow.Resolve(ctx, Callback{ID: "cb-2", ChatID: 42, MessageID: messageID, Data: CallbackYes})

	edits := f.provider.Edits()
	require.Len(t, edits, 1)
	assert.Equal(t, PressedNoText, edits[0].Text)
	assert.Equal(t, PromptExpiredText, f.provider.Answers()[1].Text)
}

func TestConfirmationFlow_Expiry(t *testing.T) {
	f := newConfirmationFixture()
	messageID := f.open(t, 42)

	f.clock.Advance(time.Hour)
	f.flow.Resolve(context.Background(), Callback{ID: "cb-1", ChatID: 42, MessageID: messageID, Data: CallbackYes})

	assert.Empty(t, f.provider.Edits())
	assert.Equal(t, PromptExpiredText, f.provider.Answers()[0].Text)
	assert.Equal(t, 0, f.flow.Pending())
}

func TestConfirmationFlow_Sweep(t *testing.T) {
	f := newConfirmationFixture()
	f.open(t, 1)
	f.clock.Advance(30 * time.Minute)
	f.open(t, 2)

	assert.Equal(t, 0, f.flow.Sweep(f.clock.Now()))
	assert.Equal(t, 1, f.flow.Sweep(f.clock.Now().Add(30*time.Minute)))
	assert.Equal(t, 1, f.flow.Pending())
	assert.Equal(t, 1, f.flow.Sweep(f.clock.Now().Add(2*time.Hour)))
	assert.Equal(t, 0, f.flow.Pending())
}

func TestConfirmationFlow_EditFailureIsNotFatal(t *testing.T) {
	f := newConfirmationFixture()
	messageID := f.open(t, 42)
	f.provider.failEdit = errors.New("message to edit not found")

	f.flow.Resolve(context.Background(), Callback{ID: "cb-1", ChatID: 42, MessageID: messageID, Data: CallbackYes})

	assert.Equal(t, 0, f.flow.Pending())
	assert.Empty(t, f.bus.GetPublishedEvents(events.TopicConfirmationResolved))
}
