//go:build integration

package integration

import (
	"context"
	"testing"
	"time"

	"announcebot-api/internal/chatbot"
	"announcebot-api/internal/user"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandFlow_StartRegistersAndGreets(t *testing.T) {
	app := newTestApp(t)

	app.PostMessage(t, 42, "ann_k", "/start")
	app.PostMessage(t, 42, "ann_k", "/start")
	app.Drain()

	sent := app.Provider.SentTo(42)
	require.Len(t, sent, 2)
	assert.Equal(t, "Hi, ann_k, nice to meet you! \U0001F60A", sent[0].Text)
	_, isKeyboard := sent[0].Markup.(tgbotapi.ReplyKeyboardMarkup)
	assert.True(t, isKeyboard)

	stored, err := app.Registry.Get(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, "ann_k", stored.UserName)
	assert.Equal(t, "Ann", stored.FirstName)
	assert.True(t, stored.RegisteredAt.Equal(startTime))

	users, err := app.Registry.All(context.Background())
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestCommandFlow_MyDataAndDeleteData(t *testing.T) {
	app := newTestApp(t)

	// unknown chat gets no reply at all
	app.PostMessage(t, 7, "bob", "/mydata")
	app.PostMessage(t, 42, "ann_k", "/start")
	app.PostMessage(t, 42, "ann_k", "/mydata")
	app.PostMessage(t, 42, "ann_k", "/deletedata")
	app.PostMessage(t, 42, "ann_k", "/deletedata")
	app.PostMessage(t, 42, "ann_k", "what is this")
	app.Drain()

	assert.Empty(t, app.Provider.SentTo(7))

	sent := app.Provider.SentTo(42)
	require.Len(t, sent, 5)
	assert.Equal(t, "ann_k , Ann , K , registered 2024-03-01T09:00:00Z", sent[1].Text)
	assert.Equal(t, chatbot.DataDeletedText, sent[2].Text)
	assert.Equal(t, chatbot.DataDeletedText, sent[3].Text)
	assert.Equal(t, chatbot.UnknownCommandText, sent[4].Text)

	_, err := app.Registry.Get(context.Background(), 42)
	assert.ErrorIs(t, err, user.ErrNotFound)
}

func TestCommandFlow_SendBroadcastsToEveryUser(t *testing.T) {
	app := newTestApp(t, 42)

	app.PostMessage(t, 42, "ann_k", "/start")
	app.PostMessage(t, 7, "bob", "/start")
	app.PostMessage(t, 8, "carl", "/start")
	app.WaitForUsers(t, 3)
	app.Provider.FailSendsTo(8)

	app.PostMessage(t, 42, "ann_k", "/send hello world :tada:")
	// 7 is registered but not allowed, so /send falls through
	app.PostMessage(t, 7, "bob", "/send nope")
	app.Drain()

	want := "hello world \U0001F389"
	for _, chatID := range []int64{42, 7} {
		var texts []string
		for _, m := range app.Provider.SentTo(chatID) {
			texts = append(texts, m.Text)
		}
		assert.Contains(t, texts, want, "chat %d", chatID)
	}

	var bobTexts []string
	for _, m := range app.Provider.SentTo(7) {
		bobTexts = append(bobTexts, m.Text)
	}
	assert.Contains(t, bobTexts, chatbot.UnknownCommandText)

	require.Eventually(t, func() bool {
		return app.Stats.Snapshot().Broadcasts == 1
	}, 5*time.Second, 10*time.Millisecond)
	last := app.Stats.Snapshot().LastBroadcast
	require.NotNil(t, last)
	assert.Equal(t, 3, last.Attempted)
	assert.Equal(t, 2, last.Delivered)
	assert.Equal(t, 1, last.Failed)
}
