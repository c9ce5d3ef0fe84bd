//go:build integration

// Package integration drives the bot end to end: HTTP webhook in, real
// repositories on PostgreSQL, a recording Telegram provider out.
package integration

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"announcebot-api/api/handlers"
	"announcebot-api/api/routes"
	"announcebot-api/internal/announcement"
	"announcebot-api/internal/broadcast"
	"announcebot-api/internal/chatbot"
	"announcebot-api/internal/common"
	"announcebot-api/internal/config"
	"announcebot-api/internal/database"
	"announcebot-api/internal/events"
	"announcebot-api/internal/mocks"
	"announcebot-api/internal/scheduler"
	"announcebot-api/internal/stats"
	"announcebot-api/internal/user"
	"announcebot-api/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var startTime = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

// SetupTestDatabase starts a disposable PostgreSQL and applies migrations
func SetupTestDatabase(t *testing.T) *gorm.DB {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:15-alpine",
		postgres.WithDatabase("test_announcebot"),
		postgres.WithUsername("test_user"),
		postgres.WithPassword("test_password"),
		postgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err, "Failed to start PostgreSQL container")

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	db, err := database.NewConnection(config.DatabaseConfig{
		Driver:         config.DriverPostgres,
		Host:           host,
		Port:           port.Int(),
		User:           "test_user",
		Password:       "test_password",
		DBName:         "test_announcebot",
		SSLMode:        "disable",
		MaxOpenConns:   10,
		MaxIdleConns:   5,
		ConnectRetries: 5,
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })

	require.NoError(t, database.Migrate(db, config.DriverPostgres))
	return db
}

type sentMessage struct {
	ChatID    int64
	MessageID int
	Text      string
	Markup    interface{}
}

// recordingProvider captures outbound Bot API calls made through a gomock
// TelegramProvider. Sends to chats in failFor return an error.
type recordingProvider struct {
	*mocks.MockTelegramProvider

	mu      sync.Mutex
	nextID  int
	sent    []sentMessage
	edits   []sentMessage
	answers []string
	failFor map[int64]bool
}

func newRecordingProvider(t *testing.T) *recordingProvider {
	ctrl := gomock.NewController(t)
	p := &recordingProvider{
		MockTelegramProvider: mocks.NewMockTelegramProvider(ctrl),
		nextID:               500,
		failFor:              make(map[int64]bool),
	}

	p.EXPECT().SendMessage(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(chatID int64, text string, markup interface{}) (int, error) {
			p.mu.Lock()
			defer p.mu.Unlock()
			if p.failFor[chatID] {
				return 0, chatbot.TelegramAPIError{Operation: "sendMessage", StatusCode: 403, Description: "Forbidden: bot was blocked by the user"}
			}
			p.nextID++
			p.sent = append(p.sent, sentMessage{ChatID: chatID, MessageID: p.nextID, Text: text, Markup: markup})
			return p.nextID, nil
		}).AnyTimes()

	p.EXPECT().EditMessageText(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(chatID int64, messageID int, text string) error {
			p.mu.Lock()
			defer p.mu.Unlock()
			p.edits = append(p.edits, sentMessage{ChatID: chatID, MessageID: messageID, Text: text})
			return nil
		}).AnyTimes()

	p.EXPECT().AnswerCallback(gomock.Any(), gomock.Any()).
		DoAndReturn(func(callbackID, _ string) error {
			p.mu.Lock()
			defer p.mu.Unlock()
			p.answers = append(p.answers, callbackID)
			return nil
		}).AnyTimes()

	return p
}

func (p *recordingProvider) FailSendsTo(chatID int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failFor[chatID] = true
}

func (p *recordingProvider) SentTo(chatID int64) []sentMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []sentMessage
	for _, m := range p.sent {
		if m.ChatID == chatID {
			out = append(out, m)
		}
	}
	return out
}

func (p *recordingProvider) SentCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sent)
}

func (p *recordingProvider) Edits() []sentMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]sentMessage(nil), p.edits...)
}

func (p *recordingProvider) AnswerCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.answers)
}

// testApp is the production wiring with the Telegram side replaced
type testApp struct {
	DB            *gorm.DB
	Provider      *recordingProvider
	Clock         *common.MockClock
	EventBus      events.EventBus
	Registry      *user.Registry
	Announcements announcement.Repository
	Broadcaster   *broadcast.Broadcaster
	Confirmations *chatbot.ConfirmationFlow
	Dispatcher    *chatbot.Dispatcher
	Commands      *chatbot.CommandRouter
	Scheduler     scheduler.Scheduler
	Stats         *stats.Collector
	Router        *gin.Engine

	updateID int
}

func newTestApp(t *testing.T, broadcasterChatIDs ...int64) *testApp {
	t.Helper()
	zapLogger := zap.NewNop()

	db := SetupTestDatabase(t)
	provider := newRecordingProvider(t)
	clock := common.NewMockClock(startTime)
	eventBus := events.NewEventBus(zapLogger)
	collector := stats.NewCollector(eventBus, zapLogger)

	registry := user.NewRegistry(user.NewGormRepository(db, zapLogger), eventBus, clock, zapLogger, broadcasterChatIDs)
	announcements := announcement.NewGormRepository(db, zapLogger)

	sender := chatbot.NewMessageSender(provider, zapLogger)
	confirmations := chatbot.NewConfirmationFlow(sender, clock, time.Hour, eventBus, zapLogger)
	broadcaster := broadcast.NewBroadcaster(registry, announcements, sender, eventBus, clock,
		config.BroadcastConfig{SendTimeout: 5, Workers: 4}, zapLogger)
	router := chatbot.NewCommandRouter(registry, broadcaster, sender, confirmations, eventBus, zapLogger)

	dispatcher := chatbot.NewDispatcher(router, confirmations, 4, 16, zapLogger)
	dispatcher.Start()

	jobScheduler, err := scheduler.NewScheduler(5*time.Second, zapLogger)
	require.NoError(t, err)

	gin.SetMode(gin.TestMode)
	engine := gin.New()
	routes.SetupRoutes(engine, routes.Dependencies{
		DB:            db,
		Logger:        &logger.Logger{SugaredLogger: zapLogger.Sugar()},
		BotName:       "announce_test_bot",
		Dispatcher:    dispatcher,
		WebhookSecret: webhookSecret,
		Announcements: announcements,
		Clock:         clock,
		Broadcaster:   broadcaster,
		Scheduler:     jobScheduler,
		Stats:         collector,
	})

	app := &testApp{
		DB:            db,
		Provider:      provider,
		Clock:         clock,
		EventBus:      eventBus,
		Registry:      registry,
		Announcements: announcements,
		Broadcaster:   broadcaster,
		Confirmations: confirmations,
		Dispatcher:    dispatcher,
		Commands:      router,
		Scheduler:     jobScheduler,
		Stats:         collector,
		Router:        engine,
	}
	t.Cleanup(func() {
		dispatcher.Stop()
		router.Wait()
		_ = eventBus.Close()
	})
	return app
}

func (a *testApp) nextUpdateID() int {
	a.updateID++
	return a.updateID
}

const webhookSecret = "integration-secret"

// PostMessage delivers a private-chat text message through the webhook
func (a *testApp) PostMessage(t *testing.T, chatID int64, userName, text string) {
	t.Helper()
	body := fmt.Sprintf(`{"update_id":%d,"message":{"message_id":%d,"date":1700000000,`+
		`"chat":{"id":%d,"type":"private","first_name":"Ann","last_name":"K","username":%q},"text":%q}}`,
		a.nextUpdateID(), a.updateID, chatID, userName, text)
	a.post(t, "/api/v1/telegram/webhook", body)
}

// PostCallback delivers an inline-button press through the webhook
func (a *testApp) PostCallback(t *testing.T, chatID int64, messageID int, data string) {
	t.Helper()
	body := fmt.Sprintf(`{"update_id":%d,"callback_query":{"id":"cb-%d","data":%q,"chat_instance":"ci",`+
		`"from":{"id":%d,"is_bot":false,"first_name":"Ann"},`+
		`"message":{"message_id":%d,"date":1700000000,"chat":{"id":%d,"type":"private"}}}}`,
		a.nextUpdateID(), a.updateID, data, chatID, messageID, chatID)
	a.post(t, "/api/v1/telegram/webhook", body)
}

func (a *testApp) post(t *testing.T, path, body string) {
	t.Helper()
	w := a.Do(http.MethodPost, path, body)
	require.Equal(t, http.StatusOK, w.Code)
}

// Do performs one admin API request
func (a *testApp) Do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(handlers.SecretTokenHeader, webhookSecret)
	w := httptest.NewRecorder()
	a.Router.ServeHTTP(w, req)
	return w
}

// Drain stops the dispatcher once its queues are empty and waits for /send
// fan-outs. Call it after the last update of a test.
func (a *testApp) Drain() {
	a.Dispatcher.Stop()
	a.Commands.Wait()
}

// WaitForSends blocks until chatID has received at least n messages
func (a *testApp) WaitForSends(t *testing.T, chatID int64, n int) []sentMessage {
	t.Helper()
	require.Eventually(t, func() bool {
		return len(a.Provider.SentTo(chatID)) >= n
	}, 5*time.Second, 10*time.Millisecond)
	return a.Provider.SentTo(chatID)
}

// WaitForUsers blocks until n users are stored. /start registers after the
// greeting went out, so a greeting alone does not prove registration.
func (a *testApp) WaitForUsers(t *testing.T, n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		users, err := a.Registry.All(context.Background())
		return err == nil && len(users) == n
	}, 5*time.Second, 10*time.Millisecond)
}

func zapNop() *zap.Logger {
	return zap.NewNop()
}
