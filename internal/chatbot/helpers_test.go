package chatbot

import (
	"fmt"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type sentMessage struct {
	ChatID    int64
	Text      string
	Markup    interface{}
	MessageID int
}

type editedMessage struct {
	ChatID    int64
	MessageID int
	Text      string
}

type answeredCallback struct {
	ID   string
	Text string
}

// fakeProvider is a recording TelegramProvider. Message IDs are assigned
// sequentially starting at 100.
type fakeProvider struct {
	mu          sync.Mutex
	nextID      int
	sent        []sentMessage
	edits       []editedMessage
	answers     []answeredCallback
	commands    []tgbotapi.BotCommand
	failSendFor map[int64]error
	failEdit    error
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{nextID: 100, failSendFor: make(map[int64]error)}
}

func (p *fakeProvider) SendMessage(chatID int64, text string, markup interface{}) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.failSendFor[chatID]; err != nil {
		return 0, err
	}
	p.nextID++
	p.sent = append(p.sent, sentMessage{ChatID: chatID, Text: text, Markup: markup, MessageID: p.nextID})
	return p.nextID, nil
}

func (p *fakeProvider) EditMessageText(chatID int64, messageID int, text string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.failEdit != nil {
		return p.failEdit
	}
	p.edits = append(p.edits, editedMessage{ChatID: chatID, MessageID: messageID, Text: text})
	return nil
}

func (p *fakeProvider) AnswerCallback(callbackID string, text string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.answers = append(p.answers, answeredCallback{ID: callbackID, Text: text})
	return nil
}

func (p *fakeProvider) SetMyCommands(commands []tgbotapi.BotCommand) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.commands = commands
	return nil
}

func (p *fakeProvider) GetUpdatesChan(int) tgbotapi.UpdatesChannel {
	return make(chan tgbotapi.Update)
}

func (p *fakeProvider) StopReceivingUpdates() {}

func (p *fakeProvider) SetWebhook(string) error { return nil }

func (p *fakeProvider) DeleteWebhook() error { return nil }

func (p *fakeProvider) GetMe() (*tgbotapi.User, error) {
	return &tgbotapi.User{ID: 1, IsBot: true, UserName: "announce_test_bot"}, nil
}

func (p *fakeProvider) Sent() []sentMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]sentMessage(nil), p.sent...)
}

func (p *fakeProvider) SentTo(chatID int64) []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	var texts []string
	for _, m := range p.sent {
		if m.ChatID == chatID {
			texts = append(texts, m.Text)
		}
	}
	return texts
}

func (p *fakeProvider) Edits() []editedMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]editedMessage(nil), p.edits...)
}

func (p *fakeProvider) Answers() []answeredCallback {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]answeredCallback(nil), p.answers...)
}

func (p *fakeProvider) FailSendFor(chatID int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failSendFor[chatID] = fmt.Errorf("Forbidden: bot was blocked by the user %d", chatID)
}

var _ TelegramProvider = (*fakeProvider)(nil)
