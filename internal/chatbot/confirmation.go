package chatbot

import (
	"context"
	"sync"
	"time"

	"announcebot-api/internal/common"
	"announcebot-api/internal/events"

	"go.uber.org/zap"
)

type confirmationKey struct {
	chatID    int64
	messageID int
}

type pendingConfirmation struct {
	createdAt time.Time
	expiresAt time.Time
}

// ConfirmationFlow tracks Yes/No prompts awaiting an answer. A prompt is
// pending from the moment it was sent until a button press for that exact
// message resolves it or its TTL runs out.
type ConfirmationFlow struct {
	sender   Sender
	clock    common.Clock
	ttl      time.Duration
	eventBus events.EventBus
	logger   *zap.Logger

	mu      sync.Mutex
	pending map[confirmationKey]pendingConfirmation
}

// NewConfirmationFlow creates a ConfirmationFlow
func NewConfirmationFlow(sender Sender, clock common.Clock, ttl time.Duration, eventBus events.EventBus, logger *zap.Logger) *ConfirmationFlow {
	return &ConfirmationFlow{
		sender:   sender,
		clock:    clock,
		ttl:      ttl,
		eventBus: eventBus,
		logger:   logger,
		pending:  make(map[confirmationKey]pendingConfirmation),
	}
}

// Open sends the prompt and records it as pending. Nothing is recorded when
// the send fails.
func (f *ConfirmationFlow) Open(ctx context.Context, chatID int64, text string) error {
	messageID, err := f.sender.SendConfirmationPrompt(ctx, chatID, text, CallbackYes, CallbackNo)
	if err != nil {
		return err
	}

	now := f.clock.Now()
	f.mu.Lock()
	f.pending[confirmationKey{chatID: chatID, messageID: messageID}] = pendingConfirmation{
		createdAt: now,
		expiresAt: now.Add(f.ttl),
	}
	f.mu.Unlock()

	f.logger.Debug("Confirmation prompt opened",
		zap.Int64("chat_id", chatID),
		zap.Int("message_id", messageID))
	return nil
}

// Resolve handles a button press. Only a YES/NO press on a pending prompt
// edits the message; every callback is acknowledged.
func (f *ConfirmationFlow) Resolve(ctx context.Context, cb Callback) {
	var edit string
	switch cb.Data {
	case CallbackYes:
		edit = PressedYesText
	case CallbackNo:
		edit = PressedNoText
	default:
		f.logger.Debug("Ignoring unknown callback data",
			zap.Int64("chat_id", cb.ChatID),
			zap.String("data", cb.Data))
		_ = f.sender.AnswerCallback(ctx, cb.ID, "")
		return
	}

	if !f.take(confirmationKey{chatID: cb.ChatID, messageID: cb.MessageID}) {
		f.logger.Info("Callback for a prompt that is not pending",
			zap.Int64("chat_id", cb.ChatID),
			zap.Int("message_id", cb.MessageID),
			zap.String("data", cb.Data))
		_ = f.sender.AnswerCallback(ctx, cb.ID, PromptExpiredText)
		return
	}

	_ = f.sender.AnswerCallback(ctx, cb.ID, "")
	if err := f.sender.EditMessage(ctx, cb.ChatID, cb.MessageID, edit); err != nil {
		return
	}

	if f.eventBus != nil {
		err := f.eventBus.Publish(events.TopicConfirmationResolved, events.ConfirmationResolved{
			Event:     events.NewEvent(),
			ChatID:    cb.ChatID,
			MessageID: cb.MessageID,
			Answer:    cb.Data,
		})
		if err != nil {
			f.logger.Warn("Failed to publish event", zap.String("topic", events.TopicConfirmationResolved), zap.Error(err))
		}
	}
}

// take removes the entry and reports whether it was pending and unexpired
func (f *ConfirmationFlow) take(key confirmationKey) bool {
	now := f.clock.Now()

	f.mu.Lock()
	defer f.mu.Unlock()

	entry, ok := f.pending[key]
	if !ok {
		return false
	}
	delete(f.pending, key)
	return now.Before(entry.expiresAt)
}

// Sweep drops prompts whose TTL has passed and returns how many it removed
func (f *ConfirmationFlow) Sweep(now time.Time) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	removed := 0
	for key, entry := range f.pending {
		if !now.Before(entry.expiresAt) {
			delete(f.pending, key)
			removed++
		}
	}

	if removed > 0 {
		f.logger.Debug("Swept expired confirmations", zap.Int("removed", removed), zap.Int("remaining", len(f.pending)))
	}
	return removed
}

// Pending returns the number of prompts awaiting an answer
func (f *ConfirmationFlow) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pending)
}
