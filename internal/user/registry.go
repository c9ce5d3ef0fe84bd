package user

import (
	"context"
	"errors"
	"fmt"

	"announcebot-api/internal/common"
	"announcebot-api/internal/events"

	"go.uber.org/zap"
)

// Registry is the set of known users keyed by chat ID
type Registry struct {
	repo         Repository
	eventBus     events.EventBus
	clock        common.Clock
	logger       *zap.Logger
	broadcasters map[int64]struct{}
}

// NewRegistry creates a Registry. broadcasterChatIDs are allowed to use
// /send regardless of the stored CanBroadcast flag.
func NewRegistry(repo Repository, eventBus events.EventBus, clock common.Clock, logger *zap.Logger, broadcasterChatIDs []int64) *Registry {
	allowed := make(map[int64]struct{}, len(broadcasterChatIDs))
	for _, id := range broadcasterChatIDs {
		allowed[id] = struct{}{}
	}
	return &Registry{
		repo:         repo,
		eventBus:     eventBus,
		clock:        clock,
		logger:       logger,
		broadcasters: allowed,
	}
}

// IsRegistered reports whether a row exists for the chat
func (r *Registry) IsRegistered(ctx context.Context, chatID int64) (bool, error) {
	_, err := r.repo.Get(ctx, chatID)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Get returns the stored user or ErrNotFound
func (r *Registry) Get(ctx context.Context, chatID int64) (*User, error) {
	return r.repo.Get(ctx, chatID)
}

// Register stores the chat unless it is already known. Repeated calls
// leave exactly one row with the original fields and timestamp.
func (r *Registry) Register(ctx context.Context, chatID int64, fields common.DisplayFields) (bool, error) {
	u := &User{
		ChatID:       chatID,
		FirstName:    fields.FirstName,
		LastName:     fields.LastName,
		UserName:     fields.UserName,
		RegisteredAt: r.clock.Now().UTC(),
	}

	created, err := r.repo.InsertIfAbsent(ctx, u)
	if err != nil {
		return false, fmt.Errorf("register chat %d: %w", chatID, err)
	}
	if !created {
		return false, nil
	}

	r.logger.Info("User registered",
		zap.Int64("chat_id", chatID),
		zap.String("user_name", fields.UserName))

	r.publish(events.TopicUserRegistered, events.UserRegistered{
		Event:    events.NewEvent(),
		ChatID:   chatID,
		UserName: fields.UserName,
	})
	return true, nil
}

// Unregister deletes the chat's row if present
func (r *Registry) Unregister(ctx context.Context, chatID int64) error {
	removed, err := r.repo.Delete(ctx, chatID)
	if err != nil {
		return fmt.Errorf("unregister chat %d: %w", chatID, err)
	}
	if !removed {
		return nil
	}

	r.logger.Info("User unregistered", zap.Int64("chat_id", chatID))
	r.publish(events.TopicUserUnregistered, events.UserUnregistered{
		Event:  events.NewEvent(),
		ChatID: chatID,
	})
	return nil
}

// All returns a snapshot of every registered user
func (r *Registry) All(ctx context.Context) ([]User, error) {
	return r.repo.ListAll(ctx)
}

// CanBroadcast reports whether a registered chat may use /send. The chat
// must be registered and either allow-listed or flagged in the store.
func (r *Registry) CanBroadcast(ctx context.Context, chatID int64) (bool, error) {
	u, err := r.repo.Get(ctx, chatID)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if _, ok := r.broadcasters[chatID]; ok {
		return true, nil
	}
	return u.CanBroadcast, nil
}

func (r *Registry) publish(topic string, event interface{}) {
	if r.eventBus == nil {
		return
	}
	if err := r.eventBus.Publish(topic, event); err != nil {
		r.logger.Warn("Failed to publish event", zap.String("topic", topic), zap.Error(err))
	}
}
