package broadcast

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"announcebot-api/internal/announcement"
	"announcebot-api/internal/common"
	"announcebot-api/internal/config"
	"announcebot-api/internal/events"
	"announcebot-api/internal/user"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Sender delivers one plain message
type Sender interface {
	SendPlain(ctx context.Context, chatID int64, text string) error
}

// UserLister returns a snapshot of the recipients
type UserLister interface {
	All(ctx context.Context) ([]user.User, error)
}

// Result summarises one fan-out
type Result struct {
	Attempted int           `json:"attempted"`
	Delivered int           `json:"delivered"`
	Failed    int           `json:"failed"`
	Duration  time.Duration `json:"duration"`
}

// Broadcaster sends texts to every registered user. Sends are independent:
// one failing or timing out never stops the rest.
type Broadcaster struct {
	users         UserLister
	announcements announcement.Repository
	sender        Sender
	eventBus      events.EventBus
	clock         common.Clock
	limiter       *rate.Limiter
	workers       int
	sendTimeout   time.Duration
	logger        *zap.Logger
}

// NewBroadcaster creates a Broadcaster. The rate limiter is shared by all
// fan-outs so concurrent broadcasts stay inside one global budget.
func NewBroadcaster(
	users UserLister,
	announcements announcement.Repository,
	sender Sender,
	eventBus events.EventBus,
	clock common.Clock,
	cfg config.BroadcastConfig,
	logger *zap.Logger,
) *Broadcaster {
	limit := rate.Inf
	burst := 1
	if cfg.RatePerSec > 0 {
		limit = rate.Limit(cfg.RatePerSec)
		burst = cfg.RatePerSec
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}

	sendTimeout := time.Duration(cfg.SendTimeout) * time.Second
	if sendTimeout <= 0 {
		sendTimeout = 10 * time.Second
	}

	return &Broadcaster{
		users:         users,
		announcements: announcements,
		sender:        sender,
		eventBus:      eventBus,
		clock:         clock,
		limiter:       rate.NewLimiter(limit, burst),
		workers:       workers,
		sendTimeout:   sendTimeout,
		logger:        logger,
	}
}

// DeliverAnnouncements sends every stored announcement to every registered
// user, exactly N x M attempts.
func (b *Broadcaster) DeliverAnnouncements(ctx context.Context) (Result, error) {
	return b.Run(ctx, events.SourceSchedule)
}

// Run is DeliverAnnouncements with the trigger recorded as source
func (b *Broadcaster) Run(ctx context.Context, source string) (Result, error) {
	items, err := b.announcements.ListAll(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("list announcements: %w", err)
	}
	if len(items) == 0 {
		b.logger.Debug("No announcements to deliver", zap.String("source", source))
		return Result{}, nil
	}

	bodies := make([]string, 0, len(items))
	for _, a := range items {
		bodies = append(bodies, a.Body)
	}
	return b.fanOut(ctx, source, bodies)
}

// SendToAll sends text to every registered user
func (b *Broadcaster) SendToAll(ctx context.Context, text string) (Result, error) {
	return b.fanOut(ctx, events.SourceChat, []string{text})
}

func (b *Broadcaster) fanOut(ctx context.Context, source string, bodies []string) (Result, error) {
	recipients, err := b.users.All(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("list users: %w", err)
	}

	started := b.clock.Now()
	var delivered, failed atomic.Int64

	var g errgroup.Group
	g.SetLimit(b.workers)

	for _, body := range bodies {
		for _, recipient := range recipients {
			chatID := recipient.ChatID
			g.Go(func() error {
				if err := b.limiter.Wait(ctx); err != nil {
					failed.Add(1)
					return nil
				}

				sendCtx, cancel := context.WithTimeout(ctx, b.sendTimeout)
				defer cancel()

				if err := b.sender.SendPlain(sendCtx, chatID, body); err != nil {
					failed.Add(1)
					b.logger.Warn("Broadcast send failed",
						zap.Int64("chat_id", chatID),
						zap.String("source", source),
						zap.Error(err))
					return nil
				}
				delivered.Add(1)
				return nil
			})
		}
	}
	_ = g.Wait()

	result := Result{
		Attempted: len(bodies) * len(recipients),
		Delivered: int(delivered.Load()),
		Failed:    int(failed.Load()),
		Duration:  b.clock.Now().Sub(started),
	}

	b.logger.Info("Broadcast completed",
		zap.String("source", source),
		zap.Int("messages", len(bodies)),
		zap.Int("recipients", len(recipients)),
		zap.Int("delivered", result.Delivered),
		zap.Int("failed", result.Failed),
		zap.Duration("duration", result.Duration))

	if b.eventBus != nil {
		err := b.eventBus.Publish(events.TopicBroadcastCompleted, events.BroadcastCompleted{
			Event:     events.NewEvent(),
			Source:    source,
			Attempted: result.Attempted,
			Delivered: result.Delivered,
			Failed:    result.Failed,
			Duration:  result.Duration,
		})
		if err != nil {
			b.logger.Warn("Failed to publish event", zap.String("topic", events.TopicBroadcastCompleted), zap.Error(err))
		}
	}

	return result, nil
}
