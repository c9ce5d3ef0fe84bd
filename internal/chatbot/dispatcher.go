package chatbot

import (
	"context"
	"errors"
	"fmt"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// ErrDispatcherStopped is returned when an update arrives after Stop
var ErrDispatcherStopped = errors.New("dispatcher is stopped")

// MessageRouter handles text messages
type MessageRouter interface {
	Route(ctx context.Context, msg Message)
}

// CallbackResolver handles inline-button presses
type CallbackResolver interface {
	Resolve(ctx context.Context, cb Callback)
}

// Dispatcher classifies inbound updates and hands them to the router or
// the confirmation flow. Updates are sharded by chat ID so one chat's
// updates run in arrival order while different chats proceed in parallel.
type Dispatcher struct {
	router    MessageRouter
	callbacks CallbackResolver
	parser    *WebhookParser
	logger    *zap.Logger

	shards []chan Update
	wg     sync.WaitGroup

	mu      sync.RWMutex
	started bool
	stopped bool

	workCtx    context.Context
	cancelWork context.CancelFunc
}

// NewDispatcher creates a Dispatcher with workers shards of queueSize each
func NewDispatcher(router MessageRouter, callbacks CallbackResolver, workers, queueSize int, logger *zap.Logger) *Dispatcher {
	if workers <= 0 {
		workers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}

	shards := make([]chan Update, workers)
	for i := range shards {
		shards[i] = make(chan Update, queueSize)
	}

	workCtx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		router:     router,
		callbacks:  callbacks,
		parser:     NewWebhookParser(),
		logger:     logger,
		shards:     shards,
		workCtx:    workCtx,
		cancelWork: cancel,
	}
}

// Start launches the shard workers. Calling it twice is a no-op.
func (d *Dispatcher) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.started || d.stopped {
		return
	}
	d.started = true

	for i, shard := range d.shards {
		d.wg.Add(1)
		go d.worker(i, shard)
	}
	d.logger.Info("Dispatcher started", zap.Int("workers", len(d.shards)))
}

// Stop stops accepting updates, drains queued ones and waits for workers
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	for _, shard := range d.shards {
		close(shard)
	}
	d.mu.Unlock()

	d.wg.Wait()
	d.cancelWork()
	d.logger.Info("Dispatcher stopped")
}

// HandleUpdate processes one update synchronously on the caller's goroutine.
// Exactly one branch fires; unknown updates are dropped.
func (d *Dispatcher) HandleUpdate(ctx context.Context, update Update) {
	switch {
	case update.Kind == UpdateMessage && update.Message != nil:
		d.router.Route(ctx, *update.Message)
	case update.Kind == UpdateCallback && update.Callback != nil:
		d.callbacks.Resolve(ctx, *update.Callback)
	default:
		d.logger.Debug("Dropping unsupported update", zap.Int("update_id", update.ID))
	}
}

// Enqueue queues an update on its chat's shard. It blocks while the shard
// is full until ctx ends.
func (d *Dispatcher) Enqueue(ctx context.Context, update Update) error {
	if update.Kind == UpdateUnknown {
		d.logger.Debug("Dropping unsupported update", zap.Int("update_id", update.ID))
		return nil
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.stopped {
		return ErrDispatcherStopped
	}

	select {
	case d.shards[d.shardFor(update.ChatID())] <- update:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// HandleWebhook parses one webhook body and queues the update
func (d *Dispatcher) HandleWebhook(ctx context.Context, body []byte) error {
	raw, err := d.parser.ParseUpdate(body)
	if err != nil {
		return err
	}
	return d.Enqueue(ctx, d.parser.Classify(raw))
}

// Run consumes a long-polling stream until ctx ends or the stream closes
func (d *Dispatcher) Run(ctx context.Context, updates tgbotapi.UpdatesChannel) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case raw, ok := <-updates:
			if !ok {
				return nil
			}
			if err := d.Enqueue(ctx, d.parser.Classify(&raw)); err != nil {
				if errors.Is(err, ErrDispatcherStopped) {
					return err
				}
				if ctx.Err() != nil {
					return nil
				}
				d.logger.Warn("Failed to queue update", zap.Int("update_id", raw.UpdateID), zap.Error(err))
			}
		}
	}
}

func (d *Dispatcher) shardFor(chatID int64) int {
	return int(uint64(chatID) % uint64(len(d.shards)))
}

func (d *Dispatcher) worker(index int, updates <-chan Update) {
	defer d.wg.Done()
	for update := range updates {
		d.safeHandle(index, update)
	}
}

// safeHandle keeps one bad update from killing the shard
func (d *Dispatcher) safeHandle(index int, update Update) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("Recovered from panic while handling update",
				zap.Int("shard", index),
				zap.Int("update_id", update.ID),
				zap.Int64("chat_id", update.ChatID()),
				zap.Error(fmt.Errorf("%v", r)))
		}
	}()

	d.logger.Debug("Handling update",
		zap.Int("shard", index),
		zap.String("correlation_id", d.parser.BuildCorrelationID(update)),
		zap.Stringer("kind", update.Kind))

	d.HandleUpdate(d.workCtx, update)
}
