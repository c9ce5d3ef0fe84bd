package stats

import (
	"sync"
	"time"

	"announcebot-api/internal/events"

	"go.uber.org/zap"
)

// BroadcastSummary is the outcome of the latest fan-out
type BroadcastSummary struct {
	Source    string        `json:"source"`
	Attempted int           `json:"attempted"`
	Delivered int           `json:"delivered"`
	Failed    int           `json:"failed"`
	Duration  time.Duration `json:"duration"`
	At        time.Time     `json:"at"`
}

// Snapshot is a point-in-time copy of the collected counters
type Snapshot struct {
	UsersRegistered   int64             `json:"users_registered"`
	UsersUnregistered int64             `json:"users_unregistered"`
	Commands          map[string]int64  `json:"commands"`
	Confirmations     map[string]int64  `json:"confirmations"`
	Broadcasts        int64             `json:"broadcasts"`
	MessagesDelivered int64             `json:"messages_delivered"`
	MessagesFailed    int64             `json:"messages_failed"`
	LastBroadcast     *BroadcastSummary `json:"last_broadcast,omitempty"`
}

// Collector aggregates domain events into counters for the admin API
type Collector struct {
	eventBus events.EventBus
	logger   *zap.Logger

	mu       sync.RWMutex
	snapshot Snapshot
}

// unknownCommand labels messages that matched no command
const unknownCommand = "unknown"

// NewCollector creates a Collector and subscribes it to the event bus
func NewCollector(eventBus events.EventBus, logger *zap.Logger) *Collector {
	c := &Collector{
		eventBus: eventBus,
		logger:   logger,
		snapshot: Snapshot{
			Commands:      make(map[string]int64),
			Confirmations: make(map[string]int64),
		},
	}

	c.setupEventSubscriptions()
	return c
}

func (c *Collector) setupEventSubscriptions() {
	subscriptions := map[string]interface{}{
		events.TopicUserRegistered:       c.handleUserRegistered,
		events.TopicUserUnregistered:     c.handleUserUnregistered,
		events.TopicCommandHandled:       c.handleCommandHandled,
		events.TopicConfirmationResolved: c.handleConfirmationResolved,
		events.TopicBroadcastCompleted:   c.handleBroadcastCompleted,
	}

	for topic, handler := range subscriptions {
		if err := c.eventBus.SubscribeAsync(topic, handler); err != nil {
			c.logger.Error("Failed to subscribe to events", zap.String("topic", topic), zap.Error(err))
		}
	}
}

func (c *Collector) handleUserRegistered(events.UserRegistered) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshot.UsersRegistered++
}

func (c *Collector) handleUserUnregistered(events.UserUnregistered) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshot.UsersUnregistered++
}

func (c *Collector) handleCommandHandled(event events.CommandHandled) {
	command := event.Command
	if command == "" {
		command = unknownCommand
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshot.Commands[command]++
}

func (c *Collector) handleConfirmationResolved(event events.ConfirmationResolved) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshot.Confirmations[event.Answer]++
}

func (c *Collector) handleBroadcastCompleted(event events.BroadcastCompleted) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.snapshot.Broadcasts++
	c.snapshot.MessagesDelivered += int64(event.Delivered)
	c.snapshot.MessagesFailed += int64(event.Failed)
	c.snapshot.LastBroadcast = &BroadcastSummary{
		Source:    event.Source,
		Attempted: event.Attempted,
		Delivered: event.Delivered,
		Failed:    event.Failed,
		Duration:  event.Duration,
		At:        event.Timestamp,
	}
}

// Snapshot returns a copy that callers may keep and mutate
func (c *Collector) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := c.snapshot
	out.Commands = make(map[string]int64, len(c.snapshot.Commands))
	for k, v := range c.snapshot.Commands {
		out.Commands[k] = v
	}
	out.Confirmations = make(map[string]int64, len(c.snapshot.Confirmations))
	for k, v := range c.snapshot.Confirmations {
		out.Confirmations[k] = v
	}
	if c.snapshot.LastBroadcast != nil {
		last := *c.snapshot.LastBroadcast
		out.LastBroadcast = &last
	}
	return out
}
