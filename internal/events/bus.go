package events

import (
	"errors"
	"sync"

	eventbus "github.com/asaskevich/EventBus"
	"go.uber.org/zap"
)

// ErrBusClosed is returned by every operation after Close.
var ErrBusClosed = errors.New("event bus is closed")

// EventBus carries domain events between the registry, the chatbot, the
// broadcaster and the stats collector.
type EventBus interface {
	Publish(topic string, data interface{}) error
	Subscribe(topic string, handler interface{}) error
	SubscribeAsync(topic string, handler interface{}) error
	Unsubscribe(topic string, handler interface{}) error
	Close() error
}

type eventBus struct {
	bus    eventbus.Bus
	logger *zap.Logger

	mu     sync.RWMutex
	closed bool
}

func NewEventBus(logger *zap.Logger) EventBus {
	return &eventBus{
		bus:    eventbus.New(),
		logger: logger.Named("events"),
	}
}

// open runs fn under the read lock unless the bus has been closed.
func (eb *eventBus) open(fn func() error) error {
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	if eb.closed {
		return ErrBusClosed
	}
	return fn()
}

func (eb *eventBus) Publish(topic string, data interface{}) error {
	return eb.open(func() error {
		if ce := eb.logger.Check(zap.DebugLevel, "Publishing event"); ce != nil {
			ce.Write(zap.String("topic", topic), zap.Any("data", data))
		}
		eb.bus.Publish(topic, data)
		return nil
	})
}

// Subscribe runs handler on the publisher's goroutine.
func (eb *eventBus) Subscribe(topic string, handler interface{}) error {
	return eb.open(func() error {
		eb.logger.Debug("Subscribing to topic", zap.String("topic", topic), zap.Bool("async", false))
		return eb.bus.Subscribe(topic, handler)
	})
}

// SubscribeAsync runs handler on its own goroutine, one at a time per subscription.
func (eb *eventBus) SubscribeAsync(topic string, handler interface{}) error {
	return eb.open(func() error {
		eb.logger.Debug("Subscribing to topic", zap.String("topic", topic), zap.Bool("async", true))
		return eb.bus.SubscribeAsync(topic, handler, false)
	})
}

func (eb *eventBus) Unsubscribe(topic string, handler interface{}) error {
	return eb.open(func() error {
		return eb.bus.Unsubscribe(topic, handler)
	})
}

// Close rejects further calls and blocks until in-flight async handlers return.
// Calling it twice is a no-op.
func (eb *eventBus) Close() error {
	eb.mu.Lock()
	already := eb.closed
	eb.closed = true
	eb.mu.Unlock()

	if already {
		return nil
	}
	eb.logger.Info("Draining async event handlers")
	eb.bus.WaitAsync()
	return nil
}
