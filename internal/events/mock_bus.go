package events

import (
	"fmt"
	"reflect"
	"sync"
)

// MockEventBus records every published event and delivers it synchronously,
// including to SubscribeAsync handlers, so tests can assert right after Publish.
type MockEventBus struct {
	mu        sync.Mutex
	handlers  map[string][]reflect.Value
	published map[string][]interface{}
	panics    []error
	failWith  error
}

func NewMockEventBus() *MockEventBus {
	return &MockEventBus{
		handlers:  make(map[string][]reflect.Value),
		published: make(map[string][]interface{}),
	}
}

func (m *MockEventBus) Subscribe(topic string, handler interface{}) error {
	fn := reflect.ValueOf(handler)
	if fn.Kind() != reflect.Func {
		return fmt.Errorf("handler for %q must be a func, got %T", topic, handler)
	}
	m.mu.Lock()
	m.handlers[topic] = append(m.handlers[topic], fn)
	m.mu.Unlock()
	return nil
}

func (m *MockEventBus) SubscribeAsync(topic string, handler interface{}) error {
	return m.Subscribe(topic, handler)
}

func (m *MockEventBus) Unsubscribe(topic string, handler interface{}) error {
	target := reflect.ValueOf(handler).Pointer()

	m.mu.Lock()
	defer m.mu.Unlock()
	var kept []reflect.Value
	for _, fn := range m.handlers[topic] {
		if fn.Pointer() != target {
			kept = append(kept, fn)
		}
	}
	m.handlers[topic] = kept
	return nil
}

func (m *MockEventBus) Publish(topic string, event interface{}) error {
	m.mu.Lock()
	if m.failWith != nil {
		defer m.mu.Unlock()
		return m.failWith
	}
	m.published[topic] = append(m.published[topic], event)
	targets := append([]reflect.Value(nil), m.handlers[topic]...)
	m.mu.Unlock()

	for _, fn := range targets {
		m.deliver(fn, event)
	}
	return nil
}

func (m *MockEventBus) Close() error {
	m.mu.Lock()
	m.handlers = make(map[string][]reflect.Value)
	m.mu.Unlock()
	return nil
}

// FailPublish makes every later Publish return err; nil restores delivery.
func (m *MockEventBus) FailPublish(err error) {
	m.mu.Lock()
	m.failWith = err
	m.mu.Unlock()
}

func (m *MockEventBus) GetPublishedEvents(topic string) []interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]interface{}{}, m.published[topic]...)
}

func (m *MockEventBus) GetSubscriberCount(topic string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.handlers[topic])
}

// Errors lists handler panics recovered during delivery.
func (m *MockEventBus) Errors() []error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]error(nil), m.panics...)
}

func (m *MockEventBus) deliver(fn reflect.Value, event interface{}) {
	defer func() {
		if r := recover(); r != nil {
			m.mu.Lock()
			m.panics = append(m.panics, fmt.Errorf("handler panic: %v", r))
			m.mu.Unlock()
		}
	}()

	in := fn.Type()
	if in.NumIn() != 1 || !reflect.TypeOf(event).AssignableTo(in.In(0)) {
		panic(fmt.Sprintf("cannot deliver %T to %s", event, in))
	}
	fn.Call([]reflect.Value{reflect.ValueOf(event)})
}
