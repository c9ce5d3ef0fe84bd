package events

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestEventBus_PublishSubscribe(t *testing.T) {
	bus := NewEventBus(zap.NewNop())
	defer bus.Close()

	var received UserRegistered
	err := bus.Subscribe(TopicUserRegistered, func(event UserRegistered) {
		received = event
	})
	require.NoError(t, err)

	err = bus.Publish(TopicUserRegistered, UserRegistered{
		Event:    NewEvent(),
		ChatID:   42,
		UserName: "ann_k",
	})
	require.NoError(t, err)

	// synchronous subscribers run before Publish returns
	assert.Equal(t, int64(42), received.ChatID)
	assert.Equal(t, "ann_k", received.UserName)
}

func TestEventBus_SubscribeAsync(t *testing.T) {
	bus := NewEventBus(zap.NewNop())

	var delivered int32
	err := bus.SubscribeAsync(TopicBroadcastCompleted, func(event BroadcastCompleted) {
		time.Sleep(10 * time.Millisecond)
		atomic.AddInt32(&delivered, int32(event.Delivered))
	})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		require.NoError(t, bus.Publish(TopicBroadcastCompleted, BroadcastCompleted{Event: NewEvent(), Delivered: 2}))
	}

	// Close waits for in-flight async handlers
	require.NoError(t, bus.Close())
	assert.Equal(t, int32(6), atomic.LoadInt32(&delivered))
}

func TestEventBus_ConcurrentAccess(t *testing.T) {
	bus := NewEventBus(zap.NewNop())
	defer bus.Close()

	var count int32
	require.NoError(t, bus.Subscribe(TopicCommandHandled, func(event CommandHandled) {
		atomic.AddInt32(&count, 1)
	}))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			_ = bus.Publish(TopicCommandHandled, CommandHandled{Event: NewEvent(), ChatID: int64(id), Command: "/start"})
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(50), atomic.LoadInt32(&count))
}

func TestEventBus_Unsubscribe(t *testing.T) {
	bus := NewEventBus(zap.NewNop())
	defer bus.Close()

	var count int
	handler := func(event UserUnregistered) { count++ }

	require.NoError(t, bus.Subscribe(TopicUserUnregistered, handler))
	require.NoError(t, bus.Publish(TopicUserUnregistered, UserUnregistered{ChatID: 1}))
	require.NoError(t, bus.Unsubscribe(TopicUserUnregistered, handler))
	require.NoError(t, bus.Publish(TopicUserUnregistered, UserUnregistered{ChatID: 1}))

	assert.Equal(t, 1, count)
}

func TestEventBus_ClosedBus(t *testing.T) {
	bus := NewEventBus(zap.NewNop())
	require.NoError(t, bus.Close())

	handler := func(event interface{}) {}

	err := bus.Publish("test.closed", "event")
	assert.ErrorIs(t, err, ErrBusClosed)

	err = bus.Subscribe("test.closed", handler)
	assert.ErrorIs(t, err, ErrBusClosed)

	err = bus.SubscribeAsync("test.closed", handler)
	assert.ErrorIs(t, err, ErrBusClosed)

	err = bus.Unsubscribe("test.closed", handler)
	assert.ErrorIs(t, err, ErrBusClosed)

	// Closing again should not error
	assert.NoError(t, bus.Close())
}

func TestEventBus_TopicIsolation(t *testing.T) {
	bus := NewEventBus(zap.NewNop())
	defer bus.Close()

	var registered, unregistered int
	require.NoError(t, bus.Subscribe(TopicUserRegistered, func(UserRegistered) { registered++ }))
	require.NoError(t, bus.Subscribe(TopicUserUnregistered, func(UserUnregistered) { unregistered++ }))

	require.NoError(t, bus.Publish(TopicUserRegistered, UserRegistered{ChatID: 7}))

	assert.Equal(t, 1, registered)
	assert.Equal(t, 0, unregistered)
}

func TestMockEventBus(t *testing.T) {
	t.Run("records and delivers", func(t *testing.T) {
		bus := NewMockEventBus()

		var got ConfirmationResolved
		require.NoError(t, bus.Subscribe(TopicConfirmationResolved, func(e ConfirmationResolved) { got = e }))
		require.NoError(t, bus.Publish(TopicConfirmationResolved, ConfirmationResolved{ChatID: 3, MessageID: 9, Answer: "YES"}))

		assert.Equal(t, "YES", got.Answer)
		assert.Len(t, bus.GetPublishedEvents(TopicConfirmationResolved), 1)
		assert.Equal(t, 1, bus.GetSubscriberCount(TopicConfirmationResolved))
	})

	t.Run("rejects non-function handlers", func(t *testing.T) {
		bus := NewMockEventBus()
		assert.Error(t, bus.Subscribe("x", "not a func"))
	})

	t.Run("recovers mismatched handler", func(t *testing.T) {
		bus := NewMockEventBus()
		require.NoError(t, bus.Subscribe("x", func(UserRegistered) {}))
		require.NoError(t, bus.Publish("x", "wrong type"))
		assert.Len(t, bus.Errors(), 1)
	})

	t.Run("forced publish failure", func(t *testing.T) {
		bus := NewMockEventBus()
		bus.FailPublish(assert.AnError)
		assert.ErrorIs(t, bus.Publish("x", 1), assert.AnError)
		assert.Empty(t, bus.GetPublishedEvents("x"))
	})
}
