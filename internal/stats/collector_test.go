package stats

import (
	"testing"
	"time"

	"announcebot-api/internal/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewCollector_Subscribes(t *testing.T) {
	bus := events.NewMockEventBus()
	NewCollector(bus, zap.NewNop())

	for _, topic := range []string{
		events.TopicUserRegistered,
		events.TopicUserUnregistered,
		events.TopicCommandHandled,
		events.TopicConfirmationResolved,
		events.TopicBroadcastCompleted,
	} {
		assert.Equal(t, 1, bus.GetSubscriberCount(topic), topic)
	}
}

func TestCollector_CountsEvents(t *testing.T) {
	bus := events.NewMockEventBus()
	collector := NewCollector(bus, zap.NewNop())

	require.NoError(t, bus.Publish(events.TopicUserRegistered, events.UserRegistered{Event: events.NewEvent(), ChatID: 42}))
	require.NoError(t, bus.Publish(events.TopicUserRegistered, events.UserRegistered{Event: events.NewEvent(), ChatID: 7}))
	require.NoError(t, bus.Publish(events.TopicUserUnregistered, events.UserUnregistered{Event: events.NewEvent(), ChatID: 7}))
	require.NoError(t, bus.Publish(events.TopicCommandHandled, events.CommandHandled{Event: events.NewEvent(), ChatID: 42, Command: "/start"}))
	require.NoError(t, bus.Publish(events.TopicCommandHandled, events.CommandHandled{Event: events.NewEvent(), ChatID: 42, Command: ""}))
	require.NoError(t, bus.Publish(events.TopicConfirmationResolved, events.ConfirmationResolved{Event: events.NewEvent(), ChatID: 42, Answer: "NO_BUTTON"}))

	at := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, bus.Publish(events.TopicBroadcastCompleted, events.BroadcastCompleted{
		Event:     events.Event{Timestamp: at},
		Source:    events.SourceSchedule,
		Attempted: 4,
		Delivered: 3,
		Failed:    1,
	}))
	require.NoError(t, bus.Publish(events.TopicBroadcastCompleted, events.BroadcastCompleted{
		Event:     events.Event{Timestamp: at.Add(time.Minute)},
		Source:    events.SourceChat,
		Attempted: 2,
		Delivered: 2,
	}))
	require.Empty(t, bus.Errors())

	snap := collector.Snapshot()
	assert.Equal(t, int64(2), snap.UsersRegistered)
	assert.Equal(t, int64(1), snap.UsersUnregistered)
	assert.Equal(t, map[string]int64{"/start": 1, "unknown": 1}, snap.Commands)
	assert.Equal(t, map[string]int64{"NO_BUTTON": 1}, snap.Confirmations)
	assert.Equal(t, int64(2), snap.Broadcasts)
	assert.Equal(t, int64(5), snap.MessagesDelivered)
	assert.Equal(t, int64(1), snap.MessagesFailed)
	require.NotNil(t, snap.LastBroadcast)
	assert.Equal(t, events.SourceChat, snap.LastBroadcast.Source)
	assert.Equal(t, at.Add(time.Minute), snap.LastBroadcast.At)
}

func TestCollector_SnapshotIsACopy(t *testing.T) {
	bus := events.NewMockEventBus()
	collector := NewCollector(bus, zap.NewNop())
	require.NoError(t, bus.Publish(events.TopicCommandHandled, events.CommandHandled{Command: "/help"}))

	snap := collector.Snapshot()
	snap.Commands["/help"] = 100

	assert.Equal(t, int64(1), collector.Snapshot().Commands["/help"])
}

func TestCollector_WithRealBus(t *testing.T) {
	bus := events.NewEventBus(zap.NewNop())
	collector := NewCollector(bus, zap.NewNop())

	require.NoError(t, bus.Publish(events.TopicUserRegistered, events.UserRegistered{Event: events.NewEvent(), ChatID: 42}))
	// Close waits for async handlers
	require.NoError(t, bus.Close())

	assert.Equal(t, int64(1), collector.Snapshot().UsersRegistered)
}
