package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventTypes_CorrelationID(t *testing.T) {
	event1 := NewEvent()
	event2 := NewEvent()

	assert.NotEqual(t, event1.CorrelationID, event2.CorrelationID)

	_, err := uuid.Parse(event1.CorrelationID)
	assert.NoError(t, err)

	assert.False(t, event1.Timestamp.IsZero())
	assert.False(t, event2.Timestamp.Before(event1.Timestamp))
}

func TestEventTypes_Serialization(t *testing.T) {
	tests := []struct {
		name     string
		event    interface{}
		expected map[string]interface{}
	}{
		{
			name:  "user registered",
			event: UserRegistered{Event: NewEvent(), ChatID: 42, UserName: "ann_k"},
			expected: map[string]interface{}{
				"chat_id":   float64(42),
				"user_name": "ann_k",
			},
		},
		{
			name:  "confirmation resolved",
			event: ConfirmationResolved{Event: NewEvent(), ChatID: 42, MessageID: 7, Answer: "NO"},
			expected: map[string]interface{}{
				"chat_id":    float64(42),
				"message_id": float64(7),
				"answer":     "NO",
			},
		},
		{
			name: "broadcast completed",
			event: BroadcastCompleted{
				Event:     NewEvent(),
				Source:    SourceSchedule,
				Attempted: 6,
				Delivered: 5,
				Failed:    1,
				Duration:  time.Second,
			},
			expected: map[string]interface{}{
				"source":    "schedule",
				"attempted": float64(6),
				"delivered": float64(5),
				"failed":    float64(1),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.event)
			require.NoError(t, err)

			var decoded map[string]interface{}
			require.NoError(t, json.Unmarshal(data, &decoded))

			assert.NotEmpty(t, decoded["correlation_id"])
			for key, value := range tt.expected {
				assert.Equal(t, value, decoded[key], key)
			}
		})
	}
}

func TestEventTypes_TopicConstants(t *testing.T) {
	topics := []string{
		TopicUserRegistered,
		TopicUserUnregistered,
		TopicCommandHandled,
		TopicConfirmationResolved,
		TopicBroadcastCompleted,
	}

	seen := make(map[string]bool)
	for _, topic := range topics {
		assert.NotEmpty(t, topic)
		assert.False(t, seen[topic], "duplicate topic %s", topic)
		seen[topic] = true
	}
}
