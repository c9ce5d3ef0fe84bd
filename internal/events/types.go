package events

import (
	"time"

	"github.com/google/uuid"
)

// Event represents the base event structure with common fields
type Event struct {
	CorrelationID string    `json:"correlation_id"`
	Timestamp     time.Time `json:"timestamp"`
}

// NewEvent creates a new base event with generated correlation ID
func NewEvent() Event {
	return Event{
		CorrelationID: uuid.New().String(),
		Timestamp:     time.Now(),
	}
}

// UserRegistered is published when a new user row was created
type UserRegistered struct {
	Event
	ChatID   int64  `json:"chat_id"`
	UserName string `json:"user_name,omitempty"`
}

// UserUnregistered is published when a user row was deleted
type UserUnregistered struct {
	Event
	ChatID int64 `json:"chat_id"`
}

// CommandHandled is published after the router answered a text message
type CommandHandled struct {
	Event
	ChatID  int64  `json:"chat_id"`
	Command string `json:"command"`
}

// ConfirmationResolved is published when a pending prompt received an answer
type ConfirmationResolved struct {
	Event
	ChatID    int64  `json:"chat_id"`
	MessageID int    `json:"message_id"`
	Answer    string `json:"answer"`
}

// BroadcastCompleted is published when a fan-out finished
type BroadcastCompleted struct {
	Event
	Source    string        `json:"source"`
	Attempted int           `json:"attempted"`
	Delivered int           `json:"delivered"`
	Failed    int           `json:"failed"`
	Duration  time.Duration `json:"duration"`
}

// Event topics constants
const (
	TopicUserRegistered       = "user.registered"
	TopicUserUnregistered     = "user.unregistered"
	TopicCommandHandled       = "command.handled"
	TopicConfirmationResolved = "confirmation.resolved"
	TopicBroadcastCompleted   = "broadcast.completed"
)

// Broadcast sources
const (
	SourceSchedule = "schedule"
	SourceChat     = "chat"
	SourceAdmin    = "admin"
)
