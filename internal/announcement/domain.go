package announcement

import (
	"errors"
	"strings"
	"time"

	"announcebot-api/internal/common"
)

// ErrNotFound is returned when no announcement exists for an ID
var ErrNotFound = errors.New("announcement not found")

// Announcement is a stored body broadcast to every user on each tick
type Announcement struct {
	ID        common.ID `gorm:"column:id;type:varchar(36);primaryKey" json:"id"`
	Body      string    `gorm:"column:body;type:text;not null" json:"body"`
	CreatedAt time.Time `gorm:"column:created_at;not null" json:"created_at"`
}

// TableName returns the table name for the Announcement model
func (Announcement) TableName() string {
	return "announcements"
}

// New builds an announcement with a fresh ID
func New(body string, now time.Time) (*Announcement, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, common.ValidationError{Field: "body", Message: "must not be empty"}
	}
	return &Announcement{
		ID:        common.NewID(),
		Body:      body,
		CreatedAt: now.UTC(),
	}, nil
}
