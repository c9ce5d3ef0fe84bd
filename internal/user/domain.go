package user

import (
	"errors"
	"time"

	"announcebot-api/internal/common"
)

// ErrNotFound is returned when no user row exists for a chat
var ErrNotFound = errors.New("user not found")

// User is a registered chat participant. Rows are created once and never
// updated in place.
type User struct {
	ChatID       int64     `gorm:"column:chat_id;primaryKey;autoIncrement:false" json:"chat_id"`
	FirstName    string    `gorm:"column:first_name;type:varchar(255)" json:"first_name,omitempty"`
	LastName     string    `gorm:"column:last_name;type:varchar(255)" json:"last_name,omitempty"`
	UserName     string    `gorm:"column:user_name;type:varchar(255)" json:"user_name,omitempty"`
	RegisteredAt time.Time `gorm:"column:registered_at;not null" json:"registered_at"`
	CanBroadcast bool      `gorm:"column:can_broadcast;not null;default:false" json:"can_broadcast"`
}

// TableName returns the table name for the User model
func (User) TableName() string {
	return "users"
}

// Fields returns the display names captured at registration
func (u User) Fields() common.DisplayFields {
	return common.DisplayFields{
		FirstName: u.FirstName,
		LastName:  u.LastName,
		UserName:  u.UserName,
	}
}
