package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	OutboxPending = "PENDING"
	OutboxSent    = "SENT"
	OutboxFailed  = "FAILED"
)

// OutboxEvent is a notification waiting for the dispatcher. It is written in the
// same transaction as the state change that caused it.
type OutboxEvent struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	EventID       string         `gorm:"size:26;uniqueIndex;not null" json:"event_id"` // ULID
	Type          string         `gorm:"size:40;not null" json:"type"`
	UserID        uint           `gorm:"not null;index" json:"user_id"` // recipient of the notification
	Payload       datatypes.JSON `gorm:"not null" json:"payload"`
	Status        string         `gorm:"size:10;not null;default:'PENDING';index:idx_outbox_due,priority:1" json:"status"`
	RetryCount    int            `gorm:"not null;default:0" json:"retry_count"`
	LastError     string         `gorm:"size:512" json:"last_error,omitempty"`
	NextAttemptAt time.Time      `gorm:"not null;index:idx_outbox_due,priority:2" json:"next_attempt_at"`
	CreatedAt     time.Time      `json:"created_at"`
	SentAt        *time.Time     `json:"sent_at"`
}

func (OutboxEvent) TableName() string {
	return "outbox_events"
}
