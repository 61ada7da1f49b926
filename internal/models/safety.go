package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Block hides two users from each other in both directions. Unblocking deletes
// the row so the pair can be blocked again.
type Block struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	BlockerID uint      `gorm:"not null;uniqueIndex:idx_block_pair,priority:1" json:"blocker_id"`
	BlockedID uint      `gorm:"not null;uniqueIndex:idx_block_pair,priority:2;index" json:"blocked_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (Block) TableName() string {
	return "blocks"
}

type Report struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	ReporterID uint           `gorm:"not null;index" json:"reporter_id"`
	ReportedID uint           `gorm:"not null;index" json:"reported_id"`
	Reason     string         `gorm:"size:50" json:"reason"`
	Details    string         `gorm:"type:text" json:"details"`
	Status     string         `gorm:"size:20;default:'PENDING';index" json:"status"` // PENDING, REVIEWED, RESOLVED
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Report) TableName() string {
	return "reports"
}

type AuditLog struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	UserID     *uint          `gorm:"index" json:"user_id"`
	Action     string         `gorm:"size:100;not null;index" json:"action"`
	Resource   string         `gorm:"size:100;index" json:"resource"`
	ResourceID string         `gorm:"size:100;index" json:"resource_id"`
	IP         string         `gorm:"size:45" json:"ip"`
	UserAgent  string         `gorm:"size:512" json:"user_agent"`
	Metadata   datatypes.JSON `json:"metadata,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}
