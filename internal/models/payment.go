package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Payment is a checkout started by the user. It only moves out of PENDING when
// a signed provider callback arrives.
type Payment struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	UserID      uint           `gorm:"not null;index" json:"user_id"`
	Reference   string         `gorm:"size:64;uniqueIndex;not null" json:"reference"`
	PackageID   string         `gorm:"size:40;not null" json:"package_id"`
	Kind        string         `gorm:"size:20;not null" json:"kind"` // CRUSHES, SUBSCRIPTION
	AmountCents int64          `gorm:"not null" json:"amount_cents"`
	Currency    string         `gorm:"size:3;default:'USD'" json:"currency"`
	Provider    string         `gorm:"size:50;not null" json:"provider"`
	ProviderRef string         `gorm:"size:255;index" json:"provider_ref"`
	Status      string         `gorm:"size:20;not null;index" json:"status"` // PENDING, COMPLETED, FAILED
	CheckoutURL string         `gorm:"size:512" json:"checkout_url,omitempty"`
	Metadata    datatypes.JSON `json:"metadata,omitempty"`
	CompletedAt *time.Time     `json:"completed_at"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Payment) TableName() string {
	return "payments"
}
