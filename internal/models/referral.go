package models

import "time"

// Referral records who invited whom. A user can only be referred once and the
// referrer is credited BonusCrushes when the invitee signs up.
type Referral struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	ReferrerID     uint      `gorm:"not null;index" json:"referrer_id"`
	ReferredUserID uint      `gorm:"uniqueIndex;not null" json:"referred_user_id"`
	BonusCrushes   int       `gorm:"not null;default:0" json:"bonus_crushes"`
	CreatedAt      time.Time `json:"created_at"`
}

func (Referral) TableName() string { return "referrals" }
