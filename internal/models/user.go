package models

import (
	"time"

	"fitcrush/internal/domain"

	"gorm.io/gorm"
)

type User struct {
	ID                 uint       `gorm:"primaryKey" json:"id"`
	Username           string     `gorm:"uniqueIndex;size:64;not null" json:"username"`
	Email              string     `gorm:"uniqueIndex;size:255;not null" json:"email"`
	PasswordHash       string     `gorm:"size:255" json:"-"`
	GoogleID           *string    `gorm:"uniqueIndex;size:255" json:"-"` // nil for email signups (avoids duplicate '' on unique index)
	DateOfBirth        *time.Time `json:"date_of_birth"`
	ReferralCode       string     `gorm:"uniqueIndex;size:16" json:"referral_code"`
	ReferredByID       *uint      `gorm:"index" json:"-"`
	FCMToken           string     `gorm:"size:512" json:"-"`
	EmailNotifications bool       `gorm:"not null;default:true" json:"email_notifications"`
	LastActiveAt       time.Time  `gorm:"index" json:"last_active_at"`

	// Fitness profile
	DisplayName   string `gorm:"size:64" json:"display_name"`
	Bio           string `gorm:"type:text" json:"bio"`
	Gender        string `gorm:"size:10;index" json:"gender"`
	InterestedIn  string `gorm:"size:10;default:'EVERYONE'" json:"interested_in"`
	City          string `gorm:"size:100;index" json:"city"`
	Gym           string `gorm:"size:120" json:"gym"`
	FitnessGoals  string `gorm:"size:255" json:"fitness_goals"`
	WorkoutStyles string `gorm:"size:255" json:"workout_styles"` // comma-separated, see domain.WorkoutStyles
	ActivityLevel string `gorm:"size:20" json:"activity_level"`
	HeightCm      int    `json:"height_cm"`
	MainPhotoURL  string `gorm:"size:512" json:"main_photo_url"`

	// Crush ledger; only the ledger repository writes these columns.
	CrushBalance          int        `gorm:"not null;default:5" json:"crush_balance"`
	SubscriptionActive    bool       `gorm:"not null;default:false" json:"subscription_active"`
	SubscriptionPlan      string     `gorm:"size:40" json:"subscription_plan"`
	SubscriptionPeriodEnd *time.Time `json:"subscription_period_end"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Photos []ProfilePhoto `gorm:"foreignKey:UserID" json:"photos,omitempty"`
}

// Age returns age in years from DOB (caller must ensure DOB is set).
func (u *User) Age(t time.Time) int {
	if u.DateOfBirth == nil {
		return 0
	}
	return domain.AgeOn(*u.DateOfBirth, t)
}

func (u *User) Tier(now time.Time) domain.Tier {
	return domain.TierFor(u.SubscriptionActive, u.SubscriptionPeriodEnd, now)
}

// Name is what other users see.
func (u *User) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Username
}

// PublicProfile is the lightweight summary shared with other users. It never
// carries email or credentials.
type PublicProfile struct {
	ID            uint   `json:"id"`
	Username      string `json:"username"`
	DisplayName   string `json:"display_name"`
	Age           int    `json:"age,omitempty"`
	Gender        string `json:"gender,omitempty"`
	City          string `json:"city,omitempty"`
	Gym           string `json:"gym,omitempty"`
	Bio           string `json:"bio,omitempty"`
	FitnessGoals  string `json:"fitness_goals,omitempty"`
	WorkoutStyles string `json:"workout_styles,omitempty"`
	ActivityLevel string `json:"activity_level,omitempty"`
	MainPhotoURL  string `json:"main_photo_url,omitempty"`
}

func (u *User) Public(now time.Time) PublicProfile {
	return PublicProfile{
		ID:            u.ID,
		Username:      u.Username,
		DisplayName:   u.Name(),
		Age:           u.Age(now),
		Gender:        u.Gender,
		City:          u.City,
		Gym:           u.Gym,
		Bio:           u.Bio,
		FitnessGoals:  u.FitnessGoals,
		WorkoutStyles: u.WorkoutStyles,
		ActivityLevel: u.ActivityLevel,
		MainPhotoURL:  u.MainPhotoURL,
	}
}
