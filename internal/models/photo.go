package models

import "time"

// ProfilePhoto is one image in a user's gallery, hosted on Cloudinary.
type ProfilePhoto struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UserID       uint      `gorm:"not null;index" json:"user_id"`
	URL          string    `gorm:"size:512;not null" json:"url"`
	ThumbnailURL string    `gorm:"size:512" json:"thumbnail_url"`
	PublicID     string    `gorm:"size:255" json:"-"` // Cloudinary asset id, used for deletion
	IsMain       bool      `gorm:"not null;default:false" json:"is_main"`
	Position     int       `gorm:"not null;default:0" json:"position"`
	CreatedAt    time.Time `json:"created_at"`
}

func (ProfilePhoto) TableName() string {
	return "profile_photos"
}
