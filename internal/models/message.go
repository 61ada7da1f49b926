package models

import "time"

type Message struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	ConversationID string     `gorm:"size:41;not null;index:idx_msg_conv,priority:1" json:"conversation_id"`
	SenderID       uint       `gorm:"not null;index" json:"sender_id"`
	ReceiverID     uint       `gorm:"not null;index" json:"receiver_id"`
	Content        string     `gorm:"type:text" json:"content"`
	ImageURL       string     `gorm:"size:512" json:"image_url,omitempty"`
	Read           bool       `gorm:"not null;default:false" json:"read"`
	ReadAt         *time.Time `json:"read_at"`
	Deleted        bool       `gorm:"not null;default:false" json:"deleted"`
	SentAt         time.Time  `gorm:"not null;index:idx_msg_conv,priority:2" json:"sent_at"`
}

func (Message) TableName() string {
	return "messages"
}

// Redacted hides the body of deleted messages while keeping their place in the thread.
func (m Message) Redacted() Message {
	if m.Deleted {
		m.Content = ""
		m.ImageURL = ""
	}
	return m
}
