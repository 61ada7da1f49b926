package models

import "time"

// OutboundEdge is one directional crush as seen by the sender. The unique pair
// index is the idempotency key for sends.
type OutboundEdge struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	FromUserID uint      `gorm:"not null;uniqueIndex:idx_outbound_pair,priority:1" json:"from_user_id"`
	ToUserID   uint      `gorm:"not null;uniqueIndex:idx_outbound_pair,priority:2" json:"to_user_id"`
	SentAt     time.Time `gorm:"not null" json:"sent_at"`
}

func (OutboundEdge) TableName() string {
	return "interest_outbound"
}

// InboundEdge mirrors an OutboundEdge on the recipient's side. Both rows are
// written in the same database transaction.
type InboundEdge struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	ToUserID   uint      `gorm:"not null;uniqueIndex:idx_inbound_pair,priority:1" json:"to_user_id"`
	FromUserID uint      `gorm:"not null;uniqueIndex:idx_inbound_pair,priority:2" json:"from_user_id"`
	SentAt     time.Time `gorm:"not null" json:"sent_at"`
}

func (InboundEdge) TableName() string {
	return "interest_inbound"
}
