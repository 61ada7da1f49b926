package models

import "time"

// CrushTransaction is an append-only history row. users.crush_balance stays the
// source of truth; BalanceAfter is written in the same transaction.
type CrushTransaction struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UserID       uint      `gorm:"not null;index" json:"user_id"`
	Kind         string    `gorm:"size:30;not null;index" json:"kind"` // see domain.Tx*
	Delta        int       `gorm:"not null" json:"delta"`
	BalanceAfter int       `gorm:"not null" json:"balance_after"`
	Description  string    `gorm:"size:255" json:"description"`
	Reference    string    `gorm:"size:128" json:"reference,omitempty"` // payment reference or recipient id
	CreatedAt    time.Time `gorm:"index" json:"created_at"`
}

func (CrushTransaction) TableName() string {
	return "crush_transactions"
}
