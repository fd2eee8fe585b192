package model

import (
	uuid "github.com/satori/go.uuid"
)

// UserBalance ... Recorded ledger liability rows maintained by the accounting
// collaborator. Balances are integer base units stored as decimal strings; the
// reconciliation service sums them with big integers, never floats.
type UserBalance struct {
	BaseModel
	UserID      uuid.UUID `gorm:"type:VARCHAR(36);not null;index" json:"user_id"`
	Network     string    `gorm:"type:VARCHAR(30);not null" json:"network"`
	AssetSymbol string    `gorm:"type:VARCHAR(30);not null;index" json:"asset_symbol"`
	Balance     string    `gorm:"type:VARCHAR(80);not null" json:"balance"`
}
