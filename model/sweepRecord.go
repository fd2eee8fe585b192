package model

import (
	uuid "github.com/satori/go.uuid"
)

// SweepRecord ... Persisted outcome of one sweep invocation for audit. The
// per-wallet breakdown is returned to the caller; this row keeps the totals.
type SweepRecord struct {
	BaseModel
	Network     string    `gorm:"type:VARCHAR(30);not null" json:"network"`
	AssetSymbol string    `gorm:"type:VARCHAR(30);not null" json:"asset_symbol"`
	TotalAmount string    `gorm:"type:VARCHAR(80);not null" json:"total_amount"`
	WalletCount int       `json:"wallet_count"`
	Status      string    `gorm:"type:VARCHAR(20);not null" json:"status"`
	DryRun      bool      `gorm:"default:0" json:"dry_run"`
	InitiatorID uuid.UUID `gorm:"type:VARCHAR(36)" json:"initiator_id"`
}
