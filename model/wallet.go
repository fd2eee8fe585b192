package model

import (
	"time"

	uuid "github.com/satori/go.uuid"
)

// Wallet ... Model definition for custodial wallets, both per-user deposit
// addresses and the hot wallets sweeps consolidate into. The unique index on
// (network, asset_symbol, role, status) relies on status moving to RETIRED
// before a replacement hot wallet is activated.
type Wallet struct {
	BaseModel
	Network         string     `gorm:"type:VARCHAR(30);not null;index:idx_network_symbol" json:"network"`
	AssetSymbol     string     `gorm:"type:VARCHAR(30);not null;index:idx_network_symbol" json:"asset_symbol"`
	Address         string     `gorm:"type:VARCHAR(100);not null;unique_index" json:"address"`
	Role            string     `gorm:"type:VARCHAR(20);not null" json:"role"`
	Status          string     `gorm:"type:VARCHAR(20);not null" json:"status"`
	DerivationIndex int64      `gorm:"default:0" json:"derivation_index"`
	UserID          uuid.UUID  `gorm:"type:VARCHAR(36)" json:"user_id"`
	LastBalanceSync *time.Time `json:"last_balance_sync"`
}

// DerivationCounter ... Per-network monotonic allocator for deposit address
// derivation indexes. The counter is advanced before key derivation so an index
// is never handed out twice, even when a later step fails.
type DerivationCounter struct {
	BaseModel
	Network   string `gorm:"type:VARCHAR(30);not null;unique_index" json:"network"`
	LastIndex int64  `gorm:"default:-1" json:"last_index"`
}
