package dto

import "time"

// WalletSyncStatus ... Per-wallet balance refresh recency contributing to an
// asset position's staleness flag.
type WalletSyncStatus struct {
	Address      string     `json:"address"`
	Role         string     `json:"role"`
	LastSyncedAt *time.Time `json:"lastSyncedAt"`
	Stale        bool       `json:"stale"`
}

// AssetPosition ... Point-in-time reconciliation for one asset. All amounts are
// integer base units serialized as decimal strings; Delta is signed and never
// rounded. Positions are emitted in alphabetical asset order.
type AssetPosition struct {
	Network         string             `json:"network"`
	AssetSymbol     string             `json:"assetSymbol"`
	Custodied       string             `json:"custodied"`
	LedgerLiability string             `json:"ledgerLiability"`
	Delta           string             `json:"delta"`
	Stale           bool               `json:"stale"`
	Wallets         []WalletSyncStatus `json:"wallets"`
}

// TreasurySnapshot ... Reconciliation of ledger liabilities against custodied
// on-chain assets. A stale position must not be treated as authoritative.
type TreasurySnapshot struct {
	GeneratedAt time.Time       `json:"generatedAt"`
	PerAsset    []AssetPosition `json:"perAsset"`
}
