package dto

import (
	uuid "github.com/satori/go.uuid"
)

// SweepRequest ... Engine-level sweep request. DustThreshold is an integer
// amount in the chain's base units (wei, satoshi, drop, lamport) serialized as
// a decimal string; the admin boundary converts display values before building
// this request.
type SweepRequest struct {
	Network          string    `json:"network" validate:"required"`
	AssetSymbol      string    `json:"assetSymbol" validate:"required"`
	HotWalletAddress string    `json:"hotWalletAddress" validate:"required"`
	DustThreshold    string    `json:"dustThreshold" validate:"required,numeric"`
	DryRun           bool      `json:"dryRun"`
	InitiatorID      uuid.UUID `json:"initiatorId"`
}

// SweptWallet ... Outcome for a single deposit wallet, in scan order.
type SweptWallet struct {
	Address string `json:"address"`
	Status  string `json:"status"`
	Amount  string `json:"amount"`
	TxHash  string `json:"txHash"`
	Error   string `json:"error,omitempty"`
}

// SweepResult ... Aggregate outcome of one sweep invocation. TotalAmount is in
// base units, serialized as a decimal string to avoid precision loss.
type SweepResult struct {
	Network     string        `json:"network"`
	AssetSymbol string        `json:"assetSymbol"`
	Status      string        `json:"status"`
	TotalAmount string        `json:"totalAmount"`
	WalletCount int           `json:"walletCount"`
	DryRun      bool          `json:"dryRun"`
	Processed   []SweptWallet `json:"processed"`
}
