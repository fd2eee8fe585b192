package database

import (
	"time"

	"custody-engine/model"
	"custody-engine/utility/constants"
	"custody-engine/utility/logger"
)

// IWalletRepository ... Interface definition for wallet lifecycle store access
type IWalletRepository interface {
	IRepository
	GetActiveHotWallet(network, assetSymbol string, wallet *model.Wallet) error
	FetchActiveDepositWallets(network, assetSymbol string, wallets *[]model.Wallet) error
	FetchActiveHotWallets(wallets *[]model.Wallet) error
	NextDerivationIndex(network string) (int64, error)
	FetchUserBalances(network, assetSymbol string, balances *[]model.UserBalance) error
	TouchBalanceSync(address string, syncedAt time.Time) error
}

// WalletRepository ... Wallet lifecycle store over the base repository
type WalletRepository struct {
	BaseRepository
}

// GetActiveHotWallet ... Retrieves the single ACTIVE hot wallet for a
// (network, asset symbol) pair. The unique index on the wallets table
// guarantees at most one such row exists.
func (repo *WalletRepository) GetActiveHotWallet(network, assetSymbol string, wallet *model.Wallet) error {
	return repo.GetByFieldName(&model.Wallet{
		Network:     network,
		AssetSymbol: assetSymbol,
		Role:        constants.WALLET_ROLE_HOT,
		Status:      constants.WALLET_STATUS_ACTIVE,
	}, wallet)
}

// FetchActiveDepositWallets ... Retrieves all ACTIVE deposit wallets for a
// (network, asset symbol) pair in derivation-index order, so sweep scans are
// stable and reproducible for audit.
func (repo *WalletRepository) FetchActiveDepositWallets(network, assetSymbol string, wallets *[]model.Wallet) error {
	if err := repo.DB.Where(&model.Wallet{
		Network:     network,
		AssetSymbol: assetSymbol,
		Role:        constants.WALLET_ROLE_DEPOSIT,
		Status:      constants.WALLET_STATUS_ACTIVE,
	}).Order("derivation_index asc").Find(wallets).Error; err != nil {
		logger.Error("Error with repository FetchActiveDepositWallets : %s", err)
		return repoError(err)
	}
	return nil
}

// FetchActiveHotWallets ... Retrieves every ACTIVE hot wallet across all
// networks, one per custodied asset.
func (repo *WalletRepository) FetchActiveHotWallets(wallets *[]model.Wallet) error {
	if err := repo.DB.Where(&model.Wallet{
		Role:   constants.WALLET_ROLE_HOT,
		Status: constants.WALLET_STATUS_ACTIVE,
	}).Order("asset_symbol asc").Find(wallets).Error; err != nil {
		logger.Error("Error with repository FetchActiveHotWallets : %s", err)
		return repoError(err)
	}
	return nil
}

// NextDerivationIndex ... Advances and returns the per-network derivation
// counter inside its own transaction. The counter moves forward before any key
// is derived, so an index is never reused even when derivation or persistence
// fails afterwards. Callers must hold the per-network lock.
func (repo *WalletRepository) NextDerivationIndex(network string) (int64, error) {
	counter := model.DerivationCounter{LastIndex: -1}
	if err := repo.FindOrCreate(&model.DerivationCounter{Network: network}, &counter); err != nil {
		return 0, err
	}
	next := counter.LastIndex + 1
	tx := NewTx(repo.DB)
	if err := tx.Update(&counter, map[string]interface{}{"last_index": next}).Commit(); err != nil {
		logger.Error("Error with repository NextDerivationIndex : %s", err)
		return 0, err
	}
	return next, nil
}

// FetchUserBalances ... Retrieves recorded ledger liability rows for an asset.
func (repo *WalletRepository) FetchUserBalances(network, assetSymbol string, balances *[]model.UserBalance) error {
	return repo.FetchByFieldName(&model.UserBalance{Network: network, AssetSymbol: assetSymbol}, balances)
}

// TouchBalanceSync ... Records when a wallet's on-chain balance was last
// refreshed; feeds the treasury snapshot staleness flags.
func (repo *WalletRepository) TouchBalanceSync(address string, syncedAt time.Time) error {
	if err := repo.DB.Model(&model.Wallet{}).Where("address = ?", address).
		Update("last_balance_sync", &syncedAt).Error; err != nil {
		logger.Error("Error with repository TouchBalanceSync : %s", err)
		return repoError(err)
	}
	return nil
}
