package services

import (
	"context"
	"math/big"
	"sort"
	"time"

	"custody-engine/chain"
	Config "custody-engine/config"
	"custody-engine/database"
	"custody-engine/dto"
	"custody-engine/model"
	"custody-engine/utility/cache"
	"custody-engine/utility/logger"
	"custody-engine/utility/retry"
)

//TreasuryService object
type TreasuryService struct {
	Cache      *cache.Memory
	Config     Config.Data
	Repository database.IWalletRepository
	Registry   *chain.Registry
}

func NewTreasuryService(cache *cache.Memory, config Config.Data, repository database.IWalletRepository,
	registry *chain.Registry) *TreasuryService {
	return &TreasuryService{
		Cache:      cache,
		Config:     config,
		Repository: repository,
		Registry:   registry,
	}
}

// ComputeSnapshot ... Builds a point-in-time treasury position per custodied
// asset: total on-chain balance across hot and deposit wallets against the
// recorded user ledger liability. A node outage never blanks a position; the
// last cached balance is used instead and the position is flagged stale.
func (service *TreasuryService) ComputeSnapshot(ctx context.Context) (dto.TreasurySnapshot, error) {
	hotWallets := []model.Wallet{}
	if err := service.Repository.FetchActiveHotWallets(&hotWallets); err != nil {
		return dto.TreasurySnapshot{}, err
	}

	snapshot := dto.TreasurySnapshot{
		GeneratedAt: time.Now(),
		PerAsset:    make([]dto.AssetPosition, 0, len(hotWallets)),
	}
	for _, hotWallet := range hotWallets {
		position, err := service.assetPosition(ctx, hotWallet)
		if err != nil {
			return dto.TreasurySnapshot{}, err
		}
		snapshot.PerAsset = append(snapshot.PerAsset, position)
	}

	// Deterministic ordering for diffable snapshot output.
	sort.Slice(snapshot.PerAsset, func(i, j int) bool {
		left, right := snapshot.PerAsset[i], snapshot.PerAsset[j]
		if left.Network != right.Network {
			return left.Network < right.Network
		}
		return left.AssetSymbol < right.AssetSymbol
	})
	return snapshot, nil
}

func (service *TreasuryService) assetPosition(ctx context.Context, hotWallet model.Wallet) (dto.AssetPosition, error) {
	adapter, err := service.Registry.AdapterFor(hotWallet.Network)
	if err != nil {
		return dto.AssetPosition{}, err
	}

	wallets := []model.Wallet{}
	if err := service.Repository.FetchActiveDepositWallets(hotWallet.Network, hotWallet.AssetSymbol, &wallets); err != nil {
		return dto.AssetPosition{}, err
	}
	wallets = append([]model.Wallet{hotWallet}, wallets...)

	position := dto.AssetPosition{
		Network:     hotWallet.Network,
		AssetSymbol: hotWallet.AssetSymbol,
		Wallets:     make([]dto.WalletSyncStatus, 0, len(wallets)),
	}
	custodied := big.NewInt(0)
	stalenessThreshold := time.Duration(service.Config.StalenessThresholdSeconds) * time.Second

	for _, wallet := range wallets {
		balance, syncedAt, stale := service.walletBalance(ctx, adapter, wallet)
		custodied.Add(custodied, balance)
		if stale {
			position.Stale = true
		}
		if syncedAt != nil && stalenessThreshold > 0 && time.Since(*syncedAt) > stalenessThreshold {
			stale = true
			position.Stale = true
		}
		position.Wallets = append(position.Wallets, dto.WalletSyncStatus{
			Address:      wallet.Address,
			Role:         wallet.Role,
			LastSyncedAt: syncedAt,
			Stale:        stale,
		})
	}

	liability, err := service.ledgerLiability(hotWallet.Network, hotWallet.AssetSymbol)
	if err != nil {
		return dto.AssetPosition{}, err
	}

	position.Custodied = custodied.String()
	position.LedgerLiability = liability.String()
	position.Delta = new(big.Int).Sub(custodied, liability).String()
	return position, nil
}

// walletBalance returns the live balance when the node answers, falling back
// to the last cached value otherwise. The returned sync time is what feeds
// the staleness flag.
func (service *TreasuryService) walletBalance(ctx context.Context, adapter chain.Adapter, wallet model.Wallet) (*big.Int, *time.Time, bool) {
	var balance *big.Int
	err := retry.Do(ctx, service.Config.MaxRetryAttempts,
		time.Duration(service.Config.RetryBaseDelayMs)*time.Millisecond, func() error {
			var balanceErr error
			balance, balanceErr = adapter.GetBalance(ctx, wallet.Address)
			return balanceErr
		})
	if err == nil {
		now := time.Now()
		if touchErr := service.Repository.TouchBalanceSync(wallet.Address, now); touchErr != nil {
			logger.Warning("Could not record balance sync for %s : %s", wallet.Address, touchErr)
		}
		service.Cache.Set(balanceCacheKey(wallet.Network, wallet.Address), balance.String(), true)
		return balance, &now, false
	}

	logger.Warning("Falling back to cached balance for %s on %s : %s", wallet.Address, wallet.Network, err)
	if cached := service.Cache.Get(balanceCacheKey(wallet.Network, wallet.Address)); cached != nil {
		if value, ok := new(big.Int).SetString(cached.(string), 10); ok {
			return value, wallet.LastBalanceSync, true
		}
	}
	return big.NewInt(0), wallet.LastBalanceSync, true
}

// ledgerLiability sums the recorded user balance rows in Go rather than SQL so
// amounts beyond 64 bits cannot overflow or round.
func (service *TreasuryService) ledgerLiability(network, assetSymbol string) (*big.Int, error) {
	balances := []model.UserBalance{}
	if err := service.Repository.FetchUserBalances(network, assetSymbol, &balances); err != nil {
		return nil, err
	}
	total := big.NewInt(0)
	for _, userBalance := range balances {
		value, ok := new(big.Int).SetString(userBalance.Balance, 10)
		if !ok {
			logger.Error("Skipping malformed ledger balance %s for user %s", userBalance.Balance, userBalance.UserID)
			continue
		}
		total.Add(total, value)
	}
	return total, nil
}
