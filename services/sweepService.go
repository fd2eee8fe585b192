package services

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"custody-engine/chain"
	Config "custody-engine/config"
	"custody-engine/database"
	"custody-engine/dto"
	"custody-engine/model"
	"custody-engine/utility/appError"
	"custody-engine/utility/cache"
	"custody-engine/utility/constants"
	"custody-engine/utility/errorcode"
	"custody-engine/utility/logger"
	"custody-engine/utility/retry"

	"github.com/getsentry/sentry-go"
	validator "gopkg.in/go-playground/validator.v9"
)

const sweepLockTTL = 10 * time.Minute

//SweepService object
type SweepService struct {
	Cache         *cache.Memory
	Config        Config.Data
	Repository    database.IWalletRepository
	Registry      *chain.Registry
	Locker        ILocker
	KeyManagement *KeyManagementService
	HotWallet     *HotWalletService
}

func NewSweepService(cache *cache.Memory, config Config.Data, repository database.IWalletRepository,
	registry *chain.Registry, locker ILocker, keyManagement *KeyManagementService, hotWallet *HotWalletService) *SweepService {
	return &SweepService{
		Cache:         cache,
		Config:        config,
		Repository:    repository,
		Registry:      registry,
		Locker:        locker,
		KeyManagement: keyManagement,
		HotWallet:     hotWallet,
	}
}

// Execute ... Runs one sweep over the active deposit wallets of a (network,
// asset) pair, moving every balance above the dust threshold to the active hot
// wallet. Per-wallet failures are isolated; the batch keeps going and reports
// PARTIAL or FAILED instead of aborting. The whole run holds the pair's lock
// so concurrent sweeps of the same asset cannot double-spend.
func (service *SweepService) Execute(ctx context.Context, request dto.SweepRequest) (dto.SweepResult, error) {
	validation := validator.New()
	if err := validation.Struct(request); err != nil {
		return dto.SweepResult{}, appError.New(errorcode.VALIDATION_ERR, err)
	}
	adapter, err := service.Registry.AdapterFor(request.Network)
	if err != nil {
		return dto.SweepResult{}, err
	}
	dustThreshold, ok := new(big.Int).SetString(request.DustThreshold, 10)
	if !ok || dustThreshold.Sign() < 0 {
		return dto.SweepResult{}, appError.New(errorcode.INVALID_AMOUNT,
			fmt.Errorf("dust threshold %s is not a base-unit amount", request.DustThreshold))
	}

	lockKey := LockKey(request.Network, request.AssetSymbol)
	token, err := service.Locker.Acquire(lockKey, sweepLockTTL)
	if err != nil {
		return dto.SweepResult{}, err
	}
	defer func() {
		if releaseErr := service.Locker.Release(lockKey, token); releaseErr != nil {
			logger.Warning("Could not release lock %s : %s", lockKey, releaseErr)
		}
	}()

	hotWallet, err := service.HotWallet.GetActiveHotWallet(request.Network, request.AssetSymbol)
	if err != nil {
		return dto.SweepResult{}, err
	}
	if !strings.EqualFold(hotWallet.Address, request.HotWalletAddress) {
		return dto.SweepResult{}, appError.New(errorcode.NO_ACTIVE_HOT_WALLET,
			fmt.Errorf("requested hot wallet %s is not the active one", request.HotWalletAddress))
	}

	depositWallets := []model.Wallet{}
	if err := service.Repository.FetchActiveDepositWallets(request.Network, request.AssetSymbol, &depositWallets); err != nil {
		return dto.SweepResult{}, err
	}

	result := dto.SweepResult{
		Network:     request.Network,
		AssetSymbol: request.AssetSymbol,
		DryRun:      request.DryRun,
		Processed:   make([]dto.SweptWallet, 0, len(depositWallets)),
	}
	totalSwept := big.NewInt(0)
	sweptCount, failedCount := 0, 0

	for _, wallet := range depositWallets {
		outcome := service.sweepWallet(ctx, adapter, wallet, hotWallet.Address, dustThreshold, request.DryRun)
		result.Processed = append(result.Processed, outcome)
		switch outcome.Status {
		case constants.SWEEP_STATUS_SWEPT:
			amount, _ := new(big.Int).SetString(outcome.Amount, 10)
			totalSwept.Add(totalSwept, amount)
			sweptCount++
		case constants.SWEEP_STATUS_FAILED:
			failedCount++
		}
	}

	result.TotalAmount = totalSwept.String()
	result.WalletCount = sweptCount
	result.Status = batchStatus(sweptCount, failedCount)

	record := model.SweepRecord{
		Network:     request.Network,
		AssetSymbol: request.AssetSymbol,
		TotalAmount: result.TotalAmount,
		WalletCount: result.WalletCount,
		Status:      result.Status,
		DryRun:      request.DryRun,
		InitiatorID: request.InitiatorID,
	}
	if err := service.Repository.Create(&record); err != nil {
		logger.Error("Could not persist sweep record for %s %s : %s", request.Network, request.AssetSymbol, err)
	}

	logger.Info("Sweep of %s %s finished with status %s, %d wallets, %s base units",
		request.Network, request.AssetSymbol, result.Status, result.WalletCount, result.TotalAmount)
	return result, nil
}

// sweepWallet processes one deposit wallet. A dry run stops after computing
// the net amount; no key material is derived and nothing is broadcast.
func (service *SweepService) sweepWallet(ctx context.Context, adapter chain.Adapter, wallet model.Wallet,
	hotWalletAddress string, dustThreshold *big.Int, dryRun bool) dto.SweptWallet {

	outcome := dto.SweptWallet{Address: wallet.Address, Amount: "0"}

	balance, err := service.walletBalance(ctx, adapter, wallet)
	if err != nil {
		return service.failWallet(outcome, wallet, err)
	}

	// Balances at or below the threshold are dust. The boundary is exclusive:
	// only a strictly greater balance is swept.
	if balance.Cmp(dustThreshold) <= 0 {
		outcome.Status = constants.SWEEP_STATUS_SKIPPED_DUST
		return outcome
	}

	var fee *big.Int
	err = service.withRetry(ctx, func() error {
		var feeErr error
		fee, feeErr = adapter.EstimateFee(ctx)
		return feeErr
	})
	if err != nil {
		return service.failWallet(outcome, wallet, err)
	}

	netAmount := new(big.Int).Sub(balance, fee)
	netAmount.Sub(netAmount, adapter.MinimumReserve())
	if netAmount.Sign() <= 0 {
		// Economically unsweepable once fees and reserve are paid.
		outcome.Status = constants.SWEEP_STATUS_SKIPPED_DUST
		return outcome
	}

	if dryRun {
		outcome.Status = constants.SWEEP_STATUS_SWEPT
		outcome.Amount = netAmount.String()
		return outcome
	}

	material, err := service.KeyManagement.DeriveKey(wallet.Network, wallet.DerivationIndex)
	if err != nil {
		return service.failWallet(outcome, wallet, err)
	}
	signedTx, err := adapter.BuildAndSign(ctx, wallet.Address, hotWalletAddress, netAmount, material)
	if err != nil {
		if appError.IsType(err, errorcode.INSUFFICIENT_NET_AMOUNT) {
			outcome.Status = constants.SWEEP_STATUS_SKIPPED_DUST
			return outcome
		}
		return service.failWallet(outcome, wallet, err)
	}

	var txHash string
	err = service.withRetry(ctx, func() error {
		var broadcastErr error
		txHash, broadcastErr = adapter.Broadcast(ctx, signedTx)
		return broadcastErr
	})
	if err != nil {
		return service.failWallet(outcome, wallet, err)
	}

	outcome.Status = constants.SWEEP_STATUS_SWEPT
	outcome.Amount = signedTx.Amount.String()
	outcome.TxHash = txHash
	return outcome
}

// walletBalance fetches the live balance with retries and records the sync
// time and cached value for the treasury snapshot.
func (service *SweepService) walletBalance(ctx context.Context, adapter chain.Adapter, wallet model.Wallet) (*big.Int, error) {
	var balance *big.Int
	err := service.withRetry(ctx, func() error {
		var balanceErr error
		balance, balanceErr = adapter.GetBalance(ctx, wallet.Address)
		return balanceErr
	})
	if err != nil {
		return nil, err
	}
	if err := service.Repository.TouchBalanceSync(wallet.Address, time.Now()); err != nil {
		logger.Warning("Could not record balance sync for %s : %s", wallet.Address, err)
	}
	service.Cache.Set(balanceCacheKey(wallet.Network, wallet.Address), balance.String(), true)
	return balance, nil
}

func (service *SweepService) withRetry(ctx context.Context, fn func() error) error {
	return retry.Do(ctx, service.Config.MaxRetryAttempts, time.Duration(service.Config.RetryBaseDelayMs)*time.Millisecond, fn)
}

func (service *SweepService) failWallet(outcome dto.SweptWallet, wallet model.Wallet, err error) dto.SweptWallet {
	logger.Error("Sweep of wallet %s on %s failed : %s", wallet.Address, wallet.Network, err)
	sentry.CaptureException(fmt.Errorf("sweep of wallet %s on %s : %s", wallet.Address, wallet.Network, err))
	outcome.Status = constants.SWEEP_STATUS_FAILED
	outcome.Error = err.Error()
	return outcome
}

// batchStatus derives the batch outcome. Dust skips are not failures; an
// all-dust run is a SUCCESS that swept nothing.
func batchStatus(sweptCount, failedCount int) string {
	switch {
	case failedCount == 0:
		return constants.BATCH_STATUS_SUCCESS
	case sweptCount > 0:
		return constants.BATCH_STATUS_PARTIAL
	default:
		return constants.BATCH_STATUS_FAILED
	}
}

func balanceCacheKey(network, address string) string {
	return strings.Join([]string{"balance", network, address}, constants.SEPERATOR)
}
