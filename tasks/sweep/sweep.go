package sweep

import (
	"context"

	"custody-engine/chain"
	Config "custody-engine/config"
	"custody-engine/database"
	"custody-engine/dto"
	"custody-engine/model"
	"custody-engine/services"
	"custody-engine/utility/cache"
	"custody-engine/utility/logger"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"
)

// Default dust threshold when an asset has no configured one. Zero sweeps
// every positive balance that covers its own fees.
const defaultDustThreshold = "0"

// SweepAssets ... Runs one sweep across every asset with an active hot
// wallet. Assets run concurrently; each one holds its own (network, asset)
// lock inside the sweep service, and one asset failing does not stop the
// others.
func SweepAssets(memoryCache *cache.Memory, config Config.Data, repository database.IWalletRepository,
	registry *chain.Registry, locker services.ILocker) {
	logger.Info("Sweep job begins")

	keyManagement := services.NewKeyManagementService(memoryCache, config, repository)
	hotWalletService := services.NewHotWalletService(memoryCache, config, repository, registry, locker, keyManagement)
	sweepService := services.NewSweepService(memoryCache, config, repository, registry, locker, keyManagement, hotWalletService)

	hotWallets := []model.Wallet{}
	if err := repository.FetchActiveHotWallets(&hotWallets); err != nil {
		logger.Error("Error response from Sweep job : could not fetch active hot wallets %+v", err)
		return
	}

	var group errgroup.Group
	for _, hotWallet := range hotWallets {
		hotWallet := hotWallet
		group.Go(func() error {
			sweepAsset(sweepService, registry, config, hotWallet)
			return nil
		})
	}
	group.Wait()
	logger.Info("Sweep job ends")
}

func sweepAsset(sweepService *services.SweepService, registry *chain.Registry, config Config.Data, hotWallet model.Wallet) {
	adapter, err := registry.AdapterFor(hotWallet.Network)
	if err != nil {
		logger.Error("Error response from Sweep job : %+v for %s", err, hotWallet.Network)
		return
	}

	dustThreshold := defaultDustThreshold
	if display, ok := config.DustThresholds[hotWallet.AssetSymbol]; ok {
		baseUnits, err := services.ConvertToBaseUnits(display, adapter.Decimals())
		if err != nil {
			logger.Error("Error response from Sweep job : bad dust threshold %s for %s : %+v", display, hotWallet.AssetSymbol, err)
			return
		}
		dustThreshold = baseUnits.String()
	}

	request := dto.SweepRequest{
		Network:          hotWallet.Network,
		AssetSymbol:      hotWallet.AssetSymbol,
		HotWalletAddress: hotWallet.Address,
		DustThreshold:    dustThreshold,
	}
	result, err := sweepService.Execute(context.Background(), request)
	if err != nil {
		logger.Error("Error response from Sweep job : %+v while sweeping %s %s", err, hotWallet.Network, hotWallet.AssetSymbol)
		return
	}
	logger.Info("Swept %d wallets on %s %s with status %s", result.WalletCount, result.Network, result.AssetSymbol, result.Status)
}

func ExecuteSweepCronJob(memoryCache *cache.Memory, config Config.Data, repository database.IWalletRepository,
	registry *chain.Registry, locker services.ILocker) {
	c := cron.New()
	c.AddFunc(config.SweepCronInterval, func() { SweepAssets(memoryCache, config, repository, registry, locker) })
	c.Start()
}
