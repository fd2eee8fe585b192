package services

import (
	"fmt"
	"time"

	"custody-engine/chain"
	Config "custody-engine/config"
	"custody-engine/database"
	"custody-engine/model"
	"custody-engine/utility/appError"
	"custody-engine/utility/cache"
	"custody-engine/utility/constants"
	"custody-engine/utility/errorcode"
	"custody-engine/utility/logger"
)

const rotationLockTTL = 30 * time.Second

//HotWalletService object
type HotWalletService struct {
	Cache         *cache.Memory
	Config        Config.Data
	Repository    database.IWalletRepository
	Registry      *chain.Registry
	Locker        ILocker
	KeyManagement *KeyManagementService
}

func NewHotWalletService(cache *cache.Memory, config Config.Data, repository database.IWalletRepository,
	registry *chain.Registry, locker ILocker, keyManagement *KeyManagementService) *HotWalletService {
	return &HotWalletService{
		Cache:         cache,
		Config:        config,
		Repository:    repository,
		Registry:      registry,
		Locker:        locker,
		KeyManagement: keyManagement,
	}
}

// InitHotWallets ... Ensures every supported network has a hot wallet on
// record. Missing ones are provisioned in PENDING status; they take traffic
// only after an operator activates them.
func (service *HotWalletService) InitHotWallets() error {
	for _, network := range service.Registry.SupportedNetworks() {
		adapter, err := service.Registry.AdapterFor(network)
		if err != nil {
			return err
		}
		if err := service.ensureHotWallet(adapter); err != nil {
			return err
		}
	}
	return nil
}

func (service *HotWalletService) ensureHotWallet(adapter chain.Adapter) error {
	network, assetSymbol := adapter.Network(), adapter.Symbol()

	existing := model.Wallet{}
	err := service.Repository.GetByFieldName(&model.Wallet{
		Network:     network,
		AssetSymbol: assetSymbol,
		Role:        constants.WALLET_ROLE_HOT,
	}, &existing)
	if err == nil {
		return nil
	}
	if !appError.IsType(err, errorcode.RECORD_NOT_FOUND) {
		return err
	}

	derivationIndex, err := service.Repository.NextDerivationIndex(network)
	if err != nil {
		return err
	}
	material, err := service.KeyManagement.DeriveKey(network, derivationIndex)
	if err != nil {
		return err
	}
	address, err := adapter.DeriveAddress(material)
	if err != nil {
		return err
	}

	wallet := model.Wallet{
		Network:         network,
		AssetSymbol:     assetSymbol,
		Address:         address,
		Role:            constants.WALLET_ROLE_HOT,
		Status:          constants.WALLET_STATUS_PENDING,
		DerivationIndex: derivationIndex,
	}
	if err := service.Repository.Create(&wallet); err != nil {
		return err
	}
	logger.Info("Provisioned PENDING hot wallet %s for %s", address, network)
	return nil
}

// GetActiveHotWallet ... The single ACTIVE hot wallet for a (network, asset)
// pair. Absence is NO_ACTIVE_HOT_WALLET, a configuration fault the caller
// must not retry around.
func (service *HotWalletService) GetActiveHotWallet(network, assetSymbol string) (model.Wallet, error) {
	wallet := model.Wallet{}
	if err := service.Repository.GetActiveHotWallet(network, assetSymbol, &wallet); err != nil {
		if appError.IsType(err, errorcode.RECORD_NOT_FOUND) {
			return model.Wallet{}, appError.New(errorcode.NO_ACTIVE_HOT_WALLET,
				fmt.Errorf("no active hot wallet for %s %s", network, assetSymbol))
		}
		return model.Wallet{}, err
	}
	return wallet, nil
}

// ActivateHotWallet ... Promotes a PENDING hot wallet to ACTIVE, retiring the
// current ACTIVE one in the same transaction. Runs under the (network, asset)
// lock so a sweep never observes two active hot wallets or none.
func (service *HotWalletService) ActivateHotWallet(network, assetSymbol, address string) error {
	lockKey := LockKey(network, assetSymbol)
	token, err := service.Locker.Acquire(lockKey, rotationLockTTL)
	if err != nil {
		return err
	}
	defer func() {
		if releaseErr := service.Locker.Release(lockKey, token); releaseErr != nil {
			logger.Warning("Could not release lock %s : %s", lockKey, releaseErr)
		}
	}()

	pending := model.Wallet{}
	if err := service.Repository.GetByFieldName(&model.Wallet{
		Network:     network,
		AssetSymbol: assetSymbol,
		Address:     address,
		Role:        constants.WALLET_ROLE_HOT,
		Status:      constants.WALLET_STATUS_PENDING,
	}, &pending); err != nil {
		return err
	}

	tx := database.NewTx(service.Repository.Db())
	current := model.Wallet{}
	err = service.Repository.GetActiveHotWallet(network, assetSymbol, &current)
	switch {
	case err == nil:
		tx = tx.Update(&current, map[string]interface{}{"status": constants.WALLET_STATUS_RETIRED})
	case !appError.IsType(err, errorcode.RECORD_NOT_FOUND):
		return err
	}
	if err := tx.Update(&pending, map[string]interface{}{"status": constants.WALLET_STATUS_ACTIVE}).Commit(); err != nil {
		return err
	}

	logger.Info("Activated hot wallet %s for %s %s", address, network, assetSymbol)
	return nil
}
