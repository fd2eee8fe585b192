package services

import (
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

	uuid "github.com/satori/go.uuid"
)

const addressAllocationLockTTL = 30 * time.Second

//UserAddressService object
type UserAddressService struct {
	Cache         *cache.Memory
	Config        Config.Data
	Repository    database.IWalletRepository
	Registry      *chain.Registry
	Locker        ILocker
	KeyManagement *KeyManagementService
}

func NewUserAddressService(cache *cache.Memory, config Config.Data, repository database.IWalletRepository,
	registry *chain.Registry, locker ILocker, keyManagement *KeyManagementService) *UserAddressService {
	return &UserAddressService{
		Cache:         cache,
		Config:        config,
		Repository:    repository,
		Registry:      registry,
		Locker:        locker,
		KeyManagement: keyManagement,
	}
}

// GetOrCreateDepositAddress ... Returns the user's deposit wallet for an
// asset, allocating one on first request. Allocation runs under the
// per-(network, asset) lock so concurrent first requests cannot consume two
// derivation indexes for the same user.
func (service *UserAddressService) GetOrCreateDepositAddress(userID uuid.UUID, network, assetSymbol string) (model.Wallet, error) {
	adapter, err := service.Registry.AdapterFor(network)
	if err != nil {
		return model.Wallet{}, err
	}

	wallet, found, err := service.findDepositWallet(userID, network, assetSymbol)
	if err != nil || found {
		return wallet, err
	}

	lockKey := LockKey(network, assetSymbol)
	token, err := service.Locker.Acquire(lockKey, addressAllocationLockTTL)
	if err != nil {
		return model.Wallet{}, err
	}
	defer func() {
		if releaseErr := service.Locker.Release(lockKey, token); releaseErr != nil {
			logger.Warning("Could not release lock %s : %s", lockKey, releaseErr)
		}
	}()

	// Re-check under the lock in case a concurrent request allocated first.
	wallet, found, err = service.findDepositWallet(userID, network, assetSymbol)
	if err != nil || found {
		return wallet, err
	}

	derivationIndex, err := service.Repository.NextDerivationIndex(network)
	if err != nil {
		return model.Wallet{}, err
	}
	material, err := service.KeyManagement.DeriveKey(network, derivationIndex)
	if err != nil {
		return model.Wallet{}, err
	}
	address, err := adapter.DeriveAddress(material)
	if err != nil {
		return model.Wallet{}, err
	}

	wallet = model.Wallet{
		Network:         network,
		AssetSymbol:     assetSymbol,
		Address:         address,
		Role:            constants.WALLET_ROLE_DEPOSIT,
		Status:          constants.WALLET_STATUS_ACTIVE,
		DerivationIndex: derivationIndex,
		UserID:          userID,
	}
	if err := service.Repository.Create(&wallet); err != nil {
		return model.Wallet{}, err
	}
	logger.Info("Allocated %s deposit address at index %d for user %s", network, derivationIndex, userID)
	return wallet, nil
}

func (service *UserAddressService) findDepositWallet(userID uuid.UUID, network, assetSymbol string) (model.Wallet, bool, error) {
	wallet := model.Wallet{}
	err := service.Repository.GetByFieldName(&model.Wallet{
		UserID:      userID,
		Network:     network,
		AssetSymbol: assetSymbol,
		Role:        constants.WALLET_ROLE_DEPOSIT,
	}, &wallet)
	if err == nil {
		return wallet, true, nil
	}
	if appError.IsType(err, errorcode.RECORD_NOT_FOUND) {
		return model.Wallet{}, false, nil
	}
	return model.Wallet{}, false, err
}
