package services

import (
	"custody-engine/model"
	"custody-engine/utility/appError"
	"custody-engine/utility/constants"
	"custody-engine/utility/errorcode"

	uuid "github.com/satori/go.uuid"
)

func (s *Suite) TestInitHotWalletsProvisionsPendingWallet() {
	hotWalletService := s.hotWalletService()
	s.Require().NoError(hotWalletService.InitHotWallets())

	wallet := model.Wallet{}
	s.Require().NoError(s.Repository.GetByFieldName(&model.Wallet{
		Network: constants.COIN_ETH,
		Role:    constants.WALLET_ROLE_HOT,
	}, &wallet))
	s.Equal(constants.WALLET_STATUS_PENDING, wallet.Status)
	s.NotEmpty(wallet.Address)

	// A pending hot wallet is not eligible for sweeps yet.
	_, err := hotWalletService.GetActiveHotWallet(constants.COIN_ETH, constants.COIN_ETH)
	s.Require().Error(err)
	s.True(appError.IsType(err, errorcode.NO_ACTIVE_HOT_WALLET))
}

func (s *Suite) TestInitHotWalletsIsIdempotent() {
	hotWalletService := s.hotWalletService()
	s.Require().NoError(hotWalletService.InitHotWallets())
	s.Require().NoError(hotWalletService.InitHotWallets())

	wallets := []model.Wallet{}
	s.Require().NoError(s.Repository.FetchByFieldName(&model.Wallet{Role: constants.WALLET_ROLE_HOT}, &wallets))
	s.Len(wallets, 1)
}

func (s *Suite) TestActivateHotWalletRetiresPredecessor() {
	hotWalletService := s.hotWalletService()
	s.Require().NoError(hotWalletService.InitHotWallets())

	pending := model.Wallet{}
	s.Require().NoError(s.Repository.GetByFieldName(&model.Wallet{
		Network: constants.COIN_ETH,
		Role:    constants.WALLET_ROLE_HOT,
		Status:  constants.WALLET_STATUS_PENDING,
	}, &pending))

	s.Require().NoError(hotWalletService.ActivateHotWallet(constants.COIN_ETH, constants.COIN_ETH, pending.Address))

	active, err := hotWalletService.GetActiveHotWallet(constants.COIN_ETH, constants.COIN_ETH)
	s.Require().NoError(err)
	s.Equal(pending.Address, active.Address)

	// Rotate to a replacement; the singleton invariant must hold throughout.
	replacement := s.createWallet("hot-wallet-next", constants.WALLET_ROLE_HOT, constants.WALLET_STATUS_PENDING, 99, uuid.UUID{})
	s.Require().NoError(hotWalletService.ActivateHotWallet(constants.COIN_ETH, constants.COIN_ETH, replacement.Address))

	activeWallets := []model.Wallet{}
	s.Require().NoError(s.Repository.FetchByFieldName(&model.Wallet{
		Role:   constants.WALLET_ROLE_HOT,
		Status: constants.WALLET_STATUS_ACTIVE,
	}, &activeWallets))
	s.Require().Len(activeWallets, 1)
	s.Equal("hot-wallet-next", activeWallets[0].Address)

	retired := model.Wallet{}
	s.Require().NoError(s.Repository.GetByFieldName(&model.Wallet{Address: pending.Address}, &retired))
	s.Equal(constants.WALLET_STATUS_RETIRED, retired.Status)
}

func (s *Suite) TestStoreRejectsSecondActiveHotWallet() {
	s.createActiveHotWallet("hot-wallet")

	duplicate := model.Wallet{
		Network:     constants.COIN_ETH,
		AssetSymbol: constants.COIN_ETH,
		Address:     "hot-wallet-duplicate",
		Role:        constants.WALLET_ROLE_HOT,
		Status:      constants.WALLET_STATUS_ACTIVE,
	}
	s.Require().Error(s.Repository.Create(&duplicate))

	// Retired predecessors and deposit wallets do not collide with the index.
	retired := model.Wallet{
		Network:     constants.COIN_ETH,
		AssetSymbol: constants.COIN_ETH,
		Address:     "hot-wallet-old",
		Role:        constants.WALLET_ROLE_HOT,
		Status:      constants.WALLET_STATUS_RETIRED,
	}
	s.Require().NoError(s.Repository.Create(&retired))
}

func (s *Suite) TestActivateHotWalletRejectsUnknownAddress() {
	hotWalletService := s.hotWalletService()
	s.Require().NoError(hotWalletService.InitHotWallets())

	err := hotWalletService.ActivateHotWallet(constants.COIN_ETH, constants.COIN_ETH, "never-provisioned")
	s.Require().Error(err)
	s.True(appError.IsType(err, errorcode.RECORD_NOT_FOUND))
}
