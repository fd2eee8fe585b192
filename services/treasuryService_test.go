package services

import (
	"context"
	"errors"
	"math/big"

	"custody-engine/chain"
	"custody-engine/model"
	"custody-engine/utility/appError"
	"custody-engine/utility/constants"
	"custody-engine/utility/errorcode"

	uuid "github.com/satori/go.uuid"
)

func (s *Suite) createUserBalance(userID uuid.UUID, network, assetSymbol, balance string) {
	userBalance := model.UserBalance{
		UserID:      userID,
		Network:     network,
		AssetSymbol: assetSymbol,
		Balance:     balance,
	}
	s.Require().NoError(s.Repository.Create(&userBalance))
}

func (s *Suite) TestSnapshotReportsExactNegativeDelta() {
	s.createActiveHotWallet("hot-wallet")
	s.createWallet("deposit-1", constants.WALLET_ROLE_DEPOSIT, constants.WALLET_STATUS_ACTIVE, 1, testUserId1)
	s.createWallet("deposit-2", constants.WALLET_ROLE_DEPOSIT, constants.WALLET_STATUS_ACTIVE, 2, testUserId2)
	s.Adapter.balances["hot-wallet"] = big.NewInt(100000)
	s.Adapter.balances["deposit-1"] = big.NewInt(5000)
	s.Adapter.balances["deposit-2"] = big.NewInt(4000)
	s.createUserBalance(testUserId1, constants.COIN_ETH, constants.COIN_ETH, "60000")
	s.createUserBalance(testUserId2, constants.COIN_ETH, constants.COIN_ETH, "50000")

	snapshot, err := s.treasuryService().ComputeSnapshot(context.Background())
	s.Require().NoError(err)
	s.Require().Len(snapshot.PerAsset, 1)

	position := snapshot.PerAsset[0]
	s.Equal("109000", position.Custodied)
	s.Equal("110000", position.LedgerLiability)
	s.Equal("-1000", position.Delta)
	s.False(position.Stale)
	s.Len(position.Wallets, 3)
}

func (s *Suite) TestSnapshotFallsBackToCachedBalanceWhenNodeIsDown() {
	s.createActiveHotWallet("hot-wallet")
	s.createWallet("deposit-1", constants.WALLET_ROLE_DEPOSIT, constants.WALLET_STATUS_ACTIVE, 1, testUserId1)
	s.Adapter.balances["hot-wallet"] = big.NewInt(70000)
	s.Adapter.balances["deposit-1"] = big.NewInt(30000)
	s.createUserBalance(testUserId1, constants.COIN_ETH, constants.COIN_ETH, "100000")

	treasuryService := s.treasuryService()
	first, err := treasuryService.ComputeSnapshot(context.Background())
	s.Require().NoError(err)
	s.Equal("100000", first.PerAsset[0].Custodied)
	s.False(first.PerAsset[0].Stale)

	// Node goes dark for the deposit wallet; the cached balance carries the
	// position but flags it stale.
	s.Adapter.balanceErrs["deposit-1"] = appError.New(errorcode.RPC_UNAVAILABLE, errors.New("connection refused"))

	second, err := treasuryService.ComputeSnapshot(context.Background())
	s.Require().NoError(err)
	s.Equal("100000", second.PerAsset[0].Custodied)
	s.Equal("0", second.PerAsset[0].Delta)
	s.True(second.PerAsset[0].Stale)

	for _, wallet := range second.PerAsset[0].Wallets {
		if wallet.Address == "deposit-1" {
			s.True(wallet.Stale)
		}
	}
}

func (s *Suite) TestSnapshotOrdersAssetsDeterministically() {
	bscAdapter := newFakeAdapter(constants.COIN_BSC)
	s.Registry = chain.NewRegistry(s.Adapter, bscAdapter)

	s.createActiveHotWallet("hot-wallet-eth")
	bscHotWallet := model.Wallet{
		Network:     constants.COIN_BSC,
		AssetSymbol: constants.COIN_BSC,
		Address:     "hot-wallet-bsc",
		Role:        constants.WALLET_ROLE_HOT,
		Status:      constants.WALLET_STATUS_ACTIVE,
	}
	s.Require().NoError(s.Repository.Create(&bscHotWallet))

	snapshot, err := s.treasuryService().ComputeSnapshot(context.Background())
	s.Require().NoError(err)
	s.Require().Len(snapshot.PerAsset, 2)
	s.Equal(constants.COIN_BSC, snapshot.PerAsset[0].Network)
	s.Equal(constants.COIN_ETH, snapshot.PerAsset[1].Network)
}
