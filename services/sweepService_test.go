package services

import (
	"context"
	"errors"
	"math/big"
	"time"

	"custody-engine/dto"
	"custody-engine/model"
	"custody-engine/utility/appError"
	"custody-engine/utility/constants"
	"custody-engine/utility/errorcode"

	uuid "github.com/satori/go.uuid"
)

func (s *Suite) createWallet(address, role, status string, derivationIndex int64, userID uuid.UUID) model.Wallet {
	wallet := model.Wallet{
		Network:         constants.COIN_ETH,
		AssetSymbol:     constants.COIN_ETH,
		Address:         address,
		Role:            role,
		Status:          status,
		DerivationIndex: derivationIndex,
		UserID:          userID,
	}
	s.Require().NoError(s.Repository.Create(&wallet))
	return wallet
}

func (s *Suite) createActiveHotWallet(address string) model.Wallet {
	return s.createWallet(address, constants.WALLET_ROLE_HOT, constants.WALLET_STATUS_ACTIVE, 0, uuid.UUID{})
}

func (s *Suite) sweepRequest(hotWalletAddress, dustThreshold string, dryRun bool) dto.SweepRequest {
	return dto.SweepRequest{
		Network:          constants.COIN_ETH,
		AssetSymbol:      constants.COIN_ETH,
		HotWalletAddress: hotWalletAddress,
		DustThreshold:    dustThreshold,
		DryRun:           dryRun,
		InitiatorID:      testUserId1,
	}
}

func (s *Suite) TestSweepSkipsBalancesAtOrBelowDustThreshold() {
	s.createActiveHotWallet("hot-wallet")
	s.createWallet("deposit-1", constants.WALLET_ROLE_DEPOSIT, constants.WALLET_STATUS_ACTIVE, 1, testUserId1)
	s.createWallet("deposit-2", constants.WALLET_ROLE_DEPOSIT, constants.WALLET_STATUS_ACTIVE, 2, testUserId2)
	s.Adapter.balances["deposit-1"] = big.NewInt(1000)
	s.Adapter.balances["deposit-2"] = big.NewInt(1001)

	result, err := s.sweepService().Execute(context.Background(), s.sweepRequest("hot-wallet", "1000", false))
	s.Require().NoError(err)

	s.Equal(constants.BATCH_STATUS_SUCCESS, result.Status)
	s.Require().Len(result.Processed, 2)
	s.Equal(constants.SWEEP_STATUS_SKIPPED_DUST, result.Processed[0].Status)
	s.Empty(result.Processed[0].TxHash)
	s.Equal(constants.SWEEP_STATUS_SWEPT, result.Processed[1].Status)
	s.Equal("1001", result.Processed[1].Amount)
	s.Equal("tx-deposit-2", result.Processed[1].TxHash)
	s.Equal("1001", result.TotalAmount)
	s.Equal(1, result.WalletCount)
}

func (s *Suite) TestSweepIsolatesWalletFailures() {
	s.createActiveHotWallet("hot-wallet")
	s.createWallet("deposit-1", constants.WALLET_ROLE_DEPOSIT, constants.WALLET_STATUS_ACTIVE, 1, testUserId1)
	s.createWallet("deposit-2", constants.WALLET_ROLE_DEPOSIT, constants.WALLET_STATUS_ACTIVE, 2, testUserId1)
	s.createWallet("deposit-3", constants.WALLET_ROLE_DEPOSIT, constants.WALLET_STATUS_ACTIVE, 3, testUserId2)
	s.Adapter.balances["deposit-1"] = big.NewInt(5000)
	s.Adapter.balances["deposit-2"] = big.NewInt(6000)
	s.Adapter.balances["deposit-3"] = big.NewInt(7000)
	s.Adapter.broadcastErrs["deposit-2"] = appError.New(errorcode.BROADCAST_REJECTED, errors.New("nonce too low"))

	result, err := s.sweepService().Execute(context.Background(), s.sweepRequest("hot-wallet", "0", false))
	s.Require().NoError(err)

	s.Equal(constants.BATCH_STATUS_PARTIAL, result.Status)
	s.Equal(constants.SWEEP_STATUS_SWEPT, result.Processed[0].Status)
	s.Equal(constants.SWEEP_STATUS_FAILED, result.Processed[1].Status)
	s.NotEmpty(result.Processed[1].Error)
	s.Equal(constants.SWEEP_STATUS_SWEPT, result.Processed[2].Status)

	// Failed wallets contribute nothing to the totals.
	s.Equal("12000", result.TotalAmount)
	s.Equal(2, result.WalletCount)

	record := model.SweepRecord{}
	s.Require().NoError(s.Repository.GetByFieldName(&model.SweepRecord{Network: constants.COIN_ETH}, &record))
	s.Equal(constants.BATCH_STATUS_PARTIAL, record.Status)
	s.Equal("12000", record.TotalAmount)
}

func (s *Suite) TestSweepReportsFailedWhenNothingSwept() {
	s.createActiveHotWallet("hot-wallet")
	s.createWallet("deposit-1", constants.WALLET_ROLE_DEPOSIT, constants.WALLET_STATUS_ACTIVE, 1, testUserId1)
	s.Adapter.balanceErrs["deposit-1"] = appError.New(errorcode.RPC_UNAVAILABLE, errors.New("connection refused"))

	result, err := s.sweepService().Execute(context.Background(), s.sweepRequest("hot-wallet", "0", false))
	s.Require().NoError(err)
	s.Equal(constants.BATCH_STATUS_FAILED, result.Status)
	s.Equal("0", result.TotalAmount)
	s.Equal(0, result.WalletCount)
}

func (s *Suite) TestSweepDryRunBroadcastsNothing() {
	s.createActiveHotWallet("hot-wallet")
	s.createWallet("deposit-1", constants.WALLET_ROLE_DEPOSIT, constants.WALLET_STATUS_ACTIVE, 1, testUserId1)
	s.Adapter.balances["deposit-1"] = big.NewInt(5000)
	s.Adapter.fee = big.NewInt(100)

	result, err := s.sweepService().Execute(context.Background(), s.sweepRequest("hot-wallet", "0", true))
	s.Require().NoError(err)

	s.Equal(constants.BATCH_STATUS_SUCCESS, result.Status)
	s.True(result.DryRun)
	s.Require().Len(result.Processed, 1)
	s.Equal(constants.SWEEP_STATUS_SWEPT, result.Processed[0].Status)
	s.Equal("4900", result.Processed[0].Amount)
	s.Empty(result.Processed[0].TxHash)
	s.Empty(s.Adapter.broadcasts)

	record := model.SweepRecord{}
	s.Require().NoError(s.Repository.GetByFieldName(&model.SweepRecord{Network: constants.COIN_ETH}, &record))
	s.True(record.DryRun)
}

func (s *Suite) TestSweepDeductsFeeAndReserve() {
	s.createActiveHotWallet("hot-wallet")
	s.createWallet("deposit-1", constants.WALLET_ROLE_DEPOSIT, constants.WALLET_STATUS_ACTIVE, 1, testUserId1)
	s.Adapter.balances["deposit-1"] = big.NewInt(10005000)
	s.Adapter.fee = big.NewInt(1000)
	s.Adapter.reserve = big.NewInt(10000000)

	result, err := s.sweepService().Execute(context.Background(), s.sweepRequest("hot-wallet", "0", false))
	s.Require().NoError(err)
	s.Equal("4000", result.Processed[0].Amount)
}

func (s *Suite) TestSweepSkipsWalletsThatCannotCoverFees() {
	s.createActiveHotWallet("hot-wallet")
	s.createWallet("deposit-1", constants.WALLET_ROLE_DEPOSIT, constants.WALLET_STATUS_ACTIVE, 1, testUserId1)
	s.Adapter.balances["deposit-1"] = big.NewInt(90)
	s.Adapter.fee = big.NewInt(100)

	result, err := s.sweepService().Execute(context.Background(), s.sweepRequest("hot-wallet", "0", false))
	s.Require().NoError(err)
	s.Equal(constants.SWEEP_STATUS_SKIPPED_DUST, result.Processed[0].Status)
	s.Equal(constants.BATCH_STATUS_SUCCESS, result.Status)
	s.Empty(s.Adapter.broadcasts)
}

func (s *Suite) TestSweepRetriesTransientBroadcastWithoutResigning() {
	s.Config.MaxRetryAttempts = 2
	s.createActiveHotWallet("hot-wallet")
	s.createWallet("deposit-1", constants.WALLET_ROLE_DEPOSIT, constants.WALLET_STATUS_ACTIVE, 1, testUserId1)
	s.Adapter.balances["deposit-1"] = big.NewInt(5000)
	s.Adapter.transientBroadcastErrs["deposit-1"] = appError.New(errorcode.RPC_UNAVAILABLE, errors.New("connection reset"))

	result, err := s.sweepService().Execute(context.Background(), s.sweepRequest("hot-wallet", "0", false))
	s.Require().NoError(err)

	s.Equal(constants.BATCH_STATUS_SUCCESS, result.Status)
	s.Require().Len(result.Processed, 1)
	s.Equal(constants.SWEEP_STATUS_SWEPT, result.Processed[0].Status)
	s.Equal("tx-deposit-1", result.Processed[0].TxHash)

	// The identical signed bytes are resubmitted; nothing is signed twice.
	s.Equal(1, s.Adapter.signedCount)
	s.Equal([]string{"deposit-1"}, s.Adapter.broadcasts)
}

func (s *Suite) TestSweepRequiresActiveHotWallet() {
	s.createWallet("deposit-1", constants.WALLET_ROLE_DEPOSIT, constants.WALLET_STATUS_ACTIVE, 1, testUserId1)

	_, err := s.sweepService().Execute(context.Background(), s.sweepRequest("hot-wallet", "0", false))
	s.Require().Error(err)
	s.True(appError.IsType(err, errorcode.NO_ACTIVE_HOT_WALLET))
}

func (s *Suite) TestSweepRejectsStaleHotWalletAddress() {
	s.createActiveHotWallet("hot-wallet")

	_, err := s.sweepService().Execute(context.Background(), s.sweepRequest("retired-hot-wallet", "0", false))
	s.Require().Error(err)
	s.True(appError.IsType(err, errorcode.NO_ACTIVE_HOT_WALLET))
}

func (s *Suite) TestSweepRejectsUnsupportedNetwork() {
	request := s.sweepRequest("hot-wallet", "0", false)
	request.Network = "DOGE"
	request.AssetSymbol = "DOGE"

	_, err := s.sweepService().Execute(context.Background(), request)
	s.Require().Error(err)
	s.True(appError.IsType(err, errorcode.UNSUPPORTED_NETWORK))
}

func (s *Suite) TestSweepFailsFastWhenLockHeld() {
	s.createActiveHotWallet("hot-wallet")

	_, err := s.Locker.Acquire(LockKey(constants.COIN_ETH, constants.COIN_ETH), time.Minute)
	s.Require().NoError(err)

	_, err = s.sweepService().Execute(context.Background(), s.sweepRequest("hot-wallet", "0", false))
	s.Require().Error(err)
	s.True(appError.IsType(err, errorcode.LOCK_UNAVAILABLE))
}
