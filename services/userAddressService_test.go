package services

import (
	"custody-engine/model"
	"custody-engine/utility/appError"
	"custody-engine/utility/constants"
	"custody-engine/utility/errorcode"
)

func (s *Suite) TestDepositAddressAllocationIsIdempotent() {
	userAddressService := s.userAddressService()

	first, err := userAddressService.GetOrCreateDepositAddress(testUserId1, constants.COIN_ETH, constants.COIN_ETH)
	s.Require().NoError(err)
	s.Equal(int64(0), first.DerivationIndex)
	s.Equal(constants.WALLET_ROLE_DEPOSIT, first.Role)
	s.Equal(constants.WALLET_STATUS_ACTIVE, first.Status)

	second, err := userAddressService.GetOrCreateDepositAddress(testUserId1, constants.COIN_ETH, constants.COIN_ETH)
	s.Require().NoError(err)
	s.Equal(first.Address, second.Address)
	s.Equal(first.ID, second.ID)

	// The repeated request must not consume another derivation index.
	counter := model.DerivationCounter{}
	s.Require().NoError(s.Repository.GetByFieldName(&model.DerivationCounter{Network: constants.COIN_ETH}, &counter))
	s.Equal(int64(0), counter.LastIndex)
}

func (s *Suite) TestDepositAddressIndexesAreNeverReused() {
	userAddressService := s.userAddressService()

	first, err := userAddressService.GetOrCreateDepositAddress(testUserId1, constants.COIN_ETH, constants.COIN_ETH)
	s.Require().NoError(err)
	second, err := userAddressService.GetOrCreateDepositAddress(testUserId2, constants.COIN_ETH, constants.COIN_ETH)
	s.Require().NoError(err)

	s.Equal(int64(0), first.DerivationIndex)
	s.Equal(int64(1), second.DerivationIndex)
	s.NotEqual(first.Address, second.Address)
}

func (s *Suite) TestDepositAddressRejectsUnsupportedNetwork() {
	_, err := s.userAddressService().GetOrCreateDepositAddress(testUserId1, "DOGE", "DOGE")
	s.Require().Error(err)
	s.True(appError.IsType(err, errorcode.UNSUPPORTED_NETWORK))
}
