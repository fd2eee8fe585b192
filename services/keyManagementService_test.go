package services

import (
	"custody-engine/utility/appError"
	"custody-engine/utility/constants"
	"custody-engine/utility/errorcode"
)

func (s *Suite) TestKeyDerivationIsDeterministic() {
	keyManagement := s.keyManagementService()

	for _, network := range []string{constants.COIN_ETH, constants.COIN_BSC, constants.COIN_BTC, constants.COIN_SOL, constants.COIN_XRP} {
		first, err := keyManagement.DeriveKey(network, 5)
		s.Require().NoError(err, network)
		second, err := keyManagement.DeriveKey(network, 5)
		s.Require().NoError(err, network)

		s.Equal(first.PrivateKey, second.PrivateKey, network)
		s.Equal(first.PublicKey, second.PublicKey, network)
		s.Len(first.PrivateKey, 32, network)
	}
}

func (s *Suite) TestKeyDerivationVariesByIndexAndNetwork() {
	keyManagement := s.keyManagementService()

	atFive, err := keyManagement.DeriveKey(constants.COIN_BTC, 5)
	s.Require().NoError(err)
	atSix, err := keyManagement.DeriveKey(constants.COIN_BTC, 6)
	s.Require().NoError(err)
	s.NotEqual(atFive.PrivateKey, atSix.PrivateKey)

	xrpAtFive, err := keyManagement.DeriveKey(constants.COIN_XRP, 5)
	s.Require().NoError(err)
	s.NotEqual(atFive.PrivateKey, xrpAtFive.PrivateKey)
}

func (s *Suite) TestKeyDerivationRejectsNegativeIndex() {
	_, err := s.keyManagementService().DeriveKey(constants.COIN_ETH, -1)
	s.Require().Error(err)
	s.True(appError.IsType(err, errorcode.INVALID_DERIVATION_INDEX))
}

func (s *Suite) TestKeyDerivationRejectsUnknownNetwork() {
	_, err := s.keyManagementService().DeriveKey("DOGE", 0)
	s.Require().Error(err)
	s.True(appError.IsType(err, errorcode.UNSUPPORTED_NETWORK))
}
