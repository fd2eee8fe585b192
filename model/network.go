package model

import "custody-engine/utility/constants"

// NetworkDecimals is the fixed decimal precision per supported network, used to
// convert between display units and integer base units. The values are protocol
// constants and never change at runtime.
var NetworkDecimals = map[string]int32{
	constants.COIN_ETH: 18,
	constants.COIN_BSC: 18,
	constants.COIN_SOL: 9,
	constants.COIN_BTC: 8,
	constants.COIN_XRP: 6,
}

// NetworkCoinTypes maps each network to its BIP-44 coin type. BSC reuses the
// Ethereum coin type as an EVM chain.
var NetworkCoinTypes = map[string]uint32{
	constants.COIN_BTC: constants.BTC_COINTYPE,
	constants.COIN_ETH: constants.ETH_COINTYPE,
	constants.COIN_BSC: constants.ETH_COINTYPE,
	constants.COIN_XRP: constants.XRP_COINTYPE,
	constants.COIN_SOL: constants.SOL_COINTYPE,
}
