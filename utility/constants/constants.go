package constants

const (
	COIN_BTC = "BTC"
	COIN_ETH = "ETH"
	COIN_BSC = "BSC"
	COIN_SOL = "SOL"
	COIN_XRP = "XRP"

	BTC_COINTYPE = 0
	ETH_COINTYPE = 60
	XRP_COINTYPE = 144
	SOL_COINTYPE = 501

	WALLET_ROLE_DEPOSIT = "DEPOSIT"
	WALLET_ROLE_HOT     = "HOT"

	WALLET_STATUS_PENDING = "PENDING"
	WALLET_STATUS_ACTIVE  = "ACTIVE"
	WALLET_STATUS_RETIRED = "RETIRED"

	SWEEP_STATUS_SWEPT        = "SWEPT"
	SWEEP_STATUS_SKIPPED_DUST = "SKIPPED_DUST"
	SWEEP_STATUS_FAILED       = "FAILED"

	BATCH_STATUS_SUCCESS = "SUCCESS"
	BATCH_STATUS_PARTIAL = "PARTIAL"
	BATCH_STATUS_FAILED  = "FAILED"

	NETWORK_MODE_MAINNET = "mainnet"
	NETWORK_MODE_TESTNET = "testnet"

	LOCKER_TYPE_REDIS  = "redis"
	LOCKER_TYPE_MEMORY = "memory"

	SEPERATOR = "_"
)
