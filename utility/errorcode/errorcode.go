package errorcode

const (
	UNSUPPORTED_NETWORK      = "UNSUPPORTED_NETWORK"
	SEED_UNAVAILABLE         = "SEED_UNAVAILABLE"
	INVALID_DERIVATION_INDEX = "INVALID_DERIVATION_INDEX"
	NO_ACTIVE_HOT_WALLET     = "NO_ACTIVE_HOT_WALLET"
	RPC_UNAVAILABLE          = "RPC_UNAVAILABLE"
	BROADCAST_REJECTED       = "BROADCAST_REJECTED"
	INSUFFICIENT_NET_AMOUNT  = "INSUFFICIENT_NET_AMOUNT"
	INVALID_ADDRESS          = "INVALID_ADDRESS"
	INVALID_AMOUNT           = "INVALID_AMOUNT"
	LOCK_UNAVAILABLE         = "LOCK_UNAVAILABLE"
	RECORD_NOT_FOUND         = "RECORD_NOT_FOUND"
	VALIDATION_ERR           = "VALIDATION_ERR"
	SERVER_ERR               = "SERVER_ERR"
)
