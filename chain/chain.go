package chain

import (
	"context"
	"math/big"

	"custody-engine/dto"
)

// NodeClient is the JSON-RPC transport an adapter talks to its chain node
// through. Kept narrow so tests can stub a node per method.
type NodeClient interface {
	CallRPC(method string, params interface{}, result interface{}) error
}

// SignedTransaction is a fully signed transaction ready for broadcast. Amount
// and Fee reflect what the transaction actually moves and pays, which for
// UTXO chains can differ from the caller's pre-estimate.
type SignedTransaction struct {
	Raw    []byte
	Amount *big.Int
	Fee    *big.Int
}

// Adapter encapsulates everything chain-specific the engine needs: address
// derivation, balance queries, fee estimation, transaction construction,
// signing and broadcast. One implementation per supported network.
//
// GetBalance and EstimateFee fail with RPC_UNAVAILABLE on transport problems
// and may be retried by the caller. Broadcast fails with BROADCAST_REJECTED
// when the node refuses the transaction; that outcome is terminal for the
// wallet being swept and is never retried by the adapter.
type Adapter interface {
	Network() string
	Symbol() string
	Decimals() int32

	DeriveAddress(material dto.KeyMaterial) (string, error)
	ValidateAddress(address string) error

	GetBalance(ctx context.Context, address string) (*big.Int, error)
	EstimateFee(ctx context.Context) (*big.Int, error)

	// MinimumReserve is the balance the chain requires an account to retain
	// (XRP base reserve, for instance). Zero for chains that allow an account
	// to be emptied.
	MinimumReserve() *big.Int

	BuildAndSign(ctx context.Context, from, to string, amount *big.Int, material dto.KeyMaterial) (SignedTransaction, error)
	Broadcast(ctx context.Context, signedTx SignedTransaction) (string, error)
}
