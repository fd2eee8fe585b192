package ethereum

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"custody-engine/chain"
	"custody-engine/dto"
	"custody-engine/utility/apiClient"
	"custody-engine/utility/appError"
	"custody-engine/utility/errorcode"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

const transferGasLimit = 21000

// Adapter implements the chain adapter contract for EVM networks. ETH and BSC
// share this implementation and differ only in network name, symbol, decimals
// and EIP-155 chain id.
type Adapter struct {
	network  string
	symbol   string
	decimals int32
	chainID  *big.Int
	node     chain.NodeClient
}

func New(network, symbol string, decimals int32, chainID int64, node chain.NodeClient) *Adapter {
	return &Adapter{
		network:  network,
		symbol:   symbol,
		decimals: decimals,
		chainID:  big.NewInt(chainID),
		node:     node,
	}
}

func (adapter *Adapter) Network() string { return adapter.network }
func (adapter *Adapter) Symbol() string  { return adapter.symbol }
func (adapter *Adapter) Decimals() int32 { return adapter.decimals }

// MinimumReserve ... EVM accounts can be emptied to zero.
func (adapter *Adapter) MinimumReserve() *big.Int { return big.NewInt(0) }

// DeriveAddress ... Standard Keccak-256 address of the secp256k1 public key.
func (adapter *Adapter) DeriveAddress(material dto.KeyMaterial) (string, error) {
	privateKey, err := crypto.ToECDSA(material.PrivateKey)
	if err != nil {
		return "", appError.New(errorcode.INVALID_DERIVATION_INDEX, err)
	}
	return crypto.PubkeyToAddress(privateKey.PublicKey).Hex(), nil
}

func (adapter *Adapter) ValidateAddress(address string) error {
	if !common.IsHexAddress(address) {
		return appError.New(errorcode.INVALID_ADDRESS, fmt.Errorf("%s is not a valid %s address", address, adapter.network))
	}
	return nil
}

func (adapter *Adapter) GetBalance(ctx context.Context, address string) (*big.Int, error) {
	var result string
	if err := adapter.node.CallRPC("eth_getBalance", []interface{}{address, "latest"}, &result); err != nil {
		return nil, readError(err)
	}
	balance, err := hexutil.DecodeBig(result)
	if err != nil {
		return nil, appError.New(errorcode.RPC_UNAVAILABLE, fmt.Errorf("malformed balance %s : %s", result, err))
	}
	return balance, nil
}

// EstimateFee ... Gas price times the fixed gas limit of a plain transfer.
func (adapter *Adapter) EstimateFee(ctx context.Context) (*big.Int, error) {
	gasPrice, err := adapter.gasPrice()
	if err != nil {
		return nil, err
	}
	return new(big.Int).Mul(gasPrice, big.NewInt(transferGasLimit)), nil
}

func (adapter *Adapter) BuildAndSign(ctx context.Context, from, to string, amount *big.Int, material dto.KeyMaterial) (chain.SignedTransaction, error) {
	if err := adapter.ValidateAddress(to); err != nil {
		return chain.SignedTransaction{}, err
	}
	if amount == nil || amount.Sign() <= 0 {
		return chain.SignedTransaction{}, appError.New(errorcode.INSUFFICIENT_NET_AMOUNT, errors.New("transfer amount is not positive after fees"))
	}

	privateKey, err := crypto.ToECDSA(material.PrivateKey)
	if err != nil {
		return chain.SignedTransaction{}, err
	}

	var nonceHex string
	if err := adapter.node.CallRPC("eth_getTransactionCount", []interface{}{from, "pending"}, &nonceHex); err != nil {
		return chain.SignedTransaction{}, readError(err)
	}
	nonce, err := hexutil.DecodeUint64(nonceHex)
	if err != nil {
		return chain.SignedTransaction{}, appError.New(errorcode.RPC_UNAVAILABLE, err)
	}
	gasPrice, err := adapter.gasPrice()
	if err != nil {
		return chain.SignedTransaction{}, err
	}

	tx := types.NewTransaction(nonce, common.HexToAddress(to), amount, transferGasLimit, gasPrice, nil)
	signedTx, err := types.SignTx(tx, types.NewEIP155Signer(adapter.chainID), privateKey)
	if err != nil {
		return chain.SignedTransaction{}, err
	}
	raw, err := signedTx.MarshalBinary()
	if err != nil {
		return chain.SignedTransaction{}, err
	}

	return chain.SignedTransaction{
		Raw:    raw,
		Amount: new(big.Int).Set(amount),
		Fee:    new(big.Int).Mul(gasPrice, big.NewInt(transferGasLimit)),
	}, nil
}

func (adapter *Adapter) Broadcast(ctx context.Context, signedTx chain.SignedTransaction) (string, error) {
	var txHash string
	if err := adapter.node.CallRPC("eth_sendRawTransaction", []interface{}{hexutil.Encode(signedTx.Raw)}, &txHash); err != nil {
		var rpcErr *apiClient.RPCError
		if errors.As(err, &rpcErr) {
			return "", appError.New(errorcode.BROADCAST_REJECTED, rpcErr)
		}
		return "", readError(err)
	}
	return txHash, nil
}

func (adapter *Adapter) gasPrice() (*big.Int, error) {
	var result string
	if err := adapter.node.CallRPC("eth_gasPrice", nil, &result); err != nil {
		return nil, readError(err)
	}
	gasPrice, err := hexutil.DecodeBig(result)
	if err != nil {
		return nil, appError.New(errorcode.RPC_UNAVAILABLE, err)
	}
	return gasPrice, nil
}

// readError maps node errors on read paths to the retryable class. A node that
// answers a read with a JSON-RPC error is treated the same as one that did not
// answer at all.
func readError(err error) error {
	var rpcErr *apiClient.RPCError
	if errors.As(err, &rpcErr) {
		return appError.New(errorcode.RPC_UNAVAILABLE, rpcErr)
	}
	if appError.IsType(err, errorcode.RPC_UNAVAILABLE) {
		return err
	}
	return appError.New(errorcode.RPC_UNAVAILABLE, err)
}
