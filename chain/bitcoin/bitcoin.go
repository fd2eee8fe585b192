package bitcoin

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"

	"custody-engine/chain"
	"custody-engine/dto"
	"custody-engine/model"
	"custody-engine/utility/apiClient"
	"custody-engine/utility/appError"
	"custody-engine/utility/constants"
	"custody-engine/utility/errorcode"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/shopspring/decimal"
)

const (
	// Rough P2PKH virtual sizes used for fee computation.
	txOverheadBytes = 10
	txInputBytes    = 148
	txOutputBytes   = 34

	fallbackFeeRateSatPerKb = 5000
	defaultConfirmTarget    = 2
)

// unspentOutput mirrors bitcoind's listunspent entries. Amount stays a
// json.Number so the BTC string converts to satoshi without a float round trip.
type unspentOutput struct {
	TxID          string      `json:"txid"`
	Vout          uint32      `json:"vout"`
	Amount        json.Number `json:"amount"`
	ScriptPubKey  string      `json:"scriptPubKey"`
	Confirmations int64       `json:"confirmations"`
}

type smartFeeResult struct {
	FeeRate json.Number `json:"feerate"`
	Errors  []string    `json:"errors"`
}

// Adapter implements the chain adapter contract for bitcoin over a bitcoind
// node. Sweeps spend every confirmed UTXO of the deposit address in a single
// P2PKH transaction.
type Adapter struct {
	network string
	params  *chaincfg.Params
	node    chain.NodeClient
}

func New(networkMode string, node chain.NodeClient) *Adapter {
	params := &chaincfg.MainNetParams
	if networkMode == constants.NETWORK_MODE_TESTNET {
		params = &chaincfg.TestNet3Params
	}
	return &Adapter{network: constants.COIN_BTC, params: params, node: node}
}

func (adapter *Adapter) Network() string { return adapter.network }
func (adapter *Adapter) Symbol() string  { return constants.COIN_BTC }
func (adapter *Adapter) Decimals() int32 { return model.NetworkDecimals[constants.COIN_BTC] }

func (adapter *Adapter) MinimumReserve() *big.Int { return big.NewInt(0) }

// DeriveAddress ... P2PKH address of the compressed secp256k1 public key.
func (adapter *Adapter) DeriveAddress(material dto.KeyMaterial) (string, error) {
	_, publicKey := btcec.PrivKeyFromBytes(material.PrivateKey)
	address, err := btcutil.NewAddressPubKeyHash(btcutil.Hash160(publicKey.SerializeCompressed()), adapter.params)
	if err != nil {
		return "", err
	}
	return address.EncodeAddress(), nil
}

func (adapter *Adapter) ValidateAddress(address string) error {
	decoded, err := btcutil.DecodeAddress(address, adapter.params)
	if err != nil || !decoded.IsForNet(adapter.params) {
		return appError.New(errorcode.INVALID_ADDRESS, fmt.Errorf("%s is not a valid BTC address", address))
	}
	return nil
}

// GetBalance ... Sums the confirmed unspent outputs of the address. bitcoind
// reports amounts in BTC; they are scaled to satoshi by decimal shift, never
// by float multiplication.
func (adapter *Adapter) GetBalance(ctx context.Context, address string) (*big.Int, error) {
	utxos, err := adapter.listUnspent(address)
	if err != nil {
		return nil, err
	}
	balance := big.NewInt(0)
	for _, utxo := range utxos {
		satoshi, err := btcToSatoshi(utxo.Amount)
		if err != nil {
			return nil, err
		}
		balance.Add(balance, satoshi)
	}
	return balance, nil
}

// EstimateFee ... Fee for a one-input one-output sweep at the node's estimated
// rate. BuildAndSign recomputes with the real input count.
func (adapter *Adapter) EstimateFee(ctx context.Context) (*big.Int, error) {
	feeRate, err := adapter.feeRateSatPerKb()
	if err != nil {
		return nil, err
	}
	return feeForSize(feeRate, txOverheadBytes+txInputBytes+txOutputBytes), nil
}

// BuildAndSign ... Builds a transaction spending all UTXOs of the deposit
// address to the hot wallet. The returned Amount is recomputed from the actual
// inputs and fee and can differ from the caller's estimate.
func (adapter *Adapter) BuildAndSign(ctx context.Context, from, to string, amount *big.Int, material dto.KeyMaterial) (chain.SignedTransaction, error) {
	if err := adapter.ValidateAddress(to); err != nil {
		return chain.SignedTransaction{}, err
	}
	utxos, err := adapter.listUnspent(from)
	if err != nil {
		return chain.SignedTransaction{}, err
	}
	if len(utxos) == 0 {
		return chain.SignedTransaction{}, appError.New(errorcode.INSUFFICIENT_NET_AMOUNT, fmt.Errorf("no spendable outputs on %s", from))
	}

	feeRate, err := adapter.feeRateSatPerKb()
	if err != nil {
		return chain.SignedTransaction{}, err
	}
	fee := feeForSize(feeRate, txOverheadBytes+txInputBytes*len(utxos)+txOutputBytes)

	totalIn := big.NewInt(0)
	msgTx := wire.NewMsgTx(wire.TxVersion)
	for _, utxo := range utxos {
		txHash, err := chainhash.NewHashFromStr(utxo.TxID)
		if err != nil {
			return chain.SignedTransaction{}, appError.New(errorcode.RPC_UNAVAILABLE, err)
		}
		msgTx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(txHash, utxo.Vout), nil, nil))
		satoshi, err := btcToSatoshi(utxo.Amount)
		if err != nil {
			return chain.SignedTransaction{}, err
		}
		totalIn.Add(totalIn, satoshi)
	}

	sendAmount := new(big.Int).Sub(totalIn, fee)
	if sendAmount.Sign() <= 0 {
		return chain.SignedTransaction{}, appError.New(errorcode.INSUFFICIENT_NET_AMOUNT,
			fmt.Errorf("inputs %s do not cover fee %s", totalIn, fee))
	}

	toAddress, err := btcutil.DecodeAddress(to, adapter.params)
	if err != nil {
		return chain.SignedTransaction{}, appError.New(errorcode.INVALID_ADDRESS, err)
	}
	outScript, err := txscript.PayToAddrScript(toAddress)
	if err != nil {
		return chain.SignedTransaction{}, err
	}
	msgTx.AddTxOut(wire.NewTxOut(sendAmount.Int64(), outScript))

	privateKey, _ := btcec.PrivKeyFromBytes(material.PrivateKey)
	for index, utxo := range utxos {
		prevScript, err := hex.DecodeString(utxo.ScriptPubKey)
		if err != nil {
			return chain.SignedTransaction{}, appError.New(errorcode.RPC_UNAVAILABLE, err)
		}
		sigScript, err := txscript.SignatureScript(msgTx, index, prevScript, txscript.SigHashAll, privateKey, true)
		if err != nil {
			return chain.SignedTransaction{}, err
		}
		msgTx.TxIn[index].SignatureScript = sigScript
	}

	var raw bytes.Buffer
	if err := msgTx.Serialize(&raw); err != nil {
		return chain.SignedTransaction{}, err
	}
	return chain.SignedTransaction{Raw: raw.Bytes(), Amount: sendAmount, Fee: fee}, nil
}

func (adapter *Adapter) Broadcast(ctx context.Context, signedTx chain.SignedTransaction) (string, error) {
	var txID string
	if err := adapter.node.CallRPC("sendrawtransaction", []interface{}{hex.EncodeToString(signedTx.Raw)}, &txID); err != nil {
		var rpcErr *apiClient.RPCError
		if errors.As(err, &rpcErr) {
			return "", appError.New(errorcode.BROADCAST_REJECTED, rpcErr)
		}
		return "", readError(err)
	}
	return txID, nil
}

func (adapter *Adapter) listUnspent(address string) ([]unspentOutput, error) {
	var utxos []unspentOutput
	if err := adapter.node.CallRPC("listunspent", []interface{}{1, 9999999, []string{address}}, &utxos); err != nil {
		return nil, readError(err)
	}
	return utxos, nil
}

func (adapter *Adapter) feeRateSatPerKb() (*big.Int, error) {
	var result smartFeeResult
	if err := adapter.node.CallRPC("estimatesmartfee", []interface{}{defaultConfirmTarget}, &result); err != nil {
		return nil, readError(err)
	}
	if result.FeeRate == "" {
		// Node has not seen enough blocks to estimate. Fall back rather than
		// stall the whole sweep batch.
		return big.NewInt(fallbackFeeRateSatPerKb), nil
	}
	rate, err := btcToSatoshi(result.FeeRate)
	if err != nil {
		return nil, err
	}
	if rate.Sign() <= 0 {
		return big.NewInt(fallbackFeeRateSatPerKb), nil
	}
	return rate, nil
}

func feeForSize(feeRateSatPerKb *big.Int, sizeBytes int) *big.Int {
	fee := new(big.Int).Mul(feeRateSatPerKb, big.NewInt(int64(sizeBytes)))
	return fee.Div(fee, big.NewInt(1000))
}

func btcToSatoshi(amount json.Number) (*big.Int, error) {
	value, err := decimal.NewFromString(amount.String())
	if err != nil {
		return nil, appError.New(errorcode.RPC_UNAVAILABLE, fmt.Errorf("malformed BTC amount %s : %s", amount, err))
	}
	return value.Shift(8).Floor().BigInt(), nil
}

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
