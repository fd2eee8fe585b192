package ripple

import (
	"bytes"
	"context"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"custody-engine/chain"
	"custody-engine/dto"
	"custody-engine/model"
	"custody-engine/utility/apiClient"
	"custody-engine/utility/appError"
	"custody-engine/utility/constants"
	"custody-engine/utility/errorcode"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/mr-tron/base58"
)

const (
	// Base reserve an account must retain, in drops.
	accountReserveDrops = 10_000_000

	fallbackFeeDrops = 10

	// Ledgers of validity granted to a submitted transaction.
	ledgerValidityWindow = 20

	addressVersionByte = 0x00

	paymentTransactionType = 0
	tfFullyCanonicalSig    = 0x80000000

	// Native XRP amounts set bit 62 of the 64-bit value.
	nativeAmountBit = uint64(0x4000000000000000)
)

var rippleAlphabet = base58.NewAlphabet("rpshnaf39wBUDNEGHJKLM4PQRST7VWXYZ2bcdeCg65jkm8oFqi1tuvAxyz")

type accountInfoResult struct {
	Status      string `json:"status"`
	ErrorCode   string `json:"error"`
	AccountData struct {
		Balance  string `json:"Balance"`
		Sequence uint32 `json:"Sequence"`
	} `json:"account_data"`
}

type feeResult struct {
	Status             string `json:"status"`
	LedgerCurrentIndex uint32 `json:"ledger_current_index"`
	Drops              struct {
		OpenLedgerFee string `json:"open_ledger_fee"`
	} `json:"drops"`
}

type submitResult struct {
	Status              string `json:"status"`
	ErrorCode           string `json:"error"`
	ErrorMessage        string `json:"error_message"`
	EngineResult        string `json:"engine_result"`
	EngineResultMessage string `json:"engine_result_message"`
	TxJSON              struct {
		Hash string `json:"hash"`
	} `json:"tx_json"`
}

// Adapter implements the chain adapter contract for the XRP ledger over a
// rippled node. rippled wraps its errors inside the result object rather than
// the JSON-RPC error member, so responses carry their own status field.
type Adapter struct {
	node chain.NodeClient
}

func New(node chain.NodeClient) *Adapter {
	return &Adapter{node: node}
}

func (adapter *Adapter) Network() string { return constants.COIN_XRP }
func (adapter *Adapter) Symbol() string  { return constants.COIN_XRP }
func (adapter *Adapter) Decimals() int32 { return model.NetworkDecimals[constants.COIN_XRP] }

// MinimumReserve ... The ledger rejects payments that would take an account
// below its base reserve, so sweeps must leave it behind.
func (adapter *Adapter) MinimumReserve() *big.Int { return big.NewInt(accountReserveDrops) }

// DeriveAddress ... Classic address: RIPEMD160(SHA256(pubkey)) behind the
// ripple base58check alphabet.
func (adapter *Adapter) DeriveAddress(material dto.KeyMaterial) (string, error) {
	privateKey, _ := btcec.PrivKeyFromBytes(material.PrivateKey)
	accountID := btcutil.Hash160(privateKey.PubKey().SerializeCompressed())
	return encodeBase58Check(addressVersionByte, accountID), nil
}

func (adapter *Adapter) ValidateAddress(address string) error {
	if _, err := decodeAccountID(address); err != nil {
		return appError.New(errorcode.INVALID_ADDRESS, fmt.Errorf("%s is not a valid XRP address", address))
	}
	return nil
}

// GetBalance ... Balance in drops from the validated ledger. An account the
// ledger has never seen is simply empty, not an error.
func (adapter *Adapter) GetBalance(ctx context.Context, address string) (*big.Int, error) {
	info, err := adapter.accountInfo(address)
	if err != nil {
		return nil, err
	}
	if info.ErrorCode == "actNotFound" {
		return big.NewInt(0), nil
	}
	if info.Status != "success" {
		return nil, appError.New(errorcode.RPC_UNAVAILABLE, fmt.Errorf("account_info failed : %s", info.ErrorCode))
	}
	balance, ok := new(big.Int).SetString(info.AccountData.Balance, 10)
	if !ok {
		return nil, appError.New(errorcode.RPC_UNAVAILABLE, fmt.Errorf("malformed drops balance %s", info.AccountData.Balance))
	}
	return balance, nil
}

func (adapter *Adapter) EstimateFee(ctx context.Context) (*big.Int, error) {
	fee, _, err := adapter.openLedgerFee()
	return fee, err
}

func (adapter *Adapter) BuildAndSign(ctx context.Context, from, to string, amount *big.Int, material dto.KeyMaterial) (chain.SignedTransaction, error) {
	if err := adapter.ValidateAddress(to); err != nil {
		return chain.SignedTransaction{}, err
	}
	if amount == nil || amount.Sign() <= 0 || !amount.IsUint64() {
		return chain.SignedTransaction{}, appError.New(errorcode.INSUFFICIENT_NET_AMOUNT, errors.New("transfer amount is not a positive drop value"))
	}
	fromAccount, err := decodeAccountID(from)
	if err != nil {
		return chain.SignedTransaction{}, appError.New(errorcode.INVALID_ADDRESS, err)
	}
	toAccount, _ := decodeAccountID(to)

	info, err := adapter.accountInfo(from)
	if err != nil {
		return chain.SignedTransaction{}, err
	}
	if info.Status != "success" {
		return chain.SignedTransaction{}, appError.New(errorcode.RPC_UNAVAILABLE, fmt.Errorf("account_info failed : %s", info.ErrorCode))
	}
	fee, currentLedger, err := adapter.openLedgerFee()
	if err != nil {
		return chain.SignedTransaction{}, err
	}

	privateKey, _ := btcec.PrivKeyFromBytes(material.PrivateKey)
	payment := paymentFields{
		account:            fromAccount,
		destination:        toAccount,
		amountDrops:        amount.Uint64(),
		feeDrops:           fee.Uint64(),
		sequence:           info.AccountData.Sequence,
		lastLedgerSequence: currentLedger + ledgerValidityWindow,
		signingPubKey:      privateKey.PubKey().SerializeCompressed(),
	}

	signingDigest := sha512Half(append([]byte("STX\x00"), payment.serialize(nil)...))
	payment.txnSignature = ecdsa.Sign(privateKey, signingDigest).Serialize()

	return chain.SignedTransaction{
		Raw:    payment.serialize(payment.txnSignature),
		Amount: new(big.Int).Set(amount),
		Fee:    fee,
	}, nil
}

func (adapter *Adapter) Broadcast(ctx context.Context, signedTx chain.SignedTransaction) (string, error) {
	var result submitResult
	params := []interface{}{map[string]string{"tx_blob": strings.ToUpper(hex.EncodeToString(signedTx.Raw))}}
	if err := adapter.node.CallRPC("submit", params, &result); err != nil {
		return "", readError(err)
	}
	if result.Status != "success" {
		return "", appError.New(errorcode.RPC_UNAVAILABLE, fmt.Errorf("submit failed : %s %s", result.ErrorCode, result.ErrorMessage))
	}
	if !strings.HasPrefix(result.EngineResult, "tes") {
		return "", appError.New(errorcode.BROADCAST_REJECTED,
			fmt.Errorf("%s : %s", result.EngineResult, result.EngineResultMessage))
	}
	return result.TxJSON.Hash, nil
}

func (adapter *Adapter) accountInfo(address string) (accountInfoResult, error) {
	var result accountInfoResult
	params := []interface{}{map[string]string{"account": address, "ledger_index": "validated"}}
	if err := adapter.node.CallRPC("account_info", params, &result); err != nil {
		return accountInfoResult{}, readError(err)
	}
	return result, nil
}

func (adapter *Adapter) openLedgerFee() (*big.Int, uint32, error) {
	var result feeResult
	if err := adapter.node.CallRPC("fee", nil, &result); err != nil {
		return nil, 0, readError(err)
	}
	if result.Status != "success" {
		return nil, 0, appError.New(errorcode.RPC_UNAVAILABLE, errors.New("fee query failed"))
	}
	fee, ok := new(big.Int).SetString(result.Drops.OpenLedgerFee, 10)
	if !ok || fee.Sign() <= 0 {
		fee = big.NewInt(fallbackFeeDrops)
	}
	return fee, result.LedgerCurrentIndex, nil
}

// paymentFields holds the fields of an XRP payment in their decoded form.
// serialize emits them in the canonical binary order the ledger requires:
// ascending type code, then ascending field code.
type paymentFields struct {
	account            []byte
	destination        []byte
	amountDrops        uint64
	feeDrops           uint64
	sequence           uint32
	lastLedgerSequence uint32
	signingPubKey      []byte
	txnSignature       []byte
}

func (payment *paymentFields) serialize(signature []byte) []byte {
	var buffer bytes.Buffer

	writeFieldID(&buffer, 1, 2) // TransactionType
	writeUint16(&buffer, paymentTransactionType)

	writeFieldID(&buffer, 2, 2) // Flags
	writeUint32(&buffer, tfFullyCanonicalSig)

	writeFieldID(&buffer, 2, 4) // Sequence
	writeUint32(&buffer, payment.sequence)

	writeFieldID(&buffer, 2, 27) // LastLedgerSequence
	writeUint32(&buffer, payment.lastLedgerSequence)

	writeFieldID(&buffer, 6, 1) // Amount
	writeUint64(&buffer, nativeAmountBit|payment.amountDrops)

	writeFieldID(&buffer, 6, 8) // Fee
	writeUint64(&buffer, nativeAmountBit|payment.feeDrops)

	writeFieldID(&buffer, 7, 3) // SigningPubKey
	writeVariableLength(&buffer, payment.signingPubKey)

	if signature != nil {
		writeFieldID(&buffer, 7, 4) // TxnSignature
		writeVariableLength(&buffer, signature)
	}

	writeFieldID(&buffer, 8, 1) // Account
	writeVariableLength(&buffer, payment.account)

	writeFieldID(&buffer, 8, 3) // Destination
	writeVariableLength(&buffer, payment.destination)

	return buffer.Bytes()
}

func writeFieldID(buffer *bytes.Buffer, typeCode, fieldCode byte) {
	switch {
	case typeCode < 16 && fieldCode < 16:
		buffer.WriteByte(typeCode<<4 | fieldCode)
	case typeCode < 16:
		buffer.WriteByte(typeCode << 4)
		buffer.WriteByte(fieldCode)
	default:
		buffer.WriteByte(fieldCode)
		buffer.WriteByte(typeCode)
	}
}

func writeUint16(buffer *bytes.Buffer, value uint16) {
	var encoded [2]byte
	binary.BigEndian.PutUint16(encoded[:], value)
	buffer.Write(encoded[:])
}

func writeUint32(buffer *bytes.Buffer, value uint32) {
	var encoded [4]byte
	binary.BigEndian.PutUint32(encoded[:], value)
	buffer.Write(encoded[:])
}

func writeUint64(buffer *bytes.Buffer, value uint64) {
	var encoded [8]byte
	binary.BigEndian.PutUint64(encoded[:], value)
	buffer.Write(encoded[:])
}

// writeVariableLength emits a length prefix followed by the payload. All
// payloads here are well under the 193-byte single-byte prefix limit.
func writeVariableLength(buffer *bytes.Buffer, payload []byte) {
	buffer.WriteByte(byte(len(payload)))
	buffer.Write(payload)
}

func sha512Half(payload []byte) []byte {
	digest := sha512.Sum512(payload)
	return digest[:32]
}

func encodeBase58Check(version byte, payload []byte) string {
	body := append([]byte{version}, payload...)
	checksum := doubleSHA256(body)
	return base58.EncodeAlphabet(append(body, checksum[:4]...), rippleAlphabet)
}

func decodeAccountID(address string) ([]byte, error) {
	decoded, err := base58.DecodeAlphabet(address, rippleAlphabet)
	if err != nil {
		return nil, err
	}
	if len(decoded) != 25 || decoded[0] != addressVersionByte {
		return nil, fmt.Errorf("bad address payload")
	}
	body, checksum := decoded[:21], decoded[21:]
	expected := doubleSHA256(body)
	if !bytes.Equal(checksum, expected[:4]) {
		return nil, fmt.Errorf("bad address checksum")
	}
	return body[1:], nil
}

func doubleSHA256(payload []byte) [32]byte {
	first := sha256.Sum256(payload)
	return sha256.Sum256(first[:])
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
