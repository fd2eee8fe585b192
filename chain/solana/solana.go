package solana

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/binary"
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

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

const (
	// Flat network fee for a single-signature transaction.
	lamportsPerSignature = 5000

	systemProgramTransferInstruction = 2
)

// systemProgramID is the all-zero public key of the system program.
var systemProgramID [32]byte

type balanceResult struct {
	Value uint64 `json:"value"`
}

type latestBlockhashResult struct {
	Value struct {
		Blockhash string `json:"blockhash"`
	} `json:"value"`
}

// Adapter implements the chain adapter contract for solana. Transfers are
// plain system-program transfers built as legacy single-signature messages.
type Adapter struct {
	node chain.NodeClient
}

func New(node chain.NodeClient) *Adapter {
	return &Adapter{node: node}
}

func (adapter *Adapter) Network() string { return constants.COIN_SOL }
func (adapter *Adapter) Symbol() string  { return constants.COIN_SOL }
func (adapter *Adapter) Decimals() int32 { return model.NetworkDecimals[constants.COIN_SOL] }

// MinimumReserve ... System accounts holding no data may be drained to zero.
func (adapter *Adapter) MinimumReserve() *big.Int { return big.NewInt(0) }

// DeriveAddress ... Base58 of the ed25519 public key for the 32-byte seed.
func (adapter *Adapter) DeriveAddress(material dto.KeyMaterial) (string, error) {
	if len(material.PrivateKey) != ed25519.SeedSize {
		return "", appError.New(errorcode.INVALID_DERIVATION_INDEX,
			fmt.Errorf("expected %d byte ed25519 seed, got %d", ed25519.SeedSize, len(material.PrivateKey)))
	}
	privateKey := ed25519.NewKeyFromSeed(material.PrivateKey)
	return base58.Encode(privateKey.Public().(ed25519.PublicKey)), nil
}

// ValidateAddress ... Accepts 32-byte base58 keys that decode to a point on
// the ed25519 curve.
func (adapter *Adapter) ValidateAddress(address string) error {
	decoded, err := base58.Decode(address)
	if err != nil || len(decoded) != 32 {
		return appError.New(errorcode.INVALID_ADDRESS, fmt.Errorf("%s is not a valid SOL address", address))
	}
	if _, err := new(edwards25519.Point).SetBytes(decoded); err != nil {
		return appError.New(errorcode.INVALID_ADDRESS, fmt.Errorf("%s is not on the ed25519 curve", address))
	}
	return nil
}

func (adapter *Adapter) GetBalance(ctx context.Context, address string) (*big.Int, error) {
	var result balanceResult
	if err := adapter.node.CallRPC("getBalance", []interface{}{address}, &result); err != nil {
		return nil, readError(err)
	}
	return new(big.Int).SetUint64(result.Value), nil
}

func (adapter *Adapter) EstimateFee(ctx context.Context) (*big.Int, error) {
	return big.NewInt(lamportsPerSignature), nil
}

func (adapter *Adapter) BuildAndSign(ctx context.Context, from, to string, amount *big.Int, material dto.KeyMaterial) (chain.SignedTransaction, error) {
	if err := adapter.ValidateAddress(to); err != nil {
		return chain.SignedTransaction{}, err
	}
	if amount == nil || amount.Sign() <= 0 || !amount.IsUint64() {
		return chain.SignedTransaction{}, appError.New(errorcode.INSUFFICIENT_NET_AMOUNT, errors.New("transfer amount is not a positive lamport value"))
	}

	fromKey, err := base58.Decode(from)
	if err != nil || len(fromKey) != 32 {
		return chain.SignedTransaction{}, appError.New(errorcode.INVALID_ADDRESS, fmt.Errorf("%s is not a valid SOL address", from))
	}
	toKey, _ := base58.Decode(to)

	var blockhashResult latestBlockhashResult
	if err := adapter.node.CallRPC("getLatestBlockhash", nil, &blockhashResult); err != nil {
		return chain.SignedTransaction{}, readError(err)
	}
	blockhash, err := base58.Decode(blockhashResult.Value.Blockhash)
	if err != nil || len(blockhash) != 32 {
		return chain.SignedTransaction{}, appError.New(errorcode.RPC_UNAVAILABLE,
			fmt.Errorf("malformed blockhash %s", blockhashResult.Value.Blockhash))
	}

	message := buildTransferMessage(fromKey, toKey, blockhash, amount.Uint64())

	privateKey := ed25519.NewKeyFromSeed(material.PrivateKey)
	signature := ed25519.Sign(privateKey, message)

	var raw bytes.Buffer
	writeCompactLength(&raw, 1)
	raw.Write(signature)
	raw.Write(message)

	return chain.SignedTransaction{
		Raw:    raw.Bytes(),
		Amount: new(big.Int).Set(amount),
		Fee:    big.NewInt(lamportsPerSignature),
	}, nil
}

func (adapter *Adapter) Broadcast(ctx context.Context, signedTx chain.SignedTransaction) (string, error) {
	encoded := base64.StdEncoding.EncodeToString(signedTx.Raw)
	var signature string
	if err := adapter.node.CallRPC("sendTransaction", []interface{}{encoded, map[string]string{"encoding": "base64"}}, &signature); err != nil {
		var rpcErr *apiClient.RPCError
		if errors.As(err, &rpcErr) {
			return "", appError.New(errorcode.BROADCAST_REJECTED, rpcErr)
		}
		return "", readError(err)
	}
	return signature, nil
}

// buildTransferMessage encodes a legacy message with one system-program
// transfer instruction. Account layout: fee payer (signer, writable),
// destination (writable), system program (readonly).
func buildTransferMessage(from, to, blockhash []byte, lamports uint64) []byte {
	var message bytes.Buffer

	// Header: 1 required signature, 0 readonly signed, 1 readonly unsigned.
	message.Write([]byte{1, 0, 1})

	writeCompactLength(&message, 3)
	message.Write(from)
	message.Write(to)
	message.Write(systemProgramID[:])

	message.Write(blockhash)

	instructionData := make([]byte, 12)
	binary.LittleEndian.PutUint32(instructionData[0:4], systemProgramTransferInstruction)
	binary.LittleEndian.PutUint64(instructionData[4:12], lamports)

	writeCompactLength(&message, 1)
	message.WriteByte(2) // program id index
	writeCompactLength(&message, 2)
	message.Write([]byte{0, 1}) // from, to account indexes
	writeCompactLength(&message, len(instructionData))
	message.Write(instructionData)

	return message.Bytes()
}

// writeCompactLength encodes a shortvec length prefix.
func writeCompactLength(buffer *bytes.Buffer, length int) {
	remaining := uint16(length)
	for {
		chunk := byte(remaining & 0x7f)
		remaining >>= 7
		if remaining == 0 {
			buffer.WriteByte(chunk)
			return
		}
		buffer.WriteByte(chunk | 0x80)
	}
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
