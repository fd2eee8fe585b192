package ripple

import (
	"context"
	"encoding/json"
	"math/big"
	"testing"

	"custody-engine/chain"
	"custody-engine/dto"
	"custody-engine/utility/appError"
	"custody-engine/utility/errorcode"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testKey = append(make([]byte, 31), 0x01)

type fakeNode struct {
	responses map[string]interface{}
	errs      map[string]error
}

func (node *fakeNode) CallRPC(method string, params interface{}, result interface{}) error {
	if err, ok := node.errs[method]; ok {
		return err
	}
	raw, err := json.Marshal(node.responses[method])
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, result)
}

func successfulAccountInfo(balance string, sequence uint32) map[string]interface{} {
	return map[string]interface{}{
		"status": "success",
		"account_data": map[string]interface{}{
			"Balance":  balance,
			"Sequence": sequence,
		},
	}
}

func TestDeriveAddressRoundTrips(t *testing.T) {
	adapter := New(&fakeNode{})

	address, err := adapter.DeriveAddress(dto.KeyMaterial{PrivateKey: testKey})
	require.NoError(t, err)
	assert.Equal(t, byte('r'), address[0])
	require.NoError(t, adapter.ValidateAddress(address))

	// Flipping a character breaks the checksum.
	corrupted := "r" + address[2:] + "x"
	err = adapter.ValidateAddress(corrupted)
	require.Error(t, err)
	assert.True(t, appError.IsType(err, errorcode.INVALID_ADDRESS))
}

func TestGetBalanceTreatsUnknownAccountAsEmpty(t *testing.T) {
	node := &fakeNode{responses: map[string]interface{}{
		"account_info": map[string]interface{}{"status": "error", "error": "actNotFound"},
	}}
	adapter := New(node)

	balance, err := adapter.GetBalance(context.Background(), "rHb9CJAWyB4rj91VRWn96DkukG4bwdtyTh")
	require.NoError(t, err)
	assert.Equal(t, "0", balance.String())
}

func TestGetBalanceReadsDrops(t *testing.T) {
	node := &fakeNode{responses: map[string]interface{}{
		"account_info": successfulAccountInfo("25000000", 7),
	}}
	adapter := New(node)

	balance, err := adapter.GetBalance(context.Background(), "rHb9CJAWyB4rj91VRWn96DkukG4bwdtyTh")
	require.NoError(t, err)
	assert.Equal(t, "25000000", balance.String())
}

func TestMinimumReserveCoversBaseReserve(t *testing.T) {
	adapter := New(&fakeNode{})
	assert.Equal(t, "10000000", adapter.MinimumReserve().String())
}

func TestBuildAndSignEmitsCanonicalPayment(t *testing.T) {
	adapter := New(&fakeNode{})
	fromAddress, err := adapter.DeriveAddress(dto.KeyMaterial{PrivateKey: testKey})
	require.NoError(t, err)

	node := &fakeNode{responses: map[string]interface{}{
		"account_info": successfulAccountInfo("25000000", 7),
		"fee": map[string]interface{}{
			"status":               "success",
			"ledger_current_index": 8000000,
			"drops":                map[string]interface{}{"open_ledger_fee": "12"},
		},
	}}
	adapter = New(node)

	signedTx, err := adapter.BuildAndSign(context.Background(), fromAddress,
		"rHb9CJAWyB4rj91VRWn96DkukG4bwdtyTh", big.NewInt(14000000), dto.KeyMaterial{PrivateKey: testKey})
	require.NoError(t, err)
	assert.Equal(t, "14000000", signedTx.Amount.String())
	assert.Equal(t, "12", signedTx.Fee.String())

	// Serialization starts with the TransactionType field (0x12) set to
	// Payment (0).
	require.Greater(t, len(signedTx.Raw), 3)
	assert.Equal(t, []byte{0x12, 0x00, 0x00}, signedTx.Raw[:3])
}

func TestBroadcastMapsEngineRejections(t *testing.T) {
	node := &fakeNode{responses: map[string]interface{}{
		"submit": map[string]interface{}{
			"status":                "success",
			"engine_result":         "tecUNFUNDED_PAYMENT",
			"engine_result_message": "Insufficient XRP balance to send.",
		},
	}}
	adapter := New(node)

	_, err := adapter.Broadcast(context.Background(), chain.SignedTransaction{Raw: []byte{0x12, 0x00, 0x00}})
	require.Error(t, err)
	assert.True(t, appError.IsType(err, errorcode.BROADCAST_REJECTED))
}

func TestBroadcastReturnsTransactionHash(t *testing.T) {
	node := &fakeNode{responses: map[string]interface{}{
		"submit": map[string]interface{}{
			"status":        "success",
			"engine_result": "tesSUCCESS",
			"tx_json":       map[string]interface{}{"hash": "ABCDEF0123456789"},
		},
	}}
	adapter := New(node)

	txHash, err := adapter.Broadcast(context.Background(), chain.SignedTransaction{Raw: []byte{0x12, 0x00, 0x00}})
	require.NoError(t, err)
	assert.Equal(t, "ABCDEF0123456789", txHash)
}
