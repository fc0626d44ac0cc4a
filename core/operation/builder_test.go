package operation

import (
	"encoding/json"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilderNumericRepresentations(t *testing.T) {
	inputs := []any{
		500,
		int64(500),
		uint64(500),
		"500",
		"0x1f4",
		"5e2",
		json.Number("500"),
		big.NewInt(500),
		*big.NewInt(500),
		(*hexutil.Big)(big.NewInt(500)),
		decimal.NewFromInt(500),
		float64(500),
	}

	for _, in := range inputs {
		props := testUserOpProps()
		props["value"] = in
		op, err := NewUserOperation(props)
		if assert.NoError(t, err, "%T %v", in, in) {
			assert.Equal(t, int64(500), op.Value().Int64(), "%T %v", in, in)
		}
	}
}

func TestBuilderRejectsInexactNumbers(t *testing.T) {
	for _, in := range []any{1.5, "1.5", decimal.RequireFromString("0.1"), "abc", -1, true} {
		props := testUserOpProps()
		props["gas"] = in
		_, err := NewUserOperation(props)
		assert.ErrorIs(t, err, ErrInvalidField, "%T %v", in, in)
	}
}

func TestBuilderDefaults(t *testing.T) {
	props := testUserOpProps()
	delete(props, "nonce")
	delete(props, "sessionKey")
	delete(props, "signature")

	op, err := NewUserOperation(props)
	require.NoError(t, err)
	assert.Equal(t, int64(0), op.Nonce().Int64())
	assert.Equal(t, common.Address{}, op.SessionKey())
	assert.Empty(t, op.Signature())
	assert.NotNil(t, op.Signature())

	dAppOp, err := NewDAppOperation(Props{
		"from":          "0x0000000000000000000000000000000000000001",
		"to":            "0x0000000000000000000000000000000000000002",
		"deadline":      1,
		"control":       "0x0000000000000000000000000000000000000004",
		"userOpHash":    common.Hash{1},
		"callChainHash": common.Hash{2},
	})
	require.NoError(t, err)
	assert.Equal(t, common.Address{}, dAppOp.Bundler())
	assert.Equal(t, int64(0), dAppOp.Nonce().Int64())
}

func TestBuilderRequiresAllFields(t *testing.T) {
	props := testUserOpProps()
	delete(props, "control")

	_, err := NewUserOperation(props)
	assert.ErrorIs(t, err, ErrMissingField)
}

func TestBuilderRejectsUnknownField(t *testing.T) {
	props := testUserOpProps()
	props["paymasterAndData"] = "0x"

	_, err := NewUserOperation(props)
	assert.ErrorIs(t, err, ErrUnknownField)
}

func TestBuilderBytesInputs(t *testing.T) {
	props := testUserOpProps()
	props["data"] = "0X6461"
	props["signature"] = ""
	props["from"] = common.HexToAddress("0x01").Bytes()

	op, err := NewUserOperation(props)
	require.NoError(t, err)
	assert.Equal(t, []byte("da"), op.Data())
	assert.Equal(t, []byte{}, op.Signature())
	assert.Equal(t, common.HexToAddress("0x01"), op.From())
}

func TestSolverScore(t *testing.T) {
	props := testSolverOpProps()
	props["score"] = "12.5"

	op, err := NewSolverOperation(props)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("12.5").Equal(op.Score))

	plain := testSolverOp(t)
	a, err := op.AbiEncode()
	require.NoError(t, err)
	b, err := plain.AbiEncode()
	require.NoError(t, err)
	assert.Equal(t, a, b, "score is not encoded")

	_, ok := props["score"]
	assert.True(t, ok, "input props must not be mutated")
}
