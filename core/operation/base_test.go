package operation

import (
	"encoding/json"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAbiEncodeReference(t *testing.T) {
	op := testUserOp(t)

	encoded, err := op.AbiEncode()
	require.NoError(t, err)
	assert.Equal(t, referenceUserOpAbi, hexutil.Encode(encoded))

	hash, err := op.Hash()
	require.NoError(t, err)
	assert.Equal(t, referenceUserOpHash, hash.Hex())
}

func TestAbiRoundTrip(t *testing.T) {
	userOp := testUserOp(t)
	encoded, err := userOp.AbiEncode()
	require.NoError(t, err)

	decoded := newUserOperation()
	require.NoError(t, decoded.AbiDecode(encoded))
	assert.Equal(t, userOp.Fields(), decoded.Fields())
	assert.Equal(t, uint32(600), decoded.CallConfig())

	solverOp := testSolverOp(t)
	encoded, err = solverOp.AbiEncode()
	require.NoError(t, err)

	decodedSolver := newSolverOperation()
	require.NoError(t, decodedSolver.AbiDecode(encoded))
	assert.Equal(t, solverOp.Fields(), decodedSolver.Fields())
	assert.Equal(t, common.HexToHash("0x05"), decodedSolver.UserOpHash())
}

func TestAbiDecodeRejectsGarbage(t *testing.T) {
	op := newUserOperation()

	err := op.AbiDecode([]byte{0x01, 0x02})
	assert.ErrorIs(t, err, ErrEncoding)

	encoded, err := testUserOp(t).AbiEncode()
	require.NoError(t, err)
	err = op.AbiDecode(encoded[:len(encoded)-64])
	assert.ErrorIs(t, err, ErrEncoding)
}

func TestSetFieldUnknown(t *testing.T) {
	op := testUserOp(t)

	err := op.SetField("bidAmount", 1)
	var unknown *UnknownFieldError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "bidAmount", unknown.Field)
	assert.ErrorIs(t, err, ErrUnknownField)

	_, err = op.GetField("bidAmount")
	assert.ErrorIs(t, err, ErrUnknownField)
}

func TestSetFieldValidation(t *testing.T) {
	op := testUserOp(t)

	cases := []struct {
		field string
		value any
	}{
		{"from", "0x01"},
		{"from", "XE7338O073KYGTWWZN0F2WZ0R8PX5ZPPZS"},
		{"from", "0000000000000000000000000000000000000001"},
		{"value", big.NewInt(-1)},
		{"value", new(big.Int).Lsh(big.NewInt(1), 256)},
		{"callConfig", new(big.Int).Lsh(big.NewInt(1), 32)},
		{"data", "0x123"},
		{"data", 12},
	}
	for _, c := range cases {
		err := op.SetField(c.field, c.value)
		var invalid *InvalidFieldError
		if assert.ErrorAs(t, err, &invalid, "%s=%v", c.field, c.value) {
			assert.Equal(t, c.field, invalid.Field)
			assert.ErrorIs(t, err, ErrInvalidField)
		}
	}

	maxUint := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
	require.NoError(t, op.SetField("value", maxUint))
	v, err := op.GetField("value")
	require.NoError(t, err)
	assert.Equal(t, 0, maxUint.Cmp(v.(*big.Int)))

	require.NoError(t, op.SetField("callConfig", uint32(0xffffffff)))
}

func TestSetFieldBytes32(t *testing.T) {
	op := testSolverOp(t)

	require.NoError(t, op.SetField("userOpHash", common.HexToHash("0xab")))
	err := op.SetField("userOpHash", []byte{0x01})
	assert.ErrorIs(t, err, ErrInvalidField)
	err = op.SetField("userOpHash", "0xabcd")
	assert.ErrorIs(t, err, ErrInvalidField)
}

func TestEncodeFailsOnMissingField(t *testing.T) {
	op := newUserOperation()
	require.NoError(t, op.SetField("from", common.HexToAddress("0x01")))

	_, err := op.AbiEncode()
	assert.ErrorIs(t, err, ErrMissingField)

	_, err = op.ProofHash()
	assert.ErrorIs(t, err, ErrMissingField)

	assert.ErrorIs(t, op.ValidateFields(), ErrInvalidField)
}

func TestGetFieldReturnsCopy(t *testing.T) {
	op := testUserOp(t)

	v, err := op.GetField("value")
	require.NoError(t, err)
	v.(*big.Int).SetInt64(1)

	assert.Equal(t, int64(500), op.Value().Int64())
}

func TestProofHashReference(t *testing.T) {
	proof, err := testUserOp(t).ProofHash()
	require.NoError(t, err)
	assert.Equal(t, referenceUserOpProofHash, proof.Hex())
}

func TestProofHashTracksEveryField(t *testing.T) {
	base, err := testUserOp(t).ProofHash()
	require.NoError(t, err)

	changes := Props{
		"from":         "0x0000000000000000000000000000000000000009",
		"to":           "0x0000000000000000000000000000000000000009",
		"value":        9,
		"gas":          9,
		"maxFeePerGas": 9,
		"nonce":        9,
		"deadline":     9,
		"dapp":         "0x0000000000000000000000000000000000000009",
		"control":      "0x0000000000000000000000000000000000000009",
		"callConfig":   9,
		"sessionKey":   "0x0000000000000000000000000000000000000009",
		"data":         []byte("datb"),
	}
	for field, value := range changes {
		op := testUserOp(t)
		require.NoError(t, op.SetField(field, value))
		changed, err := op.ProofHash()
		require.NoError(t, err)
		assert.NotEqual(t, base, changed, "changing %s must change the proof hash", field)
	}

	op := testUserOp(t)
	require.NoError(t, op.SetField("signature", []byte("another signature")))
	same, err := op.ProofHash()
	require.NoError(t, err)
	assert.Equal(t, base, same, "signature is not part of the proof hash")
}

func TestTypedDataMatchesProofHash(t *testing.T) {
	for _, op := range []*BaseOperation{&testUserOp(t).BaseOperation, &testSolverOp(t).BaseOperation} {
		td, err := op.TypedData(testDomain())
		require.NoError(t, err)

		structHash, err := td.HashStruct(td.PrimaryType, td.Message)
		require.NoError(t, err)

		proof, err := op.ProofHash()
		require.NoError(t, err)
		assert.Equal(t, proof, common.BytesToHash(structHash), op.Schema().Name)

		digest, _, err := apitypes.TypedDataAndHash(*td)
		require.NoError(t, err)
		expected, err := op.Digest(testDomain())
		require.NoError(t, err)
		assert.Equal(t, expected, common.BytesToHash(digest))
	}
}

func TestTypedDataTypesExcludeSignature(t *testing.T) {
	types := testUserOp(t).ToTypedDataTypes()

	require.Contains(t, types, "UserOperation")
	require.Contains(t, types, "EIP712Domain")
	assert.Len(t, types["UserOperation"], len(UserOperationSchema.Fields)-1)
	for _, f := range types["UserOperation"] {
		assert.NotEqual(t, "signature", f.Name)
	}

	values, err := testUserOp(t).ToTypedDataValues()
	require.NoError(t, err)
	assert.NotContains(t, values, "signature")
	assert.Equal(t, "0x64617461", values["data"])
}

func TestJSONRoundTrip(t *testing.T) {
	op := testUserOp(t)

	data, err := json.Marshal(op)
	require.NoError(t, err)

	var raw map[string]string
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "0x1f4", raw["value"])
	assert.Equal(t, "0x0000000000000000000000000000000000000001", raw["from"])
	assert.Equal(t, "0x64617461", raw["data"])

	var decoded UserOperation
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, op.Fields(), decoded.Fields())

	err = json.Unmarshal([]byte(`{"from":"0x01"}`), &decoded)
	assert.True(t, errors.Is(err, ErrInvalidField))
}

func TestMarshalRequiresCompleteOperation(t *testing.T) {
	_, err := json.Marshal(newDAppOperation())
	assert.Error(t, err)
}
