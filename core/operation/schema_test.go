package operation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypeStrings(t *testing.T) {
	assert.Equal(t,
		"UserOperation(address from,address to,uint256 value,uint256 gas,uint256 maxFeePerGas,uint256 nonce,uint256 deadline,address dapp,address control,uint32 callConfig,address sessionKey,bytes data)",
		UserOperationSchema.TypeString())
	assert.Equal(t,
		"SolverOperation(address from,address to,uint256 value,uint256 gas,uint256 maxFeePerGas,uint256 deadline,address solver,address control,bytes32 userOpHash,address bidToken,uint256 bidAmount,bytes data)",
		SolverOperationSchema.TypeString())
	assert.Equal(t,
		"DAppOperation(address from,address to,uint256 nonce,uint256 deadline,address control,address bundler,bytes32 userOpHash,bytes32 callChainHash)",
		DAppOperationSchema.TypeString())
}

func TestTypeHashes(t *testing.T) {
	assert.Equal(t, "0xf31c75b3100e5767eb039f15afcdf4cefd3b35ea6ae27ffc4135a27b83d0610e", UserOperationSchema.TypeHash().Hex())
	assert.Equal(t, "0x57d8655e41f8b345d65e4e5aad590481b56d0ebc5b7a589653f3f46f30ba3076", SolverOperationSchema.TypeHash().Hex())
	assert.Equal(t, "0x88ef8fc82c1c9cd8c70c0ba2062b71d8e01324e34aea7264c6a6f2220a2e21a5", DAppOperationSchema.TypeHash().Hex())
	assert.Equal(t, "0xca1d2fd72c857f54b9c8b2576463534d8f4df0fcd25f408c17991285b16ca41a", trustedUserSchema.TypeHash().Hex())
}

func TestTypeHashIndependentOfValues(t *testing.T) {
	a := testUserOp(t)
	b := testUserOp(t)
	require.NoError(t, b.SetField("value", 12345))
	require.NoError(t, b.SetField("data", []byte("something else")))

	assert.Equal(t, a.TypeHash(), b.TypeHash())
	assert.Equal(t, UserOperationSchema.TypeHash(), newUserOperation().TypeHash())
}

func TestTupleSignature(t *testing.T) {
	assert.Equal(t,
		"(address,address,uint256,uint256,uint256,uint256,uint256,address,address,uint32,address,bytes,bytes)",
		UserOperationSchema.TupleSignature())
}

func TestNewSchemaRequiresTrailingSignature(t *testing.T) {
	_, err := NewSchema("Broken", []Field{{"from", Address}})
	assert.Error(t, err)

	_, err = NewSchema("Broken", []Field{{"from", Address}, {"from", Address}, {"signature", Bytes}})
	assert.Error(t, err)

	s, err := NewSchema("Ok", []Field{{"from", Address}, {"signature", Bytes}})
	require.NoError(t, err)
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, "Ok(address from)", s.TypeString())
}
