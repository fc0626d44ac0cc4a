package operation

import (
	"crypto/ecdsa"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
)

const (
	// abi.encode of the reference user operation built by testUserOpProps
	referenceUserOpAbi = "0x" +
		"0000000000000000000000000000000000000000000000000000000000000020" +
		"0000000000000000000000000000000000000000000000000000000000000001" +
		"0000000000000000000000000000000000000000000000000000000000000002" +
		"00000000000000000000000000000000000000000000000000000000000001f4" +
		"00000000000000000000000000000000000000000000000000000000000000c8" +
		"0000000000000000000000000000000000000000000000000000000000000190" +
		"000000000000000000000000000000000000000000000000000000000000012c" +
		"0000000000000000000000000000000000000000000000000000000000000064" +
		"0000000000000000000000000000000000000000000000000000000000000003" +
		"0000000000000000000000000000000000000000000000000000000000000004" +
		"0000000000000000000000000000000000000000000000000000000000000258" +
		"0000000000000000000000000000000000000000000000000000000000000005" +
		"00000000000000000000000000000000000000000000000000000000000001a0" +
		"00000000000000000000000000000000000000000000000000000000000001e0" +
		"0000000000000000000000000000000000000000000000000000000000000004" +
		"6461746100000000000000000000000000000000000000000000000000000000" +
		"0000000000000000000000000000000000000000000000000000000000000009" +
		"7369676e61747572650000000000000000000000000000000000000000000000"

	referenceUserOpHash         = "0x38695db18ae63359c546b0d7db62472decbdadf494bdeeb986a7e3766bd01427"
	referenceUserOpProofHash    = "0x904be4011e9368ff010a9a3189510b4d82aa21aefbbbe6824c41e40ceb75d18a"
	referenceCallChainHashPreOp = "0x97dc0d4b198fa1b609bab6dd03242e4182eee057a50114abfe3c5e738d526615"
	referenceCallChainHash      = "0xa2dcaf9ddb30d03811f66aa331d996df398057b72eee001e17e6e7b259515984"
)

func testUserOpProps() Props {
	return Props{
		"from":         "0x0000000000000000000000000000000000000001",
		"to":           "0x0000000000000000000000000000000000000002",
		"deadline":     100,
		"gas":          200,
		"nonce":        300,
		"maxFeePerGas": 400,
		"value":        500,
		"dapp":         "0x0000000000000000000000000000000000000003",
		"control":      "0x0000000000000000000000000000000000000004",
		"callConfig":   600,
		"sessionKey":   "0x0000000000000000000000000000000000000005",
		"data":         []byte("data"),
		"signature":    []byte("signature"),
	}
}

func testSolverOpProps() Props {
	return Props{
		"from":         "0x0000000000000000000000000000000000000001",
		"to":           "0x0000000000000000000000000000000000000002",
		"value":        100,
		"gas":          200,
		"maxFeePerGas": 300,
		"deadline":     400,
		"solver":       "0x0000000000000000000000000000000000000003",
		"control":      "0x0000000000000000000000000000000000000004",
		"userOpHash":   "0x0000000000000000000000000000000000000000000000000000000000000005",
		"bidToken":     "0x0000000000000000000000000000000000000006",
		"bidAmount":    500,
		"data":         []byte("data"),
		"signature":    []byte("signature"),
	}
}

func testUserOp(t *testing.T) *UserOperation {
	t.Helper()
	op, err := NewUserOperation(testUserOpProps())
	require.NoError(t, err)
	return op
}

func testSolverOp(t *testing.T) *SolverOperation {
	t.Helper()
	op, err := NewSolverOperation(testSolverOpProps())
	require.NoError(t, err)
	return op
}

func testDomain() Domain {
	return Domain{
		Name:              "AtlasVerification",
		Version:           "1.0",
		ChainID:           big.NewInt(11155111),
		VerifyingContract: common.HexToAddress("0xF31c08E8CE0f5C5E0D36fdB4E5C5D3C1b1e1d5A1"),
	}
}

func testKey(t *testing.T) (*ecdsa.PrivateKey, common.Address) {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return key, crypto.PubkeyToAddress(key.PublicKey)
}
