package testutil

import (
	"crypto/ecdsa"
	"math/big"
	"os"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"github.com/AvaProtocol/ap-atlas/core/operation"
)

const (
	// Sepolia AtlasVerification deployment used across fixtures.
	TestChainID           = 11155111
	TestVerifyingContract = "0xf31cf8740Dc4438Bb89a56Ee2234Ba9d5595c0E9"
)

// GetTestRelayURL returns the relay used by opt-in integration tests, or an
// empty string when none is configured.
func GetTestRelayURL() string {
	return os.Getenv("ATLAS_RELAY_URL")
}

func TestDomain() operation.Domain {
	return operation.Domain{
		Name:              "AtlasVerification",
		Version:           "1.0",
		ChainID:           big.NewInt(TestChainID),
		VerifyingContract: common.HexToAddress(TestVerifyingContract),
	}
}

// TestKey returns a fixed, well known private key.
func TestKey(t testing.TB) *ecdsa.PrivateKey {
	t.Helper()
	key, err := crypto.HexToECDSA("ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80")
	require.NoError(t, err)
	return key
}

func UserOperationProps(from common.Address) operation.Props {
	return operation.Props{
		"from":         from,
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
	}
}

func UserOperation(t testing.TB) *operation.UserOperation {
	t.Helper()
	op, err := operation.NewUserOperation(UserOperationProps(common.HexToAddress("0x0000000000000000000000000000000000000001")))
	require.NoError(t, err)
	return op
}

// SignedUserOperation returns a user operation from TestKey signed under TestDomain.
func SignedUserOperation(t testing.TB) *operation.UserOperation {
	t.Helper()
	key := TestKey(t)
	op, err := operation.NewUserOperation(UserOperationProps(crypto.PubkeyToAddress(key.PublicKey)))
	require.NoError(t, err)
	require.NoError(t, op.Sign(TestDomain(), key))
	return op
}

func SolverOperation(t testing.TB, bidAmount, gas int64) *operation.SolverOperation {
	t.Helper()
	op, err := operation.NewSolverOperation(operation.Props{
		"from":         "0x0000000000000000000000000000000000000001",
		"to":           "0x0000000000000000000000000000000000000002",
		"value":        100,
		"gas":          gas,
		"maxFeePerGas": 300,
		"deadline":     400,
		"solver":       "0x0000000000000000000000000000000000000003",
		"control":      "0x0000000000000000000000000000000000000004",
		"userOpHash":   "0x0000000000000000000000000000000000000000000000000000000000000005",
		"bidToken":     "0x0000000000000000000000000000000000000006",
		"bidAmount":    bidAmount,
		"data":         []byte("data"),
		"signature":    []byte("signature"),
	})
	require.NoError(t, err)
	return op
}
