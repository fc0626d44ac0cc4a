package operation

import (
	"encoding/json"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedBundle(t *testing.T) *Bundle {
	t.Helper()
	domain := testDomain()

	userKey, userAddr := testKey(t)
	sessionKey, sessionAddr := testKey(t)

	userOp := testUserOp(t)
	require.NoError(t, userOp.SetField("from", userAddr))
	require.NoError(t, userOp.SetField("sessionKey", sessionAddr))
	require.NoError(t, userOp.Sign(domain, userKey))

	userOpHash, err := userOp.HashWithDomain(domain, false)
	require.NoError(t, err)

	solverOps := threeSolverOps(t)
	dAppOp, err := NewDAppOperationFromUserSolvers(userOpHash, userOp, solverOps, sessionAddr, false, common.Address{})
	require.NoError(t, err)
	require.NoError(t, dAppOp.Sign(domain, sessionKey))

	return NewBundle(userOp, solverOps, dAppOp)
}

func TestBundleValidate(t *testing.T) {
	b := signedBundle(t)
	assert.NoError(t, b.Validate(testDomain(), true))
}

func TestBundleRejectsBadDAppSignature(t *testing.T) {
	b := signedBundle(t)

	otherKey, _ := testKey(t)
	require.NoError(t, b.DAppOperation.Sign(testDomain(), otherKey))

	err := b.Validate(testDomain(), false)
	var bve *BundleValidationError
	require.ErrorAs(t, err, &bve)
	assert.Equal(t, "dAppOperation", bve.Operation)
	assert.ErrorIs(t, err, ErrSignatureVerification)
	assert.ErrorIs(t, err, ErrBundleValidation)
}

func TestBundleUserSignatureCheckIsOptional(t *testing.T) {
	b := signedBundle(t)
	require.NoError(t, b.UserOperation.SetField("signature", []byte{}))

	assert.NoError(t, b.Validate(testDomain(), false))

	err := b.Validate(testDomain(), true)
	var bve *BundleValidationError
	require.True(t, errors.As(err, &bve))
	assert.Equal(t, "userOperation", bve.Operation)
}

func TestBundleSkipsSolverValidation(t *testing.T) {
	b := signedBundle(t)
	b.SolverOperations = append(b.SolverOperations, newSolverOperation())

	assert.NoError(t, b.Validate(testDomain(), true))
}

func TestBundleRejectsInvalidUserOperation(t *testing.T) {
	b := signedBundle(t)
	b.UserOperation = newUserOperation()

	err := b.Validate(testDomain(), false)
	var bve *BundleValidationError
	require.ErrorAs(t, err, &bve)
	assert.Equal(t, "userOperation", bve.Operation)
	assert.ErrorIs(t, err, ErrMissingField)
	assert.Contains(t, err.Error(), "from")
}

func TestBundleWireForm(t *testing.T) {
	b := signedBundle(t)

	data, err := json.Marshal(b.ToWire(big.NewInt(1)))
	require.NoError(t, err)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, `"0x1"`, string(raw["chainId"]))
	assert.Contains(t, raw, "userOperation")
	assert.Contains(t, raw, "solverOperations")
	assert.Contains(t, raw, "dAppOperation")

	var decoded WireBundle
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Len(t, decoded.SolverOperations, 3)
	assert.NoError(t, decoded.Bundle().Validate(testDomain(), true))
}
