package operation

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDomainSeparator(t *testing.T) {
	d := testDomain()

	sep, err := d.Separator()
	require.NoError(t, err)

	typeHash := crypto.Keccak256([]byte("EIP712Domain(string name,string version,uint256 chainId,address verifyingContract)"))
	expected := crypto.Keccak256Hash(
		typeHash,
		crypto.Keccak256([]byte(d.Name)),
		crypto.Keccak256([]byte(d.Version)),
		math.U256Bytes(d.ChainID),
		common.LeftPadBytes(d.VerifyingContract.Bytes(), 32),
	)
	assert.Equal(t, expected, sep)
}

func TestSignAndRecover(t *testing.T) {
	key, addr := testKey(t)
	digest := crypto.Keccak256Hash([]byte("digest"))

	sig, err := SignDigest(key, digest)
	require.NoError(t, err)
	require.Len(t, sig, 65)
	assert.Contains(t, []byte{27, 28}, sig[64])

	signer, err := RecoverSigner(digest, sig)
	require.NoError(t, err)
	assert.Equal(t, addr, signer)

	// 0/1 recovery ids are accepted as well
	sig[64] -= 27
	signer, err = RecoverSigner(digest, sig)
	require.NoError(t, err)
	assert.Equal(t, addr, signer)

	_, err = RecoverSigner(digest, sig[:64])
	assert.ErrorIs(t, err, ErrSignatureFormat)
}

func TestOperationSignature(t *testing.T) {
	key, addr := testKey(t)
	domain := testDomain()

	op := testUserOp(t)
	require.NoError(t, op.SetField("from", addr))
	require.NoError(t, op.Sign(domain, key))
	require.NoError(t, op.ValidateSignature(domain))

	// a signature over another domain does not verify
	other := testDomain()
	other.Version = "2.0"
	assert.ErrorIs(t, op.ValidateSignature(other), ErrSignatureVerification)

	// mutating a field after signing invalidates the signature
	require.NoError(t, op.SetField("gas", 1))
	assert.ErrorIs(t, op.ValidateSignature(domain), ErrSignatureVerification)

	require.NoError(t, op.SetField("signature", []byte("short")))
	assert.ErrorIs(t, op.ValidateSignature(domain), ErrSignatureFormat)
	assert.NoError(t, op.ValidateSignatureFormat())
}
