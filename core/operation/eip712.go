package operation

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

var domainTypes = []apitypes.Type{
	{Name: "name", Type: "string"},
	{Name: "version", Type: "string"},
	{Name: "chainId", Type: "uint256"},
	{Name: "verifyingContract", Type: "address"},
}

// Domain is the EIP-712 domain of the Atlas verification contract.
type Domain struct {
	Name              string         `json:"name" mapstructure:"name"`
	Version           string         `json:"version" mapstructure:"version"`
	ChainID           *big.Int       `json:"chainId" mapstructure:"chainId"`
	VerifyingContract common.Address `json:"verifyingContract" mapstructure:"verifyingContract"`
}

func (d Domain) typedDataDomain() apitypes.TypedDataDomain {
	chainID := d.ChainID
	if chainID == nil {
		chainID = new(big.Int)
	}
	return apitypes.TypedDataDomain{
		Name:              d.Name,
		Version:           d.Version,
		ChainId:           (*math.HexOrDecimal256)(new(big.Int).Set(chainID)),
		VerifyingContract: d.VerifyingContract.Hex(),
	}
}

// Separator is the EIP-712 domain separator.
func (d Domain) Separator() (common.Hash, error) {
	td := apitypes.TypedData{
		Types:  apitypes.Types{"EIP712Domain": domainTypes},
		Domain: d.typedDataDomain(),
	}
	sep, err := td.HashStruct("EIP712Domain", td.Domain.Map())
	if err != nil {
		return common.Hash{}, fmt.Errorf("domain separator: %w", err)
	}
	return common.BytesToHash(sep), nil
}

// HashTypedData returns keccak256("\x19\x01" || separator || structHash).
func (d Domain) HashTypedData(structHash common.Hash) (common.Hash, error) {
	sep, err := d.Separator()
	if err != nil {
		return common.Hash{}, err
	}
	return crypto.Keccak256Hash([]byte("\x19\x01"), sep.Bytes(), structHash.Bytes()), nil
}

// SignDigest produces a 65 byte [R || S || V] signature with V in {27, 28}.
func SignDigest(key *ecdsa.PrivateKey, digest common.Hash) ([]byte, error) {
	sig, err := crypto.Sign(digest.Bytes(), key)
	if err != nil {
		return nil, err
	}
	sig[crypto.RecoveryIDOffset] += 27
	return sig, nil
}

// RecoverSigner returns the address that produced sig over digest. Both V conventions are accepted.
func RecoverSigner(digest common.Hash, sig []byte) (common.Address, error) {
	if len(sig) != crypto.SignatureLength {
		return common.Address{}, signatureFormatError(fmt.Sprintf("expect %d bytes, got %d", crypto.SignatureLength, len(sig)))
	}

	normalized := common.CopyBytes(sig)
	if normalized[crypto.RecoveryIDOffset] >= 27 {
		normalized[crypto.RecoveryIDOffset] -= 27
	}
	if normalized[crypto.RecoveryIDOffset] > 1 {
		return common.Address{}, signatureFormatError("invalid recovery id")
	}

	pub, err := crypto.SigToPub(digest.Bytes(), normalized)
	if err != nil {
		return common.Address{}, signatureVerificationError("recover: %v", err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}
