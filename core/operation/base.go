package operation

import (
	"bytes"
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// tupleOffset is the head word of abi.encode(struct) for a struct with dynamic members.
var tupleOffset = common.LeftPadBytes(big.NewInt(32).Bytes(), 32)

// BaseOperation is the schema driven field store shared by every operation kind.
// Values are kept in schema order; a nil slot is an unset field.
type BaseOperation struct {
	schema *Schema
	values []any
}

func newBaseOperation(s *Schema) BaseOperation {
	return BaseOperation{schema: s, values: make([]any, len(s.Fields))}
}

func (op *BaseOperation) Schema() *Schema {
	return op.schema
}

// SetField validates and stores a single field.
func (op *BaseOperation) SetField(name string, value any) error {
	i, ok := op.schema.Lookup(name)
	if !ok {
		return &UnknownFieldError{Schema: op.schema.Name, Field: name}
	}
	return op.set(i, value)
}

// GetField returns the canonical value of a field, nil when unset.
func (op *BaseOperation) GetField(name string) (any, error) {
	i, ok := op.schema.Lookup(name)
	if !ok {
		return nil, &UnknownFieldError{Schema: op.schema.Name, Field: name}
	}
	return cloneValue(op.values[i]), nil
}

func (op *BaseOperation) set(i int, value any) error {
	v, err := checkValue(op.schema.Fields[i], value)
	if err != nil {
		return err
	}
	op.values[i] = v
	return nil
}

func (op *BaseOperation) get(i int) any {
	return op.values[i]
}

func (op *BaseOperation) addressAt(i int) common.Address {
	if v, ok := op.values[i].(common.Address); ok {
		return v
	}
	return common.Address{}
}

func (op *BaseOperation) uintAt(i int) *big.Int {
	if v, ok := op.values[i].(*big.Int); ok {
		return new(big.Int).Set(v)
	}
	return nil
}

func (op *BaseOperation) hashAt(i int) common.Hash {
	if v, ok := op.values[i].(common.Hash); ok {
		return v
	}
	return common.Hash{}
}

func (op *BaseOperation) bytesAt(i int) []byte {
	if v, ok := op.values[i].([]byte); ok {
		return common.CopyBytes(v)
	}
	return nil
}

// ValidateFields checks that every field is set and satisfies its type rule.
func (op *BaseOperation) ValidateFields() error {
	for i, f := range op.schema.Fields {
		if _, err := checkValue(f, op.values[i]); err != nil {
			return err
		}
	}
	return nil
}

// ValidateSignatureFormat checks the signature field only. It does not verify the signature.
func (op *BaseOperation) ValidateSignatureFormat() error {
	f := op.schema.Fields[op.schema.signatureIndex()]
	if _, err := checkValue(f, op.values[op.schema.signatureIndex()]); err != nil {
		return fmt.Errorf("%w: %v", ErrSignatureFormat, err)
	}
	return nil
}

// AbiEncode returns abi.encode(op) of the on-chain struct, all fields in schema order.
func (op *BaseOperation) AbiEncode() ([]byte, error) {
	if err := op.ValidateFields(); err != nil {
		return nil, err
	}

	args := make([]any, len(op.values))
	for i, f := range op.schema.Fields {
		args[i] = packValue(f.Type, op.values[i])
	}

	body, err := op.schema.tupleArgs.Pack(args...)
	if err != nil {
		return nil, &EncodingError{Schema: op.schema.Name, Err: err}
	}

	return append(common.CopyBytes(tupleOffset), body...), nil
}

// AbiDecode replaces every field with the values decoded from an AbiEncode output.
func (op *BaseOperation) AbiDecode(data []byte) error {
	if len(data) < 32 || !bytes.Equal(data[:32], tupleOffset) {
		return &EncodingError{Schema: op.schema.Name, Err: fmt.Errorf("missing tuple offset")}
	}

	decoded, err := op.schema.tupleArgs.Unpack(data[32:])
	if err != nil {
		return &EncodingError{Schema: op.schema.Name, Err: err}
	}
	if len(decoded) != len(op.schema.Fields) {
		return &EncodingError{Schema: op.schema.Name, Err: fmt.Errorf("decoded %d fields, want %d", len(decoded), len(op.schema.Fields))}
	}

	values := make([]any, len(decoded))
	for i, f := range op.schema.Fields {
		v, err := checkValue(f, unpackValue(f.Type, decoded[i]))
		if err != nil {
			return err
		}
		values[i] = v
	}
	op.values = values
	return nil
}

// Hash is keccak256(AbiEncode()), the identity hash of the operation.
func (op *BaseOperation) Hash() (common.Hash, error) {
	encoded, err := op.AbiEncode()
	if err != nil {
		return common.Hash{}, err
	}
	return crypto.Keccak256Hash(encoded), nil
}

func (op *BaseOperation) TypeHash() common.Hash {
	return op.schema.TypeHash()
}

// ProofHash is the EIP-712 struct hash: keccak256(abi.encode(typeHash, field1, ..., fieldN-1))
// with bytes members replaced by their keccak256 digest.
func (op *BaseOperation) ProofHash() (common.Hash, error) {
	if err := op.ValidateFields(); err != nil {
		return common.Hash{}, err
	}

	n := op.schema.signatureIndex()
	args := make([]any, 0, n+1)
	args = append(args, [32]byte(op.schema.TypeHash()))
	for i, f := range op.schema.Fields[:n] {
		if f.Type == Bytes {
			args = append(args, [32]byte(crypto.Keccak256Hash(op.values[i].([]byte))))
			continue
		}
		args = append(args, packValue(f.Type, op.values[i]))
	}

	encoded, err := op.schema.proofArgs.Pack(args...)
	if err != nil {
		return common.Hash{}, &EncodingError{Schema: op.schema.Name, Err: err}
	}
	return crypto.Keccak256Hash(encoded), nil
}

// ToTypedDataTypes returns the EIP-712 types of this operation, domain type included.
func (op *BaseOperation) ToTypedDataTypes() apitypes.Types {
	fields := op.schema.Fields[:op.schema.signatureIndex()]
	types := make([]apitypes.Type, len(fields))
	for i, f := range fields {
		types[i] = apitypes.Type{Name: f.Name, Type: f.Type.String()}
	}
	return apitypes.Types{
		"EIP712Domain":  domainTypes,
		op.schema.Name: types,
	}
}

// ToTypedDataValues returns the EIP-712 message of this operation. Bytes members are
// given raw; an EIP-712 encoder hashes them, which yields ProofHash.
func (op *BaseOperation) ToTypedDataValues() (apitypes.TypedDataMessage, error) {
	if err := op.ValidateFields(); err != nil {
		return nil, err
	}

	msg := apitypes.TypedDataMessage{}
	for i, f := range op.schema.Fields[:op.schema.signatureIndex()] {
		switch f.Type {
		case Uint256, Uint32:
			msg[f.Name] = new(big.Int).Set(op.values[i].(*big.Int))
		default:
			msg[f.Name] = jsonValue(f.Type, op.values[i])
		}
	}
	return msg, nil
}

// TypedData bundles types, domain and message for an external EIP-712 signer.
func (op *BaseOperation) TypedData(domain Domain) (*apitypes.TypedData, error) {
	msg, err := op.ToTypedDataValues()
	if err != nil {
		return nil, err
	}
	return &apitypes.TypedData{
		Types:       op.ToTypedDataTypes(),
		PrimaryType: op.schema.Name,
		Domain:      domain.typedDataDomain(),
		Message:     msg,
	}, nil
}

// Digest is the EIP-712 digest to sign: keccak256("\x19\x01" || domainSeparator || ProofHash()).
func (op *BaseOperation) Digest(domain Domain) (common.Hash, error) {
	proof, err := op.ProofHash()
	if err != nil {
		return common.Hash{}, err
	}
	return domain.HashTypedData(proof)
}

// Sign sets the signature field to the EIP-712 signature of key over Digest(domain).
func (op *BaseOperation) Sign(domain Domain, key *ecdsa.PrivateKey) error {
	digest, err := op.Digest(domain)
	if err != nil {
		return err
	}
	sig, err := SignDigest(key, digest)
	if err != nil {
		return err
	}
	return op.set(op.schema.signatureIndex(), sig)
}

// ValidateSignature recovers the signer of the EIP-712 digest and requires it to be `from`.
func (op *BaseOperation) ValidateSignature(domain Domain) error {
	if err := op.ValidateFields(); err != nil {
		return err
	}
	if err := op.ValidateSignatureFormat(); err != nil {
		return err
	}

	digest, err := op.Digest(domain)
	if err != nil {
		return err
	}

	signer, err := RecoverSigner(digest, op.values[op.schema.signatureIndex()].([]byte))
	if err != nil {
		return err
	}

	from, _ := op.schema.Lookup("from")
	if want := op.addressAt(from); signer != want {
		return signatureVerificationError("%s signed by %s, expect %s", op.schema.Name, signer.Hex(), want.Hex())
	}
	return nil
}

// Fields returns the wire form of all set fields.
func (op *BaseOperation) Fields() map[string]string {
	out := make(map[string]string, len(op.values))
	for i, f := range op.schema.Fields {
		if op.values[i] != nil {
			out[f.Name] = jsonValue(f.Type, op.values[i])
		}
	}
	return out
}

// MarshalJSON writes fields in schema order using hex strings and hex quantities.
func (op BaseOperation) MarshalJSON() ([]byte, error) {
	if err := op.ValidateFields(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range op.schema.Fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, _ := json.Marshal(f.Name)
		val, _ := json.Marshal(jsonValue(f.Type, op.values[i]))
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (op *BaseOperation) clone() BaseOperation {
	c := BaseOperation{schema: op.schema, values: make([]any, len(op.values))}
	for i, v := range op.values {
		c.values[i] = cloneValue(v)
	}
	return c
}
