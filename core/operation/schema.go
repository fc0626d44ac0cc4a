package operation

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// SolidityType is the scalar solidity type of an operation field.
type SolidityType int

const (
	Address SolidityType = iota
	Uint256
	Uint32
	Bytes32
	Bytes
)

func (t SolidityType) String() string {
	switch t {
	case Address:
		return "address"
	case Uint256:
		return "uint256"
	case Uint32:
		return "uint32"
	case Bytes32:
		return "bytes32"
	case Bytes:
		return "bytes"
	}
	return fmt.Sprintf("SolidityType(%d)", int(t))
}

// bits is the width of unsigned integer types, 0 for the other types.
func (t SolidityType) bits() int {
	switch t {
	case Uint256:
		return 256
	case Uint32:
		return 32
	}
	return 0
}

// Field is one entry of a schema. Order inside a schema is the on-chain struct layout.
type Field struct {
	Name string
	Type SolidityType
}

// Schema describes the canonical layout of an operation kind. The trailing field is
// always the signature and is left out of the EIP-712 type string and struct hash.
type Schema struct {
	Name   string
	Fields []Field

	index    map[string]int
	typeHash common.Hash

	// tuple body and struct hash argument lists, built once
	tupleArgs abi.Arguments
	proofArgs abi.Arguments
}

func mustSchema(name string, fields []Field) *Schema {
	s, err := NewSchema(name, fields)
	if err != nil {
		panic(err)
	}
	return s
}

// NewSchema validates the field list and precomputes the type hash and ABI arguments.
func NewSchema(name string, fields []Field) (*Schema, error) {
	if len(fields) == 0 || fields[len(fields)-1].Name != "signature" || fields[len(fields)-1].Type != Bytes {
		return nil, fmt.Errorf("schema %s: last field must be `bytes signature`", name)
	}

	s := &Schema{
		Name:   name,
		Fields: fields,
		index:  make(map[string]int, len(fields)),
	}

	bytes32Type, err := abi.NewType("bytes32", "", nil)
	if err != nil {
		return nil, err
	}
	s.proofArgs = append(s.proofArgs, abi.Argument{Name: "typeHash", Type: bytes32Type})

	for i, f := range fields {
		if _, dup := s.index[f.Name]; dup {
			return nil, fmt.Errorf("schema %s: duplicated field %s", name, f.Name)
		}
		s.index[f.Name] = i

		t, err := abi.NewType(f.Type.String(), "", nil)
		if err != nil {
			return nil, fmt.Errorf("schema %s: field %s: %w", name, f.Name, err)
		}
		s.tupleArgs = append(s.tupleArgs, abi.Argument{Name: f.Name, Type: t})

		if i == len(fields)-1 {
			continue
		}
		if f.Type == Bytes {
			// dynamic members enter the struct hash as their keccak256 digest
			t = bytes32Type
		}
		s.proofArgs = append(s.proofArgs, abi.Argument{Name: f.Name, Type: t})
	}

	s.typeHash = crypto.Keccak256Hash([]byte(s.TypeString()))
	return s, nil
}

// TypeString returns the EIP-712 encodeType string, e.g. "DAppOperation(address from,...)".
func (s *Schema) TypeString() string {
	return typeString(s.Name, s.Fields[:len(s.Fields)-1])
}

func typeString(name string, fields []Field) string {
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = f.Type.String() + " " + f.Name
	}
	return name + "(" + strings.Join(parts, ",") + ")"
}

// TypeHash is keccak256 of TypeString. It only depends on the schema.
func (s *Schema) TypeHash() common.Hash {
	return s.typeHash
}

// TupleSignature is the canonical ABI tuple type, e.g. "(address,address,uint256,...)".
func (s *Schema) TupleSignature() string {
	parts := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		parts[i] = f.Type.String()
	}
	return "(" + strings.Join(parts, ",") + ")"
}

// Lookup returns the index of the named field.
func (s *Schema) Lookup(name string) (int, bool) {
	i, ok := s.index[name]
	return i, ok
}

// Len is the number of fields including the signature.
func (s *Schema) Len() int {
	return len(s.Fields)
}

func (s *Schema) signatureIndex() int {
	return len(s.Fields) - 1
}
