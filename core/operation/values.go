package operation

import (
	"math/big"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

var (
	addressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)
	hashPattern    = regexp.MustCompile(`^0x[0-9a-fA-F]{64}$`)
	bytesPattern   = regexp.MustCompile(`^0x([0-9a-fA-F]{2})*$`)

	maxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
)

// IsHash reports whether s is a 0x prefixed 32 byte hex string.
func IsHash(s string) bool {
	return hashPattern.MatchString(s)
}

// checkValue validates v against the field rule and returns its canonical form:
// common.Address, *big.Int, common.Hash or []byte. Hex strings are accepted in
// their strict form only; looser inputs go through the builder.
func checkValue(f Field, v any) (any, error) {
	invalid := func(reason string) error {
		return &InvalidFieldError{Field: f.Name, Type: f.Type, Reason: reason}
	}

	if v == nil {
		return nil, &MissingFieldError{Field: f.Name}
	}

	switch f.Type {
	case Address:
		switch val := v.(type) {
		case common.Address:
			return val, nil
		case *common.Address:
			if val == nil {
				return nil, &MissingFieldError{Field: f.Name}
			}
			return *val, nil
		case string:
			if !addressPattern.MatchString(val) {
				return nil, invalid("expect a 0x prefixed 20 byte hex address")
			}
			return common.HexToAddress(val), nil
		}
		return nil, invalid("unsupported address value")

	case Uint256, Uint32:
		var n *big.Int
		switch val := v.(type) {
		case *big.Int:
			if val == nil {
				return nil, &MissingFieldError{Field: f.Name}
			}
			n = new(big.Int).Set(val)
		case uint64:
			n = new(big.Int).SetUint64(val)
		case uint32:
			n = new(big.Int).SetUint64(uint64(val))
		case uint:
			n = new(big.Int).SetUint64(uint64(val))
		case int:
			n = big.NewInt(int64(val))
		case int64:
			n = big.NewInt(val)
		default:
			return nil, invalid("unsupported integer value")
		}
		if n.Sign() < 0 {
			return nil, invalid("negative value")
		}
		if n.Cmp(maxUint256) > 0 || n.BitLen() > f.Type.bits() {
			return nil, invalid("value out of range")
		}
		return n, nil

	case Bytes32:
		switch val := v.(type) {
		case common.Hash:
			return val, nil
		case [32]byte:
			return common.Hash(val), nil
		case []byte:
			if len(val) != common.HashLength {
				return nil, invalid("expect exactly 32 bytes")
			}
			return common.BytesToHash(val), nil
		case string:
			if !hashPattern.MatchString(val) {
				return nil, invalid("expect a 0x prefixed 32 byte hex string")
			}
			return common.HexToHash(val), nil
		}
		return nil, invalid("unsupported bytes32 value")

	case Bytes:
		switch val := v.(type) {
		case []byte:
			return common.CopyBytes(val), nil
		case hexutil.Bytes:
			return common.CopyBytes(val), nil
		case string:
			if !bytesPattern.MatchString(val) {
				return nil, invalid("expect a 0x prefixed hex string with an even number of digits")
			}
			return common.FromHex(val), nil
		}
		return nil, invalid("unsupported bytes value")
	}

	return nil, invalid("unknown solidity type")
}

// packValue converts a canonical value to what the go-ethereum ABI packer expects.
func packValue(t SolidityType, v any) any {
	switch t {
	case Uint32:
		return uint32(v.(*big.Int).Uint64())
	case Bytes32:
		return [32]byte(v.(common.Hash))
	}
	return v
}

// unpackValue is the inverse of packValue for values produced by abi.Arguments.Unpack.
func unpackValue(t SolidityType, v any) any {
	switch t {
	case Uint32:
		return new(big.Int).SetUint64(uint64(v.(uint32)))
	case Bytes32:
		return common.Hash(v.([32]byte))
	}
	return v
}

// jsonValue renders a canonical value in the wire form: hex strings and hex quantities.
func jsonValue(t SolidityType, v any) string {
	switch t {
	case Address:
		return v.(common.Address).Hex()
	case Uint256, Uint32:
		return hexutil.EncodeBig(v.(*big.Int))
	case Bytes32:
		return v.(common.Hash).Hex()
	case Bytes:
		return hexutil.Encode(v.([]byte))
	}
	return ""
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case *big.Int:
		return new(big.Int).Set(val)
	case []byte:
		return common.CopyBytes(val)
	}
	return v
}

func hasHexPrefix(s string) bool {
	return strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X")
}
