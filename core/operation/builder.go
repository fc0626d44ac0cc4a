package operation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// Props is the loosely typed property bag the constructors accept, keyed by schema field name.
type Props map[string]any

// scoreKey is accepted next to the schema fields of a solver operation.
const scoreKey = "score"

// NewUserOperation builds a validated user operation. Missing nonce defaults to 0,
// sessionKey to the zero address and signature to empty bytes.
func NewUserOperation(props Props) (*UserOperation, error) {
	op := newUserOperation()
	if err := build(&op.BaseOperation, props); err != nil {
		return nil, err
	}
	return op, nil
}

// NewSolverOperation builds a validated solver operation. An optional "score" entry sets Score.
func NewSolverOperation(props Props) (*SolverOperation, error) {
	op := newSolverOperation()

	rest := props
	if raw, ok := props[scoreKey]; ok {
		score, err := toDecimal(raw)
		if err != nil {
			return nil, fmt.Errorf("score: %w", err)
		}
		op.Score = score
		rest = lo.OmitByKeys(props, []string{scoreKey})
	}

	if err := build(&op.BaseOperation, rest); err != nil {
		return nil, err
	}
	return op, nil
}

// NewDAppOperation builds a validated dApp operation. Missing nonce defaults to 0,
// bundler to the zero address and signature to empty bytes.
func NewDAppOperation(props Props) (*DAppOperation, error) {
	op := newDAppOperation()
	if err := build(&op.BaseOperation, props); err != nil {
		return nil, err
	}
	return op, nil
}

// NewDAppOperationFromUserSolvers derives the unsigned dApp operation for a user operation and
// the ordered solver set. to, control and deadline come from the user operation.
func NewDAppOperationFromUserSolvers(
	userOpHash common.Hash,
	userOp *UserOperation,
	solverOps []*SolverOperation,
	signer common.Address,
	requirePreOps bool,
	bundler common.Address,
) (*DAppOperation, error) {
	callChainHash, err := CallChainHash(userOp, solverOps, requirePreOps)
	if err != nil {
		return nil, err
	}

	return NewDAppOperation(Props{
		"from":          signer,
		"to":            userOp.To(),
		"deadline":      userOp.Deadline(),
		"control":       userOp.Control(),
		"bundler":       bundler,
		"userOpHash":    userOpHash,
		"callChainHash": callChainHash,
	})
}

func build(op *BaseOperation, props Props) error {
	keys := lo.Keys(props)
	sort.Strings(keys)

	for _, name := range keys {
		i, ok := op.schema.Lookup(name)
		if !ok {
			return &UnknownFieldError{Schema: op.schema.Name, Field: name}
		}
		f := op.schema.Fields[i]
		v, err := coerce(f, props[name])
		if err != nil {
			return err
		}
		if err := op.set(i, v); err != nil {
			return err
		}
	}

	applyDefaults(op)
	return op.ValidateFields()
}

func applyDefaults(op *BaseOperation) {
	defaults := map[string]any{
		"nonce":      new(big.Int),
		"sessionKey": common.Address{},
		"bundler":    common.Address{},
		"signature":  []byte{},
	}
	for name, v := range defaults {
		if i, ok := op.schema.Lookup(name); ok && op.values[i] == nil {
			op.values[i] = v
		}
	}
}

// coerce maps alternate representations onto the canonical value for the field type.
func coerce(f Field, v any) (any, error) {
	invalid := func(reason string) error {
		return &InvalidFieldError{Field: f.Name, Type: f.Type, Reason: reason}
	}

	switch f.Type {
	case Uint256, Uint32:
		n, err := toBigInt(v)
		if err != nil {
			return nil, invalid(err.Error())
		}
		return n, nil

	case Address:
		if b, ok := v.([]byte); ok {
			if len(b) != common.AddressLength {
				return nil, invalid("expect exactly 20 bytes")
			}
			return common.BytesToAddress(b), nil
		}

	case Bytes, Bytes32:
		if s, ok := v.(string); ok && s == "" && f.Type == Bytes {
			return []byte{}, nil
		}
		if s, ok := v.(string); ok && hasHexPrefix(s) {
			return "0x" + s[2:], nil
		}
	}
	return v, nil
}

// toBigInt accepts the numeric representations found in JSON, YAML and Go callers.
func toBigInt(v any) (*big.Int, error) {
	switch val := v.(type) {
	case nil:
		return nil, fmt.Errorf("missing value")
	case *big.Int:
		if val == nil {
			return nil, fmt.Errorf("missing value")
		}
		return new(big.Int).Set(val), nil
	case big.Int:
		return new(big.Int).Set(&val), nil
	case *hexutil.Big:
		if val == nil {
			return nil, fmt.Errorf("missing value")
		}
		return new(big.Int).Set(val.ToInt()), nil
	case hexutil.Big:
		return new(big.Int).Set(val.ToInt()), nil
	case int:
		return big.NewInt(int64(val)), nil
	case int32:
		return big.NewInt(int64(val)), nil
	case int64:
		return big.NewInt(val), nil
	case uint:
		return new(big.Int).SetUint64(uint64(val)), nil
	case uint32:
		return new(big.Int).SetUint64(uint64(val)), nil
	case uint64:
		return new(big.Int).SetUint64(val), nil
	case float64:
		if val != math.Trunc(val) || math.Abs(val) > 1<<53 {
			return nil, fmt.Errorf("float %v is not an exact integer", val)
		}
		return big.NewInt(int64(val)), nil
	case json.Number:
		return parseBigInt(val.String())
	case string:
		return parseBigInt(val)
	case decimal.Decimal:
		return decimalToBigInt(val)
	case *decimal.Decimal:
		if val == nil {
			return nil, fmt.Errorf("missing value")
		}
		return decimalToBigInt(*val)
	}
	return nil, fmt.Errorf("unsupported numeric type %T", v)
}

func parseBigInt(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if hasHexPrefix(s) {
		n, ok := new(big.Int).SetString(s[2:], 16)
		if !ok {
			return nil, fmt.Errorf("invalid hex quantity %q", s)
		}
		return n, nil
	}
	n, ok := new(big.Int).SetString(s, 10)
	if ok {
		return n, nil
	}
	// scientific notation such as "1e18"
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid integer %q", s)
	}
	return decimalToBigInt(d)
}

func decimalToBigInt(d decimal.Decimal) (*big.Int, error) {
	if !d.Equal(d.Truncate(0)) {
		return nil, fmt.Errorf("%s is not an integer", d.String())
	}
	return d.BigInt(), nil
}

func toDecimal(v any) (decimal.Decimal, error) {
	switch val := v.(type) {
	case decimal.Decimal:
		return val, nil
	case float64:
		return decimal.NewFromFloat(val), nil
	case json.Number:
		return decimal.NewFromString(val.String())
	case string:
		return decimal.NewFromString(val)
	}
	n, err := toBigInt(v)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return decimal.NewFromBigInt(n, 0), nil
}

// propsFromJSON decodes a JSON object keeping numbers exact.
func propsFromJSON(data []byte) (Props, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var props Props
	if err := dec.Decode(&props); err != nil {
		return nil, err
	}
	if props == nil {
		return nil, fmt.Errorf("operation must be a JSON object")
	}
	return props, nil
}
