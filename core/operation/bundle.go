package operation

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Bundle is one user operation, the ordered solver operations and the dApp operation
// submitted together. Solver order is the execution order and is folded into the call chain hash.
type Bundle struct {
	UserOperation    *UserOperation
	SolverOperations []*SolverOperation
	DAppOperation    *DAppOperation
}

func NewBundle(userOp *UserOperation, solverOps []*SolverOperation, dAppOp *DAppOperation) *Bundle {
	return &Bundle{
		UserOperation:    userOp,
		SolverOperations: solverOps,
		DAppOperation:    dAppOp,
	}
}

// Validate checks the user and dApp operations. Solver operations are left to the
// on-chain sorter and are never inspected here. Validation does not mutate the bundle.
func (b *Bundle) Validate(domain Domain, validateUserOpSignature bool) error {
	if b.UserOperation == nil {
		return &BundleValidationError{Operation: "userOperation", Err: fmt.Errorf("missing")}
	}
	if err := b.UserOperation.ValidateFields(); err != nil {
		return &BundleValidationError{Operation: "userOperation", Err: err}
	}
	if validateUserOpSignature {
		if err := b.UserOperation.ValidateSignature(domain); err != nil {
			return &BundleValidationError{Operation: "userOperation", Err: err}
		}
	}

	if b.DAppOperation == nil {
		return &BundleValidationError{Operation: "dAppOperation", Err: fmt.Errorf("missing")}
	}
	if err := b.DAppOperation.ValidateFields(); err != nil {
		return &BundleValidationError{Operation: "dAppOperation", Err: err}
	}
	if err := b.DAppOperation.ValidateSignature(domain); err != nil {
		return &BundleValidationError{Operation: "dAppOperation", Err: err}
	}
	return nil
}

// WireBundle is the bundle submission payload.
type WireBundle struct {
	ChainID          *hexutil.Big       `json:"chainId"`
	UserOperation    *UserOperation     `json:"userOperation"`
	SolverOperations []*SolverOperation `json:"solverOperations"`
	DAppOperation    *DAppOperation     `json:"dAppOperation"`
}

func (b *Bundle) ToWire(chainID *big.Int) *WireBundle {
	solverOps := b.SolverOperations
	if solverOps == nil {
		solverOps = []*SolverOperation{}
	}
	return &WireBundle{
		ChainID:          (*hexutil.Big)(chainID),
		UserOperation:    b.UserOperation,
		SolverOperations: solverOps,
		DAppOperation:    b.DAppOperation,
	}
}

func (w *WireBundle) Bundle() *Bundle {
	return NewBundle(w.UserOperation, w.SolverOperations, w.DAppOperation)
}

// WireUserOperation is the payload of a submitted intent.
type WireUserOperation struct {
	ChainID       *hexutil.Big   `json:"chainId"`
	UserOperation *UserOperation `json:"userOperation"`
	Hints         []string       `json:"hints"`
}

func NewWireUserOperation(chainID *big.Int, userOp *UserOperation, hints []string) *WireUserOperation {
	if hints == nil {
		hints = []string{}
	}
	return &WireUserOperation{
		ChainID:       (*hexutil.Big)(chainID),
		UserOperation: userOp,
		Hints:         hints,
	}
}

// DecodeSolverOperations decodes a JSON array of solver operations.
func DecodeSolverOperations(data []byte) ([]*SolverOperation, error) {
	var ops []*SolverOperation
	if err := json.Unmarshal(data, &ops); err != nil {
		return nil, err
	}
	return ops, nil
}
