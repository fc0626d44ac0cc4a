package operation

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// SolverField indexes the SolverOperation layout.
type SolverField int

const (
	SolverFrom SolverField = iota
	SolverTo
	SolverValue
	SolverGas
	SolverMaxFeePerGas
	SolverDeadline
	SolverSolver
	SolverControl
	SolverUserOpHash
	SolverBidToken
	SolverBidAmount
	SolverData
	SolverSignature
)

var SolverOperationSchema = mustSchema("SolverOperation", []Field{
	{"from", Address},
	{"to", Address},
	{"value", Uint256},
	{"gas", Uint256},
	{"maxFeePerGas", Uint256},
	{"deadline", Uint256},
	{"solver", Address},
	{"control", Address},
	{"userOpHash", Bytes32},
	{"bidToken", Address},
	{"bidAmount", Uint256},
	{"data", Bytes},
	{"signature", Bytes},
})

// SolverOperation is a solver's answer to a user operation.
type SolverOperation struct {
	BaseOperation

	// Score ranks solver operations on the client. It is not part of the encoded struct.
	Score decimal.Decimal
}

func newSolverOperation() *SolverOperation {
	return &SolverOperation{BaseOperation: newBaseOperation(SolverOperationSchema)}
}

func (s *SolverOperation) Set(f SolverField, value any) error { return s.set(int(f), value) }
func (s *SolverOperation) Get(f SolverField) any              { return cloneValue(s.get(int(f))) }

func (s *SolverOperation) From() common.Address     { return s.addressAt(int(SolverFrom)) }
func (s *SolverOperation) To() common.Address       { return s.addressAt(int(SolverTo)) }
func (s *SolverOperation) Value() *big.Int          { return s.uintAt(int(SolverValue)) }
func (s *SolverOperation) Gas() *big.Int            { return s.uintAt(int(SolverGas)) }
func (s *SolverOperation) MaxFeePerGas() *big.Int   { return s.uintAt(int(SolverMaxFeePerGas)) }
func (s *SolverOperation) Deadline() *big.Int       { return s.uintAt(int(SolverDeadline)) }
func (s *SolverOperation) Solver() common.Address   { return s.addressAt(int(SolverSolver)) }
func (s *SolverOperation) Control() common.Address  { return s.addressAt(int(SolverControl)) }
func (s *SolverOperation) UserOpHash() common.Hash  { return s.hashAt(int(SolverUserOpHash)) }
func (s *SolverOperation) BidToken() common.Address { return s.addressAt(int(SolverBidToken)) }
func (s *SolverOperation) BidAmount() *big.Int      { return s.uintAt(int(SolverBidAmount)) }
func (s *SolverOperation) Data() []byte             { return s.bytesAt(int(SolverData)) }
func (s *SolverOperation) Signature() []byte        { return s.bytesAt(int(SolverSignature)) }

// Clone returns a deep copy, score included.
func (s *SolverOperation) Clone() *SolverOperation {
	return &SolverOperation{BaseOperation: s.clone(), Score: s.Score}
}

func (s *SolverOperation) UnmarshalJSON(data []byte) error {
	props, err := propsFromJSON(data)
	if err != nil {
		return err
	}
	op, err := NewSolverOperation(props)
	if err != nil {
		return err
	}
	*s = *op
	return nil
}
