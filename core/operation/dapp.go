package operation

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// DAppField indexes the DAppOperation layout.
type DAppField int

const (
	DAppFrom DAppField = iota
	DAppTo
	DAppNonce
	DAppDeadline
	DAppControl
	DAppBundler
	DAppUserOpHash
	DAppCallChainHash
	DAppSignature
)

var DAppOperationSchema = mustSchema("DAppOperation", []Field{
	{"from", Address},
	{"to", Address},
	{"nonce", Uint256},
	{"deadline", Uint256},
	{"control", Address},
	{"bundler", Address},
	{"userOpHash", Bytes32},
	{"callChainHash", Bytes32},
	{"signature", Bytes},
})

// DAppOperation binds a user operation and an ordered solver set for execution.
type DAppOperation struct {
	BaseOperation
}

func newDAppOperation() *DAppOperation {
	return &DAppOperation{BaseOperation: newBaseOperation(DAppOperationSchema)}
}

func (d *DAppOperation) Set(f DAppField, value any) error { return d.set(int(f), value) }
func (d *DAppOperation) Get(f DAppField) any              { return cloneValue(d.get(int(f))) }

func (d *DAppOperation) From() common.Address       { return d.addressAt(int(DAppFrom)) }
func (d *DAppOperation) To() common.Address         { return d.addressAt(int(DAppTo)) }
func (d *DAppOperation) Nonce() *big.Int            { return d.uintAt(int(DAppNonce)) }
func (d *DAppOperation) Deadline() *big.Int         { return d.uintAt(int(DAppDeadline)) }
func (d *DAppOperation) Control() common.Address    { return d.addressAt(int(DAppControl)) }
func (d *DAppOperation) Bundler() common.Address    { return d.addressAt(int(DAppBundler)) }
func (d *DAppOperation) UserOpHash() common.Hash    { return d.hashAt(int(DAppUserOpHash)) }
func (d *DAppOperation) CallChainHash() common.Hash { return d.hashAt(int(DAppCallChainHash)) }
func (d *DAppOperation) Signature() []byte          { return d.bytesAt(int(DAppSignature)) }

func (d *DAppOperation) Clone() *DAppOperation {
	return &DAppOperation{BaseOperation: d.clone()}
}

func (d *DAppOperation) UnmarshalJSON(data []byte) error {
	props, err := propsFromJSON(data)
	if err != nil {
		return err
	}
	op, err := NewDAppOperation(props)
	if err != nil {
		return err
	}
	*d = *op
	return nil
}
