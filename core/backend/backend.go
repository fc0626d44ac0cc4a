// Package backend defines the surface shared by everything that accepts user
// operations and bundles: the HTTP operations relay, the websocket auction
// relay, and the hook pipeline that wraps either of them.
package backend

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/AvaProtocol/ap-atlas/core/operation"
)

var (
	// ErrNotFound is returned when nothing is known for the requested id,
	// or when a confirmation has not arrived and the caller asked not to wait.
	ErrNotFound = errors.New("not found")

	// ErrAuctionOngoing is returned by a non waiting drain while the auction
	// window is still open.
	ErrAuctionOngoing = errors.New("auction ongoing")
)

// UserOperationResult is what a backend hands back for a submitted user
// operation. Relays return the ids to drain later. Backends that run the
// auction and bundling on their own may also return the bundle they built.
type UserOperationResult struct {
	Hashes []string
	Bundle *operation.Bundle
}

type Backend interface {
	SubmitUserOperation(ctx context.Context, chainID *big.Int, userOp *operation.UserOperation, hints []string) (*UserOperationResult, error)
	GetSolverOperations(ctx context.Context, chainID *big.Int, id string, wait bool) ([]*operation.SolverOperation, error)
	SubmitBundle(ctx context.Context, chainID *big.Int, bundle *operation.Bundle) ([]string, error)
	GetBundleHash(ctx context.Context, chainID *big.Int, id string, wait bool) (common.Hash, error)
}
