// Package hooks wraps a backend.Backend with an ordered list of interceptors.
// For every operation the pre hooks run in order over the arguments, the
// backend runs once with the final arguments, then the post hooks run in
// order over the result.
package hooks

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/AvaProtocol/ap-atlas/core/backend"
	"github.com/AvaProtocol/ap-atlas/core/operation"
)

type SubmitUserOperationArgs struct {
	ChainID       *big.Int
	UserOperation *operation.UserOperation
	Hints         []string
}

type GetSolverOperationsArgs struct {
	ChainID *big.Int
	ID      string
	Wait    bool
}

type SubmitBundleArgs struct {
	ChainID *big.Int
	Bundle  *operation.Bundle
}

type GetBundleHashArgs struct {
	ChainID *big.Int
	ID      string
	Wait    bool
}

// Hook intercepts every backend operation. Pre hooks return the arguments
// the next hook sees; post hooks return the result the next hook sees.
// Embed NoopHook to implement only the phases you need.
type Hook interface {
	Name() string

	PreSubmitUserOperation(ctx context.Context, ext *Extensions, args SubmitUserOperationArgs) (SubmitUserOperationArgs, error)
	PostSubmitUserOperation(ctx context.Context, ext *Extensions, args SubmitUserOperationArgs, result *backend.UserOperationResult) (*backend.UserOperationResult, error)

	PreGetSolverOperations(ctx context.Context, ext *Extensions, args GetSolverOperationsArgs) (GetSolverOperationsArgs, error)
	PostGetSolverOperations(ctx context.Context, ext *Extensions, args GetSolverOperationsArgs, ops []*operation.SolverOperation) ([]*operation.SolverOperation, error)

	PreSubmitBundle(ctx context.Context, ext *Extensions, args SubmitBundleArgs) (SubmitBundleArgs, error)
	PostSubmitBundle(ctx context.Context, ext *Extensions, args SubmitBundleArgs, ids []string) ([]string, error)

	PreGetBundleHash(ctx context.Context, ext *Extensions, args GetBundleHashArgs) (GetBundleHashArgs, error)
	PostGetBundleHash(ctx context.Context, ext *Extensions, args GetBundleHashArgs, hash common.Hash) (common.Hash, error)
}

// NoopHook passes everything through unchanged.
type NoopHook struct{}

func (NoopHook) Name() string { return "noop" }

func (NoopHook) PreSubmitUserOperation(_ context.Context, _ *Extensions, args SubmitUserOperationArgs) (SubmitUserOperationArgs, error) {
	return args, nil
}

func (NoopHook) PostSubmitUserOperation(_ context.Context, _ *Extensions, _ SubmitUserOperationArgs, result *backend.UserOperationResult) (*backend.UserOperationResult, error) {
	return result, nil
}

func (NoopHook) PreGetSolverOperations(_ context.Context, _ *Extensions, args GetSolverOperationsArgs) (GetSolverOperationsArgs, error) {
	return args, nil
}

func (NoopHook) PostGetSolverOperations(_ context.Context, _ *Extensions, _ GetSolverOperationsArgs, ops []*operation.SolverOperation) ([]*operation.SolverOperation, error) {
	return ops, nil
}

func (NoopHook) PreSubmitBundle(_ context.Context, _ *Extensions, args SubmitBundleArgs) (SubmitBundleArgs, error) {
	return args, nil
}

func (NoopHook) PostSubmitBundle(_ context.Context, _ *Extensions, _ SubmitBundleArgs, ids []string) ([]string, error) {
	return ids, nil
}

func (NoopHook) PreGetBundleHash(_ context.Context, _ *Extensions, args GetBundleHashArgs) (GetBundleHashArgs, error) {
	return args, nil
}

func (NoopHook) PostGetBundleHash(_ context.Context, _ *Extensions, _ GetBundleHashArgs, hash common.Hash) (common.Hash, error) {
	return hash, nil
}
