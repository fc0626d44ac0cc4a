package hooks

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/oklog/ulid/v2"

	"github.com/AvaProtocol/ap-atlas/core/backend"
	"github.com/AvaProtocol/ap-atlas/core/operation"
	"github.com/AvaProtocol/ap-atlas/metrics"
)

const (
	OpSubmitUserOperation = "submitUserOperation"
	OpGetSolverOperations = "getSolverOperations"
	OpSubmitBundle        = "submitBundle"
	OpGetBundleHash       = "getBundleHash"

	PhasePre  = "pre"
	PhasePost = "post"
)

// CallIDKey holds the ULID the pipeline assigns to every call. Extensions
// shared across calls carry the id of the latest one.
var CallIDKey = NewKey[string]("callId")

// HookError reports which hook failed and where.
type HookError struct {
	Hook      string
	Operation string
	Phase     string
	Err       error
}

func (e *HookError) Error() string {
	return fmt.Sprintf("hook %s failed in %s %s: %v", e.Hook, e.Phase, e.Operation, e.Err)
}

func (e *HookError) Unwrap() error { return e.Err }

// Pipeline runs hooks around a backend and is itself a backend.
type Pipeline struct {
	backend backend.Backend
	hooks   []Hook
	metrics metrics.MetricsGenerator
}

var _ backend.Backend = (*Pipeline)(nil)

func NewPipeline(b backend.Backend, hooks ...Hook) *Pipeline {
	return &Pipeline{
		backend: b,
		hooks:   hooks,
		metrics: metrics.NewNoopMetrics(),
	}
}

// Use appends hooks. Not safe to call while the pipeline is serving calls.
func (p *Pipeline) Use(hooks ...Hook) *Pipeline {
	p.hooks = append(p.hooks, hooks...)
	return p
}

func (p *Pipeline) WithMetrics(m metrics.MetricsGenerator) *Pipeline {
	if m != nil {
		p.metrics = m
	}
	return p
}

func (p *Pipeline) Hooks() []Hook {
	return append([]Hook(nil), p.hooks...)
}

func (p *Pipeline) Backend() backend.Backend {
	return p.backend
}

func (p *Pipeline) extensions(ctx context.Context) *Extensions {
	ext := ExtensionsFrom(ctx)
	CallIDKey.Set(ext, ulid.Make().String())
	return ext
}

func (p *Pipeline) hookError(h Hook, op, phase string, err error) error {
	p.metrics.IncHookError(op, phase)
	return &HookError{Hook: h.Name(), Operation: op, Phase: phase, Err: err}
}

func (p *Pipeline) SubmitUserOperation(ctx context.Context, chainID *big.Int, userOp *operation.UserOperation, hints []string) (*backend.UserOperationResult, error) {
	ext := p.extensions(ctx)
	args := SubmitUserOperationArgs{ChainID: chainID, UserOperation: userOp, Hints: hints}

	var err error
	for _, h := range p.hooks {
		if args, err = h.PreSubmitUserOperation(ctx, ext, args); err != nil {
			return nil, p.hookError(h, OpSubmitUserOperation, PhasePre, err)
		}
	}

	result, err := p.backend.SubmitUserOperation(ctx, args.ChainID, args.UserOperation, args.Hints)
	if err != nil {
		return nil, err
	}

	for _, h := range p.hooks {
		if result, err = h.PostSubmitUserOperation(ctx, ext, args, result); err != nil {
			return nil, p.hookError(h, OpSubmitUserOperation, PhasePost, err)
		}
	}
	return result, nil
}

func (p *Pipeline) GetSolverOperations(ctx context.Context, chainID *big.Int, id string, wait bool) ([]*operation.SolverOperation, error) {
	ext := p.extensions(ctx)
	args := GetSolverOperationsArgs{ChainID: chainID, ID: id, Wait: wait}

	var err error
	for _, h := range p.hooks {
		if args, err = h.PreGetSolverOperations(ctx, ext, args); err != nil {
			return nil, p.hookError(h, OpGetSolverOperations, PhasePre, err)
		}
	}

	ops, err := p.backend.GetSolverOperations(ctx, args.ChainID, args.ID, args.Wait)
	if err != nil {
		return nil, err
	}

	for _, h := range p.hooks {
		if ops, err = h.PostGetSolverOperations(ctx, ext, args, ops); err != nil {
			return nil, p.hookError(h, OpGetSolverOperations, PhasePost, err)
		}
	}
	return ops, nil
}

func (p *Pipeline) SubmitBundle(ctx context.Context, chainID *big.Int, bundle *operation.Bundle) ([]string, error) {
	ext := p.extensions(ctx)
	args := SubmitBundleArgs{ChainID: chainID, Bundle: bundle}

	var err error
	for _, h := range p.hooks {
		if args, err = h.PreSubmitBundle(ctx, ext, args); err != nil {
			return nil, p.hookError(h, OpSubmitBundle, PhasePre, err)
		}
	}

	ids, err := p.backend.SubmitBundle(ctx, args.ChainID, args.Bundle)
	if err != nil {
		return nil, err
	}

	for _, h := range p.hooks {
		if ids, err = h.PostSubmitBundle(ctx, ext, args, ids); err != nil {
			return nil, p.hookError(h, OpSubmitBundle, PhasePost, err)
		}
	}
	return ids, nil
}

func (p *Pipeline) GetBundleHash(ctx context.Context, chainID *big.Int, id string, wait bool) (common.Hash, error) {
	ext := p.extensions(ctx)
	args := GetBundleHashArgs{ChainID: chainID, ID: id, Wait: wait}

	var err error
	for _, h := range p.hooks {
		if args, err = h.PreGetBundleHash(ctx, ext, args); err != nil {
			return common.Hash{}, p.hookError(h, OpGetBundleHash, PhasePre, err)
		}
	}

	hash, err := p.backend.GetBundleHash(ctx, args.ChainID, args.ID, args.Wait)
	if err != nil {
		return common.Hash{}, err
	}

	for _, h := range p.hooks {
		if hash, err = h.PostGetBundleHash(ctx, ext, args, hash); err != nil {
			return common.Hash{}, p.hookError(h, OpGetBundleHash, PhasePost, err)
		}
	}
	return hash, nil
}
