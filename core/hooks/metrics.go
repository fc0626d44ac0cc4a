package hooks

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jonboulle/clockwork"

	"github.com/AvaProtocol/ap-atlas/core/backend"
	"github.com/AvaProtocol/ap-atlas/core/operation"
	"github.com/AvaProtocol/ap-atlas/metrics"
)

// PhaseRoundtrip labels the time between a pre hook and its post hook,
// which covers the backend call and every hook registered after this one.
const PhaseRoundtrip = "roundtrip"

// MetricsHook records per operation latency. Register it first so the
// roundtrip includes the other hooks.
type MetricsHook struct {
	NoopHook
	metrics metrics.MetricsGenerator
	clock   clockwork.Clock
}

func NewMetricsHook(m metrics.MetricsGenerator, clock clockwork.Clock) *MetricsHook {
	if m == nil {
		m = metrics.NewNoopMetrics()
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &MetricsHook{metrics: m, clock: clock}
}

func (h *MetricsHook) Name() string { return "metrics" }

func startKey(op string) Key[time.Time] {
	return NewKey[time.Time]("metrics.start." + op)
}

func (h *MetricsHook) start(ext *Extensions, op string) {
	startKey(op).Set(ext, h.clock.Now())
}

func (h *MetricsHook) observe(ext *Extensions, op string) {
	key := startKey(op)
	if started, ok := key.Get(ext); ok {
		h.metrics.ObserveHook(op, PhaseRoundtrip, h.clock.Since(started))
		ext.Delete(key.Name())
	}
}

func (h *MetricsHook) PreSubmitUserOperation(_ context.Context, ext *Extensions, args SubmitUserOperationArgs) (SubmitUserOperationArgs, error) {
	h.start(ext, OpSubmitUserOperation)
	return args, nil
}

func (h *MetricsHook) PostSubmitUserOperation(_ context.Context, ext *Extensions, _ SubmitUserOperationArgs, result *backend.UserOperationResult) (*backend.UserOperationResult, error) {
	h.observe(ext, OpSubmitUserOperation)
	return result, nil
}

func (h *MetricsHook) PreGetSolverOperations(_ context.Context, ext *Extensions, args GetSolverOperationsArgs) (GetSolverOperationsArgs, error) {
	h.start(ext, OpGetSolverOperations)
	return args, nil
}

func (h *MetricsHook) PostGetSolverOperations(_ context.Context, ext *Extensions, _ GetSolverOperationsArgs, ops []*operation.SolverOperation) ([]*operation.SolverOperation, error) {
	h.observe(ext, OpGetSolverOperations)
	return ops, nil
}

func (h *MetricsHook) PreSubmitBundle(_ context.Context, ext *Extensions, args SubmitBundleArgs) (SubmitBundleArgs, error) {
	h.start(ext, OpSubmitBundle)
	return args, nil
}

func (h *MetricsHook) PostSubmitBundle(_ context.Context, ext *Extensions, _ SubmitBundleArgs, ids []string) ([]string, error) {
	h.observe(ext, OpSubmitBundle)
	return ids, nil
}

func (h *MetricsHook) PreGetBundleHash(_ context.Context, ext *Extensions, args GetBundleHashArgs) (GetBundleHashArgs, error) {
	h.start(ext, OpGetBundleHash)
	return args, nil
}

func (h *MetricsHook) PostGetBundleHash(_ context.Context, ext *Extensions, _ GetBundleHashArgs, hash common.Hash) (common.Hash, error) {
	h.observe(ext, OpGetBundleHash)
	return hash, nil
}
