package hooks

import (
	"context"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/AvaProtocol/ap-atlas/core/operation"
)

const scorePrecision = 18

// ScoringHook scores solver operations by bid amount per unit of gas and
// orders them best first. Ties keep arrival order.
type ScoringHook struct {
	NoopHook

	// Limit keeps only the best Limit operations when positive.
	Limit int
}

func NewScoringHook(limit int) *ScoringHook {
	return &ScoringHook{Limit: limit}
}

func (h *ScoringHook) Name() string { return "scoring" }

// Score is bidAmount / gas. A zero gas limit scores zero.
func Score(op *operation.SolverOperation) decimal.Decimal {
	gas := op.Gas()
	if gas.Sign() == 0 {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(op.BidAmount(), 0).DivRound(decimal.NewFromBigInt(gas, 0), scorePrecision)
}

func (h *ScoringHook) PostGetSolverOperations(_ context.Context, _ *Extensions, _ GetSolverOperationsArgs, ops []*operation.SolverOperation) ([]*operation.SolverOperation, error) {
	for _, op := range ops {
		op.Score = Score(op)
	}

	slices.SortStableFunc(ops, func(a, b *operation.SolverOperation) int {
		return b.Score.Cmp(a.Score)
	})

	if h.Limit > 0 && len(ops) > h.Limit {
		ops = ops[:h.Limit]
	}
	return ops, nil
}
