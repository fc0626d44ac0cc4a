package hooks

import (
	"context"
	"errors"
	"math/big"
	"strings"

	sdklogging "github.com/Layr-Labs/eigensdk-go/logging"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/AvaProtocol/ap-atlas/core/operation"
	"github.com/AvaProtocol/ap-atlas/pkg/logger"
)

// Simulator decides whether a solver operation would execute.
type Simulator interface {
	SimulateSolverOperation(ctx context.Context, chainID *big.Int, op *operation.SolverOperation) (bool, error)
}

// SimulationHook drops collected solver operations the simulator rejects.
// Operations the simulator fails on are dropped too.
type SimulationHook struct {
	NoopHook
	simulator Simulator
	logger    sdklogging.Logger
}

func NewSimulationHook(simulator Simulator, log sdklogging.Logger) *SimulationHook {
	return &SimulationHook{simulator: simulator, logger: logger.EnsureLogger(log)}
}

func (h *SimulationHook) Name() string { return "simulation" }

func (h *SimulationHook) PostGetSolverOperations(ctx context.Context, _ *Extensions, args GetSolverOperationsArgs, ops []*operation.SolverOperation) ([]*operation.SolverOperation, error) {
	kept := make([]*operation.SolverOperation, 0, len(ops))
	for _, op := range ops {
		ok, err := h.simulator.SimulateSolverOperation(ctx, args.ChainID, op)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			h.logger.Warn("solver operation simulation failed", "id", args.ID, "solver", op.Solver().Hex(), "error", err)
			continue
		}
		if !ok {
			h.logger.Debug("solver operation rejected by simulation", "id", args.ID, "solver", op.Solver().Hex())
			continue
		}
		kept = append(kept, op)
	}
	return kept, nil
}

// EthCallSimulator simulates a solver operation as a plain eth_call from the
// solver EOA to its target contract. A revert is a negative verdict.
type EthCallSimulator struct {
	caller ethereum.ContractCaller
}

func NewEthCallSimulator(caller ethereum.ContractCaller) *EthCallSimulator {
	return &EthCallSimulator{caller: caller}
}

func (s *EthCallSimulator) SimulateSolverOperation(ctx context.Context, _ *big.Int, op *operation.SolverOperation) (bool, error) {
	to := op.To()
	msg := ethereum.CallMsg{
		From:  op.From(),
		To:    &to,
		Value: op.Value(),
		Data:  op.Data(),
	}
	if gas := op.Gas(); gas.IsUint64() {
		msg.Gas = gas.Uint64()
	}

	_, err := s.caller.CallContract(ctx, msg, nil)
	if err == nil {
		return true, nil
	}
	if isRevert(err) {
		return false, nil
	}
	return false, err
}

func isRevert(err error) bool {
	var dataErr rpc.DataError
	if errors.As(err, &dataErr) {
		return true
	}
	return strings.Contains(err.Error(), "execution reverted")
}
