package hooks

import (
	"context"

	sdklogging "github.com/Layr-Labs/eigensdk-go/logging"
	"github.com/ethereum/go-ethereum/common"

	"github.com/AvaProtocol/ap-atlas/core/backend"
	"github.com/AvaProtocol/ap-atlas/core/operation"
	"github.com/AvaProtocol/ap-atlas/pkg/logger"
)

// LoggingHook logs every phase at debug level, tagged with the call id.
type LoggingHook struct {
	NoopHook
	logger sdklogging.Logger
}

func NewLoggingHook(log sdklogging.Logger) *LoggingHook {
	return &LoggingHook{logger: logger.EnsureLogger(log).With("component", "hooks")}
}

func (h *LoggingHook) Name() string { return "logging" }

func callID(ext *Extensions) string {
	id, _ := CallIDKey.Get(ext)
	return id
}

func (h *LoggingHook) PreSubmitUserOperation(_ context.Context, ext *Extensions, args SubmitUserOperationArgs) (SubmitUserOperationArgs, error) {
	h.logger.Debug("submitting user operation",
		"callId", callID(ext),
		"chainId", args.ChainID,
		"from", args.UserOperation.From().Hex(),
		"dapp", args.UserOperation.Dapp().Hex(),
		"hints", len(args.Hints))
	return args, nil
}

func (h *LoggingHook) PostSubmitUserOperation(_ context.Context, ext *Extensions, _ SubmitUserOperationArgs, result *backend.UserOperationResult) (*backend.UserOperationResult, error) {
	h.logger.Debug("user operation submitted", "callId", callID(ext), "hashes", result.Hashes, "bundled", result.Bundle != nil)
	return result, nil
}

func (h *LoggingHook) PreGetSolverOperations(_ context.Context, ext *Extensions, args GetSolverOperationsArgs) (GetSolverOperationsArgs, error) {
	h.logger.Debug("collecting solver operations", "callId", callID(ext), "id", args.ID, "wait", args.Wait)
	return args, nil
}

func (h *LoggingHook) PostGetSolverOperations(_ context.Context, ext *Extensions, args GetSolverOperationsArgs, ops []*operation.SolverOperation) ([]*operation.SolverOperation, error) {
	h.logger.Info("solver operations collected", "callId", callID(ext), "id", args.ID, "count", len(ops))
	return ops, nil
}

func (h *LoggingHook) PreSubmitBundle(_ context.Context, ext *Extensions, args SubmitBundleArgs) (SubmitBundleArgs, error) {
	h.logger.Debug("submitting bundle", "callId", callID(ext), "chainId", args.ChainID, "solverOps", len(args.Bundle.SolverOperations))
	return args, nil
}

func (h *LoggingHook) PostSubmitBundle(_ context.Context, ext *Extensions, _ SubmitBundleArgs, ids []string) ([]string, error) {
	h.logger.Info("bundle submitted", "callId", callID(ext), "ids", ids)
	return ids, nil
}

func (h *LoggingHook) PreGetBundleHash(_ context.Context, ext *Extensions, args GetBundleHashArgs) (GetBundleHashArgs, error) {
	h.logger.Debug("waiting for bundle hash", "callId", callID(ext), "id", args.ID, "wait", args.Wait)
	return args, nil
}

func (h *LoggingHook) PostGetBundleHash(_ context.Context, ext *Extensions, args GetBundleHashArgs, hash common.Hash) (common.Hash, error) {
	h.logger.Info("bundle hash received", "callId", callID(ext), "id", args.ID, "hash", hash.Hex())
	return hash, nil
}
