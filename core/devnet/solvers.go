package devnet

import (
	"crypto/ecdsa"
	"math/big"

	sdklogging "github.com/Layr-Labs/eigensdk-go/logging"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/AvaProtocol/ap-atlas/core/operation"
	"github.com/AvaProtocol/ap-atlas/pkg/logger"
)

// Solvers answers every intent on a Relay with signed solver operations and
// every bundle with a bundle hash, so the relay can stand in for a live
// auction.
type Solvers struct {
	Domain operation.Domain
	Key    *ecdsa.PrivateKey

	// Count solver operations are pushed per intent, bidding BaseBid,
	// 2*BaseBid and so on.
	Count   int
	BaseBid *big.Int

	logger sdklogging.Logger
}

func NewSolvers(domain operation.Domain, key *ecdsa.PrivateKey, count int, log sdklogging.Logger) *Solvers {
	return &Solvers{
		Domain:  domain,
		Key:     key,
		Count:   count,
		BaseBid: big.NewInt(1e15),
		logger:  logger.EnsureLogger(log),
	}
}

// AttachBackend seeds b with solver operations for every submitted user
// operation and a bundle hash for every submitted bundle.
func (s *Solvers) AttachBackend(b *Backend) {
	b.OnUserOperation = func(id string, req *operation.WireUserOperation) {
		ops, err := s.Build(req.UserOperation)
		if err != nil {
			s.logger.Warn("cannot build solver operations", "userOpHash", id, "error", err)
			return
		}
		b.SetSolverOperations(id, ops)
	}
	b.OnBundle = func(id string, req *operation.WireBundle) {
		b.SetBundleHash(id, bundleHash(id, req))
	}
}

// Attach installs the responders on r.
func (s *Solvers) Attach(r *Relay) {
	r.OnUserOperation = func(intentID string, req *operation.WireUserOperation) {
		ops, err := s.Build(req.UserOperation)
		if err != nil {
			s.logger.Warn("cannot build solver operations", "intentId", intentID, "error", err)
			return
		}
		for _, op := range ops {
			if err := r.PushSolverOperation(intentID, op); err != nil {
				s.logger.Warn("cannot push solver operation", "intentId", intentID, "error", err)
				return
			}
		}
	}
	r.OnBundle = func(id string, req *operation.WireBundle) {
		if err := r.PushBundleHash(id, bundleHash(id, req)); err != nil {
			s.logger.Warn("cannot push bundle hash", "id", id, "error", err)
		}
	}
}

func bundleHash(id string, req *operation.WireBundle) common.Hash {
	return crypto.Keccak256Hash([]byte(id), req.DAppOperation.CallChainHash().Bytes())
}

// Build returns the signed solver operations answering userOp.
func (s *Solvers) Build(userOp *operation.UserOperation) ([]*operation.SolverOperation, error) {
	userOpHash, err := userOp.HashWithDomain(s.Domain, userOp.UsesTrustedOpHash())
	if err != nil {
		return nil, err
	}
	from := crypto.PubkeyToAddress(s.Key.PublicKey)

	ops := make([]*operation.SolverOperation, 0, s.Count)
	for i := 1; i <= s.Count; i++ {
		op, err := operation.NewSolverOperation(operation.Props{
			"from":         from,
			"to":           s.Domain.VerifyingContract,
			"value":        0,
			"gas":          userOp.Gas(),
			"maxFeePerGas": userOp.MaxFeePerGas(),
			"deadline":     userOp.Deadline(),
			"solver":       from,
			"control":      userOp.Control(),
			"userOpHash":   userOpHash,
			"bidToken":     "0x0000000000000000000000000000000000000000",
			"bidAmount":    new(big.Int).Mul(s.BaseBid, big.NewInt(int64(i))),
			"data":         []byte{},
		})
		if err != nil {
			return nil, err
		}
		if err := op.Sign(s.Domain, s.Key); err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	return ops, nil
}
