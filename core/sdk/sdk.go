// Package sdk drives one Atlas auction end to end: build and hash the user
// operation, submit it, collect solver operations, sign the dApp operation
// with a session key and submit the bundle.
package sdk

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"sync"

	sdklogging "github.com/Layr-Labs/eigensdk-go/logging"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/AvaProtocol/ap-atlas/core/backend"
	"github.com/AvaProtocol/ap-atlas/core/chainconfig"
	"github.com/AvaProtocol/ap-atlas/core/operation"
	"github.com/AvaProtocol/ap-atlas/pkg/logger"
)

const DefaultVersion = "1.0"

var (
	ErrNoSigner       = errors.New("no key available to sign the dApp operation")
	ErrNoSolutions    = errors.New("backend returned no id to collect solver operations for")
	ErrNoConfirmation = errors.New("backend returned no id to confirm the bundle with")
)

type Options struct {
	ChainID *big.Int
	Version string

	// Domain pins the EIP-712 domain. When nil it is resolved through Chains.
	Domain *operation.Domain
	Chains *chainconfig.Service

	// DAppSigner signs dApp operations whose session key was not generated
	// by this SDK.
	DAppSigner *ecdsa.PrivateKey
}

type SDK struct {
	backend    backend.Backend
	chainID    *big.Int
	version    string
	domain     *operation.Domain
	chains     *chainconfig.Service
	dAppSigner *ecdsa.PrivateKey
	logger     sdklogging.Logger

	mu          sync.Mutex
	sessionKeys map[common.Address]*ecdsa.PrivateKey
}

func New(b backend.Backend, opts Options, log sdklogging.Logger) (*SDK, error) {
	if b == nil {
		return nil, fmt.Errorf("backend is required")
	}
	if opts.ChainID == nil {
		return nil, fmt.Errorf("chain id is required")
	}
	if opts.Domain == nil && opts.Chains == nil {
		return nil, fmt.Errorf("either a domain or a chain config service is required")
	}

	version := opts.Version
	if version == "" {
		version = DefaultVersion
	}

	return &SDK{
		backend:     b,
		chainID:     new(big.Int).Set(opts.ChainID),
		version:     version,
		domain:      opts.Domain,
		chains:      opts.Chains,
		dAppSigner:  opts.DAppSigner,
		logger:      logger.EnsureLogger(log),
		sessionKeys: make(map[common.Address]*ecdsa.PrivateKey),
	}, nil
}

func (s *SDK) ChainID() *big.Int {
	return new(big.Int).Set(s.chainID)
}

func (s *SDK) Backend() backend.Backend {
	return s.backend
}

func (s *SDK) Domain(ctx context.Context) (operation.Domain, error) {
	if s.domain != nil {
		return *s.domain, nil
	}
	return s.chains.Domain(ctx, s.chainID.Uint64(), s.version)
}

// NewUserOperation builds a user operation from props.
func (s *SDK) NewUserOperation(props operation.Props) (*operation.UserOperation, error) {
	return operation.NewUserOperation(props)
}

// GenerateSessionKey sets a fresh session key on userOp and keeps its
// private key to sign the dApp operation of this auction. Call it before
// the user signs.
func (s *SDK) GenerateSessionKey(userOp *operation.UserOperation) (common.Address, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return common.Address{}, err
	}
	addr := crypto.PubkeyToAddress(key.PublicKey)
	if err := userOp.Set(operation.UserSessionKey, addr); err != nil {
		return common.Address{}, err
	}

	s.mu.Lock()
	s.sessionKeys[addr] = key
	s.mu.Unlock()
	return addr, nil
}

// UserOperationHash hashes userOp under the SDK domain, using the trusted
// field subset when the call config asks for it.
func (s *SDK) UserOperationHash(ctx context.Context, userOp *operation.UserOperation) (common.Hash, error) {
	domain, err := s.Domain(ctx)
	if err != nil {
		return common.Hash{}, err
	}
	return userOp.HashWithDomain(domain, userOp.UsesTrustedOpHash())
}

func (s *SDK) SignUserOperation(ctx context.Context, userOp *operation.UserOperation, key *ecdsa.PrivateKey) error {
	domain, err := s.Domain(ctx)
	if err != nil {
		return err
	}
	return userOp.Sign(domain, key)
}

// SubmitUserOperation submits userOp and waits for the auction to close.
func (s *SDK) SubmitUserOperation(ctx context.Context, userOp *operation.UserOperation, hints []string) ([]*operation.SolverOperation, error) {
	result, err := s.backend.SubmitUserOperation(ctx, s.chainID, userOp, hints)
	if err != nil {
		return nil, fmt.Errorf("submit user operation: %w", err)
	}
	if result.Bundle != nil {
		return result.Bundle.SolverOperations, nil
	}
	if len(result.Hashes) == 0 {
		return nil, ErrNoSolutions
	}

	ops, err := s.backend.GetSolverOperations(ctx, s.chainID, result.Hashes[0], true)
	if err != nil {
		return nil, fmt.Errorf("collect solver operations: %w", err)
	}
	s.logger.Info("auction closed", "intentId", result.Hashes[0], "solverOps", len(ops))
	return ops, nil
}

// CreateDAppOperation derives and signs the dApp operation for the auction
// result. The session key generated for userOp is used once and forgotten.
func (s *SDK) CreateDAppOperation(ctx context.Context, userOp *operation.UserOperation, solverOps []*operation.SolverOperation, bundler common.Address) (*operation.DAppOperation, error) {
	domain, err := s.Domain(ctx)
	if err != nil {
		return nil, err
	}

	userOpHash, err := userOp.HashWithDomain(domain, userOp.UsesTrustedOpHash())
	if err != nil {
		return nil, err
	}

	key, err := s.signerFor(userOp.SessionKey())
	if err != nil {
		return nil, err
	}
	signer := crypto.PubkeyToAddress(key.PublicKey)

	dAppOp, err := operation.NewDAppOperationFromUserSolvers(userOpHash, userOp, solverOps, signer, userOp.RequiresPreOps(), bundler)
	if err != nil {
		return nil, err
	}
	if err := dAppOp.Sign(domain, key); err != nil {
		return nil, err
	}

	s.mu.Lock()
	delete(s.sessionKeys, userOp.SessionKey())
	s.mu.Unlock()
	return dAppOp, nil
}

func (s *SDK) signerFor(sessionKey common.Address) (*ecdsa.PrivateKey, error) {
	s.mu.Lock()
	key, ok := s.sessionKeys[sessionKey]
	s.mu.Unlock()
	if ok {
		return key, nil
	}

	if s.dAppSigner != nil {
		signer := crypto.PubkeyToAddress(s.dAppSigner.PublicKey)
		if sessionKey == (common.Address{}) || sessionKey == signer {
			return s.dAppSigner, nil
		}
	}
	return nil, fmt.Errorf("%w: session key %s", ErrNoSigner, sessionKey.Hex())
}

// SubmitBundle validates the bundle, submits it and waits for its hash.
func (s *SDK) SubmitBundle(ctx context.Context, bundle *operation.Bundle) (common.Hash, error) {
	domain, err := s.Domain(ctx)
	if err != nil {
		return common.Hash{}, err
	}
	if err := bundle.Validate(domain, true); err != nil {
		return common.Hash{}, err
	}

	ids, err := s.backend.SubmitBundle(ctx, s.chainID, bundle)
	if err != nil {
		return common.Hash{}, fmt.Errorf("submit bundle: %w", err)
	}
	if len(ids) == 0 {
		return common.Hash{}, ErrNoConfirmation
	}

	hash, err := s.backend.GetBundleHash(ctx, s.chainID, ids[0], true)
	if err != nil {
		return common.Hash{}, fmt.Errorf("wait for bundle hash: %w", err)
	}
	s.logger.Info("bundle confirmed", "id", ids[0], "bundleHash", hash.Hex())
	return hash, nil
}
