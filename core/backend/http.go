package backend

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strconv"
	"strings"
	"time"

	sdklogging "github.com/Layr-Labs/eigensdk-go/logging"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/go-resty/resty/v2"

	"github.com/AvaProtocol/ap-atlas/core/operation"
	"github.com/AvaProtocol/ap-atlas/pkg/logger"
)

const (
	userOperationPath    = "/userOperation"
	solverOperationsPath = "/solverOperations"
	bundleOperationsPath = "/bundleOperations"
	bundleHashPath       = "/bundleHash"
)

// APIError is the error body returned by the operations relay.
type APIError struct {
	Status  int    `json:"-"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("operations relay returned status %d", e.Status)
	}
	return fmt.Sprintf("operations relay returned status %d: %s", e.Status, e.Message)
}

// SubmitResponse is the body of a successful user operation or bundle submission.
type SubmitResponse struct {
	Hashes []string              `json:"hashes"`
	Bundle *operation.WireBundle `json:"bundle,omitempty"`
}

// BundleHashResponse is the body of a successful bundle hash lookup.
type BundleHashResponse struct {
	BundleHash common.Hash `json:"bundleHash"`
}

type HTTPConfig struct {
	BaseURL string
	Timeout time.Duration
	Headers map[string]string
}

// HTTPBackend talks to an operations relay over its REST API.
type HTTPBackend struct {
	client *resty.Client
	logger sdklogging.Logger
}

func NewHTTPBackend(cfg HTTPConfig, log sdklogging.Logger) *HTTPBackend {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetHeader("Content-Type", "application/json")
	if len(cfg.Headers) > 0 {
		client.SetHeaders(cfg.Headers)
	}

	return &HTTPBackend{
		client: client,
		logger: logger.EnsureLogger(log),
	}
}

func (b *HTTPBackend) SubmitUserOperation(ctx context.Context, chainID *big.Int, userOp *operation.UserOperation, hints []string) (*UserOperationResult, error) {
	var out SubmitResponse
	if err := b.post(ctx, userOperationPath, operation.NewWireUserOperation(chainID, userOp, hints), &out); err != nil {
		return nil, err
	}

	result := &UserOperationResult{Hashes: out.Hashes}
	if out.Bundle != nil {
		result.Bundle = out.Bundle.Bundle()
	}
	b.logger.Debug("user operation submitted", "chainId", chainID, "hashes", out.Hashes)
	return result, nil
}

func (b *HTTPBackend) GetSolverOperations(ctx context.Context, chainID *big.Int, id string, wait bool) ([]*operation.SolverOperation, error) {
	resp, err := b.client.R().
		SetContext(ctx).
		SetQueryParams(lookupParams(chainID, id, wait)).
		SetError(&APIError{}).
		Get(solverOperationsPath)
	if err != nil {
		return nil, err
	}
	if err := responseError(resp); err != nil {
		return nil, err
	}

	ops, err := operation.DecodeSolverOperations(resp.Body())
	if err != nil {
		return nil, fmt.Errorf("decode solver operations: %w", err)
	}
	if ops == nil {
		ops = []*operation.SolverOperation{}
	}
	return ops, nil
}

func (b *HTTPBackend) SubmitBundle(ctx context.Context, chainID *big.Int, bundle *operation.Bundle) ([]string, error) {
	var out SubmitResponse
	if err := b.post(ctx, bundleOperationsPath, bundle.ToWire(chainID), &out); err != nil {
		return nil, err
	}
	return out.Hashes, nil
}

func (b *HTTPBackend) GetBundleHash(ctx context.Context, chainID *big.Int, id string, wait bool) (common.Hash, error) {
	var out BundleHashResponse
	resp, err := b.client.R().
		SetContext(ctx).
		SetQueryParams(lookupParams(chainID, id, wait)).
		SetResult(&out).
		SetError(&APIError{}).
		Get(bundleHashPath)
	if err != nil {
		return common.Hash{}, err
	}
	if err := responseError(resp); err != nil {
		return common.Hash{}, err
	}
	return out.BundleHash, nil
}

func (b *HTTPBackend) post(ctx context.Context, path string, body, out any) error {
	resp, err := b.client.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(out).
		SetError(&APIError{}).
		Post(path)
	if err != nil {
		return err
	}
	return responseError(resp)
}

func lookupParams(chainID *big.Int, id string, wait bool) map[string]string {
	params := map[string]string{
		"userOpHash": id,
		"wait":       strconv.FormatBool(wait),
	}
	if chainID != nil {
		params["chainId"] = hexutil.EncodeBig(chainID)
	}
	return params
}

// responseError maps relay status codes onto the shared sentinels.
func responseError(resp *resty.Response) error {
	if !resp.IsError() {
		return nil
	}

	apiErr, ok := resp.Error().(*APIError)
	if !ok || apiErr == nil {
		apiErr = &APIError{}
	}
	apiErr.Status = resp.StatusCode()

	switch resp.StatusCode() {
	case http.StatusNotFound:
		return errors.Join(ErrNotFound, apiErr)
	case http.StatusTooEarly:
		return errors.Join(ErrAuctionOngoing, apiErr)
	}
	return apiErr
}
