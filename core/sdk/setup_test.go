package sdk

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AvaProtocol/ap-atlas/core/config"
	"github.com/AvaProtocol/ap-atlas/core/devnet"
	"github.com/AvaProtocol/ap-atlas/core/operation"
	"github.com/AvaProtocol/ap-atlas/core/testutil"
)

const chainDocument = `{
  "11155111": {
    "eip712Domain": {
      "1.0": {
        "name": "AtlasVerification",
        "version": "1.0",
        "chainId": 11155111,
        "verifyingContract": "0xf31cf8740Dc4438Bb89a56Ee2234Ba9d5595c0E9"
      }
    }
  }
}`

func TestFromConfigOverHTTP(t *testing.T) {
	chains := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(chainDocument))
	}))
	t.Cleanup(chains.Close)

	mock := devnet.NewBackend()
	srv := httptest.NewServer(mock.Handler())
	t.Cleanup(srv.Close)

	cfg, err := config.FromRaw(config.ConfigRaw{
		ChainID:        testutil.TestChainID,
		BackendURL:     srv.URL,
		ChainConfigURL: chains.URL,
		ScoringLimit:   1,
	})
	require.NoError(t, err)

	c, err := FromConfig(context.Background(), cfg, prometheus.NewRegistry())
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	names := make([]string, 0, len(c.Pipeline.Hooks()))
	for _, h := range c.Pipeline.Hooks() {
		names = append(names, h.Name())
	}
	assert.Equal(t, []string{"metrics", "logging", "scoring"}, names)

	domain, err := c.Domain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, testutil.TestDomain().VerifyingContract, domain.VerifyingContract)

	userOp := userOperation(t, c.SDK)
	id, err := userOp.Hash()
	require.NoError(t, err)
	mock.SetSolverOperations(id.Hex(), []*operation.SolverOperation{
		testutil.SolverOperation(t, 100, 10),
		testutil.SolverOperation(t, 200, 10),
	})

	solverOps, err := c.SubmitUserOperation(context.Background(), userOp, nil)
	require.NoError(t, err)
	require.Len(t, solverOps, 1)
	assert.Equal(t, int64(200), solverOps[0].BidAmount().Int64())
}

func TestFromConfigRequiresChainConfig(t *testing.T) {
	cfg, err := config.FromRaw(config.ConfigRaw{
		ChainID:    testutil.TestChainID,
		BackendURL: "http://127.0.0.1:1",
	})
	require.NoError(t, err)

	_, err = FromConfig(context.Background(), cfg, nil)
	assert.Error(t, err)
}
