package chainconfig

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AvaProtocol/ap-atlas/core/operation"
)

const testDocument = `{
  "11155111": {
    "contracts": {
      "1.0": {
        "atlas": "0x9EE12d2fed4B43F4Be37F69930BcaED553A881B8",
        "atlasVerification": "0xf31cf8740Dc4438Bb89a56Ee2234Ba9d5595c0E9",
        "sorter": "0xFE3c655d4D305Ac7f1c2F6306C79397560Afea0C",
        "simulator": "0xc3ab39ebd49D80bc6908B4Dd8Bb2ebE8E1b25C29",
        "multicall3": "0xcA11bde05977b3631167028862bE2a173976CA11"
      }
    },
    "eip712Domain": {
      "1.0": {
        "name": "AtlasVerification",
        "version": "1.0",
        "chainId": 11155111,
        "verifyingContract": "0xf31cf8740Dc4438Bb89a56Ee2234Ba9d5595c0E9"
      }
    }
  },
  "137": {
    "contracts": {
      "1.1": {
        "atlasVerification": "0x0000000000000000000000000000000000000abc"
      }
    }
  }
}`

func newTestServer(t *testing.T, body string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestGetFetchesOnce(t *testing.T) {
	srv, hits := newTestServer(t, testDocument)
	s := NewService(srv.URL, nil)
	ctx := context.Background()

	cfg, err := s.Get(ctx, 11155111)
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress("0x9EE12d2fed4B43F4Be37F69930BcaED553A881B8"), cfg.Contracts["1.0"].Atlas)

	_, err = s.Get(ctx, 137)
	require.NoError(t, err)
	assert.Equal(t, int32(1), hits.Load())
	assert.False(t, s.FetchedAt().IsZero())

	_, err = s.Get(ctx, 1)
	assert.ErrorIs(t, err, ErrUnknownChain)
}

func TestRefreshRefetches(t *testing.T) {
	srv, hits := newTestServer(t, testDocument)
	s := NewService(srv.URL, nil)

	require.NoError(t, s.Refresh(context.Background()))
	require.NoError(t, s.Refresh(context.Background()))
	assert.Equal(t, int32(2), hits.Load())
}

func TestDomain(t *testing.T) {
	srv, _ := newTestServer(t, testDocument)
	s := NewService(srv.URL, nil)
	ctx := context.Background()

	domain, err := s.Domain(ctx, 11155111, "1.0")
	require.NoError(t, err)
	assert.Equal(t, "AtlasVerification", domain.Name)
	assert.Equal(t, "1.0", domain.Version)
	assert.Equal(t, int64(11155111), domain.ChainID.Int64())
	assert.Equal(t, common.HexToAddress("0xf31cf8740Dc4438Bb89a56Ee2234Ba9d5595c0E9"), domain.VerifyingContract)

	// no domain entry: derived from the contracts of that version
	domain, err = s.Domain(ctx, 137, "1.1")
	require.NoError(t, err)
	assert.Equal(t, DefaultDomainName, domain.Name)
	assert.Equal(t, "1.1", domain.Version)
	assert.Equal(t, int64(137), domain.ChainID.Int64())
	assert.Equal(t, common.HexToAddress("0xabc"), domain.VerifyingContract)

	_, err = s.Domain(ctx, 137, "9.9")
	assert.ErrorIs(t, err, ErrUnknownVersion)
}

func TestOverrideWinsWithoutFetching(t *testing.T) {
	srv, hits := newTestServer(t, testDocument)
	s := NewService(srv.URL, nil)
	s.Override(11155111, &ChainConfig{
		EIP712Domains: map[string]operation.Domain{"1.0": {Name: "Custom", Version: "1.0"}},
	})

	domain, err := s.Domain(context.Background(), 11155111, "1.0")
	require.NoError(t, err)
	assert.Equal(t, "Custom", domain.Name)
	assert.Equal(t, int32(0), hits.Load())
}

func TestFetchFailureKeepsPrevious(t *testing.T) {
	var fail atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(testDocument))
	}))
	defer srv.Close()

	s := NewService(srv.URL, nil)
	require.NoError(t, s.Refresh(context.Background()))

	fail.Store(true)
	assert.Error(t, s.Refresh(context.Background()))

	_, err := s.Get(context.Background(), 11155111)
	assert.NoError(t, err)
}

func TestDecodeRejectsBadAddress(t *testing.T) {
	_, err := Decode(map[string]map[string]any{
		"1": {"contracts": map[string]any{"1.0": map[string]any{"atlas": "nope"}}},
	})
	assert.Error(t, err)

	_, err = Decode(map[string]map[string]any{"mainnet": {}})
	assert.Error(t, err)
}

func TestAutoRefresh(t *testing.T) {
	srv, hits := newTestServer(t, testDocument)
	s := NewService(srv.URL, nil)

	require.NoError(t, s.StartAutoRefresh(50*time.Millisecond))
	defer s.Stop()

	require.Eventually(t, func() bool { return hits.Load() >= 2 }, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, s.Stop())
}
