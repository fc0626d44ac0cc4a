// Package chainconfig loads the per chain Atlas deployment (contract
// addresses and EIP-712 domains) from a remote JSON document. The document is
// fetched once on first use and can be refreshed explicitly or on a schedule.
package chainconfig

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"reflect"
	"strconv"
	"sync"
	"time"

	sdklogging "github.com/Layr-Labs/eigensdk-go/logging"
	"github.com/ethereum/go-ethereum/common"
	"github.com/go-co-op/gocron/v2"
	"github.com/go-resty/resty/v2"
	"github.com/mitchellh/mapstructure"

	"github.com/AvaProtocol/ap-atlas/core/operation"
	"github.com/AvaProtocol/ap-atlas/pkg/logger"
)

const DefaultDomainName = "AtlasVerification"

var (
	ErrUnknownChain   = errors.New("chain is not configured")
	ErrUnknownVersion = errors.New("atlas version is not configured")
)

type Contracts struct {
	Atlas             common.Address `mapstructure:"atlas"`
	AtlasVerification common.Address `mapstructure:"atlasVerification"`
	Sorter            common.Address `mapstructure:"sorter"`
	Simulator         common.Address `mapstructure:"simulator"`
	Multicall3        common.Address `mapstructure:"multicall3"`
}

// ChainConfig is the deployment of one chain, keyed by Atlas version.
type ChainConfig struct {
	Contracts     map[string]Contracts        `mapstructure:"contracts"`
	EIP712Domains map[string]operation.Domain `mapstructure:"eip712Domain"`
}

type Service struct {
	url    string
	client *resty.Client
	logger sdklogging.Logger

	fetchMu sync.Mutex

	mu        sync.RWMutex
	chains    map[uint64]*ChainConfig
	overrides map[uint64]*ChainConfig
	loaded    bool
	fetchedAt time.Time

	scheduler gocron.Scheduler
}

func NewService(url string, log sdklogging.Logger) *Service {
	return &Service{
		url:       url,
		client:    resty.New().SetTimeout(10 * time.Second).SetHeader("Accept", "application/json"),
		logger:    logger.EnsureLogger(log),
		chains:    make(map[uint64]*ChainConfig),
		overrides: make(map[uint64]*ChainConfig),
	}
}

// Override pins the configuration of a chain. Overrides win over the remote
// document and survive refreshes.
func (s *Service) Override(chainID uint64, cfg *ChainConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overrides[chainID] = cfg
}

func (s *Service) FetchedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fetchedAt
}

// Get returns the configuration of chainID, fetching the document on first use.
func (s *Service) Get(ctx context.Context, chainID uint64) (*ChainConfig, error) {
	s.mu.RLock()
	if cfg, ok := s.overrides[chainID]; ok {
		s.mu.RUnlock()
		return cfg, nil
	}
	loaded := s.loaded
	s.mu.RUnlock()

	if !loaded && s.url != "" {
		if err := s.load(ctx, false); err != nil {
			return nil, err
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	cfg, ok := s.chains[chainID]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownChain, chainID)
	}
	return cfg, nil
}

// Refresh re-fetches the document. On failure the previous configuration is kept.
func (s *Service) Refresh(ctx context.Context) error {
	return s.load(ctx, true)
}

func (s *Service) Contracts(ctx context.Context, chainID uint64, version string) (Contracts, error) {
	cfg, err := s.Get(ctx, chainID)
	if err != nil {
		return Contracts{}, err
	}
	contracts, ok := cfg.Contracts[version]
	if !ok {
		return Contracts{}, fmt.Errorf("%w: %s on chain %d", ErrUnknownVersion, version, chainID)
	}
	return contracts, nil
}

// Domain returns the EIP-712 domain for chainID and version. Missing domain
// entries fall back to the AtlasVerification contract of that version.
func (s *Service) Domain(ctx context.Context, chainID uint64, version string) (operation.Domain, error) {
	cfg, err := s.Get(ctx, chainID)
	if err != nil {
		return operation.Domain{}, err
	}

	domain, hasDomain := cfg.EIP712Domains[version]
	contracts, hasContracts := cfg.Contracts[version]
	if !hasDomain && !hasContracts {
		return operation.Domain{}, fmt.Errorf("%w: %s on chain %d", ErrUnknownVersion, version, chainID)
	}

	if domain.Name == "" {
		domain.Name = DefaultDomainName
	}
	if domain.Version == "" {
		domain.Version = version
	}
	if domain.VerifyingContract == (common.Address{}) {
		domain.VerifyingContract = contracts.AtlasVerification
	}
	domain.ChainID = new(big.Int).SetUint64(chainID)
	return domain, nil
}

// StartAutoRefresh refreshes the document every interval until Stop.
func (s *Service) StartAutoRefresh(interval time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.scheduler != nil {
		return nil
	}

	scheduler, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}

	_, err = scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), interval)
			defer cancel()
			if err := s.Refresh(ctx); err != nil {
				s.logger.Warn("chain config refresh failed", "url", s.url, "error", err)
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = scheduler.Shutdown()
		return fmt.Errorf("failed to schedule chain config refresh: %w", err)
	}

	scheduler.Start()
	s.scheduler = scheduler
	s.logger.Info("chain config auto refresh started", "url", s.url, "interval", interval)
	return nil
}

func (s *Service) Stop() error {
	s.mu.Lock()
	scheduler := s.scheduler
	s.scheduler = nil
	s.mu.Unlock()

	if scheduler == nil {
		return nil
	}
	return scheduler.Shutdown()
}

func (s *Service) load(ctx context.Context, force bool) error {
	s.fetchMu.Lock()
	defer s.fetchMu.Unlock()

	s.mu.RLock()
	loaded := s.loaded
	s.mu.RUnlock()
	if loaded && !force {
		return nil
	}

	chains, err := s.fetch(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.chains = chains
	s.loaded = true
	s.fetchedAt = time.Now()
	s.mu.Unlock()

	s.logger.Debug("chain config loaded", "url", s.url, "chains", len(chains))
	return nil
}

func (s *Service) fetch(ctx context.Context) (map[uint64]*ChainConfig, error) {
	var doc map[string]map[string]any
	resp, err := s.client.R().SetContext(ctx).SetResult(&doc).Get(s.url)
	if err != nil {
		return nil, fmt.Errorf("fetch chain config: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("fetch chain config: status %d", resp.StatusCode())
	}

	return Decode(doc)
}

// Decode converts the raw document, keyed by decimal chain id, into typed configs.
func Decode(doc map[string]map[string]any) (map[uint64]*ChainConfig, error) {
	chains := make(map[uint64]*ChainConfig, len(doc))
	for key, raw := range doc {
		chainID, err := strconv.ParseUint(key, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid chain id %q: %w", key, err)
		}

		var cfg ChainConfig
		decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(addressHook, bigIntHook),
			Result:     &cfg,
		})
		if err != nil {
			return nil, err
		}
		if err := decoder.Decode(raw); err != nil {
			return nil, fmt.Errorf("decode chain %d: %w", chainID, err)
		}
		chains[chainID] = &cfg
	}
	return chains, nil
}

var (
	addressType = reflect.TypeOf(common.Address{})
	bigIntType  = reflect.TypeOf((*big.Int)(nil))
)

func addressHook(from, to reflect.Type, data any) (any, error) {
	if to != addressType || from.Kind() != reflect.String {
		return data, nil
	}
	s := data.(string)
	if !common.IsHexAddress(s) {
		return nil, fmt.Errorf("invalid address %q", s)
	}
	return common.HexToAddress(s), nil
}

func bigIntHook(from, to reflect.Type, data any) (any, error) {
	if to != bigIntType {
		return data, nil
	}

	switch v := data.(type) {
	case float64:
		return new(big.Int).SetUint64(uint64(v)), nil
	case json.Number:
		n, ok := new(big.Int).SetString(v.String(), 10)
		if !ok {
			return nil, fmt.Errorf("invalid integer %q", v)
		}
		return n, nil
	case string:
		n, ok := new(big.Int).SetString(v, 0)
		if !ok {
			return nil, fmt.Errorf("invalid integer %q", v)
		}
		return n, nil
	}
	return data, nil
}
