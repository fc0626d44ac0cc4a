package sdk

import (
	"context"
	"errors"
	"fmt"

	sdkmetrics "github.com/Layr-Labs/eigensdk-go/metrics"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/AvaProtocol/ap-atlas/core/backend"
	"github.com/AvaProtocol/ap-atlas/core/chainconfig"
	"github.com/AvaProtocol/ap-atlas/core/config"
	"github.com/AvaProtocol/ap-atlas/core/hooks"
	"github.com/AvaProtocol/ap-atlas/core/relay"
	"github.com/AvaProtocol/ap-atlas/metrics"
)

const metricsName = "ap-atlas"

// Client is an SDK wired from a config file together with the resources it
// owns. Close releases all of them.
type Client struct {
	*SDK

	Pipeline *hooks.Pipeline
	Chains   *chainconfig.Service
	Metrics  metrics.MetricsGenerator

	closers []func() error
}

// FromConfig connects the configured backend and wraps it in the hook
// pipeline: metrics, logging, then simulation and scoring of solver
// operations when configured. Metrics are served on
// EigenMetricsIpPortAddress when it is set.
func FromConfig(ctx context.Context, cfg *config.Config, reg *prometheus.Registry) (*Client, error) {
	if cfg.ChainConfigURL == "" {
		return nil, fmt.Errorf("chain_config_url is required")
	}
	log := cfg.Logger
	c := &Client{}

	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	if cfg.EigenMetricsIpPortAddress != "" {
		eigenMetrics := sdkmetrics.NewEigenMetrics(metricsName, cfg.EigenMetricsIpPortAddress, reg, log)
		c.Metrics = metrics.NewAtlasMetrics(eigenMetrics, reg)

		metricsCtx, cancel := context.WithCancel(context.Background())
		errC := eigenMetrics.Start(metricsCtx, reg)
		go func() {
			if err, ok := <-errC; ok && err != nil {
				log.Error("metrics server stopped", "error", err)
			}
		}()
		c.closers = append(c.closers, func() error { cancel(); return nil })
	} else {
		c.Metrics = metrics.NewNoopMetrics()
	}

	var b backend.Backend
	if cfg.RelayURL != "" {
		r, err := relay.New(relay.Config{
			URL:             cfg.RelayURL,
			AuctionDuration: cfg.AuctionDuration,
			ReconnectDelay:  cfg.ReconnectDelay,
			Metrics:         c.Metrics,
		}, log)
		if err != nil {
			return nil, c.closeWith(err)
		}
		if err := r.Connect(ctx); err != nil {
			return nil, c.closeWith(err)
		}
		c.closers = append(c.closers, r.Close)
		b = r
	} else {
		b = backend.NewHTTPBackend(backend.HTTPConfig{BaseURL: cfg.BackendURL}, log)
	}

	c.Pipeline = hooks.NewPipeline(b,
		hooks.NewMetricsHook(c.Metrics, clockwork.NewRealClock()),
		hooks.NewLoggingHook(log),
	).WithMetrics(c.Metrics)

	if cfg.SimulationRpcUrl != "" {
		client, err := ethclient.Dial(cfg.SimulationRpcUrl)
		if err != nil {
			log.Error("Cannot create simulation ethclient", "err", err)
			return nil, c.closeWith(err)
		}
		c.closers = append(c.closers, func() error { client.Close(); return nil })
		c.Pipeline.Use(hooks.NewSimulationHook(hooks.NewEthCallSimulator(client), log))
	}
	if cfg.ScoringLimit > 0 {
		c.Pipeline.Use(hooks.NewScoringHook(cfg.ScoringLimit))
	}

	c.Chains = chainconfig.NewService(cfg.ChainConfigURL, log)
	if err := c.Chains.StartAutoRefresh(cfg.ChainConfigRefresh); err != nil {
		return nil, c.closeWith(err)
	}
	c.closers = append(c.closers, c.Chains.Stop)

	s, err := New(c.Pipeline, Options{
		ChainID:    cfg.ChainID,
		Version:    cfg.DomainVersion,
		Chains:     c.Chains,
		DAppSigner: cfg.DAppSignerKey,
	}, log)
	if err != nil {
		return nil, c.closeWith(err)
	}
	c.SDK = s
	return c, nil
}

func (c *Client) closeWith(err error) error {
	return errors.Join(err, c.Close())
}

// Close releases resources in reverse order of acquisition.
func (c *Client) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		errs = append(errs, c.closers[i]())
	}
	c.closers = nil
	return errors.Join(errs...)
}
