package config

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"os"
	"strings"
	"time"

	sdklogging "github.com/Layr-Labs/eigensdk-go/logging"
	sdkutils "github.com/Layr-Labs/eigensdk-go/utils"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v2"

	"github.com/AvaProtocol/ap-atlas/pkg/logger"
)

const (
	DefaultAuctionDuration    = 2 * time.Second
	DefaultReconnectDelay     = time.Second
	DefaultChainConfigRefresh = 10 * time.Minute
	DefaultDomainVersion      = "1.0"
)

// Config is the resolved client configuration shared by the cli commands
// and the sdk.
type Config struct {
	Environment sdklogging.LogLevel
	Logger      sdklogging.Logger

	ChainID         *big.Int
	RelayURL        string
	BackendURL      string
	AuctionDuration time.Duration
	ReconnectDelay  time.Duration

	ChainConfigURL     string
	ChainConfigRefresh time.Duration
	DomainVersion      string

	EigenMetricsIpPortAddress string
	SimulationRpcUrl          string
	ScoringLimit              int

	// Optional. Without a key the sdk cannot sign dApp operations itself.
	DAppSignerKey     *ecdsa.PrivateKey
	DAppSignerAddress common.Address
	Bundler           common.Address
}

// These are read from the config file
type ConfigRaw struct {
	Environment sdklogging.LogLevel `yaml:"environment" validate:"omitempty,oneof=production development"`

	ChainID         uint64 `yaml:"chain_id" validate:"required"`
	RelayURL        string `yaml:"relay_url" validate:"required_without=BackendURL,omitempty,url"`
	BackendURL      string `yaml:"backend_url" validate:"omitempty,url"`
	AuctionDuration string `yaml:"auction_duration"`
	ReconnectDelay  string `yaml:"reconnect_delay"`

	ChainConfigURL     string `yaml:"chain_config_url" validate:"omitempty,url"`
	ChainConfigRefresh string `yaml:"chain_config_refresh"`
	DomainVersion      string `yaml:"domain_version"`

	EigenMetricsIpPortAddress string `yaml:"eigen_metrics_ip_port_address" validate:"omitempty,hostname_port"`
	SimulationRpcUrl          string `yaml:"simulation_rpc_url" validate:"omitempty,url"`
	ScoringLimit              int    `yaml:"scoring_limit" validate:"gte=0"`

	DAppSignerPrivateKey string `yaml:"dapp_signer_private_key" validate:"omitempty,hexadecimal"`
	Bundler              string `yaml:"bundler" validate:"omitempty,eth_addr"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// NewConfig parses the yaml config file at configFilePath.
func NewConfig(configFilePath string) (*Config, error) {
	data, err := os.ReadFile(configFilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configFilePath, err)
	}

	var configRaw ConfigRaw
	if err := yaml.Unmarshal(data, &configRaw); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %s\nMake sure it is exist and a valid yaml file %w.", configFilePath, err)
	}

	return FromRaw(configRaw)
}

// FromRaw validates configRaw and resolves it into a Config.
func FromRaw(configRaw ConfigRaw) (*Config, error) {
	if err := validate.Struct(configRaw); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if configRaw.Environment == "" {
		configRaw.Environment = sdklogging.Development
	}
	log, err := logger.NewLogger(configRaw.Environment)
	if err != nil {
		return nil, err
	}

	config := &Config{
		Environment:               configRaw.Environment,
		Logger:                    log,
		ChainID:                   new(big.Int).SetUint64(configRaw.ChainID),
		RelayURL:                  configRaw.RelayURL,
		BackendURL:                configRaw.BackendURL,
		ChainConfigURL:            configRaw.ChainConfigURL,
		DomainVersion:             configRaw.DomainVersion,
		EigenMetricsIpPortAddress: configRaw.EigenMetricsIpPortAddress,
		SimulationRpcUrl:          configRaw.SimulationRpcUrl,
		ScoringLimit:              configRaw.ScoringLimit,
	}
	if config.DomainVersion == "" {
		config.DomainVersion = DefaultDomainVersion
	}

	if config.AuctionDuration, err = parseDuration("auction_duration", configRaw.AuctionDuration, DefaultAuctionDuration); err != nil {
		return nil, err
	}
	if config.ReconnectDelay, err = parseDuration("reconnect_delay", configRaw.ReconnectDelay, DefaultReconnectDelay); err != nil {
		return nil, err
	}
	if config.ChainConfigRefresh, err = parseDuration("chain_config_refresh", configRaw.ChainConfigRefresh, DefaultChainConfigRefresh); err != nil {
		return nil, err
	}

	if configRaw.DAppSignerPrivateKey != "" {
		key, err := crypto.HexToECDSA(strings.TrimPrefix(configRaw.DAppSignerPrivateKey, "0x"))
		if err != nil {
			log.Errorf("Cannot parse dapp signer private key: %v", err)
			return nil, err
		}
		addr, err := sdkutils.EcdsaPrivateKeyToAddress(key)
		if err != nil {
			return nil, err
		}
		config.DAppSignerKey = key
		config.DAppSignerAddress = addr
	}
	if configRaw.Bundler != "" {
		config.Bundler = common.HexToAddress(configRaw.Bundler)
	}

	return config, nil
}

func parseDuration(name, value string, fallback time.Duration) (time.Duration, error) {
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, value, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be positive", name, value)
	}
	return d, nil
}
