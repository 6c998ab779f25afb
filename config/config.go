// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

// Package config builds the command line configuration.
package config

import (
	"errors"
	"fmt"

	"github.com/luxfi/geth/common/hexutil"
	"github.com/luxfi/log"

	"github.com/luxfi/fhevm"
	"github.com/luxfi/fhevm/engine"
)

const (
	defaultLogLevel           = "info"
	defaultNetwork            = NetworkLocal
	defaultAPIPort            = uint16(7077)
	defaultMetricsPort        = uint16(9090)
	DefaultPlaintextCacheSize = 64
)

var (
	errUnknownNetwork = errors.New("unknown network preset")
	errInvalidPort    = errors.New("port must be non-zero")
	errSamePorts      = errors.New("api and metrics ports must differ")
)

// Config is the command line configuration. Session fields left empty are
// taken from the selected network preset.
type Config struct {
	LogLevel   string `mapstructure:"log-level" json:"log-level"`
	Network    string `mapstructure:"network" json:"network"`
	ChainID    uint64 `mapstructure:"chain-id" json:"chain-id"`
	GatewayURL string `mapstructure:"gateway-url" json:"gateway-url"`
	NetworkURL string `mapstructure:"network-url" json:"network-url"`
	PublicKey  string `mapstructure:"public-key" json:"public-key"`
	ParamsPath string `mapstructure:"params-path" json:"params-path"`
	KeysPath   string `mapstructure:"keys-path" json:"keys-path"`
	PrivateKey string `mapstructure:"private-key" json:"private-key"`

	DataDir            string `mapstructure:"data-dir" json:"data-dir"`
	APIPort            uint16 `mapstructure:"api-port" json:"api-port"`
	MetricsPort        uint16 `mapstructure:"metrics-port" json:"metrics-port"`
	PlaintextCacheSize int    `mapstructure:"plaintext-cache-size" json:"plaintext-cache-size"`
}

// Validate checks everything that does not need the network. The session
// configuration is validated separately by Session.
func (c *Config) Validate() error {
	if _, err := log.ToLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}
	switch c.Network {
	case NetworkSepolia, NetworkLocal, NetworkCustom:
	default:
		return fmt.Errorf("%w: %q", errUnknownNetwork, c.Network)
	}
	if c.APIPort == 0 || c.MetricsPort == 0 {
		return errInvalidPort
	}
	if c.APIPort == c.MetricsPort {
		return errSamePorts
	}
	if c.PlaintextCacheSize < 0 {
		return fmt.Errorf("invalid plaintext cache size %d", c.PlaintextCacheSize)
	}
	return nil
}

// Session returns the session configuration: the network preset overlaid
// with every explicitly configured field.
func (c *Config) Session() (fhevm.Config, error) {
	var cfg fhevm.Config
	switch c.Network {
	case NetworkSepolia:
		cfg = fhevm.SepoliaConfig(c.NetworkURL)
	case NetworkLocal:
		cfg = fhevm.LocalConfig()
	case NetworkCustom:
	default:
		return fhevm.Config{}, fmt.Errorf("%w: %q", errUnknownNetwork, c.Network)
	}

	if c.ChainID != 0 {
		cfg.ChainID = c.ChainID
	}
	if c.GatewayURL != "" {
		cfg.GatewayURL = c.GatewayURL
	}
	if c.NetworkURL != "" {
		cfg.NetworkURL = c.NetworkURL
	}
	if c.PublicKey != "" {
		pk, err := hexutil.Decode(c.PublicKey)
		if err != nil {
			return fhevm.Config{}, fmt.Errorf("%w: public key: %v", fhevm.ErrInvalidConfig, err)
		}
		cfg.PublicKey = pk
	}
	if err := cfg.Validate(); err != nil {
		return fhevm.Config{}, err
	}
	return cfg, nil
}

// InitOptions locates the bundled engine's assets.
func (c *Config) InitOptions() engine.InitOptions {
	return engine.InitOptions{
		ParamsPath: c.ParamsPath,
		KeysPath:   c.KeysPath,
	}
}
