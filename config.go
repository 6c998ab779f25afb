// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package fhevm

import (
	"encoding/binary"
	"fmt"
	"net/url"

	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/common/hexutil"
	"github.com/luxfi/ids"
)

const (
	SepoliaChainID    = 11155111
	SepoliaGatewayURL = "https://relayer.testnet.zama.cloud"

	LocalChainID    = 31337
	LocalGatewayURL = "http://127.0.0.1:7077"
	LocalNetworkURL = "http://127.0.0.1:8545"
)

// Config is the session configuration. It is immutable once passed to
// initialization.
type Config struct {
	ChainID    uint64        `json:"chainId" mapstructure:"chain-id"`
	PublicKey  hexutil.Bytes `json:"publicKey,omitempty" mapstructure:"public-key"`
	GatewayURL string        `json:"gatewayUrl" mapstructure:"gateway-url"`
	NetworkURL string        `json:"networkUrl" mapstructure:"network-url"`
}

// SepoliaConfig returns the configuration of the Sepolia testnet. The RPC
// endpoint must be supplied by the caller.
func SepoliaConfig(networkURL string) Config {
	return Config{
		ChainID:    SepoliaChainID,
		GatewayURL: SepoliaGatewayURL,
		NetworkURL: networkURL,
	}
}

// LocalConfig returns the configuration of a local devnet.
func LocalConfig() Config {
	return Config{
		ChainID:    LocalChainID,
		GatewayURL: LocalGatewayURL,
		NetworkURL: LocalNetworkURL,
	}
}

// Validate rejects configurations that cannot produce a session.
func (c Config) Validate() error {
	if c.ChainID == 0 {
		return fmt.Errorf("%w: chain id is required", ErrInvalidConfig)
	}
	if err := validateURL("gateway url", c.GatewayURL); err != nil {
		return err
	}
	if err := validateURL("network url", c.NetworkURL); err != nil {
		return err
	}
	return nil
}

// Fingerprint identifies the (chainId, network, gateway, publicKey) tuple.
func (c Config) Fingerprint() ids.ID {
	var chain [8]byte
	binary.BigEndian.PutUint64(chain[:], c.ChainID)
	return ids.ID(common.Keccak256Hash(
		chain[:],
		[]byte(c.NetworkURL),
		[]byte{0},
		[]byte(c.GatewayURL),
		[]byte{0},
		c.PublicKey,
	))
}

func validateURL(name, raw string) error {
	if raw == "" {
		return fmt.Errorf("%w: %s is required", ErrInvalidConfig, name)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidConfig, name, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: %s must be http(s), got %q", ErrInvalidConfig, name, raw)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: %s has no host", ErrInvalidConfig, name)
	}
	return nil
}
