// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package fhevm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		valid  bool
	}{
		{name: "local", modify: func(*Config) {}, valid: true},
		{name: "no chain", modify: func(c *Config) { c.ChainID = 0 }},
		{name: "no gateway", modify: func(c *Config) { c.GatewayURL = "" }},
		{name: "gateway scheme", modify: func(c *Config) { c.GatewayURL = "ftp://gateway" }},
		{name: "network host", modify: func(c *Config) { c.NetworkURL = "http://" }},
		{name: "network unparsable", modify: func(c *Config) { c.NetworkURL = "http://[::1" }},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cfg := LocalConfig()
			test.modify(&cfg)
			err := cfg.Validate()
			if test.valid {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestSepoliaConfig(t *testing.T) {
	require := require.New(t)

	cfg := SepoliaConfig("https://sepolia.example")
	require.NoError(cfg.Validate())
	require.Equal(uint64(SepoliaChainID), cfg.ChainID)
	require.Equal(SepoliaGatewayURL, cfg.GatewayURL)
	require.Empty(cfg.PublicKey)

	require.ErrorIs(SepoliaConfig("").Validate(), ErrInvalidConfig)
}

func TestConfigFingerprint(t *testing.T) {
	require := require.New(t)

	a := LocalConfig()
	b := LocalConfig()
	require.Equal(a.Fingerprint(), b.Fingerprint())

	b.PublicKey = []byte{1}
	require.NotEqual(a.Fingerprint(), b.Fingerprint())

	// Field boundaries are delimited.
	c := Config{ChainID: 1, NetworkURL: "http://ab", GatewayURL: "c"}
	d := Config{ChainID: 1, NetworkURL: "http://a", GatewayURL: "bc"}
	require.NotEqual(c.Fingerprint(), d.Fingerprint())
}
