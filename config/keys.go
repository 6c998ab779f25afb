// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package config

const (
	// Command line option keys
	ConfigFileKey = "config-file"
	VersionKey    = "version"
	HelpKey       = "help"

	// Environment variables are the upper-cased keys with this prefix, e.g.
	// FHEVM_GATEWAY_URL.
	EnvPrefix = "FHEVM"

	// Top-level configuration keys
	LogLevelKey   = "log-level"
	NetworkKey    = "network"
	ChainIDKey    = "chain-id"
	GatewayURLKey = "gateway-url"
	NetworkURLKey = "network-url"
	PublicKeyKey  = "public-key"
	ParamsPathKey = "params-path"
	KeysPathKey   = "keys-path"
	PrivateKeyKey = "private-key"

	// Devnet keys
	DataDirKey            = "data-dir"
	APIPortKey            = "api-port"
	MetricsPortKey        = "metrics-port"
	PlaintextCacheSizeKey = "plaintext-cache-size"
)

// Network presets
const (
	NetworkSepolia = "sepolia"
	NetworkLocal   = "local"
	NetworkCustom  = "custom"
)
