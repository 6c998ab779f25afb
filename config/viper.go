// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

func NewConfig(v *viper.Viper) (Config, error) {
	cfg, err := BuildConfig(v)
	if err != nil {
		return cfg, err
	}
	if err = cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("failed to validate configuration: %w", err)
	}
	return cfg, nil
}

// AddFlags registers the session flags shared by every command.
func AddFlags(fs *pflag.FlagSet) {
	fs.String(ConfigFileKey, "", "Path to a JSON configuration file")
	fs.String(LogLevelKey, defaultLogLevel, "Log level (debug, info, warn, error)")
	fs.String(NetworkKey, defaultNetwork, "Network preset (sepolia, local, custom)")
	fs.Uint64(ChainIDKey, 0, "Chain id, overrides the preset")
	fs.String(GatewayURLKey, "", "Gateway URL, overrides the preset")
	fs.String(NetworkURLKey, "", "Chain RPC URL, overrides the preset")
	fs.String(PublicKeyKey, "", "Network FHE public key (hex), fetched from the gateway when empty")
	fs.String(ParamsPathKey, "", "Path to a JSON encryption parameters literal")
	fs.String(KeysPathKey, "", "Path where the network public key is cached")
}

// AddDevnetFlags registers the flags of the devnet server.
func AddDevnetFlags(fs *pflag.FlagSet) {
	fs.String(DataDirKey, "", "Devnet database directory, in-memory when empty")
	fs.Uint16(APIPortKey, defaultAPIPort, "Gateway API port")
	fs.Uint16(MetricsPortKey, defaultMetricsPort, "Prometheus metrics port")
	fs.Int(PlaintextCacheSizeKey, DefaultPlaintextCacheSize, "Number of decrypted inputs kept in memory")
}

// BuildViper builds the viper instance. All config keys may be provided via
// flag, environment variable or the optional JSON config file.
func BuildViper(fs *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	// Map flag names to env var names. Hyphens are replaced with underscores.
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	if err := v.BindPFlags(fs); err != nil {
		return nil, err
	}

	filename := v.GetString(ConfigFileKey)
	if filename == "" {
		return v, nil
	}
	v.SetConfigFile(expandPath(filename))
	v.SetConfigType("json")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return v, nil
}

func SetDefaultConfigValues(v *viper.Viper) {
	v.SetDefault(LogLevelKey, defaultLogLevel)
	v.SetDefault(NetworkKey, defaultNetwork)
	v.SetDefault(APIPortKey, defaultAPIPort)
	v.SetDefault(MetricsPortKey, defaultMetricsPort)
	v.SetDefault(PlaintextCacheSizeKey, DefaultPlaintextCacheSize)
}

// BuildConfig constructs the config using Viper.
// The following precedence order is used. Each item takes precedence over the item below it:
//  1. Flags
//  2. Environment variables
//  3. Config file
//  4. Defaults
func BuildConfig(v *viper.Viper) (Config, error) {
	SetDefaultConfigValues(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to unmarshal viper config: %w", err)
	}
	cfg.DataDir = expandPath(cfg.DataDir)
	cfg.ParamsPath = expandPath(cfg.ParamsPath)
	cfg.KeysPath = expandPath(cfg.KeysPath)
	return cfg, nil
}

// expandPath expands any variables in path using the OS env.
func expandPath(path string) string {
	return os.Expand(path, os.Getenv)
}
