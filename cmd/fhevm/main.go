// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/luxfi/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/luxfi/fhevm/adapter"
	"github.com/luxfi/fhevm/adapter/node"
	"github.com/luxfi/fhevm/config"
	"github.com/luxfi/fhevm/engine/local"
	"github.com/luxfi/fhevm/gateway"
	"github.com/luxfi/fhevm/session"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

const (
	keyCacheTTL         = 10 * time.Minute
	metricsTextfileFlag = "metrics-textfile"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "fhevm",
	Short: "fhEVM client - encrypt inputs and decrypt handles",
	Long: `fhevm encrypts contract inputs for an fhEVM chain and decrypts the
handles a user is allowed to read. It can also run a single-process devnet
that serves the gateway API.`,
	Version:       fmt.Sprintf("%s (built %s)", version, buildDate),
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	config.AddFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(devnetCmd)
	rootCmd.AddCommand(keyURLCmd)
	rootCmd.AddCommand(gatewayCmd)
	rootCmd.AddCommand(encryptCmd)
	rootCmd.AddCommand(decryptCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintln(cmd.OutOrStdout(), rootCmd.Version)
	},
}

// loadConfig builds the configuration from the command's flags, the
// environment and the config file, and the logger it asks for.
func loadConfig(cmd *cobra.Command) (config.Config, log.Logger, error) {
	v, err := config.BuildViper(cmd.Flags())
	if err != nil {
		return config.Config{}, nil, err
	}
	cfg, err := config.NewConfig(v)
	if err != nil {
		return config.Config{}, nil, err
	}
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, logger, nil
}

// newLogger writes JSON to stderr so that command output on stdout stays
// machine readable.
func newLogger(level string) (log.Logger, error) {
	logLevel, err := log.ToLevel(level)
	if err != nil {
		return nil, fmt.Errorf("error reading log level: %w", err)
	}
	return log.NewLogger(
		"fhevm",
		*log.NewWrappedCore(
			logLevel,
			os.Stderr,
			log.JSON.ConsoleEncoder(),
		),
	), nil
}

// newClient wires the node binding to a fresh session using the bundled
// engine. Adapter metrics are registered on registerer.
func newClient(cfg config.Config, logger log.Logger, registerer prometheus.Registerer) (*node.Client, *session.Store) {
	initializer := session.NewInitializer(
		logger,
		local.NewEngine(logger, nil),
		session.WithInitOptions(cfg.InitOptions()),
		session.WithPublicKeyFetcher(gateway.NewKeyFetcher(nil, keyCacheTTL)),
	)
	store := session.NewStore(logger, initializer)
	m := adapter.NewMachine(logger, adapter.Deps{
		Store:   store,
		Metrics: adapter.NewMetrics(registerer),
	})
	return node.New(logger, m), store
}

// writeMetrics dumps gatherer to the --metrics-textfile path, if set, for
// the node exporter textfile collector.
func writeMetrics(cmd *cobra.Command, logger log.Logger, gatherer prometheus.Gatherer) {
	path, err := cmd.Flags().GetString(metricsTextfileFlag)
	if err != nil || path == "" {
		return
	}
	if err := prometheus.WriteToTextfile(path, gatherer); err != nil {
		logger.Warn("failed to write metrics",
			log.String("path", path),
			log.Err(err),
		)
	}
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
