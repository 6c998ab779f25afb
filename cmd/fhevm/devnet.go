// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/luxfi/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/luxfi/fhevm/config"
	"github.com/luxfi/fhevm/engine/local"
	"github.com/luxfi/fhevm/gateway"
)

const shutdownTimeout = 5 * time.Second

var devnetCmd = &cobra.Command{
	Use:   "devnet",
	Short: "Run a single-process fhEVM network",
}

var devnetServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the gateway API of an in-process network",
	Long: `Serve starts a network holding the FHE secret key, the input verifier
and the handle ACL, and serves the gateway API on --api-port. Ciphertexts
and the secret key are kept in --data-dir, or in memory when it is empty.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return serveDevnet(ctx, cfg, logger)
	},
}

func init() {
	config.AddDevnetFlags(devnetServeCmd.Flags())
	devnetCmd.AddCommand(devnetServeCmd)
}

func serveDevnet(ctx context.Context, cfg config.Config, logger log.Logger) error {
	session, err := cfg.Session()
	if err != nil {
		return err
	}

	store, err := local.OpenBadgerStore(cfg.DataDir)
	if err != nil {
		return err
	}
	network, err := local.NewNetwork(logger, local.NetworkConfig{
		ChainID:            session.ChainID,
		ParamsPath:         cfg.ParamsPath,
		Store:              store,
		PlaintextCacheSize: cfg.PlaintextCacheSize,
	})
	if err != nil {
		_ = store.Close()
		return err
	}
	defer network.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	apiServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.APIPort),
		Handler:           gateway.NewHandler(logger, gateway.NewMetrics(registry), network),
		ReadHeaderTimeout: 10 * time.Second,
	}
	metricsServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.MetricsPort),
		Handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info(
		"Initialization complete",
		log.Uint64("chainID", session.ChainID),
		log.Int("apiPort", int(cfg.APIPort)),
		log.Int("metricsPort", int(cfg.MetricsPort)),
		log.String("dataDir", cfg.DataDir),
	)

	errGroup, ctx := errgroup.WithContext(ctx)
	for _, srv := range []*http.Server{apiServer, metricsServer} {
		srv := srv
		errGroup.Go(func() error {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server on %s failed: %w", srv.Addr, err)
			}
			return nil
		})
	}
	errGroup.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return errors.Join(
			apiServer.Shutdown(shutdownCtx),
			metricsServer.Shutdown(shutdownCtx),
		)
	})

	err = errGroup.Wait()
	logger.Info("devnet stopped")
	return err
}
