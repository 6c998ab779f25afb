// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"fmt"

	"github.com/luxfi/log"
	"github.com/spf13/cobra"

	"github.com/luxfi/fhevm/gateway"
	"github.com/luxfi/fhevm/utils"
)

var keyURLCmd = &cobra.Command{
	Use:   "keyurl",
	Short: "Print the key material advertised by the gateway",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, _, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		session, err := cfg.Session()
		if err != nil {
			return err
		}
		res, err := gateway.NewClient(session.GatewayURL).KeyURL(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(cmd, res)
	},
}

var gatewayCmd = &cobra.Command{
	Use:   "gateway",
	Short: "Gateway utilities",
}

var gatewayCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Check that the gateway is healthy",
	Long: `Check queries the gateway health endpoint once. With --wait it retries
with exponential backoff until the gateway is healthy or the duration has
elapsed. With --retries it retries at most that many times. --wait takes
precedence when both are set.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		session, err := cfg.Session()
		if err != nil {
			return err
		}
		wait, err := cmd.Flags().GetDuration("wait")
		if err != nil {
			return err
		}
		retries, err := cmd.Flags().GetUint64("retries")
		if err != nil {
			return err
		}

		client := gateway.NewClient(session.GatewayURL)
		check := func() error { return client.Health(cmd.Context()) }
		switch {
		case wait > 0:
			err = utils.WithRetriesTimeout(cmd.Context(), logger, check, wait)
		case retries > 0:
			err = utils.WithMaxRetries(cmd.Context(), logger, check, retries)
		default:
			err = check()
		}
		if err != nil {
			return fmt.Errorf("gateway %s unhealthy: %w", session.GatewayURL, err)
		}
		logger.Info("gateway healthy", log.String("url", session.GatewayURL))
		fmt.Fprintln(cmd.OutOrStdout(), "ok")
		return nil
	},
}

func init() {
	gatewayCheckCmd.Flags().Duration("wait", 0, "Retry until healthy for at most this long")
	gatewayCheckCmd.Flags().Uint64("retries", 0, "Retry at most this many times")
	gatewayCmd.AddCommand(gatewayCheckCmd)
}
