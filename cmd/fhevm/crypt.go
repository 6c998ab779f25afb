// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"errors"
	"fmt"

	"github.com/luxfi/geth/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/luxfi/fhevm"
	"github.com/luxfi/fhevm/config"
	"github.com/luxfi/fhevm/signer"
)

var errNoUser = errors.New("either --user or --private-key is required")

var encryptCmd = &cobra.Command{
	Use:   "encrypt VALUE",
	Short: "Encrypt a value for a contract",
	Long: `Encrypt encrypts VALUE as --type for --contract on behalf of the user and
prints the handle and input proof to pass to the contract.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		session, err := cfg.Session()
		if err != nil {
			return err
		}
		contract, err := addressFlag(cmd, "contract")
		if err != nil {
			return err
		}
		user, err := userAddress(cmd, cfg)
		if err != nil {
			return err
		}
		typeName, err := cmd.Flags().GetString("type")
		if err != nil {
			return err
		}
		t, err := fhevm.ParseValueType(typeName)
		if err != nil {
			return err
		}

		registry := prometheus.NewRegistry()
		client, store := newClient(cfg, logger, registry)
		defer writeMetrics(cmd, logger, registry)
		defer store.Close()
		defer client.Close()

		if _, err := client.Initialize(cmd.Context(), session); err != nil {
			return err
		}
		payload, err := client.Encrypt(cmd.Context(), contract, user, args[0], t)
		if err != nil {
			return err
		}
		return printJSON(cmd, payload)
	},
}

var decryptCmd = &cobra.Command{
	Use:   "decrypt HANDLE",
	Short: "Decrypt a handle the signing user is allowed to read",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		session, err := cfg.Session()
		if err != nil {
			return err
		}
		handle, err := fhevm.HandleFromHex(args[0])
		if err != nil {
			return err
		}
		contract, err := addressFlag(cmd, "contract")
		if err != nil {
			return err
		}
		if cfg.PrivateKey == "" {
			return fmt.Errorf("--%s is required to sign the decryption request", config.PrivateKeyKey)
		}
		s, err := signer.NewLocalSignerFromHex(cfg.PrivateKey)
		if err != nil {
			return err
		}

		registry := prometheus.NewRegistry()
		client, store := newClient(cfg, logger, registry)
		defer writeMetrics(cmd, logger, registry)
		defer store.Close()
		defer client.Close()

		if _, err := client.Initialize(cmd.Context(), session); err != nil {
			return err
		}
		v, err := client.Decrypt(cmd.Context(), handle, contract, s.Address(), s)
		if err != nil {
			return err
		}
		return printJSON(cmd, map[string]string{
			"handle": handle.String(),
			"type":   v.Type.String(),
			"value":  v.String(),
		})
	},
}

func init() {
	for _, cmd := range []*cobra.Command{encryptCmd, decryptCmd} {
		cmd.Flags().String("contract", "", "Contract address")
		cmd.Flags().String(config.PrivateKeyKey, "", "User private key (hex)")
		cmd.Flags().String(metricsTextfileFlag, "", "Write operation metrics in the Prometheus text format to this file")
		_ = cmd.MarkFlagRequired("contract")
	}
	encryptCmd.Flags().String("user", "", "User address, derived from --private-key when empty")
	encryptCmd.Flags().String("type", fhevm.TypeUint64.String(), "Value type (ebool, euint8 ... euint256, eaddress)")
}

func addressFlag(cmd *cobra.Command, name string) (common.Address, error) {
	raw, err := cmd.Flags().GetString(name)
	if err != nil {
		return common.Address{}, err
	}
	addr, ok := fhevm.ParseAddress(raw)
	if !ok {
		return common.Address{}, fmt.Errorf("invalid --%s address %q", name, raw)
	}
	return addr, nil
}

func userAddress(cmd *cobra.Command, cfg config.Config) (common.Address, error) {
	raw, err := cmd.Flags().GetString("user")
	if err != nil {
		return common.Address{}, err
	}
	if raw != "" {
		return addressFlag(cmd, "user")
	}
	if cfg.PrivateKey == "" {
		return common.Address{}, errNoUser
	}
	s, err := signer.NewLocalSignerFromHex(cfg.PrivateKey)
	if err != nil {
		return common.Address{}, err
	}
	return s.Address(), nil
}
