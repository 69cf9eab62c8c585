// Copyright 2023 The Tollgate Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tollgate/tollgate/pkg/logging"
)

const (
	optionNameDataDir             = "data-dir"
	optionNameVerbosity           = "verbosity"
	optionNameAPIAddr             = "api-addr"
	optionCORSAllowedOrigins      = "cors-allowed-origins"
	optionNameBlockchainEndpoint  = "blockchain-rpc-endpoint"
	optionNameWalletKey           = "wallet-key"
	optionNameUtilityTokenAddress = "utility-token-address"
	optionNameStableTokenAddress  = "stable-token-address"
	optionNamePairAddress         = "pair-address"
	optionNameRouterAddress       = "router-address"
	optionNameOwnerAddress        = "owner-address"
	optionNameTierPriceMicro      = "tier-price-micro"
	optionNameTierPriceStandard   = "tier-price-standard"
	optionNameTierPriceBig        = "tier-price-big"
	optionNameTierPriceArchive    = "tier-price-archive"
	optionNameSwapDeadline        = "swap-deadline"
	optionNameBackendSyncCheck    = "backend-sync-check"
)

func init() {
	cobra.EnableCommandSorting = false
}

type command struct {
	root    *cobra.Command
	config  *viper.Viper
	cfgFile string
	homeDir string
}

type option func(*command)

func newCommand(opts ...option) (c *command, err error) {
	c = &command{
		root: &cobra.Command{
			Use:           "tollgate",
			Short:         "Tiered burn-to-pay settlement service",
			SilenceErrors: true,
			SilenceUsage:  true,
			PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
				return c.initConfig()
			},
		},
	}

	for _, o := range opts {
		o(c)
	}

	// Find home directory.
	if err := c.setHomeDir(); err != nil {
		return nil, err
	}

	c.initGlobalFlags()

	if err := c.initStartCmd(); err != nil {
		return nil, err
	}

	c.initVersionCmd()

	return c, nil
}

func (c *command) Execute() (err error) {
	return c.root.Execute()
}

// Execute parses command line arguments and runs appropriate functions.
func Execute() (err error) {
	c, err := newCommand()
	if err != nil {
		return err
	}
	return c.Execute()
}

func (c *command) initGlobalFlags() {
	globalFlags := c.root.PersistentFlags()
	globalFlags.StringVar(&c.cfgFile, "config", "", "config file (default is $HOME/.tollgate.yaml)")
}

func (c *command) initConfig() (err error) {
	config := viper.New()
	configName := ".tollgate"
	if c.cfgFile != "" {
		// Use config file from the flag.
		config.SetConfigFile(c.cfgFile)
	} else {
		// Search config in home directory with name ".tollgate" (without extension).
		config.AddConfigPath(c.homeDir)
		config.SetConfigName(configName)
	}

	// Environment
	config.SetEnvPrefix("tollgate")
	config.AutomaticEnv() // read in environment variables that match
	config.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	// If a config file is found, read it in.
	if err := config.ReadInConfig(); err != nil {
		var e viper.ConfigFileNotFoundError
		if !errors.As(err, &e) {
			return err
		}
	}

	c.config = config
	return nil
}

func (c *command) setHomeDir() (err error) {
	if c.homeDir != "" {
		return
	}
	dir, err := os.UserHomeDir()
	if err != nil {
		return err
	}
	c.homeDir = dir
	return nil
}

func (c *command) setAllFlags(cmd *cobra.Command) {
	cmd.Flags().String(optionNameDataDir, filepath.Join(c.homeDir, ".tollgate"), "data directory")
	cmd.Flags().String(optionNameVerbosity, "info", "log verbosity level 0=silent, 1=error, 2=warn, 3=info, 4=debug, 5=trace")
	cmd.Flags().String(optionNameAPIAddr, ":1685", "HTTP API listen address")
	cmd.Flags().StringSlice(optionCORSAllowedOrigins, []string{}, "origins with CORS headers enabled")
	cmd.Flags().String(optionNameBlockchainEndpoint, "ws://localhost:8546", "blockchain RPC endpoint")
	cmd.Flags().String(optionNameWalletKey, "", "hex-encoded private key of the operator wallet")
	cmd.Flags().String(optionNameUtilityTokenAddress, "", "address of the utility token contract")
	cmd.Flags().String(optionNameStableTokenAddress, "", "address of the stable token contract")
	cmd.Flags().String(optionNamePairAddress, "", "address of the pair the price is read from")
	cmd.Flags().String(optionNameRouterAddress, "", "address of the exchange router")
	cmd.Flags().String(optionNameOwnerAddress, "", "address allowed to perform administrative operations")
	cmd.Flags().String(optionNameTierPriceMicro, "0.05", "micro tier price in stable units")
	cmd.Flags().String(optionNameTierPriceStandard, "0.25", "standard tier price in stable units")
	cmd.Flags().String(optionNameTierPriceBig, "1", "big tier price in stable units")
	cmd.Flags().String(optionNameTierPriceArchive, "5", "archive tier price in stable units")
	cmd.Flags().Duration(optionNameSwapDeadline, defaultSwapDeadline, "deadline attached to swap transactions")
	cmd.Flags().Bool(optionNameBackendSyncCheck, true, "wait for the blockchain backend to be synced before starting")
}

func newLogger(cmd *cobra.Command, verbosity string) (logging.Logger, error) {
	var logger logging.Logger
	switch verbosity {
	case "0", "silent":
		logger = logging.New(io.Discard, 0)
	case "1", "error":
		logger = logging.New(cmd.OutOrStdout(), logrus.ErrorLevel)
	case "2", "warn":
		logger = logging.New(cmd.OutOrStdout(), logrus.WarnLevel)
	case "3", "info":
		logger = logging.New(cmd.OutOrStdout(), logrus.InfoLevel)
	case "4", "debug":
		logger = logging.New(cmd.OutOrStdout(), logrus.DebugLevel)
	case "5", "trace":
		logger = logging.New(cmd.OutOrStdout(), logrus.TraceLevel)
	default:
		return nil, fmt.Errorf("unknown verbosity level %q", verbosity)
	}
	return logger, nil
}
