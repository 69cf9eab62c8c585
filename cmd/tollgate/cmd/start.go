// Copyright 2023 The Tollgate Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cmd

import (
	"context"
	"encoding/hex"
	"fmt"
	stdlog "log"
	"math/big"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tollgate/tollgate"
	"github.com/tollgate/tollgate/pkg/api"
	"github.com/tollgate/tollgate/pkg/crypto"
	"github.com/tollgate/tollgate/pkg/erc20"
	"github.com/tollgate/tollgate/pkg/paymaster"
	"github.com/tollgate/tollgate/pkg/statestore/leveldb"
	"github.com/tollgate/tollgate/pkg/transaction"
	"github.com/tollgate/tollgate/pkg/uniswap"
)

const (
	defaultSwapDeadline = 30 * time.Minute

	maxBackendDelay = 10 * time.Minute
)

func (c *command) initStartCmd() (err error) {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the settlement service",
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			if len(args) > 0 {
				return cmd.Help()
			}

			v := strings.ToLower(c.config.GetString(optionNameVerbosity))
			logger, err := newLogger(cmd, v)
			if err != nil {
				return fmt.Errorf("new logger: %v", err)
			}

			logger.Infof("version: %v", tollgate.Version)

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			dataDir := c.config.GetString(optionNameDataDir)
			stateStore, err := leveldb.NewStateStore(filepath.Join(dataDir, "statestore"), logger)
			if err != nil {
				return fmt.Errorf("statestore: %w", err)
			}
			defer stateStore.Close()

			endpoint := c.config.GetString(optionNameBlockchainEndpoint)
			backend, err := ethclient.Dial(endpoint)
			if err != nil {
				return fmt.Errorf("dial eth client: %w", err)
			}
			defer backend.Close()

			chainID, err := backend.ChainID(ctx)
			if err != nil {
				return fmt.Errorf("get chain id: %w", err)
			}
			logger.Infof("using blockchain endpoint %s on chain %d", endpoint, chainID)

			if c.config.GetBool(optionNameBackendSyncCheck) {
				logger.Info("waiting for the blockchain backend to be synced")
				if err := transaction.WaitSynced(ctx, backend, maxBackendDelay); err != nil {
					return fmt.Errorf("waiting for backend sync: %w", err)
				}
			}

			signer, operator, err := walletSigner(c.config.GetString(optionNameWalletKey))
			if err != nil {
				return err
			}
			logger.Infof("using operator wallet address %x", operator)

			transactionService, err := transaction.NewService(logger, backend, signer, stateStore, chainID)
			if err != nil {
				return fmt.Errorf("transaction service: %w", err)
			}

			utilityAddress, err := flagAddress(c.config.GetString(optionNameUtilityTokenAddress), optionNameUtilityTokenAddress)
			if err != nil {
				return err
			}
			stableAddress, err := flagAddress(c.config.GetString(optionNameStableTokenAddress), optionNameStableTokenAddress)
			if err != nil {
				return err
			}
			pairAddress, err := flagAddress(c.config.GetString(optionNamePairAddress), optionNamePairAddress)
			if err != nil {
				return err
			}
			routerAddress, err := flagAddress(c.config.GetString(optionNameRouterAddress), optionNameRouterAddress)
			if err != nil {
				return err
			}

			owner := operator
			if v := c.config.GetString(optionNameOwnerAddress); v != "" {
				owner, err = flagAddress(v, optionNameOwnerAddress)
				if err != nil {
					return err
				}
			}

			paymasterService := paymaster.New(
				logger,
				stateStore,
				transactionService,
				erc20.NewBurnable(transactionService, utilityAddress),
				erc20.New(transactionService, stableAddress),
				uniswap.NewPair(transactionService, pairAddress),
				uniswap.NewRouter(transactionService, routerAddress),
				owner,
				c.config.GetDuration(optionNameSwapDeadline),
				nil,
			)

			initialPrices, err := initialTierPrices(c.config)
			if err != nil {
				return err
			}
			if err := paymasterService.Init(ctx, initialPrices); err != nil {
				return fmt.Errorf("init paymaster: %w", err)
			}

			apiService := api.New(api.Options{
				Paymaster:          paymasterService,
				Operator:           operator,
				Logger:             logger,
				CORSAllowedOrigins: c.config.GetStringSlice(optionCORSAllowedOrigins),
			})

			addr := c.config.GetString(optionNameAPIAddr)
			listener, err := net.Listen("tcp", addr)
			if err != nil {
				return fmt.Errorf("api listener: %w", err)
			}

			server := &http.Server{
				Handler:           apiService,
				IdleTimeout:       30 * time.Second,
				ReadHeaderTimeout: 3 * time.Second,
				ErrorLog:          stdlog.New(logger.WriterLevel(logrus.ErrorLevel), "", 0),
			}

			serverErr := make(chan error, 1)
			go func() {
				logger.Infof("api address: %s", listener.Addr())
				if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
					serverErr <- err
				}
			}()

			interrupt := make(chan os.Signal, 1)
			signal.Notify(interrupt, syscall.SIGINT, syscall.SIGTERM)

			select {
			case sig := <-interrupt:
				logger.Infof("received signal: %v; shutting down", sig)
			case err := <-serverErr:
				return fmt.Errorf("api server: %w", err)
			case <-ctx.Done():
			}

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer shutdownCancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				logger.Errorf("api shutdown: %v", err)
			}

			return nil
		},
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return c.config.BindPFlags(cmd.Flags())
		},
	}

	c.setAllFlags(cmd)
	c.root.AddCommand(cmd)
	return nil
}

func walletSigner(key string) (crypto.Signer, common.Address, error) {
	if key == "" {
		return nil, common.Address{}, fmt.Errorf("%s: value is required", optionNameWalletKey)
	}
	data, err := hex.DecodeString(strings.TrimPrefix(key, "0x"))
	if err != nil {
		return nil, common.Address{}, fmt.Errorf("%s: %w", optionNameWalletKey, err)
	}
	privateKey, err := crypto.DecodeSecp256k1PrivateKey(data)
	if err != nil {
		return nil, common.Address{}, fmt.Errorf("%s: %w", optionNameWalletKey, err)
	}
	signer := crypto.NewDefaultSigner(privateKey)
	address, err := signer.EthereumAddress()
	if err != nil {
		return nil, common.Address{}, fmt.Errorf("wallet address: %w", err)
	}
	return signer, address, nil
}

func flagAddress(value, flag string) (common.Address, error) {
	if !common.IsHexAddress(value) {
		return common.Address{}, fmt.Errorf("%s: invalid address %q", flag, value)
	}
	return common.HexToAddress(value), nil
}

// initialTierPrices parses the configured human-readable stable prices
// into the fixed-point representation the settlement engine works with.
func initialTierPrices(config *viper.Viper) (map[paymaster.Tier]*big.Int, error) {
	flags := map[paymaster.Tier]string{
		paymaster.TierMicro:    optionNameTierPriceMicro,
		paymaster.TierStandard: optionNameTierPriceStandard,
		paymaster.TierBig:      optionNameTierPriceBig,
		paymaster.TierArchive:  optionNameTierPriceArchive,
	}
	prices := make(map[paymaster.Tier]*big.Int, len(flags))
	for tier, flag := range flags {
		d, err := decimal.NewFromString(config.GetString(flag))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", flag, err)
		}
		price := d.Shift(paymaster.PriceDecimals).BigInt()
		if price.Sign() <= 0 {
			return nil, fmt.Errorf("%s: price must be positive", flag)
		}
		prices[tier] = price
	}
	return prices, nil
}
