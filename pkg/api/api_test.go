// Copyright 2023 The Tollgate Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package api_test

import (
	"context"
	"io"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/tollgate/tollgate/pkg/api"
	"github.com/tollgate/tollgate/pkg/bigint"
	"github.com/tollgate/tollgate/pkg/jsonhttp"
	"github.com/tollgate/tollgate/pkg/jsonhttp/jsonhttptest"
	"github.com/tollgate/tollgate/pkg/logging"
	"github.com/tollgate/tollgate/pkg/paymaster"
	paymastermock "github.com/tollgate/tollgate/pkg/paymaster/mock"
	"github.com/tollgate/tollgate/pkg/uniswap"
)

var (
	operatorAddress = common.HexToAddress("0x42")
	payerAddress    = common.HexToAddress("0x11")
	tokenAddress    = common.HexToAddress("0x55")
	stableAddress   = common.HexToAddress("0xcd")
)

type testServerOptions struct {
	Paymaster paymaster.Service
}

func newTestServer(t *testing.T, o testServerOptions) (*http.Client, string) {
	t.Helper()

	s := api.New(api.Options{
		Paymaster: o.Paymaster,
		Operator:  operatorAddress,
		Logger:    logging.New(io.Discard, 0),
	})

	ts := httptest.NewServer(s)
	t.Cleanup(ts.Close)

	return ts.Client(), ts.URL
}

func TestHealth(t *testing.T) {
	client, url := newTestServer(t, testServerOptions{Paymaster: paymastermock.New()})

	jsonhttptest.Request(t, client, http.MethodGet, url+"/health", http.StatusOK,
		jsonhttptest.WithExpectedJSONResponse(struct {
			Status string `json:"status"`
		}{
			Status: "ok",
		}),
	)
}

func TestTiers(t *testing.T) {
	client, url := newTestServer(t, testServerOptions{
		Paymaster: paymastermock.New(
			paymastermock.WithTierPricesFunc(func() (map[paymaster.Tier]*big.Int, error) {
				return map[paymaster.Tier]*big.Int{
					paymaster.TierMicro:    big.NewInt(50000),
					paymaster.TierStandard: big.NewInt(250000),
					paymaster.TierBig:      big.NewInt(1000000),
					paymaster.TierArchive:  big.NewInt(5000000),
				}, nil
			}),
		),
	})

	type tier struct {
		Name  string         `json:"name"`
		Price *bigint.BigInt `json:"price"`
	}

	jsonhttptest.Request(t, client, http.MethodGet, url+"/tiers", http.StatusOK,
		jsonhttptest.WithExpectedJSONResponse(struct {
			Tiers []tier `json:"tiers"`
		}{
			Tiers: []tier{
				{Name: "micro", Price: bigint.NewBigInt(50000)},
				{Name: "standard", Price: bigint.NewBigInt(250000)},
				{Name: "big", Price: bigint.NewBigInt(1000000)},
				{Name: "archive", Price: bigint.NewBigInt(5000000)},
			},
		}),
	)
}

type quoteResponse struct {
	Tier          string         `json:"tier"`
	StablePrice   *bigint.BigInt `json:"stablePrice"`
	UtilityAmount *bigint.BigInt `json:"utilityAmount"`
	TokenAmount   *bigint.BigInt `json:"tokenAmount,omitempty"`
}

func TestQuote(t *testing.T) {
	client, url := newTestServer(t, testServerOptions{
		Paymaster: paymastermock.New(
			paymastermock.WithQuoteFunc(func(ctx context.Context, tier paymaster.Tier) (*paymaster.Quote, error) {
				if tier != paymaster.TierStandard {
					t.Fatalf("quoting tier %s, want standard", tier)
				}
				return &paymaster.Quote{
					Tier:          tier,
					StablePrice:   big.NewInt(250000),
					UtilityAmount: big.NewInt(833332),
				}, nil
			}),
		),
	})

	jsonhttptest.Request(t, client, http.MethodGet, url+"/tiers/standard/quote", http.StatusOK,
		jsonhttptest.WithExpectedJSONResponse(quoteResponse{
			Tier:          "standard",
			StablePrice:   bigint.NewBigInt(250000),
			UtilityAmount: bigint.NewBigInt(833332),
		}),
	)
}

func TestQuoteBadTier(t *testing.T) {
	client, url := newTestServer(t, testServerOptions{Paymaster: paymastermock.New()})

	jsonhttptest.Request(t, client, http.MethodGet, url+"/tiers/platinum/quote", http.StatusBadRequest,
		jsonhttptest.WithExpectedJSONResponse(jsonhttp.StatusResponse{
			Message: "invalid tier",
			Code:    http.StatusBadRequest,
		}),
	)
}

func TestQuoteViaToken(t *testing.T) {
	client, url := newTestServer(t, testServerOptions{
		Paymaster: paymastermock.New(
			paymastermock.WithQuoteViaTokenFunc(func(ctx context.Context, tier paymaster.Tier, token common.Address, route uniswap.Route) (*paymaster.TokenQuote, error) {
				if token != tokenAddress {
					t.Fatalf("quoting token %x, want %x", token, tokenAddress)
				}
				if len(route) != 2 || route[1] != stableAddress {
					t.Fatalf("unexpected route %v", route)
				}
				return &paymaster.TokenQuote{
					Quote: paymaster.Quote{
						Tier:          tier,
						StablePrice:   big.NewInt(250000),
						UtilityAmount: big.NewInt(833332),
					},
					TokenAmount: big.NewInt(424242),
				}, nil
			}),
		),
	})

	jsonhttptest.Request(t, client, http.MethodGet,
		url+"/tiers/standard/quote?route="+tokenAddress.Hex()+","+stableAddress.Hex(), http.StatusOK,
		jsonhttptest.WithExpectedJSONResponse(quoteResponse{
			Tier:          "standard",
			StablePrice:   bigint.NewBigInt(250000),
			UtilityAmount: bigint.NewBigInt(833332),
			TokenAmount:   bigint.NewBigInt(424242),
		}),
	)
}

type paymentResponse struct {
	Payer           common.Address `json:"payer"`
	Tier            string         `json:"tier"`
	StableAmount    *bigint.BigInt `json:"stableAmount"`
	UtilityAmount   *bigint.BigInt `json:"utilityAmount"`
	Path            string         `json:"path"`
	TransactionHash common.Hash    `json:"transactionHash"`
	Timestamp       int64          `json:"timestamp"`
}

func TestPayWithUtility(t *testing.T) {
	txHash := common.HexToHash("0xb1")

	client, url := newTestServer(t, testServerOptions{
		Paymaster: paymastermock.New(
			paymastermock.WithPayWithUtilityFunc(func(ctx context.Context, tier paymaster.Tier, maxUtilityAmount *big.Int) (*paymaster.PaymentProcessed, error) {
				if maxUtilityAmount.Cmp(big.NewInt(833332)) != 0 {
					t.Fatalf("max utility %d, want 833332", maxUtilityAmount)
				}
				return &paymaster.PaymentProcessed{
					Payer:         payerAddress,
					Tier:          tier,
					StableAmount:  big.NewInt(250000),
					UtilityAmount: big.NewInt(833332),
					Path:          "utility",
					TxHash:        txHash,
					Timestamp:     1700000000,
				}, nil
			}),
		),
	})

	jsonhttptest.Request(t, client, http.MethodPost, url+"/payments/utility", http.StatusCreated,
		jsonhttptest.WithJSONRequestBody(struct {
			Tier             string         `json:"tier"`
			MaxUtilityAmount *bigint.BigInt `json:"maxUtilityAmount"`
		}{
			Tier:             "standard",
			MaxUtilityAmount: bigint.NewBigInt(833332),
		}),
		jsonhttptest.WithExpectedJSONResponse(paymentResponse{
			Payer:           payerAddress,
			Tier:            "standard",
			StableAmount:    bigint.NewBigInt(250000),
			UtilityAmount:   bigint.NewBigInt(833332),
			Path:            "utility",
			TransactionHash: txHash,
			Timestamp:       1700000000,
		}),
	)
}

func TestPayWithUtilitySlippage(t *testing.T) {
	client, url := newTestServer(t, testServerOptions{
		Paymaster: paymastermock.New(
			paymastermock.WithPayWithUtilityFunc(func(ctx context.Context, tier paymaster.Tier, maxUtilityAmount *big.Int) (*paymaster.PaymentProcessed, error) {
				return nil, paymaster.ErrSlippageLimitExceeded
			}),
		),
	})

	jsonhttptest.Request(t, client, http.MethodPost, url+"/payments/utility", http.StatusConflict,
		jsonhttptest.WithJSONRequestBody(struct {
			Tier             string         `json:"tier"`
			MaxUtilityAmount *bigint.BigInt `json:"maxUtilityAmount"`
		}{
			Tier:             "standard",
			MaxUtilityAmount: bigint.NewBigInt(833331),
		}),
		jsonhttptest.WithExpectedJSONResponse(jsonhttp.StatusResponse{
			Message: paymaster.ErrSlippageLimitExceeded.Error(),
			Code:    http.StatusConflict,
		}),
	)
}

func TestPayWithToken(t *testing.T) {
	txHash := common.HexToHash("0xb3")
	route := []common.Address{tokenAddress, stableAddress}

	client, url := newTestServer(t, testServerOptions{
		Paymaster: paymastermock.New(
			paymastermock.WithPayWithTokenFunc(func(ctx context.Context, tier paymaster.Tier, token common.Address, r uniswap.Route, maxTokenIn, minUtilityAmount *big.Int) (*paymaster.PaymentProcessed, error) {
				if token != tokenAddress {
					t.Fatalf("paying with token %x, want %x", token, tokenAddress)
				}
				if maxTokenIn.Cmp(big.NewInt(1000000)) != 0 {
					t.Fatalf("max token in %d, want 1000000", maxTokenIn)
				}
				return &paymaster.PaymentProcessed{
					Payer:         payerAddress,
					Tier:          tier,
					StableAmount:  big.NewInt(250000),
					UtilityAmount: big.NewInt(833300),
					Path:          "token",
					TxHash:        txHash,
					Timestamp:     1700000000,
				}, nil
			}),
		),
	})

	jsonhttptest.Request(t, client, http.MethodPost, url+"/payments/token", http.StatusCreated,
		jsonhttptest.WithJSONRequestBody(struct {
			Tier       string           `json:"tier"`
			Token      common.Address   `json:"token"`
			Route      []common.Address `json:"route"`
			MaxTokenIn *bigint.BigInt   `json:"maxTokenIn"`
		}{
			Tier:       "standard",
			Token:      tokenAddress,
			Route:      route,
			MaxTokenIn: bigint.NewBigInt(1000000),
		}),
		jsonhttptest.WithExpectedJSONResponse(paymentResponse{
			Payer:           payerAddress,
			Tier:            "standard",
			StableAmount:    bigint.NewBigInt(250000),
			UtilityAmount:   bigint.NewBigInt(833300),
			Path:            "token",
			TransactionHash: txHash,
			Timestamp:       1700000000,
		}),
	)
}

func TestPayments(t *testing.T) {
	txHash := common.HexToHash("0xb1")

	client, url := newTestServer(t, testServerOptions{
		Paymaster: paymastermock.New(
			paymastermock.WithPaymentsFunc(func() ([]*paymaster.PaymentProcessed, error) {
				return []*paymaster.PaymentProcessed{
					{
						Payer:         payerAddress,
						Tier:          paymaster.TierMicro,
						StableAmount:  big.NewInt(50000),
						UtilityAmount: big.NewInt(166666),
						Path:          "utility",
						TxHash:        txHash,
						Timestamp:     1700000000,
					},
				}, nil
			}),
		),
	})

	jsonhttptest.Request(t, client, http.MethodGet, url+"/payments", http.StatusOK,
		jsonhttptest.WithExpectedJSONResponse(struct {
			Payments []paymentResponse `json:"payments"`
		}{
			Payments: []paymentResponse{
				{
					Payer:           payerAddress,
					Tier:            "micro",
					StableAmount:    bigint.NewBigInt(50000),
					UtilityAmount:   bigint.NewBigInt(166666),
					Path:            "utility",
					TransactionHash: txHash,
					Timestamp:       1700000000,
				},
			},
		}),
	)
}

func TestSetTierPrice(t *testing.T) {
	client, url := newTestServer(t, testServerOptions{
		Paymaster: paymastermock.New(
			paymastermock.WithSetTierPriceFunc(func(ctx context.Context, caller common.Address, tier paymaster.Tier, newPrice *big.Int) error {
				if caller != operatorAddress {
					t.Fatalf("caller %x, want operator %x", caller, operatorAddress)
				}
				if newPrice.Cmp(big.NewInt(300000)) != 0 {
					t.Fatalf("price %d, want 300000", newPrice)
				}
				return nil
			}),
		),
	})

	jsonhttptest.Request(t, client, http.MethodPut, url+"/tiers/standard/price", http.StatusOK,
		jsonhttptest.WithJSONRequestBody(struct {
			Price *bigint.BigInt `json:"price"`
		}{
			Price: bigint.NewBigInt(300000),
		}),
	)
}

func TestSetTierPriceNotOwner(t *testing.T) {
	client, url := newTestServer(t, testServerOptions{
		Paymaster: paymastermock.New(
			paymastermock.WithSetTierPriceFunc(func(ctx context.Context, caller common.Address, tier paymaster.Tier, newPrice *big.Int) error {
				return paymaster.ErrNotOwner
			}),
		),
	})

	jsonhttptest.Request(t, client, http.MethodPut, url+"/tiers/standard/price", http.StatusUnauthorized,
		jsonhttptest.WithJSONRequestBody(struct {
			Price *bigint.BigInt `json:"price"`
		}{
			Price: bigint.NewBigInt(300000),
		}),
	)
}

func TestMethodNotAllowed(t *testing.T) {
	client, url := newTestServer(t, testServerOptions{Paymaster: paymastermock.New()})

	jsonhttptest.Request(t, client, http.MethodDelete, url+"/tiers", http.StatusMethodNotAllowed)
}
