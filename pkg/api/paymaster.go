// Copyright 2023 The Tollgate Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package api

import (
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/mux"
	"github.com/tollgate/tollgate/pkg/bigint"
	"github.com/tollgate/tollgate/pkg/jsonhttp"
	"github.com/tollgate/tollgate/pkg/paymaster"
	"github.com/tollgate/tollgate/pkg/uniswap"
)

const (
	errBadTier       = "invalid tier"
	errBadRoute      = "invalid route"
	errBadRequest    = "could not parse request"
	errCannotQuote   = "could not quote"
	errCannotSettle  = "could not settle payment"
	errCannotListPay = "could not list payments"
)

type tierResponse struct {
	Name  string         `json:"name"`
	Price *bigint.BigInt `json:"price"`
}

type tiersResponse struct {
	Tiers []tierResponse `json:"tiers"`
}

type quoteResponse struct {
	Tier          string         `json:"tier"`
	StablePrice   *bigint.BigInt `json:"stablePrice"`
	UtilityAmount *bigint.BigInt `json:"utilityAmount"`
	TokenAmount   *bigint.BigInt `json:"tokenAmount,omitempty"`
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

type paymentsResponse struct {
	Payments []paymentResponse `json:"payments"`
}

func toPaymentResponse(p *paymaster.PaymentProcessed) paymentResponse {
	return paymentResponse{
		Payer:           p.Payer,
		Tier:            p.Tier.String(),
		StableAmount:    bigint.Wrap(p.StableAmount),
		UtilityAmount:   bigint.Wrap(p.UtilityAmount),
		Path:            p.Path,
		TransactionHash: p.TxHash,
		Timestamp:       p.Timestamp,
	}
}

func (s *server) tiersHandler(w http.ResponseWriter, r *http.Request) {
	prices, err := s.Paymaster.TierPrices()
	if err != nil {
		s.Logger.Debugf("tiers: get prices: %v", err)
		s.Logger.Error("tiers: cannot get prices")
		jsonhttp.InternalServerError(w, errCannotQuote)
		return
	}

	tiers := make([]tierResponse, 0, len(paymaster.Tiers))
	for _, tier := range paymaster.Tiers {
		tiers = append(tiers, tierResponse{
			Name:  tier.String(),
			Price: bigint.Wrap(prices[tier]),
		})
	}

	jsonhttp.OK(w, tiersResponse{Tiers: tiers})
}

func (s *server) quoteHandler(w http.ResponseWriter, r *http.Request) {
	tier, err := paymaster.ParseTier(mux.Vars(r)["tier"])
	if err != nil {
		jsonhttp.BadRequest(w, errBadTier)
		return
	}

	if routeParam := r.URL.Query().Get("route"); routeParam != "" {
		route, ok := parseRoute(routeParam)
		if !ok {
			jsonhttp.BadRequest(w, errBadRoute)
			return
		}

		quote, err := s.Paymaster.QuoteViaToken(r.Context(), tier, route[0], route)
		if err != nil {
			s.respondPaymasterError(w, "quote", err)
			return
		}
		jsonhttp.OK(w, quoteResponse{
			Tier:          tier.String(),
			StablePrice:   bigint.Wrap(quote.StablePrice),
			UtilityAmount: bigint.Wrap(quote.UtilityAmount),
			TokenAmount:   bigint.Wrap(quote.TokenAmount),
		})
		return
	}

	quote, err := s.Paymaster.Quote(r.Context(), tier)
	if err != nil {
		s.respondPaymasterError(w, "quote", err)
		return
	}

	jsonhttp.OK(w, quoteResponse{
		Tier:          tier.String(),
		StablePrice:   bigint.Wrap(quote.StablePrice),
		UtilityAmount: bigint.Wrap(quote.UtilityAmount),
	})
}

type payWithUtilityRequest struct {
	Tier             string         `json:"tier"`
	MaxUtilityAmount *bigint.BigInt `json:"maxUtilityAmount"`
}

func (s *server) payWithUtilityHandler(w http.ResponseWriter, r *http.Request) {
	var req payWithUtilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if jsonhttp.HandleBodyReadError(err, w) {
			return
		}
		jsonhttp.BadRequest(w, errBadRequest)
		return
	}

	tier, err := paymaster.ParseTier(req.Tier)
	if err != nil {
		jsonhttp.BadRequest(w, errBadTier)
		return
	}

	payment, err := s.Paymaster.PayWithUtility(r.Context(), tier, unwrap(req.MaxUtilityAmount))
	if err != nil {
		s.respondPaymasterError(w, "pay with utility", err)
		return
	}

	jsonhttp.Created(w, toPaymentResponse(payment))
}

type payWithStableRequest struct {
	Tier             string         `json:"tier"`
	MinUtilityAmount *bigint.BigInt `json:"minUtilityAmount"`
}

func (s *server) payWithStableHandler(w http.ResponseWriter, r *http.Request) {
	var req payWithStableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if jsonhttp.HandleBodyReadError(err, w) {
			return
		}
		jsonhttp.BadRequest(w, errBadRequest)
		return
	}

	tier, err := paymaster.ParseTier(req.Tier)
	if err != nil {
		jsonhttp.BadRequest(w, errBadTier)
		return
	}

	payment, err := s.Paymaster.PayWithStable(r.Context(), tier, unwrap(req.MinUtilityAmount))
	if err != nil {
		s.respondPaymasterError(w, "pay with stable", err)
		return
	}

	jsonhttp.Created(w, toPaymentResponse(payment))
}

type payWithNativeRequest struct {
	Tier             string         `json:"tier"`
	MinUtilityAmount *bigint.BigInt `json:"minUtilityAmount"`
	Value            *bigint.BigInt `json:"value"`
}

func (s *server) payWithNativeHandler(w http.ResponseWriter, r *http.Request) {
	var req payWithNativeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if jsonhttp.HandleBodyReadError(err, w) {
			return
		}
		jsonhttp.BadRequest(w, errBadRequest)
		return
	}

	tier, err := paymaster.ParseTier(req.Tier)
	if err != nil {
		jsonhttp.BadRequest(w, errBadTier)
		return
	}

	payment, err := s.Paymaster.PayWithNative(r.Context(), tier, unwrap(req.MinUtilityAmount), unwrap(req.Value))
	if err != nil {
		s.respondPaymasterError(w, "pay with native", err)
		return
	}

	jsonhttp.Created(w, toPaymentResponse(payment))
}

type payWithTokenRequest struct {
	Tier             string           `json:"tier"`
	Token            common.Address   `json:"token"`
	Route            []common.Address `json:"route"`
	MaxTokenIn       *bigint.BigInt   `json:"maxTokenIn"`
	MinUtilityAmount *bigint.BigInt   `json:"minUtilityAmount"`
}

func (s *server) payWithTokenHandler(w http.ResponseWriter, r *http.Request) {
	var req payWithTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if jsonhttp.HandleBodyReadError(err, w) {
			return
		}
		jsonhttp.BadRequest(w, errBadRequest)
		return
	}

	tier, err := paymaster.ParseTier(req.Tier)
	if err != nil {
		jsonhttp.BadRequest(w, errBadTier)
		return
	}

	payment, err := s.Paymaster.PayWithToken(r.Context(), tier, req.Token, uniswap.Route(req.Route), unwrap(req.MaxTokenIn), unwrap(req.MinUtilityAmount))
	if err != nil {
		s.respondPaymasterError(w, "pay with token", err)
		return
	}

	jsonhttp.Created(w, toPaymentResponse(payment))
}

func (s *server) paymentsHandler(w http.ResponseWriter, r *http.Request) {
	payments, err := s.Paymaster.Payments()
	if err != nil {
		s.Logger.Debugf("payments: list: %v", err)
		s.Logger.Error("payments: cannot list")
		jsonhttp.InternalServerError(w, errCannotListPay)
		return
	}

	response := paymentsResponse{Payments: make([]paymentResponse, 0, len(payments))}
	for _, p := range payments {
		response.Payments = append(response.Payments, toPaymentResponse(p))
	}

	jsonhttp.OK(w, response)
}

type setTierPriceRequest struct {
	Price *bigint.BigInt `json:"price"`
}

func (s *server) setTierPriceHandler(w http.ResponseWriter, r *http.Request) {
	tier, err := paymaster.ParseTier(mux.Vars(r)["tier"])
	if err != nil {
		jsonhttp.BadRequest(w, errBadTier)
		return
	}

	var req setTierPriceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if jsonhttp.HandleBodyReadError(err, w) {
			return
		}
		jsonhttp.BadRequest(w, errBadRequest)
		return
	}

	if err := s.Paymaster.SetTierPrice(r.Context(), s.Operator, tier, unwrap(req.Price)); err != nil {
		s.respondPaymasterError(w, "set tier price", err)
		return
	}

	jsonhttp.OK(w, nil)
}

// respondPaymasterError maps engine errors to HTTP responses.
func (s *server) respondPaymasterError(w http.ResponseWriter, operation string, err error) {
	s.Logger.Debugf("%s: %v", operation, err)

	switch {
	case errors.Is(err, paymaster.ErrUnknownTier),
		errors.Is(err, paymaster.ErrAmountIsZero),
		errors.Is(err, paymaster.ErrInvalidRoute),
		errors.Is(err, paymaster.ErrPathMismatch),
		errors.Is(err, paymaster.ErrPathMustEndInStable):
		jsonhttp.BadRequest(w, err)
	case errors.Is(err, paymaster.ErrNotOwner):
		jsonhttp.Unauthorized(w, err)
	case errors.Is(err, paymaster.ErrSlippageLimitExceeded),
		errors.Is(err, paymaster.ErrMinOutputTooHigh):
		jsonhttp.Conflict(w, err)
	case errors.Is(err, paymaster.ErrReentrantCall):
		jsonhttp.TooManyRequests(w, err)
	case errors.Is(err, paymaster.ErrEmptyPool),
		errors.Is(err, paymaster.ErrTierPriceZero),
		errors.Is(err, paymaster.ErrPairMismatch):
		jsonhttp.ServiceUnavailable(w, err)
	default:
		s.Logger.Errorf("%s failed", operation)
		jsonhttp.InternalServerError(w, errCannotSettle)
	}
}

func unwrap(i *bigint.BigInt) *big.Int {
	if i == nil {
		return nil
	}
	return &i.Int
}

func parseRoute(routeParam string) (uniswap.Route, bool) {
	parts := strings.Split(routeParam, ",")
	route := make(uniswap.Route, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if !common.IsHexAddress(part) {
			return nil, false
		}
		route = append(route, common.HexToAddress(part))
	}
	if len(route) < 2 {
		return nil, false
	}
	return route, true
}
