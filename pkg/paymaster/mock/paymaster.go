// Copyright 2023 The Tollgate Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mock

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/tollgate/tollgate/pkg/paymaster"
	"github.com/tollgate/tollgate/pkg/uniswap"
)

type paymasterMock struct {
	init                  func(ctx context.Context, initialPrices map[paymaster.Tier]*big.Int) error
	requiredUtilityAmount func(ctx context.Context, tier paymaster.Tier) (*big.Int, error)
	quote                 func(ctx context.Context, tier paymaster.Tier) (*paymaster.Quote, error)
	quoteViaToken         func(ctx context.Context, tier paymaster.Tier, token common.Address, route uniswap.Route) (*paymaster.TokenQuote, error)
	payWithUtility        func(ctx context.Context, tier paymaster.Tier, maxUtilityAmount *big.Int) (*paymaster.PaymentProcessed, error)
	payWithStable         func(ctx context.Context, tier paymaster.Tier, minUtilityAmount *big.Int) (*paymaster.PaymentProcessed, error)
	payWithNative         func(ctx context.Context, tier paymaster.Tier, minUtilityAmount, value *big.Int) (*paymaster.PaymentProcessed, error)
	payWithToken          func(ctx context.Context, tier paymaster.Tier, token common.Address, route uniswap.Route, maxTokenIn, minUtilityAmount *big.Int) (*paymaster.PaymentProcessed, error)
	setTierPrice          func(ctx context.Context, caller common.Address, tier paymaster.Tier, newPrice *big.Int) error
	migrateSchema         func(caller common.Address, version uint64) error
	tierPrices            func() (map[paymaster.Tier]*big.Int, error)
	payments              func() ([]*paymaster.PaymentProcessed, error)
}

func (m *paymasterMock) Init(ctx context.Context, initialPrices map[paymaster.Tier]*big.Int) error {
	if m.init != nil {
		return m.init(ctx, initialPrices)
	}
	return errors.New("not implemented")
}

func (m *paymasterMock) RequiredUtilityAmount(ctx context.Context, tier paymaster.Tier) (*big.Int, error) {
	if m.requiredUtilityAmount != nil {
		return m.requiredUtilityAmount(ctx, tier)
	}
	return nil, errors.New("not implemented")
}

func (m *paymasterMock) Quote(ctx context.Context, tier paymaster.Tier) (*paymaster.Quote, error) {
	if m.quote != nil {
		return m.quote(ctx, tier)
	}
	return nil, errors.New("not implemented")
}

func (m *paymasterMock) QuoteViaToken(ctx context.Context, tier paymaster.Tier, token common.Address, route uniswap.Route) (*paymaster.TokenQuote, error) {
	if m.quoteViaToken != nil {
		return m.quoteViaToken(ctx, tier, token, route)
	}
	return nil, errors.New("not implemented")
}

func (m *paymasterMock) PayWithUtility(ctx context.Context, tier paymaster.Tier, maxUtilityAmount *big.Int) (*paymaster.PaymentProcessed, error) {
	if m.payWithUtility != nil {
		return m.payWithUtility(ctx, tier, maxUtilityAmount)
	}
	return nil, errors.New("not implemented")
}

func (m *paymasterMock) PayWithStable(ctx context.Context, tier paymaster.Tier, minUtilityAmount *big.Int) (*paymaster.PaymentProcessed, error) {
	if m.payWithStable != nil {
		return m.payWithStable(ctx, tier, minUtilityAmount)
	}
	return nil, errors.New("not implemented")
}

func (m *paymasterMock) PayWithNative(ctx context.Context, tier paymaster.Tier, minUtilityAmount, value *big.Int) (*paymaster.PaymentProcessed, error) {
	if m.payWithNative != nil {
		return m.payWithNative(ctx, tier, minUtilityAmount, value)
	}
	return nil, errors.New("not implemented")
}

func (m *paymasterMock) PayWithToken(ctx context.Context, tier paymaster.Tier, token common.Address, route uniswap.Route, maxTokenIn, minUtilityAmount *big.Int) (*paymaster.PaymentProcessed, error) {
	if m.payWithToken != nil {
		return m.payWithToken(ctx, tier, token, route, maxTokenIn, minUtilityAmount)
	}
	return nil, errors.New("not implemented")
}

func (m *paymasterMock) SetTierPrice(ctx context.Context, caller common.Address, tier paymaster.Tier, newPrice *big.Int) error {
	if m.setTierPrice != nil {
		return m.setTierPrice(ctx, caller, tier, newPrice)
	}
	return errors.New("not implemented")
}

func (m *paymasterMock) MigrateSchema(caller common.Address, version uint64) error {
	if m.migrateSchema != nil {
		return m.migrateSchema(caller, version)
	}
	return errors.New("not implemented")
}

func (m *paymasterMock) TierPrices() (map[paymaster.Tier]*big.Int, error) {
	if m.tierPrices != nil {
		return m.tierPrices()
	}
	return nil, errors.New("not implemented")
}

func (m *paymasterMock) Payments() ([]*paymaster.PaymentProcessed, error) {
	if m.payments != nil {
		return m.payments()
	}
	return nil, errors.New("not implemented")
}

func New(opts ...Option) paymaster.Service {
	mock := new(paymasterMock)
	for _, o := range opts {
		o.apply(mock)
	}
	return mock
}

// Option is the option passed to the mock settlement service.
type Option interface {
	apply(*paymasterMock)
}

type optionFunc func(*paymasterMock)

func (f optionFunc) apply(r *paymasterMock) { f(r) }

func WithInitFunc(f func(ctx context.Context, initialPrices map[paymaster.Tier]*big.Int) error) Option {
	return optionFunc(func(s *paymasterMock) {
		s.init = f
	})
}

func WithRequiredUtilityAmountFunc(f func(ctx context.Context, tier paymaster.Tier) (*big.Int, error)) Option {
	return optionFunc(func(s *paymasterMock) {
		s.requiredUtilityAmount = f
	})
}

func WithQuoteFunc(f func(ctx context.Context, tier paymaster.Tier) (*paymaster.Quote, error)) Option {
	return optionFunc(func(s *paymasterMock) {
		s.quote = f
	})
}

func WithQuoteViaTokenFunc(f func(ctx context.Context, tier paymaster.Tier, token common.Address, route uniswap.Route) (*paymaster.TokenQuote, error)) Option {
	return optionFunc(func(s *paymasterMock) {
		s.quoteViaToken = f
	})
}

func WithPayWithUtilityFunc(f func(ctx context.Context, tier paymaster.Tier, maxUtilityAmount *big.Int) (*paymaster.PaymentProcessed, error)) Option {
	return optionFunc(func(s *paymasterMock) {
		s.payWithUtility = f
	})
}

func WithPayWithStableFunc(f func(ctx context.Context, tier paymaster.Tier, minUtilityAmount *big.Int) (*paymaster.PaymentProcessed, error)) Option {
	return optionFunc(func(s *paymasterMock) {
		s.payWithStable = f
	})
}

func WithPayWithNativeFunc(f func(ctx context.Context, tier paymaster.Tier, minUtilityAmount, value *big.Int) (*paymaster.PaymentProcessed, error)) Option {
	return optionFunc(func(s *paymasterMock) {
		s.payWithNative = f
	})
}

func WithPayWithTokenFunc(f func(ctx context.Context, tier paymaster.Tier, token common.Address, route uniswap.Route, maxTokenIn, minUtilityAmount *big.Int) (*paymaster.PaymentProcessed, error)) Option {
	return optionFunc(func(s *paymasterMock) {
		s.payWithToken = f
	})
}

func WithSetTierPriceFunc(f func(ctx context.Context, caller common.Address, tier paymaster.Tier, newPrice *big.Int) error) Option {
	return optionFunc(func(s *paymasterMock) {
		s.setTierPrice = f
	})
}

func WithMigrateSchemaFunc(f func(caller common.Address, version uint64) error) Option {
	return optionFunc(func(s *paymasterMock) {
		s.migrateSchema = f
	})
}

func WithTierPricesFunc(f func() (map[paymaster.Tier]*big.Int, error)) Option {
	return optionFunc(func(s *paymasterMock) {
		s.tierPrices = f
	})
}

func WithPaymentsFunc(f func() ([]*paymaster.PaymentProcessed, error)) Option {
	return optionFunc(func(s *paymasterMock) {
		s.payments = f
	})
}
