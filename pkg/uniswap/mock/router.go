// Copyright 2023 The Tollgate Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mock

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/tollgate/tollgate/pkg/uniswap"
)

type routerMock struct {
	address                  common.Address
	weth                     func(ctx context.Context) (common.Address, error)
	getAmountsIn             func(ctx context.Context, amountOut *big.Int, route uniswap.Route) ([]*big.Int, error)
	swapExactTokensForTokens func(ctx context.Context, amountIn, amountOutMin *big.Int, route uniswap.Route, to common.Address, deadline *big.Int) (common.Hash, error)
	swapTokensForExactTokens func(ctx context.Context, amountOut, amountInMax *big.Int, route uniswap.Route, to common.Address, deadline *big.Int) (common.Hash, error)
	swapETHForExactTokens    func(ctx context.Context, value, amountOut *big.Int, route uniswap.Route, to common.Address, deadline *big.Int) (common.Hash, error)
}

func (m *routerMock) Address() common.Address {
	return m.address
}

func (m *routerMock) WETH(ctx context.Context) (common.Address, error) {
	if m.weth != nil {
		return m.weth(ctx)
	}
	return common.Address{}, errors.New("not implemented")
}

func (m *routerMock) GetAmountsIn(ctx context.Context, amountOut *big.Int, route uniswap.Route) ([]*big.Int, error) {
	if m.getAmountsIn != nil {
		return m.getAmountsIn(ctx, amountOut, route)
	}
	return nil, errors.New("not implemented")
}

func (m *routerMock) SwapExactTokensForTokens(ctx context.Context, amountIn, amountOutMin *big.Int, route uniswap.Route, to common.Address, deadline *big.Int) (common.Hash, error) {
	if m.swapExactTokensForTokens != nil {
		return m.swapExactTokensForTokens(ctx, amountIn, amountOutMin, route, to, deadline)
	}
	return common.Hash{}, errors.New("not implemented")
}

func (m *routerMock) SwapTokensForExactTokens(ctx context.Context, amountOut, amountInMax *big.Int, route uniswap.Route, to common.Address, deadline *big.Int) (common.Hash, error) {
	if m.swapTokensForExactTokens != nil {
		return m.swapTokensForExactTokens(ctx, amountOut, amountInMax, route, to, deadline)
	}
	return common.Hash{}, errors.New("not implemented")
}

func (m *routerMock) SwapETHForExactTokens(ctx context.Context, value, amountOut *big.Int, route uniswap.Route, to common.Address, deadline *big.Int) (common.Hash, error) {
	if m.swapETHForExactTokens != nil {
		return m.swapETHForExactTokens(ctx, value, amountOut, route, to, deadline)
	}
	return common.Hash{}, errors.New("not implemented")
}

// RouterOption is the option passed to the mock router service.
type RouterOption interface {
	apply(*routerMock)
}

type routerOptionFunc func(*routerMock)

func (f routerOptionFunc) apply(r *routerMock) { f(r) }

func WithRouterAddress(address common.Address) RouterOption {
	return routerOptionFunc(func(s *routerMock) {
		s.address = address
	})
}

func WithWETHFunc(f func(ctx context.Context) (common.Address, error)) RouterOption {
	return routerOptionFunc(func(s *routerMock) {
		s.weth = f
	})
}

func WithGetAmountsInFunc(f func(ctx context.Context, amountOut *big.Int, route uniswap.Route) ([]*big.Int, error)) RouterOption {
	return routerOptionFunc(func(s *routerMock) {
		s.getAmountsIn = f
	})
}

func WithSwapExactTokensForTokensFunc(f func(ctx context.Context, amountIn, amountOutMin *big.Int, route uniswap.Route, to common.Address, deadline *big.Int) (common.Hash, error)) RouterOption {
	return routerOptionFunc(func(s *routerMock) {
		s.swapExactTokensForTokens = f
	})
}

func WithSwapTokensForExactTokensFunc(f func(ctx context.Context, amountOut, amountInMax *big.Int, route uniswap.Route, to common.Address, deadline *big.Int) (common.Hash, error)) RouterOption {
	return routerOptionFunc(func(s *routerMock) {
		s.swapTokensForExactTokens = f
	})
}

func WithSwapETHForExactTokensFunc(f func(ctx context.Context, value, amountOut *big.Int, route uniswap.Route, to common.Address, deadline *big.Int) (common.Hash, error)) RouterOption {
	return routerOptionFunc(func(s *routerMock) {
		s.swapETHForExactTokens = f
	})
}

func NewRouter(opts ...RouterOption) uniswap.RouterService {
	mock := new(routerMock)
	for _, o := range opts {
		o.apply(mock)
	}
	return mock
}
