// Copyright 2023 The Tollgate Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mock

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/tollgate/tollgate/pkg/uniswap"
)

type pairMock struct {
	address     common.Address
	token0      func(ctx context.Context) (common.Address, error)
	token1      func(ctx context.Context) (common.Address, error)
	getReserves func(ctx context.Context) (*uniswap.Reserves, error)
}

func (m *pairMock) Address() common.Address {
	return m.address
}

func (m *pairMock) Token0(ctx context.Context) (common.Address, error) {
	if m.token0 != nil {
		return m.token0(ctx)
	}
	return common.Address{}, errors.New("not implemented")
}

func (m *pairMock) Token1(ctx context.Context) (common.Address, error) {
	if m.token1 != nil {
		return m.token1(ctx)
	}
	return common.Address{}, errors.New("not implemented")
}

func (m *pairMock) GetReserves(ctx context.Context) (*uniswap.Reserves, error) {
	if m.getReserves != nil {
		return m.getReserves(ctx)
	}
	return nil, errors.New("not implemented")
}

// PairOption is the option passed to the mock pair service.
type PairOption interface {
	apply(*pairMock)
}

type pairOptionFunc func(*pairMock)

func (f pairOptionFunc) apply(r *pairMock) { f(r) }

func WithPairAddress(address common.Address) PairOption {
	return pairOptionFunc(func(s *pairMock) {
		s.address = address
	})
}

func WithToken0Func(f func(ctx context.Context) (common.Address, error)) PairOption {
	return pairOptionFunc(func(s *pairMock) {
		s.token0 = f
	})
}

func WithToken1Func(f func(ctx context.Context) (common.Address, error)) PairOption {
	return pairOptionFunc(func(s *pairMock) {
		s.token1 = f
	})
}

func WithGetReservesFunc(f func(ctx context.Context) (*uniswap.Reserves, error)) PairOption {
	return pairOptionFunc(func(s *pairMock) {
		s.getReserves = f
	})
}

// WithTokens is a convenience option fixing both token slot identities.
func WithTokens(token0, token1 common.Address) PairOption {
	return pairOptionFunc(func(s *pairMock) {
		s.token0 = func(ctx context.Context) (common.Address, error) {
			return token0, nil
		}
		s.token1 = func(ctx context.Context) (common.Address, error) {
			return token1, nil
		}
	})
}

// WithReserves is a convenience option fixing the reserve snapshot.
func WithReserves(reserves *uniswap.Reserves) PairOption {
	return pairOptionFunc(func(s *pairMock) {
		s.getReserves = func(ctx context.Context) (*uniswap.Reserves, error) {
			return reserves, nil
		}
	})
}

func NewPair(opts ...PairOption) uniswap.PairService {
	mock := new(pairMock)
	for _, o := range opts {
		o.apply(mock)
	}
	return mock
}
