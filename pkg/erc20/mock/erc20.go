// Copyright 2023 The Tollgate Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mock

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/tollgate/tollgate/pkg/erc20"
)

type erc20Mock struct {
	address      common.Address
	balanceOf    func(ctx context.Context, address common.Address) (*big.Int, error)
	allowance    func(ctx context.Context, owner, spender common.Address) (*big.Int, error)
	totalSupply  func(ctx context.Context) (*big.Int, error)
	transfer     func(ctx context.Context, address common.Address, value *big.Int) (common.Hash, error)
	transferFrom func(ctx context.Context, from, to common.Address, value *big.Int) (common.Hash, error)
	approve      func(ctx context.Context, spender common.Address, value *big.Int) (common.Hash, error)
	burn         func(ctx context.Context, from common.Address, amount *big.Int) (common.Hash, error)
}

func (m *erc20Mock) Address() common.Address {
	return m.address
}

func (m *erc20Mock) BalanceOf(ctx context.Context, address common.Address) (*big.Int, error) {
	if m.balanceOf != nil {
		return m.balanceOf(ctx, address)
	}
	return nil, errors.New("not implemented")
}

func (m *erc20Mock) Allowance(ctx context.Context, owner, spender common.Address) (*big.Int, error) {
	if m.allowance != nil {
		return m.allowance(ctx, owner, spender)
	}
	return big.NewInt(0), nil
}

func (m *erc20Mock) TotalSupply(ctx context.Context) (*big.Int, error) {
	if m.totalSupply != nil {
		return m.totalSupply(ctx)
	}
	return nil, errors.New("not implemented")
}

func (m *erc20Mock) Transfer(ctx context.Context, address common.Address, value *big.Int) (common.Hash, error) {
	if m.transfer != nil {
		return m.transfer(ctx, address, value)
	}
	return common.Hash{}, errors.New("not implemented")
}

func (m *erc20Mock) TransferFrom(ctx context.Context, from, to common.Address, value *big.Int) (common.Hash, error) {
	if m.transferFrom != nil {
		return m.transferFrom(ctx, from, to, value)
	}
	return common.Hash{}, errors.New("not implemented")
}

func (m *erc20Mock) Approve(ctx context.Context, spender common.Address, value *big.Int) (common.Hash, error) {
	if m.approve != nil {
		return m.approve(ctx, spender, value)
	}
	return common.Hash{}, errors.New("not implemented")
}

func (m *erc20Mock) Burn(ctx context.Context, from common.Address, amount *big.Int) (common.Hash, error) {
	if m.burn != nil {
		return m.burn(ctx, from, amount)
	}
	return common.Hash{}, errors.New("not implemented")
}

// Option is the option passed to the mock erc20 service.
type Option interface {
	apply(*erc20Mock)
}

type optionFunc func(*erc20Mock)

func (f optionFunc) apply(r *erc20Mock) { f(r) }

func WithAddress(address common.Address) Option {
	return optionFunc(func(s *erc20Mock) {
		s.address = address
	})
}

func WithBalanceOfFunc(f func(ctx context.Context, address common.Address) (*big.Int, error)) Option {
	return optionFunc(func(s *erc20Mock) {
		s.balanceOf = f
	})
}

func WithAllowanceFunc(f func(ctx context.Context, owner, spender common.Address) (*big.Int, error)) Option {
	return optionFunc(func(s *erc20Mock) {
		s.allowance = f
	})
}

func WithTotalSupplyFunc(f func(ctx context.Context) (*big.Int, error)) Option {
	return optionFunc(func(s *erc20Mock) {
		s.totalSupply = f
	})
}

func WithTransferFunc(f func(ctx context.Context, address common.Address, value *big.Int) (common.Hash, error)) Option {
	return optionFunc(func(s *erc20Mock) {
		s.transfer = f
	})
}

func WithTransferFromFunc(f func(ctx context.Context, from, to common.Address, value *big.Int) (common.Hash, error)) Option {
	return optionFunc(func(s *erc20Mock) {
		s.transferFrom = f
	})
}

func WithApproveFunc(f func(ctx context.Context, spender common.Address, value *big.Int) (common.Hash, error)) Option {
	return optionFunc(func(s *erc20Mock) {
		s.approve = f
	})
}

func WithBurnFunc(f func(ctx context.Context, from common.Address, amount *big.Int) (common.Hash, error)) Option {
	return optionFunc(func(s *erc20Mock) {
		s.burn = f
	})
}

// New creates a mock implementing both the plain and the burnable token
// service.
func New(opts ...Option) erc20.BurnableService {
	mock := new(erc20Mock)
	for _, o := range opts {
		o.apply(mock)
	}
	return mock
}
