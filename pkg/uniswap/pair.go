// Copyright 2023 The Tollgate Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package uniswap wraps the external constant-product pair and exchange
// router contracts behind capability interfaces. The pair is only ever read;
// the router executes swaps on behalf of the wallet.
package uniswap

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/tollgate/tollgate/pkg/transaction"
)

var (
	// PairABI is the parsed pair contract abi, exported for tests.
	PairABI = transaction.ParseABIUnchecked(pairABIJSON)

	errDecodeABI = errors.New("could not decode abi data")
)

// Reserves is one spot read of the pair's two reserve slots, in slot order.
type Reserves struct {
	Reserve0       *big.Int
	Reserve1       *big.Int
	BlockTimestamp uint32
}

type PairService interface {
	Token0(ctx context.Context) (common.Address, error)
	Token1(ctx context.Context) (common.Address, error)
	GetReserves(ctx context.Context) (*Reserves, error)
	Address() common.Address
}

type pairService struct {
	transactionService transaction.Service
	address            common.Address
}

func NewPair(transactionService transaction.Service, address common.Address) PairService {
	return &pairService{
		transactionService: transactionService,
		address:            address,
	}
}

func (s *pairService) Address() common.Address {
	return s.address
}

func (s *pairService) Token0(ctx context.Context) (common.Address, error) {
	return s.callAddress(ctx, "token0")
}

func (s *pairService) Token1(ctx context.Context) (common.Address, error) {
	return s.callAddress(ctx, "token1")
}

func (s *pairService) callAddress(ctx context.Context, method string) (common.Address, error) {
	callData, err := PairABI.Pack(method)
	if err != nil {
		return common.Address{}, err
	}

	output, err := s.transactionService.Call(ctx, &transaction.TxRequest{
		To:   &s.address,
		Data: callData,
	})
	if err != nil {
		return common.Address{}, err
	}

	results, err := PairABI.Unpack(method, output)
	if err != nil {
		return common.Address{}, err
	}

	if len(results) != 1 {
		return common.Address{}, errDecodeABI
	}

	address, ok := abi.ConvertType(results[0], new(common.Address)).(*common.Address)
	if !ok || address == nil {
		return common.Address{}, errDecodeABI
	}
	return *address, nil
}

func (s *pairService) GetReserves(ctx context.Context) (*Reserves, error) {
	callData, err := PairABI.Pack("getReserves")
	if err != nil {
		return nil, err
	}

	output, err := s.transactionService.Call(ctx, &transaction.TxRequest{
		To:   &s.address,
		Data: callData,
	})
	if err != nil {
		return nil, err
	}

	results, err := PairABI.Unpack("getReserves", output)
	if err != nil {
		return nil, err
	}

	if len(results) != 3 {
		return nil, errDecodeABI
	}

	reserve0, ok := abi.ConvertType(results[0], new(big.Int)).(*big.Int)
	if !ok || reserve0 == nil {
		return nil, errDecodeABI
	}
	reserve1, ok := abi.ConvertType(results[1], new(big.Int)).(*big.Int)
	if !ok || reserve1 == nil {
		return nil, errDecodeABI
	}
	timestamp, ok := abi.ConvertType(results[2], new(uint32)).(*uint32)
	if !ok || timestamp == nil {
		return nil, errDecodeABI
	}

	return &Reserves{
		Reserve0:       reserve0,
		Reserve1:       reserve1,
		BlockTimestamp: *timestamp,
	}, nil
}
