// Copyright 2023 The Tollgate Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package uniswap

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/tollgate/tollgate/pkg/sctx"
	"github.com/tollgate/tollgate/pkg/transaction"
)

// RouterABI is the parsed router contract abi, exported for tests.
var RouterABI = transaction.ParseABIUnchecked(routerABIJSON)

// Route is an ordered sequence of token addresses describing an exchange
// path. The first element is the input asset, the last the output asset.
type Route []common.Address

type RouterService interface {
	// WETH returns the native asset wrapper token the router settles native
	// value through.
	WETH(ctx context.Context) (common.Address, error)
	// GetAmountsIn quotes the input amounts required along the route for the
	// given exact output amount.
	GetAmountsIn(ctx context.Context, amountOut *big.Int, route Route) ([]*big.Int, error)
	// SwapExactTokensForTokens swaps an exact input amount along the route.
	SwapExactTokensForTokens(ctx context.Context, amountIn, amountOutMin *big.Int, route Route, to common.Address, deadline *big.Int) (common.Hash, error)
	// SwapTokensForExactTokens swaps up to amountInMax of the route's input
	// token for an exact output amount. Unspent input stays with the sender.
	SwapTokensForExactTokens(ctx context.Context, amountOut, amountInMax *big.Int, route Route, to common.Address, deadline *big.Int) (common.Hash, error)
	// SwapETHForExactTokens swaps the attached native value for an exact
	// output amount. The router refunds excess native value to the sender.
	SwapETHForExactTokens(ctx context.Context, value, amountOut *big.Int, route Route, to common.Address, deadline *big.Int) (common.Hash, error)
	Address() common.Address
}

type routerService struct {
	transactionService transaction.Service
	address            common.Address
}

func NewRouter(transactionService transaction.Service, address common.Address) RouterService {
	return &routerService{
		transactionService: transactionService,
		address:            address,
	}
}

func (s *routerService) Address() common.Address {
	return s.address
}

func (s *routerService) WETH(ctx context.Context) (common.Address, error) {
	callData, err := RouterABI.Pack("WETH")
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

	results, err := RouterABI.Unpack("WETH", output)
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

func (s *routerService) GetAmountsIn(ctx context.Context, amountOut *big.Int, route Route) ([]*big.Int, error) {
	callData, err := RouterABI.Pack("getAmountsIn", amountOut, []common.Address(route))
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

	results, err := RouterABI.Unpack("getAmountsIn", output)
	if err != nil {
		return nil, err
	}

	if len(results) != 1 {
		return nil, errDecodeABI
	}

	amounts, ok := abi.ConvertType(results[0], new([]*big.Int)).(*[]*big.Int)
	if !ok || amounts == nil {
		return nil, errDecodeABI
	}
	return *amounts, nil
}

func (s *routerService) SwapExactTokensForTokens(ctx context.Context, amountIn, amountOutMin *big.Int, route Route, to common.Address, deadline *big.Int) (common.Hash, error) {
	return s.send(ctx, big.NewInt(0), "swap exact tokens", "swapExactTokensForTokens", amountIn, amountOutMin, []common.Address(route), to, deadline)
}

func (s *routerService) SwapTokensForExactTokens(ctx context.Context, amountOut, amountInMax *big.Int, route Route, to common.Address, deadline *big.Int) (common.Hash, error) {
	return s.send(ctx, big.NewInt(0), "swap tokens for exact output", "swapTokensForExactTokens", amountOut, amountInMax, []common.Address(route), to, deadline)
}

func (s *routerService) SwapETHForExactTokens(ctx context.Context, value, amountOut *big.Int, route Route, to common.Address, deadline *big.Int) (common.Hash, error) {
	return s.send(ctx, value, "swap native for exact output", "swapETHForExactTokens", amountOut, []common.Address(route), to, deadline)
}

func (s *routerService) send(ctx context.Context, value *big.Int, description, method string, params ...interface{}) (common.Hash, error) {
	callData, err := RouterABI.Pack(method, params...)
	if err != nil {
		return common.Hash{}, err
	}

	request := &transaction.TxRequest{
		To:          &s.address,
		Data:        callData,
		GasPrice:    sctx.GetGasPrice(ctx),
		GasLimit:    sctx.GetGasLimit(ctx),
		Value:       value,
		Description: description,
	}

	txHash, err := s.transactionService.Send(ctx, request)
	if err != nil {
		return common.Hash{}, err
	}

	return txHash, nil
}
