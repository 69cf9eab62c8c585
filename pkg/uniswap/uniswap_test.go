// Copyright 2023 The Tollgate Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package uniswap_test

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	transactionmock "github.com/tollgate/tollgate/pkg/transaction/mock"
	"github.com/tollgate/tollgate/pkg/uniswap"
)

var (
	pairAddress   = common.HexToAddress("0xef")
	routerAddress = common.HexToAddress("0x99")
	tokenA        = common.HexToAddress("0xaa")
	tokenB        = common.HexToAddress("0xbb")
	wethAddress   = common.HexToAddress("0x77")
	recipient     = common.HexToAddress("0x11")
)

func TestPairTokens(t *testing.T) {
	token0Result, err := uniswap.PairABI.Methods["token0"].Outputs.Pack(tokenA)
	if err != nil {
		t.Fatal(err)
	}
	token1Result, err := uniswap.PairABI.Methods["token1"].Outputs.Pack(tokenB)
	if err != nil {
		t.Fatal(err)
	}

	pair := uniswap.NewPair(
		transactionmock.New(
			transactionmock.WithABICallSequence(
				transactionmock.ABICall(&uniswap.PairABI, pairAddress, token0Result, "token0"),
				transactionmock.ABICall(&uniswap.PairABI, pairAddress, token1Result, "token1"),
			),
		),
		pairAddress,
	)

	token0, err := pair.Token0(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if token0 != tokenA {
		t.Fatalf("got token0 %x, want %x", token0, tokenA)
	}

	token1, err := pair.Token1(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if token1 != tokenB {
		t.Fatalf("got token1 %x, want %x", token1, tokenB)
	}
}

func TestPairGetReserves(t *testing.T) {
	reserve0 := big.NewInt(200000)
	reserve1 := big.NewInt(666666)
	timestamp := uint32(1700000000)

	result, err := uniswap.PairABI.Methods["getReserves"].Outputs.Pack(reserve0, reserve1, timestamp)
	if err != nil {
		t.Fatal(err)
	}

	pair := uniswap.NewPair(
		transactionmock.New(
			transactionmock.WithABICall(&uniswap.PairABI, pairAddress, result, "getReserves"),
		),
		pairAddress,
	)

	reserves, err := pair.GetReserves(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if reserves.Reserve0.Cmp(reserve0) != 0 {
		t.Fatalf("got reserve0 %d, want %d", reserves.Reserve0, reserve0)
	}
	if reserves.Reserve1.Cmp(reserve1) != 0 {
		t.Fatalf("got reserve1 %d, want %d", reserves.Reserve1, reserve1)
	}
	if reserves.BlockTimestamp != timestamp {
		t.Fatalf("got timestamp %d, want %d", reserves.BlockTimestamp, timestamp)
	}
}

func TestRouterWETH(t *testing.T) {
	result, err := uniswap.RouterABI.Methods["WETH"].Outputs.Pack(wethAddress)
	if err != nil {
		t.Fatal(err)
	}

	router := uniswap.NewRouter(
		transactionmock.New(
			transactionmock.WithABICall(&uniswap.RouterABI, routerAddress, result, "WETH"),
		),
		routerAddress,
	)

	weth, err := router.WETH(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if weth != wethAddress {
		t.Fatalf("got %x, want %x", weth, wethAddress)
	}
}

func TestRouterGetAmountsIn(t *testing.T) {
	amountOut := big.NewInt(250000)
	route := uniswap.Route{tokenA, tokenB}
	amounts := []*big.Int{big.NewInt(424242), big.NewInt(250000)}

	result, err := uniswap.RouterABI.Methods["getAmountsIn"].Outputs.Pack(amounts)
	if err != nil {
		t.Fatal(err)
	}

	router := uniswap.NewRouter(
		transactionmock.New(
			transactionmock.WithABICall(&uniswap.RouterABI, routerAddress, result, "getAmountsIn", amountOut, []common.Address(route)),
		),
		routerAddress,
	)

	returned, err := router.GetAmountsIn(context.Background(), amountOut, route)
	if err != nil {
		t.Fatal(err)
	}
	if len(returned) != 2 {
		t.Fatalf("got %d amounts, want 2", len(returned))
	}
	if returned[0].Cmp(amounts[0]) != 0 {
		t.Fatalf("got input amount %d, want %d", returned[0], amounts[0])
	}
}

func TestRouterSwapExactTokensForTokens(t *testing.T) {
	txHash := common.HexToHash("0xdddd")
	amountIn := big.NewInt(250000)
	amountOutMin := big.NewInt(0)
	route := uniswap.Route{tokenA, tokenB}
	deadline := big.NewInt(1700000060)

	router := uniswap.NewRouter(
		transactionmock.New(
			transactionmock.WithABISend(&uniswap.RouterABI, txHash, routerAddress, big.NewInt(0),
				"swapExactTokensForTokens", amountIn, amountOutMin, []common.Address(route), recipient, deadline),
		),
		routerAddress,
	)

	returnedTxHash, err := router.SwapExactTokensForTokens(context.Background(), amountIn, amountOutMin, route, recipient, deadline)
	if err != nil {
		t.Fatal(err)
	}
	if returnedTxHash != txHash {
		t.Fatalf("got hash %x, want %x", returnedTxHash, txHash)
	}
}

func TestRouterSwapTokensForExactTokens(t *testing.T) {
	txHash := common.HexToHash("0xdddd")
	amountOut := big.NewInt(250000)
	amountInMax := big.NewInt(1000000)
	route := uniswap.Route{tokenA, tokenB}
	deadline := big.NewInt(1700000060)

	router := uniswap.NewRouter(
		transactionmock.New(
			transactionmock.WithABISend(&uniswap.RouterABI, txHash, routerAddress, big.NewInt(0),
				"swapTokensForExactTokens", amountOut, amountInMax, []common.Address(route), recipient, deadline),
		),
		routerAddress,
	)

	returnedTxHash, err := router.SwapTokensForExactTokens(context.Background(), amountOut, amountInMax, route, recipient, deadline)
	if err != nil {
		t.Fatal(err)
	}
	if returnedTxHash != txHash {
		t.Fatalf("got hash %x, want %x", returnedTxHash, txHash)
	}
}

func TestRouterSwapETHForExactTokens(t *testing.T) {
	txHash := common.HexToHash("0xdddd")
	value := big.NewInt(1000000000000000000)
	amountOut := big.NewInt(250000)
	route := uniswap.Route{wethAddress, tokenB}
	deadline := big.NewInt(1700000060)

	router := uniswap.NewRouter(
		transactionmock.New(
			transactionmock.WithABISend(&uniswap.RouterABI, txHash, routerAddress, value,
				"swapETHForExactTokens", amountOut, []common.Address(route), recipient, deadline),
		),
		routerAddress,
	)

	returnedTxHash, err := router.SwapETHForExactTokens(context.Background(), value, amountOut, route, recipient, deadline)
	if err != nil {
		t.Fatal(err)
	}
	if returnedTxHash != txHash {
		t.Fatalf("got hash %x, want %x", returnedTxHash, txHash)
	}
}
