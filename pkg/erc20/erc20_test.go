// Copyright 2023 The Tollgate Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package erc20_test

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/tollgate/tollgate/pkg/erc20"
	transactionmock "github.com/tollgate/tollgate/pkg/transaction/mock"
)

var (
	tokenAddress = common.HexToAddress("0xabcd")
	senderAddr   = common.HexToAddress("0x11")
	recipient    = common.HexToAddress("0x22")
)

func TestBalanceOf(t *testing.T) {
	balance := big.NewInt(10)

	result, err := erc20.ABI.Methods["balanceOf"].Outputs.Pack(balance)
	if err != nil {
		t.Fatal(err)
	}

	tokenService := erc20.New(
		transactionmock.New(
			transactionmock.WithABICall(&erc20.ABI, tokenAddress, result, "balanceOf", senderAddr),
		),
		tokenAddress,
	)

	value, err := tokenService.BalanceOf(context.Background(), senderAddr)
	if err != nil {
		t.Fatal(err)
	}
	if value.Cmp(balance) != 0 {
		t.Fatalf("got balance %d, want %d", value, balance)
	}
}

func TestAllowance(t *testing.T) {
	allowance := big.NewInt(400)

	result, err := erc20.ABI.Methods["allowance"].Outputs.Pack(allowance)
	if err != nil {
		t.Fatal(err)
	}

	tokenService := erc20.New(
		transactionmock.New(
			transactionmock.WithABICall(&erc20.ABI, tokenAddress, result, "allowance", senderAddr, recipient),
		),
		tokenAddress,
	)

	value, err := tokenService.Allowance(context.Background(), senderAddr, recipient)
	if err != nil {
		t.Fatal(err)
	}
	if value.Cmp(allowance) != 0 {
		t.Fatalf("got allowance %d, want %d", value, allowance)
	}
}

func TestTransfer(t *testing.T) {
	value := big.NewInt(20)
	txHash := common.HexToHash("0xdddd")

	tokenService := erc20.New(
		transactionmock.New(
			transactionmock.WithABISend(&erc20.ABI, txHash, tokenAddress, big.NewInt(0), "transfer", recipient, value),
		),
		tokenAddress,
	)

	returnedTxHash, err := tokenService.Transfer(context.Background(), recipient, value)
	if err != nil {
		t.Fatal(err)
	}
	if returnedTxHash != txHash {
		t.Fatalf("got hash %x, want %x", returnedTxHash, txHash)
	}
}

func TestApprove(t *testing.T) {
	value := big.NewInt(20)
	txHash := common.HexToHash("0xdddd")

	tokenService := erc20.New(
		transactionmock.New(
			transactionmock.WithABISend(&erc20.ABI, txHash, tokenAddress, big.NewInt(0), "approve", recipient, value),
		),
		tokenAddress,
	)

	returnedTxHash, err := tokenService.Approve(context.Background(), recipient, value)
	if err != nil {
		t.Fatal(err)
	}
	if returnedTxHash != txHash {
		t.Fatalf("got hash %x, want %x", returnedTxHash, txHash)
	}
}

func TestBurn(t *testing.T) {
	amount := big.NewInt(833332)
	txHash := common.HexToHash("0xdddd")

	tokenService := erc20.NewBurnable(
		transactionmock.New(
			transactionmock.WithABISend(&erc20.ABI, txHash, tokenAddress, big.NewInt(0), "burn", senderAddr, amount),
		),
		tokenAddress,
	)

	returnedTxHash, err := tokenService.Burn(context.Background(), senderAddr, amount)
	if err != nil {
		t.Fatal(err)
	}
	if returnedTxHash != txHash {
		t.Fatalf("got hash %x, want %x", returnedTxHash, txHash)
	}
}

func transferLog(token, from, to common.Address, value *big.Int) *types.Log {
	return &types.Log{
		Address: token,
		Topics: []common.Hash{
			erc20.ABI.Events["Transfer"].ID,
			common.BytesToHash(from.Bytes()),
			common.BytesToHash(to.Bytes()),
		},
		Data: common.BigToHash(value).Bytes(),
	}
}

func TestFindTransferTo(t *testing.T) {
	otherToken := common.HexToAddress("0x9999")
	receipt := &types.Receipt{
		Status: types.ReceiptStatusSuccessful,
		Logs: []*types.Log{
			transferLog(otherToken, senderAddr, recipient, big.NewInt(1)),
			transferLog(tokenAddress, senderAddr, otherToken, big.NewInt(2)),
			transferLog(tokenAddress, senderAddr, recipient, big.NewInt(3)),
		},
	}

	event, err := erc20.FindTransferTo(receipt, tokenAddress, recipient)
	if err != nil {
		t.Fatal(err)
	}
	if event.Value.Cmp(big.NewInt(3)) != 0 {
		t.Fatalf("got value %d, want 3", event.Value)
	}
	if event.From != senderAddr {
		t.Fatalf("got from %x, want %x", event.From, senderAddr)
	}
}

func TestFindTransferToNotFound(t *testing.T) {
	receipt := &types.Receipt{
		Status: types.ReceiptStatusSuccessful,
		Logs: []*types.Log{
			transferLog(tokenAddress, senderAddr, common.HexToAddress("0x33"), big.NewInt(1)),
		},
	}

	_, err := erc20.FindTransferTo(receipt, tokenAddress, recipient)
	if !errors.Is(err, erc20.ErrTransferNotFound) {
		t.Fatalf("got %v, want %v", err, erc20.ErrTransferNotFound)
	}
}

func TestFindTransferFrom(t *testing.T) {
	receipt := &types.Receipt{
		Status: types.ReceiptStatusSuccessful,
		Logs: []*types.Log{
			transferLog(tokenAddress, recipient, senderAddr, big.NewInt(1)),
			transferLog(tokenAddress, senderAddr, recipient, big.NewInt(900000)),
		},
	}

	event, err := erc20.FindTransferFrom(receipt, tokenAddress, senderAddr)
	if err != nil {
		t.Fatal(err)
	}
	if event.Value.Cmp(big.NewInt(900000)) != 0 {
		t.Fatalf("got value %d, want 900000", event.Value)
	}
}
