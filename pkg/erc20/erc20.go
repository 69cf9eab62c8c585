// Copyright 2023 The Tollgate Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package erc20 provides a thin wrapper around a standard fungible token
// contract driven through the transaction service.
package erc20

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/tollgate/tollgate/pkg/sctx"
	"github.com/tollgate/tollgate/pkg/transaction"
)

var (
	// ABI is the parsed token contract abi, exported for tests and event
	// parsing by dependent services.
	ABI = transaction.ParseABIUnchecked(erc20ABIJSON)

	errDecodeABI = errors.New("could not decode abi data")

	// ErrTransferNotFound is returned when no matching Transfer event is
	// present in a receipt.
	ErrTransferNotFound = errors.New("transfer event not found")
)

type Service interface {
	BalanceOf(ctx context.Context, address common.Address) (*big.Int, error)
	Allowance(ctx context.Context, owner, spender common.Address) (*big.Int, error)
	TotalSupply(ctx context.Context) (*big.Int, error)
	Transfer(ctx context.Context, address common.Address, value *big.Int) (common.Hash, error)
	TransferFrom(ctx context.Context, from, to common.Address, value *big.Int) (common.Hash, error)
	Approve(ctx context.Context, spender common.Address, value *big.Int) (common.Hash, error)
	Address() common.Address
}

// BurnableService is the utility token wrapper. The token grants the wallet
// the privileged burn capability.
type BurnableService interface {
	Service
	Burn(ctx context.Context, from common.Address, amount *big.Int) (common.Hash, error)
}

type erc20Service struct {
	transactionService transaction.Service
	address            common.Address
}

func New(transactionService transaction.Service, address common.Address) Service {
	return &erc20Service{
		transactionService: transactionService,
		address:            address,
	}
}

func NewBurnable(transactionService transaction.Service, address common.Address) BurnableService {
	return &erc20Service{
		transactionService: transactionService,
		address:            address,
	}
}

func (c *erc20Service) Address() common.Address {
	return c.address
}

func (c *erc20Service) BalanceOf(ctx context.Context, address common.Address) (*big.Int, error) {
	return c.callBigInt(ctx, "balanceOf", address)
}

func (c *erc20Service) Allowance(ctx context.Context, owner, spender common.Address) (*big.Int, error) {
	return c.callBigInt(ctx, "allowance", owner, spender)
}

func (c *erc20Service) TotalSupply(ctx context.Context) (*big.Int, error) {
	return c.callBigInt(ctx, "totalSupply")
}

func (c *erc20Service) callBigInt(ctx context.Context, method string, params ...interface{}) (*big.Int, error) {
	callData, err := ABI.Pack(method, params...)
	if err != nil {
		return nil, err
	}

	output, err := c.transactionService.Call(ctx, &transaction.TxRequest{
		To:   &c.address,
		Data: callData,
	})
	if err != nil {
		return nil, err
	}

	results, err := ABI.Unpack(method, output)
	if err != nil {
		return nil, err
	}

	if len(results) != 1 {
		return nil, errDecodeABI
	}

	value, ok := abi.ConvertType(results[0], new(big.Int)).(*big.Int)
	if !ok || value == nil {
		return nil, errDecodeABI
	}
	return value, nil
}

func (c *erc20Service) Transfer(ctx context.Context, address common.Address, value *big.Int) (common.Hash, error) {
	return c.send(ctx, "token transfer", "transfer", address, value)
}

func (c *erc20Service) TransferFrom(ctx context.Context, from, to common.Address, value *big.Int) (common.Hash, error) {
	return c.send(ctx, "token transfer from", "transferFrom", from, to, value)
}

func (c *erc20Service) Approve(ctx context.Context, spender common.Address, value *big.Int) (common.Hash, error) {
	return c.send(ctx, "token approval", "approve", spender, value)
}

func (c *erc20Service) Burn(ctx context.Context, from common.Address, amount *big.Int) (common.Hash, error) {
	return c.send(ctx, "token burn", "burn", from, amount)
}

func (c *erc20Service) send(ctx context.Context, description, method string, params ...interface{}) (common.Hash, error) {
	callData, err := ABI.Pack(method, params...)
	if err != nil {
		return common.Hash{}, err
	}

	request := &transaction.TxRequest{
		To:          &c.address,
		Data:        callData,
		GasPrice:    sctx.GetGasPrice(ctx),
		GasLimit:    sctx.GetGasLimit(ctx),
		Value:       big.NewInt(0),
		Description: description,
	}

	txHash, err := c.transactionService.Send(ctx, request)
	if err != nil {
		return common.Hash{}, err
	}

	return txHash, nil
}

// TransferEvent is the standard token Transfer log.
type TransferEvent struct {
	From  common.Address
	To    common.Address
	Value *big.Int
}

// FindTransferTo extracts the first Transfer event in the receipt emitted by
// the given token with the given recipient. It is used to recover the actual
// output amount of a swap from its receipt.
func FindTransferTo(receipt *types.Receipt, token, to common.Address) (*TransferEvent, error) {
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, transaction.ErrTransactionReverted
	}
	transferTopic := ABI.Events["Transfer"].ID
	for _, log := range receipt.Logs {
		if log.Address != token {
			continue
		}
		if len(log.Topics) == 0 || log.Topics[0] != transferTopic {
			continue
		}

		var event TransferEvent
		if err := transaction.ParseEvent(&ABI, "Transfer", &event, *log); err != nil {
			return nil, err
		}
		if event.To != to {
			continue
		}
		return &event, nil
	}
	return nil, ErrTransferNotFound
}

// FindTransferFrom extracts the first Transfer event in the receipt emitted
// by the given token with the given sender. It is used to recover the amount
// actually spent by an exact-output swap.
func FindTransferFrom(receipt *types.Receipt, token, from common.Address) (*TransferEvent, error) {
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, transaction.ErrTransactionReverted
	}
	transferTopic := ABI.Events["Transfer"].ID
	for _, log := range receipt.Logs {
		if log.Address != token {
			continue
		}
		if len(log.Topics) == 0 || log.Topics[0] != transferTopic {
			continue
		}

		var event TransferEvent
		if err := transaction.ParseEvent(&ABI, "Transfer", &event, *log); err != nil {
			return nil, err
		}
		if event.From != from {
			continue
		}
		return &event, nil
	}
	return nil, ErrTransferNotFound
}
