// Copyright 2023 The Tollgate Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package transaction_test

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/tollgate/tollgate/pkg/transaction"
)

var testEventABI = transaction.ParseABIUnchecked(`[{"anonymous":false,"inputs":[{"indexed":true,"internalType":"address","name":"from","type":"address"},{"indexed":true,"internalType":"address","name":"to","type":"address"},{"indexed":false,"internalType":"uint256","name":"value","type":"uint256"}],"name":"Transfer","type":"event"}]`)

type transferEvent struct {
	From  common.Address
	To    common.Address
	Value *big.Int
}

func newTransferLog(address common.Address, from, to common.Address, value *big.Int) *types.Log {
	return &types.Log{
		Address: address,
		Topics: []common.Hash{
			testEventABI.Events["Transfer"].ID,
			common.BytesToHash(from.Bytes()),
			common.BytesToHash(to.Bytes()),
		},
		Data: common.BigToHash(value).Bytes(),
	}
}

func TestParseEvent(t *testing.T) {
	from := common.HexToAddress("0x11")
	to := common.HexToAddress("0x22")
	value := big.NewInt(100)

	var event transferEvent
	err := transaction.ParseEvent(&testEventABI, "Transfer", &event, *newTransferLog(common.HexToAddress("0xff"), from, to, value))
	if err != nil {
		t.Fatal(err)
	}

	if event.From != from {
		t.Fatalf("got from %x, want %x", event.From, from)
	}
	if event.To != to {
		t.Fatalf("got to %x, want %x", event.To, to)
	}
	if event.Value.Cmp(value) != 0 {
		t.Fatalf("got value %d, want %d", event.Value, value)
	}
}

func TestParseEventNoTopic(t *testing.T) {
	var event transferEvent
	err := transaction.ParseEvent(&testEventABI, "Transfer", &event, types.Log{})
	if !errors.Is(err, transaction.ErrNoTopic) {
		t.Fatalf("got %v, want %v", err, transaction.ErrNoTopic)
	}
}

func TestFindSingleEvent(t *testing.T) {
	contractAddress := common.HexToAddress("0xff")
	from := common.HexToAddress("0x11")
	to := common.HexToAddress("0x22")
	value := big.NewInt(100)

	receipt := &types.Receipt{
		Status: types.ReceiptStatusSuccessful,
		Logs: []*types.Log{
			newTransferLog(common.HexToAddress("0xee"), from, to, big.NewInt(1)), // other contract
			newTransferLog(contractAddress, from, to, value),
		},
	}

	var event transferEvent
	err := transaction.FindSingleEvent(&testEventABI, receipt, contractAddress, testEventABI.Events["Transfer"], &event)
	if err != nil {
		t.Fatal(err)
	}
	if event.Value.Cmp(value) != 0 {
		t.Fatalf("got value %d, want %d", event.Value, value)
	}
}

func TestFindSingleEventNotFound(t *testing.T) {
	receipt := &types.Receipt{Status: types.ReceiptStatusSuccessful}

	var event transferEvent
	err := transaction.FindSingleEvent(&testEventABI, receipt, common.HexToAddress("0xff"), testEventABI.Events["Transfer"], &event)
	if !errors.Is(err, transaction.ErrEventNotFound) {
		t.Fatalf("got %v, want %v", err, transaction.ErrEventNotFound)
	}
}

func TestFindSingleEventReverted(t *testing.T) {
	receipt := &types.Receipt{Status: types.ReceiptStatusFailed}

	var event transferEvent
	err := transaction.FindSingleEvent(&testEventABI, receipt, common.HexToAddress("0xff"), testEventABI.Events["Transfer"], &event)
	if !errors.Is(err, transaction.ErrTransactionReverted) {
		t.Fatalf("got %v, want %v", err, transaction.ErrTransactionReverted)
	}
}
