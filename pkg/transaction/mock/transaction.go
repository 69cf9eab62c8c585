// Copyright 2023 The Tollgate Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mock

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/tollgate/tollgate/pkg/transaction"
)

type transactionServiceMock struct {
	sender            common.Address
	send              func(ctx context.Context, request *transaction.TxRequest) (txHash common.Hash, err error)
	waitForReceipt    func(ctx context.Context, txHash common.Hash) (receipt *types.Receipt, err error)
	call              func(ctx context.Context, request *transaction.TxRequest) (result []byte, err error)
	storedTransaction func(txHash common.Hash) (*transaction.StoredTransaction, error)
}

func (m *transactionServiceMock) Send(ctx context.Context, request *transaction.TxRequest) (txHash common.Hash, err error) {
	if m.send != nil {
		return m.send(ctx, request)
	}
	return common.Hash{}, errors.New("not implemented")
}

func (m *transactionServiceMock) WaitForReceipt(ctx context.Context, txHash common.Hash) (receipt *types.Receipt, err error) {
	if m.waitForReceipt != nil {
		return m.waitForReceipt(ctx, txHash)
	}
	return &types.Receipt{Status: types.ReceiptStatusSuccessful}, nil
}

func (m *transactionServiceMock) Call(ctx context.Context, request *transaction.TxRequest) (result []byte, err error) {
	if m.call != nil {
		return m.call(ctx, request)
	}
	return nil, errors.New("not implemented")
}

func (m *transactionServiceMock) StoredTransaction(txHash common.Hash) (*transaction.StoredTransaction, error) {
	if m.storedTransaction != nil {
		return m.storedTransaction(txHash)
	}
	return nil, errors.New("not implemented")
}

func (m *transactionServiceMock) Sender() common.Address {
	return m.sender
}

func (m *transactionServiceMock) Close() error {
	return nil
}

// Option is the option passed to the mock transaction service.
type Option interface {
	apply(*transactionServiceMock)
}

type optionFunc func(*transactionServiceMock)

func (f optionFunc) apply(r *transactionServiceMock) { f(r) }

func WithSender(sender common.Address) Option {
	return optionFunc(func(s *transactionServiceMock) {
		s.sender = sender
	})
}

func WithSendFunc(f func(ctx context.Context, request *transaction.TxRequest) (txHash common.Hash, err error)) Option {
	return optionFunc(func(s *transactionServiceMock) {
		s.send = f
	})
}

func WithWaitForReceiptFunc(f func(ctx context.Context, txHash common.Hash) (receipt *types.Receipt, err error)) Option {
	return optionFunc(func(s *transactionServiceMock) {
		s.waitForReceipt = f
	})
}

func WithCallFunc(f func(ctx context.Context, request *transaction.TxRequest) (result []byte, err error)) Option {
	return optionFunc(func(s *transactionServiceMock) {
		s.call = f
	})
}

func WithStoredTransactionFunc(f func(txHash common.Hash) (*transaction.StoredTransaction, error)) Option {
	return optionFunc(func(s *transactionServiceMock) {
		s.storedTransaction = f
	})
}

func New(opts ...Option) transaction.Service {
	mock := new(transactionServiceMock)
	for _, o := range opts {
		o.apply(mock)
	}
	return mock
}

// Call describes an expected read-only contract call.
type Call struct {
	abi    *abi.ABI
	to     common.Address
	result []byte
	method string
	params []interface{}
}

func ABICall(abi *abi.ABI, to common.Address, result []byte, method string, params ...interface{}) Call {
	return Call{
		to:     to,
		abi:    abi,
		result: result,
		method: method,
		params: params,
	}
}

func WithABICallSequence(calls ...Call) Option {
	return optionFunc(func(s *transactionServiceMock) {
		s.call = func(ctx context.Context, request *transaction.TxRequest) ([]byte, error) {
			if len(calls) == 0 {
				return nil, errors.New("unexpected call")
			}

			call := calls[0]

			data, err := call.abi.Pack(call.method, call.params...)
			if err != nil {
				return nil, err
			}

			if !bytes.Equal(data, request.Data) {
				return nil, fmt.Errorf("wrong data. wanted %x, got %x", data, request.Data)
			}

			if request.To == nil {
				return nil, errors.New("call with no recipient")
			}
			if *request.To != call.to {
				return nil, fmt.Errorf("wrong recipient. wanted %x, got %x", call.to, *request.To)
			}

			calls = calls[1:]

			return call.result, nil
		}
	})
}

func WithABICall(abi *abi.ABI, to common.Address, result []byte, method string, params ...interface{}) Option {
	return WithABICallSequence(ABICall(abi, to, result, method, params...))
}

// Send describes an expected state-changing transaction.
type Send struct {
	abi    *abi.ABI
	to     common.Address
	value  *big.Int
	txHash common.Hash
	method string
	params []interface{}
}

func ABISend(abi *abi.ABI, txHash common.Hash, to common.Address, value *big.Int, method string, params ...interface{}) Send {
	return Send{
		abi:    abi,
		txHash: txHash,
		to:     to,
		value:  value,
		method: method,
		params: params,
	}
}

func WithABISendSequence(sends ...Send) Option {
	return optionFunc(func(s *transactionServiceMock) {
		s.send = func(ctx context.Context, request *transaction.TxRequest) (common.Hash, error) {
			if len(sends) == 0 {
				return common.Hash{}, errors.New("unexpected send")
			}

			send := sends[0]

			data, err := send.abi.Pack(send.method, send.params...)
			if err != nil {
				return common.Hash{}, err
			}

			if !bytes.Equal(data, request.Data) {
				return common.Hash{}, fmt.Errorf("wrong data. wanted %x, got %x", data, request.Data)
			}

			if request.To == nil {
				return common.Hash{}, errors.New("send with no recipient")
			}
			if *request.To != send.to {
				return common.Hash{}, fmt.Errorf("sending to wrong contract. wanted %x, got %x", send.to, *request.To)
			}
			if send.value != nil && request.Value.Cmp(send.value) != 0 {
				return common.Hash{}, fmt.Errorf("sending with wrong value. wanted %d, got %d", send.value, request.Value)
			}

			sends = sends[1:]

			return send.txHash, nil
		}
	})
}

func WithABISend(abi *abi.ABI, txHash common.Hash, expectedAddress common.Address, expectedValue *big.Int, method string, params ...interface{}) Option {
	return WithABISendSequence(ABISend(abi, txHash, expectedAddress, expectedValue, method, params...))
}
