// Copyright 2023 The Tollgate Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mock

import (
	"crypto/ecdsa"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/tollgate/tollgate/pkg/crypto"
)

type signerMock struct {
	signTx          func(transaction *types.Transaction, chainID *big.Int) (*types.Transaction, error)
	sign            func(data []byte) ([]byte, error)
	ethereumAddress func() (common.Address, error)
	publicKey       func() (*ecdsa.PublicKey, error)
}

func (m *signerMock) EthereumAddress() (common.Address, error) {
	if m.ethereumAddress != nil {
		return m.ethereumAddress()
	}
	return common.Address{}, nil
}

func (m *signerMock) Sign(data []byte) ([]byte, error) {
	if m.sign != nil {
		return m.sign(data)
	}
	return nil, errors.New("not implemented")
}

func (m *signerMock) SignTx(transaction *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	if m.signTx != nil {
		return m.signTx(transaction, chainID)
	}
	return nil, errors.New("not implemented")
}

func (m *signerMock) PublicKey() (*ecdsa.PublicKey, error) {
	if m.publicKey != nil {
		return m.publicKey()
	}
	return nil, errors.New("not implemented")
}

func New(opts ...Option) crypto.Signer {
	mock := new(signerMock)
	for _, o := range opts {
		o.apply(mock)
	}
	return mock
}

// Option is the option passed to the mock signer.
type Option interface {
	apply(*signerMock)
}

type optionFunc func(*signerMock)

func (f optionFunc) apply(r *signerMock) { f(r) }

func WithSignFunc(f func(data []byte) ([]byte, error)) Option {
	return optionFunc(func(s *signerMock) {
		s.sign = f
	})
}

func WithSignTxFunc(f func(transaction *types.Transaction, chainID *big.Int) (*types.Transaction, error)) Option {
	return optionFunc(func(s *signerMock) {
		s.signTx = f
	})
}

func WithEthereumAddressFunc(f func() (common.Address, error)) Option {
	return optionFunc(func(s *signerMock) {
		s.ethereumAddress = f
	})
}

func WithPublicKeyFunc(f func() (*ecdsa.PublicKey, error)) Option {
	return optionFunc(func(s *signerMock) {
		s.publicKey = f
	})
}
