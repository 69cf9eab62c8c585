// Copyright 2023 The Tollgate Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package crypto holds the wallet key abstraction used to sign transactions.
package crypto

import (
	"crypto/ecdsa"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

var ErrInvalidLength = errors.New("crypto: invalid signature length")

// Signer signs transactions and data with a single wallet key.
type Signer interface {
	// EthereumAddress returns the ethereum address this signer uses.
	EthereumAddress() (common.Address, error)
	// SignTx signs an ethereum transaction.
	SignTx(transaction *types.Transaction, chainID *big.Int) (*types.Transaction, error)
	// Sign signs data with the underlying private key.
	Sign(data []byte) ([]byte, error)
	// PublicKey returns the public key this signer uses.
	PublicKey() (*ecdsa.PublicKey, error)
}

type defaultSigner struct {
	key *ecdsa.PrivateKey
}

// NewDefaultSigner constructs a Signer backed by the supplied private key.
func NewDefaultSigner(key *ecdsa.PrivateKey) Signer {
	return &defaultSigner{
		key: key,
	}
}

func (d *defaultSigner) EthereumAddress() (common.Address, error) {
	return ethcrypto.PubkeyToAddress(d.key.PublicKey), nil
}

func (d *defaultSigner) SignTx(transaction *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	return types.SignTx(transaction, types.NewEIP155Signer(chainID), d.key)
}

func (d *defaultSigner) Sign(data []byte) ([]byte, error) {
	hash := ethcrypto.Keccak256(data)
	return ethcrypto.Sign(hash, d.key)
}

func (d *defaultSigner) PublicKey() (*ecdsa.PublicKey, error) {
	return &d.key.PublicKey, nil
}

// GenerateSecp256k1Key generates a new wallet key.
func GenerateSecp256k1Key() (*ecdsa.PrivateKey, error) {
	return ethcrypto.GenerateKey()
}

// DecodeSecp256k1PrivateKey decodes a raw 32 byte private key.
func DecodeSecp256k1PrivateKey(data []byte) (*ecdsa.PrivateKey, error) {
	if len(data) != 32 {
		return nil, errors.New("crypto: secp256k1 private key must be 32 bytes")
	}
	return ethcrypto.ToECDSA(data)
}
