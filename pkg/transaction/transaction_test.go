// Copyright 2023 The Tollgate Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package transaction_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	cryptomock "github.com/tollgate/tollgate/pkg/crypto/mock"
	"github.com/tollgate/tollgate/pkg/logging"
	storemock "github.com/tollgate/tollgate/pkg/statestore/mock"
	"github.com/tollgate/tollgate/pkg/transaction"
	"github.com/tollgate/tollgate/pkg/transaction/backendmock"
)

func TestTransactionSend(t *testing.T) {
	logger := logging.New(io.Discard, 0)
	sender := common.HexToAddress("0xddff")
	recipient := common.HexToAddress("0xabcd")
	txData := common.Hex2Bytes("0xabcdee")
	value := big.NewInt(1)
	suggestedGasPrice := big.NewInt(2)
	estimatedGasLimit := uint64(3)
	nonce := uint64(2)
	chainID := big.NewInt(5)

	signedTx := types.NewTransaction(nonce, recipient, value, estimatedGasLimit, suggestedGasPrice, txData)

	request := &transaction.TxRequest{
		To:    &recipient,
		Data:  txData,
		Value: value,
	}

	store := storemock.NewStateStore()

	transactionService, err := transaction.NewService(logger,
		backendmock.New(
			backendmock.WithSendTransactionFunc(func(ctx context.Context, tx *types.Transaction) error {
				if tx != signedTx {
					t.Fatal("not sending signed transaction")
				}
				return nil
			}),
			backendmock.WithEstimateGasFunc(func(ctx context.Context, call ethereum.CallMsg) (uint64, error) {
				if !bytes.Equal(call.Data, txData) {
					t.Fatal("estimating with wrong data")
				}
				if call.To == nil || *call.To != recipient {
					t.Fatal("estimating with wrong recipient")
				}
				return estimatedGasLimit, nil
			}),
			backendmock.WithSuggestGasPriceFunc(func(ctx context.Context) (*big.Int, error) {
				return suggestedGasPrice, nil
			}),
			backendmock.WithPendingNonceAtFunc(func(ctx context.Context, account common.Address) (uint64, error) {
				return nonce, nil
			}),
		),
		cryptomock.New(
			cryptomock.WithEthereumAddressFunc(func() (common.Address, error) {
				return sender, nil
			}),
			cryptomock.WithSignTxFunc(func(tx *types.Transaction, txChainID *big.Int) (*types.Transaction, error) {
				if tx.Nonce() != nonce {
					t.Fatalf("signing with nonce %d, want %d", tx.Nonce(), nonce)
				}
				// 20% on top of the estimate
				if tx.Gas() != estimatedGasLimit+estimatedGasLimit/5 {
					t.Fatalf("signing with gas limit %d, want %d", tx.Gas(), estimatedGasLimit+estimatedGasLimit/5)
				}
				if tx.GasPrice().Cmp(suggestedGasPrice) != 0 {
					t.Fatalf("signing with gas price %d, want %d", tx.GasPrice(), suggestedGasPrice)
				}
				if txChainID.Cmp(chainID) != 0 {
					t.Fatalf("signing with chain id %d, want %d", txChainID, chainID)
				}
				return signedTx, nil
			}),
		),
		store,
		chainID,
	)
	if err != nil {
		t.Fatal(err)
	}

	txHash, err := transactionService.Send(context.Background(), request)
	if err != nil {
		t.Fatal(err)
	}
	if txHash != signedTx.Hash() {
		t.Fatalf("returned wrong transaction hash %x, want %x", txHash, signedTx.Hash())
	}

	storedTransaction, err := transactionService.StoredTransaction(txHash)
	if err != nil {
		t.Fatal(err)
	}
	if storedTransaction.To == nil || *storedTransaction.To != recipient {
		t.Fatal("stored transaction with wrong recipient")
	}
	if !bytes.Equal(storedTransaction.Data, txData) {
		t.Fatal("stored transaction with wrong data")
	}
	if storedTransaction.Nonce != nonce {
		t.Fatalf("stored transaction with nonce %d, want %d", storedTransaction.Nonce, nonce)
	}
}

func TestTransactionSendUsesStoredNonce(t *testing.T) {
	logger := logging.New(io.Discard, 0)
	sender := common.HexToAddress("0xddff")
	recipient := common.HexToAddress("0xabcd")
	storedNonce := uint64(5)
	onchainNonce := uint64(3)
	chainID := big.NewInt(5)

	store := storemock.NewStateStore()
	if err := store.Put("transaction_nonce_"+common.Bytes2Hex(sender.Bytes()), storedNonce); err != nil {
		t.Fatal(err)
	}

	transactionService, err := transaction.NewService(logger,
		backendmock.New(
			backendmock.WithSendTransactionFunc(func(ctx context.Context, tx *types.Transaction) error {
				return nil
			}),
			backendmock.WithSuggestGasPriceFunc(func(ctx context.Context) (*big.Int, error) {
				return big.NewInt(1), nil
			}),
			backendmock.WithEstimateGasFunc(func(ctx context.Context, call ethereum.CallMsg) (uint64, error) {
				return 100, nil
			}),
			backendmock.WithPendingNonceAtFunc(func(ctx context.Context, account common.Address) (uint64, error) {
				return onchainNonce, nil
			}),
		),
		cryptomock.New(
			cryptomock.WithEthereumAddressFunc(func() (common.Address, error) {
				return sender, nil
			}),
			cryptomock.WithSignTxFunc(func(tx *types.Transaction, txChainID *big.Int) (*types.Transaction, error) {
				if tx.Nonce() != storedNonce {
					t.Fatalf("signing with nonce %d, want stored nonce %d", tx.Nonce(), storedNonce)
				}
				return types.NewTransaction(tx.Nonce(), recipient, tx.Value(), tx.Gas(), tx.GasPrice(), tx.Data()), nil
			}),
		),
		store,
		chainID,
	)
	if err != nil {
		t.Fatal(err)
	}

	_, err = transactionService.Send(context.Background(), &transaction.TxRequest{
		To:    &recipient,
		Value: big.NewInt(1),
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestTransactionCall(t *testing.T) {
	logger := logging.New(io.Discard, 0)
	sender := common.HexToAddress("0xddff")
	recipient := common.HexToAddress("0xabcd")
	txData := common.Hex2Bytes("0xabcdee")
	result := common.Hex2Bytes("0xabcdef")

	transactionService, err := transaction.NewService(logger,
		backendmock.New(
			backendmock.WithCallContractFunc(func(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
				if !bytes.Equal(call.Data, txData) {
					t.Fatal("calling with wrong data")
				}
				if call.To == nil || *call.To != recipient {
					t.Fatal("calling wrong contract")
				}
				return result, nil
			}),
		),
		cryptomock.New(
			cryptomock.WithEthereumAddressFunc(func() (common.Address, error) {
				return sender, nil
			}),
		),
		storemock.NewStateStore(),
		big.NewInt(5),
	)
	if err != nil {
		t.Fatal(err)
	}

	returned, err := transactionService.Call(context.Background(), &transaction.TxRequest{
		To:   &recipient,
		Data: txData,
	})
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(returned, result) {
		t.Fatalf("returned wrong result %x, want %x", returned, result)
	}
}

func TestWaitForReceipt(t *testing.T) {
	logger := logging.New(io.Discard, 0)
	sender := common.HexToAddress("0xddff")
	recipient := common.HexToAddress("0xabcd")
	chainID := big.NewInt(5)

	var txHash common.Hash

	store := storemock.NewStateStore()

	transactionService, err := transaction.NewService(logger,
		backendmock.New(
			backendmock.WithSendTransactionFunc(func(ctx context.Context, tx *types.Transaction) error {
				return nil
			}),
			backendmock.WithSuggestGasPriceFunc(func(ctx context.Context) (*big.Int, error) {
				return big.NewInt(1), nil
			}),
			backendmock.WithEstimateGasFunc(func(ctx context.Context, call ethereum.CallMsg) (uint64, error) {
				return 100, nil
			}),
			backendmock.WithPendingNonceAtFunc(func(ctx context.Context, account common.Address) (uint64, error) {
				return 0, nil
			}),
			backendmock.WithTransactionReceiptFunc(func(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
				if hash != txHash {
					t.Fatalf("waiting for wrong transaction %x, want %x", hash, txHash)
				}
				return &types.Receipt{
					TxHash: txHash,
					Status: types.ReceiptStatusSuccessful,
				}, nil
			}),
		),
		cryptomock.New(
			cryptomock.WithEthereumAddressFunc(func() (common.Address, error) {
				return sender, nil
			}),
			cryptomock.WithSignTxFunc(func(tx *types.Transaction, txChainID *big.Int) (*types.Transaction, error) {
				return types.NewTransaction(tx.Nonce(), recipient, tx.Value(), tx.Gas(), tx.GasPrice(), tx.Data()), nil
			}),
		),
		store,
		chainID,
	)
	if err != nil {
		t.Fatal(err)
	}

	txHash, err = transactionService.Send(context.Background(), &transaction.TxRequest{
		To:    &recipient,
		Value: big.NewInt(1),
	})
	if err != nil {
		t.Fatal(err)
	}

	receipt, err := transactionService.WaitForReceipt(context.Background(), txHash)
	if err != nil {
		t.Fatal(err)
	}
	if receipt.TxHash != txHash {
		t.Fatalf("got receipt for transaction %x, want %x", receipt.TxHash, txHash)
	}
}

func TestWaitForReceiptUnknownTransaction(t *testing.T) {
	logger := logging.New(io.Discard, 0)
	sender := common.HexToAddress("0xddff")

	transactionService, err := transaction.NewService(logger,
		backendmock.New(),
		cryptomock.New(
			cryptomock.WithEthereumAddressFunc(func() (common.Address, error) {
				return sender, nil
			}),
		),
		storemock.NewStateStore(),
		big.NewInt(5),
	)
	if err != nil {
		t.Fatal(err)
	}

	_, err = transactionService.WaitForReceipt(context.Background(), common.HexToHash("0xbeef"))
	if !errors.Is(err, transaction.ErrUnknownTransaction) {
		t.Fatalf("got %v, want %v", err, transaction.ErrUnknownTransaction)
	}
}
