// Copyright 2023 The Tollgate Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package paymaster

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/tollgate/tollgate/pkg/storage"
)

// PaymentProcessed is the canonical settlement record. One is persisted and
// logged per successful settlement; the field order is part of the record
// format and must not change.
type PaymentProcessed struct {
	Payer         common.Address
	Tier          Tier
	StableAmount  *big.Int
	UtilityAmount *big.Int
	Path          string
	TxHash        common.Hash
	Timestamp     int64
}

// TierPriceUpdated is the audit record for an administrative price change.
type TierPriceUpdated struct {
	Tier      Tier
	OldPrice  *big.Int
	NewPrice  *big.Int
	Timestamp int64
}

func paymentKey(seq uint64) string {
	return fmt.Sprintf("%s%016x", paymentPrefix, seq)
}

func priceAuditKey(seq uint64) string {
	return fmt.Sprintf("%s%016x", priceAuditPrefix, seq)
}

func (s *service) nextSeq(key string) (uint64, error) {
	s.seqLock.Lock()
	defer s.seqLock.Unlock()

	var seq uint64
	err := s.store.Get(key, &seq)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return 0, err
	}
	seq++
	if err := s.store.Put(key, seq); err != nil {
		return 0, err
	}
	return seq, nil
}

func (s *service) emitPayment(event *PaymentProcessed) error {
	seq, err := s.nextSeq(paymentSeqKey)
	if err != nil {
		return err
	}
	if err := s.store.Put(paymentKey(seq), event); err != nil {
		return err
	}

	s.metrics.TotalSettlements.Inc()
	burned, _ := new(big.Float).SetInt(event.UtilityAmount).Float64()
	s.metrics.TotalUtilityBurned.Add(burned)

	s.logger.Infof("payment processed: payer %x tier %s stable %d utility %d path %s tx %x",
		event.Payer, event.Tier, event.StableAmount, event.UtilityAmount, event.Path, event.TxHash)
	return nil
}

func (s *service) emitPriceUpdate(event *TierPriceUpdated) error {
	seq, err := s.nextSeq(priceAuditSeqKey)
	if err != nil {
		return err
	}
	if err := s.store.Put(priceAuditKey(seq), event); err != nil {
		return err
	}

	s.metrics.TierPriceUpdates.Inc()
	s.logger.Infof("tier price updated: tier %s old %d new %d", event.Tier, event.OldPrice, event.NewPrice)
	return nil
}

// Payments returns all persisted settlement records in sequence order.
func (s *service) Payments() ([]*PaymentProcessed, error) {
	records := make(map[string]*PaymentProcessed)
	var keys []string
	err := s.store.Iterate(paymentPrefix, func(key, value []byte) (stop bool, err error) {
		var record PaymentProcessed
		if err := json.Unmarshal(value, &record); err != nil {
			return false, err
		}
		records[string(key)] = &record
		keys = append(keys, string(key))
		return false, nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(keys)
	payments := make([]*PaymentProcessed, 0, len(keys))
	for _, key := range keys {
		payments = append(payments, records[key])
	}
	return payments, nil
}
