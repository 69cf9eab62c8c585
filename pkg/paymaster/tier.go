// Copyright 2023 The Tollgate Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package paymaster

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/tollgate/tollgate/pkg/storage"
)

// Tier is one of the discrete service levels. The ordinals are persisted in
// the price table keys, so the enumeration is append-only: new tiers may be
// added at the end but existing ones never reordered or removed.
type Tier uint8

const (
	TierMicro Tier = iota
	TierStandard
	TierBig
	TierArchive
)

// Tiers lists all known tiers in ordinal order.
var Tiers = []Tier{TierMicro, TierStandard, TierBig, TierArchive}

// PriceDecimals is the fixed-point resolution of tier prices in the stable
// unit.
const PriceDecimals = 6

// ErrUnknownTier is returned for a tier outside the enumeration.
var ErrUnknownTier = errors.New("paymaster: unknown tier")

func (t Tier) String() string {
	switch t {
	case TierMicro:
		return "micro"
	case TierStandard:
		return "standard"
	case TierBig:
		return "big"
	case TierArchive:
		return "archive"
	}
	return fmt.Sprintf("tier(%d)", uint8(t))
}

func (t Tier) valid() bool {
	return t <= TierArchive
}

// ParseTier resolves a tier name as used on the API surface.
func ParseTier(s string) (Tier, error) {
	for _, t := range Tiers {
		if t.String() == s {
			return t, nil
		}
	}
	return 0, ErrUnknownTier
}

func tierPriceKey(t Tier) string {
	return fmt.Sprintf("%s%d", tierPricePrefix, uint8(t))
}

func (s *service) tierPrice(t Tier) (*big.Int, error) {
	if !t.valid() {
		return nil, ErrUnknownTier
	}
	price := new(big.Int)
	err := s.store.Get(tierPriceKey(t), price)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrTierPriceZero
		}
		return nil, err
	}
	if price.Sign() <= 0 {
		return nil, ErrTierPriceZero
	}
	return price, nil
}

func (s *service) putTierPrice(t Tier, price *big.Int) error {
	return s.store.Put(tierPriceKey(t), price)
}
