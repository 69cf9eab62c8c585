// Copyright 2023 The Tollgate Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package paymaster implements the tiered burn-to-pay settlement engine.
//
// Callers choose one of four pricing tiers, priced in the stable unit. The
// engine reads the pair's live reserve ratio to convert the tier price into a
// utility token amount, acquires that amount through one of four funding
// paths and burns it. Every path converges on the same tail: burn the
// acquired utility amount and record a PaymentProcessed event. No path may
// leave a residual router allowance behind.
package paymaster

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/tollgate/tollgate/pkg/erc20"
	"github.com/tollgate/tollgate/pkg/logging"
	"github.com/tollgate/tollgate/pkg/storage"
	"github.com/tollgate/tollgate/pkg/transaction"
	"github.com/tollgate/tollgate/pkg/uniswap"
	"go.uber.org/atomic"
)

const (
	tierPricePrefix  = "paymaster_tier_price_"
	paymentPrefix    = "paymaster_payment_"
	paymentSeqKey    = "paymaster_seq_payment"
	priceAuditPrefix = "paymaster_price_audit_"
	priceAuditSeqKey = "paymaster_seq_price_audit"
	schemaVersionKey = "paymaster_schema_version"

	// SchemaVersion is the current layout version of the persisted state.
	SchemaVersion = 1
)

var (
	// ErrTierPriceZero indicates the tier has no positive price configured.
	ErrTierPriceZero = errors.New("paymaster: tier price zero")
	// ErrEmptyPool indicates one of the pair reserves is zero.
	ErrEmptyPool = errors.New("paymaster: empty pool")
	// ErrPairMismatch indicates the pair's token slots are not the expected
	// stable/utility pair.
	ErrPairMismatch = errors.New("paymaster: pair mismatch")
	// ErrSlippageLimitExceeded indicates the required utility amount exceeds
	// the caller's maximum.
	ErrSlippageLimitExceeded = errors.New("paymaster: slippage limit exceeded")
	// ErrMinOutputTooHigh indicates the caller's minimum output exceeds the
	// pre-swap quote.
	ErrMinOutputTooHigh = errors.New("paymaster: min output too high")
	// ErrInvalidRoute indicates the route has fewer than two hops.
	ErrInvalidRoute = errors.New("paymaster: invalid route")
	// ErrPathMismatch indicates the route does not start at the funding token.
	ErrPathMismatch = errors.New("paymaster: path mismatch")
	// ErrPathMustEndInStable indicates the route does not terminate at the
	// stable token.
	ErrPathMustEndInStable = errors.New("paymaster: path must end in stable token")
	// ErrReentrantCall indicates a guarded operation was entered while
	// another one was still in flight.
	ErrReentrantCall = errors.New("paymaster: reentrant call")
	// ErrNotOwner indicates the caller is not the configured owner.
	ErrNotOwner = errors.New("paymaster: not owner")
	// ErrAmountIsZero indicates a zero amount where a positive one is
	// required.
	ErrAmountIsZero = errors.New("paymaster: amount is zero")
	// ErrZeroAddress indicates a zero collaborator address at initialization.
	ErrZeroAddress = errors.New("paymaster: zero address")
	// ErrResidualAllowance indicates the router allowance was not fully
	// consumed and could not be reset.
	ErrResidualAllowance = errors.New("paymaster: residual allowance")
	// ErrSchemaVersion indicates an invalid schema migration target.
	ErrSchemaVersion = errors.New("paymaster: invalid schema version")
)

// Quote is one read of the tier's settlement terms at current reserves.
type Quote struct {
	Tier          Tier
	StablePrice   *big.Int
	UtilityAmount *big.Int
}

// TokenQuote extends Quote with the input amount of the funding token
// required along the supplied route.
type TokenQuote struct {
	Quote
	TokenAmount *big.Int
}

// TokenServiceFunc constructs the token wrapper used on the arbitrary token
// path. It exists so tests can substitute mocks.
type TokenServiceFunc func(transaction.Service, common.Address) erc20.Service

// Service is the settlement engine interface.
type Service interface {
	// Init validates the collaborator references and writes the initial
	// price table exactly once.
	Init(ctx context.Context, initialPrices map[Tier]*big.Int) error
	// RequiredUtilityAmount quotes the utility amount a settlement of the
	// tier would burn at current reserves.
	RequiredUtilityAmount(ctx context.Context, tier Tier) (*big.Int, error)
	// Quote returns the tier's stable price together with the required
	// utility amount.
	Quote(ctx context.Context, tier Tier) (*Quote, error)
	// QuoteViaToken additionally quotes the route input amount for funding
	// with an arbitrary token.
	QuoteViaToken(ctx context.Context, tier Tier, token common.Address, route uniswap.Route) (*TokenQuote, error)
	// PayWithUtility settles the tier directly from the wallet's utility
	// token balance.
	PayWithUtility(ctx context.Context, tier Tier, maxUtilityAmount *big.Int) (*PaymentProcessed, error)
	// PayWithStable settles the tier from the wallet's stable token balance.
	PayWithStable(ctx context.Context, tier Tier, minUtilityAmount *big.Int) (*PaymentProcessed, error)
	// PayWithNative settles the tier with native value attached to the swap.
	PayWithNative(ctx context.Context, tier Tier, minUtilityAmount, value *big.Int) (*PaymentProcessed, error)
	// PayWithToken settles the tier with an arbitrary token along a caller
	// supplied route ending in the stable token.
	PayWithToken(ctx context.Context, tier Tier, token common.Address, route uniswap.Route, maxTokenIn, minUtilityAmount *big.Int) (*PaymentProcessed, error)
	// SetTierPrice overwrites a tier's stable price. Owner only.
	SetTierPrice(ctx context.Context, caller common.Address, tier Tier, newPrice *big.Int) error
	// MigrateSchema authorizes a persisted-state layout upgrade. Owner only.
	MigrateSchema(caller common.Address, version uint64) error
	// TierPrices returns the full price table.
	TierPrices() (map[Tier]*big.Int, error)
	// Payments returns the persisted settlement records.
	Payments() ([]*PaymentProcessed, error)
}

type service struct {
	inFlight atomic.Bool
	seqLock  sync.Mutex

	logger             logging.Logger
	store              storage.StateStorer
	transactionService transaction.Service
	utility            erc20.BurnableService
	stable             erc20.Service
	pair               uniswap.PairService
	router             uniswap.RouterService
	owner              common.Address
	swapDeadline       time.Duration
	tokenServiceFunc   TokenServiceFunc
	metrics            metrics
}

// New creates the settlement engine. The collaborators are the utility token
// (with burn capability), the stable token, the pair the price is read from
// and the router swaps execute on.
func New(
	logger logging.Logger,
	store storage.StateStorer,
	transactionService transaction.Service,
	utility erc20.BurnableService,
	stable erc20.Service,
	pair uniswap.PairService,
	router uniswap.RouterService,
	owner common.Address,
	swapDeadline time.Duration,
	tokenServiceFunc TokenServiceFunc,
) Service {
	if tokenServiceFunc == nil {
		tokenServiceFunc = func(t transaction.Service, address common.Address) erc20.Service {
			return erc20.New(t, address)
		}
	}
	return &service{
		logger:             logger,
		store:              store,
		transactionService: transactionService,
		utility:            utility,
		stable:             stable,
		pair:               pair,
		router:             router,
		owner:              owner,
		swapDeadline:       swapDeadline,
		tokenServiceFunc:   tokenServiceFunc,
		metrics:            newMetrics(),
	}
}

// Init validates the collaborator references and, when run against a fresh
// statestore, writes the initial price table. Subsequent runs only
// revalidate; the price table is never overwritten.
func (s *service) Init(ctx context.Context, initialPrices map[Tier]*big.Int) error {
	zero := common.Address{}
	for _, address := range []common.Address{
		s.utility.Address(),
		s.stable.Address(),
		s.pair.Address(),
		s.router.Address(),
		s.owner,
	} {
		if address == zero {
			return ErrZeroAddress
		}
	}

	if err := s.checkPair(ctx); err != nil {
		return err
	}

	var version uint64
	err := s.store.Get(schemaVersionKey, &version)
	if err == nil {
		s.logger.Debugf("paymaster already initialized at schema version %d", version)
		return nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return err
	}

	for _, tier := range Tiers {
		price := initialPrices[tier]
		if price == nil || price.Sign() <= 0 {
			return ErrAmountIsZero
		}
		if err := s.putTierPrice(tier, price); err != nil {
			return err
		}
	}

	if err := s.store.Put(schemaVersionKey, uint64(SchemaVersion)); err != nil {
		return err
	}

	s.logger.Infof("paymaster initialized: utility %x stable %x pair %x router %x",
		s.utility.Address(), s.stable.Address(), s.pair.Address(), s.router.Address())
	return nil
}

// checkPair verifies the pair's two token slots are exactly the stable and
// utility token, in either order. External pair implementations could change
// underneath us, so this is re-checked on every reserve read as well.
func (s *service) checkPair(ctx context.Context) error {
	token0, err := s.pair.Token0(ctx)
	if err != nil {
		return err
	}
	token1, err := s.pair.Token1(ctx)
	if err != nil {
		return err
	}

	stable, utility := s.stable.Address(), s.utility.Address()
	if (token0 == stable && token1 == utility) || (token0 == utility && token1 == stable) {
		return nil
	}
	return ErrPairMismatch
}

// orderedReserves reads the pair's live reserves oriented as (stable,
// utility) regardless of slot order. Reserves are never cached; every quote
// is a spot price.
func (s *service) orderedReserves(ctx context.Context) (stableReserve, utilityReserve *big.Int, err error) {
	token0, err := s.pair.Token0(ctx)
	if err != nil {
		return nil, nil, err
	}
	token1, err := s.pair.Token1(ctx)
	if err != nil {
		return nil, nil, err
	}

	reserves, err := s.pair.GetReserves(ctx)
	if err != nil {
		return nil, nil, err
	}

	stable, utility := s.stable.Address(), s.utility.Address()
	switch {
	case token0 == stable && token1 == utility:
		return reserves.Reserve0, reserves.Reserve1, nil
	case token0 == utility && token1 == stable:
		return reserves.Reserve1, reserves.Reserve0, nil
	}
	return nil, nil, ErrPairMismatch
}

// quote computes the tier price and the utility amount it converts to at
// current reserves. The conversion rounds down; callers absorb the up to one
// unit of underquote through their bound parameter.
func (s *service) quote(ctx context.Context, tier Tier) (price, utilityAmount *big.Int, err error) {
	price, err = s.tierPrice(tier)
	if err != nil {
		return nil, nil, err
	}

	stableReserve, utilityReserve, err := s.orderedReserves(ctx)
	if err != nil {
		return nil, nil, err
	}
	if stableReserve.Sign() == 0 || utilityReserve.Sign() == 0 {
		return nil, nil, ErrEmptyPool
	}

	utilityAmount = new(big.Int).Mul(price, utilityReserve)
	utilityAmount.Div(utilityAmount, stableReserve)
	return price, utilityAmount, nil
}

func (s *service) RequiredUtilityAmount(ctx context.Context, tier Tier) (*big.Int, error) {
	_, amount, err := s.quote(ctx, tier)
	return amount, err
}

func (s *service) Quote(ctx context.Context, tier Tier) (*Quote, error) {
	price, amount, err := s.quote(ctx, tier)
	if err != nil {
		return nil, err
	}
	return &Quote{
		Tier:          tier,
		StablePrice:   price,
		UtilityAmount: amount,
	}, nil
}

func (s *service) QuoteViaToken(ctx context.Context, tier Tier, token common.Address, route uniswap.Route) (*TokenQuote, error) {
	if err := s.validateRoute(token, route); err != nil {
		return nil, err
	}

	price, amount, err := s.quote(ctx, tier)
	if err != nil {
		return nil, err
	}

	amounts, err := s.router.GetAmountsIn(ctx, price, route)
	if err != nil {
		return nil, err
	}
	if len(amounts) != len(route) {
		return nil, ErrInvalidRoute
	}

	return &TokenQuote{
		Quote: Quote{
			Tier:          tier,
			StablePrice:   price,
			UtilityAmount: amount,
		},
		TokenAmount: amounts[0],
	}, nil
}

func (s *service) validateRoute(token common.Address, route uniswap.Route) error {
	if len(route) < 2 {
		return ErrInvalidRoute
	}
	if route[0] != token {
		return ErrPathMismatch
	}
	if route[len(route)-1] != s.stable.Address() {
		return ErrPathMustEndInStable
	}
	return nil
}

// acquire takes the shared settlement guard. All externally callable
// mutating operations run under it; a nested entry fails immediately.
func (s *service) acquire() error {
	if !s.inFlight.CAS(false, true) {
		s.metrics.ReentrancyRejections.Inc()
		return ErrReentrantCall
	}
	return nil
}

func (s *service) release() {
	s.inFlight.Store(false)
}

// PayWithUtility settles directly from the wallet's utility balance: the
// required amount is quoted, bounded by the caller's maximum and burned.
func (s *service) PayWithUtility(ctx context.Context, tier Tier, maxUtilityAmount *big.Int) (payment *PaymentProcessed, err error) {
	if err := s.acquire(); err != nil {
		return nil, err
	}
	defer s.release()
	defer s.countFailure(&err)

	price, required, err := s.quote(ctx, tier)
	if err != nil {
		return nil, err
	}

	if maxUtilityAmount == nil || maxUtilityAmount.Cmp(required) < 0 {
		return nil, ErrSlippageLimitExceeded
	}

	payment, err = s.settle(ctx, tier, price, required, "utility")
	if err != nil {
		return nil, err
	}
	s.metrics.UtilitySettlements.Inc()
	return payment, nil
}

// PayWithStable settles from the wallet's stable balance: the tier price is
// swapped into the utility token and the output burned. The minimum output
// bound is checked against the pre-swap quote, before the swap executes.
func (s *service) PayWithStable(ctx context.Context, tier Tier, minUtilityAmount *big.Int) (payment *PaymentProcessed, err error) {
	if err := s.acquire(); err != nil {
		return nil, err
	}
	defer s.release()
	defer s.countFailure(&err)

	price, quoted, err := s.quote(ctx, tier)
	if err != nil {
		return nil, err
	}

	if minUtilityAmount != nil && minUtilityAmount.Cmp(quoted) > 0 {
		return nil, ErrMinOutputTooHigh
	}

	received, err := s.swapStableForUtility(ctx, price)
	if err != nil {
		return nil, err
	}

	payment, err = s.settle(ctx, tier, price, received, "stable")
	if err != nil {
		return nil, err
	}
	s.metrics.StableSettlements.Inc()
	return payment, nil
}

// PayWithNative settles with native value: the router swaps the attached
// value into exactly the tier price of stable token, refunding any excess
// native value, and the stable leg proceeds as on the stable path.
func (s *service) PayWithNative(ctx context.Context, tier Tier, minUtilityAmount, value *big.Int) (payment *PaymentProcessed, err error) {
	if err := s.acquire(); err != nil {
		return nil, err
	}
	defer s.release()
	defer s.countFailure(&err)

	if value == nil || value.Sign() <= 0 {
		return nil, ErrAmountIsZero
	}

	price, quoted, err := s.quote(ctx, tier)
	if err != nil {
		return nil, err
	}

	if minUtilityAmount != nil && minUtilityAmount.Cmp(quoted) > 0 {
		return nil, ErrMinOutputTooHigh
	}

	weth, err := s.router.WETH(ctx)
	if err != nil {
		return nil, err
	}

	payer := s.transactionService.Sender()
	txHash, err := s.router.SwapETHForExactTokens(ctx, value, price, uniswap.Route{weth, s.stable.Address()}, payer, s.deadline())
	if err != nil {
		return nil, err
	}
	if _, err := s.waitSuccess(ctx, txHash); err != nil {
		return nil, err
	}

	received, err := s.swapStableForUtility(ctx, price)
	if err != nil {
		return nil, err
	}

	payment, err = s.settle(ctx, tier, price, received, "native")
	if err != nil {
		return nil, err
	}
	s.metrics.NativeSettlements.Inc()
	return payment, nil
}

// PayWithToken settles with an arbitrary token along a caller supplied route
// terminating in the stable token. At most maxTokenIn of the funding token
// is spent; unspent input never leaves the wallet.
func (s *service) PayWithToken(ctx context.Context, tier Tier, token common.Address, route uniswap.Route, maxTokenIn, minUtilityAmount *big.Int) (payment *PaymentProcessed, err error) {
	if err := s.acquire(); err != nil {
		return nil, err
	}
	defer s.release()
	defer s.countFailure(&err)

	if err := s.validateRoute(token, route); err != nil {
		return nil, err
	}
	if maxTokenIn == nil || maxTokenIn.Sign() <= 0 {
		return nil, ErrAmountIsZero
	}

	price, quoted, err := s.quote(ctx, tier)
	if err != nil {
		return nil, err
	}

	if minUtilityAmount != nil && minUtilityAmount.Cmp(quoted) > 0 {
		return nil, ErrMinOutputTooHigh
	}

	payer := s.transactionService.Sender()
	tokenService := s.tokenServiceFunc(s.transactionService, token)

	if err := s.approve(ctx, tokenService, maxTokenIn); err != nil {
		return nil, err
	}

	txHash, err := s.router.SwapTokensForExactTokens(ctx, price, maxTokenIn, route, payer, s.deadline())
	if err != nil {
		s.clearAllowance(ctx, tokenService)
		return nil, err
	}
	receipt, err := s.waitSuccess(ctx, txHash)
	if err != nil {
		s.clearAllowance(ctx, tokenService)
		return nil, err
	}

	if err := s.resetAllowance(ctx, tokenService); err != nil {
		return nil, err
	}

	if transfer, err := erc20.FindTransferFrom(receipt, token, payer); err == nil {
		s.logger.Tracef("token path spent %d of %d approved %x", transfer.Value, maxTokenIn, token)
	}

	received, err := s.swapStableForUtility(ctx, price)
	if err != nil {
		return nil, err
	}

	payment, err = s.settle(ctx, tier, price, received, "token")
	if err != nil {
		return nil, err
	}
	s.metrics.TokenSettlements.Inc()
	return payment, nil
}

// SetTierPrice overwrites the tier's stable price and records the old and
// new value in the audit trail.
func (s *service) SetTierPrice(ctx context.Context, caller common.Address, tier Tier, newPrice *big.Int) (err error) {
	if err := s.acquire(); err != nil {
		return err
	}
	defer s.release()

	if newPrice == nil || newPrice.Sign() <= 0 {
		return ErrAmountIsZero
	}
	if caller != s.owner {
		return ErrNotOwner
	}
	if !tier.valid() {
		return ErrUnknownTier
	}

	oldPrice := big.NewInt(0)
	if current, err := s.tierPrice(tier); err == nil {
		oldPrice = current
	}

	if err := s.putTierPrice(tier, newPrice); err != nil {
		return err
	}

	return s.emitPriceUpdate(&TierPriceUpdated{
		Tier:      tier,
		OldPrice:  oldPrice,
		NewPrice:  newPrice,
		Timestamp: time.Now().Unix(),
	})
}

// MigrateSchema is the owner gate for persisted-state layout upgrades. The
// engine performs no data migration itself.
func (s *service) MigrateSchema(caller common.Address, version uint64) error {
	if caller != s.owner {
		return ErrNotOwner
	}

	var current uint64
	if err := s.store.Get(schemaVersionKey, &current); err != nil {
		return err
	}
	if version != current+1 {
		return ErrSchemaVersion
	}

	if err := s.store.Put(schemaVersionKey, version); err != nil {
		return err
	}
	s.logger.Infof("paymaster schema migrated from %d to %d", current, version)
	return nil
}

func (s *service) TierPrices() (map[Tier]*big.Int, error) {
	prices := make(map[Tier]*big.Int, len(Tiers))
	for _, tier := range Tiers {
		price, err := s.tierPrice(tier)
		if err != nil {
			return nil, err
		}
		prices[tier] = price
	}
	return prices, nil
}

// settle is the shared settlement tail: burn the utility amount and record
// the payment.
func (s *service) settle(ctx context.Context, tier Tier, price, utilityAmount *big.Int, path string) (*PaymentProcessed, error) {
	payer := s.transactionService.Sender()

	txHash, err := s.utility.Burn(ctx, payer, utilityAmount)
	if err != nil {
		return nil, err
	}
	if _, err := s.waitSuccess(ctx, txHash); err != nil {
		return nil, err
	}

	payment := &PaymentProcessed{
		Payer:         payer,
		Tier:          tier,
		StableAmount:  price,
		UtilityAmount: utilityAmount,
		Path:          path,
		TxHash:        txHash,
		Timestamp:     time.Now().Unix(),
	}
	if err := s.emitPayment(payment); err != nil {
		return nil, err
	}
	return payment, nil
}

// swapStableForUtility is the shared stable leg: approve the router for
// exactly the stable amount, swap it into the utility token and return the
// actual output recovered from the swap receipt. The allowance is reset to
// zero afterwards, unconditionally.
func (s *service) swapStableForUtility(ctx context.Context, stableAmount *big.Int) (*big.Int, error) {
	payer := s.transactionService.Sender()

	if err := s.approve(ctx, s.stable, stableAmount); err != nil {
		return nil, err
	}

	route := uniswap.Route{s.stable.Address(), s.utility.Address()}
	txHash, err := s.router.SwapExactTokensForTokens(ctx, stableAmount, big.NewInt(0), route, payer, s.deadline())
	if err != nil {
		s.clearAllowance(ctx, s.stable)
		return nil, err
	}
	receipt, err := s.waitSuccess(ctx, txHash)
	if err != nil {
		s.clearAllowance(ctx, s.stable)
		return nil, err
	}

	if err := s.resetAllowance(ctx, s.stable); err != nil {
		return nil, err
	}

	transfer, err := erc20.FindTransferTo(receipt, s.utility.Address(), payer)
	if err != nil {
		return nil, err
	}
	return transfer.Value, nil
}

// approve grants the router an allowance of exactly amount.
func (s *service) approve(ctx context.Context, token erc20.Service, amount *big.Int) error {
	txHash, err := token.Approve(ctx, s.router.Address(), amount)
	if err != nil {
		return err
	}
	_, err = s.waitSuccess(ctx, txHash)
	return err
}

// resetAllowance resets the router allowance to zero and verifies it.
func (s *service) resetAllowance(ctx context.Context, token erc20.Service) error {
	if err := s.approve(ctx, token, big.NewInt(0)); err != nil {
		return err
	}

	allowance, err := token.Allowance(ctx, s.transactionService.Sender(), s.router.Address())
	if err != nil {
		return err
	}
	if allowance.Sign() != 0 {
		return ErrResidualAllowance
	}
	return nil
}

// clearAllowance is the failure-path variant of resetAllowance. The original
// error is what callers return; a failed reset is only logged.
func (s *service) clearAllowance(ctx context.Context, token erc20.Service) {
	if err := s.resetAllowance(ctx, token); err != nil {
		s.logger.Warningf("could not reset router allowance for token %x: %v", token.Address(), err)
	}
}

func (s *service) waitSuccess(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	receipt, err := s.transactionService.WaitForReceipt(ctx, txHash)
	if err != nil {
		return nil, err
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, transaction.ErrTransactionReverted
	}
	return receipt, nil
}

func (s *service) deadline() *big.Int {
	return big.NewInt(time.Now().Add(s.swapDeadline).Unix())
}

func (s *service) countFailure(err *error) {
	if *err != nil {
		s.metrics.SettlementFailures.Inc()
	}
}
