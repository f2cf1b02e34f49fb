package exchange

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	sdkmath "cosmossdk.io/math"

	"github.com/basketlabs/rebalancer/internal/adapter"
	"github.com/basketlabs/rebalancer/internal/basket"
	"github.com/basketlabs/rebalancer/internal/fixed"
	"github.com/basketlabs/rebalancer/internal/logger"
	"github.com/basketlabs/rebalancer/internal/types"
)

var (
	ErrWrongVenue       = errors.New("call targets a different venue")
	ErrNoPrice          = errors.New("no price configured for pair")
	ErrLimitExceeded    = errors.New("required send amount exceeds the caller's ceiling")
	ErrFillBelowMinimum = errors.New("fill is below the order's minimum receive")
)

var simLogger = logger.GetForComponent("sim_executor")

// SimExecutor fills orders against configured fixed prices, settling balance
// changes directly on the basket ledger. It stands in for a live venue during
// paper runs and tests; live execution stays behind an explicit mode switch.
type SimExecutor struct {
	mu     sync.RWMutex
	venue  string
	ledger *basket.Ledger
	prices map[types.Asset]map[types.Asset]sdkmath.LegacyDec // send -> receive -> rate
}

// NewSimExecutor builds an executor answering calls targeted at venue.
func NewSimExecutor(venue string, ledger *basket.Ledger) *SimExecutor {
	return &SimExecutor{
		venue:  venue,
		ledger: ledger,
		prices: make(map[types.Asset]map[types.Asset]sdkmath.LegacyDec),
	}
}

// SetPrice configures the fill rate: one unit of send buys rate units of
// receive. The inverse direction is configured separately so spreads can be
// modeled in tests.
func (s *SimExecutor) SetPrice(send, receive types.Asset, rate sdkmath.LegacyDec) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.prices[send]
	if !ok {
		m = make(map[types.Asset]sdkmath.LegacyDec)
		s.prices[send] = m
	}
	m[receive] = rate
}

func (s *SimExecutor) rate(send, receive types.Asset) (sdkmath.LegacyDec, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.prices[send]
	if !ok {
		return sdkmath.LegacyZeroDec(), fmt.Errorf("%w: %s/%s", ErrNoPrice, send, receive)
	}
	r, ok := m[receive]
	if !ok {
		return sdkmath.LegacyZeroDec(), fmt.Errorf("%w: %s/%s", ErrNoPrice, send, receive)
	}
	return r, nil
}

// Execute implements Executor. Exact-input orders fill the full send quantity
// at the configured rate; exact-output orders compute the send amount needed
// and reject fills that would exceed the order's send ceiling.
func (s *SimExecutor) Execute(ctx context.Context, id types.BasketID, call adapter.TradeCall) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if call.Target != s.venue {
		return fmt.Errorf("%w: want %s, got %s", ErrWrongVenue, s.venue, call.Target)
	}
	var order adapter.FixedPriceOrder
	if err := json.Unmarshal(call.CallData, &order); err != nil {
		return fmt.Errorf("failed to decode order: %w", err)
	}

	rate, err := s.rate(order.SendAsset, order.ReceiveAsset)
	if err != nil {
		return err
	}

	var sendAmount, receiveAmount sdkmath.Int
	if order.SendFixed {
		sendAmount = order.SendQuantity
		receiveAmount = fixed.MulDecInt(rate, sendAmount, fixed.RoundDown)
		if receiveAmount.LT(order.ReceiveQuantity) {
			return fmt.Errorf("%w: fill %s, minimum %s", ErrFillBelowMinimum, receiveAmount, order.ReceiveQuantity)
		}
	} else {
		receiveAmount = order.ReceiveQuantity
		needed, err := fixed.QuoDec(sdkmath.LegacyNewDecFromInt(receiveAmount), rate, fixed.RoundUp)
		if err != nil {
			return err
		}
		sendAmount = needed.Ceil().TruncateInt()
		if sendAmount.GT(order.SendQuantity) {
			return fmt.Errorf("%w: need %s, ceiling %s", ErrLimitExceeded, sendAmount, order.SendQuantity)
		}
	}

	if err := s.ledger.Debit(id, order.SendAsset, sendAmount); err != nil {
		return fmt.Errorf("send leg settlement failed: %w", err)
	}
	if err := s.ledger.Credit(id, order.ReceiveAsset, receiveAmount); err != nil {
		// put the send leg back so a half-settled fill never survives
		if rbErr := s.ledger.Credit(id, order.SendAsset, sendAmount); rbErr != nil {
			simLogger.Error().Err(rbErr).
				Str("basket", string(id)).
				Msg("Failed to roll back send leg after settlement error")
		}
		return fmt.Errorf("receive leg settlement failed: %w", err)
	}

	simLogger.Debug().
		Str("basket", string(id)).
		Str("sendAsset", string(order.SendAsset)).
		Str("receiveAsset", string(order.ReceiveAsset)).
		Str("sendAmount", sendAmount.String()).
		Str("receiveAmount", receiveAmount.String()).
		Msg("Order filled")
	return nil
}
