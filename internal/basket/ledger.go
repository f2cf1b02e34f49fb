package basket

import (
	"errors"
	"fmt"
	"sync"

	sdkmath "cosmossdk.io/math"

	"github.com/basketlabs/rebalancer/internal/fixed"
	"github.com/basketlabs/rebalancer/internal/logger"
	"github.com/basketlabs/rebalancer/internal/types"
)

var (
	ErrBasketUnknown     = errors.New("basket is not registered")
	ErrAssetUnknown      = errors.New("asset has no position in basket")
	ErrInsufficientFunds = errors.New("insufficient balance")
	ErrSupplyZero        = errors.New("basket has zero supply")
)

var ledgerLogger = logger.GetForComponent("basket_ledger")

// Ledger is an in-memory PositionAccessor. Units are stored multiplier-relative
// (virtual), so a single multiplier write applies a proportional supply-wide
// adjustment without touching every asset's stored unit.
type Ledger struct {
	mu      sync.RWMutex
	baskets map[types.BasketID]*basketState
}

type basketState struct {
	supply     sdkmath.Int
	multiplier sdkmath.LegacyDec
	order      []types.Asset                     // component registration order
	virtual    map[types.Asset]sdkmath.LegacyDec // unit before multiplier
	balances   map[types.Asset]sdkmath.Int
	external   map[types.Asset][]string
	accounts   map[string]map[types.Asset]sdkmath.Int // fee recipient et al.
}

func (b *basketState) trackAsset(asset types.Asset) {
	for _, a := range b.order {
		if a == asset {
			return
		}
	}
	b.order = append(b.order, asset)
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{baskets: make(map[types.BasketID]*basketState)}
}

// CreateBasket registers a basket with an initial supply. Supply must be positive.
func (l *Ledger) CreateBasket(id types.BasketID, supply sdkmath.Int) error {
	if err := fixed.ValidateInt("supply", supply); err != nil {
		return err
	}
	if supply.IsZero() {
		return ErrSupplyZero
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.baskets[id]; ok {
		return fmt.Errorf("basket %s already registered", id)
	}
	l.baskets[id] = &basketState{
		supply:     supply,
		multiplier: sdkmath.LegacyOneDec(),
		virtual:    make(map[types.Asset]sdkmath.LegacyDec),
		balances:   make(map[types.Asset]sdkmath.Int),
		external:   make(map[types.Asset][]string),
		accounts:   make(map[string]map[types.Asset]sdkmath.Int),
	}
	return nil
}

// Deposit credits the basket's custody with amount of asset and sets the
// asset's unit to balance/supply. Used when seeding a basket's positions.
func (l *Ledger) Deposit(id types.BasketID, asset types.Asset, amount sdkmath.Int) error {
	if err := fixed.ValidateInt("amount", amount); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.baskets[id]
	if !ok {
		return ErrBasketUnknown
	}
	bal, ok := b.balances[asset]
	if !ok {
		bal = sdkmath.ZeroInt()
	}
	b.balances[asset] = bal.Add(amount)
	return b.setRealUnitLocked(asset, mustQuo(b.balances[asset], b.supply))
}

// SetExternalModules declares the modules holding external positions in an asset.
func (l *Ledger) SetExternalModules(id types.BasketID, asset types.Asset, modules []string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.baskets[id]
	if !ok {
		return ErrBasketUnknown
	}
	b.external[asset] = modules
	return nil
}

// Mint issues newShares of basket supply without adding backing assets, the
// way streaming-fee accrual does. The multiplier contracts by the ratio
// oldSupply/newSupply so every asset's real unit dilutes proportionally.
func (l *Ledger) Mint(id types.BasketID, newShares sdkmath.Int) error {
	if err := fixed.ValidateInt("newShares", newShares); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.baskets[id]
	if !ok {
		return ErrBasketUnknown
	}
	oldSupply := b.supply
	newSupply := oldSupply.Add(newShares)
	ratio, err := fixed.QuoDec(
		sdkmath.LegacyNewDecFromInt(oldSupply),
		sdkmath.LegacyNewDecFromInt(newSupply),
		fixed.RoundDown,
	)
	if err != nil {
		return err
	}
	b.supply = newSupply
	b.multiplier = fixed.MulDec(b.multiplier, ratio, fixed.RoundDown)
	ledgerLogger.Debug().
		Str("basket", string(id)).
		Str("newSupply", newSupply.String()).
		Str("multiplier", b.multiplier.String()).
		Msg("Supply minted, multiplier diluted")
	return nil
}

// DefaultPositionUnit implements PositionAccessor.
func (l *Ledger) DefaultPositionUnit(id types.BasketID, asset types.Asset) (sdkmath.LegacyDec, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	b, ok := l.baskets[id]
	if !ok {
		return sdkmath.LegacyZeroDec(), ErrBasketUnknown
	}
	v, ok := b.virtual[asset]
	if !ok {
		return sdkmath.LegacyZeroDec(), nil
	}
	return fixed.MulDec(v, b.multiplier, fixed.RoundDown), nil
}

// EditDefaultPositionUnit implements PositionAccessor.
func (l *Ledger) EditDefaultPositionUnit(id types.BasketID, asset types.Asset, newUnit sdkmath.LegacyDec) error {
	if err := fixed.ValidateDec("newUnit", newUnit); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.baskets[id]
	if !ok {
		return ErrBasketUnknown
	}
	return b.setRealUnitLocked(asset, newUnit)
}

func (b *basketState) setRealUnitLocked(asset types.Asset, real sdkmath.LegacyDec) error {
	virtual, err := fixed.QuoDec(real, b.multiplier, fixed.RoundDown)
	if err != nil {
		return err
	}
	b.virtual[asset] = virtual
	b.trackAsset(asset)
	return nil
}

// Components implements PositionAccessor.
func (l *Ledger) Components(id types.BasketID) ([]types.Asset, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	b, ok := l.baskets[id]
	if !ok {
		return nil, ErrBasketUnknown
	}
	out := make([]types.Asset, len(b.order))
	copy(out, b.order)
	return out, nil
}

// TotalSupply implements PositionAccessor.
func (l *Ledger) TotalSupply(id types.BasketID) (sdkmath.Int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	b, ok := l.baskets[id]
	if !ok {
		return sdkmath.ZeroInt(), ErrBasketUnknown
	}
	return b.supply, nil
}

// PositionMultiplier implements PositionAccessor.
func (l *Ledger) PositionMultiplier(id types.BasketID) (sdkmath.LegacyDec, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	b, ok := l.baskets[id]
	if !ok {
		return sdkmath.LegacyZeroDec(), ErrBasketUnknown
	}
	return b.multiplier, nil
}

// ExternalPositionModules implements PositionAccessor.
func (l *Ledger) ExternalPositionModules(id types.BasketID, asset types.Asset) ([]string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	b, ok := l.baskets[id]
	if !ok {
		return nil, ErrBasketUnknown
	}
	return b.external[asset], nil
}

// BalanceOf implements PositionAccessor.
func (l *Ledger) BalanceOf(id types.BasketID, asset types.Asset) (sdkmath.Int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	b, ok := l.baskets[id]
	if !ok {
		return sdkmath.ZeroInt(), ErrBasketUnknown
	}
	bal, ok := b.balances[asset]
	if !ok {
		return sdkmath.ZeroInt(), nil
	}
	return bal, nil
}

// Transfer implements PositionAccessor.
func (l *Ledger) Transfer(id types.BasketID, asset types.Asset, to string, amount sdkmath.Int) error {
	if err := fixed.ValidateInt("amount", amount); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.baskets[id]
	if !ok {
		return ErrBasketUnknown
	}
	bal, ok := b.balances[asset]
	if !ok || bal.LT(amount) {
		return fmt.Errorf("%w: %s of %s", ErrInsufficientFunds, asset, id)
	}
	b.balances[asset] = bal.Sub(amount)
	acct, ok := b.accounts[to]
	if !ok {
		acct = make(map[types.Asset]sdkmath.Int)
		b.accounts[to] = acct
	}
	prev, ok := acct[asset]
	if !ok {
		prev = sdkmath.ZeroInt()
	}
	acct[asset] = prev.Add(amount)
	return nil
}

// Credit adds amount of asset to the basket's custody balance without touching
// units. This is the entry point the simulated exchange uses to settle the
// receive leg of a trade.
func (l *Ledger) Credit(id types.BasketID, asset types.Asset, amount sdkmath.Int) error {
	if err := fixed.ValidateInt("amount", amount); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.baskets[id]
	if !ok {
		return ErrBasketUnknown
	}
	bal, ok := b.balances[asset]
	if !ok {
		bal = sdkmath.ZeroInt()
	}
	b.balances[asset] = bal.Add(amount)
	return nil
}

// Debit removes amount of asset from the basket's custody balance without
// touching units. Settlement counterpart of Credit for the send leg.
func (l *Ledger) Debit(id types.BasketID, asset types.Asset, amount sdkmath.Int) error {
	if err := fixed.ValidateInt("amount", amount); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.baskets[id]
	if !ok {
		return ErrBasketUnknown
	}
	bal, ok := b.balances[asset]
	if !ok || bal.LT(amount) {
		return fmt.Errorf("%w: %s of %s", ErrInsufficientFunds, asset, id)
	}
	b.balances[asset] = bal.Sub(amount)
	return nil
}

// AccountBalance returns the amount of asset held by a non-basket account
// (e.g. the protocol fee recipient).
func (l *Ledger) AccountBalance(id types.BasketID, account string, asset types.Asset) (sdkmath.Int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	b, ok := l.baskets[id]
	if !ok {
		return sdkmath.ZeroInt(), ErrBasketUnknown
	}
	acct, ok := b.accounts[account]
	if !ok {
		return sdkmath.ZeroInt(), nil
	}
	bal, ok := acct[asset]
	if !ok {
		return sdkmath.ZeroInt(), nil
	}
	return bal, nil
}

// Summary returns the aggregate view of a basket for the web API.
func (l *Ledger) Summary(id types.BasketID, quote types.Asset) (types.BasketSummary, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	b, ok := l.baskets[id]
	if !ok {
		return types.BasketSummary{}, ErrBasketUnknown
	}
	summary := types.BasketSummary{
		ID:                 id,
		QuoteAsset:         quote,
		TotalSupply:        b.supply,
		PositionMultiplier: b.multiplier,
	}
	for _, asset := range b.order {
		v, ok := b.virtual[asset]
		if !ok {
			v = sdkmath.LegacyZeroDec()
		}
		bal, ok := b.balances[asset]
		if !ok {
			bal = sdkmath.ZeroInt()
		}
		summary.Components = append(summary.Components, types.ComponentPosition{
			Asset:    asset,
			Unit:     fixed.MulDec(v, b.multiplier, fixed.RoundDown),
			Balance:  bal,
			External: b.external[asset],
		})
	}
	return summary, nil
}

func mustQuo(a, b sdkmath.Int) sdkmath.LegacyDec {
	d, err := fixed.QuoIntInt(a, b, fixed.RoundDown)
	if err != nil {
		// supply is validated positive at creation
		panic(err)
	}
	return d
}
