package engine

import (
	"fmt"
	"sync"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog"

	"github.com/basketlabs/rebalancer/internal/adapter"
	"github.com/basketlabs/rebalancer/internal/basket"
	"github.com/basketlabs/rebalancer/internal/exchange"
	"github.com/basketlabs/rebalancer/internal/fixed"
	"github.com/basketlabs/rebalancer/internal/logger"
	"github.com/basketlabs/rebalancer/internal/types"
)

// Caller identifies the principal invoking an entrypoint. Direct is true only
// when the request arrived through an authenticated session of the account
// itself, not relayed by another principal in the same call context. Under
// anyone-may-trade mode, trading requires a direct caller; this replaces the
// on-chain externally-originated-account heuristic and serves the same
// purpose of blocking atomic multi-call manipulation.
type Caller struct {
	Account string
	Direct  bool
}

// Recorder receives the engine's observable events. Implementations must be
// best-effort: persistence failures are logged by the engine, never surfaced
// to the trade caller.
type Recorder interface {
	SaveTradeRecord(rec types.TradeRecord) error
	SaveRebalanceRecord(rec types.RebalanceRecord) error
	SaveTargetUpdates(updates []types.TargetUpdate) error
}

// Engine is the rebalance orchestrator. It owns the rebalance lifecycle and
// the per-basket execution params, permissions and rebalance snapshots; it
// never owns balances or supply, which stay behind the position accessor.
type Engine struct {
	logger       zerolog.Logger
	accessor     basket.PositionAccessor
	registry     *adapter.Registry
	executor     exchange.Executor
	recorder     Recorder
	feeRate      sdkmath.LegacyDec // protocol fee taken from the receive side
	feeRecipient string
	now          func() time.Time

	mu      sync.RWMutex
	baskets map[types.BasketID]*basketRuntime
}

// basketRuntime is the engine-owned mutable state for one basket. All fields
// behind stateMu; the guard serializes mutating entrypoints.
type basketRuntime struct {
	guard   tradeGuard
	stateMu sync.RWMutex

	manager     string
	quoteAsset  types.Asset
	params      map[types.Asset]*types.ExecutionParams
	rebalance   *types.RebalanceInfo
	permissions *types.TradePermissions
}

// Config holds the configuration for creating a new Engine instance
type Config struct {
	Accessor     basket.PositionAccessor
	Registry     *adapter.Registry
	Executor     exchange.Executor
	Recorder     Recorder
	FeeRate      sdkmath.LegacyDec
	FeeRecipient string
}

// New creates an Engine with dependency injection.
func New(cfg Config) (*Engine, error) {
	if err := validateEngineConfig(cfg); err != nil {
		return nil, fmt.Errorf("engine configuration validation failed: %w", err)
	}
	e := &Engine{
		logger:       logger.GetForComponent("rebalance_engine"),
		accessor:     cfg.Accessor,
		registry:     cfg.Registry,
		executor:     cfg.Executor,
		recorder:     cfg.Recorder,
		feeRate:      cfg.FeeRate,
		feeRecipient: cfg.FeeRecipient,
		now:          time.Now,
		baskets:      make(map[types.BasketID]*basketRuntime),
	}
	e.logger.Info().
		Str("feeRate", cfg.FeeRate.String()).
		Str("feeRecipient", cfg.FeeRecipient).
		Msg("Rebalance engine created")
	return e, nil
}

func validateEngineConfig(cfg Config) error {
	if cfg.Accessor == nil {
		return fmt.Errorf("position accessor cannot be nil")
	}
	if cfg.Registry == nil {
		return fmt.Errorf("adapter registry cannot be nil")
	}
	if cfg.Executor == nil {
		return fmt.Errorf("executor cannot be nil")
	}
	if cfg.Recorder == nil {
		return fmt.Errorf("recorder cannot be nil")
	}
	if err := fixed.ValidateDec("feeRate", cfg.FeeRate); err != nil {
		return err
	}
	if cfg.FeeRate.GTE(sdkmath.LegacyOneDec()) {
		return fmt.Errorf("fee rate must be below 1")
	}
	if cfg.FeeRecipient == "" {
		return fmt.Errorf("fee recipient cannot be empty")
	}
	return nil
}

// InitializeBasket registers a basket with the engine, naming its manager and
// its quote asset. The quote asset is the counter-side of every trade and is
// never traded directly by name.
func (e *Engine) InitializeBasket(id types.BasketID, manager string, quoteAsset types.Asset) error {
	if manager == "" || quoteAsset == "" {
		return fmt.Errorf("manager and quote asset are required")
	}
	if _, err := e.accessor.TotalSupply(id); err != nil {
		return fmt.Errorf("basket %s not known to position accessor: %w", id, err)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.baskets[id]; exists {
		return fmt.Errorf("basket %s already initialized", id)
	}
	e.baskets[id] = &basketRuntime{
		manager:     manager,
		quoteAsset:  quoteAsset,
		params:      make(map[types.Asset]*types.ExecutionParams),
		permissions: types.NewTradePermissions(),
	}
	e.logger.Info().
		Str("basket", string(id)).
		Str("manager", manager).
		Str("quoteAsset", string(quoteAsset)).
		Msg("Basket initialized")
	return nil
}

// RemoveBasket drops a basket's engine state. Any in-flight rebalance
// configuration is discarded.
func (e *Engine) RemoveBasket(id types.BasketID) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.baskets[id]; !exists {
		return ErrBasketNotInitialized
	}
	delete(e.baskets, id)
	e.logger.Info().Str("basket", string(id)).Msg("Basket removed")
	return nil
}

func (e *Engine) runtime(id types.BasketID) (*basketRuntime, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	rt, ok := e.baskets[id]
	if !ok {
		return nil, ErrBasketNotInitialized
	}
	return rt, nil
}

// paramsFor returns the execution params for an asset, creating an empty
// entry when upsert is set. Caller must hold stateMu.
func (rt *basketRuntime) paramsFor(asset types.Asset, upsert bool) (*types.ExecutionParams, bool) {
	p, ok := rt.params[asset]
	if !ok && upsert {
		p = &types.ExecutionParams{
			TargetUnit:   sdkmath.LegacyZeroDec(),
			MaxTradeSize: sdkmath.ZeroInt(),
		}
		rt.params[asset] = p
		ok = true
	}
	return p, ok
}

// saveTrade persists a trade record best-effort.
func (e *Engine) saveTrade(rec types.TradeRecord) {
	if err := e.recorder.SaveTradeRecord(rec); err != nil {
		e.logger.Warn().Err(err).Str("trade", rec.ID).Msg("Failed to persist trade record")
	}
}

func (e *Engine) saveRebalance(rec types.RebalanceRecord) {
	if err := e.recorder.SaveRebalanceRecord(rec); err != nil {
		e.logger.Warn().Err(err).Str("rebalance", rec.ID).Msg("Failed to persist rebalance record")
	}
}

func (e *Engine) saveTargets(updates []types.TargetUpdate) {
	if err := e.recorder.SaveTargetUpdates(updates); err != nil {
		e.logger.Warn().Err(err).Msg("Failed to persist target updates")
	}
}
