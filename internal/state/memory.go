package state

import (
	"sync"

	"github.com/basketlabs/rebalancer/internal/types"
)

// MemoryStore keeps engine events in memory. Used in tests and in DB-less
// runs; same interface surface as PGStore.
type MemoryStore struct {
	mu         sync.RWMutex
	trades     []types.TradeRecord
	rebalances []types.RebalanceRecord
	targets    []types.TargetUpdate
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// SaveTradeRecord implements the engine's Recorder.
func (m *MemoryStore) SaveTradeRecord(rec types.TradeRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trades = append(m.trades, rec)
	return nil
}

// SaveRebalanceRecord implements the engine's Recorder.
func (m *MemoryStore) SaveRebalanceRecord(rec types.RebalanceRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rebalances = append(m.rebalances, rec)
	return nil
}

// SaveTargetUpdates implements the engine's Recorder.
func (m *MemoryStore) SaveTargetUpdates(updates []types.TargetUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.targets = append(m.targets, updates...)
	return nil
}

// RecentTrades returns up to limit trades, newest first.
func (m *MemoryStore) RecentTrades(limit int) ([]types.TradeRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return lastN(m.trades, limit), nil
}

// RecentRebalances returns up to limit lifecycle events, newest first.
func (m *MemoryStore) RecentRebalances(limit int) ([]types.RebalanceRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return lastN(m.rebalances, limit), nil
}

// TargetUpdates returns every recorded target write, oldest first.
func (m *MemoryStore) TargetUpdates() []types.TargetUpdate {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]types.TargetUpdate, len(m.targets))
	copy(out, m.targets)
	return out
}

func lastN[T any](items []T, limit int) []T {
	if limit <= 0 {
		limit = 50
	}
	n := len(items)
	if limit > n {
		limit = n
	}
	out := make([]T, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, items[i])
	}
	return out
}
