// ./internal/state/records.go
package state

import (
	"encoding/json"
	"fmt"

	sdkmath "cosmossdk.io/math"

	"github.com/basketlabs/rebalancer/internal/types"
)

// PGStore persists engine events to the global Postgres pool. It satisfies
// the engine's Recorder interface and the web server's history source.
type PGStore struct{}

// NewPGStore returns a store backed by the global DB; InitDB must have run.
func NewPGStore() (*PGStore, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}
	return &PGStore{}, nil
}

// SaveTradeRecord inserts one executed trade.
func (s *PGStore) SaveTradeRecord(rec types.TradeRecord) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}
	stmt := `
		INSERT INTO trade_log (
			trade_id, basket, send_asset, receive_asset, exchange_name,
			executor, net_send_amount, net_receive_amount, protocol_fee, trade_timestamp
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10);`
	_, err := DB.Exec(stmt,
		rec.ID, string(rec.Basket), string(rec.SendAsset), string(rec.ReceiveAsset),
		rec.ExchangeName, rec.Executor,
		rec.NetSendAmount.String(), rec.NetReceiveAmount.String(), rec.ProtocolFee.String(),
		rec.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to insert trade record: %w", err)
	}
	return nil
}

// SaveRebalanceRecord inserts one lifecycle event.
func (s *PGStore) SaveRebalanceRecord(rec types.RebalanceRecord) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}
	components, err := json.Marshal(rec.Components)
	if err != nil {
		return fmt.Errorf("failed to encode components: %w", err)
	}
	stmt := `
		INSERT INTO rebalance_log (
			event_id, basket, kind, components, position_multiplier, event_timestamp
		) VALUES ($1, $2, $3, $4, $5, $6);`
	_, err = DB.Exec(stmt,
		rec.ID, string(rec.Basket), string(rec.Kind), components,
		rec.PositionMultiplier.String(), rec.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to insert rebalance record: %w", err)
	}
	return nil
}

// SaveTargetUpdates inserts a batch of target writes in one transaction.
func (s *PGStore) SaveTargetUpdates(updates []types.TargetUpdate) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}
	if len(updates) == 0 {
		return nil
	}
	tx, err := DB.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()
	stmt := `
		INSERT INTO target_updates (basket, asset, target_unit, update_timestamp)
		VALUES ($1, $2, $3, $4);`
	for _, u := range updates {
		if _, err = tx.Exec(stmt, string(u.Basket), string(u.Asset), u.TargetUnit.String(), u.Timestamp); err != nil {
			return fmt.Errorf("failed to insert target update: %w", err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit target updates: %w", err)
	}
	return nil
}

// RecentTrades returns the most recent trades across all baskets, newest first.
func (s *PGStore) RecentTrades(limit int) ([]types.TradeRecord, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := DB.Query(`
		SELECT trade_id, basket, send_asset, receive_asset, exchange_name,
		       executor, net_send_amount, net_receive_amount, protocol_fee, trade_timestamp
		FROM trade_log
		ORDER BY trade_timestamp DESC
		LIMIT $1;`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query trade log: %w", err)
	}
	defer rows.Close()

	var out []types.TradeRecord
	for rows.Next() {
		var rec types.TradeRecord
		var basket, send, receive, netSend, netReceive, fee string
		if err := rows.Scan(&rec.ID, &basket, &send, &receive, &rec.ExchangeName,
			&rec.Executor, &netSend, &netReceive, &fee, &rec.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan trade row: %w", err)
		}
		rec.Basket = types.BasketID(basket)
		rec.SendAsset = types.Asset(send)
		rec.ReceiveAsset = types.Asset(receive)
		if rec.NetSendAmount, err = parseInt(netSend); err != nil {
			return nil, err
		}
		if rec.NetReceiveAmount, err = parseInt(netReceive); err != nil {
			return nil, err
		}
		if rec.ProtocolFee, err = parseInt(fee); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// RecentRebalances returns the most recent lifecycle events, newest first.
func (s *PGStore) RecentRebalances(limit int) ([]types.RebalanceRecord, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := DB.Query(`
		SELECT event_id, basket, kind, components, position_multiplier, event_timestamp
		FROM rebalance_log
		ORDER BY event_timestamp DESC
		LIMIT $1;`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query rebalance log: %w", err)
	}
	defer rows.Close()

	var out []types.RebalanceRecord
	for rows.Next() {
		var rec types.RebalanceRecord
		var basket, kind, multiplier string
		var components []byte
		if err := rows.Scan(&rec.ID, &basket, &kind, &components, &multiplier, &rec.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan rebalance row: %w", err)
		}
		rec.Basket = types.BasketID(basket)
		rec.Kind = types.RebalanceEventKind(kind)
		if err := json.Unmarshal(components, &rec.Components); err != nil {
			return nil, fmt.Errorf("failed to decode components: %w", err)
		}
		dec, err := sdkmath.LegacyNewDecFromStr(multiplier)
		if err != nil {
			return nil, fmt.Errorf("failed to parse multiplier: %w", err)
		}
		rec.PositionMultiplier = dec
		out = append(out, rec)
	}
	return out, rows.Err()
}

func parseInt(s string) (sdkmath.Int, error) {
	i, ok := sdkmath.NewIntFromString(s)
	if !ok {
		return sdkmath.ZeroInt(), fmt.Errorf("failed to parse integer amount %q", s)
	}
	return i, nil
}
