/*

This file contains the observable event records the engine emits. Records are
written to the audit store (Postgres) and surfaced through the web API.

*/

package types

import (
	"time"

	sdkmath "cosmossdk.io/math"
)

// TradeRecord captures one executed trade with net (post-fee) amounts.
type TradeRecord struct {
	ID               string      `json:"id"` // uuid
	Basket           BasketID    `json:"basket"`
	SendAsset        Asset       `json:"send_asset"`
	ReceiveAsset     Asset       `json:"receive_asset"`
	ExchangeName     string      `json:"exchange_name"`
	Executor         string      `json:"executor"` // caller account
	NetSendAmount    sdkmath.Int `json:"net_send_amount"`
	NetReceiveAmount sdkmath.Int `json:"net_receive_amount"`
	ProtocolFee      sdkmath.Int `json:"protocol_fee"`
	Timestamp        time.Time   `json:"timestamp"`
}

// TargetUpdate captures one component's target unit being written.
type TargetUpdate struct {
	Basket     BasketID          `json:"basket"`
	Asset      Asset             `json:"asset"`
	TargetUnit sdkmath.LegacyDec `json:"target_unit"`
	Timestamp  time.Time         `json:"timestamp"`
}

// RebalanceRecord captures a rebalance being started or targets being raised.
type RebalanceRecord struct {
	ID                 string             `json:"id"` // uuid
	Basket             BasketID           `json:"basket"`
	Kind               RebalanceEventKind `json:"kind"`
	Components         []Asset            `json:"components"`
	PositionMultiplier sdkmath.LegacyDec  `json:"position_multiplier"`
	Timestamp          time.Time          `json:"timestamp"`
}

// RebalanceEventKind distinguishes the two lifecycle events that share a record shape.
type RebalanceEventKind string

const (
	RebalanceStarted RebalanceEventKind = "REBALANCE_STARTED"
	TargetsRaised    RebalanceEventKind = "TARGETS_RAISED"
)
