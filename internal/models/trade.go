// ============================================================================
// models/trade.go
// ============================================================================
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// TradeRecord is one confirmed swap written to the trade journal.
type TradeRecord struct {
	PositionID  string          `json:"position_id"`
	Mint        string          `json:"mint"`
	Pool        string          `json:"pool"`
	Side        Side            `json:"side"`
	Signature   string          `json:"signature"`
	QuoteAmount decimal.Decimal `json:"quote_amount"`
	TokenAmount uint64          `json:"token_amount"`
	Price       decimal.Decimal `json:"price"`
	PnLPct      decimal.Decimal `json:"pnl_pct"`
	Executor    string          `json:"executor"`
	Attempts    int             `json:"attempts"`
	Timestamp   time.Time       `json:"timestamp"`
}

// EventKind names a lifecycle notification.
type EventKind string

const (
	EventAdmitted       EventKind = "admitted"
	EventRejected       EventKind = "rejected"
	EventBuyConfirmed   EventKind = "buy_confirmed"
	EventBuyFailed      EventKind = "buy_failed"
	EventSellTriggered  EventKind = "sell_triggered"
	EventSellConfirmed  EventKind = "sell_confirmed"
	EventSellFailed     EventKind = "sell_failed"
	EventSellSuppressed EventKind = "sell_suppressed"
)

// Event is a position lifecycle notification for the operator.
type Event struct {
	Kind          EventKind       `json:"kind"`
	PositionID    string          `json:"position_id,omitempty"`
	Mint          string          `json:"mint"`
	State         PositionState   `json:"state,omitempty"`
	Reason        string          `json:"reason,omitempty"`
	Signature     string          `json:"signature,omitempty"`
	PriceDeltaPct decimal.Decimal `json:"price_delta_pct"`
	At            time.Time       `json:"at"`
}
