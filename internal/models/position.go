// ============================================================================
// models/position.go
// ============================================================================
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PositionState is the lifecycle state of a position.
type PositionState string

const (
	StateNone     PositionState = "NONE"
	StateEntering PositionState = "ENTERING"
	StateOpen     PositionState = "OPEN"
	StateExiting  PositionState = "EXITING"
	StateClosed   PositionState = "CLOSED"
	StateFailed   PositionState = "FAILED"
)

var transitions = map[PositionState][]PositionState{
	StateNone:     {StateEntering, StateFailed},
	StateEntering: {StateOpen, StateFailed},
	StateOpen:     {StateExiting},
	StateExiting:  {StateClosed, StateFailed},
}

// Terminal reports whether no further transitions are possible.
func (s PositionState) Terminal() bool {
	return s == StateClosed || s == StateFailed
}

// Active reports whether the position occupies a slot under the global cap.
func (s PositionState) Active() bool {
	return s == StateEntering || s == StateOpen || s == StateExiting
}

// CanTransition reports whether s -> next is a legal move.
func (s PositionState) CanTransition(next PositionState) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// PricePoint is one observation in a position's price series.
type PricePoint struct {
	Price decimal.Decimal `json:"price"`
	At    time.Time       `json:"at"`
}

// Position tracks one token from admission to exit.
type Position struct {
	ID               string          `json:"id"`
	Token            string          `json:"token"`
	Pool             *PoolRecord     `json:"pool"`
	State            PositionState   `json:"state"`
	EntryPrice       decimal.Decimal `json:"entry_price"`
	EntryTime        time.Time       `json:"entry_time"`
	QuoteAmountSpent decimal.Decimal `json:"quote_amount_spent"`
	TokenBalance     uint64          `json:"token_balance"`
	HighestPrice     decimal.Decimal `json:"highest_price"`
	LastPrice        decimal.Decimal `json:"last_price"`
	ExitPrice        decimal.Decimal `json:"exit_price"`
	SellSuppressed   bool            `json:"sell_suppressed"`
	FailureReason    string          `json:"failure_reason,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// PriceDeltaPct returns the percent change of price relative to the entry price.
func (p *Position) PriceDeltaPct(price decimal.Decimal) decimal.Decimal {
	if p.EntryPrice.IsZero() {
		return decimal.Zero
	}
	return price.Sub(p.EntryPrice).Div(p.EntryPrice).Mul(decimal.NewFromInt(100))
}
