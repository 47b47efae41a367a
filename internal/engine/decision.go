package engine

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/aman-zulfiqar/solana-pool-sniper/internal/models"
	"github.com/aman-zulfiqar/solana-pool-sniper/internal/signal"
)

type Action string

const (
	ActionHold     Action = "hold"
	ActionSell     Action = "sell"
	ActionSuppress Action = "suppress"
)

// Decision is the outcome of one price observation.
type Decision struct {
	Action Action
	Reason string
}

// Policy applies the exit rules to an OPEN position. Rules are checked in
// order: loss suppression, stop-loss, trailing stop, take-profit, then the
// technical sell signal.
type Policy struct {
	takeProfit        decimal.Decimal
	stopLoss          decimal.Decimal
	trailing          bool
	skipLoss          decimal.Decimal
	sellWithoutSignal bool
	useTA             bool
	signals           *signal.Engine
}

func NewPolicy(cfg Config, signals *signal.Engine) Policy {
	return Policy{
		takeProfit:        cfg.TakeProfit,
		stopLoss:          cfg.StopLoss,
		trailing:          cfg.TrailingStopLoss,
		skipLoss:          cfg.SkipSellingIfLostMoreThan,
		sellWithoutSignal: cfg.AutoSellWithoutSellSignal,
		useTA:             cfg.UseTA,
		signals:           signals,
	}
}

// Decide evaluates price against pos. series must already contain price.
func (p Policy) Decide(pos models.Position, series []models.PricePoint, price decimal.Decimal) Decision {
	if pos.SellSuppressed {
		return Decision{Action: ActionHold, Reason: "sell suppressed"}
	}

	one := decimal.NewFromInt(1)
	hundred := decimal.NewFromInt(100)
	delta := pos.PriceDeltaPct(price)

	if p.skipLoss.IsPositive() && delta.LessThan(p.skipLoss.Neg()) {
		return Decision{
			Action: ActionSuppress,
			Reason: fmt.Sprintf("lost %s%%, more than %s%%", delta.Neg().StringFixed(2), p.skipLoss),
		}
	}

	if p.stopLoss.IsPositive() {
		ratio := one.Sub(p.stopLoss.Div(hundred))
		if price.LessThanOrEqual(pos.EntryPrice.Mul(ratio)) {
			return Decision{Action: ActionSell, Reason: fmt.Sprintf("stop loss at %s%%", delta.StringFixed(2))}
		}
		if p.trailing && price.LessThanOrEqual(pos.HighestPrice.Mul(ratio)) {
			return Decision{
				Action: ActionSell,
				Reason: fmt.Sprintf("trailing stop %s below high %s", price, pos.HighestPrice),
			}
		}
	}

	var rec *signal.Recommendation
	evaluate := func() signal.Recommendation {
		if rec == nil {
			r := signal.Recommendation{Action: signal.ActionHold}
			if p.signals != nil {
				r = p.signals.Evaluate(series)
			}
			rec = &r
		}
		return *rec
	}

	if p.takeProfit.IsPositive() && price.GreaterThanOrEqual(pos.EntryPrice.Mul(one.Add(p.takeProfit.Div(hundred)))) {
		reason := fmt.Sprintf("take profit at %s%%", delta.StringFixed(2))
		if p.sellWithoutSignal {
			return Decision{Action: ActionSell, Reason: reason}
		}
		if evaluate().Sell() {
			return Decision{Action: ActionSell, Reason: reason + " with sell signal"}
		}
		return Decision{Action: ActionHold, Reason: "take profit reached, waiting for sell signal"}
	}

	if p.useTA && evaluate().Sell() {
		return Decision{Action: ActionSell, Reason: "technical sell signal"}
	}
	return Decision{Action: ActionHold}
}
