// Package signal turns a position's price history into hold/sell recommendations.
package signal

import (
	"fmt"

	"github.com/aman-zulfiqar/solana-pool-sniper/internal/models"
)

// RSIOversold is the level an RSI must cross downward to vote sell.
const RSIOversold = 30.0

type Action string

const (
	ActionHold Action = "hold"
	ActionSell Action = "sell"
)

// Vote is one indicator's opinion on the latest sample.
type Vote struct {
	Indicator string
	Buy       bool
	Sell      bool
	Detail    string
}

// Recommendation is the outcome of one evaluation.
type Recommendation struct {
	Action Action
	Votes  []Vote
	// Ready is false when the series is shorter than MinSamples.
	Ready bool
}

// Sell reports whether any indicator voted sell.
func (r Recommendation) Sell() bool {
	return r.Action == ActionSell
}

// Config holds indicator periods.
type Config struct {
	MACDShortPeriod  int
	MACDLongPeriod   int
	MACDSignalPeriod int
	RSIPeriod        int
}

// DefaultConfig returns the usual 12/26/9 MACD and 14 period RSI.
func DefaultConfig() Config {
	return Config{
		MACDShortPeriod:  12,
		MACDLongPeriod:   26,
		MACDSignalPeriod: 9,
		RSIPeriod:        14,
	}
}

func (c Config) Validate() error {
	if c.MACDShortPeriod <= 0 || c.MACDLongPeriod <= 0 || c.MACDSignalPeriod <= 0 || c.RSIPeriod <= 0 {
		return fmt.Errorf("signal: periods must be positive")
	}
	if c.MACDShortPeriod >= c.MACDLongPeriod {
		return fmt.Errorf("signal: MACD short period %d must be below long period %d", c.MACDShortPeriod, c.MACDLongPeriod)
	}
	return nil
}

// Engine evaluates MACD and RSI votes over a price series.
type Engine struct {
	cfg Config
}

func NewEngine(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{cfg: cfg}, nil
}

// MinSamples is the shortest series that can produce a recommendation.
func (e *Engine) MinSamples() int {
	return max(e.cfg.MACDLongPeriod, e.cfg.RSIPeriod) + e.cfg.MACDSignalPeriod
}

// Evaluate returns hold with Ready=false until MinSamples prices exist.
func (e *Engine) Evaluate(series []models.PricePoint) Recommendation {
	if len(series) < e.MinSamples() {
		return Recommendation{Action: ActionHold}
	}

	prices := make([]float64, len(series))
	for i, p := range series {
		prices[i] = p.Price.InexactFloat64()
	}

	rec := Recommendation{Action: ActionHold, Ready: true}
	for _, v := range []Vote{e.macdVote(prices), e.rsiVote(prices)} {
		if !v.Buy && !v.Sell {
			continue
		}
		rec.Votes = append(rec.Votes, v)
		if v.Sell {
			rec.Action = ActionSell
		}
	}
	return rec
}

func (e *Engine) macdVote(prices []float64) Vote {
	v := Vote{Indicator: "macd"}
	line, sig := MACD(prices, e.cfg.MACDShortPeriod, e.cfg.MACDLongPeriod, e.cfg.MACDSignalPeriod)
	n := len(line)
	if n < 2 {
		return v
	}

	prevAbove := line[n-2] >= sig[n-2]
	curAbove := line[n-1] >= sig[n-1]
	switch {
	case prevAbove && !curAbove:
		v.Sell = true
		v.Detail = fmt.Sprintf("bearish cross macd=%.6g signal=%.6g", line[n-1], sig[n-1])
	case !prevAbove && curAbove:
		v.Buy = true
		v.Detail = fmt.Sprintf("bullish cross macd=%.6g signal=%.6g", line[n-1], sig[n-1])
	}
	return v
}

func (e *Engine) rsiVote(prices []float64) Vote {
	v := Vote{Indicator: "rsi"}
	values := RSI(prices, e.cfg.RSIPeriod)
	n := len(values)
	if n < 2 {
		return v
	}
	if values[n-2] >= RSIOversold && values[n-1] < RSIOversold {
		v.Sell = true
		v.Detail = fmt.Sprintf("rsi crossed below %.0f: %.2f", RSIOversold, values[n-1])
	}
	return v
}
