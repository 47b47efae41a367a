package signal

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Sample is one pre-buy observation of a pool.
type Sample struct {
	Price        decimal.Decimal
	QuoteReserve decimal.Decimal
}

// SampleFunc fetches the current pool observation.
type SampleFunc func(ctx context.Context) (Sample, error)

// ConfirmConfig controls the pre-buy confirmation heuristic. A zero
// TimeToWait disables it.
type ConfirmConfig struct {
	TimeToWait         time.Duration
	PriceInterval      time.Duration
	MinRisePct         decimal.Decimal
	LowVolumeThreshold decimal.Decimal
}

// Confirmation is the outcome of a BuyConfirmer run.
type Confirmation struct {
	Confirmed bool
	Reason    string
	RisePct   decimal.Decimal
	Volume    decimal.Decimal
	Samples   int
}

// BuyConfirmer waits for a minimum price rise with enough traded volume
// before a buy is allowed.
type BuyConfirmer struct {
	cfg ConfirmConfig
}

func NewBuyConfirmer(cfg ConfirmConfig) *BuyConfirmer {
	if cfg.PriceInterval <= 0 {
		cfg.PriceInterval = time.Second
	}
	return &BuyConfirmer{cfg: cfg}
}

// Enabled reports whether confirmation should run at all.
func (b *BuyConfirmer) Enabled() bool {
	return b != nil && b.cfg.TimeToWait > 0
}

// Confirm samples the pool until the price has risen by MinRisePct over the
// first sample with at least LowVolumeThreshold of quote volume, or until
// TimeToWait elapses. Sampling errors are skipped.
func (b *BuyConfirmer) Confirm(ctx context.Context, sample SampleFunc) (Confirmation, error) {
	if !b.Enabled() {
		return Confirmation{Confirmed: true, Reason: "disabled"}, nil
	}

	deadline := time.Now().Add(b.cfg.TimeToWait)
	ticker := time.NewTicker(b.cfg.PriceInterval)
	defer ticker.Stop()

	var (
		first, last *Sample
		out         Confirmation
	)
	hundred := decimal.NewFromInt(100)

	for {
		s, err := sample(ctx)
		if err == nil {
			out.Samples++
			if first == nil {
				first = &s
			} else {
				out.Volume = out.Volume.Add(s.QuoteReserve.Sub(last.QuoteReserve).Abs())
				if first.Price.IsPositive() {
					out.RisePct = s.Price.Sub(first.Price).Div(first.Price).Mul(hundred)
				}
			}
			last = &s

			if out.Samples > 1 && out.RisePct.GreaterThanOrEqual(b.cfg.MinRisePct) &&
				out.Volume.GreaterThanOrEqual(b.cfg.LowVolumeThreshold) {
				out.Confirmed = true
				out.Reason = fmt.Sprintf("price rose %s%%", out.RisePct.StringFixed(2))
				return out, nil
			}
		}

		if !time.Now().Before(deadline) {
			break
		}
		select {
		case <-ctx.Done():
			return out, ctx.Err()
		case <-ticker.C:
		}
	}

	switch {
	case out.Samples == 0:
		out.Reason = "no price samples"
	case out.Volume.LessThan(b.cfg.LowVolumeThreshold):
		out.Reason = fmt.Sprintf("low volume %s < %s", out.Volume.String(), b.cfg.LowVolumeThreshold.String())
	default:
		out.Reason = fmt.Sprintf("price rise %s%% below %s%%", out.RisePct.StringFixed(2), b.cfg.MinRisePct.String())
	}
	return out, nil
}
