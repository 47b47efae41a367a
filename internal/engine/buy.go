package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/solana-pool-sniper/internal/amm"
	"github.com/aman-zulfiqar/solana-pool-sniper/internal/executor"
	"github.com/aman-zulfiqar/solana-pool-sniper/internal/models"
	"github.com/aman-zulfiqar/solana-pool-sniper/internal/signal"
	"github.com/aman-zulfiqar/solana-pool-sniper/internal/txbuilder"
)

// Buy screens an admitted pool and, when it qualifies, enters the position.
// A pool that does not qualify leaves no position behind. Once the position
// is ENTERING the swap is no longer bound to ctx; ctx still stops the monitor.
func (e *Engine) Buy(ctx context.Context, pool *models.PoolRecord) error {
	token := pool.Token()
	log := e.logger.WithFields(logrus.Fields{"mint": token, "pool": pool.ID.String()})

	if reason, ok := e.qualify(ctx, pool); !ok {
		e.deps.Positions.RemoveIf(token, models.StateNone)
		e.emit(ctx, models.Event{Kind: models.EventRejected, Mint: token, Reason: reason})
		log.WithField("reason", reason).Debug("skipping buy")
		return fmt.Errorf("%w: %s", ErrRejected, reason)
	}

	if err := sleep(ctx, e.cfg.AutoBuyDelay); err != nil {
		e.deps.Positions.RemoveIf(token, models.StateNone)
		return err
	}
	if err := e.deps.Positions.CompareAndUpdate(token, models.StateNone, models.StateEntering); err != nil {
		log.WithError(err).Warn("position changed before buy")
		return err
	}
	pos, _ := e.deps.Positions.Get(token)
	monitorCtx := ctx
	ctx = context.WithoutCancel(ctx)

	amountIn, err := amm.ToRaw(e.cfg.QuoteAmount, e.cfg.QuoteDecimals)
	if err != nil {
		return e.failBuy(ctx, pos, err)
	}
	bps := amm.PercentToBps(e.cfg.BuySlippage)

	buyCtx := ctx
	if e.cfg.MaxBuyDuration > 0 {
		var cancel context.CancelFunc
		buyCtx, cancel = context.WithTimeout(ctx, e.cfg.MaxBuyDuration)
		defer cancel()
	}

	var quote amm.Quote
	res, attempts, err := e.execute(buyCtx, models.SideBuy, e.cfg.MaxBuyRetries, log, func(ctx context.Context) (*executor.Payload, error) {
		r, err := e.deps.Reserves.FetchReserves(ctx, pool)
		if err != nil {
			return nil, err
		}
		if quote, err = amm.QuoteBuy(r, amountIn, bps); err != nil {
			return nil, err
		}
		return e.deps.Builder.Build(ctx, txbuilder.SwapRequest{
			Pool:     pool,
			Side:     models.SideBuy,
			AmountIn: amountIn,
			MinOut:   quote.MinAmountOut,
		})
	})
	if err != nil {
		if buyCtx.Err() != nil {
			err = fmt.Errorf("buy exceeded %s: %w", e.cfg.MaxBuyDuration, err)
		}
		return e.failBuy(ctx, pos, err)
	}

	entry, _, err := e.price(ctx, pool)
	if err != nil {
		// fall back to the pre-trade quote
		entry, _ = amm.SpotPrice(quote.Reserves, pool.BaseDecimals, pool.QuoteDecimals)
	}
	received := quote.AmountOut
	if bal, err := e.deps.Wallet.TokenBalance(ctx, pool.BaseMint); err == nil && bal > 0 {
		received = bal
	}

	pos, err = e.deps.Positions.Open(token, entry, e.cfg.QuoteAmount, received, e.now())
	if err != nil {
		log.WithError(err).Error("failed to open position")
		return err
	}

	e.deps.Metrics.RecordTrade(string(models.SideBuy), "confirmed")
	e.journal(ctx, &models.TradeRecord{
		PositionID:  pos.ID,
		Mint:        token,
		Pool:        pool.ID.String(),
		Side:        models.SideBuy,
		Signature:   res.Signature,
		QuoteAmount: e.cfg.QuoteAmount,
		TokenAmount: received,
		Price:       entry,
		Executor:    e.executorKind(),
		Attempts:    attempts,
		Timestamp:   pos.EntryTime,
	})
	e.emit(ctx, models.Event{Kind: models.EventBuyConfirmed, PositionID: pos.ID, Mint: token, State: pos.State, Signature: res.Signature})
	log.WithFields(logrus.Fields{
		"signature":   res.Signature,
		"entry_price": entry.String(),
		"tokens":      received,
		"attempts":    attempts,
	}).Info("buy confirmed")

	if e.cfg.AutoSell {
		go e.Monitor(monitorCtx, token)
	}
	return nil
}

// qualify runs the snipe list or the filter loop and the buy confirmer.
func (e *Engine) qualify(ctx context.Context, pool *models.PoolRecord) (string, bool) {
	token := pool.Token()
	if e.cfg.UseSnipeList {
		if !e.deps.SnipeList.Contains(token) {
			return "not on snipe list", false
		}
	} else if reason, ok := e.screen(ctx, pool); !ok {
		return reason, false
	}

	if !e.deps.Confirmer.Enabled() {
		return "", true
	}
	conf, err := e.deps.Confirmer.Confirm(ctx, func(ctx context.Context) (signal.Sample, error) {
		price, r, err := e.price(ctx, pool)
		if err != nil {
			return signal.Sample{}, err
		}
		return signal.Sample{Price: price, QuoteReserve: amm.FromRaw(r.Quote, pool.QuoteDecimals)}, nil
	})
	if err != nil {
		return "buy confirmation interrupted: " + err.Error(), false
	}
	if !conf.Confirmed {
		return "buy not confirmed: " + conf.Reason, false
	}
	return "", true
}

// screen evaluates the filter pipeline every FilterCheckInterval until it
// passes ConsecutiveFilterMatches rounds in a row. A failed round resets the
// count. Gives up after FilterCheckDuration worth of rounds.
func (e *Engine) screen(ctx context.Context, pool *models.PoolRecord) (string, bool) {
	rounds := int(e.cfg.FilterCheckDuration / e.cfg.FilterCheckInterval)
	if rounds < 1 {
		rounds = 1
	}

	matches := 0
	last := "filters did not pass"
	for i := 0; i < rounds; i++ {
		if i > 0 {
			if err := sleep(ctx, e.cfg.FilterCheckInterval); err != nil {
				return "filter check interrupted", false
			}
		}

		report := e.deps.Filters.Evaluate(ctx, pool)
		outcomes := make(map[string]string, len(report.Results))
		for _, r := range report.Results {
			outcomes[r.Filter] = r.Outcome.String()
		}
		e.deps.Metrics.RecordFilterRound(report.Passed, outcomes)

		if !report.Passed {
			matches = 0
			if failed := report.Failed(); len(failed) > 0 {
				last = fmt.Sprintf("%s: %s", failed[0].Filter, failed[0].Reason)
			}
			continue
		}
		matches++
		e.logger.WithFields(logrus.Fields{
			"mint":    pool.Token(),
			"matches": matches,
			"needed":  e.cfg.ConsecutiveFilterMatches,
		}).Debug("filters passed")
		if matches >= e.cfg.ConsecutiveFilterMatches {
			return "", true
		}
	}
	return last, false
}

func (e *Engine) failBuy(ctx context.Context, pos models.Position, cause error) error {
	reason := cause.Error()
	if _, err := e.deps.Positions.Fail(pos.Token, reason); err != nil {
		e.logger.WithError(err).WithField("mint", pos.Token).Warn("failed to mark position failed")
	}
	e.deps.Metrics.RecordTrade(string(models.SideBuy), "failed")
	e.emit(ctx, models.Event{Kind: models.EventBuyFailed, PositionID: pos.ID, Mint: pos.Token, State: models.StateFailed, Reason: reason})
	e.logger.WithError(cause).WithField("mint", pos.Token).Error("buy failed")
	return cause
}

// execute runs prepare and the executor up to retries times. Permanent
// failures stop the loop early.
func (e *Engine) execute(
	ctx context.Context,
	side models.Side,
	retries int,
	log *logrus.Entry,
	prepare func(ctx context.Context) (*executor.Payload, error),
) (executor.Result, int, error) {
	var lastErr error
	for attempt := 1; attempt <= retries; attempt++ {
		if err := ctx.Err(); err != nil {
			return executor.Result{}, attempt - 1, err
		}

		start := time.Now()
		res, err := e.attempt(ctx, prepare)
		e.deps.Metrics.RecordExecution(string(side), e.executorKind(), time.Since(start), err)
		if err == nil {
			return res, attempt, nil
		}

		lastErr = err
		entry := log.WithError(err).WithFields(logrus.Fields{"side": side, "attempt": attempt, "max": retries})
		if !executor.IsRetryable(err) {
			entry.Error("swap failed permanently")
			return executor.Result{}, attempt, err
		}
		entry.Warn("swap attempt failed")
	}
	return executor.Result{}, retries, fmt.Errorf("%s failed after %d attempts: %w", side, retries, lastErr)
}

func (e *Engine) attempt(ctx context.Context, prepare func(ctx context.Context) (*executor.Payload, error)) (executor.Result, error) {
	payload, err := prepare(ctx)
	if err != nil {
		return executor.Result{}, err
	}
	if payload == nil {
		return executor.Result{}, executor.ErrNoPayload
	}
	return e.deps.Executor.Execute(ctx, payload)
}
