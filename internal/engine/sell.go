package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/solana-pool-sniper/internal/amm"
	"github.com/aman-zulfiqar/solana-pool-sniper/internal/executor"
	"github.com/aman-zulfiqar/solana-pool-sniper/internal/models"
	"github.com/aman-zulfiqar/solana-pool-sniper/internal/txbuilder"
)

// Sell exits the position holding account. Accounts of the quote mint and
// tokens without an OPEN position are skipped; only the caller that moves
// the position from OPEN to EXITING proceeds. A sell that exhausts its
// retries leaves the position FAILED and returns ErrSellFailed.
func (e *Engine) Sell(ctx context.Context, account *models.TokenAccount, reason string) error {
	if account.Mint.Equals(e.cfg.QuoteMint) {
		return nil
	}
	token := account.Mint.String()
	log := e.logger.WithFields(logrus.Fields{"mint": token, "reason": reason})

	pos, ok := e.deps.Positions.Get(token)
	if !ok || (pos.State != models.StateOpen && pos.State != models.StateExiting) {
		log.Debug("no open position to sell")
		return nil
	}
	if err := e.deps.Positions.CompareAndUpdate(token, models.StateOpen, models.StateExiting); err != nil {
		log.WithError(err).Debug("sell already in progress")
		return nil
	}
	ctx = context.WithoutCancel(ctx)
	pool := pos.Pool

	e.emit(ctx, models.Event{
		Kind:          models.EventSellTriggered,
		PositionID:    pos.ID,
		Mint:          token,
		State:         models.StateExiting,
		Reason:        reason,
		PriceDeltaPct: pos.PriceDeltaPct(pos.LastPrice),
	})
	log.WithField("delta", pos.PriceDeltaPct(pos.LastPrice).StringFixed(2)).Info("selling")

	amount := account.Amount
	if amount == 0 {
		amount = pos.TokenBalance
	}
	if amount == 0 {
		bal, err := e.deps.Wallet.TokenBalance(ctx, pool.BaseMint)
		if err != nil {
			return e.failSell(ctx, pos, fmt.Errorf("read token balance: %w", err))
		}
		amount = bal
	}
	if amount == 0 {
		return e.failSell(ctx, pos, fmt.Errorf("no %s balance to sell", token))
	}

	time.Sleep(e.cfg.AutoSellDelay)

	bps := amm.PercentToBps(e.cfg.SellSlippage)
	var quote amm.Quote
	res, attempts, err := e.execute(ctx, models.SideSell, e.cfg.MaxSellRetries, log, func(ctx context.Context) (*executor.Payload, error) {
		r, err := e.deps.Reserves.FetchReserves(ctx, pool)
		if err != nil {
			return nil, err
		}
		if quote, err = amm.QuoteSell(r, amount, bps); err != nil {
			return nil, err
		}
		return e.deps.Builder.Build(ctx, txbuilder.SwapRequest{
			Pool:     pool,
			Side:     models.SideSell,
			AmountIn: amount,
			MinOut:   quote.MinAmountOut,
		})
	})
	if err != nil {
		return e.failSell(ctx, pos, err)
	}

	exit, _ := amm.SpotPrice(quote.Reserves, pool.BaseDecimals, pool.QuoteDecimals)
	closed, err := e.deps.Positions.Close(token, exit)
	if err != nil {
		log.WithError(err).Error("failed to close position")
		return err
	}
	pnl := closed.PriceDeltaPct(exit)

	e.deps.Metrics.RecordTrade(string(models.SideSell), "confirmed")
	e.deps.Metrics.RecordPnL(pnl.InexactFloat64())
	e.journal(ctx, &models.TradeRecord{
		PositionID:  closed.ID,
		Mint:        token,
		Pool:        pool.ID.String(),
		Side:        models.SideSell,
		Signature:   res.Signature,
		QuoteAmount: amm.FromRaw(quote.AmountOut, pool.QuoteDecimals),
		TokenAmount: amount,
		Price:       exit,
		PnLPct:      pnl,
		Executor:    e.executorKind(),
		Attempts:    attempts,
		Timestamp:   e.now(),
	})
	e.emit(ctx, models.Event{
		Kind:          models.EventSellConfirmed,
		PositionID:    closed.ID,
		Mint:          token,
		State:         closed.State,
		Reason:        reason,
		Signature:     res.Signature,
		PriceDeltaPct: pnl,
	})
	log.WithFields(logrus.Fields{
		"signature": res.Signature,
		"pnl_pct":   pnl.StringFixed(2),
		"attempts":  attempts,
	}).Info("sell confirmed")
	return nil
}

func (e *Engine) failSell(ctx context.Context, pos models.Position, cause error) error {
	if _, err := e.deps.Positions.Fail(pos.Token, cause.Error()); err != nil {
		e.logger.WithError(err).WithField("mint", pos.Token).Warn("failed to mark position failed")
	}
	e.deps.Metrics.RecordTrade(string(models.SideSell), "failed")
	e.emit(ctx, models.Event{
		Kind:       models.EventSellFailed,
		PositionID: pos.ID,
		Mint:       pos.Token,
		State:      models.StateFailed,
		Reason:     cause.Error(),
	})
	return fmt.Errorf("%w: %s: %w", ErrSellFailed, pos.Token, cause)
}
