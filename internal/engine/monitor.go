package engine

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/solana-pool-sniper/internal/models"
)

// Monitor samples the price of an OPEN position every PriceCheckInterval
// and sells when an exit rule fires. It returns as soon as the position
// leaves OPEN or ctx is done. When PriceCheckDuration elapses without an
// exit the position is sold if PriceCheckForceExit is set, otherwise the
// budget starts over.
func (e *Engine) Monitor(ctx context.Context, token string) {
	pos, ok := e.deps.Positions.Get(token)
	if !ok || pos.State != models.StateOpen {
		return
	}
	done := e.deps.Positions.Watch(token)
	log := e.logger.WithFields(logrus.Fields{"mint": token, "position": pos.ID})
	log.Debug("monitoring position")

	ticker := time.NewTicker(e.cfg.PriceCheckInterval)
	defer ticker.Stop()
	deadline := e.now().Add(e.cfg.PriceCheckDuration)

	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			return
		case <-ticker.C:
		}

		price, _, err := e.price(ctx, pos.Pool)
		if err != nil {
			log.WithError(err).Debug("price check failed")
			continue
		}
		now := e.now()
		pos, series, err := e.deps.Positions.AppendPrice(token, models.PricePoint{Price: price, At: now})
		if err != nil {
			return
		}

		dec := e.policy.Decide(pos, series, price)
		log.WithFields(logrus.Fields{
			"price":  price.String(),
			"delta":  pos.PriceDeltaPct(price).StringFixed(2),
			"action": dec.Action,
		}).Trace("price check")

		switch dec.Action {
		case ActionSuppress:
			if err := e.deps.Positions.SuppressSell(token); err != nil {
				return
			}
			e.emit(ctx, models.Event{
				Kind:          models.EventSellSuppressed,
				PositionID:    pos.ID,
				Mint:          token,
				State:         pos.State,
				Reason:        dec.Reason,
				PriceDeltaPct: pos.PriceDeltaPct(price),
			})
			log.WithField("reason", dec.Reason).Warn("selling suppressed")
			continue
		case ActionSell:
			e.sellPosition(ctx, pos, dec.Reason)
			return
		}

		if now.Before(deadline) {
			continue
		}
		if e.cfg.PriceCheckForceExit && !pos.SellSuppressed {
			e.sellPosition(ctx, pos, "price check duration elapsed")
			return
		}
		deadline = now.Add(e.cfg.PriceCheckDuration)
	}
}

func (e *Engine) sellPosition(ctx context.Context, pos models.Position, reason string) {
	account := &models.TokenAccount{
		Mint:   pos.Pool.BaseMint,
		Owner:  e.deps.Wallet.PublicKey(),
		Amount: pos.TokenBalance,
	}
	if ata, err := e.deps.Wallet.TokenAccount(pos.Pool.BaseMint); err == nil {
		account.Address = ata
	}
	if err := e.Sell(ctx, account, reason); err != nil {
		e.logger.WithError(err).WithField("mint", pos.Token).Error("sell failed")
	}
}
