package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/solana-pool-sniper/internal/models"
)

// OnPoolObserved decides whether a newly observed pool gets a position. lag
// is the delay between the pool opening and its observation, compared in
// whole seconds. On admission
// the buy runs in the background and nil is returned; every rejection wraps
// ErrRejected.
func (e *Engine) OnPoolObserved(ctx context.Context, pool *models.PoolRecord, lag time.Duration) error {
	token := pool.Token()
	lag = lag.Truncate(time.Second)
	log := e.logger.WithFields(logrus.Fields{"mint": token, "pool": pool.ID.String(), "lag": lag})

	if pos, ok := e.deps.Positions.Get(token); ok && !pos.State.Terminal() {
		return e.reject(ctx, token, "duplicate", fmt.Sprintf("position already %s", pos.State))
	}
	if limit := e.cfg.MaxTokensAtTheTime; limit > 0 {
		if n := e.deps.Positions.PendingCount(); n >= limit {
			return e.reject(ctx, token, "cap", fmt.Sprintf("%d of %d positions in use", n, limit))
		}
	}
	if e.cfg.MaxLag > 0 && lag > e.cfg.MaxLag {
		return e.reject(ctx, token, "lag", fmt.Sprintf("lag %s exceeds %s", lag, e.cfg.MaxLag))
	}
	if !e.deps.Positions.Save(token, pool) {
		return e.reject(ctx, token, "duplicate", "position admitted concurrently")
	}

	e.deps.Metrics.RecordAdmission("admitted")
	pos, _ := e.deps.Positions.Get(token)
	e.emit(ctx, models.Event{Kind: models.EventAdmitted, PositionID: pos.ID, Mint: token, State: pos.State})
	log.Info("pool admitted")

	go e.Buy(ctx, pool)
	return nil
}

func (e *Engine) reject(ctx context.Context, token, result, reason string) error {
	e.deps.Metrics.RecordAdmission(result)
	e.logger.WithFields(logrus.Fields{"mint": token, "reason": reason}).Debug("pool rejected")
	e.deps.Notifier.Notify(ctx, &models.Event{Kind: models.EventRejected, Mint: token, Reason: reason, At: e.now()})
	return fmt.Errorf("%w: %s", ErrRejected, reason)
}
