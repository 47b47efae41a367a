// Package notify reports position lifecycle events to the operator.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/solana-pool-sniper/internal/models"
	"github.com/aman-zulfiqar/solana-pool-sniper/internal/storage"
)

// Notifier receives every lifecycle event. Notify must not block for long
// and never fails the caller.
type Notifier interface {
	Notify(ctx context.Context, ev *models.Event)
}

// Log writes events to the logger.
type Log struct {
	logger *logrus.Logger
}

func NewLog(logger *logrus.Logger) *Log {
	if logger == nil {
		logger = logrus.New()
	}
	return &Log{logger: logger}
}

func (l *Log) Notify(_ context.Context, ev *models.Event) {
	fields := logrus.Fields{
		"kind": ev.Kind,
		"mint": ev.Mint,
	}
	if ev.State != "" {
		fields["state"] = ev.State
	}
	if ev.Reason != "" {
		fields["reason"] = ev.Reason
	}
	if ev.Signature != "" {
		fields["signature"] = ev.Signature
	}

	entry := l.logger.WithFields(fields)
	switch ev.Kind {
	case models.EventBuyFailed, models.EventSellFailed:
		entry.Error("position failed")
	case models.EventRejected:
		entry.Debug("pool rejected")
	case models.EventSellTriggered, models.EventSellConfirmed, models.EventSellSuppressed:
		entry.WithField("price_delta_pct", ev.PriceDeltaPct.StringFixed(2)).Info(string(ev.Kind))
	default:
		entry.Info(string(ev.Kind))
	}
}

// PubSub publishes events through Redis.
type PubSub struct {
	publisher storage.EventPublisher
	timeout   time.Duration
	logger    *logrus.Logger
}

func NewPubSub(publisher storage.EventPublisher, timeout time.Duration, logger *logrus.Logger) *PubSub {
	if logger == nil {
		logger = logrus.New()
	}
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &PubSub{publisher: publisher, timeout: timeout, logger: logger}
}

func (p *PubSub) Notify(ctx context.Context, ev *models.Event) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	defer cancel()

	if err := p.publisher.PublishEvent(ctx, ev); err != nil {
		p.logger.WithError(err).WithField("mint", ev.Mint).Warn("failed to publish event")
	}
}

// Recent keeps the last events in memory for the operator API.
type Recent struct {
	mu     sync.RWMutex
	events []models.Event
	limit  int
}

func NewRecent(limit int) *Recent {
	if limit <= 0 {
		limit = 100
	}
	return &Recent{limit: limit}
}

func (r *Recent) Notify(_ context.Context, ev *models.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = append(r.events, *ev)
	if over := len(r.events) - r.limit; over > 0 {
		r.events = append(r.events[:0:0], r.events[over:]...)
	}
}

// List returns up to limit events, newest first. limit <= 0 returns all.
func (r *Recent) List(limit int) []models.Event {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := len(r.events)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]models.Event, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, r.events[i])
	}
	return out
}

// Multi fans an event out to several notifiers in order.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, ev *models.Event) {
	for _, n := range m {
		if n != nil {
			n.Notify(ctx, ev)
		}
	}
}
