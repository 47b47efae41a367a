package stream

import (
	"context"
	"errors"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/solana-pool-sniper/internal/cache"
	"github.com/aman-zulfiqar/solana-pool-sniper/internal/engine"
	"github.com/aman-zulfiqar/solana-pool-sniper/internal/layout"
	"github.com/aman-zulfiqar/solana-pool-sniper/internal/metrics"
	"github.com/aman-zulfiqar/solana-pool-sniper/internal/models"
)

// PoolObserver receives newly discovered pools.
type PoolObserver interface {
	OnPoolObserved(ctx context.Context, pool *models.PoolRecord, lag time.Duration) error
}

// WalletObserver receives balance changes of the wallet's token accounts.
type WalletObserver interface {
	HandleWalletUpdate(ctx context.Context, account *models.TokenAccount)
}

// DispatcherConfig wires decoded updates to their consumers.
type DispatcherConfig struct {
	Pools     *cache.PoolCache
	Markets   *cache.MarketCache
	Engine    PoolObserver
	Wallet    WalletObserver
	Owner     solana.PublicKey
	QuoteMint solana.PublicKey
	// StartedAt drops pools that opened before the process started.
	StartedAt time.Time
	Metrics   *metrics.Metrics
	Logger    *logrus.Logger
}

// Dispatcher decodes raw account updates.
type Dispatcher struct {
	cfg    DispatcherConfig
	logger *logrus.Logger
	now    func() time.Time
}

func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.StartedAt.IsZero() {
		cfg.StartedAt = time.Now()
	}
	return &Dispatcher{cfg: cfg, logger: cfg.Logger, now: time.Now}
}

// HandlePool caches a pool the first time it is seen and hands it to the
// engine. The pool is cached before any admission check runs.
func (d *Dispatcher) HandlePool(ctx context.Context, upd AccountUpdate) {
	pool, err := layout.DecodePool(upd.Pubkey, upd.Data)
	if err != nil {
		d.logger.WithError(err).WithField("pool", upd.Pubkey.String()).Debug("skipping pool")
		return
	}
	if pool.OpenTime.Unix() <= d.cfg.StartedAt.Unix() {
		return
	}
	if !d.cfg.Pools.Save(pool) {
		return
	}
	d.cfg.Metrics.RecordPoolObserved()

	now := d.now()
	lag := pool.Lag(now)
	d.logger.WithFields(logrus.Fields{
		"mint": pool.Token(),
		"pool": pool.ID.String(),
		"lag":  lag,
	}).Debug("new pool")

	if err := d.cfg.Engine.OnPoolObserved(ctx, pool, lag); err != nil && !errors.Is(err, engine.ErrRejected) {
		d.logger.WithError(err).WithField("mint", pool.Token()).Warn("pool not admitted")
	}
}

// HandleMarket caches an OpenBook market for later swap building.
func (d *Dispatcher) HandleMarket(_ context.Context, upd AccountUpdate) {
	market, err := layout.DecodeMarket(upd.Pubkey, upd.Data)
	if err != nil {
		d.logger.WithError(err).WithField("market", upd.Pubkey.String()).Debug("skipping market")
		return
	}
	if d.cfg.Markets.Save(market) {
		d.cfg.Metrics.RecordMarketCached()
	}
}

// HandleWallet forwards balance changes of non-quote token accounts owned
// by the wallet.
func (d *Dispatcher) HandleWallet(ctx context.Context, upd AccountUpdate) {
	account, err := layout.DecodeTokenAccount(upd.Pubkey, upd.Data)
	if err != nil {
		d.logger.WithError(err).WithField("account", upd.Pubkey.String()).Debug("skipping token account")
		return
	}
	if !account.Owner.Equals(d.cfg.Owner) || account.Mint.Equals(d.cfg.QuoteMint) {
		return
	}
	d.cfg.Wallet.HandleWalletUpdate(ctx, account)
}

// consume applies handle to every update in order until in is closed or
// ctx is done.
func consume(ctx context.Context, in <-chan AccountUpdate, handle func(context.Context, AccountUpdate)) {
	for {
		select {
		case <-ctx.Done():
			return
		case upd, ok := <-in:
			if !ok {
				return
			}
			handle(ctx, upd)
		}
	}
}
