// Package engine runs the per-token buy, monitor and sell lifecycle.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/solana-pool-sniper/internal/amm"
	"github.com/aman-zulfiqar/solana-pool-sniper/internal/cache"
	"github.com/aman-zulfiqar/solana-pool-sniper/internal/executor"
	"github.com/aman-zulfiqar/solana-pool-sniper/internal/filters"
	"github.com/aman-zulfiqar/solana-pool-sniper/internal/metrics"
	"github.com/aman-zulfiqar/solana-pool-sniper/internal/models"
	"github.com/aman-zulfiqar/solana-pool-sniper/internal/notify"
	"github.com/aman-zulfiqar/solana-pool-sniper/internal/signal"
	"github.com/aman-zulfiqar/solana-pool-sniper/internal/txbuilder"
)

var (
	// ErrRejected wraps every admission rejection.
	ErrRejected = errors.New("rejected")
	// ErrSellFailed is returned once a sell exhausted its retries.
	ErrSellFailed = errors.New("sell failed")
)

// ReserveSource reads the current vault balances of a pool.
type ReserveSource interface {
	FetchReserves(ctx context.Context, pool *models.PoolRecord) (amm.Reserves, error)
}

// SwapBuilder returns a signed swap transaction.
type SwapBuilder interface {
	Build(ctx context.Context, req txbuilder.SwapRequest) (*executor.Payload, error)
}

// Executor lands transactions.
type Executor interface {
	Kind() executor.Kind
	Execute(ctx context.Context, p *executor.Payload) (executor.Result, error)
}

// Screener runs one filter round.
type Screener interface {
	Evaluate(ctx context.Context, pool *models.PoolRecord) filters.Report
}

// Membership reports whether a mint is on a list.
type Membership interface {
	Contains(entry string) bool
}

// Wallet is the trading wallet.
type Wallet interface {
	PublicKey() solana.PublicKey
	TokenAccount(mint solana.PublicKey) (solana.PublicKey, error)
	TokenBalance(ctx context.Context, mint solana.PublicKey) (uint64, error)
}

// TradeJournal persists confirmed trades.
type TradeJournal interface {
	InsertTrade(ctx context.Context, trade *models.TradeRecord) error
}

// Config holds every behavioral knob of the engine. Percentages are plain
// percent values (10 = 10%); zero disables a percent rule.
type Config struct {
	QuoteMint     solana.PublicKey
	QuoteDecimals uint8
	QuoteAmount   decimal.Decimal

	// MaxLag of zero disables the lag check.
	MaxLag time.Duration
	// MaxTokensAtTheTime of zero means unlimited.
	MaxTokensAtTheTime int
	UseSnipeList       bool

	AutoBuyDelay  time.Duration
	MaxBuyRetries int
	// MaxBuyDuration caps the buy retry loop in wall-clock time; zero
	// leaves it bounded by the retries alone.
	MaxBuyDuration time.Duration
	BuySlippage    decimal.Decimal

	AutoSell       bool
	AutoSellDelay  time.Duration
	MaxSellRetries int
	SellSlippage   decimal.Decimal

	PriceCheckInterval  time.Duration
	PriceCheckDuration  time.Duration
	PriceCheckForceExit bool

	TakeProfit                decimal.Decimal
	StopLoss                  decimal.Decimal
	TrailingStopLoss          bool
	SkipSellingIfLostMoreThan decimal.Decimal
	AutoSellWithoutSellSignal bool
	UseTA                     bool

	FilterCheckInterval      time.Duration
	FilterCheckDuration      time.Duration
	ConsecutiveFilterMatches int

	// JournalTimeout bounds trade journal writes.
	JournalTimeout time.Duration
}

// DefaultConfig returns the defaults of a fresh installation.
func DefaultConfig() Config {
	return Config{
		QuoteMint:                 solana.WrappedSol,
		QuoteDecimals:             9,
		QuoteAmount:               decimal.RequireFromString("0.01"),
		MaxBuyRetries:             10,
		BuySlippage:               decimal.NewFromInt(20),
		AutoSell:                  true,
		MaxSellRetries:            10,
		SellSlippage:              decimal.NewFromInt(20),
		PriceCheckInterval:        2 * time.Second,
		PriceCheckDuration:        10 * time.Minute,
		TakeProfit:                decimal.NewFromInt(40),
		StopLoss:                  decimal.NewFromInt(20),
		AutoSellWithoutSellSignal: true,
		FilterCheckInterval:       2 * time.Second,
		FilterCheckDuration:       time.Minute,
		ConsecutiveFilterMatches:  3,
		JournalTimeout:            5 * time.Second,
	}
}

func (c Config) Validate() error {
	hundred := decimal.NewFromInt(100)
	if !c.QuoteAmount.IsPositive() {
		return fmt.Errorf("quote amount must be positive")
	}
	if c.MaxBuyRetries < 1 || c.MaxSellRetries < 1 {
		return fmt.Errorf("buy and sell retries must be at least 1")
	}
	if c.MaxTokensAtTheTime < 0 || c.MaxLag < 0 || c.MaxBuyDuration < 0 {
		return fmt.Errorf("max tokens, max lag and max buy duration must not be negative")
	}
	for name, pct := range map[string]decimal.Decimal{
		"buy slippage":  c.BuySlippage,
		"sell slippage": c.SellSlippage,
		"stop loss":     c.StopLoss,
	} {
		if pct.IsNegative() || pct.GreaterThan(hundred) {
			return fmt.Errorf("%s must be within [0, 100]", name)
		}
	}
	if c.TakeProfit.IsNegative() || c.SkipSellingIfLostMoreThan.IsNegative() {
		return fmt.Errorf("take profit and skip selling threshold must not be negative")
	}
	if c.AutoSell && (c.PriceCheckInterval <= 0 || c.PriceCheckDuration <= 0) {
		return fmt.Errorf("price check interval and duration must be positive")
	}
	if !c.UseSnipeList {
		if c.FilterCheckInterval <= 0 || c.FilterCheckDuration <= 0 {
			return fmt.Errorf("filter check interval and duration must be positive")
		}
		if c.ConsecutiveFilterMatches < 1 {
			return fmt.Errorf("consecutive filter matches must be at least 1")
		}
	}
	return nil
}

// Deps are the collaborators of the engine. Journal, Notifier, Metrics,
// Confirmer and SnipeList are optional.
type Deps struct {
	Positions *cache.PositionCache
	Reserves  ReserveSource
	Builder   SwapBuilder
	Executor  Executor
	Wallet    Wallet
	Filters   Screener
	Signals   *signal.Engine
	Confirmer *signal.BuyConfirmer
	SnipeList Membership
	Journal   TradeJournal
	Notifier  notify.Notifier
	Metrics   *metrics.Metrics
	Logger    *logrus.Logger
}

// Engine is the trading engine.
type Engine struct {
	cfg    Config
	deps   Deps
	policy Policy
	logger *logrus.Logger
	now    func() time.Time
}

func New(cfg Config, deps Deps) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid engine config: %w", err)
	}
	switch {
	case deps.Positions == nil:
		return nil, fmt.Errorf("engine: position cache is required")
	case deps.Reserves == nil || deps.Builder == nil || deps.Executor == nil || deps.Wallet == nil:
		return nil, fmt.Errorf("engine: reserves, builder, executor and wallet are required")
	case !cfg.UseSnipeList && deps.Filters == nil:
		return nil, fmt.Errorf("engine: filters are required when the snipe list is off")
	case cfg.UseSnipeList && deps.SnipeList == nil:
		return nil, fmt.Errorf("engine: snipe list is required when enabled")
	case (cfg.UseTA || !cfg.AutoSellWithoutSellSignal) && deps.Signals == nil:
		return nil, fmt.Errorf("engine: signal engine is required for technical exits")
	}
	if deps.Logger == nil {
		deps.Logger = logrus.New()
	}
	if deps.Notifier == nil {
		deps.Notifier = notify.NewLog(deps.Logger)
	}
	if cfg.JournalTimeout <= 0 {
		cfg.JournalTimeout = 5 * time.Second
	}

	return &Engine{
		cfg:    cfg,
		deps:   deps,
		policy: NewPolicy(cfg, deps.Signals),
		logger: deps.Logger,
		now:    time.Now,
	}, nil
}

func (e *Engine) executorKind() string {
	return string(e.deps.Executor.Kind())
}

// price returns the spot price and the reserves it was computed from.
func (e *Engine) price(ctx context.Context, pool *models.PoolRecord) (decimal.Decimal, amm.Reserves, error) {
	r, err := e.deps.Reserves.FetchReserves(ctx, pool)
	if err != nil {
		return decimal.Zero, amm.Reserves{}, err
	}
	p, err := amm.SpotPrice(r, pool.BaseDecimals, pool.QuoteDecimals)
	if err != nil {
		return decimal.Zero, r, err
	}
	return p, r, nil
}

func (e *Engine) emit(ctx context.Context, ev models.Event) {
	if ev.At.IsZero() {
		ev.At = e.now()
	}
	e.deps.Notifier.Notify(ctx, &ev)
	e.deps.Metrics.SetPositions(e.deps.Positions.ActiveCount(), e.deps.Positions.PendingCount())
}

func (e *Engine) journal(ctx context.Context, trade *models.TradeRecord) {
	if e.deps.Journal == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.cfg.JournalTimeout)
	defer cancel()
	if err := e.deps.Journal.InsertTrade(ctx, trade); err != nil {
		e.logger.WithError(err).WithField("mint", trade.Mint).Warn("failed to journal trade")
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
