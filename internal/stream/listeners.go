package stream

import (
	"context"
	"encoding/binary"
	"sync"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/solana-pool-sniper/internal/constants"
	"github.com/aman-zulfiqar/solana-pool-sniper/internal/layout"
	"github.com/aman-zulfiqar/solana-pool-sniper/internal/metrics"
	"github.com/aman-zulfiqar/solana-pool-sniper/internal/rpc"
)

// updateBuffer absorbs bursts between a subscriber and its consumer.
const updateBuffer = 1024

// PoolFilters match tradable Raydium v4 pools quoted in quoteMint on OpenBook.
func PoolFilters(quoteMint solana.PublicKey) []rpc.Filter {
	status := make([]byte, 8)
	binary.LittleEndian.PutUint64(status, layout.PoolStatusSwapOnly)
	return []rpc.Filter{
		{DataSize: constants.RaydiumPoolV4Size},
		{Memcmp: &rpc.Memcmp{Offset: layout.PoolQuoteMintOffset, Bytes: quoteMint.String()}},
		{Memcmp: &rpc.Memcmp{Offset: layout.PoolMarketProgramIDOffset, Bytes: constants.OpenBookProgram.String()}},
		{Memcmp: &rpc.Memcmp{Offset: 0, Bytes: base58.Encode(status)}},
	}
}

// MarketFilters match OpenBook v3 markets quoted in quoteMint.
func MarketFilters(quoteMint solana.PublicKey) []rpc.Filter {
	return []rpc.Filter{
		{DataSize: constants.MarketV3Size},
		{Memcmp: &rpc.Memcmp{Offset: layout.MarketQuoteMintOffset, Bytes: quoteMint.String()}},
	}
}

// WalletFilters match SPL token accounts owned by owner.
func WalletFilters(owner solana.PublicKey) []rpc.Filter {
	return []rpc.Filter{
		{DataSize: constants.TokenAccountSize},
		{Memcmp: &rpc.Memcmp{Offset: layout.TokenAccountOwnerOffset, Bytes: owner.String()}},
	}
}

// ListenersConfig selects the streams to run.
type ListenersConfig struct {
	Endpoint        string
	Commitment      string
	QuoteMint       solana.PublicKey
	Owner           solana.PublicKey
	CacheNewMarkets bool
	// Timings are copied into every subscriber.
	Timings SubscriberConfig
	Metrics *metrics.Metrics
	Logger  *logrus.Logger
}

// Listeners runs the pool, wallet and optional market streams.
type Listeners struct {
	cfg        ListenersConfig
	dispatcher *Dispatcher
}

func NewListeners(cfg ListenersConfig, dispatcher *Dispatcher) *Listeners {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	return &Listeners{cfg: cfg, dispatcher: dispatcher}
}

type listener struct {
	sub    SubscriberConfig
	handle func(context.Context, AccountUpdate)
}

func (l *Listeners) listeners() []listener {
	base := l.cfg.Timings
	base.Endpoint = l.cfg.Endpoint
	base.Commitment = l.cfg.Commitment
	base.Metrics = l.cfg.Metrics
	base.Logger = l.cfg.Logger

	pools := base
	pools.Name = "pools"
	pools.Program = constants.RaydiumLiquidityPoolV4
	pools.Filters = PoolFilters(l.cfg.QuoteMint)

	wallet := base
	wallet.Name = "wallet"
	wallet.Program = solana.TokenProgramID
	wallet.Filters = WalletFilters(l.cfg.Owner)

	out := []listener{
		{sub: pools, handle: l.dispatcher.HandlePool},
		{sub: wallet, handle: l.dispatcher.HandleWallet},
	}
	if l.cfg.CacheNewMarkets {
		markets := base
		markets.Name = "markets"
		markets.Program = constants.OpenBookProgram
		markets.Filters = MarketFilters(l.cfg.QuoteMint)
		out = append(out, listener{sub: markets, handle: l.dispatcher.HandleMarket})
	}
	return out
}

// Run blocks until ctx is done. Each stream has its own connection and a
// single consumer, so updates of one stream are handled in order.
func (l *Listeners) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, ln := range l.listeners() {
		ch := make(chan AccountUpdate, updateBuffer)
		sub := NewProgramSubscriber(ln.sub)

		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = sub.Run(ctx, ch)
		}()
		go func(handle func(context.Context, AccountUpdate)) {
			defer wg.Done()
			consume(ctx, ch, handle)
		}(ln.handle)

		l.cfg.Logger.WithField("stream", ln.sub.Name).Info("listening")
	}
	wg.Wait()
}
