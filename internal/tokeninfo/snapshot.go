package tokeninfo

import (
	"context"
	"sync"

	"github.com/aman-zulfiqar/solana-pool-sniper/internal/layout"
	"github.com/aman-zulfiqar/solana-pool-sniper/internal/models"
)

type lazy[T any] struct {
	once sync.Once
	v    T
	err  error
}

func (l *lazy[T]) get(fn func() (T, error)) (T, error) {
	l.once.Do(func() { l.v, l.err = fn() })
	return l.v, l.err
}

// Snapshot memoizes token data for one filter round, so filters that need
// the same account share a single lookup.
type Snapshot struct {
	src  Source
	pool *models.PoolRecord

	mint         lazy[*layout.Mint]
	metadata     lazy[*layout.Metadata]
	lpSupply     lazy[uint64]
	holders      lazy[[]Holder]
	baseReserve  lazy[uint64]
	quoteReserve lazy[uint64]
	socials      lazy[map[string]string]
}

func NewSnapshot(src Source, pool *models.PoolRecord) *Snapshot {
	return &Snapshot{src: src, pool: pool}
}

func (s *Snapshot) Pool() *models.PoolRecord { return s.pool }

func (s *Snapshot) Mint(ctx context.Context) (*layout.Mint, error) {
	return s.mint.get(func() (*layout.Mint, error) { return s.src.Mint(ctx, s.pool.BaseMint) })
}

func (s *Snapshot) Metadata(ctx context.Context) (*layout.Metadata, error) {
	return s.metadata.get(func() (*layout.Metadata, error) { return s.src.Metadata(ctx, s.pool.BaseMint) })
}

func (s *Snapshot) LPSupply(ctx context.Context) (uint64, error) {
	return s.lpSupply.get(func() (uint64, error) { return s.src.Supply(ctx, s.pool.LPMint) })
}

func (s *Snapshot) Holders(ctx context.Context) ([]Holder, error) {
	return s.holders.get(func() ([]Holder, error) { return s.src.LargestHolders(ctx, s.pool.BaseMint) })
}

func (s *Snapshot) BaseReserve(ctx context.Context) (uint64, error) {
	return s.baseReserve.get(func() (uint64, error) { return s.src.Balance(ctx, s.pool.BaseVault) })
}

func (s *Snapshot) QuoteReserve(ctx context.Context) (uint64, error) {
	return s.quoteReserve.get(func() (uint64, error) { return s.src.Balance(ctx, s.pool.QuoteVault) })
}

// Socials loads the off-chain links named by the metadata uri.
func (s *Snapshot) Socials(ctx context.Context) (map[string]string, error) {
	return s.socials.get(func() (map[string]string, error) {
		md, err := s.Metadata(ctx)
		if err != nil {
			return nil, err
		}
		return s.src.Socials(ctx, md.URI)
	})
}
