package cache

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aman-zulfiqar/solana-pool-sniper/internal/models"
)

func testPool() *models.PoolRecord {
	return &models.PoolRecord{
		ID:       solana.NewWallet().PublicKey(),
		BaseMint: solana.NewWallet().PublicKey(),
	}
}

func openPosition(t *testing.T, c *PositionCache, price int64) (string, models.Position) {
	pool := testPool()
	token := pool.Token()
	require.True(t, c.Save(token, pool))
	require.NoError(t, c.UpdateState(token, models.StateEntering))
	pos, err := c.Open(token, decimal.NewFromInt(price), decimal.NewFromInt(1), 1000, time.Now())
	require.NoError(t, err)
	return token, pos
}

func TestPositionCache_SaveFirstWriterWins(t *testing.T) {
	c := NewPositionCache(0)
	pool := testPool()
	token := pool.Token()

	assert.True(t, c.Save(token, pool))
	assert.False(t, c.Save(token, pool))

	pos, ok := c.Get(token)
	require.True(t, ok)
	assert.Equal(t, models.StateNone, pos.State)
	assert.NotEmpty(t, pos.ID)

	// a terminal position can be replaced by a new admission
	require.NoError(t, c.UpdateState(token, models.StateFailed))
	assert.True(t, c.Save(token, pool))
	again, _ := c.Get(token)
	assert.NotEqual(t, pos.ID, again.ID)
}

func TestPositionCache_ConcurrentAdmission(t *testing.T) {
	c := NewPositionCache(0)

	const tokens = 20
	const writersPerToken = 25

	pools := make([]*models.PoolRecord, tokens)
	for i := range pools {
		pools[i] = testPool()
	}

	var wins [tokens]atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < tokens; i++ {
		for j := 0; j < writersPerToken; j++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				if c.Save(pools[i].Token(), pools[i]) {
					wins[i].Add(1)
				}
			}(i)
		}
	}
	wg.Wait()

	for i := range wins {
		assert.Equal(t, int32(1), wins[i].Load(), "token %d", i)
	}
	assert.Equal(t, tokens, c.PendingCount())
	assert.Equal(t, 0, c.ActiveCount())
}

func TestPositionCache_Transitions(t *testing.T) {
	c := NewPositionCache(0)
	pool := testPool()
	token := pool.Token()
	require.True(t, c.Save(token, pool))

	err := c.UpdateState(token, models.StateOpen)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	require.NoError(t, c.UpdateState(token, models.StateEntering))
	assert.Equal(t, 1, c.ActiveCount())

	pos, err := c.Open(token, decimal.NewFromFloat(0.5), decimal.NewFromInt(1), 42, time.Unix(100, 0))
	require.NoError(t, err)
	assert.Equal(t, models.StateOpen, pos.State)
	assert.True(t, pos.HighestPrice.Equal(decimal.NewFromFloat(0.5)))
	assert.Equal(t, uint64(42), pos.TokenBalance)

	err = c.CompareAndUpdate(token, models.StateEntering, models.StateExiting)
	assert.ErrorIs(t, err, ErrStateMismatch)

	require.NoError(t, c.CompareAndUpdate(token, models.StateOpen, models.StateExiting))
	err = c.CompareAndUpdate(token, models.StateOpen, models.StateExiting)
	assert.ErrorIs(t, err, ErrStateMismatch)

	// EXITING never returns to OPEN
	assert.ErrorIs(t, c.UpdateState(token, models.StateOpen), ErrInvalidTransition)

	closed, err := c.Close(token, decimal.NewFromInt(1))
	require.NoError(t, err)
	assert.Equal(t, models.StateClosed, closed.State)
	assert.Equal(t, 0, c.ActiveCount())
	assert.Equal(t, 0, c.PendingCount())

	assert.ErrorIs(t, c.UpdateState("missing", models.StateEntering), ErrNotFound)
}

func TestPositionCache_AppendPrice(t *testing.T) {
	c := NewPositionCache(3)
	token, _ := openPosition(t, c, 10)

	for i, p := range []int64{11, 15, 12, 13} {
		pos, series, err := c.AppendPrice(token, models.PricePoint{Price: decimal.NewFromInt(p), At: time.Unix(int64(i), 0)})
		require.NoError(t, err)
		assert.True(t, pos.LastPrice.Equal(decimal.NewFromInt(p)))
		assert.LessOrEqual(t, len(series), 3)
	}

	pos, _ := c.Get(token)
	assert.True(t, pos.HighestPrice.Equal(decimal.NewFromInt(15)))

	series := c.Series(token)
	require.Len(t, series, 3)
	assert.True(t, series[0].Price.Equal(decimal.NewFromInt(15)))
	assert.True(t, series[2].Price.Equal(decimal.NewFromInt(13)))

	require.NoError(t, c.UpdateState(token, models.StateExiting))
	_, _, err := c.AppendPrice(token, models.PricePoint{Price: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, ErrStateMismatch)

	_, err = c.Fail(token, "sell retries exhausted")
	require.NoError(t, err)
	assert.Empty(t, c.Series(token))
}

func TestPositionCache_Watch(t *testing.T) {
	c := NewPositionCache(0)
	token, _ := openPosition(t, c, 1)

	ch := c.Watch(token)
	select {
	case <-ch:
		t.Fatal("watch closed while position is OPEN")
	default:
	}

	require.NoError(t, c.UpdateState(token, models.StateExiting))

	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("watch not closed after leaving OPEN")
	}

	select {
	case <-c.Watch("unknown"):
	default:
		t.Fatal("watch of unknown token should be closed")
	}
}

func TestPositionCache_RemoveIf(t *testing.T) {
	c := NewPositionCache(0)
	pool := testPool()
	token := pool.Token()
	require.True(t, c.Save(token, pool))

	assert.False(t, c.RemoveIf(token, models.StateOpen))
	assert.True(t, c.RemoveIf(token, models.StateNone))
	_, ok := c.Get(token)
	assert.False(t, ok)
}

func TestPositionCache_Snapshot(t *testing.T) {
	c := NewPositionCache(0)
	for i := 0; i < 5; i++ {
		openPosition(t, c, int64(i+1))
	}
	snap := c.Snapshot()
	assert.Len(t, snap, 5)
	for _, p := range snap {
		assert.Equal(t, models.StateOpen, p.State, fmt.Sprintf("token %s", p.Token))
	}
}

func TestPoolCache_FirstSeenWins(t *testing.T) {
	c := NewPoolCache()
	first := testPool()
	second := &models.PoolRecord{ID: solana.NewWallet().PublicKey(), BaseMint: first.BaseMint}

	assert.True(t, c.Save(first))
	assert.False(t, c.Save(second))

	got, ok := c.Get(first.Token())
	require.True(t, ok)
	assert.Equal(t, first.ID, got.ID)
	assert.Equal(t, 1, c.Len())
}

func TestMarketCache(t *testing.T) {
	c := NewMarketCache()
	m := &models.MarketRecord{ID: solana.NewWallet().PublicKey()}

	assert.True(t, c.Save(m))
	assert.False(t, c.Save(&models.MarketRecord{ID: m.ID, VaultSignerNonce: 9}))

	got, ok := c.Get(m.ID.String())
	require.True(t, ok)
	assert.Equal(t, uint64(0), got.VaultSignerNonce)
}
