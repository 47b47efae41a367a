package cache

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/aman-zulfiqar/solana-pool-sniper/internal/models"
)

var (
	ErrNotFound          = errors.New("position not found")
	ErrInvalidTransition = errors.New("invalid position transition")
	ErrStateMismatch     = errors.New("position state changed")
)

type positionEntry struct {
	pos    models.Position
	series []models.PricePoint
	// leftOpen is closed when the position moves out of OPEN.
	leftOpen chan struct{}
}

// PositionCache owns positions and their price series. All operations on a
// single token are atomic; tokens on different shards never contend.
type PositionCache struct {
	items      *shardedMap[*positionEntry]
	windowSize int
}

// NewPositionCache creates a cache whose price series keep at most windowSize
// samples. A windowSize of zero keeps every sample.
func NewPositionCache(windowSize int) *PositionCache {
	return &PositionCache{
		items:      newShardedMap[*positionEntry](defaultShards),
		windowSize: windowSize,
	}
}

// Get returns a copy of the position for token.
func (c *PositionCache) Get(token string) (models.Position, bool) {
	var (
		out models.Position
		ok  bool
	)
	c.items.view(token, func(items map[string]*positionEntry) {
		e, found := items[token]
		if !found {
			return
		}
		out, ok = e.pos, true
	})
	return out, ok
}

// Save admits token in state NONE. The first writer wins: it returns false
// when a non-terminal position already exists. A terminal position is replaced.
func (c *PositionCache) Save(token string, pool *models.PoolRecord) bool {
	stored := false
	c.items.update(token, func(items map[string]*positionEntry) {
		if e, ok := items[token]; ok && !e.pos.State.Terminal() {
			return
		}
		now := time.Now()
		items[token] = &positionEntry{
			pos: models.Position{
				ID:        uuid.NewString(),
				Token:     token,
				Pool:      pool,
				State:     models.StateNone,
				CreatedAt: now,
				UpdatedAt: now,
			},
		}
		stored = true
	})
	return stored
}

// UpdateState moves token to next if the transition is legal.
func (c *PositionCache) UpdateState(token string, next models.PositionState) error {
	return c.mutate(token, func(e *positionEntry) error {
		return c.transition(e, next)
	})
}

// CompareAndUpdate moves token from expected to next. It returns
// ErrStateMismatch when the current state is not expected.
func (c *PositionCache) CompareAndUpdate(token string, expected, next models.PositionState) error {
	return c.mutate(token, func(e *positionEntry) error {
		if e.pos.State != expected {
			return fmt.Errorf("%w: %s is %s, expected %s", ErrStateMismatch, token, e.pos.State, expected)
		}
		return c.transition(e, next)
	})
}

// Open records a confirmed entry and moves ENTERING to OPEN.
func (c *PositionCache) Open(token string, entryPrice, quoteSpent decimal.Decimal, tokenAmount uint64, at time.Time) (models.Position, error) {
	var out models.Position
	err := c.mutate(token, func(e *positionEntry) error {
		if err := c.transition(e, models.StateOpen); err != nil {
			return err
		}
		e.pos.EntryPrice = entryPrice
		e.pos.EntryTime = at
		e.pos.QuoteAmountSpent = quoteSpent
		e.pos.HighestPrice = entryPrice
		e.pos.LastPrice = entryPrice
		if tokenAmount > 0 {
			e.pos.TokenBalance = tokenAmount
		}
		e.leftOpen = make(chan struct{})
		out = e.pos
		return nil
	})
	return out, err
}

// AppendPrice adds a sample to an OPEN position and returns the updated
// position with a copy of its series.
func (c *PositionCache) AppendPrice(token string, p models.PricePoint) (models.Position, []models.PricePoint, error) {
	var (
		pos    models.Position
		series []models.PricePoint
	)
	err := c.mutate(token, func(e *positionEntry) error {
		if e.pos.State != models.StateOpen {
			return fmt.Errorf("%w: %s is %s", ErrStateMismatch, token, e.pos.State)
		}
		e.series = append(e.series, p)
		if c.windowSize > 0 && len(e.series) > c.windowSize {
			e.series = append(e.series[:0:0], e.series[len(e.series)-c.windowSize:]...)
		}
		e.pos.LastPrice = p.Price
		if p.Price.GreaterThan(e.pos.HighestPrice) {
			e.pos.HighestPrice = p.Price
		}
		e.pos.UpdatedAt = time.Now()

		pos = e.pos
		series = append([]models.PricePoint(nil), e.series...)
		return nil
	})
	return pos, series, err
}

// Series returns a copy of the price series of token.
func (c *PositionCache) Series(token string) []models.PricePoint {
	var out []models.PricePoint
	c.items.view(token, func(items map[string]*positionEntry) {
		if e, ok := items[token]; ok {
			out = append(out, e.series...)
		}
	})
	return out
}

// SetBalance records the token balance reported by the wallet feed.
func (c *PositionCache) SetBalance(token string, amount uint64) error {
	return c.mutate(token, func(e *positionEntry) error {
		if e.pos.State.Terminal() {
			return fmt.Errorf("%w: %s is %s", ErrStateMismatch, token, e.pos.State)
		}
		e.pos.TokenBalance = amount
		e.pos.UpdatedAt = time.Now()
		return nil
	})
}

// SuppressSell latches the sell suppression flag of token.
func (c *PositionCache) SuppressSell(token string) error {
	return c.mutate(token, func(e *positionEntry) error {
		e.pos.SellSuppressed = true
		e.pos.UpdatedAt = time.Now()
		return nil
	})
}

// Close records a confirmed exit and moves EXITING to CLOSED.
func (c *PositionCache) Close(token string, exitPrice decimal.Decimal) (models.Position, error) {
	var out models.Position
	err := c.mutate(token, func(e *positionEntry) error {
		if err := c.transition(e, models.StateClosed); err != nil {
			return err
		}
		e.pos.ExitPrice = exitPrice
		out = e.pos
		return nil
	})
	return out, err
}

// Fail moves token to FAILED and records reason.
func (c *PositionCache) Fail(token, reason string) (models.Position, error) {
	var out models.Position
	err := c.mutate(token, func(e *positionEntry) error {
		if err := c.transition(e, models.StateFailed); err != nil {
			return err
		}
		e.pos.FailureReason = reason
		out = e.pos
		return nil
	})
	return out, err
}

// RemoveIf deletes token only while it is in state.
func (c *PositionCache) RemoveIf(token string, state models.PositionState) bool {
	removed := false
	c.items.update(token, func(items map[string]*positionEntry) {
		if e, ok := items[token]; ok && e.pos.State == state {
			closeWatch(e)
			delete(items, token)
			removed = true
		}
	})
	return removed
}

// Watch returns a channel that is closed when token leaves OPEN. For a
// position that is not OPEN the returned channel is already closed.
func (c *PositionCache) Watch(token string) <-chan struct{} {
	var ch <-chan struct{}
	c.items.view(token, func(items map[string]*positionEntry) {
		if e, ok := items[token]; ok && e.pos.State == models.StateOpen && e.leftOpen != nil {
			ch = e.leftOpen
		}
	})
	if ch == nil {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return ch
}

// ActiveCount counts positions in ENTERING, OPEN or EXITING.
func (c *PositionCache) ActiveCount() int {
	n := 0
	c.items.rangeAll(func(_ string, e *positionEntry) {
		if e.pos.State.Active() {
			n++
		}
	})
	return n
}

// PendingCount counts non-terminal positions, including admitted ones still in NONE.
func (c *PositionCache) PendingCount() int {
	n := 0
	c.items.rangeAll(func(_ string, e *positionEntry) {
		if !e.pos.State.Terminal() {
			n++
		}
	})
	return n
}

// Snapshot returns copies of every tracked position.
func (c *PositionCache) Snapshot() []models.Position {
	var out []models.Position
	c.items.rangeAll(func(_ string, e *positionEntry) {
		out = append(out, e.pos)
	})
	return out
}

func (c *PositionCache) mutate(token string, fn func(e *positionEntry) error) error {
	var err error
	c.items.update(token, func(items map[string]*positionEntry) {
		e, ok := items[token]
		if !ok {
			err = fmt.Errorf("%w: %s", ErrNotFound, token)
			return
		}
		err = fn(e)
	})
	return err
}

func (c *PositionCache) transition(e *positionEntry, next models.PositionState) error {
	if !e.pos.State.CanTransition(next) {
		return fmt.Errorf("%w: %s %s -> %s", ErrInvalidTransition, e.pos.Token, e.pos.State, next)
	}
	if e.pos.State == models.StateOpen {
		closeWatch(e)
	}
	e.pos.State = next
	e.pos.UpdatedAt = time.Now()
	if next.Terminal() {
		e.series = nil
	}
	return nil
}

func closeWatch(e *positionEntry) {
	if e.leftOpen == nil {
		return
	}
	select {
	case <-e.leftOpen:
	default:
		close(e.leftOpen)
	}
}
