package cache

import (
	"github.com/aman-zulfiqar/solana-pool-sniper/internal/models"
)

// PoolCache keeps the first pool seen for each base mint.
type PoolCache struct {
	items *shardedMap[*models.PoolRecord]
}

func NewPoolCache() *PoolCache {
	return &PoolCache{items: newShardedMap[*models.PoolRecord](defaultShards)}
}

// Save stores pool under its base mint unless one is already present.
// It reports whether pool was stored.
func (c *PoolCache) Save(pool *models.PoolRecord) bool {
	stored := false
	c.items.update(pool.Token(), func(items map[string]*models.PoolRecord) {
		if _, ok := items[pool.Token()]; ok {
			return
		}
		items[pool.Token()] = pool
		stored = true
	})
	return stored
}

func (c *PoolCache) Get(mint string) (*models.PoolRecord, bool) {
	return c.items.get(mint)
}

func (c *PoolCache) Len() int {
	return c.items.len()
}

// MarketCache keeps decoded markets by market id.
type MarketCache struct {
	items *shardedMap[*models.MarketRecord]
}

func NewMarketCache() *MarketCache {
	return &MarketCache{items: newShardedMap[*models.MarketRecord](defaultShards)}
}

// Save stores market unless the id is already known. Saved markets are never replaced.
func (c *MarketCache) Save(market *models.MarketRecord) bool {
	key := market.ID.String()
	stored := false
	c.items.update(key, func(items map[string]*models.MarketRecord) {
		if _, ok := items[key]; ok {
			return
		}
		items[key] = market
		stored = true
	})
	return stored
}

func (c *MarketCache) Get(id string) (*models.MarketRecord, bool) {
	return c.items.get(id)
}

func (c *MarketCache) Len() int {
	return c.items.len()
}
