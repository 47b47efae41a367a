package cache

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aman-zulfiqar/solana-pool-sniper/internal/constants"
	"github.com/aman-zulfiqar/solana-pool-sniper/internal/models"
)

func setupTestRedis(t *testing.T) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   1, // Use different DB for tests
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	return client
}

func TestEventChannels(t *testing.T) {
	ev := &models.Event{Kind: models.EventBuyConfirmed, Mint: "Mint111"}
	assert.Equal(t, []string{
		constants.PubSubChannelEvents,
		"sniper:events:buy_confirmed",
		"sniper:token:Mint111",
	}, EventChannels(ev))
}

func TestPubSubManager_Publish(t *testing.T) {
	client := setupTestRedis(t)
	logger, _ := test.NewNullLogger()
	p := NewPubSubManager(client, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, p.Ping(ctx))

	sub := client.Subscribe(ctx, "sniper:token:TestMint")
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	ev := &models.Event{
		Kind:          models.EventSellConfirmed,
		Mint:          "TestMint",
		PriceDeltaPct: decimal.NewFromInt(12),
		At:            time.Now().UTC(),
	}
	require.NoError(t, p.PublishEvent(ctx, ev))

	msg, err := sub.ReceiveMessage(ctx)
	require.NoError(t, err)

	var out models.Event
	require.NoError(t, json.Unmarshal([]byte(msg.Payload), &out))
	assert.Equal(t, ev.Kind, out.Kind)
	assert.True(t, out.PriceDeltaPct.Equal(ev.PriceDeltaPct))
}
