// ============================================================================
// cache/pubsub.go - Redis Pub/Sub Wrapper
// ============================================================================
package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/solana-pool-sniper/internal/constants"
	"github.com/aman-zulfiqar/solana-pool-sniper/internal/models"
	"github.com/aman-zulfiqar/solana-pool-sniper/internal/storage"
)

var _ storage.EventPublisher = (*PubSubManager)(nil)

type PubSubManager struct {
	client redis.UniversalClient
	logger *logrus.Logger
}

func NewPubSubManager(client redis.UniversalClient, logger *logrus.Logger) *PubSubManager {
	if logger == nil {
		logger = logrus.New()
	}
	return &PubSubManager{client: client, logger: logger}
}

// EventChannels lists every channel an event is published to.
func EventChannels(ev *models.Event) []string {
	return []string{
		constants.PubSubChannelEvents,                       // All events
		constants.PubSubChannelKindPrefix + string(ev.Kind), // Kind-specific
		constants.PubSubChannelTokenPrefix + ev.Mint,        // Token-specific
	}
}

// PublishEvent fans an event out to the global, kind and token channels.
func (p *PubSubManager) PublishEvent(ctx context.Context, ev *models.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	pipe := p.client.Pipeline()
	for _, channel := range EventChannels(ev) {
		pipe.Publish(ctx, channel, data)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}

// Ping checks that the Redis connection behind the manager is usable.
func (p *PubSubManager) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}
