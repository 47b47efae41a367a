package storage

import (
	"context"
	"io"

	"github.com/aman-zulfiqar/solana-pool-sniper/internal/models"
)

// TradeStore defines the interface for the persistent trade journal
type TradeStore interface {
	// InsertTrade appends a confirmed swap to the journal
	InsertTrade(ctx context.Context, trade *models.TradeRecord) error

	// Ping checks if the store is reachable
	Ping(ctx context.Context) error

	// Close closes the store connection
	io.Closer
}

// EventPublisher defines the interface for lifecycle event fan-out
type EventPublisher interface {
	// PublishEvent publishes an event to every channel it belongs to
	PublishEvent(ctx context.Context, ev *models.Event) error
}
