package cache

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/solana-pool-sniper/internal/models"
	"github.com/aman-zulfiqar/solana-pool-sniper/internal/storage"
)

const createTradesTable = `
	CREATE TABLE IF NOT EXISTS trades (
		position_id  String,
		mint         String,
		pool         String,
		side         LowCardinality(String),
		signature    String,
		quote_amount Float64,
		token_amount UInt64,
		price        Float64,
		pnl_pct      Float64,
		executor     LowCardinality(String),
		attempts     UInt16,
		timestamp    DateTime64(3)
	) ENGINE = MergeTree()
	ORDER BY (mint, timestamp)
`

// ClickHouseConfig holds connection settings for the trade journal.
type ClickHouseConfig struct {
	Addr     string
	Database string
	Username string
	Password string
	Logger   *logrus.Logger
}

var _ storage.TradeStore = (*ClickHouseStore)(nil)

// ClickHouseStore is the trade journal.
type ClickHouseStore struct {
	conn   driver.Conn
	logger *logrus.Logger
}

func NewClickHouseStore(ctx context.Context, cfg ClickHouseConfig) (*ClickHouseStore, error) {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.Username == "" {
		cfg.Username = "default"
	}

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{cfg.Addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	// Test connection
	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	if err := conn.Exec(ctx, createTradesTable); err != nil {
		return nil, fmt.Errorf("failed to create trades table: %w", err)
	}

	cfg.Logger.WithField("addr", cfg.Addr).Info("connected to ClickHouse")

	return &ClickHouseStore{conn: conn, logger: cfg.Logger}, nil
}

// InsertTrade writes one confirmed swap.
func (c *ClickHouseStore) InsertTrade(ctx context.Context, trade *models.TradeRecord) error {
	query := `
		INSERT INTO trades (
			position_id, mint, pool, side, signature, quote_amount,
			token_amount, price, pnl_pct, executor, attempts, timestamp
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	err := c.conn.Exec(ctx, query,
		trade.PositionID,
		trade.Mint,
		trade.Pool,
		string(trade.Side),
		trade.Signature,
		trade.QuoteAmount.InexactFloat64(),
		trade.TokenAmount,
		trade.Price.InexactFloat64(),
		trade.PnLPct.InexactFloat64(),
		trade.Executor,
		uint16(trade.Attempts),
		trade.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to insert trade: %w", err)
	}

	return nil
}

func (c *ClickHouseStore) Ping(ctx context.Context) error {
	return c.conn.Ping(ctx)
}

func (c *ClickHouseStore) Close() error {
	return c.conn.Close()
}
