package server

import (
	"time"

	"github.com/aman-zulfiqar/solana-pool-sniper/internal/models"
)

// ErrorResponse represents a standardized error response format
type ErrorResponse struct {
	Error   string `json:"error"`             // Human-readable error message
	Code    int    `json:"code"`              // HTTP status code
	Details any    `json:"details,omitempty"` // Additional error details (dev mode only)
}

// HealthResponse reports liveness plus position counters
type HealthResponse struct {
	OK               bool              `json:"ok"`
	OpenPositions    int               `json:"open_positions"`
	PendingPositions int               `json:"pending_positions"`
	PoolsCached      int               `json:"pools_cached"`
	Dependencies     map[string]string `json:"dependencies,omitempty"` // "ok" or the ping error
}

// PositionsResponse lists tracked positions, newest first
type PositionsResponse struct {
	Items []models.Position `json:"items"`
}

// ListResponse is the content of a snipe list or blacklist
type ListResponse struct {
	Name      string    `json:"name"`
	Items     []string  `json:"items"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ListAddRequest adds mints to a list
type ListAddRequest struct {
	Entries []string `json:"entries"`
}

// QuoteResponse is a constant-product quote against current reserves
type QuoteResponse struct {
	Mint         string  `json:"mint"`
	Pool         string  `json:"pool"`
	Side         string  `json:"side"`
	AmountIn     uint64  `json:"amount_in"`
	AmountOut    uint64  `json:"amount_out"`
	MinAmountOut uint64  `json:"min_amount_out"`
	PriceImpact  float64 `json:"price_impact"`
	SpotPrice    string  `json:"spot_price"`
}
