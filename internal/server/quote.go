package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/aman-zulfiqar/solana-pool-sniper/internal/amm"
	"github.com/aman-zulfiqar/solana-pool-sniper/internal/models"
)

// ReserveSource reads the current vault balances of a pool
type ReserveSource interface {
	FetchReserves(ctx context.Context, pool *models.PoolRecord) (amm.Reserves, error)
}

// Quote prices a swap against a cached pool
// Query parameters: side (buy|sell), amount (UI units of the input token),
// slippage (percent, default 0)
func (h *Handlers) Quote(c echo.Context) error {
	if h.Reserves == nil {
		return h.err(c, http.StatusServiceUnavailable, "quotes are not configured", nil)
	}

	mint := strings.TrimSpace(c.Param("mint"))
	pool, ok := h.Pools.Get(mint)
	if !ok {
		return h.err(c, http.StatusNotFound, "pool not found", nil)
	}

	side := models.Side(strings.ToLower(strings.TrimSpace(c.QueryParam("side"))))
	if side != models.SideBuy && side != models.SideSell {
		return h.err(c, http.StatusBadRequest, "invalid side", map[string]any{"side": "must be buy or sell"})
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(c.QueryParam("amount")))
	if err != nil || !amount.IsPositive() {
		return h.err(c, http.StatusBadRequest, "invalid amount", map[string]any{"amount": "must be a positive number"})
	}
	slippage := decimal.Zero
	if v := strings.TrimSpace(c.QueryParam("slippage")); v != "" {
		slippage, err = decimal.NewFromString(v)
		if err != nil || slippage.IsNegative() || slippage.GreaterThan(decimal.NewFromInt(100)) {
			return h.err(c, http.StatusBadRequest, "invalid slippage", map[string]any{"slippage": "must be within [0, 100]"})
		}
	}

	decimals := pool.QuoteDecimals
	if side == models.SideSell {
		decimals = pool.BaseDecimals
	}
	raw, err := amm.ToRaw(amount, decimals)
	if err != nil || raw == 0 {
		return h.err(c, http.StatusBadRequest, "invalid amount", map[string]any{"amount": "out of range"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	r, err := h.Reserves.FetchReserves(ctx, pool)
	if err != nil {
		return h.err(c, http.StatusBadGateway, "failed to read reserves", map[string]any{"err": err.Error()})
	}

	bps := amm.PercentToBps(slippage)
	var q amm.Quote
	if side == models.SideBuy {
		q, err = amm.QuoteBuy(r, raw, bps)
	} else {
		q, err = amm.QuoteSell(r, raw, bps)
	}
	if err != nil {
		return h.err(c, http.StatusUnprocessableEntity, "cannot quote pool", map[string]any{"err": err.Error()})
	}
	spot, _ := amm.SpotPrice(r, pool.BaseDecimals, pool.QuoteDecimals)

	return c.JSON(http.StatusOK, QuoteResponse{
		Mint:         mint,
		Pool:         pool.ID.String(),
		Side:         string(side),
		AmountIn:     q.AmountIn,
		AmountOut:    q.AmountOut,
		MinAmountOut: q.MinAmountOut,
		PriceImpact:  q.PriceImpact,
		SpotPrice:    spot.String(),
	})
}
