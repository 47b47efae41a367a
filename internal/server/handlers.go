package server

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/solana-pool-sniper/internal/cache"
	"github.com/aman-zulfiqar/solana-pool-sniper/internal/lists"
	"github.com/aman-zulfiqar/solana-pool-sniper/internal/metrics"
	"github.com/aman-zulfiqar/solana-pool-sniper/internal/models"
	"github.com/aman-zulfiqar/solana-pool-sniper/internal/notify"
)

// ListStore is the persistent side of the snipe list and blacklist
type ListStore interface {
	Add(ctx context.Context, name lists.Name, entries ...string) error
	Remove(ctx context.Context, name lists.Name, entry string) error
	Members(ctx context.Context, name lists.Name) ([]string, error)
	UpdatedAt(ctx context.Context, name lists.Name) (time.Time, error)
}

// Pinger is a backing service whose reachability is part of the health report
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handlers contains all dependencies for API endpoint handlers
type Handlers struct {
	Positions *cache.PositionCache // Live positions
	Pools     *cache.PoolCache     // Pools seen since start
	Reserves  ReserveSource        // Vault balances for quotes (optional)
	Lists     ListStore            // Redis-backed lists (optional)
	Events    *notify.Recent       // Recent lifecycle events
	Metrics   *metrics.Metrics     // Prometheus registry
	Checks    map[string]Pinger    // Backing services pinged by health (optional)
	DevMode   bool                 // Enable detailed error responses in development
	Logger    *logrus.Logger       // Structured logger
}

// err returns a standardized JSON error response
// In dev mode, includes additional error details for debugging
func (h *Handlers) err(c echo.Context, code int, msg string, details any) error {
	resp := ErrorResponse{Error: msg, Code: code}
	if h.DevMode && details != nil {
		resp.Details = details
	}
	return c.JSON(code, resp)
}

// withTimeout creates a context with timeout, defaulting to 10 seconds if duration <= 0
func (h *Handlers) withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = 10 * time.Second
	}
	return context.WithTimeout(ctx, d)
}

// Health reports liveness, position counters and the state of every
// backing service. An unreachable service turns the response into a 503.
func (h *Handlers) Health(c echo.Context) error {
	resp := HealthResponse{
		OK:               true,
		OpenPositions:    h.Positions.ActiveCount(),
		PendingPositions: h.Positions.PendingCount(),
		PoolsCached:      h.Pools.Len(),
	}

	if len(h.Checks) > 0 {
		ctx, cancel := h.withTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()

		resp.Dependencies = make(map[string]string, len(h.Checks))
		for name, p := range h.Checks {
			if err := p.Ping(ctx); err != nil {
				resp.OK = false
				resp.Dependencies[name] = err.Error()
				h.Logger.WithError(err).WithField("dependency", name).Warn("health check failed")
				continue
			}
			resp.Dependencies[name] = "ok"
		}
	}

	code := http.StatusOK
	if !resp.OK {
		code = http.StatusServiceUnavailable
	}
	return c.JSON(code, resp)
}

// ListPositions lists tracked positions, newest first
// Accepts an optional state query parameter (e.g. OPEN, CLOSED)
func (h *Handlers) ListPositions(c echo.Context) error {
	state := models.PositionState(strings.ToUpper(strings.TrimSpace(c.QueryParam("state"))))

	items := make([]models.Position, 0)
	for _, p := range h.Positions.Snapshot() {
		if state == "" || p.State == state {
			items = append(items, p)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].CreatedAt.After(items[j].CreatedAt) })
	return c.JSON(http.StatusOK, PositionsResponse{Items: items})
}

// Position returns the position of a single mint
func (h *Handlers) Position(c echo.Context) error {
	mint := strings.TrimSpace(c.Param("mint"))
	if err := lists.ValidateEntry(mint); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid mint", map[string]any{"mint": err.Error()})
	}
	pos, ok := h.Positions.Get(mint)
	if !ok {
		return h.err(c, http.StatusNotFound, "position not found", nil)
	}
	return c.JSON(http.StatusOK, pos)
}

// PositionPrices returns the sampled price series of an open position
func (h *Handlers) PositionPrices(c echo.Context) error {
	mint := strings.TrimSpace(c.Param("mint"))
	if _, ok := h.Positions.Get(mint); !ok {
		return h.err(c, http.StatusNotFound, "position not found", nil)
	}
	items := h.Positions.Series(mint)
	if items == nil {
		items = []models.PricePoint{}
	}
	return c.JSON(http.StatusOK, map[string]any{"mint": mint, "items": items})
}

// RecentEvents returns the latest lifecycle events
// Accepts limit query parameter (default: 50, range: 1-200)
func (h *Handlers) RecentEvents(c echo.Context) error {
	limit := 50
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return h.err(c, http.StatusBadRequest, "invalid limit", map[string]any{"limit": "must be an integer"})
		}
		limit = n
	}
	if limit < 1 || limit > 200 {
		return h.err(c, http.StatusBadRequest, "invalid limit", map[string]any{"limit": "min 1 max 200"})
	}
	return c.JSON(http.StatusOK, map[string]any{"items": h.Events.List(limit)})
}

// listName resolves the :name parameter. On failure it writes the error
// response itself and returns an empty name.
func (h *Handlers) listName(c echo.Context) (lists.Name, error) {
	name, err := lists.ParseName(c.Param("name"))
	if err != nil {
		return "", h.err(c, http.StatusNotFound, "unknown list", map[string]any{"name": err.Error()})
	}
	if h.Lists == nil {
		return "", h.err(c, http.StatusServiceUnavailable, "lists are not configured", nil)
	}
	return name, nil
}

// ListGet returns the persisted entries of a list
func (h *Handlers) ListGet(c echo.Context) error {
	name, err := h.listName(c)
	if name == "" {
		return err
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	items, err := h.Lists.Members(ctx, name)
	if err != nil {
		h.Logger.WithError(err).WithField("list", name).Error("failed to read list")
		return h.err(c, http.StatusInternalServerError, "failed to read list", nil)
	}
	updated, err := h.Lists.UpdatedAt(ctx, name)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to read list", nil)
	}
	return c.JSON(http.StatusOK, ListResponse{Name: string(name), Items: items, UpdatedAt: updated})
}

// ListAdd adds mints to a list
// Every entry must be a base58 address; nothing is stored otherwise
func (h *Handlers) ListAdd(c echo.Context) error {
	name, err := h.listName(c)
	if name == "" {
		return err
	}

	var req ListAddRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}
	if len(req.Entries) == 0 {
		return h.err(c, http.StatusBadRequest, "entries are required", map[string]any{"entries": "required"})
	}
	for i, e := range req.Entries {
		req.Entries[i] = strings.TrimSpace(e)
		if err := lists.ValidateEntry(req.Entries[i]); err != nil {
			return h.err(c, http.StatusBadRequest, "invalid entry", map[string]any{"entry": err.Error()})
		}
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	if err := h.Lists.Add(ctx, name, req.Entries...); err != nil {
		h.Logger.WithError(err).WithField("list", name).Error("failed to update list")
		return h.err(c, http.StatusInternalServerError, "failed to update list", nil)
	}
	return c.JSON(http.StatusOK, map[string]any{"name": name, "added": len(req.Entries)})
}

// ListRemove deletes one mint from a list
// Returns 204 No Content on successful deletion
func (h *Handlers) ListRemove(c echo.Context) error {
	name, err := h.listName(c)
	if name == "" {
		return err
	}
	entry := c.Param("entry")
	if err := lists.ValidateEntry(entry); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid entry", map[string]any{"entry": err.Error()})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	if err := h.Lists.Remove(ctx, name, entry); err != nil {
		if errors.Is(err, lists.ErrNotFound) {
			return h.err(c, http.StatusNotFound, "entry not found", nil)
		}
		return h.err(c, http.StatusInternalServerError, "failed to update list", nil)
	}
	return c.NoContent(http.StatusNoContent)
}
