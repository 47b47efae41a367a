package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

// RegisterRoutes configures all API routes, middleware, and error handlers
func RegisterRoutes(e *echo.Echo, h *Handlers, cfg ServerConfig) {
	e.HTTPErrorHandler = JSONErrorHandler()
	e.Use(SetNoCacheHeaders)

	// Optional API key authentication; health and metrics stay open for monitoring
	if cfg.APIKey != "" {
		e.Use(middleware.KeyAuthWithConfig(middleware.KeyAuthConfig{
			KeyLookup: "header:X-API-Key",
			Skipper: func(c echo.Context) bool {
				p := c.Request().URL.Path
				return p == "/v1/health" || strings.HasPrefix(p, "/metrics")
			},
			Validator: func(key string, c echo.Context) (bool, error) {
				return key == cfg.APIKey, nil
			},
		}))
	}

	e.GET("/metrics", echo.WrapHandler(h.Metrics.Handler()))

	v1 := e.Group("/v1")
	v1.GET("/health", h.Health)
	v1.GET("/positions", h.ListPositions)
	v1.GET("/positions/:mint", h.Position)
	v1.GET("/positions/:mint/prices", h.PositionPrices)
	v1.GET("/pools/:mint/quote", h.Quote)
	v1.GET("/events", h.RecentEvents)
	v1.GET("/lists/:name", h.ListGet)

	// List mutations are rate limited per client
	mutations := v1.Group("/lists")
	mutations.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(2),
		Burst:     5,
		ExpiresIn: 2 * time.Minute,
	})))
	mutations.POST("/:name", h.ListAdd)
	mutations.DELETE("/:name/:entry", h.ListRemove)

	e.RouteNotFound("/*", func(c echo.Context) error {
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "not found", Code: http.StatusNotFound})
	})
}
