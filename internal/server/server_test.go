package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aman-zulfiqar/solana-pool-sniper/internal/amm"
	"github.com/aman-zulfiqar/solana-pool-sniper/internal/cache"
	"github.com/aman-zulfiqar/solana-pool-sniper/internal/lists"
	"github.com/aman-zulfiqar/solana-pool-sniper/internal/metrics"
	"github.com/aman-zulfiqar/solana-pool-sniper/internal/models"
	"github.com/aman-zulfiqar/solana-pool-sniper/internal/notify"
)

type memLists struct {
	mu    sync.Mutex
	items map[lists.Name]map[string]bool
}

func newMemLists() *memLists {
	return &memLists{items: map[lists.Name]map[string]bool{}}
}

func (m *memLists) Add(_ context.Context, name lists.Name, entries ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.items[name] == nil {
		m.items[name] = map[string]bool{}
	}
	for _, e := range entries {
		m.items[name][e] = true
	}
	return nil
}

func (m *memLists) Remove(_ context.Context, name lists.Name, entry string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.items[name][entry] {
		return lists.ErrNotFound
	}
	delete(m.items[name], entry)
	return nil
}

func (m *memLists) Members(_ context.Context, name lists.Name) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []string{}
	for e := range m.items[name] {
		out = append(out, e)
	}
	sort.Strings(out)
	return out, nil
}

func (m *memLists) UpdatedAt(context.Context, lists.Name) (time.Time, error) {
	return time.Time{}, nil
}

type staticReserves struct {
	r   amm.Reserves
	err error
}

func (s staticReserves) FetchReserves(context.Context, *models.PoolRecord) (amm.Reserves, error) {
	return s.r, s.err
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

type fixture struct {
	srv       *Server
	positions *cache.PositionCache
	pools     *cache.PoolCache
	lists     *memLists
	events    *notify.Recent
	metrics   *metrics.Metrics
	checks    map[string]Pinger
}

func newFixture(t *testing.T, apiKey string) *fixture {
	t.Helper()
	logger, _ := test.NewNullLogger()
	f := &fixture{
		positions: cache.NewPositionCache(0),
		pools:     cache.NewPoolCache(),
		lists:     newMemLists(),
		events:    notify.NewRecent(10),
		metrics:   metrics.New(),
		checks:    make(map[string]Pinger),
	}
	srv, err := NewServer(ServerDeps{
		Handlers: &Handlers{
			Positions: f.positions,
			Pools:     f.pools,
			Reserves:  staticReserves{r: amm.Reserves{Base: 1_000_000_000, Quote: 1_000_000_000}},
			Lists:     f.lists,
			Events:    f.events,
			Metrics:   f.metrics,
			Checks:    f.checks,
			DevMode:   true,
			Logger:    logger,
		},
		Config: ServerConfig{APIKey: apiKey, DevMode: false},
	})
	require.NoError(t, err)
	f.srv = srv
	return f
}

func (f *fixture) do(t *testing.T, method, path, body string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	f.srv.ServeHTTP(rec, req)
	return rec
}

func testPool() *models.PoolRecord {
	return &models.PoolRecord{
		ID:            solana.NewWallet().PublicKey(),
		BaseMint:      solana.NewWallet().PublicKey(),
		QuoteMint:     solana.WrappedSol,
		BaseDecimals:  6,
		QuoteDecimals: 9,
	}
}

func TestHealth(t *testing.T) {
	f := newFixture(t, "secret")
	pool := testPool()
	f.pools.Save(pool)
	f.positions.Save(pool.Token(), pool)

	rec := f.do(t, http.MethodGet, "/v1/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var out HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.True(t, out.OK)
	assert.Equal(t, 1, out.PendingPositions)
	assert.Equal(t, 0, out.OpenPositions)
	assert.Equal(t, 1, out.PoolsCached)
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	assert.Empty(t, out.Dependencies)
}

func TestHealth_Dependencies(t *testing.T) {
	f := newFixture(t, "secret")
	f.checks["redis"] = pingFunc(func(context.Context) error { return nil })

	rec := f.do(t, http.MethodGet, "/v1/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var out HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.True(t, out.OK)
	assert.Equal(t, map[string]string{"redis": "ok"}, out.Dependencies)

	f.checks["clickhouse"] = pingFunc(func(context.Context) error { return errors.New("connection refused") })

	rec = f.do(t, http.MethodGet, "/v1/health", "")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	out = HealthResponse{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.False(t, out.OK)
	assert.Equal(t, "ok", out.Dependencies["redis"])
	assert.Equal(t, "connection refused", out.Dependencies["clickhouse"])
}

func TestAPIKey(t *testing.T) {
	f := newFixture(t, "secret")

	assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodGet, "/v1/positions", "", "X-API-Key", "wrong").Code)
	assert.GreaterOrEqual(t, f.do(t, http.MethodGet, "/v1/positions", "").Code, http.StatusBadRequest)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/v1/positions", "", "X-API-Key", "secret").Code)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/metrics", "").Code)
}

func TestPositions(t *testing.T) {
	f := newFixture(t, "")
	open, pending := testPool(), testPool()
	require.True(t, f.positions.Save(open.Token(), open))
	require.NoError(t, f.positions.CompareAndUpdate(open.Token(), models.StateNone, models.StateEntering))
	_, err := f.positions.Open(open.Token(), decimal.RequireFromString("0.001"), decimal.RequireFromString("0.01"), 5, time.Now())
	require.NoError(t, err)
	require.True(t, f.positions.Save(pending.Token(), pending))

	rec := f.do(t, http.MethodGet, "/v1/positions", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var all PositionsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &all))
	assert.Len(t, all.Items, 2)

	rec = f.do(t, http.MethodGet, "/v1/positions?state=open", "")
	var filtered PositionsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &filtered))
	require.Len(t, filtered.Items, 1)
	assert.Equal(t, open.Token(), filtered.Items[0].Token)

	rec = f.do(t, http.MethodGet, "/v1/positions/"+open.Token(), "")
	require.Equal(t, http.StatusOK, rec.Code)
	var one models.Position
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &one))
	assert.Equal(t, models.StateOpen, one.State)
	assert.True(t, one.EntryPrice.Equal(decimal.RequireFromString("0.001")))

	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/v1/positions/"+solana.NewWallet().PublicKey().String(), "").Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/v1/positions/not-a-mint", "").Code)
}

func TestPositionPrices(t *testing.T) {
	f := newFixture(t, "")
	pool := testPool()
	token := pool.Token()
	require.True(t, f.positions.Save(token, pool))
	require.NoError(t, f.positions.CompareAndUpdate(token, models.StateNone, models.StateEntering))
	_, err := f.positions.Open(token, decimal.RequireFromString("0.001"), decimal.RequireFromString("0.01"), 5, time.Now())
	require.NoError(t, err)
	_, _, err = f.positions.AppendPrice(token, models.PricePoint{Price: decimal.RequireFromString("0.0012"), At: time.Now()})
	require.NoError(t, err)

	rec := f.do(t, http.MethodGet, "/v1/positions/"+token+"/prices", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var out struct {
		Items []models.PricePoint `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out.Items, 1)
	assert.True(t, out.Items[0].Price.Equal(decimal.RequireFromString("0.0012")))

	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/v1/positions/"+solana.NewWallet().PublicKey().String()+"/prices", "").Code)
}

func TestRecentEvents(t *testing.T) {
	f := newFixture(t, "")
	f.events.Notify(context.Background(), &models.Event{Kind: models.EventAdmitted, Mint: "a"})
	f.events.Notify(context.Background(), &models.Event{Kind: models.EventBuyConfirmed, Mint: "a"})

	rec := f.do(t, http.MethodGet, "/v1/events?limit=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var out struct {
		Items []models.Event `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out.Items, 1)
	assert.Equal(t, models.EventBuyConfirmed, out.Items[0].Kind)

	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/v1/events?limit=0", "").Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/v1/events?limit=x", "").Code)
}

func TestLists(t *testing.T) {
	f := newFixture(t, "")
	mint := solana.NewWallet().PublicKey().String()

	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/v1/lists/whitelist", "").Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/v1/lists/snipe", `{"entries":["nope"]}`).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/v1/lists/snipe", `{"entries":[]}`).Code)

	rec := f.do(t, http.MethodPost, "/v1/lists/snipe", `{"entries":["`+mint+`"]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/v1/lists/snipe", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got ListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "snipe", got.Name)
	assert.Equal(t, []string{mint}, got.Items)

	assert.Equal(t, http.StatusNoContent, f.do(t, http.MethodDelete, "/v1/lists/snipe/"+mint, "").Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodDelete, "/v1/lists/snipe/"+mint, "").Code)
}

func TestLists_NotConfigured(t *testing.T) {
	f := newFixture(t, "")
	f.srv, _ = NewServer(ServerDeps{Handlers: &Handlers{
		Positions: f.positions,
		Pools:     f.pools,
		Events:    f.events,
	}})
	assert.Equal(t, http.StatusServiceUnavailable, f.do(t, http.MethodGet, "/v1/lists/snipe", "").Code)
	assert.Equal(t, http.StatusServiceUnavailable, f.do(t, http.MethodGet, "/v1/pools/x/quote", "").Code)
}

func TestQuote(t *testing.T) {
	f := newFixture(t, "")
	pool := testPool()
	f.pools.Save(pool)
	path := "/v1/pools/" + pool.Token() + "/quote"

	rec := f.do(t, http.MethodGet, path+"?side=buy&amount=0.01&slippage=10", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var q QuoteResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &q))
	assert.Equal(t, uint64(10_000_000), q.AmountIn)
	assert.NotZero(t, q.AmountOut)
	assert.Less(t, q.MinAmountOut, q.AmountOut)
	assert.Equal(t, "0.001", q.SpotPrice)

	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, path+"?side=hold&amount=1", "").Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, path+"?side=sell&amount=-1", "").Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/v1/pools/unknown/quote?side=buy&amount=1", "").Code)
}

func TestQuote_ReserveError(t *testing.T) {
	f := newFixture(t, "")
	pool := testPool()
	f.pools.Save(pool)
	logger, _ := test.NewNullLogger()
	f.srv, _ = NewServer(ServerDeps{Handlers: &Handlers{
		Pools:    f.pools,
		Reserves: staticReserves{err: errors.New("rpc down")},
		Logger:   logger,
	}})

	rec := f.do(t, http.MethodGet, "/v1/pools/"+pool.Token()+"/quote?side=buy&amount=1", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestNotFound(t *testing.T) {
	f := newFixture(t, "")
	rec := f.do(t, http.MethodGet, "/v2/nothing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "not found")
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t, "secret")
	f.metrics.RecordPoolObserved()

	rec := f.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "pool_sniper_discovery_pools_observed_total 1")
}

func TestRun_StopsOnCancel(t *testing.T) {
	logger, _ := test.NewNullLogger()
	srv, err := NewServer(ServerDeps{
		Handlers: &Handlers{Positions: cache.NewPositionCache(0), Pools: cache.NewPoolCache(), Logger: logger},
		Config:   ServerConfig{Addr: "127.0.0.1:0"},
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestNewServer_RequiresHandlers(t *testing.T) {
	_, err := NewServer(ServerDeps{})
	assert.Error(t, err)
}
