package tokeninfo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aman-zulfiqar/solana-pool-sniper/internal/layout"
	"github.com/aman-zulfiqar/solana-pool-sniper/internal/models"
	"github.com/aman-zulfiqar/solana-pool-sniper/internal/rpc"
)

func newSource(t *testing.T, handler func(method string) string) *RPCSource {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Method string `json:"method"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		_, _ = w.Write([]byte(handler(req.Method)))
	}))
	t.Cleanup(srv.Close)

	logger, _ := test.NewNullLogger()
	client := rpc.NewClient(rpc.ClientConfig{BaseURL: srv.URL, Timeout: time.Second, Logger: logger})
	return NewRPCSource(client, "confirmed", time.Second, logger)
}

func TestRPCSource_SupplyOfClosedMint(t *testing.T) {
	src := newSource(t, func(string) string {
		return `{"jsonrpc":"2.0","id":1,"error":{"code":-32602,"message":"Invalid param: could not find account"}}`
	})

	_, err := src.Supply(context.Background(), solana.NewWallet().PublicKey())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRPCSource_LargestHolders(t *testing.T) {
	src := newSource(t, func(method string) string {
		assert.Equal(t, "getTokenLargestAccounts", method)
		return `{"jsonrpc":"2.0","id":1,"result":{"context":{"slot":1},"value":[
			{"address":"A","amount":"900","decimals":6,"uiAmountString":"0.0009"},
			{"address":"B","amount":"100","decimals":6,"uiAmountString":"0.0001"}]}}`
	})

	holders, err := src.LargestHolders(context.Background(), solana.NewWallet().PublicKey())
	require.NoError(t, err)
	assert.Equal(t, []Holder{{Address: "A", Amount: 900}, {Address: "B", Amount: 100}}, holders)
}

func TestRPCSource_MissingMint(t *testing.T) {
	src := newSource(t, func(string) string {
		return `{"jsonrpc":"2.0","id":1,"result":{"context":{"slot":1},"value":null}}`
	})

	_, err := src.Mint(context.Background(), solana.NewWallet().PublicKey())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRPCSource_Socials(t *testing.T) {
	meta := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, `{"name":"x","extensions":{"twitter":"https://x.com/t","website":"","discord":null,"count":3}}`)
	}))
	defer meta.Close()

	src := newSource(t, func(string) string { return "" })

	links, err := src.Socials(context.Background(), meta.URL+"/token.json")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"twitter": "https://x.com/t"}, links)

	_, err = src.Socials(context.Background(), meta.URL+"/missing")
	var herr *HTTPError
	require.ErrorAs(t, err, &herr)
	assert.Equal(t, http.StatusNotFound, herr.StatusCode)

	_, err = src.Socials(context.Background(), "ipfs://abc")
	assert.Error(t, err)
}

type countingSource struct {
	calls atomic.Int32
}

func (c *countingSource) Mint(context.Context, solana.PublicKey) (*layout.Mint, error) {
	c.calls.Add(1)
	return &layout.Mint{Decimals: 6}, nil
}

func (c *countingSource) Metadata(context.Context, solana.PublicKey) (*layout.Metadata, error) {
	c.calls.Add(1)
	return nil, ErrNotFound
}

func (c *countingSource) Supply(context.Context, solana.PublicKey) (uint64, error) { return 0, nil }

func (c *countingSource) LargestHolders(context.Context, solana.PublicKey) ([]Holder, error) {
	return nil, nil
}

func (c *countingSource) Balance(context.Context, solana.PublicKey) (uint64, error) { return 1, nil }

func (c *countingSource) Socials(context.Context, string) (map[string]string, error) {
	c.calls.Add(1)
	return nil, nil
}

func TestSnapshot_MemoizesLookups(t *testing.T) {
	src := &countingSource{}
	snap := NewSnapshot(src, &models.PoolRecord{BaseMint: solana.NewWallet().PublicKey()})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m, err := snap.Mint(context.Background())
			assert.NoError(t, err)
			assert.Equal(t, uint8(6), m.Decimals)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), src.calls.Load())

	_, err := snap.Socials(context.Background())
	assert.True(t, errors.Is(err, ErrNotFound))
	_, err = snap.Metadata(context.Background())
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, int32(2), src.calls.Load())
}
