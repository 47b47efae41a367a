package rpc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rpcRequest struct {
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

func newTestClient(t *testing.T, handler func(req rpcRequest) (int, string)) (*Client, *atomic.Int32) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		var req rpcRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		code, body := handler(req)
		w.WriteHeader(code)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	logger, _ := test.NewNullLogger()
	return NewClient(ClientConfig{
		BaseURL:      srv.URL,
		Timeout:      2 * time.Second,
		MaxRetries:   2,
		RetryBackoff: time.Millisecond,
		Logger:       logger,
	}), &calls
}

func TestClient_CallRetriesOnServerError(t *testing.T) {
	client, calls := newTestClient(t, func(req rpcRequest) (int, string) {
		return http.StatusTooManyRequests, ""
	})

	var out struct{}
	err := client.Call(context.Background(), "getHealth", nil, &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max retries exceeded")
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_CallDoesNotRetryClientError(t *testing.T) {
	client, calls := newTestClient(t, func(req rpcRequest) (int, string) {
		return http.StatusBadRequest, ""
	})

	var out struct{}
	err := client.Call(context.Background(), "getHealth", nil, &out)
	var se *HTTPStatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadRequest, se.StatusCode)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_CallResultRPCError(t *testing.T) {
	client, _ := newTestClient(t, func(req rpcRequest) (int, string) {
		return http.StatusOK, `{"jsonrpc":"2.0","id":1,"error":{"code":-32002,"message":"blockhash not found"}}`
	})

	_, err := client.GetBalance(context.Background(), "addr", "")
	require.Error(t, err)

	var rpcErr *RPCError
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, -32002, rpcErr.Code)
}

func TestClient_GetAccountInfo(t *testing.T) {
	client, _ := newTestClient(t, func(req rpcRequest) (int, string) {
		assert.Equal(t, "getAccountInfo", req.Method)
		var addr string
		require.NoError(t, json.Unmarshal(req.Params[0], &addr))
		if addr == "missing" {
			return http.StatusOK, `{"jsonrpc":"2.0","id":1,"result":{"context":{"slot":1},"value":null}}`
		}
		return http.StatusOK, `{"jsonrpc":"2.0","id":1,"result":{"context":{"slot":1},"value":{"data":["AQID","base64"],"owner":"Tok","lamports":5,"executable":false}}}`
	})

	info, err := client.GetAccountInfo(context.Background(), "present", "confirmed")
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.Equal(t, []byte{1, 2, 3}, []byte(info.Data))
	assert.Equal(t, "Tok", info.Owner)
	assert.Equal(t, uint64(5), info.Lamports)

	info, err = client.GetAccountInfo(context.Background(), "missing", "confirmed")
	require.NoError(t, err)
	assert.Nil(t, info)
}

func TestClient_GetTokenLargestAccounts(t *testing.T) {
	client, _ := newTestClient(t, func(req rpcRequest) (int, string) {
		return http.StatusOK, `{"jsonrpc":"2.0","id":1,"result":{"context":{"slot":1},"value":[
			{"address":"A","amount":"900","decimals":6,"uiAmountString":"0.0009"},
			{"address":"B","amount":"100","decimals":6,"uiAmountString":"0.0001"}]}}`
	})

	out, err := client.GetTokenLargestAccounts(context.Background(), "mint", "")
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "A", out[0].Address)
	amount, err := out[0].Uint64()
	require.NoError(t, err)
	assert.Equal(t, uint64(900), amount)
}

func TestClient_GetSignatureStatuses(t *testing.T) {
	client, _ := newTestClient(t, func(req rpcRequest) (int, string) {
		return http.StatusOK, `{"jsonrpc":"2.0","id":1,"result":{"context":{"slot":1},"value":[{"slot":9,"confirmations":null,"err":null,"confirmationStatus":"finalized"},null]}}`
	})

	out, err := client.GetSignatureStatuses(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, out, 2)
	require.NotNil(t, out[0])
	assert.True(t, out[0].Reached("confirmed"))
	assert.True(t, out[0].Reached("finalized"))
	assert.Nil(t, out[1])
}

func TestClient_RateLimit(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":1}`))
	}))
	defer srv.Close()

	logger, _ := test.NewNullLogger()
	client := NewClient(ClientConfig{BaseURL: srv.URL, RateLimit: 1, Burst: 1, Logger: logger})

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	_, err := client.GetBlockHeight(ctx, "")
	require.NoError(t, err)
	_, err = client.GetBlockHeight(ctx, "")
	assert.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}
