package executor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aman-zulfiqar/solana-pool-sniper/internal/constants"
	"github.com/aman-zulfiqar/solana-pool-sniper/internal/rpc"
)

type rpcHandler func(method string, params []json.RawMessage) string

func newRPC(t *testing.T, h rpcHandler) *rpc.Client {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Method string            `json:"method"`
			Params []json.RawMessage `json:"params"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		_, _ = w.Write([]byte(h(req.Method, req.Params)))
	}))
	t.Cleanup(srv.Close)

	logger, _ := test.NewNullLogger()
	return rpc.NewClient(rpc.ClientConfig{
		BaseURL:      srv.URL,
		Timeout:      time.Second,
		RetryBackoff: time.Millisecond,
		Logger:       logger,
	})
}

func signedPayload(t *testing.T) (*Payload, solana.PrivateKey) {
	key := solana.NewWallet().PrivateKey
	tx, err := solana.NewTransaction(
		[]solana.Instruction{solana.NewInstruction(constants.ComputeBudgetProgram, []*solana.AccountMeta{}, []byte{3, 1, 0, 0, 0, 0, 0, 0, 0})},
		solana.Hash{1},
		solana.TransactionPayer(key.PublicKey()),
	)
	require.NoError(t, err)
	_, err = tx.Sign(func(pk solana.PublicKey) *solana.PrivateKey {
		if pk.Equals(key.PublicKey()) {
			return &key
		}
		return nil
	})
	require.NoError(t, err)
	return &Payload{Tx: tx, Blockhash: solana.Hash{1}, LastValidBlockHeight: 100}, key
}

func testConfig(client *rpc.Client, kind Kind) Config {
	logger, _ := test.NewNullLogger()
	cfg := DefaultConfig()
	cfg.Kind = kind
	cfg.RPC = client
	cfg.Logger = logger
	cfg.ConfirmTimeout = 2 * time.Second
	cfg.PollInterval = 5 * time.Millisecond
	return cfg
}

func result(v string) string {
	return fmt.Sprintf(`{"jsonrpc":"2.0","id":1,"result":%s}`, v)
}

func TestParseKind(t *testing.T) {
	for in, want := range map[string]Kind{"": KindDefault, "default": KindDefault, "WARP": KindWarp, " jito ": KindJito} {
		got, err := ParseKind(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseKind("flashbots")
	assert.Error(t, err)
}

func TestIsRetryable(t *testing.T) {
	assert.False(t, IsRetryable(nil))
	assert.True(t, IsRetryable(errors.New("connection reset")))
	assert.True(t, IsRetryable(transient("send", "", ErrExpired)))
	assert.False(t, IsRetryable(permanent("send", "", ErrNoPayload)))
	assert.False(t, IsRetryable(classify("send", "", errors.New("Transfer: insufficient lamports 5, need 10"))))
	assert.True(t, IsRetryable(fmt.Errorf("wrapped: %w", transient("confirm", "sig", ErrTimeout))))
}

func TestDefaultExecutor_SendAndConfirm(t *testing.T) {
	payload, _ := signedPayload(t)
	sig := signatureOf(payload)

	var polls atomic.Int32
	client := newRPC(t, func(method string, _ []json.RawMessage) string {
		switch method {
		case "sendTransaction":
			return result(fmt.Sprintf("%q", sig))
		case "getSignatureStatuses":
			if polls.Add(1) < 3 {
				return result(`{"context":{"slot":1},"value":[null]}`)
			}
			return result(`{"context":{"slot":1},"value":[{"slot":2,"err":null,"confirmationStatus":"confirmed"}]}`)
		case "getBlockHeight":
			return result("50")
		}
		return result("null")
	})

	exec, err := New(testConfig(client, KindDefault))
	require.NoError(t, err)
	assert.Equal(t, KindDefault, exec.Kind())

	res, err := exec.Execute(context.Background(), payload)
	require.NoError(t, err)
	assert.Equal(t, sig, res.Signature)
	assert.GreaterOrEqual(t, polls.Load(), int32(3))
}

func TestDefaultExecutor_Expired(t *testing.T) {
	payload, _ := signedPayload(t)
	client := newRPC(t, func(method string, _ []json.RawMessage) string {
		switch method {
		case "sendTransaction":
			return result(`"sig"`)
		case "getSignatureStatuses":
			return result(`{"context":{"slot":1},"value":[null]}`)
		case "getBlockHeight":
			return result("101")
		}
		return result("null")
	})

	exec, err := New(testConfig(client, KindDefault))
	require.NoError(t, err)

	_, err = exec.Execute(context.Background(), payload)
	require.ErrorIs(t, err, ErrExpired)
	assert.True(t, IsRetryable(err))
}

func TestDefaultExecutor_OnChainFailure(t *testing.T) {
	payload, _ := signedPayload(t)
	client := newRPC(t, func(method string, _ []json.RawMessage) string {
		switch method {
		case "sendTransaction":
			return result(`"sig"`)
		case "getSignatureStatuses":
			return result(`{"context":{"slot":1},"value":[{"slot":2,"err":{"InstructionError":[2,{"Custom":30}]},"confirmationStatus":"processed"}]}`)
		}
		return result("0")
	})

	exec, err := New(testConfig(client, KindDefault))
	require.NoError(t, err)

	_, err = exec.Execute(context.Background(), payload)
	require.ErrorIs(t, err, ErrTxFailed)
}

func TestDefaultExecutor_ConfirmTimeout(t *testing.T) {
	payload, _ := signedPayload(t)
	payload.LastValidBlockHeight = 0
	client := newRPC(t, func(method string, _ []json.RawMessage) string {
		if method == "sendTransaction" {
			return result(`"sig"`)
		}
		return result(`{"context":{"slot":1},"value":[null]}`)
	})

	cfg := testConfig(client, KindDefault)
	cfg.ConfirmTimeout = 50 * time.Millisecond
	exec, err := New(cfg)
	require.NoError(t, err)

	start := time.Now()
	_, err = exec.Execute(context.Background(), payload)
	require.ErrorIs(t, err, ErrTimeout)
	assert.Less(t, time.Since(start), time.Second)
}

func TestDefaultExecutor_FeeInstructions(t *testing.T) {
	exec, err := New(testConfig(newRPC(t, nil), KindDefault))
	require.NoError(t, err)

	ixs, err := exec.FeeInstructions(solana.NewWallet().PublicKey())
	require.NoError(t, err)
	require.Len(t, ixs, 2)
	for _, ix := range ixs {
		assert.Equal(t, constants.ComputeBudgetProgram, ix.ProgramID())
	}
}

func TestWarpExecutor(t *testing.T) {
	payload, _ := signedPayload(t)

	var got warpRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"confirmed":true,"signature":"warp-sig"}`))
	}))
	defer srv.Close()

	cfg := testConfig(newRPC(t, nil), KindWarp)
	cfg.WarpEndpoint = srv.URL
	exec, err := New(cfg)
	require.NoError(t, err)

	payer := solana.NewWallet().PublicKey()
	ixs, err := exec.FeeInstructions(payer)
	require.NoError(t, err)
	require.Len(t, ixs, 2)
	assert.Equal(t, solana.SystemProgramID, ixs[1].ProgramID())

	res, err := exec.Execute(context.Background(), payload)
	require.NoError(t, err)
	assert.Equal(t, "warp-sig", res.Signature)
	require.Len(t, got.Transactions, 1)
}

func TestWarpExecutor_NotConfirmed(t *testing.T) {
	payload, _ := signedPayload(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"confirmed":false,"error":"dropped"}`))
	}))
	defer srv.Close()

	cfg := testConfig(newRPC(t, nil), KindWarp)
	cfg.WarpEndpoint = srv.URL
	exec, err := New(cfg)
	require.NoError(t, err)

	_, err = exec.Execute(context.Background(), payload)
	require.ErrorIs(t, err, ErrTxFailed)
	assert.Contains(t, err.Error(), "dropped")
}

func TestWarpExecutor_BadRequestIsPermanent(t *testing.T) {
	payload, _ := signedPayload(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "malformed", http.StatusBadRequest)
	}))
	defer srv.Close()

	cfg := testConfig(newRPC(t, nil), KindWarp)
	cfg.WarpEndpoint = srv.URL
	exec, err := New(cfg)
	require.NoError(t, err)

	_, err = exec.Execute(context.Background(), payload)
	var herr *HTTPError
	require.ErrorAs(t, err, &herr)
	assert.Equal(t, http.StatusBadRequest, herr.StatusCode)
	assert.False(t, IsRetryable(err))
}

func TestJitoExecutor_FirstEngineWins(t *testing.T) {
	payload, _ := signedPayload(t)
	sig := signatureOf(payload)

	var bundle bundleRequest
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&bundle))
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":"bundle-1"}`))
	}))
	defer good.Close()
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer bad.Close()

	client := newRPC(t, func(method string, _ []json.RawMessage) string {
		if method == "getSignatureStatuses" {
			return result(`{"context":{"slot":1},"value":[{"slot":2,"err":null,"confirmationStatus":"finalized"}]}`)
		}
		return result("1")
	})

	cfg := testConfig(client, KindJito)
	cfg.JitoEndpoints = []string{bad.URL, good.URL}
	exec, err := New(cfg)
	require.NoError(t, err)

	res, err := exec.Execute(context.Background(), payload)
	require.NoError(t, err)
	assert.Equal(t, sig, res.Signature)

	assert.Equal(t, "sendBundle", bundle.Method)
	require.Len(t, bundle.Params, 1)
	require.Len(t, bundle.Params[0], 1)
	raw, err := base58.Decode(bundle.Params[0][0])
	require.NoError(t, err)
	expected, err := payload.Tx.MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, expected, raw)
}

func TestJitoExecutor_AllEnginesFail(t *testing.T) {
	payload, _ := signedPayload(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"error":{"code":-32602,"message":"bundle too old"}}`))
	}))
	defer srv.Close()

	cfg := testConfig(newRPC(t, nil), KindJito)
	cfg.JitoEndpoints = []string{srv.URL, srv.URL}
	exec, err := New(cfg)
	require.NoError(t, err)

	_, err = exec.Execute(context.Background(), payload)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bundle too old")
	assert.True(t, IsRetryable(err))
}

func TestJitoExecutor_TipInstruction(t *testing.T) {
	cfg := testConfig(newRPC(t, nil), KindJito)
	cfg.Fee = decimal.RequireFromString("0.001")
	exec, err := New(cfg)
	require.NoError(t, err)

	ixs, err := exec.FeeInstructions(solana.NewWallet().PublicKey())
	require.NoError(t, err)
	require.Len(t, ixs, 2)

	tip := ixs[1].Accounts()[1].PublicKey.String()
	assert.Contains(t, constants.JitoTipAccounts, tip)

	data, err := ixs[1].Data()
	require.NoError(t, err)
	require.Len(t, data, 12)
	assert.Equal(t, byte(0x40), data[4]) // 1_000_000 lamports, little endian 0x0F4240
}

func TestNew_RequiresRPC(t *testing.T) {
	_, err := New(Config{Kind: KindDefault})
	assert.Error(t, err)
}
