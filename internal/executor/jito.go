package executor

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/solana-pool-sniper/internal/constants"
	"github.com/aman-zulfiqar/solana-pool-sniper/internal/solanaix"
)

type bundleRequest struct {
	JSONRPC string     `json:"jsonrpc"`
	ID      int        `json:"id"`
	Method  string     `json:"method"`
	Params  [][]string `json:"params"`
}

type bundleResponse struct {
	Result string `json:"result"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// jitoExecutor submits single-transaction bundles to every block engine
// and confirms the signature through the RPC node.
type jitoExecutor struct {
	cfg       Config
	endpoints []string
	tips      []solana.PublicKey
	fee       uint64
	http      *http.Client
}

func newJitoExecutor(cfg Config) (*jitoExecutor, error) {
	fee, err := feeLamports(cfg.Fee)
	if err != nil {
		return nil, err
	}
	endpoints := cfg.JitoEndpoints
	if len(endpoints) == 0 {
		endpoints = constants.JitoBlockEngines
	}
	tips := make([]solana.PublicKey, 0, len(constants.JitoTipAccounts))
	for _, s := range constants.JitoTipAccounts {
		tips = append(tips, solana.MustPublicKeyFromBase58(s))
	}
	return &jitoExecutor{
		cfg:       cfg,
		endpoints: endpoints,
		tips:      tips,
		fee:       fee,
		http:      &http.Client{Timeout: constants.RelayHTTPTimeout},
	}, nil
}

func (e *jitoExecutor) Kind() Kind { return KindJito }

func (e *jitoExecutor) FeeInstructions(payer solana.PublicKey) ([]solana.Instruction, error) {
	tip := e.tips[rand.Intn(len(e.tips))]
	return []solana.Instruction{
		solanaix.NewSetComputeUnitLimitIx(e.cfg.ComputeUnitLimit),
		solanaix.NewSystemTransferIx(payer, tip, e.fee),
	}, nil
}

func (e *jitoExecutor) Execute(ctx context.Context, p *Payload) (Result, error) {
	start := time.Now()
	if p == nil || p.Tx == nil {
		return Result{}, permanent("jito", "", ErrNoPayload)
	}
	raw, err := p.Tx.MarshalBinary()
	if err != nil {
		return Result{}, permanent("jito", "", fmt.Errorf("failed to serialize transaction: %w", err))
	}
	sig := signatureOf(p)

	ctx, cancel := context.WithTimeout(ctx, e.cfg.ConfirmTimeout)
	defer cancel()

	bundleID, err := e.broadcast(ctx, base58.Encode(raw))
	if err != nil {
		return Result{Signature: sig}, err
	}

	e.cfg.Logger.WithFields(logrus.Fields{
		"signature": sig,
		"bundle":    bundleID,
		"executor":  KindJito,
	}).Debug("bundle accepted")

	if err := confirm(ctx, e.cfg.RPC, sig, e.cfg.Commitment, p.LastValidBlockHeight, e.cfg.PollInterval); err != nil {
		return Result{Signature: sig}, err
	}
	return Result{Signature: sig, Elapsed: time.Since(start)}, nil
}

// broadcast posts the bundle to all block engines and returns the first
// accepted bundle id.
func (e *jitoExecutor) broadcast(ctx context.Context, encoded string) (string, error) {
	req := bundleRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "sendBundle",
		Params:  [][]string{{encoded}},
	}

	type outcome struct {
		id  string
		err error
	}
	results := make(chan outcome, len(e.endpoints))
	var wg sync.WaitGroup
	for _, endpoint := range e.endpoints {
		wg.Add(1)
		go func(url string) {
			defer wg.Done()
			var out bundleResponse
			if err := postJSON(ctx, e.http, "jito", url, req, &out); err != nil {
				results <- outcome{err: err}
				return
			}
			if out.Error != nil {
				results <- outcome{err: transient("jito", "", fmt.Errorf("bundle rejected: %s", out.Error.Message))}
				return
			}
			results <- outcome{id: out.Result}
		}(endpoint)
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	var errs []error
	for r := range results {
		if r.err == nil {
			return r.id, nil
		}
		errs = append(errs, r.err)
	}
	if len(errs) == 0 {
		return "", transient("jito", "", errors.New("no block engine configured"))
	}
	for _, err := range errs {
		if IsRetryable(err) {
			return "", err
		}
	}
	return "", errs[0]
}
