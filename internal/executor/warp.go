package executor

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/solana-pool-sniper/internal/constants"
	"github.com/aman-zulfiqar/solana-pool-sniper/internal/solanaix"
)

type warpRequest struct {
	Transactions []string `json:"transactions"`
}

type warpResponse struct {
	Confirmed bool   `json:"confirmed"`
	Signature string `json:"signature"`
	Error     string `json:"error"`
}

// warpExecutor hands the transaction to the Warp relay, which confirms it
// synchronously. A flat fee is transferred to the relay wallet.
type warpExecutor struct {
	cfg      Config
	endpoint string
	feeTo    solana.PublicKey
	fee      uint64
	http     *http.Client
}

func newWarpExecutor(cfg Config) (*warpExecutor, error) {
	fee, err := feeLamports(cfg.Fee)
	if err != nil {
		return nil, err
	}
	endpoint := cfg.WarpEndpoint
	if endpoint == "" {
		endpoint = constants.WarpEndpoint
	}
	return &warpExecutor{
		cfg:      cfg,
		endpoint: endpoint,
		feeTo:    solana.MustPublicKeyFromBase58(constants.WarpFeeWallet),
		fee:      fee,
		http:     &http.Client{Timeout: constants.RelayHTTPTimeout},
	}, nil
}

func (e *warpExecutor) Kind() Kind { return KindWarp }

func (e *warpExecutor) FeeInstructions(payer solana.PublicKey) ([]solana.Instruction, error) {
	return []solana.Instruction{
		solanaix.NewSetComputeUnitLimitIx(e.cfg.ComputeUnitLimit),
		solanaix.NewSystemTransferIx(payer, e.feeTo, e.fee),
	}, nil
}

func (e *warpExecutor) Execute(ctx context.Context, p *Payload) (Result, error) {
	start := time.Now()
	encoded, err := encodeBase64(p)
	if err != nil {
		return Result{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, e.cfg.ConfirmTimeout)
	defer cancel()

	var out warpResponse
	if err := postJSON(ctx, e.http, "warp", e.endpoint, warpRequest{Transactions: []string{encoded}}, &out); err != nil {
		return Result{Signature: signatureOf(p)}, err
	}

	sig := out.Signature
	if sig == "" {
		sig = signatureOf(p)
	}
	e.cfg.Logger.WithFields(logrus.Fields{
		"signature": sig,
		"confirmed": out.Confirmed,
		"executor":  KindWarp,
	}).Debug("warp relay response")

	if !out.Confirmed {
		reason := out.Error
		if reason == "" {
			reason = "not confirmed"
		}
		return Result{Signature: sig}, classify("warp", sig, fmt.Errorf("%w: %s", ErrTxFailed, reason))
	}
	return Result{Signature: sig, Elapsed: time.Since(start)}, nil
}
