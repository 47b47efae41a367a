package executor

import (
	"context"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/solana-pool-sniper/internal/rpc"
	"github.com/aman-zulfiqar/solana-pool-sniper/internal/solanaix"
)

// defaultExecutor sends through the RPC node with a compute-unit priority fee.
type defaultExecutor struct {
	cfg Config
}

func newDefaultExecutor(cfg Config) *defaultExecutor {
	return &defaultExecutor{cfg: cfg}
}

func (e *defaultExecutor) Kind() Kind { return KindDefault }

func (e *defaultExecutor) FeeInstructions(_ solana.PublicKey) ([]solana.Instruction, error) {
	return []solana.Instruction{
		solanaix.NewSetComputeUnitPriceIx(e.cfg.ComputeUnitPrice),
		solanaix.NewSetComputeUnitLimitIx(e.cfg.ComputeUnitLimit),
	}, nil
}

func (e *defaultExecutor) Execute(ctx context.Context, p *Payload) (Result, error) {
	start := time.Now()
	encoded, err := encodeBase64(p)
	if err != nil {
		return Result{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, e.cfg.ConfirmTimeout)
	defer cancel()

	maxRetries := 0
	sig, err := e.cfg.RPC.SendTransaction(ctx, encoded, rpc.SendOptions{
		PreflightCommitment: e.cfg.Commitment,
		MaxRetries:          &maxRetries,
	})
	if err != nil {
		return Result{}, classify("send", signatureOf(p), err)
	}

	e.cfg.Logger.WithFields(logrus.Fields{
		"signature": sig,
		"executor":  KindDefault,
	}).Debug("transaction sent")

	if err := confirm(ctx, e.cfg.RPC, sig, e.cfg.Commitment, p.LastValidBlockHeight, e.cfg.PollInterval); err != nil {
		return Result{Signature: sig}, err
	}
	return Result{Signature: sig, Elapsed: time.Since(start)}, nil
}
