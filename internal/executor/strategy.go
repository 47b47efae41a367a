// Package executor lands signed transactions through one of several relay policies.
package executor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/solana-pool-sniper/internal/constants"
	"github.com/aman-zulfiqar/solana-pool-sniper/internal/rpc"
)

// Kind selects an execution strategy.
type Kind string

const (
	KindDefault Kind = "default"
	KindWarp    Kind = "warp"
	KindJito    Kind = "jito"
)

// ParseKind maps a configuration tag to a Kind. An empty tag selects KindDefault.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case "", KindDefault:
		return KindDefault, nil
	case KindWarp:
		return KindWarp, nil
	case KindJito:
		return KindJito, nil
	}
	return "", fmt.Errorf("unknown transaction executor %q", s)
}

// Payload is a signed transaction ready for submission.
type Payload struct {
	Tx                   *solana.Transaction
	Blockhash            solana.Hash
	LastValidBlockHeight uint64
}

// Result describes a confirmed transaction.
type Result struct {
	Signature string
	Elapsed   time.Duration
}

// Strategy submits transactions and waits for them to land.
type Strategy interface {
	Kind() Kind
	// FeeInstructions are prepended to every transaction before signing.
	FeeInstructions(payer solana.PublicKey) ([]solana.Instruction, error)
	// Execute returns once the transaction is confirmed, or with an error
	// once it failed or the hard timeout elapsed. It never blocks longer
	// than the configured ConfirmTimeout.
	Execute(ctx context.Context, p *Payload) (Result, error)
}

// Config holds the knobs shared by every strategy.
type Config struct {
	Kind Kind
	RPC  *rpc.Client

	Commitment       string
	ComputeUnitLimit uint32
	ComputeUnitPrice uint64
	// Fee is the flat relay tip in SOL.
	Fee decimal.Decimal

	ConfirmTimeout time.Duration
	PollInterval   time.Duration

	// Endpoint overrides; empty uses the public relay addresses.
	WarpEndpoint  string
	JitoEndpoints []string

	Logger *logrus.Logger
}

// DefaultConfig returns conservative defaults for direct submission.
func DefaultConfig() Config {
	return Config{
		Kind:             KindDefault,
		Commitment:       "confirmed",
		ComputeUnitLimit: 101337,
		ComputeUnitPrice: 421197,
		Fee:              decimal.RequireFromString("0.006"),
		ConfirmTimeout:   60 * time.Second,
		PollInterval:     constants.ConfirmPollInterval,
	}
}

// New builds the strategy selected by cfg.Kind.
func New(cfg Config) (Strategy, error) {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.RPC == nil {
		return nil, fmt.Errorf("executor: rpc client is required")
	}
	if cfg.Commitment == "" {
		cfg.Commitment = "confirmed"
	}
	if cfg.ConfirmTimeout <= 0 {
		cfg.ConfirmTimeout = 60 * time.Second
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = constants.ConfirmPollInterval
	}

	switch cfg.Kind {
	case "", KindDefault:
		return newDefaultExecutor(cfg), nil
	case KindWarp:
		return newWarpExecutor(cfg)
	case KindJito:
		return newJitoExecutor(cfg)
	}
	return nil, fmt.Errorf("unknown transaction executor %q", cfg.Kind)
}

func feeLamports(fee decimal.Decimal) (uint64, error) {
	lamports := fee.Shift(9).Truncate(0)
	if lamports.IsNegative() || !lamports.BigInt().IsUint64() {
		return 0, fmt.Errorf("invalid relay fee %s", fee)
	}
	return lamports.BigInt().Uint64(), nil
}
