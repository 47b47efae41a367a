// Package txbuilder assembles and signs Raydium swap transactions.
package txbuilder

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/solana-pool-sniper/internal/cache"
	"github.com/aman-zulfiqar/solana-pool-sniper/internal/executor"
	"github.com/aman-zulfiqar/solana-pool-sniper/internal/layout"
	"github.com/aman-zulfiqar/solana-pool-sniper/internal/models"
	"github.com/aman-zulfiqar/solana-pool-sniper/internal/rpc"
	"github.com/aman-zulfiqar/solana-pool-sniper/internal/solanaix"
)

var ErrMarketNotFound = errors.New("market not found")

// Signer signs transactions for a single payer.
type Signer interface {
	PublicKey() solana.PublicKey
	SignTx(tx *solana.Transaction) error
}

// FeeSource provides the fee instructions of the active execution strategy.
type FeeSource interface {
	FeeInstructions(payer solana.PublicKey) ([]solana.Instruction, error)
}

// SwapRequest describes one swap against a pool. For buys AmountIn is in
// quote units, for sells in base units.
type SwapRequest struct {
	Pool     *models.PoolRecord
	Side     models.Side
	AmountIn uint64
	MinOut   uint64
}

type Config struct {
	RPC        *rpc.Client
	Signer     Signer
	Fees       FeeSource
	Markets    *cache.MarketCache
	Commitment string
	Logger     *logrus.Logger
}

// Builder turns swap requests into signed payloads.
type Builder struct {
	cfg Config
}

func New(cfg Config) (*Builder, error) {
	if cfg.RPC == nil || cfg.Signer == nil || cfg.Fees == nil || cfg.Markets == nil {
		return nil, fmt.Errorf("txbuilder: rpc, signer, fees and markets are required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.Commitment == "" {
		cfg.Commitment = "confirmed"
	}
	return &Builder{cfg: cfg}, nil
}

// Build assembles, signs and returns the swap described by req. Buys create
// the base token account idempotently; sells close it afterwards so the rent
// returns to the wallet.
func (b *Builder) Build(ctx context.Context, req SwapRequest) (*executor.Payload, error) {
	if req.Pool == nil {
		return nil, fmt.Errorf("txbuilder: pool is required")
	}
	if req.AmountIn == 0 {
		return nil, fmt.Errorf("txbuilder: amount in must be positive")
	}

	market, err := b.market(ctx, req.Pool.MarketID)
	if err != nil {
		return nil, err
	}
	authority, err := layout.MarketVaultSigner(market, req.Pool.MarketProgramID)
	if err != nil {
		return nil, err
	}

	owner := b.cfg.Signer.PublicKey()
	baseATA, _, err := solanaix.FindAssociatedTokenAddress(owner, req.Pool.BaseMint)
	if err != nil {
		return nil, fmt.Errorf("derive base token account: %w", err)
	}
	quoteATA, _, err := solanaix.FindAssociatedTokenAddress(owner, req.Pool.QuoteMint)
	if err != nil {
		return nil, fmt.Errorf("derive quote token account: %w", err)
	}

	keys := solanaix.RaydiumSwapAccounts{
		AmmID:            req.Pool.ID,
		AmmOpenOrders:    req.Pool.OpenOrders,
		AmmTargetOrders:  req.Pool.TargetOrders,
		PoolBaseVault:    req.Pool.BaseVault,
		PoolQuoteVault:   req.Pool.QuoteVault,
		MarketProgramID:  req.Pool.MarketProgramID,
		MarketID:         market.ID,
		MarketBids:       market.Bids,
		MarketAsks:       market.Asks,
		MarketEventQueue: market.EventQueue,
		MarketBaseVault:  market.BaseVault,
		MarketQuoteVault: market.QuoteVault,
		MarketAuthority:  authority,
		UserOwner:        owner,
	}

	ixs, err := b.cfg.Fees.FeeInstructions(owner)
	if err != nil {
		return nil, fmt.Errorf("fee instructions: %w", err)
	}

	switch req.Side {
	case models.SideBuy:
		keys.UserSource, keys.UserDestination = quoteATA, baseATA
		ixs = append(ixs, solanaix.NewCreateAssociatedTokenAccountIdempotentIx(owner, baseATA, owner, req.Pool.BaseMint))
		swap, err := solanaix.NewRaydiumSwapBaseInIx(keys, req.AmountIn, req.MinOut)
		if err != nil {
			return nil, err
		}
		ixs = append(ixs, swap)
	case models.SideSell:
		keys.UserSource, keys.UserDestination = baseATA, quoteATA
		swap, err := solanaix.NewRaydiumSwapBaseInIx(keys, req.AmountIn, req.MinOut)
		if err != nil {
			return nil, err
		}
		ixs = append(ixs, swap, solanaix.NewTokenCloseAccountIx(baseATA, owner, owner))
	default:
		return nil, fmt.Errorf("txbuilder: unknown side %q", req.Side)
	}

	bh, err := b.cfg.RPC.GetLatestBlockhash(ctx, b.cfg.Commitment)
	if err != nil {
		return nil, fmt.Errorf("getLatestBlockhash failed: %w", err)
	}
	hash, err := solana.HashFromBase58(bh.Blockhash)
	if err != nil {
		return nil, fmt.Errorf("invalid blockhash %q: %w", bh.Blockhash, err)
	}

	tx, err := solana.NewTransaction(ixs, hash, solana.TransactionPayer(owner))
	if err != nil {
		return nil, fmt.Errorf("failed to build transaction: %w", err)
	}
	if err := b.cfg.Signer.SignTx(tx); err != nil {
		return nil, err
	}

	b.cfg.Logger.WithFields(logrus.Fields{
		"mint":      req.Pool.Token(),
		"side":      req.Side,
		"amount_in": req.AmountIn,
		"min_out":   req.MinOut,
	}).Debug("swap transaction built")

	return &executor.Payload{
		Tx:                   tx,
		Blockhash:            hash,
		LastValidBlockHeight: bh.LastValidBlockHeight,
	}, nil
}

// market returns the cached market or loads and caches it.
func (b *Builder) market(ctx context.Context, id solana.PublicKey) (*models.MarketRecord, error) {
	if m, ok := b.cfg.Markets.Get(id.String()); ok {
		return m, nil
	}

	info, err := b.cfg.RPC.GetAccountInfo(ctx, id.String(), b.cfg.Commitment)
	if err != nil {
		return nil, fmt.Errorf("getAccountInfo(market) failed: %w", err)
	}
	if info == nil {
		return nil, fmt.Errorf("%w: %s", ErrMarketNotFound, id)
	}
	m, err := layout.DecodeMarket(id, info.Data)
	if err != nil {
		return nil, err
	}
	b.cfg.Markets.Save(m)
	if cached, ok := b.cfg.Markets.Get(id.String()); ok {
		return cached, nil
	}
	return m, nil
}
