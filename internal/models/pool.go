// ============================================================================
// models/pool.go
// ============================================================================
package models

import (
	"time"

	"github.com/gagliardetto/solana-go"
)

// PoolRecord is a decoded Raydium AMM v4 pool state. It is created once per
// base mint and never mutated afterwards.
type PoolRecord struct {
	ID              solana.PublicKey `json:"id"`
	BaseMint        solana.PublicKey `json:"base_mint"`
	QuoteMint       solana.PublicKey `json:"quote_mint"`
	LPMint          solana.PublicKey `json:"lp_mint"`
	BaseVault       solana.PublicKey `json:"base_vault"`
	QuoteVault      solana.PublicKey `json:"quote_vault"`
	OpenOrders      solana.PublicKey `json:"open_orders"`
	TargetOrders    solana.PublicKey `json:"target_orders"`
	MarketID        solana.PublicKey `json:"market_id"`
	MarketProgramID solana.PublicKey `json:"market_program_id"`
	BaseDecimals    uint8            `json:"base_decimals"`
	QuoteDecimals   uint8            `json:"quote_decimals"`
	Status          uint64           `json:"status"`
	LPReserve       uint64           `json:"lp_reserve"`
	OpenTime        time.Time        `json:"open_time"`
}

// Token returns the identity of the traded asset.
func (p *PoolRecord) Token() string {
	return p.BaseMint.String()
}

// Lag is the delay between the pool opening and now in whole seconds, the
// granularity of the on-chain open time.
func (p *PoolRecord) Lag(now time.Time) time.Duration {
	if p.OpenTime.IsZero() {
		return 0
	}
	return time.Duration(now.Unix()-p.OpenTime.Unix()) * time.Second
}

// MarketRecord is the subset of an OpenBook v3 market needed to build swaps.
type MarketRecord struct {
	ID               solana.PublicKey `json:"id"`
	BaseMint         solana.PublicKey `json:"base_mint"`
	QuoteMint        solana.PublicKey `json:"quote_mint"`
	BaseVault        solana.PublicKey `json:"base_vault"`
	QuoteVault       solana.PublicKey `json:"quote_vault"`
	Bids             solana.PublicKey `json:"bids"`
	Asks             solana.PublicKey `json:"asks"`
	EventQueue       solana.PublicKey `json:"event_queue"`
	RequestQueue     solana.PublicKey `json:"request_queue"`
	VaultSignerNonce uint64           `json:"vault_signer_nonce"`
}

// TokenAccount is a decoded SPL token account delivered by the wallet feed.
type TokenAccount struct {
	Address solana.PublicKey `json:"address"`
	Mint    solana.PublicKey `json:"mint"`
	Owner   solana.PublicKey `json:"owner"`
	Amount  uint64           `json:"amount"`
}
