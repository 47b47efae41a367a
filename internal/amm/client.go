// Package amm reads Raydium pool reserves and quotes constant-product swaps.
package amm

import (
	"context"
	"fmt"

	"github.com/aman-zulfiqar/solana-pool-sniper/internal/constants"
	"github.com/aman-zulfiqar/solana-pool-sniper/internal/layout"
	"github.com/aman-zulfiqar/solana-pool-sniper/internal/models"
	"github.com/aman-zulfiqar/solana-pool-sniper/internal/rpc"
)

// Reserves are the raw vault balances of a pool.
type Reserves struct {
	Base  uint64
	Quote uint64
}

// Quote is the expected result of a swap.
type Quote struct {
	AmountIn     uint64
	AmountOut    uint64
	MinAmountOut uint64
	PriceImpact  float64
	Reserves     Reserves
}

// Client provides RPC helpers for fetching pool vault balances
type Client struct {
	rpcClient  *rpc.Client
	commitment string
}

func NewClient(rpcClient *rpc.Client, commitment string) *Client {
	return &Client{rpcClient: rpcClient, commitment: commitment}
}

// FetchReserves reads both vaults of pool in one request.
func (c *Client) FetchReserves(ctx context.Context, pool *models.PoolRecord) (Reserves, error) {
	accounts, err := c.rpcClient.GetMultipleAccounts(ctx, []string{
		pool.BaseVault.String(),
		pool.QuoteVault.String(),
	}, c.commitment)
	if err != nil {
		return Reserves{}, fmt.Errorf("failed to fetch vaults: %w", err)
	}
	if len(accounts) != 2 || accounts[0] == nil || accounts[1] == nil {
		return Reserves{}, fmt.Errorf("pool %s: vault accounts not found", pool.ID)
	}

	base, err := layout.DecodeTokenAccount(pool.BaseVault, accounts[0].Data)
	if err != nil {
		return Reserves{}, err
	}
	quote, err := layout.DecodeTokenAccount(pool.QuoteVault, accounts[1].Data)
	if err != nil {
		return Reserves{}, err
	}

	return Reserves{Base: base.Amount, Quote: quote.Amount}, nil
}

// QuoteBuy quotes spending amountIn quote units for base tokens.
func QuoteBuy(r Reserves, amountIn uint64, slippageBps uint16) (Quote, error) {
	out, impact, err := CalculateSwapOutput(amountIn, r.Quote, r.Base, constants.RaydiumFeeNumerator, constants.RaydiumFeeDenominator)
	if err != nil {
		return Quote{}, err
	}
	return Quote{
		AmountIn:     amountIn,
		AmountOut:    out,
		MinAmountOut: ApplySlippage(out, slippageBps),
		PriceImpact:  impact,
		Reserves:     r,
	}, nil
}

// QuoteSell quotes selling amountIn base tokens for quote units.
func QuoteSell(r Reserves, amountIn uint64, slippageBps uint16) (Quote, error) {
	out, impact, err := CalculateSwapOutput(amountIn, r.Base, r.Quote, constants.RaydiumFeeNumerator, constants.RaydiumFeeDenominator)
	if err != nil {
		return Quote{}, err
	}
	return Quote{
		AmountIn:     amountIn,
		AmountOut:    out,
		MinAmountOut: ApplySlippage(out, slippageBps),
		PriceImpact:  impact,
		Reserves:     r,
	}, nil
}
