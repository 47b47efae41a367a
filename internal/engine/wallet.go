package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/aman-zulfiqar/solana-pool-sniper/internal/amm"
	"github.com/aman-zulfiqar/solana-pool-sniper/internal/cache"
	"github.com/aman-zulfiqar/solana-pool-sniper/internal/models"
)

// Validate checks that the wallet can fund one buy. It fails when the RPC
// node cannot be reached or the quote token account holds less than
// QuoteAmount.
func (e *Engine) Validate(ctx context.Context) error {
	need, err := amm.ToRaw(e.cfg.QuoteAmount, e.cfg.QuoteDecimals)
	if err != nil {
		return err
	}
	have, err := e.deps.Wallet.TokenBalance(ctx, e.cfg.QuoteMint)
	if err != nil {
		return fmt.Errorf("read %s balance: %w", e.cfg.QuoteMint, err)
	}
	if have < need {
		return fmt.Errorf("quote balance %s is below quote amount %s",
			amm.FromRaw(have, e.cfg.QuoteDecimals), e.cfg.QuoteAmount)
	}
	e.logger.WithField("balance", amm.FromRaw(have, e.cfg.QuoteDecimals).String()).Info("wallet validated")
	return nil
}

// HandleWalletUpdate records the balance of a wallet token account. Selling
// is left to the monitor.
func (e *Engine) HandleWalletUpdate(_ context.Context, account *models.TokenAccount) {
	if account.Mint.Equals(e.cfg.QuoteMint) {
		return
	}
	token := account.Mint.String()
	if err := e.deps.Positions.SetBalance(token, account.Amount); err != nil {
		if !errors.Is(err, cache.ErrNotFound) {
			e.logger.WithError(err).WithField("mint", token).Trace("ignoring wallet update")
		}
		return
	}
	e.logger.WithField("mint", token).WithField("amount", account.Amount).Debug("token balance updated")
}
