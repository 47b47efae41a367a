package wallet

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/aman-zulfiqar/solana-pool-sniper/internal/solanaix"
)

// SignTx signs a transaction with the wallet's private key
func (w *Wallet) SignTx(tx *solana.Transaction) error {
	_, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(w.pub) {
			return &w.priv
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to sign transaction: %w", err)
	}
	return nil
}

// GetBalanceSOL returns the native balance in SOL.
func (w *Wallet) GetBalanceSOL(ctx context.Context) (float64, error) {
	lamports, err := w.rpc.GetBalance(ctx, w.pub.String(), w.commitment)
	if err != nil {
		return 0, fmt.Errorf("getBalance failed: %w", err)
	}
	return float64(lamports) / float64(solana.LAMPORTS_PER_SOL), nil
}

// TokenAccount returns the wallet's associated token account for mint.
func (w *Wallet) TokenAccount(mint solana.PublicKey) (solana.PublicKey, error) {
	ata, _, err := solanaix.FindAssociatedTokenAddress(w.pub, mint)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("derive token account for %s: %w", mint, err)
	}
	return ata, nil
}

// TokenBalance returns the raw balance of the wallet's ATA for mint. A
// missing account has a zero balance.
func (w *Wallet) TokenBalance(ctx context.Context, mint solana.PublicKey) (uint64, error) {
	ata, err := w.TokenAccount(mint)
	if err != nil {
		return 0, err
	}

	exists, err := w.AccountExists(ctx, ata)
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, nil
	}

	amount, err := w.rpc.GetTokenAccountBalance(ctx, ata.String(), w.commitment)
	if err != nil {
		return 0, fmt.Errorf("getTokenAccountBalance failed: %w", err)
	}
	return amount.Uint64()
}

// AccountExists checks if an account exists on-chain (getAccountInfo != nil).
func (w *Wallet) AccountExists(ctx context.Context, pubkey solana.PublicKey) (bool, error) {
	info, err := w.rpc.GetAccountInfo(ctx, pubkey.String(), w.commitment)
	if err != nil {
		return false, fmt.Errorf("getAccountInfo failed: %w", err)
	}
	return info != nil, nil
}
