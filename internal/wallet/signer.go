// Package wallet holds the trading keypair and reads its token balances.
package wallet

import (
	"crypto/ed25519"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"

	"github.com/aman-zulfiqar/solana-pool-sniper/internal/rpc"
)

type WalletConfig struct {
	RPC *rpc.Client

	// PrivateKey is a base58 secret key, a solana-keygen JSON array, or the
	// path of a keygen file.
	PrivateKey string

	Commitment string // e.g. "confirmed"
}

// Wallet is the single payer and owner of every swap.
type Wallet struct {
	rpc        *rpc.Client
	commitment string
	priv       solana.PrivateKey
	pub        solana.PublicKey
}

func NewWallet(cfg WalletConfig) (*Wallet, error) {
	if cfg.RPC == nil {
		return nil, errors.New("wallet: rpc client is required")
	}
	if strings.TrimSpace(cfg.PrivateKey) == "" {
		return nil, errors.New("wallet: private key is required")
	}
	if cfg.Commitment == "" {
		cfg.Commitment = "confirmed"
	}

	priv, err := loadPrivateKey(cfg.PrivateKey)
	if err != nil {
		return nil, err
	}

	return &Wallet{
		rpc:        cfg.RPC,
		commitment: cfg.Commitment,
		priv:       priv,
		pub:        priv.PublicKey(),
	}, nil
}

func (w *Wallet) Address() string             { return w.pub.String() }
func (w *Wallet) PublicKey() solana.PublicKey { return w.pub }

// loadPrivateKey reads a keygen file when s names one, otherwise parses s.
func loadPrivateKey(s string) (solana.PrivateKey, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "[") && strings.ContainsAny(s, `/\.`) {
		b, err := os.ReadFile(s)
		switch {
		case err == nil:
			return parsePrivateKey(string(b))
		case !errors.Is(err, fs.ErrNotExist):
			return nil, fmt.Errorf("wallet: read key file: %w", err)
		}
	}
	return parsePrivateKey(s)
}

func parsePrivateKey(s string) (solana.PrivateKey, error) {
	s = strings.TrimSpace(s)

	var raw []byte
	if strings.HasPrefix(s, "[") {
		var ints []int
		if err := json.Unmarshal([]byte(s), &ints); err != nil {
			return nil, fmt.Errorf("wallet: invalid JSON private key: %w", err)
		}
		raw = make([]byte, len(ints))
		for i, v := range ints {
			if v < 0 || v > 255 {
				return nil, fmt.Errorf("wallet: invalid byte at %d: %d", i, v)
			}
			raw[i] = byte(v)
		}
	} else {
		var err error
		if raw, err = base58.Decode(s); err != nil {
			return nil, fmt.Errorf("wallet: invalid base58 private key: %w", err)
		}
	}

	if len(raw) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("wallet: expected %d bytes, got %d", ed25519.PrivateKeySize, len(raw))
	}
	priv := solana.PrivateKey(ed25519.PrivateKey(raw))
	// the trailing 32 bytes must be the public half of the seed
	if !ed25519.NewKeyFromSeed(raw[:ed25519.SeedSize]).Equal(ed25519.PrivateKey(raw)) {
		return nil, errors.New("wallet: public key does not match secret key")
	}
	return priv, nil
}
