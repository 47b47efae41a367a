package executor

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/aman-zulfiqar/solana-pool-sniper/internal/rpc"
)

func encodeBase64(p *Payload) (string, error) {
	if p == nil || p.Tx == nil {
		return "", permanent("encode", "", ErrNoPayload)
	}
	raw, err := p.Tx.MarshalBinary()
	if err != nil {
		return "", permanent("encode", "", fmt.Errorf("failed to serialize transaction: %w", err))
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

func signatureOf(p *Payload) string {
	if p == nil || p.Tx == nil || len(p.Tx.Signatures) == 0 {
		return ""
	}
	return p.Tx.Signatures[0].String()
}

// confirm polls the signature status until commitment is reached, the
// blockhash expires or ctx ends.
func confirm(ctx context.Context, client *rpc.Client, sig, commitment string, lastValid uint64, interval time.Duration) error {
	backoff := interval
	maxBackoff := 4 * interval

	for {
		statuses, err := client.GetSignatureStatuses(ctx, []string{sig})
		if err == nil && len(statuses) == 1 && statuses[0] != nil {
			status := statuses[0]
			if status.Err != nil {
				return classify("confirm", sig, fmt.Errorf("%w: %v", ErrTxFailed, status.Err))
			}
			if status.Reached(commitment) {
				return nil
			}
		}

		if lastValid > 0 {
			height, herr := client.GetBlockHeight(ctx, commitment)
			if herr == nil && height > lastValid {
				return transient("confirm", sig, ErrExpired)
			}
		}

		select {
		case <-ctx.Done():
			return transient("confirm", sig, fmt.Errorf("%w: %v", ErrTimeout, ctx.Err()))
		case <-time.After(backoff):
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
		}
	}
}
