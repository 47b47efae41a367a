package layout

import (
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/aman-zulfiqar/solana-pool-sniper/internal/constants"
	"github.com/aman-zulfiqar/solana-pool-sniper/internal/models"
)

// OpenBook market v3 offsets
const (
	marketVaultSignerNonceOffset = 45
	marketBaseMintOffset         = 53
	MarketQuoteMintOffset        = 85
	marketBaseVaultOffset        = 117
	marketQuoteVaultOffset       = 165
	marketRequestQueueOffset     = 221
	marketEventQueueOffset       = 253
	marketBidsOffset             = 285
	marketAsksOffset             = 317
)

// DecodeMarket decodes an OpenBook v3 market account.
func DecodeMarket(id solana.PublicKey, data []byte) (*models.MarketRecord, error) {
	if len(data) < constants.MarketV3Size {
		return nil, fmt.Errorf("market %s: short account data: %d bytes", id, len(data))
	}

	return &models.MarketRecord{
		ID:               id,
		VaultSignerNonce: binary.LittleEndian.Uint64(data[marketVaultSignerNonceOffset:]),
		BaseMint:         pubkeyAt(data, marketBaseMintOffset),
		QuoteMint:        pubkeyAt(data, MarketQuoteMintOffset),
		BaseVault:        pubkeyAt(data, marketBaseVaultOffset),
		QuoteVault:       pubkeyAt(data, marketQuoteVaultOffset),
		RequestQueue:     pubkeyAt(data, marketRequestQueueOffset),
		EventQueue:       pubkeyAt(data, marketEventQueueOffset),
		Bids:             pubkeyAt(data, marketBidsOffset),
		Asks:             pubkeyAt(data, marketAsksOffset),
	}, nil
}

// MarketVaultSigner derives the vault signer authority of a market.
func MarketVaultSigner(market *models.MarketRecord, programID solana.PublicKey) (solana.PublicKey, error) {
	nonce := make([]byte, 8)
	binary.LittleEndian.PutUint64(nonce, market.VaultSignerNonce)

	signer, err := solana.CreateProgramAddress([][]byte{market.ID.Bytes(), nonce}, programID)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("derive vault signer: %w", err)
	}
	return signer, nil
}
