// Package layout decodes the on-chain account layouts the sniper consumes.
package layout

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/aman-zulfiqar/solana-pool-sniper/internal/constants"
	"github.com/aman-zulfiqar/solana-pool-sniper/internal/models"
)

// Raydium liquidity state v4 offsets
const (
	poolStatusOffset          = 0
	poolBaseDecimalOffset     = 32
	poolQuoteDecimalOffset    = 40
	poolOpenTimeOffset        = 224
	poolBaseVaultOffset       = 336
	poolQuoteVaultOffset      = 368
	poolBaseMintOffset        = 400
	PoolQuoteMintOffset       = 432
	poolLPMintOffset          = 464
	poolOpenOrdersOffset      = 496
	poolMarketIDOffset        = 528
	PoolMarketProgramIDOffset = 560
	poolTargetOrdersOffset    = 592
	poolLPReserveOffset       = 720
)

// PoolStatusSwapOnly is the status byte of a pool that has been initialised
// and is waiting for its open time.
const PoolStatusSwapOnly = 6

// DecodePool decodes a Raydium AMM v4 pool account.
func DecodePool(id solana.PublicKey, data []byte) (*models.PoolRecord, error) {
	if len(data) < constants.RaydiumPoolV4Size {
		return nil, fmt.Errorf("pool %s: short account data: %d bytes", id, len(data))
	}

	openTime := binary.LittleEndian.Uint64(data[poolOpenTimeOffset:])

	return &models.PoolRecord{
		ID:              id,
		Status:          binary.LittleEndian.Uint64(data[poolStatusOffset:]),
		BaseDecimals:    uint8(binary.LittleEndian.Uint64(data[poolBaseDecimalOffset:])),
		QuoteDecimals:   uint8(binary.LittleEndian.Uint64(data[poolQuoteDecimalOffset:])),
		OpenTime:        time.Unix(int64(openTime), 0),
		BaseVault:       pubkeyAt(data, poolBaseVaultOffset),
		QuoteVault:      pubkeyAt(data, poolQuoteVaultOffset),
		BaseMint:        pubkeyAt(data, poolBaseMintOffset),
		QuoteMint:       pubkeyAt(data, PoolQuoteMintOffset),
		LPMint:          pubkeyAt(data, poolLPMintOffset),
		OpenOrders:      pubkeyAt(data, poolOpenOrdersOffset),
		MarketID:        pubkeyAt(data, poolMarketIDOffset),
		MarketProgramID: pubkeyAt(data, PoolMarketProgramIDOffset),
		TargetOrders:    pubkeyAt(data, poolTargetOrdersOffset),
		LPReserve:       binary.LittleEndian.Uint64(data[poolLPReserveOffset:]),
	}, nil
}

func pubkeyAt(data []byte, offset int) solana.PublicKey {
	return solana.PublicKeyFromBytes(data[offset : offset+32])
}
