package layout

import (
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/aman-zulfiqar/solana-pool-sniper/internal/constants"
	"github.com/aman-zulfiqar/solana-pool-sniper/internal/models"
)

// TokenAccountOwnerOffset is the owner field of an SPL token account.
const TokenAccountOwnerOffset = 32

// DecodeTokenAccount decodes an SPL token account.
func DecodeTokenAccount(address solana.PublicKey, data []byte) (*models.TokenAccount, error) {
	if len(data) < constants.TokenAccountSize {
		return nil, fmt.Errorf("token account %s: short account data: %d bytes", address, len(data))
	}

	return &models.TokenAccount{
		Address: address,
		Mint:    pubkeyAt(data, 0),
		Owner:   pubkeyAt(data, TokenAccountOwnerOffset),
		Amount:  binary.LittleEndian.Uint64(data[64:72]),
	}, nil
}

// Mint is a decoded SPL mint account.
type Mint struct {
	MintAuthority   *solana.PublicKey
	Supply          uint64
	Decimals        uint8
	IsInitialized   bool
	FreezeAuthority *solana.PublicKey
}

// DecodeMint decodes an SPL mint account.
func DecodeMint(data []byte) (*Mint, error) {
	if len(data) < constants.MintAccountSize {
		return nil, fmt.Errorf("mint: short account data: %d bytes", len(data))
	}

	m := &Mint{
		Supply:        binary.LittleEndian.Uint64(data[36:44]),
		Decimals:      data[44],
		IsInitialized: data[45] == 1,
	}
	if binary.LittleEndian.Uint32(data[0:4]) == 1 {
		pk := pubkeyAt(data, 4)
		m.MintAuthority = &pk
	}
	if binary.LittleEndian.Uint32(data[46:50]) == 1 {
		pk := pubkeyAt(data, 50)
		m.FreezeAuthority = &pk
	}
	return m, nil
}
