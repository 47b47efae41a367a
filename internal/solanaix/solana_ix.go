// Package solanaix hand-encodes the handful of program instructions the
// sniper sends.
package solanaix

import (
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/aman-zulfiqar/solana-pool-sniper/internal/constants"
)

// FindAssociatedTokenAddress derives the ATA PDA for (owner, mint).
func FindAssociatedTokenAddress(owner, mint solana.PublicKey) (ata solana.PublicKey, bump uint8, err error) {
	// Seeds: [owner, token_program, mint]
	return solana.FindProgramAddress(
		[][]byte{
			owner.Bytes(),
			solana.TokenProgramID.Bytes(),
			mint.Bytes(),
		},
		constants.AssociatedTokenProgram,
	)
}

// NewCreateAssociatedTokenAccountIdempotentIx builds an instruction that
// creates the ATA or does nothing if it already exists.
// Account order (ATA program):
// 0. payer (signer, writable)
// 1. ata (writable)
// 2. owner (read-only)
// 3. mint (read-only)
// 4. system_program
// 5. token_program
func NewCreateAssociatedTokenAccountIdempotentIx(
	payer solana.PublicKey,
	ata solana.PublicKey,
	owner solana.PublicKey,
	mint solana.PublicKey,
) solana.Instruction {
	accounts := []*solana.AccountMeta{
		{PublicKey: payer, IsSigner: true, IsWritable: true},
		{PublicKey: ata, IsSigner: false, IsWritable: true},
		{PublicKey: owner, IsSigner: false, IsWritable: false},
		{PublicKey: mint, IsSigner: false, IsWritable: false},
		{PublicKey: solana.SystemProgramID, IsSigner: false, IsWritable: false},
		{PublicKey: solana.TokenProgramID, IsSigner: false, IsWritable: false},
	}

	// 1 = CreateIdempotent
	return solana.NewInstruction(constants.AssociatedTokenProgram, accounts, []byte{1})
}

// NewSystemTransferIx builds a SystemProgram transfer instruction.
func NewSystemTransferIx(from, to solana.PublicKey, lamports uint64) solana.Instruction {
	// SystemProgram instruction layout:
	// u32: instruction index (2 = Transfer)
	// u64: lamports
	data := make([]byte, 4+8)
	binary.LittleEndian.PutUint32(data[0:4], 2)
	binary.LittleEndian.PutUint64(data[4:12], lamports)

	accounts := []*solana.AccountMeta{
		{PublicKey: from, IsSigner: true, IsWritable: true},
		{PublicKey: to, IsSigner: false, IsWritable: true},
	}
	return solana.NewInstruction(solana.SystemProgramID, accounts, data)
}

// NewTokenCloseAccountIx builds a SPL Token CloseAccount instruction.
func NewTokenCloseAccountIx(account, destination, owner solana.PublicKey) solana.Instruction {
	// TokenProgram instruction index 9 = CloseAccount
	data := []byte{9}
	accounts := []*solana.AccountMeta{
		{PublicKey: account, IsSigner: false, IsWritable: true},
		{PublicKey: destination, IsSigner: false, IsWritable: true},
		{PublicKey: owner, IsSigner: true, IsWritable: false},
	}
	return solana.NewInstruction(solana.TokenProgramID, accounts, data)
}

// NewSetComputeUnitLimitIx caps the compute units of the transaction.
func NewSetComputeUnitLimitIx(units uint32) solana.Instruction {
	data := make([]byte, 5)
	data[0] = 2
	binary.LittleEndian.PutUint32(data[1:5], units)
	return solana.NewInstruction(constants.ComputeBudgetProgram, []*solana.AccountMeta{}, data)
}

// NewSetComputeUnitPriceIx sets the priority fee in micro-lamports per unit.
func NewSetComputeUnitPriceIx(microLamports uint64) solana.Instruction {
	data := make([]byte, 9)
	data[0] = 3
	binary.LittleEndian.PutUint64(data[1:9], microLamports)
	return solana.NewInstruction(constants.ComputeBudgetProgram, []*solana.AccountMeta{}, data)
}

// RaydiumSwapAccounts are the accounts of a Raydium AMM v4 swap.
type RaydiumSwapAccounts struct {
	AmmID            solana.PublicKey
	AmmOpenOrders    solana.PublicKey
	AmmTargetOrders  solana.PublicKey
	PoolBaseVault    solana.PublicKey
	PoolQuoteVault   solana.PublicKey
	MarketProgramID  solana.PublicKey
	MarketID         solana.PublicKey
	MarketBids       solana.PublicKey
	MarketAsks       solana.PublicKey
	MarketEventQueue solana.PublicKey
	MarketBaseVault  solana.PublicKey
	MarketQuoteVault solana.PublicKey
	MarketAuthority  solana.PublicKey
	UserSource       solana.PublicKey
	UserDestination  solana.PublicKey
	UserOwner        solana.PublicKey
}

// NewRaydiumSwapBaseInIx builds a swapBaseIn instruction: spend exactly
// amountIn of the source token, receive at least minAmountOut.
func NewRaydiumSwapBaseInIx(keys RaydiumSwapAccounts, amountIn, minAmountOut uint64) (solana.Instruction, error) {
	for name, pk := range map[string]solana.PublicKey{
		"amm id":           keys.AmmID,
		"market id":        keys.MarketID,
		"market authority": keys.MarketAuthority,
		"user source":      keys.UserSource,
		"user destination": keys.UserDestination,
		"user owner":       keys.UserOwner,
	} {
		if err := requirePubkey(pk, name); err != nil {
			return nil, err
		}
	}

	// Raydium AMM v4 swap account order:
	// 0. token program
	// 1. amm (writable)
	// 2. amm authority
	// 3. amm open orders (writable)
	// 4. amm target orders (writable)
	// 5. pool base vault (writable)
	// 6. pool quote vault (writable)
	// 7. market program
	// 8-13. market, bids, asks, event queue, base vault, quote vault (writable)
	// 14. market vault signer
	// 15. user source (writable)
	// 16. user destination (writable)
	// 17. user owner (signer)
	accounts := []*solana.AccountMeta{
		{PublicKey: solana.TokenProgramID, IsWritable: false, IsSigner: false},
		{PublicKey: keys.AmmID, IsWritable: true, IsSigner: false},
		{PublicKey: constants.RaydiumAuthorityV4, IsWritable: false, IsSigner: false},
		{PublicKey: keys.AmmOpenOrders, IsWritable: true, IsSigner: false},
		{PublicKey: keys.AmmTargetOrders, IsWritable: true, IsSigner: false},
		{PublicKey: keys.PoolBaseVault, IsWritable: true, IsSigner: false},
		{PublicKey: keys.PoolQuoteVault, IsWritable: true, IsSigner: false},
		{PublicKey: keys.MarketProgramID, IsWritable: false, IsSigner: false},
		{PublicKey: keys.MarketID, IsWritable: true, IsSigner: false},
		{PublicKey: keys.MarketBids, IsWritable: true, IsSigner: false},
		{PublicKey: keys.MarketAsks, IsWritable: true, IsSigner: false},
		{PublicKey: keys.MarketEventQueue, IsWritable: true, IsSigner: false},
		{PublicKey: keys.MarketBaseVault, IsWritable: true, IsSigner: false},
		{PublicKey: keys.MarketQuoteVault, IsWritable: true, IsSigner: false},
		{PublicKey: keys.MarketAuthority, IsWritable: false, IsSigner: false},
		{PublicKey: keys.UserSource, IsWritable: true, IsSigner: false},
		{PublicKey: keys.UserDestination, IsWritable: true, IsSigner: false},
		{PublicKey: keys.UserOwner, IsWritable: false, IsSigner: true},
	}

	// [0] = 9 (swapBaseIn)
	// [1:9] = amount_in
	// [9:17] = minimum_amount_out
	data := make([]byte, 17)
	data[0] = 9
	binary.LittleEndian.PutUint64(data[1:9], amountIn)
	binary.LittleEndian.PutUint64(data[9:17], minAmountOut)

	return solana.NewInstruction(constants.RaydiumLiquidityPoolV4, accounts, data), nil
}

func requirePubkey(pk solana.PublicKey, name string) error {
	if pk.IsZero() {
		return fmt.Errorf("%s is zero", name)
	}
	return nil
}
