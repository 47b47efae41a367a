package constants

import (
	"time"

	"github.com/gagliardetto/solana-go"
)

// Program addresses
var (
	RaydiumLiquidityPoolV4 = solana.MustPublicKeyFromBase58("675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8")
	RaydiumAuthorityV4     = solana.MustPublicKeyFromBase58("5Q544fKrFoe6tsEbD7S8EmxGTJYAKtTVhAW5Q5pge4j1")
	OpenBookProgram        = solana.MustPublicKeyFromBase58("srmqPvymJeFKQ4zGQed1GFppgkRHL9kaELCbyksJtPX")
	ComputeBudgetProgram   = solana.MustPublicKeyFromBase58("ComputeBudget111111111111111111111111111111")
	AssociatedTokenProgram = solana.MustPublicKeyFromBase58("ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL")
	MetaplexMetadata       = solana.MustPublicKeyFromBase58("metaqbxxUerdq28cj1RbAWkYQm3ybzjb6a8bt518x1s")
)

// Quote mints
var (
	WSOLMint = solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")
	USDCMint = solana.MustPublicKeyFromBase58("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")
)

// Account sizes
const (
	RaydiumPoolV4Size = 752
	MarketV3Size      = 388
	TokenAccountSize  = 165
	MintAccountSize   = 82
)

// Raydium AMM v4 swap fee
const (
	RaydiumFeeNumerator   = 25
	RaydiumFeeDenominator = 10000
)

// Relays
const (
	WarpEndpoint     = "https://tx.warp.id/transaction/execute"
	WarpFeeWallet    = "WARPzUMPnycu9eeCZ95rcAUxorqpBqHndfV3ZP5FSyS"
	RelayHTTPTimeout = 10 * time.Second
)

// JitoBlockEngines receive every bundle; the first accepted submission wins.
var JitoBlockEngines = []string{
	"https://mainnet.block-engine.jito.wtf/api/v1/bundles",
	"https://amsterdam.mainnet.block-engine.jito.wtf/api/v1/bundles",
	"https://frankfurt.mainnet.block-engine.jito.wtf/api/v1/bundles",
	"https://ny.mainnet.block-engine.jito.wtf/api/v1/bundles",
	"https://tokyo.mainnet.block-engine.jito.wtf/api/v1/bundles",
}

// JitoTipAccounts are the public tip receivers of the block engine.
var JitoTipAccounts = []string{
	"96gYZGLnJYVFmbjzopPSU6QiEV5fGqZNyN9nmNhvrZU5",
	"HFqU5x63VTqvQss8hp11i4wVV8bD44PvwucfZ2bU7gRe",
	"Cw8CFyM9FkoMi7K7Crf6HNQqf4uEMzpKw6QNghXLvLkY",
	"ADaUMid9yfUytqMBgopwjb2DTLSokTSzL1zt6iGPaS49",
	"DfXygSm4jCyNCybVYYK6DwvWqjKee8pbDmJGcLWNDXjh",
	"ADuUkR4vqLUMWXxW9gh6D6L8pMSawimctcNZ5pGwDcEt",
	"DttWaMuVvTiduZRnguLF7jNxTgiMBZ1hyAumKUiL2KRL",
	"3AVi9Tg9Uo68tJfuvoKvqKNWKkC5wPdSSdeBnizKZ6jT",
}

// Redis keys
const (
	RedisKeySnipeList = "lists:snipe"
	RedisKeyBlacklist = "lists:blacklist"
)

// Redis Pub/Sub channels
const (
	PubSubChannelEvents      = "sniper:events"
	PubSubChannelKindPrefix  = "sniper:events:"
	PubSubChannelTokenPrefix = "sniper:token:"
)

// Limits
const (
	MaxRecentEvents     = 200
	MaxLargestAccounts  = 20
	ConfirmPollInterval = 500 * time.Millisecond
)
