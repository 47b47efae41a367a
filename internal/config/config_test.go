package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aman-zulfiqar/solana-pool-sniper/internal/constants"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("RPC_ENDPOINT", "http://localhost:8899")
	t.Setenv("RPC_WEBSOCKET_ENDPOINT", "ws://localhost:8900")
	t.Setenv("PRIVATE_KEY", "key")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)
	cfg := Load()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, constants.WSOLMint, cfg.QuoteMint)
	assert.Equal(t, uint8(9), cfg.QuoteDecimals)
	assert.True(t, cfg.QuoteAmount.Equal(decimal.RequireFromString("0.01")))
	assert.Equal(t, "confirmed", cfg.CommitmentLevel)
	assert.Equal(t, 2*time.Second, cfg.PriceCheckInterval)
	assert.Equal(t, 3, cfg.ConsecutiveFilterMatches)
	assert.True(t, cfg.AutoSell)
	assert.Zero(t, cfg.MaxLag)
}

func TestLoad_Units(t *testing.T) {
	setRequired(t)
	t.Setenv("QUOTE_MINT", "usdc")
	t.Setenv("MAX_LAG", "30")
	t.Setenv("AUTO_BUY_DELAY", "250")
	t.Setenv("MAX_BUY_DURATION", "1500")
	t.Setenv("PRICE_CHECK_DURATION", "5m")
	t.Setenv("TAKE_PROFIT", "12.5")
	t.Setenv("USE_TA", "true")

	cfg := Load()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, constants.USDCMint, cfg.QuoteMint)
	assert.Equal(t, uint8(6), cfg.QuoteDecimals)
	assert.Equal(t, 30*time.Second, cfg.MaxLag)
	assert.Equal(t, 250*time.Millisecond, cfg.AutoBuyDelay)
	assert.Equal(t, 1500*time.Millisecond, cfg.MaxBuyDuration)
	assert.Equal(t, 5*time.Minute, cfg.PriceCheckDuration)
	assert.True(t, cfg.TakeProfit.Equal(decimal.RequireFromString("12.5")))
	assert.True(t, cfg.UseTA)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		msg  string
	}{
		{"malformed bool", map[string]string{"AUTO_SELL": "maybe"}, "AUTO_SELL"},
		{"malformed decimal", map[string]string{"STOP_LOSS": "ten"}, "STOP_LOSS"},
		{"negative duration", map[string]string{"AUTO_SELL_DELAY": "-5"}, "AUTO_SELL_DELAY"},
		{"negative buy duration", map[string]string{"MAX_BUY_DURATION": "-1"}, "MAX_BUY_DURATION"},
		{"unknown quote", map[string]string{"QUOTE_MINT": "BONK"}, "QUOTE_MINT"},
		{"commitment", map[string]string{"COMMITMENT_LEVEL": "max"}, "COMMITMENT_LEVEL"},
		{"zero amount", map[string]string{"QUOTE_AMOUNT": "0"}, "QUOTE_AMOUNT"},
		{"missing key", map[string]string{"PRIVATE_KEY": ""}, "PRIVATE_KEY"},
		{"retries", map[string]string{"MAX_SELL_RETRIES": "0"}, "MAX_SELL_RETRIES"},
		{"api key without addr", map[string]string{"API_KEY": "k"}, "API_ADDR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequired(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			err := Load().Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}
