package amm

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateSwapOutput(t *testing.T) {
	// 1000 in against 1_000_000 / 1_000_000 with no fee
	out, impact, err := CalculateSwapOutput(1000, 1_000_000, 1_000_000, 0, 10000)
	require.NoError(t, err)
	assert.Equal(t, uint64(999), out)
	assert.Greater(t, impact, 0.0)

	// Raydium fee of 25 bps
	out, _, err = CalculateSwapOutput(10_000, 1_000_000, 2_000_000, 25, 10000)
	require.NoError(t, err)
	// 10_000 * 0.9975 = 9975; 9975 * 2_000_000 / 1_009_975 = 19752
	assert.Equal(t, uint64(19752), out)

	_, _, err = CalculateSwapOutput(0, 1, 1, 25, 10000)
	assert.Error(t, err)
	_, _, err = CalculateSwapOutput(1, 1, 1, 25, 0)
	assert.Error(t, err)
}

func TestApplySlippage(t *testing.T) {
	assert.Equal(t, uint64(9000), ApplySlippage(10000, 1000))
	assert.Equal(t, uint64(10000), ApplySlippage(10000, 0))
	assert.Equal(t, uint64(0), ApplySlippage(10000, 10000))
}

func TestPercentToBps(t *testing.T) {
	assert.Equal(t, uint16(2000), PercentToBps(decimal.NewFromInt(20)))
	assert.Equal(t, uint16(50), PercentToBps(decimal.NewFromFloat(0.5)))
	assert.Equal(t, uint16(10000), PercentToBps(decimal.NewFromInt(150)))
	assert.Equal(t, uint16(0), PercentToBps(decimal.NewFromInt(-1)))
}

func TestRawConversions(t *testing.T) {
	raw, err := ToRaw(decimal.RequireFromString("0.01"), 9)
	require.NoError(t, err)
	assert.Equal(t, uint64(10_000_000), raw)

	assert.True(t, FromRaw(1_500_000, 6).Equal(decimal.RequireFromString("1.5")))

	_, err = ToRaw(decimal.NewFromInt(-1), 9)
	assert.Error(t, err)
}

func TestSpotPrice(t *testing.T) {
	// 2 SOL against 1000 tokens with 6 decimals
	price, err := SpotPrice(Reserves{Base: 1_000_000_000, Quote: 2_000_000_000}, 6, 9)
	require.NoError(t, err)
	assert.True(t, price.Equal(decimal.RequireFromString("0.002")), price.String())

	_, err = SpotPrice(Reserves{}, 6, 9)
	assert.Error(t, err)
}

func TestQuoteBuySell(t *testing.T) {
	r := Reserves{Base: 1_000_000_000, Quote: 2_000_000_000}

	buy, err := QuoteBuy(r, 10_000_000, 2000)
	require.NoError(t, err)
	assert.Equal(t, ApplySlippage(buy.AmountOut, 2000), buy.MinAmountOut)
	assert.Less(t, buy.MinAmountOut, buy.AmountOut)

	sell, err := QuoteSell(r, buy.AmountOut, 2000)
	require.NoError(t, err)
	assert.Less(t, sell.AmountOut, uint64(10_000_000))
}
