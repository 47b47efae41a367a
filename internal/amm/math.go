package amm

import (
	"fmt"
	"math"
	"math/big"

	"github.com/shopspring/decimal"
)

// CalculateSwapOutput computes output for the constant-product curve.
// Uses x * y = k formula with fees applied to input
// Returns (amountOut, priceImpact, error)
func CalculateSwapOutput(
	amountIn uint64,
	reserveIn uint64,
	reserveOut uint64,
	feeNumerator uint64,
	feeDenominator uint64,
) (uint64, float64, error) {

	if amountIn == 0 || reserveIn == 0 || reserveOut == 0 {
		return 0, 0, fmt.Errorf("invalid inputs: amounts must be > 0")
	}

	if feeDenominator == 0 || feeNumerator >= feeDenominator {
		return 0, 0, fmt.Errorf("invalid fee %d/%d", feeNumerator, feeDenominator)
	}

	// Apply fee: amountInAfterFee = amountIn * (feeDenominator - feeNumerator) / feeDenominator
	amountInBig := new(big.Int).SetUint64(amountIn)
	feeMultiplier := new(big.Int).SetUint64(feeDenominator - feeNumerator)
	feeDenom := new(big.Int).SetUint64(feeDenominator)

	amountInAfterFee := new(big.Int).Mul(amountInBig, feeMultiplier)
	amountInAfterFee.Div(amountInAfterFee, feeDenom)

	// out = (amountInAfterFee * reserveOut) / (reserveIn + amountInAfterFee)
	reserveOutBig := new(big.Int).SetUint64(reserveOut)
	reserveInBig := new(big.Int).SetUint64(reserveIn)

	numerator := new(big.Int).Mul(amountInAfterFee, reserveOutBig)
	denominator := new(big.Int).Add(reserveInBig, amountInAfterFee)

	amountOutBig := new(big.Int).Div(numerator, denominator)
	if !amountOutBig.IsUint64() {
		return 0, 0, fmt.Errorf("output amount overflow")
	}
	amountOut := amountOutBig.Uint64()

	// priceImpact = 1 - (executionRate / idealRate)
	idealRate := float64(reserveOut) / float64(reserveIn)
	executionRate := float64(amountOut) / float64(amountIn)
	priceImpact := 0.0

	if idealRate > 0 {
		priceImpact = math.Max(0, 1-(executionRate/idealRate))
	}

	return amountOut, priceImpact, nil
}

// ApplySlippage calculates minimum output with slippage tolerance
// slippageBps: basis points (e.g., 100 = 1%, 50 = 0.5%)
func ApplySlippage(amountOut uint64, slippageBps uint16) uint64 {
	if slippageBps >= 10000 {
		return 0
	}

	// minOut = amountOut * (10000 - slippageBps) / 10000
	slippageFactor := 10000 - uint64(slippageBps)

	result := new(big.Int).Mul(new(big.Int).SetUint64(amountOut), new(big.Int).SetUint64(slippageFactor))
	result.Div(result, big.NewInt(10000))

	return result.Uint64()
}

// PercentToBps converts a percentage such as 20 (%) to basis points, capped at 100%.
func PercentToBps(pct decimal.Decimal) uint16 {
	bps := pct.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
	switch {
	case bps < 0:
		return 0
	case bps > 10000:
		return 10000
	}
	return uint16(bps)
}

// ToRaw converts a UI amount to raw units, truncating extra precision.
func ToRaw(amount decimal.Decimal, decimals uint8) (uint64, error) {
	raw := amount.Shift(int32(decimals)).Truncate(0)
	if raw.IsNegative() || !raw.BigInt().IsUint64() {
		return 0, fmt.Errorf("amount %s out of range", amount)
	}
	return raw.BigInt().Uint64(), nil
}

// FromRaw converts raw units to a UI amount.
func FromRaw(raw uint64, decimals uint8) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(raw), -int32(decimals))
}

// SpotPrice returns the price of one base token in quote units.
func SpotPrice(r Reserves, baseDecimals, quoteDecimals uint8) (decimal.Decimal, error) {
	if r.Base == 0 {
		return decimal.Zero, fmt.Errorf("empty base reserve")
	}
	return FromRaw(r.Quote, quoteDecimals).Div(FromRaw(r.Base, baseDecimals)), nil
}
