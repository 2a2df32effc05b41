// Package pricemath converts between the pool's Q64.96 fixed-point square
// root prices, ticks, liquidity and human readable amounts.
package pricemath

import (
	"fmt"
	"math"
	"math/big"

	"github.com/holiman/uint256"
)

var (
	// Q96 is 2^96, the fixed-point scale of sqrtPriceX96.
	Q96  = new(big.Int).Lsh(big.NewInt(1), 96)
	q192 = new(big.Int).Lsh(big.NewInt(1), 192)

	minSqrtPrice = uint256.NewInt(4295128739)
	maxSqrtPrice = mustUint256("1461446703485210103287273052203988822378723970342")
)

// SqrtPriceOneToOne encodes a 1:1 raw price.
const SqrtPriceOneToOne = "79228162514264337593543950336"

// MinSqrtPrice returns the sqrt price at MinTick.
func MinSqrtPrice() *big.Int { return minSqrtPrice.ToBig() }

// MaxSqrtPrice returns the sqrt price at MaxTick.
func MaxSqrtPrice() *big.Int { return maxSqrtPrice.ToBig() }

// SqrtPriceToPrice returns the token1-per-token0 price in human units.
// The square and the division by 2^192 are exact; only the decimal
// adjustment happens in floating point. Invalid input yields 0, which callers
// must read as "unknown".
func SqrtPriceToPrice(sqrtPriceX96 *big.Int, decimals0, decimals1 uint8) float64 {
	if sqrtPriceX96 == nil || sqrtPriceX96.Sign() <= 0 {
		return 0
	}
	squared := new(big.Int).Mul(sqrtPriceX96, sqrtPriceX96)
	raw, _ := new(big.Rat).SetFrac(squared, q192).Float64()
	price := raw * math.Pow10(int(decimals0)-int(decimals1))
	if math.IsInf(price, 0) || math.IsNaN(price) {
		return 0
	}
	return price
}

// PriceToSqrtPriceX96 encodes a human token1-per-token0 price.
func PriceToSqrtPriceX96(price float64, decimals0, decimals1 uint8) (*big.Int, error) {
	if price <= 0 || math.IsInf(price, 0) || math.IsNaN(price) {
		return nil, fmt.Errorf("price must be positive and finite: %v", price)
	}

	raw := new(big.Float).SetPrec(256).SetFloat64(price)
	shift := int(decimals1) - int(decimals0)
	scale := new(big.Float).SetPrec(256).SetInt(pow10(absInt(shift)))
	if shift >= 0 {
		raw.Mul(raw, scale)
	} else {
		raw.Quo(raw, scale)
	}

	root := new(big.Float).SetPrec(256).Sqrt(raw)
	root.Mul(root, new(big.Float).SetPrec(256).SetInt(Q96))
	out, _ := root.Int(nil)
	if err := ValidateSqrtPrice(out); err != nil {
		return nil, err
	}
	return out, nil
}

// ValidateSqrtPrice checks that value fits uint160 and lies in
// [MinSqrtPrice, MaxSqrtPrice).
func ValidateSqrtPrice(value *big.Int) error {
	if value == nil || value.Sign() < 0 {
		return fmt.Errorf("sqrt price must be non-negative")
	}
	v, overflow := uint256.FromBig(value)
	if overflow || v.BitLen() > 160 {
		return fmt.Errorf("sqrt price overflows uint160: %s", value)
	}
	if v.Lt(minSqrtPrice) || !v.Lt(maxSqrtPrice) {
		return fmt.Errorf("sqrt price out of range: %s", value)
	}
	return nil
}

// SwapPriceLimit returns the loosest valid price limit for a swap direction:
// just above the minimum when selling token0, just below the maximum when
// selling token1.
func SwapPriceLimit(zeroForOne bool) *big.Int {
	if zeroForOne {
		return new(uint256.Int).AddUint64(minSqrtPrice, 1).ToBig()
	}
	return new(uint256.Int).SubUint64(maxSqrtPrice, 1).ToBig()
}

func mustUint256(decimal string) *uint256.Int {
	v, err := uint256.FromDecimal(decimal)
	if err != nil {
		panic("pricemath: bad constant " + decimal)
	}
	return v
}

func pow10(n int) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
