package pricemath

import (
	"fmt"
	"math/big"
)

var maxUint128 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))

// LiquidityForAmounts returns the largest liquidity that amount0 and amount1
// can fund between sqrtA and sqrtB at the current sqrtPrice.
func LiquidityForAmounts(sqrtPrice, sqrtA, sqrtB, amount0, amount1 *big.Int) (*big.Int, error) {
	if sqrtPrice == nil || sqrtA == nil || sqrtB == nil || amount0 == nil || amount1 == nil {
		return nil, fmt.Errorf("liquidity inputs must be set")
	}
	if sqrtA.Cmp(sqrtB) > 0 {
		sqrtA, sqrtB = sqrtB, sqrtA
	}
	if sqrtA.Cmp(sqrtB) == 0 {
		return nil, fmt.Errorf("empty price range")
	}

	var liquidity *big.Int
	switch {
	case sqrtPrice.Cmp(sqrtA) <= 0:
		liquidity = liquidityForAmount0(sqrtA, sqrtB, amount0)
	case sqrtPrice.Cmp(sqrtB) < 0:
		l0 := liquidityForAmount0(sqrtPrice, sqrtB, amount0)
		l1 := liquidityForAmount1(sqrtA, sqrtPrice, amount1)
		liquidity = l0
		if l1.Cmp(l0) < 0 {
			liquidity = l1
		}
	default:
		liquidity = liquidityForAmount1(sqrtA, sqrtB, amount1)
	}

	if liquidity.Cmp(maxUint128) > 0 {
		return nil, fmt.Errorf("liquidity overflows uint128: %s", liquidity)
	}
	return liquidity, nil
}

func liquidityForAmount0(sqrtA, sqrtB, amount0 *big.Int) *big.Int {
	intermediate := new(big.Int).Mul(sqrtA, sqrtB)
	intermediate.Div(intermediate, Q96)
	out := new(big.Int).Mul(amount0, intermediate)
	return out.Div(out, new(big.Int).Sub(sqrtB, sqrtA))
}

func liquidityForAmount1(sqrtA, sqrtB, amount1 *big.Int) *big.Int {
	out := new(big.Int).Mul(amount1, Q96)
	return out.Div(out, new(big.Int).Sub(sqrtB, sqrtA))
}
