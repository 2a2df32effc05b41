package pricemath

import (
	"fmt"
	"math/big"
)

const (
	MinTick int32 = -887272
	MaxTick int32 = 887272
)

var (
	maxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
	q32        = new(big.Int).Lsh(big.NewInt(1), 32)

	// sqrt(1.0001^-(2^i)) in Q128.128 for i = 1..19.
	tickMultipliers = mustHexInts(
		"fff97272373d413259a46990580e213a",
		"fff2e50f5f656932ef12357cf3c7fdcc",
		"ffe5caca7e10e4e61c3624eaa0941cd0",
		"ffcb9843d60f6159c9db58835c926644",
		"ff973b41fa98c081472e6896dfb254c0",
		"ff2ea16466c96a3843ec78b326b52861",
		"fe5dee046a99a2a811c461f1969c3053",
		"fcbe86c7900a88aedcffc83b479aa3a4",
		"f987a7253ac413176f2b074cf7815e54",
		"f3392b0822b70005940c7a398e4b70f3",
		"e7159475a2c29b7443b29c7fa6e889d9",
		"d097f3bdfd2022b8845ad8f792aa5825",
		"a9f746462d870fdf8a65dc1f90e061e5",
		"70d869a156d2a1b890bb3df62baf32f7",
		"31be135f97d08fd981231505542fcfa6",
		"9aa508b5b7a84e1c677de54f3e99bc9",
		"5d6af8dedb81196699c329225ee604",
		"2216e584f5fa1ea926041bedfe98",
		"48a170391f7dc42444e8fa2",
	)
	tickOddStart = mustHexInts("fffcb933bd6fad37aa2d162d1a594001")[0]
)

// FullRangeTicks returns the widest usable tick range for a spacing. Both
// global bounds are rounded toward zero so the result never leaves
// [MinTick, MaxTick].
func FullRangeTicks(tickSpacing int32) (int32, int32, error) {
	if tickSpacing <= 0 {
		return 0, 0, fmt.Errorf("tick spacing must be positive: %d", tickSpacing)
	}
	if tickSpacing > MaxTick {
		return 0, 0, fmt.Errorf("tick spacing %d exceeds max tick %d", tickSpacing, MaxTick)
	}
	lower := (MinTick / tickSpacing) * tickSpacing
	upper := (MaxTick / tickSpacing) * tickSpacing
	return lower, upper, nil
}

// TickToSqrtPriceX96 returns sqrt(1.0001^tick) * 2^96, rounded up, matching
// the on-chain TickMath library.
func TickToSqrtPriceX96(tick int32) (*big.Int, error) {
	if tick < MinTick || tick > MaxTick {
		return nil, fmt.Errorf("tick out of range: %d", tick)
	}
	absTick := tick
	if absTick < 0 {
		absTick = -absTick
	}

	var ratio *big.Int
	if absTick&1 != 0 {
		ratio = new(big.Int).Set(tickOddStart)
	} else {
		ratio = new(big.Int).Lsh(big.NewInt(1), 128)
	}
	for i, mul := range tickMultipliers {
		if absTick&(1<<(i+1)) == 0 {
			continue
		}
		ratio.Mul(ratio, mul)
		ratio.Rsh(ratio, 128)
	}
	if tick > 0 {
		ratio.Div(maxUint256, ratio)
	}

	rem := new(big.Int).Mod(ratio, q32)
	out := ratio.Rsh(ratio, 32)
	if rem.Sign() != 0 {
		out.Add(out, big.NewInt(1))
	}
	return out, nil
}

func mustHexInts(values ...string) []*big.Int {
	out := make([]*big.Int, 0, len(values))
	for _, v := range values {
		n, ok := new(big.Int).SetString(v, 16)
		if !ok {
			panic("pricemath: bad constant " + v)
		}
		out = append(out, n)
	}
	return out
}
