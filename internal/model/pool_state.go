package model

import "math/big"

// PoolState is a point-in-time read of a pool. It is stale as soon as another
// transaction touches the pool.
type PoolState struct {
	SqrtPriceX96 *big.Int `json:"sqrt_price_x96"`
	Tick         int32    `json:"tick"`
	ProtocolFee  uint32   `json:"protocol_fee"`
	LPFee        uint32   `json:"lp_fee"`
	Liquidity    *big.Int `json:"liquidity"`
}

// HasLiquidity reports whether the pool holds non-zero in-range liquidity.
func (s PoolState) HasLiquidity() bool {
	return s.Liquidity != nil && s.Liquidity.Sign() > 0
}
