package model

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// LiquidityPosition describes a modifyLiquidity request. It is built per call
// and never stored.
type LiquidityPosition struct {
	TickLower      int32          `json:"tick_lower"`
	TickUpper      int32          `json:"tick_upper"`
	LiquidityDelta *big.Int       `json:"liquidity_delta"`
	Amount0Max     *big.Int       `json:"amount0_max"`
	Amount1Max     *big.Int       `json:"amount1_max"`
	Recipient      common.Address `json:"recipient"`
}

// SwapRequest describes a single-pool swap.
type SwapRequest struct {
	TokenIn    common.Address
	Amount     *big.Int
	ExactInput bool
}
