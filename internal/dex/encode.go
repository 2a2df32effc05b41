package dex

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"poolPilot/internal/model"
	"poolPilot/internal/poolkey"
)

type modifyLiquidityParams struct {
	TickLower      *big.Int
	TickUpper      *big.Int
	LiquidityDelta *big.Int
	Amount0Max     *big.Int
	Amount1Max     *big.Int
	CollectAllFees bool
	Recipient      common.Address
	HookData       []byte
	UnlockTime     *big.Int
}

type swapParams struct {
	ZeroForOne        bool
	AmountSpecified   *big.Int
	SqrtPriceLimitX96 *big.Int
}

// PackInitialize encodes initialize(key, sqrtPriceX96).
func PackInitialize(key model.PoolKey, sqrtPriceX96 *big.Int) ([]byte, error) {
	parsed, err := PoolManagerABI()
	if err != nil {
		return nil, fmt.Errorf("parse pool manager abi: %w", err)
	}
	return parsed.Pack("initialize", poolkey.Tuple(key), sqrtPriceX96)
}

// PackModifyLiquidity encodes modifyLiquidity(key, params) for a position.
func PackModifyLiquidity(key model.PoolKey, pos model.LiquidityPosition) ([]byte, error) {
	parsed, err := PositionManagerABI()
	if err != nil {
		return nil, fmt.Errorf("parse position manager abi: %w", err)
	}
	params := modifyLiquidityParams{
		TickLower:      big.NewInt(int64(pos.TickLower)),
		TickUpper:      big.NewInt(int64(pos.TickUpper)),
		LiquidityDelta: orZero(pos.LiquidityDelta),
		Amount0Max:     orZero(pos.Amount0Max),
		Amount1Max:     orZero(pos.Amount1Max),
		CollectAllFees: false,
		Recipient:      pos.Recipient,
		HookData:       []byte{},
		UnlockTime:     big.NewInt(0),
	}
	return parsed.Pack("modifyLiquidity", poolkey.Tuple(key), params)
}

// PackSwap encodes swap(key, params, callbackData).
func PackSwap(key model.PoolKey, zeroForOne bool, amountSpecified, sqrtPriceLimitX96 *big.Int) ([]byte, error) {
	parsed, err := PoolManagerABI()
	if err != nil {
		return nil, fmt.Errorf("parse pool manager abi: %w", err)
	}
	params := swapParams{
		ZeroForOne:        zeroForOne,
		AmountSpecified:   amountSpecified,
		SqrtPriceLimitX96: sqrtPriceLimitX96,
	}
	return parsed.Pack("swap", poolkey.Tuple(key), params, []byte{})
}

// PackApprove encodes ERC-20 approve(spender, amount).
func PackApprove(spender common.Address, amount *big.Int) ([]byte, error) {
	parsed, err := ERC20ABI()
	if err != nil {
		return nil, fmt.Errorf("parse erc20 abi: %w", err)
	}
	return parsed.Pack("approve", spender, amount)
}

// PackDelegatedApprove encodes approve(token, spender, uint160, uint48) on
// the allowance delegation contract.
func PackDelegatedApprove(token, spender common.Address, amount *big.Int, expiration uint64) ([]byte, error) {
	parsed, err := Permit2ABI()
	if err != nil {
		return nil, fmt.Errorf("parse permit2 abi: %w", err)
	}
	return parsed.Pack("approve", token, spender, amount, new(big.Int).SetUint64(expiration))
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return v
}
