package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"poolPilot/internal/dex"
	"poolPilot/internal/model"
	"poolPilot/internal/poolstate"
	"poolPilot/internal/pricemath"
	"poolPilot/internal/txn"
)

// SwapResult describes a confirmed swap.
type SwapResult struct {
	ZeroForOne        bool
	AmountSpecified   *big.Int
	SqrtPriceLimitX96 *big.Int
	Receipt           *types.Receipt
	Events            []model.TypedEvent
}

// Swap trades against the pool. The price limit sits at the far end of the
// valid range on the side being sold, so it only guards against running off
// the curve, not against slippage.
func (o *Orchestrator) Swap(ctx context.Context, req model.SwapRequest) (*SwapResult, error) {
	if req.TokenIn != o.key.Currency0 && req.TokenIn != o.key.Currency1 {
		return nil, fmt.Errorf("token %s is not in pool %s", req.TokenIn.Hex(), o.key.String())
	}
	if req.Amount == nil || req.Amount.Sign() <= 0 {
		return nil, fmt.Errorf("swap amount must be positive")
	}

	liquidity, err := o.reader.GetLiquidity(ctx, o.key)
	if errors.Is(err, poolstate.ErrPoolNotFound) {
		return nil, fmt.Errorf("%s: %w", StageQueryState, err)
	}
	if err != nil {
		return nil, Classify(StageQueryState, err)
	}
	if liquidity.Sign() == 0 {
		return nil, ErrNoLiquidity
	}

	if req.ExactInput {
		owner := o.submitter.From()
		held, err := o.reader.Balance(ctx, req.TokenIn, owner)
		if err != nil {
			return nil, Classify(StageBalanceCheck, err)
		}
		if held.Cmp(req.Amount) < 0 {
			return nil, &InsufficientBalanceError{
				Owner:    owner,
				Holdings: []Holding{{Token: req.TokenIn, Required: new(big.Int).Set(req.Amount), Held: held}},
			}
		}
	}

	zeroForOne, amountSpecified, limit := SwapParams(o.key, req)
	data, err := dex.PackSwap(o.key, zeroForOne, amountSpecified, limit)
	if err != nil {
		return nil, fmt.Errorf("pack swap: %w", err)
	}
	o.logger.Info("swapping",
		zap.Bool("zero_for_one", zeroForOne),
		zap.String("amount_specified", amountSpecified.String()),
		zap.String("sqrt_price_limit_x96", limit.String()),
	)

	receipt, err := o.submitter.SubmitAndWait(ctx, txn.Call{
		Stage:    StageSwap,
		To:       o.cfg.PoolManager,
		Data:     data,
		GasLimit: o.cfg.SwapGasLimit,
	})
	if err != nil {
		return nil, Classify(StageSwap, err)
	}

	result := &SwapResult{
		ZeroForOne:        zeroForOne,
		AmountSpecified:   amountSpecified,
		SqrtPriceLimitX96: limit,
		Receipt:           receipt,
	}
	if events, err := dex.DecodeReceipt(o.decoder, receipt, o.poolID); err == nil {
		result.Events = events
	} else {
		o.logger.Warn("decode swap logs failed", zap.Error(err))
	}
	for _, event := range result.Events {
		if swap, ok := event.Decoded.(model.SwapEventData); ok {
			o.logger.Info("swap executed",
				zap.String("tx_hash", event.TxHash),
				zap.String("amount0", swap.Amount0),
				zap.String("amount1", swap.Amount1),
				zap.Int32("tick", swap.Tick),
			)
		}
	}
	return result, nil
}

// SwapParams derives direction, signed amount and price limit. Selling
// currency0 moves the price down, so the limit is just above the minimum.
// Exact input is a negative amount.
func SwapParams(key model.PoolKey, req model.SwapRequest) (bool, *big.Int, *big.Int) {
	zeroForOne := key.IsCurrency0(req.TokenIn)
	amount := new(big.Int).Set(req.Amount)
	if req.ExactInput {
		amount.Neg(amount)
	}
	return zeroForOne, amount, pricemath.SwapPriceLimit(zeroForOne)
}

