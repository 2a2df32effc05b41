package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"poolPilot/internal/lifecycle"
	"poolPilot/internal/model"
	"poolPilot/internal/poolkey"
)

type swapOutput struct {
	PoolID            string             `json:"pool_id"`
	State             lifecycle.State    `json:"state"`
	TxHash            string             `json:"tx_hash"`
	Block             uint64             `json:"block"`
	ZeroForOne        bool               `json:"zero_for_one"`
	AmountSpecified   string             `json:"amount_specified"`
	SqrtPriceLimitX96 string             `json:"sqrt_price_limit_x96"`
	Events            []model.TypedEvent `json:"events"`
}

func runSwap(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := newSession(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer s.Close()

	tokenIn := s.pair.first
	if cfg.TokenIn != "" {
		if tokenIn, err = poolkey.ParseToken("token-in", cfg.TokenIn); err != nil {
			return err
		}
	}
	amount, err := s.units(ctx, tokenIn, cfg.SwapAmount)
	if err != nil {
		return err
	}

	orch, err := s.orchestrator(lifecycle.Config{})
	if err != nil {
		return err
	}
	result, err := orch.Swap(ctx, model.SwapRequest{TokenIn: tokenIn, Amount: amount, ExactInput: cfg.ExactInput})
	if err != nil {
		return err
	}

	return printJSON(swapOutput{
		PoolID:            orch.PoolID().Hex(),
		State:             lifecycle.StateSwap,
		TxHash:            result.Receipt.TxHash.Hex(),
		Block:             result.Receipt.BlockNumber.Uint64(),
		ZeroForOne:        result.ZeroForOne,
		AmountSpecified:   result.AmountSpecified.String(),
		SqrtPriceLimitX96: result.SqrtPriceLimitX96.String(),
		Events:            result.Events,
	})
}
