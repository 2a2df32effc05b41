package main

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"poolPilot/internal/lifecycle"
	"poolPilot/internal/model"
	"poolPilot/internal/poolkey"
	"poolPilot/internal/pricemath"
)

type createOutput struct {
	PoolID       string             `json:"pool_id"`
	Transitions  []lifecycle.State  `json:"transitions"`
	Final        lifecycle.State    `json:"final"`
	SqrtPriceX96 string             `json:"sqrt_price_x96"`
	Liquidity    string             `json:"liquidity"`
	Transactions []string           `json:"transactions"`
	Events       []model.TypedEvent `json:"events"`
}

func runCreate(cmd *cobra.Command, _ []string) error {
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

	key := s.pair.key
	amountFirst, err := s.units(ctx, s.pair.first, cfg.Amount0)
	if err != nil {
		return err
	}
	amountSecond, err := s.units(ctx, s.pair.second, cfg.Amount1)
	if err != nil {
		return err
	}
	amount0, amount1 := amountFirst, amountSecond
	if !key.IsCurrency0(s.pair.first) {
		amount0, amount1 = amountSecond, amountFirst
	}

	startSqrt, err := s.startSqrtPrice(ctx)
	if err != nil {
		return err
	}

	lc := lifecycle.Config{
		StartSqrtPriceX96: startSqrt,
		Amount0Max:        amount0,
		Amount1Max:        amount1,
	}
	if cfg.LiquidityDelta != "" {
		delta, ok := new(big.Int).SetString(cfg.LiquidityDelta, 10)
		if !ok {
			return fmt.Errorf("invalid liquidity delta %q", cfg.LiquidityDelta)
		}
		lc.LiquidityDelta = delta
	}
	if cfg.Recipient != "" {
		if lc.Recipient, err = poolkey.ParseAddress("recipient", cfg.Recipient); err != nil {
			return err
		}
	}

	orch, err := s.orchestrator(lc)
	if err != nil {
		return err
	}
	logger.Info("create start",
		zap.String("pool_id", orch.PoolID().Hex()),
		zap.String("pool", key.String()),
		zap.String("from", s.submitter.From().Hex()),
		zap.String("amount0_max", amount0.String()),
		zap.String("amount1_max", amount1.String()),
	)

	report, err := orch.Run(ctx)
	if err != nil {
		if report != nil {
			logger.Error("create aborted",
				zap.String("state", string(report.Final)),
				zap.Int("confirmed_txs", len(report.Receipts)),
			)
		}
		return err
	}

	out := createOutput{
		PoolID:       report.PoolID,
		Transitions:  report.Transitions,
		Final:        report.Final,
		SqrtPriceX96: report.PoolState.SqrtPriceX96.String(),
		Liquidity:    report.PoolState.Liquidity.String(),
		Events:       report.Events,
	}
	for _, receipt := range report.Receipts {
		out.Transactions = append(out.Transactions, receipt.TxHash.Hex())
	}
	return printJSON(out)
}

func (s *session) startSqrtPrice(ctx context.Context) (*big.Int, error) {
	if s.cfg.StartPrice > 0 {
		meta0, err := s.tokenMeta(ctx, s.pair.key.Currency0)
		if err != nil {
			return nil, err
		}
		meta1, err := s.tokenMeta(ctx, s.pair.key.Currency1)
		if err != nil {
			return nil, err
		}
		return pricemath.PriceToSqrtPriceX96(s.cfg.StartPrice, meta0.Decimals, meta1.Decimals)
	}
	sqrt, ok := new(big.Int).SetString(s.cfg.StartSqrtPriceX96, 10)
	if !ok {
		return nil, fmt.Errorf("invalid start sqrt price %q", s.cfg.StartSqrtPriceX96)
	}
	if err := pricemath.ValidateSqrtPrice(sqrt); err != nil {
		return nil, err
	}
	return sqrt, nil
}
