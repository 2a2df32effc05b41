package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"poolPilot/internal/dex"
	"poolPilot/internal/model"
	"poolPilot/internal/poolkey"
	"poolPilot/internal/poolstate"
	"poolPilot/internal/pricemath"
)

type tokenOutput struct {
	Address             string `json:"address"`
	Symbol              string `json:"symbol,omitempty"`
	Decimals            uint8  `json:"decimals"`
	Balance             string `json:"balance,omitempty"`
	ERC20Allowance      string `json:"erc20_allowance,omitempty"`
	DelegatedAmount     string `json:"delegated_amount,omitempty"`
	DelegatedExpiration uint64 `json:"delegated_expiration,omitempty"`
	DelegatedActive     bool   `json:"delegated_active,omitempty"`
}

type stateOutput struct {
	PoolID       string        `json:"pool_id"`
	Block        uint64        `json:"block"`
	Exists       bool          `json:"exists"`
	SqrtPriceX96 string        `json:"sqrt_price_x96,omitempty"`
	Tick         int32         `json:"tick"`
	ProtocolFee  uint32        `json:"protocol_fee"`
	LPFee        uint32        `json:"lp_fee"`
	Liquidity    string        `json:"liquidity,omitempty"`
	Price        float64       `json:"price,omitempty"`
	Tokens       []tokenOutput `json:"tokens"`
	GasBalance   string        `json:"gas_balance,omitempty"`
}

func runState(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if err := cfg.ValidateRead(); err != nil {
		return err
	}
	p, err := parsePair(cfg)
	if err != nil {
		return err
	}
	reader, err := contract("state-reader", cfg.StateReader)
	if err != nil {
		return err
	}
	var owner common.Address
	if raw, _ := cmd.Flags().GetString("owner"); raw != "" {
		if owner, err = poolkey.ParseAddress("owner", raw); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := dialChain(ctx, cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	states := poolstate.NewClient(client, reader, logger, poolstate.WithRetry(cfg.ReadRetries, 200*time.Millisecond))
	out := stateOutput{PoolID: p.id.Hex()}
	if out.Block, err = client.LatestBlockNumber(ctx); err != nil {
		return fmt.Errorf("latest block: %w", err)
	}

	metas := dex.NewTokenMetaCache()
	tokens := make([]model.TokenMeta, 0, 2)
	for _, token := range []common.Address{p.key.Currency0, p.key.Currency1} {
		meta, err := dex.CachedTokenMeta(ctx, metas, client, token, logger)
		if err != nil {
			return err
		}
		tokens = append(tokens, meta)
		out.Tokens = append(out.Tokens, tokenOutput{Address: meta.Address, Symbol: meta.Symbol, Decimals: meta.Decimals})
	}

	state, err := states.GetPoolState(ctx, p.key)
	switch {
	case errors.Is(err, poolstate.ErrPoolNotFound):
		logger.Info("pool not found", zap.String("pool_id", p.id.Hex()))
	case err != nil:
		return err
	default:
		out.Exists = true
		out.SqrtPriceX96 = state.SqrtPriceX96.String()
		out.Tick = state.Tick
		out.ProtocolFee = state.ProtocolFee
		out.LPFee = state.LPFee
		out.Liquidity = state.Liquidity.String()
		out.Price = pricemath.SqrtPriceToPrice(state.SqrtPriceX96, tokens[0].Decimals, tokens[1].Decimals)
		logger.Info("pool state",
			zap.String("pool_id", p.id.Hex()),
			zap.Float64("price", out.Price),
			zap.String("liquidity", out.Liquidity),
		)
	}

	if owner != (common.Address{}) {
		permit2, err := contract("permit2", cfg.Permit2)
		if err != nil {
			return err
		}
		spender, err := contract("position-manager", cfg.PositionManager)
		if err != nil {
			return err
		}
		native, err := client.BalanceAt(ctx, owner, nil)
		if err != nil {
			return fmt.Errorf("native balance: %w", err)
		}
		out.GasBalance = pricemath.FormatUnits(native, 18)
		now := uint64(time.Now().Unix())
		for i, meta := range tokens {
			token := common.HexToAddress(meta.Address)
			balance, err := states.Balance(ctx, token, owner)
			if err != nil {
				return err
			}
			record, err := states.Allowances(ctx, token, owner, permit2, spender)
			if err != nil {
				return err
			}
			out.Tokens[i].Balance = pricemath.FormatUnits(balance, meta.Decimals)
			out.Tokens[i].ERC20Allowance = record.ERC20Allowance.String()
			out.Tokens[i].DelegatedAmount = record.DelegatedAmount.String()
			out.Tokens[i].DelegatedExpiration = record.DelegatedExpiration
			out.Tokens[i].DelegatedActive = record.Granted(now)
		}
	}

	return printJSON(out)
}
