package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"poolPilot/internal/lifecycle"
)

func main() {
	root := &cobra.Command{
		Use:           "poolctl",
		Short:         "Create, fund and swap against a single v4 pool",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	keyCmd := &cobra.Command{
		Use:   "key",
		Short: "Print the canonical pool key and pool id",
		RunE:  runKey,
	}
	addPoolFlags(keyCmd)
	root.AddCommand(keyCmd)

	stateCmd := &cobra.Command{
		Use:   "state",
		Short: "Read pool state, price and optional allowances",
		RunE:  runState,
	}
	addPoolFlags(stateCmd)
	addNetworkFlags(stateCmd)
	stateCmd.Flags().String("owner", "", "also report balances and allowances for this account")
	root.AddCommand(stateCmd)

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Initialize the pool if needed and add full range liquidity",
		RunE:  runCreate,
	}
	addPoolFlags(createCmd)
	addNetworkFlags(createCmd)
	addSignerFlags(createCmd)
	createCmd.Flags().String("start-sqrt-price", "79228162514264337593543950336", "initial sqrtPriceX96")
	createCmd.Flags().Float64("start-price", 0, "initial price of token0 in token1; overrides start-sqrt-price when > 0")
	createCmd.Flags().String("amount0", "100", "max amount of the first configured token (token units)")
	createCmd.Flags().String("amount1", "100", "max amount of the second configured token (token units)")
	createCmd.Flags().String("liquidity-delta", "", "raw liquidity delta; derived from amounts when empty")
	createCmd.Flags().String("recipient", "", "position recipient, defaults to the signer")
	createCmd.Flags().Uint64("permit-expiration", 0, "permit2 allowance expiration, 0 means max uint48")
	root.AddCommand(createCmd)

	swapCmd := &cobra.Command{
		Use:   "swap",
		Short: "Swap against a pool that already has liquidity",
		RunE:  runSwap,
	}
	addPoolFlags(swapCmd)
	addNetworkFlags(swapCmd)
	addSignerFlags(swapCmd)
	swapCmd.Flags().String("token-in", "", "input token, defaults to token0")
	swapCmd.Flags().String("swap-amount", "0.01", "amount in token units")
	swapCmd.Flags().Bool("exact-input", true, "treat swap-amount as the exact input")
	root.AddCommand(swapCmd)

	journalCmd := &cobra.Command{
		Use:   "journal",
		Short: "Show journaled transactions",
		RunE:  runJournal,
	}
	journalCmd.Flags().String("run", "", "only show this run id")
	journalCmd.Flags().String("journal", "./data/transactions.jsonl", "JSONL journal path")
	journalCmd.Flags().String("pg-dsn", "", "read from Postgres instead of the JSONL journal")
	journalCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	root.AddCommand(journalCmd)

	if err := root.Execute(); err != nil {
		reportError(err)
		os.Exit(1)
	}
}

func addPoolFlags(cmd *cobra.Command) {
	cmd.Flags().String("network", "base-sepolia", "network preset (base-sepolia, custom)")
	cmd.Flags().String("token0", "", "first token address (order does not matter)")
	cmd.Flags().String("token1", "", "second token address")
	cmd.Flags().Uint32("fee", 3000, "fee in hundredths of a bip")
	cmd.Flags().Int32("tick-spacing", 60, "tick spacing")
	cmd.Flags().String("hooks", "0x0000000000000000000000000000000000000000", "hooks contract")
	cmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
}

func addNetworkFlags(cmd *cobra.Command) {
	cmd.Flags().String("rpc", "", "RPC URL")
	cmd.Flags().Float64("rpc-rate-limit", 0, "max RPC requests per second, 0 disables")
	cmd.Flags().Int("rpc-burst", 1, "RPC rate limiter burst")
	cmd.Flags().Int("read-retries", 2, "retries for failed read-only calls")
	cmd.Flags().String("state-reader", "", "pool state reader address")
	cmd.Flags().String("pool-manager", "", "pool manager address")
	cmd.Flags().String("position-manager", "", "position manager address")
	cmd.Flags().String("permit2", "", "permit2 address")
}

func addSignerFlags(cmd *cobra.Command) {
	cmd.Flags().String("private-key", "", "hex private key (prefer PRIVATE_KEY in .env)")
	cmd.Flags().Int64("gas-price-multiplier", 10, "multiplier applied to the suggested gas price")
	cmd.Flags().String("journal", "./data/transactions.jsonl", "JSONL transaction journal, empty disables")
	cmd.Flags().String("pg-dsn", "", "Postgres DSN for the transaction journal")
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}

func reportError(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)

	var ambiguous *lifecycle.AmbiguousRevertError
	if errors.As(err, &ambiguous) {
		fmt.Fprint(os.Stderr, ambiguous.Diagnostic())
	}
	var insufficient *lifecycle.InsufficientBalanceError
	if errors.As(err, &insufficient) {
		for _, h := range insufficient.Holdings {
			fmt.Fprintf(os.Stderr, "  %s required=%s held=%s\n", h.Token.Hex(), h.Required, h.Held)
		}
	}
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
