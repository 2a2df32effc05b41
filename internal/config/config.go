package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds configuration values loaded from flags, env, .env or config file.
type Config struct {
	Network    string
	RPCURL     string
	PrivateKey string

	Token0      string
	Token1      string
	Fee         uint32
	TickSpacing int32
	Hooks       string

	PoolManager     string
	PositionManager string
	Permit2         string
	StateReader     string

	StartSqrtPriceX96 string
	StartPrice        float64
	Amount0           string
	Amount1           string
	LiquidityDelta    string
	Recipient         string
	PermitExpiration  uint64

	TokenIn    string
	SwapAmount string
	ExactInput bool

	GasPriceMultiplier int64
	GasLimits          GasLimits

	RPCRateLimit float64
	RPCBurst     int
	ReadRetries  int

	Journal  string
	PGDSN    string
	LogLevel string
}

// GasLimits are fixed per stage; nothing is estimated.
type GasLimits struct {
	Approve         uint64
	Permit          uint64
	Initialize      uint64
	ModifyLiquidity uint64
	Swap            uint64
}

// Load merges flags, environment variables, a .env file and the config file
// into Config. Flags win over env, env over file, file over network presets.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix("POOL")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("private-key", "POOL_PRIVATE_KEY", "PRIVATE_KEY")
	_ = v.BindEnv("rpc", "POOL_RPC", "RPC_URL", "BASE_SEPOLIA_RPC_URL")

	v.SetDefault("network", NetworkBaseSepolia)
	v.SetDefault("fee", 3000)
	v.SetDefault("tick-spacing", 60)
	v.SetDefault("hooks", zeroAddress)
	v.SetDefault("start-sqrt-price", "79228162514264337593543950336")
	v.SetDefault("amount0", "100")
	v.SetDefault("amount1", "100")
	v.SetDefault("swap-amount", "0.01")
	v.SetDefault("exact-input", true)
	v.SetDefault("gas-price-multiplier", 10)
	v.SetDefault("gas-limit-approve", 100000)
	v.SetDefault("gas-limit-permit", 150000)
	v.SetDefault("gas-limit-initialize", 1000000)
	v.SetDefault("gas-limit-modify-liquidity", 3000000)
	v.SetDefault("gas-limit-swap", 1000000)
	v.SetDefault("rpc-burst", 1)
	v.SetDefault("read-retries", 2)
	v.SetDefault("journal", "./data/transactions.jsonl")
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := Config{
		Network:            v.GetString("network"),
		RPCURL:             v.GetString("rpc"),
		PrivateKey:         v.GetString("private-key"),
		Token0:             v.GetString("token0"),
		Token1:             v.GetString("token1"),
		Fee:                v.GetUint32("fee"),
		TickSpacing:        v.GetInt32("tick-spacing"),
		Hooks:              v.GetString("hooks"),
		PoolManager:        v.GetString("pool-manager"),
		PositionManager:    v.GetString("position-manager"),
		Permit2:            v.GetString("permit2"),
		StateReader:        v.GetString("state-reader"),
		StartSqrtPriceX96:  v.GetString("start-sqrt-price"),
		StartPrice:         v.GetFloat64("start-price"),
		Amount0:            v.GetString("amount0"),
		Amount1:            v.GetString("amount1"),
		LiquidityDelta:     v.GetString("liquidity-delta"),
		Recipient:          v.GetString("recipient"),
		PermitExpiration:   v.GetUint64("permit-expiration"),
		TokenIn:            v.GetString("token-in"),
		SwapAmount:         v.GetString("swap-amount"),
		ExactInput:         v.GetBool("exact-input"),
		GasPriceMultiplier: v.GetInt64("gas-price-multiplier"),
		GasLimits: GasLimits{
			Approve:         v.GetUint64("gas-limit-approve"),
			Permit:          v.GetUint64("gas-limit-permit"),
			Initialize:      v.GetUint64("gas-limit-initialize"),
			ModifyLiquidity: v.GetUint64("gas-limit-modify-liquidity"),
			Swap:            v.GetUint64("gas-limit-swap"),
		},
		RPCRateLimit: v.GetFloat64("rpc-rate-limit"),
		RPCBurst:     v.GetInt("rpc-burst"),
		ReadRetries:  v.GetInt("read-retries"),
		Journal:      v.GetString("journal"),
		PGDSN:        v.GetString("pg-dsn"),
		LogLevel:     v.GetString("log-level"),
	}

	if err := cfg.applyPreset(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ValidateRead checks what a read-only command needs.
func (c Config) ValidateRead() error {
	var errs []error
	if c.RPCURL == "" {
		errs = append(errs, fmt.Errorf("rpc url is required (--rpc, POOL_RPC or RPC_URL)"))
	}
	if c.StateReader == "" {
		errs = append(errs, fmt.Errorf("state reader address is required"))
	}
	errs = append(errs, c.validatePair()...)
	return errors.Join(errs...)
}

// ValidateWrite checks what a transacting command needs.
func (c Config) ValidateWrite() error {
	errs := []error{c.ValidateRead()}
	if c.PrivateKey == "" {
		errs = append(errs, fmt.Errorf("private key is required (--private-key, POOL_PRIVATE_KEY or PRIVATE_KEY)"))
	}
	if c.PoolManager == "" {
		errs = append(errs, fmt.Errorf("pool manager address is required"))
	}
	if c.PositionManager == "" {
		errs = append(errs, fmt.Errorf("position manager address is required"))
	}
	if c.Permit2 == "" {
		errs = append(errs, fmt.Errorf("permit2 address is required"))
	}
	if c.GasPriceMultiplier < 1 {
		errs = append(errs, fmt.Errorf("gas price multiplier must be >= 1"))
	}
	g := c.GasLimits
	if g.Approve == 0 || g.Permit == 0 || g.Initialize == 0 || g.ModifyLiquidity == 0 || g.Swap == 0 {
		errs = append(errs, fmt.Errorf("gas limits must be non-zero"))
	}
	return errors.Join(errs...)
}

func (c Config) validatePair() []error {
	var errs []error
	if c.Token0 == "" || c.Token1 == "" {
		errs = append(errs, fmt.Errorf("token0 and token1 are required"))
	}
	if c.TickSpacing <= 0 {
		errs = append(errs, fmt.Errorf("tick spacing must be positive"))
	}
	if c.Fee >= 1_000_000 {
		errs = append(errs, fmt.Errorf("fee must be below 1000000 pips"))
	}
	return errs
}
