package dex

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const poolKeyTuple = `{"components": [
      {"internalType": "Currency", "name": "currency0", "type": "address"},
      {"internalType": "Currency", "name": "currency1", "type": "address"},
      {"internalType": "uint24", "name": "fee", "type": "uint24"},
      {"internalType": "int24", "name": "tickSpacing", "type": "int24"},
      {"internalType": "contract IHooks", "name": "hooks", "type": "address"}
    ], "internalType": "struct PoolKey", "name": "key", "type": "tuple"}`

const stateReaderABIJSON = `[
  {
    "inputs": [` + poolKeyTuple + `],
    "name": "getPoolState",
    "outputs": [
      {"internalType": "uint160", "name": "sqrtPriceX96", "type": "uint160"},
      {"internalType": "int24", "name": "tick", "type": "int24"},
      {"internalType": "uint24", "name": "protocolFee", "type": "uint24"},
      {"internalType": "uint24", "name": "lpFee", "type": "uint24"}
    ],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [` + poolKeyTuple + `],
    "name": "getPoolLiquidity",
    "outputs": [{"internalType": "uint128", "name": "liquidity", "type": "uint128"}],
    "stateMutability": "view",
    "type": "function"
  }
]`

const poolManagerABIJSON = `[
  {
    "inputs": [` + poolKeyTuple + `, {"internalType": "uint160", "name": "sqrtPriceX96", "type": "uint160"}],
    "name": "initialize",
    "outputs": [{"internalType": "int24", "name": "tick", "type": "int24"}],
    "stateMutability": "nonpayable",
    "type": "function"
  },
  {
    "inputs": [
      ` + poolKeyTuple + `,
      {"components": [
        {"internalType": "bool", "name": "zeroForOne", "type": "bool"},
        {"internalType": "int256", "name": "amountSpecified", "type": "int256"},
        {"internalType": "uint160", "name": "sqrtPriceLimitX96", "type": "uint160"}
      ], "internalType": "struct IPoolManager.SwapParams", "name": "params", "type": "tuple"},
      {"internalType": "bytes", "name": "callbackData", "type": "bytes"}
    ],
    "name": "swap",
    "outputs": [{"components": [
      {"internalType": "int256", "name": "amount0", "type": "int256"},
      {"internalType": "int256", "name": "amount1", "type": "int256"}
    ], "internalType": "struct BalanceDelta", "name": "delta", "type": "tuple"}],
    "stateMutability": "nonpayable",
    "type": "function"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "PoolId", "name": "id", "type": "bytes32"},
      {"indexed": true, "internalType": "Currency", "name": "currency0", "type": "address"},
      {"indexed": true, "internalType": "Currency", "name": "currency1", "type": "address"},
      {"indexed": false, "internalType": "uint24", "name": "fee", "type": "uint24"},
      {"indexed": false, "internalType": "int24", "name": "tickSpacing", "type": "int24"},
      {"indexed": false, "internalType": "contract IHooks", "name": "hooks", "type": "address"},
      {"indexed": false, "internalType": "uint160", "name": "sqrtPriceX96", "type": "uint160"},
      {"indexed": false, "internalType": "int24", "name": "tick", "type": "int24"}
    ],
    "name": "Initialize",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "PoolId", "name": "id", "type": "bytes32"},
      {"indexed": true, "internalType": "address", "name": "sender", "type": "address"},
      {"indexed": false, "internalType": "int24", "name": "tickLower", "type": "int24"},
      {"indexed": false, "internalType": "int24", "name": "tickUpper", "type": "int24"},
      {"indexed": false, "internalType": "int256", "name": "liquidityDelta", "type": "int256"},
      {"indexed": false, "internalType": "bytes32", "name": "salt", "type": "bytes32"}
    ],
    "name": "ModifyLiquidity",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "PoolId", "name": "id", "type": "bytes32"},
      {"indexed": true, "internalType": "address", "name": "sender", "type": "address"},
      {"indexed": false, "internalType": "int128", "name": "amount0", "type": "int128"},
      {"indexed": false, "internalType": "int128", "name": "amount1", "type": "int128"},
      {"indexed": false, "internalType": "uint160", "name": "sqrtPriceX96", "type": "uint160"},
      {"indexed": false, "internalType": "uint128", "name": "liquidity", "type": "uint128"},
      {"indexed": false, "internalType": "int24", "name": "tick", "type": "int24"},
      {"indexed": false, "internalType": "uint24", "name": "fee", "type": "uint24"}
    ],
    "name": "Swap",
    "type": "event"
  },
  {"inputs": [], "name": "PoolAlreadyInitialized", "type": "error"},
  {"inputs": [], "name": "PoolNotInitialized", "type": "error"},
  {"inputs": [], "name": "ManagerLocked", "type": "error"},
  {"inputs": [], "name": "CurrencyNotSettled", "type": "error"},
  {"inputs": [], "name": "SwapAmountCannotBeZero", "type": "error"},
  {"inputs": [{"internalType": "int24", "name": "tickSpacing", "type": "int24"}], "name": "TickSpacingTooLarge", "type": "error"},
  {"inputs": [{"internalType": "int24", "name": "tickSpacing", "type": "int24"}], "name": "TickSpacingTooSmall", "type": "error"},
  {"inputs": [{"internalType": "address", "name": "currency0", "type": "address"}, {"internalType": "address", "name": "currency1", "type": "address"}], "name": "CurrenciesOutOfOrderOrEqual", "type": "error"},
  {"inputs": [{"internalType": "uint160", "name": "sqrtPriceCurrentX96", "type": "uint160"}, {"internalType": "uint160", "name": "sqrtPriceLimitX96", "type": "uint160"}], "name": "PriceLimitAlreadyExceeded", "type": "error"},
  {"inputs": [{"internalType": "uint160", "name": "sqrtPriceLimitX96", "type": "uint160"}], "name": "PriceLimitOutOfBounds", "type": "error"}
]`

const positionManagerABIJSON = `[
  {
    "inputs": [
      ` + poolKeyTuple + `,
      {"components": [
        {"internalType": "int24", "name": "tickLower", "type": "int24"},
        {"internalType": "int24", "name": "tickUpper", "type": "int24"},
        {"internalType": "int128", "name": "liquidityDelta", "type": "int128"},
        {"internalType": "uint256", "name": "amount0Max", "type": "uint256"},
        {"internalType": "uint256", "name": "amount1Max", "type": "uint256"},
        {"internalType": "bool", "name": "collectAllFees", "type": "bool"},
        {"internalType": "address", "name": "recipient", "type": "address"},
        {"internalType": "bytes", "name": "hookData", "type": "bytes"},
        {"internalType": "uint256", "name": "unlockTime", "type": "uint256"}
      ], "internalType": "struct ModifyLiquidityParams", "name": "params", "type": "tuple"}
    ],
    "name": "modifyLiquidity",
    "outputs": [{"components": [
      {"internalType": "uint128", "name": "liquidity", "type": "uint128"},
      {"internalType": "uint256", "name": "amount0", "type": "uint256"},
      {"internalType": "uint256", "name": "amount1", "type": "uint256"}
    ], "internalType": "struct ModifyLiquidityResult", "name": "result", "type": "tuple"}],
    "stateMutability": "payable",
    "type": "function"
  }
]`

const permit2ABIJSON = `[
  {
    "inputs": [
      {"internalType": "address", "name": "token", "type": "address"},
      {"internalType": "address", "name": "spender", "type": "address"},
      {"internalType": "uint160", "name": "amount", "type": "uint160"},
      {"internalType": "uint48", "name": "expiration", "type": "uint48"}
    ],
    "name": "approve",
    "outputs": [],
    "stateMutability": "nonpayable",
    "type": "function"
  },
  {
    "inputs": [
      {"internalType": "address", "name": "user", "type": "address"},
      {"internalType": "address", "name": "token", "type": "address"},
      {"internalType": "address", "name": "spender", "type": "address"}
    ],
    "name": "allowance",
    "outputs": [
      {"internalType": "uint160", "name": "amount", "type": "uint160"},
      {"internalType": "uint48", "name": "expiration", "type": "uint48"},
      {"internalType": "uint48", "name": "nonce", "type": "uint48"}
    ],
    "stateMutability": "view",
    "type": "function"
  },
  {"inputs": [{"internalType": "uint256", "name": "deadline", "type": "uint256"}], "name": "AllowanceExpired", "type": "error"},
  {"inputs": [{"internalType": "uint256", "name": "amount", "type": "uint256"}], "name": "InsufficientAllowance", "type": "error"}
]`

type lazyABI struct {
	json   string
	once   sync.Once
	parsed abi.ABI
	err    error
}

func (l *lazyABI) get() (abi.ABI, error) {
	l.once.Do(func() {
		l.parsed, l.err = abi.JSON(strings.NewReader(l.json))
	})
	return l.parsed, l.err
}

var (
	stateReaderABI     = &lazyABI{json: stateReaderABIJSON}
	poolManagerABI     = &lazyABI{json: poolManagerABIJSON}
	positionManagerABI = &lazyABI{json: positionManagerABIJSON}
	permit2ABI         = &lazyABI{json: permit2ABIJSON}
)

// StateReaderABI returns the parsed pool state reader ABI.
func StateReaderABI() (abi.ABI, error) { return stateReaderABI.get() }

// PoolManagerABI returns the parsed pool manager ABI.
func PoolManagerABI() (abi.ABI, error) { return poolManagerABI.get() }

// PositionManagerABI returns the parsed position manager ABI.
func PositionManagerABI() (abi.ABI, error) { return positionManagerABI.get() }

// Permit2ABI returns the parsed allowance delegation ABI.
func Permit2ABI() (abi.ABI, error) { return permit2ABI.get() }
