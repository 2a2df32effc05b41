package dex

import (
	"bytes"
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"poolPilot/internal/model"
)

// Caller performs read-only contract calls.
type Caller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// TokenMetaCache caches token metadata by address.
type TokenMetaCache struct {
	mu   sync.RWMutex
	data map[common.Address]model.TokenMeta
}

func NewTokenMetaCache() *TokenMetaCache {
	return &TokenMetaCache{data: make(map[common.Address]model.TokenMeta)}
}

func (c *TokenMetaCache) Get(address common.Address) (model.TokenMeta, bool) {
	c.mu.RLock()
	meta, ok := c.data[address]
	c.mu.RUnlock()
	return meta, ok
}

func (c *TokenMetaCache) Set(address common.Address, meta model.TokenMeta) {
	c.mu.Lock()
	c.data[address] = meta
	c.mu.Unlock()
}

// Call packs method with args, performs an eth_call against the latest block
// and unpacks the result. Call errors are returned unwrapped so revert data
// stays reachable through errors.As.
func Call(ctx context.Context, caller Caller, from common.Address, to common.Address, parsed abi.ABI, method string, args ...interface{}) ([]interface{}, error) {
	if caller == nil {
		return nil, fmt.Errorf("caller is nil")
	}
	data, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	msg := ethereum.CallMsg{From: from, To: &to, Data: data}
	resp, err := caller.CallContract(ctx, msg, nil)
	if err != nil {
		return nil, err
	}
	values, err := parsed.Unpack(method, resp)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	return values, nil
}

// FetchTokenMeta reads decimals, symbol and name from an ERC-20. Only
// decimals is required; symbol and name fall back to bytes32 encodings.
func FetchTokenMeta(ctx context.Context, caller Caller, token common.Address, logger *zap.Logger) (model.TokenMeta, error) {
	meta := model.TokenMeta{Address: token.Hex()}
	if logger == nil {
		logger = zap.NewNop()
	}

	stringABI, err := ERC20ABI()
	if err != nil {
		return meta, fmt.Errorf("parse erc20 abi: %w", err)
	}
	values, err := Call(ctx, caller, common.Address{}, token, stringABI, "decimals")
	if err != nil {
		return meta, fmt.Errorf("call decimals %s: %w", token.Hex(), err)
	}
	if meta.Decimals, err = asUint8(values[0]); err != nil {
		return meta, err
	}

	meta.Symbol = optionalText(ctx, caller, token, "symbol", logger)
	meta.Name = optionalText(ctx, caller, token, "name", logger)
	return meta, nil
}

// optionalText reads a string getter, retrying with the bytes32 layout some
// older tokens use. Failures yield "".
func optionalText(ctx context.Context, caller Caller, token common.Address, method string, logger *zap.Logger) string {
	var lastErr error
	for _, load := range []func() (abi.ABI, error){ERC20ABI, erc20ABIBytes32Instance} {
		parsed, err := load()
		if err != nil {
			lastErr = err
			continue
		}
		values, err := Call(ctx, caller, common.Address{}, token, parsed, method)
		if err != nil {
			lastErr = err
			continue
		}
		switch v := values[0].(type) {
		case string:
			return v
		case [32]byte:
			return string(bytes.TrimRight(v[:], "\x00"))
		}
	}
	logger.Debug("token text call failed", zap.String("token", token.Hex()), zap.String("method", method), zap.Error(lastErr))
	return ""
}

// CachedTokenMeta returns cached metadata or fetches and caches it.
func CachedTokenMeta(ctx context.Context, cache *TokenMetaCache, caller Caller, token common.Address, logger *zap.Logger) (model.TokenMeta, error) {
	if cache != nil {
		if meta, ok := cache.Get(token); ok {
			return meta, nil
		}
	}
	meta, err := FetchTokenMeta(ctx, caller, token, logger)
	if err != nil {
		return meta, err
	}
	if cache != nil {
		cache.Set(token, meta)
	}
	return meta, nil
}

// AsBigInt converts an unpacked ABI integer into a fresh *big.Int.
func AsBigInt(value interface{}) (*big.Int, error) {
	switch v := value.(type) {
	case *big.Int:
		if v == nil {
			return nil, fmt.Errorf("nil big int")
		}
		return new(big.Int).Set(v), nil
	case big.Int:
		return new(big.Int).Set(&v), nil
	case uint8:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint16:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint32:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint64:
		return new(big.Int).SetUint64(v), nil
	case int8:
		return big.NewInt(int64(v)), nil
	case int16:
		return big.NewInt(int64(v)), nil
	case int32:
		return big.NewInt(int64(v)), nil
	case int64:
		return big.NewInt(v), nil
	default:
		return nil, fmt.Errorf("unsupported int type %T", value)
	}
}

func asUint8(value interface{}) (uint8, error) {
	switch v := value.(type) {
	case uint8:
		return v, nil
	case uint16:
		return uint8(v), nil
	case uint32:
		return uint8(v), nil
	case uint64:
		return uint8(v), nil
	case *big.Int:
		return uint8(v.Uint64()), nil
	default:
		return 0, fmt.Errorf("unsupported uint8 type %T", value)
	}
}

// Int24FromBig narrows an ABI int24 value.
func Int24FromBig(value *big.Int) (int32, error) {
	min := big.NewInt(-1 << 23)
	max := big.NewInt((1 << 23) - 1)
	if value.Cmp(min) < 0 || value.Cmp(max) > 0 {
		return 0, fmt.Errorf("int24 overflow: %s", value.String())
	}
	return int32(value.Int64()), nil
}

// Uint24FromBig narrows an ABI uint24 value.
func Uint24FromBig(value *big.Int) (uint32, error) {
	if value.Sign() < 0 || value.BitLen() > 24 {
		return 0, fmt.Errorf("uint24 overflow: %s", value.String())
	}
	return uint32(value.Uint64()), nil
}
