package poolstate

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"poolPilot/internal/dex"
	"poolPilot/internal/model"
	"poolPilot/internal/poolkey"
)

// ErrPoolNotFound is returned when the state reader reverts without a
// decodable payload, which is how it reports an uninitialized pool.
var ErrPoolNotFound = errors.New("pool not found")

// Client reads pool state through a state reader contract. Every call hits
// the chain; nothing is cached.
type Client struct {
	caller     dex.Caller
	reader     common.Address
	logger     *zap.Logger
	maxRetries int
	baseDelay  time.Duration
}

// NewClient creates a pool state client.
func NewClient(caller dex.Caller, reader common.Address, logger *zap.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Client{caller: caller, reader: reader, logger: logger, baseDelay: 100 * time.Millisecond}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) call(ctx context.Context, to common.Address, parsed abi.ABI, method string, args ...interface{}) ([]interface{}, error) {
	var values []interface{}
	err := c.withRetry(ctx, func(ctx context.Context) error {
		var err error
		values, err = dex.Call(ctx, c.caller, common.Address{}, to, parsed, method, args...)
		if err != nil && retryable(err) {
			c.logger.Debug("read call failed", zap.String("method", method), zap.Error(err))
		}
		return err
	})
	return values, err
}

// GetPoolState returns slot0 and liquidity for key.
func (c *Client) GetPoolState(ctx context.Context, key model.PoolKey) (model.PoolState, error) {
	parsed, err := dex.StateReaderABI()
	if err != nil {
		return model.PoolState{}, fmt.Errorf("parse state reader abi: %w", err)
	}

	values, err := c.call(ctx, c.reader, parsed, "getPoolState", poolkey.Tuple(key))
	if err != nil {
		return model.PoolState{}, classify("getPoolState", err)
	}
	state, err := decodeSlot0(values)
	if err != nil {
		return model.PoolState{}, err
	}
	if state.SqrtPriceX96.Sign() == 0 {
		// Readers built on StateLibrary return a zero slot0 instead of reverting.
		return model.PoolState{}, fmt.Errorf("call getPoolState: zero sqrt price: %w", ErrPoolNotFound)
	}

	liquidity, err := c.GetLiquidity(ctx, key)
	if err != nil {
		return model.PoolState{}, err
	}
	state.Liquidity = liquidity

	c.logger.Debug("pool state",
		zap.String("pool", key.String()),
		zap.String("sqrt_price_x96", state.SqrtPriceX96.String()),
		zap.Int32("tick", state.Tick),
		zap.String("liquidity", liquidity.String()),
	)
	return state, nil
}

// GetLiquidity returns the in-range liquidity. Zero is a valid answer and
// distinct from ErrPoolNotFound.
func (c *Client) GetLiquidity(ctx context.Context, key model.PoolKey) (*big.Int, error) {
	parsed, err := dex.StateReaderABI()
	if err != nil {
		return nil, fmt.Errorf("parse state reader abi: %w", err)
	}
	values, err := c.call(ctx, c.reader, parsed, "getPoolLiquidity", poolkey.Tuple(key))
	if err != nil {
		return nil, classify("getPoolLiquidity", err)
	}
	if len(values) != 1 {
		return nil, fmt.Errorf("unexpected getPoolLiquidity values: %d", len(values))
	}
	return dex.AsBigInt(values[0])
}

func decodeSlot0(values []interface{}) (model.PoolState, error) {
	if len(values) != 4 {
		return model.PoolState{}, fmt.Errorf("unexpected getPoolState values: %d", len(values))
	}
	sqrtPrice, err := dex.AsBigInt(values[0])
	if err != nil {
		return model.PoolState{}, fmt.Errorf("sqrt price: %w", err)
	}
	tickBig, err := dex.AsBigInt(values[1])
	if err != nil {
		return model.PoolState{}, fmt.Errorf("tick: %w", err)
	}
	tick, err := dex.Int24FromBig(tickBig)
	if err != nil {
		return model.PoolState{}, err
	}
	protocolBig, err := dex.AsBigInt(values[2])
	if err != nil {
		return model.PoolState{}, fmt.Errorf("protocol fee: %w", err)
	}
	protocolFee, err := dex.Uint24FromBig(protocolBig)
	if err != nil {
		return model.PoolState{}, err
	}
	lpBig, err := dex.AsBigInt(values[3])
	if err != nil {
		return model.PoolState{}, fmt.Errorf("lp fee: %w", err)
	}
	lpFee, err := dex.Uint24FromBig(lpBig)
	if err != nil {
		return model.PoolState{}, err
	}
	return model.PoolState{
		SqrtPriceX96: sqrtPrice,
		Tick:         tick,
		ProtocolFee:  protocolFee,
		LPFee:        lpFee,
	}, nil
}

// classify maps a reader failure. Reverts without a decodable payload mean
// the pool does not exist; decoded reverts and transport errors pass through.
func classify(method string, err error) error {
	revert, ok := dex.AsRevert(err)
	if !ok {
		return fmt.Errorf("call %s: %w", method, err)
	}
	if !revert.Decoded() || revert.Name == dex.ErrNamePoolNotInitialized {
		return fmt.Errorf("call %s: %w", method, ErrPoolNotFound)
	}
	return fmt.Errorf("call %s: %w", method, revert)
}

// Balance returns the ERC-20 balance of owner.
func (c *Client) Balance(ctx context.Context, token, owner common.Address) (*big.Int, error) {
	parsed, err := dex.ERC20ABI()
	if err != nil {
		return nil, fmt.Errorf("parse erc20 abi: %w", err)
	}
	values, err := c.call(ctx, token, parsed, "balanceOf", owner)
	if err != nil {
		return nil, fmt.Errorf("call balanceOf %s: %w", token.Hex(), err)
	}
	return dex.AsBigInt(values[0])
}

// Allowances reads both approval layers for (token, spender): the ERC-20
// allowance owner gave delegation, and what delegation lets spender pull.
func (c *Client) Allowances(ctx context.Context, token, owner, delegation, spender common.Address) (model.ApprovalRecord, error) {
	record := model.ApprovalRecord{Token: token, Owner: owner, Delegation: delegation, Spender: spender}

	erc20, err := dex.ERC20ABI()
	if err != nil {
		return record, fmt.Errorf("parse erc20 abi: %w", err)
	}
	values, err := c.call(ctx, token, erc20, "allowance", owner, delegation)
	if err != nil {
		return record, fmt.Errorf("call allowance %s: %w", token.Hex(), err)
	}
	if record.ERC20Allowance, err = dex.AsBigInt(values[0]); err != nil {
		return record, err
	}

	permit2, err := dex.Permit2ABI()
	if err != nil {
		return record, fmt.Errorf("parse permit2 abi: %w", err)
	}
	values, err = c.call(ctx, delegation, permit2, "allowance", owner, token, spender)
	if err != nil {
		return record, fmt.Errorf("call permit2 allowance %s: %w", token.Hex(), err)
	}
	if len(values) != 3 {
		return record, fmt.Errorf("unexpected permit2 allowance values: %d", len(values))
	}
	if record.DelegatedAmount, err = dex.AsBigInt(values[0]); err != nil {
		return record, err
	}
	expiration, err := dex.AsBigInt(values[1])
	if err != nil {
		return record, err
	}
	nonce, err := dex.AsBigInt(values[2])
	if err != nil {
		return record, err
	}
	record.DelegatedExpiration = expiration.Uint64()
	record.DelegatedNonce = nonce.Uint64()
	return record, nil
}
