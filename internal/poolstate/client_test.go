package poolstate

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poolPilot/internal/chain/chaintest"
	"poolPilot/internal/dex"
	"poolPilot/internal/model"
	"poolPilot/internal/poolkey"
)

var (
	tokenA = common.HexToAddress("0x00000000000000000000000000000000000000b1")
	tokenB = common.HexToAddress("0x00000000000000000000000000000000000000b2")
	owner  = common.HexToAddress("0x00000000000000000000000000000000000000c1")
)

func testKey(t *testing.T) model.PoolKey {
	t.Helper()
	key, err := poolkey.NewPoolKey(tokenB, tokenA, 3000, 60, common.Address{})
	require.NoError(t, err)
	return key
}

func TestGetPoolStateNotFound(t *testing.T) {
	chain := chaintest.New()
	client := NewClient(chain, chaintest.StateReader, nil)

	_, err := client.GetPoolState(context.Background(), testKey(t))
	require.ErrorIs(t, err, ErrPoolNotFound)
}

func TestGetPoolStateReadsSlot0AndLiquidity(t *testing.T) {
	chain := chaintest.New()
	key := testKey(t)
	sqrt := new(big.Int).Lsh(big.NewInt(1), 96)
	chain.SetPool(key, chaintest.Pool{SqrtPriceX96: sqrt, Tick: -120, LPFee: 3000, Liquidity: big.NewInt(0)})
	client := NewClient(chain, chaintest.StateReader, nil)

	state, err := client.GetPoolState(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, 0, state.SqrtPriceX96.Cmp(sqrt))
	assert.Equal(t, int32(-120), state.Tick)
	assert.Equal(t, uint32(3000), state.LPFee)
	assert.False(t, state.HasLiquidity())

	chain.SetPool(key, chaintest.Pool{SqrtPriceX96: sqrt, Liquidity: big.NewInt(77)})
	liquidity, err := client.GetLiquidity(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, int64(77), liquidity.Int64())
}

func TestGetPoolStateDecodedRevertPassesThrough(t *testing.T) {
	chain := chaintest.New()
	chain.Intercept = func(string, common.Address, bool) error {
		return &chaintest.RevertError{Msg: "execution reverted", Data: mustReason(t, "paused")}
	}
	client := NewClient(chain, chaintest.StateReader, nil)

	_, err := client.GetPoolState(context.Background(), testKey(t))
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrPoolNotFound))
	revert, ok := dex.AsRevert(err)
	require.True(t, ok)
	assert.Equal(t, "paused", revert.Reason)
}

func TestGetPoolStateTransportError(t *testing.T) {
	chain := chaintest.New()
	chain.Intercept = func(string, common.Address, bool) error {
		return errors.New("dial tcp: connection refused")
	}
	client := NewClient(chain, chaintest.StateReader, nil)

	_, err := client.GetPoolState(context.Background(), testKey(t))
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrPoolNotFound))
	_, ok := dex.AsRevert(err)
	assert.False(t, ok)
}

func TestBalanceAndAllowances(t *testing.T) {
	chain := chaintest.New()
	chain.AddToken(tokenA, "AAA", 6)
	chain.SetBalance(tokenA, owner, big.NewInt(500))
	client := NewClient(chain, chaintest.StateReader, nil)
	ctx := context.Background()

	balance, err := client.Balance(ctx, tokenA, owner)
	require.NoError(t, err)
	assert.Equal(t, int64(500), balance.Int64())

	record, err := client.Allowances(ctx, tokenA, owner, chaintest.Permit2, chaintest.PositionManager)
	require.NoError(t, err)
	assert.Equal(t, int64(0), record.ERC20Allowance.Int64())
	assert.Equal(t, int64(0), record.DelegatedAmount.Int64())
	assert.False(t, record.Granted(0))
}

func mustReason(t *testing.T, reason string) []byte {
	t.Helper()
	str, err := abi.NewType("string", "", nil)
	require.NoError(t, err)
	payload, err := abi.Arguments{{Type: str}}.Pack(reason)
	require.NoError(t, err)
	return append([]byte{0x08, 0xc3, 0x79, 0xa0}, payload...)
}

func TestRetryRecoversFromTransportError(t *testing.T) {
	chain := chaintest.New()
	key := testKey(t)
	chain.SetPool(key, chaintest.Pool{SqrtPriceX96: new(big.Int).Lsh(big.NewInt(1), 96), Liquidity: big.NewInt(5)})
	failures := 2
	chain.Intercept = func(string, common.Address, bool) error {
		if failures > 0 {
			failures--
			return errors.New("502 bad gateway")
		}
		return nil
	}
	client := NewClient(chain, chaintest.StateReader, nil, WithRetry(2, time.Millisecond))

	liquidity, err := client.GetLiquidity(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, int64(5), liquidity.Int64())
	assert.Zero(t, failures)
}

func TestRetrySkipsReverts(t *testing.T) {
	chain := chaintest.New()
	calls := 0
	chain.Intercept = func(string, common.Address, bool) error {
		calls++
		return nil
	}
	client := NewClient(chain, chaintest.StateReader, nil, WithRetry(3, time.Millisecond))

	_, err := client.GetLiquidity(context.Background(), testKey(t))
	require.ErrorIs(t, err, ErrPoolNotFound)
	assert.Equal(t, 1, calls)
}

func TestRetryStopsOnCancel(t *testing.T) {
	chain := chaintest.New()
	ctx, cancel := context.WithCancel(context.Background())
	chain.Intercept = func(string, common.Address, bool) error {
		cancel()
		return errors.New("connection reset")
	}
	client := NewClient(chain, chaintest.StateReader, nil, WithRetry(5, time.Hour))

	_, err := client.GetLiquidity(ctx, testKey(t))
	require.ErrorIs(t, err, context.Canceled)
}

func TestGetPoolStateZeroPriceIsNotFound(t *testing.T) {
	chain := chaintest.New()
	key := testKey(t)
	chain.SetPool(key, chaintest.Pool{SqrtPriceX96: big.NewInt(0), Liquidity: big.NewInt(0)})
	client := NewClient(chain, chaintest.StateReader, nil)

	_, err := client.GetPoolState(context.Background(), key)
	require.ErrorIs(t, err, ErrPoolNotFound)
	assert.Contains(t, err.Error(), "zero sqrt price")
}
