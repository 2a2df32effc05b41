package dex

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poolPilot/internal/model"
)

var encodeKey = model.PoolKey{
	Currency0:   common.HexToAddress("0x036CbD53842c5426634e7929541eC2318f3dCF7e"),
	Currency1:   common.HexToAddress("0x08544C4729aD52612b9A9fC20667afD3A81dB0ce"),
	Fee:         3000,
	TickSpacing: 60,
}

func unpackCall(t *testing.T, load func() (abi.ABI, error), data []byte) (string, []interface{}) {
	t.Helper()
	parsed, err := load()
	require.NoError(t, err)
	method, err := parsed.MethodById(data[:4])
	require.NoError(t, err)
	args, err := method.Inputs.Unpack(data[4:])
	require.NoError(t, err)
	return method.Name, args
}

func TestPackSwapEncodesParams(t *testing.T) {
	limit := new(big.Int).Add(big.NewInt(4295128739), big.NewInt(1))
	data, err := PackSwap(encodeKey, true, big.NewInt(-1000), limit)
	require.NoError(t, err)

	name, args := unpackCall(t, PoolManagerABI, data)
	assert.Equal(t, "swap", name)
	require.Len(t, args, 3)
	params := *abi.ConvertType(args[1], new(swapParams)).(*swapParams)
	assert.True(t, params.ZeroForOne)
	assert.Equal(t, int64(-1000), params.AmountSpecified.Int64())
	assert.Equal(t, 0, params.SqrtPriceLimitX96.Cmp(limit))
	assert.Empty(t, args[2])
}

func TestPackModifyLiquidityEncodesPosition(t *testing.T) {
	recipient := common.HexToAddress("0x00000000000000000000000000000000000000c1")
	data, err := PackModifyLiquidity(encodeKey, model.LiquidityPosition{
		TickLower:      -887220,
		TickUpper:      887220,
		LiquidityDelta: big.NewInt(1234),
		Amount0Max:     big.NewInt(10),
		Recipient:      recipient,
	})
	require.NoError(t, err)

	name, args := unpackCall(t, PositionManagerABI, data)
	assert.Equal(t, "modifyLiquidity", name)
	params := *abi.ConvertType(args[1], new(modifyLiquidityParams)).(*modifyLiquidityParams)
	assert.Equal(t, int64(-887220), params.TickLower.Int64())
	assert.Equal(t, int64(887220), params.TickUpper.Int64())
	assert.Equal(t, int64(1234), params.LiquidityDelta.Int64())
	assert.Equal(t, int64(10), params.Amount0Max.Int64())
	assert.Zero(t, params.Amount1Max.Sign())
	assert.Equal(t, recipient, params.Recipient)
	assert.False(t, params.CollectAllFees)
}

func TestPackDelegatedApprove(t *testing.T) {
	spender := common.HexToAddress("0x4B2C77d209D3405F41a037Ec6c77F7F5b8e2ca80")
	data, err := PackDelegatedApprove(encodeKey.Currency0, spender, big.NewInt(77), 1<<40)
	require.NoError(t, err)

	name, args := unpackCall(t, Permit2ABI, data)
	assert.Equal(t, "approve", name)
	assert.Equal(t, encodeKey.Currency0, args[0])
	assert.Equal(t, spender, args[1])
	assert.Equal(t, int64(77), args[2].(*big.Int).Int64())
	assert.Equal(t, uint64(1<<40), args[3].(*big.Int).Uint64())
}
