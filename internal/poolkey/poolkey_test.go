package poolkey

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	vcop = common.HexToAddress("0x08544C4729aD52612b9A9fC20667afD3A81dB0ce")
	usdc = common.HexToAddress("0x036CbD53842c5426634e7929541eC2318f3dCF7e")
)

func TestSortTokensOrderInvariant(t *testing.T) {
	pairs := [][2]common.Address{
		{vcop, usdc},
		{common.HexToAddress("0xffffffffffffffffffffffffffffffffffffffff"), common.HexToAddress("0x0000000000000000000000000000000000000001")},
		{common.HexToAddress("0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"), common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaab")},
	}

	for _, pair := range pairs {
		a0, a1 := SortTokens(pair[0], pair[1])
		b0, b1 := SortTokens(pair[1], pair[0])
		assert.Equal(t, a0, b0)
		assert.Equal(t, a1, b1)
		assert.Negative(t, bytes.Compare(a0.Bytes(), a1.Bytes()))
		assert.Less(t, strings.ToLower(a0.Hex()), strings.ToLower(a1.Hex()))
	}
}

func TestSortTokensKnownPair(t *testing.T) {
	token0, token1 := SortTokens(vcop, usdc)
	assert.Equal(t, usdc, token0)
	assert.Equal(t, vcop, token1)
}

func TestNewPoolKey(t *testing.T) {
	key, err := NewPoolKey(vcop, usdc, 3000, 60, common.Address{})
	require.NoError(t, err)
	assert.Equal(t, usdc, key.Currency0)
	assert.Equal(t, vcop, key.Currency1)
	assert.Equal(t, uint32(3000), key.Fee)
	assert.Equal(t, int32(60), key.TickSpacing)
	assert.False(t, key.HasHooks())

	_, err = NewPoolKey(vcop, vcop, 3000, 60, common.Address{})
	assert.Error(t, err)
}

func TestParseAddress(t *testing.T) {
	addr, err := ParseAddress("token", " 0x08544c4729ad52612b9a9fc20667afd3a81db0ce ")
	require.NoError(t, err)
	assert.Equal(t, vcop, addr)

	_, err = ParseAddress("token", "0x1234")
	var idErr *IdentityError
	require.True(t, errors.As(err, &idErr))
	assert.Equal(t, "token", idErr.Field)

	_, err = ParseToken("token-a", "0x0000000000000000000000000000000000000000")
	require.True(t, errors.As(err, &idErr))
	assert.Equal(t, errZeroAddress, idErr.Err)
}

func TestPoolIDDependsOnOrder(t *testing.T) {
	sorted, err := NewPoolKey(vcop, usdc, 3000, 60, common.Address{})
	require.NoError(t, err)

	id1, err := PoolID(sorted)
	require.NoError(t, err)
	id2, err := PoolID(sorted)
	require.NoError(t, err)
	assert.Equal(t, id1, id2)

	reversed := BuildPoolKey(sorted.Currency1, sorted.Currency0, 3000, 60, common.Address{})
	id3, err := PoolID(reversed)
	require.NoError(t, err)
	assert.NotEqual(t, id1, id3)
}
