package dex_test

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poolPilot/internal/chain/chaintest"
	"poolPilot/internal/dex"
)

func TestCachedTokenMetaFetchesOnce(t *testing.T) {
	sim := chaintest.New()
	usdc := common.HexToAddress("0x036CbD53842c5426634e7929541eC2318f3dCF7e")
	sim.AddToken(usdc, "USDC", 6)
	cache := dex.NewTokenMetaCache()

	meta, err := dex.CachedTokenMeta(context.Background(), cache, sim, usdc, nil)
	require.NoError(t, err)
	assert.Equal(t, uint8(6), meta.Decimals)
	assert.Equal(t, "USDC", meta.Symbol)
	assert.Equal(t, "USDC", meta.Label())

	calls := len(sim.Calls())
	_, err = dex.CachedTokenMeta(context.Background(), cache, sim, usdc, nil)
	require.NoError(t, err)
	assert.Equal(t, calls, len(sim.Calls()))
}

func TestFetchTokenMetaRequiresDecimals(t *testing.T) {
	sim := chaintest.New()
	missing := common.HexToAddress("0x00000000000000000000000000000000000000e1")

	_, err := dex.FetchTokenMeta(context.Background(), sim, missing, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "call decimals")
}
