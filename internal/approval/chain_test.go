package approval

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poolPilot/internal/chain/chaintest"
	"poolPilot/internal/poolstate"
	"poolPilot/internal/txn"
)

const testKey = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

var (
	token0 = common.HexToAddress("0x00000000000000000000000000000000000000b1")
	token1 = common.HexToAddress("0x00000000000000000000000000000000000000b2")
)

func setup(t *testing.T) (*Chain, *chaintest.Chain, *poolstate.Client, common.Address) {
	t.Helper()
	signer, err := txn.NewSigner(testKey)
	require.NoError(t, err)
	sim := chaintest.New()
	sim.AddToken(token0, "T0", 18)
	sim.AddToken(token1, "T1", 6)
	sub := txn.NewSubmitter(sim, signer, txn.Options{GasPriceMultiplier: 1})
	reader := poolstate.NewClient(sim, chaintest.StateReader, nil)
	chain := NewChain(Config{
		Delegation:       chaintest.Permit2,
		Spender:          chaintest.PositionManager,
		ApproveGasLimit:  100000,
		DelegateGasLimit: 150000,
	}, sub, reader, nil)
	return chain, sim, reader, signer.Address()
}

func TestProvisionOrdersApprovals(t *testing.T) {
	chain, sim, reader, owner := setup(t)
	ctx := context.Background()

	receipts, err := chain.Provision(ctx, token0, token1, big.NewInt(1000), big.NewInt(2000))
	require.NoError(t, err)
	require.Len(t, receipts, 4)
	assert.Equal(t, []string{"approve", "approve", "approve", "approve"}, sim.SentMethods())

	sent := sim.Sent()
	assert.Equal(t, token0, *sent[0].To())
	assert.Equal(t, token1, *sent[1].To())
	assert.Equal(t, chaintest.Permit2, *sent[2].To())
	assert.Equal(t, chaintest.Permit2, *sent[3].To())
	for i, tx := range sent {
		assert.Equal(t, uint64(i), tx.Nonce())
	}

	record, err := reader.Allowances(ctx, token1, owner, chaintest.Permit2, chaintest.PositionManager)
	require.NoError(t, err)
	assert.Equal(t, int64(2000), record.ERC20Allowance.Int64())
	assert.Equal(t, int64(2000), record.DelegatedAmount.Int64())
	assert.Equal(t, MaxUint48(), record.DelegatedExpiration)
	assert.True(t, record.Granted(1_700_000_000))
}

func TestDelegatedAllowanceClampsAmount(t *testing.T) {
	chain, _, reader, owner := setup(t)
	ctx := context.Background()

	huge := new(big.Int).Lsh(big.NewInt(1), 200)
	_, err := chain.EnsureDelegatedAllowance(ctx, token0, chaintest.PositionManager, huge, 0)
	require.NoError(t, err)

	record, err := reader.Allowances(ctx, token0, owner, chaintest.Permit2, chaintest.PositionManager)
	require.NoError(t, err)
	assert.Equal(t, 0, record.DelegatedAmount.Cmp(MaxUint160()))
}

func TestEnsureERC20AllowanceIsUnconditional(t *testing.T) {
	chain, sim, _, _ := setup(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := chain.EnsureERC20Allowance(ctx, token0, chaintest.Permit2, big.NewInt(5))
		require.NoError(t, err)
	}
	assert.Len(t, sim.Sent(), 2)
}

func TestProvisionStopsOnFailedApproval(t *testing.T) {
	chain, sim, _, _ := setup(t)
	preflights := 0
	sim.Intercept = func(method string, _ common.Address, commit bool) error {
		if method != "approve" || commit {
			return nil
		}
		preflights++
		if preflights == 2 {
			return &chaintest.RevertError{Msg: "execution reverted"}
		}
		return nil
	}

	_, err := chain.Provision(context.Background(), token0, token1, big.NewInt(1), big.NewInt(1))
	require.Error(t, err)
	var preflight *txn.PreflightError
	require.ErrorAs(t, err, &preflight)
	assert.Len(t, sim.Sent(), 1)
}
