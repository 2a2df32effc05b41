package lifecycle

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poolPilot/internal/approval"
	"poolPilot/internal/chain/chaintest"
	"poolPilot/internal/dex"
	"poolPilot/internal/model"
	"poolPilot/internal/poolkey"
	"poolPilot/internal/poolstate"
	"poolPilot/internal/pricemath"
	"poolPilot/internal/txn"
)

const testKey = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

var (
	token0 = common.HexToAddress("0x00000000000000000000000000000000000000b1")
	token1 = common.HexToAddress("0x00000000000000000000000000000000000000b2")
	ether  = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
)

type fixture struct {
	sim   *chaintest.Chain
	orch  *Orchestrator
	key   model.PoolKey
	owner common.Address
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	signer, err := txn.NewSigner(testKey)
	require.NoError(t, err)

	sim := chaintest.New()
	sim.AddToken(token0, "T0", 18)
	sim.AddToken(token1, "T1", 18)
	sim.SetBalance(token0, signer.Address(), new(big.Int).Mul(big.NewInt(10), ether))
	sim.SetBalance(token1, signer.Address(), new(big.Int).Mul(big.NewInt(10), ether))

	key, err := poolkey.NewPoolKey(token1, token0, 3000, 60, common.Address{})
	require.NoError(t, err)

	sub := txn.NewSubmitter(sim, signer, txn.Options{RunID: "test", GasPriceMultiplier: 10})
	reader := poolstate.NewClient(sim, chaintest.StateReader, nil)
	approvals := approval.NewChain(approval.Config{
		Delegation:       chaintest.Permit2,
		Spender:          chaintest.PositionManager,
		ApproveGasLimit:  100000,
		DelegateGasLimit: 150000,
	}, sub, reader, nil)

	orch, err := New(Config{
		PoolManager:             chaintest.PoolManager,
		PositionManager:         chaintest.PositionManager,
		StartSqrtPriceX96:       new(big.Int).Set(pricemath.Q96),
		Amount0Max:              new(big.Int).Set(ether),
		Amount1Max:              new(big.Int).Mul(big.NewInt(2), ether),
		InitializeGasLimit:      1000000,
		ModifyLiquidityGasLimit: 3000000,
		SwapGasLimit:            1000000,
	}, key, reader, approvals, sub, nil)
	require.NoError(t, err)

	return &fixture{sim: sim, orch: orch, key: key, owner: signer.Address()}
}

func TestRunCreatesPoolEndToEnd(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	report, err := f.orch.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, []State{StateUnknown, StateNotFound, StateInitialize, StateEmptyLiquidity, StateReady}, report.Transitions)
	assert.Equal(t, StateReady, report.Final)
	assert.Equal(t, []string{"initialize", "approve", "approve", "approve", "approve", "modifyLiquidity"}, f.sim.SentMethods())
	assert.Len(t, report.Receipts, 6)
	require.True(t, report.PoolState.HasLiquidity())

	reader := poolstate.NewClient(f.sim, chaintest.StateReader, nil)
	state, err := reader.GetPoolState(ctx, f.key)
	require.NoError(t, err)
	assert.Equal(t, 0, state.Liquidity.Cmp(report.PoolState.Liquidity))

	names := make([]string, 0, len(report.Events))
	for _, event := range report.Events {
		names = append(names, event.EventName)
	}
	assert.Equal(t, []string{"Initialize", "ModifyLiquidity"}, names)
	mod, ok := report.Events[1].Decoded.(model.ModifyLiquidityEventData)
	require.True(t, ok)
	assert.Equal(t, int32(-887220), mod.TickLower)
	assert.Equal(t, int32(887220), mod.TickUpper)
}

func TestRunReadyPoolSendsNothing(t *testing.T) {
	f := newFixture(t)
	f.sim.SetPool(f.key, chaintest.Pool{SqrtPriceX96: pricemath.Q96, Liquidity: big.NewInt(1000)})

	report, err := f.orch.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []State{StateUnknown, StateReady}, report.Transitions)
	assert.Empty(t, f.sim.Sent())
}

func TestRunInsufficientBalanceSubmitsNothing(t *testing.T) {
	f := newFixture(t)
	f.sim.SetPool(f.key, chaintest.Pool{SqrtPriceX96: pricemath.Q96})
	f.sim.SetBalance(token0, f.owner, big.NewInt(5))

	report, err := f.orch.Run(context.Background())
	var insufficient *InsufficientBalanceError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, StateEmptyLiquidity, report.Final)
	assert.Empty(t, f.sim.Sent())

	require.Len(t, insufficient.Holdings, 2)
	assert.True(t, insufficient.Holdings[0].Short())
	assert.Equal(t, int64(5), insufficient.Holdings[0].Held.Int64())
	assert.Equal(t, 0, insufficient.Holdings[0].Required.Cmp(ether))
	assert.False(t, insufficient.Holdings[1].Short())
	assert.Contains(t, err.Error(), token0.Hex())
}

func TestRunTreatsAlreadyInitializedAsRace(t *testing.T) {
	f := newFixture(t)
	f.sim.SetPool(f.key, chaintest.Pool{SqrtPriceX96: pricemath.Q96})
	stateReads := 0
	f.sim.Intercept = func(method string, _ common.Address, _ bool) error {
		if method == "getPoolState" {
			stateReads++
			if stateReads == 1 {
				return &chaintest.RevertError{Msg: "execution reverted"}
			}
		}
		return nil
	}

	report, err := f.orch.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []State{StateUnknown, StateNotFound, StateInitialize, StateEmptyLiquidity, StateReady}, report.Transitions)
	assert.Equal(t, []string{"approve", "approve", "approve", "approve", "modifyLiquidity"}, f.sim.SentMethods())
}

func TestRunAmbiguousRevertOnModifyLiquidity(t *testing.T) {
	f := newFixture(t)
	f.sim.SetPool(f.key, chaintest.Pool{SqrtPriceX96: pricemath.Q96})
	f.sim.Intercept = func(method string, _ common.Address, _ bool) error {
		if method == "modifyLiquidity" {
			return &chaintest.RevertError{Msg: "missing revert data"}
		}
		return nil
	}

	_, err := f.orch.Run(context.Background())
	var ambiguous *AmbiguousRevertError
	require.ErrorAs(t, err, &ambiguous)
	assert.Equal(t, StageModifyLiquidity, ambiguous.Stage)
	assert.Len(t, ambiguous.Hypotheses, 4)
	require.NotNil(t, ambiguous.Params)
	assert.Equal(t, chaintest.PositionManager, ambiguous.Params.To)
	assert.Equal(t, uint64(4), ambiguous.Params.Nonce)
	assert.True(t, strings.Contains(ambiguous.Diagnostic(), "possible causes"))
	assert.Len(t, f.sim.Sent(), 4)
}

func TestSwapAfterCreation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.orch.Run(ctx)
	require.NoError(t, err)

	before := f.sim.BalanceOf(token0, f.owner)
	amount := big.NewInt(1_000_000)
	result, err := f.orch.Swap(ctx, model.SwapRequest{TokenIn: token0, Amount: amount, ExactInput: true})
	require.NoError(t, err)
	assert.True(t, result.ZeroForOne)
	assert.Equal(t, int64(-1_000_000), result.AmountSpecified.Int64())
	assert.Equal(t, 0, result.SqrtPriceLimitX96.Cmp(new(big.Int).Add(pricemath.MinSqrtPrice(), big.NewInt(1))))
	assert.Equal(t, uint64(1), result.Receipt.Status)

	require.Len(t, result.Events, 1)
	swap, ok := result.Events[0].Decoded.(model.SwapEventData)
	require.True(t, ok)
	assert.Equal(t, "-1000000", swap.Amount0)

	after := f.sim.BalanceOf(token0, f.owner)
	assert.Equal(t, 0, new(big.Int).Sub(before, after).Cmp(amount))
}

func TestSwapWithoutLiquidity(t *testing.T) {
	f := newFixture(t)
	f.sim.SetPool(f.key, chaintest.Pool{SqrtPriceX96: pricemath.Q96})

	_, err := f.orch.Swap(context.Background(), model.SwapRequest{TokenIn: token1, Amount: big.NewInt(1), ExactInput: true})
	require.ErrorIs(t, err, ErrNoLiquidity)
	assert.Empty(t, f.sim.Sent())
}

func TestSwapRejectsForeignToken(t *testing.T) {
	f := newFixture(t)
	_, err := f.orch.Swap(context.Background(), model.SwapRequest{TokenIn: common.HexToAddress("0x99"), Amount: big.NewInt(1)})
	require.Error(t, err)
}

func TestSwapParams(t *testing.T) {
	key := model.PoolKey{Currency0: token0, Currency1: token1, Fee: 3000, TickSpacing: 60}

	zeroForOne, amount, limit := SwapParams(key, model.SwapRequest{TokenIn: token1, Amount: big.NewInt(7), ExactInput: true})
	assert.False(t, zeroForOne)
	assert.Equal(t, int64(-7), amount.Int64())
	assert.Equal(t, 0, limit.Cmp(new(big.Int).Sub(pricemath.MaxSqrtPrice(), big.NewInt(1))))

	zeroForOne, amount, _ = SwapParams(key, model.SwapRequest{TokenIn: token0, Amount: big.NewInt(7)})
	assert.True(t, zeroForOne)
	assert.Equal(t, int64(7), amount.Int64())
}

func TestClassify(t *testing.T) {
	network := Classify(StageSwap, errors.New("dial tcp 127.0.0.1:8545: connection refused"))
	var netErr *NetworkError
	require.ErrorAs(t, network, &netErr)
	assert.Equal(t, StageSwap, netErr.Stage)

	already := Classify(StageInitialize, dex.NewRevertError("execution reverted", poolAlreadyInitializedData(t)))
	assert.ErrorIs(t, already, ErrAlreadyInitialized)

	heuristic := Classify(StageInitialize, errors.New("execution reverted: pool already initialized"))
	assert.ErrorIs(t, heuristic, ErrAlreadyInitialized)

	notFound := Classify(StageSwap, poolstate.ErrPoolNotFound)
	var ambiguous *AmbiguousRevertError
	require.ErrorAs(t, notFound, &ambiguous)

	assert.ErrorIs(t, Classify(StageSwap, context.Canceled), context.Canceled)
	assert.NoError(t, Classify(StageSwap, nil))
}

func TestConfigValidate(t *testing.T) {
	err := Config{}.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pool manager address is required")
	assert.Contains(t, err.Error(), "amount1 max must be positive")
}

func poolAlreadyInitializedData(t *testing.T) []byte {
	t.Helper()
	parsed, err := dex.PoolManagerABI()
	require.NoError(t, err)
	id := parsed.Errors[dex.ErrNamePoolAlreadyInitialized].ID
	return id[:4]
}

func TestSwapAgainstMissingPoolIsNotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.orch.Swap(context.Background(), model.SwapRequest{TokenIn: token0, Amount: big.NewInt(1), ExactInput: true})
	require.ErrorIs(t, err, poolstate.ErrPoolNotFound)
	var ambiguous *AmbiguousRevertError
	assert.False(t, errors.As(err, &ambiguous))
	assert.Empty(t, f.sim.Sent())
}

func TestRunRequeryAfterInitializeIsAmbiguous(t *testing.T) {
	f := newFixture(t)
	stateReads := 0
	f.sim.Intercept = func(method string, _ common.Address, _ bool) error {
		if method == "getPoolState" {
			stateReads++
			if stateReads == 2 {
				return &chaintest.RevertError{Msg: "execution reverted"}
			}
		}
		return nil
	}

	report, err := f.orch.Run(context.Background())
	var ambiguous *AmbiguousRevertError
	require.ErrorAs(t, err, &ambiguous)
	assert.Equal(t, StageQueryState, ambiguous.Stage)
	assert.Equal(t, []State{StateUnknown, StateNotFound, StateInitialize}, report.Transitions)
	assert.Equal(t, []string{"initialize"}, f.sim.SentMethods())
}

func TestRunZeroPricePoolIsNotSized(t *testing.T) {
	f := newFixture(t)
	f.sim.SetPool(f.key, chaintest.Pool{SqrtPriceX96: big.NewInt(0), Liquidity: big.NewInt(0)})

	report, err := f.orch.Run(context.Background())
	var ambiguous *AmbiguousRevertError
	require.ErrorAs(t, err, &ambiguous)
	assert.Equal(t, []State{StateUnknown, StateNotFound, StateInitialize}, report.Transitions)
	assert.Empty(t, f.sim.Sent())
}

func TestAmbiguousDiagnosticShowsUnknownSelector(t *testing.T) {
	err := Classify(StageSwap, dex.NewRevertError("execution reverted", []byte{0xde, 0xad, 0xbe, 0xef}))
	var ambiguous *AmbiguousRevertError
	require.ErrorAs(t, err, &ambiguous)
	assert.Equal(t, "0xdeadbeef", ambiguous.Selector)
	assert.Contains(t, ambiguous.Diagnostic(), "selector: 0xdeadbeef")
}
