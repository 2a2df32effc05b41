package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"poolPilot/internal/dex"
	"poolPilot/internal/model"
	"poolPilot/internal/poolkey"
	"poolPilot/internal/poolstate"
	"poolPilot/internal/pricemath"
	"poolPilot/internal/txn"
)

// State is an observable pool status in the creation workflow.
type State string

const (
	StateUnknown        State = "unknown"
	StateNotFound       State = "not_found"
	StateInitialize     State = "initialize"
	StateEmptyLiquidity State = "empty_liquidity"
	StateReady          State = "ready"
	StateSwap           State = "swap"
)

// Stage names used in errors, logs and the journal.
const (
	StageQueryState      = "query_state"
	StageInitialize      = "initialize"
	StageBalanceCheck    = "balance_check"
	StageApprovals       = "approvals"
	StageModifyLiquidity = "modify_liquidity"
	StageSwap            = "swap"
)

// StateReader reads pool and token state.
type StateReader interface {
	GetPoolState(ctx context.Context, key model.PoolKey) (model.PoolState, error)
	GetLiquidity(ctx context.Context, key model.PoolKey) (*big.Int, error)
	Balance(ctx context.Context, token, owner common.Address) (*big.Int, error)
}

// Provisioner grants the allowances modifyLiquidity needs.
type Provisioner interface {
	Provision(ctx context.Context, token0, token1 common.Address, amount0, amount1 *big.Int) ([]*types.Receipt, error)
}

// Submitter sends a transaction and waits for it.
type Submitter interface {
	SubmitAndWait(ctx context.Context, call txn.Call) (*types.Receipt, error)
	From() common.Address
}

// Config carries contract addresses and run parameters.
type Config struct {
	PoolManager             common.Address
	PositionManager         common.Address
	StartSqrtPriceX96       *big.Int
	Amount0Max              *big.Int
	Amount1Max              *big.Int
	LiquidityDelta          *big.Int
	Recipient               common.Address
	InitializeGasLimit      uint64
	ModifyLiquidityGasLimit uint64
	SwapGasLimit            uint64
}

// Validate checks the parameters the creation workflow needs.
func (c Config) Validate() error {
	var errs []error
	if c.PoolManager == (common.Address{}) {
		errs = append(errs, fmt.Errorf("pool manager address is required"))
	}
	if c.PositionManager == (common.Address{}) {
		errs = append(errs, fmt.Errorf("position manager address is required"))
	}
	if err := pricemath.ValidateSqrtPrice(c.StartSqrtPriceX96); err != nil {
		errs = append(errs, fmt.Errorf("start sqrt price: %w", err))
	}
	if c.Amount0Max == nil || c.Amount0Max.Sign() <= 0 {
		errs = append(errs, fmt.Errorf("amount0 max must be positive"))
	}
	if c.Amount1Max == nil || c.Amount1Max.Sign() <= 0 {
		errs = append(errs, fmt.Errorf("amount1 max must be positive"))
	}
	if c.LiquidityDelta != nil && c.LiquidityDelta.Sign() <= 0 {
		errs = append(errs, fmt.Errorf("liquidity delta must be positive"))
	}
	return errors.Join(errs...)
}

// Report summarizes a creation run.
type Report struct {
	PoolID      string
	Key         model.PoolKey
	Transitions []State
	Final       State
	PoolState   model.PoolState
	Receipts    []*types.Receipt
	Events      []model.TypedEvent
}

func (r *Report) enter(s State) {
	r.Transitions = append(r.Transitions, s)
	r.Final = s
}

// Orchestrator drives one pool through its lifecycle. Every step waits for
// confirmation before the next decision and state is re-read, never cached.
type Orchestrator struct {
	cfg       Config
	key       model.PoolKey
	poolID    common.Hash
	reader    StateReader
	approvals Provisioner
	submitter Submitter
	decoder   *dex.PoolManagerDecoder
	logger    *zap.Logger
}

func New(cfg Config, key model.PoolKey, reader StateReader, approvals Provisioner, submitter Submitter, logger *zap.Logger) (*Orchestrator, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	poolID, err := poolkey.PoolID(key)
	if err != nil {
		return nil, err
	}
	decoder, err := dex.NewPoolManagerDecoder(cfg.PoolManager)
	if err != nil {
		return nil, err
	}
	return &Orchestrator{
		cfg:       cfg,
		key:       key,
		poolID:    poolID,
		reader:    reader,
		approvals: approvals,
		submitter: submitter,
		decoder:   decoder,
		logger:    logger.With(zap.String("pool_id", poolID.Hex())),
	}, nil
}

// PoolID returns the id of the managed pool.
func (o *Orchestrator) PoolID() common.Hash {
	return o.poolID
}

// Run walks Unknown → NotFound → Initialize → EmptyLiquidity → Ready, skipping
// whatever the chain shows is already done. Any stage failure aborts the run.
func (o *Orchestrator) Run(ctx context.Context) (*Report, error) {
	if err := o.cfg.Validate(); err != nil {
		return nil, err
	}
	report := &Report{PoolID: o.poolID.Hex(), Key: o.key}
	report.enter(StateUnknown)
	o.logger.Info("pool lifecycle start", zap.String("pool", o.key.String()))

	state, err := o.reader.GetPoolState(ctx, o.key)
	switch {
	case errors.Is(err, poolstate.ErrPoolNotFound):
		report.enter(StateNotFound)
		o.logger.Info("pool not found")
		if err := o.initialize(ctx, report); err != nil {
			return report, err
		}
		state, err = o.reader.GetPoolState(ctx, o.key)
		if err != nil {
			return report, Classify(StageQueryState, err)
		}
	case err != nil:
		return report, Classify(StageQueryState, err)
	}
	o.logState(state)

	if !state.HasLiquidity() {
		report.enter(StateEmptyLiquidity)
		liquidity, err := o.addLiquidity(ctx, state, report)
		if err != nil {
			return report, err
		}
		state.Liquidity = liquidity
	}

	report.PoolState = state
	report.enter(StateReady)
	o.logger.Info("pool ready", zap.String("liquidity", state.Liquidity.String()))
	return report, nil
}

func (o *Orchestrator) initialize(ctx context.Context, report *Report) error {
	report.enter(StateInitialize)
	data, err := dex.PackInitialize(o.key, o.cfg.StartSqrtPriceX96)
	if err != nil {
		return fmt.Errorf("pack initialize: %w", err)
	}
	receipt, err := o.submitter.SubmitAndWait(ctx, txn.Call{
		Stage:    StageInitialize,
		To:       o.cfg.PoolManager,
		Data:     data,
		GasLimit: o.cfg.InitializeGasLimit,
	})
	if err != nil {
		classified := Classify(StageInitialize, err)
		if errors.Is(classified, ErrAlreadyInitialized) {
			o.logger.Warn("pool initialized by another sender, continuing", zap.Error(err))
			return nil
		}
		return classified
	}
	o.collect(report, receipt)
	o.logger.Info("pool initialized",
		zap.String("tx_hash", receipt.TxHash.Hex()),
		zap.String("sqrt_price_x96", o.cfg.StartSqrtPriceX96.String()),
	)
	return nil
}

func (o *Orchestrator) addLiquidity(ctx context.Context, state model.PoolState, report *Report) (*big.Int, error) {
	if err := o.checkBalances(ctx); err != nil {
		return nil, err
	}

	receipts, err := o.approvals.Provision(ctx, o.key.Currency0, o.key.Currency1, o.cfg.Amount0Max, o.cfg.Amount1Max)
	report.Receipts = append(report.Receipts, receipts...)
	if err != nil {
		return nil, Classify(StageApprovals, err)
	}

	position, err := o.position(state)
	if err != nil {
		return nil, err
	}
	data, err := dex.PackModifyLiquidity(o.key, position)
	if err != nil {
		return nil, fmt.Errorf("pack modifyLiquidity: %w", err)
	}
	o.logger.Info("adding liquidity",
		zap.Int32("tick_lower", position.TickLower),
		zap.Int32("tick_upper", position.TickUpper),
		zap.String("liquidity_delta", position.LiquidityDelta.String()),
		zap.String("amount0_max", position.Amount0Max.String()),
		zap.String("amount1_max", position.Amount1Max.String()),
	)
	receipt, err := o.submitter.SubmitAndWait(ctx, txn.Call{
		Stage:    StageModifyLiquidity,
		To:       o.cfg.PositionManager,
		Data:     data,
		GasLimit: o.cfg.ModifyLiquidityGasLimit,
	})
	if err != nil {
		return nil, Classify(StageModifyLiquidity, err)
	}
	o.collect(report, receipt)

	liquidity, err := o.reader.GetLiquidity(ctx, o.key)
	if err != nil {
		return nil, Classify(StageQueryState, err)
	}
	if liquidity.Sign() == 0 {
		return nil, fmt.Errorf("%s: %w after confirmed add", StageModifyLiquidity, ErrNoLiquidity)
	}
	return liquidity, nil
}

// checkBalances aborts before any transaction when either balance is below
// its configured maximum.
func (o *Orchestrator) checkBalances(ctx context.Context) error {
	owner := o.submitter.From()
	required := []struct {
		token  common.Address
		amount *big.Int
	}{{o.key.Currency0, o.cfg.Amount0Max}, {o.key.Currency1, o.cfg.Amount1Max}}

	insufficient := &InsufficientBalanceError{Owner: owner}
	short := false
	for _, r := range required {
		held, err := o.reader.Balance(ctx, r.token, owner)
		if err != nil {
			return Classify(StageBalanceCheck, err)
		}
		h := Holding{Token: r.token, Required: new(big.Int).Set(r.amount), Held: held}
		insufficient.Holdings = append(insufficient.Holdings, h)
		if h.Short() {
			short = true
		}
		o.logger.Info("balance",
			zap.String("token", r.token.Hex()),
			zap.String("required", h.Required.String()),
			zap.String("held", held.String()),
		)
	}
	if short {
		return insufficient
	}
	return nil
}

func (o *Orchestrator) position(state model.PoolState) (model.LiquidityPosition, error) {
	lower, upper, err := pricemath.FullRangeTicks(o.key.TickSpacing)
	if err != nil {
		return model.LiquidityPosition{}, err
	}
	recipient := o.cfg.Recipient
	if recipient == (common.Address{}) {
		recipient = o.submitter.From()
	}

	delta := o.cfg.LiquidityDelta
	if delta == nil {
		price := state.SqrtPriceX96
		if price == nil || price.Sign() == 0 {
			return model.LiquidityPosition{}, fmt.Errorf("pool reports zero sqrt price, cannot size position")
		}
		sqrtA, err := pricemath.TickToSqrtPriceX96(lower)
		if err != nil {
			return model.LiquidityPosition{}, err
		}
		sqrtB, err := pricemath.TickToSqrtPriceX96(upper)
		if err != nil {
			return model.LiquidityPosition{}, err
		}
		delta, err = pricemath.LiquidityForAmounts(price, sqrtA, sqrtB, o.cfg.Amount0Max, o.cfg.Amount1Max)
		if err != nil {
			return model.LiquidityPosition{}, fmt.Errorf("size liquidity: %w", err)
		}
		if delta.Sign() == 0 {
			return model.LiquidityPosition{}, fmt.Errorf("size liquidity: amounts too small for a full range position")
		}
	}

	return model.LiquidityPosition{
		TickLower:      lower,
		TickUpper:      upper,
		LiquidityDelta: new(big.Int).Set(delta),
		Amount0Max:     new(big.Int).Set(o.cfg.Amount0Max),
		Amount1Max:     new(big.Int).Set(o.cfg.Amount1Max),
		Recipient:      recipient,
	}, nil
}

func (o *Orchestrator) collect(report *Report, receipt *types.Receipt) {
	report.Receipts = append(report.Receipts, receipt)
	events, err := dex.DecodeReceipt(o.decoder, receipt, o.poolID)
	if err != nil {
		o.logger.Warn("decode receipt logs failed", zap.String("tx_hash", receipt.TxHash.Hex()), zap.Error(err))
		return
	}
	report.Events = append(report.Events, events...)
}

func (o *Orchestrator) logState(state model.PoolState) {
	liquidity := "0"
	if state.Liquidity != nil {
		liquidity = state.Liquidity.String()
	}
	o.logger.Info("pool state",
		zap.String("sqrt_price_x96", state.SqrtPriceX96.String()),
		zap.Int32("tick", state.Tick),
		zap.Uint32("lp_fee", state.LPFee),
		zap.String("liquidity", liquidity),
	)
}
