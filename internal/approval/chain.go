package approval

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"poolPilot/internal/dex"
	"poolPilot/internal/model"
	"poolPilot/internal/txn"
)

const (
	StageApproveToken0  = "approve_token0"
	StageApproveToken1  = "approve_token1"
	StageDelegateToken0 = "permit_token0"
	StageDelegateToken1 = "permit_token1"
)

var (
	maxUint160 = new(uint256.Int).Sub(new(uint256.Int).Lsh(uint256.NewInt(1), 160), uint256.NewInt(1))
	maxUint48  = uint64(1)<<48 - 1
)

// MaxUint160 returns the largest delegated allowance amount.
func MaxUint160() *big.Int { return maxUint160.ToBig() }

// MaxUint48 is the largest delegated allowance expiration.
func MaxUint48() uint64 { return maxUint48 }

// Submitter sends transactions.
type Submitter interface {
	Submit(ctx context.Context, call txn.Call) (*txn.Pending, error)
	SubmitAndWait(ctx context.Context, call txn.Call) (*types.Receipt, error)
	From() common.Address
}

// Reader reads allowance state for diagnostics.
type Reader interface {
	Allowances(ctx context.Context, token, owner, delegation, spender common.Address) (model.ApprovalRecord, error)
}

// Config holds the contracts and gas limits of the approval chain.
type Config struct {
	Delegation       common.Address
	Spender          common.Address
	Expiration       uint64
	ApproveGasLimit  uint64
	DelegateGasLimit uint64
}

// Chain grants the two allowance layers a position manager needs: ERC-20
// approval of the delegation contract, then a delegated allowance for the
// spender. Approvals are sent every time, whatever the current allowance.
type Chain struct {
	cfg       Config
	submitter Submitter
	reader    Reader
	logger    *zap.Logger
}

func NewChain(cfg Config, submitter Submitter, reader Reader, logger *zap.Logger) *Chain {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Expiration == 0 || cfg.Expiration > maxUint48 {
		cfg.Expiration = maxUint48
	}
	return &Chain{cfg: cfg, submitter: submitter, reader: reader, logger: logger}
}

// EnsureERC20Allowance approves spender for amount on token and waits.
func (c *Chain) EnsureERC20Allowance(ctx context.Context, token, spender common.Address, amount *big.Int) (*types.Receipt, error) {
	call, err := c.erc20Call(StageApproveToken0, token, spender, amount)
	if err != nil {
		return nil, err
	}
	return c.submitter.SubmitAndWait(ctx, call)
}

// EnsureDelegatedAllowance grants spender up to maxAmount of token through the
// delegation contract and waits. Amount and expiration are clamped to
// uint160 and uint48.
func (c *Chain) EnsureDelegatedAllowance(ctx context.Context, token, spender common.Address, maxAmount *big.Int, expiration uint64) (*types.Receipt, error) {
	call, err := c.delegateCall(StageDelegateToken0, token, spender, maxAmount, expiration)
	if err != nil {
		return nil, err
	}
	return c.submitter.SubmitAndWait(ctx, call)
}

// Provision runs the full chain for both pool currencies. The two ERC-20
// approvals go out back to back and are awaited together; the delegated
// approvals follow one at a time. Receipts come back in submission order.
func (c *Chain) Provision(ctx context.Context, token0, token1 common.Address, amount0, amount1 *big.Int) ([]*types.Receipt, error) {
	approve0, err := c.erc20Call(StageApproveToken0, token0, c.cfg.Delegation, amount0)
	if err != nil {
		return nil, err
	}
	approve1, err := c.erc20Call(StageApproveToken1, token1, c.cfg.Delegation, amount1)
	if err != nil {
		return nil, err
	}

	pending0, err := c.submitter.Submit(ctx, approve0)
	if err != nil {
		return nil, err
	}
	pending1, err := c.submitter.Submit(ctx, approve1)
	if err != nil {
		if _, waitErr := pending0.Wait(ctx); waitErr != nil {
			c.logger.Warn("token0 approval failed while aborting", zap.Error(waitErr))
		}
		return nil, err
	}

	receipts := make([]*types.Receipt, 0, 4)
	for _, pending := range []*txn.Pending{pending0, pending1} {
		receipt, err := pending.Wait(ctx)
		if err != nil {
			return receipts, err
		}
		receipts = append(receipts, receipt)
	}

	steps := []struct {
		stage  string
		token  common.Address
		amount *big.Int
	}{
		{StageDelegateToken0, token0, amount0},
		{StageDelegateToken1, token1, amount1},
	}
	for _, step := range steps {
		call, err := c.delegateCall(step.stage, step.token, c.cfg.Spender, step.amount, c.cfg.Expiration)
		if err != nil {
			return receipts, err
		}
		receipt, err := c.submitter.SubmitAndWait(ctx, call)
		if err != nil {
			return receipts, err
		}
		receipts = append(receipts, receipt)
	}

	c.logState(ctx, token0)
	c.logState(ctx, token1)
	return receipts, nil
}

func (c *Chain) erc20Call(stage string, token, spender common.Address, amount *big.Int) (txn.Call, error) {
	if amount == nil || amount.Sign() < 0 {
		return txn.Call{}, fmt.Errorf("%s: invalid amount", stage)
	}
	data, err := dex.PackApprove(spender, amount)
	if err != nil {
		return txn.Call{}, fmt.Errorf("pack %s: %w", stage, err)
	}
	return txn.Call{Stage: stage, To: token, Data: data, GasLimit: c.cfg.ApproveGasLimit}, nil
}

func (c *Chain) delegateCall(stage string, token, spender common.Address, amount *big.Int, expiration uint64) (txn.Call, error) {
	if amount == nil || amount.Sign() < 0 {
		return txn.Call{}, fmt.Errorf("%s: invalid amount", stage)
	}
	capped, overflow := uint256.FromBig(amount)
	if overflow || capped.Gt(maxUint160) {
		capped = maxUint160
	}
	if expiration == 0 || expiration > maxUint48 {
		expiration = maxUint48
	}
	data, err := dex.PackDelegatedApprove(token, spender, capped.ToBig(), expiration)
	if err != nil {
		return txn.Call{}, fmt.Errorf("pack %s: %w", stage, err)
	}
	return txn.Call{Stage: stage, To: c.cfg.Delegation, Data: data, GasLimit: c.cfg.DelegateGasLimit}, nil
}

func (c *Chain) logState(ctx context.Context, token common.Address) {
	if c.reader == nil {
		return
	}
	record, err := c.reader.Allowances(ctx, token, c.submitter.From(), c.cfg.Delegation, c.cfg.Spender)
	if err != nil {
		c.logger.Debug("read allowances failed", zap.String("token", token.Hex()), zap.Error(err))
		return
	}
	c.logger.Info("allowances",
		zap.String("token", token.Hex()),
		zap.String("erc20_allowance", record.ERC20Allowance.String()),
		zap.String("delegated_amount", record.DelegatedAmount.String()),
		zap.Uint64("delegated_expiration", record.DelegatedExpiration),
	)
}
