package chaintest

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"poolPilot/internal/dex"
	"poolPilot/internal/model"
	"poolPilot/internal/poolkey"
)

type swapArgs struct {
	ZeroForOne        bool
	AmountSpecified   *big.Int
	SqrtPriceLimitX96 *big.Int
}

type modifyArgs struct {
	TickLower      *big.Int
	TickUpper      *big.Int
	LiquidityDelta *big.Int
	Amount0Max     *big.Int
	Amount1Max     *big.Int
	CollectAllFees bool
	Recipient      common.Address
	HookData       []byte
	UnlockTime     *big.Int
}

type modifyResult struct {
	Liquidity *big.Int
	Amount0   *big.Int
	Amount1   *big.Int
}

type balanceDelta struct {
	Amount0 *big.Int
	Amount1 *big.Int
}

// execute runs one call. Callers hold c.mu. State changes only when commit.
func (c *Chain) execute(from, to common.Address, data []byte, commit bool) ([]byte, error) {
	name, method := methodName(to, data)
	if method == nil {
		return nil, &RevertError{Msg: "execution reverted"}
	}
	c.calls = append(c.calls, name)
	if c.Intercept != nil {
		if err := c.Intercept(name, from, commit); err != nil {
			return nil, err
		}
	}
	args, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", name, err)
	}

	switch to {
	case StateReader:
		return c.stateReader(method, args)
	case PoolManager:
		return c.poolManager(from, method, args, commit)
	case PositionManager:
		return c.positionManager(from, method, args, commit)
	case Permit2:
		return c.permit2(from, method, args, commit)
	default:
		return c.erc20(from, to, method, args, commit)
	}
}

func (c *Chain) lookupPool(arg interface{}) (model.PoolKey, common.Hash, *Pool, error) {
	abiKey := *abi.ConvertType(arg, new(poolkey.ABIKey)).(*poolkey.ABIKey)
	key := model.PoolKey{
		Currency0:   abiKey.Currency0,
		Currency1:   abiKey.Currency1,
		Fee:         uint32(abiKey.Fee.Uint64()),
		TickSpacing: int32(abiKey.TickSpacing.Int64()),
		Hooks:       abiKey.Hooks,
	}
	id, err := poolkey.PoolID(key)
	if err != nil {
		return key, id, nil, err
	}
	return key, id, c.pools[id], nil
}

func (c *Chain) stateReader(method *abi.Method, args []interface{}) ([]byte, error) {
	_, _, pool, err := c.lookupPool(args[0])
	if err != nil {
		return nil, err
	}
	if pool == nil {
		return nil, &RevertError{Msg: "execution reverted"}
	}
	switch method.Name {
	case "getPoolState":
		return method.Outputs.Pack(pool.SqrtPriceX96, big.NewInt(int64(pool.Tick)), big.NewInt(0), big.NewInt(int64(pool.LPFee)))
	default:
		return method.Outputs.Pack(pool.Liquidity)
	}
}

func (c *Chain) poolManager(from common.Address, method *abi.Method, args []interface{}, commit bool) ([]byte, error) {
	key, id, pool, err := c.lookupPool(args[0])
	if err != nil {
		return nil, err
	}

	switch method.Name {
	case "initialize":
		if pool != nil {
			return nil, customRevert(dex.ErrNamePoolAlreadyInitialized)
		}
		sqrt := args[1].(*big.Int)
		if commit {
			c.pools[id] = &Pool{SqrtPriceX96: new(big.Int).Set(sqrt), LPFee: key.Fee, Liquidity: new(big.Int)}
			c.emit(c.event("Initialize",
				[]common.Hash{id, addressTopic(key.Currency0), addressTopic(key.Currency1)},
				big.NewInt(int64(key.Fee)), big.NewInt(int64(key.TickSpacing)), key.Hooks, sqrt, big.NewInt(0)))
		}
		return method.Outputs.Pack(big.NewInt(0))

	case "swap":
		if pool == nil {
			return nil, customRevert(dex.ErrNamePoolNotInitialized)
		}
		params := *abi.ConvertType(args[1], new(swapArgs)).(*swapArgs)
		if params.AmountSpecified.Sign() == 0 {
			return nil, customRevert("SwapAmountCannotBeZero")
		}
		if pool.Liquidity.Sign() == 0 {
			return nil, &RevertError{Msg: "execution reverted"}
		}
		amountIn := new(big.Int).Abs(params.AmountSpecified)
		amountOut := new(big.Int).Div(new(big.Int).Mul(amountIn, big.NewInt(997)), big.NewInt(1000))
		tokenIn, tokenOut := key.Currency0, key.Currency1
		if !params.ZeroForOne {
			tokenIn, tokenOut = tokenOut, tokenIn
		}
		in := c.tokens[tokenIn]
		if in == nil || bigOrZero(in.Balances[from]).Cmp(amountIn) < 0 {
			return nil, reasonRevert("insufficient balance")
		}
		delta := balanceDelta{Amount0: new(big.Int).Neg(amountIn), Amount1: amountOut}
		if !params.ZeroForOne {
			delta = balanceDelta{Amount0: amountOut, Amount1: new(big.Int).Neg(amountIn)}
		}
		if commit {
			in.Balances[from] = new(big.Int).Sub(in.Balances[from], amountIn)
			if out := c.tokens[tokenOut]; out != nil {
				out.Balances[from] = new(big.Int).Add(bigOrZero(out.Balances[from]), amountOut)
			}
			c.emit(c.event("Swap", []common.Hash{id, addressTopic(from)},
				delta.Amount0, delta.Amount1, pool.SqrtPriceX96, pool.Liquidity,
				big.NewInt(int64(pool.Tick)), big.NewInt(int64(pool.LPFee))))
		}
		return method.Outputs.Pack(delta)
	}
	return nil, &RevertError{Msg: "execution reverted"}
}

func (c *Chain) positionManager(from common.Address, method *abi.Method, args []interface{}, commit bool) ([]byte, error) {
	key, id, pool, err := c.lookupPool(args[0])
	if err != nil {
		return nil, err
	}
	if pool == nil {
		return nil, customRevert(dex.ErrNamePoolNotInitialized)
	}
	params := *abi.ConvertType(args[1], new(modifyArgs)).(*modifyArgs)

	pulls := []struct {
		token  common.Address
		amount *big.Int
	}{{key.Currency0, params.Amount0Max}, {key.Currency1, params.Amount1Max}}
	for _, pull := range pulls {
		token := c.tokens[pull.token]
		if token == nil {
			return nil, &RevertError{Msg: "execution reverted"}
		}
		if allowance(token, from, Permit2).Cmp(pull.amount) < 0 {
			return nil, reasonRevert("TRANSFER_FROM_FAILED")
		}
		p := c.permits[[3]common.Address{from, pull.token, PositionManager}]
		if p == nil || p.amount.Cmp(pull.amount) < 0 {
			return nil, customRevert("InsufficientAllowance", bigOrZero(nil))
		}
		if bigOrZero(token.Balances[from]).Cmp(pull.amount) < 0 {
			return nil, reasonRevert("insufficient balance")
		}
	}

	if commit {
		for _, pull := range pulls {
			token := c.tokens[pull.token]
			token.Balances[from] = new(big.Int).Sub(token.Balances[from], pull.amount)
		}
		pool.Liquidity = new(big.Int).Add(pool.Liquidity, params.LiquidityDelta)
		var salt [32]byte
		c.emit(c.event("ModifyLiquidity", []common.Hash{id, addressTopic(PositionManager)},
			params.TickLower, params.TickUpper, params.LiquidityDelta, salt))
	}
	return method.Outputs.Pack(modifyResult{
		Liquidity: new(big.Int).Abs(params.LiquidityDelta),
		Amount0:   params.Amount0Max,
		Amount1:   params.Amount1Max,
	})
}

func (c *Chain) permit2(from common.Address, method *abi.Method, args []interface{}, commit bool) ([]byte, error) {
	switch method.Name {
	case "approve":
		token, spender := args[0].(common.Address), args[1].(common.Address)
		amount, expiration := args[2].(*big.Int), args[3].(*big.Int)
		if commit {
			k := [3]common.Address{from, token, spender}
			prev := c.permits[k]
			nonce := uint64(0)
			if prev != nil {
				nonce = prev.nonce
			}
			c.permits[k] = &permit{amount: new(big.Int).Set(amount), expiration: expiration.Uint64(), nonce: nonce}
		}
		return method.Outputs.Pack()
	case "allowance":
		user, token, spender := args[0].(common.Address), args[1].(common.Address), args[2].(common.Address)
		p := c.permits[[3]common.Address{user, token, spender}]
		if p == nil {
			return method.Outputs.Pack(big.NewInt(0), big.NewInt(0), big.NewInt(0))
		}
		return method.Outputs.Pack(p.amount, new(big.Int).SetUint64(p.expiration), new(big.Int).SetUint64(p.nonce))
	}
	return nil, &RevertError{Msg: "execution reverted"}
}

func (c *Chain) erc20(from, to common.Address, method *abi.Method, args []interface{}, commit bool) ([]byte, error) {
	token := c.tokens[to]
	if token == nil {
		return nil, &RevertError{Msg: "execution reverted"}
	}
	switch method.Name {
	case "decimals":
		return method.Outputs.Pack(token.Decimals)
	case "symbol", "name":
		return method.Outputs.Pack(token.Symbol)
	case "balanceOf":
		return method.Outputs.Pack(bigOrZero(token.Balances[args[0].(common.Address)]))
	case "allowance":
		return method.Outputs.Pack(allowance(token, args[0].(common.Address), args[1].(common.Address)))
	case "approve":
		if commit {
			spender := args[0].(common.Address)
			if token.Allowances[from] == nil {
				token.Allowances[from] = make(map[common.Address]*big.Int)
			}
			token.Allowances[from][spender] = new(big.Int).Set(args[1].(*big.Int))
		}
		return method.Outputs.Pack(true)
	}
	return nil, &RevertError{Msg: "execution reverted"}
}

func allowance(token *Token, owner, spender common.Address) *big.Int {
	if token.Allowances[owner] == nil {
		return new(big.Int)
	}
	return bigOrZero(token.Allowances[owner][spender])
}

func (c *Chain) event(name string, topics []common.Hash, args ...interface{}) *types.Log {
	parsed, err := dex.PoolManagerABI()
	if err != nil {
		panic(err)
	}
	event := parsed.Events[name]
	data, err := event.Inputs.NonIndexed().Pack(args...)
	if err != nil {
		panic(fmt.Sprintf("pack %s: %v", name, err))
	}
	return &types.Log{Address: PoolManager, Topics: append([]common.Hash{event.ID}, topics...), Data: data}
}

func (c *Chain) emit(log *types.Log) {
	c.pendingLogs = append(c.pendingLogs, log)
}

func addressTopic(addr common.Address) common.Hash {
	return common.BytesToHash(addr.Bytes())
}

func customRevert(name string, args ...interface{}) error {
	var id []byte
	var inputs abi.Arguments
	for _, load := range []func() (abi.ABI, error){dex.PoolManagerABI, dex.Permit2ABI} {
		parsed, err := load()
		if err != nil {
			continue
		}
		if e, ok := parsed.Errors[name]; ok {
			id = e.ID[:4]
			inputs = e.Inputs
			break
		}
	}
	if id == nil {
		panic("unknown custom error " + name)
	}
	payload, err := inputs.Pack(args...)
	if err != nil {
		panic(err)
	}
	return &RevertError{Msg: "execution reverted", Data: append(append([]byte{}, id...), payload...)}
}

func reasonRevert(reason string) error {
	str, _ := abi.NewType("string", "", nil)
	payload, err := abi.Arguments{{Type: str}}.Pack(reason)
	if err != nil {
		panic(err)
	}
	data := append([]byte{0x08, 0xc3, 0x79, 0xa0}, payload...)
	return &RevertError{Msg: "execution reverted: " + reason, Data: data}
}
