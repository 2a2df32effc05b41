// Package chaintest provides an in-memory chain that speaks the ABI surface
// of the pool manager, position manager, state reader, Permit2 and ERC-20
// tokens. It is meant for tests.
package chaintest

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"

	"poolPilot/internal/dex"
	"poolPilot/internal/model"
	"poolPilot/internal/poolkey"
)

// Default contract addresses.
var (
	StateReader     = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	PoolManager     = common.HexToAddress("0x00000000000000000000000000000000000000a2")
	PositionManager = common.HexToAddress("0x00000000000000000000000000000000000000a3")
	Permit2         = common.HexToAddress("0x00000000000000000000000000000000000000a4")
)

// RevertError mimics the JSON-RPC error a node returns for a reverted call.
type RevertError struct {
	Msg  string
	Data []byte
}

func (e *RevertError) Error() string { return e.Msg }

// ErrorCode implements rpc.Error.
func (e *RevertError) ErrorCode() int { return 3 }

// ErrorData implements rpc.DataError. Nodes send the payload as hex.
func (e *RevertError) ErrorData() interface{} {
	if len(e.Data) == 0 {
		return nil
	}
	return hexutil.Encode(e.Data)
}

// Token is a simulated ERC-20.
type Token struct {
	Symbol     string
	Decimals   uint8
	Balances   map[common.Address]*big.Int
	Allowances map[common.Address]map[common.Address]*big.Int
}

type permit struct {
	amount     *big.Int
	expiration uint64
	nonce      uint64
}

// Pool is a simulated pool record.
type Pool struct {
	SqrtPriceX96 *big.Int
	Tick         int32
	LPFee        uint32
	Liquidity    *big.Int
}

// Chain is an in-memory backend. Zero value is not usable; call New.
type Chain struct {
	mu sync.Mutex

	chainID  *big.Int
	gasPrice *big.Int
	nonces   map[common.Address]uint64
	block    uint64

	tokens   map[common.Address]*Token
	permits  map[[3]common.Address]*permit
	pools    map[common.Hash]*Pool
	sent     []*types.Transaction
	receipts map[common.Hash]*types.Receipt
	calls    []string

	pendingLogs []*types.Log

	// Intercept runs before every call and transaction. A non-nil error is
	// returned as the call result. It runs under the chain lock and must not
	// call back into Chain.
	Intercept func(method string, from common.Address, commit bool) error
	// FailOnChain marks methods that pass eth_call but revert when mined.
	FailOnChain map[string]bool
}

// New creates a chain with chain id 84532 and a 1 gwei gas price.
func New() *Chain {
	return &Chain{
		chainID:     big.NewInt(84532),
		gasPrice:    big.NewInt(1_000_000_000),
		nonces:      make(map[common.Address]uint64),
		block:       100,
		tokens:      make(map[common.Address]*Token),
		permits:     make(map[[3]common.Address]*permit),
		pools:       make(map[common.Hash]*Pool),
		receipts:    make(map[common.Hash]*types.Receipt),
		FailOnChain: make(map[string]bool),
	}
}

// AddToken registers an ERC-20.
func (c *Chain) AddToken(addr common.Address, symbol string, decimals uint8) *Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &Token{
		Symbol:     symbol,
		Decimals:   decimals,
		Balances:   make(map[common.Address]*big.Int),
		Allowances: make(map[common.Address]map[common.Address]*big.Int),
	}
	c.tokens[addr] = t
	return t
}

// SetBalance sets an ERC-20 balance.
func (c *Chain) SetBalance(token, owner common.Address, amount *big.Int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens[token].Balances[owner] = new(big.Int).Set(amount)
}

// BalanceOf returns an ERC-20 balance.
func (c *Chain) BalanceOf(token, owner common.Address) *big.Int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return bigOrZero(c.tokens[token].Balances[owner])
}

// SetNonce sets the pending nonce of account.
func (c *Chain) SetNonce(account common.Address, nonce uint64) {
	c.mu.Lock()
	c.nonces[account] = nonce
	c.mu.Unlock()
}

// SetPool installs pool state for key.
func (c *Chain) SetPool(key model.PoolKey, pool Pool) {
	id, err := poolkey.PoolID(key)
	if err != nil {
		panic(err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if pool.Liquidity == nil {
		pool.Liquidity = new(big.Int)
	}
	c.pools[id] = &pool
}

// Pool returns a copy of the pool for key.
func (c *Chain) Pool(key model.PoolKey) (Pool, bool) {
	id, err := poolkey.PoolID(key)
	if err != nil {
		return Pool{}, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.pools[id]
	if !ok {
		return Pool{}, false
	}
	return *p, true
}

// Sent returns every broadcast transaction in order.
func (c *Chain) Sent() []*types.Transaction {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*types.Transaction(nil), c.sent...)
}

// SentMethods returns the method names of broadcast transactions in order.
func (c *Chain) SentMethods() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.sent))
	for _, tx := range c.sent {
		name, _ := methodName(*tx.To(), tx.Data())
		out = append(out, name)
	}
	return out
}

// ChainID implements the RPC backend.
func (c *Chain) ChainID(context.Context) (*big.Int, error) {
	return new(big.Int).Set(c.chainID), nil
}

// SuggestGasPrice implements the RPC backend.
func (c *Chain) SuggestGasPrice(context.Context) (*big.Int, error) {
	return new(big.Int).Set(c.gasPrice), nil
}

// PendingNonceAt implements the RPC backend.
func (c *Chain) PendingNonceAt(_ context.Context, account common.Address) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nonces[account], nil
}

// CodeAt implements the RPC backend.
func (c *Chain) CodeAt(context.Context, common.Address, *big.Int) ([]byte, error) {
	return []byte{0x60}, nil
}

// CallContract executes msg without committing state.
func (c *Chain) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	if msg.To == nil {
		return nil, fmt.Errorf("contract creation not supported")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.execute(msg.From, *msg.To, msg.Data, false)
}

// SendTransaction executes tx and stores a receipt.
func (c *Chain) SendTransaction(_ context.Context, tx *types.Transaction) error {
	from, err := types.Sender(types.LatestSignerForChainID(c.chainID), tx)
	if err != nil {
		return fmt.Errorf("invalid sender: %w", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if expected := c.nonces[from]; tx.Nonce() != expected {
		return fmt.Errorf("nonce mismatch: expected %d, got %d", expected, tx.Nonce())
	}
	c.nonces[from]++
	c.sent = append(c.sent, tx)
	c.block++

	status := types.ReceiptStatusSuccessful
	c.pendingLogs = nil
	name, _ := methodName(*tx.To(), tx.Data())
	if c.FailOnChain[name] {
		status = types.ReceiptStatusFailed
	} else if _, err := c.execute(from, *tx.To(), tx.Data(), true); err != nil {
		status = types.ReceiptStatusFailed
	}

	receipt := &types.Receipt{
		Status:      status,
		TxHash:      tx.Hash(),
		BlockNumber: new(big.Int).SetUint64(c.block),
		GasUsed:     tx.Gas() / 2,
	}
	if status == types.ReceiptStatusSuccessful {
		for i, log := range c.pendingLogs {
			log.TxHash = tx.Hash()
			log.BlockNumber = c.block
			log.Index = uint(i)
			receipt.Logs = append(receipt.Logs, log)
		}
	}
	c.pendingLogs = nil
	c.receipts[tx.Hash()] = receipt
	return nil
}

// TransactionReceipt implements the RPC backend.
func (c *Chain) TransactionReceipt(_ context.Context, hash common.Hash) (*types.Receipt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	receipt, ok := c.receipts[hash]
	if !ok {
		return nil, ethereum.NotFound
	}
	return receipt, nil
}

// Calls returns every executed method name, eth_call and transactions alike.
func (c *Chain) Calls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.calls...)
}

func methodName(to common.Address, data []byte) (string, *abi.Method) {
	if len(data) < 4 {
		return "", nil
	}
	for _, load := range abisFor(to) {
		parsed, err := load()
		if err != nil {
			continue
		}
		if m, err := parsed.MethodById(data[:4]); err == nil {
			return m.Name, m
		}
	}
	return "", nil
}

func abisFor(to common.Address) []func() (abi.ABI, error) {
	switch to {
	case StateReader:
		return []func() (abi.ABI, error){dex.StateReaderABI}
	case PoolManager:
		return []func() (abi.ABI, error){dex.PoolManagerABI}
	case PositionManager:
		return []func() (abi.ABI, error){dex.PositionManagerABI}
	case Permit2:
		return []func() (abi.ABI, error){dex.Permit2ABI}
	default:
		return []func() (abi.ABI, error){dex.ERC20ABI}
	}
}

func bigOrZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(v)
}
