package txn

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"poolPilot/internal/model"
	"poolPilot/internal/storage"
)

// Backend is the RPC surface the submitter needs.
type Backend interface {
	bind.DeployBackend
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	ChainID(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
}

// Call is one state-changing contract call.
type Call struct {
	Stage    string
	To       common.Address
	Data     []byte
	GasLimit uint64
}

// Options configures a Submitter.
type Options struct {
	RunID              string
	PoolID             string
	GasPriceMultiplier int64
	Journal            storage.Journal
	Logger             *zap.Logger
	Now                func() time.Time
}

// Submitter signs and broadcasts calls. Chain id, starting nonce and gas price
// are read on first use and kept for the rest of the run.
type Submitter struct {
	backend    Backend
	signer     *Signer
	journal    storage.Journal
	logger     *zap.Logger
	now        func() time.Time
	runID      string
	poolID     string
	multiplier int64

	mu       sync.Mutex
	ready    bool
	chainID  *big.Int
	gasPrice *big.Int
	nonces   *NonceAllocator
}

func NewSubmitter(backend Backend, signer *Signer, opts Options) *Submitter {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Journal == nil {
		opts.Journal = storage.Nop{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.GasPriceMultiplier < 1 {
		opts.GasPriceMultiplier = 1
	}
	return &Submitter{
		backend:    backend,
		signer:     signer,
		journal:    opts.Journal,
		logger:     opts.Logger,
		now:        opts.Now,
		runID:      opts.RunID,
		poolID:     opts.PoolID,
		multiplier: opts.GasPriceMultiplier,
	}
}

// From returns the sending account.
func (s *Submitter) From() common.Address {
	return s.signer.Address()
}

func (s *Submitter) init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ready {
		return nil
	}

	chainID, err := s.backend.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("get chain id: %w", err)
	}
	nonce, err := s.backend.PendingNonceAt(ctx, s.signer.Address())
	if err != nil {
		return fmt.Errorf("get pending nonce: %w", err)
	}
	suggested, err := s.backend.SuggestGasPrice(ctx)
	if err != nil {
		return fmt.Errorf("suggest gas price: %w", err)
	}

	s.chainID = chainID
	s.nonces = NewNonceAllocator(nonce)
	s.gasPrice = new(big.Int).Mul(suggested, big.NewInt(s.multiplier))
	s.ready = true

	s.logger.Info("submitter ready",
		zap.String("from", s.signer.Address().Hex()),
		zap.String("chain_id", chainID.String()),
		zap.Uint64("nonce", nonce),
		zap.String("gas_price", s.gasPrice.String()),
	)
	return nil
}

// Submit preflights call with eth_call, then signs and sends it. A failing
// preflight consumes no nonce and returns the node error unchanged so revert
// data stays reachable.
func (s *Submitter) Submit(ctx context.Context, call Call) (*Pending, error) {
	if err := s.init(ctx); err != nil {
		return nil, err
	}

	msg := ethereum.CallMsg{
		From:     s.signer.Address(),
		To:       &call.To,
		Gas:      call.GasLimit,
		GasPrice: s.gasPrice,
		Data:     call.Data,
	}
	if _, err := s.backend.CallContract(ctx, msg, nil); err != nil {
		return nil, &PreflightError{Params: s.params(call, s.nonces.Peek()), Err: err}
	}

	nonce := s.nonces.Reserve()
	params := s.params(call, nonce)
	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: s.gasPrice,
		Gas:      call.GasLimit,
		To:       &call.To,
		Value:    big.NewInt(0),
		Data:     call.Data,
	})
	signed, err := s.signer.Sign(tx, s.chainID)
	if err != nil {
		return nil, fmt.Errorf("sign %s: %w", call.Stage, err)
	}

	record := s.record(call, signed)
	if err := s.backend.SendTransaction(ctx, signed); err != nil {
		record.Status = model.TxStatusRejected
		record.Error = err.Error()
		s.writeJournal(ctx, record)
		return nil, &SendError{Params: params, Err: err}
	}
	s.writeJournal(ctx, record)

	s.logger.Info("transaction sent",
		zap.String("stage", call.Stage),
		zap.String("tx_hash", signed.Hash().Hex()),
		zap.Uint64("nonce", nonce),
		zap.String("to", call.To.Hex()),
	)
	return &Pending{Stage: call.Stage, Tx: signed, Params: params, record: record, submitter: s}, nil
}

func (s *Submitter) params(call Call, nonce uint64) TxParams {
	gasPrice := new(big.Int)
	if s.gasPrice != nil {
		gasPrice.Set(s.gasPrice)
	}
	return TxParams{
		Stage:    call.Stage,
		From:     s.signer.Address(),
		To:       call.To,
		Nonce:    nonce,
		GasPrice: gasPrice,
		GasLimit: call.GasLimit,
		Data:     hexutil.Encode(call.Data),
	}
}

func (s *Submitter) record(call Call, tx *types.Transaction) model.TxRecord {
	return model.TxRecord{
		RunID:       s.runID,
		Stage:       call.Stage,
		PoolID:      s.poolID,
		Hash:        tx.Hash().Hex(),
		From:        s.signer.Address().Hex(),
		To:          call.To.Hex(),
		Nonce:       tx.Nonce(),
		GasPrice:    tx.GasPrice().String(),
		GasLimit:    tx.Gas(),
		Status:      model.TxStatusSubmitted,
		SubmittedAt: s.now().UTC().Format(time.RFC3339),
	}
}

func (s *Submitter) writeJournal(ctx context.Context, record model.TxRecord) {
	if err := s.journal.Record(ctx, record); err != nil {
		s.logger.Warn("journal write failed", zap.String("tx_hash", record.Hash), zap.Error(err))
	}
}

// Pending is a sent transaction awaiting its receipt.
type Pending struct {
	Stage  string
	Tx     *types.Transaction
	Params TxParams

	record    model.TxRecord
	submitter *Submitter
}

// Wait blocks until the transaction is mined. There is no timeout; cancel ctx
// to give up. A mined transaction with status 0 returns *ReceiptError.
func (p *Pending) Wait(ctx context.Context) (*types.Receipt, error) {
	s := p.submitter
	receipt, err := bind.WaitMined(ctx, s.backend, p.Tx)
	if err != nil {
		return nil, fmt.Errorf("wait %s %s: %w", p.Stage, p.Tx.Hash().Hex(), err)
	}

	record := p.record
	record.BlockNumber = receipt.BlockNumber.Uint64()
	record.GasUsed = receipt.GasUsed
	if receipt.Status != types.ReceiptStatusSuccessful {
		record.Status = model.TxStatusReverted
		record.Error = "receipt status 0"
		s.writeJournal(ctx, record)
		return receipt, &ReceiptError{Params: p.Params, Receipt: receipt}
	}
	record.Status = model.TxStatusConfirmed
	s.writeJournal(ctx, record)

	s.logger.Info("transaction confirmed",
		zap.String("stage", p.Stage),
		zap.String("tx_hash", p.Tx.Hash().Hex()),
		zap.Uint64("block", record.BlockNumber),
		zap.Uint64("gas_used", receipt.GasUsed),
	)
	return receipt, nil
}

// SubmitAndWait submits call and waits for its receipt.
func (s *Submitter) SubmitAndWait(ctx context.Context, call Call) (*types.Receipt, error) {
	pending, err := s.Submit(ctx, call)
	if err != nil {
		return nil, err
	}
	return pending.Wait(ctx)
}
