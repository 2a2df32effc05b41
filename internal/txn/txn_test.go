package txn

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poolPilot/internal/chain/chaintest"
	"poolPilot/internal/dex"
	"poolPilot/internal/model"
)

const testKey = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

type memJournal struct {
	mu      sync.Mutex
	records []model.TxRecord
}

func (j *memJournal) Record(_ context.Context, r model.TxRecord) error {
	j.mu.Lock()
	j.records = append(j.records, r)
	j.mu.Unlock()
	return nil
}

func TestNewSigner(t *testing.T) {
	signer, err := NewSigner(testKey)
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"), signer.Address())

	bare, err := NewSigner(testKey[2:])
	require.NoError(t, err)
	assert.Equal(t, signer.Address(), bare.Address())

	_, err = NewSigner("")
	require.Error(t, err)
	_, err = NewSigner("0xnothex")
	require.Error(t, err)
}

func TestNonceAllocatorMonotonic(t *testing.T) {
	alloc := NewNonceAllocator(5)
	assert.Equal(t, uint64(5), alloc.Peek())
	assert.Equal(t, uint64(5), alloc.Reserve())
	assert.Equal(t, uint64(6), alloc.Reserve())
	assert.Equal(t, uint64(7), alloc.Peek())
}

func newTestSubmitter(t *testing.T) (*Submitter, *chaintest.Chain, *memJournal, common.Address) {
	t.Helper()
	signer, err := NewSigner(testKey)
	require.NoError(t, err)
	chain := chaintest.New()
	chain.SetNonce(signer.Address(), 9)
	token := common.HexToAddress("0x00000000000000000000000000000000000000b1")
	chain.AddToken(token, "TKN", 18)
	journal := &memJournal{}
	sub := NewSubmitter(chain, signer, Options{RunID: "run-1", PoolID: "0xpool", GasPriceMultiplier: 10, Journal: journal})
	return sub, chain, journal, token
}

func TestSubmitterSendsSequentialNonces(t *testing.T) {
	sub, chain, journal, token := newTestSubmitter(t)
	ctx := context.Background()

	data, err := dex.PackApprove(chaintest.Permit2, big.NewInt(1000))
	require.NoError(t, err)

	first, err := sub.Submit(ctx, Call{Stage: "approve_token0", To: token, Data: data, GasLimit: 100000})
	require.NoError(t, err)
	second, err := sub.Submit(ctx, Call{Stage: "approve_token1", To: token, Data: data, GasLimit: 100000})
	require.NoError(t, err)

	assert.Equal(t, uint64(9), first.Tx.Nonce())
	assert.Equal(t, uint64(10), second.Tx.Nonce())
	assert.Equal(t, big.NewInt(10_000_000_000), first.Tx.GasPrice())

	for _, p := range []*Pending{first, second} {
		receipt, err := p.Wait(ctx)
		require.NoError(t, err)
		assert.Equal(t, uint64(1), receipt.Status)
	}

	sent := chain.Sent()
	require.Len(t, sent, 2)
	require.Len(t, journal.records, 4)
	assert.Equal(t, model.TxStatusSubmitted, journal.records[0].Status)
	assert.Equal(t, model.TxStatusConfirmed, journal.records[3].Status)
	assert.Equal(t, "run-1", journal.records[3].RunID)
	assert.Equal(t, "0xpool", journal.records[3].PoolID)
}

func TestSubmitterPreflightFailureKeepsNonce(t *testing.T) {
	sub, chain, _, token := newTestSubmitter(t)
	ctx := context.Background()

	data, err := dex.PackApprove(chaintest.Permit2, big.NewInt(1))
	require.NoError(t, err)

	calls := 0
	chain.Intercept = func(method string, _ common.Address, commit bool) error {
		calls++
		if calls == 1 {
			return &chaintest.RevertError{Msg: "execution reverted"}
		}
		return nil
	}

	_, err = sub.Submit(ctx, Call{Stage: "approve", To: token, Data: data, GasLimit: 100000})
	var preflight *PreflightError
	require.ErrorAs(t, err, &preflight)
	assert.Equal(t, uint64(9), preflight.Params.Nonce)
	_, isRevert := dex.AsRevert(err)
	assert.True(t, isRevert)
	assert.Empty(t, chain.Sent())

	pending, err := sub.Submit(ctx, Call{Stage: "approve", To: token, Data: data, GasLimit: 100000})
	require.NoError(t, err)
	assert.Equal(t, uint64(9), pending.Tx.Nonce())
}

func TestPendingWaitReportsRevertedReceipt(t *testing.T) {
	sub, chain, journal, token := newTestSubmitter(t)
	chain.FailOnChain["approve"] = true

	data, err := dex.PackApprove(chaintest.Permit2, big.NewInt(1))
	require.NoError(t, err)

	receipt, err := sub.SubmitAndWait(context.Background(), Call{Stage: "approve", To: token, Data: data, GasLimit: 100000})
	var receiptErr *ReceiptError
	require.True(t, errors.As(err, &receiptErr))
	require.NotNil(t, receipt)
	assert.Equal(t, uint64(0), receipt.Status)
	assert.Equal(t, "approve", receiptErr.Params.Stage)
	assert.Equal(t, model.TxStatusReverted, journal.records[len(journal.records)-1].Status)
}

type rejectingBackend struct {
	*chaintest.Chain
}

func (rejectingBackend) SendTransaction(context.Context, *types.Transaction) error {
	return errors.New("replacement transaction underpriced")
}

func TestSubmitterJournalsRejectedSend(t *testing.T) {
	signer, err := NewSigner(testKey)
	require.NoError(t, err)
	chain := chaintest.New()
	token := common.HexToAddress("0x00000000000000000000000000000000000000b1")
	chain.AddToken(token, "TKN", 18)
	journal := &memJournal{}
	sub := NewSubmitter(rejectingBackend{chain}, signer, Options{RunID: "run-2", GasPriceMultiplier: 1, Journal: journal})

	data, err := dex.PackApprove(chaintest.Permit2, big.NewInt(1))
	require.NoError(t, err)

	_, err = sub.Submit(context.Background(), Call{Stage: "approve", To: token, Data: data, GasLimit: 100000})
	var sendErr *SendError
	require.ErrorAs(t, err, &sendErr)
	require.Len(t, journal.records, 1)
	assert.Equal(t, model.TxStatusRejected, journal.records[0].Status)
	assert.Contains(t, journal.records[0].Error, "underpriced")
	assert.Empty(t, chain.Sent())
}
