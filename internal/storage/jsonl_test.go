package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poolPilot/internal/model"
)

func TestJsonlJournalKeepsLatestStatus(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "transactions.jsonl")
	journal := NewJsonlJournal(path)
	ctx := context.Background()

	submitted := model.TxRecord{RunID: "run-1", Stage: "initialize", Hash: "0xaa", Nonce: 7, Status: model.TxStatusSubmitted}
	require.NoError(t, journal.Record(ctx, submitted))
	require.NoError(t, journal.Record(ctx, model.TxRecord{RunID: "run-2", Stage: "swap", Hash: "0xbb", Status: model.TxStatusSubmitted}))

	confirmed := submitted
	confirmed.Status = model.TxStatusConfirmed
	confirmed.BlockNumber = 100
	require.NoError(t, journal.Record(ctx, confirmed))

	records, err := ReadJsonlJournal(path, "")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "0xaa", records[0].Hash)
	assert.Equal(t, model.TxStatusConfirmed, records[0].Status)
	assert.Equal(t, uint64(100), records[0].BlockNumber)

	filtered, err := ReadJsonlJournal(path, "run-2")
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, "swap", filtered[0].Stage)
}

type failingJournal struct{ err error }

func (f failingJournal) Record(context.Context, model.TxRecord) error { return f.err }

func TestMultiStopsAtFirstError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tx.jsonl")
	boom := assert.AnError
	multi := Multi{nil, NewJsonlJournal(path), failingJournal{err: boom}}

	err := multi.Record(context.Background(), model.TxRecord{Hash: "0x01"})
	require.ErrorIs(t, err, boom)

	records, err := ReadJsonlJournal(path, "")
	require.NoError(t, err)
	assert.Len(t, records, 1)
	require.NoError(t, Nop{}.Record(context.Background(), model.TxRecord{}))
}
