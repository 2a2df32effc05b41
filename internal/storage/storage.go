package storage

import (
	"context"

	"poolPilot/internal/model"
)

// Journal records the transactions a run submits.
type Journal interface {
	Record(ctx context.Context, record model.TxRecord) error
}

// Nop discards records.
type Nop struct{}

// Record implements Journal.
func (Nop) Record(context.Context, model.TxRecord) error { return nil }

// Multi fans a record out to several journals, stopping at the first error.
type Multi []Journal

// Record implements Journal.
func (m Multi) Record(ctx context.Context, record model.TxRecord) error {
	for _, j := range m {
		if j == nil {
			continue
		}
		if err := j.Record(ctx, record); err != nil {
			return err
		}
	}
	return nil
}
