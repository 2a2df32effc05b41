package dex

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"poolPilot/internal/model"
)

// Decoder turns receipt logs into typed events.
type Decoder interface {
	CanDecode(log types.Log) bool
	Decode(log types.Log) (*model.TypedEvent, error)
}

// DecodeReceipt decodes every log in receipt the decoder understands,
// keeping only events for poolID when it is non-zero.
func DecodeReceipt(d Decoder, receipt *types.Receipt, poolID common.Hash) ([]model.TypedEvent, error) {
	if receipt == nil {
		return nil, nil
	}
	events := make([]model.TypedEvent, 0, len(receipt.Logs))
	for _, log := range receipt.Logs {
		if log == nil || !d.CanDecode(*log) {
			continue
		}
		event, err := d.Decode(*log)
		if err != nil {
			return nil, err
		}
		if poolID != (common.Hash{}) && event.PoolID != poolID.Hex() {
			continue
		}
		events = append(events, *event)
	}
	return events, nil
}
