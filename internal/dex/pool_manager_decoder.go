package dex

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"poolPilot/internal/model"
)

// PoolManagerDecoder decodes Initialize, ModifyLiquidity and Swap events
// emitted by the pool manager singleton.
type PoolManagerDecoder struct {
	manager     common.Address
	abi         abi.ABI
	topicToName map[common.Hash]string
}

// NewPoolManagerDecoder builds a decoder for logs emitted by manager.
func NewPoolManagerDecoder(manager common.Address) (*PoolManagerDecoder, error) {
	parsed, err := PoolManagerABI()
	if err != nil {
		return nil, fmt.Errorf("parse pool manager abi: %w", err)
	}
	topicToName := make(map[common.Hash]string, len(parsed.Events))
	for name, event := range parsed.Events {
		topicToName[event.ID] = name
	}
	return &PoolManagerDecoder{manager: manager, abi: parsed, topicToName: topicToName}, nil
}

// CanDecode checks the emitter and topic0.
func (d *PoolManagerDecoder) CanDecode(log types.Log) bool {
	if len(log.Topics) == 0 || log.Address != d.manager {
		return false
	}
	_, ok := d.topicToName[log.Topics[0]]
	return ok
}

// Decode converts a log into a TypedEvent.
func (d *PoolManagerDecoder) Decode(log types.Log) (*model.TypedEvent, error) {
	if len(log.Topics) == 0 {
		return nil, fmt.Errorf("missing topics")
	}
	name, ok := d.topicToName[log.Topics[0]]
	if !ok {
		return nil, fmt.Errorf("unsupported topic0: %s", log.Topics[0].Hex())
	}
	event := d.abi.Events[name]
	if err := checkTopicCount(event, log.Topics); err != nil {
		return nil, err
	}

	values, err := event.Inputs.NonIndexed().Unpack(log.Data)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", name, err)
	}

	var decoded interface{}
	switch name {
	case "Initialize":
		decoded, err = decodeInitialize(log, values)
	case "ModifyLiquidity":
		decoded, err = decodeModifyLiquidity(log, values)
	case "Swap":
		decoded, err = decodeSwap(log, values)
	default:
		return nil, fmt.Errorf("unsupported event name: %s", name)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}

	return &model.TypedEvent{
		BlockNumber: log.BlockNumber,
		TxHash:      log.TxHash.Hex(),
		LogIndex:    uint64(log.Index),
		Address:     log.Address.Hex(),
		PoolID:      log.Topics[1].Hex(),
		EventName:   name,
		Decoded:     decoded,
	}, nil
}

func decodeInitialize(log types.Log, values []interface{}) (model.InitializeEventData, error) {
	if len(values) != 5 {
		return model.InitializeEventData{}, fmt.Errorf("unexpected initialize values: %d", len(values))
	}
	ints, err := bigInts(values[0], values[1], values[3], values[4])
	if err != nil {
		return model.InitializeEventData{}, err
	}
	fee, err := Uint24FromBig(ints[0])
	if err != nil {
		return model.InitializeEventData{}, err
	}
	spacing, err := Int24FromBig(ints[1])
	if err != nil {
		return model.InitializeEventData{}, err
	}
	tick, err := Int24FromBig(ints[3])
	if err != nil {
		return model.InitializeEventData{}, err
	}
	hooks, ok := values[2].(common.Address)
	if !ok {
		return model.InitializeEventData{}, fmt.Errorf("hooks type %T", values[2])
	}

	return model.InitializeEventData{
		Currency0:    topicAddress(log.Topics[2]).Hex(),
		Currency1:    topicAddress(log.Topics[3]).Hex(),
		Fee:          fee,
		TickSpacing:  spacing,
		Hooks:        hooks.Hex(),
		SqrtPriceX96: ints[2].String(),
		Tick:         tick,
	}, nil
}

func decodeModifyLiquidity(log types.Log, values []interface{}) (model.ModifyLiquidityEventData, error) {
	if len(values) != 4 {
		return model.ModifyLiquidityEventData{}, fmt.Errorf("unexpected modify liquidity values: %d", len(values))
	}
	ints, err := bigInts(values[0], values[1], values[2])
	if err != nil {
		return model.ModifyLiquidityEventData{}, err
	}
	lower, err := Int24FromBig(ints[0])
	if err != nil {
		return model.ModifyLiquidityEventData{}, err
	}
	upper, err := Int24FromBig(ints[1])
	if err != nil {
		return model.ModifyLiquidityEventData{}, err
	}
	salt, ok := values[3].([32]byte)
	if !ok {
		return model.ModifyLiquidityEventData{}, fmt.Errorf("salt type %T", values[3])
	}

	return model.ModifyLiquidityEventData{
		Sender:         topicAddress(log.Topics[2]).Hex(),
		TickLower:      lower,
		TickUpper:      upper,
		LiquidityDelta: ints[2].String(),
		Salt:           common.Hash(salt).Hex(),
	}, nil
}

func decodeSwap(log types.Log, values []interface{}) (model.SwapEventData, error) {
	if len(values) != 6 {
		return model.SwapEventData{}, fmt.Errorf("unexpected swap values: %d", len(values))
	}
	ints, err := bigInts(values...)
	if err != nil {
		return model.SwapEventData{}, err
	}
	tick, err := Int24FromBig(ints[4])
	if err != nil {
		return model.SwapEventData{}, err
	}
	fee, err := Uint24FromBig(ints[5])
	if err != nil {
		return model.SwapEventData{}, err
	}

	return model.SwapEventData{
		Sender:       topicAddress(log.Topics[2]).Hex(),
		Amount0:      ints[0].String(),
		Amount1:      ints[1].String(),
		SqrtPriceX96: ints[2].String(),
		Liquidity:    ints[3].String(),
		Tick:         tick,
		Fee:          fee,
	}, nil
}

func checkTopicCount(event abi.Event, topics []common.Hash) error {
	indexed := 0
	for _, arg := range event.Inputs {
		if arg.Indexed {
			indexed++
		}
	}
	if len(topics) != indexed+1 {
		return fmt.Errorf("expected %d topics, got %d", indexed+1, len(topics))
	}
	return nil
}

func bigInts(values ...interface{}) ([]*big.Int, error) {
	out := make([]*big.Int, 0, len(values))
	for _, v := range values {
		n, err := AsBigInt(v)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

func topicAddress(topic common.Hash) common.Address {
	return common.BytesToAddress(topic.Bytes())
}
