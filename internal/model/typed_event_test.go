package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSwapEventDataKeepsAmountsAsStrings(t *testing.T) {
	event := TypedEvent{
		BlockNumber: 12,
		TxHash:      "0xabc",
		PoolID:      "0x01",
		EventName:   "Swap",
		Decoded: SwapEventData{
			Sender:       "0x1111111111111111111111111111111111111111",
			Amount0:      "-1000000000000000000000",
			Amount1:      "997",
			SqrtPriceX96: "79228162514264337593543950336",
			Liquidity:    "5000000000000000000",
			Tick:         -10,
			Fee:          3000,
		},
	}

	data, err := json.Marshal(event)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	payload, ok := decoded["decoded"].(map[string]interface{})
	require.True(t, ok)
	for _, field := range []string{"amount0", "amount1", "sqrt_price_x96", "liquidity"} {
		_, isString := payload[field].(string)
		assert.True(t, isString, field)
	}
	assert.Equal(t, "Swap", decoded["event_name"])
}

func TestTxRecordOmitsUnminedFields(t *testing.T) {
	data, err := json.Marshal(TxRecord{Stage: "initialize", Status: TxStatusSubmitted})
	require.NoError(t, err)
	assert.NotContains(t, string(data), "block_number")
	assert.NotContains(t, string(data), "gas_used")
}
