package model

// TypedEvent is a decoded pool manager event taken from a receipt.
type TypedEvent struct {
	BlockNumber uint64      `json:"block_number"`
	TxHash      string      `json:"tx_hash"`
	LogIndex    uint64      `json:"log_index"`
	Address     string      `json:"address"`
	PoolID      string      `json:"pool_id"`
	EventName   string      `json:"event_name"`
	Decoded     interface{} `json:"decoded"`
}
