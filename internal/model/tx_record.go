package model

// TxRecord is a journal entry for one submitted transaction.
type TxRecord struct {
	RunID       string `json:"run_id"`
	Stage       string `json:"stage"`
	PoolID      string `json:"pool_id"`
	Hash        string `json:"hash"`
	From        string `json:"from"`
	To          string `json:"to"`
	Nonce       uint64 `json:"nonce"`
	GasPrice    string `json:"gas_price"`
	GasLimit    uint64 `json:"gas_limit"`
	Status      string `json:"status"`
	BlockNumber uint64 `json:"block_number,omitempty"`
	GasUsed     uint64 `json:"gas_used,omitempty"`
	Error       string `json:"error,omitempty"`
	SubmittedAt string `json:"submitted_at"`
}

const (
	TxStatusSubmitted = "submitted"
	TxStatusConfirmed = "confirmed"
	TxStatusReverted  = "reverted"
	// TxStatusRejected marks a transaction the node refused; it never
	// reached the chain.
	TxStatusRejected = "rejected"
)
