package txn

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// TxParams echoes what was (or would have been) sent, for diagnostics.
type TxParams struct {
	Stage    string
	From     common.Address
	To       common.Address
	Nonce    uint64
	GasPrice *big.Int
	GasLimit uint64
	Data     string
}

// PreflightError is an eth_call rejection before anything was broadcast.
type PreflightError struct {
	Params TxParams
	Err    error
}

func (e *PreflightError) Error() string {
	return fmt.Sprintf("preflight %s: %v", e.Params.Stage, e.Err)
}

func (e *PreflightError) Unwrap() error { return e.Err }

// SendError is a node rejection of a signed transaction.
type SendError struct {
	Params TxParams
	Err    error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("send %s nonce %d: %v", e.Params.Stage, e.Params.Nonce, e.Err)
}

func (e *SendError) Unwrap() error { return e.Err }

// ReceiptError is a transaction that was mined but reverted.
type ReceiptError struct {
	Params  TxParams
	Receipt *types.Receipt
}

func (e *ReceiptError) Error() string {
	return fmt.Sprintf("%s reverted on chain: tx %s block %s", e.Params.Stage, e.Receipt.TxHash.Hex(), e.Receipt.BlockNumber)
}
