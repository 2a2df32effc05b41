package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"poolPilot/internal/dex"
	"poolPilot/internal/poolstate"
	"poolPilot/internal/txn"
)

var (
	// ErrAlreadyInitialized means another actor initialized the pool first.
	ErrAlreadyInitialized = errors.New("pool already initialized")
	// ErrNoLiquidity means the pool exists but holds no in-range liquidity.
	ErrNoLiquidity = errors.New("pool has no liquidity")
)

// Hypotheses lists what a revert without payload can mean. The tool cannot
// tell them apart, so all of them are reported.
var Hypotheses = []string{
	"pool absent: no pool is initialized for this key",
	"wrong identity: currency order, fee, tick spacing or hooks differ from the deployed pool",
	"bad parameters: amounts, ticks, price limit or allowances are not valid for this call",
	"implementation bug: the deployed contract does not match the encoded ABI",
}

// Holding is a required and observed token amount.
type Holding struct {
	Token    common.Address
	Required *big.Int
	Held     *big.Int
}

// Short reports whether the held amount is below the requirement.
func (h Holding) Short() bool {
	return h.Held.Cmp(h.Required) < 0
}

// InsufficientBalanceError is raised before any transaction is sent.
type InsufficientBalanceError struct {
	Owner    common.Address
	Holdings []Holding
}

func (e *InsufficientBalanceError) Error() string {
	parts := make([]string, 0, len(e.Holdings))
	for _, h := range e.Holdings {
		if !h.Short() {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s requires %s holds %s", h.Token.Hex(), h.Required, h.Held))
	}
	return fmt.Sprintf("insufficient balance for %s: %s", e.Owner.Hex(), strings.Join(parts, "; "))
}

// AmbiguousRevertError is a revert that carried nothing decodable.
type AmbiguousRevertError struct {
	Stage      string
	Message    string
	Data       []byte
	Selector   string
	Params     *txn.TxParams
	TxHash     string
	Hypotheses []string
	Err        error
}

func (e *AmbiguousRevertError) Error() string {
	msg := fmt.Sprintf("%s: ambiguous revert: %s", e.Stage, e.Message)
	if len(e.Data) > 0 {
		msg += " data=" + hexutil.Encode(e.Data)
	}
	if e.TxHash != "" {
		msg += " tx=" + e.TxHash
	}
	return msg
}

func (e *AmbiguousRevertError) Unwrap() error { return e.Err }

// Diagnostic renders every available field plus the hypothesis checklist.
func (e *AmbiguousRevertError) Diagnostic() string {
	var b strings.Builder
	fmt.Fprintf(&b, "stage:    %s\n", e.Stage)
	fmt.Fprintf(&b, "message:  %s\n", e.Message)
	if len(e.Data) > 0 {
		fmt.Fprintf(&b, "data:     %s\n", hexutil.Encode(e.Data))
		if e.Selector != "" {
			fmt.Fprintf(&b, "selector: %s (not a known error)\n", e.Selector)
		}
	} else {
		b.WriteString("data:     (none)\n")
	}
	if e.TxHash != "" {
		fmt.Fprintf(&b, "tx:       %s\n", e.TxHash)
	}
	if p := e.Params; p != nil {
		fmt.Fprintf(&b, "from:     %s\n", p.From.Hex())
		fmt.Fprintf(&b, "to:       %s\n", p.To.Hex())
		fmt.Fprintf(&b, "nonce:    %d\n", p.Nonce)
		fmt.Fprintf(&b, "gasPrice: %s\n", p.GasPrice)
		fmt.Fprintf(&b, "gasLimit: %d\n", p.GasLimit)
		fmt.Fprintf(&b, "calldata: %s\n", p.Data)
	}
	b.WriteString("possible causes:\n")
	for _, h := range e.Hypotheses {
		fmt.Fprintf(&b, "  [ ] %s\n", h)
	}
	return b.String()
}

// NetworkError is a transport or node failure, surfaced verbatim.
type NetworkError struct {
	Stage string
	Err   error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// Classify maps a stage failure onto the error taxonomy. Structured revert
// data wins; message matching is used only when the node returned none.
func Classify(stage string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var params *txn.TxParams
	var preflight *txn.PreflightError
	var send *txn.SendError
	var receiptErr *txn.ReceiptError
	switch {
	case errors.As(err, &receiptErr):
		p := receiptErr.Params
		return &AmbiguousRevertError{
			Stage:      stage,
			Message:    "transaction reverted on chain",
			Params:     &p,
			TxHash:     receiptErr.Receipt.TxHash.Hex(),
			Hypotheses: Hypotheses,
			Err:        err,
		}
	case errors.As(err, &preflight):
		p := preflight.Params
		params = &p
	case errors.As(err, &send):
		return &NetworkError{Stage: stage, Err: err}
	}

	if errors.Is(err, poolstate.ErrPoolNotFound) {
		return &AmbiguousRevertError{Stage: stage, Message: err.Error(), Params: params, Hypotheses: Hypotheses, Err: err}
	}

	revert, ok := dex.AsRevert(err)
	if !ok {
		return &NetworkError{Stage: stage, Err: err}
	}
	if alreadyInitialized(revert) {
		return fmt.Errorf("%s: %w: %v", stage, ErrAlreadyInitialized, revert)
	}
	if revert.Decoded() {
		return fmt.Errorf("%s: %w", stage, revert)
	}
	return &AmbiguousRevertError{
		Stage:      stage,
		Message:    revert.Message,
		Data:       revert.Data,
		Selector:   revert.Selector(),
		Params:     params,
		Hypotheses: Hypotheses,
		Err:        err,
	}
}

func alreadyInitialized(revert *dex.RevertError) bool {
	if revert.Name == dex.ErrNamePoolAlreadyInitialized {
		return true
	}
	if revert.Reason != "" {
		return strings.Contains(strings.ToLower(revert.Reason), "already initialized")
	}
	if !revert.HasPayload() {
		return strings.Contains(strings.ToLower(revert.Message), "already initialized")
	}
	return false
}
