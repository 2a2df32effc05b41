package dex

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
)

// Custom error names the workflow reacts to.
const (
	ErrNamePoolAlreadyInitialized = "PoolAlreadyInitialized"
	ErrNamePoolNotInitialized     = "PoolNotInitialized"
)

var errorStringSelector = []byte{0x08, 0xc3, 0x79, 0xa0}

// RevertError is a contract revert with whatever structured data the node
// returned alongside it.
type RevertError struct {
	Message string
	Data    []byte
	Reason  string
	Name    string
	Args    []interface{}
}

func (e *RevertError) Error() string {
	switch {
	case e.Name != "":
		if len(e.Args) > 0 {
			return fmt.Sprintf("execution reverted: %s%v", e.Name, e.Args)
		}
		return fmt.Sprintf("execution reverted: %s()", e.Name)
	case e.Reason != "":
		return "execution reverted: " + e.Reason
	case len(e.Data) > 0:
		return fmt.Sprintf("execution reverted: undecoded payload %s", hexutil.Encode(e.Data))
	case e.Message != "":
		return e.Message
	default:
		return "execution reverted"
	}
}

// HasPayload reports whether the revert carried any data.
func (e *RevertError) HasPayload() bool { return len(e.Data) > 0 }

// Decoded reports whether the payload matched a reason string or known error.
func (e *RevertError) Decoded() bool { return e.Reason != "" || e.Name != "" }

// Selector returns the 4-byte selector of the payload, if any.
func (e *RevertError) Selector() string {
	if len(e.Data) < 4 {
		return ""
	}
	return hexutil.Encode(e.Data[:4])
}

// AsRevert extracts a RevertError from an RPC error. The second result is
// false when err is not a revert at all (transport failures and the like).
func AsRevert(err error) (*RevertError, bool) {
	if err == nil {
		return nil, false
	}
	var revertErr *RevertError
	if errors.As(err, &revertErr) {
		return revertErr, true
	}

	msg := err.Error()
	var dataErr rpc.DataError
	if errors.As(err, &dataErr) {
		data := errorDataBytes(dataErr.ErrorData())
		if len(data) > 0 || looksLikeRevert(msg) {
			return NewRevertError(msg, data), true
		}
	}
	if looksLikeRevert(msg) {
		return NewRevertError(msg, nil), true
	}
	return nil, false
}

// NewRevertError builds a RevertError and decodes its payload when possible.
func NewRevertError(message string, data []byte) *RevertError {
	e := &RevertError{Message: message, Data: data}
	if len(data) < 4 {
		return e
	}
	if bytes.Equal(data[:4], errorStringSelector) {
		if reason, err := abi.UnpackRevert(data); err == nil {
			e.Reason = reason
		}
		return e
	}
	var selector [4]byte
	copy(selector[:], data[:4])
	if known, ok := knownErrors()[selector]; ok {
		e.Name = known.Name
		if args, err := known.Inputs.Unpack(data[4:]); err == nil {
			e.Args = args
		}
	}
	return e
}

func looksLikeRevert(msg string) bool {
	msg = strings.ToLower(msg)
	return strings.Contains(msg, "execution reverted") || strings.Contains(msg, "missing revert data")
}

func errorDataBytes(data interface{}) []byte {
	switch v := data.(type) {
	case nil:
		return nil
	case []byte:
		return v
	case string:
		decoded, err := hexutil.Decode(v)
		if err != nil {
			return nil
		}
		return decoded
	default:
		return nil
	}
}

var (
	knownErrorsOnce sync.Once
	knownErrorsMap  map[[4]byte]abi.Error
)

func knownErrors() map[[4]byte]abi.Error {
	knownErrorsOnce.Do(func() {
		knownErrorsMap = make(map[[4]byte]abi.Error)
		for _, load := range []func() (abi.ABI, error){PoolManagerABI, Permit2ABI} {
			parsed, err := load()
			if err != nil {
				continue
			}
			for _, e := range parsed.Errors {
				var selector [4]byte
				copy(selector[:], e.ID[:4])
				knownErrorsMap[selector] = e
			}
		}
	})
	return knownErrorsMap
}
