package dex

import (
	"errors"
	"fmt"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type dataError struct {
	msg  string
	data interface{}
}

func (e dataError) Error() string          { return e.msg }
func (e dataError) ErrorCode() int         { return 3 }
func (e dataError) ErrorData() interface{} { return e.data }

func customErrorData(t *testing.T, load func() (abi.ABI, error), name string, args ...interface{}) []byte {
	t.Helper()
	parsed, err := load()
	require.NoError(t, err)
	abiErr, ok := parsed.Errors[name]
	require.True(t, ok, name)
	packed, err := abiErr.Inputs.Pack(args...)
	require.NoError(t, err)
	return append(append([]byte{}, abiErr.ID[:4]...), packed...)
}

func TestAsRevertDecodesCustomError(t *testing.T) {
	data := customErrorData(t, PoolManagerABI, ErrNamePoolAlreadyInitialized)
	err := fmt.Errorf("send: %w", dataError{msg: "execution reverted", data: hexutil.Encode(data)})

	revert, ok := AsRevert(err)
	require.True(t, ok)
	assert.True(t, revert.Decoded())
	assert.Equal(t, ErrNamePoolAlreadyInitialized, revert.Name)
	assert.Equal(t, hexutil.Encode(data[:4]), revert.Selector())
	assert.Equal(t, "execution reverted: PoolAlreadyInitialized()", revert.Error())
}

func TestAsRevertDecodesCustomErrorArgs(t *testing.T) {
	data := customErrorData(t, Permit2ABI, "InsufficientAllowance", big.NewInt(42))

	revert, ok := AsRevert(dataError{msg: "execution reverted", data: hexutil.Encode(data)})
	require.True(t, ok)
	assert.Equal(t, "InsufficientAllowance", revert.Name)
	require.Len(t, revert.Args, 1)
	assert.Equal(t, int64(42), revert.Args[0].(*big.Int).Int64())
}

func TestAsRevertDecodesReasonString(t *testing.T) {
	str, err := abi.NewType("string", "", nil)
	require.NoError(t, err)
	packed, err := abi.Arguments{{Type: str}}.Pack("TRANSFER_FROM_FAILED")
	require.NoError(t, err)
	data := append([]byte{0x08, 0xc3, 0x79, 0xa0}, packed...)

	revert, ok := AsRevert(dataError{msg: "execution reverted: TRANSFER_FROM_FAILED", data: hexutil.Encode(data)})
	require.True(t, ok)
	assert.Equal(t, "TRANSFER_FROM_FAILED", revert.Reason)
	assert.Empty(t, revert.Name)
}

func TestAsRevertUnknownSelector(t *testing.T) {
	revert, ok := AsRevert(dataError{msg: "execution reverted", data: "0xdeadbeef"})
	require.True(t, ok)
	assert.True(t, revert.HasPayload())
	assert.False(t, revert.Decoded())
	assert.Contains(t, revert.Error(), "undecoded payload 0xdeadbeef")
}

func TestAsRevertMissingData(t *testing.T) {
	revert, ok := AsRevert(errors.New("missing revert data in call exception"))
	require.True(t, ok)
	assert.False(t, revert.HasPayload())
	assert.False(t, revert.Decoded())
}

func TestAsRevertIgnoresTransportErrors(t *testing.T) {
	_, ok := AsRevert(errors.New("dial tcp 127.0.0.1:8545: connection refused"))
	assert.False(t, ok)
	_, ok = AsRevert(dataError{msg: "header not found"})
	assert.False(t, ok)
	_, ok = AsRevert(nil)
	assert.False(t, ok)
}
