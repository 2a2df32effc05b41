// Package poolkey derives the canonical identity of a pool from its token pair
// and fee parameters.
package poolkey

import (
	"bytes"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"poolPilot/internal/model"
)

// IdentityError reports malformed address input. It is raised before any
// network call is made.
type IdentityError struct {
	Field string
	Input string
	Err   error
}

func (e *IdentityError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid %s address %q: %v", e.Field, e.Input, e.Err)
	}
	return fmt.Sprintf("invalid address %q: %v", e.Input, e.Err)
}

func (e *IdentityError) Unwrap() error { return e.Err }

var (
	errNotHex      = fmt.Errorf("not a 20-byte hex address")
	errZeroAddress = fmt.Errorf("zero address")
)

// ParseAddress converts a hex string into an address.
func ParseAddress(field, input string) (common.Address, error) {
	input = strings.TrimSpace(input)
	if !common.IsHexAddress(input) {
		return common.Address{}, &IdentityError{Field: field, Input: input, Err: errNotHex}
	}
	return common.HexToAddress(input), nil
}

// ParseToken is ParseAddress that also rejects the zero address.
func ParseToken(field, input string) (common.Address, error) {
	addr, err := ParseAddress(field, input)
	if err != nil {
		return common.Address{}, err
	}
	if addr == (common.Address{}) {
		return common.Address{}, &IdentityError{Field: field, Input: input, Err: errZeroAddress}
	}
	return addr, nil
}

// SortTokens returns the pair ordered so that token0 < token1. Comparing the
// raw 20 bytes is the same as comparing lower-cased hex strings.
func SortTokens(a, b common.Address) (common.Address, common.Address) {
	if bytes.Compare(a.Bytes(), b.Bytes()) <= 0 {
		return a, b
	}
	return b, a
}

// BuildPoolKey assembles a key from already sorted tokens.
func BuildPoolKey(token0, token1 common.Address, fee uint32, tickSpacing int32, hooks common.Address) model.PoolKey {
	return model.PoolKey{
		Currency0:   token0,
		Currency1:   token1,
		Fee:         fee,
		TickSpacing: tickSpacing,
		Hooks:       hooks,
	}
}

// NewPoolKey sorts the pair and builds the key.
func NewPoolKey(a, b common.Address, fee uint32, tickSpacing int32, hooks common.Address) (model.PoolKey, error) {
	if a == b {
		return model.PoolKey{}, fmt.Errorf("token pair must be distinct: %s", a.Hex())
	}
	token0, token1 := SortTokens(a, b)
	return BuildPoolKey(token0, token1, fee, tickSpacing, hooks), nil
}

// ABIKey is the tuple shape every contract call expects for a pool key.
type ABIKey struct {
	Currency0   common.Address
	Currency1   common.Address
	Fee         *big.Int
	TickSpacing *big.Int
	Hooks       common.Address
}

// Tuple converts a key into its ABI tuple value.
func Tuple(key model.PoolKey) ABIKey {
	return ABIKey{
		Currency0:   key.Currency0,
		Currency1:   key.Currency1,
		Fee:         new(big.Int).SetUint64(uint64(key.Fee)),
		TickSpacing: big.NewInt(int64(key.TickSpacing)),
		Hooks:       key.Hooks,
	}
}

// TupleComponents describes the pool key struct for ABI type construction.
var TupleComponents = []abi.ArgumentMarshaling{
	{Name: "currency0", Type: "address"},
	{Name: "currency1", Type: "address"},
	{Name: "fee", Type: "uint24"},
	{Name: "tickSpacing", Type: "int24"},
	{Name: "hooks", Type: "address"},
}

// PoolID returns keccak256(abi.encode(key)), the identifier the pool manager
// stores the pool under.
func PoolID(key model.PoolKey) (common.Hash, error) {
	keyType, err := abi.NewType("tuple", "", TupleComponents)
	if err != nil {
		return common.Hash{}, fmt.Errorf("pool key type: %w", err)
	}
	encoded, err := abi.Arguments{{Type: keyType}}.Pack(Tuple(key))
	if err != nil {
		return common.Hash{}, fmt.Errorf("encode pool key: %w", err)
	}
	return crypto.Keccak256Hash(encoded), nil
}
