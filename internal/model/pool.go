package model

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// PoolKey identifies a pool. Currency0 must sort below Currency1.
type PoolKey struct {
	Currency0   common.Address `json:"currency0"`
	Currency1   common.Address `json:"currency1"`
	Fee         uint32         `json:"fee"`
	TickSpacing int32          `json:"tick_spacing"`
	Hooks       common.Address `json:"hooks"`
}

// HasHooks reports whether the key references a hook contract.
func (k PoolKey) HasHooks() bool {
	return k.Hooks != (common.Address{})
}

// IsCurrency0 reports whether token is the key's currency0.
func (k PoolKey) IsCurrency0(token common.Address) bool {
	return token == k.Currency0
}

func (k PoolKey) String() string {
	return fmt.Sprintf("%s/%s fee=%d spacing=%d hooks=%s",
		k.Currency0.Hex(), k.Currency1.Hex(), k.Fee, k.TickSpacing, k.Hooks.Hex())
}
