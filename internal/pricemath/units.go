package pricemath

import (
	"fmt"
	"math/big"
	"strings"
)

// FormatUnits renders a raw token amount with the token's decimals, trimming
// trailing zeros.
func FormatUnits(value *big.Int, decimals uint8) string {
	if value == nil {
		return "0"
	}
	if decimals == 0 {
		return value.String()
	}
	sign := value.Sign()
	abs := new(big.Int).Abs(value)
	rat := new(big.Rat).SetFrac(abs, pow10(int(decimals)))
	text := rat.FloatString(int(decimals))
	text = strings.TrimRight(strings.TrimRight(text, "0"), ".")
	if sign < 0 {
		return "-" + text
	}
	return text
}

// ParseUnits converts a decimal string such as "100.5" into raw token units.
func ParseUnits(value string, decimals uint8) (*big.Int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, fmt.Errorf("empty amount")
	}
	rat, ok := new(big.Rat).SetString(value)
	if !ok {
		return nil, fmt.Errorf("invalid amount: %s", value)
	}
	if rat.Sign() < 0 {
		return nil, fmt.Errorf("amount must not be negative: %s", value)
	}
	rat.Mul(rat, new(big.Rat).SetInt(pow10(int(decimals))))
	if !rat.IsInt() {
		return nil, fmt.Errorf("amount %s has more than %d decimals", value, decimals)
	}
	return new(big.Int).Set(rat.Num()), nil
}
