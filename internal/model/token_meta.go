package model

// TokenMeta captures ERC20 metadata used to render amounts and prices.
type TokenMeta struct {
	Address  string `json:"address"`
	Decimals uint8  `json:"decimals"`
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
}

// Label returns the symbol when known, otherwise the address.
func (m TokenMeta) Label() string {
	if m.Symbol != "" {
		return m.Symbol
	}
	return m.Address
}
