package model

// TokenMeta captures ERC20 metadata.
type TokenMeta struct {
	Address  string `json:"address"`
	Decimals uint8  `json:"decimals"`
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
}

// Display returns the symbol when known, otherwise the address.
func (t TokenMeta) Display() string {
	if t.Symbol != "" {
		return t.Symbol
	}
	return t.Address
}
