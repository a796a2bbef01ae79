package model

import (
	"encoding/json"
)

// PricePoint is one sqrt-price computation prepared for display.
type PricePoint struct {
	ChainID       uint64     `json:"chain_id"`
	Pool          string     `json:"pool"`
	Kind          PoolKind   `json:"kind"`
	BlockNumber   uint64     `json:"block_number"`
	Timestamp     uint64     `json:"timestamp"`
	Token0        string     `json:"token0"`
	Token1        string     `json:"token1"`
	Symbol0       string     `json:"symbol0,omitempty"`
	Symbol1       string     `json:"symbol1,omitempty"`
	Reserve0      string     `json:"reserve0"`
	Reserve1      string     `json:"reserve1"`
	Decimals0     uint8      `json:"decimals0"`
	Decimals1     uint8      `json:"decimals1"`
	Amount0       string     `json:"amount0"`
	Amount1       string     `json:"amount1"`
	Ratio         string     `json:"ratio"`
	Policy        string     `json:"policy"`
	SqrtPriceX96  string     `json:"sqrt_price_x96"`
	SqrtPriceHex  string     `json:"sqrt_price_x96_hex"`
	ReserveSource string     `json:"reserve_source"`
	Slot0         *PoolSlot0 `json:"slot0,omitempty"`
	ComputedAt    string     `json:"computed_at"`
}

// MarshalJSON ensures PricePoint is encoded with stable field names.
func (pp PricePoint) MarshalJSON() ([]byte, error) {
	type Alias PricePoint
	return json.Marshal(Alias(pp))
}

// UnmarshalJSON decodes a PricePoint from JSON.
func (pp *PricePoint) UnmarshalJSON(data []byte) error {
	type Alias PricePoint
	var a Alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*pp = PricePoint(a)
	return nil
}
