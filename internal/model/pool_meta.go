package model

// PoolKind identifies how a pool exposes its reserves.
type PoolKind string

const (
	// PoolKindV2 is a constant-product pair read through getReserves().
	PoolKindV2 PoolKind = "v2"
	// PoolKindV3 is a concentrated-liquidity pool; reserves are read as
	// token balances and slot0 carries the pool's own sqrt price.
	PoolKindV3 PoolKind = "v3"
	// PoolKindBalances marks a contract without a pair interface whose
	// reserves are plain token balances.
	PoolKindBalances PoolKind = "balances"
)

// PoolMeta captures a pool's composition with optional live fields.
type PoolMeta struct {
	Address string     `json:"address"`
	Kind    PoolKind   `json:"kind"`
	Token0  TokenMeta  `json:"token0"`
	Token1  TokenMeta  `json:"token1"`
	Fee     uint32     `json:"fee,omitempty"`
	Slot0   *PoolSlot0 `json:"slot0,omitempty"`
}

// PoolSlot0 includes select slot0 fields.
type PoolSlot0 struct {
	SqrtPriceX96 string `json:"sqrt_price_x96"`
	Tick         int32  `json:"tick"`
}
