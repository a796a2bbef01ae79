package model

// Pool is a pool composition record for the metadata registry.
type Pool struct {
	ChainID    uint64   `json:"chain_id"`
	Address    string   `json:"address"`
	Kind       PoolKind `json:"kind"`
	Token0     string   `json:"token0"`
	Token1     string   `json:"token1"`
	Fee        uint32   `json:"fee"`
	ResolvedAt string   `json:"resolved_at"`
}
