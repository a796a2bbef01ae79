package model

import "math/big"

// Reserve snapshot sources.
const (
	// ReserveSourcePair means the pair contract reported both reserves
	// in one getReserves() call.
	ReserveSourcePair = "pair"
	// ReserveSourceBalances means each reserve is the pool's balanceOf
	// on the corresponding token contract.
	ReserveSourceBalances = "balances"
	// ReserveSourceBalancesLatest marks balance reads that fell back to
	// the latest block after the requested height was unavailable.
	ReserveSourceBalancesLatest = "balances_latest"
)

// Reserves is a point-in-time snapshot of a pool's raw token reserves.
type Reserves struct {
	BlockNumber uint64
	Reserve0    *big.Int
	Reserve1    *big.Int
	Source      string
}
