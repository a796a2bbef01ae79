package watch

import (
	"fmt"
	"math/big"
	"time"

	"priceScope/internal/model"
	"priceScope/internal/pricemath"
)

// BuildPoint computes one price point from reserves fetched at a block.
// slot0 carries the pool's own reported price when available.
func BuildPoint(chainID uint64, meta model.PoolMeta, reserves model.Reserves, timestamp uint64, slot0 *model.PoolSlot0, policy pricemath.Policy) (model.PricePoint, error) {
	sqrtPrice, err := pricemath.SqrtPriceX96(reserves.Reserve0, reserves.Reserve1, meta.Token0.Decimals, meta.Token1.Decimals, policy)
	if err != nil {
		return model.PricePoint{}, fmt.Errorf("compute sqrt price: %w", err)
	}

	ratio, err := pricemath.Ratio(reserves.Reserve0, reserves.Reserve1, meta.Token0.Decimals, meta.Token1.Decimals)
	if err != nil {
		return model.PricePoint{}, fmt.Errorf("compute ratio: %w", err)
	}

	return model.PricePoint{
		ChainID:       chainID,
		Pool:          meta.Address,
		Kind:          meta.Kind,
		BlockNumber:   reserves.BlockNumber,
		Timestamp:     timestamp,
		Token0:        meta.Token0.Address,
		Token1:        meta.Token1.Address,
		Symbol0:       meta.Token0.Symbol,
		Symbol1:       meta.Token1.Symbol,
		Reserve0:      bigString(reserves.Reserve0),
		Reserve1:      bigString(reserves.Reserve1),
		Decimals0:     meta.Token0.Decimals,
		Decimals1:     meta.Token1.Decimals,
		Amount0:       pricemath.FormatAmount(reserves.Reserve0, meta.Token0.Decimals),
		Amount1:       pricemath.FormatAmount(reserves.Reserve1, meta.Token1.Decimals),
		Ratio:         pricemath.FormatRatio(ratio),
		Policy:        string(policy),
		SqrtPriceX96:  sqrtPrice.String(),
		SqrtPriceHex:  pricemath.FormatHex(sqrtPrice),
		ReserveSource: reserves.Source,
		Slot0:         slot0,
		ComputedAt:    time.Now().UTC().Format(time.RFC3339Nano),
	}, nil
}

func bigString(value *big.Int) string {
	if value == nil {
		return "0"
	}
	return value.String()
}
