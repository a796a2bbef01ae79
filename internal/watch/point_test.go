package watch

import (
	"errors"
	"math/big"
	"testing"

	"priceScope/internal/model"
	"priceScope/internal/pricemath"
)

func testPoolMeta() model.PoolMeta {
	return model.PoolMeta{
		Address: "0x1111111111111111111111111111111111111111",
		Kind:    model.PoolKindV2,
		Token0: model.TokenMeta{
			Address:  "0x2222222222222222222222222222222222222222",
			Decimals: 6,
			Symbol:   "USDC",
		},
		Token1: model.TokenMeta{
			Address:  "0x3333333333333333333333333333333333333333",
			Decimals: 18,
			Symbol:   "WETH",
		},
	}
}

func TestBuildPoint(t *testing.T) {
	meta := testPoolMeta()
	reserve1, ok := new(big.Int).SetString("473600000000000000000", 10)
	if !ok {
		t.Fatalf("parse reserve1")
	}
	reserves := model.Reserves{
		BlockNumber: 19000000,
		Reserve0:    big.NewInt(6300000),
		Reserve1:    reserve1,
		Source:      model.ReserveSourcePair,
	}

	point, err := BuildPoint(1, meta, reserves, 1700000000, nil, pricemath.PolicyExact)
	if err != nil {
		t.Fatalf("BuildPoint returned error: %v", err)
	}

	if point.ChainID != 1 {
		t.Fatalf("unexpected chain id %d", point.ChainID)
	}
	if point.Pool != meta.Address {
		t.Fatalf("unexpected pool %q", point.Pool)
	}
	if point.Kind != model.PoolKindV2 {
		t.Fatalf("unexpected kind %q", point.Kind)
	}
	if point.BlockNumber != 19000000 {
		t.Fatalf("unexpected block %d", point.BlockNumber)
	}
	if point.Timestamp != 1700000000 {
		t.Fatalf("unexpected timestamp %d", point.Timestamp)
	}
	if point.Symbol0 != "USDC" || point.Symbol1 != "WETH" {
		t.Fatalf("unexpected symbols %q/%q", point.Symbol0, point.Symbol1)
	}
	if point.Reserve0 != "6300000" {
		t.Fatalf("unexpected reserve0 %q", point.Reserve0)
	}
	if point.Amount0 != "6.300000" {
		t.Fatalf("unexpected amount0 %q", point.Amount0)
	}
	if point.Amount1 != "473.600000000000000000" {
		t.Fatalf("unexpected amount1 %q", point.Amount1)
	}
	if point.Ratio != "75.174603174603174603" {
		t.Fatalf("unexpected ratio %q", point.Ratio)
	}
	if point.Policy != "exact" {
		t.Fatalf("unexpected policy %q", point.Policy)
	}
	if point.SqrtPriceX96 != "686934226869142594926762539696" {
		t.Fatalf("unexpected sqrt price %q", point.SqrtPriceX96)
	}
	if point.SqrtPriceHex != "0x8ab9aacb04f0980096a283ab0" {
		t.Fatalf("unexpected hex %q", point.SqrtPriceHex)
	}
	if point.ReserveSource != model.ReserveSourcePair {
		t.Fatalf("unexpected reserve source %q", point.ReserveSource)
	}
	if point.Slot0 != nil {
		t.Fatalf("expected no slot0")
	}
	if point.ComputedAt == "" {
		t.Fatalf("expected computed_at to be set")
	}
}

func TestBuildPointSlot0Passthrough(t *testing.T) {
	meta := testPoolMeta()
	meta.Kind = model.PoolKindV3
	reserves := model.Reserves{
		BlockNumber: 19000001,
		Reserve0:    big.NewInt(1000),
		Reserve1:    big.NewInt(1000),
		Source:      model.ReserveSourceBalances,
	}
	slot0 := &model.PoolSlot0{SqrtPriceX96: "79228162514264337593543950336", Tick: 0}

	point, err := BuildPoint(1, meta, reserves, 1700000100, slot0, pricemath.PolicyFloat64)
	if err != nil {
		t.Fatalf("BuildPoint returned error: %v", err)
	}
	if point.Slot0 == nil || point.Slot0.SqrtPriceX96 != slot0.SqrtPriceX96 {
		t.Fatalf("slot0 not carried through: %+v", point.Slot0)
	}
	if point.Policy != "float64" {
		t.Fatalf("unexpected policy %q", point.Policy)
	}
}

func TestBuildPointZeroReserve0(t *testing.T) {
	meta := testPoolMeta()
	reserves := model.Reserves{
		BlockNumber: 19000002,
		Reserve0:    big.NewInt(0),
		Reserve1:    big.NewInt(5),
		Source:      model.ReserveSourcePair,
	}

	_, err := BuildPoint(1, meta, reserves, 1700000200, nil, pricemath.PolicyExact)
	if !errors.Is(err, pricemath.ErrZeroReserve0) {
		t.Fatalf("expected ErrZeroReserve0, got %v", err)
	}
}
