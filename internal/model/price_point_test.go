package model

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestPricePointJSONRoundTrip(t *testing.T) {
	original := PricePoint{
		ChainID:       56,
		Pool:          "0x36696169c63e42cd08ce11f5deebbcebae652050",
		Kind:          PoolKindV3,
		BlockNumber:   36000000,
		Timestamp:     1700000000,
		Token0:        "0xbb4cdb9cbd36b01bd1cbaebf2de08d9173bc095c",
		Token1:        "0x55d398326f99059ff775485246999027b3197955",
		Symbol0:       "WBNB",
		Symbol1:       "USDT",
		Reserve0:      "6300000",
		Reserve1:      "473600000000000000000",
		Decimals0:     6,
		Decimals1:     18,
		Amount0:       "6.300000",
		Amount1:       "473.600000000000000000",
		Ratio:         "75.174603174603174603",
		Policy:        "exact",
		SqrtPriceX96:  "686934226869142594926762539696",
		SqrtPriceHex:  "0x8ab9aacb04f0980096a283ab0",
		ReserveSource: ReserveSourceBalances,
		Slot0: &PoolSlot0{
			SqrtPriceX96: "686934226869142594926762539000",
			Tick:         43210,
		},
		ComputedAt: "2024-01-01T00:00:00Z",
	}

	b, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded PricePoint
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	if !reflect.DeepEqual(original, decoded) {
		t.Fatalf("round-trip mismatch: %+v != %+v", original, decoded)
	}
}
