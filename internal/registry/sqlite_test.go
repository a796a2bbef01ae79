package registry

import (
	"context"
	"reflect"
	"testing"

	"priceScope/internal/model"
)

func TestSQLiteStoreTokens(t *testing.T) {
	store, err := OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	address := "0xbb4CdB9CBd36B01bD1cBaEBF2De08d9173bc095c"

	if _, ok, err := store.GetToken(ctx, 56, address); err != nil || ok {
		t.Fatalf("empty store lookup: ok=%v err=%v", ok, err)
	}

	token := model.TokenMeta{Address: address, Decimals: 18, Symbol: "WBNB", Name: "Wrapped BNB"}
	if err := store.UpsertTokens(ctx, 56, []model.TokenMeta{token}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, ok, err := store.GetToken(ctx, 56, address)
	if err != nil || !ok {
		t.Fatalf("lookup after upsert: ok=%v err=%v", ok, err)
	}
	if !reflect.DeepEqual(got, token) {
		t.Fatalf("token mismatch: %+v != %+v", got, token)
	}

	// Same address on another chain is a different token.
	if _, ok, err := store.GetToken(ctx, 1, address); err != nil || ok {
		t.Fatalf("chain isolation: ok=%v err=%v", ok, err)
	}

	token.Symbol = "WBNB2"
	if err := store.UpsertTokens(ctx, 56, []model.TokenMeta{token}); err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	got, _, err = store.GetToken(ctx, 56, address)
	if err != nil || got.Symbol != "WBNB2" {
		t.Fatalf("upsert did not update: %+v err=%v", got, err)
	}
}

func TestSQLiteStorePools(t *testing.T) {
	store, err := OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	pool := model.Pool{
		ChainID:    56,
		Address:    "0x36696169C63e42cd08ce11f5deeBbCeBae652050",
		Kind:       model.PoolKindV3,
		Token0:     "0xbb4CdB9CBd36B01bD1cBaEBF2De08d9173bc095c",
		Token1:     "0x55d398326f99059fF775485246999027B3197955",
		Fee:        500,
		ResolvedAt: "2024-01-01T00:00:00Z",
	}

	if _, ok, err := store.GetPool(ctx, 56, pool.Address); err != nil || ok {
		t.Fatalf("empty store lookup: ok=%v err=%v", ok, err)
	}

	if err := store.UpsertPools(ctx, []model.Pool{pool}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, ok, err := store.GetPool(ctx, 56, pool.Address)
	if err != nil || !ok {
		t.Fatalf("lookup after upsert: ok=%v err=%v", ok, err)
	}
	if !reflect.DeepEqual(got, pool) {
		t.Fatalf("pool mismatch: %+v != %+v", got, pool)
	}

	pool.Kind = model.PoolKindV2
	pool.Fee = 0
	if err := store.UpsertPools(ctx, []model.Pool{pool}); err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	got, _, err = store.GetPool(ctx, 56, pool.Address)
	if err != nil || got.Kind != model.PoolKindV2 {
		t.Fatalf("upsert did not update: %+v err=%v", got, err)
	}
}
