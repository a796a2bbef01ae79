package dex

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"priceScope/internal/model"
)

// MetaStore persists pool and token metadata between runs.
type MetaStore interface {
	GetToken(ctx context.Context, chainID uint64, address string) (model.TokenMeta, bool, error)
	UpsertTokens(ctx context.Context, chainID uint64, tokens []model.TokenMeta) error
	GetPool(ctx context.Context, chainID uint64, address string) (model.Pool, bool, error)
	UpsertPools(ctx context.Context, pools []model.Pool) error
}

// Resolver loads pool composition, consulting the in-memory cache and the
// optional metadata registry before the chain.
type Resolver struct {
	caller     ContractCaller
	chainID    uint64
	tokenCache *TokenMetaCache
	store      MetaStore
	logger     *zap.Logger
}

// NewResolver creates a resolver. The store may be nil, in which case
// every run resolves from the chain.
func NewResolver(caller ContractCaller, chainID uint64, store MetaStore, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		caller:     caller,
		chainID:    chainID,
		tokenCache: NewTokenMetaCache(),
		store:      store,
		logger:     logger,
	}
}

// ResolvePool discovers a pool's tokens and kind. A V3 pool answers slot0,
// a V2 pair answers getReserves; a contract that answers token0/token1 but
// neither of those is read in balance mode.
func (r *Resolver) ResolvePool(ctx context.Context, pool common.Address) (model.PoolMeta, error) {
	if record, ok := r.lookupPool(ctx, pool); ok {
		return r.metaFromRecord(ctx, record)
	}

	pairABI, err := V2PairABI()
	if err != nil {
		return model.PoolMeta{}, fmt.Errorf("parse pair abi: %w", err)
	}
	poolABI, err := V3PoolABI()
	if err != nil {
		return model.PoolMeta{}, fmt.Errorf("parse pool abi: %w", err)
	}

	values, err := callMethod(ctx, r.caller, pool, pairABI, "token0", nil)
	if err != nil {
		return model.PoolMeta{}, fmt.Errorf("pool %s token0: %w", pool.Hex(), err)
	}
	token0, err := asAddress(values[0])
	if err != nil {
		return model.PoolMeta{}, fmt.Errorf("token0: %w", err)
	}

	values, err = callMethod(ctx, r.caller, pool, pairABI, "token1", nil)
	if err != nil {
		return model.PoolMeta{}, fmt.Errorf("pool %s token1: %w", pool.Hex(), err)
	}
	token1, err := asAddress(values[0])
	if err != nil {
		return model.PoolMeta{}, fmt.Errorf("token1: %w", err)
	}

	meta := model.PoolMeta{Address: pool.Hex()}
	if values, err := callMethod(ctx, r.caller, pool, poolABI, "slot0", nil); err == nil && len(values) >= 2 {
		meta.Kind = model.PoolKindV3
		meta.Slot0 = slot0FromValues(values)
		if feeValues, err := callMethod(ctx, r.caller, pool, poolABI, "fee", nil); err == nil {
			if fee, err := asBigInt(feeValues[0]); err == nil {
				meta.Fee = uint32(fee.Uint64())
			}
		} else {
			r.logger.Debug("fee call failed", zap.String("pool", pool.Hex()), zap.Error(err))
		}
	} else if _, err := callMethod(ctx, r.caller, pool, pairABI, "getReserves", nil); err == nil {
		meta.Kind = model.PoolKindV2
	} else {
		meta.Kind = model.PoolKindBalances
	}

	meta.Token0, meta.Token1, err = r.resolveTokenPair(ctx, token0, token1)
	if err != nil {
		return model.PoolMeta{}, err
	}

	r.persist(ctx, meta)
	return meta, nil
}

// ResolvePoolWithTokens builds balance-mode metadata for a contract whose
// token pair is supplied by the caller instead of discovered on chain.
func (r *Resolver) ResolvePoolWithTokens(ctx context.Context, pool, token0, token1 common.Address) (model.PoolMeta, error) {
	meta := model.PoolMeta{
		Address: pool.Hex(),
		Kind:    model.PoolKindBalances,
	}

	var err error
	meta.Token0, meta.Token1, err = r.resolveTokenPair(ctx, token0, token1)
	if err != nil {
		return model.PoolMeta{}, err
	}

	r.persist(ctx, meta)
	return meta, nil
}

func (r *Resolver) lookupPool(ctx context.Context, pool common.Address) (model.Pool, bool) {
	if r.store == nil {
		return model.Pool{}, false
	}
	record, ok, err := r.store.GetPool(ctx, r.chainID, pool.Hex())
	if err != nil {
		r.logger.Warn("registry pool lookup failed", zap.String("pool", pool.Hex()), zap.Error(err))
		return model.Pool{}, false
	}
	return record, ok
}

func (r *Resolver) metaFromRecord(ctx context.Context, record model.Pool) (model.PoolMeta, error) {
	meta := model.PoolMeta{
		Address: record.Address,
		Kind:    record.Kind,
		Fee:     record.Fee,
	}

	var err error
	meta.Token0, meta.Token1, err = r.resolveTokenPair(ctx, common.HexToAddress(record.Token0), common.HexToAddress(record.Token1))
	if err != nil {
		return model.PoolMeta{}, err
	}
	return meta, nil
}

func (r *Resolver) resolveTokenPair(ctx context.Context, token0, token1 common.Address) (model.TokenMeta, model.TokenMeta, error) {
	var meta0, meta1 model.TokenMeta

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		meta0, err = r.resolveToken(gctx, token0)
		return err
	})
	g.Go(func() error {
		var err error
		meta1, err = r.resolveToken(gctx, token1)
		return err
	})
	if err := g.Wait(); err != nil {
		return model.TokenMeta{}, model.TokenMeta{}, err
	}
	return meta0, meta1, nil
}

func (r *Resolver) resolveToken(ctx context.Context, token common.Address) (model.TokenMeta, error) {
	if meta, ok := r.tokenCache.Get(token); ok {
		return meta, nil
	}

	if r.store != nil {
		meta, ok, err := r.store.GetToken(ctx, r.chainID, token.Hex())
		if err != nil {
			r.logger.Warn("registry token lookup failed", zap.String("token", token.Hex()), zap.Error(err))
		} else if ok {
			r.tokenCache.Set(token, meta)
			return meta, nil
		}
	}

	meta, err := FetchTokenMeta(ctx, r.caller, token, r.logger)
	if err != nil {
		return model.TokenMeta{}, err
	}
	r.tokenCache.Set(token, meta)
	return meta, nil
}

// persist records resolved metadata in the registry; failures only warn.
func (r *Resolver) persist(ctx context.Context, meta model.PoolMeta) {
	if r.store == nil {
		return
	}

	tokens := []model.TokenMeta{meta.Token0, meta.Token1}
	if err := r.store.UpsertTokens(ctx, r.chainID, tokens); err != nil {
		r.logger.Warn("registry token upsert failed", zap.Error(err))
	}

	pool := model.Pool{
		ChainID:    r.chainID,
		Address:    meta.Address,
		Kind:       meta.Kind,
		Token0:     meta.Token0.Address,
		Token1:     meta.Token1.Address,
		Fee:        meta.Fee,
		ResolvedAt: time.Now().UTC().Format(time.RFC3339),
	}
	if err := r.store.UpsertPools(ctx, []model.Pool{pool}); err != nil {
		r.logger.Warn("registry pool upsert failed", zap.Error(err))
	}
}

// FetchSlot0 reads a V3 pool's slot0 at the given height. Zero selects the
// latest block.
func FetchSlot0(ctx context.Context, caller ContractCaller, pool common.Address, blockNumber uint64) (*model.PoolSlot0, error) {
	poolABI, err := V3PoolABI()
	if err != nil {
		return nil, fmt.Errorf("parse pool abi: %w", err)
	}

	var blockPtr *big.Int
	if blockNumber > 0 {
		blockPtr = new(big.Int).SetUint64(blockNumber)
	}
	values, err := callMethod(ctx, caller, pool, poolABI, "slot0", blockPtr)
	if err != nil {
		return nil, err
	}
	slot0 := slot0FromValues(values)
	if slot0 == nil {
		return nil, fmt.Errorf("slot0 unexpected shape")
	}
	return slot0, nil
}

func slot0FromValues(values []interface{}) *model.PoolSlot0 {
	if len(values) < 2 {
		return nil
	}
	sqrtPrice, errSqrt := asBigInt(values[0])
	tickInt, errTick := asBigInt(values[1])
	if errSqrt != nil || errTick != nil {
		return nil
	}
	tick, err := int24FromBig(tickInt)
	if err != nil {
		return nil
	}
	return &model.PoolSlot0{
		SqrtPriceX96: sqrtPrice.String(),
		Tick:         tick,
	}
}
