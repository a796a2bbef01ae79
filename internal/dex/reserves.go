package dex

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"priceScope/internal/model"
)

// FetchReserves reads a pool's raw reserves at the given block height.
// V2 pairs report both reserves through getReserves; every other kind is
// read as token balances held by the pool, falling back to the latest
// block when the requested height is not served.
func FetchReserves(ctx context.Context, caller ContractCaller, meta model.PoolMeta, blockNumber uint64, logger *zap.Logger) (model.Reserves, error) {
	if caller == nil {
		return model.Reserves{}, fmt.Errorf("contract caller is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	var blockPtr *big.Int
	if blockNumber > 0 {
		blockPtr = new(big.Int).SetUint64(blockNumber)
	}

	if meta.Kind == model.PoolKindV2 {
		return fetchPairReserves(ctx, caller, meta, blockNumber, blockPtr)
	}
	return fetchBalanceReserves(ctx, caller, meta, blockNumber, blockPtr, logger)
}

func fetchPairReserves(ctx context.Context, caller ContractCaller, meta model.PoolMeta, blockNumber uint64, blockPtr *big.Int) (model.Reserves, error) {
	pairABI, err := V2PairABI()
	if err != nil {
		return model.Reserves{}, fmt.Errorf("parse pair abi: %w", err)
	}

	pool := common.HexToAddress(meta.Address)
	values, err := callMethod(ctx, caller, pool, pairABI, "getReserves", blockPtr)
	if err != nil {
		return model.Reserves{}, err
	}
	if len(values) < 2 {
		return model.Reserves{}, fmt.Errorf("getReserves return size %d", len(values))
	}
	reserve0, err := asBigInt(values[0])
	if err != nil {
		return model.Reserves{}, fmt.Errorf("reserve0: %w", err)
	}
	reserve1, err := asBigInt(values[1])
	if err != nil {
		return model.Reserves{}, fmt.Errorf("reserve1: %w", err)
	}

	return model.Reserves{
		BlockNumber: blockNumber,
		Reserve0:    reserve0,
		Reserve1:    reserve1,
		Source:      model.ReserveSourcePair,
	}, nil
}

func fetchBalanceReserves(ctx context.Context, caller ContractCaller, meta model.PoolMeta, blockNumber uint64, blockPtr *big.Int, logger *zap.Logger) (model.Reserves, error) {
	pool := common.HexToAddress(meta.Address)
	token0 := common.HexToAddress(meta.Token0.Address)
	token1 := common.HexToAddress(meta.Token1.Address)

	bal0, err0 := balanceOf(ctx, caller, token0, pool, blockPtr)
	bal1, err1 := balanceOf(ctx, caller, token1, pool, blockPtr)
	if err0 == nil && err1 == nil {
		return model.Reserves{
			BlockNumber: blockNumber,
			Reserve0:    bal0,
			Reserve1:    bal1,
			Source:      model.ReserveSourceBalances,
		}, nil
	}

	if blockPtr == nil {
		if err0 != nil {
			return model.Reserves{}, err0
		}
		return model.Reserves{}, err1
	}

	// The node may not serve state at the requested height.
	logger.Warn("balance read at block failed, retrying latest",
		zap.Uint64("block", blockNumber),
		zap.Error(firstError(err0, err1)))

	bal0, err0 = balanceOf(ctx, caller, token0, pool, nil)
	if err0 != nil {
		return model.Reserves{}, err0
	}
	bal1, err1 = balanceOf(ctx, caller, token1, pool, nil)
	if err1 != nil {
		return model.Reserves{}, err1
	}
	return model.Reserves{
		BlockNumber: blockNumber,
		Reserve0:    bal0,
		Reserve1:    bal1,
		Source:      model.ReserveSourceBalancesLatest,
	}, nil
}

func balanceOf(ctx context.Context, caller ContractCaller, token common.Address, owner common.Address, blockNumber *big.Int) (*big.Int, error) {
	erc20ABI, err := erc20ABIStringInstance()
	if err != nil {
		return nil, fmt.Errorf("parse erc20 abi: %w", err)
	}

	values, err := callMethod(ctx, caller, token, erc20ABI, "balanceOf", blockNumber, owner)
	if err != nil {
		return nil, err
	}
	if len(values) != 1 {
		return nil, fmt.Errorf("balanceOf return size %d", len(values))
	}
	balance, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("balanceOf unexpected type %T", values[0])
	}
	return balance, nil
}

func firstError(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
