package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"priceScope/internal/chain"
	"priceScope/internal/config"
	"priceScope/internal/dex"
	"priceScope/internal/model"
	"priceScope/internal/pricemath"
	"priceScope/internal/watch"
)

func runPool(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadPool(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.RPCURL == "" {
		return fmt.Errorf("rpc url is required")
	}
	if cfg.Pool == "" {
		return fmt.Errorf("pool address is required")
	}
	if !common.IsHexAddress(cfg.Pool) {
		return fmt.Errorf("invalid pool address: %q", cfg.Pool)
	}

	policy, err := pricemath.ParsePolicy(cfg.Policy)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	chainID, err := chainClient.GetChainID(ctx)
	if err != nil {
		return fmt.Errorf("get chain id: %w", err)
	}
	if !chainID.IsUint64() {
		return fmt.Errorf("chain id does not fit in uint64: %s", chainID)
	}

	store, err := openStore(ctx, cfg.CacheDB, cfg.PGDSN)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	var metaStore dex.MetaStore
	if store != nil {
		metaStore = store
	}
	resolver := dex.NewResolver(chainClient, chainID.Uint64(), metaStore, logger)

	logger.Info("pool start",
		zap.String("rpc", cfg.RPCURL),
		zap.String("pool", cfg.Pool),
		zap.Uint64("block", cfg.Block),
		zap.String("policy", string(policy)),
		zap.String("cache_db", cfg.CacheDB),
		zap.String("pg_dsn", redactDSN(cfg.PGDSN)),
	)

	pool := common.HexToAddress(cfg.Pool)
	var meta model.PoolMeta
	if cfg.Token0 != "" && cfg.Token1 != "" {
		if !common.IsHexAddress(cfg.Token0) {
			return fmt.Errorf("invalid token0 address: %q", cfg.Token0)
		}
		if !common.IsHexAddress(cfg.Token1) {
			return fmt.Errorf("invalid token1 address: %q", cfg.Token1)
		}
		meta, err = resolver.ResolvePoolWithTokens(ctx, pool, common.HexToAddress(cfg.Token0), common.HexToAddress(cfg.Token1))
	} else {
		meta, err = resolver.ResolvePool(ctx, pool)
	}
	if err != nil {
		return fmt.Errorf("resolve pool: %w", err)
	}

	logger.Info("pool resolved",
		zap.String("pool", meta.Address),
		zap.String("kind", string(meta.Kind)),
		zap.String("token0", meta.Token0.Display()),
		zap.String("token1", meta.Token1.Display()),
	)

	blockNumber := cfg.Block
	if blockNumber == 0 {
		latest, err := chainClient.LatestBlockNumber(ctx)
		if err != nil {
			return fmt.Errorf("get latest block: %w", err)
		}
		blockNumber = latest
	}

	header, err := chainClient.HeaderByNumber(ctx, new(big.Int).SetUint64(blockNumber))
	if err != nil {
		return fmt.Errorf("get header %d: %w", blockNumber, err)
	}

	reserves, err := dex.FetchReserves(ctx, chainClient, meta, blockNumber, logger)
	if err != nil {
		return fmt.Errorf("fetch reserves: %w", err)
	}

	var slot0 *model.PoolSlot0
	if meta.Kind == model.PoolKindV3 {
		slot0, err = dex.FetchSlot0(ctx, chainClient, pool, blockNumber)
		if err != nil {
			logger.Warn("slot0 fetch failed", zap.Error(err), zap.Uint64("block_number", blockNumber))
			slot0 = nil
		}
	}

	point, err := watch.BuildPoint(chainID.Uint64(), meta, reserves, header.Time, slot0, policy)
	if err != nil {
		return fmt.Errorf("compute price: %w", err)
	}

	if slot0 != nil {
		logger.Info("slot0 comparison",
			zap.String("computed_sqrt_price_x96", point.SqrtPriceX96),
			zap.String("onchain_sqrt_price_x96", slot0.SqrtPriceX96),
			zap.Int32("onchain_tick", slot0.Tick),
		)
	}

	encoded, err := json.MarshalIndent(point, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal price point: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(encoded))

	return nil
}
