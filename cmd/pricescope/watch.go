package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"priceScope/internal/chain"
	"priceScope/internal/config"
	"priceScope/internal/dex"
	"priceScope/internal/metrics"
	"priceScope/internal/pricemath"
	"priceScope/internal/watch"
)

func runWatch(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadWatch(cfgFile, cmd.Flags())
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

	runCfg := watch.RunConfig{
		Pool:         common.HexToAddress(cfg.Pool),
		Policy:       policy,
		PollInterval: cfg.PollInterval,
		MaxBlocks:    cfg.MaxBlocks,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
	}
	if cfg.Token0 != "" && cfg.Token1 != "" {
		if !common.IsHexAddress(cfg.Token0) {
			return fmt.Errorf("invalid token0 address: %q", cfg.Token0)
		}
		if !common.IsHexAddress(cfg.Token1) {
			return fmt.Errorf("invalid token1 address: %q", cfg.Token1)
		}
		runCfg.Token0 = common.HexToAddress(cfg.Token0)
		runCfg.Token1 = common.HexToAddress(cfg.Token1)
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

	var m *metrics.Metrics
	if cfg.MetricsPort > 0 {
		m = metrics.New()
		m.StartServer(logger, cfg.MetricsPort, cfg.MetricsPath)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := m.Shutdown(shutdownCtx); err != nil {
				logger.Warn("metrics shutdown failed", zap.Error(err))
			}
		}()
	}

	sink := watch.NewEmitter(cmd.OutOrStdout())
	runner := watch.NewRunner(runCfg, chainClient, resolver, sink, m, logger)

	logger.Info("watch start",
		zap.String("rpc", cfg.RPCURL),
		zap.String("pool", cfg.Pool),
		zap.String("policy", string(policy)),
		zap.Duration("poll_interval", cfg.PollInterval),
		zap.Uint64("max_blocks", cfg.MaxBlocks),
		zap.Int("metrics_port", cfg.MetricsPort),
		zap.String("cache_db", cfg.CacheDB),
		zap.String("pg_dsn", redactDSN(cfg.PGDSN)),
	)

	if err := runner.Run(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Info("watch stopped")
			return nil
		}
		return err
	}

	return nil
}
