package main

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"priceScope/internal/config"
	"priceScope/internal/pricemath"
	"priceScope/internal/registry"
)

func main() {
	// .env provides PRICESCOPE_* values when present.
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:          "pricescope",
		Short:        "AMM pool sqrt-price encoder",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	encodeCmd := &cobra.Command{
		Use:   "encode",
		Short: "Encode a pair of reserves into sqrtPriceX96",
		RunE:  runEncode,
	}

	encodeCmd.Flags().String("reserve0", "", "token0 raw reserve (decimal integer)")
	encodeCmd.Flags().String("reserve1", "", "token1 raw reserve (decimal integer)")
	encodeCmd.Flags().Int("decimals0", 18, "token0 decimals")
	encodeCmd.Flags().Int("decimals1", 18, "token1 decimals")
	encodeCmd.Flags().String("policy", "exact", "precision policy (exact, float64)")
	encodeCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(encodeCmd)

	poolCmd := &cobra.Command{
		Use:   "pool",
		Short: "Read reserves from a pool and encode its sqrtPriceX96",
		RunE:  runPool,
	}

	poolCmd.Flags().String("rpc", "", "RPC URL")
	poolCmd.Flags().String("pool", "", "pool contract address")
	poolCmd.Flags().String("token0", "", "token0 address (skips on-chain discovery)")
	poolCmd.Flags().String("token1", "", "token1 address (skips on-chain discovery)")
	poolCmd.Flags().Uint64("block", 0, "block number, 0 means latest")
	poolCmd.Flags().String("policy", "exact", "precision policy (exact, float64)")
	poolCmd.Flags().String("cache-db", "", "SQLite metadata cache path")
	poolCmd.Flags().String("pg-dsn", "", "Postgres metadata registry DSN")
	poolCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(poolCmd)

	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow a pool and emit a price point per new block",
		RunE:  runWatch,
	}

	watchCmd.Flags().String("rpc", "", "RPC URL")
	watchCmd.Flags().String("pool", "", "pool contract address")
	watchCmd.Flags().String("token0", "", "token0 address (skips on-chain discovery)")
	watchCmd.Flags().String("token1", "", "token1 address (skips on-chain discovery)")
	watchCmd.Flags().String("policy", "exact", "precision policy (exact, float64)")
	watchCmd.Flags().Duration("poll-interval", 5*time.Second, "tip polling interval when heads cannot be subscribed")
	watchCmd.Flags().Uint64("max-blocks", 0, "stop after this many blocks, 0 means run until interrupted")
	watchCmd.Flags().Int("max-retries", 5, "maximum retry attempts")
	watchCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	watchCmd.Flags().Int("metrics-port", 0, "Prometheus metrics port, 0 disables the endpoint")
	watchCmd.Flags().String("metrics-path", "/metrics", "Prometheus metrics path")
	watchCmd.Flags().String("cache-db", "", "SQLite metadata cache path")
	watchCmd.Flags().String("pg-dsn", "", "Postgres metadata registry DSN")
	watchCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(watchCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runEncode(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.Reserve0 == "" {
		return fmt.Errorf("reserve0 is required")
	}
	if cfg.Reserve1 == "" {
		return fmt.Errorf("reserve1 is required")
	}

	reserve0, ok := new(big.Int).SetString(cfg.Reserve0, 10)
	if !ok {
		return fmt.Errorf("invalid reserve0: %q", cfg.Reserve0)
	}
	reserve1, ok := new(big.Int).SetString(cfg.Reserve1, 10)
	if !ok {
		return fmt.Errorf("invalid reserve1: %q", cfg.Reserve1)
	}

	policy, err := pricemath.ParsePolicy(cfg.Policy)
	if err != nil {
		return err
	}

	sqrtPrice, err := pricemath.SqrtPriceX96(reserve0, reserve1, cfg.Decimals0, cfg.Decimals1, policy)
	if err != nil {
		return err
	}

	ratio, err := pricemath.Ratio(reserve0, reserve1, cfg.Decimals0, cfg.Decimals1)
	if err != nil {
		return err
	}
	logger.Debug("normalized input",
		zap.String("amount0", pricemath.FormatAmount(reserve0, cfg.Decimals0)),
		zap.String("amount1", pricemath.FormatAmount(reserve1, cfg.Decimals1)),
		zap.String("ratio", pricemath.FormatRatio(ratio)),
		zap.String("policy", string(policy)),
	)

	fmt.Fprintf(cmd.OutOrStdout(), "sqrtPriceX96: %s\n", sqrtPrice.String())
	fmt.Fprintf(cmd.OutOrStdout(), "sqrtPriceX96 (hex): %s\n", pricemath.FormatHex(sqrtPrice))

	return nil
}

// openStore selects the metadata registry backend, nil when neither flag is set.
func openStore(ctx context.Context, cacheDB, pgDSN string) (registry.Store, error) {
	if cacheDB != "" && pgDSN != "" {
		return nil, fmt.Errorf("cache-db and pg-dsn are mutually exclusive")
	}

	if pgDSN != "" {
		store, err := registry.OpenPostgres(ctx, pgDSN)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		return store, nil
	}

	if cacheDB != "" {
		store, err := registry.OpenSQLite(cacheDB)
		if err != nil {
			return nil, fmt.Errorf("open cache db: %w", err)
		}
		return store, nil
	}

	return nil, nil
}

func redactDSN(dsn string) string {
	if dsn == "" {
		return dsn
	}
	return "***"
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
