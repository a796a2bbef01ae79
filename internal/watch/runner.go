package watch

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"priceScope/internal/chain"
	"priceScope/internal/dex"
	"priceScope/internal/metrics"
	"priceScope/internal/model"
	"priceScope/internal/pricemath"
)

// RunConfig holds runtime settings for the watch loop.
type RunConfig struct {
	Pool         common.Address
	Token0       common.Address
	Token1       common.Address
	Policy       pricemath.Policy
	PollInterval time.Duration
	MaxBlocks    uint64
	MaxRetries   int
	RetryBackoff time.Duration
}

// Runner follows one pool and emits a price point per new head.
type Runner struct {
	cfg      RunConfig
	chain    *chain.Client
	resolver *dex.Resolver
	sink     Sink
	metrics  *metrics.Metrics
	logger   *zap.Logger

	lastBlock uint64
	emitted   uint64
}

// NewRunner builds a Runner with its dependencies. metrics may be nil.
func NewRunner(cfg RunConfig, chainClient *chain.Client, resolver *dex.Resolver, sink Sink, m *metrics.Metrics, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		cfg:      cfg,
		chain:    chainClient,
		resolver: resolver,
		sink:     sink,
		metrics:  m,
		logger:   logger,
	}
}

// Run executes the watch loop until the context is cancelled or the
// configured block limit is reached.
func (r *Runner) Run(ctx context.Context) error {
	if r.chain == nil {
		return fmt.Errorf("chain client is nil")
	}
	if r.resolver == nil {
		return fmt.Errorf("resolver is nil")
	}
	if r.sink == nil {
		return fmt.Errorf("sink is nil")
	}

	chainID, err := r.chain.GetChainID(ctx)
	if err != nil {
		return fmt.Errorf("get chain id: %w", err)
	}
	if !chainID.IsUint64() {
		return fmt.Errorf("chain id does not fit in uint64: %s", chainID)
	}
	chainIDValue := chainID.Uint64()

	meta, err := r.resolveMeta(ctx)
	if err != nil {
		return fmt.Errorf("resolve pool: %w", err)
	}

	r.logger.Info("watching pool",
		zap.String("pool", meta.Address),
		zap.String("kind", string(meta.Kind)),
		zap.String("token0", meta.Token0.Display()),
		zap.String("token1", meta.Token1.Display()),
		zap.String("policy", string(r.cfg.Policy)))

	heads := make(chan *types.Header, 16)
	sub, err := r.chain.SubscribeNewHeads(ctx, heads)
	if err != nil {
		r.logger.Info("head subscription unavailable, polling",
			zap.Error(err), zap.Duration("poll_interval", r.cfg.PollInterval))
		return r.pollLoop(ctx, chainIDValue, meta)
	}
	defer func() { sub.Unsubscribe() }()

	r.metrics.SetSubscribed(true)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case subErr := <-sub.Err():
			r.logger.Warn("head subscription dropped", zap.Error(subErr))
			r.metrics.SetSubscribed(false)
			sub.Unsubscribe()
			next, err := r.resubscribe(ctx, heads)
			if err != nil {
				return fmt.Errorf("resubscribe heads: %w", err)
			}
			sub = next
			r.metrics.SetSubscribed(true)
		case head := <-heads:
			if head == nil || head.Number == nil || !head.Number.IsUint64() {
				continue
			}
			done, err := r.process(ctx, chainIDValue, meta, head.Number.Uint64(), head.Time)
			if err != nil {
				return err
			}
			if done {
				return nil
			}
		}
	}
}

// pollLoop samples the chain tip when the transport cannot subscribe.
func (r *Runner) pollLoop(ctx context.Context, chainID uint64, meta model.PoolMeta) error {
	r.metrics.SetSubscribed(false)

	interval := r.cfg.PollInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		latest, err := r.latestWithRetry(ctx)
		if err != nil {
			return fmt.Errorf("get latest block: %w", err)
		}
		if latest <= r.lastBlock {
			continue
		}

		header, err := r.headerWithRetry(ctx, latest)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			r.metrics.RecordComputeError()
			r.logger.Error("header fetch failed, skipping block", zap.Error(err), zap.Uint64("block_number", latest))
			continue
		}

		done, err := r.process(ctx, chainID, meta, latest, header.Time)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
}

// process fetches reserves at one head and emits the resulting point.
// The bool result reports that the block limit has been reached.
func (r *Runner) process(ctx context.Context, chainID uint64, meta model.PoolMeta, block uint64, timestamp uint64) (bool, error) {
	if block <= r.lastBlock && r.lastBlock != 0 {
		r.logger.Debug("stale head", zap.Uint64("block_number", block), zap.Uint64("last_block", r.lastBlock))
		return false, nil
	}
	r.lastBlock = block
	r.metrics.RecordHead(block)

	started := time.Now()
	reserves, slot0, err := r.fetchWithRetry(ctx, meta, block)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return false, err
		}
		r.metrics.RecordComputeError()
		r.logger.Error("reserve fetch failed, skipping block", zap.Error(err), zap.Uint64("block_number", block))
		return false, nil
	}

	point, err := BuildPoint(chainID, meta, reserves, timestamp, slot0, r.cfg.Policy)
	if err != nil {
		r.metrics.RecordComputeError()
		r.logger.Error("price computation failed", zap.Error(err), zap.Uint64("block_number", block))
		return false, nil
	}

	if err := r.sink.Emit(point); err != nil {
		return false, fmt.Errorf("emit price point: %w", err)
	}
	r.metrics.RecordPoint(time.Since(started))
	r.emitted++

	r.logger.Info("price point",
		zap.Uint64("block_number", block),
		zap.String("sqrt_price_x96", point.SqrtPriceX96),
		zap.String("ratio", point.Ratio),
		zap.String("reserve_source", point.ReserveSource))

	if r.cfg.MaxBlocks > 0 && r.emitted >= r.cfg.MaxBlocks {
		r.logger.Info("max blocks processed", zap.Uint64("blocks", r.emitted))
		return true, nil
	}
	return false, nil
}

func (r *Runner) resolveMeta(ctx context.Context) (model.PoolMeta, error) {
	zero := common.Address{}
	if r.cfg.Token0 != zero && r.cfg.Token1 != zero {
		return r.resolver.ResolvePoolWithTokens(ctx, r.cfg.Pool, r.cfg.Token0, r.cfg.Token1)
	}
	return r.resolver.ResolvePool(ctx, r.cfg.Pool)
}

func (r *Runner) fetchWithRetry(ctx context.Context, meta model.PoolMeta, block uint64) (model.Reserves, *model.PoolSlot0, error) {
	var reserves model.Reserves
	var slot0 *model.PoolSlot0
	err := withRetry(ctx, r.cfg.MaxRetries, r.cfg.RetryBackoff, r.metrics.RecordFetchRetry, func(ctx context.Context) error {
		var err error
		reserves, err = dex.FetchReserves(ctx, r.chain, meta, block, r.logger)
		if err != nil {
			r.logger.Warn("reserve fetch failed", zap.Error(err), zap.Uint64("block_number", block))
			return err
		}

		slot0 = nil
		if meta.Kind == model.PoolKindV3 {
			slot0, err = dex.FetchSlot0(ctx, r.chain, r.cfg.Pool, block)
			if err != nil {
				r.logger.Warn("slot0 fetch failed", zap.Error(err), zap.Uint64("block_number", block))
				slot0 = nil
			}
		}
		return nil
	})
	return reserves, slot0, err
}

func (r *Runner) resubscribe(ctx context.Context, heads chan *types.Header) (ethereum.Subscription, error) {
	var sub ethereum.Subscription
	err := withRetry(ctx, r.cfg.MaxRetries, r.cfg.RetryBackoff, r.metrics.RecordFetchRetry, func(ctx context.Context) error {
		var err error
		sub, err = r.chain.SubscribeNewHeads(ctx, heads)
		if err != nil {
			r.logger.Warn("subscribe heads failed", zap.Error(err))
		}
		return err
	})
	return sub, err
}

func (r *Runner) latestWithRetry(ctx context.Context) (uint64, error) {
	var latest uint64
	err := withRetry(ctx, r.cfg.MaxRetries, r.cfg.RetryBackoff, r.metrics.RecordFetchRetry, func(ctx context.Context) error {
		var err error
		latest, err = r.chain.LatestBlockNumber(ctx)
		if err != nil {
			r.logger.Warn("latest block fetch failed", zap.Error(err))
		}
		return err
	})
	return latest, err
}

func (r *Runner) headerWithRetry(ctx context.Context, blockNumber uint64) (*types.Header, error) {
	var header *types.Header
	err := withRetry(ctx, r.cfg.MaxRetries, r.cfg.RetryBackoff, r.metrics.RecordFetchRetry, func(ctx context.Context) error {
		var err error
		header, err = r.chain.HeaderByNumber(ctx, new(big.Int).SetUint64(blockNumber))
		if err != nil {
			r.logger.Warn("header fetch failed", zap.Error(err), zap.Uint64("block_number", blockNumber))
		}
		return err
	})
	return header, err
}
