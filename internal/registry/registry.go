// Package registry caches pool and token metadata between runs. Decimals
// and pool composition are immutable chain facts, so cached entries never
// need revalidation.
package registry

import (
	"context"

	"priceScope/internal/model"
)

// Store persists pool and token metadata.
type Store interface {
	GetToken(ctx context.Context, chainID uint64, address string) (model.TokenMeta, bool, error)
	UpsertTokens(ctx context.Context, chainID uint64, tokens []model.TokenMeta) error
	GetPool(ctx context.Context, chainID uint64, address string) (model.Pool, bool, error)
	UpsertPools(ctx context.Context, pools []model.Pool) error
	Close() error
}
