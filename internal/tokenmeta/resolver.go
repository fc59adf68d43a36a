// Package tokenmeta resolves ERC-20 token metadata with an optional Redis
// cache in front of the on-chain reads. Metadata is immutable for nad.fun
// tokens, so long cache TTLs are safe.
package tokenmeta

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/redis/go-redis/v9"

	"github.com/nadfun-trader/internal/logging"
)

// Meta is the resolved metadata for a token.
type Meta struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Decimals uint8  `json:"decimals"`
}

// ChainReader is the on-chain read surface the resolver needs.
type ChainReader interface {
	TokenSymbol(ctx context.Context, token common.Address) (string, error)
	TokenName(ctx context.Context, token common.Address) (string, error)
	TokenDecimals(ctx context.Context, token common.Address) (uint8, error)
}

// Resolver resolves token metadata, caching results when a cache is set.
type Resolver struct {
	chain ChainReader
	cache *RedisCache // nil disables caching
	ttl   time.Duration
}

// NewResolver creates a resolver. cache may be nil.
func NewResolver(chain ChainReader, cache *RedisCache, ttl time.Duration) *Resolver {
	return &Resolver{chain: chain, cache: cache, ttl: ttl}
}

// Resolve returns metadata for a token. Reads that fail fall back to an
// UNKNOWN symbol and 18 decimals rather than failing the caller; a token
// with a broken symbol() is still tradeable.
func (r *Resolver) Resolve(ctx context.Context, token common.Address) Meta {
	logger := logging.FromContext(ctx)

	if meta, ok := r.fromCache(ctx, token); ok {
		return meta
	}

	meta := Meta{Symbol: "UNKNOWN", Decimals: 18}

	if symbol, err := r.chain.TokenSymbol(ctx, token); err == nil && symbol != "" {
		meta.Symbol = symbol
	} else if err != nil {
		logger.WithField("token", token.Hex()).Debug("symbol() read failed, using placeholder")
	}
	if name, err := r.chain.TokenName(ctx, token); err == nil {
		meta.Name = name
	}
	if decimals, err := r.chain.TokenDecimals(ctx, token); err == nil && decimals > 0 {
		meta.Decimals = decimals
	}

	r.toCache(ctx, token, meta)
	return meta
}

func cacheKey(token common.Address) string {
	return fmt.Sprintf("tokenmeta:%s", token.Hex())
}

func (r *Resolver) fromCache(ctx context.Context, token common.Address) (Meta, bool) {
	if r.cache == nil {
		return Meta{}, false
	}

	raw, err := r.cache.Get(ctx, cacheKey(token))
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logging.FromContext(ctx).WithError(err).Debug("token metadata cache read failed")
		}
		return Meta{}, false
	}

	var meta Meta
	if err := json.Unmarshal([]byte(raw), &meta); err != nil {
		return Meta{}, false
	}
	return meta, true
}

func (r *Resolver) toCache(ctx context.Context, token common.Address, meta Meta) {
	if r.cache == nil {
		return
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		return
	}
	if err := r.cache.Set(ctx, cacheKey(token), string(raw), r.ttl); err != nil {
		logging.FromContext(ctx).WithError(err).Debug("token metadata cache write failed")
	}
}
