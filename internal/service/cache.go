package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"elearning-backend/internal/client"

	"go.uber.org/zap"
)

func orderCacheKey(orderID string) string { return "order:" + orderID }

func userCacheKey(userID string) string { return "user:" + userID }

// cacheGet reports false on a miss or on any cache failure.
func cacheGet[T any](ctx context.Context, cache client.Cache, logger *zap.Logger, key string) (*T, bool) {
	b, err := cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, client.ErrCacheMiss) {
			logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}

	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		logger.Warn("cache entry unreadable", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return &v, true
}

func cacheSet(ctx context.Context, cache client.Cache, logger *zap.Logger, key string, v any, ttl time.Duration) {
	b, err := json.Marshal(v)
	if err != nil {
		logger.Warn("cache encode failed", zap.String("key", key), zap.Error(err))
		return
	}
	if err := cache.Set(ctx, key, b, ttl); err != nil {
		logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
}

func cacheInvalidate(ctx context.Context, cache client.Cache, logger *zap.Logger, keys ...string) {
	if err := cache.Delete(ctx, keys...); err != nil {
		logger.Warn("cache invalidation failed", zap.Strings("keys", keys), zap.Error(err))
	}
}
