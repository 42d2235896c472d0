// internal/adapters/redis_adapter/settings_cache.go
package redis_a

import (
	"context"
	"log/slog"
	"time"

	"warebridge/internal/core/domain"
	"warebridge/internal/core/ports"
)

const settingsCacheKey = "snapshot"

// CachedSettingsProvider serves settings snapshots through the cache with
// a bounded TTL. A stale snapshot is acceptable for the TTL window; a
// broken cache falls through to the inner provider.
type CachedSettingsProvider struct {
	inner  ports.SettingsProvider
	cache  ports.CacheRepository
	ttl    time.Duration
	logger *slog.Logger
}

var _ ports.SettingsProvider = (*CachedSettingsProvider)(nil)

func NewCachedSettingsProvider(inner ports.SettingsProvider, cache ports.CacheRepository, ttl time.Duration, logger *slog.Logger) *CachedSettingsProvider {
	return &CachedSettingsProvider{
		inner:  inner,
		cache:  cache,
		ttl:    ttl,
		logger: logger.With(slog.String("component", "settings_cache")),
	}
}

func (p *CachedSettingsProvider) Snapshot(ctx context.Context) (domain.Settings, error) {
	key := BuildKey(PrefixSettings, settingsCacheKey)

	var settings domain.Settings
	err := p.cache.GetOrSet(ctx, key, &settings, func() (interface{}, error) {
		fresh, err := p.inner.Snapshot(ctx)
		if err != nil {
			return nil, err
		}
		return fresh, nil
	}, p.ttl)
	if err == nil {
		return settings, nil
	}

	p.logger.WarnContext(ctx, "settings cache unavailable, reading store directly", "err", err)
	return p.inner.Snapshot(ctx)
}

// Invalidate drops the cached snapshot so the next request re-reads the
// store.
func (p *CachedSettingsProvider) Invalidate(ctx context.Context) error {
	return p.cache.Delete(ctx, BuildKey(PrefixSettings, settingsCacheKey))
}
