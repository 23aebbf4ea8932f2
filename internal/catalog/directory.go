package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/shardops/loadshaper/internal/model"
	"go.uber.org/zap"
)

// Directory is the read surface over the shard catalog used by the load
// shaper: lookups go through a TTL cache, listings always hit the store so
// newly registered tenants are discovered promptly.
type Directory struct {
	store    Store
	cache    Cache
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewDirectory creates a new tenant directory
func NewDirectory(store Store, cache Cache, cacheTTL time.Duration, logger *zap.Logger) *Directory {
	return &Directory{
		store:    store,
		cache:    cache,
		cacheTTL: cacheTTL,
		logger:   logger,
	}
}

// GetTenant retrieves a tenant mapping, using cache if available
func (d *Directory) GetTenant(ctx context.Context, tenantKey uint64) (*model.Tenant, error) {
	cacheKey := d.tenantCacheKey(tenantKey)
	if cached, err := d.cache.Get(ctx, cacheKey); err == nil && cached != nil {
		d.logger.Debug("Tenant mapping retrieved from cache",
			zap.Uint64("tenant_key", tenantKey))
		return cached, nil
	}

	d.logger.Debug("Cache miss for tenant, fetching from catalog",
		zap.Uint64("tenant_key", tenantKey))

	tenant, err := d.store.GetTenant(ctx, tenantKey)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch tenant from catalog: %w", err)
	}

	if err := d.cache.Set(ctx, cacheKey, tenant, d.cacheTTL); err != nil {
		d.logger.Warn("Failed to cache tenant mapping",
			zap.Uint64("tenant_key", tenantKey),
			zap.Error(err))
	}

	return tenant, nil
}

// GetTenantByName resolves a tenant by its registered name. Used to match
// the single-tenant override; no cache, the name index lives in the store.
func (d *Directory) GetTenantByName(ctx context.Context, name string) (*model.Tenant, error) {
	return d.store.GetTenantByName(ctx, name)
}

// ListTenants returns the current catalog snapshot
func (d *Directory) ListTenants(ctx context.Context) ([]*model.Tenant, error) {
	tenants, err := d.store.ListTenants(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tenants: %w", err)
	}
	return tenants, nil
}

// Invalidate drops a tenant's cached mapping
func (d *Directory) Invalidate(ctx context.Context, tenantKey uint64) {
	if err := d.cache.Delete(ctx, d.tenantCacheKey(tenantKey)); err != nil {
		d.logger.Warn("Failed to invalidate tenant cache",
			zap.Uint64("tenant_key", tenantKey),
			zap.Error(err))
	}
}

// tenantCacheKey generates a cache key for a tenant mapping
func (d *Directory) tenantCacheKey(tenantKey uint64) string {
	return fmt.Sprintf("tenant:shard:%d", tenantKey)
}
