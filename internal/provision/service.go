package provision

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shardops/loadshaper/internal/catalog"
	"github.com/shardops/loadshaper/internal/model"
	"go.uber.org/zap"
)

// Service registers and removes tenant shards in the catalog
type Service struct {
	store    catalog.Store
	cache    catalog.Cache
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewService creates a new provisioning service
func NewService(store catalog.Store, cache catalog.Cache, cacheTTL time.Duration, logger *zap.Logger) *Service {
	return &Service{
		store:    store,
		cache:    cache,
		cacheTTL: cacheTTL,
		logger:   logger,
	}
}

// RegisterTenant derives the tenant key from the name and records the shard
// mapping in the catalog. The key is a pure function of the normalized name,
// so re-registering the same tenant is rejected rather than silently remapped.
func (s *Service) RegisterTenant(ctx context.Context, name, serverName, databaseName string) (*model.Tenant, error) {
	if name == "" {
		return nil, fmt.Errorf("tenant name is required")
	}
	if serverName == "" || databaseName == "" {
		return nil, fmt.Errorf("server and database names are required")
	}

	key := catalog.TenantKey(name)

	// A key collision between distinct names maps two tenants onto one
	// shard entry; refuse it explicitly instead of overwriting.
	if existing, err := s.store.GetTenant(ctx, key); err == nil {
		if catalog.NormalizeName(existing.Name) == catalog.NormalizeName(name) {
			return nil, fmt.Errorf("tenant %q: %w", name, catalog.ErrAlreadyExists)
		}
		return nil, fmt.Errorf("tenant key collision between %q and %q", name, existing.Name)
	} else if !errors.Is(err, catalog.ErrNotFound) {
		return nil, fmt.Errorf("failed to check existing tenant: %w", err)
	}

	now := time.Now()
	tenant := &model.Tenant{
		TenantKey:    key,
		Name:         name,
		ServerName:   serverName,
		DatabaseName: databaseName,
		CreatedAt:    now,
		UpdatedAt:    now,
		Version:      1,
	}

	if err := s.store.CreateTenant(ctx, tenant); err != nil {
		return nil, fmt.Errorf("failed to register tenant in catalog: %w", err)
	}

	s.logger.Info("Registered tenant",
		zap.String("name", name),
		zap.Uint64("tenant_key", key),
		zap.String("server", serverName),
		zap.String("database", databaseName))

	// Warm the directory cache
	cacheKey := fmt.Sprintf("tenant:shard:%d", key)
	if err := s.cache.Set(ctx, cacheKey, tenant, s.cacheTTL); err != nil {
		s.logger.Warn("Failed to cache new tenant mapping",
			zap.String("name", name),
			zap.Error(err))
	}

	return tenant, nil
}

// MoveTenant points an existing tenant at a different shard database
func (s *Service) MoveTenant(ctx context.Context, name, serverName, databaseName string) (*model.Tenant, error) {
	tenant, err := s.store.GetTenantByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to get tenant: %w", err)
	}

	if tenant.ServerName == serverName && tenant.DatabaseName == databaseName {
		return tenant, nil
	}

	tenant.ServerName = serverName
	tenant.DatabaseName = databaseName
	tenant.UpdatedAt = time.Now()
	tenant.Version++

	if err := s.store.UpdateTenant(ctx, tenant); err != nil {
		return nil, fmt.Errorf("failed to update tenant in catalog: %w", err)
	}

	s.logger.Info("Moved tenant shard",
		zap.String("name", name),
		zap.String("server", serverName),
		zap.String("database", databaseName))

	s.invalidate(ctx, tenant.TenantKey)
	return tenant, nil
}

// RemoveTenant deletes a tenant's shard mapping by name
func (s *Service) RemoveTenant(ctx context.Context, name string) error {
	tenant, err := s.store.GetTenantByName(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to get tenant: %w", err)
	}

	if err := s.store.DeleteTenant(ctx, tenant.TenantKey); err != nil {
		return fmt.Errorf("failed to delete tenant from catalog: %w", err)
	}

	s.logger.Info("Removed tenant",
		zap.String("name", name),
		zap.Uint64("tenant_key", tenant.TenantKey))

	s.invalidate(ctx, tenant.TenantKey)
	return nil
}

// ListTenants returns all registered tenants
func (s *Service) ListTenants(ctx context.Context) ([]*model.Tenant, error) {
	return s.store.ListTenants(ctx)
}

func (s *Service) invalidate(ctx context.Context, tenantKey uint64) {
	cacheKey := fmt.Sprintf("tenant:shard:%d", tenantKey)
	if err := s.cache.Delete(ctx, cacheKey); err != nil {
		s.logger.Warn("Failed to invalidate tenant cache",
			zap.Uint64("tenant_key", tenantKey),
			zap.Error(err))
	}
}
