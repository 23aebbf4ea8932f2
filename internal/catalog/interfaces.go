package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/shardops/loadshaper/internal/model"
)

// ErrNotFound is returned when a tenant is not in the catalog
var ErrNotFound = errors.New("not found")

// ErrAlreadyExists is returned when registering a tenant whose name or key
// is already mapped to a shard
var ErrAlreadyExists = errors.New("already exists")

// Store interface for shard-map catalog operations
type Store interface {
	GetTenant(ctx context.Context, tenantKey uint64) (*model.Tenant, error)
	GetTenantByName(ctx context.Context, name string) (*model.Tenant, error)
	ListTenants(ctx context.Context) ([]*model.Tenant, error)
	CreateTenant(ctx context.Context, tenant *model.Tenant) error
	UpdateTenant(ctx context.Context, tenant *model.Tenant) error
	DeleteTenant(ctx context.Context, tenantKey uint64) error

	// Health check
	Ping(ctx context.Context) error
	Close()
}

// Cache interface for tenant directory entry caching
type Cache interface {
	Get(ctx context.Context, key string) (*model.Tenant, error)
	Set(ctx context.Context, key string, tenant *model.Tenant, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
