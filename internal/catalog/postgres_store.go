package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shardops/loadshaper/internal/model"
	"go.uber.org/zap"
)

// PostgresStore implements Store for a PostgreSQL-backed shard catalog
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgresStore creates a new PostgreSQL catalog store
func NewPostgresStore(
	host string,
	port int,
	database, user, password string,
	maxConns, minConns int,
	logger *zap.Logger,
) (Store, error) {
	connString := fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s pool_max_conns=%d pool_min_conns=%d",
		host, port, database, user, password, maxConns, minConns,
	)

	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Test connection
	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping catalog database: %w", err)
	}

	return &PostgresStore{
		pool:   pool,
		logger: logger,
	}, nil
}

// GetTenant retrieves a tenant shard mapping by key
func (s *PostgresStore) GetTenant(ctx context.Context, tenantKey uint64) (*model.Tenant, error) {
	query := `
		SELECT tenant_key, name, server_name, database_name, created_at, updated_at, version
		FROM tenants
		WHERE tenant_key = $1
	`

	tenant, err := s.scanTenant(s.pool.QueryRow(ctx, query, int64(tenantKey)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get tenant: %w", err)
	}

	return tenant, nil
}

// GetTenantByName retrieves a tenant shard mapping by its registered name
func (s *PostgresStore) GetTenantByName(ctx context.Context, name string) (*model.Tenant, error) {
	query := `
		SELECT tenant_key, name, server_name, database_name, created_at, updated_at, version
		FROM tenants
		WHERE name = $1
	`

	tenant, err := s.scanTenant(s.pool.QueryRow(ctx, query, name))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get tenant by name: %w", err)
	}

	return tenant, nil
}

// ListTenants retrieves all registered tenant shard mappings
func (s *PostgresStore) ListTenants(ctx context.Context) ([]*model.Tenant, error) {
	query := `
		SELECT tenant_key, name, server_name, database_name, created_at, updated_at, version
		FROM tenants
		ORDER BY name
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tenants := make([]*model.Tenant, 0)
	for rows.Next() {
		tenant, err := s.scanTenant(rows)
		if err != nil {
			return nil, err
		}
		tenants = append(tenants, tenant)
	}

	return tenants, rows.Err()
}

// CreateTenant registers a new tenant shard mapping
func (s *PostgresStore) CreateTenant(ctx context.Context, tenant *model.Tenant) error {
	query := `
		INSERT INTO tenants (tenant_key, name, server_name, database_name, created_at, updated_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := s.pool.Exec(ctx, query,
		int64(tenant.TenantKey),
		tenant.Name,
		tenant.ServerName,
		tenant.DatabaseName,
		tenant.CreatedAt,
		tenant.UpdatedAt,
		tenant.Version,
	)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrAlreadyExists
	}

	return err
}

// UpdateTenant updates a tenant shard mapping
func (s *PostgresStore) UpdateTenant(ctx context.Context, tenant *model.Tenant) error {
	query := `
		UPDATE tenants
		SET server_name = $2, database_name = $3, updated_at = $4, version = $5
		WHERE tenant_key = $1 AND version = $6
	`

	result, err := s.pool.Exec(ctx, query,
		int64(tenant.TenantKey),
		tenant.ServerName,
		tenant.DatabaseName,
		tenant.UpdatedAt,
		tenant.Version,
		tenant.Version-1, // Optimistic locking
	)

	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("tenant not found or version mismatch")
	}

	return nil
}

// DeleteTenant removes a tenant shard mapping
func (s *PostgresStore) DeleteTenant(ctx context.Context, tenantKey uint64) error {
	query := `DELETE FROM tenants WHERE tenant_key = $1`
	result, err := s.pool.Exec(ctx, query, int64(tenantKey))
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// Ping checks the catalog database connection
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close closes the connection pool
func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) scanTenant(row pgx.Row) (*model.Tenant, error) {
	var tenant model.Tenant
	var key int64
	err := row.Scan(
		&key,
		&tenant.Name,
		&tenant.ServerName,
		&tenant.DatabaseName,
		&tenant.CreatedAt,
		&tenant.UpdatedAt,
		&tenant.Version,
	)
	if err != nil {
		return nil, err
	}
	tenant.TenantKey = uint64(key)
	return &tenant, nil
}
