package target

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shardops/loadshaper/internal/model"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Config holds the load endpoint client configuration
type Config struct {
	AdminUser        string
	AdminPassword    string
	Port             int
	ProcedureTimeout time.Duration
	MaxRetries       int
	RetryBackoff     time.Duration
	// MaxSubmitRate caps burst submissions per second across all tenants.
	// Zero means unlimited.
	MaxSubmitRate float64

	// OnRetry is invoked once per transient retry, if set
	OnRetry func()
}

// SQLSubmitter executes the simulate_load procedure against tenant databases.
// One connection pool per (server, database); pools are created lazily on the
// first burst for a tenant and reused for the rest of the session.
type SQLSubmitter struct {
	cfg     Config
	limiter *rate.Limiter
	logger  *zap.Logger

	mu    sync.Mutex
	pools map[string]*pgxpool.Pool
}

// NewSQLSubmitter creates a new load endpoint client
func NewSQLSubmitter(cfg Config, logger *zap.Logger) *SQLSubmitter {
	if cfg.ProcedureTimeout == 0 {
		cfg.ProcedureTimeout = 2 * time.Minute
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryBackoff == 0 {
		cfg.RetryBackoff = 500 * time.Millisecond
	}

	var limiter *rate.Limiter
	if cfg.MaxSubmitRate > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.MaxSubmitRate), 1)
	}

	return &SQLSubmitter{
		cfg:     cfg,
		limiter: limiter,
		logger:  logger,
		pools:   make(map[string]*pgxpool.Pool),
	}
}

// SubmitBurst runs the load-simulation procedure on the tenant's database.
// A burst can outlast the statement timeout budgeted for control queries, so
// the timeout covers the burst duration plus the procedure timeout margin.
func (s *SQLSubmitter) SubmitBurst(ctx context.Context, desc *model.TenantDescriptor, burst model.Burst) error {
	if burst.DTU < 1 || burst.DTU > 100 {
		return fmt.Errorf("burst dtu %d out of range [1,100]", burst.DTU)
	}

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit wait: %w", err)
		}
	}

	pool, err := s.pool(ctx, desc.Tenant)
	if err != nil {
		return fmt.Errorf("failed to connect to tenant database: %w", err)
	}

	timeout := time.Duration(burst.DurationSeconds)*time.Second + s.cfg.ProcedureTimeout
	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err = s.withRetry(execCtx, func() error {
		_, err := pool.Exec(execCtx, "SELECT simulate_load($1, $2)",
			burst.DurationSeconds, burst.DTU)
		return err
	})
	if err != nil {
		return fmt.Errorf("simulate_load on %s/%s: %w",
			desc.Tenant.ServerName, desc.Tenant.DatabaseName, err)
	}

	return nil
}

// pool returns the connection pool for a tenant database, creating it lazily
func (s *SQLSubmitter) pool(ctx context.Context, tenant *model.Tenant) (*pgxpool.Pool, error) {
	key := tenant.ServerName + "/" + tenant.DatabaseName

	s.mu.Lock()
	defer s.mu.Unlock()

	if pool, ok := s.pools[key]; ok {
		return pool, nil
	}

	connString := fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s pool_max_conns=%d",
		tenant.ServerName, s.cfg.Port, tenant.DatabaseName,
		s.cfg.AdminUser, s.cfg.AdminPassword, 2,
	)

	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	s.logger.Debug("Opened tenant database pool",
		zap.String("server", tenant.ServerName),
		zap.String("database", tenant.DatabaseName))

	s.pools[key] = pool
	return pool, nil
}

// withRetry wraps a procedure call with retry on transient failures
func (s *SQLSubmitter) withRetry(ctx context.Context, operation func() error) error {
	var lastErr error
	for attempt := 0; attempt <= s.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			// Exponential backoff
			backoff := s.cfg.RetryBackoff * time.Duration(1<<uint(attempt-1))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}

		err := operation()
		if err == nil {
			return nil
		}

		lastErr = err

		if !isRetryable(err) {
			return err
		}

		if s.cfg.OnRetry != nil {
			s.cfg.OnRetry()
		}
		s.logger.Warn("Load submission failed, retrying",
			zap.Int("attempt", attempt+1),
			zap.Error(err))
	}

	return lastErr
}

// isRetryable determines if a submission error is transient
func isRetryable(err error) bool {
	if err == nil {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// Class 08 - connection exceptions, 40001 - serialization failure,
		// 57P0x - server shutdown/crash, 53xxx - insufficient resources
		switch {
		case strings.HasPrefix(pgErr.Code, "08"):
			return true
		case pgErr.Code == "40001":
			return true
		case strings.HasPrefix(pgErr.Code, "57P"):
			return true
		case strings.HasPrefix(pgErr.Code, "53"):
			return true
		}
		return false
	}

	return false
}

// Close closes all tenant database pools
func (s *SQLSubmitter) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, pool := range s.pools {
		pool.Close()
		delete(s.pools, key)
	}
}
