package shaper

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/shardops/loadshaper/internal/metrics"
	"github.com/shardops/loadshaper/internal/model"
	"github.com/shardops/loadshaper/internal/target"
)

// Directory is the shard-map surface for the session: listings drive tenant
// discovery, keyed lookups resolve the current shard mapping per burst so a
// tenant moved mid-session gets its load on the new database once the cached
// entry rolls over.
type Directory interface {
	ListTenants(ctx context.Context) ([]*model.Tenant, error)
	GetTenant(ctx context.Context, tenantKey uint64) (*model.Tenant, error)
}

// SessionConfig bounds one load-shaping session
type SessionConfig struct {
	Duration     time.Duration
	PollInterval time.Duration // tenant directory re-poll interval
	StopTimeout  time.Duration
	OneShot      bool // single discovery pass, no re-poll
	LongerBursts bool
	Ranges       Ranges // zero value selects DefaultRanges
	Seed         uint64 // zero seeds from the clock
	Options      Options
}

func (c SessionConfig) withDefaults() SessionConfig {
	if c.PollInterval == 0 {
		c.PollInterval = 10 * time.Second
	}
	if c.StopTimeout == 0 {
		c.StopTimeout = 30 * time.Second
	}
	if c.Ranges == (Ranges{}) {
		c.Ranges = DefaultRanges()
	}
	if c.LongerBursts {
		c.Ranges = c.Ranges.LongerBursts()
	}
	if c.Seed == 0 {
		c.Seed = uint64(time.Now().UnixNano())
	}
	return c
}

// Session owns one load-shaping run: the start time, the deadline, and the
// append-only job registry. The discovery loop is the registry's only writer.
type Session struct {
	id        string
	cfg       SessionConfig
	directory Directory
	submitter target.Submitter
	registry  *Registry
	metrics   *metrics.Metrics
	logger    *zap.Logger

	// mu guards the run window fields, which Status may read from the ops
	// server while Run is starting up
	mu        sync.Mutex
	startedAt time.Time
	deadline  time.Time
}

// NewSession creates a load-shaping session
func NewSession(
	cfg SessionConfig,
	directory Directory,
	submitter target.Submitter,
	m *metrics.Metrics,
	logger *zap.Logger,
) (*Session, error) {
	cfg = cfg.withDefaults()

	if cfg.Duration <= 0 {
		return nil, fmt.Errorf("session duration must be positive")
	}
	if err := cfg.Options.Validate(); err != nil {
		return nil, fmt.Errorf("invalid load options: %w", err)
	}

	return &Session{
		id:        uuid.New().String(),
		cfg:       cfg,
		directory: directory,
		submitter: submitter,
		registry:  NewRegistry(),
		metrics:   m,
		logger:    logger,
	}, nil
}

// ID returns the session correlation ID
func (s *Session) ID() string {
	return s.id
}

// Run executes the session: an initial discovery pass, then a fixed-interval
// re-poll that launches jobs for newly registered tenants, until the deadline
// or the context ends. In one-shot mode there is exactly one discovery pass.
func (s *Session) Run(ctx context.Context) error {
	s.mu.Lock()
	s.startedAt = time.Now()
	s.deadline = s.startedAt.Add(s.cfg.Duration)
	deadline := s.deadline
	s.mu.Unlock()

	ctx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	assignSampler := NewSampler(s.cfg.Seed)

	tenants, err := s.directory.ListTenants(ctx)
	if err != nil {
		return fmt.Errorf("initial tenant discovery failed: %w", err)
	}

	// Resolve the single-tenant override before anything launches: an
	// unknown name aborts the whole session.
	opts, err := ResolveSingleTenant(tenants, s.cfg.Options, assignSampler)
	if err != nil {
		return err
	}
	s.cfg.Options = opts

	s.logger.Info("Load session starting",
		zap.String("session_id", s.id),
		zap.Int("intensity", opts.Intensity),
		zap.Duration("duration", s.cfg.Duration),
		zap.Bool("one_shot", s.cfg.OneShot),
		zap.Bool("single_tenant", opts.SingleTenant),
		zap.String("single_tenant_name", opts.SingleTenantName),
		zap.Int("tenants", len(tenants)))

	s.launchNew(ctx, tenants, assignSampler)

	defer func() {
		s.registry.StopAll()
		if err := s.registry.Wait(s.cfg.StopTimeout); err != nil {
			s.logger.Warn("Session stop timeout", zap.Error(err))
		}
		s.logger.Info("Load session finished",
			zap.String("session_id", s.id),
			zap.Int("tenants_tracked", s.registry.Len()))
	}()

	if s.cfg.OneShot {
		<-ctx.Done()
		return nil
	}

	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			tenants, err := s.directory.ListTenants(ctx)
			if err != nil {
				// ctx expiry during the poll is normal end of session
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("tenant discovery failed: %w", err)
			}
			s.launchNew(ctx, tenants, assignSampler)
		}
	}
}

// launchNew assigns descriptors and starts jobs for tenants whose key is not
// yet tracked. Already-tracked tenants are never restarted.
func (s *Session) launchNew(ctx context.Context, tenants []*model.Tenant, assignSampler *Sampler) {
	fresh := make([]*model.Tenant, 0, len(tenants))
	for _, t := range tenants {
		if !s.registry.Has(t.TenantKey) {
			fresh = append(fresh, t)
		}
	}

	if len(fresh) > 0 {
		descs := Assign(fresh, s.cfg.Options, assignSampler, s.cfg.Ranges)
		total := s.registry.Len() + len(fresh)

		for _, desc := range descs {
			if err := s.launch(ctx, desc, total); err != nil {
				s.logger.Error("Failed to launch tenant job",
					zap.String("tenant", desc.Tenant.Name),
					zap.Error(err))
			}
		}
	}

	if s.metrics != nil {
		s.metrics.RecordDiscoveryCycle(s.registry.Len())
	}
}

func (s *Session) launch(ctx context.Context, desc *model.TenantDescriptor, tenantCount int) error {
	jobCtx, cancel := context.WithCancel(ctx)
	job := &tenantJob{
		desc:      desc,
		startedAt: time.Now(),
		cancel:    cancel,
		done:      make(chan struct{}),
	}

	if err := s.registry.add(desc.Tenant.TenantKey, job); err != nil {
		cancel()
		return err
	}

	w := &worker{
		job:         job,
		sampler:     NewSampler(s.cfg.Seed + desc.Tenant.TenantKey),
		ranges:      s.cfg.Ranges,
		tenantCount: tenantCount,
		directory:   s.directory,
		submitter:   s.submitter,
		metrics:     s.metrics,
		logger:      s.logger,
	}
	go w.run(jobCtx)

	return nil
}

// StopTenant cancels one tenant's job by key
func (s *Session) StopTenant(tenantKey uint64) error {
	return s.registry.Stop(tenantKey)
}

// Status returns a snapshot of the session and its jobs
func (s *Session) Status() model.SessionStatus {
	s.mu.Lock()
	startedAt, deadline := s.startedAt, s.deadline
	s.mu.Unlock()

	return model.SessionStatus{
		SessionID: s.id,
		StartedAt: startedAt,
		Deadline:  deadline,
		OneShot:   s.cfg.OneShot,
		Jobs:      s.registry.Snapshot(),
	}
}
