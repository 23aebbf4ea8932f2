package shaper

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/shardops/loadshaper/internal/metrics"
	"github.com/shardops/loadshaper/internal/model"
	"github.com/shardops/loadshaper/internal/target"
)

// worker runs one tenant's burst loop: snooze, resolve the current shard
// mapping through the directory, draw a burst, submit it, repeat until the
// session context ends. A failed resolution or submission is logged and
// counted, never fatal to the loop.
type worker struct {
	job         *tenantJob
	sampler     *Sampler
	ranges      Ranges
	tenantCount int
	directory   Directory
	submitter   target.Submitter
	metrics     *metrics.Metrics
	logger      *zap.Logger
}

func (w *worker) run(ctx context.Context) {
	defer close(w.job.done)

	if w.metrics != nil {
		w.metrics.ActiveTenantJobs.Inc()
		defer w.metrics.ActiveTenantJobs.Dec()
	}

	desc := w.job.desc
	w.logger.Info("Tenant load job started",
		zap.String("tenant", desc.Tenant.Name),
		zap.Uint64("tenant_key", desc.Tenant.TenantKey),
		zap.Int("burst_dtu", desc.BurstDTU),
		zap.Float64("load_factor", desc.LoadFactor))

	first := true
	for {
		snooze := w.sampler.Snooze(first, desc.LoadFactor, w.tenantCount, w.ranges)
		first = false

		select {
		case <-ctx.Done():
			w.logger.Info("Tenant load job stopped",
				zap.String("tenant", desc.Tenant.Name),
				zap.Uint64("bursts_submitted", atomic.LoadUint64(&w.job.burstsSubmitted)))
			return
		case <-time.After(snooze):
		}

		// Re-resolve the shard mapping each burst so a tenant moved to a
		// different database mid-session is picked up once the cached
		// directory entry expires or is invalidated.
		current, err := w.directory.GetTenant(ctx, desc.Tenant.TenantKey)
		if err != nil {
			atomic.AddUint64(&w.job.burstsFailed, 1)
			if w.metrics != nil {
				w.metrics.RecordBurstFailure(desc.Tenant.Name)
			}
			w.logger.Warn("Shard mapping lookup failed",
				zap.String("tenant", desc.Tenant.Name),
				zap.Uint64("tenant_key", desc.Tenant.TenantKey),
				zap.Error(err))
			continue
		}

		resolved := &model.TenantDescriptor{
			Tenant:     current,
			BurstDTU:   desc.BurstDTU,
			LoadFactor: desc.LoadFactor,
		}
		burst := w.sampler.Burst(desc.BurstDTU, desc.LoadFactor, w.ranges)

		if err := w.submitter.SubmitBurst(ctx, resolved, burst); err != nil {
			atomic.AddUint64(&w.job.burstsFailed, 1)
			if w.metrics != nil {
				w.metrics.RecordBurstFailure(desc.Tenant.Name)
			}
			w.logger.Warn("Burst submission failed",
				zap.String("tenant", desc.Tenant.Name),
				zap.Int("dtu", burst.DTU),
				zap.Int("duration_seconds", burst.DurationSeconds),
				zap.Error(err))
			continue
		}

		atomic.AddUint64(&w.job.burstsSubmitted, 1)
		if w.metrics != nil {
			w.metrics.RecordBurst(desc.Tenant.Name, burst.DTU, burst.DurationSeconds)
		}
		w.logger.Debug("Burst submitted",
			zap.String("tenant", desc.Tenant.Name),
			zap.Int("dtu", burst.DTU),
			zap.Int("duration_seconds", burst.DurationSeconds))
	}
}
