package shaper

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shardops/loadshaper/internal/model"
)

// tenantJob is one tenant's running load task. Created at most once per
// tenant key for the session lifetime; polled, never updated in place.
type tenantJob struct {
	desc      *model.TenantDescriptor
	startedAt time.Time
	cancel    context.CancelFunc
	done      chan struct{}

	burstsSubmitted uint64
	burstsFailed    uint64
}

func (j *tenantJob) running() bool {
	select {
	case <-j.done:
		return false
	default:
		return true
	}
}

// Registry tracks tenant jobs keyed by tenant key. Only the session's
// discovery loop adds entries, each key at most once; readers take snapshots.
type Registry struct {
	mu   sync.RWMutex
	jobs map[uint64]*tenantJob
}

// NewRegistry creates an empty job registry
func NewRegistry() *Registry {
	return &Registry{jobs: make(map[uint64]*tenantJob)}
}

// Has reports whether a tenant key is already tracked
func (r *Registry) Has(tenantKey uint64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.jobs[tenantKey]
	return ok
}

// add registers a job for a tenant key. A second add for the same key is a
// programming error in the discovery loop.
func (r *Registry) add(tenantKey uint64, job *tenantJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.jobs[tenantKey]; ok {
		return fmt.Errorf("tenant key %d already has an active job", tenantKey)
	}
	r.jobs[tenantKey] = job
	return nil
}

// Len returns the number of tracked tenant keys
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.jobs)
}

// Stop cancels the job for one tenant key
func (r *Registry) Stop(tenantKey uint64) error {
	r.mu.RLock()
	job, ok := r.jobs[tenantKey]
	r.mu.RUnlock()

	if !ok {
		return fmt.Errorf("no job for tenant key %d", tenantKey)
	}
	job.cancel()
	return nil
}

// StopAll cancels every tracked job
func (r *Registry) StopAll() {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, job := range r.jobs {
		job.cancel()
	}
}

// Wait blocks until every job has exited or the timeout elapses
func (r *Registry) Wait(timeout time.Duration) error {
	r.mu.RLock()
	jobs := make([]*tenantJob, 0, len(r.jobs))
	for _, job := range r.jobs {
		jobs = append(jobs, job)
	}
	r.mu.RUnlock()

	deadline := time.After(timeout)
	for _, job := range jobs {
		select {
		case <-job.done:
		case <-deadline:
			return fmt.Errorf("timed out waiting for tenant jobs to stop")
		}
	}
	return nil
}

// Snapshot returns the current status of every tracked job
func (r *Registry) Snapshot() []model.JobStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()

	statuses := make([]model.JobStatus, 0, len(r.jobs))
	for key, job := range r.jobs {
		statuses = append(statuses, model.JobStatus{
			TenantKey:       key,
			TenantName:      job.desc.Tenant.Name,
			LoadFactor:      job.desc.LoadFactor,
			BurstDTU:        job.desc.BurstDTU,
			StartedAt:       job.startedAt,
			BurstsSubmitted: atomic.LoadUint64(&job.burstsSubmitted),
			BurstsFailed:    atomic.LoadUint64(&job.burstsFailed),
			Running:         job.running(),
		})
	}
	return statuses
}
