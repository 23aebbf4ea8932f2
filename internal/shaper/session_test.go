package shaper

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shardops/loadshaper/internal/model"
)

// fakeDirectory serves scripted catalog snapshots; the last batch repeats
type fakeDirectory struct {
	mu        sync.Mutex
	calls     int
	batches   [][]*model.Tenant
	relocated map[uint64]string
	err       error
}

func (d *fakeDirectory) ListTenants(ctx context.Context) ([]*model.Tenant, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.err != nil {
		return nil, d.err
	}
	idx := d.calls
	if idx >= len(d.batches) {
		idx = len(d.batches) - 1
	}
	d.calls++
	return d.batches[idx], nil
}

func (d *fakeDirectory) GetTenant(ctx context.Context, tenantKey uint64) (*model.Tenant, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.err != nil {
		return nil, d.err
	}
	for _, batch := range d.batches {
		for _, tn := range batch {
			if tn.TenantKey == tenantKey {
				resolved := *tn
				if server, ok := d.relocated[tenantKey]; ok {
					resolved.ServerName = server
				}
				return &resolved, nil
			}
		}
	}
	return nil, errors.New("tenant not in catalog")
}

func (d *fakeDirectory) relocate(tenantKey uint64, serverName string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.relocated == nil {
		d.relocated = make(map[uint64]string)
	}
	d.relocated[tenantKey] = serverName
}

func (d *fakeDirectory) callCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

// fakeSubmitter records every burst it receives and the server it targeted
type fakeSubmitter struct {
	mu      sync.Mutex
	bursts  []model.Burst
	servers []string
	err     error
}

func (s *fakeSubmitter) SubmitBurst(ctx context.Context, desc *model.TenantDescriptor, burst model.Burst) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.bursts = append(s.bursts, burst)
	s.servers = append(s.servers, desc.Tenant.ServerName)
	return nil
}

func (s *fakeSubmitter) Close() {}

func (s *fakeSubmitter) submitted() []model.Burst {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Burst, len(s.bursts))
	copy(out, s.bursts)
	return out
}

func (s *fakeSubmitter) serversSeen() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.servers))
	copy(out, s.servers)
	return out
}

// fastRanges keeps test sessions snappy: sub-millisecond intervals
func fastRanges() Ranges {
	return Ranges{
		IntervalMin:       0.001,
		IntervalMax:       0.002,
		BurstMinDuration:  1,
		BurstMaxDuration:  2,
		BurstMinFactor:    0.6,
		BurstMaxFactor:    1.1,
		DTUVarianceMin:    0.9,
		DTUVarianceMax:    1.1,
		DensityLoadFactor: 0,
	}
}

func fastConfig(opts Options) SessionConfig {
	return SessionConfig{
		Duration:     100 * time.Millisecond,
		PollInterval: 20 * time.Millisecond,
		StopTimeout:  time.Second,
		Ranges:       fastRanges(),
		Seed:         42,
		Options:      opts,
	}
}

func runSession(t *testing.T, cfg SessionConfig, dir Directory, sub *fakeSubmitter) (*Session, error) {
	t.Helper()
	session, err := NewSession(cfg, dir, sub, nil, zap.NewNop())
	require.NoError(t, err)
	return session, session.Run(context.Background())
}

func TestSessionOneShotSingleDiscoveryPass(t *testing.T) {
	dir := &fakeDirectory{batches: [][]*model.Tenant{tenants("contoso", "fabrikam")}}
	sub := &fakeSubmitter{}

	cfg := fastConfig(Options{Intensity: 30})
	cfg.OneShot = true

	_, err := runSession(t, cfg, dir, sub)
	require.NoError(t, err)

	assert.Equal(t, 1, dir.callCount(), "one-shot mode must poll the directory exactly once")
	assert.NotEmpty(t, sub.submitted())
}

func TestSessionPollingLaunchesNewTenants(t *testing.T) {
	dir := &fakeDirectory{batches: [][]*model.Tenant{
		tenants("contoso"),
		tenants("contoso", "fabrikam"),
	}}
	sub := &fakeSubmitter{}

	session, err := runSession(t, fastConfig(Options{Intensity: 30}), dir, sub)
	require.NoError(t, err)

	assert.Greater(t, dir.callCount(), 1)

	jobs := session.Status().Jobs
	require.Len(t, jobs, 2)

	seen := make(map[string]int)
	for _, j := range jobs {
		seen[j.TenantName]++
	}
	assert.Equal(t, 1, seen["contoso"], "a tracked tenant must never be relaunched")
	assert.Equal(t, 1, seen["fabrikam"])
}

func TestSessionSubmittedDTUAlwaysInRange(t *testing.T) {
	dir := &fakeDirectory{batches: [][]*model.Tenant{tenants("contoso", "fabrikam", "dogwood")}}
	sub := &fakeSubmitter{}

	cfg := fastConfig(Options{Intensity: 100})
	_, err := runSession(t, cfg, dir, sub)
	require.NoError(t, err)

	bursts := sub.submitted()
	require.NotEmpty(t, bursts)
	for _, b := range bursts {
		assert.GreaterOrEqual(t, b.DTU, 1)
		assert.LessOrEqual(t, b.DTU, 100)
		assert.Greater(t, b.DurationSeconds, 0)
	}
}

func TestSessionUnknownSingleTenantAborts(t *testing.T) {
	dir := &fakeDirectory{batches: [][]*model.Tenant{tenants("contoso")}}
	sub := &fakeSubmitter{}

	cfg := fastConfig(Options{
		Intensity:        30,
		SingleTenant:     true,
		SingleTenantName: "ghost",
		SingleTenantDTU:  95,
	})

	session, err := runSession(t, cfg, dir, sub)
	require.Error(t, err)
	assert.Empty(t, sub.submitted(), "no bursts may be submitted when startup fails")
	assert.Empty(t, session.Status().Jobs, "no jobs may launch when startup fails")
}

func TestSessionSingleTenantAssignment(t *testing.T) {
	dir := &fakeDirectory{batches: [][]*model.Tenant{tenants("contoso", "fabrikam", "dogwood")}}
	sub := &fakeSubmitter{}

	cfg := fastConfig(Options{
		Intensity:        30,
		SingleTenant:     true,
		SingleTenantName: "fabrikam",
		SingleTenantDTU:  95,
	})

	session, err := runSession(t, cfg, dir, sub)
	require.NoError(t, err)

	overloaded := 0
	for _, j := range session.Status().Jobs {
		if j.LoadFactor == SingleTenantLoadFactor {
			overloaded++
			assert.Equal(t, "fabrikam", j.TenantName)
			assert.Equal(t, 95, j.BurstDTU)
		} else {
			assert.Equal(t, BalancedLoadFactor, j.LoadFactor)
		}
	}
	assert.Equal(t, 1, overloaded)
}

func TestSessionSubmissionFailuresNonFatal(t *testing.T) {
	dir := &fakeDirectory{batches: [][]*model.Tenant{tenants("contoso")}}
	sub := &fakeSubmitter{err: errors.New("tenant database unreachable")}

	session, err := runSession(t, fastConfig(Options{Intensity: 30}), dir, sub)
	require.NoError(t, err, "failed submissions must not abort the session")

	jobs := session.Status().Jobs
	require.Len(t, jobs, 1)
	assert.Greater(t, jobs[0].BurstsFailed, uint64(1),
		"the tenant loop must keep scheduling bursts after failures")
	assert.Zero(t, jobs[0].BurstsSubmitted)
}

func TestSessionInitialDiscoveryFailureFatal(t *testing.T) {
	dir := &fakeDirectory{err: errors.New("catalog unreachable")}
	sub := &fakeSubmitter{}

	_, err := runSession(t, fastConfig(Options{Intensity: 30}), dir, sub)
	assert.Error(t, err)
}

func TestSessionStopTenant(t *testing.T) {
	dir := &fakeDirectory{batches: [][]*model.Tenant{tenants("contoso", "fabrikam")}}
	sub := &fakeSubmitter{}

	cfg := fastConfig(Options{Intensity: 30})
	cfg.Duration = 300 * time.Millisecond
	session, err := NewSession(cfg, dir, sub, nil, zap.NewNop())
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- session.Run(context.Background()) }()

	// Wait for jobs to launch, then stop one tenant by key
	key := tenants("contoso")[0].TenantKey
	require.Eventually(t, func() bool {
		return len(session.Status().Jobs) == 2
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, session.StopTenant(key))

	require.Eventually(t, func() bool {
		for _, j := range session.Status().Jobs {
			if j.TenantKey == key && !j.Running {
				return true
			}
		}
		return false
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, <-done)
}

func TestSessionBurstsFollowTenantRelocation(t *testing.T) {
	dir := &fakeDirectory{batches: [][]*model.Tenant{tenants("contoso")}}
	sub := &fakeSubmitter{}

	cfg := fastConfig(Options{Intensity: 30})
	cfg.Duration = 300 * time.Millisecond
	session, err := NewSession(cfg, dir, sub, nil, zap.NewNop())
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- session.Run(context.Background()) }()

	require.Eventually(t, func() bool {
		return len(sub.serversSeen()) > 0
	}, time.Second, 5*time.Millisecond)

	// Move the tenant to a new server; subsequent bursts must land there
	dir.relocate(tenants("contoso")[0].TenantKey, "tenants2.example.net")

	require.Eventually(t, func() bool {
		for _, server := range sub.serversSeen() {
			if server == "tenants2.example.net" {
				return true
			}
		}
		return false
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, <-done)
	assert.Contains(t, sub.serversSeen(), "tenants1.example.net")
}

func TestSessionStatusDuringStartup(t *testing.T) {
	dir := &fakeDirectory{batches: [][]*model.Tenant{tenants("contoso", "fabrikam")}}
	sub := &fakeSubmitter{}

	session, err := NewSession(fastConfig(Options{Intensity: 30}), dir, sub, nil, zap.NewNop())
	require.NoError(t, err)

	// The ops server reads Status from the moment Run begins
	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
				session.Status()
			}
		}
	}()

	require.NoError(t, session.Run(context.Background()))
	close(stop)
	wg.Wait()

	status := session.Status()
	assert.False(t, status.StartedAt.IsZero())
	assert.True(t, status.Deadline.After(status.StartedAt))
}

func TestSessionRejectsInvalidConfig(t *testing.T) {
	dir := &fakeDirectory{batches: [][]*model.Tenant{tenants("contoso")}}

	_, err := NewSession(SessionConfig{Options: Options{Intensity: 30}}, dir, &fakeSubmitter{}, nil, zap.NewNop())
	assert.Error(t, err, "zero duration must be rejected")

	_, err = NewSession(fastConfig(Options{Intensity: 0}), dir, &fakeSubmitter{}, nil, zap.NewNop())
	assert.Error(t, err)
}
