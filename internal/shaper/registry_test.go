package shaper

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shardops/loadshaper/internal/model"
)

func newTestJob(name string) *tenantJob {
	_, cancel := context.WithCancel(context.Background())
	return &tenantJob{
		desc: &model.TenantDescriptor{
			Tenant:     &model.Tenant{TenantKey: 1, Name: name},
			BurstDTU:   30,
			LoadFactor: 1.0,
		},
		startedAt: time.Now(),
		cancel:    cancel,
		done:      make(chan struct{}),
	}
}

func TestRegistryAddOncePerKey(t *testing.T) {
	r := NewRegistry()

	require.NoError(t, r.add(1, newTestJob("contoso")))
	assert.True(t, r.Has(1))
	assert.Equal(t, 1, r.Len())

	// Second add for the same key must be rejected
	assert.Error(t, r.add(1, newTestJob("contoso")))
	assert.Equal(t, 1, r.Len())
}

func TestRegistryStopUnknownKey(t *testing.T) {
	r := NewRegistry()
	assert.Error(t, r.Stop(42))
}

func TestRegistrySnapshot(t *testing.T) {
	r := NewRegistry()
	job := newTestJob("contoso")
	require.NoError(t, r.add(1, job))

	statuses := r.Snapshot()
	require.Len(t, statuses, 1)
	assert.Equal(t, "contoso", statuses[0].TenantName)
	assert.True(t, statuses[0].Running)

	close(job.done)
	statuses = r.Snapshot()
	assert.False(t, statuses[0].Running)
}

func TestRegistryWait(t *testing.T) {
	r := NewRegistry()
	job := newTestJob("contoso")
	require.NoError(t, r.add(1, job))

	// Unfinished job times out
	assert.Error(t, r.Wait(20*time.Millisecond))

	close(job.done)
	assert.NoError(t, r.Wait(20*time.Millisecond))
}
