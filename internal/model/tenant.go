package model

import "time"

// Tenant represents one registered tenant shard in the catalog
type Tenant struct {
	TenantKey    uint64
	Name         string
	ServerName   string
	DatabaseName string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Version      int64 // For optimistic locking
}

// TenantDescriptor carries the per-session load parameters for one tenant.
// Built once per discovery cycle from the current catalog snapshot and
// never mutated afterwards; workers read it, nothing writes it.
type TenantDescriptor struct {
	Tenant     *Tenant
	BurstDTU   int
	LoadFactor float64
}

// Burst is one discrete simulated load event
type Burst struct {
	DurationSeconds int
	DTU             int
}
