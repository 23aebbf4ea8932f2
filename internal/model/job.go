package model

import "time"

// JobStatus is a point-in-time snapshot of one tenant's load job,
// exposed through the /status endpoint.
type JobStatus struct {
	TenantKey       uint64    `json:"tenant_key"`
	TenantName      string    `json:"tenant_name"`
	LoadFactor      float64   `json:"load_factor"`
	BurstDTU        int       `json:"burst_dtu"`
	StartedAt       time.Time `json:"started_at"`
	BurstsSubmitted uint64    `json:"bursts_submitted"`
	BurstsFailed    uint64    `json:"bursts_failed"`
	Running         bool      `json:"running"`
}

// SessionStatus summarizes a running load session
type SessionStatus struct {
	SessionID string      `json:"session_id"`
	StartedAt time.Time   `json:"started_at"`
	Deadline  time.Time   `json:"deadline"`
	OneShot   bool        `json:"one_shot"`
	Jobs      []JobStatus `json:"jobs"`
}
