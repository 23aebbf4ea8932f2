package target

import (
	"context"

	"github.com/shardops/loadshaper/internal/model"
)

// Submitter delivers one simulated load burst to a tenant database
type Submitter interface {
	SubmitBurst(ctx context.Context, desc *model.TenantDescriptor, burst model.Burst) error
	Close()
}
