package shaper

import (
	"fmt"

	"github.com/shardops/loadshaper/internal/catalog"
	"github.com/shardops/loadshaper/internal/model"
)

// Options selects the load mode for a session
type Options struct {
	// Intensity is the session-wide DTU intensity knob, 1-100
	Intensity int

	// SingleTenant overrides one tenant to a fixed DTU at 4x load factor.
	// An empty SingleTenantName picks a tenant at random from the first
	// catalog snapshot.
	SingleTenant     bool
	SingleTenantName string
	SingleTenantDTU  int

	// Profile applies per-tenant overrides after mode assignment
	Profile *Profile
}

// Validate checks that the options are internally consistent
func (o Options) Validate() error {
	if o.Intensity < 1 || o.Intensity > 100 {
		return fmt.Errorf("intensity %d out of range [1,100]", o.Intensity)
	}
	if o.SingleTenant && (o.SingleTenantDTU < 1 || o.SingleTenantDTU > 100) {
		return fmt.Errorf("single-tenant dtu %d out of range [1,100]", o.SingleTenantDTU)
	}
	return nil
}

// Assign builds the per-tenant load descriptors for one discovery cycle.
// Balanced tenants get load factor 1.0 and a baseline DTU scattered around
// the session intensity; the single-tenant override (matched by name, which
// must already be resolved) gets load factor 4.0 and its fixed DTU.
func Assign(tenants []*model.Tenant, opts Options, sampler *Sampler, ranges Ranges) []*model.TenantDescriptor {
	descs := make([]*model.TenantDescriptor, 0, len(tenants))
	for _, t := range tenants {
		desc := &model.TenantDescriptor{
			Tenant:     t,
			LoadFactor: BalancedLoadFactor,
			BurstDTU:   sampler.BaselineDTU(opts.Intensity, ranges),
		}

		if opts.SingleTenant && matchesName(t, opts.SingleTenantName) {
			desc.LoadFactor = SingleTenantLoadFactor
			desc.BurstDTU = opts.SingleTenantDTU
		}

		if override, ok := opts.Profile.Lookup(t.Name); ok {
			if override.DTU > 0 {
				desc.BurstDTU = ClampDTU(override.DTU)
			}
			if override.LoadFactor > 0 {
				desc.LoadFactor = override.LoadFactor
			}
		}

		descs = append(descs, desc)
	}
	return descs
}

// ResolveSingleTenant fixes the single-tenant override target against the
// first catalog snapshot. A named tenant missing from the catalog is an
// error; the session must not launch any jobs in that case.
func ResolveSingleTenant(tenants []*model.Tenant, opts Options, sampler *Sampler) (Options, error) {
	if !opts.SingleTenant {
		return opts, nil
	}

	if opts.SingleTenantName == "" {
		if len(tenants) == 0 {
			return opts, fmt.Errorf("no tenants available for single-tenant mode")
		}
		opts.SingleTenantName = tenants[sampler.Pick(len(tenants))].Name
		return opts, nil
	}

	for _, t := range tenants {
		if matchesName(t, opts.SingleTenantName) {
			return opts, nil
		}
	}
	return opts, fmt.Errorf("single-tenant override: tenant %q not found in catalog", opts.SingleTenantName)
}

func matchesName(t *model.Tenant, name string) bool {
	return catalog.NormalizeName(t.Name) == catalog.NormalizeName(name)
}
