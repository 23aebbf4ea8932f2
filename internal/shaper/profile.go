package shaper

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/shardops/loadshaper/internal/catalog"
)

// TenantOverride pins a tenant's load parameters regardless of mode.
// Zero fields leave the mode-assigned value in place.
type TenantOverride struct {
	DTU        int     `yaml:"dtu"`
	LoadFactor float64 `yaml:"load_factor"`
}

// Profile is an operator-supplied workload profile mapping tenant names to
// overrides, for shaping mixed workloads beyond the single-tenant switch.
type Profile struct {
	Tenants map[string]TenantOverride `yaml:"tenants"`
}

// LoadProfile reads a workload profile from a YAML file
func LoadProfile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile: %w", err)
	}

	var profile Profile
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("failed to parse profile: %w", err)
	}

	for name, o := range profile.Tenants {
		if o.DTU < 0 || o.DTU > 100 {
			return nil, fmt.Errorf("profile tenant %q: dtu %d out of range [0,100]", name, o.DTU)
		}
		if o.LoadFactor < 0 {
			return nil, fmt.Errorf("profile tenant %q: load_factor must not be negative", name)
		}
	}

	return &profile, nil
}

// Lookup finds an override by tenant name, tolerant of name formatting
func (p *Profile) Lookup(name string) (TenantOverride, bool) {
	if p == nil {
		return TenantOverride{}, false
	}
	for n, o := range p.Tenants {
		if catalog.NormalizeName(n) == catalog.NormalizeName(name) {
			return o, true
		}
	}
	return TenantOverride{}, false
}
