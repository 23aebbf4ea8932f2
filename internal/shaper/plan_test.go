package shaper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shardops/loadshaper/internal/catalog"
	"github.com/shardops/loadshaper/internal/model"
)

func tenants(names ...string) []*model.Tenant {
	out := make([]*model.Tenant, 0, len(names))
	for _, name := range names {
		out = append(out, &model.Tenant{
			TenantKey:    catalog.TenantKey(name),
			Name:         name,
			ServerName:   "tenants1.example.net",
			DatabaseName: catalog.NormalizeName(name),
		})
	}
	return out
}

func TestAssignBalanced(t *testing.T) {
	descs := Assign(tenants("contoso", "fabrikam", "dogwood"),
		Options{Intensity: 30}, NewSampler(5), DefaultRanges())

	require.Len(t, descs, 3)
	for _, d := range descs {
		assert.Equal(t, BalancedLoadFactor, d.LoadFactor)
		assert.GreaterOrEqual(t, d.BurstDTU, 18)
		assert.LessOrEqual(t, d.BurstDTU, 33)
	}
}

func TestAssignSingleTenant(t *testing.T) {
	opts := Options{
		Intensity:        30,
		SingleTenant:     true,
		SingleTenantName: "fabrikam",
		SingleTenantDTU:  95,
	}

	descs := Assign(tenants("contoso", "fabrikam", "dogwood"), opts, NewSampler(5), DefaultRanges())

	overloaded := 0
	for _, d := range descs {
		if d.Tenant.Name == "fabrikam" {
			overloaded++
			assert.Equal(t, SingleTenantLoadFactor, d.LoadFactor)
			assert.Equal(t, 95, d.BurstDTU)
		} else {
			assert.Equal(t, BalancedLoadFactor, d.LoadFactor)
		}
	}
	assert.Equal(t, 1, overloaded)
}

func TestAssignSingleTenantNameNormalized(t *testing.T) {
	opts := Options{
		Intensity:        30,
		SingleTenant:     true,
		SingleTenantName: "Fabrikam Jazz Club",
		SingleTenantDTU:  80,
	}

	descs := Assign(tenants("fabrikamjazzclub"), opts, NewSampler(5), DefaultRanges())
	require.Len(t, descs, 1)
	assert.Equal(t, SingleTenantLoadFactor, descs[0].LoadFactor)
}

func TestAssignProfileOverride(t *testing.T) {
	opts := Options{
		Intensity: 30,
		Profile: &Profile{Tenants: map[string]TenantOverride{
			"contoso": {DTU: 70, LoadFactor: 2.5},
		}},
	}

	descs := Assign(tenants("contoso", "fabrikam"), opts, NewSampler(5), DefaultRanges())

	for _, d := range descs {
		if d.Tenant.Name == "contoso" {
			assert.Equal(t, 70, d.BurstDTU)
			assert.Equal(t, 2.5, d.LoadFactor)
		} else {
			assert.Equal(t, BalancedLoadFactor, d.LoadFactor)
		}
	}
}

func TestResolveSingleTenantUnknownName(t *testing.T) {
	opts := Options{
		Intensity:        30,
		SingleTenant:     true,
		SingleTenantName: "ghost",
		SingleTenantDTU:  95,
	}

	_, err := ResolveSingleTenant(tenants("contoso", "fabrikam"), opts, NewSampler(5))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "ghost")
}

func TestResolveSingleTenantRandomPick(t *testing.T) {
	opts := Options{
		Intensity:       30,
		SingleTenant:    true,
		SingleTenantDTU: 95,
	}

	pool := tenants("contoso", "fabrikam", "dogwood")
	resolved, err := ResolveSingleTenant(pool, opts, NewSampler(5))
	require.NoError(t, err)

	found := false
	for _, tn := range pool {
		if tn.Name == resolved.SingleTenantName {
			found = true
		}
	}
	assert.True(t, found, "picked name should come from the snapshot")
}

func TestResolveSingleTenantEmptyCatalog(t *testing.T) {
	opts := Options{Intensity: 30, SingleTenant: true, SingleTenantDTU: 95}

	_, err := ResolveSingleTenant(nil, opts, NewSampler(5))
	assert.Error(t, err)
}

func TestResolveSingleTenantDisabled(t *testing.T) {
	opts := Options{Intensity: 30}

	resolved, err := ResolveSingleTenant(tenants("contoso"), opts, NewSampler(5))
	require.NoError(t, err)
	assert.Empty(t, resolved.SingleTenantName)
}

func TestOptionsValidate(t *testing.T) {
	assert.NoError(t, Options{Intensity: 50}.Validate())
	assert.Error(t, Options{Intensity: 0}.Validate())
	assert.Error(t, Options{Intensity: 101}.Validate())
	assert.Error(t, Options{Intensity: 50, SingleTenant: true, SingleTenantDTU: 0}.Validate())
	assert.Error(t, Options{Intensity: 50, SingleTenant: true, SingleTenantDTU: 120}.Validate())
	assert.NoError(t, Options{Intensity: 50, SingleTenant: true, SingleTenantDTU: 95}.Validate())
}
