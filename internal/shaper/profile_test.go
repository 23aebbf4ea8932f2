package shaper

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeProfile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "profile.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadProfile(t *testing.T) {
	path := writeProfile(t, `
tenants:
  contoso:
    dtu: 70
    load_factor: 2.5
  fabrikam:
    dtu: 20
`)

	profile, err := LoadProfile(path)
	require.NoError(t, err)
	require.Len(t, profile.Tenants, 2)

	o, ok := profile.Lookup("contoso")
	require.True(t, ok)
	assert.Equal(t, 70, o.DTU)
	assert.Equal(t, 2.5, o.LoadFactor)
}

func TestLoadProfileInvalidDTU(t *testing.T) {
	path := writeProfile(t, `
tenants:
  contoso:
    dtu: 150
`)

	_, err := LoadProfile(path)
	assert.Error(t, err)
}

func TestLoadProfileMissingFile(t *testing.T) {
	_, err := LoadProfile(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestProfileLookupNormalizesNames(t *testing.T) {
	profile := &Profile{Tenants: map[string]TenantOverride{
		"Contoso Concert Hall": {DTU: 60},
	}}

	o, ok := profile.Lookup("contosoconcerthall")
	require.True(t, ok)
	assert.Equal(t, 60, o.DTU)

	_, ok = profile.Lookup("fabrikam")
	assert.False(t, ok)
}

func TestProfileLookupNil(t *testing.T) {
	var profile *Profile
	_, ok := profile.Lookup("contoso")
	assert.False(t, ok)
}
