package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTenantKeyDeterministic(t *testing.T) {
	k1 := TenantKey("Contoso Concert Hall")
	k2 := TenantKey("Contoso Concert Hall")
	assert.Equal(t, k1, k2)
}

func TestTenantKeyNormalization(t *testing.T) {
	tests := []struct {
		name string
		a    string
		b    string
	}{
		{"case", "Fabrikam Jazz Club", "fabrikam jazz club"},
		{"spaces", "Fabrikam Jazz Club", "FabrikamJazzClub"},
		{"surrounding whitespace", "  dogwood dojo ", "dogwood dojo"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, TenantKey(tt.a), TenantKey(tt.b))
		})
	}
}

func TestTenantKeyDistinctNames(t *testing.T) {
	assert.NotEqual(t, TenantKey("contoso"), TenantKey("fabrikam"))
}

func TestNormalizeName(t *testing.T) {
	assert.Equal(t, "contosoconcerthall", NormalizeName(" Contoso Concert Hall "))
}
