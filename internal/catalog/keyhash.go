package catalog

import (
	"crypto/sha256"
	"encoding/binary"
	"strings"
)

// TenantKey derives the shard-map key for a tenant name.
// Names are normalized (lowercased, spaces stripped) before hashing so
// "Contoso Concert Hall" and "contosoconcerthall" map to the same shard.
func TenantKey(name string) uint64 {
	h := sha256.New()
	h.Write([]byte(NormalizeName(name)))
	hashBytes := h.Sum(nil)
	return binary.BigEndian.Uint64(hashBytes[:8])
}

// NormalizeName canonicalizes a tenant name for key derivation
func NormalizeName(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "")
}
