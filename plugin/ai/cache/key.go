package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/hrygo/agentcache/plugin/ai/similarity"
)

// KeyPrefix namespaces every key this package writes.
const KeyPrefix = "knowledge:"

// HashKey returns the exact-match hash of a query within a domain: the hex
// SHA-256 of domain, a NUL separator and the normalized query. Queries that
// normalize equally share a hash.
func HashKey(domain, query string) string {
	h := sha256.New()
	h.Write([]byte(strings.ToLower(domain)))
	h.Write([]byte{0})
	h.Write([]byte(similarity.Normalize(query)))
	return hex.EncodeToString(h.Sum(nil))
}

// Key returns the cache key of a record hash in domain.
func Key(domain, hash string) string {
	return KeyPrefix + strings.ToLower(domain) + ":" + hash
}

// DomainPattern matches every key of domain. Callers must keep glob
// metacharacters and ':' out of domain; knowledge rejects them on input.
func DomainPattern(domain string) string {
	return KeyPrefix + strings.ToLower(domain) + ":*"
}
