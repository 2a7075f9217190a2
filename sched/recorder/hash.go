package recorder

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// hashSep separates parts inside a stable digest. A unit separator is not
// expected in normal text, so distinct part lists cannot collide by
// concatenation.
const hashSep = 0x1f

// StableDigest returns the SHA-256 digest of the parts joined by hashSep.
// Order of parts is significant; callers pre-sort when order-independence
// is required (e.g. path hashes).
func StableDigest(parts []string) [sha256.Size]byte {
	h := sha256.New()
	for i, p := range parts {
		if i > 0 {
			h.Write([]byte{hashSep})
		}
		h.Write([]byte(p))
	}
	var out [sha256.Size]byte
	copy(out[:], h.Sum(nil))
	return out
}

// StableHash returns StableDigest hex-encoded.
func StableHash(parts []string) string {
	d := StableDigest(parts)
	return hex.EncodeToString(d[:])
}

// QueryHash hashes a free-text query after trimming and lower-casing.
// Returns false for queries that normalize to the empty string.
func QueryHash(query string) (string, bool) {
	normalized := strings.ToLower(strings.TrimSpace(query))
	if normalized == "" {
		return "", false
	}
	return StableHash([]string{normalized}), true
}
