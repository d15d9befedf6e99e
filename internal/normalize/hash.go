package normalize

import (
	"crypto/sha256"
	"encoding/hex"
)

// Hash derives the stable dedup fingerprint for an item. Same three
// inputs always yield the same digest; the pipeline treats it as a
// uniqueness key, backed by a unique index in storage.
func Hash(title, summary, sourceIdentifier string) string {
	h := sha256.Sum256([]byte(title + "|" + summary + "|" + sourceIdentifier))
	return hex.EncodeToString(h[:])
}
