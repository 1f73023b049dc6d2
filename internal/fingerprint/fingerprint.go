// Package fingerprint computes content hashes used purely as a change
// detection oracle. Hashes never serve as content identifiers elsewhere.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
)

// Sum returns the hex-encoded SHA-256 digest of content.
func Sum(content []byte) string {
	h := sha256.Sum256(content)
	return hex.EncodeToString(h[:])
}

// SumString is Sum over a string without an extra copy at call sites.
func SumString(content string) string {
	return Sum([]byte(content))
}
