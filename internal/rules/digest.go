package rules

import (
	"crypto/sha1" //nolint:gosec
	"encoding/hex"
)

// DigestLen is the length of a hex encoded digest.
const DigestLen = sha1.Size * 2

// Digest returns the lower-case hex SHA-1 of the UTF-8 bytes of s.
func Digest(s string) string {
	sum := sha1.Sum([]byte(s)) //nolint:gosec
	return hex.EncodeToString(sum[:])
}

// IsDigest reports whether s looks like a value produced by Digest.
func IsDigest(s string) bool {
	if len(s) != DigestLen {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
