package hash

import (
	"crypto/sha256"
	"fmt"
)

// SHA256 returns the SHA-256 digest of the given bytes.
func SHA256(b []byte) []byte {
	h := sha256.Sum256(b)
	return h[:]
}

// Fingerprint returns a short base16 identifier for the given bytes. It is
// meant for log output and must not be used to compare secrets.
func Fingerprint(b []byte) string {
	return fmt.Sprintf("%x", SHA256(b))[:16]
}
