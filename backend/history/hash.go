package history

import (
	"crypto/sha256"
	"encoding/base64"
)

// HashID returns the base64 encoded SHA-256 digest of the given persistent identifier. Identifiers are
// only ever compared in their hashed form.
func HashID(id string) string {
	h := sha256.Sum256([]byte(id))
	return base64.StdEncoding.EncodeToString(h[:])
}
