package mock

import (
	"crypto/rand"
	"encoding/hex"
)

// opaqueToken returns a random token with the given prefix.
func opaqueToken(prefix string) string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return prefix + hex.EncodeToString(b)
}
