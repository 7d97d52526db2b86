package domain

import (
	"crypto/rand"
	"encoding/hex"
)

// NewPublicID mints an external identifier like "ord_1a2b...". These ids go
// to providers as correlation references, so they must be unguessable.
func NewPublicID(prefix string) string {
	b := make([]byte, 12)
	if _, err := rand.Read(b); err != nil {
		// crypto/rand only fails when the OS entropy source is broken.
		panic(err)
	}
	return prefix + "_" + hex.EncodeToString(b)
}
