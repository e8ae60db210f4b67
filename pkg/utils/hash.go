package utils

import (
	"crypto/sha256"
	"fmt"
)

// HashBytes returns the hex SHA-256 digest of content. Used for document
// de-duplication and cache keys.
func HashBytes(content []byte) string {
	hash := sha256.Sum256(content)
	return fmt.Sprintf("%x", hash)
}

// HashString returns the hex SHA-256 digest of input.
func HashString(input string) string {
	return HashBytes([]byte(input))
}
