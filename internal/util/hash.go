// Package util holds small helpers shared across packages.
package util

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"
)

// GenerateHash creates a hash from the summary and a timestamp
func GenerateHash(summary string, timestamp int64) string {
	hasher := sha256.New()
	hasher.Write([]byte(summary))
	hasher.Write([]byte(strconv.FormatInt(timestamp, 10)))
	return hex.EncodeToString(hasher.Sum(nil))[:16] // Use first 16 chars of the hash
}

// NewRecordID derives a stored summary's id from its source text and the
// time it was created.
func NewRecordID(text string, createdAt time.Time) string {
	return GenerateHash(text, createdAt.UnixNano())
}
