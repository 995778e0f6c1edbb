package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// ComputeRunID computes a deterministic run_id using SHA256.
// Formula: SHA256(started_at_ms|instrument,...|feature,...)
// Returns hex-encoded hash (64 characters).
func ComputeRunID(startedAtMs int64, instruments, features []string) string {
	data := fmt.Sprintf("%d|%s|%s",
		startedAtMs,
		strings.Join(instruments, ","),
		strings.Join(features, ","),
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
