// fingerprint.go generates stable hashes for grouping similar notices.

package brake

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// fingerprintFrames is the number of backtrace methods hashed.
const fingerprintFrames = 3

// Fingerprint generates a hash for grouping similar notices.
// The fingerprint is based on:
//   - error class
//   - first 3 backtrace methods
//
// It ignores messages, files, line numbers, and request context.
func Fingerprint(n *Notice) string {
	if n == nil {
		return ""
	}

	parts := []string{n.Error.Class}
	for i, line := range n.Error.Backtrace {
		if i >= fingerprintFrames {
			break
		}
		if line == EmptyTraceLine {
			continue
		}
		parts = append(parts, line.Method)
	}

	input := strings.Join(parts, "|")
	hash := sha256.Sum256([]byte(input))

	// Return hex-encoded first 16 bytes (32 hex chars)
	return hex.EncodeToString(hash[:16])
}
