package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewID returns a time-based identifier: prefix_<unix millis><4 hex>.
// The random suffix keeps ids unique when two records share a millisecond.
// Example: ord_1718000000000a1b2
func NewID(prefix string, now time.Time) string {
	suffix := strings.ReplaceAll(uuid.New().String(), "-", "")[:4]
	return fmt.Sprintf("%s_%d%s", prefix, now.UnixMilli(), suffix)
}

// GenerateSecret returns n random bytes hex encoded. Used for bootstrap
// passwords when none is configured.
func GenerateSecret(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
