//go:build !unix

package datastore

import (
	"fmt"
	"os"
)

// lockFile only creates the lock file on platforms without flock.
func lockFile(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}
	return f, nil
}
