// File: server/cache.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"fmt"
	"os"
	"path/filepath"
)

// CacheDir returns root/name, creating it when missing. A relative root is
// resolved against the working directory.
func CacheDir(root, name string) (string, error) {
	dir, err := filepath.Abs(filepath.Join(root, name))
	if err != nil {
		return "", fmt.Errorf("cache dir: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create cache dir %s: %w", dir, err)
	}
	return dir, nil
}
