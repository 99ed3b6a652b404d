// Package filex holds filesystem helpers for the agent's data files.
package filex

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// EnsureParentDir creates the directory that will hold filePath. In-memory
// SQLite names (":memory:", "file:...mode=memory") are left alone.
func EnsureParentDir(filePath string) (string, error) {
	if filePath == "" || filePath == ":memory:" || strings.HasPrefix(filePath, "file:") {
		return "", nil
	}

	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0o770); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", dir, err)
	}

	return dir, nil
}
