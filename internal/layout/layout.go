// Package layout maps primary keys to on-disk file paths for a single
// partition directory, and lists/classifies its directory entries.
package layout

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// IndexFileName is the reserved file holding the serialized index map.
const IndexFileName = "__index__.json"

const jsonSuffix = ".json"

// Layout owns a single partition directory.
type Layout struct {
	dir string
}

// New ensures dir exists and returns a Layout rooted there.
func New(dir string) (*Layout, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create partition directory %s: %w", dir, err)
	}
	return &Layout{dir: dir}, nil
}

// Dir returns the partition's root directory.
func (l *Layout) Dir() string {
	return l.dir
}

// IndexPath returns the path of the reserved index snapshot file.
func (l *Layout) IndexPath() string {
	return filepath.Join(l.dir, IndexFileName)
}

// ValidKey reports whether k is usable as a filename component: non-empty,
// free of path separators, and not the reserved index file's stem.
func ValidKey(k string) bool {
	if k == "" {
		return false
	}
	if strings.ContainsAny(k, "/\\") {
		return false
	}
	if k == strings.TrimSuffix(IndexFileName, jsonSuffix) {
		return false
	}
	return true
}

// KeyPath returns the file path that stores the record for primary key k.
func (l *Layout) KeyPath(k string) string {
	return filepath.Join(l.dir, k+jsonSuffix)
}

// Exists reports whether the file for key k is present.
func (l *Layout) Exists(k string) bool {
	_, err := os.Stat(l.KeyPath(k))
	return err == nil
}

// Read returns the raw bytes stored for key k, or (nil, false) if the
// file is absent or unreadable. Per spec.md §4.2, a read failure on a
// single key demotes to "missing," never a fatal partition error.
func (l *Layout) Read(k string) ([]byte, bool) {
	data, err := os.ReadFile(l.KeyPath(k))
	if err != nil {
		return nil, false
	}
	return data, true
}

// Write persists data for key k, creating or overwriting the file.
func (l *Layout) Write(k string, data []byte) error {
	return os.WriteFile(l.KeyPath(k), data, 0o644)
}

// Remove deletes the file for key k, reporting whether a file was
// actually removed.
func (l *Layout) Remove(k string) bool {
	err := os.Remove(l.KeyPath(k))
	return err == nil
}

// Keys returns every primary key with a file on disk, in directory
// order, excluding the reserved index file and any non-.json entry.
func (l *Layout) Keys() ([]string, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list partition directory %s: %w", l.dir, err)
	}

	keys := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if name == IndexFileName {
			continue
		}
		if !strings.HasSuffix(name, jsonSuffix) {
			continue
		}
		keys = append(keys, strings.TrimSuffix(name, jsonSuffix))
	}
	return keys, nil
}
