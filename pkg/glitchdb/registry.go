// Package glitchdb implements the partition engine: an embedded,
// file-backed key-value store with unitemporal versioning, bitemporal
// milestoning, and secondary indices/joins, built on a JSON-per-key
// storage scheme.
package glitchdb

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/subramanian-elavathur/glitch-db/internal/archive"
	"github.com/subramanian-elavathur/glitch-db/internal/layout"
)

type partitionFlavor int

const (
	flavorPlain partitionFlavor = iota
	flavorVersioned
	flavorBitemporal
)

type registration struct {
	flavor    partitionFlavor
	cacheSize int
	idxPaths  []string
}

// Registry binds a base directory and a default cache size, and is the
// parent every partition's join resolution consults, per spec.md §6.
// It is the directory-multiplexer's stand-in: trivial bookkeeping atop
// one directory per partition name.
type Registry struct {
	mu            sync.RWMutex
	baseDir       string
	defaultCache  int
	logger        *slog.Logger
	registrations map[string]registration
}

// Option configures a Registry at construction time.
type Option func(*Registry)

// WithLogger installs a structured logger used for recoverable,
// swallowed failures (failed index refreshes and stale index cleanup).
// Corrupt key files are treated as missing without being logged. The
// default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) { r.logger = logger }
}

// NewRegistry binds baseDir (created if absent) as the root under which
// every partition gets its own subdirectory, per spec.md §6's on-disk
// layout: <baseDir>/<name>/.
func NewRegistry(baseDir string, defaultCacheSize int, opts ...Option) (*Registry, error) {
	if defaultCacheSize < 0 {
		defaultCacheSize = 0
	}
	r := &Registry{
		baseDir:       baseDir,
		defaultCache:  defaultCacheSize,
		registrations: make(map[string]registration),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r, nil
}

func (r *Registry) partitionDir(name string) string {
	return filepath.Join(r.baseDir, name)
}

func (r *Registry) register(name string, flavor partitionFlavor, cacheSize int, idxPaths []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.registrations[name] = registration{flavor: flavor, cacheSize: cacheSize, idxPaths: idxPaths}
}

func resolveCacheSize(r *Registry, cacheSize *int) int {
	if cacheSize != nil {
		return *cacheSize
	}
	return r.defaultCache
}

// GetPartition opens (or creates) the plain partition named name, per
// spec.md §6.
func GetPartition[T any](r *Registry, name string, idxPaths []string, cacheSize *int) (*Partition[T], error) {
	l, err := layout.New(r.partitionDir(name))
	if err != nil {
		return nil, fmt.Errorf("failed to open partition %q: %w", name, err)
	}
	size := resolveCacheSize(r, cacheSize)
	r.register(name, flavorPlain, size, idxPaths)
	return newPlainPartition[T](l, size, idxPaths, r, r.logger), nil
}

// GetVersionedPartition opens (or creates) the unitemporal partition
// named name, per spec.md §6.
func GetVersionedPartition[T any](r *Registry, name string, idxPaths []string, cacheSize *int) (*VersionedPartition[T], error) {
	l, err := layout.New(r.partitionDir(name))
	if err != nil {
		return nil, fmt.Errorf("failed to open partition %q: %w", name, err)
	}
	size := resolveCacheSize(r, cacheSize)
	r.register(name, flavorVersioned, size, idxPaths)
	return newVersionedPartition[T](l, size, idxPaths, r, r.logger), nil
}

// GetBitemporalPartition opens (or creates) the bitemporal partition
// named name, per spec.md §6.
func GetBitemporalPartition[T any](r *Registry, name string, idxPaths []string, cacheSize *int) (*BitemporalPartition[T], error) {
	l, err := layout.New(r.partitionDir(name))
	if err != nil {
		return nil, fmt.Errorf("failed to open partition %q: %w", name, err)
	}
	size := resolveCacheSize(r, cacheSize)
	r.register(name, flavorBitemporal, size, idxPaths)
	return newBitemporalPartition[T](l, size, idxPaths, r, r.logger), nil
}

// GetPartitionByName returns a fresh plain-partition handle for a
// previously registered name, for use by join resolution. Flavor is not
// checked on re-lookup — joins always treat targets as plain, per
// spec.md §6. It fails with KindNotFound if name was never registered.
func (r *Registry) GetPartitionByName(name string) (*Partition[map[string]any], error) {
	r.mu.RLock()
	reg, ok := r.registrations[name]
	r.mu.RUnlock()
	if !ok {
		return nil, errNotFound(fmt.Sprintf("partition %q is not registered", name))
	}

	l, err := layout.New(r.partitionDir(name))
	if err != nil {
		return nil, fmt.Errorf("failed to open partition %q: %w", name, err)
	}
	return newPlainPartition[map[string]any](l, reg.cacheSize, reg.idxPaths, r, r.logger), nil
}

// Backup archives the base directory into a timestamp-named gzipped tar
// and returns its path, per spec.md §6.
func (r *Registry) Backup(outputDir string) (string, error) {
	return archive.Backup(r.baseDir, outputDir)
}

// Close releases Registry's own bookkeeping. Partitions open and close
// their underlying files per-operation, so there is no outstanding I/O
// resource for Close to release today; it exists so callers can write
// idiomatic defer registry.Close() call sites without special-casing
// glitch-db.
func (r *Registry) Close() error {
	return nil
}
