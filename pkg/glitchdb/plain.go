package glitchdb

import (
	"log/slog"

	"github.com/subramanian-elavathur/glitch-db/internal/codec"
	"github.com/subramanian-elavathur/glitch-db/internal/layout"
)

// Partition is a direct key-to-value store with secondary index and
// join support, per spec.md §4.5.
type Partition[T any] struct {
	*core[T]
}

func newPlainPartition[T any](l *layout.Layout, cacheSize int, idxPaths []string, reg *Registry, logger *slog.Logger) *Partition[T] {
	c := newCore[T](l, cacheSize, idxPaths, reg, logger)
	p := &Partition[T]{core: c}
	c.readLatest = p.readLatest
	return p
}

func (p *Partition[T]) readLatest(key string) (T, bool) {
	if v, ok := p.cache.Get(key); ok {
		return v.(T), true
	}

	raw, ok := p.layout.Read(key)
	if !ok {
		var zero T
		return zero, false
	}

	var v T
	if !codec.TryUnmarshal(raw, &v) {
		var zero T
		return zero, false
	}
	p.cache.Set(key, v)
	return v, true
}

// Set writes value for key, refreshing its secondary indices and
// caching the new value, per spec.md §4.5.
func (p *Partition[T]) Set(key string, value T) error {
	if err := p.validateKey(key); err != nil {
		return err
	}

	old, existed := p.readLatest(key)
	var oldAny any
	if existed {
		oldAny = old
	}

	data, err := codec.Marshal(value)
	if err != nil {
		return err
	}
	if err := p.layout.Write(key, data); err != nil {
		return err
	}
	if err := p.idx.Reindex(key, oldAny, value); err != nil {
		p.logger.Warn("failed to refresh index entries", "key", key, "err", err)
	}
	p.cache.Set(key, value)
	return nil
}

// Get resolves key through the index map and returns its current
// value, per spec.md §4.5.
func (p *Partition[T]) Get(key string) (T, bool) {
	primary := p.resolve(key)
	return p.readLatest(primary)
}
