package glitchdb

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/subramanian-elavathur/glitch-db/internal/codec"
	"github.com/subramanian-elavathur/glitch-db/internal/layout"
)

// VersionSlot is one immutable write in a key's version timeline,
// carrying the value and its transaction-time audit metadata, per
// spec.md §3's "Unitemporal record."
type VersionSlot[T any] struct {
	Data      T                 `json:"data"`
	Version   int               `json:"version"`
	CreatedAt int64             `json:"createdAt"`
	DeletedAt int64             `json:"deletedAt"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

type unitemporalRecord[T any] struct {
	LatestVersion int                   `json:"latestVersion"`
	Data          map[string]VersionSlot[T] `json:"data"`
}

// VersionedPartition is an append-only version timeline under each key,
// per spec.md §4.6.
type VersionedPartition[T any] struct {
	*core[T]
}

func newVersionedPartition[T any](l *layout.Layout, cacheSize int, idxPaths []string, reg *Registry, logger *slog.Logger) *VersionedPartition[T] {
	c := newCore[T](l, cacheSize, idxPaths, reg, logger)
	p := &VersionedPartition[T]{core: c}
	c.readLatest = p.readLatestValue
	return p
}

func (p *VersionedPartition[T]) readRecord(key string) (unitemporalRecord[T], bool) {
	raw, ok := p.layout.Read(key)
	if !ok {
		return unitemporalRecord[T]{}, false
	}
	var r unitemporalRecord[T]
	if !codec.TryUnmarshal(raw, &r) {
		return unitemporalRecord[T]{}, false
	}
	return r, true
}

func (p *VersionedPartition[T]) latestSlot(r unitemporalRecord[T]) (VersionSlot[T], bool) {
	slot, ok := r.Data[versionKey(r.LatestVersion)]
	return slot, ok
}

func (p *VersionedPartition[T]) readLatestValue(key string) (T, bool) {
	if v, ok := p.cache.Get(key); ok {
		return v.(T), true
	}
	r, ok := p.readRecord(key)
	if !ok {
		var zero T
		return zero, false
	}
	slot, ok := p.latestSlot(r)
	if !ok {
		var zero T
		return zero, false
	}
	p.cache.Set(key, slot.Data)
	return slot.Data, true
}

func versionKey(v int) string {
	return fmt.Sprintf("%d", v)
}

// Set appends a new version for key, superseding the previous latest
// slot, and refreshes indices and the cache from the new value, per
// spec.md §4.6.
func (p *VersionedPartition[T]) Set(key string, value T, metadata map[string]string) error {
	if err := p.validateKey(key); err != nil {
		return err
	}

	r, existed := p.readRecord(key)
	var oldValue any
	if existed {
		if slot, ok := p.latestSlot(r); ok {
			oldValue = slot.Data
		}
	} else {
		r = unitemporalRecord[T]{Data: make(map[string]VersionSlot[T])}
	}

	now := nowMillis()
	r.LatestVersion++
	if r.LatestVersion != 1 {
		prevKey := versionKey(r.LatestVersion - 1)
		if prev, ok := r.Data[prevKey]; ok {
			prev.DeletedAt = now
			r.Data[prevKey] = prev
		}
	}

	r.Data[versionKey(r.LatestVersion)] = VersionSlot[T]{
		Data:      value,
		Version:   r.LatestVersion,
		CreatedAt: now,
		DeletedAt: InfinityTime,
		Metadata:  metadata,
	}

	data, err := codec.Marshal(r)
	if err != nil {
		return err
	}
	if err := p.layout.Write(key, data); err != nil {
		return err
	}
	if err := p.idx.Reindex(key, oldValue, value); err != nil {
		p.logger.Warn("failed to refresh index entries", "key", key, "err", err)
	}
	p.cache.Set(key, value)
	return nil
}

// Get resolves key and returns the value at version, or the latest
// value (cache-eligible) if version is nil, per spec.md §4.6.
func (p *VersionedPartition[T]) Get(key string, version *int) (T, bool) {
	primary := p.resolve(key)
	if version == nil {
		return p.readLatestValue(primary)
	}

	r, ok := p.readRecord(primary)
	if !ok {
		var zero T
		return zero, false
	}
	slot, ok := r.Data[versionKey(*version)]
	if !ok {
		var zero T
		return zero, false
	}
	return slot.Data, true
}

// GetVersion returns the full slot (with audit fields) at version, or
// the latest slot if version is nil, per spec.md §4.6.
func (p *VersionedPartition[T]) GetVersion(key string, version *int) (VersionSlot[T], bool) {
	primary := p.resolve(key)
	r, ok := p.readRecord(primary)
	if !ok {
		return VersionSlot[T]{}, false
	}
	if version == nil {
		return p.latestSlot(r)
	}
	slot, ok := r.Data[versionKey(*version)]
	return slot, ok
}

// GetAllVersions returns every slot for key in increasing version
// order, or (nil, false) if key does not exist, per spec.md §4.6.
func (p *VersionedPartition[T]) GetAllVersions(key string) ([]VersionSlot[T], bool) {
	primary := p.resolve(key)
	r, ok := p.readRecord(primary)
	if !ok {
		return nil, false
	}
	slots := make([]VersionSlot[T], 0, len(r.Data))
	for _, s := range r.Data {
		slots = append(slots, s)
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i].Version < slots[j].Version })
	return slots, true
}
