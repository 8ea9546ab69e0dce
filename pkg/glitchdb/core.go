package glitchdb

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/subramanian-elavathur/glitch-db/internal/cache"
	"github.com/subramanian-elavathur/glitch-db/internal/index"
	"github.com/subramanian-elavathur/glitch-db/internal/layout"
)

// joinDescriptor is a non-persistent join registration, per spec.md
// §4.5/§4.8. It names its target partition by string and is resolved
// through the registry on every invocation rather than holding a
// reference to the target partition value.
type joinDescriptor struct {
	joinName   string
	leftField  string
	rightField string // empty means absent: use target.Get(L[leftField]) directly
	targetName string
}

// core holds the substrate every partition flavor shares: storage
// layout, cache, index map, join registrations, and late-bound access
// to the parent registry for join resolution. Per spec.md §9, the plain
// operations (exists, keys, data, delete, index and join handling) live
// here once instead of being duplicated per flavor.
//
// readLatest is supplied by each flavor's constructor; it knows how to
// decode that flavor's on-disk envelope down to the caller-visible
// "current" value of T, which is all core needs to reindex, cache, and
// join against.
type core[T any] struct {
	mu       sync.Mutex
	layout   *layout.Layout
	cache    *cache.LRU
	idx      *index.Map
	registry *Registry
	logger   *slog.Logger

	joins []joinDescriptor

	readLatest func(key string) (T, bool)
}

func newCore[T any](l *layout.Layout, cacheSize int, idxPaths []string, reg *Registry, logger *slog.Logger) *core[T] {
	if logger == nil {
		logger = slog.Default()
	}
	return &core[T]{
		layout:   l,
		cache:    cache.New(cacheSize),
		idx:      index.Load(l, idxPaths),
		registry: reg,
		logger:   logger,
	}
}

// resolve maps an alternative key to its primary key via the index map.
func (c *core[T]) resolve(key string) string {
	return c.idx.Resolve(key)
}

// validateKey rejects a primary key that is not usable as a filename
// component, per spec.md §3's primary key definition. Every write path
// (Set, and CreateJoin's target partition name, which is likewise a
// filename component under the registry's base directory) must call
// this before it ever reaches layout.KeyPath's bare filepath.Join.
func (c *core[T]) validateKey(key string) error {
	if !layout.ValidKey(key) {
		return errInvalidArgument(fmt.Sprintf("invalid key %q: must be non-empty, free of path separators, and not a reserved name", key))
	}
	return nil
}

// Exists reports whether key (primary or alternative) has a cached
// value or a record file on disk, per spec.md §4.5. For a bitemporal
// partition this is true even when no slice is live at the present
// instant.
func (c *core[T]) Exists(key string) bool {
	primary := c.resolve(key)
	if c.cache.Has(primary) {
		return true
	}
	return c.layout.Exists(primary)
}

// Keys returns every primary key in the partition, per spec.md §4.1.
func (c *core[T]) Keys() ([]string, error) {
	return c.layout.Keys()
}

// Len reports the number of keys currently stored in the partition.
func (c *core[T]) Len() (int, error) {
	keys, err := c.Keys()
	if err != nil {
		return 0, err
	}
	return len(keys), nil
}

// Data aggregates every key's current value into a map, per spec.md
// §4.1.
func (c *core[T]) Data() (map[string]T, error) {
	keys, err := c.Keys()
	if err != nil {
		return nil, err
	}
	out := make(map[string]T, len(keys))
	for _, k := range keys {
		if v, ok := c.readLatest(k); ok {
			out[k] = v
		}
	}
	return out, nil
}

// Delete resolves key, removes its file, deindexes it, and evicts it
// from cache, reporting whether a file was actually removed, per
// spec.md §4.5.
func (c *core[T]) Delete(key string) bool {
	primary := c.resolve(key)

	current, existed := c.readLatest(primary)

	removed := c.layout.Remove(primary)
	if !removed {
		return false
	}

	if existed {
		if err := c.idx.RemoveKey(primary, current); err != nil {
			c.logger.Warn("failed to remove stale index entries", "key", primary, "err", err)
		}
	}
	c.cache.Delete(primary)
	return true
}

// CreateJoin registers a non-persistent join descriptor against another
// partition, resolved by name through the registry, per spec.md
// §4.5/§4.8.
func (c *core[T]) CreateJoin(targetPartition, joinName, leftField, rightField string) error {
	if targetPartition == "" || joinName == "" || leftField == "" {
		return errInvalidArgument("createJoin requires a non-empty target partition, join name, and left field")
	}
	if err := c.validateKey(targetPartition); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.joins = append(c.joins, joinDescriptor{
		joinName:   joinName,
		leftField:  leftField,
		rightField: rightField,
		targetName: targetPartition,
	})
	return nil
}

// GetWithJoins fetches the current value for key, then resolves every
// registered join against it, merging {joinName: rightRecord} entries
// before overlaying the left record's own fields on top, per spec.md
// §4.5. It fails with KindInvalidArgument if no joins are registered.
func (c *core[T]) GetWithJoins(key string) (map[string]any, bool, error) {
	c.mu.Lock()
	joins := make([]joinDescriptor, len(c.joins))
	copy(joins, c.joins)
	c.mu.Unlock()

	if len(joins) == 0 {
		return nil, false, errInvalidArgument("getWithJoins requires at least one registered join")
	}

	primary := c.resolve(key)
	left, ok := c.readLatest(primary)
	if !ok {
		return nil, false, nil
	}

	leftMap, ok := toAnyMap(left)
	if !ok {
		return nil, false, nil
	}

	merged := make(map[string]any)
	for _, j := range joins {
		right, ok := resolveJoin(c.registry, j, leftMap)
		if !ok {
			continue
		}
		merged[j.joinName] = right
	}
	for k, v := range leftMap {
		merged[k] = v
	}
	return merged, true, nil
}

// resolveJoin fetches joinDescriptor j's target partition fresh from
// the registry and performs its lookup against leftMap, per spec.md
// §4.8: the right-field branch linearly scans the target's full data
// set; otherwise it performs a direct Get by the left field's value.
func resolveJoin(reg *Registry, j joinDescriptor, leftMap map[string]any) (map[string]any, bool) {
	target, err := reg.GetPartitionByName(j.targetName)
	if err != nil {
		return nil, false
	}

	leftValue, ok := leftMap[j.leftField]
	if !ok {
		return nil, false
	}
	leftValueStr := stringifyAny(leftValue)

	if j.rightField != "" {
		data, err := target.Data()
		if err != nil {
			return nil, false
		}
		for _, k := range layoutKeysOf(data) {
			candidate := data[k]
			rv, ok := candidate[j.rightField]
			if ok && stringifyAny(rv) == leftValueStr {
				return candidate, true
			}
		}
		return nil, false
	}

	return target.Get(leftValueStr)
}

// layoutKeysOf returns data's keys in a deterministic order so join
// scans are reproducible across runs.
func layoutKeysOf(data map[string]map[string]any) []string {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
