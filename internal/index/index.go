// Package index maintains the persistent alternative-key to primary-key
// mapping used for secondary lookups, and the dotted field-path
// extraction that populates it.
package index

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/subramanian-elavathur/glitch-db/internal/codec"
	"github.com/subramanian-elavathur/glitch-db/internal/layout"
)

// Map is the in-memory alt-key -> primary-key mapping for one
// partition, backed by the reserved index snapshot file.
type Map struct {
	mu sync.RWMutex
	m  map[string]string

	paths []string
	l     *layout.Layout
}

// Load reads the index snapshot for l if present; a missing or
// malformed file starts with an empty map, per spec.md §4.4.
func Load(l *layout.Layout, paths []string) *Map {
	im := &Map{m: make(map[string]string), paths: paths, l: l}

	data, err := readIndexFile(l)
	if err == nil {
		var decoded map[string]string
		if codec.TryUnmarshal(data, &decoded) {
			im.m = decoded
		}
	}
	return im
}

func readIndexFile(l *layout.Layout) ([]byte, error) {
	return os.ReadFile(l.IndexPath())
}

// Paths reports the field paths this index extracts values from.
func (im *Map) Paths() []string {
	return im.paths
}

// Resolve maps k to its primary key if k is a known alternative key,
// otherwise returns k unchanged (it is assumed to already be a primary
// key).
func (im *Map) Resolve(k string) string {
	im.mu.RLock()
	defer im.mu.RUnlock()
	if primary, ok := im.m[k]; ok {
		return primary
	}
	return k
}

// Extract pulls this index's declared field paths out of value and
// returns the set of non-absent alternative-key strings.
func (im *Map) Extract(value any) []string {
	if len(im.paths) == 0 {
		return nil
	}
	out := make([]string, 0, len(im.paths))
	for _, p := range im.paths {
		if s, ok := ExtractPath(value, p); ok {
			out = append(out, s)
		}
	}
	return out
}

// Reindex removes every alt-key that currently maps to primary and
// derives from old, then, if new is non-nil, adds alt-keys derived from
// new back in pointing at primary. It flushes the resulting map to disk.
// This is the writer flow of spec.md §4.4: remove old indices first,
// then set new ones, then persist.
func (im *Map) Reindex(primary string, old, new any) error {
	im.mu.Lock()
	if old != nil {
		for _, alt := range im.Extract(old) {
			if im.m[alt] == primary {
				delete(im.m, alt)
			}
		}
	}
	if new != nil {
		for _, alt := range im.Extract(new) {
			im.m[alt] = primary
		}
	}
	snapshot := im.snapshotLocked()
	im.mu.Unlock()

	return im.flush(snapshot)
}

// RemoveKey removes every alt-key derived from value that maps to
// primary, then persists the map. Used on delete.
func (im *Map) RemoveKey(primary string, value any) error {
	return im.Reindex(primary, value, nil)
}

func (im *Map) snapshotLocked() map[string]string {
	snapshot := make(map[string]string, len(im.m))
	for k, v := range im.m {
		snapshot[k] = v
	}
	return snapshot
}

func (im *Map) flush(snapshot map[string]string) error {
	data, err := codec.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal index map: %w", err)
	}
	if err := os.WriteFile(im.l.IndexPath(), data, 0o644); err != nil {
		return fmt.Errorf("failed to write index file: %w", err)
	}
	return nil
}

// ExtractPath walks value (expected to decode to nested
// map[string]any-shaped JSON) along the dotted path, returning the
// string form of the leaf, or (\"\", false) if any intermediate segment
// is absent. Non-string leaves are coerced via fmt.Sprint.
func ExtractPath(value any, path string) (string, bool) {
	m, ok := toMap(value)
	if !ok {
		return "", false
	}

	segments := strings.Split(path, ".")
	var cur any = m
	for i, seg := range segments {
		curMap, ok := toMap(cur)
		if !ok {
			return "", false
		}
		v, present := curMap[seg]
		if !present {
			return "", false
		}
		if i == len(segments)-1 {
			return stringify(v), true
		}
		cur = v
	}
	return "", false
}

func stringify(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// toMap coerces v into a map[string]any, round-tripping through JSON if
// v is a typed struct rather than already a map (mirrors the teacher's
// json.RawMessage-first decoding strategy so that Extract works whether
// called with a decoded map or a freshly-unmarshaled record value).
func toMap(v any) (map[string]any, bool) {
	if m, ok := v.(map[string]any); ok {
		return m, true
	}
	data, err := codec.Marshal(v)
	if err != nil {
		return nil, false
	}
	var m map[string]any
	if !codec.TryUnmarshal(data, &m) {
		return nil, false
	}
	return m, true
}
