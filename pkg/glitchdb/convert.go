package glitchdb

import (
	"fmt"

	"github.com/subramanian-elavathur/glitch-db/internal/codec"
)

// toAnyMap round-trips v through JSON to obtain a generic
// map[string]any view, used by join resolution to read and merge
// fields without knowing the concrete value type at compile time.
func toAnyMap(v any) (map[string]any, bool) {
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

func stringifyAny(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
