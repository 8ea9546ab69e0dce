package glitchdb

import "time"

// InfinityTime is the sentinel denoting an open-ended deletedAt or
// validTo, per spec.md §6's "Sentinel values."
const InfinityTime int64 = -1

func nowMillis() int64 {
	return time.Now().UnixMilli()
}
