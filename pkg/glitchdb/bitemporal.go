package glitchdb

import (
	"log/slog"

	"github.com/subramanian-elavathur/glitch-db/internal/codec"
	"github.com/subramanian-elavathur/glitch-db/internal/layout"
)

// Slice is one element of a bitemporal record, carrying both valid-time
// (ValidFrom/ValidTo) and transaction-time (CreatedAt/DeletedAt)
// metadata, per spec.md's glossary and §3's "Bitemporal record."
type Slice[T any] struct {
	Data      T                 `json:"data"`
	CreatedAt int64             `json:"createdAt"`
	DeletedAt int64             `json:"deletedAt"`
	ValidFrom int64             `json:"validFrom"`
	ValidTo   int64             `json:"validTo"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

func (s Slice[T]) live() bool {
	return s.DeletedAt == InfinityTime
}

type bitemporalRecord[T any] struct {
	Data []Slice[T] `json:"data"`
}

// BitemporalPartition is a valid-time milestoned store: writes carry an
// optional [validFrom, validTo) interval, and conflicting intervals are
// re-milestoned (split/closed) on write, per spec.md §4.7.
type BitemporalPartition[T any] struct {
	*core[T]
}

func newBitemporalPartition[T any](l *layout.Layout, cacheSize int, idxPaths []string, reg *Registry, logger *slog.Logger) *BitemporalPartition[T] {
	c := newCore[T](l, cacheSize, idxPaths, reg, logger)
	p := &BitemporalPartition[T]{core: c}
	c.readLatest = p.readNowValue
	return p
}

func (p *BitemporalPartition[T]) readRecord(key string) (bitemporalRecord[T], bool) {
	raw, ok := p.layout.Read(key)
	if !ok {
		return bitemporalRecord[T]{}, false
	}
	var r bitemporalRecord[T]
	if !codec.TryUnmarshal(raw, &r) {
		return bitemporalRecord[T]{}, false
	}
	return r, true
}

// readNowValue is core's readLatest hook: the "current" value of a
// bitemporal key, used for caching, deletion, joins, and data()
// aggregation, is the slice live at the present instant in valid time,
// i.e. Get(key, nil).
func (p *BitemporalPartition[T]) readNowValue(key string) (T, bool) {
	if v, ok := p.cache.Get(key); ok {
		return v.(T), true
	}
	r, ok := p.readRecord(key)
	if !ok {
		var zero T
		return zero, false
	}
	slot, ok := liveSliceAt(r.Data, nowMillis())
	if !ok {
		var zero T
		return zero, false
	}
	p.cache.Set(key, slot.Data)
	return slot.Data, true
}

// containsInstant reports whether the half-open interval [from, to)
// contains t, treating to == InfinityTime as +Inf.
func containsInstant(from, to, t int64) bool {
	return from <= t && (to == InfinityTime || t < to)
}

// intervalsOverlap reports whether half-open intervals [aFrom, aTo) and
// [bFrom, bTo) share any instant, treating either end as InfinityTime
// for +Inf.
func intervalsOverlap(aFrom, aTo, bFrom, bTo int64) bool {
	aEndsAfterBStarts := aTo == InfinityTime || aTo > bFrom
	bEndsAfterAStarts := bTo == InfinityTime || bTo > aFrom
	return aEndsAfterBStarts && bEndsAfterAStarts
}

// liveSliceAt returns the unique live slice whose [validFrom, validTo)
// interval contains asOf, per spec.md §4.7's Get contract. validTo ==
// InfinityTime is treated as +Inf.
func liveSliceAt[T any](slices []Slice[T], asOf int64) (Slice[T], bool) {
	for _, s := range slices {
		if !s.live() {
			continue
		}
		if containsInstant(s.ValidFrom, s.ValidTo, asOf) {
			return s, true
		}
	}
	return Slice[T]{}, false
}

// Set writes value for key over the interval [validFrom, validTo),
// re-milestoning any live slices it conflicts with, per spec.md §4.7's
// eight-step algorithm.
func (p *BitemporalPartition[T]) Set(key string, value T, validFrom, validTo *int64, metadata map[string]string) error {
	if err := p.validateKey(key); err != nil {
		return err
	}

	nvf := nowMillis()
	if validFrom != nil {
		nvf = *validFrom
	}
	nvt := InfinityTime
	if validTo != nil {
		nvt = *validTo
	}
	if nvt != InfinityTime && nvt <= nvf {
		return errInvalidInterval("validTo must be strictly greater than validFrom")
	}

	r, existed := p.readRecord(key)
	now := nowMillis()

	if !existed || len(r.Data) == 0 {
		r = bitemporalRecord[T]{Data: []Slice[T]{{
			Data:      value,
			CreatedAt: now,
			DeletedAt: InfinityTime,
			ValidFrom: nvf,
			ValidTo:   nvt,
			Metadata:  metadata,
		}}}
		return p.persist(key, r, nil, value)
	}

	var oldValue any
	if slot, ok := liveSliceAt(r.Data, nowMillis()); ok {
		oldValue = slot.Data
	}

	var before, after *Slice[T]
	for i := range r.Data {
		s := &r.Data[i]
		if !s.live() || !intervalsOverlap(s.ValidFrom, s.ValidTo, nvf, nvt) {
			continue
		}

		// s conflicts with the new interval. The copy taken before
		// marking it superseded feeds the narrowed continuation(s)
		// appended below: a leading remainder if s started earlier than
		// the new write, a trailing remainder if s ran later.
		copied := *s
		s.DeletedAt = now

		if s.ValidFrom < nvf {
			b := copied
			b.ValidTo = nvf
			before = &b
		}
		if nvt != InfinityTime && (s.ValidTo == InfinityTime || nvt < s.ValidTo) {
			a := copied
			a.ValidFrom = nvt
			after = &a
		}
	}

	if before != nil {
		r.Data = append(r.Data, *before)
	}

	r.Data = append(r.Data, Slice[T]{
		Data:      value,
		CreatedAt: now,
		DeletedAt: InfinityTime,
		ValidFrom: nvf,
		ValidTo:   nvt,
		Metadata:  metadata,
	})

	if after != nil {
		r.Data = append(r.Data, *after)
	}

	return p.persist(key, r, oldValue, value)
}

func (p *BitemporalPartition[T]) persist(key string, r bitemporalRecord[T], oldValue any, newValue T) error {
	data, err := codec.Marshal(r)
	if err != nil {
		return err
	}
	if err := p.layout.Write(key, data); err != nil {
		return err
	}
	if err := p.idx.Reindex(key, oldValue, newValue); err != nil {
		p.logger.Warn("failed to refresh index entries", "key", key, "err", err)
	}
	// The cache holds the value live now, matching readNowValue.
	if slot, ok := liveSliceAt(r.Data, nowMillis()); ok {
		p.cache.Set(key, slot.Data)
	} else {
		p.cache.Delete(key)
	}
	return nil
}

// Get resolves key and returns the value live at validAsOf (wall-clock
// now if nil), per spec.md §4.7. The cache is consulted only when
// validAsOf is nil.
func (p *BitemporalPartition[T]) Get(key string, validAsOf *int64) (T, bool) {
	primary := p.resolve(key)
	if validAsOf == nil {
		return p.readNowValue(primary)
	}
	r, ok := p.readRecord(primary)
	if !ok {
		var zero T
		return zero, false
	}
	slot, ok := liveSliceAt(r.Data, *validAsOf)
	if !ok {
		var zero T
		return zero, false
	}
	return slot.Data, true
}

// GetVersion returns the full live slice at validAsOf (or now, if nil),
// per spec.md §4.7.
func (p *BitemporalPartition[T]) GetVersion(key string, validAsOf *int64) (Slice[T], bool) {
	primary := p.resolve(key)
	r, ok := p.readRecord(primary)
	if !ok {
		return Slice[T]{}, false
	}
	asOf := nowMillis()
	if validAsOf != nil {
		asOf = *validAsOf
	}
	return liveSliceAt(r.Data, asOf)
}

// GetAllVersions returns every slice for key, live and superseded, in
// insertion order, per spec.md §4.7.
func (p *BitemporalPartition[T]) GetAllVersions(key string) ([]Slice[T], bool) {
	primary := p.resolve(key)
	r, ok := p.readRecord(primary)
	if !ok {
		return nil, false
	}
	return r.Data, true
}
