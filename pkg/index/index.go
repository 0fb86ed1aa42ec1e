// Package index provides O(log n) lookup of the 3-hourly Kp geomagnetic
// index for an arbitrary instant, returning the value recorded at or
// before that instant.
package index

import (
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/swxkit/kpindex/pkg/source"
	"github.com/swxkit/kpindex/pkg/types"
)

// Index is an ordered mapping from grid-aligned UTC instants to Kp
// values, rebuilt wholesale from its source on load. Keys are held as
// unix seconds in a sorted slice; every query is a binary search.
//
// Index performs no internal locking. Refresh, and Query when it has to
// fall back to an internal refresh, mutate the table; callers sharing an
// Index across goroutines must serialize those against reads.
type Index struct {
	src    source.Source
	logger *log.Logger
	now    func() time.Time

	times  []int64 // sorted ascending
	values []float64
}

// Option configures an Index.
type Option func(*Index)

// WithLogger sets the logger used for non-fatal warnings, such as a
// missing 3-hour slot.
func WithLogger(l *log.Logger) Option {
	return func(ix *Index) { ix.logger = l }
}

// WithNow overrides the wall-clock used by the future-instant check.
func WithNow(now func() time.Time) Option {
	return func(ix *Index) { ix.now = now }
}

// New creates an Index backed by src and performs a best-effort initial
// load. New never fails: if the initial load errors or yields nothing,
// the first query retries and surfaces the problem.
func New(src source.Source, opts ...Option) *Index {
	ix := &Index{
		src:    src,
		logger: log.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(ix)
	}

	// Errors here surface at query time instead.
	_ = ix.load(false)

	return ix
}

// Refresh clears the index and reloads every sample from the source.
func (ix *Index) Refresh() error {
	return ix.load(true)
}

// Query returns the key and Kp value covering the given instant.
//
// The instant is normalized to UTC. An exact key is returned
// immediately. Otherwise the instant is validated against the known
// range: too early fails with ErrBeforeEarliest; beyond the last
// interval, the query either fails with ErrFutureTimestamp (instant
// ahead of the wall clock) or triggers one refresh and fails with
// ErrLaterThanLatest if coverage still ends too soon. When discretize is
// true the instant is snapped down to its 3-hour slot first; if that
// slot is missing a warning is logged and the search falls back to the
// latest key before the slot.
func (ix *Index) Query(t time.Time, discretize bool) (time.Time, float64, error) {
	t = t.UTC()

	if v, ok := ix.exact(t); ok {
		return t, v, nil
	}

	if len(ix.times) == 0 {
		if err := ix.Refresh(); err != nil {
			return time.Time{}, 0, err
		}
		if len(ix.times) == 0 {
			return time.Time{}, 0, ErrCacheEmpty
		}
	}

	if t.Before(ix.firstKey()) {
		return time.Time{}, 0, ErrBeforeEarliest
	}
	if t.After(ix.lastKey().Add(types.GridInterval)) {
		if t.After(ix.now()) {
			return time.Time{}, 0, ErrFutureTimestamp
		}
		// The source may have published newer intervals since the last
		// load. One refresh, no retry loop.
		if err := ix.Refresh(); err != nil {
			return time.Time{}, 0, err
		}
		if len(ix.times) == 0 {
			return time.Time{}, 0, ErrCacheEmpty
		}
		if t.After(ix.lastKey().Add(types.GridInterval)) {
			return time.Time{}, 0, ErrLaterThanLatest
		}
	}

	// The refresh may have added the exact key.
	if v, ok := ix.exact(t); ok {
		return t, v, nil
	}

	search := t
	if discretize {
		search = types.GridFloor(t)
		if v, ok := ix.exact(search); ok {
			return search, v, nil
		}
		ix.logger.Printf("kpindex: no sample at 3-hour slot %s covering %s, falling back to left-nearest",
			search.Format(time.RFC3339), t.Format(time.RFC3339))
	}

	return ix.leftNearest(search)
}

// Covering returns the key covering the given instant. Out-of-range
// instants yield ok=false instead of an error; an empty or unavailable
// source still fails.
func (ix *Index) Covering(t time.Time) (time.Time, bool, error) {
	key, _, err := ix.Query(t, true)
	switch {
	case err == nil:
		return key, true, nil
	case errors.Is(err, ErrBeforeEarliest),
		errors.Is(err, ErrFutureTimestamp),
		errors.Is(err, ErrLaterThanLatest):
		return time.Time{}, false, nil
	default:
		return time.Time{}, false, err
	}
}

// Value returns the Kp value covering the given instant.
func (ix *Index) Value(t time.Time) (float64, error) {
	_, v, err := ix.Query(t, true)
	return v, err
}

// ValueFunc returns Value as a standalone function bound to the index.
func (ix *Index) ValueFunc() func(time.Time) (float64, error) {
	return ix.Value
}

// Len returns the number of samples held.
func (ix *Index) Len() int {
	return len(ix.times)
}

// First returns the earliest key; ok is false when the index is empty.
func (ix *Index) First() (time.Time, bool) {
	if len(ix.times) == 0 {
		return time.Time{}, false
	}
	return ix.firstKey(), true
}

// Last returns the latest key; ok is false when the index is empty.
func (ix *Index) Last() (time.Time, bool) {
	if len(ix.times) == 0 {
		return time.Time{}, false
	}
	return ix.lastKey(), true
}

// load rebuilds the table from the source. Later samples overwrite
// earlier ones for the same instant.
func (ix *Index) load(force bool) error {
	samples, err := ix.src.Load(force)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}

	byTime := make(map[int64]float64, len(samples))
	for _, s := range samples {
		byTime[s.Time.UTC().Unix()] = s.Kp
	}

	times := make([]int64, 0, len(byTime))
	for ts := range byTime {
		times = append(times, ts)
	}
	sort.Slice(times, func(i, j int) bool { return times[i] < times[j] })

	values := make([]float64, len(times))
	for i, ts := range times {
		values[i] = byTime[ts]
	}

	ix.times = times
	ix.values = values
	return nil
}

// exact reports the value stored at t, if t is precisely a key.
func (ix *Index) exact(t time.Time) (float64, bool) {
	if len(ix.times) == 0 || t.Nanosecond() != 0 {
		return 0, false
	}
	ts := t.Unix()
	pos := ix.lowerBound(ts)
	if pos < len(ix.times) && ix.times[pos] == ts {
		return ix.values[pos], true
	}
	return 0, false
}

// leftNearest returns the latest key strictly before the search instant.
// Range validation has already pinned the instant inside
// [first key, last key + 3h), so a left position exists; the pos == 0
// guard only fires if that invariant is ever violated.
func (ix *Index) leftNearest(search time.Time) (time.Time, float64, error) {
	ts := search.Unix()
	pos := ix.lowerBound(ts)
	if pos < len(ix.times) && ix.times[pos] == ts && search.Nanosecond() != 0 {
		// The key at pos is a whole second before the sub-second search
		// instant, so it is a valid left neighbor.
		pos++
	}
	if pos == 0 {
		return time.Time{}, 0, ErrBeforeEarliest
	}
	return time.Unix(ix.times[pos-1], 0).UTC(), ix.values[pos-1], nil
}

// lowerBound returns the index of the first key >= ts.
func (ix *Index) lowerBound(ts int64) int {
	return sort.Search(len(ix.times), func(i int) bool { return ix.times[i] >= ts })
}

func (ix *Index) firstKey() time.Time {
	return time.Unix(ix.times[0], 0).UTC()
}

func (ix *Index) lastKey() time.Time {
	return time.Unix(ix.times[len(ix.times)-1], 0).UTC()
}
