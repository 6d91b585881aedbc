// Package result holds the query-facing output types: the result set itself
// and optional execution statistics, grounded in terminology.Statistics's
// accumulate-then-report shape (terminology/store.go, terminology/service.go)
// generalized from database-read counters into the query-level counters the
// specification names: elapsed wall time, concepts visited, cache hits.
package result

import (
	"time"

	"github.com/wardle/ecl/conceptset"
	"github.com/wardle/ecl/identifier"
)

// Stats carries optional diagnostics about one query's evaluation. The zero
// value means "statistics were not collected" - callers that don't need them
// pay no bookkeeping cost beyond a few counter increments.
type Stats struct {
	Elapsed         time.Duration
	ConceptsVisited int
	CacheHits       int
}

// Set is the outcome of a successful query: a concept-ID set plus whatever
// Stats the evaluator collected along the way.
type Set struct {
	ids   *conceptset.Set
	Stats Stats
}

// New wraps ids (which Set takes ownership of) as a query result.
func New(ids *conceptset.Set, stats Stats) *Set {
	if ids == nil {
		ids = conceptset.New()
	}
	return &Set{ids: ids, Stats: stats}
}

// Count returns the number of concepts in the result.
func (s *Set) Count() int { return s.ids.Len() }

// Contains reports whether id is a member of the result.
func (s *Set) Contains(id identifier.ConceptID) bool { return s.ids.Contains(id) }

// ForEach calls f once per member in ascending order, stopping early if f
// returns false.
func (s *Set) ForEach(f func(identifier.ConceptID) bool) { s.ids.ForEach(f) }

// Slice returns the members of the result as a sorted slice. The caller owns
// the result, per "Query results are owned by the caller after execute
// returns."
func (s *Set) Slice() []identifier.ConceptID { return s.ids.Slice() }

// WithCacheHits returns a copy of s whose Stats.CacheHits is incremented by
// n, sharing the same underlying member set. Used by engine.Engine to report
// that a query was served from the result cache without re-evaluating it.
func (s *Set) WithCacheHits(n int) *Set {
	stats := s.Stats
	stats.CacheHits += n
	return &Set{ids: s.ids, Stats: stats}
}
