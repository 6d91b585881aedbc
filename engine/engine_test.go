package engine

import (
	"context"
	"testing"
	"time"

	"github.com/wardle/ecl/backend"
)

func toyBackend() *backend.Memory {
	m := backend.NewMemory()
	m.AddIsA(1, 2)
	m.AddIsA(1, 3)
	m.AddIsA(2, 4)
	return m
}

func TestExecuteBasicHierarchy(t *testing.T) {
	e := New(toyBackend(), Options{})
	rs, err := e.Execute(context.Background(), "<< 1")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if rs.Count() != 4 {
		t.Errorf("Count() = %d, want 4", rs.Count())
	}
}

func TestExecuteCacheHit(t *testing.T) {
	e := New(toyBackend(), Options{CacheCapacity: 10, CacheTTL: time.Minute})
	first, err := e.Execute(context.Background(), "<< 1")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if first.Stats.CacheHits != 0 {
		t.Errorf("first call should not be a cache hit")
	}
	second, err := e.Execute(context.Background(), "<< 1")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if second.Stats.CacheHits == 0 {
		t.Errorf("second identical query should be served from cache")
	}
	if second.Count() != first.Count() {
		t.Errorf("cached result should have the same membership")
	}
}

func TestExecuteCacheShareAcrossCanonicallyEqualQueries(t *testing.T) {
	e := New(toyBackend(), Options{CacheCapacity: 10, CacheTTL: time.Minute})
	if _, err := e.Execute(context.Background(), "<< 2 AND << 1"); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	rs, err := e.Execute(context.Background(), "<< 1 AND << 2")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if rs.Stats.CacheHits == 0 {
		t.Errorf("expected operand-order-independent queries to share a cache entry")
	}
}

func TestMaxResultSizeGuard(t *testing.T) {
	e := New(toyBackend(), Options{MaxResultSize: 1})
	if _, err := e.Execute(context.Background(), "<< 1"); err == nil {
		t.Errorf("expected an error when the result exceeds MaxResultSize")
	}
}

func TestMatchesFastPathSelf(t *testing.T) {
	e := New(toyBackend(), Options{})
	ok, err := e.Matches(context.Background(), 2, "2")
	if err != nil {
		t.Fatalf("Matches: %v", err)
	}
	if !ok {
		t.Errorf("expected concept 2 to match itself")
	}
	ok, err = e.Matches(context.Background(), 3, "2")
	if err != nil {
		t.Fatalf("Matches: %v", err)
	}
	if ok {
		t.Errorf("expected concept 3 not to match concept 2")
	}
}

func TestMatchesSelfUnknownConceptErrorsLikeExecute(t *testing.T) {
	e := New(toyBackend(), Options{})
	_, matchesErr := e.Matches(context.Background(), 1, "999")
	if matchesErr == nil {
		t.Fatalf("expected Matches to error for a Self reference to an unknown concept")
	}
	_, execErr := e.Execute(context.Background(), "999")
	if execErr == nil {
		t.Fatalf("expected Execute to error for a Self reference to an unknown concept")
	}
}

func TestMatchesFallsBackForTransitiveHierarchy(t *testing.T) {
	e := New(toyBackend(), Options{})
	ok, err := e.Matches(context.Background(), 4, "<< 1")
	if err != nil {
		t.Fatalf("Matches: %v", err)
	}
	if !ok {
		t.Errorf("expected concept 4 to be a descendant-or-self of concept 1")
	}
}

func TestMatchesParseError(t *testing.T) {
	e := New(toyBackend(), Options{})
	if _, err := e.Matches(context.Background(), 1, "<<<"); err == nil {
		t.Errorf("expected a parse error for malformed ECL source")
	}
}

func TestBackendAccessor(t *testing.T) {
	b := toyBackend()
	e := New(b, Options{})
	if e.Backend() != backend.Backend(b) {
		t.Errorf("Backend() should return the backend passed to New")
	}
}
