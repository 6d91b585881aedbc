package conceptset

import (
	"reflect"
	"testing"

	"github.com/wardle/ecl/identifier"
)

func ids(vs ...uint64) []identifier.ConceptID {
	out := make([]identifier.ConceptID, len(vs))
	for i, v := range vs {
		out[i] = identifier.ConceptID(v)
	}
	return out
}

func TestUnionIntersectDifference(t *testing.T) {
	a := New(ids(1, 2, 3)...)
	b := New(ids(2, 3, 4)...)

	u := Union(a, b)
	if got := u.Slice(); !reflect.DeepEqual(got, ids(1, 2, 3, 4)) {
		t.Errorf("Union: got %v", got)
	}

	i := Intersect(a, b)
	if got := i.Slice(); !reflect.DeepEqual(got, ids(2, 3)) {
		t.Errorf("Intersect: got %v", got)
	}

	d := Difference(a, b)
	if got := d.Slice(); !reflect.DeepEqual(got, ids(1)) {
		t.Errorf("Difference: got %v", got)
	}
	if !Equal(d, New(ids(1)...)) {
		t.Errorf("expected difference to equal {1}")
	}
}

func TestLargeShardSplit(t *testing.T) {
	// identifiers that differ only in their high 32 bits exercise the
	// shard/offset split directly.
	low := identifier.ConceptID(42)
	high := identifier.ConceptID(1<<32 | 42)
	s := New(low, high)
	if s.Len() != 2 {
		t.Fatalf("expected 2 members, got %d", s.Len())
	}
	if !s.Contains(low) || !s.Contains(high) {
		t.Fatalf("expected both shards to contain their member")
	}
}

func TestContainsAndRemove(t *testing.T) {
	s := New(ids(10, 20)...)
	if !s.Contains(identifier.ConceptID(10)) {
		t.Fatalf("expected 10 to be a member")
	}
	s.Remove(identifier.ConceptID(10))
	if s.Contains(identifier.ConceptID(10)) {
		t.Fatalf("expected 10 to be removed")
	}
	if s.Len() != 1 {
		t.Fatalf("expected 1 member remaining, got %d", s.Len())
	}
}
