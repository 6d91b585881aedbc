package enginecache

import (
	"testing"
	"time"

	"github.com/wardle/ecl/conceptset"
	"github.com/wardle/ecl/identifier"
	"github.com/wardle/ecl/result"
)

func set(ids ...identifier.ConceptID) *result.Set {
	return result.New(conceptset.New(ids...), result.Stats{})
}

func TestPutGetRoundTrip(t *testing.T) {
	c := New(10, time.Minute)
	v := set(1, 2, 3)
	c.Put("key", v)
	got, ok := c.Get("key")
	if !ok {
		t.Fatalf("expected cache hit")
	}
	if got.Count() != v.Count() {
		t.Errorf("Count() = %d, want %d", got.Count(), v.Count())
	}
}

func TestGetMissOnUnknownKey(t *testing.T) {
	c := New(10, time.Minute)
	if _, ok := c.Get("absent"); ok {
		t.Errorf("expected miss on absent key")
	}
}

func TestExpiryEvictsEntry(t *testing.T) {
	c := New(10, time.Minute)
	now := time.Now()
	c.now = func() time.Time { return now }
	c.Put("key", set(1))
	c.now = func() time.Time { return now.Add(2 * time.Minute) }
	if _, ok := c.Get("key"); ok {
		t.Errorf("expected expired entry to miss")
	}
	if c.Len() != 0 {
		t.Errorf("expired entry should be evicted on access, Len() = %d", c.Len())
	}
}

func TestCapacityEvictsLeastRecentlyUsed(t *testing.T) {
	c := New(2, time.Minute)
	c.Put("a", set(1))
	c.Put("b", set(2))
	c.Get("a") // touch a, making b the LRU entry
	c.Put("c", set(3))
	if _, ok := c.Get("b"); ok {
		t.Errorf("expected b to be evicted as least-recently-used")
	}
	if _, ok := c.Get("a"); !ok {
		t.Errorf("expected a to survive eviction")
	}
	if _, ok := c.Get("c"); !ok {
		t.Errorf("expected c to survive eviction")
	}
}

func TestZeroCapacityDisablesCaching(t *testing.T) {
	c := New(0, time.Minute)
	c.Put("key", set(1))
	if _, ok := c.Get("key"); ok {
		t.Errorf("zero capacity must disable caching")
	}
}

func TestClear(t *testing.T) {
	c := New(10, time.Minute)
	c.Put("key", set(1))
	c.Clear()
	if c.Len() != 0 {
		t.Errorf("Clear() should empty the cache")
	}
}
