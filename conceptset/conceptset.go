// Package conceptset provides Set, a compressed, ordered set of concept
// identifiers used as the evaluator's result value for every AST node.
//
// The spec deliberately leaves the representation of large sets opaque:
// "the spec also does not prescribe the roaring-bitmap representation used
// for optional set compression; only its algebraic contract." Set is backed
// by github.com/RoaringBitmap/roaring, which only indexes uint32 values, so
// a 64-bit SCTID is split into a uint32 shard key (the high bits) and a
// uint32 offset (the low bits) - one roaring.Bitmap per shard. In practice
// SNOMED CT concept identifiers cluster into a handful of namespace/partition
// shards, so this stays close to one bitmap per "family" of identifiers.
package conceptset

import (
	"sort"

	"github.com/RoaringBitmap/roaring"
	"github.com/wardle/ecl/identifier"
)

// Set is an unordered, deduplicated collection of concept identifiers
// supporting the algebraic operations the evaluator needs: union,
// intersection, difference and membership.
//
// The zero value is an empty, usable set.
type Set struct {
	shards map[uint32]*roaring.Bitmap
}

func shardAndOffset(id identifier.ConceptID) (uint32, uint32) {
	return uint32(uint64(id) >> 32), uint32(uint64(id))
}

// New returns an empty Set, optionally pre-populated with ids.
func New(ids ...identifier.ConceptID) *Set {
	s := &Set{shards: make(map[uint32]*roaring.Bitmap)}
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

func (s *Set) ensure() {
	if s.shards == nil {
		s.shards = make(map[uint32]*roaring.Bitmap)
	}
}

func (s *Set) bitmap(shard uint32, create bool) *roaring.Bitmap {
	s.ensure()
	b, ok := s.shards[shard]
	if !ok {
		if !create {
			return nil
		}
		b = roaring.NewBitmap()
		s.shards[shard] = b
	}
	return b
}

// Add inserts id into the set.
func (s *Set) Add(id identifier.ConceptID) {
	shard, offset := shardAndOffset(id)
	s.bitmap(shard, true).Add(offset)
}

// Remove deletes id from the set, if present.
func (s *Set) Remove(id identifier.ConceptID) {
	shard, offset := shardAndOffset(id)
	if b := s.bitmap(shard, false); b != nil {
		b.Remove(offset)
	}
}

// Contains reports whether id is a member of the set.
func (s *Set) Contains(id identifier.ConceptID) bool {
	shard, offset := shardAndOffset(id)
	b := s.bitmap(shard, false)
	return b != nil && b.Contains(offset)
}

// Len returns the number of members in the set.
func (s *Set) Len() int {
	var n uint64
	for _, b := range s.shards {
		n += b.GetCardinality()
	}
	return int(n)
}

// IsEmpty reports whether the set has no members.
func (s *Set) IsEmpty() bool {
	for _, b := range s.shards {
		if !b.IsEmpty() {
			return false
		}
	}
	return true
}

// Slice returns the members of the set as a sorted slice. The caller owns
// the result.
func (s *Set) Slice() []identifier.ConceptID {
	out := make([]identifier.ConceptID, 0, s.Len())
	for shard, b := range s.shards {
		it := b.Iterator()
		for it.HasNext() {
			offset := it.Next()
			out = append(out, identifier.ConceptID(uint64(shard)<<32|uint64(offset)))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ForEach calls f once per member, in ascending order. Iteration stops early
// if f returns false.
func (s *Set) ForEach(f func(identifier.ConceptID) bool) {
	for _, id := range s.Slice() {
		if !f(id) {
			return
		}
	}
}

// Clone returns an independent copy of s.
func (s *Set) Clone() *Set {
	out := &Set{shards: make(map[uint32]*roaring.Bitmap, len(s.shards))}
	for shard, b := range s.shards {
		out.shards[shard] = b.Clone()
	}
	return out
}

// Union returns a new set containing every member of any of sets; nil sets
// are skipped.
func Union(sets ...*Set) *Set {
	out := New()
	for _, s := range sets {
		if s == nil {
			continue
		}
		for shard, b := range s.shards {
			existing := out.bitmap(shard, true)
			existing.Or(b)
		}
	}
	return out
}

// Intersect returns a new set containing only members present in every one
// of sets. Intersect of zero sets is empty.
func Intersect(sets ...*Set) *Set {
	if len(sets) == 0 {
		return New()
	}
	out := sets[0].Clone()
	for _, s := range sets[1:] {
		for shard, b := range out.shards {
			other := s.bitmap(shard, false)
			if other == nil {
				b.Clear()
				continue
			}
			b.And(other)
		}
	}
	return out
}

// Difference returns a new set containing members of s not present in other.
func Difference(s, other *Set) *Set {
	out := s.Clone()
	if other == nil {
		return out
	}
	for shard, b := range out.shards {
		if o := other.bitmap(shard, false); o != nil {
			b.AndNot(o)
		}
	}
	return out
}

// Equal reports whether s and other contain exactly the same members.
func Equal(s, other *Set) bool {
	if s.Len() != other.Len() {
		return false
	}
	for shard, b := range s.shards {
		ob := other.bitmap(shard, false)
		if ob == nil {
			if !b.IsEmpty() {
				return false
			}
			continue
		}
		if !b.Equals(ob) {
			return false
		}
	}
	for shard, b := range other.shards {
		if _, ok := s.shards[shard]; !ok && !b.IsEmpty() {
			return false
		}
	}
	return true
}
