package closure

import (
	"context"
	"testing"

	"github.com/wardle/ecl/backend"
	"github.com/wardle/ecl/identifier"
)

func toyBackend() *backend.Memory {
	m := backend.NewMemory()
	m.AddIsA(1, 2)
	m.AddIsA(1, 3)
	m.AddIsA(2, 4)
	m.AddIsA(2, 5)
	m.AddIsA(3, 6)
	m.AddAttribute(4, backend.Relationship{AttributeTypeID: 100, DestinationID: 7})
	m.SetRefsetMembers(200, []identifier.ConceptID{2, 4})
	return m
}

func TestBuildDescendantsAndAncestors(t *testing.T) {
	c, err := Build(context.Background(), toyBackend())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	desc := c.Descendants(1)
	for _, id := range []identifier.ConceptID{2, 3, 4, 5, 6} {
		if !desc.Contains(id) {
			t.Errorf("Descendants(1) missing %d", id)
		}
	}
	if desc.Contains(1) {
		t.Errorf("Descendants(1) must exclude 1 itself")
	}
	if desc.Contains(7) {
		t.Errorf("Descendants(1) must not include non-IS-A related concept 7")
	}

	anc := c.Ancestors(6)
	if !anc.Contains(3) || !anc.Contains(1) {
		t.Errorf("Ancestors(6) = %v, want to contain 1 and 3", anc.Slice())
	}
	if anc.Contains(6) {
		t.Errorf("Ancestors(6) must exclude 6 itself")
	}

	if !c.Descendants(6).IsEmpty() {
		t.Errorf("leaf concept 6 should have no descendants")
	}
	if !c.Ancestors(1).IsEmpty() {
		t.Errorf("root concept 1 should have no ancestors")
	}
}

func TestCacheDelegatesNonHierarchyOps(t *testing.T) {
	ctx := context.Background()
	src := toyBackend()
	c, err := Build(ctx, src)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	members, err := c.GetRefsetMembers(ctx, 200)
	if err != nil {
		t.Fatalf("GetRefsetMembers: %v", err)
	}
	if len(members) != 2 {
		t.Errorf("GetRefsetMembers(200) = %v, want 2 members", members)
	}

	attrs, err := c.GetAttributes(ctx, 4)
	if err != nil {
		t.Fatalf("GetAttributes: %v", err)
	}
	if len(attrs) != 1 || attrs[0].DestinationID != 7 {
		t.Errorf("GetAttributes(4) = %v, want destination 7", attrs)
	}
}

func TestCachePreservesDirectEdges(t *testing.T) {
	ctx := context.Background()
	c, err := Build(ctx, toyBackend())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	children, err := c.GetChildren(ctx, 1)
	if err != nil {
		t.Fatalf("GetChildren: %v", err)
	}
	if len(children) != 2 {
		t.Errorf("GetChildren(1) = %v, want direct children {2,3}", children)
	}
}
