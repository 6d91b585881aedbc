package backend

import (
	"context"
	"sort"
	"testing"

	"github.com/wardle/ecl/identifier"
)

// toyBackend builds the fixture used throughout the test suite: concept 1
// has children {2, 3}; concept 2 has children {4, 5}; concept 3 has child
// {6}; attribute 100 on concept 4 has destination 7; refset 200 has members
// {2, 4}.
func toyBackend() *Memory {
	m := NewMemory()
	m.AddIsA(1, 2)
	m.AddIsA(1, 3)
	m.AddIsA(2, 4)
	m.AddIsA(2, 5)
	m.AddIsA(3, 6)
	m.AddAttribute(4, Relationship{AttributeTypeID: 100, DestinationID: 7})
	m.SetRefsetMembers(200, []identifier.ConceptID{2, 4})
	return m
}

func TestMemoryHierarchy(t *testing.T) {
	m := toyBackend()
	ctx := context.Background()

	children, err := m.GetChildren(ctx, 1)
	if err != nil {
		t.Fatalf("GetChildren: %v", err)
	}
	sort.Slice(children, func(i, j int) bool { return children[i] < children[j] })
	want := []identifier.ConceptID{2, 3}
	if len(children) != len(want) || children[0] != want[0] || children[1] != want[1] {
		t.Errorf("GetChildren(1) = %v, want %v", children, want)
	}

	parents, err := m.GetParents(ctx, 4)
	if err != nil {
		t.Fatalf("GetParents: %v", err)
	}
	if len(parents) != 1 || parents[0] != 2 {
		t.Errorf("GetParents(4) = %v, want [2]", parents)
	}
}

func TestMemoryHasConceptAndAllConceptIDs(t *testing.T) {
	m := toyBackend()
	ctx := context.Background()

	has, err := m.HasConcept(ctx, 6)
	if err != nil || !has {
		t.Fatalf("HasConcept(6) = %v, %v; want true, nil", has, err)
	}
	has, err = m.HasConcept(ctx, 999)
	if err != nil || has {
		t.Fatalf("HasConcept(999) = %v, %v; want false, nil", has, err)
	}

	ch, err := m.AllConceptIDs(ctx)
	if err != nil {
		t.Fatalf("AllConceptIDs: %v", err)
	}
	var ids []identifier.ConceptID
	for r := range ch {
		if r.Err != nil {
			t.Fatalf("stream error: %v", r.Err)
		}
		ids = append(ids, r.ID)
	}
	if len(ids) != 7 { // 1,2,3,4,5,6,7
		t.Errorf("expected 7 known concepts, got %d: %v", len(ids), ids)
	}
}

func TestMemoryRefsetAndAttributes(t *testing.T) {
	m := toyBackend()
	ctx := context.Background()

	members, err := m.GetRefsetMembers(ctx, 200)
	if err != nil {
		t.Fatalf("GetRefsetMembers: %v", err)
	}
	sort.Slice(members, func(i, j int) bool { return members[i] < members[j] })
	if len(members) != 2 || members[0] != 2 || members[1] != 4 {
		t.Errorf("GetRefsetMembers(200) = %v, want [2 4]", members)
	}

	attrs, err := m.GetAttributes(ctx, 4)
	if err != nil {
		t.Fatalf("GetAttributes: %v", err)
	}
	if len(attrs) != 1 || attrs[0].AttributeTypeID != 100 || attrs[0].DestinationID != 7 {
		t.Errorf("GetAttributes(4) = %v, want [{100 7 0}]", attrs)
	}

	inbound, err := m.GetInboundRelationships(ctx, 7)
	if err != nil {
		t.Fatalf("GetInboundRelationships: %v", err)
	}
	if len(inbound) != 1 || inbound[0].DestinationID != 4 {
		t.Errorf("GetInboundRelationships(7) = %v, want source 4", inbound)
	}
}

func TestDefaultsSatisfyOptionalMethods(t *testing.T) {
	var d Defaults
	ctx := context.Background()
	if rels, err := d.GetAttributes(ctx, 1); err != nil || rels != nil {
		t.Errorf("Defaults.GetAttributes should return nil, nil; got %v, %v", rels, err)
	}
	if active, err := d.IsConceptActive(ctx, 1); err != nil || active {
		t.Errorf("Defaults.IsConceptActive should return false, nil; got %v, %v", active, err)
	}
}

func TestResolveWellKnownAlternateIdentifier(t *testing.T) {
	id, ok, err := ResolveWellKnownAlternateIdentifier("http://snomed.info/id/73211009", "")
	if err != nil || !ok || id != 73211009 {
		t.Errorf("got %v, %v, %v; want 73211009, true, nil", id, ok, err)
	}
	id, ok, err = ResolveWellKnownAlternateIdentifier("http://snomed.info/sct#73211009", "")
	if err != nil || !ok || id != 73211009 {
		t.Errorf("got %v, %v, %v; want 73211009, true, nil", id, ok, err)
	}
	_, ok, _ = ResolveWellKnownAlternateIdentifier("http://example.com/73211009", "")
	if ok {
		t.Errorf("unrecognized scheme should not resolve")
	}
}

func TestParseSemanticTag(t *testing.T) {
	tag, ok := ParseSemanticTag("Diabetes mellitus (disorder)")
	if !ok || tag != "disorder" {
		t.Errorf("got %q, %v; want \"disorder\", true", tag, ok)
	}
	if _, ok := ParseSemanticTag("No tag here"); ok {
		t.Errorf("expected no semantic tag to be found")
	}
}
