package eval

import (
	"context"
	"testing"

	"github.com/wardle/ecl/ast"
	"github.com/wardle/ecl/backend"
	"github.com/wardle/ecl/closure"
	"github.com/wardle/ecl/identifier"
	"github.com/wardle/ecl/parser"
)

// toyBackend mirrors the spec's end-to-end scenario fixture and
// closure_test.go's toyBackend: concept 1 has children {2,3}, concept 2 has
// children {4,5}, concept 3 has child {6}; attribute 100 on concept 4 has
// destination 7; refset 200 has members {2,4}.
func toyBackend() *backend.Memory {
	m := backend.NewMemory()
	m.AddIsA(1, 2)
	m.AddIsA(1, 3)
	m.AddIsA(2, 4)
	m.AddIsA(2, 5)
	m.AddIsA(3, 6)
	m.AddAttribute(4, backend.Relationship{AttributeTypeID: 100, DestinationID: 7})
	m.SetRefsetMembers(200, []identifier.ConceptID{2, 4})
	// Attribute type 100 is itself a concept reference in ". 100" and
	// "100 = *"; a bare Self node requires HasConcept, so register it even
	// though the toy graph gives it no IS-A position of its own.
	m.SetActive(100, true)
	return m
}

func execIDs(t *testing.T, b backend.Backend, source string) []identifier.ConceptID {
	t.Helper()
	expr, err := parser.Parse(source)
	if err != nil {
		t.Fatalf("Parse(%q): %v", source, err)
	}
	e := New(b, Options{})
	set, err := e.Evaluate(context.Background(), expr, nil)
	if err != nil {
		t.Fatalf("Evaluate(%q): %v", source, err)
	}
	return set.Slice()
}

func assertIDs(t *testing.T, got []identifier.ConceptID, want ...identifier.ConceptID) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	wantSet := make(map[identifier.ConceptID]bool, len(want))
	for _, w := range want {
		wantSet[w] = true
	}
	for _, g := range got {
		if !wantSet[g] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

// TestEndToEndScenarios covers the seven scenarios in the specification's
// testable-properties section verbatim, against a live Memory backend;
// TestClosureEquivalence below runs a query against the closure.Cache.
func TestEndToEndScenarios(t *testing.T) {
	cases := []struct {
		source string
		want   []identifier.ConceptID
	}{
		{"<< 1", []identifier.ConceptID{1, 2, 3, 4, 5, 6}},
		{"< 1 MINUS << 2", []identifier.ConceptID{3, 6}},
		{"<< 1 : 100 = *", []identifier.ConceptID{4}},
		{"^ 200", []identifier.ConceptID{2, 4}},
		{"<< 1 AND ^ 200", []identifier.ConceptID{2, 4}},
		{"< 1 . 100", []identifier.ConceptID{7}},
		{"<< 1 {{ id = (3 6) }}", []identifier.ConceptID{3, 6}},
	}
	for _, tc := range cases {
		t.Run(tc.source, func(t *testing.T) {
			assertIDs(t, execIDs(t, toyBackend(), tc.source), tc.want...)
		})
	}
}

func TestClosureEquivalence(t *testing.T) {
	ctx := context.Background()
	src := toyBackend()
	c, err := closure.Build(ctx, src)
	if err != nil {
		t.Fatalf("closure.Build: %v", err)
	}
	assertIDs(t, execIDs(t, src, "<< 3"), execIDs(t, c, "<< 3")...)
}

func TestHierarchyIdentities(t *testing.T) {
	b := toyBackend()
	descOrSelf := execIDs(t, b, "<< 2")
	desc := execIDs(t, b, "< 2")
	assertIDs(t, descOrSelf, append(desc, 2)...)

	ancOrSelf := execIDs(t, b, ">> 6")
	anc := execIDs(t, b, "> 6")
	assertIDs(t, ancOrSelf, append(anc, 6)...)
}

func TestSetAlgebraCommutativity(t *testing.T) {
	b := toyBackend()
	and1 := execIDs(t, b, "<< 1 AND << 2")
	and2 := execIDs(t, b, "<< 2 AND << 1")
	assertIDs(t, and1, and2...)

	or1 := execIDs(t, b, "< 2 OR < 3")
	or2 := execIDs(t, b, "< 3 OR < 2")
	assertIDs(t, or1, or2...)
}

func TestWildcardIdentityAndAbsorption(t *testing.T) {
	b := toyBackend()
	all := execIDs(t, b, "*")
	andWild := execIDs(t, b, "<< 1 AND *")
	assertIDs(t, andWild, execIDs(t, b, "<< 1")...)
	orWild := execIDs(t, b, "<< 1 OR *")
	assertIDs(t, orWild, all...)
}

func TestMinusDisjointFromSubtrahend(t *testing.T) {
	b := toyBackend()
	result := execIDs(t, b, "< 1 MINUS << 2")
	subtrahend := execIDs(t, b, "<< 2")
	sub := make(map[identifier.ConceptID]bool, len(subtrahend))
	for _, s := range subtrahend {
		sub[s] = true
	}
	for _, r := range result {
		if sub[r] {
			t.Errorf("%d present in both result and subtrahend", r)
		}
	}
}

func TestLeafDescendantOrSelf(t *testing.T) {
	b := toyBackend()
	assertIDs(t, execIDs(t, b, "<< 6"), 6)
}

func TestRootHasNoAncestors(t *testing.T) {
	b := toyBackend()
	assertIDs(t, execIDs(t, b, "> 1"))
}

func TestCardinalityZeroZeroExcludes(t *testing.T) {
	b := toyBackend()
	// Concept 4 has one 100-attribute, so [0..0] excludes it; concept 5 has
	// none, so [0..0] includes it.
	got := execIDs(t, b, "<< 2 : [0..0] 100 = *")
	assertIDs(t, got, 2, 5)
}

func TestCardinalityZeroStarIsVacuous(t *testing.T) {
	b := toyBackend()
	got := execIDs(t, b, "<< 2 : [0..*] 100 = *")
	assertIDs(t, got, execIDs(t, b, "<< 2")...)
}

func TestRefinementMonotonicity(t *testing.T) {
	b := toyBackend()
	unconstrained := execIDs(t, b, "<< 1")
	constrained := execIDs(t, b, "<< 1 : 100 = *")
	constrainedSet := make(map[identifier.ConceptID]bool, len(constrained))
	for _, c := range constrained {
		constrainedSet[c] = true
	}
	unconstrainedSet := make(map[identifier.ConceptID]bool, len(unconstrained))
	for _, c := range unconstrained {
		unconstrainedSet[c] = true
	}
	for c := range constrainedSet {
		if !unconstrainedSet[c] {
			t.Errorf("adding a constraint must not enlarge the result; %d is new", c)
		}
	}
}

func TestDeterminism(t *testing.T) {
	b := toyBackend()
	first := execIDs(t, b, "<< 1")
	second := execIDs(t, b, "<< 1")
	assertIDs(t, first, second...)
}

func TestTopOfSetAndBottomOfSet(t *testing.T) {
	b := toyBackend()
	top := execIDs(t, b, "!!> (1 2 3 4 5 6)")
	assertIDs(t, top, 1)
	bottom := execIDs(t, b, "!!< (1 2 3 4 5 6)")
	assertIDs(t, bottom, 4, 5, 6)
}

func TestSelfOnUnknownConceptIsLookupError(t *testing.T) {
	b := toyBackend()
	_, err := New(b, Options{}).Evaluate(context.Background(), &ast.Self{ID: 999}, nil)
	if err == nil {
		t.Fatalf("expected LookupError for unknown concept")
	}
}

func TestMaxResultSizeGuard(t *testing.T) {
	b := toyBackend()
	expr, err := parser.Parse("<< 1")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	e := New(b, Options{MaxResultSize: 2})
	_, err = e.Evaluate(context.Background(), expr, nil)
	if err == nil {
		t.Fatalf("expected ResourceError when result exceeds MaxResultSize")
	}
}

func TestStatsAccumulatesConceptsVisited(t *testing.T) {
	b := toyBackend()
	expr, err := parser.Parse("<< 1")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	stats := &Stats{}
	if _, err := New(b, Options{}).Evaluate(context.Background(), expr, stats); err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if stats.ConceptsVisited == 0 {
		t.Errorf("expected ConceptsVisited to be populated")
	}
}

func TestGroupRefinement(t *testing.T) {
	b := backend.NewMemory()
	b.AddIsA(1, 2)
	// Concept 2 has two relationships in group 1 (both attribute type 100
	// and 200 to different destinations): only the member with both should
	// satisfy a group refinement requiring both attribute types together.
	b.AddAttribute(2, backend.Relationship{AttributeTypeID: 100, DestinationID: 10, Group: 1})
	b.AddAttribute(2, backend.Relationship{AttributeTypeID: 200, DestinationID: 20, Group: 1})
	b.SetActive(100, true)
	b.SetActive(200, true)
	got := execIDs(t, b, "<< 1 : { 100 = 10, 200 = 20 }")
	assertIDs(t, got, 2)

	got2 := execIDs(t, b, "<< 1 : { 100 = 10, 200 = 10 }")
	assertIDs(t, got2)
}

func TestDotNavChaining(t *testing.T) {
	b := backend.NewMemory()
	b.AddIsA(1, 2)
	b.AddAttribute(2, backend.Relationship{AttributeTypeID: 100, DestinationID: 3})
	b.AddAttribute(3, backend.Relationship{AttributeTypeID: 200, DestinationID: 4})
	b.SetActive(100, true)
	b.SetActive(200, true)
	got := execIDs(t, b, "<< 1 . 100 . 200")
	assertIDs(t, got, 4)
}
