package ast

import (
	"testing"

	"github.com/wardle/ecl/identifier"
)

func self(id uint64) *Self { return &Self{ID: identifier.ConceptID(id)} }

func TestCanonicalCommutativity(t *testing.T) {
	a := &Compound{Op: And, Left: self(1), Right: self(2)}
	b := &Compound{Op: And, Left: self(2), Right: self(1)}
	if a.Canonical() != b.Canonical() {
		t.Errorf("AND should be commutative in canonical form: %q vs %q", a.Canonical(), b.Canonical())
	}

	c := &Compound{Op: Or, Left: self(9), Right: self(3)}
	d := &Compound{Op: Or, Left: self(3), Right: self(9)}
	if c.Canonical() != d.Canonical() {
		t.Errorf("OR should be commutative in canonical form: %q vs %q", c.Canonical(), d.Canonical())
	}
}

func TestCanonicalMinusNotCommutative(t *testing.T) {
	a := &Compound{Op: Minus, Left: self(1), Right: self(2)}
	b := &Compound{Op: Minus, Left: self(2), Right: self(1)}
	if a.Canonical() == b.Canonical() {
		t.Errorf("MINUS must not be commutative: both rendered %q", a.Canonical())
	}
}

func TestCanonicalIgnoresTerm(t *testing.T) {
	a := &Self{ID: identifier.ConceptID(73211009), Term: "Diabetes mellitus"}
	b := &Self{ID: identifier.ConceptID(73211009)}
	if a.Canonical() != b.Canonical() {
		t.Errorf("Canonical should ignore the display term: %q vs %q", a.Canonical(), b.Canonical())
	}
}

func TestCanonicalDistinguishesHierarchyOps(t *testing.T) {
	lt := &Hierarchy{Op: DescendantOf, Inner: self(1)}
	lte := &Hierarchy{Op: DescendantOrSelf, Inner: self(1)}
	if lt.Canonical() == lte.Canonical() {
		t.Errorf("< and << must have distinct canonical forms")
	}
}

func TestRenderRoundTripShape(t *testing.T) {
	expr := &Compound{
		Op:   And,
		Left: &Hierarchy{Op: DescendantOrSelf, Inner: self(1)},
		Right: &Refined{
			Focus: self(4),
			Refinement: &Refinement{Items: []RefinementItem{
				&AttributeConstraint{
					Cardinality:   DefaultCardinality,
					AttributeExpr: self(100),
					Comparison:    Equals,
					Value:         ExpressionValue{Expr: &Wildcard{}},
				},
			}},
		},
	}
	got := Render(expr)
	want := "(<< 1) AND (4 : 100 = *)"
	if got != want {
		t.Errorf("Render() = %q, want %q", got, want)
	}
}

func TestFilterClauseCanonicalOrderInsensitive(t *testing.T) {
	filtered := func(order []Filter) *Filtered {
		return &Filtered{
			Inner: self(1),
			Clauses: []FilterClause{
				{Filters: order},
			},
		}
	}
	a := filtered([]Filter{&Active{Value: true}, &Module{IDs: []identifier.ConceptID{900000000000207008}}})
	b := filtered([]Filter{&Module{IDs: []identifier.ConceptID{900000000000207008}}, &Active{Value: true}})
	if a.Canonical() != b.Canonical() {
		t.Errorf("filters within a clause are conjunctive and order-insensitive: %q vs %q", a.Canonical(), b.Canonical())
	}
}
