// Package ast defines the immutable expression tree produced by the parser
// and consumed by the evaluator. Every node is a value type; sub-expressions
// are owned exclusively by their parent and there is no node sharing, so the
// tree is acyclic by construction.
package ast

import (
	"fmt"
	"sort"
	"strings"

	"github.com/wardle/ecl/identifier"
)

// Expression is the single recursive sum type described by the grammar: every
// concrete node below implements it. Canonical returns a deterministic string
// form used as a query-cache key - two expressions are canonically equal iff
// they are structurally equal once commutative operand pairs are sorted into
// a stable order. Canonical intentionally ignores display-only data (the
// optional term carried by Self) since it has no bearing on the evaluated
// result set.
type Expression interface {
	exprNode()
	Canonical() string
}

// HierarchyOp distinguishes the eight IS-A traversal operators.
type HierarchyOp int

const (
	DescendantOf HierarchyOp = iota
	DescendantOrSelf
	AncestorOf
	AncestorOrSelf
	ChildOf
	ChildOrSelf
	ParentOf
	ParentOrSelf
)

// Symbol returns the ECL surface token for the operator.
func (op HierarchyOp) Symbol() string {
	switch op {
	case DescendantOf:
		return "<"
	case DescendantOrSelf:
		return "<<"
	case AncestorOf:
		return ">"
	case AncestorOrSelf:
		return ">>"
	case ChildOf:
		return "<!"
	case ChildOrSelf:
		return "<<!"
	case ParentOf:
		return ">!"
	case ParentOrSelf:
		return ">>!"
	default:
		return "?"
	}
}

func (op HierarchyOp) String() string { return op.Symbol() }

// CompoundOp distinguishes the three set-combining operators. Comma is parsed
// as a synonym for And and never survives into the AST as a distinct value.
type CompoundOp int

const (
	And CompoundOp = iota
	Or
	Minus
)

func (op CompoundOp) String() string {
	switch op {
	case And:
		return "AND"
	case Or:
		return "OR"
	case Minus:
		return "MINUS"
	default:
		return "?"
	}
}

// Self is a bare concept reference, optionally carrying the `|term|` that
// followed it in source. Term is display-only and never affects evaluation.
type Self struct {
	ID   identifier.ConceptID
	Term string
}

func (*Self) exprNode() {}

// Canonical ignores Term: two Self nodes referencing the same concept are
// canonically identical regardless of the accompanying display term.
func (n *Self) Canonical() string { return fmt.Sprintf("%d", uint64(n.ID)) }

// AltIdentifier is a URI-form reference that the backend resolves to a
// ConceptID at evaluation time (scheme, identifier-body).
type AltIdentifier struct {
	Scheme     string
	Identifier string
}

func (*AltIdentifier) exprNode() {}
func (n *AltIdentifier) Canonical() string {
	return fmt.Sprintf("alt(%s#%s)", n.Scheme, n.Identifier)
}

// ConceptSet is a `( id1 id2 ... )` literal list of bare SCTIDs.
type ConceptSet struct {
	IDs []identifier.ConceptID
}

func (*ConceptSet) exprNode() {}
func (n *ConceptSet) Canonical() string {
	ids := append([]identifier.ConceptID(nil), n.IDs...)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf("%d", uint64(id))
	}
	return "set(" + strings.Join(parts, " ") + ")"
}

// Wildcard denotes every known concept, `*`.
type Wildcard struct{}

func (*Wildcard) exprNode()         {}
func (*Wildcard) Canonical() string { return "*" }

// Hierarchy applies one of the eight IS-A traversal operators to Inner.
type Hierarchy struct {
	Op    HierarchyOp
	Inner Expression
}

func (*Hierarchy) exprNode() {}
func (n *Hierarchy) Canonical() string {
	return n.Op.Symbol() + "(" + n.Inner.Canonical() + ")"
}

// MemberOf evaluates Inner to a set of reference-set identifiers and yields
// their union of members, `^ expr`.
type MemberOf struct {
	Inner Expression
}

func (*MemberOf) exprNode() {}
func (n *MemberOf) Canonical() string {
	return "^(" + n.Inner.Canonical() + ")"
}

// Compound combines Left and Right with And, Or or Minus.
type Compound struct {
	Op    CompoundOp
	Left  Expression
	Right Expression
}

func (*Compound) exprNode() {}
func (n *Compound) Canonical() string {
	l, r := n.Left.Canonical(), n.Right.Canonical()
	if n.Op == Minus {
		// MINUS is not commutative: operand order is significant.
		return l + " MINUS " + r
	}
	// AND/OR are commutative: sort operands so equivalent queries with
	// swapped operands share one cache key.
	if l > r {
		l, r = r, l
	}
	return l + " " + n.Op.String() + " " + r
}

// DotNav evaluates Inner to a set then follows each attribute expression in
// Attrs, left to right, to yield the union of destination concepts.
type DotNav struct {
	Inner Expression
	Attrs []Expression
}

func (*DotNav) exprNode() {}
func (n *DotNav) Canonical() string {
	parts := make([]string, len(n.Attrs))
	for i, a := range n.Attrs {
		parts[i] = a.Canonical()
	}
	return n.Inner.Canonical() + "." + strings.Join(parts, ".")
}

// Refined applies a Refinement to the candidate set yielded by Focus.
type Refined struct {
	Focus      Expression
	Refinement *Refinement
}

func (*Refined) exprNode() {}
func (n *Refined) Canonical() string {
	return n.Focus.Canonical() + ":" + n.Refinement.Canonical()
}

// Filtered applies one or more conjunctive filter clauses to the candidate
// set yielded by Inner.
type Filtered struct {
	Inner   Expression
	Clauses []FilterClause
}

func (*Filtered) exprNode() {}
func (n *Filtered) Canonical() string {
	parts := make([]string, len(n.Clauses))
	for i, c := range n.Clauses {
		parts[i] = c.Canonical()
	}
	sort.Strings(parts) // clauses are conjunctive, so order is insignificant
	return n.Inner.Canonical() + "{{" + strings.Join(parts, "}}{{") + "}}"
}

// TopOfSet selects the elements of Inner's result with no proper ancestor
// also present in that result, `!!>`.
type TopOfSet struct {
	Inner Expression
}

func (*TopOfSet) exprNode() {}
func (n *TopOfSet) Canonical() string { return "!!>(" + n.Inner.Canonical() + ")" }

// BottomOfSet selects the elements of Inner's result with no proper
// descendant also present in that result, `!!<`.
type BottomOfSet struct {
	Inner Expression
}

func (*BottomOfSet) exprNode() {}
func (n *BottomOfSet) Canonical() string { return "!!<(" + n.Inner.Canonical() + ")" }
