// Package eval interprets an ast.Expression against a backend.Backend,
// producing a conceptset.Set. It is a post-order fold over the AST, grounded
// in expression/constraint.go's applyingECLVisitor shape (one handler method
// per node kind) generalized from a boolean membership test into the full
// set-producing evaluator the specification requires. The evaluator holds
// its backend by shared reference and threads ctx through every hierarchy
// frontier expansion and filter iteration, checking for deadline expiry at
// each, per the concurrency model in the specification.
package eval

import (
	"context"
	"fmt"

	"github.com/wardle/ecl/ast"
	"github.com/wardle/ecl/backend"
	"github.com/wardle/ecl/closure"
	"github.com/wardle/ecl/conceptset"
	"github.com/wardle/ecl/eclerr"
	"github.com/wardle/ecl/filter"
	"github.com/wardle/ecl/identifier"
	"github.com/wardle/ecl/search"
)

// Options bounds evaluation's resource use.
type Options struct {
	// MaxResultSize is the maximum number of members any intermediate or
	// final set may hold before evaluation fails with ResourceError. Zero
	// means unbounded.
	MaxResultSize int
}

// Stats accumulates the diagnostics result.Stats reports: concepts visited
// (every backend traversal step) and cache hits (populated by a caller-side
// query cache, not by the evaluator itself).
type Stats struct {
	ConceptsVisited int
	CacheHits       int
}

// Evaluator interprets AST expressions against one backend. It is safe for
// concurrent use across goroutines as long as the backend is, since an
// Evaluator holds no mutable state of its own beyond the optional Stats
// pointer a caller supplies per call.
type Evaluator struct {
	Backend   backend.Backend
	Options   Options
	TermIndex *search.Index // optional acceleration for wildcard Term filters
}

// New returns an Evaluator over b.
func New(b backend.Backend, opts Options) *Evaluator {
	return &Evaluator{Backend: b, Options: opts}
}

// Evaluate folds expr into a concept set. stats may be nil if the caller
// does not want diagnostics.
func (e *Evaluator) Evaluate(ctx context.Context, expr ast.Expression, stats *Stats) (*conceptset.Set, error) {
	if err := ctx.Err(); err != nil {
		return nil, &eclerr.ResourceError{Reason: eclerr.Timeout}
	}
	switch n := expr.(type) {
	case *ast.Self:
		return e.evalSelf(ctx, n, stats)
	case *ast.AltIdentifier:
		return e.evalAltIdentifier(ctx, n)
	case *ast.ConceptSet:
		return conceptset.New(n.IDs...), nil
	case *ast.Wildcard:
		return e.evalWildcard(ctx, stats)
	case *ast.Hierarchy:
		return e.evalHierarchy(ctx, n, stats)
	case *ast.MemberOf:
		return e.evalMemberOf(ctx, n, stats)
	case *ast.Compound:
		return e.evalCompound(ctx, n, stats)
	case *ast.DotNav:
		return e.evalDotNav(ctx, n, stats)
	case *ast.Refined:
		return e.evalRefined(ctx, n, stats)
	case *ast.Filtered:
		return e.evalFiltered(ctx, n, stats)
	case *ast.TopOfSet:
		return e.evalTopOfSet(ctx, n, stats)
	case *ast.BottomOfSet:
		return e.evalBottomOfSet(ctx, n, stats)
	default:
		return nil, &eclerr.UnsupportedFeatureError{Detail: fmt.Sprintf("unknown AST node %T", expr)}
	}
}

func visit(stats *Stats, n int) {
	if stats != nil {
		stats.ConceptsVisited += n
	}
}

func (e *Evaluator) checkSize(n int) error {
	if e.Options.MaxResultSize > 0 && n > e.Options.MaxResultSize {
		return &eclerr.ResourceError{Reason: eclerr.ResultTooLarge, Count: n}
	}
	return nil
}

func (e *Evaluator) evalSelf(ctx context.Context, n *ast.Self, stats *Stats) (*conceptset.Set, error) {
	ok, err := e.Backend.HasConcept(ctx, n.ID)
	if err != nil {
		return nil, err
	}
	visit(stats, 1)
	if !ok {
		return nil, &eclerr.LookupError{Kind: eclerr.ConceptNotFound, Detail: n.ID.String()}
	}
	return conceptset.New(n.ID), nil
}

func (e *Evaluator) evalAltIdentifier(ctx context.Context, n *ast.AltIdentifier) (*conceptset.Set, error) {
	id, ok, err := e.Backend.ResolveAlternateIdentifier(ctx, n.Scheme, n.Identifier)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &eclerr.LookupError{Kind: eclerr.AltIdentifierNotFound, Detail: n.Scheme + n.Identifier}
	}
	return conceptset.New(id), nil
}

func (e *Evaluator) evalWildcard(ctx context.Context, stats *Stats) (*conceptset.Set, error) {
	ch, err := e.Backend.AllConceptIDs(ctx)
	if err != nil {
		return nil, err
	}
	out := conceptset.New()
	n := 0
	for r := range ch {
		if r.Err != nil {
			return nil, r.Err
		}
		if err := ctx.Err(); err != nil {
			return nil, &eclerr.ResourceError{Reason: eclerr.Timeout}
		}
		out.Add(r.ID)
		n++
		if err := e.checkSize(n); err != nil {
			return nil, err
		}
	}
	visit(stats, n)
	return out, nil
}

var hierarchyDescendant = map[ast.HierarchyOp]bool{ast.DescendantOf: true, ast.DescendantOrSelf: true}
var hierarchyAncestor = map[ast.HierarchyOp]bool{ast.AncestorOf: true, ast.AncestorOrSelf: true}
var hierarchyOrSelf = map[ast.HierarchyOp]bool{ast.DescendantOrSelf: true, ast.AncestorOrSelf: true, ast.ChildOrSelf: true, ast.ParentOrSelf: true}

func (e *Evaluator) evalHierarchy(ctx context.Context, n *ast.Hierarchy, stats *Stats) (*conceptset.Set, error) {
	focus, err := e.Evaluate(ctx, n.Inner, stats)
	if err != nil {
		return nil, err
	}
	out := conceptset.New()
	for _, id := range focus.Slice() {
		if err := ctx.Err(); err != nil {
			return nil, &eclerr.ResourceError{Reason: eclerr.Timeout}
		}
		var step *conceptset.Set
		switch n.Op {
		case ast.DescendantOf, ast.DescendantOrSelf:
			step, err = e.descendantsOf(ctx, id, stats)
		case ast.AncestorOf, ast.AncestorOrSelf:
			step, err = e.ancestorsOf(ctx, id, stats)
		case ast.ChildOf, ast.ChildOrSelf:
			kids, kerr := e.Backend.GetChildren(ctx, id)
			err = kerr
			step = conceptset.New(kids...)
			visit(stats, 1)
		case ast.ParentOf, ast.ParentOrSelf:
			parents, perr := e.Backend.GetParents(ctx, id)
			err = perr
			step = conceptset.New(parents...)
			visit(stats, 1)
		default:
			return nil, fmt.Errorf("eval: unknown hierarchy operator %v", n.Op)
		}
		if err != nil {
			return nil, err
		}
		out = conceptset.Union(out, step)
		if hierarchyOrSelf[n.Op] {
			out.Add(id)
		}
		if err := e.checkSize(out.Len()); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// descendantsOf returns id's transitive IS-A descendants, excluding id, using
// a closure.Cache's precomputed table in O(1) when the evaluator is running
// against one, falling back to a visited-set BFS over GetChildren otherwise.
func (e *Evaluator) descendantsOf(ctx context.Context, id identifier.ConceptID, stats *Stats) (*conceptset.Set, error) {
	if c, ok := e.Backend.(*closure.Cache); ok {
		visit(stats, 1)
		return c.Descendants(id), nil
	}
	return e.bfs(ctx, id, e.Backend.GetChildren, stats)
}

// ancestorsOf is descendantsOf's mirror image over GetParents/Ancestors.
func (e *Evaluator) ancestorsOf(ctx context.Context, id identifier.ConceptID, stats *Stats) (*conceptset.Set, error) {
	if c, ok := e.Backend.(*closure.Cache); ok {
		visit(stats, 1)
		return c.Ancestors(id), nil
	}
	return e.bfs(ctx, id, e.Backend.GetParents, stats)
}

// bfs walks edges from id breadth-first, guarding against cycles with a
// visited set per the design note that a malformed backend must not hang the
// evaluator even though the SNOMED hierarchy is acyclic by invariant.
func (e *Evaluator) bfs(ctx context.Context, id identifier.ConceptID, edges func(context.Context, identifier.ConceptID) ([]identifier.ConceptID, error), stats *Stats) (*conceptset.Set, error) {
	visited := map[identifier.ConceptID]bool{}
	frontier := []identifier.ConceptID{id}
	out := conceptset.New()
	for len(frontier) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, &eclerr.ResourceError{Reason: eclerr.Timeout}
		}
		var next []identifier.ConceptID
		for _, cur := range frontier {
			adj, err := edges(ctx, cur)
			if err != nil {
				return nil, err
			}
			visit(stats, 1)
			for _, a := range adj {
				if visited[a] {
					continue
				}
				visited[a] = true
				out.Add(a)
				next = append(next, a)
			}
		}
		if err := e.checkSize(out.Len()); err != nil {
			return nil, err
		}
		frontier = next
	}
	return out, nil
}

func (e *Evaluator) evalMemberOf(ctx context.Context, n *ast.MemberOf, stats *Stats) (*conceptset.Set, error) {
	refsets, err := e.Evaluate(ctx, n.Inner, stats)
	if err != nil {
		return nil, err
	}
	out := conceptset.New()
	for _, r := range refsets.Slice() {
		if err := ctx.Err(); err != nil {
			return nil, &eclerr.ResourceError{Reason: eclerr.Timeout}
		}
		members, err := e.Backend.GetRefsetMembers(ctx, r)
		if err != nil {
			return nil, err
		}
		visit(stats, 1)
		out = conceptset.Union(out, conceptset.New(members...))
	}
	return out, nil
}

func isWildcard(e ast.Expression) bool {
	_, ok := e.(*ast.Wildcard)
	return ok
}

func (e *Evaluator) evalCompound(ctx context.Context, n *ast.Compound, stats *Stats) (*conceptset.Set, error) {
	leftWild, rightWild := isWildcard(n.Left), isWildcard(n.Right)
	switch n.Op {
	case ast.And:
		// X AND * = X: the wildcard side need not be materialized at all.
		if leftWild {
			return e.Evaluate(ctx, n.Right, stats)
		}
		if rightWild {
			return e.Evaluate(ctx, n.Left, stats)
		}
		left, err := e.Evaluate(ctx, n.Left, stats)
		if err != nil {
			return nil, err
		}
		right, err := e.Evaluate(ctx, n.Right, stats)
		if err != nil {
			return nil, err
		}
		return conceptset.Intersect(left, right), nil
	case ast.Or:
		// * is absorbing for OR: the whole expression is just *.
		if leftWild || rightWild {
			return e.Evaluate(ctx, &ast.Wildcard{}, stats)
		}
		left, err := e.Evaluate(ctx, n.Left, stats)
		if err != nil {
			return nil, err
		}
		right, err := e.Evaluate(ctx, n.Right, stats)
		if err != nil {
			return nil, err
		}
		return conceptset.Union(left, right), nil
	case ast.Minus:
		if rightWild {
			return conceptset.New(), nil
		}
		left, err := e.Evaluate(ctx, n.Left, stats)
		if err != nil {
			return nil, err
		}
		right, err := e.Evaluate(ctx, n.Right, stats)
		if err != nil {
			return nil, err
		}
		return conceptset.Difference(left, right), nil
	default:
		return nil, fmt.Errorf("eval: unknown compound operator %v", n.Op)
	}
}

func (e *Evaluator) evalDotNav(ctx context.Context, n *ast.DotNav, stats *Stats) (*conceptset.Set, error) {
	cur, err := e.Evaluate(ctx, n.Inner, stats)
	if err != nil {
		return nil, err
	}
	for _, attrExpr := range n.Attrs {
		attrSet, err := e.Evaluate(ctx, attrExpr, stats)
		if err != nil {
			return nil, err
		}
		next := conceptset.New()
		for _, c := range cur.Slice() {
			if err := ctx.Err(); err != nil {
				return nil, &eclerr.ResourceError{Reason: eclerr.Timeout}
			}
			rels, err := e.Backend.GetAttributes(ctx, c)
			if err != nil {
				return nil, err
			}
			visit(stats, 1)
			for _, rel := range rels {
				if attrSet.Contains(rel.AttributeTypeID) {
					next.Add(rel.DestinationID)
				}
			}
		}
		if err := e.checkSize(next.Len()); err != nil {
			return nil, err
		}
		cur = next
	}
	return cur, nil
}

func (e *Evaluator) evalTopOfSet(ctx context.Context, n *ast.TopOfSet, stats *Stats) (*conceptset.Set, error) {
	inner, err := e.Evaluate(ctx, n.Inner, stats)
	if err != nil {
		return nil, err
	}
	members := inner.Slice()
	out := conceptset.New()
	for _, c := range members {
		if err := ctx.Err(); err != nil {
			return nil, &eclerr.ResourceError{Reason: eclerr.Timeout}
		}
		anc, err := e.ancestorsOf(ctx, c, stats)
		if err != nil {
			return nil, err
		}
		hasAncestorInSet := false
		for _, other := range members {
			if other != c && anc.Contains(other) {
				hasAncestorInSet = true
				break
			}
		}
		if !hasAncestorInSet {
			out.Add(c)
		}
	}
	return out, nil
}

func (e *Evaluator) evalBottomOfSet(ctx context.Context, n *ast.BottomOfSet, stats *Stats) (*conceptset.Set, error) {
	inner, err := e.Evaluate(ctx, n.Inner, stats)
	if err != nil {
		return nil, err
	}
	members := inner.Slice()
	out := conceptset.New()
	for _, c := range members {
		if err := ctx.Err(); err != nil {
			return nil, &eclerr.ResourceError{Reason: eclerr.Timeout}
		}
		desc, err := e.descendantsOf(ctx, c, stats)
		if err != nil {
			return nil, err
		}
		hasDescendantInSet := false
		for _, other := range members {
			if other != c && desc.Contains(other) {
				hasDescendantInSet = true
				break
			}
		}
		if !hasDescendantInSet {
			out.Add(c)
		}
	}
	return out, nil
}

func (e *Evaluator) evalFiltered(ctx context.Context, n *ast.Filtered, stats *Stats) (*conceptset.Set, error) {
	base, err := e.Evaluate(ctx, n.Inner, stats)
	if err != nil {
		return nil, err
	}

	var historyFilters []*ast.History
	predicateClauses := make([]ast.FilterClause, 0, len(n.Clauses))
	for _, clause := range n.Clauses {
		var preds []ast.Filter
		for _, f := range clause.Filters {
			if h, ok := f.(*ast.History); ok {
				historyFilters = append(historyFilters, h)
				continue
			}
			preds = append(preds, f)
		}
		if len(preds) > 0 {
			predicateClauses = append(predicateClauses, ast.FilterClause{Domain: clause.Domain, Filters: preds})
		}
	}

	if e.TermIndex != nil {
		base, err = e.narrowByTermIndex(base, predicateClauses)
		if err != nil {
			return nil, err
		}
	}

	out := conceptset.New()
	for _, c := range base.Slice() {
		if err := ctx.Err(); err != nil {
			return nil, &eclerr.ResourceError{Reason: eclerr.Timeout}
		}
		visit(stats, 1)
		ok, err := e.satisfiesAllClauses(ctx, c, predicateClauses)
		if err != nil {
			return nil, err
		}
		if ok {
			out.Add(c)
		}
	}

	if len(historyFilters) > 0 {
		out, err = e.applyHistory(ctx, out, historyFilters, stats)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (e *Evaluator) satisfiesAllClauses(ctx context.Context, c identifier.ConceptID, clauses []ast.FilterClause) (bool, error) {
	for _, clause := range clauses {
		for _, f := range clause.Filters {
			ok, err := filter.Evaluate(ctx, e.Backend, clause.Domain, f, c)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
		}
	}
	return true, nil
}

// narrowByTermIndex intersects base with the index's hits for any wildcard
// Term filter present in clauses. Only the TermWild op is accelerated: its
// glob semantics map directly onto a bleve wildcard query, whereas match's
// substring semantics do not, so narrowing on it could silently drop a true
// positive. Every surviving candidate is still re-checked by
// satisfiesAllClauses, so an index hit that does not really match costs only
// performance; a concept whose matching description is missing from the
// index (for example one added to the backend after search.Build) is dropped.
func (e *Evaluator) narrowByTermIndex(base *conceptset.Set, clauses []ast.FilterClause) (*conceptset.Set, error) {
	var candidates *conceptset.Set
	found := false
	for _, clause := range clauses {
		for _, f := range clause.Filters {
			t, ok := f.(*ast.Term)
			if !ok || t.Op != ast.TermWild {
				continue
			}
			found = true
			for _, pattern := range t.Values {
				ids, err := e.TermIndex.MatchConcepts(pattern)
				if err != nil {
					return nil, err
				}
				s := conceptset.New(ids...)
				if candidates == nil {
					candidates = s
				} else {
					candidates = conceptset.Union(candidates, s)
				}
			}
		}
	}
	if !found {
		return base, nil
	}
	if candidates == nil {
		candidates = conceptset.New()
	}
	return conceptset.Intersect(base, candidates), nil
}

func historyKinds(p ast.HistoryProfile) []backend.HistoryAssociationType {
	switch p {
	case ast.HistoryMin:
		return []backend.HistoryAssociationType{backend.SameAs}
	case ast.HistoryMod:
		return []backend.HistoryAssociationType{backend.SameAs, backend.ReplacedBy, backend.PossiblyEquivalentTo}
	default:
		return []backend.HistoryAssociationType{backend.SameAs, backend.ReplacedBy, backend.PossiblyEquivalentTo, backend.OtherHistoryAssociation}
	}
}

// applyHistory is the +HISTORY family's additive pass: every profile present
// augments base with the historical associations of base's currently
// inactive members, contributing only the association types its profile
// names.
func (e *Evaluator) applyHistory(ctx context.Context, base *conceptset.Set, filters []*ast.History, stats *Stats) (*conceptset.Set, error) {
	out := base.Clone()
	for _, c := range base.Slice() {
		if err := ctx.Err(); err != nil {
			return nil, &eclerr.ResourceError{Reason: eclerr.Timeout}
		}
		active, err := e.Backend.IsConceptActive(ctx, c)
		if err != nil {
			return nil, err
		}
		visit(stats, 1)
		if active {
			continue
		}
		for _, hf := range filters {
			for _, kind := range historyKinds(hf.Profile) {
				assoc, err := e.Backend.GetHistoricalAssociations(ctx, c, kind)
				if err != nil {
					return nil, err
				}
				for _, a := range assoc {
					out.Add(a)
				}
			}
		}
	}
	if err := e.checkSize(out.Len()); err != nil {
		return nil, err
	}
	return out, nil
}
