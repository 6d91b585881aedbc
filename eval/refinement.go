package eval

import (
	"context"
	"fmt"

	"github.com/wardle/ecl/ast"
	"github.com/wardle/ecl/backend"
	"github.com/wardle/ecl/conceptset"
	"github.com/wardle/ecl/eclerr"
	"github.com/wardle/ecl/identifier"
)

// evalRefined applies n.Refinement to every member of n.Focus's result set,
// keeping the members that satisfy all of its RefinementItems - the `:` body
// is a conjunction (see ast.Refinement.Canonical's comment).
func (e *Evaluator) evalRefined(ctx context.Context, n *ast.Refined, stats *Stats) (*conceptset.Set, error) {
	focus, err := e.Evaluate(ctx, n.Focus, stats)
	if err != nil {
		return nil, err
	}
	out := conceptset.New()
	for _, c := range focus.Slice() {
		if err := ctx.Err(); err != nil {
			return nil, &eclerr.ResourceError{Reason: eclerr.Timeout}
		}
		visit(stats, 1)
		ok, err := e.satisfiesRefinement(ctx, c, n.Refinement, stats)
		if err != nil {
			return nil, err
		}
		if ok {
			out.Add(c)
		}
	}
	return out, nil
}

func (e *Evaluator) satisfiesRefinement(ctx context.Context, c identifier.ConceptID, r *ast.Refinement, stats *Stats) (bool, error) {
	for _, item := range r.Items {
		ok, err := e.satisfiesRefinementItem(ctx, c, item, stats)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func (e *Evaluator) satisfiesRefinementItem(ctx context.Context, c identifier.ConceptID, item ast.RefinementItem, stats *Stats) (bool, error) {
	switch v := item.(type) {
	case *ast.AttributeConstraint:
		count, err := e.countMatchingRelationships(ctx, c, v, nil, stats)
		if err != nil {
			return false, err
		}
		return cardinalityContains(v.Cardinality, count), nil
	case *ast.Group:
		return e.satisfiesGroup(ctx, c, v, stats)
	default:
		return false, fmt.Errorf("eval: unknown refinement item %T", item)
	}
}

// satisfiesGroup counts the relationship groups attached to c (drawn from
// both outgoing and inbound relationships, since a `R` constraint inside a
// group still refers to that relationship's own group number) for which
// every constraint in g is satisfied within that one group, and checks the
// count against g's cardinality.
func (e *Evaluator) satisfiesGroup(ctx context.Context, c identifier.ConceptID, g *ast.Group, stats *Stats) (bool, error) {
	attrs, err := e.Backend.GetAttributes(ctx, c)
	if err != nil {
		return false, err
	}
	inbound, err := e.Backend.GetInboundRelationships(ctx, c)
	if err != nil {
		return false, err
	}
	concrete, err := e.Backend.GetConcreteValues(ctx, c)
	if err != nil {
		return false, err
	}
	visit(stats, 1)

	groups := map[uint16]bool{}
	for _, r := range attrs {
		if r.Group != 0 {
			groups[r.Group] = true
		}
	}
	for _, r := range inbound {
		if r.Group != 0 {
			groups[r.Group] = true
		}
	}
	for _, r := range concrete {
		if r.Group != 0 {
			groups[r.Group] = true
		}
	}

	count := 0
	for group := range groups {
		g2 := group
		allOK := true
		for _, ac := range g.Constraints {
			n, err := e.countMatchingRelationships(ctx, c, ac, &g2, stats)
			if err != nil {
				return false, err
			}
			if !cardinalityContains(ac.Cardinality, n) {
				allOK = false
				break
			}
		}
		if allOK {
			count++
		}
	}
	return cardinalityContains(g.Cardinality, count), nil
}

// countMatchingRelationships counts c's relationships whose attribute type
// matches ac.AttributeExpr and whose destination or concrete value matches
// ac.Value, optionally restricted to one relationship group. A nil
// groupFilter means "any group, including ungrouped" - the ordinary
// ungrouped AttributeConstraint case.
func (e *Evaluator) countMatchingRelationships(ctx context.Context, c identifier.ConceptID, ac *ast.AttributeConstraint, groupFilter *uint16, stats *Stats) (int, error) {
	attrIsWild := isWildcard(ac.AttributeExpr)
	var attrSet *conceptset.Set
	if !attrIsWild {
		var err error
		attrSet, err = e.Evaluate(ctx, ac.AttributeExpr, stats)
		if err != nil {
			return 0, err
		}
	}

	switch val := ac.Value.(type) {
	case ast.ConcreteValueConstraint:
		rels, err := e.Backend.GetConcreteValues(ctx, c)
		if err != nil {
			return 0, err
		}
		visit(stats, 1)
		count := 0
		for _, r := range rels {
			if groupFilter != nil && r.Group != *groupFilter {
				continue
			}
			if !attrIsWild && !attrSet.Contains(r.AttributeTypeID) {
				continue
			}
			if compareConcrete(r.Value, ac.Comparison, val.Value) {
				count++
			}
		}
		return count, nil
	case ast.ExpressionValue:
		var rels []backend.Relationship
		var err error
		if ac.Reverse {
			rels, err = e.Backend.GetInboundRelationships(ctx, c)
		} else {
			rels, err = e.Backend.GetAttributes(ctx, c)
		}
		if err != nil {
			return 0, err
		}
		visit(stats, 1)
		valIsWild := isWildcard(val.Expr)
		var valSet *conceptset.Set
		if !valIsWild {
			valSet, err = e.Evaluate(ctx, val.Expr, stats)
			if err != nil {
				return 0, err
			}
		}
		count := 0
		for _, r := range rels {
			if groupFilter != nil && r.Group != *groupFilter {
				continue
			}
			if !attrIsWild && !attrSet.Contains(r.AttributeTypeID) {
				continue
			}
			matches := valIsWild || valSet.Contains(r.DestinationID)
			if ac.Comparison == ast.NotEquals {
				matches = !matches
			}
			if matches {
				count++
			}
		}
		return count, nil
	default:
		return 0, fmt.Errorf("eval: unknown attribute value kind %T", ac.Value)
	}
}

func cardinalityContains(c ast.Cardinality, count int) bool {
	if count < c.Min {
		return false
	}
	return c.MaxUnbounded || count <= c.Max
}

// compareConcrete implements a ConcreteValueConstraint's comparison. Per the
// design decision on ECL v2.2's open decimal-equality question: Equals and
// NotEquals on a Decimal compare the preserved source text exactly (so
// `#1.50` does not equal `#1.5`), matching the spirit of "implementations
// must document their chosen behavior" by picking the stricter, more
// predictable reading; the four ordering operators always compare the parsed
// numeric value, since there is no textual analogue for "less than".
func compareConcrete(actual ast.ConcreteValue, op ast.ComparisonOp, target ast.ConcreteValue) bool {
	if actual.Kind == ast.BooleanValue || target.Kind == ast.BooleanValue {
		if op != ast.Equals && op != ast.NotEquals {
			return false
		}
		eq := actual.Bool == target.Bool
		if op == ast.NotEquals {
			return !eq
		}
		return eq
	}
	if actual.Kind == ast.StringValue || target.Kind == ast.StringValue {
		if op != ast.Equals && op != ast.NotEquals {
			return false
		}
		eq := actual.Str == target.Str
		if op == ast.NotEquals {
			return !eq
		}
		return eq
	}
	if op == ast.Equals || op == ast.NotEquals {
		var eq bool
		if actual.Kind == ast.DecimalValue && target.Kind == ast.DecimalValue {
			eq = actual.Raw == target.Raw
		} else {
			eq = numericValue(actual) == numericValue(target)
		}
		if op == ast.NotEquals {
			return !eq
		}
		return eq
	}
	a, b := numericValue(actual), numericValue(target)
	switch op {
	case ast.LessThan:
		return a < b
	case ast.LessOrEqual:
		return a <= b
	case ast.GreaterThan:
		return a > b
	case ast.GreaterOrEqual:
		return a >= b
	default:
		return false
	}
}

func numericValue(v ast.ConcreteValue) float64 {
	if v.Kind == ast.IntegerValue {
		return float64(v.Int)
	}
	return v.Decimal
}
