package parser

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"

	"github.com/wardle/ecl/ast"
	"github.com/wardle/ecl/eclerr"
	"github.com/wardle/ecl/identifier"
)

// Parse parses ECL source into its domain AST. Failures are always an
// *eclerr.ParseError; grammar failures carry the byte offset participle
// stopped at, while failures found during conversion report offset 0.
func Parse(source string) (ast.Expression, error) {
	tree, err := Parser.ParseString("", source)
	if err != nil {
		return nil, wrapParseError(err)
	}
	if tree.Or == nil {
		return nil, &eclerr.ParseError{Message: "empty expression"}
	}
	return convertOr(tree.Or)
}

type positionedError interface {
	error
	Position() lexer.Position
}

func wrapParseError(err error) error {
	var pe positionedError
	if errors.As(err, &pe) {
		return &eclerr.ParseError{Offset: pe.Position().Offset, Message: err.Error()}
	}
	return &eclerr.ParseError{Message: err.Error()}
}

func parseErrf(format string, args ...interface{}) error {
	return &eclerr.ParseError{Message: fmt.Sprintf(format, args...)}
}

func convertOr(n *OrExprAST) (ast.Expression, error) {
	left, err := convertAnd(n.Left)
	if err != nil {
		return nil, err
	}
	for _, r := range n.Rest {
		right, err := convertAnd(r)
		if err != nil {
			return nil, err
		}
		left = &ast.Compound{Op: ast.Or, Left: left, Right: right}
	}
	return left, nil
}

func convertAnd(n *AndExprAST) (ast.Expression, error) {
	left, err := convertMinus(n.Left)
	if err != nil {
		return nil, err
	}
	for _, r := range n.Rest {
		right, err := convertMinus(r)
		if err != nil {
			return nil, err
		}
		left = &ast.Compound{Op: ast.And, Left: left, Right: right}
	}
	return left, nil
}

func convertMinus(n *MinusExprAST) (ast.Expression, error) {
	left, err := convertSubExpr(n.Left)
	if err != nil {
		return nil, err
	}
	for _, r := range n.Rest {
		right, err := convertSubExpr(r)
		if err != nil {
			return nil, err
		}
		left = &ast.Compound{Op: ast.Minus, Left: left, Right: right}
	}
	return left, nil
}

var hierarchyOps = map[string]ast.HierarchyOp{
	"<":   ast.DescendantOf,
	"<<":  ast.DescendantOrSelf,
	">":   ast.AncestorOf,
	">>":  ast.AncestorOrSelf,
	"<!":  ast.ChildOf,
	"<<!": ast.ChildOrSelf,
	">!":  ast.ParentOf,
	">>!": ast.ParentOrSelf,
}

func convertSubExpr(n *SubExprAST) (ast.Expression, error) {
	expr, err := convertFocus(n.Focus)
	if err != nil {
		return nil, err
	}
	if n.Hierarchy != nil {
		op, ok := hierarchyOps[*n.Hierarchy]
		if !ok {
			return nil, parseErrf("unknown hierarchy operator %q", *n.Hierarchy)
		}
		expr = &ast.Hierarchy{Op: op, Inner: expr}
	}
	if len(n.Dots) > 0 {
		attrs := make([]ast.Expression, len(n.Dots))
		for i, d := range n.Dots {
			a, err := convertFocus(d)
			if err != nil {
				return nil, err
			}
			attrs[i] = a
		}
		expr = &ast.DotNav{Inner: expr, Attrs: attrs}
	}
	if n.Refinement != nil {
		ref, err := convertRefinement(n.Refinement)
		if err != nil {
			return nil, err
		}
		expr = &ast.Refined{Focus: expr, Refinement: ref}
	}
	if len(n.Filters) > 0 {
		clauses := make([]ast.FilterClause, len(n.Filters))
		for i, f := range n.Filters {
			c, err := convertFilterClause(f)
			if err != nil {
				return nil, err
			}
			clauses[i] = c
		}
		expr = &ast.Filtered{Inner: expr, Clauses: clauses}
	}
	return expr, nil
}

func convertFocus(n *FocusAST) (ast.Expression, error) {
	switch {
	case n.TopBottom != nil:
		inner, err := convertSubExpr(n.TopBottom.Inner)
		if err != nil {
			return nil, err
		}
		if n.TopBottom.Op == "!!>" {
			return &ast.TopOfSet{Inner: inner}, nil
		}
		return &ast.BottomOfSet{Inner: inner}, nil
	case n.MemberOf != nil:
		inner, err := convertFocus(n.MemberOf.Inner)
		if err != nil {
			return nil, err
		}
		return &ast.MemberOf{Inner: inner}, nil
	case n.Paren != nil:
		return convertParen(n.Paren)
	case n.AltID != nil:
		return convertAltIdentifier(n.AltID)
	case n.Wildcard:
		return &ast.Wildcard{}, nil
	case n.Concept != nil:
		return convertConceptRef(n.Concept)
	default:
		return nil, parseErrf("empty focus expression")
	}
}

func convertParen(n *ParenAST) (ast.Expression, error) {
	if n.ConceptSet != nil {
		return convertConceptSet(n.ConceptSet)
	}
	return convertOr(n.Grouped.Expr)
}

func convertConceptSet(n *ConceptSetBodyAST) (ast.Expression, error) {
	if len(n.IDs) == 0 {
		return nil, parseErrf("empty concept set")
	}
	ids := make([]identifier.ConceptID, len(n.IDs))
	for i, s := range n.IDs {
		id, err := identifier.Parse(s)
		if err != nil {
			return nil, parseErrf("invalid concept identifier %q: %v", s, err)
		}
		ids[i] = id
	}
	return &ast.ConceptSet{IDs: ids}, nil
}

func convertConceptRef(n *ConceptRefAST) (ast.Expression, error) {
	id, err := identifier.Parse(n.ID)
	if err != nil {
		return nil, parseErrf("invalid concept identifier %q: %v", n.ID, err)
	}
	term := ""
	if n.Term != nil {
		term = strings.TrimSpace(strings.Trim(*n.Term, "|"))
	}
	return &ast.Self{ID: id, Term: term}, nil
}

func convertAltIdentifier(n *AltIdentifierAST) (ast.Expression, error) {
	uri := n.URI
	if i := strings.LastIndex(uri, "#"); i >= 0 {
		return &ast.AltIdentifier{Scheme: uri[:i+1], Identifier: uri[i+1:]}, nil
	}
	i := strings.LastIndex(uri, "/")
	if i < 0 {
		return nil, parseErrf("malformed alt-identifier %q", uri)
	}
	return &ast.AltIdentifier{Scheme: uri[:i+1], Identifier: uri[i+1:]}, nil
}

func convertCardinality(n *CardinalityAST) (ast.Cardinality, error) {
	if n == nil {
		return ast.DefaultCardinality, nil
	}
	min, err := strconv.Atoi(n.Min)
	if err != nil {
		return ast.Cardinality{}, parseErrf("invalid cardinality minimum %q", n.Min)
	}
	if n.Max == "*" {
		return ast.Cardinality{Min: min, MaxUnbounded: true}, nil
	}
	max, err := strconv.Atoi(n.Max)
	if err != nil {
		return ast.Cardinality{}, parseErrf("invalid cardinality maximum %q", n.Max)
	}
	if max < min {
		return ast.Cardinality{}, parseErrf("cardinality max < min: [%d..%d]", min, max)
	}
	return ast.Cardinality{Min: min, Max: max}, nil
}

func convertRefinement(n *RefinementAST) (*ast.Refinement, error) {
	items := make([]ast.RefinementItem, 0, 1+len(n.Rest))
	first, err := convertRefinementItem(n.First)
	if err != nil {
		return nil, err
	}
	items = append(items, first)
	for _, r := range n.Rest {
		it, err := convertRefinementItem(r)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return &ast.Refinement{Items: items}, nil
}

func convertRefinementItem(n *RefinementItemAST) (ast.RefinementItem, error) {
	if n.Group != nil {
		return convertGroup(n.Group)
	}
	return convertAttributeConstraint(n.Attr)
}

func convertGroup(n *GroupAST) (*ast.Group, error) {
	card, err := convertCardinality(n.Cardinality)
	if err != nil {
		return nil, err
	}
	constraints := make([]*ast.AttributeConstraint, 0, 1+len(n.Rest))
	first, err := convertAttributeConstraint(n.First)
	if err != nil {
		return nil, err
	}
	constraints = append(constraints, first)
	for _, r := range n.Rest {
		c, err := convertAttributeConstraint(r)
		if err != nil {
			return nil, err
		}
		constraints = append(constraints, c)
	}
	return &ast.Group{Cardinality: card, Constraints: constraints}, nil
}

var comparisonOps = map[string]ast.ComparisonOp{
	"=":  ast.Equals,
	"!=": ast.NotEquals,
	"<":  ast.LessThan,
	"<=": ast.LessOrEqual,
	">":  ast.GreaterThan,
	">=": ast.GreaterOrEqual,
	"==": ast.Equals,
}

func convertAttributeConstraint(n *AttributeConstraintAST) (*ast.AttributeConstraint, error) {
	card, err := convertCardinality(n.Cardinality)
	if err != nil {
		return nil, err
	}
	attrExpr, err := convertFocus(n.Attribute)
	if err != nil {
		return nil, err
	}
	op, ok := comparisonOps[n.Comparison]
	if !ok {
		return nil, parseErrf("unknown comparison operator %q", n.Comparison)
	}
	value, err := convertValue(n.Value)
	if err != nil {
		return nil, err
	}
	if _, isConcrete := value.(ast.ConcreteValueConstraint); !isConcrete && op != ast.Equals && op != ast.NotEquals {
		return nil, parseErrf("set comparisons only support = and !=, got %q", n.Comparison)
	}
	return &ast.AttributeConstraint{
		Cardinality:   card,
		Reverse:       n.Reverse,
		AttributeExpr: attrExpr,
		Comparison:    op,
		Value:         value,
	}, nil
}

func convertValue(n *ValueAST) (ast.AttributeValue, error) {
	if n.Concrete != nil {
		cv, err := convertConcreteValue(n.Concrete)
		if err != nil {
			return nil, err
		}
		return ast.ConcreteValueConstraint{Value: cv}, nil
	}
	expr, err := convertSubExpr(n.Expr)
	if err != nil {
		return nil, err
	}
	return ast.ExpressionValue{Expr: expr}, nil
}

func convertConcreteValue(n *ConcreteValueAST) (ast.ConcreteValue, error) {
	switch {
	case n.Str != nil:
		return ast.String(unquote(*n.Str)), nil
	case n.Decimal != nil:
		f, err := strconv.ParseFloat(*n.Decimal, 64)
		if err != nil {
			return ast.ConcreteValue{}, parseErrf("invalid decimal %q", *n.Decimal)
		}
		return ast.Decimal(f, *n.Decimal), nil
	case n.Int != nil:
		i, err := strconv.ParseInt(*n.Int, 10, 64)
		if err != nil {
			return ast.ConcreteValue{}, parseErrf("invalid integer %q", *n.Int)
		}
		return ast.Integer(i), nil
	case n.Bool != nil:
		return ast.Boolean(strings.EqualFold(*n.Bool, "true")), nil
	default:
		return ast.ConcreteValue{}, parseErrf("empty concrete value")
	}
}

func unquote(s string) string {
	s = strings.TrimPrefix(s, `"`)
	s = strings.TrimSuffix(s, `"`)
	return strings.ReplaceAll(s, `\"`, `"`)
}
