package ast

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/wardle/ecl/identifier"
)

// Render reconstructs ECL surface syntax for expr. Unlike Canonical, Render
// preserves source operand order (including non-commutative ones like
// MINUS) and display terms, so the result reparses to an AST equal to expr
// rather than merely an equivalent one.
func Render(expr Expression) string {
	switch n := expr.(type) {
	case *Self:
		if n.Term != "" {
			return fmt.Sprintf("%d|%s|", uint64(n.ID), n.Term)
		}
		return fmt.Sprintf("%d", uint64(n.ID))
	case *AltIdentifier:
		return n.Scheme + n.Identifier
	case *ConceptSet:
		parts := make([]string, len(n.IDs))
		for i, id := range n.IDs {
			parts[i] = fmt.Sprintf("%d", uint64(id))
		}
		return "(" + strings.Join(parts, " ") + ")"
	case *Wildcard:
		return "*"
	case *Hierarchy:
		return n.Op.Symbol() + " " + renderParen(n.Inner)
	case *MemberOf:
		return "^ " + renderParen(n.Inner)
	case *Compound:
		return renderParen(n.Left) + " " + n.Op.String() + " " + renderParen(n.Right)
	case *DotNav:
		parts := make([]string, len(n.Attrs))
		for i, a := range n.Attrs {
			parts[i] = Render(a)
		}
		return renderParen(n.Inner) + " . " + strings.Join(parts, " . ")
	case *Refined:
		return renderParen(n.Focus) + " : " + renderRefinement(n.Refinement)
	case *Filtered:
		parts := make([]string, len(n.Clauses))
		for i, c := range n.Clauses {
			parts[i] = renderClause(c)
		}
		return renderParen(n.Inner) + " " + strings.Join(parts, " ")
	case *TopOfSet:
		return "!!> " + renderParen(n.Inner)
	case *BottomOfSet:
		return "!!< " + renderParen(n.Inner)
	default:
		return "<?>"
	}
}

// renderParen wraps compound sub-expressions in parentheses so precedence is
// preserved when reparsed; simple leaves are left bare.
func renderParen(expr Expression) string {
	switch expr.(type) {
	case *Self, *AltIdentifier, *ConceptSet, *Wildcard:
		return Render(expr)
	default:
		return "(" + Render(expr) + ")"
	}
}

func renderCardinality(c Cardinality) string {
	if c == DefaultCardinality {
		return ""
	}
	return c.String() + " "
}

func renderAttributeValue(v AttributeValue) string {
	switch vv := v.(type) {
	case ExpressionValue:
		return renderParen(vv.Expr)
	case ConcreteValueConstraint:
		return renderConcreteValue(vv.Value)
	default:
		return "?"
	}
}

func renderConcreteValue(v ConcreteValue) string {
	switch v.Kind {
	case IntegerValue:
		return "#" + strconv.FormatInt(v.Int, 10)
	case DecimalValue:
		return "#" + v.Raw
	case StringValue:
		return fmt.Sprintf("%q", v.Str)
	case BooleanValue:
		return strconv.FormatBool(v.Bool)
	default:
		return "?"
	}
}

func renderAttributeConstraint(a *AttributeConstraint) string {
	r := ""
	if a.Reverse {
		r = "R "
	}
	return fmt.Sprintf("%s%s%s %s %s", renderCardinality(a.Cardinality), r, renderParen(a.AttributeExpr), a.Comparison, renderAttributeValue(a.Value))
}

func renderRefinementItem(item RefinementItem) string {
	switch it := item.(type) {
	case *AttributeConstraint:
		return renderAttributeConstraint(it)
	case *Group:
		parts := make([]string, len(it.Constraints))
		for i, c := range it.Constraints {
			parts[i] = renderAttributeConstraint(c)
		}
		return fmt.Sprintf("%s{ %s }", renderCardinality(it.Cardinality), strings.Join(parts, ", "))
	default:
		return "?"
	}
}

func renderRefinement(r *Refinement) string {
	parts := make([]string, len(r.Items))
	for i, it := range r.Items {
		parts[i] = renderRefinementItem(it)
	}
	return strings.Join(parts, ", ")
}

func renderClause(c FilterClause) string {
	parts := make([]string, len(c.Filters))
	for i, f := range c.Filters {
		parts[i] = renderFilter(f)
	}
	domain := ""
	if c.Domain != NoDomain {
		domain = c.Domain.String() + " "
	}
	return "{{ " + domain + strings.Join(parts, ", ") + " }}"
}

func renderFilter(f Filter) string {
	switch ff := f.(type) {
	case *Active:
		return fmt.Sprintf("active = %v", ff.Value)
	case *DefinitionStatus:
		switch ff.Status {
		case Primitive:
			return "definitionStatus = primitive"
		case Defined:
			return "definitionStatus = defined"
		default:
			return fmt.Sprintf("definitionStatus = %d", uint64(ff.ID))
		}
	case *Module:
		return "moduleId = " + renderIDs(ff.IDs)
	case *EffectiveTime:
		return fmt.Sprintf("effectiveTime %s %d", ff.Op, ff.Value)
	case *Id:
		return "id = " + renderIDs(ff.IDs)
	case *SemanticTag:
		return "semanticTag = " + renderStrings(ff.Tags)
	case *Term:
		return "term " + ff.Op.String() + " " + renderStrings(ff.Values)
	case *Language:
		return "language = " + renderStrings(ff.Codes)
	case *DescriptionType:
		return "typeId = " + renderIDs(ff.IDs)
	case *Dialect:
		acc := ""
		switch ff.Acceptability {
		case Preferred:
			acc = " preferred"
		case Acceptable:
			acc = " acceptable"
		}
		return "dialectId = " + renderIDs(ff.RefsetIDs) + acc
	case *CaseSignificance:
		return "caseSignificanceId = " + renderIDs(ff.IDs)
	case *PreferredIn:
		return "preferredIn = " + renderIDs(ff.RefsetIDs)
	case *AcceptableIn:
		return "acceptableIn = " + renderIDs(ff.RefsetIDs)
	case *LanguageRefSet:
		return "languageRefSetId = " + renderIDs(ff.RefsetIDs)
	case *Member:
		return fmt.Sprintf("%s = %q", ff.Field, ff.Value)
	case *History:
		switch ff.Profile {
		case HistoryMin:
			return "+HISTORY-MIN"
		case HistoryMod:
			return "+HISTORY-MOD"
		default:
			return "+HISTORY-MAX"
		}
	default:
		return "?"
	}
}

func renderIDs(ids []identifier.ConceptID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf("%d", uint64(id))
	}
	if len(parts) == 1 {
		return parts[0]
	}
	return "(" + strings.Join(parts, " ") + ")"
}

func renderStrings(ss []string) string {
	parts := make([]string, len(ss))
	for i, s := range ss {
		parts[i] = fmt.Sprintf("%q", s)
	}
	if len(parts) == 1 {
		return parts[0]
	}
	return "(" + strings.Join(parts, " ") + ")"
}
