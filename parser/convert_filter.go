package parser

import (
	"strconv"
	"strings"

	"github.com/wardle/ecl/ast"
	"github.com/wardle/ecl/identifier"
)

// wellKnownDialectAlias maps the handful of dialect aliases the reference
// implementation recognizes to their SNOMED CT language reference set
// identifiers. An alias absent here must be written as a bare SCTID.
var wellKnownDialectAlias = map[string]identifier.ConceptID{
	"en-gb": 999001261000000100,
	"en-us": 900000000000508004,
}

// wellKnownDescriptionType maps the three symbolic description-type keywords
// to their SNOMED CT description type concept identifiers.
var wellKnownDescriptionType = map[string]identifier.ConceptID{
	"fsn": 900000000000003001,
	"syn": 900000000000013009,
	"def": 900000000000550004,
}

func convertDomain(s *string) ast.Domain {
	if s == nil {
		return ast.NoDomain
	}
	switch strings.ToUpper(*s) {
	case "C":
		return ast.ConceptDomain
	case "D":
		return ast.DescriptionDomain
	case "M":
		return ast.MemberDomain
	default:
		return ast.NoDomain
	}
}

func convertFilterClause(n *FilterClauseAST) (ast.FilterClause, error) {
	domain := convertDomain(n.Domain)
	filters := make([]ast.Filter, 0, 1+len(n.Rest))
	first, err := convertFilter(domain, n.First)
	if err != nil {
		return ast.FilterClause{}, err
	}
	filters = append(filters, first)
	for _, f := range n.Rest {
		cf, err := convertFilter(domain, f)
		if err != nil {
			return ast.FilterClause{}, err
		}
		filters = append(filters, cf)
	}
	return ast.FilterClause{Domain: domain, Filters: filters}, nil
}

func convertFilter(domain ast.Domain, n *FilterAST) (ast.Filter, error) {
	if n.History != nil {
		return convertHistoryFilter(n.History), nil
	}
	return convertPredicateFilter(domain, n.Predicate)
}

func convertHistoryFilter(n *HistoryFilterAST) ast.Filter {
	switch strings.ToUpper(n.Profile) {
	case "HISTORY-MIN":
		return &ast.History{Profile: ast.HistoryMin}
	case "HISTORY-MOD":
		return &ast.History{Profile: ast.HistoryMod}
	default:
		return &ast.History{Profile: ast.HistoryMax}
	}
}

func flattenValues(n *ValueListAST) []*ValueTokenAST {
	if n.Single != nil {
		return []*ValueTokenAST{n.Single}
	}
	return n.List
}

func tokenText(t *ValueTokenAST) string {
	switch {
	case t.ID != nil:
		return *t.ID
	case t.Str != nil:
		return unquote(*t.Str)
	case t.Symbol != nil:
		return *t.Symbol
	case t.Word != nil:
		return *t.Word
	default:
		return ""
	}
}

func tokenIDs(tokens []*ValueTokenAST, aliases map[string]identifier.ConceptID) ([]identifier.ConceptID, error) {
	ids := make([]identifier.ConceptID, len(tokens))
	for i, t := range tokens {
		if t.ID != nil {
			id, err := identifier.Parse(*t.ID)
			if err != nil {
				return nil, parseErrf("invalid concept identifier %q: %v", *t.ID, err)
			}
			ids[i] = id
			continue
		}
		text := strings.ToLower(tokenText(t))
		if aliases != nil {
			if id, ok := aliases[text]; ok {
				ids[i] = id
				continue
			}
		}
		return nil, parseErrf("unrecognized identifier or alias %q", tokenText(t))
	}
	return ids, nil
}

func tokenStrings(tokens []*ValueTokenAST) []string {
	out := make([]string, len(tokens))
	for i, t := range tokens {
		out[i] = tokenText(t)
	}
	return out
}

// convertPredicateFilter maps the uniform `field op value(s) modifier?`
// syntax to one of the specification's sixteen filter kinds. Field names
// are matched case-insensitively against the fixed vocabulary; anything
// else is treated as an arbitrary Member-domain field per the Member filter
// (`M <field> = <value>`), which tests a named column of a refset member
// row rather than a fixed concept/description property.
func convertPredicateFilter(domain ast.Domain, n *PredicateFilterAST) (ast.Filter, error) {
	field := strings.ToLower(n.Field)
	tokens := flattenValues(n.Values)

	switch field {
	case "active":
		if len(tokens) != 1 {
			return nil, parseErrf("active filter takes exactly one value")
		}
		v := strings.ToLower(tokenText(tokens[0]))
		return &ast.Active{Value: v == "true"}, nil

	case "definitionstatus", "definitionstatusid":
		if len(tokens) != 1 {
			return nil, parseErrf("definitionStatus filter takes exactly one value")
		}
		switch strings.ToLower(tokenText(tokens[0])) {
		case "primitive":
			return &ast.DefinitionStatus{Status: ast.Primitive}, nil
		case "defined":
			return &ast.DefinitionStatus{Status: ast.Defined}, nil
		default:
			id, err := identifier.Parse(tokenText(tokens[0]))
			if err != nil {
				return nil, parseErrf("invalid definitionStatus value %q", tokenText(tokens[0]))
			}
			return &ast.DefinitionStatus{Status: ast.DefStatusByID, ID: id}, nil
		}

	case "moduleid":
		ids, err := tokenIDs(tokens, nil)
		if err != nil {
			return nil, err
		}
		return &ast.Module{IDs: ids}, nil

	case "effectivetime":
		op, ok := comparisonOps[n.Op]
		if !ok {
			return nil, parseErrf("invalid effectiveTime operator %q", n.Op)
		}
		if len(tokens) != 1 {
			return nil, parseErrf("effectiveTime filter takes exactly one value")
		}
		text := tokenText(tokens[0])
		value, err := strconv.ParseUint(text, 10, 32)
		if err != nil {
			return nil, parseErrf("invalid effectiveTime value %q: %v", text, err)
		}
		return &ast.EffectiveTime{Op: op, Value: uint32(value)}, nil

	case "id":
		ids, err := tokenIDs(tokens, nil)
		if err != nil {
			return nil, err
		}
		return &ast.Id{IDs: ids}, nil

	case "semantictag":
		return &ast.SemanticTag{Tags: tokenStrings(tokens)}, nil

	case "term":
		op, ok := termOps[strings.ToLower(n.Op)]
		if !ok {
			return nil, parseErrf("invalid term operator %q", n.Op)
		}
		return &ast.Term{Op: op, Values: tokenStrings(tokens)}, nil

	case "language":
		return &ast.Language{Codes: tokenStrings(tokens)}, nil

	case "type", "typeid":
		ids, err := tokenIDs(tokens, wellKnownDescriptionType)
		if err != nil {
			return nil, err
		}
		return &ast.DescriptionType{IDs: ids}, nil

	case "dialect", "dialectid":
		ids, err := tokenIDs(tokens, wellKnownDialectAlias)
		if err != nil {
			return nil, err
		}
		acc := ast.AnyAcceptability
		if n.Modifier != nil {
			if strings.EqualFold(*n.Modifier, "preferred") {
				acc = ast.Preferred
			} else {
				acc = ast.Acceptable
			}
		}
		return &ast.Dialect{RefsetIDs: ids, Acceptability: acc}, nil

	case "casesignificance", "casesignificanceid":
		ids, err := tokenIDs(tokens, caseSignificanceAlias)
		if err != nil {
			return nil, err
		}
		return &ast.CaseSignificance{IDs: ids}, nil

	case "preferredin":
		ids, err := tokenIDs(tokens, nil)
		if err != nil {
			return nil, err
		}
		return &ast.PreferredIn{RefsetIDs: ids}, nil

	case "acceptablein":
		ids, err := tokenIDs(tokens, nil)
		if err != nil {
			return nil, err
		}
		return &ast.AcceptableIn{RefsetIDs: ids}, nil

	case "languagerefsetid":
		ids, err := tokenIDs(tokens, nil)
		if err != nil {
			return nil, err
		}
		return &ast.LanguageRefSet{RefsetIDs: ids}, nil

	default:
		if len(tokens) != 1 {
			return nil, parseErrf("member filter %q takes exactly one value", n.Field)
		}
		return &ast.Member{Field: n.Field, Value: tokenText(tokens[0])}, nil
	}
}

var termOps = map[string]ast.TermOp{
	"=":          ast.TermEquals,
	"==":         ast.TermExactEquals,
	"match":      ast.TermMatch,
	"startswith": ast.TermStartsWith,
	"wild":       ast.TermWild,
	"regex":      ast.TermRegex,
}

// caseSignificanceAlias maps the two symbolic case-significance keywords to
// their SNOMED CT concept identifiers.
var caseSignificanceAlias = map[string]identifier.ConceptID{
	"caseinsensitive": 900000000000448009,
	"casesensitive":   900000000000017005,
}
