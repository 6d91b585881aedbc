// Package filter evaluates the fifteen non-additive members of the sixteen
// ast.Filter kinds against one candidate concept, grounded in the teacher's
// single-visitor-method-per-kind shape (expression/constraint.go's
// applyingECLVisitor) but generalized from a boolean membership test into a
// per-kind predicate over the backend.Backend capability. The sixteenth
// kind, History, is additive rather than a per-concept predicate and is
// therefore applied directly by the eval package, not here.
package filter

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/wardle/ecl/ast"
	"github.com/wardle/ecl/backend"
	"github.com/wardle/ecl/eclerr"
	"github.com/wardle/ecl/identifier"
	"github.com/wardle/ecl/langmatch"
)

// record unifies the fields a domain-qualified filter may test: either the
// concept itself (the default domain) or one of its descriptions (the D
// domain). This lets Active/Module/EffectiveTime/Id be
// tested against either record kind without duplicating their comparison
// logic, matching the spec's "the inner filter's semantics are unchanged."
type record struct {
	id            identifier.ConceptID
	active        bool
	activeOK      bool
	moduleID      identifier.ConceptID
	moduleOK      bool
	effectiveTime uint32
	effectiveOK   bool
}

func conceptRecords(ctx context.Context, b backend.Backend, id identifier.ConceptID) ([]record, error) {
	active, err := b.IsConceptActive(ctx, id)
	if err != nil {
		return nil, err
	}
	moduleID, moduleOK, err := b.GetConceptModule(ctx, id)
	if err != nil {
		return nil, err
	}
	et, etOK, err := b.GetConceptEffectiveTime(ctx, id)
	if err != nil {
		return nil, err
	}
	return []record{{id: id, active: active, activeOK: true, moduleID: moduleID, moduleOK: moduleOK, effectiveTime: et, effectiveOK: etOK}}, nil
}

func descriptionRecords(ctx context.Context, b backend.Backend, id identifier.ConceptID) ([]record, error) {
	descs, err := b.GetDescriptions(ctx, id)
	if err != nil {
		return nil, err
	}
	out := make([]record, len(descs))
	for i, d := range descs {
		out[i] = record{
			id:            d.ID,
			active:        d.Active,
			activeOK:      true,
			moduleID:      d.ModuleID,
			moduleOK:      d.ModuleID != 0,
			effectiveTime: d.EffectiveTime,
			effectiveOK:   d.EffectiveTime != 0,
		}
	}
	return out, nil
}

// records resolves which backend rows a domain-qualified filter tests:
// ConceptDomain/NoDomain means the concept itself; DescriptionDomain means
// any of its descriptions (the filter passes if any record satisfies it).
func records(ctx context.Context, b backend.Backend, domain ast.Domain, id identifier.ConceptID) ([]record, error) {
	if domain == ast.DescriptionDomain {
		return descriptionRecords(ctx, b, id)
	}
	return conceptRecords(ctx, b, id)
}

// Evaluate tests f against id, using domain to select which backend record
// kind the predicate runs over. It never handles *ast.History - callers must
// apply that additive filter separately.
func Evaluate(ctx context.Context, b backend.Backend, domain ast.Domain, f ast.Filter, id identifier.ConceptID) (bool, error) {
	switch v := f.(type) {
	case *ast.Active:
		return anyRecord(ctx, b, domain, id, func(r record) bool { return r.activeOK && r.active == v.Value })
	case *ast.DefinitionStatus:
		return evalDefinitionStatus(ctx, b, v, id)
	case *ast.Module:
		want := toSet(v.IDs)
		return anyRecord(ctx, b, domain, id, func(r record) bool { return r.moduleOK && want[r.moduleID] })
	case *ast.EffectiveTime:
		return anyRecord(ctx, b, domain, id, func(r record) bool {
			return r.effectiveOK && compareUint32(r.effectiveTime, v.Op, v.Value)
		})
	case *ast.Id:
		want := toSet(v.IDs)
		if domain == ast.DescriptionDomain {
			return anyRecord(ctx, b, domain, id, func(r record) bool { return want[r.id] })
		}
		return want[id], nil
	case *ast.SemanticTag:
		tag, ok, err := b.GetSemanticTag(ctx, id)
		if err != nil {
			return false, err
		}
		if !ok {
			// No tag from the backend: parse it from the FSN description.
			const fsnTypeID = 900000000000003001
			descs, err := b.GetDescriptions(ctx, id)
			if err != nil {
				return false, err
			}
			for _, d := range descs {
				if d.TypeID == fsnTypeID {
					if tag, ok = backend.ParseSemanticTag(d.Term); ok {
						break
					}
				}
			}
			if !ok {
				return false, nil
			}
		}
		return containsFold(v.Tags, tag), nil
	case *ast.Term:
		return evalTerm(ctx, b, v, id)
	case *ast.Language:
		return evalLanguage(ctx, b, v, id)
	case *ast.DescriptionType:
		return evalDescriptionType(ctx, b, v, id)
	case *ast.Dialect:
		wantPreferred := v.Acceptability == ast.Preferred
		wantAcceptable := v.Acceptability == ast.Acceptable
		return langmatch.InDialect(ctx, b, id, v.RefsetIDs, wantPreferred, wantAcceptable)
	case *ast.CaseSignificance:
		return evalCaseSignificance(ctx, b, v, id)
	case *ast.PreferredIn:
		return langmatch.PreferredIn(ctx, b, id, v.RefsetIDs)
	case *ast.AcceptableIn:
		return langmatch.AcceptableIn(ctx, b, id, v.RefsetIDs)
	case *ast.LanguageRefSet:
		return langmatch.InLanguageRefSet(ctx, b, id, v.RefsetIDs)
	case *ast.Member:
		return evalMember(ctx, b, v, id)
	case *ast.History:
		return false, fmt.Errorf("filter: History is additive and must be applied by the caller, not Evaluate")
	default:
		return false, fmt.Errorf("filter: unknown filter kind %T", f)
	}
}

func anyRecord(ctx context.Context, b backend.Backend, domain ast.Domain, id identifier.ConceptID, pred func(record) bool) (bool, error) {
	recs, err := records(ctx, b, domain, id)
	if err != nil {
		return false, err
	}
	for _, r := range recs {
		if pred(r) {
			return true, nil
		}
	}
	return false, nil
}

func evalDefinitionStatus(ctx context.Context, b backend.Backend, f *ast.DefinitionStatus, id identifier.ConceptID) (bool, error) {
	primitive, known, err := b.IsConceptPrimitive(ctx, id)
	if err != nil {
		return false, err
	}
	switch f.Status {
	case ast.Primitive:
		return known && primitive, nil
	case ast.Defined:
		return known && !primitive, nil
	default:
		// DefStatusByID: the backend exposes only the primitive flag, so an
		// explicit definition-status id is reported as unsupported, whether
		// or not the flag is known.
		return false, &eclerr.UnsupportedFeatureError{Detail: fmt.Sprintf("definitionStatus by explicit id %d is not resolvable without a defining-characteristic lookup", uint64(f.ID))}
	}
}

func evalTerm(ctx context.Context, b backend.Backend, f *ast.Term, id identifier.ConceptID) (bool, error) {
	descs, err := b.GetDescriptions(ctx, id)
	if err != nil {
		return false, err
	}
	for _, d := range descs {
		if termMatches(f.Op, f.Values, d.Term) {
			return true, nil
		}
	}
	return false, nil
}

func termMatches(op ast.TermOp, patterns []string, term string) bool {
	for _, p := range patterns {
		if termMatchesOne(op, p, term) {
			return true
		}
	}
	return false
}

func termMatchesOne(op ast.TermOp, pattern, term string) bool {
	switch op {
	case ast.TermEquals:
		return strings.EqualFold(pattern, term)
	case ast.TermExactEquals:
		return pattern == term
	case ast.TermStartsWith:
		return len(term) >= len(pattern) && strings.EqualFold(term[:len(pattern)], pattern)
	case ast.TermMatch:
		return strings.Contains(strings.ToLower(term), strings.ToLower(pattern))
	case ast.TermWild:
		re, err := globToRegexp(pattern)
		if err != nil {
			return false
		}
		return re.MatchString(term)
	case ast.TermRegex:
		re, err := regexp.Compile(pattern)
		if err != nil {
			return false
		}
		return re.MatchString(term)
	default:
		return false
	}
}

// globToRegexp treats every '*' in pattern as a wildcard matching any
// substring, per the design note "implementations should treat all '*'
// characters as wildcards and document this" - there is no escape syntax.
func globToRegexp(pattern string) (*regexp.Regexp, error) {
	parts := strings.Split(pattern, "*")
	for i, p := range parts {
		parts[i] = regexp.QuoteMeta(p)
	}
	return regexp.Compile("(?i)^" + strings.Join(parts, ".*") + "$")
}

func evalLanguage(ctx context.Context, b backend.Backend, f *ast.Language, id identifier.ConceptID) (bool, error) {
	descs, err := b.GetDescriptions(ctx, id)
	if err != nil {
		return false, err
	}
	for _, d := range descs {
		if containsFold(f.Codes, d.Language) {
			return true, nil
		}
	}
	return false, nil
}

func evalDescriptionType(ctx context.Context, b backend.Backend, f *ast.DescriptionType, id identifier.ConceptID) (bool, error) {
	descs, err := b.GetDescriptions(ctx, id)
	if err != nil {
		return false, err
	}
	want := toSet(f.IDs)
	for _, d := range descs {
		if want[d.TypeID] {
			return true, nil
		}
	}
	return false, nil
}

func evalCaseSignificance(ctx context.Context, b backend.Backend, f *ast.CaseSignificance, id identifier.ConceptID) (bool, error) {
	descs, err := b.GetDescriptions(ctx, id)
	if err != nil {
		return false, err
	}
	want := toSet(f.IDs)
	for _, d := range descs {
		if want[d.CaseSignificanceID] {
			return true, nil
		}
	}
	return false, nil
}

// evalMember always reports the Member filter as unsupported: `M <field> =
// <value>` tests a named column of a refset member row, but backend.Backend
// (§4.1) exposes only GetRefsetMembers's bare concept-ID list, never the
// row itself - there is no field of any kind for this filter to read. Field
// names that name a concept property rather than a member-row column
// ("active", "moduleId") are intercepted earlier, in
// parser.convertPredicateFilter, which builds the dedicated Active/Module
// filter kinds for them instead of an ast.Member - so every ast.Member this
// function sees names a genuine member-row field, and every one of those is
// equally unsupported. See DESIGN.md's Open Questions for the resolution.
func evalMember(ctx context.Context, b backend.Backend, f *ast.Member, id identifier.ConceptID) (bool, error) {
	return false, &eclerr.UnsupportedFeatureError{Detail: fmt.Sprintf("member field %q: backend.Backend exposes no refset member row to read", f.Field)}
}

func compareUint32(actual uint32, op ast.ComparisonOp, target uint32) bool {
	switch op {
	case ast.Equals:
		return actual == target
	case ast.NotEquals:
		return actual != target
	case ast.LessThan:
		return actual < target
	case ast.LessOrEqual:
		return actual <= target
	case ast.GreaterThan:
		return actual > target
	case ast.GreaterOrEqual:
		return actual >= target
	default:
		return false
	}
}

func toSet(ids []identifier.ConceptID) map[identifier.ConceptID]bool {
	out := make(map[identifier.ConceptID]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
