package ast

import (
	"fmt"
	"sort"
	"strings"

	"github.com/wardle/ecl/identifier"
)

// Domain qualifies which backend record kind a filter clause tests: the
// concept itself, one of its descriptions, or one of its refset membership
// rows. None means the filter's own default domain applies.
type Domain int

const (
	NoDomain Domain = iota
	ConceptDomain
	DescriptionDomain
	MemberDomain
)

func (d Domain) String() string {
	switch d {
	case ConceptDomain:
		return "C"
	case DescriptionDomain:
		return "D"
	case MemberDomain:
		return "M"
	default:
		return ""
	}
}

// FilterClause is one `{{ ... }}` block: a conjunction of Filters, all
// evaluated against the Domain-selected record kind.
type FilterClause struct {
	Domain  Domain
	Filters []Filter
}

func (c FilterClause) Canonical() string {
	parts := make([]string, len(c.Filters))
	for i, f := range c.Filters {
		parts[i] = f.Canonical()
	}
	sort.Strings(parts)
	return c.Domain.String() + strings.Join(parts, ",")
}

// Filter is one predicate within a FilterClause; there are sixteen concrete
// kinds, below.
type Filter interface {
	filterNode()
	Canonical() string
}

func idList(ids []identifier.ConceptID) string {
	sorted := append([]identifier.ConceptID(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	parts := make([]string, len(sorted))
	for i, id := range sorted {
		parts[i] = fmt.Sprintf("%d", uint64(id))
	}
	return "(" + strings.Join(parts, " ") + ")"
}

func strList(ss []string) string {
	sorted := append([]string(nil), ss...)
	sort.Strings(sorted)
	parts := make([]string, len(sorted))
	for i, s := range sorted {
		parts[i] = fmt.Sprintf("%q", s)
	}
	return "(" + strings.Join(parts, " ") + ")"
}

// Active is the `active = true|false` filter.
type Active struct {
	Value bool
}

func (*Active) filterNode()        {}
func (f *Active) Canonical() string { return fmt.Sprintf("active=%v", f.Value) }

// DefStatus distinguishes the symbolic definitionStatus values from an
// explicit SCTID comparison.
type DefStatus int

const (
	AnyDefStatus DefStatus = iota
	Primitive
	Defined
	DefStatusByID
)

// DefinitionStatus is the `definitionStatus[Id] = primitive|defined|<sctid>`
// filter.
type DefinitionStatus struct {
	Status DefStatus
	ID     identifier.ConceptID // meaningful only when Status == DefStatusByID
}

func (*DefinitionStatus) filterNode() {}
func (f *DefinitionStatus) Canonical() string {
	switch f.Status {
	case Primitive:
		return "definitionStatus=primitive"
	case Defined:
		return "definitionStatus=defined"
	default:
		return fmt.Sprintf("definitionStatus=%d", uint64(f.ID))
	}
}

// Module is the `moduleId = sctid | (sctid...)` filter.
type Module struct {
	IDs []identifier.ConceptID
}

func (*Module) filterNode()         {}
func (f *Module) Canonical() string { return "moduleId=" + idList(f.IDs) }

// EffectiveTime is the `effectiveTime <op> YYYYMMDD` filter. Value is parsed
// and range-checked at parse time (parser/convert_filter.go), so a malformed
// literal is a ParseError rather than a failure discovered mid-evaluation.
type EffectiveTime struct {
	Op    ComparisonOp
	Value uint32 // YYYYMMDD
}

func (*EffectiveTime) filterNode() {}
func (f *EffectiveTime) Canonical() string {
	return fmt.Sprintf("effectiveTime%s%d", f.Op, f.Value)
}

// Id is the `id = sctid | (sctid...)` filter.
type Id struct {
	IDs []identifier.ConceptID
}

func (*Id) filterNode()         {}
func (f *Id) Canonical() string { return "id=" + idList(f.IDs) }

// SemanticTag is the `semanticTag = "tag" | ("tag"...)` filter.
type SemanticTag struct {
	Tags []string
}

func (*SemanticTag) filterNode()         {}
func (f *SemanticTag) Canonical() string { return "semanticTag=" + strList(f.Tags) }

// TermOp distinguishes the six term-comparison modes.
type TermOp int

const (
	TermEquals TermOp = iota
	TermExactEquals
	TermMatch
	TermStartsWith
	TermWild
	TermRegex
)

func (op TermOp) String() string {
	switch op {
	case TermEquals:
		return "="
	case TermExactEquals:
		return "=="
	case TermMatch:
		return "match"
	case TermStartsWith:
		return "startsWith"
	case TermWild:
		return "wild"
	case TermRegex:
		return "regex"
	default:
		return "?"
	}
}

// Term is the `term (=|match|startsWith|wild|regex|==) "txt"|("txt"...)`
// filter. `=` is case-insensitive; `==` is case-sensitive.
type Term struct {
	Op     TermOp
	Values []string
}

func (*Term) filterNode() {}
func (f *Term) Canonical() string { return "term " + f.Op.String() + strList(f.Values) }

// Language is the `language = code | (codes)` filter.
type Language struct {
	Codes []string
}

func (*Language) filterNode()         {}
func (f *Language) Canonical() string { return "language=" + strList(f.Codes) }

// DescriptionType is the `(type|typeId) = fsn|syn|def|<sctid>|(...)` filter.
type DescriptionType struct {
	IDs []identifier.ConceptID // resolved typeIds; symbolic fsn/syn/def are resolved to well-known ids at parse/convert time
}

func (*DescriptionType) filterNode()         {}
func (f *DescriptionType) Canonical() string { return "descriptionType=" + idList(f.IDs) }

// Acceptability distinguishes preferred/acceptable in a Dialect filter.
type Acceptability int

const (
	AnyAcceptability Acceptability = iota
	Preferred
	Acceptable
)

// Dialect is the `(dialect|dialectId) = alias|<sctid>|(...) (preferred|acceptable)?` filter.
type Dialect struct {
	RefsetIDs     []identifier.ConceptID
	Acceptability Acceptability
}

func (*Dialect) filterNode() {}
func (f *Dialect) Canonical() string {
	acc := ""
	switch f.Acceptability {
	case Preferred:
		acc = ":preferred"
	case Acceptable:
		acc = ":acceptable"
	}
	return "dialect=" + idList(f.RefsetIDs) + acc
}

// CaseSignificance is the `caseSignificance[Id] = caseInsensitive|caseSensitive|<sctid>` filter.
type CaseSignificance struct {
	IDs []identifier.ConceptID
}

func (*CaseSignificance) filterNode()         {}
func (f *CaseSignificance) Canonical() string { return "caseSignificance=" + idList(f.IDs) }

// PreferredIn is the `preferredIn = refset | (refsets)` filter.
type PreferredIn struct {
	RefsetIDs []identifier.ConceptID
}

func (*PreferredIn) filterNode()         {}
func (f *PreferredIn) Canonical() string { return "preferredIn=" + idList(f.RefsetIDs) }

// AcceptableIn is the `acceptableIn = refset | (refsets)` filter.
type AcceptableIn struct {
	RefsetIDs []identifier.ConceptID
}

func (*AcceptableIn) filterNode()         {}
func (f *AcceptableIn) Canonical() string { return "acceptableIn=" + idList(f.RefsetIDs) }

// LanguageRefSet is the `languageRefSetId = refset | (refsets)` filter.
type LanguageRefSet struct {
	RefsetIDs []identifier.ConceptID
}

func (*LanguageRefSet) filterNode()         {}
func (f *LanguageRefSet) Canonical() string { return "languageRefSetId=" + idList(f.RefsetIDs) }

// Member is the `M <field> = <value>` filter, testing a refset member row's
// named field against a value.
type Member struct {
	Field string
	Value string
}

func (*Member) filterNode()         {}
func (f *Member) Canonical() string { return fmt.Sprintf("member.%s=%q", f.Field, f.Value) }

// HistoryProfile distinguishes the `+HISTORY`, `+HISTORY-MIN`,
// `+HISTORY-MOD` and `+HISTORY-MAX` profiles, each selecting a different set
// of HistoryAssociationTypes to contribute.
type HistoryProfile int

const (
	HistoryMax HistoryProfile = iota // default +HISTORY: all association types
	HistoryMin                       // SameAs only
	HistoryMod                       // SameAs, ReplacedBy, PossiblyEquivalentTo
)

// History is the additive `+HISTORY[-MIN|-MOD|-MAX]` filter.
type History struct {
	Profile HistoryProfile
}

func (*History) filterNode() {}
func (f *History) Canonical() string {
	switch f.Profile {
	case HistoryMin:
		return "+HISTORY-MIN"
	case HistoryMod:
		return "+HISTORY-MOD"
	default:
		return "+HISTORY-MAX"
	}
}
