// Package parser turns ECL v2.2 source text into an ast.Expression. Parsing
// is split into two stages mirroring the conventional combinator-parser
// layout: grammar.go declares a participle/v2 struct-tag grammar that
// produces a concrete syntax tree, and convert.go walks that tree into the
// domain ast package, resolving all of the filter/refinement semantics along
// the way. The concept-set/grouped-expression choice is made by ParenAST's
// alternatives in the grammar; convert.go only reads which one matched.
package parser

import (
	"github.com/alecthomas/participle/v2"
)

// QueryAST is the grammar's top-level production: expression := or_expr.
type QueryAST struct {
	Or *OrExprAST `parser:"@@"`
}

// OrExprAST: or_expr := and_expr ("OR" and_expr)*
type OrExprAST struct {
	Left *AndExprAST   `parser:"@@"`
	Rest []*AndExprAST `parser:"( \"OR\" @@ )*"`
}

// AndExprAST: and_expr := minus_expr (("AND"|",") minus_expr)*
type AndExprAST struct {
	Left *MinusExprAST   `parser:"@@"`
	Rest []*MinusExprAST `parser:"( (\"AND\"|\",\") @@ )*"`
}

// MinusExprAST: minus_expr := sub_expr ("MINUS" sub_expr)*
type MinusExprAST struct {
	Left *SubExprAST   `parser:"@@"`
	Rest []*SubExprAST `parser:"( \"MINUS\" @@ )*"`
}

// SubExprAST: sub_expr := unary_op? focus ('.' attr_expr)* refinement? filter*
type SubExprAST struct {
	Hierarchy  *string             `parser:"@(\"<<!\"|\"<<\"|\"<!\"|\">>!\"|\">>\"|\">!\"|\"<\"|\">\")?"`
	Focus      *FocusAST           `parser:"@@"`
	Dots       []*FocusAST         `parser:"( \".\" @@ )*"`
	Refinement *RefinementAST      `parser:"( \":\" @@ )?"`
	Filters    []*FilterClauseAST  `parser:"@@*"`
}

// FocusAST is the single-lookahead disjunction of every legal focus form.
type FocusAST struct {
	TopBottom *TopBottomAST  `parser:"  @@"`
	MemberOf  *MemberOfAST   `parser:"| @@"`
	Paren     *ParenAST      `parser:"| @@"`
	AltID     *AltIdentifierAST `parser:"| @@"`
	Wildcard  bool           `parser:"| @\"*\""`
	Concept   *ConceptRefAST `parser:"| @@"`
}

// TopBottomAST: ('!!>' | '!!<') sub_expr
type TopBottomAST struct {
	Op    string      `parser:"@(\"!!>\"|\"!!<\")"`
	Inner *SubExprAST `parser:"@@"`
}

// MemberOfAST: '^' focus
type MemberOfAST struct {
	Inner *FocusAST `parser:"\"^\" @@"`
}

// ParenAST resolves the concept-set/grouped-expression ambiguity: a
// parenthesized body is a ConceptSet iff it is one or more bare integer
// literals with nothing else, otherwise it is a grouped expression.
// Participle tries ConceptSet first and falls back to Grouped if that
// alternative cannot consume the whole parenthesized body.
type ParenAST struct {
	ConceptSet *ConceptSetBodyAST `parser:"  @@"`
	Grouped    *GroupedAST        `parser:"| @@"`
}

// ConceptSetBodyAST: '(' id1 id2 ... ')'
type ConceptSetBodyAST struct {
	IDs []string `parser:"\"(\" @Integer+ \")\""`
}

// GroupedAST: '(' expression ')'
type GroupedAST struct {
	Expr *OrExprAST `parser:"\"(\" @@ \")\""`
}

// AltIdentifierAST is a URI-form reference; splitting scheme from
// identifier-body happens in convert.go.
type AltIdentifierAST struct {
	URI string `parser:"@AltURI"`
}

// ConceptRefAST: digits, with an optional `|term|`.
type ConceptRefAST struct {
	ID   string  `parser:"@Integer"`
	Term *string `parser:"@Bar?"`
}

// CardinalityAST: '[' min '..' (max|'*') ']'
type CardinalityAST struct {
	Min string `parser:"\"[\" @Integer \"..\""`
	Max string `parser:"@(Integer|\"*\") \"]\""`
}

// RefinementAST: refinement := ':' item ((','|'AND') item)*
type RefinementAST struct {
	First *RefinementItemAST   `parser:"@@"`
	Rest  []*RefinementItemAST `parser:"( (\",\"|\"AND\") @@ )*"`
}

// RefinementItemAST is either a grouped block or a bare attribute
// constraint.
type RefinementItemAST struct {
	Group *GroupAST               `parser:"  @@"`
	Attr  *AttributeConstraintAST `parser:"| @@"`
}

// GroupAST: cardinality? '{' attribute_constraint (',' attribute_constraint)* '}'
type GroupAST struct {
	Cardinality *CardinalityAST         `parser:"@@?"`
	First       *AttributeConstraintAST `parser:"\"{\" @@"`
	Rest        []*AttributeConstraintAST `parser:"( \",\" @@ )* \"}\""`
}

// AttributeConstraintAST: cardinality? 'R'? attribute_expr comparison_op value_expr
type AttributeConstraintAST struct {
	Cardinality *CardinalityAST `parser:"@@?"`
	Reverse     bool            `parser:"@\"R\"?"`
	Attribute   *FocusAST       `parser:"@@"`
	Comparison  string          `parser:"@(\"==\"|\"!=\"|\"<=\"|\">=\"|\"<\"|\">\"|\"=\")"`
	Value       *ValueAST       `parser:"@@"`
}

// ValueAST: value_expr := expression | concrete_value
type ValueAST struct {
	Concrete *ConcreteValueAST `parser:"  @@"`
	Expr     *SubExprAST       `parser:"| @@"`
}

// ConcreteValueAST is a literal Integer, Decimal, String or Boolean,
// prefixed with '#' for the numeric kinds per ECL's concrete-value syntax.
type ConcreteValueAST struct {
	Str     *string `parser:"  @QuotedString"`
	Decimal *string `parser:"| \"#\" @Decimal"`
	Int     *string `parser:"| \"#\" @Integer"`
	Bool    *string `parser:"| @(\"true\"|\"false\")"`
}

// FilterClauseAST: '{{' domain? filter (',' filter)* '}}'
type FilterClauseAST struct {
	Domain *string       `parser:"\"{{\" @(\"C\"|\"D\"|\"M\")?"`
	First  *FilterAST    `parser:"@@"`
	Rest   []*FilterAST  `parser:"( \",\" @@ )* \"}}\""`
}

// FilterAST dispatches between the additive history filter and every other
// ordinary predicate filter.
type FilterAST struct {
	History   *HistoryFilterAST   `parser:"  @@"`
	Predicate *PredicateFilterAST `parser:"| @@"`
}

// HistoryFilterAST: '+' ('HISTORY-MIN'|'HISTORY-MOD'|'HISTORY-MAX'|'HISTORY')
type HistoryFilterAST struct {
	Profile string `parser:"\"+\" @(\"HISTORY-MIN\"|\"HISTORY-MOD\"|\"HISTORY-MAX\"|\"HISTORY\")"`
}

// PredicateFilterAST covers the other fifteen filter kinds uniformly at the
// syntax level: a field name, a comparison/term operator, a value or
// parenthesized value list, and an optional preferred/acceptable modifier
// (meaningful only for the Dialect filter). convert.go interprets Field
// against the fixed set of filter names the specification defines.
type PredicateFilterAST struct {
	Field    string        `parser:"@Ident"`
	Op       string        `parser:"@(\"==\"|\"!=\"|\"<=\"|\">=\"|\"<\"|\">\"|\"=\"|\"match\"|\"startsWith\"|\"wild\"|\"regex\")"`
	Values   *ValueListAST `parser:"@@"`
	Modifier *string       `parser:"@(\"preferred\"|\"acceptable\")?"`
}

// ValueListAST: a bare value, or a parenthesized sequence of them.
type ValueListAST struct {
	Single *ValueTokenAST   `parser:"  @@"`
	List   []*ValueTokenAST `parser:"| \"(\" @@+ \")\""`
}

// ValueTokenAST is one element of a filter's value list.
type ValueTokenAST struct {
	ID     *string `parser:"  @Integer"`
	Str    *string `parser:"| @QuotedString"`
	Symbol *string `parser:"| @(\"primitive\"|\"defined\"|\"caseInsensitive\"|\"caseSensitive\"|\"fsn\"|\"syn\"|\"def\"|\"true\"|\"false\")"`
	Word   *string `parser:"| @Ident"`
}

// Parser is the compiled participle grammar, reused across Parse calls.
var Parser = participle.MustBuild[QueryAST](
	participle.Lexer(eclLexer),
	participle.CaseInsensitive("Keyword"),
	participle.Elide("Whitespace"),
	participle.UseLookahead(2),
)
