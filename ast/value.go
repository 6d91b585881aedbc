package ast

import (
	"fmt"
	"strconv"
)

// ConcreteValueKind distinguishes the four concrete-value kinds.
type ConcreteValueKind int

const (
	IntegerValue ConcreteValueKind = iota
	DecimalValue
	StringValue
	BooleanValue
)

// ConcreteValue is a literal Integer, Decimal, String or Boolean carried by a
// concrete-value comparison. Decimal keeps the original source text
// alongside the parsed float64: ECL v2.2 does not specify decimal equality
// semantics (see the design notes), and preserving the text lets an
// evaluator choose exact textual comparison over IEEE `=`.
type ConcreteValue struct {
	Kind    ConcreteValueKind
	Int     int64
	Decimal float64
	Raw     string // original source text, meaningful for Decimal and String
	Str     string
	Bool    bool
}

// Integer constructs an Integer concrete value.
func Integer(v int64) ConcreteValue { return ConcreteValue{Kind: IntegerValue, Int: v, Raw: strconv.FormatInt(v, 10)} }

// Decimal constructs a Decimal concrete value, preserving its source text.
func Decimal(v float64, raw string) ConcreteValue {
	return ConcreteValue{Kind: DecimalValue, Decimal: v, Raw: raw}
}

// String constructs a String concrete value.
func String(v string) ConcreteValue { return ConcreteValue{Kind: StringValue, Str: v, Raw: v} }

// Boolean constructs a Boolean concrete value.
func Boolean(v bool) ConcreteValue {
	return ConcreteValue{Kind: BooleanValue, Bool: v, Raw: strconv.FormatBool(v)}
}

// Canonical renders a concrete value deterministically for use inside a
// parent node's Canonical string.
func (v ConcreteValue) Canonical() string {
	switch v.Kind {
	case IntegerValue:
		return fmt.Sprintf("#%d", v.Int)
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

// ComparisonOp is the set of comparison operators usable in attribute
// constraints and concrete-value comparisons. Equals/NotEquals are legal for
// both set and concrete comparisons; the ordering operators are legal only
// for concrete comparisons.
type ComparisonOp int

const (
	Equals ComparisonOp = iota
	NotEquals
	LessThan
	LessOrEqual
	GreaterThan
	GreaterOrEqual
)

func (op ComparisonOp) String() string {
	switch op {
	case Equals:
		return "="
	case NotEquals:
		return "!="
	case LessThan:
		return "<"
	case LessOrEqual:
		return "<="
	case GreaterThan:
		return ">"
	case GreaterOrEqual:
		return ">="
	default:
		return "?"
	}
}
