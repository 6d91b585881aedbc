package parser

import "github.com/alecthomas/participle/v2/lexer"

// eclLexer tokenizes ECL v2.2 source. Rules are tried in order at each
// position, so multi-character operators and the longer HISTORY-* keywords
// must precede their shorter prefixes.
var eclLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Keyword", Pattern: `(?i)\b(HISTORY-MIN|HISTORY-MOD|HISTORY-MAX|HISTORY|AND|OR|MINUS|true|false|wild|regex|match|startsWith|fsn|syn|def|preferred|acceptable|primitive|defined|caseInsensitive|caseSensitive|R)\b`},
	{Name: "Decimal", Pattern: `\d+\.\d+`},
	{Name: "Integer", Pattern: `\d+`},
	{Name: "Bar", Pattern: `\|[^|]*\|`},
	{Name: "QuotedString", Pattern: `"([^"\\]|\\.)*"`},
	{Name: "AltURI", Pattern: `[A-Za-z][A-Za-z0-9+.\-]*://[^\s(){}\[\],|]+`},
	{Name: "Op", Pattern: `<<!|<<|<!|>>!|>>|>!|!!>|!!<|==|!=|<=|>=|<|>|=|\.\.`},
	{Name: "Punct", Pattern: `\{\{|\}\}|[(){}\[\].,:^#+]`},
	{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_\-]*`},
	{Name: "Whitespace", Pattern: `\s+`},
})
