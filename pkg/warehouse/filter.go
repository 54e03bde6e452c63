package warehouse

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

/*
Filter values that start with an operator are parsed with this grammar and
rendered with every literal bound as a parameter:

Filter   := "BETWEEN" Literal "AND" Literal
          | "IN" "(" Literal ( "," Literal )* ")"
          | Operator Literal
Operator := ">=" | "<=" | "<>" | "!=" | "=" | "<" | ">"
Literal  := <string> | <number> | <ident>
*/

var (
	filterLexer = lexer.MustSimple([]lexer.SimpleRule{
		{Name: "Keyword", Pattern: `(?i)\b(?:BETWEEN|AND|IN)\b`},
		{Name: "Operator", Pattern: `>=|<=|<>|!=|=|<|>`},
		{Name: "String", Pattern: `'(?:[^']|'')*'`},
		{Name: "Number", Pattern: `[-+]?(?:\d+\.?\d*|\.\d+)(?:[eE][-+]?\d+)?`},
		{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_]*`},
		{Name: "Punct", Pattern: `[(),]`},
		{Name: "Whitespace", Pattern: `\s+`},
	})

	filterParser = participle.MustBuild[FilterExpr](
		participle.Lexer(filterLexer),
		participle.Elide("Whitespace"),
		participle.CaseInsensitive("Keyword"),
	)
)

// filterPrefixes are the value prefixes that mark a filter as an expression
// rather than a plain equality value.
var filterPrefixes = []string{">=", "<=", "<>", "!=", ">", "<", "=", "IN (", "BETWEEN "}

func isFilterExpression(v string) bool {
	for _, p := range filterPrefixes {
		if strings.HasPrefix(v, p) {
			return true
		}
	}
	return false
}

type FilterExpr struct {
	Between *BetweenExpr `  "BETWEEN" @@`
	In      []*Literal   `| "IN" "(" @@ ( "," @@ )* ")"`
	Compare *CompareExpr `| @@`
}

type BetweenExpr struct {
	Low  *Literal `@@ "AND"`
	High *Literal `@@`
}

type CompareExpr struct {
	Op    string   `@Operator`
	Value *Literal `@@`
}

type Literal struct {
	String *string `  @String`
	Number *string `| @Number`
	Ident  *string `| @Ident`
}

// Value converts the literal to the value bound for it. Numbers become int64
// or float64, TRUE and FALSE become bools and other bare words are strings.
func (l *Literal) Value() any {
	switch {
	case l.String != nil:
		s := *l.String
		return strings.ReplaceAll(s[1:len(s)-1], "''", "'")
	case l.Number != nil:
		if i, err := strconv.ParseInt(*l.Number, 10, 64); err == nil {
			return i
		}
		f, _ := strconv.ParseFloat(*l.Number, 64)
		return f
	default:
		switch strings.ToUpper(*l.Ident) {
		case "TRUE":
			return true
		case "FALSE":
			return false
		}
		return *l.Ident
	}
}

// ParseFilter parses a filter expression on column into a SQL condition using
// ? placeholders, and the values to bind to them.
func ParseFilter(column, expr string) (string, []any, error) {
	f, err := filterParser.ParseString("", expr)
	if err != nil {
		return "", nil, fmt.Errorf("error parsing filter '%s': %w", expr, err)
	}

	switch {
	case f.Between != nil:
		return fmt.Sprintf("%s BETWEEN ? AND ?", column), []any{f.Between.Low.Value(), f.Between.High.Value()}, nil
	case len(f.In) > 0:
		values := make([]any, len(f.In))
		for i, l := range f.In {
			values[i] = l.Value()
		}
		return fmt.Sprintf("%s IN (%s)", column, placeholders(len(values))), values, nil
	default:
		return fmt.Sprintf("%s %s ?", column, f.Compare.Op), []any{f.Compare.Value.Value()}, nil
	}
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
