// Package exprfmt renders AST expressions to canonical text, the same
// string for any two syntactically different but semantically equal
// expressions where that matters (e.g. a reordered GreaterOf call is not
// normalised, but a literal always prints the same way regardless of how
// the lexer tokenised its suffix).
package exprfmt

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/wch1125/proviso/internal/lang/ast"
)

// Render produces the canonical string form of an expression, used both
// as the differ's fieldChange value and as a building block for the word
// renderer's prose.
func Render(e ast.Expression) string {
	switch v := e.(type) {
	case nil:
		return ""
	case *ast.Ident:
		return v.Name
	case *ast.NumberLit:
		return formatFloat(v.Value)
	case *ast.CurrencyLit:
		return "$" + formatFloat(v.Value)
	case *ast.PercentLit:
		return formatFloat(v.Value) + "%"
	case *ast.RatioLit:
		return formatFloat(v.Value) + "x"
	case *ast.BpsLit:
		return formatFloat(v.Value*100) + "bps"
	case *ast.StringLit:
		return strconv.Quote(v.Value)
	case *ast.DateLit:
		return v.Value
	case *ast.UnaryExpr:
		return v.Operator.String() + " " + Render(v.Operand)
	case *ast.BinaryExpr:
		return Render(v.Left) + " " + v.Operator.String() + " " + Render(v.Right)
	case *ast.CallExpr:
		args := make([]string, len(v.Args))
		for i, a := range v.Args {
			args[i] = Render(a)
		}
		return v.Function + "(" + strings.Join(args, ", ") + ")"
	default:
		return fmt.Sprintf("%v", e)
	}
}

// formatFloat trims trailing zeroes so 5.250 and 5.25 render identically.
func formatFloat(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	return s
}

// Currency formats a dollar amount the way prose renders it: billions and
// millions abbreviated, everything else grouped with thousands commas.
func Currency(v float64) string {
	switch {
	case v >= 1_000_000_000:
		return fmt.Sprintf("$%s billion", trimmed(v/1_000_000_000))
	case v >= 1_000_000:
		return fmt.Sprintf("$%s million", trimmed(v/1_000_000))
	default:
		return "$" + grouped(v)
	}
}

func trimmed(v float64) string {
	s := strconv.FormatFloat(v, 'f', 1, 64)
	return strings.TrimSuffix(strings.TrimSuffix(s, "0"), ".")
}

func grouped(v float64) string {
	neg := v < 0
	if neg {
		v = -v
	}
	whole := int64(v)
	s := strconv.FormatInt(whole, 10)
	var parts []string
	for len(s) > 3 {
		parts = append([]string{s[len(s)-3:]}, parts...)
		s = s[:len(s)-3]
	}
	parts = append([]string{s}, parts...)
	out := strings.Join(parts, ",")
	if neg {
		out = "-" + out
	}
	return out
}

// Ratio formats a leverage-style ratio, e.g. "4.50 to 1.00".
func Ratio(v float64) string {
	return fmt.Sprintf("%.2f to 1.00", v)
}

// Percent formats a raw percent number, e.g. "15%".
func Percent(v float64) string {
	return formatFloat(v) + "%"
}

// Operator renders a comparison operator the way covenant prose does.
func Operator(op string) string {
	switch op {
	case "<=":
		return "be less than or equal to"
	case ">=":
		return "be greater than or equal to"
	case "<":
		return "be less than"
	case ">":
		return "be greater than"
	case "=":
		return "equal"
	case "!=":
		return "not equal"
	default:
		return op
	}
}

// Frequency renders a TestFrequency the way covenant prose does.
func Frequency(f ast.TestFrequency) string {
	switch f {
	case ast.Monthly:
		return "month"
	case ast.Quarterly:
		return "fiscal quarter"
	case ast.SemiAnnually:
		return "semi-annual period"
	case ast.Annually:
		return "fiscal year"
	default:
		return "testing period"
	}
}
