// Package reportfmt renders CLI output: plain-text boxes by default, or
// JSON when the caller passes --json, plus the fixed parse-error layout
// every command falls back to on a syntax failure.
package reportfmt

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/wch1125/proviso/internal/lang/parser"
)

// Box renders a titled, box-drawn section with one line per row.
func Box(title string, rows []string) string {
	width := len(title)
	for _, r := range rows {
		if len(r) > width {
			width = len(r)
		}
	}
	width += 2

	border := strings.Repeat("-", width+1)

	var b strings.Builder
	fmt.Fprintf(&b, "+%s+\n", border)
	fmt.Fprintf(&b, "| %-*s |\n", width-1, title)
	fmt.Fprintf(&b, "+%s+\n", border)
	for _, r := range rows {
		fmt.Fprintf(&b, "| %-*s |\n", width-1, r)
	}
	fmt.Fprintf(&b, "+%s+\n", border)
	return b.String()
}

// JSON marshals v with indentation, the shared --json rendering for
// every command.
func JSON(v interface{}) (string, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// FormatParseError renders a parser.ParseError in the fixed box layout.
// source is the full input text, used to recover the offending line.
func FormatParseError(file, source string, e *parser.ParseError) string {
	lines := strings.Split(source, "\n")
	line := ""
	if e.Start.Line >= 1 && e.Start.Line <= len(lines) {
		line = lines[e.Start.Line-1]
	}

	var b strings.Builder
	b.WriteString("Parse Error\n")
	b.WriteString(strings.Repeat("-", 60) + "\n")
	fmt.Fprintf(&b, "  --> %s:%d:%d\n", file, e.Start.Line, e.Start.Column)
	b.WriteString("   |\n")
	fmt.Fprintf(&b, "%d | %s\n", e.Start.Line, line)
	col := e.Start.Column
	if col < 1 {
		col = 1
	}
	caret := strings.Repeat(" ", col-1) + "^^^^"
	fmt.Fprintf(&b, "   |    %s\n", caret)
	fmt.Fprintf(&b, "Error: %s\n", e.Message)
	if len(e.Expected) == 1 {
		fmt.Fprintf(&b, "Expected: %s\n", e.Expected[0])
	} else if len(e.Expected) > 1 {
		n := e.Expected
		if len(n) > 5 {
			n = n[:5]
		}
		fmt.Fprintf(&b, "Expected one of: %s\n", strings.Join(n, ", "))
	}
	if e.Found == "" || e.Found == "end of input" {
		b.WriteString("Found: end of input\n")
	} else {
		fmt.Fprintf(&b, "Found: %q\n", e.Found)
	}
	return b.String()
}

// Itoa is the shared integer-to-string helper used wherever reportfmt
// builds rows without pulling in fmt.Sprintf for a single int.
func Itoa(n int) string {
	return strconv.Itoa(n)
}
