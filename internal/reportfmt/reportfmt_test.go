package reportfmt

import (
	"strings"
	"testing"

	"github.com/wch1125/proviso/internal/lang/parser"
	"github.com/wch1125/proviso/internal/lang/token"
)

func TestBox_PadsRowsToConsistentWidth(t *testing.T) {
	out := Box("Covenants", []string{"MaxLeverage: compliant", "MinDSCR: breach"})
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 6 {
		t.Fatalf("expected a 6-line box (top/title/sep/2 rows/bottom), got %d lines:\n%s", len(lines), out)
	}
	width := len(lines[0])
	for _, l := range lines {
		if len(l) != width {
			t.Fatalf("expected every box line to share one width, got %q vs width %d", l, width)
		}
	}
	if !strings.Contains(out, "Covenants") {
		t.Fatalf("expected the title to appear in the box")
	}
}

func TestJSON_MarshalsIndented(t *testing.T) {
	out, err := JSON(map[string]int{"a": 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "\"a\": 1") {
		t.Fatalf("expected indented JSON output, got %q", out)
	}
}

func TestFormatParseError_RendersSourceLineAndCaret(t *testing.T) {
	source := "COVENANT MaxLeverage REQUIRES\n  Leverage <<= 4.5"
	e := &parser.ParseError{
		Message:  "unexpected token",
		Start:    token.Position{Line: 2, Column: 12},
		Expected: []string{"NUMBER", "CURRENCY"},
		Found:    "<=",
	}

	out := FormatParseError("facility.proviso", source, e)
	if !strings.Contains(out, "--> facility.proviso:2:12") {
		t.Fatalf("expected a file:line:col pointer, got:\n%s", out)
	}
	if !strings.Contains(out, "Leverage <<= 4.5") {
		t.Fatalf("expected the offending source line reproduced, got:\n%s", out)
	}
	if !strings.Contains(out, "Expected one of: NUMBER, CURRENCY") {
		t.Fatalf("expected an 'Expected one of' line, got:\n%s", out)
	}
	if !strings.Contains(out, `Found: "<="`) {
		t.Fatalf("expected a Found line quoting the offending token, got:\n%s", out)
	}
}

func TestFormatParseError_EndOfInputFound(t *testing.T) {
	e := &parser.ParseError{
		Message: "unexpected end of input",
		Start:   token.Position{Line: 1, Column: 1},
		Found:   "",
	}
	out := FormatParseError("facility.proviso", "COVENANT", e)
	if !strings.Contains(out, "Found: end of input") {
		t.Fatalf("expected 'Found: end of input', got:\n%s", out)
	}
}
