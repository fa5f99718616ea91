package drift

import (
	"testing"

	"github.com/wch1125/proviso/internal/lang/ast"
	"github.com/wch1125/proviso/internal/lang/token"
	"github.com/wch1125/proviso/internal/render"
)

func sampleProgram() *ast.Program {
	return &ast.Program{Statements: []ast.Statement{
		&ast.CovenantStatement{
			Ident: "MaxLeverage",
			Requires: &ast.BinaryExpr{
				Left:     &ast.Ident{Name: "Leverage"},
				Operator: token.LTE,
				Right:    &ast.RatioLit{Value: 4.5},
			},
			Frequency: ast.Quarterly,
		},
		&ast.BasketStatement{Ident: "GeneralBasket", Kind: ast.FixedBasket, Capacity: &ast.CurrencyLit{Value: 35_000_000}},
	}}
}

func TestDetect_NoFindingsWhenActualMatchesExpected(t *testing.T) {
	doc := render.Render(sampleProgram())
	findings := Detect(doc, doc.FullText, false)
	if len(findings) != 0 {
		t.Fatalf("expected no findings against identical text, got %+v", findings)
	}
}

func TestDetect_CapacityChangeFlagged(t *testing.T) {
	doc := render.Render(sampleProgram())
	actual := "GeneralBasket. Investments made pursuant to this clause shall not exceed $50000000."

	findings := Detect(doc, actual, true)
	var found *Finding
	for i := range findings {
		if findings[i].SectionTitle == "GeneralBasket" {
			found = &findings[i]
		}
	}
	if found == nil {
		t.Fatalf("expected a finding for GeneralBasket, got %+v", findings)
	}
	if found.Category != CapacityChange || found.Severity != High {
		t.Fatalf("expected high-severity capacity_change, got %+v", found)
	}
	if found.Suggestion == "" {
		t.Fatalf("expected a suggested DSL snippet")
	}
}

func TestDetect_StructuralKeywordChangeFlagged(t *testing.T) {
	doc := render.Render(sampleProgram())
	actual := "MaxLeverage. The Borrower shall not permit the Leverage as of the last day of any fiscal quarter to exceed 4.5 to 1.00, provided that this covenant may be waived by majority lenders."

	findings := Detect(doc, actual, true)
	var found *Finding
	for i := range findings {
		if findings[i].SectionTitle == "MaxLeverage" {
			found = &findings[i]
		}
	}
	if found == nil {
		t.Fatalf("expected a finding for MaxLeverage, got %+v", findings)
	}
	if found.Category != StructuralChange {
		t.Fatalf("expected structural_change, got %s", found.Category)
	}
}

func TestDetect_LowConfidenceOmittedUnlessVerbose(t *testing.T) {
	doc := render.Render(sampleProgram())
	actual := "GeneralBasket. Investments made pursuant to this clause shall not surpass $35000000."

	quiet := Detect(doc, actual, false)
	verbose := Detect(doc, actual, true)
	if len(quiet) > len(verbose) {
		t.Fatalf("quiet mode should never report more findings than verbose mode")
	}
}
