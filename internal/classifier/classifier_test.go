package classifier

import (
	"testing"

	"github.com/wch1125/proviso/internal/differ"
	"github.com/wch1125/proviso/internal/lang/ast"
	"github.com/wch1125/proviso/internal/lang/token"
	"github.com/wch1125/proviso/internal/statecompiler"
)

func leverageCovenant(threshold float64) *ast.Program {
	return &ast.Program{Statements: []ast.Statement{
		&ast.CovenantStatement{
			Ident: "MaxLeverage",
			Requires: &ast.BinaryExpr{
				Left:     &ast.Ident{Name: "Leverage"},
				Operator: token.LTE,
				Right:    &ast.NumberLit{Value: threshold},
			},
		},
	}}
}

func TestClassify_RaisingMaxThresholdIsBorrowerFavorable(t *testing.T) {
	from := statecompiler.Compile(leverageCovenant(4.0))
	to := statecompiler.Compile(leverageCovenant(4.5))
	res := differ.Diff(from, to)

	summary := Classify(res, "2026-01-01", "Borrower")
	if len(summary.Changes) != 1 {
		t.Fatalf("expected one classified change, got %d", len(summary.Changes))
	}
	if summary.Changes[0].Impact != BorrowerFavorable {
		t.Fatalf("expected borrower_favorable, got %s (%s)", summary.Changes[0].Impact, summary.Changes[0].Reason)
	}
	if summary.ByImpact[BorrowerFavorable] != 1 {
		t.Fatalf("expected aggregate count of 1, got %+v", summary.ByImpact)
	}
}

func TestClassify_LoweringMaxThresholdIsLenderFavorable(t *testing.T) {
	from := statecompiler.Compile(leverageCovenant(4.5))
	to := statecompiler.Compile(leverageCovenant(4.0))
	res := differ.Diff(from, to)

	summary := Classify(res, "2026-01-01", "Lender")
	if summary.Changes[0].Impact != LenderFavorable {
		t.Fatalf("expected lender_favorable, got %s", summary.Changes[0].Impact)
	}
}

func TestClassify_AddedCovenantIsLenderFavorable(t *testing.T) {
	from := statecompiler.Compile(&ast.Program{})
	to := statecompiler.Compile(leverageCovenant(4.0))
	res := differ.Diff(from, to)

	summary := Classify(res, "", "")
	if summary.Changes[0].Impact != LenderFavorable {
		t.Fatalf("expected a newly added covenant to be lender_favorable, got %s", summary.Changes[0].Impact)
	}
}

func TestClassify_DefinitionChangeIsAlwaysNeutral(t *testing.T) {
	from := statecompiler.Compile(&ast.Program{Statements: []ast.Statement{
		&ast.DefineStatement{Ident: "EBITDA", Value: &ast.NumberLit{Value: 1}},
	}})
	to := statecompiler.Compile(&ast.Program{Statements: []ast.Statement{
		&ast.DefineStatement{Ident: "EBITDA", Value: &ast.NumberLit{Value: 2}},
	}})
	res := differ.Diff(from, to)

	summary := Classify(res, "", "")
	if summary.Changes[0].Impact != Neutral {
		t.Fatalf("expected definition changes to stay neutral, got %s", summary.Changes[0].Impact)
	}
}

func TestClassify_BasketCapacityRaisedIsBorrowerFavorable(t *testing.T) {
	from := statecompiler.Compile(&ast.Program{Statements: []ast.Statement{
		&ast.BasketStatement{Ident: "GeneralBasket", Kind: ast.FixedBasket, Capacity: &ast.CurrencyLit{Value: 10_000_000}},
	}})
	to := statecompiler.Compile(&ast.Program{Statements: []ast.Statement{
		&ast.BasketStatement{Ident: "GeneralBasket", Kind: ast.FixedBasket, Capacity: &ast.CurrencyLit{Value: 15_000_000}},
	}})
	res := differ.Diff(from, to)

	summary := Classify(res, "", "")
	if summary.Changes[0].Impact != BorrowerFavorable {
		t.Fatalf("expected raised basket capacity to be borrower_favorable, got %s", summary.Changes[0].Impact)
	}
}
