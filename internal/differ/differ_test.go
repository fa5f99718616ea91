package differ

import (
	"testing"

	"github.com/wch1125/proviso/internal/lang/ast"
	"github.com/wch1125/proviso/internal/lang/token"
	"github.com/wch1125/proviso/internal/statecompiler"
)

func covenant(threshold float64) *ast.Program {
	return &ast.Program{Statements: []ast.Statement{
		&ast.CovenantStatement{
			Ident: "MaxLeverage",
			Requires: &ast.BinaryExpr{
				Left:     &ast.Ident{Name: "Leverage"},
				Operator: token.LTE,
				Right:    &ast.NumberLit{Value: threshold},
			},
			Frequency: ast.Quarterly,
		},
	}}
}

func TestDiff_ModifiedThreshold(t *testing.T) {
	from := statecompiler.Compile(covenant(4.0))
	to := statecompiler.Compile(covenant(4.5))

	res := Diff(from, to)
	if !res.Success {
		t.Fatalf("expected success")
	}
	if res.Stats.TotalChanges != 1 {
		t.Fatalf("expected exactly one change, got %d", res.Stats.TotalChanges)
	}
	d := res.Diffs[0]
	if d.ChangeType != Modified || d.ElementType != "covenant" || d.ElementName != "MaxLeverage" {
		t.Fatalf("unexpected diff: %+v", d)
	}
	if len(d.FieldChanges) != 1 || d.FieldChanges[0].Field != "requires" {
		t.Fatalf("expected a single requires field change, got %+v", d.FieldChanges)
	}
}

func TestDiff_AddedAndRemovedBasket(t *testing.T) {
	from := statecompiler.Compile(&ast.Program{Statements: []ast.Statement{
		&ast.BasketStatement{Ident: "OldBasket", Kind: ast.FixedBasket, Capacity: &ast.CurrencyLit{Value: 1_000_000}},
	}})
	to := statecompiler.Compile(&ast.Program{Statements: []ast.Statement{
		&ast.BasketStatement{Ident: "NewBasket", Kind: ast.FixedBasket, Capacity: &ast.CurrencyLit{Value: 2_000_000}},
	}})

	res := Diff(from, to)
	if res.Stats.ByChangeType[Added] != 1 || res.Stats.ByChangeType[Removed] != 1 {
		t.Fatalf("expected one add and one remove, got %+v", res.Stats.ByChangeType)
	}
}

func TestDiff_NoChangeWhenIdentical(t *testing.T) {
	from := statecompiler.Compile(covenant(4.5))
	to := statecompiler.Compile(covenant(4.5))

	res := Diff(from, to)
	if res.Stats.TotalChanges != 0 {
		t.Fatalf("expected no changes between identical states, got %d", res.Stats.TotalChanges)
	}
}

func TestDiff_FailedCompileShortCircuits(t *testing.T) {
	from := statecompiler.CompileFailed(errBoom{})
	to := statecompiler.Compile(covenant(4.5))

	res := Diff(from, to)
	if res.Success {
		t.Fatalf("expected Success=false when either state failed to compile")
	}
	if len(res.Diffs) != 0 {
		t.Fatalf("expected no diffs on a failed compile")
	}
}

type errBoom struct{}

func (errBoom) Error() string { return "boom" }
