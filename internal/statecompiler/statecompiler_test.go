package statecompiler

import (
	"fmt"
	"testing"

	"github.com/wch1125/proviso/internal/lang/ast"
	"github.com/wch1125/proviso/internal/lang/token"
)

func sampleProgram() *ast.Program {
	return &ast.Program{Statements: []ast.Statement{
		&ast.DefineStatement{Ident: "EBITDA", Value: &ast.NumberLit{Value: 1}},
		&ast.CovenantStatement{
			Ident: "MaxLeverage",
			Requires: &ast.BinaryExpr{
				Left:     &ast.Ident{Name: "Leverage"},
				Operator: token.LTE,
				Right:    &ast.NumberLit{Value: 4.5},
			},
		},
		&ast.BasketStatement{Ident: "GeneralBasket", Kind: ast.FixedBasket, Capacity: &ast.CurrencyLit{Value: 35_000_000}},
	}}
}

func TestCompile_BucketsByKind(t *testing.T) {
	s := Compile(sampleProgram())

	if _, ok := s.Defines["EBITDA"]; !ok {
		t.Fatalf("expected EBITDA to be compiled into Defines")
	}
	if _, ok := s.Covenants["MaxLeverage"]; !ok {
		t.Fatalf("expected MaxLeverage to be compiled into Covenants")
	}
	if _, ok := s.Baskets["GeneralBasket"]; !ok {
		t.Fatalf("expected GeneralBasket to be compiled into Baskets")
	}
	if len(s.Conditions) != 0 || len(s.Milestones) != 0 {
		t.Fatalf("expected unused element kinds to stay empty")
	}
	if s.Error != nil {
		t.Fatalf("expected no error, got %v", s.Error)
	}
}

func TestCompile_NilProgram(t *testing.T) {
	s := Compile(nil)
	if s.Defines == nil || s.Covenants == nil {
		t.Fatalf("expected all maps initialised even for a nil program")
	}
}

func TestCompileFailed_CarriesError(t *testing.T) {
	err := fmt.Errorf("boom")
	s := CompileFailed(err)
	if s.Error != err {
		t.Fatalf("expected Error to be the supplied error, got %v", s.Error)
	}
	if len(s.Covenants) != 0 {
		t.Fatalf("expected empty maps on a failed compile")
	}
}
