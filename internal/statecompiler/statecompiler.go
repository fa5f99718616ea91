// Package statecompiler maps a parsed Program to one name-keyed map per
// element kind, the form the differ and classifier operate on.
package statecompiler

import "github.com/wch1125/proviso/internal/lang/ast"

// State is the compiled, name-keyed view of one document version.
// Amendments and comments are excluded — State reflects the base tree
// as parsed, not a point-in-time amended view.
type State struct {
	Defines     map[string]*ast.DefineStatement
	Covenants   map[string]*ast.CovenantStatement
	Baskets     map[string]*ast.BasketStatement
	Conditions  map[string]*ast.ConditionStatement
	Prohibits   map[string]*ast.ProhibitStatement
	Events      map[string]*ast.EventStatement
	Phases      map[string]*ast.PhaseStatement
	Transitions map[string]*ast.TransitionStatement
	Milestones  map[string]*ast.MilestoneStatement
	Reserves    map[string]*ast.ReserveStatement
	Waterfalls  map[string]*ast.WaterfallStatement
	CPs         map[string]*ast.ConditionsPrecedentStatement

	Error error
}

// empty returns a State with every map initialised but empty, used both
// as the base for a successful compile and as the all-maps-empty output
// on parse failure.
func empty() *State {
	return &State{
		Defines:     map[string]*ast.DefineStatement{},
		Covenants:   map[string]*ast.CovenantStatement{},
		Baskets:     map[string]*ast.BasketStatement{},
		Conditions:  map[string]*ast.ConditionStatement{},
		Prohibits:   map[string]*ast.ProhibitStatement{},
		Events:      map[string]*ast.EventStatement{},
		Phases:      map[string]*ast.PhaseStatement{},
		Transitions: map[string]*ast.TransitionStatement{},
		Milestones:  map[string]*ast.MilestoneStatement{},
		Reserves:    map[string]*ast.ReserveStatement{},
		Waterfalls:  map[string]*ast.WaterfallStatement{},
		CPs:         map[string]*ast.ConditionsPrecedentStatement{},
	}
}

// Compile builds a State from a parsed Program. It never mutates prog.
func Compile(prog *ast.Program) *State {
	s := empty()
	if prog == nil {
		return s
	}
	for _, stmt := range prog.Statements {
		switch v := stmt.(type) {
		case *ast.DefineStatement:
			s.Defines[v.Ident] = v
		case *ast.CovenantStatement:
			s.Covenants[v.Ident] = v
		case *ast.BasketStatement:
			s.Baskets[v.Ident] = v
		case *ast.ConditionStatement:
			s.Conditions[v.Ident] = v
		case *ast.ProhibitStatement:
			s.Prohibits[v.Ident] = v
		case *ast.EventStatement:
			s.Events[v.Ident] = v
		case *ast.PhaseStatement:
			s.Phases[v.Ident] = v
		case *ast.TransitionStatement:
			s.Transitions[v.Ident] = v
		case *ast.MilestoneStatement:
			s.Milestones[v.Ident] = v
		case *ast.ReserveStatement:
			s.Reserves[v.Ident] = v
		case *ast.WaterfallStatement:
			s.Waterfalls[v.Ident] = v
		case *ast.ConditionsPrecedentStatement:
			s.CPs[v.Ident] = v
		}
	}
	return s
}

// CompileFailed returns a State carrying a parse error and empty maps.
func CompileFailed(err error) *State {
	s := empty()
	s.Error = err
	return s
}
