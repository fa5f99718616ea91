// Package interpreter evaluates a ProViso Program against financial
// observations: covenants, baskets, phases, milestones, waterfalls,
// reserves, conditions precedent, and amendments.
//
// An Interpreter is a mutable, single-threaded object. Its ledgers,
// phase history, cure log, and amendment log evolve in place; it is not
// safe to share one Interpreter across goroutines.
package interpreter

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/wch1125/proviso/internal/lang/ast"
)

// BasketClass mirrors ast.BasketKind for ledger bookkeeping.
type BasketClass int

const (
	ClassFixed BasketClass = iota
	ClassGrower
	ClassBuilder
)

// LedgerEntryKind distinguishes a usage draw from a builder accumulation.
type LedgerEntryKind int

const (
	EntryUsage LedgerEntryKind = iota
	EntryAccumulation
)

// BasketLedgerEntry is one append-only row in a basket's ledger.
type BasketLedgerEntry struct {
	ID          string
	Timestamp   time.Time
	Basket      string
	Amount      float64
	Description string
	Kind        LedgerEntryKind
}

// basketLedger is the per-basket running state.
type basketLedger struct {
	class       BasketClass
	used        float64
	accumulated float64
	entries     []BasketLedgerEntry
}

// CureAttempt is one append-only row in a covenant's cure ledger.
type CureAttempt struct {
	ID         string
	Date       string
	Mechanism  string
	Amount     float64
	Successful bool
}

// PhaseHistoryEntry records one phase transition.
type PhaseHistoryEntry struct {
	Phase       string
	EnteredAt   string
	TriggeredBy string
}

// milestoneState tracks a milestone's external achieved date.
type milestoneState struct {
	achievedDate string
	currentValue float64
}

// cpItemState tracks one CP checklist item's externally-set status.
type cpItemState string

const (
	cpPending       cpItemState = "pending"
	cpSatisfied     cpItemState = "satisfied"
	cpWaived        cpItemState = "waived"
	cpNotApplicable cpItemState = "not_applicable"
)

// Interpreter is the stateful evaluator for one Program.
type Interpreter struct {
	tree *ast.Program

	defines     map[string]*ast.DefineStatement
	covenants   map[string]*ast.CovenantStatement
	baskets     map[string]*ast.BasketStatement
	conditions  map[string]*ast.ConditionStatement
	prohibits   map[string]*ast.ProhibitStatement
	events      map[string]*ast.EventStatement
	phases      []*ast.PhaseStatement
	transitions map[string]*ast.TransitionStatement
	milestones  map[string]*ast.MilestoneStatement
	techMiles   map[string]*ast.TechnicalMilestoneStatement
	reserves    map[string]*ast.ReserveStatement
	waterfalls  map[string]*ast.WaterfallStatement
	cps         map[string]*ast.ConditionsPrecedentStatement
	amendments  map[string]*ast.AmendmentStatement

	observation *FinancialObservation
	evalPeriod  string
	asOfDate    string

	basketLedgers map[string]*basketLedger
	cureLedgers   map[string][]CureAttempt

	phaseHistory []PhaseHistoryEntry
	currentPhase string

	milestoneStates map[string]*milestoneState
	cpItemStatus    map[string]map[string]cpItemState // checklist -> item -> status
	satisfiedEvents map[string]bool                   // externally-triggered events + CP satisfies + achieved milestones

	reserveBalances map[string]float64

	appliedAmendments []*ast.AmendmentStatement

	memo map[string]float64 // per-evaluate-call DEFINE memoisation cache
}

// New constructs an Interpreter over a parsed Program. Amendments operate
// on a working copy of the Program's statement list held here, so ADD,
// DELETE and REPLACE leave the caller's Program as it was; MODIFY sets
// fields on the statement nodes themselves, which the working copy shares
// with the caller's Program.
func New(prog *ast.Program) *Interpreter {
	it := &Interpreter{
		tree:            &ast.Program{Statements: append([]ast.Statement(nil), prog.Statements...), Position: prog.Position},
		defines:         map[string]*ast.DefineStatement{},
		covenants:       map[string]*ast.CovenantStatement{},
		baskets:         map[string]*ast.BasketStatement{},
		conditions:      map[string]*ast.ConditionStatement{},
		prohibits:       map[string]*ast.ProhibitStatement{},
		events:          map[string]*ast.EventStatement{},
		transitions:     map[string]*ast.TransitionStatement{},
		milestones:      map[string]*ast.MilestoneStatement{},
		techMiles:       map[string]*ast.TechnicalMilestoneStatement{},
		reserves:        map[string]*ast.ReserveStatement{},
		waterfalls:      map[string]*ast.WaterfallStatement{},
		cps:             map[string]*ast.ConditionsPrecedentStatement{},
		amendments:      map[string]*ast.AmendmentStatement{},
		observation:     &FinancialObservation{Flat: map[string]float64{}},
		basketLedgers:   map[string]*basketLedger{},
		cureLedgers:     map[string][]CureAttempt{},
		milestoneStates: map[string]*milestoneState{},
		cpItemStatus:    map[string]map[string]cpItemState{},
		satisfiedEvents: map[string]bool{},
		reserveBalances: map[string]float64{},
	}
	it.index()
	it.initPhase()
	return it
}

func (it *Interpreter) index() {
	it.phases = nil
	for _, s := range it.tree.Statements {
		switch v := s.(type) {
		case *ast.DefineStatement:
			it.defines[v.Ident] = v
		case *ast.CovenantStatement:
			it.covenants[v.Ident] = v
			if _, ok := it.cureLedgers[v.Ident]; !ok {
				it.cureLedgers[v.Ident] = nil
			}
		case *ast.BasketStatement:
			it.baskets[v.Ident] = v
			if _, ok := it.basketLedgers[v.Ident]; !ok {
				it.basketLedgers[v.Ident] = &basketLedger{class: classOf(v.Kind)}
			}
		case *ast.ConditionStatement:
			it.conditions[v.Ident] = v
		case *ast.ProhibitStatement:
			it.prohibits[v.Ident] = v
		case *ast.EventStatement:
			it.events[v.Ident] = v
		case *ast.PhaseStatement:
			it.phases = append(it.phases, v)
		case *ast.TransitionStatement:
			it.transitions[v.Ident] = v
		case *ast.MilestoneStatement:
			it.milestones[v.Ident] = v
			if _, ok := it.milestoneStates[v.Ident]; !ok {
				it.milestoneStates[v.Ident] = &milestoneState{}
			}
		case *ast.TechnicalMilestoneStatement:
			it.techMiles[v.Ident] = v
			if _, ok := it.milestoneStates[v.Ident]; !ok {
				it.milestoneStates[v.Ident] = &milestoneState{}
			}
		case *ast.ReserveStatement:
			it.reserves[v.Ident] = v
			if _, ok := it.reserveBalances[v.Ident]; !ok {
				it.reserveBalances[v.Ident] = 0
			}
		case *ast.WaterfallStatement:
			it.waterfalls[v.Ident] = v
		case *ast.AmendmentStatement:
			it.amendments[v.Ident] = v
		case *ast.ConditionsPrecedentStatement:
			it.cps[v.Ident] = v
			if _, ok := it.cpItemStatus[v.Ident]; ok {
				continue
			}
			it.cpItemStatus[v.Ident] = map[string]cpItemState{}
			for _, item := range v.Items {
				st := cpPending
				if item.Status == ast.CPSatisfied {
					st = cpSatisfied
				}
				it.cpItemStatus[v.Ident][item.Ident] = st
			}
		}
	}
}

func classOf(k ast.BasketKind) BasketClass {
	switch k {
	case ast.GrowerBasket:
		return ClassGrower
	case ast.BuilderBasket:
		return ClassBuilder
	default:
		return ClassFixed
	}
}

// initPhase selects the phase whose FROM is absent or already satisfied.
func (it *Interpreter) initPhase() {
	if len(it.phases) == 0 {
		return
	}
	for _, ph := range it.phases {
		if ph.From == nil {
			it.currentPhase = ph.Ident
			it.phaseHistory = append(it.phaseHistory, PhaseHistoryEntry{Phase: ph.Ident})
			return
		}
	}
	for _, ph := range it.phases {
		if ok, err := it.evalBool(ph.From); err == nil && ok {
			it.currentPhase = ph.Ident
			it.phaseHistory = append(it.phaseHistory, PhaseHistoryEntry{Phase: ph.Ident})
			return
		}
	}
	it.currentPhase = it.phases[0].Ident
	it.phaseHistory = append(it.phaseHistory, PhaseHistoryEntry{Phase: it.phases[0].Ident})
}

// LoadFinancials replaces the current observation wholesale. The input is
// deep-copied; the caller may freely mutate its own copy afterward.
func (it *Interpreter) LoadFinancials(obs *FinancialObservation) {
	it.observation = obs.clone()
	it.evalPeriod = ""
}

// SetEvaluationPeriod selects which loaded period is "current" for
// subsequent evaluation calls.
func (it *Interpreter) SetEvaluationPeriod(period string) {
	it.evalPeriod = period
}

func newEntryID() string { return uuid.NewString() }

// CovenantNames lists every declared covenant name, sorted.
func (it *Interpreter) CovenantNames() []string {
	out := make([]string, 0, len(it.covenants))
	for name := range it.covenants {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// BasketNames lists every declared basket name, sorted.
func (it *Interpreter) BasketNames() []string {
	out := make([]string, 0, len(it.baskets))
	for name := range it.baskets {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// ReserveNames lists every declared reserve name, sorted.
func (it *Interpreter) ReserveNames() []string {
	out := make([]string, 0, len(it.reserves))
	for name := range it.reserves {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// MilestoneNames lists every declared milestone name (date-based only,
// not technical milestones), sorted.
func (it *Interpreter) MilestoneNames() []string {
	out := make([]string, 0, len(it.milestones))
	for name := range it.milestones {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// WaterfallNames lists every declared waterfall name, sorted.
func (it *Interpreter) WaterfallNames() []string {
	out := make([]string, 0, len(it.waterfalls))
	for name := range it.waterfalls {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// SetAsOfDate fixes the ISO date the interpreter treats as "today" when
// deriving milestone status. Callers
// drive the clock explicitly; the interpreter never reads wall time.
func (it *Interpreter) SetAsOfDate(date string) {
	it.asOfDate = date
}
