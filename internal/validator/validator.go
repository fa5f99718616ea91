// Package validator performs static semantic checks over a parsed Program
// without evaluating any financial data.
package validator

import (
	"fmt"

	"github.com/wch1125/proviso/internal/lang/ast"
)

// Severity distinguishes a hard error from an advisory warning.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

func (s Severity) String() string {
	if s == SeverityWarning {
		return "warning"
	}
	return "error"
}

// Diagnostic is one reportable validation finding.
type Diagnostic struct {
	Severity     Severity
	Message      string
	Reference    string // the statement name this finding concerns, if any
	Context      string
	ExpectedType string
}

// Result is the validator's complete output for one Program.
type Result struct {
	Valid    bool
	Errors   []Diagnostic
	Warnings []Diagnostic
}

func (r *Result) addError(ref, context, format string, args ...interface{}) {
	r.Errors = append(r.Errors, Diagnostic{
		Severity:  SeverityError,
		Message:   fmt.Sprintf(format, args...),
		Reference: ref,
		Context:   context,
	})
	r.Valid = false
}

func (r *Result) addWarning(ref, context, format string, args ...interface{}) {
	r.Warnings = append(r.Warnings, Diagnostic{
		Severity:  SeverityWarning,
		Message:   fmt.Sprintf(format, args...),
		Reference: ref,
		Context:   context,
	})
}

type byKind struct {
	defines    map[string]*ast.DefineStatement
	covenants  map[string]*ast.CovenantStatement
	baskets    map[string]*ast.BasketStatement
	conditions map[string]*ast.ConditionStatement
	prohibits  map[string]*ast.ProhibitStatement
	events     map[string]*ast.EventStatement
	phases     map[string]*ast.PhaseStatement
	reserves   map[string]*ast.ReserveStatement
	waterfalls map[string]*ast.WaterfallStatement
	cps        map[string]*ast.ConditionsPrecedentStatement
	milestones map[string]*ast.MilestoneStatement
}

// Validate runs all semantic checks over prog and returns a Result. It
// never mutates prog and never panics on malformed references — those are
// reported as Diagnostics instead.
func Validate(prog *ast.Program) *Result {
	res := &Result{Valid: true}
	grouped := collect(prog)

	checkDuplicates(prog, res)
	checkDefineCycles(grouped.defines, res)
	checkUndefinedReferences(prog, grouped, res)
	checkCureClauses(grouped.covenants, res)
	checkBasketShape(grouped.baskets, res)
	checkAmendmentTargets(prog, grouped, res)
	checkUnreferencedCovenants(grouped, res)
	checkBasketsWithoutUsagePath(grouped, res)

	return res
}

func collect(prog *ast.Program) byKind {
	g := byKind{
		defines:    map[string]*ast.DefineStatement{},
		covenants:  map[string]*ast.CovenantStatement{},
		baskets:    map[string]*ast.BasketStatement{},
		conditions: map[string]*ast.ConditionStatement{},
		prohibits:  map[string]*ast.ProhibitStatement{},
		events:     map[string]*ast.EventStatement{},
		phases:     map[string]*ast.PhaseStatement{},
		reserves:   map[string]*ast.ReserveStatement{},
		waterfalls: map[string]*ast.WaterfallStatement{},
		cps:        map[string]*ast.ConditionsPrecedentStatement{},
		milestones: map[string]*ast.MilestoneStatement{},
	}
	for _, s := range prog.Statements {
		switch v := s.(type) {
		case *ast.DefineStatement:
			g.defines[v.Ident] = v
		case *ast.CovenantStatement:
			g.covenants[v.Ident] = v
		case *ast.BasketStatement:
			g.baskets[v.Ident] = v
		case *ast.ConditionStatement:
			g.conditions[v.Ident] = v
		case *ast.ProhibitStatement:
			g.prohibits[v.Ident] = v
		case *ast.EventStatement:
			g.events[v.Ident] = v
		case *ast.PhaseStatement:
			g.phases[v.Ident] = v
		case *ast.ReserveStatement:
			g.reserves[v.Ident] = v
		case *ast.WaterfallStatement:
			g.waterfalls[v.Ident] = v
		case *ast.ConditionsPrecedentStatement:
			g.cps[v.Ident] = v
		case *ast.MilestoneStatement:
			g.milestones[v.Ident] = v
		}
	}
	return g
}

// checkDuplicates rejects statements that reuse a name within their kind.
func checkDuplicates(prog *ast.Program, res *Result) {
	seen := map[string]map[string]bool{}
	for _, s := range prog.Statements {
		kind := kindOf(s)
		if kind == "" {
			continue
		}
		if seen[kind] == nil {
			seen[kind] = map[string]bool{}
		}
		name := s.Name()
		if seen[kind][name] {
			res.addError(name, kind, "duplicate %s name %q", kind, name)
			continue
		}
		seen[kind][name] = true
	}
}

func kindOf(s ast.Statement) string {
	switch s.(type) {
	case *ast.DefineStatement:
		return "define"
	case *ast.CovenantStatement:
		return "covenant"
	case *ast.BasketStatement:
		return "basket"
	case *ast.ConditionStatement:
		return "condition"
	case *ast.ProhibitStatement:
		return "prohibit"
	case *ast.EventStatement:
		return "event"
	case *ast.PhaseStatement:
		return "phase"
	case *ast.TransitionStatement:
		return "transition"
	case *ast.MilestoneStatement:
		return "milestone"
	case *ast.TechnicalMilestoneStatement:
		return "technical_milestone"
	case *ast.RegulatoryRequirementStatement:
		return "regulatory_requirement"
	case *ast.PerformanceGuaranteeStatement:
		return "performance_guarantee"
	case *ast.DegradationScheduleStatement:
		return "degradation_schedule"
	case *ast.SeasonalAdjustmentStatement:
		return "seasonal_adjustment"
	case *ast.TaxEquityStructureStatement:
		return "tax_equity_structure"
	case *ast.TaxCreditStatement:
		return "tax_credit"
	case *ast.DepreciationStatement:
		return "depreciation"
	case *ast.FlipEventStatement:
		return "flip_event"
	case *ast.ReserveStatement:
		return "reserve"
	case *ast.WaterfallStatement:
		return "waterfall"
	case *ast.ConditionsPrecedentStatement:
		return "conditions_precedent"
	case *ast.AmendmentStatement:
		return ""
	case *ast.LoadStatement:
		return "load"
	default:
		return ""
	}
}

// checkDefineCycles runs a three-colour DFS over the DEFINE dependency
// graph, reporting exactly one cycle diagnostic per root that reaches one.
func checkDefineCycles(defines map[string]*ast.DefineStatement, res *Result) {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := map[string]int{}
	var visit func(name string, path []string) bool
	visit = func(name string, path []string) bool {
		def, ok := defines[name]
		if !ok {
			return false
		}
		color[name] = gray
		for _, dep := range identRefs(def.Value) {
			if _, isDefine := defines[dep]; !isDefine {
				continue
			}
			switch color[dep] {
			case gray:
				res.addError(name, "define", "cyclic DEFINE dependency involving %q", dep)
				return true
			case white:
				if visit(dep, append(path, name)) {
					return true
				}
			}
		}
		color[name] = black
		return false
	}
	for name := range defines {
		if color[name] == white {
			visit(name, nil)
		}
	}
}

// identRefs collects every bare identifier referenced within expr.
func identRefs(expr ast.Expression) []string {
	var out []string
	var walk func(ast.Expression)
	walk = func(e ast.Expression) {
		if e == nil {
			return
		}
		switch v := e.(type) {
		case *ast.Ident:
			out = append(out, v.Name)
		case *ast.BinaryExpr:
			walk(v.Left)
			walk(v.Right)
		case *ast.UnaryExpr:
			walk(v.Operand)
		case *ast.CallExpr:
			for _, a := range v.Args {
				walk(a)
			}
		}
	}
	walk(expr)
	return out
}

// checkUndefinedReferences reports identifiers referenced by a DEFINE
// value, covenant REQUIRES, basket CAPACITY/BUILDS_FROM, or condition
// value that resolve to nothing: not a DEFINE, not a covenant/basket/
// condition name, and not a built-in function. It also reports SUBJECT
// TO names that are not conditions and SHORTFALL names that are not
// reserves. Waterfall IF gates and amendment directives are not checked.
func checkUndefinedReferences(prog *ast.Program, g byKind, res *Result) {
	known := func(name string) bool {
		if _, ok := g.defines[name]; ok {
			return true
		}
		if _, ok := g.covenants[name]; ok {
			return true
		}
		if _, ok := g.baskets[name]; ok {
			return true
		}
		if _, ok := g.conditions[name]; ok {
			return true
		}
		if _, ok := g.events[name]; ok {
			return true
		}
		if _, ok := g.milestones[name]; ok {
			return true
		}
		if _, ok := g.reserves[name]; ok {
			return true
		}
		return isBuiltin(name)
	}

	checkExpr := func(owner string, e ast.Expression) {
		for _, ref := range identRefs(e) {
			if !known(ref) {
				res.addWarning(owner, "reference", "identifier %q does not resolve to a DEFINE, covenant, basket, condition, or observation key; it will be looked up in financial data at evaluation time", ref)
			}
		}
	}

	for _, s := range prog.Statements {
		switch v := s.(type) {
		case *ast.DefineStatement:
			checkExpr(v.Ident, v.Value)
		case *ast.CovenantStatement:
			checkExpr(v.Ident, v.Requires)
		case *ast.BasketStatement:
			checkExpr(v.Ident, v.Capacity)
			checkExpr(v.Ident, v.BuildsFrom)
			for _, cond := range v.SubjectTo {
				if _, ok := g.conditions[cond]; !ok {
					res.addError(v.Ident, "subject-to", "basket %q references undefined condition %q", v.Ident, cond)
				}
			}
		case *ast.ConditionStatement:
			checkExpr(v.Ident, v.Value)
		case *ast.WaterfallStatement:
			for _, tier := range v.Tiers {
				if tier.Shortfall != "" {
					if _, ok := g.reserves[tier.Shortfall]; !ok {
						res.addError(v.Ident, "shortfall", "waterfall %q tier %q references undefined reserve %q", v.Ident, tier.Pay, tier.Shortfall)
					}
				}
			}
		}
	}
}

func isBuiltin(name string) bool {
	switch name {
	case "GreaterOf", "LesserOf", "Average", "Sum", "AVAILABLE", "COMPLIANT",
		"EXISTS", "ALL_OF", "ANY_OF", "TRAILING", "QUARTERS", "MONTHS", "YEARS":
		return true
	}
	return false
}

// checkCureClauses rejects non-positive cure parameters.
func checkCureClauses(covenants map[string]*ast.CovenantStatement, res *Result) {
	for name, c := range covenants {
		if c.Cure == nil {
			continue
		}
		if c.Cure.MaxUses <= 0 {
			res.addError(name, "cure", "covenant %q cure clause has non-positive MAX_USES", name)
		}
		if c.Cure.OverQtrs <= 0 {
			res.addError(name, "cure", "covenant %q cure clause has a non-positive window", name)
		}
		if c.MaxAmount == nil {
			res.addError(name, "cure", "covenant %q cure clause is missing MAX_AMOUNT", name)
		}
	}
}

// checkBasketShape rejects a builder basket missing STARTING.
func checkBasketShape(baskets map[string]*ast.BasketStatement, res *Result) {
	for name, b := range baskets {
		if b.Capacity != nil && b.BuildsFrom != nil && b.Starting == nil {
			res.addError(name, "basket", "basket %q has both CAPACITY and BUILDS_FROM but no STARTING", name)
		}
		if b.Kind == ast.BuilderBasket && b.Starting == nil {
			res.addError(name, "basket", "builder basket %q is missing STARTING", name)
		}
	}
}

// checkAmendmentTargets rejects DELETE/REPLACE/MODIFY directives that
// target a statement absent from the base document.
func checkAmendmentTargets(prog *ast.Program, g byKind, res *Result) {
	exists := func(name string) bool {
		if _, ok := g.defines[name]; ok {
			return true
		}
		if _, ok := g.covenants[name]; ok {
			return true
		}
		if _, ok := g.baskets[name]; ok {
			return true
		}
		if _, ok := g.conditions[name]; ok {
			return true
		}
		if _, ok := g.reserves[name]; ok {
			return true
		}
		if _, ok := g.waterfalls[name]; ok {
			return true
		}
		if _, ok := g.cps[name]; ok {
			return true
		}
		if _, ok := g.phases[name]; ok {
			return true
		}
		if _, ok := g.milestones[name]; ok {
			return true
		}
		return false
	}
	for _, s := range prog.Statements {
		amend, ok := s.(*ast.AmendmentStatement)
		if !ok {
			continue
		}
		for _, edit := range amend.Edits {
			switch edit.Op {
			case ast.AmendDelete, ast.AmendReplace, ast.AmendModify:
				if !exists(edit.Target) {
					res.addError(amend.Ident, "amendment", "amendment %q targets absent statement %q", amend.Ident, edit.Target)
				}
			}
		}
	}
}

// checkUnreferencedCovenants warns about covenants no phase ever names.
func checkUnreferencedCovenants(g byKind, res *Result) {
	if len(g.phases) == 0 {
		return
	}
	referenced := map[string]bool{}
	for _, ph := range g.phases {
		for _, n := range ph.CovenantsSuspended {
			referenced[n] = true
		}
		for _, n := range ph.CovenantsActive {
			referenced[n] = true
		}
		for _, n := range ph.CovenantsRequired {
			referenced[n] = true
		}
	}
	for name := range g.covenants {
		if !referenced[name] {
			res.addWarning(name, "phase-gating", "covenant %q is never referenced by any phase", name)
		}
	}
}

// checkBasketsWithoutUsagePath warns about a basket no PROHIBIT/checkProhibition
// path ever guards — detected heuristically as "no SUBJECT TO clause and no
// prohibition references AVAILABLE(basket)".
func checkBasketsWithoutUsagePath(g byKind, res *Result) {
	referenced := map[string]bool{}
	for _, pr := range g.prohibits {
		if pr.Unless == nil {
			continue
		}
		for _, ref := range identRefs(pr.Unless) {
			referenced[ref] = true
		}
	}
	for name, b := range g.baskets {
		if len(b.SubjectTo) > 0 || referenced[name] {
			continue
		}
		res.addWarning(name, "usage", "basket %q has no usage path via SUBJECT TO or a PROHIBIT clause", name)
	}
}
