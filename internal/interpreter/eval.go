package interpreter

import (
	"math"
	"strings"

	"github.com/wch1125/proviso/internal/lang/ast"
	"github.com/wch1125/proviso/internal/lang/exprfmt"
)

// evaluate resolves an expression against the current observation and
// DEFINE table. Identifier resolution order is: DEFINE bindings, then
// flat/period metric data, then runtime state (reserves, baskets,
// events, milestones).
func (it *Interpreter) evaluate(expr ast.Expression) (float64, error) {
	it.memo = map[string]float64{}
	return it.evalExpr(expr, map[string]bool{})
}

func (it *Interpreter) evalBool(expr ast.Expression) (bool, error) {
	it.memo = map[string]float64{}
	v, err := it.evalExpr(expr, map[string]bool{})
	if err != nil {
		return false, err
	}
	return v != 0, nil
}

func (it *Interpreter) evalExpr(expr ast.Expression, inFlight map[string]bool) (float64, error) {
	switch e := expr.(type) {
	case *ast.NumberLit:
		return e.Value, nil
	case *ast.CurrencyLit:
		return e.Value, nil
	case *ast.PercentLit:
		return e.Value, nil
	case *ast.RatioLit:
		return e.Value, nil
	case *ast.BpsLit:
		return e.Value, nil
	case *ast.StringLit:
		return 0, nil
	case *ast.DateLit:
		return 0, nil
	case *ast.Ident:
		return it.resolveIdent(e.Name, inFlight)
	case *ast.UnaryExpr:
		v, err := it.evalExpr(e.Operand, inFlight)
		if err != nil {
			return 0, err
		}
		switch e.Operator.String() {
		case "-":
			return -v, nil
		case "NOT":
			if v == 0 {
				return 1, nil
			}
			return 0, nil
		}
		return v, nil
	case *ast.BinaryExpr:
		return it.evalBinary(e, inFlight)
	case *ast.CallExpr:
		return it.evalCall(e, inFlight)
	}
	return 0, &InvariantViolationError{Message: "unhandled expression node"}
}

func (it *Interpreter) resolveIdent(name string, inFlight map[string]bool) (float64, error) {
	if def, ok := it.defines[name]; ok {
		if v, ok := it.memo[name]; ok {
			return v, nil
		}
		if inFlight[name] {
			return 0, &CycleDetectedError{Name: name}
		}
		inFlight[name] = true
		v, err := it.evalExpr(def.Value, inFlight)
		delete(inFlight, name)
		if err != nil {
			return 0, err
		}
		if def.CappedAt != nil {
			cap, cerr := it.evalExpr(def.CappedAt, inFlight)
			if cerr == nil && v > cap {
				v = cap
			}
		}
		it.memo[name] = v
		return v, nil
	}
	data := it.observation.currentData(it.evalPeriod)
	if data != nil {
		if v, ok := data[name]; ok {
			return v, nil
		}
	}
	if v, ok := it.reserveBalances[name]; ok {
		return v, nil
	}
	if cap, ok := it.basketCapacityName(name); ok {
		return cap, nil
	}
	if it.satisfiedEvents[name] {
		return 1, nil
	}
	if _, isEvent := it.events[name]; isEvent {
		return 0, nil
	}
	if _, isMilestone := it.milestones[name]; isMilestone {
		return 0, nil
	}
	return 0, &UndefinedIdentifierError{Name: name}
}

func (it *Interpreter) basketCapacityName(name string) (float64, bool) {
	if _, ok := it.baskets[name]; !ok {
		return 0, false
	}
	cap, _, err := it.basketCapacity(name)
	if err != nil {
		return 0, false
	}
	return cap, true
}

func (it *Interpreter) evalBinary(e *ast.BinaryExpr, inFlight map[string]bool) (float64, error) {
	op := e.Operator.String()
	switch op {
	case "AND":
		l, err := it.evalExpr(e.Left, inFlight)
		if err != nil {
			return 0, err
		}
		if l == 0 {
			return 0, nil
		}
		r, err := it.evalExpr(e.Right, inFlight)
		if err != nil {
			return 0, err
		}
		if r != 0 {
			return 1, nil
		}
		return 0, nil
	case "OR":
		l, err := it.evalExpr(e.Left, inFlight)
		if err != nil {
			return 0, err
		}
		if l != 0 {
			return 1, nil
		}
		r, err := it.evalExpr(e.Right, inFlight)
		if err != nil {
			return 0, err
		}
		if r != 0 {
			return 1, nil
		}
		return 0, nil
	}

	l, err := it.evalExpr(e.Left, inFlight)
	if err != nil {
		return 0, err
	}
	r, err := it.evalExpr(e.Right, inFlight)
	if err != nil {
		return 0, err
	}

	switch op {
	case "+":
		return l + r, nil
	case "-":
		return l - r, nil
	case "*":
		lv, rv := l, r
		if isPercentExpr(e.Left) {
			lv = l / 100
		}
		if isPercentExpr(e.Right) {
			rv = r / 100
		}
		return lv * rv, nil
	case "/":
		if r == 0 {
			if l > 0 {
				return math.Inf(1), nil
			}
			if l < 0 {
				return math.Inf(-1), nil
			}
			return math.NaN(), nil
		}
		return l / r, nil
	case "=":
		return boolf(l == r), nil
	case "!=":
		return boolf(l != r), nil
	case "<":
		return boolf(l < r), nil
	case ">":
		return boolf(l > r), nil
	case "<=":
		return boolf(l <= r), nil
	case ">=":
		return boolf(l >= r), nil
	}
	return 0, &InvariantViolationError{Message: "unknown operator " + op}
}

func isPercentExpr(e ast.Expression) bool {
	_, ok := e.(*ast.PercentLit)
	return ok
}

func boolf(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func (it *Interpreter) evalCall(e *ast.CallExpr, inFlight map[string]bool) (float64, error) {
	name := strings.ToUpper(e.Function)
	switch name {
	case "GREATEROF":
		best := math.Inf(-1)
		for _, a := range e.Args {
			v, err := it.evalExpr(a, inFlight)
			if err != nil {
				return 0, err
			}
			if v > best {
				best = v
			}
		}
		return best, nil
	case "LESSEROF":
		best := math.Inf(1)
		for _, a := range e.Args {
			v, err := it.evalExpr(a, inFlight)
			if err != nil {
				return 0, err
			}
			if v < best {
				best = v
			}
		}
		return best, nil
	case "AVERAGE":
		sum := 0.0
		for _, a := range e.Args {
			v, err := it.evalExpr(a, inFlight)
			if err != nil {
				return 0, err
			}
			sum += v
		}
		if len(e.Args) == 0 {
			return 0, nil
		}
		return sum / float64(len(e.Args)), nil
	case "SUM":
		sum := 0.0
		for _, a := range e.Args {
			v, err := it.evalExpr(a, inFlight)
			if err != nil {
				return 0, err
			}
			sum += v
		}
		return sum, nil
	case "AVAILABLE":
		if len(e.Args) != 1 {
			return 0, &InvariantViolationError{Message: "AVAILABLE takes one basket argument"}
		}
		bid, ok := e.Args[0].(*ast.Ident)
		if !ok {
			return 0, &InvariantViolationError{Message: "AVAILABLE argument must be a basket name"}
		}
		return it.basketAvailable(bid.Name)
	case "COMPLIANT":
		if len(e.Args) != 1 {
			return 0, &InvariantViolationError{Message: "COMPLIANT takes one covenant argument"}
		}
		cid, ok := e.Args[0].(*ast.Ident)
		if !ok {
			return 0, &InvariantViolationError{Message: "COMPLIANT argument must be a covenant name"}
		}
		ok2, err := it.Check(cid.Name)
		if err != nil {
			return 0, err
		}
		return boolf(ok2), nil
	case "EXISTS":
		if len(e.Args) != 1 {
			return 0, &InvariantViolationError{Message: "EXISTS takes one event/milestone argument"}
		}
		eid, ok := e.Args[0].(*ast.Ident)
		if !ok {
			return 0, &InvariantViolationError{Message: "EXISTS argument must be an identifier"}
		}
		return boolf(it.satisfiedEvents[eid.Name]), nil
	case "ALL_OF":
		for _, a := range e.Args {
			v, err := it.evalExpr(a, inFlight)
			if err != nil {
				return 0, err
			}
			if v == 0 {
				return 0, nil
			}
		}
		return 1, nil
	case "ANY_OF":
		for _, a := range e.Args {
			v, err := it.evalExpr(a, inFlight)
			if err != nil {
				return 0, err
			}
			if v != 0 {
				return 1, nil
			}
		}
		return 0, nil
	case "TRAILING":
		return it.evalTrailing(e, inFlight)
	}
	return 0, &InvariantViolationError{Message: "unknown function " + e.Function}
}

// evalTrailing handles TRAILING n {QUARTERS|MONTHS|YEARS} OF expr: expr is
// evaluated against each of the last n periods ending at the current
// evaluation period, and the per-period results are summed. expr may be
// any expression, not just a bare metric identifier; each period's
// evaluation sees that period's data via it.evalPeriod and a cleared
// DEFINE memo, the same isolation ComplianceHistory uses between periods.
func (it *Interpreter) evalTrailing(e *ast.CallExpr, inFlight map[string]bool) (float64, error) {
	if len(e.Args) < 2 {
		return 0, &InvariantViolationError{Message: "TRAILING requires a window and a metric"}
	}
	n, err := it.evalExpr(e.Args[0], inFlight)
	if err != nil {
		return 0, err
	}
	window := int(n)
	subExpr := e.Args[len(e.Args)-1]
	label := exprfmt.Render(subExpr)

	if mid, ok := subExpr.(*ast.Ident); ok && it.observation.Trailing != nil {
		if m, ok := it.observation.Trailing[mid.Name]; ok {
			if v, ok := m[trailingKey(window)]; ok {
				return v, nil
			}
		}
	}

	if !it.observation.IsMultiPeriod() {
		return 0, &MissingPeriodError{Window: window, Metric: label}
	}
	idx := it.observation.periodIndex(it.evalPeriod)
	if idx < 0 {
		idx = len(it.observation.Periods) - 1
	}
	start := idx - window + 1
	if start < 0 {
		return 0, &MissingPeriodError{Window: window, Metric: label}
	}

	savedPeriod := it.evalPeriod
	savedMemo := it.memo
	defer func() {
		it.evalPeriod = savedPeriod
		it.memo = savedMemo
	}()

	sum := 0.0
	for i := start; i <= idx; i++ {
		it.evalPeriod = it.observation.Periods[i].Period
		it.memo = map[string]float64{}
		v, err := it.evalExpr(subExpr, map[string]bool{})
		if err != nil {
			if _, ok := err.(*UndefinedIdentifierError); ok {
				return 0, &MissingPeriodError{Window: window, Metric: label}
			}
			return 0, err
		}
		sum += v
	}
	return sum, nil
}

func trailingKey(window int) string {
	switch window {
	case 4:
		return "ttm"
	default:
		return ""
	}
}
