package interpreter

import (
	"math"

	"github.com/wch1125/proviso/internal/lang/ast"
)

// CovenantCheckResult is the structured outcome of checking one
// covenant for the current evaluation period.
type CovenantCheckResult struct {
	Name              string
	Actual            float64
	Threshold         float64
	Operator          string
	Compliant         bool
	Suspended         bool
	Headroom          float64
	OriginalThreshold float64
	ActiveStep        *ast.StepDown
	NextStep          *ast.StepDown
}

// Check evaluates a covenant's REQUIRES expression for the current
// period, honouring any step-down schedule and phase suspension. A
// covenant suspended by the current phase is treated as compliant.
func (it *Interpreter) Check(name string) (bool, error) {
	res, err := it.CheckDetailed(name)
	if err != nil {
		return false, err
	}
	return res.Compliant, nil
}

// CheckDetailed evaluates a covenant and returns the full result shape:
// actual value, effective threshold, operator, compliance, headroom, and
// the active/next step-down entries, if any.
func (it *Interpreter) CheckDetailed(name string) (*CovenantCheckResult, error) {
	cov, ok := it.covenants[name]
	if !ok {
		return nil, &UndefinedIdentifierError{Name: name}
	}
	res := &CovenantCheckResult{Name: name}

	if it.isSuspended(name) {
		res.Compliant = true
		res.Suspended = true
		return res, nil
	}

	req := it.effectiveRequires(cov)
	bin, isBin := req.(*ast.BinaryExpr)
	if !isBin {
		ok2, err := it.evalBool(req)
		if err != nil {
			return nil, err
		}
		res.Compliant = ok2
		return res, nil
	}

	actual, err := it.evaluate(bin.Left)
	if err != nil {
		return nil, err
	}
	threshold, err := it.evaluate(bin.Right)
	if err != nil {
		return nil, err
	}
	res.Actual = actual
	res.Threshold = threshold
	res.Operator = bin.Operator.String()

	if origBin, ok := cov.Requires.(*ast.BinaryExpr); ok {
		if origThresh, err := it.evaluate(origBin.Right); err == nil {
			res.OriginalThreshold = origThresh
		}
	}
	res.ActiveStep, res.NextStep = it.activeAndNextStep(cov)

	if math.IsNaN(actual) || math.IsInf(actual, 0) {
		res.Compliant = false
		return res, nil
	}

	switch res.Operator {
	case "<=":
		res.Compliant = actual <= threshold
		res.Headroom = threshold - actual
	case ">=":
		res.Compliant = actual >= threshold
		res.Headroom = actual - threshold
	case "<":
		res.Compliant = actual < threshold
		res.Headroom = threshold - actual
	case ">":
		res.Compliant = actual > threshold
		res.Headroom = actual - threshold
	case "=":
		res.Compliant = actual == threshold
	case "!=":
		res.Compliant = actual != threshold
	default:
		res.Compliant = actual != 0
	}
	return res, nil
}

func (it *Interpreter) activeAndNextStep(cov *ast.CovenantStatement) (*ast.StepDown, *ast.StepDown) {
	if len(cov.StepDowns) == 0 {
		return nil, nil
	}
	periodEnd := it.currentPeriodEnd()
	var active, next *ast.StepDown
	for i := range cov.StepDowns {
		sd := &cov.StepDowns[i]
		if periodEnd != "" && sd.EffectiveDate <= periodEnd {
			if active == nil || sd.EffectiveDate > active.EffectiveDate {
				active = sd
			}
		} else if next == nil || sd.EffectiveDate < next.EffectiveDate {
			next = sd
		}
	}
	return active, next
}

// effectiveRequires substitutes the active step-down threshold, if any,
// by rewriting the comparison's right-hand operand when a step-down's
// effective date has passed. Thresholds are compared textually against
// the loaded period's end date ("" observations never step down).
func (it *Interpreter) effectiveRequires(cov *ast.CovenantStatement) ast.Expression {
	if len(cov.StepDowns) == 0 {
		return cov.Requires
	}
	periodEnd := it.currentPeriodEnd()
	if periodEnd == "" {
		return cov.Requires
	}
	active, _ := it.activeAndNextStep(cov)
	if active == nil {
		return cov.Requires
	}
	bin, ok := cov.Requires.(*ast.BinaryExpr)
	if !ok {
		return cov.Requires
	}
	rewritten := *bin
	rewritten.Right = active.Threshold
	return &rewritten
}

func (it *Interpreter) currentPeriodEnd() string {
	if p := it.observation.periodByKey(it.evalPeriod); p != nil {
		return p.PeriodEnd
	}
	return ""
}

func (it *Interpreter) isSuspended(covenant string) bool {
	for _, ph := range it.phases {
		if ph.Ident != it.currentPhase {
			continue
		}
		for _, s := range ph.CovenantsSuspended {
			if s == covenant {
				return true
			}
		}
	}
	return false
}

// CureStatus is the cure-extension result for a breached covenant.
type CureStatus struct {
	CureAvailable bool
	Shortfall     float64
	Mechanism     string
	UsesRemaining int
}

// CheckWithCure evaluates a covenant and, if it is breached and carries a
// CURE clause, reports the shortfall needed to cure it, whether a cure
// is still available (uses remain and the shortfall is within
// MAX_AMOUNT), and the mechanism description.
func (it *Interpreter) CheckWithCure(name string) (*CovenantCheckResult, *CureStatus, error) {
	res, err := it.CheckDetailed(name)
	if err != nil {
		return nil, nil, err
	}
	cov := it.covenants[name]
	if res.Compliant || cov.Cure == nil {
		return res, nil, nil
	}

	uses := 0
	for _, a := range it.cureLedgers[name] {
		if a.Successful {
			uses++
		}
	}
	remaining := cov.Cure.MaxUses - uses

	shortfall := it.cureShortfall(cov, res)

	cs := &CureStatus{Mechanism: "equity_cure", Shortfall: shortfall, UsesRemaining: remaining}
	maxAmount := math.Inf(1)
	if cov.MaxAmount != nil {
		if v, err := it.evaluate(cov.MaxAmount); err == nil {
			maxAmount = v
		}
	}
	cs.CureAvailable = remaining > 0 && shortfall <= maxAmount
	return res, cs, nil
}

// resolveDivision follows a bare-metric expression through DEFINE
// bindings looking for a division: a leverage-style covenant's actual
// side is usually an Ident bound by DEFINE to Numerator/Denominator, not
// a literal division expression itself.
func (it *Interpreter) resolveDivision(e ast.Expression) (*ast.BinaryExpr, bool) {
	visited := map[string]bool{}
	for {
		switch v := e.(type) {
		case *ast.BinaryExpr:
			if v.Operator.String() == "/" {
				return v, true
			}
			return nil, false
		case *ast.Ident:
			if visited[v.Name] {
				return nil, false
			}
			visited[v.Name] = true
			def, ok := it.defines[v.Name]
			if !ok {
				return nil, false
			}
			e = def.Value
		default:
			return nil, false
		}
	}
}

// cureShortfall computes the additional quantity needed to bring a
// breached covenant's actual value to its threshold (spec's "additional
// EBITDA or payment needed to make the covenant just compliant"), not
// the raw gap between actual and threshold in the ratio's own units. For
// a ratio covenant (actual resolves to Numerator/Denominator), the
// shortfall is solved holding the other side fixed: in the denominator's
// units for a maximum-type (<, <=) covenant, and in the numerator's units
// for a minimum-type (>, >=) one; for any other shape it falls back to
// the absolute headroom.
func (it *Interpreter) cureShortfall(cov *ast.CovenantStatement, res *CovenantCheckResult) float64 {
	fallback := math.Abs(res.Headroom)

	req := it.effectiveRequires(cov)
	bin, ok := req.(*ast.BinaryExpr)
	if !ok || res.Threshold == 0 {
		return fallback
	}
	div, ok := it.resolveDivision(bin.Left)
	if !ok {
		return fallback
	}
	numerator, err := it.evaluate(div.Left)
	if err != nil {
		return fallback
	}
	denominator, err := it.evaluate(div.Right)
	if err != nil {
		return fallback
	}

	switch res.Operator {
	case "<=", "<":
		return numerator/res.Threshold - denominator
	case ">=", ">":
		return res.Threshold*denominator - numerator
	default:
		return fallback
	}
}

// ApplyCure records a cure attempt against a breached covenant's cure
// provision. It is successful iff the tendered amount is at least the
// shortfall and cure uses remain in the window; the attempt is recorded
// append-only either way.
func (it *Interpreter) ApplyCure(name string, date string, amount float64) (bool, error) {
	_, cs, err := it.CheckWithCure(name)
	if err != nil {
		return false, err
	}
	if cs == nil {
		return false, &CureUnavailableError{Reason: "covenant is compliant or has no CURE clause"}
	}
	successful := cs.UsesRemaining > 0 && amount >= cs.Shortfall
	it.cureLedgers[name] = append(it.cureLedgers[name], CureAttempt{
		ID: newEntryID(), Date: date, Mechanism: cs.Mechanism, Amount: amount, Successful: successful,
	})
	if !successful {
		if cs.UsesRemaining <= 0 {
			return false, &CureUnavailableError{Reason: "maximum cure uses exhausted"}
		}
		return false, &CureUnavailableError{Reason: "tendered amount insufficient to cover shortfall"}
	}
	return true, nil
}

// CureHistory returns the covenant's append-only cure ledger.
func (it *Interpreter) CureHistory(name string) []CureAttempt {
	return append([]CureAttempt(nil), it.cureLedgers[name]...)
}
