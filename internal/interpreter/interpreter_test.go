package interpreter

import (
	"testing"

	"github.com/wch1125/proviso/internal/lang/ast"
	"github.com/wch1125/proviso/internal/lang/token"
)

func ident(name string) *ast.Ident { return &ast.Ident{Name: name} }

func num(v float64) *ast.NumberLit { return &ast.NumberLit{Value: v} }

func cur(v float64) *ast.CurrencyLit { return &ast.CurrencyLit{Value: v} }

func ratio(v float64) *ast.RatioLit { return &ast.RatioLit{Value: v} }

func lte(left ast.Expression, right ast.Expression) *ast.BinaryExpr {
	return &ast.BinaryExpr{Left: left, Operator: token.LTE, Right: right}
}

func leverageCovenant(threshold float64) *ast.CovenantStatement {
	return &ast.CovenantStatement{
		Ident:     "MaxLeverage",
		Requires:  lte(ident("Leverage"), ratio(threshold)),
		Frequency: ast.Quarterly,
	}
}

func TestCheckDetailed_CompliantWhenWithinThreshold(t *testing.T) {
	prog := &ast.Program{Statements: []ast.Statement{leverageCovenant(4.5)}}
	it := New(prog)
	it.LoadFinancials(&FinancialObservation{Flat: map[string]float64{"Leverage": 4.0}})

	res, err := it.CheckDetailed("MaxLeverage")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Compliant {
		t.Fatalf("expected compliance at Leverage=4.0 under threshold 4.5")
	}
	if res.Headroom != 0.5 {
		t.Fatalf("expected headroom 0.5, got %v", res.Headroom)
	}
}

func TestCheckDetailed_BreachWhenOverThreshold(t *testing.T) {
	prog := &ast.Program{Statements: []ast.Statement{leverageCovenant(4.5)}}
	it := New(prog)
	it.LoadFinancials(&FinancialObservation{Flat: map[string]float64{"Leverage": 5.0}})

	res, err := it.CheckDetailed("MaxLeverage")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Compliant {
		t.Fatalf("expected breach at Leverage=5.0 over threshold 4.5")
	}
}

func TestCheckDetailed_UndefinedCovenant(t *testing.T) {
	it := New(&ast.Program{})
	_, err := it.CheckDetailed("DoesNotExist")
	if err == nil {
		t.Fatalf("expected an error for an undefined covenant")
	}
	if _, ok := err.(*UndefinedIdentifierError); !ok {
		t.Fatalf("expected *UndefinedIdentifierError, got %T", err)
	}
}

func TestCheckDetailed_SuspendedByPhaseIsCompliant(t *testing.T) {
	cov := leverageCovenant(4.5)
	phase := &ast.PhaseStatement{Ident: "Construction", CovenantsSuspended: []string{"MaxLeverage"}}
	prog := &ast.Program{Statements: []ast.Statement{cov, phase}}
	it := New(prog)
	it.LoadFinancials(&FinancialObservation{Flat: map[string]float64{"Leverage": 9.0}})

	res, err := it.CheckDetailed("MaxLeverage")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Suspended || !res.Compliant {
		t.Fatalf("expected a suspended covenant to report compliant, got %+v", res)
	}
}

// equity-cure scenario: a breached covenant with a CURE clause can be
// cured by tendering at least the shortfall, and a second attempt within
// the same window after uses are exhausted fails.
func TestApplyCure_SuccessfulCureThenExhaustedUses(t *testing.T) {
	cov := leverageCovenant(4.5)
	cov.Cure = &ast.CureProvision{MaxUses: 1, OverQtrs: 4}
	cov.MaxAmount = cur(10_000_000)
	prog := &ast.Program{Statements: []ast.Statement{cov}}
	it := New(prog)
	it.LoadFinancials(&FinancialObservation{Flat: map[string]float64{"Leverage": 5.0}})

	ok, err := it.ApplyCure("MaxLeverage", "2026-03-31", 1.0)
	if err != nil {
		t.Fatalf("unexpected error on first cure attempt: %v", err)
	}
	if !ok {
		t.Fatalf("expected first cure attempt (shortfall 0.5, tendered 1.0) to succeed")
	}

	_, err = it.ApplyCure("MaxLeverage", "2026-06-30", 1.0)
	if err == nil {
		t.Fatalf("expected second cure attempt to fail: max uses exhausted")
	}

	hist := it.CureHistory("MaxLeverage")
	if len(hist) != 2 {
		t.Fatalf("expected 2 recorded cure attempts, got %d", len(hist))
	}
	if !hist[0].Successful || hist[1].Successful {
		t.Fatalf("expected first attempt successful and second not, got %+v", hist)
	}
}

func TestApplyCure_InsufficientTenderFails(t *testing.T) {
	cov := leverageCovenant(4.5)
	cov.Cure = &ast.CureProvision{MaxUses: 2}
	prog := &ast.Program{Statements: []ast.Statement{cov}}
	it := New(prog)
	it.LoadFinancials(&FinancialObservation{Flat: map[string]float64{"Leverage": 5.0}})

	ok, err := it.ApplyCure("MaxLeverage", "2026-03-31", 0.1)
	if ok || err == nil {
		t.Fatalf("expected cure to fail when tendered amount is below the shortfall")
	}
}

// a leverage ratio covenant's cure shortfall is measured in the
// denominator's units (additional EBITDA), not the raw gap between the
// ratio and its threshold: TotalDebt=300, EBITDA=40, Leverage=7.5 against
// a 5.00x threshold needs EBITDA of 300/5=60, a shortfall of 20.
func TestCheckWithCure_RatioShortfallIsInDenominatorUnits(t *testing.T) {
	define := &ast.DefineStatement{
		Ident: "Leverage",
		Value: &ast.BinaryExpr{Left: ident("TotalDebt"), Operator: token.SLASH, Right: ident("EBITDA")},
	}
	cov := &ast.CovenantStatement{
		Ident:     "MaxLeverage",
		Requires:  lte(ident("Leverage"), ratio(5.0)),
		Frequency: ast.Quarterly,
		Cure:      &ast.CureProvision{MaxUses: 1, OverQtrs: 4},
	}
	prog := &ast.Program{Statements: []ast.Statement{define, cov}}
	it := New(prog)
	it.LoadFinancials(&FinancialObservation{Flat: map[string]float64{"TotalDebt": 300, "EBITDA": 40}})

	res, cs, err := it.CheckWithCure("MaxLeverage")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Compliant {
		t.Fatalf("expected a breach at Leverage=7.5 against a 5.00x threshold")
	}
	if cs == nil {
		t.Fatalf("expected cure status for a breached covenant with a CURE clause")
	}
	if cs.Shortfall != 20 {
		t.Fatalf("expected a shortfall of 20 (additional EBITDA needed), got %v", cs.Shortfall)
	}
}

// builder-basket accumulation scenario: a builder basket's capacity
// grows as BUILDS_FROM accrues, capped at MAXIMUM, and draws are
// rejected once they would exceed current capacity.
func TestBuilderBasket_AccumulatesAndCapsAtMaximum(t *testing.T) {
	basket := &ast.BasketStatement{
		Ident:      "RPBasket",
		Kind:       ast.BuilderBasket,
		Starting:   cur(5_000_000),
		BuildsFrom: &ast.BinaryExpr{Left: num(0.5), Operator: token.ASTERISK, Right: ident("NetIncome")},
		Maximum:    cur(8_000_000),
	}
	prog := &ast.Program{Statements: []ast.Statement{basket}}
	it := New(prog)
	it.LoadFinancials(&FinancialObservation{Flat: map[string]float64{"NetIncome": 10_000_000}})

	added, err := it.AccumulateFromBuildsFrom("RPBasket", "year-end retained earnings addition")
	if err != nil {
		t.Fatalf("unexpected error accumulating: %v", err)
	}
	if added != 5_000_000 {
		t.Fatalf("expected an accumulation of 5,000,000 (0.5 * 10,000,000), got %v", added)
	}

	cap, used, err := it.BasketCapacity("RPBasket")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cap != 8_000_000 {
		t.Fatalf("expected capacity capped at MAXIMUM 8,000,000 (5M start + 5M accrued), got %v", cap)
	}
	if used != 0 {
		t.Fatalf("expected no usage yet, got %v", used)
	}

	if err := it.Draw("RPBasket", 8_000_001, "oversized distribution"); err == nil {
		t.Fatalf("expected a draw exceeding capacity to fail")
	}
	if err := it.Draw("RPBasket", 8_000_000, "full distribution"); err != nil {
		t.Fatalf("expected a draw at exactly the capacity to succeed, got %v", err)
	}

	hist := it.BasketLedgerHistory("RPBasket")
	if len(hist) != 2 {
		t.Fatalf("expected 2 ledger entries (accumulate + draw), got %d", len(hist))
	}
}

func TestGrowerBasket_UsesGreaterOfCapacityAndFloor(t *testing.T) {
	basket := &ast.BasketStatement{
		Ident:    "GrowerBasket",
		Kind:     ast.GrowerBasket,
		Capacity: &ast.BinaryExpr{Left: num(0.1), Operator: token.ASTERISK, Right: ident("TotalAssets")},
		Floor:    cur(2_000_000),
	}
	prog := &ast.Program{Statements: []ast.Statement{basket}}
	it := New(prog)
	it.LoadFinancials(&FinancialObservation{Flat: map[string]float64{"TotalAssets": 5_000_000}})

	cap, _, err := it.BasketCapacity("GrowerBasket")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cap != 2_000_000 {
		t.Fatalf("expected the floor (2,000,000) to win over 10%% of assets (500,000), got %v", cap)
	}
}

// phase-transition scenario: EvaluateTransitions moves the interpreter
// forward exactly once per satisfied WHEN clause, and ActiveCovenants
// reflects the newly entered phase's suspension list.
func TestPhaseTransition_MovesOnSatisfiedEvent(t *testing.T) {
	cov := leverageCovenant(4.5)
	construction := &ast.PhaseStatement{Ident: "Construction", CovenantsSuspended: []string{"MaxLeverage"}}
	operation := &ast.PhaseStatement{Ident: "Operation"}
	cod := &ast.EventStatement{Ident: "COD"}
	transition := &ast.TransitionStatement{Ident: "ToOperation", From: "Construction", To: "Operation", When: ident("COD")}
	prog := &ast.Program{Statements: []ast.Statement{cov, construction, operation, cod, transition}}

	it := New(prog)
	if it.CurrentPhase() != "Construction" {
		t.Fatalf("expected to start in Construction, got %q", it.CurrentPhase())
	}

	newPhase, err := it.EvaluateTransitions()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if newPhase != "" {
		t.Fatalf("expected no transition before COD fires, got %q", newPhase)
	}

	it.satisfiedEvents["COD"] = true
	newPhase, err = it.EvaluateTransitions()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if newPhase != "Operation" {
		t.Fatalf("expected transition to Operation once COD fires, got %q", newPhase)
	}

	active := it.ActiveCovenants()
	found := false
	for _, c := range active {
		if c == "MaxLeverage" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected MaxLeverage active again once out of Construction, got %v", active)
	}
}

// milestone scenario: a technical milestone's completion fraction tracks
// SetProgress, and crossing the target value marks it achieved and
// satisfies whatever it triggers.
func TestTechnicalMilestone_ProgressAndCompletion(t *testing.T) {
	tm := &ast.TechnicalMilestoneStatement{
		Ident:          "COD_Milestone",
		TargetValue:    num(100),
		ProgressMetric: "MWEnergized",
	}
	prog := &ast.Program{Statements: []ast.Statement{tm}}
	it := New(prog)

	if err := it.SetProgress("COD_Milestone", 40); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	frac, err := it.TechnicalMilestoneCompletion("COD_Milestone")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if frac != 0.4 {
		t.Fatalf("expected completion fraction 0.4, got %v", frac)
	}

	if err := it.SetProgress("COD_Milestone", 100); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !it.satisfiedEvents["COD_Milestone"] {
		t.Fatalf("expected reaching target value to mark the milestone satisfied")
	}
}

func TestMilestoneState_PendingAtRiskBreached(t *testing.T) {
	m := &ast.MilestoneStatement{Ident: "NTP", Target: "2026-06-30", Longstop: "2026-12-31"}
	prog := &ast.Program{Statements: []ast.Statement{m}}
	it := New(prog)

	it.SetAsOfDate("2026-03-01")
	st, err := it.MilestoneState("NTP")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st != MilestonePending {
		t.Fatalf("expected pending before target date, got %v", st)
	}

	it.SetAsOfDate("2026-09-01")
	st, err = it.MilestoneState("NTP")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st != MilestoneAtRisk {
		t.Fatalf("expected at_risk between target and longstop, got %v", st)
	}

	it.SetAsOfDate("2027-01-01")
	st, err = it.MilestoneState("NTP")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st != MilestoneBreached {
		t.Fatalf("expected breached past longstop, got %v", st)
	}

	if err := it.MarkAchieved("NTP", "2026-05-01"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	st, err = it.MilestoneState("NTP")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st != MilestoneAchieved {
		t.Fatalf("expected achieved once MarkAchieved is recorded, got %v", st)
	}
}

// reserve + waterfall scenario: a waterfall with a shortfall draws from
// a named reserve to make up the gap, and the reserve balance reflects
// both the waterfall's earlier funding tier and the shortfall draw.
func TestRunWaterfall_ShortfallDrawsFromReserve(t *testing.T) {
	reserve := &ast.ReserveStatement{Ident: "DSRA", Target: cur(1_000_000), Minimum: cur(0)}
	waterfall := &ast.WaterfallStatement{
		Ident: "Cashflow",
		Tiers: []ast.WaterfallTier{
			{Rank: 1, Pay: "DSRA", Amount: cur(200_000)},
			{Rank: 2, Pay: "DebtService", Amount: cur(900_000), Shortfall: "DSRA"},
		},
	}
	prog := &ast.Program{Statements: []ast.Statement{reserve, waterfall}}
	it := New(prog)

	if err := it.Fund("DSRA", 500_000); err != nil {
		t.Fatalf("unexpected error pre-funding the reserve: %v", err)
	}

	results, err := it.RunWaterfall("Cashflow", 1_000_000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 tier results, got %d", len(results))
	}

	tier1 := results[0]
	if tier1.Paid != 200_000 {
		t.Fatalf("expected tier 1 to fund the reserve 200,000, got %v", tier1.Paid)
	}

	tier2 := results[1]
	// revenue remainder after tier 1 is 800,000; tier 2 requests 900,000,
	// leaving a 100,000 shortfall the reserve (700,000 available) covers.
	if tier2.Paid != 900_000 {
		t.Fatalf("expected tier 2 fully paid via remainder + shortfall draw, got %v", tier2.Paid)
	}
	if tier2.ShortfallDrawn != 100_000 {
		t.Fatalf("expected a 100,000 shortfall draw from the reserve, got %v", tier2.ShortfallDrawn)
	}

	bal, err := it.ReserveBalance("DSRA")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 500,000 pre-funded + 200,000 tier-1 funding - 100,000 shortfall draw
	if bal != 600_000 {
		t.Fatalf("expected DSRA balance 600,000, got %v", bal)
	}
}

// a FROM Revenue tier (e.g. opex paid off the top) still reduces what's
// left in the shared pool for the REMAINDER tiers ranked below it.
func TestRunWaterfall_FromRevenueTierReducesRemainder(t *testing.T) {
	reserve := &ast.ReserveStatement{Ident: "DSRA", Target: cur(5_000_000), Minimum: cur(0)}
	waterfall := &ast.WaterfallStatement{
		Ident: "Cashflow",
		Tiers: []ast.WaterfallTier{
			{Rank: 1, Pay: "Opex", Amount: cur(4_000_000), From: "Revenue"},
			{Rank: 2, Pay: "DebtService", Amount: cur(8_000_000), Shortfall: "DSRA"},
		},
	}
	prog := &ast.Program{Statements: []ast.Statement{reserve, waterfall}}
	it := New(prog)

	if err := it.Fund("DSRA", 5_000_000); err != nil {
		t.Fatalf("unexpected error pre-funding the reserve: %v", err)
	}

	results, err := it.RunWaterfall("Cashflow", 10_000_000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	opex := results[0]
	if opex.Paid != 4_000_000 {
		t.Fatalf("expected opex tier paid 4,000,000, got %v", opex.Paid)
	}

	debtService := results[1]
	// remainder after opex is 6,000,000; debt service requests 8,000,000,
	// paid in full via 6,000,000 of remainder plus a 2,000,000 reserve draw.
	if debtService.Paid != 8_000_000 {
		t.Fatalf("expected debt service paid in full (remainder + shortfall draw), got %v", debtService.Paid)
	}
	if debtService.ShortfallDrawn != 2_000_000 {
		t.Fatalf("expected a 2,000,000 shortfall draw, got %v", debtService.ShortfallDrawn)
	}

	bal, err := it.ReserveBalance("DSRA")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if bal != 3_000_000 {
		t.Fatalf("expected DSRA balance 3,000,000 after the shortfall draw, got %v", bal)
	}
}

// conditions-precedent scenario: a draw is not allowed until every item
// is satisfied or waived, and satisfying one item propagates to
// whatever it SATISFIES.
func TestConditionsPrecedent_DrawGatedOnOutstandingItems(t *testing.T) {
	cp := &ast.ConditionsPrecedentStatement{
		Ident: "ClosingChecklist",
		Items: []ast.CPItem{
			{Ident: "Insurance", Satisfies: []string{"InsuranceSatisfied"}},
			{Ident: "TitleOpinion"},
		},
	}
	prog := &ast.Program{Statements: []ast.Statement{cp}}
	it := New(prog)

	allowed, err := it.IsDrawAllowed("ClosingChecklist")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if allowed {
		t.Fatalf("expected draw disallowed with outstanding items")
	}

	if err := it.SatisfyItem("ClosingChecklist", "Insurance"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !it.satisfiedEvents["InsuranceSatisfied"] {
		t.Fatalf("expected satisfying Insurance to propagate to InsuranceSatisfied")
	}

	outstanding, err := it.OutstandingItems("ClosingChecklist")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(outstanding) != 1 || outstanding[0] != "TitleOpinion" {
		t.Fatalf("expected only TitleOpinion outstanding, got %v", outstanding)
	}

	if err := it.WaiveItem("ClosingChecklist", "TitleOpinion"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	allowed, err = it.IsDrawAllowed("ClosingChecklist")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !allowed {
		t.Fatalf("expected draw allowed once all items satisfied or waived")
	}
}

// multi-period compliance-history scenario: three quarters, one of
// which breaches, are evaluated in chronological order and the
// interpreter's selected period is restored afterward.
func TestComplianceHistory_ThreePeriodsWithOneBreach(t *testing.T) {
	cov := leverageCovenant(4.5)
	prog := &ast.Program{Statements: []ast.Statement{cov}}
	it := New(prog)
	it.LoadFinancials(&FinancialObservation{
		Periods: []Period{
			{Period: "2026Q1", PeriodEnd: "2026-03-31", Data: map[string]float64{"Leverage": 4.0}},
			{Period: "2026Q2", PeriodEnd: "2026-06-30", Data: map[string]float64{"Leverage": 5.0}},
			{Period: "2026Q3", PeriodEnd: "2026-09-30", Data: map[string]float64{"Leverage": 4.2}},
		},
	})
	it.SetEvaluationPeriod("2026Q2")

	hist, err := it.ComplianceHistory()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hist) != 3 {
		t.Fatalf("expected 3 periods of history, got %d", len(hist))
	}
	if !hist[0].OverallCompliant || hist[1].OverallCompliant || !hist[2].OverallCompliant {
		t.Fatalf("expected compliant, breach, compliant across the 3 quarters, got %+v", hist)
	}

	res, err := it.CheckDetailed("MaxLeverage")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Actual != 5.0 {
		t.Fatalf("expected the selected period 2026Q2 (Leverage=5.0) restored after ComplianceHistory, got %v", res.Actual)
	}
}

func TestSimulate_DoesNotMutateLoadedObservation(t *testing.T) {
	cov := leverageCovenant(4.5)
	basket := &ast.BasketStatement{Ident: "GeneralBasket", Kind: ast.FixedBasket, Capacity: cur(10_000_000)}
	prog := &ast.Program{Statements: []ast.Statement{cov, basket}}
	it := New(prog)
	it.LoadFinancials(&FinancialObservation{Flat: map[string]float64{"Leverage": 5.0}})

	sim, err := it.Simulate(map[string]float64{"Leverage": 3.0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !sim.Covenants["MaxLeverage"] {
		t.Fatalf("expected the simulated leverage of 3.0 to be compliant")
	}

	res, err := it.CheckDetailed("MaxLeverage")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Compliant {
		t.Fatalf("expected the interpreter's real observation (Leverage=5.0) to remain breached after Simulate")
	}
}

// amendment scenario: applying an amendment that MODIFYs a covenant's
// REQUIRES threshold changes subsequent checks, and is reflected in
// AppliedAmendments.
func TestApplyAmendment_ModifiesCovenantThreshold(t *testing.T) {
	cov := leverageCovenant(4.5)
	amd := &ast.AmendmentStatement{
		Ident:     "FirstAmendment",
		Effective: "2026-06-01",
		Edits: []ast.AmendmentEdit{
			{Op: ast.AmendModify, Target: "MaxLeverage", Field: "REQUIRES", NewValue: lte(ident("Leverage"), ratio(5.0))},
		},
	}
	prog := &ast.Program{Statements: []ast.Statement{cov, amd}}
	it := New(prog)
	it.LoadFinancials(&FinancialObservation{Flat: map[string]float64{"Leverage": 4.8}})

	before, err := it.CheckDetailed("MaxLeverage")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if before.Compliant {
		t.Fatalf("expected breach at 4.8 under the original 4.5x threshold")
	}

	if err := it.ApplyAmendment("FirstAmendment"); err != nil {
		t.Fatalf("unexpected error applying amendment: %v", err)
	}

	after, err := it.CheckDetailed("MaxLeverage")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !after.Compliant {
		t.Fatalf("expected compliance at 4.8 under the amended 5.0x threshold")
	}

	applied := it.AppliedAmendments()
	if len(applied) != 1 || applied[0].Ident != "FirstAmendment" {
		t.Fatalf("expected FirstAmendment recorded as applied, got %v", applied)
	}
}

func TestApplyAmendment_MissingTargetFails(t *testing.T) {
	amd := &ast.AmendmentStatement{
		Ident: "BadAmendment",
		Edits: []ast.AmendmentEdit{
			{Op: ast.AmendModify, Target: "NoSuchCovenant", Field: "REQUIRES", NewValue: num(1)},
		},
	}
	prog := &ast.Program{Statements: []ast.Statement{amd}}
	it := New(prog)

	err := it.ApplyAmendment("BadAmendment")
	if err == nil {
		t.Fatalf("expected an error targeting a missing statement")
	}
	if _, ok := err.(*AmendmentTargetMissingError); !ok {
		t.Fatalf("expected *AmendmentTargetMissingError, got %T", err)
	}
}

func TestEvaluate_CyclicDefineIsDetected(t *testing.T) {
	a := &ast.DefineStatement{Ident: "A", Value: ident("B")}
	b := &ast.DefineStatement{Ident: "B", Value: ident("A")}
	prog := &ast.Program{Statements: []ast.Statement{a, b}}
	it := New(prog)

	_, err := it.evaluate(ident("A"))
	if err == nil {
		t.Fatalf("expected a cycle-detected error")
	}
	if _, ok := err.(*CycleDetectedError); !ok {
		t.Fatalf("expected *CycleDetectedError, got %T", err)
	}
}

func TestDraw_UndefinedBasketFails(t *testing.T) {
	it := New(&ast.Program{})
	err := it.Draw("NoSuchBasket", 1, "test")
	if err == nil {
		t.Fatalf("expected an error for an undefined basket")
	}
	if _, ok := err.(*UndefinedIdentifierError); !ok {
		t.Fatalf("expected *UndefinedIdentifierError, got %T", err)
	}
}

func TestReserve_ReleaseRespectsReleasedForGate(t *testing.T) {
	reserve := &ast.ReserveStatement{
		Ident:       "MRA",
		Target:      cur(500_000),
		ReleasedFor: ident("MaintenanceApproved"),
	}
	event := &ast.EventStatement{Ident: "MaintenanceApproved"}
	prog := &ast.Program{Statements: []ast.Statement{reserve, event}}
	it := New(prog)
	if err := it.Fund("MRA", 100_000); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err := it.Release("MRA", 50_000)
	if err == nil {
		t.Fatalf("expected release to fail when RELEASED_FOR condition is false")
	}

	it.satisfiedEvents["MaintenanceApproved"] = true
	if err := it.Release("MRA", 50_000); err != nil {
		t.Fatalf("expected release to succeed once the condition is satisfied, got %v", err)
	}
}

// a basket's SUBJECT TO conditions gate draws: a draw is denied while any
// attached condition is false, and permitted once all of them hold.
func TestDraw_DeniedWhileSubjectToConditionFails(t *testing.T) {
	cond := &ast.ConditionStatement{
		Ident: "NoDefaultExists",
		Value: lte(ident("DefaultFlag"), num(0)),
	}
	basket := &ast.BasketStatement{
		Ident:     "RPBasket",
		Kind:      ast.FixedBasket,
		Capacity:  cur(1_000_000),
		SubjectTo: []string{"NoDefaultExists"},
	}
	prog := &ast.Program{Statements: []ast.Statement{cond, basket}}
	it := New(prog)
	it.LoadFinancials(&FinancialObservation{Flat: map[string]float64{"DefaultFlag": 1}})

	satisfied, err := it.BasketConditionsSatisfied("RPBasket")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if satisfied {
		t.Fatalf("expected SUBJECT TO condition to fail while DefaultFlag=1")
	}

	err = it.Draw("RPBasket", 100_000, "distribution")
	if err == nil {
		t.Fatalf("expected draw to be denied while the SUBJECT TO condition fails")
	}
	if _, ok := err.(*ConditionNotSatisfiedError); !ok {
		t.Fatalf("expected *ConditionNotSatisfiedError, got %T", err)
	}

	it.LoadFinancials(&FinancialObservation{Flat: map[string]float64{"DefaultFlag": 0}})
	if err := it.Draw("RPBasket", 100_000, "distribution"); err != nil {
		t.Fatalf("expected draw to succeed once the condition holds, got %v", err)
	}
}

// a raw observation key no longer shadows a DEFINE of the same name:
// DEFINE resolution takes precedence over the current financial data, per
// the documented identifier resolution order.
func TestResolveIdent_DefineTakesPrecedenceOverRawObservationKey(t *testing.T) {
	define := &ast.DefineStatement{Ident: "Leverage", Value: num(1.5)}
	prog := &ast.Program{Statements: []ast.Statement{define}}
	it := New(prog)
	it.LoadFinancials(&FinancialObservation{Flat: map[string]float64{"Leverage": 9.0}})

	v, err := it.evaluate(ident("Leverage"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 1.5 {
		t.Fatalf("expected the DEFINE binding (1.5) to take precedence over the raw observation key (9.0), got %v", v)
	}
}

// TRAILING evaluates a full compound expression per period, not just a
// bare metric identifier: TRAILING 2 QUARTERS OF (Revenue - COGS) sums
// the per-period gross profit across the last two loaded periods.
func TestTrailing_EvaluatesCompoundExpressionPerPeriod(t *testing.T) {
	prog := &ast.Program{}
	it := New(prog)
	it.LoadFinancials(&FinancialObservation{
		Periods: []Period{
			{Period: "2025Q3", Data: map[string]float64{"Revenue": 100, "COGS": 40}},
			{Period: "2025Q4", Data: map[string]float64{"Revenue": 120, "COGS": 50}},
			{Period: "2026Q1", Data: map[string]float64{"Revenue": 130, "COGS": 55}},
		},
	})
	it.SetEvaluationPeriod("2026Q1")

	expr := &ast.CallExpr{
		Function: "TRAILING",
		Args: []ast.Expression{
			num(2),
			ident("QUARTERS"),
			&ast.BinaryExpr{Left: ident("Revenue"), Operator: token.MINUS, Right: ident("COGS")},
		},
	}
	v, err := it.evaluate(expr)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// (120-50) + (130-55) = 70 + 75 = 145
	if v != 145 {
		t.Fatalf("expected trailing gross profit 145, got %v", v)
	}
}
