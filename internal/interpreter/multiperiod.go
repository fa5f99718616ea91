package interpreter

import "sort"

// PeriodCompliance is one period's pass/fail result for every covenant,
// and the overall verdict excluding phase-suspended covenants.
type PeriodCompliance struct {
	Period           string
	PeriodEnd        string
	Covenants        map[string]bool
	OverallCompliant bool
}

// ComplianceHistory evaluates every covenant in every loaded period, in
// chronological order, restoring the interpreter's previously selected
// evaluation period when done.
func (it *Interpreter) ComplianceHistory() ([]PeriodCompliance, error) {
	saved := it.evalPeriod
	defer func() { it.evalPeriod = saved }()

	periods := append([]Period(nil), it.observation.Periods...)
	sort.SliceStable(periods, func(i, j int) bool { return periods[i].PeriodEnd < periods[j].PeriodEnd })

	var out []PeriodCompliance
	for _, p := range periods {
		it.evalPeriod = p.Period
		it.memo = nil

		row := PeriodCompliance{Period: p.Period, PeriodEnd: p.PeriodEnd, Covenants: map[string]bool{}}
		overall := true
		for name := range it.covenants {
			res, err := it.CheckDetailed(name)
			if err != nil {
				return nil, err
			}
			row.Covenants[name] = res.Compliant
			if !res.Suspended && !res.Compliant {
				overall = false
			}
		}
		row.OverallCompliant = overall
		out = append(out, row)
	}
	return out, nil
}

// SimulationResult is the pro-forma effect of a hypothetical set of
// metric overrides: each covenant's would-be compliance and each
// basket's would-be available headroom.
type SimulationResult struct {
	Covenants map[string]bool
	Baskets   map[string]float64
}

// Simulate evaluates every covenant and basket under a hypothetical,
// shallow-merged set of metric overrides without mutating the
// interpreter's actual loaded observation.
func (it *Interpreter) Simulate(changes map[string]float64) (*SimulationResult, error) {
	base := it.observation.currentData(it.evalPeriod)
	merged := make(map[string]float64, len(base)+len(changes))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range changes {
		merged[k] = v
	}

	savedFlat := it.observation.Flat
	savedPeriod := it.evalPeriod
	it.observation.Flat = merged
	it.evalPeriod = ""
	it.memo = nil
	defer func() {
		it.observation.Flat = savedFlat
		it.evalPeriod = savedPeriod
		it.memo = nil
	}()

	out := &SimulationResult{Covenants: map[string]bool{}, Baskets: map[string]float64{}}
	for name := range it.covenants {
		ok, err := it.Check(name)
		if err != nil {
			return nil, err
		}
		out.Covenants[name] = ok
	}
	for name := range it.baskets {
		avail, err := it.basketAvailable(name)
		if err != nil {
			return nil, err
		}
		out.Baskets[name] = avail
	}
	return out, nil
}
