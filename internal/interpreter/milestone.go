package interpreter

// MilestoneStatus is the derived state of a dated milestone.
type MilestoneStatus string

const (
	MilestoneAchieved MilestoneStatus = "achieved"
	MilestonePending  MilestoneStatus = "pending"
	MilestoneAtRisk   MilestoneStatus = "at_risk"
	MilestoneBreached MilestoneStatus = "breached"
)

// MarkAchieved records that a milestone was reached on the given date,
// and propagates satisfaction to any TRIGGERS it names.
func (it *Interpreter) MarkAchieved(name string, date string) error {
	st, ok := it.milestoneStates[name]
	if !ok {
		return &UndefinedIdentifierError{Name: name}
	}
	st.achievedDate = date
	it.satisfiedEvents[name] = true
	if m, ok := it.milestones[name]; ok {
		for _, t := range m.Triggers {
			it.satisfiedEvents[t] = true
		}
	}
	return nil
}

// MilestoneState reports a milestone's derived status as of the
// interpreter's current as-of date: achieved if an achieved date is
// recorded and all prerequisites are satisfied; else pending if the
// as-of date is on or before the target date; else at_risk if on or
// before the longstop date; else breached.
func (it *Interpreter) MilestoneState(name string) (MilestoneStatus, error) {
	m, ok := it.milestones[name]
	if !ok {
		return "", &UndefinedIdentifierError{Name: name}
	}
	st := it.milestoneStates[name]
	if st != nil && st.achievedDate != "" {
		prereqsOK := true
		if m.Requires != nil {
			ok2, err := it.evalBool(m.Requires)
			if err != nil {
				return "", err
			}
			prereqsOK = ok2
		}
		if prereqsOK {
			return MilestoneAchieved, nil
		}
	}
	if it.asOfDate == "" {
		return MilestonePending, nil
	}
	if m.Target != "" && it.asOfDate <= m.Target {
		return MilestonePending, nil
	}
	if m.Longstop != "" && it.asOfDate <= m.Longstop {
		return MilestoneAtRisk, nil
	}
	return MilestoneBreached, nil
}

// DaysToTarget and DaysToLongstop are reported by the caller (the CLI
// layer), which has access to a date-arithmetic helper; the interpreter
// only exposes the raw ISO date strings via the milestone's AST node.

// SetProgress records a technical milestone's current progress-metric
// reading (e.g. MW energized to date).
func (it *Interpreter) SetProgress(name string, value float64) error {
	st, ok := it.milestoneStates[name]
	if !ok {
		return &UndefinedIdentifierError{Name: name}
	}
	st.currentValue = value
	if _, ok := it.techMiles[name]; ok {
		tm := it.techMiles[name]
		target, err := it.evaluate(tm.TargetValue)
		if err == nil && value >= target {
			it.satisfiedEvents[name] = true
		}
	}
	return nil
}

// TechnicalMilestoneCompletion reports the fraction (0..1, uncapped above
// 1 if progress exceeds target) of a technical milestone's target value
// reached so far.
func (it *Interpreter) TechnicalMilestoneCompletion(name string) (float64, error) {
	tm, ok := it.techMiles[name]
	if !ok {
		return 0, &UndefinedIdentifierError{Name: name}
	}
	target, err := it.evaluate(tm.TargetValue)
	if err != nil {
		return 0, err
	}
	if target == 0 {
		return 0, nil
	}
	return it.milestoneStates[name].currentValue / target, nil
}
