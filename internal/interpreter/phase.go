package interpreter

import "sort"

// CurrentPhase returns the identifier of the phase the interpreter
// currently considers active.
func (it *Interpreter) CurrentPhase() string {
	return it.currentPhase
}

// PhaseHistory returns the sequence of phases entered so far, oldest first.
func (it *Interpreter) PhaseHistory() []PhaseHistoryEntry {
	return append([]PhaseHistoryEntry(nil), it.phaseHistory...)
}

// EvaluateTransitions walks every TRANSITION declared from the current
// phase and, for the first one whose WHEN expression is true, moves the
// interpreter into the target phase and appends a history entry. It
// reports the new phase name, or "" if no transition fired.
func (it *Interpreter) EvaluateTransitions() (string, error) {
	for _, tr := range it.transitions {
		if tr.From != it.currentPhase {
			continue
		}
		fire := true
		if tr.When != nil {
			v, err := it.evalBool(tr.When)
			if err != nil {
				return "", err
			}
			fire = v
		}
		if fire {
			it.currentPhase = tr.To
			it.phaseHistory = append(it.phaseHistory, PhaseHistoryEntry{
				Phase: tr.To, TriggeredBy: tr.Ident,
			})
			return tr.To, nil
		}
	}
	return "", nil
}

// ActiveCovenants lists, sorted, every covenant that the current phase
// does not suspend.
func (it *Interpreter) ActiveCovenants() []string {
	suspended := map[string]bool{}
	for _, ph := range it.phases {
		if ph.Ident != it.currentPhase {
			continue
		}
		for _, s := range ph.CovenantsSuspended {
			suspended[s] = true
		}
	}
	var out []string
	for name := range it.covenants {
		if !suspended[name] {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}
