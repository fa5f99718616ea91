package interpreter

// IsDrawAllowed reports whether every item in a conditions-precedent
// checklist is satisfied or waived, gating whether a draw may proceed.
func (it *Interpreter) IsDrawAllowed(name string) (bool, error) {
	cp, ok := it.cps[name]
	if !ok {
		return false, &UndefinedIdentifierError{Name: name}
	}
	statuses := it.cpItemStatus[name]
	for _, item := range cp.Items {
		st := statuses[item.Ident]
		if st != cpSatisfied && st != cpWaived && st != cpNotApplicable {
			return false, nil
		}
	}
	return true, nil
}

// SatisfyItem marks one CP checklist item satisfied and propagates
// satisfaction to anything it names in SATISFIES.
func (it *Interpreter) SatisfyItem(checklist, item string) error {
	cp, ok := it.cps[checklist]
	if !ok {
		return &UndefinedIdentifierError{Name: checklist}
	}
	statuses := it.cpItemStatus[checklist]
	if _, ok := statuses[item]; !ok {
		return &UndefinedIdentifierError{Name: item}
	}
	statuses[item] = cpSatisfied
	for _, i := range cp.Items {
		if i.Ident != item {
			continue
		}
		for _, sat := range i.Satisfies {
			it.satisfiedEvents[sat] = true
		}
	}
	return nil
}

// WaiveItem marks one CP checklist item waived.
func (it *Interpreter) WaiveItem(checklist, item string) error {
	statuses, ok := it.cpItemStatus[checklist]
	if !ok {
		return &UndefinedIdentifierError{Name: checklist}
	}
	if _, ok := statuses[item]; !ok {
		return &UndefinedIdentifierError{Name: item}
	}
	statuses[item] = cpWaived
	return nil
}

// OutstandingItems lists the CP checklist items not yet satisfied or waived.
func (it *Interpreter) OutstandingItems(name string) ([]string, error) {
	cp, ok := it.cps[name]
	if !ok {
		return nil, &UndefinedIdentifierError{Name: name}
	}
	statuses := it.cpItemStatus[name]
	var out []string
	for _, item := range cp.Items {
		st := statuses[item.Ident]
		if st != cpSatisfied && st != cpWaived && st != cpNotApplicable {
			out = append(out, item.Ident)
		}
	}
	return out, nil
}
