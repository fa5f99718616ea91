package interpreter

// ConditionHolds evaluates a named CONDITION statement's boolean value.
func (it *Interpreter) ConditionHolds(name string) (bool, error) {
	c, ok := it.conditions[name]
	if !ok {
		return false, &UndefinedIdentifierError{Name: name}
	}
	return it.evalBool(c.Value)
}

// basketConditionsSatisfied reports whether every condition named in a
// basket's SUBJECT TO clause currently holds, and the name of the first
// one that doesn't, if any.
func (it *Interpreter) basketConditionsSatisfied(name string) (bool, string, error) {
	b, ok := it.baskets[name]
	if !ok {
		return false, "", &UndefinedIdentifierError{Name: name}
	}
	for _, cond := range b.SubjectTo {
		ok, err := it.ConditionHolds(cond)
		if err != nil {
			return false, "", err
		}
		if !ok {
			return false, cond, nil
		}
	}
	return true, "", nil
}

// BasketConditionsSatisfied reports whether a basket's SUBJECT TO
// conditions all currently hold, for callers that want to query draw
// eligibility without attempting (and erroring on) a draw.
func (it *Interpreter) BasketConditionsSatisfied(name string) (bool, error) {
	ok, _, err := it.basketConditionsSatisfied(name)
	return ok, err
}
