package interpreter

// ReserveBalance returns a reserve account's current cash balance.
func (it *Interpreter) ReserveBalance(name string) (float64, error) {
	if _, ok := it.reserves[name]; !ok {
		return 0, &UndefinedIdentifierError{Name: name}
	}
	return it.reserveBalances[name], nil
}

// Fund deposits into a reserve account, e.g. from a waterfall tier draw.
func (it *Interpreter) Fund(name string, amount float64) error {
	if _, ok := it.reserves[name]; !ok {
		return &UndefinedIdentifierError{Name: name}
	}
	it.reserveBalances[name] += amount
	return nil
}

// Release withdraws from a reserve account. It fails if the release
// condition (RELEASED_FOR) is present and not currently true, or if the
// withdrawal would drive the balance negative.
func (it *Interpreter) Release(name string, amount float64) error {
	r, ok := it.reserves[name]
	if !ok {
		return &UndefinedIdentifierError{Name: name}
	}
	if r.ReleasedFor != nil {
		ok2, err := it.evalBool(r.ReleasedFor)
		if err != nil {
			return err
		}
		if !ok2 {
			return &InvariantViolationError{Message: "reserve release condition not satisfied"}
		}
	}
	if amount > it.reserveBalances[name]+1e-9 {
		return &InvariantViolationError{Message: "release exceeds reserve balance"}
	}
	it.reserveBalances[name] -= amount
	return nil
}

// ReserveTarget evaluates a reserve's TARGET expression.
func (it *Interpreter) ReserveTarget(name string) (float64, error) {
	r, ok := it.reserves[name]
	if !ok {
		return 0, &UndefinedIdentifierError{Name: name}
	}
	return it.evaluate(r.Target)
}

// FundedPercent reports the reserve's balance as a fraction of its target.
func (it *Interpreter) FundedPercent(name string) (float64, error) {
	target, err := it.ReserveTarget(name)
	if err != nil {
		return 0, err
	}
	if target == 0 {
		return 0, nil
	}
	return it.reserveBalances[name] / target, nil
}

// BelowMinimum reports whether a reserve's balance is under its MINIMUM
// clause, if any. A reserve with no MINIMUM is never below minimum.
func (it *Interpreter) BelowMinimum(name string) (bool, error) {
	r, ok := it.reserves[name]
	if !ok {
		return false, &UndefinedIdentifierError{Name: name}
	}
	if r.Minimum == nil {
		return false, nil
	}
	min, err := it.evaluate(r.Minimum)
	if err != nil {
		return false, err
	}
	return it.reserveBalances[name] < min, nil
}

// AvailableForRelease is the balance in excess of the reserve's MINIMUM
// (or the full balance, if no MINIMUM is set).
func (it *Interpreter) AvailableForRelease(name string) (float64, error) {
	r, ok := it.reserves[name]
	if !ok {
		return 0, &UndefinedIdentifierError{Name: name}
	}
	bal := it.reserveBalances[name]
	if r.Minimum == nil {
		return bal, nil
	}
	min, err := it.evaluate(r.Minimum)
	if err != nil {
		return 0, err
	}
	avail := bal - min
	if avail < 0 {
		return 0, nil
	}
	return avail, nil
}
