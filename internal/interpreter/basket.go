package interpreter

import "github.com/wch1125/proviso/internal/lang/ast"

// basketCapacity computes a basket's current ceiling. Fixed baskets use
// CAPACITY directly; Grower baskets take the greater of CAPACITY and
// FLOOR; Builder baskets use STARTING plus whatever has accumulated,
// capped at MAXIMUM.
func (it *Interpreter) basketCapacity(name string) (float64, float64, error) {
	b, ok := it.baskets[name]
	if !ok {
		return 0, 0, &UndefinedIdentifierError{Name: name}
	}
	ledger := it.basketLedgers[name]

	switch b.Kind {
	case ast.GrowerBasket:
		cap, err := it.evaluate(b.Capacity)
		if err != nil {
			return 0, 0, err
		}
		if b.Floor != nil {
			floor, err := it.evaluate(b.Floor)
			if err != nil {
				return 0, 0, err
			}
			if floor > cap {
				cap = floor
			}
		}
		return cap, ledger.used, nil
	case ast.BuilderBasket:
		start, err := it.evaluate(b.Starting)
		if err != nil {
			return 0, 0, err
		}
		max, err := it.evaluate(b.Maximum)
		if err != nil {
			return 0, 0, err
		}
		cap := start + ledger.accumulated
		if cap > max {
			cap = max
		}
		return cap, ledger.used, nil
	default:
		cap, err := it.evaluate(b.Capacity)
		if err != nil {
			return 0, 0, err
		}
		return cap, ledger.used, nil
	}
}

// basketAvailable reports the remaining headroom under a basket's
// current capacity.
func (it *Interpreter) basketAvailable(name string) (float64, error) {
	cap, used, err := it.basketCapacity(name)
	if err != nil {
		return 0, err
	}
	rem := cap - used
	if rem < 0 {
		return 0, nil
	}
	return rem, nil
}

// BasketAvailable reports the remaining headroom under a basket's
// current capacity.
func (it *Interpreter) BasketAvailable(name string) (float64, error) {
	return it.basketAvailable(name)
}

// BasketCapacity reports a basket's current ceiling and amount used.
func (it *Interpreter) BasketCapacity(name string) (capacity, used float64, err error) {
	return it.basketCapacity(name)
}

// Draw records a usage draw against a basket, returning an error if any
// of the basket's SUBJECT TO conditions currently fail, or if the draw
// would exceed the basket's current capacity.
func (it *Interpreter) Draw(name string, amount float64, description string) error {
	if _, ok := it.baskets[name]; !ok {
		return &UndefinedIdentifierError{Name: name}
	}
	satisfied, failing, err := it.basketConditionsSatisfied(name)
	if err != nil {
		return err
	}
	if !satisfied {
		return &ConditionNotSatisfiedError{Basket: name, Condition: failing}
	}
	avail, err := it.basketAvailable(name)
	if err != nil {
		return err
	}
	if amount > avail+1e-9 {
		return &InvariantViolationError{Message: "draw exceeds available basket capacity"}
	}
	ledger := it.basketLedgers[name]
	ledger.used += amount
	ledger.entries = append(ledger.entries, BasketLedgerEntry{
		ID: newEntryID(), Basket: name, Amount: amount, Description: description, Kind: EntryUsage,
	})
	return nil
}

// Accumulate adds to a Builder basket's accrued capacity (e.g. an annual
// builder-basket addition driven by retained earnings). It is a no-op
// for Fixed and Grower baskets beyond recording the ledger entry.
func (it *Interpreter) Accumulate(name string, amount float64, description string) error {
	if _, ok := it.baskets[name]; !ok {
		return &UndefinedIdentifierError{Name: name}
	}
	ledger := it.basketLedgers[name]
	ledger.accumulated += amount
	ledger.entries = append(ledger.entries, BasketLedgerEntry{
		ID: newEntryID(), Basket: name, Amount: amount, Description: description, Kind: EntryAccumulation,
	})
	return nil
}

// BasketBuildRate evaluates a builder basket's BUILDS_FROM expression
// without recording anything, so callers can preview an accumulation.
func (it *Interpreter) BasketBuildRate(name string) (float64, error) {
	b, ok := it.baskets[name]
	if !ok {
		return 0, &UndefinedIdentifierError{Name: name}
	}
	if b.BuildsFrom == nil {
		return 0, &InvariantViolationError{Message: "basket " + name + " has no BUILDS_FROM expression"}
	}
	return it.evaluate(b.BuildsFrom)
}

// AccumulateFromBuildsFrom evaluates a builder basket's BUILDS_FROM
// expression against the current period's financial data and records
// the result as an accumulation entry, e.g. a year-end addition driven
// by 0.5 * NetIncome.
func (it *Interpreter) AccumulateFromBuildsFrom(name, description string) (float64, error) {
	b, ok := it.baskets[name]
	if !ok {
		return 0, &UndefinedIdentifierError{Name: name}
	}
	if b.BuildsFrom == nil {
		return 0, &InvariantViolationError{Message: "basket " + name + " has no BUILDS_FROM expression"}
	}
	amount, err := it.evaluate(b.BuildsFrom)
	if err != nil {
		return 0, err
	}
	if err := it.Accumulate(name, amount, description); err != nil {
		return 0, err
	}
	return amount, nil
}

// BasketLedgerHistory returns a basket's append-only usage/accumulation log.
func (it *Interpreter) BasketLedgerHistory(name string) []BasketLedgerEntry {
	l, ok := it.basketLedgers[name]
	if !ok {
		return nil
	}
	return append([]BasketLedgerEntry(nil), l.entries...)
}

// CheckProhibition evaluates a PROHIBIT statement: true means the
// prohibited action is currently blocked (the UNLESS escape has not
// fired).
func (it *Interpreter) CheckProhibition(name string) (bool, error) {
	p, ok := it.prohibits[name]
	if !ok {
		return false, &UndefinedIdentifierError{Name: name}
	}
	if p.Unless == nil {
		return true, nil
	}
	escaped, err := it.evalBool(p.Unless)
	if err != nil {
		return false, err
	}
	return !escaped, nil
}
