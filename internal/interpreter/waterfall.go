package interpreter

import (
	"sort"

	"github.com/wch1125/proviso/internal/lang/ast"
)

// WaterfallTierResult is the outcome of applying one tier during a
// waterfall run.
type WaterfallTierResult struct {
	Rank           int
	Pay            string
	Requested      float64
	Paid           float64
	ShortfallDrawn float64
	Skipped        bool
}

// RunWaterfall applies a waterfall's ordered tiers against an available
// revenue amount for one period, per the cascading-priority-of-payments
// model: each tier draws either straight from revenue or from whatever
// remainder earlier tiers left behind, gated by an optional IF condition
// and capped by an optional UNTIL ceiling, drawing a named reserve to
// cover any shortfall.
func (it *Interpreter) RunWaterfall(name string, revenue float64) ([]WaterfallTierResult, error) {
	w, ok := it.waterfalls[name]
	if !ok {
		return nil, &UndefinedIdentifierError{Name: name}
	}
	ordered := append([]ast.WaterfallTier(nil), w.Tiers...)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Rank < ordered[j].Rank })

	remainder := revenue
	var results []WaterfallTierResult

	for _, tier := range ordered {
		res := WaterfallTierResult{Rank: tier.Rank, Pay: tier.Pay}

		if tier.If != nil {
			gate, err := it.evalBool(tier.If)
			if err != nil {
				return nil, err
			}
			if !gate {
				res.Skipped = true
				results = append(results, res)
				continue
			}
		}

		source := remainder
		if tier.From == "Revenue" {
			source = revenue
		}

		var requested float64
		if tier.Amount != nil {
			v, err := it.evaluate(tier.Amount)
			if err != nil {
				return nil, err
			}
			requested = v
		} else {
			requested = source
		}
		if tier.Until != nil {
			cap, err := it.evaluate(tier.Until)
			if err != nil {
				return nil, err
			}
			if requested > cap {
				requested = cap
			}
		}
		res.Requested = requested

		paid := requested
		if paid > source {
			paid = source
		}
		shortfall := requested - paid
		if shortfall > 0 && tier.Shortfall != "" {
			drawn, err := it.drawShortfallReserve(tier.Shortfall, shortfall)
			if err != nil {
				return nil, err
			}
			paid += drawn
			shortfall -= drawn
			res.ShortfallDrawn = drawn
		}

		if _, isReserve := it.reserves[tier.Pay]; isReserve {
			if err := it.Fund(tier.Pay, paid); err != nil {
				return nil, err
			}
		}

		res.Paid = paid
		remainder -= paid
		if remainder < 0 {
			remainder = 0
		}
		results = append(results, res)
	}

	return results, nil
}

// drawShortfallReserve draws directly against a reserve's balance above
// its minimum, bypassing the RELEASED_FOR gate that governs ordinary
// Release calls — a shortfall draw is a distinct mechanism from a
// discretionary release.
func (it *Interpreter) drawShortfallReserve(reserveName string, needed float64) (float64, error) {
	avail, err := it.AvailableForRelease(reserveName)
	if err != nil {
		return 0, err
	}
	drawn := needed
	if drawn > avail {
		drawn = avail
	}
	if drawn <= 0 {
		return 0, nil
	}
	it.reserveBalances[reserveName] -= drawn
	return drawn, nil
}
