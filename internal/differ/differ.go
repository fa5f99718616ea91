// Package differ compares two compiled states and reports added,
// removed, and modified elements.
package differ

import (
	"github.com/wch1125/proviso/internal/lang/ast"
	"github.com/wch1125/proviso/internal/lang/exprfmt"
	"github.com/wch1125/proviso/internal/statecompiler"
)

// ChangeType classifies one diff entry.
type ChangeType string

const (
	Added    ChangeType = "added"
	Removed  ChangeType = "removed"
	Modified ChangeType = "modified"
)

// FieldChange is one field's before/after canonical string rendering.
type FieldChange struct {
	Field     string
	FromValue string
	ToValue   string
}

// ElementDiff is one element-level finding between two document versions.
type ElementDiff struct {
	ChangeType   ChangeType
	ElementType  string
	ElementName  string
	FromElement  ast.Statement
	ToElement    ast.Statement
	FieldChanges []FieldChange
}

// Stats summarises a diff list by element kind and change type.
type Stats struct {
	TotalChanges int
	ByElement    map[string]int
	ByChangeType map[ChangeType]int
}

// Result is the differ's complete output for one state comparison.
type Result struct {
	Success   bool
	FromError error
	ToError   error
	Diffs     []ElementDiff
	Stats     Stats
}

// Diff compares two compiled states. If either carries a compile error,
// Result.Success is false and Diffs is empty.
func Diff(from, to *statecompiler.State) *Result {
	res := &Result{Success: true, Stats: Stats{ByElement: map[string]int{}, ByChangeType: map[ChangeType]int{}}}
	if from.Error != nil || to.Error != nil {
		res.Success = false
		res.FromError = from.Error
		res.ToError = to.Error
		return res
	}

	diffDefines(from, to, res)
	diffCovenants(from, to, res)
	diffBaskets(from, to, res)
	diffConditions(from, to, res)
	diffPhases(from, to, res)
	diffMilestones(from, to, res)
	diffReserves(from, to, res)
	diffWaterfalls(from, to, res)

	for _, d := range res.Diffs {
		res.Stats.TotalChanges++
		res.Stats.ByElement[d.ElementType]++
		res.Stats.ByChangeType[d.ChangeType]++
	}
	return res
}

func record(res *Result, ct ChangeType, elemType, name string, from, to ast.Statement, fields []FieldChange) {
	res.Diffs = append(res.Diffs, ElementDiff{
		ChangeType: ct, ElementType: elemType, ElementName: name,
		FromElement: from, ToElement: to, FieldChanges: fields,
	})
}

func fieldChange(field, from, to string) (FieldChange, bool) {
	if from == to {
		return FieldChange{}, false
	}
	return FieldChange{Field: field, FromValue: from, ToValue: to}, true
}

func diffDefines(from, to *statecompiler.State, res *Result) {
	for name, f := range from.Defines {
		if t, ok := to.Defines[name]; ok {
			var changes []FieldChange
			if fc, ok := fieldChange("value", exprfmt.Render(f.Value), exprfmt.Render(t.Value)); ok {
				changes = append(changes, fc)
			}
			if fc, ok := fieldChange("cappedAt", exprfmt.Render(f.CappedAt), exprfmt.Render(t.CappedAt)); ok {
				changes = append(changes, fc)
			}
			if len(changes) > 0 {
				record(res, Modified, "definition", name, f, t, changes)
			}
		} else {
			record(res, Removed, "definition", name, f, nil, nil)
		}
	}
	for name, t := range to.Defines {
		if _, ok := from.Defines[name]; !ok {
			record(res, Added, "definition", name, nil, t, nil)
		}
	}
}

func diffCovenants(from, to *statecompiler.State, res *Result) {
	for name, f := range from.Covenants {
		if t, ok := to.Covenants[name]; ok {
			var changes []FieldChange
			if fc, ok := fieldChange("requires", exprfmt.Render(f.Requires), exprfmt.Render(t.Requires)); ok {
				changes = append(changes, fc)
			}
			if fc, ok := fieldChange("tested", exprfmt.Frequency(f.Frequency), exprfmt.Frequency(t.Frequency)); ok {
				changes = append(changes, fc)
			}
			if (f.Cure == nil) != (t.Cure == nil) {
				from, to := "absent", "present"
				if f.Cure != nil {
					from, to = "present", "absent"
				}
				changes = append(changes, FieldChange{Field: "cure", FromValue: from, ToValue: to})
			}
			if len(changes) > 0 {
				record(res, Modified, "covenant", name, f, t, changes)
			}
		} else {
			record(res, Removed, "covenant", name, f, nil, nil)
		}
	}
	for name, t := range to.Covenants {
		if _, ok := from.Covenants[name]; !ok {
			record(res, Added, "covenant", name, nil, t, nil)
		}
	}
}

func diffBaskets(from, to *statecompiler.State, res *Result) {
	for name, f := range from.Baskets {
		if t, ok := to.Baskets[name]; ok {
			var changes []FieldChange
			if fc, ok := fieldChange("capacity", exprfmt.Render(f.Capacity), exprfmt.Render(t.Capacity)); ok {
				changes = append(changes, fc)
			}
			if fc, ok := fieldChange("floor", exprfmt.Render(f.Floor), exprfmt.Render(t.Floor)); ok {
				changes = append(changes, fc)
			}
			if fc, ok := fieldChange("maximum", exprfmt.Render(f.Maximum), exprfmt.Render(t.Maximum)); ok {
				changes = append(changes, fc)
			}
			if fc, ok := fieldChange("startingBalance", exprfmt.Render(f.Starting), exprfmt.Render(t.Starting)); ok {
				changes = append(changes, fc)
			}
			if len(changes) > 0 {
				record(res, Modified, "basket", name, f, t, changes)
			}
		} else {
			record(res, Removed, "basket", name, f, nil, nil)
		}
	}
	for name, t := range to.Baskets {
		if _, ok := from.Baskets[name]; !ok {
			record(res, Added, "basket", name, nil, t, nil)
		}
	}
}

func diffConditions(from, to *statecompiler.State, res *Result) {
	for name, f := range from.Conditions {
		if t, ok := to.Conditions[name]; ok {
			if fc, ok := fieldChange("value", exprfmt.Render(f.Value), exprfmt.Render(t.Value)); ok {
				record(res, Modified, "condition", name, f, t, []FieldChange{fc})
			}
		} else {
			record(res, Removed, "condition", name, f, nil, nil)
		}
	}
	for name, t := range to.Conditions {
		if _, ok := from.Conditions[name]; !ok {
			record(res, Added, "condition", name, nil, t, nil)
		}
	}
}

func diffPhases(from, to *statecompiler.State, res *Result) {
	for name, f := range from.Phases {
		if t, ok := to.Phases[name]; ok {
			var changes []FieldChange
			if fc, ok := fieldChange("until", exprfmt.Render(f.Until), exprfmt.Render(t.Until)); ok {
				changes = append(changes, fc)
			}
			if fc, ok := fieldChange("from", exprfmt.Render(f.From), exprfmt.Render(t.From)); ok {
				changes = append(changes, fc)
			}
			if fc, ok := fieldChange("covenantsSuspended", joinList(f.CovenantsSuspended), joinList(t.CovenantsSuspended)); ok {
				changes = append(changes, fc)
			}
			if len(changes) > 0 {
				record(res, Modified, "phase", name, f, t, changes)
			}
		} else {
			record(res, Removed, "phase", name, f, nil, nil)
		}
	}
	for name, t := range to.Phases {
		if _, ok := from.Phases[name]; !ok {
			record(res, Added, "phase", name, nil, t, nil)
		}
	}
}

func diffMilestones(from, to *statecompiler.State, res *Result) {
	for name, f := range from.Milestones {
		if t, ok := to.Milestones[name]; ok {
			var changes []FieldChange
			if fc, ok := fieldChange("target", f.Target, t.Target); ok {
				changes = append(changes, fc)
			}
			if fc, ok := fieldChange("longstop", f.Longstop, t.Longstop); ok {
				changes = append(changes, fc)
			}
			if len(changes) > 0 {
				record(res, Modified, "milestone", name, f, t, changes)
			}
		} else {
			record(res, Removed, "milestone", name, f, nil, nil)
		}
	}
	for name, t := range to.Milestones {
		if _, ok := from.Milestones[name]; !ok {
			record(res, Added, "milestone", name, nil, t, nil)
		}
	}
}

func diffReserves(from, to *statecompiler.State, res *Result) {
	for name, f := range from.Reserves {
		if t, ok := to.Reserves[name]; ok {
			var changes []FieldChange
			if fc, ok := fieldChange("target", exprfmt.Render(f.Target), exprfmt.Render(t.Target)); ok {
				changes = append(changes, fc)
			}
			if fc, ok := fieldChange("minimum", exprfmt.Render(f.Minimum), exprfmt.Render(t.Minimum)); ok {
				changes = append(changes, fc)
			}
			if len(changes) > 0 {
				record(res, Modified, "reserve", name, f, t, changes)
			}
		} else {
			record(res, Removed, "reserve", name, f, nil, nil)
		}
	}
	for name, t := range to.Reserves {
		if _, ok := from.Reserves[name]; !ok {
			record(res, Added, "reserve", name, nil, t, nil)
		}
	}
}

func diffWaterfalls(from, to *statecompiler.State, res *Result) {
	for name, f := range from.Waterfalls {
		if t, ok := to.Waterfalls[name]; ok {
			if fc, ok := fieldChange("tierCount", itoa(len(f.Tiers)), itoa(len(t.Tiers))); ok {
				record(res, Modified, "waterfall", name, f, t, []FieldChange{fc})
			}
		} else {
			record(res, Removed, "waterfall", name, f, nil, nil)
		}
	}
	for name, t := range to.Waterfalls {
		if _, ok := from.Waterfalls[name]; !ok {
			record(res, Added, "waterfall", name, nil, t, nil)
		}
	}
}

func joinList(xs []string) string {
	out := ""
	for i, x := range xs {
		if i > 0 {
			out += ", "
		}
		out += x
	}
	return out
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var digits []byte
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	if neg {
		return "-" + string(digits)
	}
	return string(digits)
}
