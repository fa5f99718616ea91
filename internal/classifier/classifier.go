// Package classifier assigns a favorability impact to each element-level
// diff produced by the differ, and aggregates those impacts into a
// document-level change summary.
package classifier

import (
	"github.com/wch1125/proviso/internal/differ"
)

// Impact is the favorability verdict for one change.
type Impact string

const (
	LenderFavorable   Impact = "lender_favorable"
	BorrowerFavorable Impact = "borrower_favorable"
	Neutral           Impact = "neutral"
	Unclear           Impact = "unclear"
)

// ClassifiedChange pairs a diff with its assigned impact and the reason
// the heuristic fired.
type ClassifiedChange struct {
	Diff   differ.ElementDiff
	Impact Impact
	Reason string
}

// Summary aggregates a document's classified changes by element kind and
// by impact, plus optional provenance.
type Summary struct {
	Changes     []ClassifiedChange
	ByElement   map[string]int
	ByImpact    map[Impact]int
	CreatedAt   string
	AuthorParty string
}

// Classify assigns an impact to every diff in a result and builds the
// aggregate summary.
func Classify(res *differ.Result, createdAt, authorParty string) *Summary {
	s := &Summary{
		ByElement: map[string]int{},
		ByImpact:  map[Impact]int{},
		CreatedAt: createdAt, AuthorParty: authorParty,
	}
	for _, d := range res.Diffs {
		cc := ClassifiedChange{Diff: d}
		cc.Impact, cc.Reason = classifyOne(d)
		s.Changes = append(s.Changes, cc)
		s.ByElement[d.ElementType]++
		s.ByImpact[cc.Impact]++
	}
	return s
}

func classifyOne(d differ.ElementDiff) (Impact, string) {
	switch d.ElementType {
	case "covenant":
		return classifyCovenant(d)
	case "basket":
		return classifyBasket(d)
	case "definition":
		return Neutral, "definitions do not themselves alter lender or borrower rights"
	default:
		return classifyGeneric(d)
	}
}

func classifyCovenant(d differ.ElementDiff) (Impact, string) {
	switch d.ChangeType {
	case differ.Added:
		return LenderFavorable, "a new covenant constrains the borrower further"
	case differ.Removed:
		return BorrowerFavorable, "removing a covenant lifts a borrower constraint"
	}

	for _, fc := range d.FieldChanges {
		switch fc.Field {
		case "cure":
			if fc.FromValue == "absent" && fc.ToValue == "present" {
				return BorrowerFavorable, "a new cure right benefits the borrower"
			}
			return LenderFavorable, "losing a cure right benefits the lender"
		case "requires":
			return classifyThresholdChange(fc)
		}
	}
	return Neutral, "no field change maps to a known favorability rule"
}

// classifyThresholdChange inspects a rendered "requires" fieldChange of
// the form "<metric> <op> <threshold>" before and after, and classifies
// by whether the threshold became easier or harder to satisfy.
func classifyThresholdChange(fc differ.FieldChange) (Impact, string) {
	fromOp, fromVal, fromOK := splitComparison(fc.FromValue)
	toOp, toVal, toOK := splitComparison(fc.ToValue)
	if !fromOK || !toOK || fromOp != toOp {
		return Unclear, "threshold comparison could not be extracted from the rendered expression"
	}
	if toVal == fromVal {
		return Neutral, "threshold value unchanged"
	}
	raised := toVal > fromVal
	switch fromOp {
	case "<=", "<":
		if raised {
			return BorrowerFavorable, "raising a maximum-type threshold gives the borrower more room"
		}
		return LenderFavorable, "lowering a maximum-type threshold tightens the borrower's room"
	case ">=", ">":
		if raised {
			return LenderFavorable, "raising a minimum-type threshold tightens the borrower's room"
		}
		return BorrowerFavorable, "lowering a minimum-type threshold gives the borrower more room"
	default:
		return Unclear, "comparison operator does not map to a directional favorability rule"
	}
}

func classifyBasket(d differ.ElementDiff) (Impact, string) {
	switch d.ChangeType {
	case differ.Added:
		return BorrowerFavorable, "a new basket grants additional permitted capacity"
	case differ.Removed:
		return LenderFavorable, "removing a basket withdraws permitted capacity"
	}
	for _, fc := range d.FieldChanges {
		if fc.Field != "capacity" && fc.Field != "floor" && fc.Field != "maximum" {
			continue
		}
		fromVal, fromOK := parseNumber(fc.FromValue)
		toVal, toOK := parseNumber(fc.ToValue)
		if !fromOK || !toOK {
			return Unclear, "basket size could not be compared numerically"
		}
		if toVal > fromVal {
			return BorrowerFavorable, "raising basket capacity grants the borrower more room"
		}
		if toVal < fromVal {
			return LenderFavorable, "lowering basket capacity tightens the borrower's room"
		}
	}
	return Neutral, "basket size unchanged"
}

func classifyGeneric(d differ.ElementDiff) (Impact, string) {
	return Neutral, "element kind has no specific favorability heuristic"
}

// splitComparison extracts "<op> <value>" from a rendered "left op
// right" expression, assuming the threshold is the right operand.
func splitComparison(s string) (op string, val float64, ok bool) {
	for _, candidate := range []string{"<=", ">=", "!=", "<", ">", "="} {
		idx := indexOf(s, " "+candidate+" ")
		if idx < 0 {
			continue
		}
		right := s[idx+len(candidate)+2:]
		v, ok2 := parseNumber(right)
		if !ok2 {
			return "", 0, false
		}
		return candidate, v, true
	}
	return "", 0, false
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}

func parseNumber(s string) (float64, bool) {
	neg := false
	i := 0
	if len(s) > 0 && s[0] == '$' {
		i++
	}
	if i < len(s) && s[i] == '-' {
		neg = true
		i++
	}
	start := i
	seenDigit := false
	seenDot := false
	for ; i < len(s); i++ {
		c := s[i]
		if c >= '0' && c <= '9' {
			seenDigit = true
			continue
		}
		if c == '.' && !seenDot {
			seenDot = true
			continue
		}
		break
	}
	if !seenDigit {
		return 0, false
	}
	digits := s[start:i]
	var whole, frac float64
	var fracDiv float64 = 1
	inFrac := false
	for _, c := range digits {
		if c == '.' {
			inFrac = true
			continue
		}
		d := float64(c - '0')
		if inFrac {
			fracDiv *= 10
			frac += d / fracDiv
		} else {
			whole = whole*10 + d
		}
	}
	v := whole + frac
	if neg {
		v = -v
	}
	return v, true
}
