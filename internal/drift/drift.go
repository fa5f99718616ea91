// Package drift compares externally edited prose against the prose the
// renderer would have produced from an AST, and reports where the two
// have diverged in ways that look like a substantive contract edit
// rather than a formatting change.
package drift

import (
	"regexp"
	"strings"

	"github.com/wch1125/proviso/internal/render"
)

// Severity tiers a drift finding by how likely it is to reflect a
// negotiated change rather than prose reflow.
type Severity string

const (
	High   Severity = "high"
	Medium Severity = "medium"
	Low    Severity = "low"
)

// Category is the kind of change a finding's phrase-matching detected.
type Category string

const (
	ThresholdChange  Category = "threshold_change"
	CapacityChange   Category = "capacity_change"
	StructuralChange Category = "structural_change"
	Other            Category = "other"
)

// Finding is one detected divergence between expected and actual
// section text.
type Finding struct {
	SectionTitle string
	ElementType  string
	Category     Category
	Severity     Severity
	Confidence   float64
	Expected     string
	Actual       string
	Suggestion   string
}

var numberRe = regexp.MustCompile(`-?\$?[0-9][0-9,]*(\.[0-9]+)?%?`)

// Detect extracts section-level chunks from the rendered expectation
// and the externally supplied actual text, matches them by section
// title, and classifies each divergence. Findings with confidence below
// 0.5 are omitted unless verbose is true.
func Detect(expected *render.Document, actualText string, verbose bool) []Finding {
	actualChunks := chunkByTitle(actualText)

	var findings []Finding
	for _, sec := range expected.Sections {
		actual, ok := actualChunks[sec.Title]
		if !ok {
			continue
		}
		if normalize(actual) == normalize(sec.Text) {
			continue
		}
		f := classify(sec, actual)
		if f.Confidence < 0.5 && !verbose {
			continue
		}
		findings = append(findings, f)
	}
	return findings
}

// chunkByTitle splits externally edited prose into title-keyed chunks by
// matching on the leading "<Title>." pattern the renderer itself emits.
func chunkByTitle(text string) map[string]string {
	out := map[string]string{}
	lines := strings.Split(text, "\n")
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		idx := strings.Index(line, ". ")
		if idx <= 0 {
			continue
		}
		title := line[:idx]
		out[title] = line
	}
	return out
}

func normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func classify(sec render.Section, actual string) Finding {
	cat, conf := classifyCategory(sec.Text, actual)
	sev := severityFor(cat)
	return Finding{
		SectionTitle: sec.Title,
		ElementType:  sec.ElementType,
		Category:     cat,
		Severity:     sev,
		Confidence:   conf,
		Expected:     sec.Text,
		Actual:       actual,
		Suggestion:   suggest(sec, actual),
	}
}

func classifyCategory(expected, actual string) (Category, float64) {
	expNums := numberRe.FindAllString(expected, -1)
	actNums := numberRe.FindAllString(actual, -1)
	if !sameStrings(expNums, actNums) {
		if strings.Contains(strings.ToLower(expected), "capacity") || strings.Contains(strings.ToLower(expected), "exceed") {
			return CapacityChange, 0.85
		}
		if hasStructuralKeyword(actual) != hasStructuralKeyword(expected) {
			return StructuralChange, 0.65
		}
		if strings.Contains(strings.ToLower(expected), "less than") || strings.Contains(strings.ToLower(expected), "greater than") {
			return ThresholdChange, 0.85
		}
		return ThresholdChange, 0.6
	}
	if hasStructuralKeyword(actual) != hasStructuralKeyword(expected) {
		return StructuralChange, 0.65
	}
	return Other, 0.4
}

func hasStructuralKeyword(s string) bool {
	lower := strings.ToLower(s)
	for _, kw := range []string{"cure", "greater of", "lesser of", "suspended", "waived"} {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func severityFor(cat Category) Severity {
	switch cat {
	case ThresholdChange, CapacityChange:
		return High
	case StructuralChange:
		return Medium
	default:
		return Low
	}
}

func sameStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// suggest proposes a source-form edit snippet for the element kind,
// giving the editor something concrete to paste into the DSL source
// rather than hand-translating prose back into syntax.
func suggest(sec render.Section, actual string) string {
	nums := numberRe.FindAllString(actual, -1)
	switch sec.ElementType {
	case "covenant":
		if len(nums) > 0 {
			return "COVENANT " + sec.ElementName + " REQUIRES ... <= " + nums[len(nums)-1]
		}
	case "basket":
		if len(nums) > 0 {
			return "BASKET " + sec.ElementName + " CAPACITY " + nums[len(nums)-1]
		}
	}
	return ""
}
