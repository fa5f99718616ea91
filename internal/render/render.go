// Package render turns a parsed credit agreement back into prose, the
// inverse of the parser: one paragraph per statement, assembled into
// numbered articles a reader would recognise as loan-agreement text.
package render

import (
	"fmt"
	"sort"
	"strings"

	"github.com/wch1125/proviso/internal/lang/ast"
	"github.com/wch1125/proviso/internal/lang/exprfmt"
)

// Section is one rendered element: its article placement, a title, and
// the prose paragraph, carried alongside the statement it came from for
// downstream drift matching.
type Section struct {
	Article     string
	Subsection  string
	Title       string
	Text        string
	ElementType string
	ElementName string
}

// Document is the fully assembled rendering of a program: a header
// followed by articles in a fixed order, plus the flat list of sections
// used for UI and drift detection.
type Document struct {
	FullText string
	Sections []Section
}

// articleOrder fixes the routing of statement kinds to articles, per
// the numbering scheme this module follows throughout.
var articleOrder = []string{
	"Article 1", "Article 4", "Article 6", "Article 7.02", "Article 7.11", "Article 8",
}

const header = "CREDIT AGREEMENT\n\nThis Agreement sets forth the terms and conditions agreed by the parties.\n"

// Render assembles a full document from a parsed program.
func Render(prog *ast.Program) *Document {
	byArticle := map[string][]Section{}

	for _, stmt := range prog.Statements {
		sec, article, ok := renderStatement(stmt)
		if !ok {
			continue
		}
		byArticle[article] = append(byArticle[article], sec)
	}

	var b strings.Builder
	b.WriteString(header)
	var all []Section
	for _, article := range articleOrder {
		secs := byArticle[article]
		if len(secs) == 0 {
			continue
		}
		sort.Slice(secs, func(i, j int) bool { return secs[i].ElementName < secs[j].ElementName })
		b.WriteString("\n" + article + "\n")
		for _, s := range secs {
			b.WriteString(s.Text + "\n")
			all = append(all, s)
		}
	}

	return &Document{FullText: b.String(), Sections: all}
}

func renderStatement(stmt ast.Statement) (Section, string, bool) {
	switch v := stmt.(type) {
	case *ast.DefineStatement:
		return renderDefine(v), "Article 1", true
	case *ast.ConditionsPrecedentStatement:
		return renderCP(v), "Article 4", true
	case *ast.PhaseStatement:
		return renderPhase(v), "Article 6", true
	case *ast.MilestoneStatement:
		return renderMilestone(v), "Article 6", true
	case *ast.ReserveStatement:
		return renderReserve(v), "Article 6", true
	case *ast.WaterfallStatement:
		return renderWaterfall(v), "Article 6", true
	case *ast.ConditionStatement:
		return renderCondition(v), "Article 6", true
	case *ast.BasketStatement:
		return renderBasket(v), "Article 7.02", true
	case *ast.CovenantStatement:
		return renderCovenant(v), "Article 7.11", true
	case *ast.EventStatement:
		return renderEvent(v), "Article 8", true
	default:
		return Section{}, "", false
	}
}

func renderDefine(d *ast.DefineStatement) Section {
	text := fmt.Sprintf("%q means %s.", d.Ident, exprfmt.Render(d.Value))
	if d.CappedAt != nil {
		text += fmt.Sprintf(" %s shall not exceed %s.", d.Ident, exprfmt.Render(d.CappedAt))
	}
	if len(d.Excluding) > 0 {
		var ex []string
		for _, e := range d.Excluding {
			ex = append(ex, exprfmt.Render(e))
		}
		text += " " + d.Ident + " excludes " + strings.Join(ex, ", ") + "."
	}
	return Section{Article: "Article 1", Title: d.Ident, Text: text, ElementType: "definition", ElementName: d.Ident}
}

func renderCovenant(c *ast.CovenantStatement) Section {
	metric, op, threshold := decomposeRequires(c.Requires)
	freqDisplay := exprfmt.Frequency(c.Frequency)
	text := fmt.Sprintf("%s. The Borrower shall not permit the %s as of the last day of any %s to %s %s.",
		c.Ident, metric, freqDisplay, exprfmt.Operator(op), threshold)
	if c.Cure != nil {
		text += fmt.Sprintf(" The Borrower may cure a failure to satisfy this covenant not more than %d time(s) over %d fiscal quarter(s).", c.Cure.MaxUses, c.Cure.OverQtrs)
	}
	for _, sd := range c.StepDowns {
		text += fmt.Sprintf(" Effective %s, the threshold steps to %s.", sd.EffectiveDate, exprfmt.Render(sd.Threshold))
	}
	return Section{Article: "Article 7.11", Title: c.Ident, Text: text, ElementType: "covenant", ElementName: c.Ident}
}

func decomposeRequires(e ast.Expression) (metric, op, threshold string) {
	bin, ok := e.(*ast.BinaryExpr)
	if !ok {
		return exprfmt.Render(e), "=", ""
	}
	return exprfmt.Render(bin.Left), bin.Operator.String(), renderThreshold(bin.Right)
}

func renderThreshold(e ast.Expression) string {
	if _, ok := e.(*ast.RatioLit); ok {
		return exprfmt.Render(e)
	}
	return exprfmt.Render(e)
}

func renderBasket(b *ast.BasketStatement) Section {
	text := fmt.Sprintf("%s. Investments made pursuant to this clause shall not exceed %s.", b.Ident, exprfmt.Render(b.Capacity))
	if b.Floor != nil {
		text += fmt.Sprintf(" In no event shall the available amount be less than %s.", exprfmt.Render(b.Floor))
	}
	if b.Maximum != nil {
		text += fmt.Sprintf(" In no event shall the available amount exceed %s.", exprfmt.Render(b.Maximum))
	}
	if len(b.SubjectTo) > 0 {
		text += " This basket is subject to " + strings.Join(b.SubjectTo, ", ") + "."
	}
	return Section{Article: "Article 7.02", Title: b.Ident, Text: text, ElementType: "basket", ElementName: b.Ident}
}

func renderPhase(p *ast.PhaseStatement) Section {
	text := fmt.Sprintf("%s. This phase applies %s.", p.Ident, clauseOrDefault(p.From, "from closing"))
	if len(p.CovenantsSuspended) > 0 {
		text += " The following covenants are suspended during this phase: " + strings.Join(p.CovenantsSuspended, ", ") + "."
	}
	if len(p.CovenantsRequired) > 0 {
		text += " The following covenants are required during this phase: " + strings.Join(p.CovenantsRequired, ", ") + "."
	}
	return Section{Article: "Article 6", Title: p.Ident, Text: text, ElementType: "phase", ElementName: p.Ident}
}

func clauseOrDefault(e ast.Expression, def string) string {
	if e == nil {
		return def
	}
	return "while " + exprfmt.Render(e)
}

func renderMilestone(m *ast.MilestoneStatement) Section {
	text := fmt.Sprintf("%s. This milestone shall be achieved on or before %s, subject to a longstop date of %s.", m.Ident, m.Target, m.Longstop)
	if len(m.Triggers) > 0 {
		text += " Achievement triggers " + strings.Join(m.Triggers, ", ") + "."
	}
	return Section{Article: "Article 6", Title: m.Ident, Text: text, ElementType: "milestone", ElementName: m.Ident}
}

func renderReserve(r *ast.ReserveStatement) Section {
	text := fmt.Sprintf("%s. The Borrower shall maintain a reserve funded to a target of %s, subject to a minimum balance of %s.",
		r.Ident, exprfmt.Render(r.Target), exprfmt.Render(r.Minimum))
	if r.ReleasedTo != "" {
		text += fmt.Sprintf(" Amounts in excess of the minimum may be released to %s.", r.ReleasedTo)
	}
	return Section{Article: "Article 6", Title: r.Ident, Text: text, ElementType: "reserve", ElementName: r.Ident}
}

func renderWaterfall(w *ast.WaterfallStatement) Section {
	var b strings.Builder
	fmt.Fprintf(&b, "%s. On each %s, available funds shall be applied in the following order of priority:", w.Ident, exprfmt.Frequency(w.Frequency))
	tiers := append([]ast.WaterfallTier(nil), w.Tiers...)
	sort.Slice(tiers, func(i, j int) bool { return tiers[i].Rank < tiers[j].Rank })
	for _, t := range tiers {
		fmt.Fprintf(&b, " (%d) to %s", t.Rank, t.Pay)
		if t.Amount != nil {
			fmt.Fprintf(&b, " in an amount equal to %s", exprfmt.Render(t.Amount))
		}
		b.WriteString(";")
	}
	text := strings.TrimSuffix(b.String(), ";") + "."
	return Section{Article: "Article 6", Title: w.Ident, Text: text, ElementType: "waterfall", ElementName: w.Ident}
}

func renderCondition(c *ast.ConditionStatement) Section {
	text := fmt.Sprintf("%s. %s shall mean %s.", c.Ident, c.Ident, exprfmt.Render(c.Value))
	return Section{Article: "Article 6", Title: c.Ident, Text: text, ElementType: "condition", ElementName: c.Ident}
}

func renderCP(cp *ast.ConditionsPrecedentStatement) Section {
	var b strings.Builder
	fmt.Fprintf(&b, "%s. As a condition precedent under Section %s, the Borrower shall deliver:", cp.Ident, cp.Section)
	for _, item := range cp.Items {
		fmt.Fprintf(&b, " %s (responsible party: %s);", item.Description, item.Responsible)
	}
	return Section{Article: "Article 4", Title: cp.Ident, Text: strings.TrimSuffix(b.String(), ";") + ".", ElementType: "conditionsPrecedent", ElementName: cp.Ident}
}

func renderEvent(e *ast.EventStatement) Section {
	text := fmt.Sprintf("%s. An event of default shall occur upon %s.", e.Ident, exprfmt.Render(e.When))
	return Section{Article: "Article 8", Title: e.Ident, Text: text, ElementType: "event", ElementName: e.Ident}
}
