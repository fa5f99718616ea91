// Package parser implements a recursive-descent parser for ProViso source
// text, producing an ast.Program or a structured ParseError.
package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/wch1125/proviso/internal/lang/ast"
	"github.com/wch1125/proviso/internal/lang/lexer"
	"github.com/wch1125/proviso/internal/lang/token"
)

// ParseError is the structured error the parser returns on the first
// irrecoverable failure.
type ParseError struct {
	Message  string
	Start    token.Position
	End      token.Position
	Expected []string
	Found    string
}

func (e *ParseError) Error() string { return e.Message }

// Operator precedence levels, lowest to highest.
const (
	_ int = iota
	LOWEST
	OR_PREC
	AND_PREC
	EQUALITY
	RELATIONAL
	ADDITIVE
	MULTIPLICATIVE
	UNARY
	CALL
)

var precedences = map[token.Type]int{
	token.OR:       OR_PREC,
	token.AND:      AND_PREC,
	token.EQ:       EQUALITY,
	token.NEQ:      EQUALITY,
	token.LT:       RELATIONAL,
	token.GT:       RELATIONAL,
	token.LTE:      RELATIONAL,
	token.GTE:      RELATIONAL,
	token.PLUS:     ADDITIVE,
	token.MINUS:    ADDITIVE,
	token.ASTERISK: MULTIPLICATIVE,
	token.SLASH:    MULTIPLICATIVE,
}

type (
	prefixParseFn func() ast.Expression
	infixParseFn  func(ast.Expression) ast.Expression
)

// Parser consumes a token stream and produces an ast.Program.
type Parser struct {
	l   *lexer.Lexer
	cur token.Token
	pk  token.Token
	err *ParseError

	prefixFns map[token.Type]prefixParseFn
	infixFns  map[token.Type]infixParseFn
}

// New constructs a Parser over l.
func New(l *lexer.Lexer) *Parser {
	p := &Parser{l: l}
	p.prefixFns = map[token.Type]prefixParseFn{
		token.IDENT:    p.parseIdentifier,
		token.NUMBER:   p.parseNumberLit,
		token.CURRENCY: p.parseCurrencyLit,
		token.PERCENT:  p.parsePercentLit,
		token.RATIO:    p.parseRatioLit,
		token.BPS:      p.parseBpsLit,
		token.STRING:   p.parseStringLit,
		token.DATE_LIT: p.parseDateLit,
		token.MINUS:    p.parseUnary,
		token.NOT:      p.parseUnary,
		token.LPAREN:   p.parseGrouped,
		token.TRAILING: p.parseTrailing,
	}
	p.infixFns = map[token.Type]infixParseFn{
		token.PLUS:     p.parseBinary,
		token.MINUS:    p.parseBinary,
		token.ASTERISK: p.parseBinary,
		token.SLASH:    p.parseBinary,
		token.EQ:       p.parseBinary,
		token.NEQ:      p.parseBinary,
		token.LT:       p.parseBinary,
		token.GT:       p.parseBinary,
		token.LTE:      p.parseBinary,
		token.GTE:      p.parseBinary,
		token.AND:      p.parseBinary,
		token.OR:       p.parseBinary,
	}
	p.next()
	p.next()
	return p
}

// Parse scans and parses input in one call.
func Parse(input string) (*ast.Program, *ParseError) {
	p := New(lexer.New(input))
	return p.ParseProgram()
}

func (p *Parser) next() {
	p.cur = p.pk
	p.pk = p.l.NextToken()
}

func (p *Parser) failf(tok token.Token, expected []string, format string, args ...interface{}) {
	if p.err != nil {
		return
	}
	msg := fmt.Sprintf(format, args...)
	found := tok.Literal
	if tok.Type == token.EOF {
		found = "end of input"
	}
	p.err = &ParseError{
		Message:  msg,
		Start:    tok.Pos,
		End:      tok.Pos,
		Expected: expected,
		Found:    found,
	}
}

// ParseProgram parses the full token stream into a Program.
func (p *Parser) ParseProgram() (*ast.Program, *ParseError) {
	prog := &ast.Program{Position: p.cur.Pos}
	for p.cur.Type != token.EOF && p.err == nil {
		if p.cur.Type == token.COMMENT {
			p.next()
			continue
		}
		stmt := p.parseStatement()
		if p.err != nil {
			return nil, p.err
		}
		if stmt != nil {
			prog.Statements = append(prog.Statements, stmt)
		}
		p.next()
	}
	if p.err != nil {
		return nil, p.err
	}
	return prog, nil
}

func (p *Parser) parseStatement() ast.Statement {
	switch p.cur.Type {
	case token.DEFINE:
		return p.parseDefine()
	case token.COVENANT:
		return p.parseCovenant()
	case token.BASKET:
		return p.parseBasket()
	case token.CONDITION:
		return p.parseCondition()
	case token.PROHIBIT:
		return p.parseProhibit()
	case token.EVENT:
		return p.parseEvent()
	case token.PHASE:
		return p.parsePhase()
	case token.TRANSITION:
		return p.parseTransition()
	case token.MILESTONE:
		return p.parseMilestone()
	case token.TECHNICAL_MILESTONE:
		return p.parseTechnicalMilestone()
	case token.REGULATORY_REQUIREMENT:
		return p.parseRegulatoryRequirement()
	case token.PERFORMANCE_GUARANTEE:
		return p.parsePerformanceGuarantee()
	case token.DEGRADATION_SCHEDULE:
		return p.parseDegradationSchedule()
	case token.SEASONAL_ADJUSTMENT:
		return p.parseSeasonalAdjustment()
	case token.TAX_EQUITY_STRUCTURE:
		return p.parseTaxEquityStructure()
	case token.TAX_CREDIT:
		return p.parseTaxCredit()
	case token.DEPRECIATION:
		return p.parseDepreciation()
	case token.FLIP_EVENT:
		return p.parseFlipEvent()
	case token.RESERVE:
		return p.parseReserve()
	case token.WATERFALL:
		return p.parseWaterfall()
	case token.CONDITIONS_PRECEDENT:
		return p.parseConditionsPrecedent()
	case token.AMENDMENT:
		return p.parseAmendment()
	case token.LOAD:
		return p.parseLoad()
	default:
		p.failf(p.cur, []string{"DEFINE", "COVENANT", "BASKET", "CONDITION", "PROHIBIT",
			"EVENT", "PHASE", "TRANSITION", "MILESTONE", "RESERVE", "WATERFALL",
			"CONDITIONS_PRECEDENT", "AMENDMENT", "LOAD"}, "unexpected token at top level")
		return nil
	}
}

// ---- token helpers ----------------------------------------------------

func (p *Parser) curIs(t token.Type) bool  { return p.cur.Type == t }
func (p *Parser) peekIs(t token.Type) bool { return p.pk.Type == t }

func (p *Parser) expect(t token.Type) bool {
	if p.curIs(t) {
		return true
	}
	p.failf(p.cur, []string{t.String()}, "expected %s", t.String())
	return false
}

// expectAdvance requires the current token to be t, then advances past it.
func (p *Parser) expectAdvance(t token.Type) bool {
	if !p.expect(t) {
		return false
	}
	p.next()
	return true
}

func (p *Parser) expectIdent() (string, bool) {
	if !p.curIs(token.IDENT) {
		p.failf(p.cur, []string{"identifier"}, "expected identifier")
		return "", false
	}
	lit := p.cur.Literal
	p.next()
	return lit, true
}

func (p *Parser) expectString() (string, bool) {
	if !p.curIs(token.STRING) {
		p.failf(p.cur, []string{"string literal"}, "expected string literal")
		return "", false
	}
	lit := p.cur.Literal
	p.next()
	return lit, true
}

// identList parses a comma-separated list of identifiers.
func (p *Parser) identList() []string {
	var out []string
	for {
		name, ok := p.expectIdent()
		if !ok {
			return nil
		}
		out = append(out, name)
		if p.curIs(token.COMMA) {
			p.next()
			continue
		}
		break
	}
	return out
}

// ---- expressions --------------------------------------------------------

func (p *Parser) parseExpression(prec int) ast.Expression {
	prefix := p.prefixFns[p.cur.Type]
	if prefix == nil {
		p.failf(p.cur, []string{"expression"}, "unexpected token in expression")
		return nil
	}
	left := prefix()
	if p.err != nil {
		return nil
	}
	for !p.curIs(token.EOF) && prec < p.curPrecedence() {
		infix := p.infixFns[p.cur.Type]
		if infix == nil {
			return left
		}
		left = infix(left)
		if p.err != nil {
			return nil
		}
	}
	return left
}

func (p *Parser) curPrecedence() int {
	if pr, ok := precedences[p.cur.Type]; ok {
		return pr
	}
	return LOWEST
}

func (p *Parser) parseIdentifier() ast.Expression {
	tok := p.cur
	name := tok.Literal
	p.next()
	if p.curIs(token.LPAREN) {
		return p.parseCallTail(name, tok.Pos)
	}
	return &ast.Ident{Name: name, Position: tok.Pos}
}

func (p *Parser) parseCallTail(name string, pos token.Position) ast.Expression {
	p.next() // consume '('
	var args []ast.Expression
	for !p.curIs(token.RPAREN) {
		arg := p.parseExpression(LOWEST)
		if p.err != nil {
			return nil
		}
		args = append(args, arg)
		if p.curIs(token.COMMA) {
			p.next()
			continue
		}
		break
	}
	if !p.expectAdvance(token.RPAREN) {
		return nil
	}
	return &ast.CallExpr{Function: name, Args: args, Position: pos}
}

func (p *Parser) parseNumberLit() ast.Expression {
	v, ok := p.parseNumericLiteral(p.cur.Literal)
	pos := p.cur.Pos
	if !ok {
		return nil
	}
	p.next()
	return &ast.NumberLit{Value: v, Position: pos}
}

func (p *Parser) parseCurrencyLit() ast.Expression {
	v, ok := p.parseNumericLiteral(p.cur.Literal)
	pos := p.cur.Pos
	if !ok {
		return nil
	}
	p.next()
	return &ast.CurrencyLit{Value: v, Position: pos}
}

func (p *Parser) parsePercentLit() ast.Expression {
	v, ok := p.parseNumericLiteral(p.cur.Literal)
	pos := p.cur.Pos
	if !ok {
		return nil
	}
	p.next()
	return &ast.PercentLit{Value: v, Position: pos}
}

func (p *Parser) parseRatioLit() ast.Expression {
	v, ok := p.parseNumericLiteral(p.cur.Literal)
	pos := p.cur.Pos
	if !ok {
		return nil
	}
	p.next()
	return &ast.RatioLit{Value: v, Position: pos}
}

func (p *Parser) parseBpsLit() ast.Expression {
	v, ok := p.parseNumericLiteral(p.cur.Literal)
	pos := p.cur.Pos
	if !ok {
		return nil
	}
	p.next()
	return &ast.BpsLit{Value: v / 100.0, Position: pos}
}

func (p *Parser) parseStringLit() ast.Expression {
	lit := &ast.StringLit{Value: p.cur.Literal, Position: p.cur.Pos}
	p.next()
	return lit
}

func (p *Parser) parseDateLit() ast.Expression {
	lit := &ast.DateLit{Value: p.cur.Literal, Position: p.cur.Pos}
	p.next()
	return lit
}

func (p *Parser) parseNumericLiteral(raw string) (float64, bool) {
	cleaned := strings.ReplaceAll(raw, "_", "")
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		p.failf(p.cur, []string{"numeric literal"}, "invalid numeric literal %q", raw)
		return 0, false
	}
	return v, true
}

func (p *Parser) parseUnary() ast.Expression {
	tok := p.cur
	op := tok.Type
	p.next()
	operand := p.parseExpression(UNARY)
	if p.err != nil {
		return nil
	}
	return &ast.UnaryExpr{Operator: op, Operand: operand, Position: tok.Pos}
}

func (p *Parser) parseBinary(left ast.Expression) ast.Expression {
	tok := p.cur
	op := tok.Type
	prec := p.curPrecedence()
	p.next()
	right := p.parseExpression(prec)
	if p.err != nil {
		return nil
	}
	return &ast.BinaryExpr{Left: left, Operator: op, Right: right, Position: tok.Pos}
}

func (p *Parser) parseGrouped() ast.Expression {
	p.next() // consume '('
	exp := p.parseExpression(LOWEST)
	if p.err != nil {
		return nil
	}
	if !p.expectAdvance(token.RPAREN) {
		return nil
	}
	return exp
}

// parseTrailing parses `TRAILING n {period} OF expr`.
func (p *Parser) parseTrailing() ast.Expression {
	tok := p.cur
	p.next()
	nExpr := p.parseExpression(CALL)
	if p.err != nil {
		return nil
	}
	period, ok := p.expectIdent()
	if !ok {
		return nil
	}
	if !p.expectAdvance(token.OF) {
		return nil
	}
	inner := p.parseExpression(CALL)
	if p.err != nil {
		return nil
	}
	return &ast.CallExpr{
		Function: "TRAILING",
		Args:     []ast.Expression{nExpr, &ast.Ident{Name: strings.ToUpper(period), Position: tok.Pos}, inner},
		Position: tok.Pos,
	}
}

// ---- statements ---------------------------------------------------------

func (p *Parser) parseDefine() ast.Statement {
	pos := p.cur.Pos
	p.next()
	name, ok := p.expectIdent()
	if !ok {
		return nil
	}
	if !p.expectAdvance(token.AS) {
		return nil
	}
	value := p.parseExpression(LOWEST)
	if p.err != nil {
		return nil
	}
	d := &ast.DefineStatement{Ident: name, Value: value, Position: pos}
	for p.curIs(token.EXCLUDING) || p.curIs(token.CAPPED) {
		if p.curIs(token.EXCLUDING) {
			p.next()
			for {
				ex := p.parseExpression(ADDITIVE)
				if p.err != nil {
					return nil
				}
				d.Excluding = append(d.Excluding, ex)
				if p.curIs(token.COMMA) {
					p.next()
					continue
				}
				break
			}
		}
		if p.curIs(token.CAPPED) {
			p.next()
			if !p.expectAdvance(token.AT) {
				return nil
			}
			d.CappedAt = p.parseExpression(LOWEST)
			if p.err != nil {
				return nil
			}
		}
	}
	return d
}

func parseFrequency(p *Parser) (ast.TestFrequency, bool) {
	switch p.cur.Type {
	case token.MONTHLY:
		p.next()
		return ast.Monthly, true
	case token.QUARTERLY:
		p.next()
		return ast.Quarterly, true
	case token.SEMI_ANNUALLY:
		p.next()
		return ast.SemiAnnually, true
	case token.ANNUALLY:
		p.next()
		return ast.Annually, true
	default:
		p.failf(p.cur, []string{"MONTHLY", "QUARTERLY", "SEMI_ANNUALLY", "ANNUALLY"}, "expected a test frequency")
		return ast.FrequencyUnspecified, false
	}
}

func (p *Parser) parseCovenant() ast.Statement {
	pos := p.cur.Pos
	p.next()
	name, ok := p.expectIdent()
	if !ok {
		return nil
	}
	c := &ast.CovenantStatement{Ident: name, Position: pos}
	if !p.expectAdvance(token.REQUIRES) {
		return nil
	}
	c.Requires = p.parseExpression(LOWEST)
	if p.err != nil {
		return nil
	}
	if !p.expectAdvance(token.TESTED) {
		return nil
	}
	freq, ok := parseFrequency(p)
	if !ok {
		return nil
	}
	c.Frequency = freq

	for p.curIs(token.CURE) || p.curIs(token.BREACH) {
		if p.curIs(token.CURE) {
			p.next()
			if _, ok := p.expectIdent(); !ok { // cure mechanism name, e.g. EquityCure
				return nil
			}
			cure := &ast.CureProvision{}
			if !p.expectAdvance(token.MAX_USES) {
				return nil
			}
			n, ok := p.expectIntLiteral()
			if !ok {
				return nil
			}
			cure.MaxUses = n
			if !p.expectAdvance(token.OVER) {
				return nil
			}
			window, ok := p.expectIntLiteral()
			if !ok {
				return nil
			}
			cure.OverQtrs = window
			if !p.expectAdvance(token.MAX_AMOUNT) {
				return nil
			}
			c.MaxAmount = p.parseExpression(LOWEST)
			if p.err != nil {
				return nil
			}
			c.Cure = cure
		}
		if p.curIs(token.BREACH) {
			p.next()
			if !p.expectAdvance(token.ARROW) {
				return nil
			}
			if _, ok := p.expectIdent(); !ok {
				return nil
			}
		}
	}
	return c
}

func (p *Parser) expectIntLiteral() (int, bool) {
	if !p.curIs(token.NUMBER) {
		p.failf(p.cur, []string{"integer"}, "expected an integer literal")
		return 0, false
	}
	v, ok := p.parseNumericLiteral(p.cur.Literal)
	if !ok {
		return 0, false
	}
	p.next()
	return int(v), true
}

func (p *Parser) parseBasket() ast.Statement {
	pos := p.cur.Pos
	p.next()
	name, ok := p.expectIdent()
	if !ok {
		return nil
	}
	b := &ast.BasketStatement{Ident: name, Position: pos}

	switch {
	case p.curIs(token.CAPACITY):
		p.next()
		b.Kind = ast.FixedBasket
		b.Capacity = p.parseExpression(LOWEST)
		if p.err != nil {
			return nil
		}
	case p.curIs(token.BUILDS_FROM):
		p.next()
		b.Kind = ast.BuilderBasket
		b.BuildsFrom = p.parseExpression(LOWEST)
		if p.err != nil {
			return nil
		}
		if !p.expectAdvance(token.STARTING) {
			return nil
		}
		b.Starting = p.parseExpression(LOWEST)
		if p.err != nil {
			return nil
		}
		if p.curIs(token.MAXIMUM) {
			p.next()
			b.Maximum = p.parseExpression(LOWEST)
			if p.err != nil {
				return nil
			}
		}
	default:
		p.failf(p.cur, []string{"CAPACITY", "BUILDS_FROM"}, "basket requires CAPACITY or BUILDS_FROM")
		return nil
	}

	if p.curIs(token.FLOOR) {
		p.next()
		b.Kind = ast.GrowerBasket
		b.Floor = p.parseExpression(LOWEST)
		if p.err != nil {
			return nil
		}
	}
	if p.curIs(token.MAXIMUM) && b.Maximum == nil {
		p.next()
		b.Maximum = p.parseExpression(LOWEST)
		if p.err != nil {
			return nil
		}
	}
	if p.curIs(token.SUBJECT) {
		p.next()
		if !p.expectAdvance(token.TO) {
			return nil
		}
		b.SubjectTo = p.identList()
		if p.err != nil {
			return nil
		}
	}
	return b
}

func (p *Parser) parseCondition() ast.Statement {
	pos := p.cur.Pos
	p.next()
	name, ok := p.expectIdent()
	if !ok {
		return nil
	}
	if !p.expectAdvance(token.AS) {
		return nil
	}
	val := p.parseExpression(LOWEST)
	if p.err != nil {
		return nil
	}
	return &ast.ConditionStatement{Ident: name, Value: val, Position: pos}
}

func (p *Parser) parseProhibit() ast.Statement {
	pos := p.cur.Pos
	p.next()
	name, ok := p.expectIdent()
	if !ok {
		return nil
	}
	action, ok := p.expectString()
	if !ok {
		return nil
	}
	pr := &ast.ProhibitStatement{Ident: name, Action: action, Position: pos}
	if p.curIs(token.UNLESS) {
		p.next()
		pr.Unless = p.parseExpression(LOWEST)
		if p.err != nil {
			return nil
		}
	}
	return pr
}

func (p *Parser) parseEvent() ast.Statement {
	pos := p.cur.Pos
	p.next()
	name, ok := p.expectIdent()
	if !ok {
		return nil
	}
	if !p.expectAdvance(token.WHEN) {
		return nil
	}
	when := p.parseExpression(LOWEST)
	if p.err != nil {
		return nil
	}
	return &ast.EventStatement{Ident: name, When: when, Position: pos}
}

func (p *Parser) parsePhase() ast.Statement {
	pos := p.cur.Pos
	p.next()
	name, ok := p.expectIdent()
	if !ok {
		return nil
	}
	ph := &ast.PhaseStatement{Ident: name, Position: pos}
	if p.curIs(token.UNTIL) {
		p.next()
		ph.Until = p.parseExpression(LOWEST)
		if p.err != nil {
			return nil
		}
	}
	if p.curIs(token.FROM) {
		p.next()
		ph.From = p.parseExpression(LOWEST)
		if p.err != nil {
			return nil
		}
	}
	for p.curIs(token.COVENANTS) || p.curIs(token.REQUIRED) {
		if p.curIs(token.COVENANTS) {
			p.next()
			switch {
			case p.curIs(token.SUSPENDED):
				p.next()
				ph.CovenantsSuspended = p.identList()
			case p.curIs(token.ACTIVE):
				p.next()
				ph.CovenantsActive = p.identList()
			default:
				p.failf(p.cur, []string{"SUSPENDED", "ACTIVE"}, "expected SUSPENDED or ACTIVE after COVENANTS")
				return nil
			}
		} else {
			p.next()
			ph.CovenantsRequired = p.identList()
		}
		if p.err != nil {
			return nil
		}
	}
	return ph
}

func (p *Parser) parseTransition() ast.Statement {
	pos := p.cur.Pos
	p.next()
	name, ok := p.expectIdent()
	if !ok {
		return nil
	}
	if !p.expectAdvance(token.FROM) {
		return nil
	}
	from, ok := p.expectIdent()
	if !ok {
		return nil
	}
	if !p.expectAdvance(token.TO) {
		return nil
	}
	to, ok := p.expectIdent()
	if !ok {
		return nil
	}
	t := &ast.TransitionStatement{Ident: name, From: from, To: to, Position: pos}
	if p.curIs(token.WHEN) {
		p.next()
		t.When = p.parseExpression(LOWEST)
		if p.err != nil {
			return nil
		}
	}
	return t
}

func (p *Parser) parseMilestone() ast.Statement {
	pos := p.cur.Pos
	p.next()
	name, ok := p.expectIdent()
	if !ok {
		return nil
	}
	if !p.expectAdvance(token.TARGET) {
		return nil
	}
	target, ok := p.expectDate()
	if !ok {
		return nil
	}
	if !p.expectAdvance(token.LONGSTOP) {
		return nil
	}
	longstop, ok := p.expectDate()
	if !ok {
		return nil
	}
	m := &ast.MilestoneStatement{Ident: name, Target: target, Longstop: longstop, Position: pos}
	if p.curIs(token.REQUIRES) {
		p.next()
		m.Requires = p.parseExpression(LOWEST)
		if p.err != nil {
			return nil
		}
	}
	if p.curIs(token.TRIGGERS) {
		p.next()
		m.Triggers = p.identList()
		if p.err != nil {
			return nil
		}
	}
	return m
}

func (p *Parser) expectDate() (string, bool) {
	if !p.curIs(token.DATE_LIT) {
		p.failf(p.cur, []string{"date literal"}, "expected an ISO date literal")
		return "", false
	}
	v := p.cur.Literal
	p.next()
	return v, true
}

func (p *Parser) parseTechnicalMilestone() ast.Statement {
	pos := p.cur.Pos
	p.next()
	name, ok := p.expectIdent()
	if !ok {
		return nil
	}
	if !p.expectAdvance(token.TARGET_VALUE) {
		return nil
	}
	targetVal := p.parseExpression(LOWEST)
	if p.err != nil {
		return nil
	}
	t := &ast.TechnicalMilestoneStatement{Ident: name, TargetValue: targetVal, Position: pos}
	if p.curIs(token.PROGRESS_METRIC) {
		p.next()
		metric, ok := p.expectIdent()
		if !ok {
			return nil
		}
		t.ProgressMetric = metric
	}
	if !p.expectAdvance(token.DEADLINE) {
		return nil
	}
	deadline, ok := p.expectDate()
	if !ok {
		return nil
	}
	t.Deadline = deadline
	return t
}

func (p *Parser) parseRegulatoryRequirement() ast.Statement {
	pos := p.cur.Pos
	p.next()
	name, ok := p.expectIdent()
	if !ok {
		return nil
	}
	if !p.expectAdvance(token.AGENCY) {
		return nil
	}
	agency, ok := p.expectString()
	if !ok {
		return nil
	}
	if !p.expectAdvance(token.DEADLINE) {
		return nil
	}
	deadline, ok := p.expectDate()
	if !ok {
		return nil
	}
	return &ast.RegulatoryRequirementStatement{Ident: name, Agency: agency, Deadline: deadline, Position: pos}
}

func (p *Parser) parsePerformanceGuarantee() ast.Statement {
	pos := p.cur.Pos
	p.next()
	name, ok := p.expectIdent()
	if !ok {
		return nil
	}
	if !p.expectAdvance(token.METRIC) {
		return nil
	}
	metric, ok := p.expectIdent()
	if !ok {
		return nil
	}
	if !p.expectAdvance(token.MINIMUM) {
		return nil
	}
	min := p.parseExpression(LOWEST)
	if p.err != nil {
		return nil
	}
	pg := &ast.PerformanceGuaranteeStatement{Ident: name, Metric: metric, Minimum: min, Position: pos}
	if p.curIs(token.LIQUIDATED_DAMAGES) {
		p.next()
		pg.LiquidatedDamages = p.parseExpression(LOWEST)
		if p.err != nil {
			return nil
		}
	}
	return pg
}

func (p *Parser) parseDegradationSchedule() ast.Statement {
	pos := p.cur.Pos
	p.next()
	name, ok := p.expectIdent()
	if !ok {
		return nil
	}
	if !p.expectAdvance(token.APPLIES_TO) {
		return nil
	}
	applies, ok := p.expectIdent()
	if !ok {
		return nil
	}
	d := &ast.DegradationScheduleStatement{Ident: name, AppliesTo: applies, Position: pos}
	if !p.expectAdvance(token.RATE) {
		return nil
	}
	for {
		year, ok := p.expectIntLiteral()
		if !ok {
			return nil
		}
		if !p.expectAdvance(token.YEAR) {
			return nil
		}
		val := p.parseExpression(ADDITIVE)
		if p.err != nil {
			return nil
		}
		d.Rates = append(d.Rates, ast.ScheduleEntry{Key: strconv.Itoa(year), Value: val})
		if p.curIs(token.COMMA) {
			p.next()
			continue
		}
		break
	}
	return d
}

func (p *Parser) parseSeasonalAdjustment() ast.Statement {
	pos := p.cur.Pos
	p.next()
	name, ok := p.expectIdent()
	if !ok {
		return nil
	}
	if !p.expectAdvance(token.APPLIES_TO) {
		return nil
	}
	applies, ok := p.expectIdent()
	if !ok {
		return nil
	}
	s := &ast.SeasonalAdjustmentStatement{Ident: name, AppliesTo: applies, Position: pos}
	if !p.expectAdvance(token.FACTOR) {
		return nil
	}
	for {
		month, ok := p.expectIdent()
		if !ok {
			return nil
		}
		val := p.parseExpression(ADDITIVE)
		if p.err != nil {
			return nil
		}
		s.Factors = append(s.Factors, ast.ScheduleEntry{Key: month, Value: val})
		if p.curIs(token.COMMA) {
			p.next()
			continue
		}
		break
	}
	return s
}

func (p *Parser) parseTaxEquityStructure() ast.Statement {
	pos := p.cur.Pos
	p.next()
	name, ok := p.expectIdent()
	if !ok {
		return nil
	}
	if !p.expectAdvance(token.INVESTOR) {
		return nil
	}
	investor, ok := p.expectString()
	if !ok {
		return nil
	}
	if !p.expectAdvance(token.ALLOCATION) {
		return nil
	}
	alloc := p.parseExpression(LOWEST)
	if p.err != nil {
		return nil
	}
	t := &ast.TaxEquityStructureStatement{Ident: name, Investor: investor, Allocation: alloc, Position: pos}
	if p.curIs(token.FLIP_TARGET) {
		p.next()
		t.FlipTarget = p.parseExpression(LOWEST)
		if p.err != nil {
			return nil
		}
	}
	return t
}

func (p *Parser) parseTaxCredit() ast.Statement {
	pos := p.cur.Pos
	p.next()
	name, ok := p.expectIdent()
	if !ok {
		return nil
	}
	if !p.expectAdvance(token.TYPE) {
		return nil
	}
	typ, ok := p.expectString()
	if !ok {
		return nil
	}
	if !p.expectAdvance(token.BASIS) {
		return nil
	}
	basis := p.parseExpression(LOWEST)
	if p.err != nil {
		return nil
	}
	if !p.expectAdvance(token.RATE) {
		return nil
	}
	rate := p.parseExpression(LOWEST)
	if p.err != nil {
		return nil
	}
	return &ast.TaxCreditStatement{Ident: name, Type: typ, Basis: basis, Rate: rate, Position: pos}
}

func (p *Parser) parseDepreciation() ast.Statement {
	pos := p.cur.Pos
	p.next()
	name, ok := p.expectIdent()
	if !ok {
		return nil
	}
	if !p.expectAdvance(token.METHOD) {
		return nil
	}
	method, ok := p.expectString()
	if !ok {
		return nil
	}
	if !p.expectAdvance(token.LIFE) {
		return nil
	}
	life := p.parseExpression(ADDITIVE)
	if p.err != nil {
		return nil
	}
	if !p.expectAdvance(token.BASIS) {
		return nil
	}
	basis := p.parseExpression(LOWEST)
	if p.err != nil {
		return nil
	}
	return &ast.DepreciationStatement{Ident: name, Method: method, Life: life, Basis: basis, Position: pos}
}

func (p *Parser) parseFlipEvent() ast.Statement {
	pos := p.cur.Pos
	p.next()
	name, ok := p.expectIdent()
	if !ok {
		return nil
	}
	if !p.expectAdvance(token.TRIGGER) {
		return nil
	}
	trigger, ok := p.expectIdent()
	if !ok {
		return nil
	}
	if !p.expectAdvance(token.REALLOCATE) {
		return nil
	}
	realloc := p.parseExpression(LOWEST)
	if p.err != nil {
		return nil
	}
	return &ast.FlipEventStatement{Ident: name, Trigger: trigger, Reallocate: realloc, Position: pos}
}

func (p *Parser) parseReserve() ast.Statement {
	pos := p.cur.Pos
	p.next()
	name, ok := p.expectIdent()
	if !ok {
		return nil
	}
	if !p.expectAdvance(token.TARGET) {
		return nil
	}
	target := p.parseExpression(LOWEST)
	if p.err != nil {
		return nil
	}
	r := &ast.ReserveStatement{Ident: name, Target: target, Position: pos}
	if p.curIs(token.MINIMUM) {
		p.next()
		min := p.parseExpression(LOWEST)
		if p.err != nil {
			return nil
		}
		r.Minimum = min
	}
	if p.curIs(token.FUNDED_BY) {
		p.next()
		names := p.identList()
		if p.err != nil {
			return nil
		}
		r.FundedBy = names
	}
	if p.curIs(token.RELEASED_TO) {
		p.next()
		rt, ok := p.expectIdent()
		if !ok {
			return nil
		}
		r.ReleasedTo = rt
	}
	if p.curIs(token.RELEASED_FOR) {
		p.next()
		r.ReleasedFor = p.parseExpression(LOWEST)
		if p.err != nil {
			return nil
		}
	}
	return r
}

func (p *Parser) parseWaterfall() ast.Statement {
	pos := p.cur.Pos
	p.next()
	name, ok := p.expectIdent()
	if !ok {
		return nil
	}
	w := &ast.WaterfallStatement{Ident: name, Position: pos}
	if p.curIs(token.FREQUENCY) {
		p.next()
		freq, ok := parseFrequency(p)
		if !ok {
			return nil
		}
		w.Frequency = freq
	}
	for p.curIs(token.TIER) {
		p.next()
		rank, ok := p.expectIntLiteral()
		if !ok {
			return nil
		}
		label, ok := p.expectString()
		if !ok {
			return nil
		}
		if !p.expectAdvance(token.PAY) {
			return nil
		}
		amount := p.parseExpression(LOWEST)
		if p.err != nil {
			return nil
		}
		if !p.expectAdvance(token.FROM) {
			return nil
		}
		var from string
		switch {
		case p.curIs(token.REVENUE):
			from = "Revenue"
			p.next()
		case p.curIs(token.REMAINDER):
			from = "REMAINDER"
			p.next()
		default:
			p.failf(p.cur, []string{"Revenue", "REMAINDER"}, "expected Revenue or REMAINDER")
			return nil
		}
		tier := ast.WaterfallTier{Rank: rank, Pay: label, Amount: amount, From: from}
		if p.curIs(token.UNTIL) {
			p.next()
			tier.Until = p.parseExpression(LOWEST)
			if p.err != nil {
				return nil
			}
		}
		if p.curIs(token.SHORTFALL) {
			p.next()
			if !p.expectAdvance(token.ARROW) {
				return nil
			}
			sf, ok := p.expectIdent()
			if !ok {
				return nil
			}
			tier.Shortfall = sf
		}
		if p.curIs(token.IF) {
			p.next()
			tier.If = p.parseExpression(LOWEST)
			if p.err != nil {
				return nil
			}
		}
		w.Tiers = append(w.Tiers, tier)
	}
	return w
}

func (p *Parser) parseConditionsPrecedent() ast.Statement {
	pos := p.cur.Pos
	p.next()
	name, ok := p.expectIdent()
	if !ok {
		return nil
	}
	cp := &ast.ConditionsPrecedentStatement{Ident: name, Position: pos}
	if p.curIs(token.SECTION) {
		p.next()
		section, ok := p.expectString()
		if !ok {
			return nil
		}
		cp.Section = section
	}
	for p.curIs(token.CP) {
		p.next()
		itemName, ok := p.expectIdent()
		if !ok {
			return nil
		}
		item := ast.CPItem{Ident: itemName}
		if p.curIs(token.DESCRIPTION) {
			p.next()
			desc, ok := p.expectString()
			if !ok {
				return nil
			}
			item.Description = desc
		}
		if p.curIs(token.RESPONSIBLE) {
			p.next()
			resp, ok := p.expectIdent()
			if !ok {
				return nil
			}
			item.Responsible = resp
		}
		if !p.expectAdvance(token.STATUS) {
			return nil
		}
		status, ok := p.expectIdent()
		if !ok {
			return nil
		}
		switch strings.ToLower(status) {
		case "required", "pending":
			item.Status = ast.CPRequired
		case "satisfied":
			item.Status = ast.CPSatisfied
		default:
			item.Status = ast.CPUnspecified
		}
		if p.curIs(token.SATISFIES) {
			p.next()
			names := p.identList()
			if p.err != nil {
				return nil
			}
			item.Satisfies = names
		}
		cp.Items = append(cp.Items, item)
	}
	return cp
}

func (p *Parser) parseAmendment() ast.Statement {
	pos := p.cur.Pos
	p.next()
	name, ok := p.expectIdent()
	if !ok {
		return nil
	}
	a := &ast.AmendmentStatement{Ident: name, Position: pos}
	if p.curIs(token.EFFECTIVE) {
		p.next()
		eff, ok := p.expectDate()
		if !ok {
			return nil
		}
		a.Effective = eff
	}
	if p.curIs(token.DESCRIPTION) {
		p.next()
		if _, ok := p.expectString(); !ok {
			return nil
		}
	}
	for p.curIs(token.ADD) || p.curIs(token.DELETE) || p.curIs(token.REPLACE) || p.curIs(token.MODIFY) {
		edit, ok := p.parseAmendmentEdit()
		if !ok {
			return nil
		}
		a.Edits = append(a.Edits, edit)
	}
	return a
}

func (p *Parser) parseAmendmentEdit() (ast.AmendmentEdit, bool) {
	switch p.cur.Type {
	case token.ADD:
		p.next()
		stmt := p.parseStatement()
		if p.err != nil || stmt == nil {
			return ast.AmendmentEdit{}, false
		}
		return ast.AmendmentEdit{Op: ast.AmendAdd, Addition: stmt}, true
	case token.DELETE:
		p.next()
		if _, ok := p.expectIdent(); !ok { // kind
			return ast.AmendmentEdit{}, false
		}
		name, ok := p.expectIdent()
		if !ok {
			return ast.AmendmentEdit{}, false
		}
		return ast.AmendmentEdit{Op: ast.AmendDelete, Target: name}, true
	case token.REPLACE:
		p.next()
		if _, ok := p.expectIdent(); !ok { // kind
			return ast.AmendmentEdit{}, false
		}
		name, ok := p.expectIdent()
		if !ok {
			return ast.AmendmentEdit{}, false
		}
		if !p.expectAdvance(token.WITH) {
			return ast.AmendmentEdit{}, false
		}
		stmt := p.parseStatement()
		if p.err != nil || stmt == nil {
			return ast.AmendmentEdit{}, false
		}
		return ast.AmendmentEdit{Op: ast.AmendReplace, Target: name, Addition: stmt}, true
	case token.MODIFY:
		p.next()
		if _, ok := p.expectIdent(); !ok { // kind
			return ast.AmendmentEdit{}, false
		}
		name, ok := p.expectIdent()
		if !ok {
			return ast.AmendmentEdit{}, false
		}
		if !p.expectAdvance(token.SET) {
			return ast.AmendmentEdit{}, false
		}
		field, ok := p.expectIdent()
		if !ok {
			return ast.AmendmentEdit{}, false
		}
		if !p.expectAdvance(token.EQ) {
			return ast.AmendmentEdit{}, false
		}
		val := p.parseExpression(LOWEST)
		if p.err != nil {
			return ast.AmendmentEdit{}, false
		}
		return ast.AmendmentEdit{Op: ast.AmendModify, Target: name, Field: field, NewValue: val}, true
	}
	p.failf(p.cur, []string{"ADD", "DELETE", "REPLACE", "MODIFY"}, "expected an amendment directive")
	return ast.AmendmentEdit{}, false
}

func (p *Parser) parseLoad() ast.Statement {
	pos := p.cur.Pos
	p.next()
	name, ok := p.expectIdent()
	if !ok {
		return nil
	}
	l := &ast.LoadStatement{Ident: name, Position: pos}
	if p.curIs(token.FROM) {
		p.next()
		src, ok := p.expectString()
		if !ok {
			return nil
		}
		l.Source = src
	}
	return l
}
