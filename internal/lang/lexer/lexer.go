// Package lexer implements a lexical scanner for ProViso source text.
package lexer

import (
	"strings"
	"unicode/utf8"

	"github.com/wch1125/proviso/internal/lang/token"
)

// Lexer scans ProViso source text into a stream of tokens.
type Lexer struct {
	input        string
	position     int
	readPosition int
	ch           rune
	line         int
	column       int
}

// New creates a Lexer over input.
func New(input string) *Lexer {
	l := &Lexer{input: input, line: 1, column: 0}
	l.readChar()
	return l
}

func (l *Lexer) readChar() {
	if l.readPosition >= len(l.input) {
		l.ch = 0
		l.position = l.readPosition
	} else {
		r, size := utf8.DecodeRuneInString(l.input[l.readPosition:])
		l.ch = r
		l.position = l.readPosition
		l.readPosition += size
	}
	l.column++
	if l.ch == '\n' {
		l.line++
		l.column = 0
	}
}

func (l *Lexer) peekChar() rune {
	if l.readPosition >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.readPosition:])
	return r
}

// NextToken returns the next token from the input, advancing the scanner.
func (l *Lexer) NextToken() token.Token {
	l.skipWhitespace()

	pos := token.Position{Line: l.line, Column: l.column}

	var tok token.Token
	switch l.ch {
	case '#':
		tok.Type = token.COMMENT
		tok.Literal = l.readLineComment()
		tok.Pos = pos
		return tok
	case '+':
		tok = l.newToken(token.PLUS, string(l.ch), pos)
	case '-':
		if l.peekChar() == '>' {
			l.readChar()
			tok = l.newToken(token.ARROW, "->", pos)
		} else {
			tok = l.newToken(token.MINUS, string(l.ch), pos)
		}
	case '*':
		tok = l.newToken(token.ASTERISK, string(l.ch), pos)
	case '/':
		if l.peekChar() == '/' {
			tok.Type = token.COMMENT
			tok.Literal = l.readLineComment()
			tok.Pos = pos
			return tok
		}
		tok = l.newToken(token.SLASH, string(l.ch), pos)
	case '=':
		tok = l.newToken(token.EQ, string(l.ch), pos)
	case '!':
		if l.peekChar() == '=' {
			l.readChar()
			tok = l.newToken(token.NEQ, "!=", pos)
		} else {
			tok = l.newToken(token.ILLEGAL, string(l.ch), pos)
		}
	case '<':
		if l.peekChar() == '=' {
			l.readChar()
			tok = l.newToken(token.LTE, "<=", pos)
		} else {
			tok = l.newToken(token.LT, string(l.ch), pos)
		}
	case '>':
		if l.peekChar() == '=' {
			l.readChar()
			tok = l.newToken(token.GTE, ">=", pos)
		} else {
			tok = l.newToken(token.GT, string(l.ch), pos)
		}
	case ',':
		tok = l.newToken(token.COMMA, string(l.ch), pos)
	case '(':
		tok = l.newToken(token.LPAREN, string(l.ch), pos)
	case ')':
		tok = l.newToken(token.RPAREN, string(l.ch), pos)
	case ':':
		tok = l.newToken(token.COLON, string(l.ch), pos)
	case '"':
		tok.Type = token.STRING
		tok.Literal = l.readString()
		tok.Pos = pos
		return tok
	case '$':
		tok.Type = token.CURRENCY
		tok.Literal = l.readCurrency()
		tok.Pos = pos
		return tok
	case 0:
		tok.Type = token.EOF
		tok.Literal = ""
		tok.Pos = pos
		return tok
	default:
		if isDigit(l.ch) {
			typ, lit := l.readNumberOrDate()
			tok.Type = typ
			tok.Literal = lit
			tok.Pos = pos
			return tok
		}
		if isLetter(l.ch) {
			lit := l.readIdentifier()
			tok.Type = token.LookupIdent(lit)
			tok.Literal = lit
			tok.Pos = pos
			return tok
		}
		tok = l.newToken(token.ILLEGAL, string(l.ch), pos)
	}

	l.readChar()
	return tok
}

func (l *Lexer) newToken(typ token.Type, lit string, pos token.Position) token.Token {
	return token.Token{Type: typ, Literal: lit, Pos: pos}
}

func (l *Lexer) skipWhitespace() {
	for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' {
		l.readChar()
	}
}

func (l *Lexer) readLineComment() string {
	start := l.position
	for l.ch != '\n' && l.ch != 0 {
		l.readChar()
	}
	return l.input[start:l.position]
}

func (l *Lexer) readIdentifier() string {
	start := l.position
	for isLetter(l.ch) || isDigit(l.ch) || l.ch == '_' || l.ch == '-' {
		l.readChar()
	}
	return l.input[start:l.position]
}

func (l *Lexer) readString() string {
	l.readChar() // consume opening quote
	start := l.position
	for l.ch != '"' && l.ch != 0 {
		l.readChar()
	}
	s := l.input[start:l.position]
	if l.ch == '"' {
		l.readChar()
	}
	return s
}

// readCurrency reads a $-prefixed amount: $1_000_000 or $1_000_000.50.
func (l *Lexer) readCurrency() string {
	l.readChar() // consume '$'
	start := l.position
	for isDigit(l.ch) || l.ch == '_' {
		l.readChar()
	}
	if l.ch == '.' && isDigit(l.peekChar()) {
		l.readChar()
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	return l.input[start:l.position]
}

// readNumberOrDate reads a bare numeric literal, applying the suffix
// rules (%, x, bps) or recognizing an ISO date shape (YYYY-MM-DD).
func (l *Lexer) readNumberOrDate() (token.Type, string) {
	start := l.position
	digits := l.readDigitRun()

	if len(digits) == 4 && l.ch == '-' && l.looksLikeDateRest() {
		l.readChar() // first '-'
		l.readDigitRun()
		l.readChar() // second '-'
		l.readDigitRun()
		return token.DATE_LIT, l.input[start:l.position]
	}

	if l.ch == '.' && isDigit(l.peekChar()) {
		l.readChar()
		l.readDigitRun()
	}

	numEnd := l.position

	switch {
	case l.ch == '%':
		l.readChar()
		return token.PERCENT, l.input[start:numEnd]
	case (l.ch == 'x' || l.ch == 'X') && !isLetter(l.peekChar()):
		l.readChar()
		return token.RATIO, l.input[start:numEnd]
	case l.ch == 'b' && l.matchesAhead("ps"):
		l.readChar()
		l.readChar()
		l.readChar()
		return token.BPS, l.input[start:numEnd]
	}

	return token.NUMBER, l.input[start:numEnd]
}

func (l *Lexer) readDigitRun() string {
	start := l.position
	for isDigit(l.ch) || l.ch == '_' {
		l.readChar()
	}
	return l.input[start:l.position]
}

// looksLikeDateRest checks, without consuming, whether the input at the
// current '-' begins a "-DD-DD" date tail.
func (l *Lexer) looksLikeDateRest() bool {
	rest := l.input[l.position:]
	if len(rest) < 6 {
		return false
	}
	if rest[0] != '-' || !isASCIIDigit(rest[1]) || !isASCIIDigit(rest[2]) || rest[3] != '-' ||
		!isASCIIDigit(rest[4]) || !isASCIIDigit(rest[5]) {
		return false
	}
	return true
}

func (l *Lexer) matchesAhead(s string) bool {
	rest := l.input[l.position:]
	return strings.HasPrefix(rest, "b"+s)
}

func isASCIIDigit(b byte) bool { return b >= '0' && b <= '9' }

func isDigit(ch rune) bool { return ch >= '0' && ch <= '9' }

func isLetter(ch rune) bool {
	return 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z' || ch == '_'
}
