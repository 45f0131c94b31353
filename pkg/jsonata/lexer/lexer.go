// Package lexer tokenizes JSONata source.
//
// Positions follow jsonata: a token's Position is the byte offset just past
// its last character. Comments are skipped like whitespace but recorded, so
// the formatter can put them back.
package lexer

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/sambeau/jsonatafmt/pkg/jsonata/ast"
	"github.com/sambeau/jsonatafmt/pkg/jsonata/errors"
)

// TokenType identifies the kind of token.
type TokenType int

const (
	EOF TokenType = iota
	NAME
	VARIABLE
	STRING
	NUMBER
	VALUE
	REGEX
	OPERATOR
)

var tokenNames = map[TokenType]string{
	EOF:      "end",
	NAME:     "name",
	VARIABLE: "variable",
	STRING:   "string",
	NUMBER:   "number",
	VALUE:    "value",
	REGEX:    "regex",
	OPERATOR: "operator",
}

func (t TokenType) String() string {
	if s, ok := tokenNames[t]; ok {
		return s
	}
	return "unknown"
}

// Token is a lexical token.
type Token struct {
	Type     TokenType
	Literal  string  // operator symbol, name, variable name without $, string value, regex pattern
	Number   float64 // NUMBER only
	Value    any     // VALUE only: true, false or nil
	Flags    string  // REGEX only
	Position int
}

// JSValue returns the token's value as jsonata reports it in errors.
func (t Token) JSValue() any {
	switch t.Type {
	case NUMBER:
		return t.Number
	case VALUE:
		return t.Value
	case EOF:
		return "(end)"
	}
	return t.Literal
}

// operatorChars are the single characters that end a name.
const operatorChars = ".[]{}(),@#;:?+-*/%|=<>^&!~"

// doubleOperators are the two-character operators, checked before single
// characters.
var doubleOperators = []string{"..", ":=", "!=", ">=", "<=", "**", "~>"}

var escapes = map[byte]string{
	'"':  "\"",
	'\\': "\\",
	'/':  "/",
	'b':  "\b",
	'f':  "\f",
	'n':  "\n",
	'r':  "\r",
	't':  "\t",
}

var numberPattern = regexp.MustCompile(`^-?(0|([1-9][0-9]*))(\.[0-9]+)?([Ee][-+]?[0-9]+)?`)

// Lexer scans one expression.
type Lexer struct {
	input    string
	position int
	comments []ast.Comment
}

// New returns a lexer over input.
func New(input string) *Lexer {
	return &Lexer{input: input}
}

// Comments returns the block comments skipped so far, in source order.
func (l *Lexer) Comments() []ast.Comment {
	return l.comments
}

// Position returns the current byte offset.
func (l *Lexer) Position() int {
	return l.position
}

func (l *Lexer) charAt(i int) byte {
	if i < 0 || i >= len(l.input) {
		return 0
	}
	return l.input[i]
}

func isWhitespace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r' || ch == '\v'
}

func (l *Lexer) token(t TokenType, literal string) Token {
	return Token{Type: t, Literal: literal, Position: l.position}
}

// Next returns the next token. infix is true when the previous token ended
// an operand, in which case a / is division rather than the start of a
// regex literal.
func (l *Lexer) Next(infix bool) (Token, error) {
	for {
		if l.position >= len(l.input) {
			return Token{Type: EOF, Position: len(l.input)}, nil
		}
		for l.position < len(l.input) && isWhitespace(l.input[l.position]) {
			l.position++
		}
		if l.charAt(l.position) == '/' && l.charAt(l.position+1) == '*' {
			if err := l.skipComment(); err != nil {
				return Token{}, err
			}
			continue
		}
		break
	}
	if l.position >= len(l.input) {
		return Token{Type: EOF, Position: len(l.input)}, nil
	}

	ch := l.input[l.position]

	if !infix && ch == '/' {
		l.position++
		return l.readRegex()
	}

	for _, op := range doubleOperators {
		if strings.HasPrefix(l.input[l.position:], op) {
			l.position += 2
			return l.token(OPERATOR, op), nil
		}
	}

	if strings.IndexByte(operatorChars, ch) >= 0 {
		l.position++
		return l.token(OPERATOR, string(ch)), nil
	}

	if ch == '"' || ch == '\'' {
		return l.readString(ch)
	}

	if m := numberPattern.FindString(l.input[l.position:]); m != "" {
		f, err := strconv.ParseFloat(m, 64)
		if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
			return Token{}, errors.New(errors.NumberOutOfRange, l.position, map[string]any{"Token": m})
		}
		l.position += len(m)
		tok := l.token(NUMBER, m)
		tok.Number = f
		return tok, nil
	}

	if ch == '`' {
		l.position++
		end := strings.IndexByte(l.input[l.position:], '`')
		if end < 0 {
			l.position = len(l.input)
			return Token{}, errors.New(errors.UnterminatedBacktick, l.position, nil)
		}
		name := l.input[l.position : l.position+end]
		l.position += end + 1
		return l.token(NAME, name), nil
	}

	return l.readName(), nil
}

func (l *Lexer) skipComment() error {
	start := l.position
	end := strings.Index(l.input[start+2:], "*/")
	if end < 0 {
		l.position = len(l.input)
		return errors.New(errors.UnterminatedComment, start, nil)
	}
	body := l.input[start+2 : start+2+end]
	l.comments = append(l.comments, ast.Comment{Position: start, Text: strings.TrimSpace(body)})
	l.position = start + 2 + end + 2
	return nil
}

func (l *Lexer) readName() Token {
	i := l.position
	for i < len(l.input) && !isWhitespace(l.input[i]) && strings.IndexByte(operatorChars, l.input[i]) < 0 {
		i++
	}
	if l.input[l.position] == '$' {
		name := l.input[l.position+1 : i]
		l.position = i
		return l.token(VARIABLE, name)
	}
	name := l.input[l.position:i]
	l.position = i
	switch name {
	case "and", "or", "in":
		return l.token(OPERATOR, name)
	case "true", "false":
		tok := l.token(VALUE, name)
		tok.Value = name == "true"
		return tok
	case "null":
		return l.token(VALUE, name)
	}
	return l.token(NAME, name)
}

func (l *Lexer) readString(quote byte) (Token, error) {
	l.position++
	var sb strings.Builder
	for l.position < len(l.input) {
		ch := l.input[l.position]
		switch {
		case ch == '\\':
			l.position++
			esc := l.charAt(l.position)
			if s, ok := escapes[esc]; ok {
				sb.WriteString(s)
			} else if esc == 'u' {
				r, ok := l.hexQuad(l.position + 1)
				if !ok {
					return Token{}, errors.New(errors.BadUnicodeEscape, l.position, nil)
				}
				l.position += 4
				if utf16.IsSurrogate(r) {
					// a surrogate pair arrives as two consecutive escapes
					if l.charAt(l.position+1) == '\\' && l.charAt(l.position+2) == 'u' {
						if lo, ok := l.hexQuad(l.position + 3); ok {
							if pair := utf16.DecodeRune(r, lo); pair != utf8.RuneError {
								r = pair
								l.position += 6
							}
						}
					}
				}
				sb.WriteRune(r)
			} else {
				return Token{}, errors.New(errors.UnsupportedEscape, l.position, map[string]any{"Token": string(esc)})
			}
		case ch == quote:
			l.position++
			return l.token(STRING, sb.String()), nil
		default:
			sb.WriteByte(ch)
		}
		l.position++
	}
	return Token{}, errors.New(errors.UnterminatedString, l.position, nil)
}

func (l *Lexer) hexQuad(at int) (rune, bool) {
	if at+4 > len(l.input) {
		return 0, false
	}
	v, err := strconv.ParseUint(l.input[at:at+4], 16, 32)
	if err != nil {
		return 0, false
	}
	return rune(v), true
}

// readRegex scans up to the closing slash that is not escaped and not
// inside a bracketed group, then any i and m flags.
func (l *Lexer) readRegex() (Token, error) {
	start := l.position
	depth := 0
	for l.position < len(l.input) {
		ch := l.input[l.position]
		if ch == '/' && depth == 0 && l.unescaped(l.position) {
			pattern := l.input[start:l.position]
			if pattern == "" {
				return Token{}, errors.New(errors.EmptyRegex, l.position, nil)
			}
			l.position++
			flagStart := l.position
			for c := l.charAt(l.position); c == 'i' || c == 'm'; c = l.charAt(l.position) {
				l.position++
			}
			tok := l.token(REGEX, pattern)
			tok.Flags = l.input[flagStart:l.position]
			return tok, nil
		}
		prev := l.charAt(l.position - 1)
		if (ch == '(' || ch == '[' || ch == '{') && prev != '\\' {
			depth++
		}
		if (ch == ')' || ch == ']' || ch == '}') && prev != '\\' {
			depth--
		}
		l.position++
	}
	return Token{}, errors.New(errors.UnterminatedRegex, l.position, nil)
}

// unescaped reports whether the character at i is preceded by an even
// number of backslashes.
func (l *Lexer) unescaped(i int) bool {
	n := 0
	for l.charAt(i-(n+1)) == '\\' {
		n++
	}
	return n%2 == 0
}
