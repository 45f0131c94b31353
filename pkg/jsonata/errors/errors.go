// Package errors provides the structured syntax error reported by the
// JSONata lexer and parser.
//
// Messages come from a catalog keyed by the jsonata error code (S0101 etc.)
// so that they read the same as the reference implementation's. Error()
// returns the normalized form used everywhere a single line is wanted:
//
//	The symbol "+" cannot be used as a unary operator, code: S0211, position: 1, token: +
package errors

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"text/template"

	"github.com/sambeau/jsonatafmt/pkg/jsonata/ast"
)

// SyntaxError is a lexing or parsing failure.
type SyntaxError struct {
	Code     string         `json:"code"`
	Message  string         `json:"message"`
	Position int            `json:"position"` // byte offset just past the offending token, -1 if unknown
	Token    any            `json:"token,omitempty"`
	Value    any            `json:"value,omitempty"`
	File     string         `json:"file,omitempty"`
	Data     map[string]any `json:"-"`

	hasToken bool
}

// Error implements the error interface.
func (e *SyntaxError) Error() string {
	parts := []string{e.Message}
	if e.Code != "" {
		parts = append(parts, "code: "+e.Code)
	}
	if e.Position >= 0 {
		parts = append(parts, "position: "+strconv.Itoa(e.Position))
	}
	if e.hasToken {
		parts = append(parts, "token: "+display(e.Token))
	}
	return strings.Join(parts, ", ")
}

// HasToken reports whether the error names an offending token.
func (e *SyntaxError) HasToken() bool { return e.hasToken }

// TokenString returns the offending token as it appears in Error().
func (e *SyntaxError) TokenString() string {
	if !e.hasToken {
		return ""
	}
	return display(e.Token)
}

// LineColumn converts the byte position into a 1-based line and column of
// source. Both are 0 when the position is unknown.
func (e *SyntaxError) LineColumn(source string) (line, column int) {
	if e.Position < 0 {
		return 0, 0
	}
	pos := min(e.Position, len(source))
	// positions point just past the token; report its last character
	if pos > 0 {
		pos--
	}
	line = 1 + strings.Count(source[:pos], "\n")
	start := strings.LastIndexByte(source[:pos], '\n') + 1
	return line, pos - start + 1
}

// PrettyString returns a multi-line description with the offending source
// line and a caret under the error position.
func (e *SyntaxError) PrettyString(source string) string {
	var sb strings.Builder

	sb.WriteString("Syntax error")
	line, col := e.LineColumn(source)
	if e.File != "" {
		sb.WriteString(":\n  in: ")
		sb.WriteString(e.File)
		if line > 0 {
			fmt.Fprintf(&sb, "\n  at: line %d, column %d", line, col)
		}
		sb.WriteString("\n  ")
	} else if line > 0 {
		fmt.Fprintf(&sb, ": line %d, column %d\n  ", line, col)
	} else {
		sb.WriteString(":\n  ")
	}
	sb.WriteString(e.Message)
	if e.Code != "" {
		sb.WriteString(" [")
		sb.WriteString(e.Code)
		sb.WriteString("]")
	}

	if line > 0 {
		lines := strings.Split(source, "\n")
		if line <= len(lines) {
			src := lines[line-1]
			fmt.Fprintf(&sb, "\n\n  %s\n  %s^", src, caretPadding(src, col))
		}
	}
	return sb.String()
}

// caretPadding keeps tabs in the source line so the caret lines up.
func caretPadding(src string, col int) string {
	var pad strings.Builder
	for i, r := range src {
		if i >= col-1 {
			break
		}
		if r == '\t' {
			pad.WriteByte('\t')
		} else {
			pad.WriteByte(' ')
		}
	}
	return pad.String()
}

// ToJSON returns the error as JSON bytes.
func (e *SyntaxError) ToJSON() ([]byte, error) {
	return json.Marshal(e.Fields())
}

// Fields returns the diagnostic fields that are present, keyed the way
// jsonata names them.
func (e *SyntaxError) Fields() map[string]any {
	m := map[string]any{"message": e.Message}
	if e.Code != "" {
		m["code"] = e.Code
	}
	if e.Position >= 0 {
		m["position"] = e.Position
	}
	if e.hasToken {
		m["token"] = display(e.Token)
	}
	if e.File != "" {
		m["file"] = e.File
	}
	return m
}

// WithFile returns a copy of the error with the file path set.
func (e *SyntaxError) WithFile(file string) *SyntaxError {
	copy := *e
	copy.File = file
	return &copy
}

// Error codes raised by the lexer and parser.
const (
	UnterminatedString   = "S0101"
	NumberOutOfRange     = "S0102"
	UnsupportedEscape    = "S0103"
	BadUnicodeEscape     = "S0104"
	UnterminatedBacktick = "S0105"
	UnterminatedComment  = "S0106"
	SyntaxErrorToken     = "S0201"
	ExpectedToken        = "S0202"
	ExpectedBeforeEnd    = "S0203"
	UnknownOperator      = "S0204"
	UnexpectedToken      = "S0205"
	UnknownExpression    = "S0206"
	UnexpectedEnd        = "S0207"
	LambdaParameter      = "S0208"
	PredicateAfterGroup  = "S0209"
	MultipleGroups       = "S0210"
	NotUnaryOperator     = "S0211"
	BindTarget           = "S0212"
	LiteralStep          = "S0213"
	BindRightSide        = "S0214"
	FocusAfterPredicate  = "S0215"
	FocusAfterSort       = "S0216"
	ParentDerivation     = "S0217"
	EmptyRegex           = "S0301"
	UnterminatedRegex    = "S0302"
	UnsupportedSignature = "S0401"
	SignatureChoice      = "S0402"
)

// Catalog maps error codes to message templates. Templates see the error
// data as .Token and .Value; the json function quotes a value the way
// JSON.stringify would.
var Catalog = map[string]string{
	UnterminatedString:   "String literal must be terminated by a matching quote",
	NumberOutOfRange:     "Number out of range: {{json .Token}}",
	UnsupportedEscape:    "Unsupported escape sequence: \\{{.Token}}",
	BadUnicodeEscape:     "The escape sequence \\u must be followed by 4 hex digits",
	UnterminatedBacktick: "Quoted property name must be terminated with a backquote (`)",
	UnterminatedComment:  "Comment has no closing tag",
	SyntaxErrorToken:     "Syntax error: {{json .Token}}",
	ExpectedToken:        "Expected {{json .Value}}, got {{json .Token}}",
	ExpectedBeforeEnd:    "Expected {{json .Value}} before end of expression",
	UnknownOperator:      "Unknown operator: {{json .Token}}",
	UnexpectedToken:      "Unexpected token: {{json .Token}}",
	UnknownExpression:    "Unknown expression type: {{json .Token}}",
	UnexpectedEnd:        "Unexpected end of expression",
	LambdaParameter:      "Parameter {{.Value}} of function definition must be a variable name (start with $)",
	PredicateAfterGroup:  "A predicate cannot follow a grouping expression in a step",
	MultipleGroups:       "Each step can only have one grouping expression",
	NotUnaryOperator:     "The symbol {{json .Token}} cannot be used as a unary operator",
	BindTarget:           "The left side of := must be a variable name (start with $)",
	LiteralStep:          "The literal value {{json .Value}} cannot be used as a step within a path expression",
	BindRightSide:        "The right side of {{json .Token}} must be a variable name (start with $)",
	FocusAfterPredicate:  "A context variable binding must precede any predicates on a step",
	FocusAfterSort:       "A context variable binding must precede the 'order-by' clause on a step",
	ParentDerivation:     "The object representing the 'parent' cannot be derived from this expression",
	EmptyRegex:           "Empty regular expressions are not allowed",
	UnterminatedRegex:    "No terminating / in regular expression",
	UnsupportedSignature: "Type parameters can only be applied to functions and arrays",
	SignatureChoice:      "Choice groups containing parameterized types are not supported",
}

var funcs = template.FuncMap{"json": jsonString}

// New creates a SyntaxError for code. data may carry "Token" and "Value";
// a "Token" key is reported even when its value is nil.
func New(code string, position int, data map[string]any) *SyntaxError {
	e := &SyntaxError{Code: code, Position: position, Data: data}
	if data != nil {
		e.Token, e.hasToken = data["Token"]
		e.Value = data["Value"]
	}
	tmpl, ok := Catalog[code]
	if !ok {
		e.Message = code
		if m, ok := data["message"].(string); ok {
			e.Message = m
		}
		return e
	}
	e.Message = renderTemplate(tmpl, data)
	return e
}

func renderTemplate(tmpl string, data map[string]any) string {
	t, err := template.New("msg").Funcs(funcs).Option("missingkey=zero").Parse(tmpl)
	if err != nil {
		return tmpl
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return tmpl
	}
	return buf.String()
}

// jsonString renders v as JSON.stringify would. Integral floats lose their
// fraction, as numbers do in JavaScript.
func jsonString(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case float64:
		return ast.FormatNumber(x)
	case string:
		return ast.Quote(x)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

// display renders v as JavaScript string interpolation would.
func display(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return x
	case float64:
		return ast.FormatNumber(x)
	}
	return fmt.Sprint(v)
}
