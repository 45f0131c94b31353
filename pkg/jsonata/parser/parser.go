// Package parser turns JSONata source into an ast.Program.
//
// Parsing runs in two passes the way jsonata-js does: a Pratt parser builds
// a raw operator tree, then process rewrites it into the tree shape the
// formatter and other jsonata tooling expect (paths, stages, thunks).
// Parsing stops at the first error.
package parser

import (
	"github.com/sambeau/jsonatafmt/pkg/jsonata/ast"
	"github.com/sambeau/jsonatafmt/pkg/jsonata/errors"
	"github.com/sambeau/jsonatafmt/pkg/jsonata/lexer"
)

// Left binding powers of the infix operators.
var precedences = map[string]int{
	".":   75,
	"[":   80,
	"{":   70,
	"(":   80,
	"@":   80,
	"#":   80,
	"?":   20,
	"+":   50,
	"-":   50,
	"*":   60,
	"/":   60,
	"%":   60,
	"=":   40,
	"<":   40,
	">":   40,
	"^":   40,
	"!=":  40,
	"<=":  40,
	">=":  40,
	"~>":  40,
	"in":  40,
	"&":   50,
	"and": 30,
	"or":  25,
	":=":  10,
}

// symbols the parser knows but which never bind to the left.
var terminators = map[string]bool{
	":":  true,
	";":  true,
	",":  true,
	")":  true,
	"]":  true,
	"}":  true,
	"..": true,
	"|":  true,
	"**": true,
}

const (
	symEnd     = "(end)"
	symName    = "(name)"
	symLiteral = "(literal)"
	symRegex   = "(regex)"
)

// pnode is a node of the raw operator tree. Every token becomes a pnode;
// nud and led fill in the operands.
type pnode struct {
	id       string // symbol: operator text or one of the sym* names
	typ      string // token type, then the node type set by nud/led
	tok      lexer.Token
	position int

	lhs       *pnode
	rhs       *pnode
	pairs     [][2]*pnode
	exprs     []*pnode
	expr      *pnode
	procedure *pnode
	args      []*pnode
	cond      *pnode
	then      *pnode
	els       *pnode
	pattern   *pnode
	update    *pnode
	del       *pnode
	terms     []pterm
	body      *pnode
	signature string
	keepArray bool
}

type pterm struct {
	descending bool
	expr       *pnode
}

// value is the token value jsonata reports in errors.
func (n *pnode) value() any {
	if n.id == symEnd {
		return symEnd
	}
	if n.tok.Type == lexer.OPERATOR {
		return n.id
	}
	return n.tok.JSValue()
}

// Parser parses a single expression.
type Parser struct {
	l      *lexer.Lexer
	source string
	node   *pnode

	parentLabel int
}

// New returns a parser over source.
func New(source string) *Parser {
	return &Parser{l: lexer.New(source), source: source}
}

// Parse parses source into a program carrying its comments.
func Parse(source string) (*ast.Program, error) {
	return New(source).ParseProgram()
}

// ParseProgram parses the whole input. The error, if any, is an
// *errors.SyntaxError.
func (p *Parser) ParseProgram() (*ast.Program, error) {
	if err := p.advance("", false); err != nil {
		return nil, err
	}
	raw, err := p.expression(0)
	if err != nil {
		return nil, err
	}
	if p.node.id != symEnd {
		return nil, errors.New(errors.SyntaxErrorToken, p.node.position, map[string]any{"Token": p.node.value()})
	}
	expr, err := p.process(raw)
	if err != nil {
		return nil, err
	}
	if ast.IsParent(expr) {
		return nil, errors.New(errors.ParentDerivation, expr.Pos(), map[string]any{"Token": string(ast.KindParent)})
	}
	return &ast.Program{Expr: expr, Comments: p.l.Comments()}, nil
}

// advance checks that the current symbol is id (when given) and moves to
// the next token.
func (p *Parser) advance(id string, infix bool) error {
	if id != "" && p.node.id != id {
		code := errors.ExpectedToken
		if p.node.id == symEnd {
			code = errors.ExpectedBeforeEnd
		}
		return errors.New(code, p.node.position, map[string]any{"Token": p.node.value(), "Value": id})
	}
	tok, err := p.l.Next(infix)
	if err != nil {
		return err
	}
	n := &pnode{tok: tok, position: tok.Position, typ: tok.Type.String()}
	switch tok.Type {
	case lexer.EOF:
		n.id = symEnd
		n.typ = ""
		n.position = len(p.source)
	case lexer.NAME, lexer.VARIABLE:
		n.id = symName
	case lexer.STRING, lexer.NUMBER, lexer.VALUE:
		n.id = symLiteral
	case lexer.REGEX:
		n.id = symRegex
	case lexer.OPERATOR:
		if _, ok := precedences[tok.Literal]; !ok && !terminators[tok.Literal] {
			return errors.New(errors.UnknownOperator, tok.Position, map[string]any{"Token": tok.Literal})
		}
		n.id = tok.Literal
	default:
		return errors.New(errors.UnexpectedToken, tok.Position, map[string]any{"Token": tok.Literal})
	}
	p.node = n
	return nil
}

func (p *Parser) lbp(n *pnode) int {
	if n.tok.Type != lexer.OPERATOR {
		return 0
	}
	return precedences[n.id]
}

// expression is the Pratt loop.
func (p *Parser) expression(rbp int) (*pnode, error) {
	t := p.node
	if err := p.advance("", true); err != nil {
		return nil, err
	}
	left, err := p.nud(t)
	if err != nil {
		return nil, err
	}
	for rbp < p.lbp(p.node) {
		t = p.node
		if err := p.advance("", false); err != nil {
			return nil, err
		}
		if left, err = p.led(t, left); err != nil {
			return nil, err
		}
	}
	return left, nil
}

func (p *Parser) nud(t *pnode) (*pnode, error) {
	switch t.id {
	case symName, symLiteral, symRegex, symEnd, "and", "or", "in":
		return t, nil
	case "-":
		expr, err := p.expression(70)
		if err != nil {
			return nil, err
		}
		t.expr = expr
		t.typ = "unary"
		return t, nil
	case "*":
		t.typ = "wildcard"
		return t, nil
	case "**":
		t.typ = "descendant"
		return t, nil
	case "%":
		t.typ = "parent"
		return t, nil
	case "(":
		return p.parseBlock(t)
	case "[":
		return p.parseArray(t)
	case "{":
		return p.parseObject(t, nil)
	case "|":
		return p.parseTransform(t)
	}
	return nil, errors.New(errors.NotUnaryOperator, t.position, map[string]any{"Token": t.value()})
}

func (p *Parser) led(t *pnode, left *pnode) (*pnode, error) {
	switch t.id {
	case "(":
		return p.parseCall(t, left)
	case "[":
		return p.parsePredicate(t, left)
	case "^":
		return p.parseSort(t, left)
	case "{":
		return p.parseObject(t, left)
	case ":=":
		return p.parseBind(t, left)
	case "@", "#":
		return p.parseBinding(t, left)
	case "?":
		return p.parseCondition(t, left)
	}
	rhs, err := p.expression(precedences[t.id])
	if err != nil {
		return nil, err
	}
	t.lhs = left
	t.rhs = rhs
	t.typ = "binary"
	return t, nil
}

func (p *Parser) parseBlock(t *pnode) (*pnode, error) {
	exprs := []*pnode{}
	for p.node.id != ")" {
		e, err := p.expression(0)
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, e)
		if p.node.id != ";" {
			break
		}
		if err := p.advance(";", false); err != nil {
			return nil, err
		}
	}
	if err := p.advance(")", true); err != nil {
		return nil, err
	}
	t.typ = "block"
	t.exprs = exprs
	return t, nil
}

func (p *Parser) parseArray(t *pnode) (*pnode, error) {
	items := []*pnode{}
	if p.node.id != "]" {
		for {
			item, err := p.expression(0)
			if err != nil {
				return nil, err
			}
			if p.node.id == ".." {
				rng := &pnode{id: "..", typ: "binary", position: p.node.position, lhs: item}
				if err := p.advance("..", false); err != nil {
					return nil, err
				}
				if rng.rhs, err = p.expression(0); err != nil {
					return nil, err
				}
				item = rng
			}
			items = append(items, item)
			if p.node.id != "," {
				break
			}
			if err := p.advance(",", false); err != nil {
				return nil, err
			}
		}
	}
	if err := p.advance("]", true); err != nil {
		return nil, err
	}
	t.exprs = items
	t.typ = "unary"
	return t, nil
}

// parseObject handles both the {k: v} constructor (left == nil) and the
// grouping suffix.
func (p *Parser) parseObject(t *pnode, left *pnode) (*pnode, error) {
	pairs := [][2]*pnode{}
	if p.node.id != "}" {
		for {
			k, err := p.expression(0)
			if err != nil {
				return nil, err
			}
			if err := p.advance(":", false); err != nil {
				return nil, err
			}
			v, err := p.expression(0)
			if err != nil {
				return nil, err
			}
			pairs = append(pairs, [2]*pnode{k, v})
			if p.node.id != "," {
				break
			}
			if err := p.advance(",", false); err != nil {
				return nil, err
			}
		}
	}
	if err := p.advance("}", true); err != nil {
		return nil, err
	}
	t.pairs = pairs
	if left == nil {
		t.typ = "unary"
	} else {
		t.lhs = left
		t.typ = "binary"
	}
	return t, nil
}

func (p *Parser) parseTransform(t *pnode) (*pnode, error) {
	var err error
	t.typ = "transform"
	if t.pattern, err = p.expression(0); err != nil {
		return nil, err
	}
	if err := p.advance("|", false); err != nil {
		return nil, err
	}
	if t.update, err = p.expression(0); err != nil {
		return nil, err
	}
	if p.node.id == "," {
		if err := p.advance(",", false); err != nil {
			return nil, err
		}
		if t.del, err = p.expression(0); err != nil {
			return nil, err
		}
	}
	if err := p.advance("|", false); err != nil {
		return nil, err
	}
	return t, nil
}

// parseCall parses an invocation, which becomes a lambda definition when
// the callee is the name function or λ.
func (p *Parser) parseCall(t *pnode, left *pnode) (*pnode, error) {
	t.procedure = left
	t.typ = "function"
	t.args = []*pnode{}
	if p.node.id != ")" {
		for {
			if p.node.tok.Type == lexer.OPERATOR && p.node.id == "?" {
				t.typ = "partial"
				t.args = append(t.args, p.node)
				if err := p.advance("?", false); err != nil {
					return nil, err
				}
			} else {
				arg, err := p.expression(0)
				if err != nil {
					return nil, err
				}
				t.args = append(t.args, arg)
			}
			if p.node.id != "," {
				break
			}
			if err := p.advance(",", false); err != nil {
				return nil, err
			}
		}
	}
	if err := p.advance(")", true); err != nil {
		return nil, err
	}

	if left.typ != "name" || (left.tok.Literal != "function" && left.tok.Literal != "λ") {
		return t, nil
	}

	for i, arg := range t.args {
		if arg.typ != "variable" {
			return nil, errors.New(errors.LambdaParameter, arg.position, map[string]any{"Token": arg.value(), "Value": i + 1})
		}
	}
	t.typ = "lambda"
	if p.node.id == "<" {
		depth := 1
		sig := "<"
		for depth > 0 && p.node.id != "{" && p.node.id != symEnd {
			if err := p.advance("", false); err != nil {
				return nil, err
			}
			switch p.node.id {
			case ">":
				depth--
			case "<":
				depth++
			}
			sig += p.node.tok.Literal
		}
		if err := p.advance(">", false); err != nil {
			return nil, err
		}
		t.signature = sig
	}
	if err := p.advance("{", false); err != nil {
		return nil, err
	}
	body, err := p.expression(0)
	if err != nil {
		return nil, err
	}
	t.body = body
	if err := p.advance("}", false); err != nil {
		return nil, err
	}
	return t, nil
}

// parsePredicate parses a filter, or the empty [] that keeps singleton
// arrays.
func (p *Parser) parsePredicate(t *pnode, left *pnode) (*pnode, error) {
	if p.node.id == "]" {
		step := left
		for step != nil && step.typ == "binary" && step.id == "[" {
			step = step.lhs
		}
		step.keepArray = true
		if err := p.advance("]", false); err != nil {
			return nil, err
		}
		return left, nil
	}
	rhs, err := p.expression(0)
	if err != nil {
		return nil, err
	}
	t.lhs = left
	t.rhs = rhs
	t.typ = "binary"
	if err := p.advance("]", true); err != nil {
		return nil, err
	}
	return t, nil
}

func (p *Parser) parseSort(t *pnode, left *pnode) (*pnode, error) {
	if err := p.advance("(", false); err != nil {
		return nil, err
	}
	var terms []pterm
	for {
		var term pterm
		switch p.node.id {
		case "<":
			if err := p.advance("<", false); err != nil {
				return nil, err
			}
		case ">":
			term.descending = true
			if err := p.advance(">", false); err != nil {
				return nil, err
			}
		}
		expr, err := p.expression(0)
		if err != nil {
			return nil, err
		}
		term.expr = expr
		terms = append(terms, term)
		if p.node.id != "," {
			break
		}
		if err := p.advance(",", false); err != nil {
			return nil, err
		}
	}
	if err := p.advance(")", false); err != nil {
		return nil, err
	}
	t.lhs = left
	t.terms = terms
	t.typ = "sort"
	return t, nil
}

func (p *Parser) parseBind(t *pnode, left *pnode) (*pnode, error) {
	if left.typ != "variable" {
		return nil, errors.New(errors.BindTarget, left.position, map[string]any{"Token": left.value()})
	}
	// right associative
	rhs, err := p.expression(precedences[":="] - 1)
	if err != nil {
		return nil, err
	}
	t.lhs = left
	t.rhs = rhs
	t.typ = "binary"
	return t, nil
}

// parseBinding parses the @$focus and #$index suffixes.
func (p *Parser) parseBinding(t *pnode, left *pnode) (*pnode, error) {
	rhs, err := p.expression(precedences[t.id])
	if err != nil {
		return nil, err
	}
	if rhs.typ != "variable" {
		return nil, errors.New(errors.BindRightSide, rhs.position, map[string]any{"Token": t.id})
	}
	t.lhs = left
	t.rhs = rhs
	t.typ = "binary"
	return t, nil
}

func (p *Parser) parseCondition(t *pnode, left *pnode) (*pnode, error) {
	var err error
	t.typ = "condition"
	t.cond = left
	if t.then, err = p.expression(0); err != nil {
		return nil, err
	}
	if p.node.id == ":" {
		if err := p.advance(":", false); err != nil {
			return nil, err
		}
		if t.els, err = p.expression(0); err != nil {
			return nil, err
		}
	}
	return t, nil
}
