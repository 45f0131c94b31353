package format

import (
	"github.com/sambeau/jsonatafmt/pkg/jsonata/ast"
	"github.com/sambeau/jsonatafmt/pkg/jsonata/doc"
)

// printBinary breaks before the operator when the expression is too long.
// The range operator keeps its operands tight.
func (p *printer) printBinary(n *ast.BinaryNode) doc.Doc {
	if n.Value == ".." {
		return doc.Group(p.print(n.LHS), doc.Indent(doc.SoftLine, doc.Text(".."), p.print(n.RHS)))
	}
	return doc.Group(p.print(n.LHS), doc.Indent(doc.Line, doc.Text(n.Value), doc.Text(" "), p.print(n.RHS)))
}

func (p *printer) printFunction(n *ast.FunctionNode) doc.Doc {
	return doc.Group(
		p.print(n.Procedure),
		doc.Text("("),
		p.printArguments(n.Arguments),
		doc.Text(")"),
		p.suffix(&n.Decorations),
	)
}

// printArguments keeps a single argument glued to its parentheses; two or
// more go one per line when the call does not fit.
func (p *printer) printArguments(args []ast.Node) doc.Doc {
	switch len(args) {
	case 0:
		return doc.Empty
	case 1:
		return p.print(args[0])
	}
	docs := make([]doc.Doc, len(args))
	for i, a := range args {
		docs[i] = p.print(a)
	}
	return doc.Concat(
		doc.Indent(doc.SoftLine, doc.Join(doc.Concat(doc.Text(","), doc.Line), docs)),
		doc.SoftLine,
	)
}

// printLambda always puts the body on its own line. Thunks were added by
// the parser around tail calls and print as their body.
func (p *printer) printLambda(n *ast.LambdaNode) doc.Doc {
	if n.Thunk {
		return p.print(n.Body)
	}
	header := doc.Group(
		doc.Text("function("),
		p.printArguments(n.Arguments),
		doc.Text(")"),
		doc.Text(n.Signature),
	)
	return doc.Group(
		header,
		doc.Text(" {"),
		doc.Indent(doc.HardLine, p.print(n.Body)),
		doc.HardLine,
		doc.Text("}"),
		p.suffix(&n.Decorations),
	)
}

// printCondition never collapses a ternary nested in another one.
func (p *printer) printCondition(n *ast.ConditionNode) doc.Doc {
	brk := doc.Line
	if ast.IsCondition(p.parent()) {
		brk = doc.HardLine
	}
	parts := []doc.Doc{
		p.print(n.Condition),
		doc.Indent(brk, doc.Text("? "), p.print(n.Then)),
	}
	if !ast.IsNil(n.Else) {
		parts = append(parts, doc.Indent(brk, doc.Text(": "), p.print(n.Else)))
	}
	return doc.Group(parts...)
}

func (p *printer) printBlock(n *ast.BlockNode) doc.Doc {
	switch len(n.Expressions) {
	case 0:
		return doc.Group(doc.Text("()"), p.suffix(&n.Decorations))
	case 1:
		return doc.Group(doc.Text("("), p.print(n.Expressions[0]), doc.Text(")"), p.suffix(&n.Decorations))
	}
	exprs := make([]doc.Doc, len(n.Expressions))
	for i, e := range n.Expressions {
		exprs[i] = p.print(e)
	}
	return doc.Group(
		doc.Text("("),
		doc.Indent(doc.HardLine, doc.Join(doc.Concat(doc.Text(";"), doc.HardLine), exprs)),
		doc.HardLine,
		doc.Text(")"),
		p.suffix(&n.Decorations),
	)
}

// printPath puts each step after the first on its own line when the path
// is too long. Sort steps stay attached to the step they order.
func (p *printer) printPath(n *ast.PathNode) doc.Doc {
	parts := make([]doc.Doc, 0, len(n.Steps)+1)
	stepKeepsArray := false
	for i, step := range n.Steps {
		if !ast.IsNil(step) {
			if d := step.Decor(); d != nil && d.KeepArray {
				stepKeepsArray = true
			}
		}
		switch {
		case i == 0:
			parts = append(parts, p.print(step))
		case ast.IsSort(step):
			parts = append(parts, doc.Indent(doc.Text("^"), p.print(step)))
		default:
			parts = append(parts, doc.Indent(doc.SoftLine, doc.Text("."), p.print(step)))
		}
	}

	// the path repeats the [] of its steps; print it once
	d := n.Decorations
	if stepKeepsArray {
		d.KeepArray = false
	}
	parts = append(parts, p.suffix(&d))
	return doc.Group(parts...)
}

func (p *printer) printFilter(n *ast.FilterNode) doc.Doc {
	return doc.Group(doc.Text("["), doc.Indent(doc.SoftLine, p.print(n.Expr)), doc.SoftLine, doc.Text("]"))
}

func (p *printer) printSort(n *ast.SortNode) doc.Doc {
	terms := make([]doc.Doc, len(n.Terms))
	for i, term := range n.Terms {
		dir := "<"
		if term.Descending {
			dir = ">"
		}
		terms[i] = doc.Concat(doc.Text(dir), p.print(term.Expression))
	}
	return doc.Group(
		doc.Text("("),
		doc.Indent(doc.SoftLine, doc.Join(doc.Concat(doc.Text(","), doc.Line), terms)),
		doc.SoftLine,
		doc.Text(")"),
		p.suffix(&n.Decorations),
	)
}

// printPairs renders the inside of an object constructor or group. A value
// that is itself an object or array forces every pair onto its own line.
func (p *printer) printPairs(pairs []ast.Pair) doc.Doc {
	if len(pairs) == 0 {
		return doc.Empty
	}
	brk := doc.Line
	if ast.HasNestedConstructor(pairs) {
		brk = doc.HardLine
	}
	entries := make([]doc.Doc, len(pairs))
	for i, pair := range pairs {
		entries[i] = doc.Group(p.print(pair.Key), doc.Text(": "), p.print(pair.Value))
	}
	return doc.Concat(doc.Indent(brk, doc.Join(doc.Concat(doc.Text(","), brk), entries)), brk)
}

func (p *printer) printArray(n *ast.ArrayNode) doc.Doc {
	items := make([]doc.Doc, len(n.Expressions))
	for i, e := range n.Expressions {
		items[i] = p.print(e)
	}
	return doc.Group(
		doc.Text("["),
		doc.Indent(doc.SoftLine, doc.Join(doc.Concat(doc.Text(","), doc.Line), items)),
		doc.SoftLine,
		doc.Text("]"),
		p.suffix(&n.Decorations),
	)
}

// printTransform renders |pattern|update| or |pattern|update, delete|.
// A transform yields a function, so it takes no [].
func (p *printer) printTransform(n *ast.TransformNode) doc.Doc {
	mutation := []doc.Doc{p.print(n.Update)}
	if !ast.IsNil(n.Delete) {
		mutation = append(mutation, p.print(n.Delete))
	}
	d := n.Decorations
	d.KeepArray = false
	return doc.Group(
		doc.Text("|"),
		p.print(n.Pattern),
		doc.Text("|"),
		doc.Join(doc.Concat(doc.Text(","), doc.Line), mutation),
		doc.Text("|"),
		p.suffix(&d),
	)
}
