package parser

import (
	"strconv"

	"github.com/sambeau/jsonatafmt/pkg/jsonata/ast"
	"github.com/sambeau/jsonatafmt/pkg/jsonata/errors"
	"github.com/sambeau/jsonatafmt/pkg/jsonata/lexer"
)

// process rewrites the raw operator tree into an ast.Node.
func (p *Parser) process(e *pnode) (ast.Node, error) {
	var result ast.Node
	var err error

	switch e.typ {
	case "binary":
		result, err = p.processBinary(e)
	case "function", "partial":
		result, err = p.processCall(e)
	case "lambda":
		result, err = p.processLambda(e)
	case "condition":
		result, err = p.processCondition(e)
	case "transform":
		result, err = p.processTransform(e)
	case "block":
		result, err = p.processBlock(e)
	case "unary":
		result, err = p.processUnary(e)
	case "sort":
		result, err = p.processSort(e)
	case "name":
		name := &ast.NameNode{Value: e.tok.Literal, Position: e.position}
		name.KeepArray = e.keepArray
		result = &ast.PathNode{Steps: []ast.Node{name}, KeepSingletonArray: e.keepArray, Position: ast.NoPos}
	case "parent":
		label := p.parentLabel
		p.parentLabel++
		result = &ast.ParentNode{
			Slot:     &ast.Slot{Label: "!" + strconv.Itoa(label), Level: 1, Index: label},
			Position: ast.NoPos,
		}
	case "string":
		result = &ast.StringNode{Value: e.tok.Literal, Position: e.position}
	case "number":
		result = &ast.NumberNode{Value: e.tok.Number, Position: e.position}
	case "value":
		result = &ast.ValueNode{Value: e.tok.Value, Position: e.position}
	case "variable":
		result = &ast.VariableNode{Value: e.tok.Literal, Position: e.position}
	case "regex":
		result = &ast.RegexNode{Pattern: e.tok.Literal, Flags: e.tok.Flags, Position: e.position}
	case "wildcard":
		result = &ast.WildcardNode{Value: "*", Position: e.position}
	case "descendant":
		result = &ast.DescendantNode{Value: "**", Position: e.position}
	case "operator":
		switch e.id {
		case "and", "or", "in":
			// keywords used as field names
			name := *e
			name.typ = "name"
			name.tok.Type = lexer.NAME
			return p.process(&name)
		case "?":
			result = &ast.OperatorNode{Value: "?", Position: e.position}
		default:
			return nil, errors.New(errors.SyntaxErrorToken, ast.NoPos, map[string]any{"Token": e.value()})
		}
	default:
		code := errors.UnknownExpression
		if e.id == symEnd {
			code = errors.UnexpectedEnd
		}
		return nil, errors.New(code, e.position, map[string]any{"Token": e.value()})
	}
	if err != nil {
		return nil, err
	}

	if e.keepArray {
		setKeepArray(result)
	}
	return result, nil
}

func setKeepArray(n ast.Node) {
	if a, ok := n.(*ast.ApplyNode); ok {
		a.KeepArray = true
		return
	}
	if d := n.Decor(); d != nil {
		d.KeepArray = true
	}
}

func keepsArray(n ast.Node) bool {
	if a, ok := n.(*ast.ApplyNode); ok {
		return a.KeepArray
	}
	if d := n.Decor(); d != nil {
		return d.KeepArray
	}
	return false
}

func (p *Parser) processBinary(e *pnode) (ast.Node, error) {
	switch e.id {
	case ".":
		return p.processPath(e)
	case "[":
		return p.processFilter(e)
	case "{":
		return p.processGroup(e)
	case ":=":
		lhs, err := p.process(e.lhs)
		if err != nil {
			return nil, err
		}
		rhs, err := p.process(e.rhs)
		if err != nil {
			return nil, err
		}
		return &ast.BindNode{LHS: lhs, RHS: rhs, Position: e.position}, nil
	case "@":
		return p.processFocus(e)
	case "#":
		return p.processIndex(e)
	case "~>":
		lhs, err := p.process(e.lhs)
		if err != nil {
			return nil, err
		}
		rhs, err := p.process(e.rhs)
		if err != nil {
			return nil, err
		}
		return &ast.ApplyNode{
			Value:     "~>",
			LHS:       lhs,
			RHS:       rhs,
			KeepArray: keepsArray(lhs) || keepsArray(rhs),
			Position:  e.position,
		}, nil
	}
	lhs, err := p.process(e.lhs)
	if err != nil {
		return nil, err
	}
	rhs, err := p.process(e.rhs)
	if err != nil {
		return nil, err
	}
	return &ast.BinaryNode{Value: e.id, LHS: lhs, RHS: rhs, Position: e.position}, nil
}

// processPath flattens a chain of dots into one path.
func (p *Parser) processPath(e *pnode) (ast.Node, error) {
	lstep, err := p.process(e.lhs)
	if err != nil {
		return nil, err
	}
	path, ok := lstep.(*ast.PathNode)
	if !ok {
		path = &ast.PathNode{Steps: []ast.Node{lstep}, Position: ast.NoPos}
	}

	rest, err := p.process(e.rhs)
	if err != nil {
		return nil, err
	}
	if rp, ok := rest.(*ast.PathNode); ok {
		path.Steps = append(path.Steps, rp.Steps...)
	} else {
		if d := rest.Decor(); d != nil && d.Predicate != nil {
			d.Stages = d.Predicate
			d.Predicate = nil
		}
		path.Steps = append(path.Steps, rest)
	}

	for i, step := range path.Steps {
		switch s := step.(type) {
		case *ast.NumberNode:
			return nil, errors.New(errors.LiteralStep, s.Position, map[string]any{"Value": s.Value})
		case *ast.ValueNode:
			return nil, errors.New(errors.LiteralStep, s.Position, map[string]any{"Value": s.Value})
		case *ast.StringNode:
			// string literals used as steps are field names
			path.Steps[i] = &ast.NameNode{Decorations: s.Decorations, Value: s.Value, Position: s.Position}
		}
	}
	for _, step := range path.Steps {
		if d := step.Decor(); d != nil && d.KeepArray {
			path.KeepSingletonArray = true
		}
	}
	if a, ok := path.Steps[0].(*ast.ArrayNode); ok {
		a.ConsArray = true
	}
	if a, ok := path.Steps[len(path.Steps)-1].(*ast.ArrayNode); ok {
		a.ConsArray = true
	}
	return path, nil
}

// lastStep returns the node that suffixes attach to: the final step of a
// path, or the node itself.
func lastStep(n ast.Node) ast.Node {
	if path, ok := n.(*ast.PathNode); ok && len(path.Steps) > 0 {
		return path.Steps[len(path.Steps)-1]
	}
	return n
}

func (p *Parser) processFilter(e *pnode) (ast.Node, error) {
	result, err := p.process(e.lhs)
	if err != nil {
		return nil, err
	}
	step := lastStep(result)
	_, inPath := result.(*ast.PathNode)

	d := step.Decor()
	if d == nil {
		return nil, errors.New(errors.SyntaxErrorToken, e.position, map[string]any{"Token": "["})
	}
	if d.Group != nil {
		return nil, errors.New(errors.PredicateAfterGroup, e.position, nil)
	}
	predicate, err := p.process(e.rhs)
	if err != nil {
		return nil, err
	}
	filter := &ast.FilterNode{Expr: predicate, Position: e.position}
	if inPath {
		d.Stages = append(d.Stages, filter)
	} else {
		d.Predicate = append(d.Predicate, filter)
	}
	return result, nil
}

func (p *Parser) processGroup(e *pnode) (ast.Node, error) {
	result, err := p.process(e.lhs)
	if err != nil {
		return nil, err
	}
	d := result.Decor()
	if d == nil {
		return nil, errors.New(errors.SyntaxErrorToken, e.position, map[string]any{"Token": "{"})
	}
	if d.Group != nil {
		return nil, errors.New(errors.MultipleGroups, e.position, nil)
	}
	pairs, err := p.processPairs(e.pairs)
	if err != nil {
		return nil, err
	}
	d.Group = &ast.Group{Pairs: pairs, Position: e.position}
	return result, nil
}

func (p *Parser) processFocus(e *pnode) (ast.Node, error) {
	result, err := p.process(e.lhs)
	if err != nil {
		return nil, err
	}
	step := lastStep(result)
	d := step.Decor()
	if d == nil {
		return nil, errors.New(errors.SyntaxErrorToken, e.position, map[string]any{"Token": "@"})
	}
	if d.Stages != nil || d.Predicate != nil {
		return nil, errors.New(errors.FocusAfterPredicate, e.position, nil)
	}
	if ast.IsSort(step) {
		return nil, errors.New(errors.FocusAfterSort, e.position, nil)
	}
	if e.keepArray {
		d.KeepArray = true
	}
	d.Focus = e.rhs.tok.Literal
	d.Tuple = true
	return result, nil
}

func (p *Parser) processIndex(e *pnode) (ast.Node, error) {
	result, err := p.process(e.lhs)
	if err != nil {
		return nil, err
	}
	var step ast.Node
	if path, ok := result.(*ast.PathNode); ok && len(path.Steps) > 0 {
		step = path.Steps[len(path.Steps)-1]
	} else {
		step = result
		result = &ast.PathNode{Steps: []ast.Node{step}, Position: ast.NoPos}
		if d := step.Decor(); d != nil && d.Predicate != nil {
			d.Stages = d.Predicate
			d.Predicate = nil
		}
	}
	d := step.Decor()
	if d == nil {
		return nil, errors.New(errors.SyntaxErrorToken, e.position, map[string]any{"Token": "#"})
	}
	if d.Stages == nil {
		d.Index = e.rhs.tok.Literal
	} else {
		d.Stages = append(d.Stages, &ast.IndexStage{Value: e.rhs.tok.Literal, Position: e.position})
	}
	d.Tuple = true
	return result, nil
}

func (p *Parser) processCall(e *pnode) (ast.Node, error) {
	fn := &ast.FunctionNode{Value: "(", Partial: e.typ == "partial", Position: e.position}
	fn.Arguments = make([]ast.Node, 0, len(e.args))
	for _, arg := range e.args {
		n, err := p.process(arg)
		if err != nil {
			return nil, err
		}
		fn.Arguments = append(fn.Arguments, n)
	}
	proc, err := p.process(e.procedure)
	if err != nil {
		return nil, err
	}
	fn.Procedure = proc
	return fn, nil
}

func (p *Parser) processLambda(e *pnode) (ast.Node, error) {
	lambda := &ast.LambdaNode{Signature: e.signature, Position: e.position}
	lambda.Arguments = make([]ast.Node, 0, len(e.args))
	for _, arg := range e.args {
		lambda.Arguments = append(lambda.Arguments, &ast.VariableNode{Value: arg.tok.Literal, Position: arg.position})
	}
	body, err := p.process(e.body)
	if err != nil {
		return nil, err
	}
	lambda.Body = tailCall(body)
	return lambda, nil
}

// tailCall wraps calls in tail position in thunk lambdas.
func tailCall(n ast.Node) ast.Node {
	switch expr := n.(type) {
	case *ast.FunctionNode:
		if expr.Partial || expr.Predicate != nil {
			return n
		}
		return &ast.LambdaNode{Thunk: true, Arguments: []ast.Node{}, Body: expr, Position: expr.Position}
	case *ast.ConditionNode:
		expr.Then = tailCall(expr.Then)
		if expr.Else != nil {
			expr.Else = tailCall(expr.Else)
		}
	case *ast.BlockNode:
		if len(expr.Expressions) > 0 {
			last := len(expr.Expressions) - 1
			expr.Expressions[last] = tailCall(expr.Expressions[last])
		}
	}
	return n
}

func (p *Parser) processCondition(e *pnode) (ast.Node, error) {
	c := &ast.ConditionNode{Position: e.position}
	var err error
	if c.Condition, err = p.process(e.cond); err != nil {
		return nil, err
	}
	if c.Then, err = p.process(e.then); err != nil {
		return nil, err
	}
	if e.els != nil {
		if c.Else, err = p.process(e.els); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (p *Parser) processTransform(e *pnode) (ast.Node, error) {
	t := &ast.TransformNode{Position: e.position}
	var err error
	if t.Pattern, err = p.process(e.pattern); err != nil {
		return nil, err
	}
	if t.Update, err = p.process(e.update); err != nil {
		return nil, err
	}
	if e.del != nil {
		if t.Delete, err = p.process(e.del); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func (p *Parser) processBlock(e *pnode) (ast.Node, error) {
	b := &ast.BlockNode{Expressions: make([]ast.Node, 0, len(e.exprs)), Position: e.position}
	for _, item := range e.exprs {
		part, err := p.process(item)
		if err != nil {
			return nil, err
		}
		if consArray(part) {
			b.ConsArray = true
		}
		if path, ok := part.(*ast.PathNode); ok && len(path.Steps) > 0 && consArray(path.Steps[0]) {
			b.ConsArray = true
		}
		b.Expressions = append(b.Expressions, part)
	}
	return b, nil
}

func consArray(n ast.Node) bool {
	switch x := n.(type) {
	case *ast.ArrayNode:
		return x.ConsArray
	case *ast.BlockNode:
		return x.ConsArray
	}
	return false
}

func (p *Parser) processUnary(e *pnode) (ast.Node, error) {
	switch e.id {
	case "[":
		arr := &ast.ArrayNode{Expressions: make([]ast.Node, 0, len(e.exprs)), Position: e.position}
		for _, item := range e.exprs {
			n, err := p.process(item)
			if err != nil {
				return nil, err
			}
			arr.Expressions = append(arr.Expressions, n)
		}
		return arr, nil
	case "{":
		pairs, err := p.processPairs(e.pairs)
		if err != nil {
			return nil, err
		}
		return &ast.ObjectNode{Pairs: pairs, Position: e.position}, nil
	}
	expr, err := p.process(e.expr)
	if err != nil {
		return nil, err
	}
	if num, ok := expr.(*ast.NumberNode); ok {
		num.Value = -num.Value
		return num, nil
	}
	return &ast.NegationNode{Expression: expr, Position: e.position}, nil
}

func (p *Parser) processPairs(raw [][2]*pnode) ([]ast.Pair, error) {
	pairs := make([]ast.Pair, 0, len(raw))
	for _, pair := range raw {
		k, err := p.process(pair[0])
		if err != nil {
			return nil, err
		}
		v, err := p.process(pair[1])
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, ast.Pair{Key: k, Value: v})
	}
	return pairs, nil
}

func (p *Parser) processSort(e *pnode) (ast.Node, error) {
	result, err := p.process(e.lhs)
	if err != nil {
		return nil, err
	}
	path, ok := result.(*ast.PathNode)
	if !ok {
		path = &ast.PathNode{Steps: []ast.Node{result}, Position: ast.NoPos}
	}
	sort := &ast.SortNode{Position: e.position}
	for _, term := range e.terms {
		expr, err := p.process(term.expr)
		if err != nil {
			return nil, err
		}
		sort.Terms = append(sort.Terms, ast.SortTerm{Descending: term.descending, Expression: expr})
	}
	path.Steps = append(path.Steps, sort)
	return path, nil
}
