package ast

import "reflect"

// Shape predicates. Each answers purely from the node's type tag and its
// secondary discriminators, and returns false for nil or malformed nodes.

func IsObject(n Node) bool {
	o, ok := n.(*ObjectNode)
	return ok && o != nil
}

func IsArray(n Node) bool {
	a, ok := n.(*ArrayNode)
	return ok && a != nil
}

func IsNegation(n Node) bool {
	u, ok := n.(*NegationNode)
	return ok && u != nil
}

// IsUnary reports whether n is one of the nodes sharing the "unary" tag.
func IsUnary(n Node) bool {
	u, ok := n.(Unary)
	if !ok || IsNil(n) {
		return false
	}
	switch u.Op() {
	case "{", "[", "-":
		return true
	}
	return false
}

func IsString(n Node) bool {
	s, ok := n.(*StringNode)
	return ok && s != nil
}

func IsNumber(n Node) bool {
	v, ok := n.(*NumberNode)
	return ok && v != nil
}

// IsValue reports whether n is the literal true, false or null.
func IsValue(n Node) bool {
	v, ok := n.(*ValueNode)
	if !ok || v == nil {
		return false
	}
	switch v.Value.(type) {
	case nil, bool:
		return true
	}
	return false
}

func IsNull(n Node) bool {
	v, ok := n.(*ValueNode)
	return ok && v != nil && v.Value == nil
}

func IsBoolean(n Node) bool {
	v, ok := n.(*ValueNode)
	if !ok || v == nil {
		return false
	}
	_, ok = v.Value.(bool)
	return ok
}

// IsLiteral reports whether n is a string, number, boolean or null literal.
func IsLiteral(n Node) bool {
	return IsString(n) || IsNumber(n) || IsValue(n)
}

func IsFunction(n Node) bool {
	f, ok := n.(*FunctionNode)
	return ok && f != nil && !f.Partial && f.Value == "("
}

func IsPartial(n Node) bool {
	f, ok := n.(*FunctionNode)
	return ok && f != nil && f.Partial && f.Value == "("
}

func IsCondition(n Node) bool {
	c, ok := n.(*ConditionNode)
	return ok && c != nil
}

// IsPath reports whether n is a path with a step list.
func IsPath(n Node) bool {
	p, ok := n.(*PathNode)
	return ok && p != nil && p.Steps != nil
}

// IsBlock reports whether n is a block with an expression list.
func IsBlock(n Node) bool {
	b, ok := n.(*BlockNode)
	return ok && b != nil && b.Expressions != nil
}

func IsApply(n Node) bool {
	a, ok := n.(*ApplyNode)
	return ok && a != nil && a.Value == "~>"
}

func IsWildcard(n Node) bool {
	w, ok := n.(*WildcardNode)
	return ok && w != nil && (w.Value == "*" || w.Value == "**")
}

func IsDescendant(n Node) bool {
	d, ok := n.(*DescendantNode)
	return ok && d != nil
}

func IsRegex(n Node) bool {
	r, ok := n.(*RegexNode)
	return ok && r != nil
}

func IsName(n Node) bool {
	v, ok := n.(*NameNode)
	return ok && v != nil
}

func IsSort(n Node) bool {
	s, ok := n.(*SortNode)
	return ok && s != nil
}

func IsVariable(n Node) bool {
	v, ok := n.(*VariableNode)
	return ok && v != nil
}

func IsFilter(n Node) bool {
	f, ok := n.(*FilterNode)
	return ok && f != nil
}

func IsBinary(n Node) bool {
	b, ok := n.(*BinaryNode)
	return ok && b != nil
}

func IsBind(n Node) bool {
	b, ok := n.(*BindNode)
	return ok && b != nil
}

func IsLambda(n Node) bool {
	l, ok := n.(*LambdaNode)
	return ok && l != nil
}

func IsParent(n Node) bool {
	p, ok := n.(*ParentNode)
	return ok && p != nil
}

func IsTransform(n Node) bool {
	t, ok := n.(*TransformNode)
	return ok && t != nil
}

// IsPlaceholder reports whether n is the ? argument of a partial application.
func IsPlaceholder(n Node) bool {
	o, ok := n.(*OperatorNode)
	return ok && o != nil && o.Value == "?"
}

// IsConstructor reports whether n builds an object or an array.
func IsConstructor(n Node) bool {
	return IsObject(n) || IsArray(n)
}

// HasNestedConstructor reports whether any value in pairs is an object or
// array constructor.
func HasNestedConstructor(pairs []Pair) bool {
	for _, p := range pairs {
		if IsConstructor(p.Value) {
			return true
		}
	}
	return false
}

// IsNil reports whether n is nil or a typed nil pointer.
func IsNil(n Node) bool {
	if n == nil {
		return true
	}
	v := reflect.ValueOf(n)
	return v.Kind() == reflect.Pointer && v.IsNil()
}
