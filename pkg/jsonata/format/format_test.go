package format

import (
	"math"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sambeau/jsonatafmt/pkg/jsonata/ast"
	"github.com/sambeau/jsonatafmt/pkg/jsonata/parser"
)

func formatWidth(t *testing.T, src string, width int) string {
	t.Helper()
	prog, err := parser.Parse(src)
	require.NoError(t, err, "parsing %q", src)
	out, err := Print(prog, Options{PrintWidth: width, TabWidth: 2})
	require.NoError(t, err, "formatting %q", src)
	return out
}

func TestFormatScenarios(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		width    int
		expected string
	}{
		{"short binary", "foo+bar", 20, "foo + bar"},
		{"long binary", "longerValue+anotherLongerValue", 20, "longerValue\n  + anotherLongerValue"},
		{"empty object", "{}", 150, "{}"},
		{
			"nested object forces break",
			`{"foo": {"bar": "baz"}, "boo": "bee"}`,
			200,
			"{\n  \"foo\": { \"bar\": \"baz\" },\n  \"boo\": \"bee\"\n}",
		},
		{
			"nested ternary",
			"foo ? bar : baz ? boo : bee",
			200,
			"foo\n  ? bar\n  : baz\n    ? boo\n    : bee",
		},
		{"reserved name", `foo."true".boo`, 150, "foo.`true`.boo"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, formatWidth(t, tt.input, tt.width))
		})
	}
}

func TestFormatSnapshots(t *testing.T) {
	tests := []struct {
		input    string
		width    int
		expected string
	}{
		{"foo.bar", 150, "foo.bar"},
		{"$x:=5", 150, "$x := 5"},
		{"$sum(a,b)", 150, "$sum(a, b)"},
		{"$f()", 150, "$f()"},
		{"$substring(?,0,2)", 150, "$substring(?, 0, 2)"},
		{"a~>$f()", 150, "a ~> $f()"},
		{"a ~> $f ~> $g", 150, "a ~> $f ~> $g"},
		{"'it'", 150, `"it"`},
		{`"say \"hi\""`, 150, `"say \"hi\""`},
		{"1e21", 150, "1e+21"},
		{"-5", 150, "-5"},
		{"-foo", 150, "-foo"},
		{"a - -5", 150, "a - -5"},
		{"true", 150, "true"},
		{"null", 150, "null"},
		{"a and b or c", 150, "a and b or c"},
		{"a!=b", 150, "a != b"},
		{"a in [1,2]", 150, "a in [1, 2]"},
		{"[1..5]", 150, "[1..5]"},
		{"foo[0]", 150, "foo[0]"},
		{"foo[bar>1].baz", 150, "foo[bar > 1].baz"},
		{"$x[0][1]", 150, "$x[0][1]"},
		{"foo#$i", 150, "foo#$i"},
		{"foo[0]#$i", 150, "foo[0]#$i"},
		{"foo@$f.bar", 150, "foo@$f.bar"},
		{"Account.Order@$o.Product#$i", 150, "Account.Order@$o.Product#$i"},
		{"foo[]", 150, "foo[]"},
		{"foo.bar[]", 150, "foo.bar[]"},
		{"foo[].bar", 150, "foo[].bar"},
		{"$x[]", 150, "$x[]"},
		{"foo^(>bar,baz)", 150, "foo^(>bar, <baz)"},
		{"Account.Order^(>Price, Name)", 150, "Account.Order^(>Price, <Name)"},
		{"foo{a:b}", 150, "foo{ a: b }"},
		{"foo.*", 150, "foo.*"},
		{"**.foo", 150, "**.foo"},
		{"foo.%.bar", 150, "foo.%.bar"},
		{"`first name`", 150, "`first name`"},
		{`foo."bar baz"`, 150, "foo.`bar baz`"},
		{"/ab+/i", 150, "/ab+/i"},
		{"()", 150, "()"},
		{"(a)", 150, "(a)"},
		{"(a.b).c", 150, "(a.b).c"},
		{"($a := 1; $b := 2; $a + $b)", 150, "(\n  $a := 1;\n  $b := 2;\n  $a + $b\n)"},
		{"|a|{'b':1}|", 150, "|a|{ \"b\": 1 }|"},
		{`|Account|{"x": 1}, ["y"]|`, 150, "|Account|{ \"x\": 1 }, [\"y\"]|"},
		{"Account.Order[0].Product.(Price * Quantity)", 150, "Account.Order[0].Product.(Price * Quantity)"},
		{"$sum(Account.Order.Product.(Price*Quantity))", 150, "$sum(Account.Order.Product.(Price * Quantity))"},
		{"function($a, $b) { $a * $b }", 150, "function($a, $b) {\n  $a * $b\n}"},
		{"function($v) { true }", 150, "function($v) {\n  true\n}"},
		{"function($a)<n:n>{ $a }", 150, "function($a)<n:n> {\n  $a\n}"},
		{"function($x) { $f($x) }", 150, "function($x) {\n  $f($x)\n}"},
		{"$product := function($a, $b) { $a * $b }", 150, "$product := function($a, $b) {\n  $a * $b\n}"},
		{"$map(xs, function($v) { $v * 2 })", 150, "$map(\n  xs,\n  function($v) {\n    $v * 2\n  }\n)"},
		{"Account.Order.Product.Description", 20, "Account\n  .Order\n  .Product\n  .Description"},
		{
			`{"name": Account.Name, "total": $sum(Account.Order.Price)}`,
			40,
			"{\n  \"name\": Account.Name,\n  \"total\": $sum(Account.Order.Price)\n}",
		},
		{"$substring(Account.Name, 0, 10)", 30, "$substring(\n  Account.Name,\n  0,\n  10\n)"},
		{"$x > 10 ? 'big' : 'small'", 20, "$x > 10\n  ? \"big\"\n  : \"small\""},
		{"Account.Order ~> $count()", 20, "Account.Order\n  ~> $count()"},
		{"[1, 2, 3, 4, 5]", 10, "[\n  1,\n  2,\n  3,\n  4,\n  5\n]"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, formatWidth(t, tt.input, tt.width))
		})
	}
}

func TestComments(t *testing.T) {
	t.Run("leading comment", func(t *testing.T) {
		assert.Equal(t, "/* total */\nfoo + bar", formatWidth(t, "/* total */ foo + bar", 150))
	})

	t.Run("comment above nested expression", func(t *testing.T) {
		src := "(\n  $a := 1;\n  /* double it */\n  $a * 2\n)"
		assert.Equal(t, src, formatWidth(t, src, 150))
	})

	t.Run("comment stays with its array item", func(t *testing.T) {
		assert.Equal(t,
			"[\n  1,\n  /* two */\n  2,\n  3\n]",
			formatWidth(t, "[1, /* two */ 2, 3]", 150))
	})

	t.Run("comment is printed once", func(t *testing.T) {
		out := formatWidth(t, "a /* note */ + b", 150)
		assert.Equal(t, 1, strings.Count(out, "/* note */"), out)
	})

	t.Run("comment in string is not a comment", func(t *testing.T) {
		assert.Equal(t, `"/* text */"`, formatWidth(t, `'/* text */'`, 150))
	})
}

func TestCursorIsolation(t *testing.T) {
	withComments, err := parser.Parse("/* first */ foo.bar")
	require.NoError(t, err)
	without, err := parser.Parse("baz.qux")
	require.NoError(t, err)

	out, err := Print(withComments, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, "/* first */\nfoo.bar", out)

	out, err = Print(without, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, "baz.qux", out)

	// a bare expression carries no comments even when it came from a
	// commented program
	out, err = Print(withComments.Expr, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, "foo.bar", out)
}

func TestConcurrentPrint(t *testing.T) {
	prog, err := parser.Parse("/* a */ $sum(Account.Order.Price) /* b */ + 1")
	require.NoError(t, err)
	expected, err := Print(prog, DefaultOptions())
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]string, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = Print(prog, DefaultOptions())
		}(i)
	}
	wg.Wait()
	for _, r := range results {
		assert.Equal(t, expected, r)
	}
}

var corpus = []string{
	"foo+bar",
	"longerValue+anotherLongerValue",
	`{"foo": {"bar": "baz"}, "boo": "bee"}`,
	"foo ? bar : baz ? boo : bee",
	`foo."true".boo`,
	"Account.Order[0].Product.(Price * Quantity)",
	`{"name": Account.Name, "total": $sum(Account.Order.Price), "items": Account.Order.Product[Price > 10].Description}`,
	"$map(Account.Order.Product, function($p, $i) { {'n': $i, 'name': $p.Description} })",
	"($tax := 0.2; $net := $sum(Account.Order.Product.Price); $net * (1 + $tax))",
	"Account.Order^(>Price, Name)[0..2].Product#$i.{'pos': $i}",
	"$substring(Account.Name, 0, 10) & ' ' & $uppercase(Account.Surname)",
	"|Account.Order|{'total': $sum(Product.Price)}, ['Product']|",
	"[1, 2, 3] ~> $map(function($v) { $v * 2 }) ~> $sum()",
	"$x[0][] ~> $f(?, 1)",
	"foo@$f.bar#$i[$i > 0]",
	"/* header */ ($a := 1; /* second */ $a + 1)",
	"-(a.b) * -5",
	"**.price[$ > 100]",
	"`first name` & `last name`",
}

func TestIdempotent(t *testing.T) {
	for _, width := range []int{20, 40, 80, 150} {
		for _, src := range corpus {
			once := formatWidth(t, src, width)
			twice := formatWidth(t, once, width)
			assert.Equal(t, once, twice, "width %d, input %q", width, src)
		}
	}
}

func TestOutputParses(t *testing.T) {
	for _, width := range []int{10, 30, 150} {
		for _, src := range corpus {
			out := formatWidth(t, src, width)
			_, err := parser.Parse(out)
			assert.NoError(t, err, "width %d, output %q", width, out)
		}
	}
}

func TestNarrowerWidthNeverFewerLines(t *testing.T) {
	widths := []int{10, 20, 40, 80, 150, 300}
	for _, src := range corpus {
		prev := -1
		for i := len(widths) - 1; i >= 0; i-- {
			lines := strings.Count(formatWidth(t, src, widths[i]), "\n")
			assert.GreaterOrEqual(t, lines, prev, "width %d, input %q", widths[i], src)
			prev = lines
		}
	}
}

func TestTabs(t *testing.T) {
	prog, err := parser.Parse("(a; b)")
	require.NoError(t, err)

	out, err := Print(prog, Options{PrintWidth: 80, UseTabs: true})
	require.NoError(t, err)
	assert.Equal(t, "(\n\ta;\n\tb\n)", out)

	out, err = Print(prog, Options{PrintWidth: 80, TabWidth: 4})
	require.NoError(t, err)
	assert.Equal(t, "(\n    a;\n    b\n)", out)
}

func TestZeroOptionsUseDefaults(t *testing.T) {
	prog, err := parser.Parse("foo+bar")
	require.NoError(t, err)
	out, err := Print(prog, Options{})
	require.NoError(t, err)
	assert.Equal(t, "foo + bar", out)
}

func TestHandBuiltTrees(t *testing.T) {
	number := func(v float64) ast.Node { return &ast.NumberNode{Value: v, Position: ast.NoPos} }
	name := func(s string) ast.Node { return &ast.NameNode{Value: s, Position: ast.NoPos} }

	tests := []struct {
		name     string
		node     ast.Node
		expected string
	}{
		{
			"full suffix chain",
			&ast.VariableNode{Value: "x", Position: ast.NoPos, Decorations: ast.Decorations{
				Focus:     "f",
				Index:     "i",
				Predicate: []ast.Node{&ast.FilterNode{Expr: number(0)}},
				Group:     &ast.Group{Pairs: []ast.Pair{{Key: &ast.StringNode{Value: "a"}, Value: number(1)}}},
				KeepArray: true,
			}},
			`$x@$f#$i[0]{ "a": 1 }[]`,
		},
		{
			"empty group",
			&ast.NameNode{Value: "a", Decorations: ast.Decorations{Group: &ast.Group{}}},
			"a{}",
		},
		{
			"regex flags narrowed",
			&ast.RegexNode{Pattern: "a+", Flags: "gmi"},
			"/a+/im",
		},
		{
			"transform drops keep array",
			&ast.TransformNode{Pattern: name("a"), Update: &ast.ObjectNode{}, Decorations: ast.Decorations{KeepArray: true}},
			"|a|{}|",
		},
		{
			"value node with a string",
			&ast.ValueNode{Value: "odd"},
			`"odd"`,
		},
		{
			"wildcard keeps its stages",
			&ast.PathNode{Steps: []ast.Node{
				name("a"),
				&ast.WildcardNode{Value: "*", Decorations: ast.Decorations{Stages: []ast.Node{&ast.FilterNode{Expr: number(1)}}}},
			}},
			"a.*[1]",
		},
		{
			"index stage",
			&ast.PathNode{Steps: []ast.Node{
				&ast.NameNode{Value: "a", Decorations: ast.Decorations{Stages: []ast.Node{
					&ast.FilterNode{Expr: number(0)},
					&ast.IndexStage{Value: "i"},
				}}},
			}},
			"a[0]#$i",
		},
		{
			"empty name",
			name(""),
			"``",
		},
		{
			"thunk prints its body",
			&ast.LambdaNode{Thunk: true, Body: &ast.FunctionNode{Value: "(", Procedure: &ast.VariableNode{Value: "f"}}},
			"$f()",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Print(tt.node, DefaultOptions())
			require.NoError(t, err)
			assert.Equal(t, tt.expected, out)
		})
	}
}

func TestUnknownNodes(t *testing.T) {
	_, err := Print(nil, DefaultOptions())
	assert.ErrorIs(t, err, ErrUnknownNode)

	var nilPath *ast.PathNode
	_, err = Print(nilPath, DefaultOptions())
	assert.ErrorIs(t, err, ErrUnknownNode)

	_, err = Print(&ast.BinaryNode{Value: "+", RHS: &ast.NumberNode{Value: 1}}, DefaultOptions())
	assert.ErrorIs(t, err, ErrUnknownNode)

	_, err = Print(&ast.Program{Expr: &ast.LambdaNode{}}, DefaultOptions())
	assert.ErrorIs(t, err, ErrUnknownNode)

	_, err = Document(&ast.ArrayNode{Expressions: []ast.Node{nil}})
	assert.ErrorIs(t, err, ErrUnknownNode)
}

func TestNonFiniteNumbers(t *testing.T) {
	tests := []struct {
		name string
		node ast.Node
		want string
	}{
		{"infinity", &ast.NumberNode{Value: math.Inf(1)}, "Infinity"},
		{"negative infinity", &ast.NumberNode{Value: math.Inf(-1)}, "-Infinity"},
		{"nan", &ast.NumberNode{Value: math.NaN()}, "NaN"},
		{"nested operand", &ast.BinaryNode{Value: "+", LHS: &ast.NumberNode{Value: 1}, RHS: &ast.NumberNode{Value: math.Inf(1)}}, "Infinity"},
		{"value node", &ast.ValueNode{Value: math.Inf(1)}, "Infinity"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Print(tt.node, DefaultOptions())
			require.ErrorIs(t, err, ErrNonFiniteNumber)
			assert.Contains(t, err.Error(), tt.want)
			assert.Empty(t, out)
		})
	}

	out, err := Print(&ast.NumberNode{Value: 1e21}, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, "1e+21", out)
}

func TestEscapeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"foo", "foo"},
		{"_private", "_private"},
		{"Order2", "Order2"},
		{"true", "`true`"},
		{"null", "`null`"},
		{"first name", "`first name`"},
		{"1abc", "`1abc`"},
		{"a-b", "`a-b`"},
		{"café", "`café`"},
		{"", "``"},
		{"`quoted`", "`quoted`"},
		{`"dq"`, "`dq`"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, escapeName(tt.input))
		})
	}
}
