package internal

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, text string) *Root {
	t.Helper()
	root, err := NewGrammar(DefaultGrammarConfig(), nil).ParseString("test.html", text)
	require.NoError(t, err)
	return root
}

func parseErr(t *testing.T, text string) *Diagnostic {
	t.Helper()
	_, err := NewGrammar(DefaultGrammarConfig(), nil).ParseString("test.html", text)
	require.Error(t, err)
	var diag *Diagnostic
	require.True(t, errors.As(err, &diag))
	return diag
}

func joinSpans(items []Item) string {
	var sb strings.Builder
	for _, it := range items {
		sb.WriteString(it.Span().String())
	}
	return sb.String()
}

func TestGrammarContentRoundTrip(t *testing.T) {
	for _, text := range []string{"hello world", "50% off } { %", "line\n\nline", "a }% b"} {
		root := parse(t, text)
		require.Len(t, root.Items, 1, "input %q", text)
		content, ok := root.Items[0].(*Content)
		require.True(t, ok)
		assert.Equal(t, text, content.Text.String())
	}

	root := parse(t, "")
	assert.Empty(t, root.Items)
}

func TestGrammarSpanPartition(t *testing.T) {
	constructs := []string{
		`{% x %}`,
		`{% if x %}y{% end %}`,
		`{% for a in b %}c{% end %}`,
		`{% block n %}z{% end %}`,
		`{% call f("%}") %}`,
	}
	const alphabet = "ab }%\n"

	rng := rand.New(rand.NewSource(7))
	for iter := 0; iter < 200; iter++ {
		var sb strings.Builder
		for n := rng.Intn(8); n >= 0; n-- {
			if rng.Intn(2) == 0 {
				sb.WriteString(constructs[rng.Intn(len(constructs))])
				continue
			}
			for k := rng.Intn(5); k >= 0; k-- {
				sb.WriteByte(alphabet[rng.Intn(len(alphabet))])
			}
		}
		text := sb.String()
		root := parse(t, text)
		assert.Equal(t, text, joinSpans(root.Items), "input %q", text)
	}
}

func TestGrammarDelimiterInString(t *testing.T) {
	root := parse(t, `{% call f("%}") %}`)
	require.Len(t, root.Items, 1)
	call, ok := root.Items[0].(*MacroCall)
	require.True(t, ok)
	assert.Equal(t, `{% call f("%}") %}`, call.Tag.String())
	assert.Equal(t, "f", call.Name.String())
	assert.Equal(t, `"%}"`, call.ArgsText.String())
	require.NotNil(t, call.Args)
	assert.Equal(t, HostKindArgs, call.Args.Kind())
}

func TestGrammarUnterminatedConstruct(t *testing.T) {
	t.Run("points at the opening tag", func(t *testing.T) {
		diag := parseErr(t, "{% if true %} no end")
		require.NotNil(t, diag.Span)
		assert.Equal(t, Range{Start: 0, End: 13}, *diag.Span)
		assert.Equal(t, fmt.Sprintf(ErrMsgUnterminatedConstruct, "if", "{% end %}"), diag.Message)
	})

	t.Run("position on a later line", func(t *testing.T) {
		diag := parseErr(t, "a\n{% if x %}\nb")
		require.NotNil(t, diag.Span)
		assert.Equal(t, Range{Start: 2, End: 12}, *diag.Span)
		assert.Equal(t, 2, diag.Position().Line)
		assert.Equal(t, 1, diag.Position().Column)
	})

	t.Run("nested construct reports the innermost", func(t *testing.T) {
		diag := parseErr(t, "{% block a %}{% for x in y %}z{% end %}")
		assert.Equal(t, fmt.Sprintf(ErrMsgUnterminatedConstruct, "block", "{% end %}"), diag.Message)
		assert.Equal(t, Range{Start: 0, End: 13}, *diag.Span)
	})

	t.Run("unterminated tag", func(t *testing.T) {
		diag := parseErr(t, "text {% if x")
		assert.Equal(t, fmt.Sprintf(ErrMsgUnterminatedDelim, "{%", "%}"), diag.Message)
		assert.Equal(t, Range{Start: 5, End: 7}, *diag.Span)
	})
}

func TestGrammarContextFlags(t *testing.T) {
	tests := []struct {
		name string
		text string
		msg  string
	}{
		{"super at top level", `{% super() %}`, ErrMsgSuperNotAllowed},
		{"super inside if inside block", `{% block a %}{% if x %}{% super() %}{% end %}{% end %}`, ErrMsgSuperNotAllowed},
		{"block inside if", `{% if x %}{% block a %}{% end %}{% end %}`, ErrMsgBlockNotAllowed},
		{"block inside for", `{% for x in y %}{% block a %}{% end %}{% end %}`, ErrMsgBlockNotAllowed},
		{"extends after content", `x{% extends "a.html" %}`, ErrMsgExtendsNotAllowed},
		{"second extends", `{% extends "a.html" %}{% extends "b.html" %}`, ErrMsgExtendsNotAllowed},
		{"extends inside block", `{% block a %}{% extends "a.html" %}{% end %}`, ErrMsgExtendsNotAllowed},
		{"stray end", `{% end %}`, ErrMsgStrayEnd},
		{"stray else", `{% else %}`, ErrMsgStrayElse},
		{"stray when", `{% when 1 %}`, ErrMsgStrayWhen},
		{"empty tag", `{%  %}`, ErrMsgEmptyTag},
		{"super with arguments", `{% block a %}{% super(1) %}{% end %}`, ErrMsgSuperArguments},
		{"unquoted reference", `{% include row.html %}`, ErrMsgExpectedReference},
		{"missing block name", `{% block %}{% end %}`, ErrMsgExpectedBlockName},
		{"for without in", `{% for x %}{% end %}`, ErrMsgExpectedForIn},
		{"if without condition", `{% if %}{% end %}`, ErrMsgExpectedCondition},
		{"text inside match", `{% match v %}text{% when 1 %}{% end %}`, ErrMsgExpectedWhenOrEnd},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			diag := parseErr(t, tt.text)
			assert.Equal(t, tt.msg, diag.Message)
			assert.True(t, diag.HasLocation())
		})
	}
}

func TestGrammarExtends(t *testing.T) {
	root := parse(t, "\n  {% extends \"base.html\" %}\n{% block a %}x{% end %}")
	require.Len(t, root.Items, 3)
	ext, ok := root.Items[0].(*Extends)
	require.True(t, ok)
	assert.Equal(t, "base.html", ext.Reference.String())
	assert.Equal(t, 3, ext.Tag.ByteOffset())

	block, ok := root.Items[2].(*Block)
	require.True(t, ok)
	assert.Equal(t, "a", block.Name.String())
	assert.Equal(t, `{% block a %}x{% end %}`, block.Whole.String())
}

func TestGrammarBlocksAndSuper(t *testing.T) {
	root := parse(t, `{% block outer %}a{% block inner %}{% super() %}{% end %}b{% end %}`)
	require.Len(t, root.Items, 1)
	outer := root.Items[0].(*Block)
	require.Len(t, outer.Body, 3)
	inner, ok := outer.Body[1].(*Block)
	require.True(t, ok)
	assert.Equal(t, "inner", inner.Name.String())
	require.Len(t, inner.Body, 1)
	_, ok = inner.Body[0].(*SuperCall)
	assert.True(t, ok)
	assert.Equal(t, "{% end %}", outer.Close.String())
}

func TestGrammarFor(t *testing.T) {
	root := parse(t, `{% outer: for i, v in items %}<li>{% v %}</li>{% end %}`)
	require.Len(t, root.Items, 1)
	loop, ok := root.Items[0].(*For)
	require.True(t, ok)
	assert.Equal(t, "outer", loop.Label.String())
	assert.Equal(t, "i, v", loop.BindingText.String())
	assert.Equal(t, "items", loop.IterableText.String())
	assert.Equal(t, HostKindBinding, loop.Binding.Kind())
	assert.Equal(t, HostKindExpr, loop.Iterable.Kind())
	require.Len(t, loop.Body, 3)
	_, ok = loop.Body[1].(*HostExpr)
	assert.True(t, ok)

	root = parse(t, `{% for x in xs %}{% end %}`)
	loop = root.Items[0].(*For)
	assert.True(t, loop.Label.IsZero())
	assert.Empty(t, loop.Body)

	root = parse(t, `{% format(x) %}`)
	_, ok = root.Items[0].(*HostExpr)
	assert.True(t, ok, "identifier starting with a keyword is host code")
}

func TestGrammarIfChain(t *testing.T) {
	root := parse(t, `{% if a %}1{% else if b %}2{% else %}3{% end %}tail`)
	require.Len(t, root.Items, 2)
	cond, ok := root.Items[0].(*If)
	require.True(t, ok)
	assert.Equal(t, "a", cond.CondText.String())
	assert.Equal(t, `{% if a %}1{% else if b %}2{% else %}3{% end %}`, cond.Whole.String())

	elseIf, ok := cond.Branch.(*ElseIfBranch)
	require.True(t, ok)
	assert.Equal(t, "b", elseIf.CondText.String())
	require.Len(t, elseIf.Body, 1)
	assert.Equal(t, "2", elseIf.Body[0].Span().String())

	els, ok := elseIf.Branch.(*ElseBranch)
	require.True(t, ok)
	require.Len(t, els.Body, 1)
	assert.Equal(t, "3", els.Body[0].Span().String())

	owned := Own(root)
	ifNode := owned.Children[0].(*IfNode)
	elseIfNode, ok := ifNode.Else.(*ElseIfNode)
	require.True(t, ok)
	assert.Equal(t, "b", elseIfNode.Condition)
	_, ok = elseIfNode.Else.(*ElseNode)
	assert.True(t, ok)

	root = parse(t, `{% if a %}1{% end %}`)
	_, ok = root.Items[0].(*If).Branch.(*EndBranch)
	assert.True(t, ok)
}

func TestGrammarMatch(t *testing.T) {
	root := parse(t, "{% match v %}\n  {% when 1 %}one{% when 2, 3 if ok %}two{% end %}")
	require.Len(t, root.Items, 1)
	m, ok := root.Items[0].(*Match)
	require.True(t, ok)
	assert.Equal(t, "v", m.ScrutineeText.String())
	require.Len(t, m.Arms, 2)

	assert.Equal(t, "1", m.Arms[0].PatternText.String())
	assert.True(t, m.Arms[0].GuardText.IsEmpty())
	assert.Nil(t, m.Arms[0].Guard)
	require.Len(t, m.Arms[0].Body, 1)
	assert.Equal(t, "one", m.Arms[0].Body[0].Span().String())

	assert.Equal(t, "2, 3", m.Arms[1].PatternText.String())
	assert.Equal(t, "ok", m.Arms[1].GuardText.String())
	require.NotNil(t, m.Arms[1].Guard)

	owned := Own(root).Children[0].(*MatchNode)
	require.Len(t, owned.Arms, 2)
	assert.Equal(t, "ok", owned.Arms[1].Guard)

	t.Run("if inside a quoted pattern is not a guard", func(t *testing.T) {
		root := parse(t, `{% match x %}{% when "a if b" %}A{% when "c if d" if ok %}B{% end %}`)
		m := root.Items[0].(*Match)
		require.Len(t, m.Arms, 2)
		assert.Equal(t, `"a if b"`, m.Arms[0].PatternText.String())
		assert.True(t, m.Arms[0].GuardText.IsEmpty())
		assert.Equal(t, `"c if d"`, m.Arms[1].PatternText.String())
		assert.Equal(t, "ok", m.Arms[1].GuardText.String())
	})
}

func TestGrammarMacro(t *testing.T) {
	root := parse(t, `{% macro greet(name string) %}Hi {% name %}{% end %}{% call greet("x") %}`)
	require.Len(t, root.Items, 2)
	def, ok := root.Items[0].(*MacroDef)
	require.True(t, ok)
	assert.Equal(t, "greet", def.Name.String())
	assert.Equal(t, "name string", def.ParamsText.String())
	assert.Len(t, def.Body, 2)

	call, ok := root.Items[1].(*MacroCall)
	require.True(t, ok)
	assert.Equal(t, `"x"`, call.ArgsText.String())

	diag := parseErr(t, `{% macro greet %}{% end %}`)
	assert.Equal(t, ErrMsgExpectedParenList, diag.Message)

	diag = parseErr(t, `{% call 1() %}`)
	assert.Equal(t, ErrMsgExpectedMacroName, diag.Message)

	diag = parseErr(t, `{% call m(1).x + _f(2) %}`)
	assert.Equal(t, ErrMsgGoInvalidArgs, diag.Message)
	assert.True(t, diag.HasLocation())
}

func TestGrammarInclude(t *testing.T) {
	root := parse(t, `{% include "row.html" item: x, index: i %}`)
	inc, ok := root.Items[0].(*Include)
	require.True(t, ok)
	assert.Equal(t, "row.html", inc.Reference.String())
	assert.Equal(t, "item: x, index: i", inc.FieldsText.String())
	require.NotNil(t, inc.Fields)
	assert.Equal(t, HostKindFields, inc.Fields.Kind())

	root = parse(t, `{% include "plain.html" %}`)
	inc = root.Items[0].(*Include)
	assert.True(t, inc.FieldsText.IsEmpty())
	assert.Nil(t, inc.Fields)

	diag := parseErr(t, `{% include "a" a: 1}.b + _T{c: 2 %}`)
	assert.Equal(t, ErrMsgGoInvalidFields, diag.Message)
	assert.True(t, diag.HasLocation())
}

func TestGrammarHostFallback(t *testing.T) {
	root := parse(t, `{% x := 1 %}{% user.Name %}`)
	require.Len(t, root.Items, 2)
	stmt, ok := root.Items[0].(*HostStmt)
	require.True(t, ok)
	assert.Equal(t, "x := 1", stmt.Code.String())
	assert.Equal(t, HostKindStmt, stmt.Node.Kind())

	expr, ok := root.Items[1].(*HostExpr)
	require.True(t, ok)
	assert.Equal(t, "user.Name", expr.Code.String())

	t.Run("host error is located inside the tag", func(t *testing.T) {
		diag := parseErr(t, "ab{% x + %}")
		require.NotNil(t, diag.Span)
		assert.GreaterOrEqual(t, diag.Span.Start, 5)
		assert.LessOrEqual(t, diag.Span.End, 8)
	})
}

func TestGrammarStarlarkHost(t *testing.T) {
	g := NewGrammar(GrammarConfig{Host: NewStarlarkHost()}, nil)
	root, err := g.ParseString("t.star", `{% x = 1 %}{% x %}{% for k, v in d.items() %}{% end %}`)
	require.NoError(t, err)
	require.Len(t, root.Items, 3)
	_, ok := root.Items[0].(*HostStmt)
	assert.True(t, ok)
	_, ok = root.Items[1].(*HostExpr)
	assert.True(t, ok)
	assert.Equal(t, HostNameStarlark, g.Host().Name())
}

func TestGrammarCustomDelimiters(t *testing.T) {
	g := NewGrammar(GrammarConfig{Delimiters: Delimiters{Open: "<%", Close: "%>"}}, nil)
	root, err := g.ParseString("t", `a{% b %}<% if x %>c<% end %>`)
	require.NoError(t, err)
	require.Len(t, root.Items, 2)
	assert.Equal(t, "a{% b %}", root.Items[0].Span().String())
	_, ok := root.Items[1].(*If)
	assert.True(t, ok)
	assert.Equal(t, "<%", g.Delimiters().Open)
}

func TestOwnCopiesText(t *testing.T) {
	root := parse(t, "{% block a %}hello{% end %}")
	owned := Own(root)
	assert.NotSame(t, root.Source, owned.Source)
	assert.Equal(t, root.Source.Text, owned.Source.Text)

	block := owned.Children[0].(*BlockNode)
	assert.Equal(t, "a", block.Name)
	assert.Equal(t, Range{Start: 0, End: 27}, block.Span())
	assert.Equal(t, 1, block.Pos().Line)
	text := block.Children[0].(*TextNode)
	assert.Equal(t, "hello", text.Content)
	assert.Equal(t, "hello", owned.Cursor(text.Span()).String())
}
