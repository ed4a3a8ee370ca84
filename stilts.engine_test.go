package stilts

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/itsatony/go-cuserr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newSiteEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	loader := NewMemoryLoaderFrom(map[string]string{
		"base.html": "<title>{% block title %}Site{% end %}</title>{% block body %}{% end %}",
		"page.html": `{% extends "base.html" %}{% block title %}{% super() %} - Page{% end %}{% block body %}<p>hi</p>{% end %}`,
		"row.html":  `<tr>{% item %}</tr>`,
		"list.html": `{% extends "page.html" %}{% block body %}{% for item in items %}{% include "row.html" item: item %}{% end %}{% end %}`,
	})
	engine, err := New(append([]Option{WithLoader(loader)}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = engine.Close() })
	return engine
}

func requireCode(t *testing.T, err error, code string) *cuserr.CustomError {
	t.Helper()
	require.Error(t, err)
	var customErr *cuserr.CustomError
	require.True(t, errors.As(err, &customErr), "expected *cuserr.CustomError, got %T", err)
	assert.Equal(t, code, ErrorCode(err))
	return customErr
}

// =============================================================================
// Construction
// =============================================================================

func TestNew_Defaults(t *testing.T) {
	engine, err := New()
	require.NoError(t, err)

	open, close := engine.Delimiters()
	assert.Equal(t, DefaultOpenDelim, open)
	assert.Equal(t, DefaultCloseDelim, close)
	assert.Equal(t, DefaultMaxDepth, engine.MaxDepth())
	assert.Equal(t, HostGo, engine.Host().Name())
	assert.Nil(t, engine.Loader())
}

func TestNew_Options(t *testing.T) {
	engine, err := New(
		WithDelimiters("<%", "%>"),
		WithMaxDepth(8),
		WithHost(NewStarlarkHost()),
		WithLogger(zap.NewNop()),
	)
	require.NoError(t, err)

	open, close := engine.Delimiters()
	assert.Equal(t, "<%", open)
	assert.Equal(t, "%>", close)
	assert.Equal(t, 8, engine.MaxDepth())
	assert.Equal(t, HostStarlark, engine.Host().Name())
}

func TestNew_InvalidConfiguration(t *testing.T) {
	t.Run("equal delimiters", func(t *testing.T) {
		_, err := New(WithDelimiters("%%", "%%"))
		requireCode(t, err, ErrCodeConfig)
	})

	t.Run("empty delimiter", func(t *testing.T) {
		for _, delims := range [][2]string{{"", "%}"}, {"{%", ""}, {"", ""}} {
			_, err := New(WithDelimiters(delims[0], delims[1]))
			customErr := requireCode(t, err, ErrCodeConfig)
			field, _ := customErr.GetMetadata(MetaKeyField)
			assert.Equal(t, ConfigKeyDelimiters, field)
		}
	})

	t.Run("negative depth", func(t *testing.T) {
		_, err := New(WithMaxDepth(-1))
		requireCode(t, err, ErrCodeConfig)
	})

	t.Run("must new panics", func(t *testing.T) {
		assert.Panics(t, func() { MustNew(WithMaxDepth(-1)) })
	})
}

// =============================================================================
// Parsing
// =============================================================================

func TestEngine_Parse(t *testing.T) {
	engine := MustNew()

	root, err := engine.Parse("page.html", `a{% if x %}b{% end %}`)
	require.NoError(t, err)
	require.Len(t, root.Children, 2)

	_, err = engine.Parse("page.html", "line one\n{% if x %}never closed")
	customErr := requireCode(t, err, ErrCodeParse)

	line, ok := customErr.GetMetadata(MetaKeyLine)
	assert.True(t, ok)
	assert.Equal(t, "2", line)
	column, _ := customErr.GetMetadata(MetaKeyColumn)
	assert.Equal(t, "1", column)
	tmpl, _ := customErr.GetMetadata(MetaKeyTemplate)
	assert.Equal(t, "page.html", tmpl)

	diag, ok := DiagnosticOf(err)
	require.True(t, ok)
	assert.Contains(t, diag.Message, "if")
}

// =============================================================================
// Resolution
// =============================================================================

func TestEngine_Resolve(t *testing.T) {
	engine := newSiteEngine(t)

	plan, err := engine.Resolve(context.Background(), "page.html")
	require.NoError(t, err)
	assert.Equal(t, "<title>Site - Page</title><p>hi</p>", plan.Literal())

	want := []TemplateInfo{
		{Identity: "base.html", Reference: "base.html", Escaper: EscaperHTML},
		{Identity: "page.html", Reference: "page.html", Escaper: EscaperHTML},
	}
	if diff := cmp.Diff(want, plan.Templates, cmpopts.IgnoreFields(TemplateInfo{}, "MimeType")); diff != "" {
		t.Errorf("templates mismatch (-want +got):\n%s", diff)
	}
}

func TestEngine_ResolveInclude(t *testing.T) {
	engine := newSiteEngine(t)

	plan, err := engine.Resolve(context.Background(), "list.html")
	require.NoError(t, err)
	assert.Equal(t, "<title>Site - Page</title><tr></tr>", plan.Literal())

	var scopes []*ScopeNode
	for _, it := range plan.Items {
		walk(it.Node, func(n Node) {
			if scope, ok := n.(*ScopeNode); ok {
				scopes = append(scopes, scope)
			}
		})
	}
	require.Len(t, scopes, 1)
	assert.Equal(t, "row.html", scopes[0].Reference)
	assert.Equal(t, "item: item", scopes[0].Fields)
}

func TestEngine_ResolveSource(t *testing.T) {
	engine := newSiteEngine(t)

	plan, err := engine.ResolveSource(context.Background(), "", "\n{% extends \"base.html\" %}{% block title %}Inline{% end %}")
	require.NoError(t, err)
	assert.Equal(t, "<title>Inline</title>", plan.Literal())
	assert.Equal(t, "", plan.Templates[1].Identity)
	assert.Equal(t, EscaperNone, plan.Templates[1].Escaper)
}

func TestEngine_ResolveOptions(t *testing.T) {
	engine := newSiteEngine(t, WithTrim(true), WithDefaultEscaper("text"))

	plan, err := engine.Resolve(context.Background(), "page.html")
	require.NoError(t, err)
	for _, info := range plan.Templates {
		assert.True(t, info.Trim)
		assert.Equal(t, EscaperHTML, info.Escaper)
	}

	plan, err = engine.Resolve(context.Background(), "page.html", ResolveWithTrim(false), ResolveWithEscaper("raw"))
	require.NoError(t, err)
	for _, info := range plan.Templates {
		assert.False(t, info.Trim)
		assert.Equal(t, "raw", info.Escaper)
	}

	plan, err = engine.ResolveSource(context.Background(), "note.txt", "plain")
	require.NoError(t, err)
	assert.Equal(t, "text", plan.Templates[0].Escaper)
}

func TestEngine_ResolveBlock(t *testing.T) {
	engine := newSiteEngine(t)

	plan, err := engine.ResolveBlock(context.Background(), "page.html", "title")
	require.NoError(t, err)
	assert.Equal(t, "Site - Page", plan.Literal())

	_, err = engine.ResolveBlock(context.Background(), "page.html", "footer")
	customErr := requireCode(t, err, ErrCodeResolve)
	kind, _ := customErr.GetMetadata(MetaKeyKind)
	assert.Equal(t, "block", kind)
	block, _ := customErr.GetMetadata(MetaKeyBlock)
	assert.Equal(t, "footer", block)
}

func TestEngine_ResolveAll(t *testing.T) {
	engine := newSiteEngine(t)

	plans, err := engine.ResolveAll(context.Background(), []string{"base.html", "page.html", "list.html"})
	require.NoError(t, err)

	keys := make([]string, 0, len(plans))
	for k := range plans {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	assert.Equal(t, []string{"base.html", "list.html", "page.html"}, keys)
	assert.Equal(t, "<title>Site</title>", plans["base.html"].Literal())

	_, err = engine.ResolveAll(context.Background(), []string{"page.html", "missing.html"})
	requireCode(t, err, ErrCodeLoad)
}

func TestEngine_ResolveErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("missing template", func(t *testing.T) {
		engine := newSiteEngine(t)
		_, err := engine.Resolve(ctx, "missing.html")
		customErr := requireCode(t, err, ErrCodeLoad)
		ref, _ := customErr.GetMetadata(MetaKeyReference)
		assert.Equal(t, "missing.html", ref)
		assert.True(t, IsNotFound(err))
	})

	t.Run("missing parent points at extends", func(t *testing.T) {
		engine := MustNew(WithLoader(NewMemoryLoaderFrom(map[string]string{
			"orphan.html": "\n{% extends \"gone.html\" %}",
		})))
		_, err := engine.Resolve(ctx, "orphan.html")
		customErr := requireCode(t, err, ErrCodeLoad)
		line, _ := customErr.GetMetadata(MetaKeyLine)
		assert.Equal(t, "2", line)
		ref, _ := customErr.GetMetadata(MetaKeyReference)
		assert.Equal(t, "gone.html", ref)
	})

	t.Run("extends after content", func(t *testing.T) {
		engine := MustNew(WithLoader(NewMemoryLoaderFrom(map[string]string{
			"late.html": `x{% extends "base.html" %}`,
		})))
		_, err := engine.Resolve(ctx, "late.html")
		requireCode(t, err, ErrCodeParse)
	})

	t.Run("cycle", func(t *testing.T) {
		engine := MustNew(WithLoader(NewMemoryLoaderFrom(map[string]string{
			"a.html": `{% extends "b.html" %}`,
			"b.html": `{% extends "a.html" %}`,
		})))
		_, err := engine.Resolve(ctx, "a.html")
		customErr := requireCode(t, err, ErrCodeCycle)
		chain, _ := customErr.GetMetadata(MetaKeyChain)
		assert.Equal(t, "a.html -> b.html -> a.html", chain)

		var rerr *ResolveError
		require.True(t, errors.As(err, &rerr))
		assert.Equal(t, []string{"a.html", "b.html", "a.html"}, rerr.Chain)
	})

	t.Run("depth", func(t *testing.T) {
		engine := MustNew(WithMaxDepth(2), WithLoader(NewMemoryLoaderFrom(map[string]string{
			"t0": `{% extends "t1" %}`,
			"t1": `{% extends "t2" %}`,
			"t2": `root`,
		})))
		_, err := engine.Resolve(ctx, "t0")
		requireCode(t, err, ErrCodeDepth)
	})

	t.Run("duplicate block", func(t *testing.T) {
		loader := NewMemoryLoaderFrom(map[string]string{
			"dup.html": `{% block a %}1{% end %}{% block a %}2{% end %}`,
		})
		_, err := MustNew(WithLoader(loader)).Resolve(ctx, "dup.html")
		requireCode(t, err, ErrCodeParse)

		plan, err := MustNew(WithLoader(loader), WithLastWriteWinsBlocks()).Resolve(ctx, "dup.html")
		require.NoError(t, err)
		assert.Equal(t, "22", plan.Literal())
	})

	t.Run("no loader", func(t *testing.T) {
		_, err := MustNew().ResolveSource(ctx, "", `{% extends "base.html" %}`)
		requireCode(t, err, ErrCodeLoad)
	})

	t.Run("empty reference", func(t *testing.T) {
		_, err := newSiteEngine(t).Resolve(ctx, "")
		requireCode(t, err, ErrCodeLoad)
	})

	t.Run("cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := newSiteEngine(t).Resolve(cctx, "page.html")
		requireCode(t, err, ErrCodeLoad)
		assert.True(t, errors.Is(err, context.Canceled))
	})
}

func TestEngine_CustomHostAndDelimiters(t *testing.T) {
	engine := MustNew(
		WithDelimiters("<%", "%>"),
		WithHost(NewStarlarkHost()),
	)

	plan, err := engine.ResolveSource(context.Background(), "t.star", `a<% x = 1 %><% for k in d %>b<% end %>{% not a tag %}`)
	require.NoError(t, err)
	assert.Equal(t, "ab{% not a tag %}", plan.Literal())

	_, err = engine.Parse("t.star", `<% x := 1 %>`)
	requireCode(t, err, ErrCodeParse)
}

func TestEngine_Close(t *testing.T) {
	loader := NewMemoryLoader()
	engine := MustNew(WithLoader(loader))
	require.NoError(t, engine.Close())
	require.NoError(t, engine.Close())

	_, err := engine.Parse("x", "y")
	requireCode(t, err, ErrCodeResolve)

	_, err = loader.Load(context.Background(), "x")
	assert.Equal(t, ErrMsgLoaderClosed, err.(*LoaderError).Message)
}

// walk visits n and every node nested in its bodies
func walk(n Node, visit func(Node)) {
	visit(n)
	for _, body := range Bodies(n) {
		for _, child := range body {
			walk(child, visit)
		}
	}
}
