// Package stilts is a template-language front end. It parses templates that
// interleave markup with embedded host-language code and block-structured
// control constructs, and resolves template inheritance into a single linear
// plan.
//
// Stilts uses {% and %} delimiters by default:
//
//	{% extends "base.html" %}
//	{% block title %}{% super() %} - Docs{% end %}
//	{% block body %}
//	  {% for item in items %}<li>{% item.Name %}</li>{% end %}
//	{% end %}
//
// # Basic Usage
//
// Create an engine with a loader and resolve a template by reference:
//
//	loader := stilts.NewMemoryLoader()
//	loader.Add("base.html", "<title>{% block title %}Site{% end %}</title>")
//	loader.Add("page.html", `{% extends "base.html" %}{% block title %}Page{% end %}`)
//
//	engine := stilts.MustNew(stilts.WithLoader(loader))
//	plan, err := engine.Resolve(ctx, "page.html")
//	// plan.Literal(): "<title>Page</title>"
//
// A Plan lists every node that a renderer must evaluate, in order, with the
// template each node came from and that template's escaper and trim policy.
// Stilts itself never executes host code.
//
// # Constructs
//
//	{% extends "parent" %}              first item only
//	{% include "row.html" a: 1 %}       resolved as an isolated scope
//	{% block name %}...{% end %}        overridable region
//	{% super() %}                       parent version of the enclosing block
//	{% for x in xs %}...{% end %}       labelled: {% outer: for x in xs %}
//	{% if c %}...{% else if d %}...{% else %}...{% end %}
//	{% match v %}{% when P if g %}...{% end %}
//	{% macro name(params) %}...{% end %}
//	{% call name(args) %}
//	{% x := 1 %}                        any other tag is host code
//
// # Host Languages
//
// Embedded code is parsed by a HostParser. Go (go/parser) is the default and
// Starlark (go.starlark.net) is built in:
//
//	engine, _ := stilts.New(stilts.WithHost(stilts.NewStarlarkHost()))
//
// # Error Handling
//
// Every error returned by the engine is a *cuserr.CustomError carrying a
// STILTS_* code and position metadata. The structured diagnostic is still
// reachable:
//
//	_, err := engine.Parse("page.html", source)
//	var diag *stilts.Diagnostic
//	if errors.As(err, &diag) {
//	    fmt.Println(diag.DisplayFancy())
//	}
//
// # Configuration
//
// Customize the engine with functional options or a YAML file:
//
//	engine, _ := stilts.New(
//	    stilts.WithDelimiters("<%", "%>"),
//	    stilts.WithMaxDepth(16),
//	    stilts.WithLogger(logger),
//	)
//
//	cfg, _ := stilts.LoadConfig("stilts.yaml")
//	engine, _ := stilts.NewFromConfig(cfg)
package stilts
