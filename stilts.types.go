package stilts

import (
	"github.com/itsatony/go-stilts/internal"
)

// Document and plan types are defined by the core and re-exported here
type (
	// Source is the backing text of a template
	Source = internal.Source
	// Position is a 1-based line and column with a byte offset
	Position = internal.Position
	// Range is a half-open byte range into a Source
	Range = internal.Range
	// Diagnostic is a located error with optional related notes
	Diagnostic = internal.Diagnostic
	// ResolveError is a loading or resolution failure with its chain
	ResolveError = internal.ResolveError

	// Node is an element of an owned document tree
	Node = internal.Node
	// RootNode is a parsed template that owns its source
	RootNode = internal.RootNode
	// TemplateNode is one template of an inheritance chain
	TemplateNode = internal.TemplateNode
	// Graph is an inheritance chain ordered ancestor first
	Graph = internal.Graph

	// Plan is the linear, override-resolved output of resolution
	Plan = internal.Plan
	// PlanItem is one node of a plan with its template of origin
	PlanItem = internal.PlanItem
	// TemplateInfo carries per-template escaper, trim and MIME data
	TemplateInfo = internal.TemplateInfo
	// ScopeNode is a resolved include inside a plan
	ScopeNode = internal.ScopeNode

	// HostParser parses the embedded host-language fragments of a template
	HostParser = internal.HostParser
	// HostNode is a parsed host-language fragment
	HostNode = internal.HostNode
	// HostError is a host parser failure relative to its fragment
	HostError = internal.HostError
)

// NewSource creates a template source from a name and its text
func NewSource(name, text string) *Source {
	return internal.NewSource(name, text)
}

// Bodies returns the child lists of a node, in source order
func Bodies(n Node) [][]Node {
	return internal.Bodies(n)
}

// NewGoHost returns the Go host parser
func NewGoHost() HostParser {
	return internal.NewGoHost()
}

// NewStarlarkHost returns the Starlark host parser
func NewStarlarkHost() HostParser {
	return internal.NewStarlarkHost()
}

// HostByName returns the built-in host parser with the given name
func HostByName(name string) (HostParser, bool) {
	return internal.NewHostParser(name)
}

// HostNames lists the built-in host parsers
func HostNames() []string {
	return internal.HostParserNames()
}
