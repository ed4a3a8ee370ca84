package internal

import (
	"fmt"
	"strings"
)

// TemplateInfo describes one template that contributed to a plan
type TemplateInfo struct {
	Identity  string
	Reference string
	Escaper   string
	Trim      bool
	MimeType  string
}

// PlanItem is one element of a resolved plan. Origin indexes Plan.Templates
// and names the template whose text the node came from.
type PlanItem struct {
	Origin int
	Node   Node
}

// Plan is the linear, override-resolved output of the inheritance
// resolver.
type Plan struct {
	Templates []TemplateInfo
	Items     []PlanItem
}

// Nodes returns the plan's nodes without origins
func (p *Plan) Nodes() []Node {
	nodes := make([]Node, len(p.Items))
	for i, it := range p.Items {
		nodes[i] = it.Node
	}
	return nodes
}

// Template returns the template info for an item
func (p *Plan) Template(it PlanItem) TemplateInfo {
	if it.Origin < 0 || it.Origin >= len(p.Templates) {
		return TemplateInfo{}
	}
	return p.Templates[it.Origin]
}

// Literal concatenates the literal text of the plan, descending into
// control constructs and includes. Host code contributes nothing. It is a
// preview of the static markup, not a rendering.
func (p *Plan) Literal() string {
	var sb strings.Builder
	writeLiteral(&sb, p.Nodes())
	return sb.String()
}

func writeLiteral(sb *strings.Builder, nodes []Node) {
	for _, n := range nodes {
		switch n := n.(type) {
		case *TextNode:
			sb.WriteString(n.Content)
		case *ScopeNode:
			if n.Plan != nil {
				sb.WriteString(n.Plan.Literal())
			}
		default:
			for _, body := range Bodies(n) {
				writeLiteral(sb, body)
			}
		}
	}
}

// Outline renders one line per plan item, indented by nesting depth
func (p *Plan) Outline() []string {
	var lines []string
	for _, it := range p.Items {
		origin := p.Template(it).Identity
		if origin == "" {
			origin = LiteralIdentity
		}
		lines = outline(lines, it.Node, origin, 0)
	}
	return lines
}

func outline(lines []string, n Node, origin string, depth int) []string {
	lines = append(lines, fmt.Sprintf("%s[%s] %s", strings.Repeat("  ", depth), origin, n.String()))
	if scope, ok := n.(*ScopeNode); ok && scope.Plan != nil {
		for _, it := range scope.Plan.Items {
			inner := scope.Plan.Template(it).Identity
			lines = outline(lines, it.Node, inner, depth+1)
		}
		return lines
	}
	for _, body := range Bodies(n) {
		for _, child := range body {
			lines = outline(lines, child, origin, depth+1)
		}
	}
	return lines
}

// ScopeNode is a resolved include: the included template's own plan,
// evaluated with the include's field bindings in scope.
type ScopeNode struct {
	nodeBase
	Reference string
	Fields    string
	Args      HostNode
	Plan      *Plan
}

// Type returns NodeTypeScope
func (n *ScopeNode) Type() NodeType { return NodeTypeScope }

// String returns a string representation
func (n *ScopeNode) String() string {
	items := 0
	if n.Plan != nil {
		items = len(n.Plan.Items)
	}
	return fmt.Sprintf("ScopeNode{%q, fields=%q, items=%d @ %s}", n.Reference, truncate(n.Fields), items, n.pos)
}
