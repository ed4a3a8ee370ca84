package internal

import (
	"fmt"
	"strings"
)

// Node is the interface all owned AST nodes implement
type Node interface {
	// Type returns the node type identifier
	Type() NodeType
	// Pos returns the source position of this node
	Pos() Position
	// Span returns the byte range of this node in its template source
	Span() Range
	// String returns a human-readable representation
	String() string
}

// nodeBase carries the location shared by every owned node
type nodeBase struct {
	pos  Position
	span Range
}

// Pos returns the source position
func (b nodeBase) Pos() Position {
	return b.pos
}

// Span returns the source byte range
func (b nodeBase) Span() Range {
	return b.span
}

func baseOf(c Cursor) nodeBase {
	return nodeBase{pos: c.Position(), span: c.Range()}
}

// RootNode is the owned form of a parsed template. It keeps its own copy of
// the source so diagnostics can be rendered after the input is gone.
type RootNode struct {
	Source   *Source
	Children []Node
}

// Type returns NodeTypeRoot
func (n *RootNode) Type() NodeType {
	return NodeTypeRoot
}

// Pos returns the start of the template
func (n *RootNode) Pos() Position {
	return Position{Offset: 0, Line: 1, Column: 1}
}

// Span covers the whole source
func (n *RootNode) Span() Range {
	if n.Source == nil {
		return Range{}
	}
	return Range{Start: 0, End: len(n.Source.Text)}
}

// String returns a string representation of the root node
func (n *RootNode) String() string {
	var sb strings.Builder
	sb.WriteString("RootNode{\n")
	for i, child := range n.Children {
		sb.WriteString(fmt.Sprintf("  [%d] %s\n", i, child.String()))
	}
	sb.WriteString("}")
	return sb.String()
}

// Extends returns the extends node if the template has one
func (n *RootNode) Extends() (*ExtendsNode, bool) {
	if len(n.Children) == 0 {
		return nil, false
	}
	ext, ok := n.Children[0].(*ExtendsNode)
	return ext, ok
}

// Cursor returns a cursor over the owned source covering r
func (n *RootNode) Cursor(r Range) Cursor {
	c, ok := n.Source.Cursor().Slice(r.Start, r.End)
	if !ok {
		return n.Source.Cursor().Here()
	}
	return c
}

// TextNode represents literal markup
type TextNode struct {
	nodeBase
	Content string
}

// Type returns NodeTypeText
func (n *TextNode) Type() NodeType { return NodeTypeText }

// String returns a string representation
func (n *TextNode) String() string {
	return fmt.Sprintf("TextNode{%q @ %s}", truncate(n.Content), n.pos)
}

// ExtendsNode names the parent template
type ExtendsNode struct {
	nodeBase
	Reference string
}

// Type returns NodeTypeExtends
func (n *ExtendsNode) Type() NodeType { return NodeTypeExtends }

// String returns a string representation
func (n *ExtendsNode) String() string {
	return fmt.Sprintf("ExtendsNode{%q @ %s}", n.Reference, n.pos)
}

// IncludeNode inserts another template
type IncludeNode struct {
	nodeBase
	Reference string
	Fields    string
	Host      HostNode
}

// Type returns NodeTypeInclude
func (n *IncludeNode) Type() NodeType { return NodeTypeInclude }

// String returns a string representation
func (n *IncludeNode) String() string {
	return fmt.Sprintf("IncludeNode{%q, fields=%q @ %s}", n.Reference, truncate(n.Fields), n.pos)
}

// BlockNode is a named overridable region
type BlockNode struct {
	nodeBase
	Name     string
	Children []Node
}

// Type returns NodeTypeBlock
func (n *BlockNode) Type() NodeType { return NodeTypeBlock }

// String returns a string representation
func (n *BlockNode) String() string {
	return fmt.Sprintf("BlockNode{%s, children=%d @ %s}", n.Name, len(n.Children), n.pos)
}

// SuperNode renders the parent's version of the enclosing block
type SuperNode struct {
	nodeBase
}

// Type returns NodeTypeSuper
func (n *SuperNode) Type() NodeType { return NodeTypeSuper }

// String returns a string representation
func (n *SuperNode) String() string {
	return fmt.Sprintf("SuperNode{@ %s}", n.pos)
}

// ForNode is a loop
type ForNode struct {
	nodeBase
	Label        string
	Binding      string
	BindingHost  HostNode
	Iterable     string
	IterableHost HostNode
	Children     []Node
}

// Type returns NodeTypeFor
func (n *ForNode) Type() NodeType { return NodeTypeFor }

// String returns a string representation
func (n *ForNode) String() string {
	label := ""
	if n.Label != "" {
		label = n.Label + ": "
	}
	return fmt.Sprintf("ForNode{%s%s in %s, children=%d @ %s}", label, n.Binding, truncate(n.Iterable), len(n.Children), n.pos)
}

// IfNode is a conditional. Else is nil, an *ElseNode or an *ElseIfNode.
type IfNode struct {
	nodeBase
	Condition string
	Host      HostNode
	Children  []Node
	Else      Node
}

// Type returns NodeTypeIf
func (n *IfNode) Type() NodeType { return NodeTypeIf }

// String returns a string representation
func (n *IfNode) String() string {
	return fmt.Sprintf("IfNode{%s, children=%d, else=%t @ %s}", truncate(n.Condition), len(n.Children), n.Else != nil, n.pos)
}

// ElseNode is the final branch of an if chain
type ElseNode struct {
	nodeBase
	Children []Node
}

// Type returns NodeTypeElse
func (n *ElseNode) Type() NodeType { return NodeTypeElse }

// String returns a string representation
func (n *ElseNode) String() string {
	return fmt.Sprintf("ElseNode{children=%d @ %s}", len(n.Children), n.pos)
}

// ElseIfNode continues an if chain
type ElseIfNode struct {
	nodeBase
	Condition string
	Host      HostNode
	Children  []Node
	Else      Node
}

// Type returns NodeTypeElseIf
func (n *ElseIfNode) Type() NodeType { return NodeTypeElseIf }

// String returns a string representation
func (n *ElseIfNode) String() string {
	return fmt.Sprintf("ElseIfNode{%s, children=%d @ %s}", truncate(n.Condition), len(n.Children), n.pos)
}

// MatchNode is a pattern match
type MatchNode struct {
	nodeBase
	Scrutinee string
	Host      HostNode
	Arms      []*MatchArmNode
}

// Type returns NodeTypeMatch
func (n *MatchNode) Type() NodeType { return NodeTypeMatch }

// String returns a string representation
func (n *MatchNode) String() string {
	return fmt.Sprintf("MatchNode{%s, arms=%d @ %s}", truncate(n.Scrutinee), len(n.Arms), n.pos)
}

// MatchArmNode is one arm of a match
type MatchArmNode struct {
	nodeBase
	Pattern     string
	PatternHost HostNode
	Guard       string
	GuardHost   HostNode
	Children    []Node
}

// Type returns NodeTypeMatchArm
func (n *MatchArmNode) Type() NodeType { return NodeTypeMatchArm }

// String returns a string representation
func (n *MatchArmNode) String() string {
	if n.Guard != "" {
		return fmt.Sprintf("MatchArmNode{%s if %s @ %s}", n.Pattern, truncate(n.Guard), n.pos)
	}
	return fmt.Sprintf("MatchArmNode{%s @ %s}", n.Pattern, n.pos)
}

// MacroNode defines a macro
type MacroNode struct {
	nodeBase
	Name     string
	Params   string
	Host     HostNode
	Children []Node
}

// Type returns NodeTypeMacro
func (n *MacroNode) Type() NodeType { return NodeTypeMacro }

// String returns a string representation
func (n *MacroNode) String() string {
	return fmt.Sprintf("MacroNode{%s(%s), children=%d @ %s}", n.Name, n.Params, len(n.Children), n.pos)
}

// CallNode invokes a macro
type CallNode struct {
	nodeBase
	Name string
	Args string
	Host HostNode
}

// Type returns NodeTypeCall
func (n *CallNode) Type() NodeType { return NodeTypeCall }

// String returns a string representation
func (n *CallNode) String() string {
	return fmt.Sprintf("CallNode{%s(%s) @ %s}", n.Name, truncate(n.Args), n.pos)
}

// StmtNode is embedded host statement code
type StmtNode struct {
	nodeBase
	Code string
	Host HostNode
}

// Type returns NodeTypeStmt
func (n *StmtNode) Type() NodeType { return NodeTypeStmt }

// String returns a string representation
func (n *StmtNode) String() string {
	return fmt.Sprintf("StmtNode{%q @ %s}", truncate(n.Code), n.pos)
}

// ExprNode is an embedded host expression
type ExprNode struct {
	nodeBase
	Code string
	Host HostNode
}

// Type returns NodeTypeExpr
func (n *ExprNode) Type() NodeType { return NodeTypeExpr }

// String returns a string representation
func (n *ExprNode) String() string {
	return fmt.Sprintf("ExprNode{%q @ %s}", truncate(n.Code), n.pos)
}

func truncate(s string) string {
	if len(s) > MaxStringDisplayLength {
		return s[:TruncatedStringLength] + TruncationSuffix
	}
	return s
}

// Bodies returns the child node lists of n, in source order. Else branches
// and match arms are returned as single-node lists so walkers see them.
func Bodies(n Node) [][]Node {
	switch n := n.(type) {
	case *RootNode:
		return [][]Node{n.Children}
	case *BlockNode:
		return [][]Node{n.Children}
	case *ForNode:
		return [][]Node{n.Children}
	case *IfNode:
		if n.Else != nil {
			return [][]Node{n.Children, {n.Else}}
		}
		return [][]Node{n.Children}
	case *ElseIfNode:
		if n.Else != nil {
			return [][]Node{n.Children, {n.Else}}
		}
		return [][]Node{n.Children}
	case *ElseNode:
		return [][]Node{n.Children}
	case *MatchNode:
		arms := make([]Node, len(n.Arms))
		for i, a := range n.Arms {
			arms[i] = a
		}
		return [][]Node{arms}
	case *MatchArmNode:
		return [][]Node{n.Children}
	case *MacroNode:
		return [][]Node{n.Children}
	case *ScopeNode:
		return nil
	}
	return nil
}

// Walk visits nodes depth-first. Returning false from fn skips the
// children of that node.
func Walk(nodes []Node, fn func(Node) bool) {
	for _, n := range nodes {
		if !fn(n) {
			continue
		}
		for _, body := range Bodies(n) {
			Walk(body, fn)
		}
	}
}

// Own converts a borrowed tree into an owned one. Every string is copied, so
// the result stays valid independently of the input text.
func Own(root *Root) *RootNode {
	return &RootNode{
		Source:   root.Source.Clone(),
		Children: ownItems(root.Items),
	}
}

func ownItems(items []Item) []Node {
	nodes := make([]Node, 0, len(items))
	for _, it := range items {
		nodes = append(nodes, ownItem(it))
	}
	return nodes
}

func own(c Cursor) string {
	return strings.Clone(c.String())
}

func ownItem(it Item) Node {
	switch it := it.(type) {
	case *Content:
		return &TextNode{nodeBase: baseOf(it.Text), Content: own(it.Text)}
	case *Extends:
		return &ExtendsNode{nodeBase: baseOf(it.Tag), Reference: own(it.Reference)}
	case *Include:
		return &IncludeNode{nodeBase: baseOf(it.Tag), Reference: own(it.Reference), Fields: own(it.FieldsText), Host: it.Fields}
	case *Block:
		return &BlockNode{nodeBase: baseOf(it.Whole), Name: own(it.Name), Children: ownItems(it.Body)}
	case *SuperCall:
		return &SuperNode{nodeBase: baseOf(it.Tag)}
	case *For:
		return &ForNode{
			nodeBase:     baseOf(it.Whole),
			Label:        own(it.Label),
			Binding:      own(it.BindingText),
			BindingHost:  it.Binding,
			Iterable:     own(it.IterableText),
			IterableHost: it.Iterable,
			Children:     ownItems(it.Body),
		}
	case *If:
		return &IfNode{
			nodeBase:  baseOf(it.Whole),
			Condition: own(it.CondText),
			Host:      it.Cond,
			Children:  ownItems(it.Body),
			Else:      ownBranch(it.Branch),
		}
	case *Match:
		arms := make([]*MatchArmNode, 0, len(it.Arms))
		for _, a := range it.Arms {
			arms = append(arms, &MatchArmNode{
				nodeBase:    baseOf(a.Whole),
				Pattern:     own(a.PatternText),
				PatternHost: a.Pattern,
				Guard:       own(a.GuardText),
				GuardHost:   a.Guard,
				Children:    ownItems(a.Body),
			})
		}
		return &MatchNode{nodeBase: baseOf(it.Whole), Scrutinee: own(it.ScrutineeText), Host: it.Scrutinee, Arms: arms}
	case *MacroDef:
		return &MacroNode{nodeBase: baseOf(it.Whole), Name: own(it.Name), Params: own(it.ParamsText), Host: it.Params, Children: ownItems(it.Body)}
	case *MacroCall:
		return &CallNode{nodeBase: baseOf(it.Tag), Name: own(it.Name), Args: own(it.ArgsText), Host: it.Args}
	case *HostStmt:
		return &StmtNode{nodeBase: baseOf(it.Tag), Code: own(it.Code), Host: it.Node}
	case *HostExpr:
		return &ExprNode{nodeBase: baseOf(it.Tag), Code: own(it.Code), Host: it.Node}
	}
	panic(fmt.Sprintf("unknown item type %T", it))
}

func ownBranch(b Branch) Node {
	switch b := b.(type) {
	case *ElseBranch:
		return &ElseNode{nodeBase: baseOf(b.Span()), Children: ownItems(b.Body)}
	case *ElseIfBranch:
		return &ElseIfNode{
			nodeBase:  baseOf(b.Span()),
			Condition: own(b.CondText),
			Host:      b.Cond,
			Children:  ownItems(b.Body),
			Else:      ownBranch(b.Branch),
		}
	}
	return nil
}
