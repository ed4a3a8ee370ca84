package internal

// Root is a parsed template: a view into its source. Nothing in the tree
// copies template text; every field is a window of Source.
type Root struct {
	Source *Source
	Items  []Item
}

// Item is one element of a template body
type Item interface {
	// Span returns the full window of the item, tags included
	Span() Cursor
	item()
}

// Branch is the continuation of an If: End, Else or ElseIf
type Branch interface {
	Span() Cursor
	branch()
}

// Content is literal markup between tags
type Content struct {
	Text Cursor
}

// Extends names the parent template. Only legal as the first item.
type Extends struct {
	Tag       Cursor
	Reference Cursor
}

// Include inserts another template, optionally binding fields
type Include struct {
	Tag        Cursor
	Reference  Cursor
	FieldsText Cursor
	Fields     HostNode
}

// Block is a named, overridable region
type Block struct {
	Whole Cursor
	Open  Cursor
	Name  Cursor
	Body  []Item
	Close Cursor
}

// SuperCall renders the parent's version of the enclosing block
type SuperCall struct {
	Tag Cursor
}

// For is a loop over a host-language iterable
type For struct {
	Whole        Cursor
	Open         Cursor
	Label        Cursor
	BindingText  Cursor
	Binding      HostNode
	IterableText Cursor
	Iterable     HostNode
	Body         []Item
	Close        Cursor
}

// If is a conditional with a chain of branches
type If struct {
	Whole    Cursor
	Open     Cursor
	CondText Cursor
	Cond     HostNode
	Body     []Item
	Branch   Branch
}

// EndBranch closes an If chain
type EndBranch struct {
	Tag Cursor
}

// ElseBranch is the final else of an If chain
type ElseBranch struct {
	Tag  Cursor
	Body []Item
	End  Cursor
}

// ElseIfBranch continues an If chain with another condition
type ElseIfBranch struct {
	Tag      Cursor
	CondText Cursor
	Cond     HostNode
	Body     []Item
	Branch   Branch
}

// Match is a pattern match over a host-language value
type Match struct {
	Whole         Cursor
	Open          Cursor
	ScrutineeText Cursor
	Scrutinee     HostNode
	Arms          []*MatchArm
	Close         Cursor
}

// MatchArm is one `when pattern [if guard]` arm
type MatchArm struct {
	Whole       Cursor
	Tag         Cursor
	PatternText Cursor
	Pattern     HostNode
	GuardText   Cursor
	Guard       HostNode
	Body        []Item
}

// MacroDef defines a reusable fragment
type MacroDef struct {
	Whole      Cursor
	Open       Cursor
	Name       Cursor
	ParamsText Cursor
	Params     HostNode
	Body       []Item
	Close      Cursor
}

// MacroCall invokes a macro
type MacroCall struct {
	Tag      Cursor
	Name     Cursor
	ArgsText Cursor
	Args     HostNode
}

// HostStmt is embedded host-language statement code
type HostStmt struct {
	Tag  Cursor
	Code Cursor
	Node HostNode
}

// HostExpr is an embedded host-language expression
type HostExpr struct {
	Tag  Cursor
	Code Cursor
	Node HostNode
}

func (c *Content) Span() Cursor   { return c.Text }
func (e *Extends) Span() Cursor   { return e.Tag }
func (i *Include) Span() Cursor   { return i.Tag }
func (b *Block) Span() Cursor     { return b.Whole }
func (s *SuperCall) Span() Cursor { return s.Tag }
func (f *For) Span() Cursor       { return f.Whole }
func (i *If) Span() Cursor        { return i.Whole }
func (m *Match) Span() Cursor     { return m.Whole }
func (m *MacroDef) Span() Cursor  { return m.Whole }
func (m *MacroCall) Span() Cursor { return m.Tag }
func (h *HostStmt) Span() Cursor  { return h.Tag }
func (h *HostExpr) Span() Cursor  { return h.Tag }

func (*Content) item()   {}
func (*Extends) item()   {}
func (*Include) item()   {}
func (*Block) item()     {}
func (*SuperCall) item() {}
func (*For) item()       {}
func (*If) item()        {}
func (*Match) item()     {}
func (*MacroDef) item()  {}
func (*MacroCall) item() {}
func (*HostStmt) item()  {}
func (*HostExpr) item()  {}

// Span of an EndBranch is its end tag
func (b *EndBranch) Span() Cursor { return b.Tag }

// Span of an ElseBranch runs from the else tag through the end tag
func (b *ElseBranch) Span() Cursor { return b.Tag.Join(b.End) }

// Span of an ElseIfBranch runs from its tag through the end of the chain
func (b *ElseIfBranch) Span() Cursor { return b.Tag.Join(b.Branch.Span()) }

func (*EndBranch) branch()    {}
func (*ElseBranch) branch()   {}
func (*ElseIfBranch) branch() {}

// Span of a MatchArm runs from its when tag through its body
func (a *MatchArm) Span() Cursor { return a.Whole }
