package internal

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"path"
	"slices"
	"strings"

	"go.uber.org/zap"
)

// SourceLoader provides template sources by reference. The Name of the
// returned Source is the template's identity.
type SourceLoader interface {
	LoadSource(ctx context.Context, reference string) (*Source, error)
}

// TemplateNode is one parsed template of an inheritance chain
type TemplateNode struct {
	Identity  string
	Reference string
	Root      *RootNode
	Blocks    map[string]*BlockNode
}

// Graph is an inheritance chain ordered ancestor first. The last node is
// the template that was requested.
type Graph struct {
	Nodes []*TemplateNode
}

// Requested returns the template the graph was loaded for
func (g *Graph) Requested() *TemplateNode {
	if len(g.Nodes) == 0 {
		return nil
	}
	return g.Nodes[len(g.Nodes)-1]
}

// Identities returns the identities of the chain, ancestor first
func (g *Graph) Identities() []string {
	ids := make([]string, len(g.Nodes))
	for i, n := range g.Nodes {
		ids[i] = n.Identity
	}
	return ids
}

// ResolveErrorKind classifies resolver failures
type ResolveErrorKind int

const (
	ResolveErrorParse ResolveErrorKind = iota
	ResolveErrorLoad
	ResolveErrorCycle
	ResolveErrorDepth
	ResolveErrorBlock
	ResolveErrorGraph
)

// Resolve error kind names
const (
	ResolveErrorNameParse = "parse"
	ResolveErrorNameLoad  = "load"
	ResolveErrorNameCycle = "cycle"
	ResolveErrorNameDepth = "depth"
	ResolveErrorNameBlock = "block"
	ResolveErrorNameGraph = "graph"
)

// String returns the kind name
func (k ResolveErrorKind) String() string {
	switch k {
	case ResolveErrorParse:
		return ResolveErrorNameParse
	case ResolveErrorLoad:
		return ResolveErrorNameLoad
	case ResolveErrorCycle:
		return ResolveErrorNameCycle
	case ResolveErrorDepth:
		return ResolveErrorNameDepth
	case ResolveErrorBlock:
		return ResolveErrorNameBlock
	default:
		return ResolveErrorNameGraph
	}
}

// ResolveError is a failure of loading or resolving a template graph. It
// always carries a diagnostic; Cause holds the loader error, if any.
type ResolveError struct {
	Kind       ResolveErrorKind
	Identity   string
	Reference  string
	Chain      []string
	Diagnostic *Diagnostic
	Cause      error
}

// Error returns the diagnostic's single-line display
func (e *ResolveError) Error() string {
	return e.Diagnostic.Error()
}

// Unwrap exposes both the diagnostic and the cause to errors.As and errors.Is
func (e *ResolveError) Unwrap() []error {
	errs := []error{e.Diagnostic}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return errs
}

// ResolverConfig holds resolver configuration
type ResolverConfig struct {
	MaxDepth       int
	Blocks         BlockPolicy
	Escapers       map[string]string // file extension without dot -> escaper name
	DefaultEscaper string
	Trim           bool
}

// ResolveOptions override configuration for a single resolution
type ResolveOptions struct {
	Escaper string
	Trim    *bool
}

// InheritanceResolver loads inheritance chains and flattens them into plans.
// It keeps no state between calls.
type InheritanceResolver struct {
	grammar *Grammar
	loader  SourceLoader
	config  ResolverConfig
	logger  *zap.Logger
}

// NewInheritanceResolver creates a new inheritance resolver
func NewInheritanceResolver(grammar *Grammar, loader SourceLoader, config ResolverConfig, logger *zap.Logger) *InheritanceResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	if grammar == nil {
		grammar = NewGrammar(DefaultGrammarConfig(), logger)
	}
	if config.MaxDepth <= 0 {
		config.MaxDepth = DefaultMaxDepth
	}
	logger.Debug(LogMsgResolverCreated, zap.Int(LogFieldDepth, config.MaxDepth))
	return &InheritanceResolver{
		grammar: grammar,
		loader:  loader,
		config:  config,
		logger:  logger,
	}
}

// MaxDepth returns the effective depth guard
func (r *InheritanceResolver) MaxDepth() int {
	return r.config.MaxDepth
}

// Grammar returns the grammar used to parse loaded templates
func (r *InheritanceResolver) Grammar() *Grammar {
	return r.grammar
}

// Parse parses a source into a template node with its block registry
func (r *InheritanceResolver) Parse(src *Source, reference string) (*TemplateNode, error) {
	root, err := r.grammar.Parse(src)
	if err != nil {
		return nil, r.parseError(src.Name, reference, err)
	}
	owned := Own(root)
	blocks, err := CollectBlocks(owned, r.config.Blocks, r.logger)
	if err != nil {
		return nil, r.parseError(src.Name, reference, err)
	}
	return &TemplateNode{Identity: src.Name, Reference: reference, Root: owned, Blocks: blocks}, nil
}

func (r *InheritanceResolver) parseError(identity, reference string, err error) error {
	var diag *Diagnostic
	if !errors.As(err, &diag) {
		diag = NewDiagnostic(err.Error(), Cursor{})
	}
	return &ResolveError{Kind: ResolveErrorParse, Identity: identity, Reference: reference, Diagnostic: diag}
}

// Load fetches the template named by reference and every ancestor it
// extends.
func (r *InheritanceResolver) Load(ctx context.Context, reference string) (*Graph, error) {
	node, err := r.fetch(ctx, reference, nil, Range{})
	if err != nil {
		return nil, err
	}
	return r.chain(ctx, node)
}

// LoadSource is Load for a literal template. A literal with an empty name
// has no identity and never takes part in cycle detection.
func (r *InheritanceResolver) LoadSource(ctx context.Context, src *Source) (*Graph, error) {
	node, err := r.Parse(src, "")
	if err != nil {
		return nil, err
	}
	return r.chain(ctx, node)
}

// fetch loads and parses one template. from and at locate the tag that
// referenced it, for diagnostics.
func (r *InheritanceResolver) fetch(ctx context.Context, reference string, from *TemplateNode, at Range) (*TemplateNode, error) {
	var site Cursor
	if from != nil {
		site = from.Root.Cursor(at)
	}
	if r.loader == nil {
		return nil, &ResolveError{Kind: ResolveErrorLoad, Reference: reference, Diagnostic: NewDiagnostic(ErrMsgLoaderMissing, site)}
	}
	if err := ctx.Err(); err != nil {
		return nil, &ResolveError{Kind: ResolveErrorLoad, Reference: reference, Diagnostic: NewDiagnosticf(site, ErrMsgLoadFailed, reference), Cause: err}
	}

	src, err := r.loader.LoadSource(ctx, reference)
	if err != nil {
		return nil, &ResolveError{Kind: ResolveErrorLoad, Reference: reference, Diagnostic: NewDiagnosticf(site, ErrMsgLoadFailed, reference), Cause: err}
	}
	r.logger.Debug(LogMsgTemplateLoaded, zap.String(LogFieldReference, reference), zap.String(LogFieldIdentity, src.Name))
	return r.Parse(src, reference)
}

// chain follows extends from node up to the topmost ancestor and returns
// the chain ancestor first.
func (r *InheritanceResolver) chain(ctx context.Context, node *TemplateNode) (*Graph, error) {
	nodes := []*TemplateNode{node}
	cur := node
	for {
		ext, ok := cur.Root.Extends()
		if !ok {
			break
		}
		if len(nodes) >= r.config.MaxDepth {
			return nil, &ResolveError{
				Kind:       ResolveErrorDepth,
				Identity:   cur.Identity,
				Reference:  ext.Reference,
				Chain:      identities(nodes),
				Diagnostic: NewDiagnosticf(cur.Root.Cursor(ext.Span()), ErrMsgDepthExceeded, r.config.MaxDepth),
			}
		}
		parent, err := r.fetch(ctx, ext.Reference, cur, ext.Span())
		if err != nil {
			return nil, err
		}
		if indexOfIdentity(nodes, parent.Identity) >= 0 {
			return nil, cycleError(nodes, parent.Identity)
		}
		nodes = append(nodes, parent)
		cur = parent
	}

	slices.Reverse(nodes)
	graph := &Graph{Nodes: nodes}
	r.logger.Debug(LogMsgChainBuilt, zap.Strings(LogFieldChain, graph.Identities()))
	return graph, nil
}

func identities(nodes []*TemplateNode) []string {
	ids := make([]string, len(nodes))
	for i, n := range nodes {
		ids[i] = n.Identity
	}
	return ids
}

func indexOfIdentity(nodes []*TemplateNode, identity string) int {
	if identity == "" {
		return -1
	}
	for i, n := range nodes {
		if n.Identity == identity {
			return i
		}
	}
	return -1
}

// cycleError reports an extends cycle. The chain is the whole load order
// ending at the repeated identity. The primary diagnostic points at the
// extends tag that closes the cycle; each step is a related diagnostic.
func cycleError(loaded []*TemplateNode, back string) *ResolveError {
	chain := append(identities(loaded), back)
	last := loaded[len(loaded)-1]
	lastExt, _ := last.Root.Extends()

	diag := NewDiagnosticf(last.Root.Cursor(lastExt.Span()), ErrMsgDependencyCycle, strings.Join(chain, ChainSeparator))
	for _, n := range loaded {
		ext, _ := n.Root.Extends()
		diag.WithRelated(NewDiagnosticf(n.Root.Cursor(ext.Span()), ErrMsgParentExtendsHere, ext.Reference))
	}
	return &ResolveError{Kind: ResolveErrorCycle, Identity: last.Identity, Reference: lastExt.Reference, Chain: chain, Diagnostic: diag}
}

// Resolve flattens a graph into a plan. Each block is expanded from the
// deepest template that overrides it; super() inside an override expands
// the direct parent's version. Includes are loaded and resolved as
// independent graphs.
func (r *InheritanceResolver) Resolve(ctx context.Context, g *Graph, opts ResolveOptions) (*Plan, error) {
	return r.resolve(ctx, g, opts, nil)
}

// ResolveBlock resolves only the named block of a graph
func (r *InheritanceResolver) ResolveBlock(ctx context.Context, g *Graph, name string, opts ResolveOptions) (*Plan, error) {
	e, err := r.newExpansion(ctx, g, opts, nil)
	if err != nil {
		return nil, err
	}
	if e.deepest(name) < 0 {
		return nil, &ResolveError{
			Kind:       ResolveErrorBlock,
			Identity:   g.Requested().Identity,
			Chain:      g.Identities(),
			Diagnostic: NewDiagnosticf(Cursor{}, ErrMsgBlockNotFound, name),
		}
	}
	if err := e.block(name); err != nil {
		return nil, err
	}
	return e.plan, nil
}

func (r *InheritanceResolver) resolve(ctx context.Context, g *Graph, opts ResolveOptions, stack []string) (*Plan, error) {
	e, err := r.newExpansion(ctx, g, opts, stack)
	if err != nil {
		return nil, err
	}

	registered := make(map[string]bool)
	for i, node := range g.Nodes {
		for _, child := range node.Root.Children {
			if err := e.top(i, child, registered); err != nil {
				return nil, err
			}
		}
		for name := range node.Blocks {
			registered[name] = true
		}
	}

	r.logger.Debug(LogMsgPlanResolved,
		zap.Strings(LogFieldChain, g.Identities()),
		zap.Int(LogFieldItems, len(e.plan.Items)),
		zap.Int(LogFieldDepth, len(stack)))
	return e.plan, nil
}

// expansion is the state of one Resolve call
type expansion struct {
	ctx   context.Context
	r     *InheritanceResolver
	graph *Graph
	opts  ResolveOptions
	stack []string
	plan  *Plan

	// active holds the blocks being expanded, to reject a block that ends
	// up nested inside itself through overrides.
	active map[string]bool
}

func (r *InheritanceResolver) newExpansion(ctx context.Context, g *Graph, opts ResolveOptions, stack []string) (*expansion, error) {
	if g == nil || len(g.Nodes) == 0 {
		return nil, &ResolveError{Kind: ResolveErrorGraph, Diagnostic: NewDiagnostic(ErrMsgGraphEmpty, Cursor{})}
	}
	infos := make([]TemplateInfo, len(g.Nodes))
	for i, n := range g.Nodes {
		infos[i] = r.templateInfo(n, opts)
	}
	return &expansion{
		ctx:    ctx,
		r:      r,
		graph:  g,
		opts:   opts,
		stack:  append(slices.Clone(stack), g.Requested().Identity),
		plan:   &Plan{Templates: infos},
		active: make(map[string]bool),
	}, nil
}

// templateInfo picks the escaper (override, then extension table, then
// default), the trim policy and the MIME type of a template.
func (r *InheritanceResolver) templateInfo(n *TemplateNode, opts ResolveOptions) TemplateInfo {
	ext := path.Ext(n.Identity)
	info := TemplateInfo{
		Identity:  n.Identity,
		Reference: n.Reference,
		Escaper:   r.config.DefaultEscaper,
		Trim:      r.config.Trim,
		MimeType:  mime.TypeByExtension(ext),
	}
	if esc, ok := r.config.Escapers[strings.TrimPrefix(ext, ".")]; ok {
		info.Escaper = esc
	}
	if opts.Escaper != "" {
		info.Escaper = opts.Escaper
	}
	if opts.Trim != nil {
		info.Trim = *opts.Trim
	}
	return info
}

// top emits a top-level item of template i. Blocks registered by an earlier
// template were already expanded there.
func (e *expansion) top(i int, n Node, registered map[string]bool) error {
	switch n := n.(type) {
	case *ExtendsNode:
		return nil
	case *BlockNode:
		if registered[n.Name] {
			return nil
		}
		return e.block(n.Name)
	}
	return e.emit(i, n)
}

// deepest returns the index of the last template defining name, or -1
func (e *expansion) deepest(name string) int {
	for i := len(e.graph.Nodes) - 1; i >= 0; i-- {
		if _, ok := e.graph.Nodes[i].Blocks[name]; ok {
			return i
		}
	}
	return -1
}

func (e *expansion) block(name string) error {
	idx := e.deepest(name)
	if idx < 0 {
		return nil
	}
	node := e.graph.Nodes[idx]
	b := node.Blocks[name]
	if e.active[name] {
		return &ResolveError{
			Kind:       ResolveErrorBlock,
			Identity:   node.Identity,
			Chain:      e.graph.Identities(),
			Diagnostic: NewDiagnosticf(node.Root.Cursor(b.Span()), ErrMsgRecursiveBlock, name),
		}
	}
	e.active[name] = true
	defer delete(e.active, name)

	e.r.logger.Debug(LogMsgBlockOverridden, zap.String(LogFieldBlock, name), zap.String(LogFieldOrigin, node.Identity))
	return e.blockBody(idx, b)
}

func (e *expansion) blockBody(idx int, b *BlockNode) error {
	for _, child := range b.Children {
		var err error
		switch c := child.(type) {
		case *BlockNode:
			err = e.block(c.Name)
		case *SuperNode:
			err = e.super(idx, b.Name)
		default:
			err = e.emit(idx, child)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// super expands the direct parent's version of the block. It expands to
// nothing at the root or when the parent does not define the block.
func (e *expansion) super(idx int, name string) error {
	if idx > 0 {
		if parent, ok := e.graph.Nodes[idx-1].Blocks[name]; ok {
			return e.blockBody(idx-1, parent)
		}
	}
	e.r.logger.Debug(LogMsgSuperUnresolved, zap.String(LogFieldBlock, name), zap.String(LogFieldOrigin, e.graph.Nodes[idx].Identity))
	return nil
}

func (e *expansion) emit(idx int, n Node) error {
	out, err := e.rewrite(idx, n)
	if err != nil || out == nil {
		return err
	}
	e.plan.Items = append(e.plan.Items, PlanItem{Origin: idx, Node: out})
	return nil
}

// rewrite returns n with trimming applied and includes resolved, copying
// any node it changes. A nil result drops the node.
func (e *expansion) rewrite(idx int, n Node) (Node, error) {
	var err error
	switch n := n.(type) {
	case *TextNode:
		if !e.plan.Templates[idx].Trim {
			return n, nil
		}
		content := strings.TrimSpace(n.Content)
		if content == "" {
			return nil, nil
		}
		cp := *n
		cp.Content = content
		return &cp, nil
	case *IncludeNode:
		return e.include(idx, n)
	case *ForNode:
		cp := *n
		cp.Children, err = e.rewriteAll(idx, n.Children)
		return &cp, err
	case *IfNode:
		cp := *n
		if cp.Children, err = e.rewriteAll(idx, n.Children); err != nil {
			return nil, err
		}
		if n.Else != nil {
			cp.Else, err = e.rewrite(idx, n.Else)
		}
		return &cp, err
	case *ElseIfNode:
		cp := *n
		if cp.Children, err = e.rewriteAll(idx, n.Children); err != nil {
			return nil, err
		}
		if n.Else != nil {
			cp.Else, err = e.rewrite(idx, n.Else)
		}
		return &cp, err
	case *ElseNode:
		cp := *n
		cp.Children, err = e.rewriteAll(idx, n.Children)
		return &cp, err
	case *MatchNode:
		cp := *n
		cp.Arms = make([]*MatchArmNode, len(n.Arms))
		for i, arm := range n.Arms {
			armCopy := *arm
			if armCopy.Children, err = e.rewriteAll(idx, arm.Children); err != nil {
				return nil, err
			}
			cp.Arms[i] = &armCopy
		}
		return &cp, nil
	case *MacroNode:
		cp := *n
		cp.Children, err = e.rewriteAll(idx, n.Children)
		return &cp, err
	}
	return n, nil
}

func (e *expansion) rewriteAll(idx int, nodes []Node) ([]Node, error) {
	out := make([]Node, 0, len(nodes))
	for _, n := range nodes {
		rn, err := e.rewrite(idx, n)
		if err != nil {
			return nil, err
		}
		if rn != nil {
			out = append(out, rn)
		}
	}
	return out, nil
}

// include loads and resolves an included template as its own graph
func (e *expansion) include(idx int, n *IncludeNode) (Node, error) {
	from := e.graph.Nodes[idx]
	site := from.Root.Cursor(n.Span())
	if len(e.stack) >= e.r.config.MaxDepth {
		return nil, &ResolveError{
			Kind:       ResolveErrorDepth,
			Identity:   from.Identity,
			Reference:  n.Reference,
			Chain:      slices.Clone(e.stack),
			Diagnostic: NewDiagnosticf(site, ErrMsgDepthExceeded, e.r.config.MaxDepth),
		}
	}

	node, err := e.r.fetch(e.ctx, n.Reference, from, n.Span())
	if err != nil {
		return nil, err
	}
	if pos := slices.Index(e.stack, node.Identity); pos >= 0 {
		chain := append(slices.Clone(e.stack[pos:]), node.Identity)
		return nil, &ResolveError{
			Kind:       ResolveErrorCycle,
			Identity:   from.Identity,
			Reference:  n.Reference,
			Chain:      chain,
			Diagnostic: NewDiagnosticf(site, ErrMsgIncludeCycle, strings.Join(chain, ChainSeparator)),
		}
	}

	sub, err := e.r.chain(e.ctx, node)
	if err != nil {
		return nil, err
	}
	plan, err := e.r.resolve(e.ctx, sub, e.opts, e.stack)
	if err != nil {
		return nil, err
	}
	e.r.logger.Debug(LogMsgIncludeExpanded, zap.String(LogFieldReference, n.Reference), zap.Int(LogFieldItems, len(plan.Items)))
	return &ScopeNode{nodeBase: n.nodeBase, Reference: n.Reference, Fields: n.Fields, Args: n.Host, Plan: plan}, nil
}

// String renders the chain for debugging
func (g *Graph) String() string {
	return fmt.Sprintf("Graph{%s}", strings.Join(g.Identities(), ChainSeparator))
}
