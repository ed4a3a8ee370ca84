package stilts

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/itsatony/go-stilts/internal"
)

// Engine is the main entry point for stilts. It parses templates, loads
// inheritance chains through its loader and resolves them into plans.
// An Engine is safe for concurrent use.
type Engine struct {
	grammar  *internal.Grammar
	resolver *internal.InheritanceResolver
	loader   TemplateLoader
	config   *engineConfig
	logger   *zap.Logger

	mu     sync.RWMutex
	closed bool
}

// New creates a new stilts Engine with the given options.
func New(opts ...Option) (*Engine, error) {
	config := defaultEngineConfig()
	for _, opt := range opts {
		opt(config)
	}

	logger := config.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	if config.openDelim == "" || config.closeDelim == "" || config.openDelim == config.closeDelim {
		return nil, NewConfigError(ErrMsgInvalidDelims, ConfigKeyDelimiters, config.openDelim+" "+config.closeDelim)
	}
	if config.maxDepth < 0 {
		return nil, NewConfigError(ErrMsgInvalidMaxDepth, ConfigKeyMaxDepth, "")
	}
	if config.host == nil {
		config.host = NewGoHost()
	}

	grammar := internal.NewGrammar(internal.GrammarConfig{
		Delimiters: internal.Delimiters{Open: config.openDelim, Close: config.closeDelim},
		Host:       config.host,
	}, logger)

	var src internal.SourceLoader
	if config.loader != nil {
		src = sourceLoader{loader: config.loader}
	}
	resolver := internal.NewInheritanceResolver(grammar, src, internal.ResolverConfig{
		MaxDepth:       config.maxDepth,
		Blocks:         config.blockPolicy,
		Escapers:       config.escapers,
		DefaultEscaper: config.defaultEscaper,
		Trim:           config.trim,
	}, logger)

	logger.Debug(LogMsgEngineCreated,
		zap.String(LogFieldHost, config.host.Name()),
		zap.Int(LogFieldMaxDepth, resolver.MaxDepth()))

	return &Engine{
		grammar:  grammar,
		resolver: resolver,
		loader:   config.loader,
		config:   config,
		logger:   logger,
	}, nil
}

// MustNew creates a new Engine and panics if there's an error.
func MustNew(opts ...Option) *Engine {
	engine, err := New(opts...)
	if err != nil {
		panic(err)
	}
	return engine
}

// Loader returns the configured loader, or nil.
func (e *Engine) Loader() TemplateLoader {
	return e.loader
}

// Host returns the host-language parser.
func (e *Engine) Host() HostParser {
	return e.config.host
}

// Delimiters returns the open and close delimiters.
func (e *Engine) Delimiters() (string, string) {
	return e.config.openDelim, e.config.closeDelim
}

// MaxDepth returns the effective depth guard.
func (e *Engine) MaxDepth() int {
	return e.resolver.MaxDepth()
}

func (e *Engine) checkOpen() error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return NewEngineClosedError()
	}
	return nil
}

// Parse parses a template source into an owned document tree. The name is
// used in diagnostics only.
func (e *Engine) Parse(name, source string) (*RootNode, error) {
	if err := e.checkOpen(); err != nil {
		return nil, err
	}
	root, err := e.grammar.Parse(internal.NewSource(name, source))
	if err != nil {
		return nil, wrapError(err)
	}
	return internal.Own(root), nil
}

// Load fetches the template named by ref and every ancestor it extends.
func (e *Engine) Load(ctx context.Context, ref string) (*Graph, error) {
	if err := e.checkOpen(); err != nil {
		return nil, err
	}
	if ref == "" {
		return nil, NewEmptyReferenceError()
	}
	g, err := e.resolver.Load(ctx, ref)
	if err != nil {
		return nil, wrapError(err)
	}
	return g, nil
}

// LoadSource parses a literal template and loads the ancestors it extends.
// A literal with an empty name never takes part in cycle detection.
func (e *Engine) LoadSource(ctx context.Context, name, source string) (*Graph, error) {
	if err := e.checkOpen(); err != nil {
		return nil, err
	}
	g, err := e.resolver.LoadSource(ctx, internal.NewSource(name, source))
	if err != nil {
		return nil, wrapError(err)
	}
	return g, nil
}

// ResolveGraph flattens a loaded graph into a plan.
func (e *Engine) ResolveGraph(ctx context.Context, g *Graph, opts ...ResolveOption) (*Plan, error) {
	if err := e.checkOpen(); err != nil {
		return nil, err
	}
	plan, err := e.resolver.Resolve(ctx, g, resolveOptions(opts))
	if err != nil {
		return nil, wrapError(err)
	}
	return plan, nil
}

// Resolve loads the template named by ref and resolves it into a plan.
func (e *Engine) Resolve(ctx context.Context, ref string, opts ...ResolveOption) (*Plan, error) {
	e.logger.Debug(LogMsgResolveStart, zap.String(LogFieldReference, ref))
	g, err := e.Load(ctx, ref)
	if err != nil {
		e.logResolveFailure(ref, err)
		return nil, err
	}
	plan, err := e.ResolveGraph(ctx, g, opts...)
	if err != nil {
		e.logResolveFailure(ref, err)
		return nil, err
	}
	return plan, nil
}

// ResolveSource parses a literal template and resolves it into a plan.
func (e *Engine) ResolveSource(ctx context.Context, name, source string, opts ...ResolveOption) (*Plan, error) {
	g, err := e.LoadSource(ctx, name, source)
	if err != nil {
		return nil, err
	}
	return e.ResolveGraph(ctx, g, opts...)
}

// ResolveBlock loads the template named by ref and resolves only the named
// block, as the deepest template in the chain defines it.
func (e *Engine) ResolveBlock(ctx context.Context, ref, block string, opts ...ResolveOption) (*Plan, error) {
	g, err := e.Load(ctx, ref)
	if err != nil {
		return nil, err
	}
	plan, err := e.resolver.ResolveBlock(ctx, g, block, resolveOptions(opts))
	if err != nil {
		return nil, NewBlockError(err, block)
	}
	return plan, nil
}

// ResolveAll resolves several references concurrently. It returns the
// first error encountered; on success the map holds one plan per
// reference.
func (e *Engine) ResolveAll(ctx context.Context, refs []string, opts ...ResolveOption) (map[string]*Plan, error) {
	e.logger.Debug(LogMsgResolveAll, zap.Int(LogFieldCount, len(refs)))

	plans := make([]*Plan, len(refs))
	g, gctx := errgroup.WithContext(ctx)
	for i, ref := range refs {
		g.Go(func() error {
			plan, err := e.Resolve(gctx, ref, opts...)
			if err != nil {
				return err
			}
			plans[i] = plan
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := make(map[string]*Plan, len(refs))
	for i, ref := range refs {
		result[ref] = plans[i]
	}
	return result, nil
}

// Close releases the loader if it holds resources. Using the engine after
// Close returns an error.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	e.mu.Unlock()

	e.logger.Debug(LogMsgEngineClosed)
	if closer, ok := e.loader.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}

func (e *Engine) logResolveFailure(ref string, err error) {
	var diag *Diagnostic
	msg := err.Error()
	if errors.As(err, &diag) {
		msg = diag.DisplaySimple()
	}
	e.logger.Debug(LogMsgResolveFailed, zap.String(LogFieldReference, ref), zap.String(LogFieldError, msg))
}
