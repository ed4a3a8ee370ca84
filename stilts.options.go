package stilts

import (
	"maps"

	"go.uber.org/zap"

	"github.com/itsatony/go-stilts/internal"
)

// Option is a functional option for configuring the Engine.
type Option func(*engineConfig)

// engineConfig holds the internal configuration for an Engine.
type engineConfig struct {
	openDelim      string
	closeDelim     string
	maxDepth       int
	host           HostParser
	loader         TemplateLoader
	escapers       map[string]string
	defaultEscaper string
	trim           bool
	blockPolicy    internal.BlockPolicy
	logger         *zap.Logger
}

// defaultEngineConfig returns the default engine configuration.
func defaultEngineConfig() *engineConfig {
	return &engineConfig{
		openDelim:      DefaultOpenDelim,
		closeDelim:     DefaultCloseDelim,
		maxDepth:       DefaultMaxDepth,
		host:           nil,
		loader:         nil,
		escapers:       DefaultEscapers(),
		defaultEscaper: EscaperNone,
		trim:           false,
		blockPolicy:    internal.DuplicateBlocksError,
		logger:         nil,
	}
}

// WithDelimiters sets custom tag delimiters. Both must be non-empty and
// distinct, New rejects anything else.
// Default: "{%" and "%}"
func WithDelimiters(open, close string) Option {
	return func(c *engineConfig) {
		c.openDelim = open
		c.closeDelim = close
	}
}

// WithMaxDepth bounds the length of extends chains and the nesting of
// includes. Zero restores the default.
// Default: 64
func WithMaxDepth(depth int) Option {
	return func(c *engineConfig) {
		c.maxDepth = depth
	}
}

// WithHost sets the parser for embedded host-language code.
// Default: the Go host parser
func WithHost(host HostParser) Option {
	return func(c *engineConfig) {
		c.host = host
	}
}

// WithLoader sets the loader used to fetch templates by reference.
// Default: nil (only literal templates without extends or include resolve)
func WithLoader(loader TemplateLoader) Option {
	return func(c *engineConfig) {
		c.loader = loader
	}
}

// WithEscapers replaces the file extension to escaper table. Extensions are
// given without the leading dot.
// Default: DefaultEscapers()
func WithEscapers(escapers map[string]string) Option {
	return func(c *engineConfig) {
		c.escapers = maps.Clone(escapers)
	}
}

// WithDefaultEscaper sets the escaper for templates whose extension is not
// in the escaper table.
// Default: "none"
func WithDefaultEscaper(name string) Option {
	return func(c *engineConfig) {
		c.defaultEscaper = name
	}
}

// WithTrim sets the trim policy recorded for every template.
// Default: false
func WithTrim(trim bool) Option {
	return func(c *engineConfig) {
		c.trim = trim
	}
}

// WithLastWriteWinsBlocks makes a second definition of a block name inside
// one template replace the first instead of failing.
// Default: duplicate block names are an error
func WithLastWriteWinsBlocks() Option {
	return func(c *engineConfig) {
		c.blockPolicy = internal.DuplicateBlocksLastWins
	}
}

// WithLogger sets the logger for the engine.
// Default: nil (no logging)
func WithLogger(logger *zap.Logger) Option {
	return func(c *engineConfig) {
		c.logger = logger
	}
}

// ResolveOption overrides engine configuration for a single resolution.
type ResolveOption func(*internal.ResolveOptions)

// ResolveWithEscaper forces the escaper of every template in the plan.
func ResolveWithEscaper(name string) ResolveOption {
	return func(o *internal.ResolveOptions) {
		o.Escaper = name
	}
}

// ResolveWithTrim overrides the trim policy of every template in the plan.
func ResolveWithTrim(trim bool) ResolveOption {
	return func(o *internal.ResolveOptions) {
		o.Trim = &trim
	}
}

func resolveOptions(opts []ResolveOption) internal.ResolveOptions {
	var o internal.ResolveOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
