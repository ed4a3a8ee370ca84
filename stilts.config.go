package stilts

import (
	"bytes"
	"errors"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/itsatony/go-stilts/internal"
)

// Configuration keys, as they appear in the YAML file
const (
	ConfigKeyTemplateDir     = "template_dir"
	ConfigKeyDelimiters      = "delimiters"
	ConfigKeyMaxDepth        = "max_depth"
	ConfigKeyHost            = "host"
	ConfigKeyDefaultEscaper  = "default_escaper"
	ConfigKeyEscapers        = "escapers"
	ConfigKeyDuplicateBlocks = "duplicate_blocks"
	ConfigKeyLoaderDriver    = "loader.driver"
	ConfigKeyCacheTTL        = "cache.ttl"
	ConfigKeyCacheMaxEntries = "cache.max_entries"
)

// Config is the file form of the engine configuration.
//
//	template_dir: $HOME/site/templates
//	delimiters: { open: "{%", close: "%}" }
//	max_depth: 64
//	host: go
//	escapers: { html: html, xml: xml }
//	duplicate_blocks: error
//	loader: { driver: filesystem }
//	cache: { enabled: true, ttl: 5m, max_entries: 1000 }
type Config struct {
	// TemplateDir is the filesystem loader root. $VAR references are
	// expanded from the environment; a relative path is resolved against
	// the directory of the configuration file.
	TemplateDir     string            `yaml:"template_dir"`
	Delimiters      DelimiterConfig   `yaml:"delimiters"`
	Trim            bool              `yaml:"trim"`
	MaxDepth        int               `yaml:"max_depth"`
	Host            string            `yaml:"host"`
	DefaultEscaper  string            `yaml:"default_escaper"`
	Escapers        map[string]string `yaml:"escapers"`
	DuplicateBlocks string            `yaml:"duplicate_blocks"`
	Loader          LoaderConfig      `yaml:"loader"`
	Cache           CacheSettings     `yaml:"cache"`
}

// DelimiterConfig holds the tag delimiters
type DelimiterConfig struct {
	Open  string `yaml:"open"`
	Close string `yaml:"close"`
}

// LoaderConfig selects a registered loader driver. An empty DSN for the
// filesystem driver means TemplateDir.
type LoaderConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// CacheSettings enables a CachedLoader around the configured loader
type CacheSettings struct {
	Enabled     bool          `yaml:"enabled"`
	TTL         time.Duration `yaml:"ttl"`
	MaxEntries  int           `yaml:"max_entries"`
	NegativeTTL time.Duration `yaml:"negative_ttl"`
}

// DefaultConfig returns the configuration New uses without options.
func DefaultConfig() *Config {
	return &Config{
		Delimiters:      DelimiterConfig{Open: DefaultOpenDelim, Close: DefaultCloseDelim},
		MaxDepth:        DefaultMaxDepth,
		Host:            DefaultHost,
		DefaultEscaper:  EscaperNone,
		Escapers:        DefaultEscapers(),
		DuplicateBlocks: DuplicateBlocksError,
		Cache: CacheSettings{
			TTL:         CacheDefaultTTL,
			MaxEntries:  CacheDefaultMaxEntries,
			NegativeTTL: CacheDefaultNegativeCacheTTL,
		},
	}
}

// LoadConfig reads and validates a YAML configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, NewConfigFileError(ErrMsgConfigRead, path, err)
	}
	cfg, err := ParseConfig(data, filepath.Dir(path))
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// ParseConfig decodes YAML configuration over the defaults. Unknown keys
// are rejected. baseDir anchors a relative template_dir; pass "" to keep it
// relative to the working directory.
func ParseConfig(data []byte, baseDir string) (*Config, error) {
	cfg := DefaultConfig()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, NewConfigFileError(ErrMsgConfigParse, baseDir, err)
	}

	if cfg.TemplateDir != "" {
		cfg.TemplateDir = os.ExpandEnv(cfg.TemplateDir)
		if !filepath.IsAbs(cfg.TemplateDir) && baseDir != "" {
			cfg.TemplateDir = filepath.Join(baseDir, cfg.TemplateDir)
		}
	}
	if cfg.Loader.Driver == "" && cfg.TemplateDir != "" {
		cfg.Loader.Driver = LoaderDriverFilesystem
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every field that New would otherwise reject late.
func (c *Config) Validate() error {
	if c.Delimiters.Open == "" || c.Delimiters.Close == "" || c.Delimiters.Open == c.Delimiters.Close {
		return NewConfigError(ErrMsgInvalidDelims, ConfigKeyDelimiters, c.Delimiters.Open+" "+c.Delimiters.Close)
	}
	if c.MaxDepth < 0 {
		return NewConfigError(ErrMsgInvalidMaxDepth, ConfigKeyMaxDepth, strconv.Itoa(c.MaxDepth))
	}
	if _, ok := HostByName(c.Host); !ok {
		return NewConfigError(ErrMsgUnknownHost, ConfigKeyHost, c.Host)
	}
	if c.DefaultEscaper == "" {
		return NewConfigError(ErrMsgConfigInvalid, ConfigKeyDefaultEscaper, "")
	}
	for ext, escaper := range c.Escapers {
		if ext == "" || escaper == "" {
			return NewConfigError(ErrMsgConfigInvalid, ConfigKeyEscapers, ext+": "+escaper)
		}
	}
	if _, ok := internal.ParseBlockPolicy(c.DuplicateBlocks); !ok {
		return NewConfigError(ErrMsgUnknownPolicy, ConfigKeyDuplicateBlocks, c.DuplicateBlocks)
	}
	if c.Loader.Driver != "" && !slices.Contains(ListLoaderDrivers(), c.Loader.Driver) {
		return NewConfigError(ErrMsgLoaderDriverNotFound, ConfigKeyLoaderDriver, c.Loader.Driver)
	}
	if c.Loader.Driver == LoaderDriverFilesystem && c.Loader.DSN == "" && c.TemplateDir == "" {
		return NewConfigError(ErrMsgTemplateDirUnset, ConfigKeyTemplateDir, "")
	}
	if c.Cache.Enabled && c.Cache.TTL < 0 {
		return NewConfigError(ErrMsgConfigInvalid, ConfigKeyCacheTTL, c.Cache.TTL.String())
	}
	if c.Cache.Enabled && c.Cache.MaxEntries < 0 {
		return NewConfigError(ErrMsgConfigInvalid, ConfigKeyCacheMaxEntries, strconv.Itoa(c.Cache.MaxEntries))
	}
	return nil
}

// OpenLoader opens the configured loader, wrapped in a cache when enabled.
// It returns nil when no loader is configured.
func (c *Config) OpenLoader(logger *zap.Logger) (TemplateLoader, error) {
	if c.Loader.Driver == "" {
		return nil, nil
	}
	dsn := c.Loader.DSN
	if dsn == "" && c.Loader.Driver == LoaderDriverFilesystem {
		dsn = c.TemplateDir
	}

	loader, err := OpenLoader(c.Loader.Driver, dsn)
	if err != nil {
		return nil, err
	}
	if logger != nil {
		logger.Debug(LogMsgDriverOpened, zap.String(LogFieldDriver, c.Loader.Driver))
	}

	if c.Cache.Enabled {
		loader = NewCachedLoader(loader, CacheConfig{
			TTL:              c.Cache.TTL,
			MaxEntries:       c.Cache.MaxEntries,
			NegativeCacheTTL: c.Cache.NegativeTTL,
		}, logger)
	}
	return loader, nil
}

// Options converts the configuration into engine options, opening the
// configured loader.
func (c *Config) Options(logger *zap.Logger) ([]Option, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	host, _ := HostByName(c.Host)

	opts := []Option{
		WithDelimiters(c.Delimiters.Open, c.Delimiters.Close),
		WithMaxDepth(c.MaxDepth),
		WithHost(host),
		WithTrim(c.Trim),
		WithDefaultEscaper(c.DefaultEscaper),
	}
	if c.Escapers != nil {
		opts = append(opts, WithEscapers(maps.Clone(c.Escapers)))
	}
	if c.DuplicateBlocks == DuplicateBlocksLastWins {
		opts = append(opts, WithLastWriteWinsBlocks())
	}

	loader, err := c.OpenLoader(logger)
	if err != nil {
		return nil, err
	}
	if loader != nil {
		opts = append(opts, WithLoader(loader))
	}
	return opts, nil
}

// NewFromConfig creates an engine from a configuration. Options given here
// are applied after the configuration and win over it.
func NewFromConfig(cfg *Config, opts ...Option) (*Engine, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	probe := defaultEngineConfig()
	for _, opt := range opts {
		opt(probe)
	}

	base, err := cfg.Options(probe.logger)
	if err != nil {
		return nil, err
	}
	if probe.logger != nil {
		probe.logger.Debug(LogMsgConfigLoaded,
			zap.String(LogFieldDriver, cfg.Loader.Driver),
			zap.String(LogFieldPath, cfg.TemplateDir))
	}
	return New(append(base, opts...)...)
}
