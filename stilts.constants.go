package stilts

import (
	"time"

	"github.com/itsatony/go-stilts/internal"
)

// Delimiter constants
const (
	DefaultOpenDelim  = internal.DefaultOpenDelim
	DefaultCloseDelim = internal.DefaultCloseDelim
)

// Engine defaults
const (
	// DefaultMaxDepth bounds both extends chains and include nesting
	DefaultMaxDepth = internal.DefaultMaxDepth
	// DefaultHost is the host parser used when none is configured
	DefaultHost = internal.HostNameGo
	// EscaperNone is the escaper name for templates that need no escaping
	EscaperNone = "none"
	// EscaperHTML is the escaper name for HTML documents
	EscaperHTML = "html"
	// EscaperXML is the escaper name for XML documents
	EscaperXML = "xml"
	// EscaperJSON is the escaper name for JSON documents
	EscaperJSON = "json"
)

// Host parser names
const (
	HostGo       = internal.HostNameGo
	HostStarlark = internal.HostNameStarlark
)

// Duplicate block policy names
const (
	DuplicateBlocksError    = internal.BlockPolicyNameError
	DuplicateBlocksLastWins = internal.BlockPolicyNameLastWins
)

// DefaultEscapers returns the extension to escaper table used when none is
// configured.
func DefaultEscapers() map[string]string {
	return map[string]string{
		"html":  EscaperHTML,
		"htm":   EscaperHTML,
		"xhtml": EscaperHTML,
		"xml":   EscaperXML,
		"svg":   EscaperXML,
		"json":  EscaperJSON,
	}
}

// Loader driver names
const (
	LoaderDriverMemory     = "memory"
	LoaderDriverFilesystem = "filesystem"
	LoaderDriverPostgres   = "postgres"
)

// Filesystem loader constants
const (
	FilesystemDirPermissions  = 0755
	FilesystemFilePermissions = 0644
	// FilesystemInvalidChars may not appear in a reference segment
	FilesystemInvalidChars  = ":*?\"<>|"
	FilesystemPathTraversal = ".."
)

// Cache defaults
const (
	CacheDefaultTTL              = 5 * time.Minute
	CacheDefaultMaxEntries       = 1000
	CacheDefaultNegativeCacheTTL = 30 * time.Second
)

// PostgreSQL loader defaults
const (
	PostgresTablePrefix            = "stilts_"
	PostgresDefaultMaxOpenConns    = 25
	PostgresDefaultMaxIdleConns    = 5
	PostgresDefaultConnMaxLifetime = 5 * time.Minute
	PostgresDefaultConnMaxIdleTime = 5 * time.Minute
	PostgresDefaultQueryTimeout    = 30 * time.Second
)

// Configuration file constants
const (
	// DefaultConfigFile is the file name the CLI looks for when -c is omitted
	DefaultConfigFile = "stilts.yaml"
	// EnvVarPrefix starts an environment reference in template_dir
	EnvVarPrefix = "$"
)

// Metadata keys attached to public errors
const (
	MetaKeyCode      = "code"
	MetaKeyLine      = "line"
	MetaKeyColumn    = "column"
	MetaKeyOffset    = "offset"
	MetaKeyTemplate  = "template"
	MetaKeyReference = "reference"
	MetaKeyChain     = "chain"
	MetaKeyKind      = "kind"
	MetaKeyBlock     = "block"
	MetaKeyDriver    = "driver"
	MetaKeyPath      = "path"
	MetaKeyField     = "field"
	MetaKeyValue     = "value"
)

// Log message constants
const (
	LogMsgEngineCreated = "stilts engine created"
	LogMsgEngineClosed  = "stilts engine closed"
	LogMsgResolveStart  = "resolving template"
	LogMsgResolveFailed = "template resolution failed"
	LogMsgResolveAll    = "resolving templates concurrently"
	LogMsgLoaderHit     = "template loader cache hit"
	LogMsgLoaderMiss    = "template loader cache miss"
	LogMsgLoaderEvicted = "template loader cache eviction"
	LogMsgConfigLoaded  = "configuration loaded"
	LogMsgDriverOpened  = "template loader opened"
)

// Log field constants
const (
	LogFieldReference = "reference"
	LogFieldIdentity  = "identity"
	LogFieldDriver    = "driver"
	LogFieldCount     = "count"
	LogFieldItems     = "items"
	LogFieldPath      = "path"
	LogFieldError     = "error"
	LogFieldHost      = "host"
	LogFieldMaxDepth  = "max_depth"
)
