package internal

// NodeType identifies owned AST node types
type NodeType int

// Node type constants
const (
	NodeTypeRoot NodeType = iota
	NodeTypeText
	NodeTypeExtends
	NodeTypeInclude
	NodeTypeBlock
	NodeTypeSuper
	NodeTypeFor
	NodeTypeIf
	NodeTypeElse
	NodeTypeElseIf
	NodeTypeMatch
	NodeTypeMatchArm
	NodeTypeMacro
	NodeTypeCall
	NodeTypeStmt
	NodeTypeExpr
	NodeTypeScope
)

// Node type string names for debugging
const (
	NodeTypeNameRoot     = "ROOT"
	NodeTypeNameText     = "TEXT"
	NodeTypeNameExtends  = "EXTENDS"
	NodeTypeNameInclude  = "INCLUDE"
	NodeTypeNameBlock    = "BLOCK"
	NodeTypeNameSuper    = "SUPER"
	NodeTypeNameFor      = "FOR"
	NodeTypeNameIf       = "IF"
	NodeTypeNameElse     = "ELSE"
	NodeTypeNameElseIf   = "ELSE_IF"
	NodeTypeNameMatch    = "MATCH"
	NodeTypeNameMatchArm = "MATCH_ARM"
	NodeTypeNameMacro    = "MACRO"
	NodeTypeNameCall     = "CALL"
	NodeTypeNameStmt     = "STMT"
	NodeTypeNameExpr     = "EXPR"
	NodeTypeNameScope    = "SCOPE"
	NodeTypeNameUnknown  = "UNKNOWN"
)

// String returns the string representation of the node type
func (n NodeType) String() string {
	switch n {
	case NodeTypeRoot:
		return NodeTypeNameRoot
	case NodeTypeText:
		return NodeTypeNameText
	case NodeTypeExtends:
		return NodeTypeNameExtends
	case NodeTypeInclude:
		return NodeTypeNameInclude
	case NodeTypeBlock:
		return NodeTypeNameBlock
	case NodeTypeSuper:
		return NodeTypeNameSuper
	case NodeTypeFor:
		return NodeTypeNameFor
	case NodeTypeIf:
		return NodeTypeNameIf
	case NodeTypeElse:
		return NodeTypeNameElse
	case NodeTypeElseIf:
		return NodeTypeNameElseIf
	case NodeTypeMatch:
		return NodeTypeNameMatch
	case NodeTypeMatchArm:
		return NodeTypeNameMatchArm
	case NodeTypeMacro:
		return NodeTypeNameMacro
	case NodeTypeCall:
		return NodeTypeNameCall
	case NodeTypeStmt:
		return NodeTypeNameStmt
	case NodeTypeExpr:
		return NodeTypeNameExpr
	case NodeTypeScope:
		return NodeTypeNameScope
	default:
		return NodeTypeNameUnknown
	}
}

// Default delimiters
const (
	DefaultOpenDelim  = "{%"
	DefaultCloseDelim = "%}"
)

// Construct keywords
const (
	KeywordExtends = "extends"
	KeywordInclude = "include"
	KeywordBlock   = "block"
	KeywordSuper   = "super()"
	KeywordFor     = "for"
	KeywordIn      = "in"
	KeywordIf      = "if"
	KeywordElse    = "else"
	KeywordMatch   = "match"
	KeywordWhen    = "when"
	KeywordMacro   = "macro"
	KeywordCall    = "call"
	KeywordEnd     = "end"
)

// Character constants
const (
	CharDoubleQuote = '"'
	CharSingleQuote = '\''
	CharBacktick    = '`'
	CharBackslash   = '\\'
	CharPound       = '#'
	CharRawPrefix   = 'r'
	CharNewline     = '\n'
	CharColon       = ':'
	CharOpenParen   = '('
	CharCloseParen  = ')'
	CharUnderscore  = '_'
)

// String constants used while scanning quoted literals
const (
	StrTripleQuote = `"""`
)

// Inheritance defaults
const (
	DefaultMaxDepth = 64
)

// Diagnostic display defaults
const (
	DefaultDiagnosticLabel = "here"
	ChainSeparator         = " -> "
	LiteralIdentity        = "<literal>"
)

// Display truncation for String() helpers
const (
	MaxStringDisplayLength = 50
	TruncatedStringLength  = 47
	TruncationSuffix       = "..."
)

// Error messages produced by the combinator engine
const (
	ErrMsgExpectedTag        = "expected %q"
	ErrMsgUnexpectedEOF      = "unexpected end of input"
	ErrMsgNoProgress         = "parser made no progress"
	ErrMsgPatternNotFound    = "pattern not found before end of input"
	ErrMsgExpectedWhitespace = "expected whitespace"
	ErrMsgExpectedEOF        = "expected end of input"
	ErrMsgExpectedIdentifier = "expected identifier"
	ErrMsgUnterminatedDelim  = "unterminated %q: missing %q"
)

// Error messages produced by the grammar
const (
	ErrMsgUnterminatedConstruct = "unterminated %q: missing %q"
	ErrMsgUnterminatedString    = "unterminated string literal"
	ErrMsgEmptyTag              = "empty tag"
	ErrMsgExtendsNotAllowed     = "extends is only allowed as the first item of a template"
	ErrMsgBlockNotAllowed       = "block is only allowed at the top level of a template or inside another block"
	ErrMsgSuperNotAllowed       = "super() is only allowed directly inside a block"
	ErrMsgStrayEnd              = "unexpected end with no open construct"
	ErrMsgStrayElse             = "unexpected else outside of an if"
	ErrMsgStrayWhen             = "unexpected when outside of a match"
	ErrMsgExpectedReference     = "expected a quoted template reference"
	ErrMsgUnexpectedTrailing    = "unexpected trailing input"
	ErrMsgExpectedBlockName     = "expected a block name"
	ErrMsgExpectedForIn         = "expected \"in\" in for loop"
	ErrMsgExpectedMacroName     = "expected a macro name"
	ErrMsgExpectedParenList     = "expected a parenthesized list"
	ErrMsgExpectedWhenOrEnd     = "expected \"when\" or \"end\" inside match"
	ErrMsgExpectedCondition     = "expected a condition"
	ErrMsgInvalidHostCode       = "invalid host code"
	ErrMsgSuperArguments        = "super() takes no arguments"
)

// Error messages produced by the inheritance resolver
const (
	ErrMsgDependencyCycle   = "dependency cycle detected: %s"
	ErrMsgIncludeCycle      = "include cycle detected: %s"
	ErrMsgDepthExceeded     = "template nesting exceeds maximum depth of %d"
	ErrMsgLoadFailed        = "failed to load template %q"
	ErrMsgLoaderMissing     = "no template loader configured"
	ErrMsgDuplicateBlock    = "block %q is defined more than once"
	ErrMsgBlockNotFound     = "block %q is not defined"
	ErrMsgRecursiveBlock    = "block %q is nested inside itself"
	ErrMsgGraphEmpty        = "template graph is empty"
	ErrMsgParentExtendsHere = "extends %q"
	ErrMsgFirstDefinedHere  = "first defined here"
)

// Log message constants
const (
	LogMsgGrammarCreated  = "grammar created"
	LogMsgParseStart      = "starting parse"
	LogMsgParseEnd        = "parse complete"
	LogMsgParseFailed     = "parse failed"
	LogMsgResolverCreated = "inheritance resolver created"
	LogMsgTemplateLoaded  = "template loaded"
	LogMsgChainBuilt      = "inheritance chain built"
	LogMsgPlanResolved    = "plan resolved"
	LogMsgIncludeExpanded = "include expanded"
	LogMsgBlockOverridden = "block overridden"
	LogMsgSuperUnresolved = "super() has no parent block"
	LogMsgDuplicateBlock  = "duplicate block replaced"
)

// Log field constants
const (
	LogFieldSource    = "source_length"
	LogFieldIdentity  = "identity"
	LogFieldReference = "reference"
	LogFieldItems     = "items"
	LogFieldDepth     = "depth"
	LogFieldChain     = "chain"
	LogFieldBlock     = "block"
	LogFieldOrigin    = "origin"
	LogFieldError     = "error"
	LogFieldHost      = "host"
)

// Host parser names
const (
	HostNameGo       = "go"
	HostNameStarlark = "starlark"
)

// Host node kinds
const (
	HostKindStmt    = "stmt"
	HostKindExpr    = "expr"
	HostKindBinding = "binding"
	HostKindPattern = "pattern"
	HostKindArgs    = "args"
	HostKindParams  = "params"
	HostKindFields  = "fields"
)
