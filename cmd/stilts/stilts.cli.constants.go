package main

// Command names
const (
	CmdNameCheck   = "check"
	CmdNameResolve = "resolve"
	CmdNameVersion = "version"
	CmdNameHelp    = "help"
)

// Flag names - long form
const (
	FlagTemplate = "template"
	FlagConfig   = "config"
	FlagDir      = "dir"
	FlagBlock    = "block"
	FlagOutput   = "output"
	FlagFormat   = "format"
	FlagFancy    = "fancy"
	FlagHost     = "host"
	FlagOpen     = "open"
	FlagClose    = "close"
	FlagVerbose  = "verbose"
)

// Flag names - short form
const (
	FlagTemplateShort = "t"
	FlagConfigShort   = "c"
	FlagDirShort      = "d"
	FlagBlockShort    = "b"
	FlagOutputShort   = "o"
	FlagFormatShort   = "F"
	FlagVerboseShort  = "v"
)

// Flag default values
const (
	FlagDefaultOutput = "-" // stdout
	FlagDefaultFormat = "text"
	FlagDefaultDir    = "."
)

// Output formats
const (
	OutputFormatText = "text"
	OutputFormatJSON = "json"
	OutputFormatYAML = "yaml"
)

// Exit codes
const (
	ExitCodeSuccess         = 0
	ExitCodeError           = 1
	ExitCodeUsageError      = 2
	ExitCodeValidationError = 3
	ExitCodeInputError      = 4
)

// Input source indicators
const (
	InputSourceStdin = "-"
	StdinName        = "<stdin>"
)

// Error messages - ALL must be constants
const (
	ErrMsgUnknownCommand    = "unknown command"
	ErrMsgMissingTemplate   = "template required"
	ErrMsgInvalidArguments  = "invalid arguments"
	ErrMsgReadFileFailed    = "failed to read file"
	ErrMsgWriteOutputFailed = "failed to write output"
	ErrMsgEngineFailed      = "failed to create engine"
	ErrMsgResolveFailed     = "template resolution failed"
	ErrMsgInvalidFormat     = "invalid output format"
	ErrMsgMarshalFailed     = "failed to encode output"
	ErrMsgConfigFailed      = "failed to load configuration"
	ErrMsgUnknownHost       = "unknown host language"
)

// Help text templates
const (
	HelpMainUsage = `go-stilts - template front end CLI

Usage:
    stilts <command> [options]

Commands:
    check       Parse a template and report its diagnostic
    resolve     Load a template and print its resolved plan
    version     Show version information
    help        Show help for a command

Use "stilts help <command>" for more information about a command.`

	HelpCheckUsage = `Parse a template and report its diagnostic

Usage:
    stilts check [options]

Options:
    -t, --template <file>   Template file (use "-" for stdin)
    -F, --format <format>   Output format: text, json (default: text)
    --fancy                 Show the source line with a caret underline
    --host <name>           Host language: go, starlark (default: go)
    --open <delim>          Opening tag delimiter (default: "{%")
    --close <delim>         Closing tag delimiter (default: "%}")

Examples:
    stilts check -t page.html
    stilts check -t page.html --fancy
    cat page.html | stilts check -t -`

	HelpResolveUsage = `Load a template and print its resolved plan

Usage:
    stilts resolve [options]

Options:
    -t, --template <ref>    Template reference
    -c, --config <file>     Configuration file (stilts.yaml)
    -d, --dir <dir>         Template directory when no configuration is given (default: ".")
    -b, --block <name>      Resolve a single block instead of the whole template
    -F, --format <format>   Output format: text, json, yaml (default: text)
    -o, --output <file>     Output file (default: stdout)
    --fancy                 Show diagnostics with a caret underline
    -v, --verbose           Log loader and resolver activity to stderr

Examples:
    stilts resolve -t pages/home.html -d templates
    stilts resolve -t pages/home.html -c stilts.yaml -F json
    stilts resolve -t pages/home.html -d templates -b title`

	HelpVersionUsage = `Show version information

Usage:
    stilts version [options]

Options:
    -F, --format <format>   Output format: text, json (default: text)`

	HelpHelpUsage = `Show help for a command

Usage:
    stilts help [command]

Commands:
    check       Show help for check command
    resolve     Show help for resolve command
    version     Show help for version command`
)

// Version output format templates
const (
	VersionTextTemplate = "go-stilts version %s\nCommit: %s\nBranch: %s\nBuilt: %s\nGo: %s"
	VersionUnknown      = "unknown"
)

// Check output
const (
	CheckTextSuccess = "Template is valid"
)

// CLI metadata
const (
	CLIName = "stilts"
)

// File permission constant
const (
	FilePermissions = 0644
)

// Format string constants
const (
	FmtErrorWithDetail = "%s: %s\n"
	FmtErrorWithCause  = "%s: %v\n"
	FmtNewline         = "\n"
)
