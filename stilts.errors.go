package stilts

import (
	"errors"
	"strconv"
	"strings"

	"github.com/itsatony/go-cuserr"

	"github.com/itsatony/go-stilts/internal"
)

// Error message constants
const (
	ErrMsgParseFailed      = "template parsing failed"
	ErrMsgLoadFailed       = "template loading failed"
	ErrMsgCycleDetected    = "template dependency cycle detected"
	ErrMsgDepthExceeded    = "template nesting exceeds maximum depth"
	ErrMsgResolveFailed    = "template resolution failed"
	ErrMsgBlockNotFound    = "block not defined by template"
	ErrMsgEmptyReference   = "template reference cannot be empty"
	ErrMsgEngineClosed     = "engine is closed"
	ErrMsgConfigRead       = "failed to read configuration file"
	ErrMsgConfigParse      = "failed to parse configuration"
	ErrMsgConfigInvalid    = "invalid configuration value"
	ErrMsgUnknownHost      = "unknown host parser"
	ErrMsgUnknownPolicy    = "unknown duplicate block policy"
	ErrMsgInvalidDelims    = "delimiters must be non-empty and distinct"
	ErrMsgInvalidMaxDepth  = "max_depth must not be negative"
	ErrMsgTemplateDirUnset = "template_dir is required by the filesystem loader"
)

// Error code constants for categorization
const (
	ErrCodeParse   = "STILTS_PARSE"
	ErrCodeLoad    = "STILTS_LOAD"
	ErrCodeCycle   = "STILTS_CYCLE"
	ErrCodeDepth   = "STILTS_DEPTH"
	ErrCodeResolve = "STILTS_RESOLVE"
	ErrCodeConfig  = "STILTS_CONFIG"
)

// newError creates a public error. The code is also recorded as metadata
// so ErrorCode can recover it.
func newError(code, msg string, cause error) *cuserr.CustomError {
	var err *cuserr.CustomError
	if cause != nil {
		err = cuserr.WrapStdError(cause, code, msg)
	} else {
		err = cuserr.NewValidationError(code, msg)
	}
	return err.WithMetadata(MetaKeyCode, code)
}

// withPosition attaches the diagnostic's location to err
func withPosition(err *cuserr.CustomError, diag *Diagnostic) *cuserr.CustomError {
	pos := diag.Position()
	return err.
		WithMetadata(MetaKeyLine, strconv.Itoa(pos.Line)).
		WithMetadata(MetaKeyColumn, strconv.Itoa(pos.Column)).
		WithMetadata(MetaKeyOffset, strconv.Itoa(pos.Offset))
}

// NewParseError wraps a parse diagnostic with position context
func NewParseError(diag *Diagnostic) error {
	err := newError(ErrCodeParse, ErrMsgParseFailed, diag)
	return withPosition(err, diag).
		WithMetadata(MetaKeyTemplate, diag.SourceName())
}

// NewResolveError converts a resolver failure into a public error. The code
// follows the failure kind; the *ResolveError and its *Diagnostic stay
// reachable through errors.As.
func NewResolveError(rerr *ResolveError) error {
	return resolveError(rerr)
}

// NewBlockError converts a ResolveBlock failure, recording the requested
// block name.
func NewBlockError(err error, block string) error {
	var rerr *ResolveError
	if !errors.As(err, &rerr) {
		return wrapError(err)
	}
	return resolveError(rerr).WithMetadata(MetaKeyBlock, block)
}

func resolveError(rerr *ResolveError) *cuserr.CustomError {
	code, msg := ErrCodeResolve, ErrMsgResolveFailed
	switch rerr.Kind {
	case internal.ResolveErrorParse:
		code, msg = ErrCodeParse, ErrMsgParseFailed
	case internal.ResolveErrorLoad:
		code, msg = ErrCodeLoad, ErrMsgLoadFailed
	case internal.ResolveErrorCycle:
		code, msg = ErrCodeCycle, ErrMsgCycleDetected
	case internal.ResolveErrorDepth:
		code, msg = ErrCodeDepth, ErrMsgDepthExceeded
	case internal.ResolveErrorBlock:
		msg = ErrMsgBlockNotFound
	}

	err := withPosition(newError(code, msg, rerr), rerr.Diagnostic).
		WithMetadata(MetaKeyKind, rerr.Kind.String())
	if rerr.Identity != "" {
		err = err.WithMetadata(MetaKeyTemplate, rerr.Identity)
	} else if name := rerr.Diagnostic.SourceName(); name != "" {
		err = err.WithMetadata(MetaKeyTemplate, name)
	}
	if rerr.Reference != "" {
		err = err.WithMetadata(MetaKeyReference, rerr.Reference)
	}
	if len(rerr.Chain) > 0 {
		err = err.WithMetadata(MetaKeyChain, strings.Join(rerr.Chain, internal.ChainSeparator))
	}
	var lerr *LoaderError
	if errors.As(rerr.Cause, &lerr) && lerr.Driver != "" {
		err = err.WithMetadata(MetaKeyDriver, lerr.Driver)
	}
	return err
}

// wrapError maps any error from the core onto the public error types
func wrapError(err error) error {
	if err == nil {
		return nil
	}
	var rerr *ResolveError
	if errors.As(err, &rerr) {
		return NewResolveError(rerr)
	}
	var diag *Diagnostic
	if errors.As(err, &diag) {
		return NewParseError(diag)
	}
	return newError(ErrCodeResolve, ErrMsgResolveFailed, err)
}

// NewEmptyReferenceError creates an error for an empty template reference
func NewEmptyReferenceError() error {
	return newError(ErrCodeLoad, ErrMsgEmptyReference, nil)
}

// NewEngineClosedError creates an error for use of a closed engine
func NewEngineClosedError() error {
	return newError(ErrCodeResolve, ErrMsgEngineClosed, nil)
}

// NewConfigError creates a configuration error for a field and its value
func NewConfigError(msg, field, value string) error {
	return newError(ErrCodeConfig, msg, nil).
		WithMetadata(MetaKeyField, field).
		WithMetadata(MetaKeyValue, value)
}

// NewConfigFileError wraps a failure to read or decode a configuration file
func NewConfigFileError(msg, path string, cause error) error {
	return newError(ErrCodeConfig, msg, cause).
		WithMetadata(MetaKeyPath, path)
}

// ErrorCode returns the STILTS_* code of an error returned by this package,
// or "" for foreign errors.
func ErrorCode(err error) string {
	var cerr *cuserr.CustomError
	if !errors.As(err, &cerr) {
		return ""
	}
	code, _ := cerr.GetMetadata(MetaKeyCode)
	return code
}
