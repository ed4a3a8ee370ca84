package internal

import (
	"errors"

	"go.starlark.net/syntax"
)

// Host error messages for the Starlark host parser
const (
	ErrMsgStarlarkExprNotStmt = "expression is not a statement"
	ErrMsgStarlarkFieldNotKw  = "expected name=value"
)

var (
	starlarkForWrap    = wrapped{prefix: "for ", suffix: " in _: pass\n", column: 4}
	starlarkArgsWrap   = wrapped{prefix: "_f(", suffix: ")", column: 3}
	starlarkParamsWrap = wrapped{prefix: "def _f(", suffix: "): pass\n", column: 7}
)

// StarlarkHost parses embedded fragments as Starlark using go.starlark.net
type StarlarkHost struct {
	opts *syntax.FileOptions
}

// NewStarlarkHost creates a Starlark host parser with every dialect
// extension enabled.
func NewStarlarkHost() *StarlarkHost {
	return &StarlarkHost{opts: &syntax.FileOptions{
		Set:             true,
		While:           true,
		TopLevelControl: true,
		GlobalReassign:  true,
		Recursion:       true,
	}}
}

// Name returns "starlark"
func (h *StarlarkHost) Name() string {
	return HostNameStarlark
}

// ParseStmt parses one or more statements, rejecting a lone expression
func (h *StarlarkHost) ParseStmt(code string) (HostNode, error) {
	file, err := h.opts.Parse("", code, 0)
	if err != nil {
		return nil, starlarkHostError(err, wrapped{}, code)
	}
	if len(file.Stmts) == 1 {
		if _, isExpr := file.Stmts[0].(*syntax.ExprStmt); isExpr {
			return nil, &HostError{Message: ErrMsgStarlarkExprNotStmt, Line: 1, Column: 1}
		}
	}
	return newHostNode(HostKindStmt, code, file.Stmts), nil
}

// ParseExpr parses a single expression
func (h *StarlarkHost) ParseExpr(code string) (HostNode, error) {
	expr, err := h.opts.ParseExpr("", code, 0)
	if err != nil {
		return nil, starlarkHostError(err, wrapped{}, code)
	}
	return newHostNode(HostKindExpr, code, expr), nil
}

// ParseBinding parses the target of a for loop
func (h *StarlarkHost) ParseBinding(code string) (HostNode, error) {
	file, err := h.opts.Parse("", starlarkForWrap.source(code), 0)
	if err != nil {
		return nil, starlarkHostError(err, starlarkForWrap, code)
	}
	return newHostNode(HostKindBinding, code, file.Stmts[0].(*syntax.ForStmt).Vars), nil
}

// ParsePattern parses a match pattern. Starlark has no pattern syntax, so
// patterns are plain expressions compared for equality.
func (h *StarlarkHost) ParsePattern(code string) (HostNode, error) {
	expr, err := h.opts.ParseExpr("", code, 0)
	if err != nil {
		return nil, starlarkHostError(err, wrapped{}, code)
	}
	return newHostNode(HostKindPattern, code, expr), nil
}

// ParseArgs parses a call argument list
func (h *StarlarkHost) ParseArgs(code string) (HostNode, error) {
	call, err := h.parseCall(code)
	if err != nil {
		return nil, err
	}
	return newHostNode(HostKindArgs, code, call.Args), nil
}

// ParseParams parses a def parameter list
func (h *StarlarkHost) ParseParams(code string) (HostNode, error) {
	file, err := h.opts.Parse("", starlarkParamsWrap.source(code), 0)
	if err != nil {
		return nil, starlarkHostError(err, starlarkParamsWrap, code)
	}
	return newHostNode(HostKindParams, code, file.Stmts[0].(*syntax.DefStmt).Params), nil
}

// ParseFields parses `name=value` keyword arguments
func (h *StarlarkHost) ParseFields(code string) (HostNode, error) {
	call, err := h.parseCall(code)
	if err != nil {
		return nil, err
	}
	for _, arg := range call.Args {
		if bin, ok := arg.(*syntax.BinaryExpr); ok && bin.Op == syntax.EQ {
			continue
		}
		start, _ := arg.Span()
		return nil, starlarkArgsWrap.relocate(code, ErrMsgStarlarkFieldNotKw, int(start.Line), int(start.Col))
	}
	return newHostNode(HostKindFields, code, call.Args), nil
}

func (h *StarlarkHost) parseCall(code string) (*syntax.CallExpr, error) {
	expr, err := h.opts.ParseExpr("", starlarkArgsWrap.source(code), 0)
	if err != nil {
		return nil, starlarkHostError(err, starlarkArgsWrap, code)
	}
	call, ok := expr.(*syntax.CallExpr)
	if !ok {
		return nil, &HostError{Message: ErrMsgExpectedParenList, Line: 1, Column: 1}
	}
	return call, nil
}

// starlarkHostError converts a syntax.Error into a fragment-relative
// HostError. Starlark already counts columns in characters.
func starlarkHostError(err error, w wrapped, code string) *HostError {
	var serr syntax.Error
	if !errors.As(err, &serr) {
		return &HostError{Message: err.Error(), Line: 1, Column: 1}
	}
	return w.relocate(code, serr.Msg, int(serr.Pos.Line), int(serr.Pos.Col))
}
