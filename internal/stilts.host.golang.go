package internal

import (
	"errors"
	"go/ast"
	"go/parser"
	"go/scanner"
	"go/token"
	"strings"
	"unicode/utf8"
)

// Host error messages for the Go host parser
const (
	ErrMsgGoExprNotStmt     = "expression is not a statement"
	ErrMsgGoInvalidBinding  = "expected a comma-separated list of identifiers"
	ErrMsgGoTooManyBindings = "for loop binds at most two identifiers"
	ErrMsgGoInvalidArgs     = "expected a comma-separated argument list"
	ErrMsgGoInvalidFields   = "expected a comma-separated list of key: value fields"
)

var (
	goStmtWrap   = wrapped{prefix: "package p\nfunc _() {\n", suffix: "\n}\n", lines: 2}
	goDeclWrap   = wrapped{prefix: "package p\n", suffix: "\n", lines: 1}
	goCaseWrap   = wrapped{prefix: "package p\nfunc _() {\nswitch _x {\ncase ", suffix: ":\n}\n}\n", lines: 3, column: 5}
	goArgsWrap   = wrapped{prefix: "_f(", suffix: ")", column: 3}
	goParamsWrap = wrapped{prefix: "func(", suffix: ")", column: 5}
	goFieldsWrap = wrapped{prefix: "_T{", suffix: "}", column: 3}
)

// GoHost parses embedded fragments as Go using go/parser
type GoHost struct{}

// NewGoHost creates a Go host parser
func NewGoHost() *GoHost {
	return &GoHost{}
}

// Name returns "go"
func (h *GoHost) Name() string {
	return HostNameGo
}

// ParseStmt accepts statements other than bare expressions, and top-level
// declarations such as func or type.
func (h *GoHost) ParseStmt(code string) (HostNode, error) {
	file, err := parser.ParseFile(token.NewFileSet(), "", goStmtWrap.source(code), parser.SkipObjectResolution)
	if err == nil {
		body := file.Decls[0].(*ast.FuncDecl).Body.List
		if len(body) == 1 {
			if _, isExpr := body[0].(*ast.ExprStmt); isExpr {
				return nil, &HostError{Message: ErrMsgGoExprNotStmt, Line: 1, Column: 1}
			}
		}
		return newHostNode(HostKindStmt, code, body), nil
	}

	if decl, declErr := parser.ParseFile(token.NewFileSet(), "", goDeclWrap.source(code), parser.SkipObjectResolution); declErr == nil && len(decl.Decls) > 0 {
		return newHostNode(HostKindStmt, code, decl.Decls), nil
	}
	return nil, goHostError(err, goStmtWrap, code)
}

// ParseExpr parses a single Go expression
func (h *GoHost) ParseExpr(code string) (HostNode, error) {
	expr, err := parser.ParseExprFrom(token.NewFileSet(), "", code, parser.SkipObjectResolution)
	if err != nil {
		return nil, goHostError(err, wrapped{}, code)
	}
	return newHostNode(HostKindExpr, code, expr), nil
}

// ParseBinding accepts the left-hand side of a range clause: one or two
// identifiers separated by a comma.
func (h *GoHost) ParseBinding(code string) (HostNode, error) {
	names := strings.Split(code, ",")
	if len(names) > 2 {
		return nil, &HostError{Message: ErrMsgGoTooManyBindings, Line: 1, Column: 1}
	}
	column := 1
	idents := make([]*ast.Ident, 0, len(names))
	for _, name := range names {
		trimmed := strings.TrimSpace(name)
		if !token.IsIdentifier(trimmed) {
			lead := len(name) - len(strings.TrimLeft(name, " \t\r\n"))
			return nil, &HostError{Message: ErrMsgGoInvalidBinding, Line: 1, Column: column + utf8.RuneCountInString(name[:lead])}
		}
		idents = append(idents, ast.NewIdent(trimmed))
		column += utf8.RuneCountInString(name) + 1
	}
	return newHostNode(HostKindBinding, code, idents), nil
}

// ParsePattern parses a case list, the Go counterpart of a match pattern
func (h *GoHost) ParsePattern(code string) (HostNode, error) {
	file, err := parser.ParseFile(token.NewFileSet(), "", goCaseWrap.source(code), parser.SkipObjectResolution)
	if err != nil {
		return nil, goHostError(err, goCaseWrap, code)
	}
	sw := file.Decls[0].(*ast.FuncDecl).Body.List[0].(*ast.SwitchStmt)
	clause := sw.Body.List[0].(*ast.CaseClause)
	return newHostNode(HostKindPattern, code, clause.List), nil
}

// ParseArgs parses a call argument list
func (h *GoHost) ParseArgs(code string) (HostNode, error) {
	expr, err := parser.ParseExprFrom(token.NewFileSet(), "", goArgsWrap.source(code), parser.SkipObjectResolution)
	if err != nil {
		return nil, goHostError(err, goArgsWrap, code)
	}
	call, ok := expr.(*ast.CallExpr)
	if !ok || !isWrapIdent(call.Fun, "_f") {
		return nil, &HostError{Message: ErrMsgGoInvalidArgs, Line: 1, Column: 1}
	}
	return newHostNode(HostKindArgs, code, call.Args), nil
}

// ParseParams parses a function parameter list
func (h *GoHost) ParseParams(code string) (HostNode, error) {
	expr, err := parser.ParseExprFrom(token.NewFileSet(), "", goParamsWrap.source(code), parser.SkipObjectResolution)
	if err != nil {
		return nil, goHostError(err, goParamsWrap, code)
	}
	fn, ok := expr.(*ast.FuncType)
	if !ok {
		return nil, &HostError{Message: ErrMsgExpectedParenList, Line: 1, Column: 1}
	}
	return newHostNode(HostKindParams, code, fn.Params), nil
}

// ParseFields parses `key: value` pairs as the elements of a composite literal
func (h *GoHost) ParseFields(code string) (HostNode, error) {
	expr, err := parser.ParseExprFrom(token.NewFileSet(), "", goFieldsWrap.source(code), parser.SkipObjectResolution)
	if err != nil {
		return nil, goHostError(err, goFieldsWrap, code)
	}
	lit, ok := expr.(*ast.CompositeLit)
	if !ok || !isWrapIdent(lit.Type, "_T") {
		return nil, &HostError{Message: ErrMsgGoInvalidFields, Line: 1, Column: 1}
	}
	return newHostNode(HostKindFields, code, lit.Elts), nil
}

// isWrapIdent reports whether e is the identifier a wrapper put in front of
// the fragment. Anything else means the fragment closed the wrapper early.
func isWrapIdent(e ast.Expr, name string) bool {
	ident, ok := e.(*ast.Ident)
	return ok && ident.Name == name
}

// goHostError converts a go/parser error into a fragment-relative HostError.
// go/scanner reports byte columns, HostError counts characters.
func goHostError(err error, w wrapped, code string) *HostError {
	var list scanner.ErrorList
	if !errors.As(err, &list) || len(list) == 0 {
		return &HostError{Message: err.Error(), Line: 1, Column: 1}
	}
	first := list[0]
	lines := strings.Split(w.source(code), "\n")
	column := first.Pos.Column
	if first.Pos.Line >= 1 && first.Pos.Line <= len(lines) {
		text := lines[first.Pos.Line-1]
		if column-1 > len(text) {
			column = len(text) + 1
		}
		if column >= 1 {
			column = utf8.RuneCountInString(text[:column-1]) + 1
		}
	}
	return w.relocate(code, first.Msg, first.Pos.Line, column)
}
