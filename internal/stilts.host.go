package internal

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// HostNode is a fragment of host-language code parsed by a HostParser.
// Host nodes are immutable and own their text.
type HostNode interface {
	// Kind returns one of the HostKind* constants
	Kind() string
	// Text returns the code the node was parsed from
	Text() string
}

// HostParser parses the embedded host-language fragments of a template.
// Every method receives the fragment text alone; failures are reported as
// *HostError with a position relative to the fragment.
type HostParser interface {
	Name() string
	ParseStmt(code string) (HostNode, error)
	ParseExpr(code string) (HostNode, error)
	ParseBinding(code string) (HostNode, error)
	ParsePattern(code string) (HostNode, error)
	ParseArgs(code string) (HostNode, error)
	ParseParams(code string) (HostNode, error)
	ParseFields(code string) (HostNode, error)
}

// HostError is a host parser failure. Line and Column are 1-based and
// relative to the fragment; Column counts characters.
type HostError struct {
	Message string
	Line    int
	Column  int
}

// Error implements error
func (e *HostError) Error() string {
	return fmt.Sprintf("%s at %d:%d", e.Message, e.Line, e.Column)
}

// NewHostParser returns the built-in host parser registered under name
func NewHostParser(name string) (HostParser, bool) {
	switch strings.ToLower(name) {
	case "", HostNameGo:
		return NewGoHost(), true
	case HostNameStarlark:
		return NewStarlarkHost(), true
	}
	return nil, false
}

// HostParserNames lists the built-in host parsers
func HostParserNames() []string {
	return []string{HostNameGo, HostNameStarlark}
}

// hostFailure converts a host parser error on fragment into a Cut whose span
// is the absolute location of the reported position.
func hostFailure(fragment Cursor, err error) *Failure {
	var he *HostError
	if !errors.As(err, &he) {
		return &Failure{Class: Cut, Diag: NewDiagnostic(ErrMsgInvalidHostCode+": "+err.Error(), fragment)}
	}
	at := hostErrorCursor(fragment, he.Line, he.Column)
	return &Failure{Class: Cut, Diag: NewDiagnostic(he.Message, at)}
}

// hostErrorCursor maps a fragment-relative line/column to a one-character
// cursor. Out-of-range positions are clamped to the fragment end.
func hostErrorCursor(fragment Cursor, line, column int) Cursor {
	text := fragment.String()
	off := offsetOf(text, line, column)
	end := off
	if off < len(text) {
		_, size := utf8.DecodeRuneInString(text[off:])
		end = off + size
	}
	return fragment.MustSlice(off, end)
}

// offsetOf converts a 1-based line and character column to a byte offset
func offsetOf(text string, line, column int) int {
	if line < 1 {
		line = 1
	}
	if column < 1 {
		column = 1
	}
	off := 0
	for l := 1; l < line; l++ {
		idx := strings.IndexByte(text[off:], CharNewline)
		if idx < 0 {
			return len(text)
		}
		off += idx + 1
	}
	for c := 1; c < column && off < len(text); c++ {
		r, size := utf8.DecodeRuneInString(text[off:])
		if r == CharNewline {
			break
		}
		off += size
	}
	return off
}

// hostNode is the HostNode shared by the built-in parsers
type hostNode struct {
	kind string
	text string
	ast  any
}

func newHostNode(kind, text string, ast any) *hostNode {
	return &hostNode{kind: kind, text: strings.Clone(text), ast: ast}
}

// Kind returns the fragment kind
func (n *hostNode) Kind() string { return n.kind }

// Text returns the fragment text
func (n *hostNode) Text() string { return n.text }

// AST returns the host parser's syntax tree for the fragment
func (n *hostNode) AST() any { return n.ast }

// String returns a debug representation
func (n *hostNode) String() string {
	return fmt.Sprintf("%s(%q)", n.kind, truncate(n.text))
}

// wrapped describes how a fragment was embedded in a larger snippet so host
// error positions can be shifted back onto the fragment.
type wrapped struct {
	prefix string
	suffix string
	lines  int // lines the prefix adds before the fragment
	column int // characters the prefix adds before the fragment on its first line
}

func (w wrapped) source(code string) string {
	return w.prefix + code + w.suffix
}

// relocate shifts a snippet position back onto code. Positions past the
// fragment point at its end.
func (w wrapped) relocate(code, msg string, line, column int) *HostError {
	line -= w.lines
	if line == 1 {
		column -= w.column
	}
	lines := strings.Split(code, "\n")
	switch {
	case line < 1:
		line, column = 1, 1
	case line > len(lines):
		line = len(lines)
		column = utf8.RuneCountInString(lines[line-1]) + 1
	}
	if limit := utf8.RuneCountInString(lines[line-1]) + 1; column > limit {
		column = limit
	}
	if column < 1 {
		column = 1
	}
	return &HostError{Message: msg, Line: line, Column: column}
}
