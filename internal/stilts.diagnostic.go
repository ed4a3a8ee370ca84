package internal

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Diagnostic is a single user-facing failure report. Span and Source are
// optional; Related carries secondary reports such as each step of a cycle.
type Diagnostic struct {
	Message string
	Label   string
	Span    *Range
	Source  *Source
	Related []*Diagnostic
}

// NewDiagnostic creates a diagnostic pointing at the window of at.
// A zero cursor produces a diagnostic without location.
func NewDiagnostic(message string, at Cursor) *Diagnostic {
	d := &Diagnostic{Message: message, Label: DefaultDiagnosticLabel}
	if !at.IsZero() {
		r := at.Range()
		d.Span = &r
		d.Source = at.Source()
	}
	return d
}

// NewDiagnosticf creates a diagnostic with a formatted message
func NewDiagnosticf(at Cursor, format string, args ...any) *Diagnostic {
	return NewDiagnostic(fmt.Sprintf(format, args...), at)
}

// WithLabel replaces the caret label
func (d *Diagnostic) WithLabel(label string) *Diagnostic {
	d.Label = label
	return d
}

// WithRelated appends secondary diagnostics
func (d *Diagnostic) WithRelated(related ...*Diagnostic) *Diagnostic {
	d.Related = append(d.Related, related...)
	return d
}

// Error implements error using the single-line display
func (d *Diagnostic) Error() string {
	return d.DisplaySimple()
}

// HasLocation reports whether the diagnostic points into a source
func (d *Diagnostic) HasLocation() bool {
	return d.Span != nil && d.Source != nil
}

// Position returns the start position of the span, or the zero position
func (d *Diagnostic) Position() Position {
	if !d.HasLocation() {
		return Position{}
	}
	return d.Source.Position(d.Span.Start)
}

// SourceName returns the name of the source the diagnostic points into
func (d *Diagnostic) SourceName() string {
	if d.Source == nil {
		return ""
	}
	return d.Source.Name
}

// DisplaySimple renders `<message> [<line>:<col>] "<source line>"`
func (d *Diagnostic) DisplaySimple() string {
	if !d.HasLocation() {
		return d.Message
	}
	pos := d.Position()
	line := strings.TrimSpace(d.Source.LineText(pos.Line))
	return fmt.Sprintf("%s [%d:%d] %s", d.Message, pos.Line, pos.Column, strconv.Quote(line))
}

// DisplayFancy renders a multi-line report with a caret underline under the
// span and every related diagnostic as a note.
func (d *Diagnostic) DisplayFancy() string {
	var sb strings.Builder
	d.writeFancy(&sb, "error")
	for _, rel := range d.Related {
		sb.WriteString("\n")
		rel.writeFancy(&sb, "note")
	}
	return sb.String()
}

func (d *Diagnostic) writeFancy(sb *strings.Builder, severity string) {
	sb.WriteString(severity)
	sb.WriteString(": ")
	sb.WriteString(d.Message)
	sb.WriteString("\n")
	if !d.HasLocation() {
		return
	}

	pos := d.Position()
	name := d.Source.Name
	if name == "" {
		name = LiteralIdentity
	}
	lineNo := strconv.Itoa(pos.Line)
	pad := strings.Repeat(" ", len(lineNo))
	text := d.Source.LineText(pos.Line)

	fmt.Fprintf(sb, "%s--> %s:%d:%d\n", pad, name, pos.Line, pos.Column)
	fmt.Fprintf(sb, "%s |\n", pad)
	fmt.Fprintf(sb, "%s | %s\n", lineNo, text)

	// Underline the part of the span that falls on the first line.
	width := 1
	lineEnd := d.Source.lineStarts()[pos.Line-1] + len(text)
	spanEnd := min(d.Span.End, lineEnd)
	if spanEnd > pos.Offset {
		width = utf8.RuneCountInString(d.Source.Text[pos.Offset:spanEnd])
	}
	fmt.Fprintf(sb, "%s | %s%s", pad, strings.Repeat(" ", pos.Column-1), strings.Repeat("^", width))
	if d.Label != "" {
		sb.WriteString(" ")
		sb.WriteString(d.Label)
	}
	sb.WriteString("\n")
}

// Class tells an alternation what a failed parser means
type Class int

const (
	// Backtrack: the input did not match here, try the next alternative.
	Backtrack Class = iota
	// Cut: the input committed to a construct and is malformed. Fatal.
	Cut
	// Incomplete: the input ended before a construct was finished.
	Incomplete
)

// Class name constants
const (
	ClassNameBacktrack  = "backtrack"
	ClassNameCut        = "cut"
	ClassNameIncomplete = "incomplete"
)

// String returns the class name
func (c Class) String() string {
	switch c {
	case Cut:
		return ClassNameCut
	case Incomplete:
		return ClassNameIncomplete
	default:
		return ClassNameBacktrack
	}
}

// Failure is the error value of every parser: a diagnostic plus its class
type Failure struct {
	Class Class
	Diag  *Diagnostic
}

// Error implements error
func (f *Failure) Error() string {
	return f.Class.String() + ": " + f.Diag.Error()
}

// Unwrap returns the diagnostic
func (f *Failure) Unwrap() error {
	return f.Diag
}

// IsFatal reports whether the failure must stop every enclosing alternation
func (f *Failure) IsFatal() bool {
	return f.Class != Backtrack
}

// Escalate returns a Cut failure carrying the same diagnostic
func (f *Failure) Escalate() *Failure {
	return &Failure{Class: Cut, Diag: f.Diag}
}

// Backtrackf builds a backtrack failure at the given cursor
func Backtrackf(at Cursor, format string, args ...any) *Failure {
	return &Failure{Class: Backtrack, Diag: NewDiagnosticf(at, format, args...)}
}

// Cutf builds a cut failure at the given cursor
func Cutf(at Cursor, format string, args ...any) *Failure {
	return &Failure{Class: Cut, Diag: NewDiagnosticf(at, format, args...)}
}

// Incompletef builds an incomplete failure at the given cursor
func Incompletef(at Cursor, format string, args ...any) *Failure {
	return &Failure{Class: Incomplete, Diag: NewDiagnosticf(at, format, args...)}
}
