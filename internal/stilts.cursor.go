package internal

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"
)

// Position represents a location in a template source
type Position struct {
	Offset int // Byte offset from start
	Line   int // 1-indexed line number
	Column int // 1-indexed column number, counted in characters
}

// String returns a human-readable position string
func (p Position) String() string {
	return fmt.Sprintf("line %d, column %d", p.Line, p.Column)
}

// Range is a half-open byte range [Start, End) into a Source
type Range struct {
	Start int
	End   int
}

// Len returns the number of bytes covered by the range
func (r Range) Len() int {
	return r.End - r.Start
}

// String returns a human-readable range
func (r Range) String() string {
	return fmt.Sprintf("%d..%d", r.Start, r.End)
}

// Source is the backing text of a template. Two cursors belong to the same
// source only if they point at the same *Source.
type Source struct {
	Name string
	Text string

	once  sync.Once
	lines []int
}

// NewSource creates a source from a name (identity or file name) and its text
func NewSource(name, text string) *Source {
	return &Source{Name: name, Text: text}
}

// Cursor returns a cursor spanning the whole source
func (s *Source) Cursor() Cursor {
	return Cursor{src: s, start: 0, end: len(s.Text)}
}

// Clone returns an independent copy of the source that shares no memory
// with the original text.
func (s *Source) Clone() *Source {
	return NewSource(strings.Clone(s.Name), strings.Clone(s.Text))
}

func (s *Source) lineStarts() []int {
	s.once.Do(func() {
		s.lines = append(s.lines, 0)
		for i := 0; i < len(s.Text); i++ {
			if s.Text[i] == CharNewline {
				s.lines = append(s.lines, i+1)
			}
		}
	})
	return s.lines
}

// Position converts a byte offset into a line/column position. Offsets
// outside the text are clamped.
func (s *Source) Position(offset int) Position {
	if offset < 0 {
		offset = 0
	}
	if offset > len(s.Text) {
		offset = len(s.Text)
	}
	lines := s.lineStarts()
	idx := sort.SearchInts(lines, offset+1) - 1
	if idx < 0 {
		idx = 0
	}
	col := utf8.RuneCountInString(s.Text[lines[idx]:offset]) + 1
	return Position{Offset: offset, Line: idx + 1, Column: col}
}

// LineCount returns the number of lines in the source
func (s *Source) LineCount() int {
	return len(s.lineStarts())
}

// LineText returns the text of a 1-indexed line without its line terminator
func (s *Source) LineText(line int) string {
	lines := s.lineStarts()
	if line < 1 || line > len(lines) {
		return ""
	}
	start := lines[line-1]
	end := len(s.Text)
	if line < len(lines) {
		end = lines[line] - 1
	}
	return strings.TrimSuffix(s.Text[start:end], "\r")
}

// Cursor is a borrowed, half-open view [start, end) into a Source.
// Cursors are values; every operation returns a new one.
type Cursor struct {
	src   *Source
	start int
	end   int
}

// NewCursor returns a cursor spanning the whole text of src
func NewCursor(src *Source) Cursor {
	return src.Cursor()
}

// Source returns the backing source, nil for the zero cursor
func (c Cursor) Source() *Source {
	return c.src
}

// IsZero reports whether the cursor is not attached to any source
func (c Cursor) IsZero() bool {
	return c.src == nil
}

// String returns the text covered by the cursor
func (c Cursor) String() string {
	if c.src == nil {
		return ""
	}
	return c.src.Text[c.start:c.end]
}

// Len returns the byte length of the window
func (c Cursor) Len() int {
	return c.end - c.start
}

// IsEmpty reports whether the window is empty
func (c Cursor) IsEmpty() bool {
	return c.start == c.end
}

// ByteOffset returns the absolute byte offset of the window start
func (c Cursor) ByteOffset() int {
	return c.start
}

// ByteLen returns the byte length of the window
func (c Cursor) ByteLen() int {
	return c.end - c.start
}

// Range returns the absolute byte range of the window
func (c Cursor) Range() Range {
	return Range{Start: c.start, End: c.end}
}

// Position returns the line/column position of the window start
func (c Cursor) Position() Position {
	if c.src == nil {
		return Position{Line: 1, Column: 1}
	}
	return c.src.Position(c.start)
}

// Slice returns the sub-window [from, to) relative to this window.
// It reports false instead of panicking when the bounds are invalid.
func (c Cursor) Slice(from, to int) (Cursor, bool) {
	if from < 0 || to < from || to > c.Len() {
		return Cursor{}, false
	}
	return Cursor{src: c.src, start: c.start + from, end: c.start + to}, true
}

// MustSlice is like Slice but panics on invalid bounds
func (c Cursor) MustSlice(from, to int) Cursor {
	s, ok := c.Slice(from, to)
	if !ok {
		panic(fmt.Sprintf("cursor slice [%d:%d] out of range for window of length %d", from, to, c.Len()))
	}
	return s
}

// Advance drops the first n bytes of the window, clamped to its length
func (c Cursor) Advance(n int) Cursor {
	if n > c.Len() {
		n = c.Len()
	}
	if n < 0 {
		n = 0
	}
	return Cursor{src: c.src, start: c.start + n, end: c.end}
}

// Here returns an empty cursor at the window start
func (c Cursor) Here() Cursor {
	return Cursor{src: c.src, start: c.start, end: c.start}
}

// Tail returns an empty cursor at the window end
func (c Cursor) Tail() Cursor {
	return Cursor{src: c.src, start: c.end, end: c.end}
}

// Until returns the part of c that lies before rest. rest must be a suffix
// window of c, as returned by a parser that consumed from c.
func (c Cursor) Until(rest Cursor) Cursor {
	end := rest.start
	if end < c.start {
		end = c.start
	}
	if end > c.end {
		end = c.end
	}
	return Cursor{src: c.src, start: c.start, end: end}
}

// Join returns the smallest window covering both c and other.
// It panics if other belongs to a different source.
func (c Cursor) Join(other Cursor) Cursor {
	if c.src != other.src {
		panic("cursor join across different sources")
	}
	start, end := c.start, other.end
	if other.start < start {
		start = other.start
	}
	if c.end > end {
		end = c.end
	}
	return Cursor{src: c.src, start: start, end: end}
}

// SameSource reports whether both cursors view the same source
func (c Cursor) SameSource(other Cursor) bool {
	return c.src == other.src
}

// Equal reports whether both cursors view the same window of the same source
func (c Cursor) Equal(other Cursor) bool {
	return c.src == other.src && c.start == other.start && c.end == other.end
}

// HasPrefix reports whether the window starts with s
func (c Cursor) HasPrefix(s string) bool {
	return strings.HasPrefix(c.String(), s)
}

// Index returns the byte index of s inside the window, or -1
func (c Cursor) Index(s string) int {
	return strings.Index(c.String(), s)
}

// NextRune decodes the first character of the window. It returns
// utf8.RuneError and 0 for an empty window.
func (c Cursor) NextRune() (rune, int) {
	if c.IsEmpty() {
		return utf8.RuneError, 0
	}
	return utf8.DecodeRuneInString(c.String())
}

// TrimSpace returns the window without leading and trailing whitespace
func (c Cursor) TrimSpace() Cursor {
	text := c.String()
	lead := len(text) - len(strings.TrimLeftFunc(text, unicode.IsSpace))
	trail := len(text) - len(strings.TrimRightFunc(text, unicode.IsSpace))
	if lead == len(text) {
		return Cursor{src: c.src, start: c.end, end: c.end}
	}
	return Cursor{src: c.src, start: c.start + lead, end: c.end - trail}
}

// IsBlank reports whether the window holds only whitespace
func (c Cursor) IsBlank() bool {
	return strings.TrimSpace(c.String()) == ""
}
