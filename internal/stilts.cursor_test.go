package internal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorSlice(t *testing.T) {
	src := NewSource("t", "hello\nwörld")
	c := src.Cursor()
	require.Equal(t, 12, c.Len())

	t.Run("valid bounds", func(t *testing.T) {
		s, ok := c.Slice(0, 5)
		require.True(t, ok)
		assert.Equal(t, "hello", s.String())
		assert.Equal(t, 0, s.ByteOffset())
		assert.Equal(t, 5, s.ByteLen())
	})

	t.Run("relative to window", func(t *testing.T) {
		tail := c.Advance(6)
		s, ok := tail.Slice(0, 1)
		require.True(t, ok)
		assert.Equal(t, "w", s.String())
		assert.Equal(t, 6, s.ByteOffset())
	})

	t.Run("out of bounds never panics", func(t *testing.T) {
		for _, bounds := range [][2]int{{3, 2}, {0, 13}, {-1, 2}, {13, 13}} {
			_, ok := c.Slice(bounds[0], bounds[1])
			assert.False(t, ok, "bounds %v", bounds)
		}
	})

	t.Run("empty slice at end is valid", func(t *testing.T) {
		s, ok := c.Slice(12, 12)
		require.True(t, ok)
		assert.True(t, s.IsEmpty())
	})

	t.Run("must slice panics", func(t *testing.T) {
		assert.Panics(t, func() { c.MustSlice(5, 1) })
	})
}

func TestCursorPosition(t *testing.T) {
	src := NewSource("t", "hello\nwörld")

	tests := []struct {
		offset int
		line   int
		column int
	}{
		{0, 1, 1},
		{5, 1, 6},
		{6, 2, 1},
		{9, 2, 3}, // after the two-byte ö
		{12, 2, 6},
		{99, 2, 6},
	}
	for _, tt := range tests {
		pos := src.Position(tt.offset)
		assert.Equal(t, tt.line, pos.Line, "offset %d", tt.offset)
		assert.Equal(t, tt.column, pos.Column, "offset %d", tt.offset)
	}

	assert.Equal(t, "line 2, column 3", src.Position(9).String())
	assert.Equal(t, "wörld", src.LineText(2))
	assert.Equal(t, "", src.LineText(3))
	assert.Equal(t, 2, src.LineCount())
}

func TestCursorJoin(t *testing.T) {
	src := NewSource("t", "hello world")
	c := src.Cursor()
	a := c.MustSlice(0, 2)
	b := c.MustSlice(6, 11)

	joined := a.Join(b)
	assert.Equal(t, "hello world", joined.String())
	assert.Equal(t, joined, b.Join(a))

	other := NewSource("t", "hello world").Cursor()
	assert.Panics(t, func() { a.Join(other) })
	assert.False(t, a.SameSource(other))
	assert.False(t, c.Equal(other))
	assert.True(t, c.Equal(src.Cursor()))
}

func TestCursorHelpers(t *testing.T) {
	src := NewSource("t", "  a b  ")
	c := src.Cursor()

	trimmed := c.TrimSpace()
	assert.Equal(t, "a b", trimmed.String())
	assert.Equal(t, 2, trimmed.ByteOffset())

	blank := NewSource("t", " \n\t ").Cursor()
	assert.True(t, blank.IsBlank())
	assert.True(t, blank.TrimSpace().IsEmpty())

	assert.True(t, c.Advance(2).HasPrefix("a b"))
	assert.Equal(t, 4, c.Index("b"))
	assert.Equal(t, "  ", c.Until(c.Advance(2)).String())
	assert.True(t, c.Here().IsEmpty())
	assert.Equal(t, 7, c.Tail().ByteOffset())

	r, size := c.Advance(2).NextRune()
	assert.Equal(t, 'a', r)
	assert.Equal(t, 1, size)

	var zero Cursor
	assert.True(t, zero.IsZero())
	assert.Equal(t, "", zero.String())
}

func TestSourceClone(t *testing.T) {
	src := NewSource("page.html", "text")
	clone := src.Clone()
	assert.Equal(t, src.Name, clone.Name)
	assert.Equal(t, src.Text, clone.Text)
	assert.NotSame(t, src, clone)
}
