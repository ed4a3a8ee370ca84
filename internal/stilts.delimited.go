package internal

import (
	"strings"
	"unicode/utf8"
)

// Tagged is the result of Delimited: the whole delimited window, the window
// between the delimiters, and the value the inner parser produced from it.
type Tagged[T any] struct {
	Whole Cursor
	Open  Cursor
	Inner Cursor
	Value T
}

// Delimited matches open, scans for close and runs inner on the text in
// between. Occurrences of close inside quoted literals are ignored, so host
// code such as `x == "%}"` does not end the tag early. A missing close
// reports Incomplete pointing at open.
func Delimited[T any](open, close string, inner Parser[T]) Parser[Tagged[T]] {
	openTag := Tag(open)
	return func(in Cursor) (Cursor, Tagged[T], *Failure) {
		afterOpen, openCur, f := openTag(in)
		if f != nil {
			return in, Tagged[T]{}, f
		}

		idx := IndexUnquoted(afterOpen.String(), close)
		if idx < 0 {
			return in, Tagged[T]{}, Incompletef(openCur, ErrMsgUnterminatedDelim, open, close)
		}

		body := afterOpen.MustSlice(0, idx)
		rest := afterOpen.Advance(idx + len(close))
		_, v, f := inner(body)
		if f != nil {
			return in, Tagged[T]{}, f
		}
		return rest, Tagged[T]{Whole: in.Until(rest), Open: openCur, Inner: body, Value: v}, nil
	}
}

// IndexUnquoted returns the byte index of the first occurrence of needle in
// s that is not inside a quoted literal, or -1.
func IndexUnquoted(s, needle string) int {
	for i := 0; i < len(s); {
		if strings.HasPrefix(s[i:], needle) {
			return i
		}
		if end, ok := quotedEnd(s, i); ok {
			i = end
			continue
		}
		_, size := utf8.DecodeRuneInString(s[i:])
		i += size
	}
	return -1
}

// quotedEnd reports whether a quoted literal starts at s[i] and, if so, the
// index just past its end. Unterminated literals run to the end of s, except
// single-quoted ones, which must close on the same line.
func quotedEnd(s string, i int) (int, bool) {
	switch s[i] {
	case CharRawPrefix:
		return rawStringEnd(s, i)
	case CharDoubleQuote:
		if strings.HasPrefix(s[i:], StrTripleQuote) {
			return closingEnd(s, i+len(StrTripleQuote), StrTripleQuote), true
		}
		end, _ := escapedEnd(s, i+1, CharDoubleQuote, false)
		return end, true
	case CharBacktick:
		return closingEnd(s, i+1, string(CharBacktick)), true
	case CharSingleQuote:
		end, closed := escapedEnd(s, i+1, CharSingleQuote, true)
		if !closed {
			return i, false
		}
		return end, true
	}
	return i, false
}

// rawStringEnd handles r"..." and r#"..."# with any number of pound signs
func rawStringEnd(s string, i int) (int, bool) {
	if i > 0 {
		prev, _ := utf8.DecodeLastRuneInString(s[:i])
		if isIdentPart(prev) {
			return i, false
		}
	}
	j := i + 1
	for j < len(s) && s[j] == CharPound {
		j++
	}
	if j >= len(s) || s[j] != CharDoubleQuote {
		return i, false
	}
	closing := string(CharDoubleQuote) + strings.Repeat(string(CharPound), j-i-1)
	return closingEnd(s, j+1, closing), true
}

func closingEnd(s string, from int, closing string) int {
	idx := strings.Index(s[from:], closing)
	if idx < 0 {
		return len(s)
	}
	return from + idx + len(closing)
}

// escapedEnd scans a backslash-escaped literal body starting at from
func escapedEnd(s string, from int, quote byte, sameLine bool) (int, bool) {
	for j := from; j < len(s); j++ {
		switch s[j] {
		case CharBackslash:
			j++
		case quote:
			return j + 1, true
		case CharNewline:
			if sameLine {
				return j, false
			}
		}
	}
	return len(s), false
}
