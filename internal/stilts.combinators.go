package internal

import (
	"unicode"
)

// Parser consumes a prefix of its input window and returns the remaining
// window with the produced value, or a classified failure.
type Parser[T any] func(in Cursor) (Cursor, T, *Failure)

// Till is the result of ManyTill and ManyUntil
type Till[T, E any] struct {
	Items []T
	End   E
}

// Taken is the result of TakeUntil and TakeTill: the skipped text and the
// value produced by the pattern that stopped the scan.
type Taken[T any] struct {
	Skipped Cursor
	Match   T
}

// Tag matches a literal. It reports Incomplete when the window is shorter
// than the literal and Backtrack on any other mismatch.
func Tag(lit string) Parser[Cursor] {
	return func(in Cursor) (Cursor, Cursor, *Failure) {
		if in.Len() < len(lit) {
			return in, Cursor{}, Incompletef(in.Here(), ErrMsgExpectedTag, lit)
		}
		if !in.HasPrefix(lit) {
			return in, Cursor{}, Backtrackf(in.Here(), ErrMsgExpectedTag, lit)
		}
		return in.Advance(len(lit)), in.MustSlice(0, len(lit)), nil
	}
}

// Alt tries each parser in order. A Backtrack moves on to the next one; Cut
// and Incomplete stop immediately. The last alternative's failure is
// returned unchanged.
func Alt[T any](parsers ...Parser[T]) Parser[T] {
	return func(in Cursor) (Cursor, T, *Failure) {
		var zero T
		var last *Failure
		for _, p := range parsers {
			rest, out, f := p(in)
			if f == nil {
				return rest, out, nil
			}
			if f.IsFatal() {
				return in, zero, f
			}
			last = f
		}
		if last == nil {
			last = Backtrackf(in.Here(), ErrMsgUnexpectedEOF)
		}
		return in, zero, last
	}
}

// ManyTill applies item repeatedly until end matches, consuming end.
// The terminator is tried before each item. An item that consumes nothing
// fails with Backtrack instead of looping forever.
func ManyTill[T, E any](item Parser[T], end Parser[E]) Parser[Till[T, E]] {
	return manyTill(item, end, true)
}

// ManyUntil is ManyTill without consuming the terminator
func ManyUntil[T, E any](item Parser[T], end Parser[E]) Parser[Till[T, E]] {
	return manyTill(item, end, false)
}

func manyTill[T, E any](item Parser[T], end Parser[E], consume bool) Parser[Till[T, E]] {
	return func(in Cursor) (Cursor, Till[T, E], *Failure) {
		var res Till[T, E]
		cur := in
		for {
			rest, e, f := end(cur)
			if f == nil {
				res.End = e
				if consume {
					return rest, res, nil
				}
				return cur, res, nil
			}
			if f.IsFatal() {
				return in, res, f
			}

			rest, v, f := item(cur)
			if f != nil {
				return in, res, f
			}
			if rest.ByteOffset() == cur.ByteOffset() {
				return in, res, Backtrackf(cur.Here(), ErrMsgNoProgress)
			}
			res.Items = append(res.Items, v)
			cur = rest
		}
	}
}

// TakeUntil scans forward one character at a time until p matches. It
// returns the skipped text and leaves the match unconsumed.
func TakeUntil[T any](p Parser[T]) Parser[Taken[T]] {
	return takeScan(p, false)
}

// TakeTill is TakeUntil that also consumes the match
func TakeTill[T any](p Parser[T]) Parser[Taken[T]] {
	return takeScan(p, true)
}

func takeScan[T any](p Parser[T], consume bool) Parser[Taken[T]] {
	return func(in Cursor) (Cursor, Taken[T], *Failure) {
		cur := in
		for {
			rest, v, f := p(cur)
			if f == nil {
				taken := Taken[T]{Skipped: in.Until(cur), Match: v}
				if consume {
					return rest, taken, nil
				}
				return cur, taken, nil
			}
			if f.Class == Cut {
				return in, Taken[T]{}, f
			}
			if cur.IsEmpty() {
				return in, Taken[T]{}, Incompletef(cur, ErrMsgPatternNotFound)
			}
			_, size := cur.NextRune()
			cur = cur.Advance(size)
		}
	}
}

// Map transforms the output of a successful parse
func Map[T, U any](p Parser[T], fn func(T) U) Parser[U] {
	return func(in Cursor) (Cursor, U, *Failure) {
		rest, v, f := p(in)
		if f != nil {
			var zero U
			return in, zero, f
		}
		return rest, fn(v), nil
	}
}

// Preceded runs first then second and keeps the second result
func Preceded[A, B any](first Parser[A], second Parser[B]) Parser[B] {
	return func(in Cursor) (Cursor, B, *Failure) {
		rest, _, f := first(in)
		if f != nil {
			var zero B
			return in, zero, f
		}
		rest, v, f := second(rest)
		if f != nil {
			return in, v, f
		}
		return rest, v, nil
	}
}

// Terminated runs first then second and keeps the first result
func Terminated[A, B any](first Parser[A], second Parser[B]) Parser[A] {
	return func(in Cursor) (Cursor, A, *Failure) {
		rest, v, f := first(in)
		if f != nil {
			return in, v, f
		}
		rest, _, f = second(rest)
		if f != nil {
			var zero A
			return in, zero, f
		}
		return rest, v, nil
	}
}

// Opt turns a Backtrack into a successful empty parse yielding the zero value
func Opt[T any](p Parser[T]) Parser[T] {
	return func(in Cursor) (Cursor, T, *Failure) {
		rest, v, f := p(in)
		if f != nil && !f.IsFatal() {
			var zero T
			return in, zero, nil
		}
		return rest, v, f
	}
}

// Peek runs p without consuming input
func Peek[T any](p Parser[T]) Parser[T] {
	return func(in Cursor) (Cursor, T, *Failure) {
		_, v, f := p(in)
		return in, v, f
	}
}

// Complete treats the window as final: Incomplete becomes Backtrack
func Complete[T any](p Parser[T]) Parser[T] {
	return func(in Cursor) (Cursor, T, *Failure) {
		rest, v, f := p(in)
		if f != nil && f.Class == Incomplete {
			return in, v, &Failure{Class: Backtrack, Diag: f.Diag}
		}
		return rest, v, f
	}
}

// Commit upgrades a Backtrack of p to a Cut
func Commit[T any](p Parser[T]) Parser[T] {
	return func(in Cursor) (Cursor, T, *Failure) {
		rest, v, f := p(in)
		if f != nil && f.Class == Backtrack {
			return in, v, f.Escalate()
		}
		return rest, v, f
	}
}

// TakeWhile1 consumes at least one character satisfying pred
func TakeWhile1(pred func(rune) bool, msg string) Parser[Cursor] {
	return func(in Cursor) (Cursor, Cursor, *Failure) {
		cur := in
		for !cur.IsEmpty() {
			r, size := cur.NextRune()
			if !pred(r) {
				break
			}
			cur = cur.Advance(size)
		}
		if cur.ByteOffset() == in.ByteOffset() {
			return in, Cursor{}, &Failure{Class: Backtrack, Diag: NewDiagnostic(msg, in.Here())}
		}
		return cur, in.Until(cur), nil
	}
}

// Whitespace0 consumes any amount of whitespace
func Whitespace0(in Cursor) (Cursor, Cursor, *Failure) {
	rest, ws, f := TakeWhile1(unicode.IsSpace, ErrMsgExpectedWhitespace)(in)
	if f != nil {
		return in, in.Here(), nil
	}
	return rest, ws, nil
}

// Whitespace1 consumes at least one whitespace character
func Whitespace1(in Cursor) (Cursor, Cursor, *Failure) {
	return TakeWhile1(unicode.IsSpace, ErrMsgExpectedWhitespace)(in)
}

// Eof matches only the empty window
func Eof(in Cursor) (Cursor, Cursor, *Failure) {
	if in.IsEmpty() {
		return in, in, nil
	}
	return in, Cursor{}, Backtrackf(in.Here(), ErrMsgExpectedEOF)
}

// Identifier matches a letter or underscore followed by letters, digits and
// underscores.
func Identifier(in Cursor) (Cursor, Cursor, *Failure) {
	r, _ := in.NextRune()
	if !isIdentStart(r) {
		return in, Cursor{}, Backtrackf(in.Here(), ErrMsgExpectedIdentifier)
	}
	return TakeWhile1(isIdentPart, ErrMsgExpectedIdentifier)(in)
}

func isIdentStart(r rune) bool {
	return r == CharUnderscore || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return isIdentStart(r) || unicode.IsDigit(r)
}
