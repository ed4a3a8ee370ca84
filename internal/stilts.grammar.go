package internal

import (
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"
)

// Flags controls which structural constructs are legal at a point of the
// grammar. It is an immutable value passed down every call.
type Flags uint8

const (
	// AllowSuperCall permits super() directly inside a block body
	AllowSuperCall Flags = 1 << iota
	// AllowExtends permits extends as the first item of a template
	AllowExtends
	// AllowBlock permits block at the top level or inside another block
	AllowBlock
)

// RootFlags are the flags a template starts with
const RootFlags = AllowBlock | AllowExtends

// Has reports whether every flag in f is set
func (fl Flags) Has(f Flags) bool {
	return fl&f == f
}

// Delimiters holds the tag delimiters
type Delimiters struct {
	Open  string
	Close string
}

// DefaultDelimiters returns `{%` and `%}`
func DefaultDelimiters() Delimiters {
	return Delimiters{Open: DefaultOpenDelim, Close: DefaultCloseDelim}
}

// GrammarConfig holds grammar configuration
type GrammarConfig struct {
	Delimiters Delimiters
	Host       HostParser
}

// DefaultGrammarConfig returns the default delimiters with the Go host parser
func DefaultGrammarConfig() GrammarConfig {
	return GrammarConfig{Delimiters: DefaultDelimiters(), Host: NewGoHost()}
}

// Grammar turns template sources into borrowed document trees. A Grammar
// holds no per-parse state and may be shared between goroutines.
type Grammar struct {
	delims Delimiters
	host   HostParser
	open   Parser[Cursor]
	tag    Parser[Tagged[Cursor]]
	logger *zap.Logger
}

// NewGrammar creates a grammar. Empty delimiters and a nil host fall back
// to the defaults.
func NewGrammar(config GrammarConfig, logger *zap.Logger) *Grammar {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.Delimiters.Open == "" || config.Delimiters.Close == "" {
		config.Delimiters = DefaultDelimiters()
	}
	if config.Host == nil {
		config.Host = NewGoHost()
	}
	logger.Debug(LogMsgGrammarCreated, zap.String(LogFieldHost, config.Host.Name()))
	return &Grammar{
		delims: config.Delimiters,
		host:   config.Host,
		open:   Tag(config.Delimiters.Open),
		tag:    Delimited(config.Delimiters.Open, config.Delimiters.Close, trimmed),
		logger: logger,
	}
}

// Delimiters returns the configured delimiters
func (g *Grammar) Delimiters() Delimiters {
	return g.delims
}

// Host returns the host parser
func (g *Grammar) Host() HostParser {
	return g.host
}

// Parse parses a whole template. The returned error is a *Diagnostic.
func (g *Grammar) Parse(src *Source) (*Root, error) {
	g.logger.Debug(LogMsgParseStart, zap.String(LogFieldIdentity, src.Name), zap.Int(LogFieldSource, len(src.Text)))

	items, f := g.root(src.Cursor())
	if f != nil {
		g.logger.Debug(LogMsgParseFailed, zap.String(LogFieldIdentity, src.Name), zap.String(LogFieldError, f.Diag.Message))
		return nil, f.Diag
	}

	g.logger.Debug(LogMsgParseEnd, zap.String(LogFieldIdentity, src.Name), zap.Int(LogFieldItems, len(items)))
	return &Root{Source: src, Items: items}, nil
}

// ParseString is a convenience wrapper around Parse
func (g *Grammar) ParseString(name, text string) (*Root, error) {
	return g.Parse(NewSource(name, text))
}

func (g *Grammar) root(in Cursor) ([]Item, *Failure) {
	var items []Item
	cur := in

	// Whitespace before a leading extends is dropped so the extends stays
	// the first item.
	afterWs, _, _ := Whitespace0(in)
	if g.startsWithKeyword(afterWs, KeywordExtends) {
		rest, ext, f := g.construct(RootFlags)(afterWs)
		if f != nil {
			return nil, f
		}
		items = append(items, ext)
		cur = rest
	}

	_, till, f := ManyTill(g.item(AllowBlock), Eof)(cur)
	if f != nil {
		return nil, f.Escalate()
	}
	return append(items, till.Items...), nil
}

func trimmed(in Cursor) (Cursor, Cursor, *Failure) {
	return in.Tail(), in.TrimSpace(), nil
}

// item parses one body element: content or a construct
func (g *Grammar) item(fl Flags) Parser[Item] {
	return Alt(g.content, g.construct(fl))
}

// content takes literal text up to the next opening delimiter
func (g *Grammar) content(in Cursor) (Cursor, Item, *Failure) {
	rest, taken, f := TakeUntil(g.open)(in)
	if f != nil {
		rest, taken = in.Tail(), Taken[Cursor]{Skipped: in}
	}
	if taken.Skipped.IsEmpty() {
		return in, nil, Backtrackf(in.Here(), ErrMsgExpectedTag, g.delims.Open)
	}
	return rest, &Content{Text: taken.Skipped}, nil
}

// directive is the parsed header of a tag. Constructs with a body carry a
// continuation that parses the body after the tag.
type directive struct {
	item Item
	body func(rest Cursor) (Cursor, Item, *Failure)
}

// construct parses one tag and, for multi-part constructs, everything up
// to its closing tag.
func (g *Grammar) construct(fl Flags) Parser[Item] {
	return func(in Cursor) (Cursor, Item, *Failure) {
		rest, t, f := g.tag(in)
		if f != nil {
			if f.Class == Incomplete && in.HasPrefix(g.delims.Open) {
				return in, nil, f.Escalate()
			}
			return in, nil, f
		}

		_, d, f := Alt(
			g.extendsDirective(fl, t),
			g.includeDirective(t),
			g.blockDirective(fl, t),
			g.superDirective(fl, t),
			g.forDirective(t),
			g.ifDirective(t),
			g.matchDirective(t),
			g.macroDirective(t),
			g.callDirective(t),
			g.strayDirective(t),
			g.hostDirective(t),
		)(t.Value)
		if f != nil {
			return in, nil, f.Escalate()
		}
		if d.body == nil {
			return rest, d.item, nil
		}
		return d.body(rest)
	}
}

// keyword matches word followed by whitespace or the end of the tag
func keyword(word string) Parser[Cursor] {
	lit := Complete(Tag(word))
	return func(in Cursor) (Cursor, Cursor, *Failure) {
		rest, m, f := lit(in)
		if f != nil {
			return in, Cursor{}, f
		}
		if r, _ := rest.NextRune(); !rest.IsEmpty() && !unicode.IsSpace(r) {
			return in, Cursor{}, Backtrackf(in.Here(), ErrMsgExpectedTag, word)
		}
		rest, _, _ = Whitespace0(rest)
		return rest, m, nil
	}
}

func (g *Grammar) startsWithKeyword(in Cursor, word string) bool {
	_, t, f := g.tag(in)
	if f != nil {
		return false
	}
	_, _, f = keyword(word)(t.Value)
	return f == nil
}

// closing matches a tag whose whole content is word. An unterminated tag is
// left for the item parser to report.
func (g *Grammar) closing(word string) Parser[Cursor] {
	return func(in Cursor) (Cursor, Cursor, *Failure) {
		rest, t, f := g.tag(in)
		if f != nil {
			if f.Class == Incomplete && in.Len() >= len(g.delims.Open) {
				return in, Cursor{}, &Failure{Class: Backtrack, Diag: f.Diag}
			}
			return in, Cursor{}, f
		}
		if t.Value.String() != word {
			return in, Cursor{}, Backtrackf(in.Here(), ErrMsgExpectedTag, word)
		}
		return rest, t.Whole, nil
	}
}

// opening matches a tag that starts with the keyword word, without
// consuming it.
func (g *Grammar) opening(word string) Parser[Cursor] {
	kw := keyword(word)
	return func(in Cursor) (Cursor, Cursor, *Failure) {
		_, t, f := g.tag(in)
		if f != nil {
			if f.Class == Incomplete && in.Len() >= len(g.delims.Open) {
				return in, Cursor{}, &Failure{Class: Backtrack, Diag: f.Diag}
			}
			return in, Cursor{}, f
		}
		if _, _, f := kw(t.Value); f != nil {
			return in, Cursor{}, f
		}
		return in, t.Whole, nil
	}
}

// unterminated rewrites an end-of-input failure inside a construct body
// into a Cut pointing at the construct's opening tag.
func (g *Grammar) unterminated(f *Failure, open Cursor, construct string) *Failure {
	if f.Class != Incomplete {
		return f
	}
	closer := g.delims.Open + " " + KeywordEnd + " " + g.delims.Close
	return Cutf(open, ErrMsgUnterminatedConstruct, construct, closer)
}

// body parses items with the given flags up to a closing end tag
func (g *Grammar) body(fl Flags) Parser[Till[Item, Cursor]] {
	return ManyTill(g.item(fl), g.closing(KeywordEnd))
}

// quoted parses a double-quoted reference and returns the text between the
// quotes.
func quoted(at Cursor) Parser[Cursor] {
	quote := Complete(Tag(string(CharDoubleQuote)))
	return func(in Cursor) (Cursor, Cursor, *Failure) {
		rest, _, f := quote(in)
		if f != nil {
			return in, Cursor{}, Cutf(at, ErrMsgExpectedReference)
		}
		end, closed := escapedEnd(rest.String(), 0, CharDoubleQuote, false)
		if !closed {
			return in, Cursor{}, Cutf(in, ErrMsgUnterminatedString)
		}
		return rest.Advance(end), rest.MustSlice(0, end-1), nil
	}
}

// parenList parses `name(list)` and returns the name and the list text
func parenList(at Cursor, nameMsg string) Parser[[2]Cursor] {
	return func(in Cursor) (Cursor, [2]Cursor, *Failure) {
		rest, name, f := Identifier(in)
		if f != nil {
			return in, [2]Cursor{}, &Failure{Class: Cut, Diag: NewDiagnostic(nameMsg, at)}
		}
		rest, _, _ = Whitespace0(rest)
		text := rest.String()
		if len(text) < 2 || text[0] != CharOpenParen || text[len(text)-1] != CharCloseParen {
			return in, [2]Cursor{}, Cutf(rest, ErrMsgExpectedParenList)
		}
		return rest.Tail(), [2]Cursor{name, rest.MustSlice(1, len(text)-1)}, nil
	}
}

func (g *Grammar) extendsDirective(fl Flags, t Tagged[Cursor]) Parser[directive] {
	return func(in Cursor) (Cursor, directive, *Failure) {
		rest, _, f := keyword(KeywordExtends)(in)
		if f != nil {
			return in, directive{}, f
		}
		if !fl.Has(AllowExtends) {
			return in, directive{}, Cutf(t.Whole, ErrMsgExtendsNotAllowed)
		}
		rest, ref, f := quoted(t.Whole)(rest)
		if f != nil {
			return in, directive{}, f
		}
		if !rest.TrimSpace().IsEmpty() {
			return in, directive{}, Cutf(rest.TrimSpace(), ErrMsgUnexpectedTrailing)
		}
		return rest.Tail(), directive{item: &Extends{Tag: t.Whole, Reference: ref}}, nil
	}
}

func (g *Grammar) includeDirective(t Tagged[Cursor]) Parser[directive] {
	return func(in Cursor) (Cursor, directive, *Failure) {
		rest, _, f := keyword(KeywordInclude)(in)
		if f != nil {
			return in, directive{}, f
		}
		rest, ref, f := quoted(t.Whole)(rest)
		if f != nil {
			return in, directive{}, f
		}
		inc := &Include{Tag: t.Whole, Reference: ref, FieldsText: rest.TrimSpace()}
		if !inc.FieldsText.IsEmpty() {
			node, err := g.host.ParseFields(inc.FieldsText.String())
			if err != nil {
				return in, directive{}, hostFailure(inc.FieldsText, err)
			}
			inc.Fields = node
		}
		return rest.Tail(), directive{item: inc}, nil
	}
}

func (g *Grammar) blockDirective(fl Flags, t Tagged[Cursor]) Parser[directive] {
	return func(in Cursor) (Cursor, directive, *Failure) {
		rest, _, f := keyword(KeywordBlock)(in)
		if f != nil {
			return in, directive{}, f
		}
		if !fl.Has(AllowBlock) {
			return in, directive{}, Cutf(t.Whole, ErrMsgBlockNotAllowed)
		}
		rest, name, f := Identifier(rest)
		if f != nil {
			return in, directive{}, Cutf(t.Whole, ErrMsgExpectedBlockName)
		}
		if !rest.TrimSpace().IsEmpty() {
			return in, directive{}, Cutf(rest.TrimSpace(), ErrMsgUnexpectedTrailing)
		}

		return rest.Tail(), directive{body: func(after Cursor) (Cursor, Item, *Failure) {
			end, till, f := g.body(AllowBlock | AllowSuperCall)(after)
			if f != nil {
				return after, nil, g.unterminated(f, t.Whole, KeywordBlock)
			}
			return end, &Block{Whole: t.Whole.Join(till.End), Open: t.Whole, Name: name, Body: till.Items, Close: till.End}, nil
		}}, nil
	}
}

func (g *Grammar) superDirective(fl Flags, t Tagged[Cursor]) Parser[directive] {
	name := KeywordSuper[:len(KeywordSuper)-2]
	return func(in Cursor) (Cursor, directive, *Failure) {
		rest, _, f := Complete(Tag(name))(in)
		if f != nil {
			return in, directive{}, f
		}
		rest, _, _ = Whitespace0(rest)
		if r, _ := rest.NextRune(); r != CharOpenParen {
			return in, directive{}, Backtrackf(in.Here(), ErrMsgExpectedTag, KeywordSuper)
		}
		if !fl.Has(AllowSuperCall) {
			return in, directive{}, Cutf(t.Whole, ErrMsgSuperNotAllowed)
		}
		args := rest.Advance(1).TrimSpace()
		if args.String() != string(CharCloseParen) {
			return in, directive{}, Cutf(rest, ErrMsgSuperArguments)
		}
		return rest.Tail(), directive{item: &SuperCall{Tag: t.Whole}}, nil
	}
}

func (g *Grammar) forDirective(t Tagged[Cursor]) Parser[directive] {
	label := Terminated(Identifier, Complete(Tag(string(CharColon))))
	inSep := Preceded(Whitespace1, keyword(KeywordIn))
	return func(in Cursor) (Cursor, directive, *Failure) {
		rest, lbl, _ := Opt(label)(in)
		rest, _, _ = Whitespace0(rest)
		rest, _, f := keyword(KeywordFor)(rest)
		if f != nil {
			return in, directive{}, f
		}

		iter, taken, f := TakeTill(inSep)(rest)
		if f != nil {
			return in, directive{}, Cutf(t.Whole, ErrMsgExpectedForIn)
		}
		loop := &For{Open: t.Whole, Label: lbl, BindingText: taken.Skipped.TrimSpace(), IterableText: iter.TrimSpace()}
		if loop.Binding, f = g.hostParse(g.host.ParseBinding, loop.BindingText); f != nil {
			return in, directive{}, f
		}
		if loop.Iterable, f = g.hostParse(g.host.ParseExpr, loop.IterableText); f != nil {
			return in, directive{}, f
		}

		return in.Tail(), directive{body: func(after Cursor) (Cursor, Item, *Failure) {
			end, till, f := g.body(0)(after)
			if f != nil {
				return after, nil, g.unterminated(f, t.Whole, KeywordFor)
			}
			loop.Whole, loop.Body, loop.Close = t.Whole.Join(till.End), till.Items, till.End
			return end, loop, nil
		}}, nil
	}
}

// hostParse runs a host parser on a fragment, mapping failures to a Cut.
// An empty fragment is handed to the host parser like any other.
func (g *Grammar) hostParse(parse func(string) (HostNode, error), fragment Cursor) (HostNode, *Failure) {
	node, err := parse(fragment.String())
	if err != nil {
		return nil, hostFailure(fragment, err)
	}
	return node, nil
}

// branchKind is the tag that ends an if body
type branchKind int

const (
	branchEnd branchKind = iota
	branchElse
	branchElseIf
)

type branchTag struct {
	kind branchKind
	tag  Cursor
	cond Cursor
}

// branchTerminator matches `end`, `else` or `else if cond`
func (g *Grammar) branchTerminator(in Cursor) (Cursor, branchTag, *Failure) {
	rest, t, f := g.tag(in)
	if f != nil {
		if f.Class == Incomplete && in.Len() >= len(g.delims.Open) {
			return in, branchTag{}, &Failure{Class: Backtrack, Diag: f.Diag}
		}
		return in, branchTag{}, f
	}
	if t.Value.String() == KeywordEnd {
		return rest, branchTag{kind: branchEnd, tag: t.Whole}, nil
	}
	after, _, f := keyword(KeywordElse)(t.Value)
	if f != nil {
		return in, branchTag{}, f
	}
	if after.IsEmpty() {
		return rest, branchTag{kind: branchElse, tag: t.Whole}, nil
	}
	cond, _, f := keyword(KeywordIf)(after)
	if f != nil {
		return in, branchTag{}, Cutf(after, ErrMsgUnexpectedTrailing)
	}
	if cond.IsEmpty() {
		return in, branchTag{}, Cutf(t.Whole, ErrMsgExpectedCondition)
	}
	return rest, branchTag{kind: branchElseIf, tag: t.Whole, cond: cond}, nil
}

// branch parses an if body and the branch chain that follows it
func (g *Grammar) branch(in Cursor) (Cursor, []Item, Branch, *Failure) {
	rest, till, f := ManyTill(g.item(0), g.branchTerminator)(in)
	if f != nil {
		return in, nil, nil, f
	}

	switch till.End.kind {
	case branchElse:
		end, tail, f := g.body(0)(rest)
		if f != nil {
			return in, nil, nil, f
		}
		return end, till.Items, &ElseBranch{Tag: till.End.tag, Body: tail.Items, End: tail.End}, nil
	case branchElseIf:
		cond, f := g.hostParse(g.host.ParseExpr, till.End.cond)
		if f != nil {
			return in, nil, nil, f
		}
		end, body, next, f := g.branch(rest)
		if f != nil {
			return in, nil, nil, f
		}
		elseIf := &ElseIfBranch{Tag: till.End.tag, CondText: till.End.cond, Cond: cond, Body: body, Branch: next}
		return end, till.Items, elseIf, nil
	}
	return rest, till.Items, &EndBranch{Tag: till.End.tag}, nil
}

func (g *Grammar) ifDirective(t Tagged[Cursor]) Parser[directive] {
	return func(in Cursor) (Cursor, directive, *Failure) {
		rest, _, f := keyword(KeywordIf)(in)
		if f != nil {
			return in, directive{}, f
		}
		if rest.IsEmpty() {
			return in, directive{}, Cutf(t.Whole, ErrMsgExpectedCondition)
		}
		cond, f := g.hostParse(g.host.ParseExpr, rest)
		if f != nil {
			return in, directive{}, f
		}

		return rest.Tail(), directive{body: func(after Cursor) (Cursor, Item, *Failure) {
			end, body, br, f := g.branch(after)
			if f != nil {
				return after, nil, g.unterminated(f, t.Whole, KeywordIf)
			}
			return end, &If{Whole: t.Whole.Join(br.Span()), Open: t.Whole, CondText: rest, Cond: cond, Body: body, Branch: br}, nil
		}}, nil
	}
}

func (g *Grammar) matchDirective(t Tagged[Cursor]) Parser[directive] {
	return func(in Cursor) (Cursor, directive, *Failure) {
		rest, _, f := keyword(KeywordMatch)(in)
		if f != nil {
			return in, directive{}, f
		}
		if rest.IsEmpty() {
			return in, directive{}, Cutf(t.Whole, ErrMsgExpectedCondition)
		}
		scrutinee, f := g.hostParse(g.host.ParseExpr, rest)
		if f != nil {
			return in, directive{}, f
		}

		return rest.Tail(), directive{body: func(after Cursor) (Cursor, Item, *Failure) {
			// Whitespace between the match tag and the first arm is dropped.
			arms, _, _ := Whitespace0(after)
			end, till, f := ManyTill(Commit(g.matchArm), g.closing(KeywordEnd))(arms)
			if f != nil {
				return after, nil, g.unterminated(f, t.Whole, KeywordMatch)
			}
			return end, &Match{
				Whole:         t.Whole.Join(till.End),
				Open:          t.Whole,
				ScrutineeText: rest,
				Scrutinee:     scrutinee,
				Arms:          till.Items,
				Close:         till.End,
			}, nil
		}}, nil
	}
}

// matchArm parses `when pattern [if guard]` and the arm body up to the next
// when or end.
func (g *Grammar) matchArm(in Cursor) (Cursor, *MatchArm, *Failure) {
	rest, t, f := g.tag(in)
	if f != nil {
		if f.Class == Incomplete && in.HasPrefix(g.delims.Open) {
			return in, nil, f.Escalate()
		}
		if f.Class == Incomplete {
			return in, nil, f
		}
		return in, nil, Backtrackf(in.Here(), ErrMsgExpectedWhenOrEnd)
	}
	after, _, f := keyword(KeywordWhen)(t.Value)
	if f != nil {
		return in, nil, Backtrackf(t.Whole, ErrMsgExpectedWhenOrEnd)
	}

	arm := &MatchArm{Tag: t.Whole, PatternText: after, GuardText: after.Tail()}
	if pattern, guard, ok := splitGuard(after); ok {
		if guard.IsEmpty() {
			return in, nil, Cutf(t.Whole, ErrMsgExpectedCondition)
		}
		arm.PatternText, arm.GuardText = pattern, guard
	}
	if arm.Pattern, f = g.hostParse(g.host.ParsePattern, arm.PatternText); f != nil {
		return in, nil, f
	}
	if !arm.GuardText.IsEmpty() {
		if arm.Guard, f = g.hostParse(g.host.ParseExpr, arm.GuardText); f != nil {
			return in, nil, f
		}
	}

	end, till, f := ManyUntil(g.item(0), Alt(g.opening(KeywordWhen), g.closing(KeywordEnd)))(rest)
	if f != nil {
		return in, nil, f
	}
	arm.Body = till.Items
	arm.Whole = t.Whole.Join(rest.Until(end))
	return end, arm, nil
}

// splitGuard finds the first ` if ` outside quoted literals and splits the
// arm text into pattern and guard.
func splitGuard(arm Cursor) (Cursor, Cursor, bool) {
	sep := Preceded(Whitespace1, keyword(KeywordIf))
	text := arm.String()
	for i := 0; i < len(text); {
		if end, ok := quotedEnd(text, i); ok {
			i = end
			continue
		}
		if guard, _, f := sep(arm.Advance(i)); f == nil {
			return arm.MustSlice(0, i), guard, true
		}
		_, size := utf8.DecodeRuneInString(text[i:])
		i += size
	}
	return arm, arm.Tail(), false
}

func (g *Grammar) macroDirective(t Tagged[Cursor]) Parser[directive] {
	return func(in Cursor) (Cursor, directive, *Failure) {
		rest, _, f := keyword(KeywordMacro)(in)
		if f != nil {
			return in, directive{}, f
		}
		_, sig, f := parenList(t.Whole, ErrMsgExpectedMacroName)(rest)
		if f != nil {
			return in, directive{}, f
		}
		params, f := g.hostParse(g.host.ParseParams, sig[1])
		if f != nil {
			return in, directive{}, f
		}

		return rest.Tail(), directive{body: func(after Cursor) (Cursor, Item, *Failure) {
			end, till, f := g.body(0)(after)
			if f != nil {
				return after, nil, g.unterminated(f, t.Whole, KeywordMacro)
			}
			return end, &MacroDef{
				Whole:      t.Whole.Join(till.End),
				Open:       t.Whole,
				Name:       sig[0],
				ParamsText: sig[1],
				Params:     params,
				Body:       till.Items,
				Close:      till.End,
			}, nil
		}}, nil
	}
}

func (g *Grammar) callDirective(t Tagged[Cursor]) Parser[directive] {
	return func(in Cursor) (Cursor, directive, *Failure) {
		rest, _, f := keyword(KeywordCall)(in)
		if f != nil {
			return in, directive{}, f
		}
		_, sig, f := parenList(t.Whole, ErrMsgExpectedMacroName)(rest)
		if f != nil {
			return in, directive{}, f
		}
		args, f := g.hostParse(g.host.ParseArgs, sig[1])
		if f != nil {
			return in, directive{}, f
		}
		return rest.Tail(), directive{item: &MacroCall{Tag: t.Whole, Name: sig[0], ArgsText: sig[1], Args: args}}, nil
	}
}

// strayDirective rejects closing keywords that have no open construct
func (g *Grammar) strayDirective(t Tagged[Cursor]) Parser[directive] {
	return func(in Cursor) (Cursor, directive, *Failure) {
		switch {
		case in.String() == KeywordEnd:
			return in, directive{}, Cutf(t.Whole, ErrMsgStrayEnd)
		case succeeds(keyword(KeywordElse), in):
			return in, directive{}, Cutf(t.Whole, ErrMsgStrayElse)
		case succeeds(keyword(KeywordWhen), in):
			return in, directive{}, Cutf(t.Whole, ErrMsgStrayWhen)
		}
		return in, directive{}, Backtrackf(in.Here(), ErrMsgExpectedTag, KeywordEnd)
	}
}

func succeeds[T any](p Parser[T], in Cursor) bool {
	_, _, f := p(in)
	return f == nil
}

// hostDirective is the fallback: a host statement if the host parser
// accepts one, an expression otherwise.
func (g *Grammar) hostDirective(t Tagged[Cursor]) Parser[directive] {
	return func(in Cursor) (Cursor, directive, *Failure) {
		if in.IsEmpty() {
			return in, directive{}, Cutf(t.Whole, ErrMsgEmptyTag)
		}
		if node, err := g.host.ParseStmt(in.String()); err == nil {
			return in.Tail(), directive{item: &HostStmt{Tag: t.Whole, Code: in, Node: node}}, nil
		}
		node, f := g.hostParse(g.host.ParseExpr, in)
		if f != nil {
			return in, directive{}, f
		}
		return in.Tail(), directive{item: &HostExpr{Tag: t.Whole, Code: in, Node: node}}, nil
	}
}
