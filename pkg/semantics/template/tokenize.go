package template

import (
	"context"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"
	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
	"github.com/walteh/gotmpls-hybrid/pkg/position"
	"github.com/walteh/gotmpls-hybrid/pkg/semtok"
	"github.com/walteh/gotmpls-hybrid/pkg/spans"
	"gitlab.com/tozd/go/errors"
)

// ruleKinds maps lexer rules to the kind they produce. Rules missing here are not emitted.
var ruleKinds = map[string]semtok.Kind{
	"OpenDelim":         semtok.KindBegin,
	"CloseDelim":        semtok.KindEnd,
	"Comment":           semtok.KindComment,
	"StringOpen":        semtok.KindString,
	"StringText":        semtok.KindString,
	"StringClose":       semtok.KindString,
	"StringEscape":      semtok.KindStringEscape,
	"UnknownEscape":     semtok.KindUnknownEscape,
	"StringPlaceholder": semtok.KindPlaceholder,
	"RawStringOpen":     semtok.KindRawString,
	"RawStringText":     semtok.KindRawString,
	"RawStringClose":    semtok.KindRawString,
	"RawPlaceholder":    semtok.KindPlaceholder,
	"Char":              semtok.KindString,
	"Number":            semtok.KindNumber,
	"Keyword":           semtok.KindControl,
	"Builtin":           semtok.KindBuiltin,
	"Field":             semtok.KindProperty,
	"Variable":          semtok.KindVariable,
	"Dot":               semtok.KindVariable,
	"Pipe":              semtok.KindPipe,
	"Assign":            semtok.KindAssignment,
}

// whitespace is what may separate a trim marker from the action body.
const whitespace = " \t\r\n\f"

// blockOpeners push onto the control stack; "end" pops.
var blockOpeners = map[string]bool{
	"if":     true,
	"with":   true,
	"range":  true,
	"block":  true,
	"define": true,
}

// Tokenize classifies every template unit of text. Tokens come back in
// document order, each confined to a single line. Literal text outside
// actions produces no tokens.
//
// The whole text is lexed as one stream, so an unterminated literal swallows
// the rest of the document. TokenizeSpans is the per-region alternative.
func (me *Lexer) Tokenize(ctx context.Context, text string) ([]semtok.ParsedToken, error) {
	raw, err := me.Lex(text)

	c := newClassifier(ctx, text, len(raw)/2)
	for _, tok := range raw {
		c.consume(me.name(tok), tok)
	}
	c.finish()

	return c.out, err
}

// TokenizeSpans classifies the template units of each span on its own, so
// the lexer starts fresh at every "{{" and an unterminated string or comment
// in one span cannot leak into the next. The control stack is shared across
// spans. Tokens never leave the span they start in.
func (me *Lexer) TokenizeSpans(ctx context.Context, text string, sp []spans.Span) ([]semtok.ParsedToken, error) {
	c := newClassifier(ctx, text, len(sp)*4)

	var result *multierror.Error
	for _, s := range sp {
		raw, err := me.Lex(s.Content)
		if err != nil {
			result = multierror.Append(result, errors.Errorf("span at offset %d: %w", s.Start, err))
		}
		for _, tok := range raw {
			tok.Pos.Offset += s.Start
			c.consume(me.name(tok), tok)
		}
		c.flush()
	}
	c.finish()

	return RetainInSpans(c.out, sp), result.ErrorOrNil()
}

func newClassifier(ctx context.Context, text string, capacity int) *classifier {
	return &classifier{
		ctx:  ctx,
		idx:  position.NewLineIndex(text),
		text: text,
		out:  make([]semtok.ParsedToken, 0, capacity),
	}
}

type classifier struct {
	ctx  context.Context
	idx  *position.LineIndex
	text string
	out  []semtok.ParsedToken

	// current string or raw string run, merged from consecutive literal pieces
	runKind  semtok.Kind
	runStart int
	runEnd   int

	stack     []string
	afterElse bool
}

func (c *classifier) consume(rule string, tok lexer.Token) {
	kind, ok := ruleKinds[rule]
	start := tok.Pos.Offset
	end := start + len(tok.Value)

	if ok && (kind == semtok.KindString || kind == semtok.KindRawString) && rule != "Char" {
		if c.runKind == kind && c.runEnd == start {
			c.runEnd = end
			return
		}
		c.flush()
		c.runKind, c.runStart, c.runEnd = kind, start, end
		return
	}

	c.flush()

	switch rule {
	case "Keyword":
		c.control(tok)
	case "OpenDelim":
		// "{{- " keeps its whitespace out of the marker
		end = start + len(strings.TrimRight(tok.Value, whitespace))
	case "CloseDelim":
		start = end - len(strings.TrimLeft(tok.Value, whitespace))
		c.afterElse = false
	case "Comment":
		body := strings.Index(tok.Value, "/*")
		delim := strings.TrimRight(tok.Value[:body], whitespace)
		c.emit(start, start+len(delim), semtok.KindBegin)
		start += body
	}

	if ok {
		c.emit(start, end, kind)
	}
}

func (c *classifier) finish() {
	c.flush()
	if len(c.stack) > 0 {
		zerolog.Ctx(c.ctx).Debug().Strs("open_blocks", c.stack).Msg("template has unclosed blocks")
	}
}

// control keeps the stack of open blocks. Unbalanced input is tolerated: the
// keyword is still emitted as control.
func (c *classifier) control(tok lexer.Token) {
	word := tok.Value
	switch {
	case blockOpeners[word] && !c.afterElse:
		c.stack = append(c.stack, word)
	case word == "end":
		if len(c.stack) == 0 {
			zerolog.Ctx(c.ctx).Debug().Int("offset", tok.Pos.Offset).Msg("unmatched end")
			break
		}
		c.stack = c.stack[:len(c.stack)-1]
	case word == "else":
		if len(c.stack) == 0 {
			zerolog.Ctx(c.ctx).Debug().Int("offset", tok.Pos.Offset).Msg("else outside of any block")
		}
	}
	// "else if" and "else with" continue the current block
	c.afterElse = word == "else"
}

func (c *classifier) flush() {
	if c.runKind == "" {
		return
	}
	c.emit(c.runStart, c.runEnd, c.runKind)
	c.runKind = ""
}

// emit appends [start, end) as one token per line it touches.
func (c *classifier) emit(start, end int, kind semtok.Kind) {
	for start < end {
		line, col := c.idx.OffsetToLineColumn(start)
		segEnd := min(end, c.idx.LineEnd(line))
		length := segEnd - start
		if length > 0 && segEnd == c.idx.LineEnd(line) && c.text[segEnd-1] == '\r' {
			length--
		}
		if length > 0 {
			c.out = append(c.out, semtok.ParsedToken{
				Line:      line,
				Column:    col,
				Length:    length,
				Offset:    start,
				Kind:      kind,
				Modifiers: []semtok.Modifier{semtok.ModifierTemplate},
			})
		}
		start = segEnd + 1
	}
}

// RetainInSpans drops tokens that start outside every span and clips tokens that
// run past the end of their span.
func RetainInSpans(tokens []semtok.ParsedToken, sp []spans.Span) []semtok.ParsedToken {
	out := make([]semtok.ParsedToken, 0, len(tokens))
	for _, tok := range tokens {
		s, ok := spans.At(sp, tok.Offset)
		if !ok {
			continue
		}
		if tok.Offset+tok.Length > s.End {
			tok.Length = s.End - tok.Offset
		}
		out = append(out, tok)
	}
	return out
}
