// Package template classifies the contents of Go template actions for semantic highlighting.
package template

import (
	"regexp"
	"sort"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"
	"gitlab.com/tozd/go/errors"
)

// DefaultBuiltins are the functions text/template predefines, plus the literal
// constants that read like identifiers.
var DefaultBuiltins = []string{
	"and", "call", "html", "index", "slice", "js", "len", "not", "or",
	"print", "printf", "println", "urlquery",
	"eq", "ge", "gt", "le", "lt", "ne",
	"true", "false", "nil",
}

// ControlKeywords are the barewords that shape template control flow.
var ControlKeywords = []string{
	"if", "else", "end", "with", "range", "block", "define", "template", "break", "continue",
}

const (
	numberPattern = `-?(?:0[xX][0-9a-fA-F_]+|0[bB][01_]+|0[oO][0-7_]+|[0-9][0-9_]*(?:\.[0-9]+)?(?:[eE][-+]?[0-9]+)?)`

	escapePattern = `\\(?:[abfnrtv\\'"]|x[0-9a-fA-F]{2}|u[0-9a-fA-F]{4}|U[0-9a-fA-F]{8}|[0-7]{3})`

	// printf verbs, including explicit argument indexes and the literal %%
	placeholderPattern = `%(?:%|[-+# 0]*(?:\[\d+\])?(?:\*|\d+)?(?:\.(?:\*|\d+))?(?:\[\d+\])?[vTtbcdoqxXUeEfFgGsp])`
)

// LexerRules returns the stateful rules for Go templates. Root only looks for
// "{{", Action holds everything between the delimiters, and the String and
// RawString states split literals so escapes and format verbs surface as their
// own tokens.
//
// A trim marker is only a marker when whitespace separates it from the
// action body, so the delimiter tokens carry that whitespace with them:
// "{{- " and " -}}". A comment is only a comment directly after the opening
// delimiter, so it is lexed together with it.
func LexerRules(builtins []string) lexer.Rules {
	return lexer.Rules{
		"Root": {
			// Comments run to "*/", or to the end of input when unterminated
			{"Comment", `\{\{(?:-\s)?/\*[\s\S]*?(?:\*/|$)`, lexer.Push("Action")},
			// Action start, with optional trim marker
			{"OpenDelim", `\{\{(?:-\s)?`, lexer.Push("Action")},
			// Text content
			{"Text", `[^{]+`, nil},
			// A lone brace
			{"Brace", `\{`, nil},
		},
		"Action": {
			// Action end, with optional trim marker
			{"CloseDelim", `(?:\s+-)?\}\}`, lexer.Pop()},
			{"Whitespace", `\s+`, nil},
			// Literals
			{"StringOpen", `"`, lexer.Push("String")},
			{"RawStringOpen", "`", lexer.Push("RawString")},
			{"Char", `'(?:\\.|[^'\\\n])*'`, nil},
			{"Number", numberPattern, nil},
			// Control keywords and built-in functions
			{"Keyword", wordsPattern(ControlKeywords), nil},
			{"Builtin", wordsPattern(builtins), nil},
			// Accessors and variables
			{"Field", `\.[A-Za-z_][A-Za-z0-9_]*`, nil},
			{"Variable", `\$[A-Za-z0-9_]*`, nil},
			{"Dot", `\.`, nil},
			// Operators and punctuation
			{"Pipe", `\|`, nil},
			{"Assign", `:=|=`, nil},
			{"Ident", `[A-Za-z_][A-Za-z0-9_]*`, nil},
			{"Punct", `[(),]`, nil},
			// Catch any remaining characters
			{"Other", `[\s\S]`, nil},
		},
		"String": {
			{"StringClose", `"`, lexer.Pop()},
			{"StringEscape", escapePattern, nil},
			{"UnknownEscape", `\\[^\n]?`, nil},
			{"StringPlaceholder", placeholderPattern, nil},
			{"StringText", `[^"\\%\n]+|%`, nil},
			// an unterminated string ends with its line
			{"StringBreak", `\n`, lexer.Pop()},
		},
		"RawString": {
			{"RawStringClose", "`", lexer.Pop()},
			{"RawPlaceholder", placeholderPattern, nil},
			{"RawStringText", "[^`%]+|%", nil},
		},
	}
}

// wordsPattern matches any of words as a whole word. Longer words are tried
// first so "printf" is never cut short to "print".
func wordsPattern(words []string) string {
	sorted := make([]string, 0, len(words))
	for _, w := range words {
		if w != "" {
			sorted = append(sorted, regexp.QuoteMeta(w))
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool { return len(sorted[i]) > len(sorted[j]) })
	if len(sorted) == 0 {
		// never matches: "\b" cannot sit between two word characters here
		return `[^\s\S]`
	}
	return `(?:` + strings.Join(sorted, "|") + `)\b`
}

type options struct {
	builtins []string
}

type Option func(*options)

// WithBuiltins adds function names that are classified as builtin on top of DefaultBuiltins.
func WithBuiltins(names ...string) Option {
	return func(o *options) {
		o.builtins = append(o.builtins, names...)
	}
}

// Lexer tokenizes whole documents. It is safe for concurrent use.
type Lexer struct {
	def   *lexer.StatefulDefinition
	names map[lexer.TokenType]string
}

func NewLexer(opts ...Option) (*Lexer, error) {
	o := &options{builtins: append([]string{}, DefaultBuiltins...)}
	for _, opt := range opts {
		opt(o)
	}

	def, err := lexer.New(LexerRules(o.builtins))
	if err != nil {
		return nil, errors.Errorf("building template lexer: %w", err)
	}

	names := make(map[lexer.TokenType]string, len(def.Symbols()))
	for name, typ := range def.Symbols() {
		names[typ] = name
	}

	return &Lexer{def: def, names: names}, nil
}

func MustNewLexer(opts ...Option) *Lexer {
	l, err := NewLexer(opts...)
	if err != nil {
		panic(err)
	}
	return l
}

// Symbols exposes the rule name to token type table.
func (me *Lexer) Symbols() map[string]lexer.TokenType {
	return me.def.Symbols()
}

// Lex returns the raw rule tokens for text, without classification.
func (me *Lexer) Lex(text string) ([]lexer.Token, error) {
	lx, err := me.def.LexString("", text)
	if err != nil {
		return nil, errors.Errorf("starting lexer: %w", err)
	}

	var out []lexer.Token
	for {
		tok, err := lx.Next()
		if err != nil {
			return out, errors.Errorf("lexing template: %w", err)
		}
		if tok.EOF() {
			return out, nil
		}
		out = append(out, tok)
	}
}

func (me *Lexer) name(tok lexer.Token) string {
	return me.names[tok.Type]
}
