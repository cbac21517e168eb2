package basetok_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/walteh/gotmpls-hybrid/pkg/basetok"
	"github.com/walteh/gotmpls-hybrid/pkg/grammar"
	"github.com/walteh/gotmpls-hybrid/pkg/semtok"
	"github.com/walteh/gotmpls-hybrid/pkg/spans"
	"gitlab.com/tozd/go/errors"
)

type depth int

func (d depth) Depth() int { return int(d) }

// wordGrammar emits one token per whitespace separated word, scoped by the
// words map, and counts lines in its state.
type wordGrammar struct {
	words map[string]string
	seen  []grammar.StateStack
}

func (g *wordGrammar) ScopeName() string { return "source.words" }

func (g *wordGrammar) TokenizeLine(line string, prev grammar.StateStack) (*grammar.LineResult, error) {
	g.seen = append(g.seen, prev)

	res := &grammar.LineResult{State: depth(0)}
	if prev != nil {
		res.State = depth(prev.Depth() + 1)
	}

	start := -1
	for i := 0; i <= len(line); i++ {
		if i < len(line) && line[i] != ' ' {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			scope := g.words[line[start:i]]
			res.Tokens = append(res.Tokens, grammar.RawToken{
				Start:  start,
				End:    i,
				Scopes: []string{scope, "source.words"},
			})
			start = -1
		}
	}
	return res, nil
}

type MockGrammar struct {
	mock.Mock
}

func (m *MockGrammar) ScopeName() string {
	return m.Called().String(0)
}

func (m *MockGrammar) TokenizeLine(line string, prev grammar.StateStack) (*grammar.LineResult, error) {
	args := m.Called(line, prev)
	res, _ := args.Get(0).(*grammar.LineResult)
	return res, args.Error(1)
}

func TestKindForScopes(t *testing.T) {
	tests := []struct {
		scopes []string
		want   semtok.Kind
	}{
		{[]string{"entity.name.tag.html", "meta.tag.structure.div.html"}, semtok.KindTag},
		{[]string{"entity.other.attribute-name.html"}, semtok.KindAttribute},
		{[]string{"entity.other.attribute-name.class.css"}, semtok.KindClass},
		{[]string{"entity.name.type.class"}, semtok.KindClass},
		{[]string{"entity.name.namespace"}, semtok.KindNamespace},
		{[]string{"string.quoted.double.json"}, semtok.KindString},
		{[]string{"string.unquoted.plain.out.yaml"}, semtok.KindString},
		{[]string{"string.interpolated"}, semtok.KindString},
		{[]string{"constant.character.escape", "string.quoted"}, semtok.KindString},
		{[]string{"comment.line.number-sign.shell"}, semtok.KindComment},
		{[]string{"punctuation.definition.comment", "comment.block.html"}, semtok.KindComment},
		{[]string{"keyword.control.if"}, semtok.KindKeyword},
		{[]string{"keyword.other.DML.sql"}, semtok.KindKeyword},
		{[]string{"storage.type.function"}, semtok.KindKeyword},
		{[]string{"storage.modifier"}, semtok.KindKeyword},
		{[]string{"keyword.operator.assignment"}, semtok.KindOperator},
		{[]string{"punctuation.separator.key-value.yaml"}, semtok.KindOperator},
		{[]string{"constant.numeric.integer"}, semtok.KindNumber},
		{[]string{"entity.name.function.shell"}, semtok.KindFunction},
		{[]string{"support.function.builtin"}, semtok.KindFunction},
		{[]string{"support.type.property-name.json"}, semtok.KindProperty},
		{[]string{"variable.other.property"}, semtok.KindProperty},
		{[]string{"variable.other.normal.shell"}, semtok.KindVariable},
		{[]string{"punctuation.definition.tag.begin.html"}, semtok.KindPunctuation},
		{[]string{"punctuation.terminator.statement"}, semtok.KindPunctuation},
		{[]string{"punctuation.section.block"}, semtok.KindPunctuation},
		{[]string{"meta.tag.sgml"}, semtok.KindPunctuation},
		{[]string{"constant.language.boolean"}, semtok.KindVariable},
		{[]string{"text.html.basic"}, semtok.KindText},
		{nil, semtok.KindText},
	}

	for _, tt := range tests {
		t.Run(strings.Join(tt.scopes, " "), func(t *testing.T) {
			assert.Equal(t, tt.want, basetok.KindForScopes(tt.scopes))
		})
	}
}

func TestTokenize(t *testing.T) {
	g := &wordGrammar{words: map[string]string{
		"div":   "entity.name.tag",
		"class": "entity.other.attribute-name",
		"42":    "constant.numeric",
	}}

	text := "div class\n  42 plain\r\n\nlast"
	toks, err := basetok.Tokenize(context.Background(), text, nil, g)
	require.NoError(t, err)

	base := []semtok.Modifier{semtok.ModifierBase}
	assert.Equal(t, []semtok.BaseToken{
		{Line: 0, StartChar: 0, Length: 3, Kind: semtok.KindTag, Modifiers: base},
		{Line: 0, StartChar: 4, Length: 5, Kind: semtok.KindAttribute, Modifiers: base},
		{Line: 1, StartChar: 2, Length: 2, Kind: semtok.KindNumber, Modifiers: base},
		{Line: 1, StartChar: 5, Length: 5, Kind: semtok.KindText, Modifiers: base},
		{Line: 3, StartChar: 0, Length: 4, Kind: semtok.KindText, Modifiers: base},
	}, toks)

	require.Len(t, g.seen, 4)
	assert.Nil(t, g.seen[0], "first line starts without state")
	assert.Equal(t, depth(0), g.seen[1])
	assert.Equal(t, depth(1), g.seen[2])
	assert.Equal(t, depth(2), g.seen[3])
}

func TestTokenizeCutsAroundSpans(t *testing.T) {
	text := "a {{ .X }} b\nc{{ .Y }}"
	sp := spans.Extract(text)
	virt := spans.VirtualBuffer(text, sp)

	g := &MockGrammar{}
	g.On("ScopeName").Return("source.mock")
	// a grammar that sees the whole line as one text run
	g.On("TokenizeLine", "a          b", nil).Return(&grammar.LineResult{
		Tokens: []grammar.RawToken{{Start: 0, End: 12, Scopes: []string{"source.mock"}}},
		State:  depth(0),
	}, nil)
	g.On("TokenizeLine", "c        ", depth(0)).Return(&grammar.LineResult{
		Tokens: []grammar.RawToken{{Start: 0, End: 9, Scopes: []string{"source.mock"}}},
		State:  depth(1),
	}, nil)

	toks, err := basetok.Tokenize(context.Background(), virt, sp, g)
	require.NoError(t, err)
	g.AssertExpectations(t)

	base := []semtok.Modifier{semtok.ModifierBase}
	assert.Equal(t, []semtok.BaseToken{
		{Line: 0, StartChar: 0, Length: 2, Kind: semtok.KindText, Modifiers: base},
		{Line: 0, StartChar: 10, Length: 2, Kind: semtok.KindText, Modifiers: base},
		{Line: 1, StartChar: 0, Length: 1, Kind: semtok.KindText, Modifiers: base},
	}, toks)

	for _, tok := range toks {
		offset := strings.Index(text, "\n")*tok.Line + tok.Line + tok.StartChar
		for i := offset; i < offset+tok.Length; i++ {
			assert.False(t, spans.Contains(sp, i), "base token %v covers template offset %d", tok, i)
		}
	}
}

func TestTokenizeErrors(t *testing.T) {
	t.Run("grammar failure", func(t *testing.T) {
		g := &MockGrammar{}
		g.On("ScopeName").Return("source.mock")
		g.On("TokenizeLine", mock.Anything, mock.Anything).Return(nil, errors.New("boom"))

		_, err := basetok.Tokenize(context.Background(), "x", nil, g)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "boom")
	})

	t.Run("missing result", func(t *testing.T) {
		g := &MockGrammar{}
		g.On("ScopeName").Return("source.mock")
		g.On("TokenizeLine", mock.Anything, mock.Anything).Return(nil, nil)

		_, err := basetok.Tokenize(context.Background(), "x", nil, g)
		require.Error(t, err)
	})

	t.Run("nil grammar", func(t *testing.T) {
		toks, err := basetok.Tokenize(context.Background(), "x", nil, nil)
		require.NoError(t, err)
		assert.Empty(t, toks)
	})
}

// blockGrammar lexes whole documents, scoping everything between "/*" and
// "*/" as a comment, and fails if it is ever driven line by line.
type blockGrammar struct {
	lines int
}

func (g *blockGrammar) ScopeName() string { return "source.block" }

func (g *blockGrammar) TokenizeLine(line string, prev grammar.StateStack) (*grammar.LineResult, error) {
	return nil, errors.New("line mode used")
}

func (g *blockGrammar) TokenizeDocument(text string) ([]*grammar.LineResult, error) {
	lines := strings.Split(text, "\n")
	if g.lines > 0 {
		lines = lines[:g.lines]
	}
	out := make([]*grammar.LineResult, len(lines))
	inComment := false
	for i, line := range lines {
		res := &grammar.LineResult{State: depth(0)}
		if inComment || strings.HasPrefix(line, "/*") {
			res.Tokens = append(res.Tokens, grammar.RawToken{Start: 0, End: len(line), Scopes: []string{"comment.block", "source.block"}})
			inComment = !strings.HasSuffix(line, "*/")
		}
		out[i] = res
	}
	return out, nil
}

func TestTokenizeDocumentGrammar(t *testing.T) {
	text := "/* a\nb {{ .X }} c\nd */\nplain"
	sp := spans.Extract(text)
	virt := spans.VirtualBuffer(text, sp)

	toks, err := basetok.Tokenize(context.Background(), virt, sp, &blockGrammar{})
	require.NoError(t, err)

	base := []semtok.Modifier{semtok.ModifierBase}
	assert.Equal(t, []semtok.BaseToken{
		{Line: 0, StartChar: 0, Length: 4, Kind: semtok.KindComment, Modifiers: base},
		{Line: 1, StartChar: 0, Length: 2, Kind: semtok.KindComment, Modifiers: base},
		{Line: 1, StartChar: 10, Length: 2, Kind: semtok.KindComment, Modifiers: base},
		{Line: 2, StartChar: 0, Length: 4, Kind: semtok.KindComment, Modifiers: base},
	}, toks)

	_, err = basetok.Tokenize(context.Background(), virt, sp, &blockGrammar{lines: 2})
	require.Error(t, err, "a short result is rejected")
}
