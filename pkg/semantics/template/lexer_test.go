package template

import (
	"testing"

	"github.com/alecthomas/participle/v2/lexer"
	"github.com/stretchr/testify/require"
)

// Helper function to compare tokens ignoring positions
func compareTokens(t *testing.T, expected, actual []lexer.Token) {
	t.Helper()
	require.Equal(t, len(expected), len(actual), "number of tokens should match")
	for i := range expected {
		require.Equal(t, expected[i].Type, actual[i].Type, "token types should match at position %d (%q)", i, actual[i].Value)
		require.Equal(t, expected[i].Value, actual[i].Value, "token values should match at position %d", i)
	}
}

func TestLexerRules(t *testing.T) {
	lx := MustNewLexer()
	sym := lx.Symbols()

	tests := []struct {
		name     string
		input    string
		expected []lexer.Token
	}{
		{
			name:  "simple_text",
			input: "hello world",
			expected: []lexer.Token{
				{Type: sym["Text"], Value: "hello world"},
			},
		},
		{
			name:  "lone_brace",
			input: "a{b",
			expected: []lexer.Token{
				{Type: sym["Text"], Value: "a"},
				{Type: sym["Brace"], Value: "{"},
				{Type: sym["Text"], Value: "b"},
			},
		},
		{
			name:  "simple_action",
			input: "{{.Field}}",
			expected: []lexer.Token{
				{Type: sym["OpenDelim"], Value: "{{"},
				{Type: sym["Field"], Value: ".Field"},
				{Type: sym["CloseDelim"], Value: "}}"},
			},
		},
		{
			name:  "pipeline",
			input: "{{.Field | upper}}",
			expected: []lexer.Token{
				{Type: sym["OpenDelim"], Value: "{{"},
				{Type: sym["Field"], Value: ".Field"},
				{Type: sym["Whitespace"], Value: " "},
				{Type: sym["Pipe"], Value: "|"},
				{Type: sym["Whitespace"], Value: " "},
				{Type: sym["Ident"], Value: "upper"},
				{Type: sym["CloseDelim"], Value: "}}"},
			},
		},
		{
			name:  "trim_markers_and_negative_number",
			input: "{{- -5 -}}",
			expected: []lexer.Token{
				{Type: sym["OpenDelim"], Value: "{{- "},
				{Type: sym["Number"], Value: "-5"},
				{Type: sym["CloseDelim"], Value: " -}}"},
			},
		},
		{
			name:  "minus_without_space_is_a_number",
			input: "{{-3}}",
			expected: []lexer.Token{
				{Type: sym["OpenDelim"], Value: "{{"},
				{Type: sym["Number"], Value: "-3"},
				{Type: sym["CloseDelim"], Value: "}}"},
			},
		},
		{
			name:  "trim_marker_after_several_spaces",
			input: "{{.X  -}}",
			expected: []lexer.Token{
				{Type: sym["OpenDelim"], Value: "{{"},
				{Type: sym["Field"], Value: ".X"},
				{Type: sym["CloseDelim"], Value: "  -}}"},
			},
		},
		{
			name:  "keyword_needs_word_boundary",
			input: "{{iffy endless if}}",
			expected: []lexer.Token{
				{Type: sym["OpenDelim"], Value: "{{"},
				{Type: sym["Ident"], Value: "iffy"},
				{Type: sym["Whitespace"], Value: " "},
				{Type: sym["Ident"], Value: "endless"},
				{Type: sym["Whitespace"], Value: " "},
				{Type: sym["Keyword"], Value: "if"},
				{Type: sym["CloseDelim"], Value: "}}"},
			},
		},
		{
			name:  "printf_is_not_cut_to_print",
			input: "{{printf}}",
			expected: []lexer.Token{
				{Type: sym["OpenDelim"], Value: "{{"},
				{Type: sym["Builtin"], Value: "printf"},
				{Type: sym["CloseDelim"], Value: "}}"},
			},
		},
		{
			name:  "string_state",
			input: `{{"a\n%5.2f\z"}}`,
			expected: []lexer.Token{
				{Type: sym["OpenDelim"], Value: "{{"},
				{Type: sym["StringOpen"], Value: `"`},
				{Type: sym["StringText"], Value: "a"},
				{Type: sym["StringEscape"], Value: `\n`},
				{Type: sym["StringPlaceholder"], Value: "%5.2f"},
				{Type: sym["UnknownEscape"], Value: `\z`},
				{Type: sym["StringClose"], Value: `"`},
				{Type: sym["CloseDelim"], Value: "}}"},
			},
		},
		{
			name:  "comment",
			input: "{{/* a } */}}",
			expected: []lexer.Token{
				{Type: sym["Comment"], Value: "{{/* a } */"},
				{Type: sym["CloseDelim"], Value: "}}"},
			},
		},
		{
			name:  "trimmed_comment",
			input: "{{- /* a */ -}}",
			expected: []lexer.Token{
				{Type: sym["Comment"], Value: "{{- /* a */"},
				{Type: sym["CloseDelim"], Value: " -}}"},
			},
		},
		{
			name:  "comment_must_follow_the_delimiter",
			input: "{{ /* */}}",
			expected: []lexer.Token{
				{Type: sym["OpenDelim"], Value: "{{"},
				{Type: sym["Whitespace"], Value: " "},
				{Type: sym["Other"], Value: "/"},
				{Type: sym["Other"], Value: "*"},
				{Type: sym["Whitespace"], Value: " "},
				{Type: sym["Other"], Value: "*"},
				{Type: sym["Other"], Value: "/"},
				{Type: sym["CloseDelim"], Value: "}}"},
			},
		},
		{
			name:  "variables",
			input: "{{$x = $}}",
			expected: []lexer.Token{
				{Type: sym["OpenDelim"], Value: "{{"},
				{Type: sym["Variable"], Value: "$x"},
				{Type: sym["Whitespace"], Value: " "},
				{Type: sym["Assign"], Value: "="},
				{Type: sym["Whitespace"], Value: " "},
				{Type: sym["Variable"], Value: "$"},
				{Type: sym["CloseDelim"], Value: "}}"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := lx.Lex(tt.input)
			require.NoError(t, err, "lexing should succeed")
			compareTokens(t, tt.expected, got)
		})
	}
}

func TestWithBuiltins(t *testing.T) {
	lx := MustNewLexer(WithBuiltins("add", "upper"))
	sym := lx.Symbols()

	got, err := lx.Lex("{{add upper}}")
	require.NoError(t, err)
	compareTokens(t, []lexer.Token{
		{Type: sym["OpenDelim"], Value: "{{"},
		{Type: sym["Builtin"], Value: "add"},
		{Type: sym["Whitespace"], Value: " "},
		{Type: sym["Builtin"], Value: "upper"},
		{Type: sym["CloseDelim"], Value: "}}"},
	}, got)
}

func TestWordsPattern(t *testing.T) {
	require.Equal(t, `(?:printf|print|len)\b`, wordsPattern([]string{"print", "len", "printf"}))
	require.Equal(t, `[^\s\S]`, wordsPattern(nil))
}
