package spans_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/gotmpls-hybrid/pkg/spans"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []spans.Span
	}{
		{
			name:     "empty input",
			input:    "",
			expected: nil,
		},
		{
			name:     "no template",
			input:    "<div>hello</div>",
			expected: nil,
		},
		{
			name:  "single action",
			input: "<p>{{ .Name }}</p>",
			expected: []spans.Span{
				{Start: 3, End: 14, Content: "{{ .Name }}"},
			},
		},
		{
			name:  "trim markers",
			input: "a {{- .X -}} b",
			expected: []spans.Span{
				{Start: 2, End: 12, Content: "{{- .X -}}"},
			},
		},
		{
			name:  "adjacent spans abut",
			input: "{{ .A }}{{ .B }}",
			expected: []spans.Span{
				{Start: 0, End: 8, Content: "{{ .A }}"},
				{Start: 8, End: 16, Content: "{{ .B }}"},
			},
		},
		{
			name:  "multi line span",
			input: "x{{ if\n .Y }}z",
			expected: []spans.Span{
				{Start: 1, End: 13, Content: "{{ if\n .Y }}"},
			},
		},
		{
			name:  "non greedy stops at first close inside a string",
			input: `{{ "a}}b" }}`,
			expected: []spans.Span{
				{Start: 0, End: 7, Content: `{{ "a}}`},
			},
		},
		{
			name:     "unterminated action is not a span",
			input:    "{{ .Open",
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := spans.Extract(tt.input)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestVirtualBuffer(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "no spans returns input",
			input:    "<div></div>\n",
			expected: "<div></div>\n",
		},
		{
			name:     "single span blanked",
			input:    "<p>{{ .Name }}</p>",
			expected: "<p>           </p>",
		},
		{
			name:     "newline inside span becomes a space",
			input:    "a{{ if\n.X }}b\nc",
			expected: "a           b\nc",
		},
		{
			name:     "crlf outside spans preserved",
			input:    "{{ .A }}\r\n<b>",
			expected: "        \r\n<b>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sp := spans.Extract(tt.input)
			got := spans.VirtualBuffer(tt.input, sp)
			assert.Equal(t, tt.expected, got)
			require.NoError(t, spans.ValidateParity(tt.input, got, sp))
		})
	}
}

func TestVirtualBufferProperties(t *testing.T) {
	inputs := []string{
		"",
		"plain",
		"{{}}",
		"{{-}}",
		"<ul>\n{{ range .Items }}\n  <li>{{ . }}</li>\n{{ end }}\n</ul>\n",
		"{{/* meta: base=html */}}\n<div>{{ printf \"%s}}\" .X }}</div>",
		"{{ .A }}{{ .B }}{{ .C }}",
		strings.Repeat("x{{ 1 }}\n", 50),
	}

	for _, input := range inputs {
		sp := spans.Extract(input)
		for i := 1; i < len(sp); i++ {
			assert.LessOrEqual(t, sp[i-1].End, sp[i].Start, "spans overlap in %q", input)
			assert.Less(t, sp[i-1].Start, sp[i].Start, "spans unsorted in %q", input)
		}
		for _, s := range sp {
			assert.Greater(t, s.End, s.Start)
		}

		virt := spans.VirtualBuffer(input, sp)
		assert.Len(t, virt, len(input))
		assert.NoError(t, spans.ValidateParity(input, virt, sp))

		// extraction is pure, so building the buffer does not change the spans
		assert.Equal(t, sp, spans.Extract(input))
	}
}

func TestValidateParityFailures(t *testing.T) {
	text := "a{{ .X }}b"
	sp := spans.Extract(text)

	require.Error(t, spans.ValidateParity(text, "short", sp))
	require.Error(t, spans.ValidateParity(text, "a{{ .X }}b", sp), "span bytes must be blanked")
	require.Error(t, spans.ValidateParity(text, "z        b", sp), "bytes outside spans must be copied")
}

func TestAt(t *testing.T) {
	text := "ab{{ .X }}cd{{ .Y }}"
	sp := spans.Extract(text)
	require.Len(t, sp, 2)

	s, ok := spans.At(sp, 2)
	require.True(t, ok)
	assert.Equal(t, 2, s.Start)

	_, ok = spans.At(sp, 10)
	assert.False(t, ok, "end is exclusive")

	s, ok = spans.At(sp, 19)
	require.True(t, ok)
	assert.Equal(t, 12, s.Start)

	assert.False(t, spans.Contains(sp, 0))
	assert.True(t, spans.Contains(sp, 5))
	assert.False(t, spans.Contains(nil, 5))
}
