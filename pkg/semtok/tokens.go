package semtok

import (
	"fmt"
)

// ParsedToken is a token produced by the template lexer. Offset is the absolute
// byte offset of the first byte, kept so tokens can be filtered against spans.
type ParsedToken struct {
	Line      int
	Column    int
	Length    int
	Offset    int
	Kind      Kind
	Modifiers []Modifier
}

func (t ParsedToken) String() string {
	return fmt.Sprintf("%s@%d:%d+%d", t.Kind, t.Line, t.Column, t.Length)
}

// BaseToken is a token produced by the base-language tokenizer. It never spans a line.
type BaseToken struct {
	Line      int
	StartChar int
	Length    int
	Kind      Kind
	Modifiers []Modifier
}

func (t BaseToken) String() string {
	return fmt.Sprintf("%s@%d:%d+%d", t.Kind, t.Line, t.StartChar, t.Length)
}

// Token is a merged token with its legend indices resolved.
type Token struct {
	Line      uint32
	Column    uint32
	Length    uint32
	Type      uint32
	Modifiers uint32
}

// SemanticTokens is the wire result: five integers per token.
type SemanticTokens struct {
	Data []uint32 `json:"data"`
}

func (s *SemanticTokens) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Data) / 5
}
