// Package grammar is the base-language grammar capability: an engine that
// tokenizes one line at a time, carrying its own opaque state between lines.
package grammar

// StateStack is the state an engine hands back after a line and expects with the next one.
type StateStack interface {
	// Depth is the number of open rules, zero at the top level.
	Depth() int
}

// RawToken is one engine token. Start and End are byte offsets within the line,
// Scopes is ordered innermost first.
type RawToken struct {
	Start  int
	End    int
	Scopes []string
}

type LineResult struct {
	Tokens []RawToken
	State  StateStack
}

// Grammar tokenizes single lines. prev is nil for the first line of a document.
type Grammar interface {
	ScopeName() string
	TokenizeLine(line string, prev StateStack) (*LineResult, error)
}

// DocumentGrammar is a Grammar whose engine cannot resume from a saved state
// but can lex a whole buffer in one pass. TokenizeDocument returns one result
// per "\n" separated line of text, with token offsets relative to that line.
type DocumentGrammar interface {
	Grammar
	TokenizeDocument(text string) ([]*LineResult, error)
}
