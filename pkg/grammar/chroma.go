package grammar

import (
	"strings"

	"github.com/alecthomas/chroma/v2"
	"gitlab.com/tozd/go/errors"
)

// lineState is the state chroma lexers hand back. Chroma cannot resume a
// lexer mid stack, so only the line counter moves forward. TokenizeDocument is
// how multi-line constructs keep their classification.
type lineState struct {
	line int
}

func (s lineState) Depth() int {
	return 0
}

type chromaGrammar struct {
	lexer chroma.Lexer
	scope string
}

// NewChromaGrammar adapts a chroma lexer to Grammar. Token types are translated
// to TextMate style scopes below scope.
func NewChromaGrammar(lexer chroma.Lexer, scope string) Grammar {
	return &chromaGrammar{lexer: chroma.Coalesce(lexer), scope: scope}
}

func (g *chromaGrammar) ScopeName() string {
	return g.scope
}

func (g *chromaGrammar) TokenizeLine(line string, prev StateStack) (*LineResult, error) {
	it, err := g.lexer.Tokenise(&chroma.TokeniseOptions{State: "root", EnsureLF: true}, line)
	if err != nil {
		return nil, errors.Errorf("tokenising line: %w", err)
	}

	next := lineState{}
	if p, ok := prev.(lineState); ok {
		next.line = p.line + 1
	}

	res := &LineResult{State: next}
	offset := 0
	for _, tok := range it.Tokens() {
		start := offset
		offset += len(tok.Value)
		if start >= len(line) {
			// the newline chroma appended
			break
		}
		end := min(offset, len(line))
		if end <= start {
			continue
		}
		res.Tokens = append(res.Tokens, RawToken{
			Start:  start,
			End:    end,
			Scopes: ScopesForTokenType(tok.Type, g.scope),
		})
	}

	return res, nil
}

// TokenizeDocument lexes text in one pass and cuts the tokens at line breaks,
// so comments and strings that span lines are classified as such on every line.
func (g *chromaGrammar) TokenizeDocument(text string) ([]*LineResult, error) {
	// chroma folds "\r\n" into "\n", a blank keeps the offsets aligned
	it, err := g.lexer.Tokenise(&chroma.TokeniseOptions{State: "root"}, strings.ReplaceAll(text, "\r", " "))
	if err != nil {
		return nil, errors.Errorf("tokenising document: %w", err)
	}

	lines := strings.Split(text, "\n")
	out := make([]*LineResult, len(lines))
	for i := range out {
		out[i] = &LineResult{State: lineState{line: i}}
	}

	line, lineStart, offset := 0, 0, 0
	for _, tok := range it.Tokens() {
		start := offset
		offset += len(tok.Value)
		for start < offset && line < len(lines) {
			lineEnd := lineStart + len(lines[line])
			if start >= lineEnd {
				// the newline itself belongs to no line
				start = max(start, lineEnd+1)
				line++
				lineStart = lineEnd + 1
				continue
			}
			end := min(offset, lineEnd)
			out[line].Tokens = append(out[line].Tokens, RawToken{
				Start:  start - lineStart,
				End:    end - lineStart,
				Scopes: ScopesForTokenType(tok.Type, g.scope),
			})
			start = end
		}
	}

	return out, nil
}

// ScopesForTokenType names a chroma token type the way a TextMate grammar
// would, innermost first, ending with root.
func ScopesForTokenType(tt chroma.TokenType, root string) []string {
	return append(strings.Fields(chromaScope(tt)), root)
}

// chromaScope returns space separated scopes, innermost first.
func chromaScope(tt chroma.TokenType) string {
	switch tt {
	case chroma.NameTag:
		return "entity.name.tag"
	case chroma.NameAttribute:
		return "entity.other.attribute-name"
	case chroma.NameClass, chroma.NameException:
		return "entity.name.type.class"
	case chroma.NameNamespace:
		return "entity.name.namespace"
	case chroma.NameFunction, chroma.NameFunctionMagic:
		return "entity.name.function"
	case chroma.NameDecorator:
		return "entity.name.function.decorator"
	case chroma.NameBuiltin, chroma.NameBuiltinPseudo:
		return "support.function"
	case chroma.NameProperty:
		return "support.type.property-name"
	case chroma.NameConstant, chroma.KeywordConstant:
		return "constant.language"
	case chroma.NameVariable, chroma.NameVariableAnonymous, chroma.NameVariableClass,
		chroma.NameVariableGlobal, chroma.NameVariableInstance, chroma.NameVariableMagic:
		return "variable.other"
	case chroma.NameEntity:
		return "constant.character.entity"
	case chroma.NameKeyword:
		return "keyword.other"
	case chroma.NameOperator, chroma.OperatorWord:
		return "keyword.operator.word"
	case chroma.KeywordType:
		return "storage.type"
	case chroma.KeywordDeclaration, chroma.KeywordReserved:
		return "storage.modifier"
	case chroma.KeywordNamespace, chroma.KeywordPseudo:
		return "keyword.other"
	case chroma.LiteralStringEscape:
		return "constant.character.escape string.quoted"
	case chroma.LiteralStringInterpol:
		return "string.interpolated"
	case chroma.LiteralStringOther, chroma.LiteralStringSymbol:
		return "string.unquoted"
	case chroma.CommentMultiline:
		return "comment.block"
	case chroma.CommentPreproc, chroma.CommentPreprocFile:
		return "keyword.other.preprocessor"
	}

	switch {
	case tt.InSubCategory(chroma.LiteralString):
		return "string.quoted"
	case tt.InSubCategory(chroma.LiteralNumber):
		return "constant.numeric"
	case tt.InCategory(chroma.Keyword):
		return "keyword.control"
	case tt.InCategory(chroma.Operator):
		return "keyword.operator"
	case tt.InCategory(chroma.Punctuation):
		return "punctuation.definition"
	case tt.InCategory(chroma.Comment):
		return "comment.line"
	}

	return ""
}
