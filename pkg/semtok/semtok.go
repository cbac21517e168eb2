package semtok

import (
	"sort"
)

// Merge combines the sorted template and base streams into one stream ordered
// by (line, column). When both start at the same position the template token
// goes first. Tokens whose kind is missing from the legend are dropped.
func Merge(legend *Legend, tmpl []ParsedToken, base []BaseToken) []Token {
	out := make([]Token, 0, len(tmpl)+len(base))
	templateBit := legend.ModifierBits(ModifierTemplate)
	baseBit := legend.ModifierBits(ModifierBase)

	i, j := 0, 0
	for i < len(tmpl) || j < len(base) {
		if j >= len(base) || (i < len(tmpl) && !startsAfter(tmpl[i], base[j])) {
			t := tmpl[i]
			i++
			typ, ok := legend.TypeIndex(t.Kind)
			if !ok || t.Length <= 0 {
				continue
			}
			out = append(out, Token{
				Line:      uint32(t.Line),
				Column:    uint32(t.Column),
				Length:    uint32(t.Length),
				Type:      typ,
				Modifiers: legend.ModifierBits(t.Modifiers...) | templateBit,
			})
			continue
		}

		b := base[j]
		j++
		typ, ok := legend.TypeIndex(b.Kind)
		if !ok || b.Length <= 0 {
			continue
		}
		out = append(out, Token{
			Line:      uint32(b.Line),
			Column:    uint32(b.StartChar),
			Length:    uint32(b.Length),
			Type:      typ,
			Modifiers: legend.ModifierBits(b.Modifiers...) | baseBit,
		})
	}

	return out
}

// TemplateOnly resolves template tokens without any base stream.
func TemplateOnly(legend *Legend, tmpl []ParsedToken) []Token {
	return Merge(legend, tmpl, nil)
}

// startsAfter reports whether the template token begins strictly after the base token.
func startsAfter(t ParsedToken, b BaseToken) bool {
	if t.Line != b.Line {
		return t.Line > b.Line
	}
	return t.Column > b.StartChar
}

// Encode converts tokens to the relative five integer form:
// [deltaLine, deltaChar, length, tokenType, tokenModifiers].
// deltaChar is relative to the previous token only when both share a line.
// The caller's slice is left in its original order.
func Encode(in []Token) *SemanticTokens {
	tokens := make([]Token, len(in))
	copy(tokens, in)
	sort.SliceStable(tokens, func(i, j int) bool {
		if tokens[i].Line != tokens[j].Line {
			return tokens[i].Line < tokens[j].Line
		}
		return tokens[i].Column < tokens[j].Column
	})

	data := make([]uint32, 0, len(tokens)*5)
	var prevLine, prevChar uint32

	for _, tok := range tokens {
		deltaLine := tok.Line - prevLine
		deltaChar := tok.Column
		if deltaLine == 0 {
			deltaChar = tok.Column - prevChar
		}

		data = append(data, deltaLine, deltaChar, tok.Length, tok.Type, tok.Modifiers)

		prevLine = tok.Line
		prevChar = tok.Column
	}

	return &SemanticTokens{Data: data}
}

// Decode expands an encoded stream back to absolute positions.
func Decode(st *SemanticTokens) []Token {
	if st == nil {
		return nil
	}

	out := make([]Token, 0, len(st.Data)/5)
	var line, char uint32
	for i := 0; i+4 < len(st.Data); i += 5 {
		if st.Data[i] > 0 {
			line += st.Data[i]
			char = st.Data[i+1]
		} else {
			char += st.Data[i+1]
		}
		out = append(out, Token{
			Line:      line,
			Column:    char,
			Length:    st.Data[i+2],
			Type:      st.Data[i+3],
			Modifiers: st.Data[i+4],
		})
	}
	return out
}
