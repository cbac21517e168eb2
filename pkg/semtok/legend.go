package semtok

// Legend is the ordered list of token type and modifier names. A token's type
// index and modifier bits on the wire are positions in these lists.
type Legend struct {
	TokenTypes     []string `json:"tokenTypes"`
	TokenModifiers []string `json:"tokenModifiers"`

	types map[Kind]uint32
	mods  map[Modifier]uint32
}

// NewLegend builds a legend from kind groups in order, skipping duplicates.
func NewLegend(mods []Modifier, groups ...[]Kind) *Legend {
	l := &Legend{
		TokenTypes:     []string{},
		TokenModifiers: []string{},
		types:          map[Kind]uint32{},
		mods:           map[Modifier]uint32{},
	}

	for _, group := range groups {
		for _, k := range group {
			if _, ok := l.types[k]; ok {
				continue
			}
			l.types[k] = uint32(len(l.TokenTypes))
			l.TokenTypes = append(l.TokenTypes, string(k))
		}
	}

	for _, m := range mods {
		if _, ok := l.mods[m]; ok {
			continue
		}
		l.mods[m] = 1 << uint32(len(l.TokenModifiers))
		l.TokenModifiers = append(l.TokenModifiers, string(m))
	}

	return l
}

// DefaultLegend is the legend shared by the template lexer and the base tokenizer.
// It is derived from the two kind sets, so every call returns the same ordering.
func DefaultLegend() *Legend {
	return NewLegend(Modifiers(), TemplateKinds(), BaseKinds())
}

func (l *Legend) TypeIndex(k Kind) (uint32, bool) {
	idx, ok := l.types[k]
	return idx, ok
}

func (l *Legend) Kind(idx uint32) (Kind, bool) {
	if int(idx) >= len(l.TokenTypes) {
		return "", false
	}
	return Kind(l.TokenTypes[idx]), true
}

// ModifierBits folds mods into a bit set. Unknown modifiers are ignored.
func (l *Legend) ModifierBits(mods ...Modifier) uint32 {
	var bits uint32
	for _, m := range mods {
		bits |= l.mods[m]
	}
	return bits
}

// ModifierNames expands a bit set back into modifier names.
func (l *Legend) ModifierNames(bits uint32) []Modifier {
	var out []Modifier
	for i, name := range l.TokenModifiers {
		if bits&(1<<uint32(i)) != 0 {
			out = append(out, Modifier(name))
		}
	}
	return out
}
