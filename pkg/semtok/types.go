package semtok

// Kind is a token classification. Its string value is the name the client sees in the legend.
type Kind string

// template-origin kinds
const (
	KindBegin         Kind = "begin"
	KindEnd           Kind = "end"
	KindComment       Kind = "comment"
	KindRawString     Kind = "rawString"
	KindString        Kind = "string"
	KindVariable      Kind = "variable"
	KindAssignment    Kind = "assignment"
	KindPipe          Kind = "pipe"
	KindProperty      Kind = "property"
	KindControl       Kind = "control"
	KindBuiltin       Kind = "builtin"
	KindStringEscape  Kind = "stringEscape"
	KindUnknownEscape Kind = "unknownEscape"
	KindPlaceholder   Kind = "placeholder"
	KindNumber        Kind = "number"
)

// base-origin kinds not already shared with the template set
const (
	KindTag         Kind = "tag"
	KindAttribute   Kind = "attribute"
	KindClass       Kind = "class"
	KindNamespace   Kind = "namespace"
	KindFunction    Kind = "function"
	KindOperator    Kind = "operator"
	KindKeyword     Kind = "keyword"
	KindPunctuation Kind = "punctuation"
	KindText        Kind = "text"
)

// Modifier tags a token with the stream it came from.
type Modifier string

const (
	ModifierTemplate Modifier = "template"
	ModifierBase     Modifier = "base"
)

// TemplateKinds lists the kinds the template lexer can emit, in legend order.
func TemplateKinds() []Kind {
	return []Kind{
		KindBegin,
		KindEnd,
		KindComment,
		KindRawString,
		KindString,
		KindVariable,
		KindAssignment,
		KindPipe,
		KindProperty,
		KindControl,
		KindBuiltin,
		KindStringEscape,
		KindUnknownEscape,
		KindPlaceholder,
		KindNumber,
	}
}

// BaseKinds lists the kinds the base tokenizer can emit.
func BaseKinds() []Kind {
	return []Kind{
		KindTag,
		KindAttribute,
		KindClass,
		KindNamespace,
		KindFunction,
		KindOperator,
		KindKeyword,
		KindPunctuation,
		KindString,
		KindComment,
		KindNumber,
		KindVariable,
		KindProperty,
		KindText,
	}
}

func Modifiers() []Modifier {
	return []Modifier{ModifierTemplate, ModifierBase}
}
