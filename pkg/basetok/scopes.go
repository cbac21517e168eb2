package basetok

import (
	"strings"

	"github.com/walteh/gotmpls-hybrid/pkg/semtok"
)

type scopeRule struct {
	kind    semtok.Kind
	needles []string
}

// scopeRules are checked in order, first match wins.
var scopeRules = []scopeRule{
	{semtok.KindNamespace, []string{"entity.name.namespace"}},
	{semtok.KindTag, []string{"entity.name.tag"}},
	{semtok.KindClass, []string{"entity.name.type.class", "entity.other.attribute-name.class"}},
	{semtok.KindAttribute, []string{"entity.other.attribute-name"}},
	{semtok.KindString, []string{"string.quoted", "string.unquoted", "string.interpolated"}},
	{semtok.KindComment, []string{"comment"}},
	{semtok.KindKeyword, []string{"keyword.control", "keyword.other", "storage.type", "storage.modifier"}},
	{semtok.KindOperator, []string{"keyword.operator", "punctuation.separator"}},
	{semtok.KindNumber, []string{"constant.numeric"}},
	{semtok.KindFunction, []string{"entity.name.function", "support.function"}},
	{semtok.KindProperty, []string{"support.type.property-name", "variable.other.property"}},
	{semtok.KindVariable, []string{"variable"}},
	{semtok.KindPunctuation, []string{"punctuation.definition", "punctuation.terminator", "punctuation.section", "meta.tag"}},
	{semtok.KindVariable, []string{"constant.language"}},
}

// KindForScopes resolves a scope stack, innermost first, to a base kind.
// Anything unrecognised is text.
func KindForScopes(scopes []string) semtok.Kind {
	joined := strings.Join(scopes, " ")
	for _, rule := range scopeRules {
		for _, needle := range rule.needles {
			if strings.Contains(joined, needle) {
				return rule.kind
			}
		}
	}
	return semtok.KindText
}
