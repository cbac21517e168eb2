// Package directive finds the base language a hybrid template declares for itself.
//
// A file opts in with a comment action on its first line, or on its second
// line when the first is a shebang:
//
//	{{/* meta: base=html */}}
//	{{- /* meta: base=yaml; dialect=helm */ -}}
//
// Only the base key is interpreted. Other keys are kept in Extra.
package directive

import (
	"regexp"
	"strings"
)

var (
	directiveRegex = regexp.MustCompile(`^\s*\{\{-?\s*/\*\s*meta:\s*(.*?)\s*\*/\s*-?\}\}\s*$`)
	separatorRegex = regexp.MustCompile(`[;,\s]+`)
	newlineRegex   = regexp.MustCompile(`\r?\n`)
)

type MetaDirective struct {
	// Base is empty when the directive names no base language.
	Base  string
	Extra map[string]string
}

// Parse returns nil when line is not a directive. A directive without a base
// key is still a directive.
func Parse(line string) *MetaDirective {
	match := directiveRegex.FindStringSubmatch(line)
	if match == nil {
		return nil
	}

	d := &MetaDirective{}
	for _, field := range separatorRegex.Split(match[1], -1) {
		if field == "" {
			continue
		}
		key, value, _ := strings.Cut(field, "=")
		key, value = strings.TrimSpace(key), strings.TrimSpace(value)
		if value == "" {
			continue
		}
		if key == "base" {
			d.Base = value
			continue
		}
		if d.Extra == nil {
			d.Extra = make(map[string]string)
		}
		d.Extra[key] = value
	}

	return d
}

// CandidateLine returns the only line a directive may live on.
func CandidateLine(text string) string {
	lines := newlineRegex.Split(text, 3)
	if strings.HasPrefix(lines[0], "#!") {
		if len(lines) > 1 {
			return lines[1]
		}
		return ""
	}
	return lines[0]
}

// FromText parses the directive of a whole document.
func FromText(text string) *MetaDirective {
	return Parse(CandidateLine(text))
}
