package directive

import (
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gitlab.com/tozd/go/errors"
)

const PlaintextID = "plaintext"

type Source string

const (
	SourceDirective Source = "directive"
	SourceOverride  Source = "override"
	SourceFallback  Source = "fallback"
)

type Detection struct {
	LanguageID string `json:"languageId"`
	Source     Source `json:"source"`
}

// Override maps documents whose path matches a doublestar glob to a base language.
type Override struct {
	Pattern  string `yaml:"pattern" hcl:"pattern,label"`
	Language string `yaml:"language" hcl:"language"`
}

func (o Override) Validate() error {
	if o.Language == "" {
		return errors.Errorf("override %q: language is required", o.Pattern)
	}
	if !doublestar.ValidatePattern(o.Pattern) {
		return errors.Errorf("override %q: invalid glob pattern", o.Pattern)
	}
	return nil
}

// Matches reports whether path, or its base name when the pattern has no
// slash, matches the override.
func (o Override) Matches(path string) bool {
	path = filepath.ToSlash(path)
	for _, candidate := range []string{path, strings.TrimPrefix(path, "/")} {
		if ok, _ := doublestar.Match(o.Pattern, candidate); ok {
			return true
		}
	}
	if !strings.Contains(o.Pattern, "/") {
		ok, _ := doublestar.Match(o.Pattern, filepath.Base(path))
		return ok
	}
	return false
}

type Options struct {
	Enabled   bool
	Overrides []Override
}

func DefaultOptions() Options {
	return Options{Enabled: true}
}

// Detect resolves the base language of text alone.
func Detect(text string, opts Options) Detection {
	return DetectPath("", text, opts)
}

// DetectPath resolves the base language of a document. A directive wins over
// path overrides; with detection disabled every document is plaintext.
func DetectPath(path, text string, opts Options) Detection {
	if !opts.Enabled {
		return Detection{LanguageID: PlaintextID, Source: SourceFallback}
	}

	if d := FromText(text); d != nil && d.Base != "" {
		return Detection{LanguageID: d.Base, Source: SourceDirective}
	}

	if path != "" {
		for _, o := range opts.Overrides {
			if o.Matches(path) {
				return Detection{LanguageID: o.Language, Source: SourceOverride}
			}
		}
	}

	return Detection{LanguageID: PlaintextID, Source: SourceFallback}
}
