// Package spans locates the {{ ... }} regions of a hybrid document and builds the
// blanked "virtual buffer" the base-language grammar scans instead of the original text.
package spans

import (
	"regexp"
	"sort"
	"strings"

	"gitlab.com/tozd/go/errors"
)

// spanRegex matches from an opening delimiter to the first closing one. The
// optional trim markers are swallowed by the lazy body, so "{{-" and "-}}" are
// part of the match without needing their own alternatives.
var spanRegex = regexp.MustCompile(`(?s)\{\{.*?\}\}`)

// Span is one template region. End is exclusive and Content includes the delimiters.
type Span struct {
	Start   int
	End     int
	Content string
}

func (s Span) Len() int {
	return s.End - s.Start
}

// Contains reports whether offset lies inside the span.
func (s Span) Contains(offset int) bool {
	return offset >= s.Start && offset < s.End
}

// Extract returns every non-overlapping template span of text in ascending
// order. Matching is non-greedy, so a span ends at the first "}}" even when
// that closing brace pair sits inside a quoted string.
func Extract(text string) []Span {
	locs := spanRegex.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return nil
	}

	out := make([]Span, 0, len(locs))
	for _, loc := range locs {
		out = append(out, Span{Start: loc[0], End: loc[1], Content: text[loc[0]:loc[1]]})
	}
	return out
}

// VirtualBuffer returns text with every byte inside a span replaced by a space.
// Line breaks outside spans survive untouched and the result always has the
// same length as text. With no spans the input is returned as is.
func VirtualBuffer(text string, spans []Span) string {
	if len(spans) == 0 {
		return text
	}

	var b strings.Builder
	b.Grow(len(text))

	last := 0
	for _, s := range spans {
		if s.Start < last || s.End > len(text) {
			continue
		}
		b.WriteString(text[last:s.Start])
		b.WriteString(strings.Repeat(" ", s.Len()))
		last = s.End
	}
	b.WriteString(text[last:])

	return b.String()
}

// At returns the span containing offset using a binary search over the sorted spans.
func At(spans []Span, offset int) (Span, bool) {
	i := sort.Search(len(spans), func(i int) bool { return spans[i].End > offset })
	if i < len(spans) && spans[i].Contains(offset) {
		return spans[i], true
	}
	return Span{}, false
}

func Contains(spans []Span, offset int) bool {
	_, ok := At(spans, offset)
	return ok
}

// ValidateParity checks that virt is a faithful virtual buffer of text: same
// length, blanks inside every span and identical bytes everywhere else.
func ValidateParity(text, virt string, spans []Span) error {
	if len(text) != len(virt) {
		return errors.Errorf("virtual buffer length %d does not match text length %d", len(virt), len(text))
	}

	next := 0
	for i := 0; i < len(text); i++ {
		for next < len(spans) && spans[next].End <= i {
			next++
		}
		inside := next < len(spans) && spans[next].Contains(i)
		switch {
		case inside && virt[i] != ' ':
			return errors.Errorf("offset %d is inside span [%d,%d) but is %q, not a space", i, spans[next].Start, spans[next].End, virt[i])
		case !inside && virt[i] != text[i]:
			return errors.Errorf("offset %d is outside every span but changed from %q to %q", i, text[i], virt[i])
		}
	}

	return nil
}
