// Package diff prints readable differences between token streams and other
// values in test failures.
package diff

import (
	"strings"
	"testing"

	"github.com/k0kubun/pp/v3"
	"github.com/kylelemons/godebug/diff"
)

func printer() *pp.PrettyPrinter {
	p := pp.New()
	p.SetExportedOnly(true)
	p.SetColoringEnabled(false)
	return p
}

// Values returns an empty string when want and got print the same, otherwise
// the line diff to turn got into want.
func Values[T any](want T, got T) string {
	p := printer()
	d := diff.Diff(p.Sprint(got), p.Sprint(want))
	if d == "" {
		return ""
	}

	var b strings.Builder
	b.WriteString("\n\nto convert ACTUAL into EXPECTED:\n\n")
	b.WriteString("add:    (+)\n")
	b.WriteString("remove: (-)\n\n")
	b.WriteString(d)
	return b.String()
}

// Lines diffs two multi-line strings, such as rendered token tables.
func Lines(want, got string) string {
	return diff.Diff(got, want)
}

// Require fails t when want and got differ.
func Require[T any](t testing.TB, want T, got T) {
	t.Helper()
	if d := Values(want, got); d != "" {
		t.Fatalf("unexpected difference:%s", d)
	}
}
