package diff_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/walteh/gotmpls-hybrid/pkg/diff"
)

type pair struct {
	Name  string
	Count int
	note  string
}

func TestValues(t *testing.T) {
	assert.Empty(t, diff.Values(pair{Name: "a", Count: 1}, pair{Name: "a", Count: 1}))
	assert.Empty(t, diff.Values(pair{Name: "a", note: "x"}, pair{Name: "a", note: "y"}), "unexported fields are ignored")

	d := diff.Values(pair{Name: "a", Count: 1}, pair{Name: "a", Count: 2})
	assert.Contains(t, d, "ACTUAL into EXPECTED")
	assert.Contains(t, d, "-")
	assert.Contains(t, d, "+")
}

func TestLines(t *testing.T) {
	assert.Empty(t, diff.Lines("a\nb", "a\nb"))
	d := diff.Lines("a\nb", "a\nc")
	assert.Contains(t, d, "-c")
	assert.Contains(t, d, "+b")
}
