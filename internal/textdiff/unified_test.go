package textdiff

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnifiedEqualStringsYieldsEmptyDiff(t *testing.T) {
	out, err := Unified("same\ntext\n", "same\ntext\n", 3)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestUnifiedReportsChangedLine(t *testing.T) {
	a := "one\ntwo\nthree\n"
	b := "one\nTWO\nthree\n"
	out, err := Unified(a, b, 1)
	require.NoError(t, err)
	assert.Contains(t, out, "@@")
	assert.Contains(t, out, "-two")
	assert.Contains(t, out, "+TWO")
}

func TestUnifiedDetectsLikelyBinaryContent(t *testing.T) {
	a := "one\x00two\n"
	b := "one\x00three\n"
	out, err := Unified(a, b, 3)
	require.NoError(t, err)
	assert.Contains(t, out, "Binary content differs")
}

func TestUnifiedContextWindow(t *testing.T) {
	lines := make([]string, 0, 20)
	for i := 0; i < 10; i++ {
		lines = append(lines, "line")
	}
	a := strings.Join(lines, "\n") + "\n"
	changed := append([]string(nil), lines...)
	changed[5] = "CHANGED"
	b := strings.Join(changed, "\n") + "\n"

	out, err := Unified(a, b, 2)
	require.NoError(t, err)
	assert.Contains(t, out, "-line")
	assert.Contains(t, out, "+CHANGED")
	// Only a handful of context lines around the change should appear, not
	// all ten.
	assert.True(t, strings.Count(out, "line") < 10)
}
