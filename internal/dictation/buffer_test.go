package dictation

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPartialGrowsInPlace(t *testing.T) {
	t.Parallel()

	var b Buffer
	b.Partial("ab")
	require.Equal(t, "ab", b.String())

	b.Partial("abc")
	require.Equal(t, "abc", b.String())
	require.Equal(t, "abc", b.Hypothesis())
}

func TestFinalReplacesHypothesisAndAppendsNewline(t *testing.T) {
	t.Parallel()

	var b Buffer
	b.Partial("ab")
	b.Final("abcd")

	require.Equal(t, "abcd\n", b.String())
	require.Empty(t, b.Hypothesis())
}

func TestPartialAfterFinalStartsFresh(t *testing.T) {
	t.Parallel()

	var b Buffer
	b.Partial("hello")
	b.Final("hello world")
	b.Partial("next")

	require.Equal(t, "hello world\nnext", b.String())
	require.Equal(t, "next", b.Hypothesis())
}

func TestFinalWithoutPartial(t *testing.T) {
	t.Parallel()

	var b Buffer
	b.Final("direct")
	require.Equal(t, "direct\n", b.String())
}

func TestReplacementTargetsLastOccurrence(t *testing.T) {
	t.Parallel()

	var b Buffer
	b.SetText("go go ")
	b.Partial("go")
	require.Equal(t, "go go go", b.String())

	b.Partial("golang")
	require.Equal(t, "go go golang", b.String())
}

func TestHypothesisMissingFromTextDegradesToAppend(t *testing.T) {
	t.Parallel()

	var b Buffer
	b.Partial("draft")
	// External edit removed the hypothesis text entirely.
	b.SetText("rewritten")

	b.Partial("draft two")
	require.Equal(t, "rewrittendraft two", b.String())
}

func TestSetTextKeepsHypothesis(t *testing.T) {
	t.Parallel()

	var b Buffer
	b.Partial("abc")
	b.SetText("prefix abc")
	b.Partial("abcd")

	require.Equal(t, "prefix abcd", b.String())
}

func TestReset(t *testing.T) {
	t.Parallel()

	var b Buffer
	b.Partial("abc")
	b.Final("abcd")
	b.Reset()

	require.Empty(t, b.String())
	require.Empty(t, b.Hypothesis())
}
