// Package dictation relays recognized speech into a text buffer, replacing
// the pending hypothesis fragment in place as recognition refines it.
package dictation

import "strings"

// Buffer holds confirmed dictation text plus at most one pending hypothesis.
// The visible text always equals confirmed text followed by the pending
// hypothesis, if any.
type Buffer struct {
	text       string
	hypothesis string
}

// Partial replaces the pending hypothesis with a refined one. The last
// occurrence of the previous hypothesis is cut from the buffer and the new
// text written in its place; with no pending hypothesis the text is simply
// appended. The new text becomes the pending hypothesis.
func (b *Buffer) Partial(text string) {
	b.replaceHypothesis(text)
	b.hypothesis = text
}

// Final commits a recognized utterance: the pending hypothesis is replaced
// by the final text plus a trailing line break, and the hypothesis is
// cleared. The effective cursor moves to the end of the buffer.
func (b *Buffer) Final(text string) {
	b.replaceHypothesis(text + "\n")
	b.hypothesis = ""
}

// replaceHypothesis cuts the buffer at the last occurrence of the pending
// hypothesis and appends text there. When the hypothesis is no longer found
// verbatim — the user edited the buffer between events — this degrades to
// appending at the end. That best-effort fallback is intentional.
func (b *Buffer) replaceHypothesis(text string) {
	if b.hypothesis == "" {
		b.text += text
		return
	}
	idx := strings.LastIndex(b.text, b.hypothesis)
	if idx < 0 {
		b.text += text
		return
	}
	b.text = b.text[:idx] + text
}

// String returns the buffer contents including any pending hypothesis.
func (b *Buffer) String() string {
	return b.text
}

// Hypothesis returns the pending hypothesis, or "" when none is pending.
func (b *Buffer) Hypothesis() string {
	return b.hypothesis
}

// SetText overwrites the buffer contents, as a manual edit would. The
// pending hypothesis is kept; if the edit removed it, the next event falls
// back to appending.
func (b *Buffer) SetText(text string) {
	b.text = text
}

// Reset clears both the buffer and the pending hypothesis.
func (b *Buffer) Reset() {
	b.text = ""
	b.hypothesis = ""
}
