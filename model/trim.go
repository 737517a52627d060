package model

import (
	"strings"
	"unicode"
)

// whitespaceTrimmer trims a fragmented text stream as if it were one string.
// Leading whitespace is removed from the first non-empty fragment. Trailing
// whitespace of every fragment is held back and prepended to the next one,
// so it only disappears if the stream ends first.
type whitespaceTrimmer struct {
	isFirstFragment           bool
	pendingTrailingWhitespace string
}

func newWhitespaceTrimmer() *whitespaceTrimmer {
	return &whitespaceTrimmer{isFirstFragment: true}
}

// Next returns the trimmed fragment to emit, or false when nothing should be
// emitted yet.
func (t *whitespaceTrimmer) Next(fragment string) (string, bool) {
	if t.isFirstFragment {
		fragment = strings.TrimLeftFunc(fragment, unicode.IsSpace)
		if fragment == "" {
			return "", false
		}
		t.isFirstFragment = false
	}

	text := t.pendingTrailingWhitespace + fragment
	trimmed := strings.TrimRightFunc(text, unicode.IsSpace)
	t.pendingTrailingWhitespace = text[len(trimmed):]

	return trimmed, trimmed != ""
}
