package documentai

import (
	"strings"
	"unicode/utf8"
)

// Resolve concatenates the text covered by every segment of anchor, in order,
// and trims the result. Offsets count characters, not bytes. Any malformed or
// out-of-range segment makes the whole anchor resolve to "".
func Resolve(anchor *TextAnchor, text string) string {
	if anchor == nil || len(anchor.TextSegments) == 0 {
		return ""
	}

	var runes []rune
	n := len(text)
	ascii := utf8.RuneCountInString(text) == len(text)
	if !ascii {
		runes = []rune(text)
		n = len(runes)
	}

	var b strings.Builder
	for _, seg := range anchor.TextSegments {
		start, end, ok := seg.bounds(n)
		if !ok {
			return ""
		}
		if ascii {
			b.WriteString(text[start:end])
		} else {
			b.WriteString(string(runes[start:end]))
		}
	}
	return strings.TrimSpace(b.String())
}

func (s TextSegment) bounds(n int) (int, int, bool) {
	start, end := 0, n
	if s.StartIndex != nil {
		v, err := s.StartIndex.Int()
		if err != nil {
			return 0, 0, false
		}
		start = v
	}
	if s.EndIndex != nil {
		v, err := s.EndIndex.Int()
		if err != nil {
			return 0, 0, false
		}
		end = v
	}
	if start > end || end > n {
		return 0, 0, false
	}
	return start, end, true
}
