// Package segment splits long TTS input into line-aligned chunks and carries
// a line of context across chunk boundaries so voices stay consistent.
package segment

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	// Threshold is the length at or below which text is synthesized in one call.
	Threshold = 1500
	// MaxLen bounds a segment built from whole lines. A single longer line
	// still becomes its own segment.
	MaxLen = 1000
	// ContextMinLen is the length a previous line must exceed to be carried
	// into the next segment.
	ContextMinLen = 10
)

var speakerTag = regexp.MustCompile(`\[S[1-5]\]`)

// Split breaks text into segments. Lengths are counted in runes. Text at or
// under Threshold comes back unchanged as the only segment. When text
// carries [Sn] speaker tags, a segment only ever starts on a tagged line;
// untagged continuation lines stay with the line they continue even if
// that pushes the segment past MaxLen.
func Split(text string) []string {
	if utf8.RuneCountInString(text) <= Threshold {
		return []string{text}
	}
	tagged := speakerTag.MatchString(text)

	var (
		segments []string
		current  string
	)
	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		switch {
		case current == "":
			current = line
		case (!tagged || speakerTag.MatchString(line)) &&
			utf8.RuneCountInString(current)+utf8.RuneCountInString(line) > MaxLen:
			segments = append(segments, current)
			current = line
		default:
			current += "\n" + line
		}
	}
	if current != "" {
		segments = append(segments, current)
	}
	return segments
}

// WithContext returns a copy of segments where every segment after the first
// is prefixed with the last line of the segment before it. The prefix is
// taken from the original segments, never from an already prefixed one.
// An untagged context line gets the last speaker tag of its segment so the
// carried text keeps its voice.
func WithContext(segments []string) []string {
	out := make([]string, len(segments))
	for i, seg := range segments {
		out[i] = seg
		if i == 0 {
			continue
		}
		last := lastLine(segments[i-1])
		if utf8.RuneCountInString(last) <= ContextMinLen {
			continue
		}
		if !speakerTag.MatchString(last) {
			if tags := speakerTag.FindAllString(segments[i-1], -1); len(tags) > 0 {
				last = tags[len(tags)-1] + last
			}
		}
		if strings.HasPrefix(strings.TrimSpace(seg), last) {
			continue
		}
		out[i] = last + "\n" + seg
	}
	return out
}

func lastLine(seg string) string {
	lines := strings.Split(strings.TrimSpace(seg), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if l := strings.TrimSpace(lines[i]); l != "" {
			return l
		}
	}
	return ""
}
