package dialogue

import (
	"fmt"
	"strings"
)

// CombinedSpeaker is the speaker name used when a whole tagged script is
// synthesized in one request.
const CombinedSpeaker = "Combined"

// Tag returns the inline speaker marker batch TTS engines use to keep each
// voice stable across a script. Unknown speakers fall back to the guest tag.
func Tag(sp Speaker) string {
	switch sp {
	case Host:
		return "[S1]"
	case Guest2:
		return "[S3]"
	case Guest3:
		return "[S4]"
	case Guest4:
		return "[S5]"
	default:
		return "[S2]"
	}
}

// HasTags reports whether text already carries speaker markers.
func HasTags(text string) bool {
	for i := 1; i <= 5; i++ {
		if strings.Contains(text, fmt.Sprintf("[S%d]", i)) {
			return true
		}
	}
	return false
}

// Combine renders the dialogue as one tagged line per item, in order.
func (d *Dialogue) Combine() string {
	lines := make([]string, 0, len(d.Items))
	for _, it := range d.Items {
		lines = append(lines, Tag(it.Speaker)+it.Text)
	}
	return strings.Join(lines, "\n")
}

// Label is the display name of a speaker in the transcript.
func (d *Dialogue) Label(sp Speaker) string {
	guest := d.NameOfGuest
	if guest == "" {
		guest = DefaultGuestName
	}
	switch sp {
	case Host:
		return "Host"
	case Guest:
		return guest
	case Guest2:
		return guest + " 2"
	case Guest3:
		return guest + " 3"
	case Guest4:
		return guest + " 4"
	default:
		return string(sp)
	}
}

// Transcript renders the markdown transcript: one "**Label**: text" entry
// per item, each followed by a blank line.
func (d *Dialogue) Transcript() string {
	var b strings.Builder
	for _, it := range d.Items {
		fmt.Fprintf(&b, "**%s**: %s\n\n", d.Label(it.Speaker), it.Text)
	}
	return b.String()
}
