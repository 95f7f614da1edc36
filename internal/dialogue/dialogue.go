// Package dialogue defines the podcast script: the ordered, speaker
// attributed utterances an LLM produces and every later stage consumes.
package dialogue

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Speaker is one of the fixed roles an utterance can be attributed to. The
// values are what the model is asked to emit.
type Speaker string

const (
	Host   Speaker = "Host (Jane)"
	Guest  Speaker = "Guest"
	Guest2 Speaker = "Guest 2"
	Guest3 Speaker = "Guest 3"
	Guest4 Speaker = "Guest 4"
)

// AllSpeakers lists every role in tag order.
var AllSpeakers = []Speaker{Host, Guest, Guest2, Guest3, Guest4}

// Item is one utterance.
type Item struct {
	Speaker Speaker `json:"speaker" jsonschema:"who is speaking"`
	Text    string  `json:"text" jsonschema:"what the speaker says, one or more sentences"`
}

// Dialogue is a complete script. Items are in speaking order.
type Dialogue struct {
	Scratchpad  string `json:"scratchpad" jsonschema:"free-form planning notes, never read aloud"`
	NameOfGuest string `json:"name_of_guest" jsonschema:"display name of the main guest"`
	Items       []Item `json:"dialogue"`
}

// Shape selects the dialogue variant: how long it is and which roles appear.
type Shape string

const (
	Short  Shape = "short"
	Medium Shape = "medium"
	Long   Shape = "long"
)

// ParseShape accepts the canonical names plus the original UI labels. An
// empty string selects Medium.
func ParseShape(s string) (Shape, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "short", "短", "短 (1-2分钟)":
		return Short, nil
	case "", "medium", "中", "中 (3-5分钟)":
		return Medium, nil
	case "long", "长", "长 (15-20分钟)":
		return Long, nil
	default:
		return "", fmt.Errorf("invalid length %q: must be short, medium, or long", s)
	}
}

// Speakers returns the roles allowed in this shape.
func (s Shape) Speakers() []Speaker {
	if s == Long {
		return AllSpeakers
	}
	return []Speaker{Host, Guest}
}

// ItemRange is the cardinality guidance given to the model. It is never
// enforced.
func (s Shape) ItemRange() (min, max int) {
	switch s {
	case Short:
		return 11, 17
	case Long:
		return 40, 60
	default:
		return 19, 29
	}
}

// Allows reports whether sp may appear in this shape.
func (s Shape) Allows(sp Speaker) bool {
	for _, allowed := range s.Speakers() {
		if allowed == sp {
			return true
		}
	}
	return false
}

// ErrEmptyDialogue is returned when a script has no utterances.
var ErrEmptyDialogue = errors.New("dialogue has no items")

// Validate checks d against shape: at least one item, every text
// non-empty, every speaker allowed.
func (d *Dialogue) Validate(shape Shape) error {
	if d == nil || len(d.Items) == 0 {
		return ErrEmptyDialogue
	}
	for i, it := range d.Items {
		if !shape.Allows(it.Speaker) {
			return fmt.Errorf("item %d has invalid speaker %q for %s dialogue", i, it.Speaker, shape)
		}
		if strings.TrimSpace(it.Text) == "" {
			return fmt.Errorf("item %d has empty text", i)
		}
	}
	return nil
}

// Canonical is the JSON form fed back to the model in the refine pass.
func (d *Dialogue) Canonical() (string, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return "", fmt.Errorf("marshal dialogue: %w", err)
	}
	return string(data), nil
}

// CharCount is the number of characters that will be spoken.
func (d *Dialogue) CharCount() int {
	n := 0
	for _, it := range d.Items {
		n += len([]rune(it.Text))
	}
	return n
}
