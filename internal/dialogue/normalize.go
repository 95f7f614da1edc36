package dialogue

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// Defaults used when a dialogue is rebuilt from free text.
const (
	DefaultScratchpad = "draft"
	DefaultGuestName  = "嘉宾"
)

// Response is what a language model returned: either a value that already
// has the dialogue structure, or text of unknown shape.
type Response interface {
	isResponse()
}

// StructuredResult carries a dialogue decoded by the provider itself.
type StructuredResult struct {
	Dialogue *Dialogue
}

// TextResult carries raw completion text.
type TextResult struct {
	Text string
}

func (StructuredResult) isResponse() {}
func (TextResult) isResponse()       {}

// ErrNoContent is returned when a response holds nothing usable.
var ErrNoContent = errors.New("response has no dialogue content")

// Normalize turns a provider response into a dialogue for shape. The first
// strategy that succeeds wins:
//
//  1. a structured result that validates;
//  2. text holding a dialogue JSON object (malformed JSON is repaired);
//  3. text holding a {"script": "..."} envelope, parsed line by line;
//  4. the raw text, parsed line by line.
//
// The line parser guesses Host versus Guest from the speaker label. That
// guess only knows a few host names and is the weakest step here.
func Normalize(resp Response, shape Shape) (*Dialogue, error) {
	switch r := resp.(type) {
	case StructuredResult:
		if err := r.Dialogue.Validate(shape); err != nil {
			return nil, fmt.Errorf("structured response: %w", err)
		}
		return r.Dialogue, nil
	case TextResult:
		return normalizeText(r.Text, shape)
	default:
		return nil, fmt.Errorf("unexpected response type %T", resp)
	}
}

func normalizeText(raw string, shape Shape) (*Dialogue, error) {
	text := strings.TrimSpace(stripThinking(raw))
	if text == "" {
		return nil, ErrNoContent
	}

	body := extractJSON(stripMarkdownFences(text))
	var envelope map[string]json.RawMessage
	if err := unmarshalJSON([]byte(body), &envelope); err == nil {
		if _, ok := envelope["dialogue"]; ok {
			if d, err := decodeDialogue(body, shape); err == nil {
				return d, nil
			}
		}
		if rawScript, ok := envelope["script"]; ok {
			var script string
			if err := json.Unmarshal(rawScript, &script); err == nil {
				if d, err := fromLines(script, shape); err == nil {
					return d, nil
				}
			}
		}
	}

	return fromLines(text, shape)
}

func decodeDialogue(body string, shape Shape) (*Dialogue, error) {
	var d Dialogue
	if err := unmarshalJSON([]byte(body), &d); err != nil {
		return nil, err
	}
	for i := range d.Items {
		d.Items[i].Speaker = coerceSpeaker(string(d.Items[i].Speaker), shape)
	}
	if err := d.Validate(shape); err != nil {
		return nil, err
	}
	if d.NameOfGuest == "" {
		d.NameOfGuest = DefaultGuestName
	}
	return &d, nil
}

// coerceSpeaker keeps exact role names and maps anything else through the
// host heuristic.
func coerceSpeaker(label string, shape Shape) Speaker {
	label = strings.TrimSpace(label)
	for _, sp := range shape.Speakers() {
		if string(sp) == label {
			return sp
		}
	}
	if shape.Allows(Speaker(strings.Replace(label, "Guest", "Guest ", 1))) {
		return Speaker(strings.Replace(label, "Guest", "Guest ", 1))
	}
	return GuessSpeaker(label)
}

// GuessSpeaker maps a free-form speaker label to a role: labels naming the
// host map to Host, everything else to Guest. The match is a fixed,
// case-sensitive substring list; hosts with other names come back as Guest.
func GuessSpeaker(label string) Speaker {
	if strings.Contains(label, "Jane") || strings.Contains(label, "Host") || strings.Contains(label, "主持人") {
		return Host
	}
	return Guest
}

// ParseLines applies the line heuristic to free text: one utterance per
// non-empty line, "speaker: text" when the line has a colon, Host otherwise.
func ParseLines(text string) []Item {
	var items []Item
	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		label, body, ok := cutSpeaker(line)
		if !ok {
			items = append(items, Item{Speaker: Host, Text: line})
			continue
		}
		items = append(items, Item{Speaker: GuessSpeaker(label), Text: body})
	}
	return items
}

func fromLines(text string, shape Shape) (*Dialogue, error) {
	d := &Dialogue{
		Scratchpad:  DefaultScratchpad,
		NameOfGuest: DefaultGuestName,
		Items:       ParseLines(text),
	}
	if err := d.Validate(shape); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoContent, err)
	}
	return d, nil
}

// cutSpeaker splits at the first ASCII or full-width colon.
func cutSpeaker(line string) (label, body string, ok bool) {
	idx, width := -1, 0
	if i := strings.Index(line, ":"); i >= 0 {
		idx, width = i, 1
	}
	if i := strings.Index(line, "："); i >= 0 && (idx < 0 || i < idx) {
		idx, width = i, len("：")
	}
	if idx < 0 {
		return "", "", false
	}
	return strings.TrimSpace(line[:idx]), strings.TrimSpace(line[idx+width:]), true
}

// unmarshalJSON retries through jsonrepair when the input is not valid JSON.
func unmarshalJSON(data []byte, v any) error {
	err := json.Unmarshal(data, v)
	if err == nil {
		return nil
	}
	var syntaxErr *json.SyntaxError
	if !errors.As(err, &syntaxErr) {
		return err
	}
	fixed, rerr := jsonrepair.JSONRepair(string(data))
	if rerr != nil {
		return err
	}
	return json.Unmarshal([]byte(fixed), v)
}

var (
	thinkRe      = regexp.MustCompile(`(?s)<think>.*?</think>`)
	scratchpadRe = regexp.MustCompile(`(?s)<scratchpad>.*?</scratchpad>`)
	fenceRe      = regexp.MustCompile("(?s)```(?:json)?\\s*\n?(.*?)\n?```")
)

func stripThinking(text string) string {
	text = thinkRe.ReplaceAllString(text, "")
	return scratchpadRe.ReplaceAllString(text, "")
}

func stripMarkdownFences(text string) string {
	if m := fenceRe.FindStringSubmatch(text); len(m) > 1 {
		return m[1]
	}
	return text
}

func extractJSON(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		return text[start : end+1]
	}
	return text
}
