package script

import (
	"fmt"
	"sort"
	"strings"

	"github.com/apresai/podcraft/internal/dialogue"
)

const systemPrompt = `You are a world-class podcast producer. Your task is to turn the provided input text into an engaging, informative podcast script.

The input may be unstructured or messy, sourced from PDFs, Word documents or web pages. Ignore formatting noise and irrelevant details such as page numbers, footnotes, navigation menus and boilerplate.

STEPS:
1. Read the input carefully and identify its key topics, points and interesting facts.
2. Use the scratchpad to brainstorm creative ways to present them: analogies, examples, questions a curious listener would ask. Plan the arc from introduction to conclusion. The scratchpad is never read aloud.
3. Write the dialogue between the host, Jane, and the guest. The host drives the conversation and keeps it moving; the guest is an expert on the topic.

RULES:
- Stay faithful to the source material. Do not invent facts.
- Use natural conversational language: short sentences, brief reactions, the occasional tangent.
- Introduce the topic at the start and end with a natural summary of the key insights.
- Give the guest a fitting name in name_of_guest. Never use placeholder names.
- Each line of dialogue is one or a few sentences, not a paragraph.`

const (
	questionModifier = "PLEASE ANSWER THE FOLLOWING QUESTION:"
	toneModifier     = "TONE: The tone of the podcast should be"
	languageModifier = "OUTPUT LANGUAGE <IMPORTANT>: The podcast should be"
)

var lengthModifiers = map[dialogue.Shape]string{
	dialogue.Short:  "Keep the podcast short, around 1-2 minutes long.",
	dialogue.Medium: "Aim for a moderate length, about 3-5 minutes.",
	dialogue.Long:   "Aim for a long podcast, about 15-20 minutes. Bring in additional guests (Guest 2 to Guest 4) where it helps the discussion.",
}

// Tone is the register of the conversation.
type Tone string

const (
	Fun    Tone = "fun"
	Formal Tone = "formal"
)

// ParseTone accepts the canonical names and the original labels. An empty
// string selects Fun.
func ParseTone(s string) (Tone, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "fun", "有趣":
		return Fun, nil
	case "formal", "正式":
		return Formal, nil
	default:
		return "", fmt.Errorf("invalid tone %q: must be fun or formal", s)
	}
}

// languages maps display names to the codes TTS providers use.
var languages = map[string]string{
	"中文":         "zh",
	"English":    "en",
	"French":     "fr",
	"German":     "de",
	"Hindi":      "hi",
	"Italian":    "it",
	"Japanese":   "ja",
	"Korean":     "ko",
	"Polish":     "pl",
	"Portuguese": "pt",
	"Russian":    "ru",
	"Spanish":    "es",
	"Turkish":    "tr",
}

// Language is an output language: the display name put in the prompt and
// the code handed to TTS.
type Language struct {
	Name string
	Code string
}

// DefaultLanguage is used when a request names none.
var DefaultLanguage = Language{Name: "中文", Code: "zh"}

// ParseLanguage accepts a display name (case-insensitive for Latin names)
// or a language code.
func ParseLanguage(s string) (Language, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return DefaultLanguage, nil
	}
	for name, code := range languages {
		if strings.EqualFold(s, name) || strings.EqualFold(s, code) {
			return Language{Name: name, Code: code}, nil
		}
	}
	return Language{}, fmt.Errorf("unsupported language %q: choose one of %s", s, strings.Join(LanguageNames(), ", "))
}

// LanguageNames returns the supported display names, sorted.
func LanguageNames() []string {
	names := make([]string, 0, len(languages))
	for name := range languages {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Options are the listener's choices that shape the prompt.
type Options struct {
	Question string
	Tone     Tone
	Shape    dialogue.Shape
	Language Language
}

// SystemPrompt builds the system prompt: the base instructions followed by
// one paragraph per choice that was made.
func SystemPrompt(opts Options) string {
	var b strings.Builder
	b.WriteString(systemPrompt)
	if q := strings.TrimSpace(opts.Question); q != "" {
		fmt.Fprintf(&b, "\n\n%s %s", questionModifier, q)
	}
	if opts.Tone != "" {
		fmt.Fprintf(&b, "\n\n%s %s.", toneModifier, opts.Tone)
	}
	if m, ok := lengthModifiers[opts.Shape]; ok {
		b.WriteString("\n\n" + m)
	}
	if opts.Language.Name != "" {
		fmt.Fprintf(&b, "\n\n%s %s.", languageModifier, opts.Language.Name)
	}
	return b.String()
}
