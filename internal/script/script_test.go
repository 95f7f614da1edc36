package script

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/apresai/podcraft/internal/dialogue"
)

type call struct {
	system, user string
	shape        dialogue.Shape
}

type fakeClient struct {
	calls   []call
	results []*dialogue.Dialogue
	errs    []error
}

func (f *fakeClient) Name() string { return "fake" }

func (f *fakeClient) Generate(_ context.Context, system, user string, shape dialogue.Shape) (*dialogue.Dialogue, error) {
	i := len(f.calls)
	f.calls = append(f.calls, call{system, user, shape})
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	return f.results[i], nil
}

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func draftDialogue() *dialogue.Dialogue {
	return &dialogue.Dialogue{
		Scratchpad:  "plan",
		NameOfGuest: "Li",
		Items:       []dialogue.Item{{Speaker: dialogue.Host, Text: "Hi"}, {Speaker: dialogue.Guest, Text: "Hello"}},
	}
}

func TestGenerateTwoPasses(t *testing.T) {
	refined := &dialogue.Dialogue{NameOfGuest: "Li", Items: []dialogue.Item{{Speaker: dialogue.Host, Text: "Welcome!"}}}
	fake := &fakeClient{results: []*dialogue.Dialogue{draftDialogue(), refined}}

	got, err := NewGenerator(fake, discard).Generate(context.Background(), "SYS", "source text", dialogue.Short)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got != refined {
		t.Error("did not return the refined dialogue")
	}
	if len(fake.calls) != 2 {
		t.Fatalf("calls = %d, want 2", len(fake.calls))
	}
	if c := fake.calls[0]; c.system != "SYS" || c.user != "source text" || c.shape != dialogue.Short {
		t.Errorf("draft call = %+v", c)
	}

	js, _ := draftDialogue().Canonical()
	wantSystem := "SYS\n\nHere is the first draft of the dialogue you provided:\n\n" + js +
		"\n\nImprove the dialogue: make it more natural and engaging."
	c := fake.calls[1]
	if c.system != wantSystem {
		t.Errorf("refine system prompt =\n%s\nwant\n%s", c.system, wantSystem)
	}
	if c.user != "Please improve the dialogue: make it more natural and engaging." || c.shape != dialogue.Short {
		t.Errorf("refine call = %+v", c)
	}
}

func TestGenerateDraftFailure(t *testing.T) {
	fake := &fakeClient{errs: []error{errors.New("timeout")}}
	_, err := NewGenerator(fake, discard).Generate(context.Background(), "SYS", "src", dialogue.Medium)

	var ge *GenerationError
	if !errors.As(err, &ge) || ge.Pass != "draft" || ge.Provider != "fake" {
		t.Fatalf("err = %v, want draft GenerationError", err)
	}
	if len(fake.calls) != 1 {
		t.Errorf("calls = %d, want 1", len(fake.calls))
	}
}

func TestGenerateRefineFailureIsTerminal(t *testing.T) {
	fake := &fakeClient{
		results: []*dialogue.Dialogue{draftDialogue(), nil},
		errs:    []error{nil, errors.New("rate limited")},
	}
	got, err := NewGenerator(fake, discard).Generate(context.Background(), "SYS", "src", dialogue.Medium)

	var ge *GenerationError
	if !errors.As(err, &ge) || ge.Pass != "refine" {
		t.Fatalf("err = %v, want refine GenerationError", err)
	}
	if got != nil {
		t.Error("draft returned after refine failure")
	}
}

func TestSystemPrompt(t *testing.T) {
	p := SystemPrompt(Options{
		Question: "Why does it matter?",
		Tone:     Formal,
		Shape:    dialogue.Long,
		Language: Language{Name: "English", Code: "en"},
	})
	for _, want := range []string{
		systemPrompt,
		"\n\nPLEASE ANSWER THE FOLLOWING QUESTION: Why does it matter?",
		"\n\nTONE: The tone of the podcast should be formal.",
		"15-20 minutes",
		"\n\nOUTPUT LANGUAGE <IMPORTANT>: The podcast should be English.",
	} {
		if !strings.Contains(p, want) {
			t.Errorf("prompt missing %q", want)
		}
	}

	if got := SystemPrompt(Options{}); got != systemPrompt {
		t.Errorf("empty options changed the prompt:\n%s", got)
	}
}

func TestParseLanguage(t *testing.T) {
	tests := []struct {
		in       string
		wantCode string
	}{
		{"", "zh"},
		{"中文", "zh"},
		{"english", "en"},
		{"Japanese", "ja"},
		{"tr", "tr"},
		{"PT", "pt"},
	}
	for _, tt := range tests {
		got, err := ParseLanguage(tt.in)
		if err != nil {
			t.Errorf("ParseLanguage(%q): %v", tt.in, err)
			continue
		}
		if got.Code != tt.wantCode {
			t.Errorf("ParseLanguage(%q) = %s, want %s", tt.in, got.Code, tt.wantCode)
		}
	}
	if _, err := ParseLanguage("Klingon"); err == nil {
		t.Error("expected error for unsupported language")
	}
	if n := len(LanguageNames()); n != 13 {
		t.Errorf("languages = %d, want 13", n)
	}
}

func TestParseTone(t *testing.T) {
	tests := map[string]Tone{"": Fun, "有趣": Fun, "Formal": Formal, "正式": Formal}
	for in, want := range tests {
		got, err := ParseTone(in)
		if err != nil || got != want {
			t.Errorf("ParseTone(%q) = %s, %v", in, got, err)
		}
	}
	if _, err := ParseTone("angry"); err == nil {
		t.Error("expected error")
	}
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "script.json")
	d := draftDialogue()
	d.NameOfGuest = ""
	if err := Save(d, path); err != nil {
		t.Fatal(err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Items) != 2 || got.Items[1].Text != "Hello" {
		t.Errorf("loaded = %+v", got)
	}
	if got.NameOfGuest != dialogue.DefaultGuestName {
		t.Errorf("guest name = %q", got.NameOfGuest)
	}
}
