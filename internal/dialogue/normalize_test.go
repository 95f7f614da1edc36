package dialogue

import (
	"errors"
	"testing"
)

func TestNormalizeStructured(t *testing.T) {
	d := &Dialogue{Items: []Item{{Speaker: Host, Text: "hello"}}}
	got, err := Normalize(StructuredResult{Dialogue: d}, Short)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if got != d {
		t.Error("structured result was not returned as is")
	}

	if _, err := Normalize(StructuredResult{}, Short); !errors.Is(err, ErrEmptyDialogue) {
		t.Errorf("nil structured dialogue error = %v", err)
	}
}

func TestNormalizeJSONText(t *testing.T) {
	text := "<think>plan first</think>\n```json\n" +
		`{"scratchpad":"x","name_of_guest":"Li","dialogue":[{"speaker":"Host (Jane)","text":"Hi"},{"speaker":"Guest","text":"Hey"}]}` +
		"\n```"
	d, err := Normalize(TextResult{Text: text}, Medium)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if d.NameOfGuest != "Li" || len(d.Items) != 2 {
		t.Fatalf("got %+v", d)
	}
	if d.Items[1].Speaker != Guest {
		t.Errorf("speaker = %q, want Guest", d.Items[1].Speaker)
	}
}

func TestNormalizeRepairsJSON(t *testing.T) {
	// trailing comma and unquoted key
	text := `{"scratchpad":"x",name_of_guest:"Li","dialogue":[{"speaker":"Host (Jane)","text":"Hi"},{"speaker":"Guest","text":"Hey"},]}`
	d, err := Normalize(TextResult{Text: text}, Short)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if len(d.Items) != 2 || d.Items[0].Text != "Hi" {
		t.Errorf("got %+v", d.Items)
	}
}

func TestNormalizeCoercesSpeakers(t *testing.T) {
	text := `{"scratchpad":"","name_of_guest":"","dialogue":[{"speaker":"Jane","text":"Hi"},{"speaker":"Guest2","text":"Hey"},{"speaker":"Bob","text":"Yo"}]}`
	d, err := Normalize(TextResult{Text: text}, Long)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	want := []Speaker{Host, Guest2, Guest}
	for i, sp := range want {
		if d.Items[i].Speaker != sp {
			t.Errorf("item %d speaker = %q, want %q", i, d.Items[i].Speaker, sp)
		}
	}
	if d.NameOfGuest != DefaultGuestName {
		t.Errorf("guest name = %q, want default", d.NameOfGuest)
	}
}

func TestNormalizeScriptEnvelope(t *testing.T) {
	text := `{"script": "主持人：大家好\n张三：你好\n欢迎收听"}`
	d, err := Normalize(TextResult{Text: text}, Medium)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	want := []Item{
		{Speaker: Host, Text: "大家好"},
		{Speaker: Guest, Text: "你好"},
		{Speaker: Host, Text: "欢迎收听"},
	}
	if len(d.Items) != len(want) {
		t.Fatalf("got %d items, want %d", len(d.Items), len(want))
	}
	for i := range want {
		if d.Items[i] != want[i] {
			t.Errorf("item %d = %+v, want %+v", i, d.Items[i], want[i])
		}
	}
	if d.Scratchpad != DefaultScratchpad || d.NameOfGuest != DefaultGuestName {
		t.Errorf("defaults not applied: %q %q", d.Scratchpad, d.NameOfGuest)
	}
}

func TestNormalizePlainLines(t *testing.T) {
	text := "Host: Welcome to the show.\n\nDr. Smith: Glad to be here: really.\n"
	d, err := Normalize(TextResult{Text: text}, Short)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if len(d.Items) != 2 {
		t.Fatalf("got %d items", len(d.Items))
	}
	if d.Items[1].Speaker != Guest || d.Items[1].Text != "Glad to be here: really." {
		t.Errorf("item 1 = %+v", d.Items[1])
	}
}

func TestNormalizeEmpty(t *testing.T) {
	for _, text := range []string{"", "   \n\n", "<think>only thoughts</think>"} {
		if _, err := Normalize(TextResult{Text: text}, Short); !errors.Is(err, ErrNoContent) {
			t.Errorf("Normalize(%q) error = %v, want ErrNoContent", text, err)
		}
	}
}
