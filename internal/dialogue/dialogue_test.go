package dialogue

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestParseShape(t *testing.T) {
	tests := []struct {
		in   string
		want Shape
	}{
		{"", Medium},
		{"short", Short},
		{"LONG", Long},
		{"中 (3-5分钟)", Medium},
		{"长 (15-20分钟)", Long},
		{"短", Short},
	}
	for _, tt := range tests {
		got, err := ParseShape(tt.in)
		if err != nil {
			t.Fatalf("ParseShape(%q): %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseShape(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
	if _, err := ParseShape("epic"); err == nil {
		t.Error("expected error for unknown length")
	}
}

func TestValidate(t *testing.T) {
	d := &Dialogue{Items: []Item{{Speaker: Host, Text: "hi"}, {Speaker: Guest3, Text: "hello"}}}
	if err := d.Validate(Long); err != nil {
		t.Fatalf("long dialogue: %v", err)
	}
	if err := d.Validate(Medium); err == nil {
		t.Error("Guest 3 accepted in a medium dialogue")
	}
	if err := (&Dialogue{}).Validate(Short); !errors.Is(err, ErrEmptyDialogue) {
		t.Errorf("empty dialogue error = %v, want ErrEmptyDialogue", err)
	}
	blank := &Dialogue{Items: []Item{{Speaker: Host, Text: "  "}}}
	if err := blank.Validate(Short); err == nil {
		t.Error("blank text accepted")
	}
}

func TestSchemaSpeakerEnum(t *testing.T) {
	for _, tt := range []struct {
		shape Shape
		want  int
	}{{Short, 2}, {Medium, 2}, {Long, 5}} {
		s, err := SchemaFor(tt.shape)
		if err != nil {
			t.Fatalf("SchemaFor(%s): %v", tt.shape, err)
		}
		enum := s.Properties["dialogue"].Items.Properties["speaker"].Enum
		if len(enum) != tt.want {
			t.Errorf("%s speaker enum = %v, want %d values", tt.shape, enum, tt.want)
		}
	}

	raw, err := SchemaJSON(Short)
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		t.Fatalf("schema is not JSON: %v", err)
	}
	if !strings.Contains(raw, "between 11 and 17 items") {
		t.Errorf("short schema lacks item guidance: %s", raw)
	}
}

func TestTranscript(t *testing.T) {
	d := &Dialogue{
		NameOfGuest: "Ada",
		Items: []Item{
			{Speaker: Host, Text: "Welcome."},
			{Speaker: Guest, Text: "Thanks."},
			{Speaker: Guest2, Text: "Hi all."},
			{Speaker: Host, Text: "Bye."},
		},
	}
	want := "**Host**: Welcome.\n\n**Ada**: Thanks.\n\n**Ada 2**: Hi all.\n\n**Host**: Bye.\n\n"
	if got := d.Transcript(); got != want {
		t.Errorf("Transcript() =\n%q\nwant\n%q", got, want)
	}
}

func TestCombine(t *testing.T) {
	d := &Dialogue{Items: []Item{
		{Speaker: Host, Text: "a"},
		{Speaker: Guest, Text: "b"},
		{Speaker: Guest4, Text: "c"},
		{Speaker: "narrator", Text: "d"},
	}}
	want := "[S1]a\n[S2]b\n[S5]c\n[S2]d"
	if got := d.Combine(); got != want {
		t.Errorf("Combine() = %q, want %q", got, want)
	}
	if !HasTags(want) {
		t.Error("HasTags false for tagged text")
	}
	if HasTags("plain text") {
		t.Error("HasTags true for plain text")
	}
}
