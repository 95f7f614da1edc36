package segment

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSplitShortTextUnchanged(t *testing.T) {
	text := "  [S1]hello\n\n[S2]world  "
	got := Split(text)
	if len(got) != 1 || got[0] != text {
		t.Fatalf("Split() = %q, want the input unchanged", got)
	}

	exact := strings.Repeat("字", Threshold)
	if got := Split(exact); len(got) != 1 {
		t.Errorf("text of exactly Threshold runes split into %d segments", len(got))
	}
}

func TestSplitLongText(t *testing.T) {
	// Four 600-rune lines: no two fit together under MaxLen.
	var lines []string
	for i := 0; i < 4; i++ {
		lines = append(lines, "[S1]"+strings.Repeat("话", 596))
	}
	text := strings.Join(lines, "\n\n")

	got := Split(text)
	if len(got) != 4 {
		t.Fatalf("got %d segments, want 4", len(got))
	}
	for i, seg := range got {
		if seg != lines[i] {
			t.Errorf("segment %d is not the original line", i)
		}
	}
}

func TestSplitPacksLines(t *testing.T) {
	line := strings.Repeat("a", 300)
	text := strings.Repeat(line+"\n", 6)

	got := Split(text)
	if len(got) != 2 {
		t.Fatalf("got %d segments, want 2", len(got))
	}
	for i, seg := range got {
		if n := strings.Count(seg, "\n") + 1; n != 3 {
			t.Errorf("segment %d has %d lines, want 3", i, n)
		}
		if utf8.RuneCountInString(seg) > MaxLen {
			t.Errorf("segment %d exceeds MaxLen", i)
		}
	}
}

func TestSplitNeverBreaksALine(t *testing.T) {
	long := strings.Repeat("x", 1600)
	got := Split(long)
	if len(got) != 1 || got[0] != long {
		t.Fatalf("over-long single line was altered")
	}

	text := "short line\n" + long + "\nanother"
	got = Split(text)
	want := []string{"short line", long, "another"}
	if len(got) != len(want) {
		t.Fatalf("got %d segments, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("segment %d mismatch", i)
		}
	}
}

func TestWithContext(t *testing.T) {
	segs := []string{
		"first line\n[S1]the closing sentence of one",
		"[S2]reply",
		"tiny",
		"[S1]tail",
	}
	got := WithContext(segs)

	if got[0] != segs[0] {
		t.Errorf("first segment changed: %q", got[0])
	}
	if want := "[S1]the closing sentence of one\n[S2]reply"; got[1] != want {
		t.Errorf("segment 1 = %q, want %q", got[1], want)
	}
	// "[S2]reply" is 9 runes, too short to carry.
	if got[2] != "tiny" {
		t.Errorf("segment 2 = %q, want no prefix", got[2])
	}
	// "tiny" is too short as well.
	if got[3] != "[S1]tail" {
		t.Errorf("segment 3 = %q", got[3])
	}
}

func TestWithContextUsesOriginalSegments(t *testing.T) {
	segs := []string{"alpha line long enough", "beta line long enough", "gamma"}
	got := WithContext(segs)
	if want := "beta line long enough\ngamma"; got[2] != want {
		t.Errorf("segment 2 = %q, want %q", got[2], want)
	}
}

func TestWithContextSkipsDuplicatePrefix(t *testing.T) {
	segs := []string{"a repeated line here", "a repeated line here\nnext"}
	got := WithContext(segs)
	if got[1] != segs[1] {
		t.Errorf("prefix duplicated: %q", got[1])
	}
}

func TestSplitKeepsContinuationWithItsTag(t *testing.T) {
	var lines []string
	for i := 0; i < 6; i++ {
		lines = append(lines, "[S1]"+strings.Repeat("a", 150))
	}
	continuation := strings.Repeat("b", 300)
	lines = append(lines, "[S2]short", continuation)
	for i := 0; i < 5; i++ {
		lines = append(lines, "[S1]"+strings.Repeat("c", 150))
	}

	got := Split(strings.Join(lines, "\n"))
	if len(got) != 2 {
		t.Fatalf("got %d segments, want 2", len(got))
	}
	if !strings.HasSuffix(got[0], "[S2]short\n"+continuation) {
		t.Errorf("continuation line left its speaker's segment")
	}
	for i, seg := range WithContext(got) {
		if !strings.HasPrefix(seg, "[S") {
			t.Errorf("segment %d starts untagged: %.20q", i, seg)
		}
	}
	if want := "[S2]" + continuation + "\n[S1]"; !strings.HasPrefix(WithContext(got)[1], want) {
		t.Errorf("context line did not inherit the [S2] tag")
	}
}

func TestSplitUntaggedTextPacksFreely(t *testing.T) {
	text := strings.Repeat(strings.Repeat("z", 400)+"\n", 5)
	got := Split(text)
	if len(got) != 3 {
		t.Fatalf("got %d segments, want 3", len(got))
	}
}
