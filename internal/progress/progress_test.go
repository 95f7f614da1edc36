package progress

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestNewEventPercent(t *testing.T) {
	tests := []struct {
		stage       Stage
		done, total int
		want        float64
	}{
		{StageExtract, 0, 0, 0},
		{StageScript, 0, 0, 0.05},
		{StageSynthesize, 5, 10, 0.60},
		{StageAssemble, 1, 1, 1.0},
	}
	for _, tt := range tests {
		e := NewEvent(tt.stage, "m", tt.done, tt.total, time.Now())
		if diff := e.Percent - tt.want; diff > 1e-9 || diff < -1e-9 {
			t.Errorf("%s %d/%d: percent = %v, want %v", tt.stage, tt.done, tt.total, e.Percent, tt.want)
		}
	}
}

func TestPlainRendererPrintsStageChanges(t *testing.T) {
	var buf bytes.Buffer
	r := NewBarRenderer(&buf)

	start := time.Now()
	r.Handle(NewEvent(StageSynthesize, "Synthesizing audio", 1, 3, start))
	r.Handle(NewEvent(StageSynthesize, "Synthesizing audio", 2, 3, start))
	r.Handle(NewEvent(StageAssemble, "Assembling podcast", 0, 1, start))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2:\n%s", len(lines), buf.String())
	}
	if !strings.HasSuffix(lines[1], "Assembling podcast") {
		t.Errorf("line = %q", lines[1])
	}
}

func TestFinishSummary(t *testing.T) {
	var buf bytes.Buffer
	r := NewBarRenderer(&buf)
	r.Handle(Event{Stage: StageComplete, OutputFile: "out.mp3", SizeMB: 1.5, Duration: 75 * time.Second, Degraded: true})
	r.Finish()

	out := buf.String()
	for _, want := range []string{"out.mp3 (1:15, 1.5 MB)", "only the first segment"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
}

func TestFinishError(t *testing.T) {
	var buf bytes.Buffer
	r := NewBarRenderer(&buf)
	r.Handle(Event{Stage: StageScript, Error: errors.New("quota exceeded")})
	r.Finish()
	if !strings.Contains(buf.String(), "Error: quota exceeded") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestRenderBar(t *testing.T) {
	if got := renderBar(0.5, 10); got != "[#####.....]" {
		t.Errorf("renderBar = %s", got)
	}
	if got := renderBar(2, 4); got != "[####]" {
		t.Errorf("renderBar clamp = %s", got)
	}
}
