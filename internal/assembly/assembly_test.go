package assembly

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeMerger struct {
	name  string
	err   error
	calls int
}

func (m *fakeMerger) Name() string { return m.name }

func (m *fakeMerger) Merge(_ context.Context, files []string, output string) error {
	m.calls++
	if m.err != nil {
		return m.err
	}
	return os.WriteFile(output, []byte(strings.Join(files, ",")), 0644)
}

func writeClips(t *testing.T, n int) []string {
	t.Helper()
	dir := t.TempDir()
	var files []string
	for i := 0; i < n; i++ {
		p := filepath.Join(dir, "clip"+string(rune('a'+i))+".mp3")
		if err := os.WriteFile(p, []byte("audio"), 0644); err != nil {
			t.Fatal(err)
		}
		files = append(files, p)
	}
	return files
}

func TestAssembleNoFiles(t *testing.T) {
	a := &Assembler{Primary: &fakeMerger{name: "p"}, Logger: discard}
	if _, err := a.Assemble(context.Background(), nil, "out.mp3"); err == nil {
		t.Fatal("expected error for empty input")
	}
}

func TestAssembleSingleFileSkipsMerger(t *testing.T) {
	primary := &fakeMerger{name: "p"}
	fallback := &fakeMerger{name: "f"}
	a := &Assembler{Primary: primary, Fallback: fallback, Logger: discard}
	files := writeClips(t, 1)

	res, err := a.Assemble(context.Background(), files, filepath.Join(t.TempDir(), "out.mp3"))
	if err != nil {
		t.Fatal(err)
	}
	if res.Path != files[0] || res.Degraded {
		t.Errorf("result = %+v, want first file unchanged", res)
	}
	if primary.calls+fallback.calls != 0 {
		t.Errorf("merger invoked %d times for a single file", primary.calls+fallback.calls)
	}
	if _, err := os.Stat(files[0]); err != nil {
		t.Errorf("single input removed: %v", err)
	}
}

func TestAssembleDeletesInputsOnSuccess(t *testing.T) {
	primary := &fakeMerger{name: "p"}
	a := &Assembler{Primary: primary, Fallback: &fakeMerger{name: "f"}, Logger: discard}
	files := writeClips(t, 3)
	out := filepath.Join(t.TempDir(), "final.mp3")

	res, err := a.Assemble(context.Background(), files, out)
	if err != nil {
		t.Fatal(err)
	}
	if res.Path != out || res.Strategy != "p" || res.Degraded {
		t.Errorf("result = %+v", res)
	}
	for _, f := range files {
		if _, err := os.Stat(f); !errors.Is(err, os.ErrNotExist) {
			t.Errorf("%s still exists after merge", f)
		}
	}
	data, _ := os.ReadFile(out)
	if string(data) != strings.Join(files, ",") {
		t.Errorf("merge order = %q", data)
	}
}

func TestAssembleFallsBack(t *testing.T) {
	primary := &fakeMerger{name: "p", err: errors.New("codec mismatch")}
	fallback := &fakeMerger{name: "f"}
	a := &Assembler{Primary: primary, Fallback: fallback, Logger: discard}
	files := writeClips(t, 2)

	res, err := a.Assemble(context.Background(), files, filepath.Join(t.TempDir(), "final.mp3"))
	if err != nil {
		t.Fatal(err)
	}
	if res.Strategy != "f" || primary.calls != 1 || fallback.calls != 1 {
		t.Errorf("result = %+v, calls = %d/%d", res, primary.calls, fallback.calls)
	}
}

func TestAssembleFilterGraphTimeoutFallsBack(t *testing.T) {
	run := func(ctx context.Context, name string, args ...string) ([]byte, error) {
		for _, a := range args {
			if a == "-filter_complex" {
				<-ctx.Done()
				return nil, ctx.Err()
			}
		}
		return nil, os.WriteFile(args[len(args)-1], []byte("mp3"), 0644)
	}
	a := &Assembler{
		Primary:  &FilterGraph{Run: run, Timeout: 50 * time.Millisecond},
		Fallback: &StreamCopy{Run: run},
		Logger:   discard,
	}
	files := writeClips(t, 3)
	out := filepath.Join(t.TempDir(), "final.mp3")

	start := time.Now()
	res, err := a.Assemble(context.Background(), files, out)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("filter graph ran %v past its timeout", elapsed)
	}
	if res.Strategy != "stream_copy" || res.Path != out || res.Degraded {
		t.Errorf("result = %+v, want stream_copy into %s", res, out)
	}
	for _, f := range files {
		if _, err := os.Stat(f); !errors.Is(err, os.ErrNotExist) {
			t.Errorf("input %s not removed after merge", f)
		}
	}
}

func TestAssembleDegradesToFirstFile(t *testing.T) {
	a := &Assembler{
		Primary:  &fakeMerger{name: "p", err: errors.New("boom")},
		Fallback: &fakeMerger{name: "f", err: errors.New("boom")},
		Logger:   discard,
	}
	files := writeClips(t, 3)

	res, err := a.Assemble(context.Background(), files, filepath.Join(t.TempDir(), "final.mp3"))
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if res.Path != files[0] || !res.Degraded {
		t.Errorf("result = %+v, want first file degraded", res)
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			t.Errorf("input %s removed after failed merge", f)
		}
	}
}

type recordedCall struct {
	name string
	args []string
}

// fakeRunner records commands and writes the output file named by the last
// argument.
func fakeRunner(calls *[]recordedCall, body string) Runner {
	return func(_ context.Context, name string, args ...string) ([]byte, error) {
		*calls = append(*calls, recordedCall{name: name, args: args})
		if body != "" {
			if err := os.WriteFile(args[len(args)-1], []byte(body), 0644); err != nil {
				return nil, err
			}
		}
		return nil, nil
	}
}

func TestFilterGraphArgs(t *testing.T) {
	var calls []recordedCall
	m := &FilterGraph{Run: fakeRunner(&calls, "mp3")}
	out := filepath.Join(t.TempDir(), "out.mp3")

	if err := m.Merge(context.Background(), []string{"a.mp3", "b.mp3", "c.mp3"}, out); err != nil {
		t.Fatal(err)
	}
	got := strings.Join(calls[0].args, " ")
	want := "-i a.mp3 -i b.mp3 -i c.mp3 -filter_complex [0:a][1:a][2:a]concat=n=3:v=0:a=1[out] -map [out] -c:a libmp3lame -q:a 2 -y " + out
	if calls[0].name != "ffmpeg" || got != want {
		t.Errorf("args = %s\nwant   %s", got, want)
	}
}

func TestMergeRejectsEmptyOutput(t *testing.T) {
	var calls []recordedCall
	m := &FilterGraph{Run: fakeRunner(&calls, "")}
	err := m.Merge(context.Background(), []string{"a.mp3", "b.mp3"}, filepath.Join(t.TempDir(), "out.mp3"))
	var me *MergeError
	if !errors.As(err, &me) || me.Strategy != "filter_graph" {
		t.Fatalf("err = %v, want MergeError", err)
	}
}

func TestStreamCopyWritesList(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out.mp3")
	var list string
	run := func(_ context.Context, name string, args ...string) ([]byte, error) {
		data, err := os.ReadFile(args[5])
		if err != nil {
			return nil, err
		}
		list = string(data)
		return nil, os.WriteFile(out, []byte("mp3"), 0644)
	}
	m := &StreamCopy{Run: run}
	files := []string{filepath.Join(dir, "a.mp3"), filepath.Join(dir, "it's.mp3")}

	if err := m.Merge(context.Background(), files, out); err != nil {
		t.Fatal(err)
	}
	want := "file '" + files[0] + "'\nfile '" + filepath.Join(dir, `it'\''s.mp3`) + "'\n"
	if list != want {
		t.Errorf("list = %q, want %q", list, want)
	}
	if _, err := os.Stat(filepath.Join(dir, "out_concat.txt")); !errors.Is(err, os.ErrNotExist) {
		t.Error("concat list not cleaned up")
	}
}

func TestProbeDuration(t *testing.T) {
	run := func(_ context.Context, name string, args ...string) ([]byte, error) {
		if name != "ffprobe" {
			t.Errorf("name = %s", name)
		}
		return []byte("12.500000\n"), nil
	}
	d, err := ProbeDuration(context.Background(), run, "x.mp3")
	if err != nil {
		t.Fatal(err)
	}
	if d != 12500*time.Millisecond {
		t.Errorf("duration = %v, want 12.5s", d)
	}
}
