// Package assembly joins synthesized audio clips into one file.
package assembly

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// Encoder settings for re-encoding merges.
const (
	AudioCodec   = "libmp3lame"
	AudioQuality = "2" // LAME VBR quality

	// MergeTimeout bounds a single ffmpeg merge.
	MergeTimeout = 60 * time.Second
)

// Runner executes an external command and returns its standard output. The
// error carries the command's standard error when it fails.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// ExecRunner runs commands with os/exec.
func ExecRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%s failed: %w\n%s", name, err, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}

// Merger concatenates audio files, in order, into output.
type Merger interface {
	Name() string
	Merge(ctx context.Context, files []string, output string) error
}

// MergeError reports a failed merge strategy. The assembler recovers from
// it, so it only surfaces in logs.
type MergeError struct {
	Strategy string
	Err      error
}

func (e *MergeError) Error() string {
	return fmt.Sprintf("merge (%s): %v", e.Strategy, e.Err)
}

func (e *MergeError) Unwrap() error { return e.Err }

// FilterGraph decodes every input and re-encodes through ffmpeg's concat
// filter. It tolerates inputs with differing encoder parameters.
type FilterGraph struct {
	Run     Runner
	Timeout time.Duration
}

func (m *FilterGraph) Name() string { return "filter_graph" }

func (m *FilterGraph) Merge(ctx context.Context, files []string, output string) error {
	if len(files) == 0 {
		return &MergeError{Strategy: m.Name(), Err: fmt.Errorf("no input files")}
	}
	timeout := m.Timeout
	if timeout <= 0 {
		timeout = MergeTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if _, err := runner(m.Run)(ctx, "ffmpeg", filterGraphArgs(files, output)...); err != nil {
		return &MergeError{Strategy: m.Name(), Err: err}
	}
	if err := checkOutput(output); err != nil {
		return &MergeError{Strategy: m.Name(), Err: err}
	}
	return nil
}

func filterGraphArgs(files []string, output string) []string {
	args := make([]string, 0, 2*len(files)+10)
	var graph strings.Builder
	for i, f := range files {
		args = append(args, "-i", f)
		fmt.Fprintf(&graph, "[%d:a]", i)
	}
	fmt.Fprintf(&graph, "concat=n=%d:v=0:a=1[out]", len(files))
	return append(args,
		"-filter_complex", graph.String(),
		"-map", "[out]",
		"-c:a", AudioCodec,
		"-q:a", AudioQuality,
		"-y",
		output,
	)
}

// StreamCopy joins inputs with ffmpeg's concat demuxer without re-encoding.
// It needs inputs that share codec parameters.
type StreamCopy struct {
	Run     Runner
	Timeout time.Duration
}

func (m *StreamCopy) Name() string { return "stream_copy" }

func (m *StreamCopy) Merge(ctx context.Context, files []string, output string) error {
	if len(files) == 0 {
		return &MergeError{Strategy: m.Name(), Err: fmt.Errorf("no input files")}
	}
	timeout := m.Timeout
	if timeout <= 0 {
		timeout = MergeTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	listPath := strings.TrimSuffix(output, filepath.Ext(output)) + "_concat.txt"
	if err := writeConcatList(files, listPath); err != nil {
		return &MergeError{Strategy: m.Name(), Err: err}
	}
	defer os.Remove(listPath)

	_, err := runner(m.Run)(ctx, "ffmpeg",
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-c", "copy",
		"-y",
		output,
	)
	if err != nil {
		return &MergeError{Strategy: m.Name(), Err: err}
	}
	if err := checkOutput(output); err != nil {
		return &MergeError{Strategy: m.Name(), Err: err}
	}
	return nil
}

// writeConcatList writes a concat demuxer list. Paths are made absolute
// because ffmpeg resolves relative entries against the list's directory.
func writeConcatList(files []string, listPath string) error {
	var b strings.Builder
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", f, err)
		}
		fmt.Fprintf(&b, "file '%s'\n", strings.ReplaceAll(abs, "'", `'\''`))
	}
	if err := os.WriteFile(listPath, []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("write concat list: %w", err)
	}
	return nil
}

func checkOutput(output string) error {
	info, err := os.Stat(output)
	if err != nil {
		return fmt.Errorf("output file not created: %w", err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("output file is empty")
	}
	return nil
}

func runner(r Runner) Runner {
	if r == nil {
		return ExecRunner
	}
	return r
}
