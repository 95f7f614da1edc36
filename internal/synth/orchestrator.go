// Package synth turns a dialogue into audio files through a TTS client,
// either line by line or as one tagged batch.
package synth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/apresai/podcraft/internal/assembly"
	"github.com/apresai/podcraft/internal/dialogue"
	"github.com/apresai/podcraft/internal/progress"
	"github.com/apresai/podcraft/internal/segment"
	"github.com/apresai/podcraft/internal/tts"
)

// SegmentDelay is the pause between consecutive segment requests.
const SegmentDelay = 500 * time.Millisecond

// Synthesizer is the part of tts.Client the orchestrator needs.
type Synthesizer interface {
	Name() string
	Capabilities() tts.Capabilities
	Synthesize(ctx context.Context, req tts.Request) (string, error)
}

// Assembler merges segment files. *assembly.Assembler satisfies it.
type Assembler interface {
	Assemble(ctx context.Context, files []string, output string) (assembly.Result, error)
}

// Artifact is one synthesized audio file.
type Artifact struct {
	Path    string
	Seq     int
	Speaker string
}

// Output is the result of synthesizing a dialogue.
type Output struct {
	Artifacts []Artifact
	// Degraded is set when a segment merge fell back to a single segment.
	Degraded bool
	// Characters is the number of characters sent to the provider.
	Characters int
}

// Orchestrator drives synthesis of a whole dialogue. Calls are strictly
// sequential.
type Orchestrator struct {
	TTS       Synthesizer
	Assembler Assembler
	Delay     time.Duration
	Logger    *slog.Logger
	Progress  progress.Callback
}

// New returns an orchestrator with the default segment delay.
func New(s Synthesizer, a Assembler, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{TTS: s, Assembler: a, Delay: SegmentDelay, Logger: logger, Progress: progress.NopCallback}
}

// Run synthesizes d into dir. Providers with consistent batch support get
// the whole script as one tagged text and yield a single artifact; others
// get one call per line and yield one artifact per item, in order. Any
// failure aborts the run, removes the files written so far and returns a
// *tts.SynthesisError.
func (o *Orchestrator) Run(ctx context.Context, d *dialogue.Dialogue, language, dir string) (*Output, error) {
	if d == nil || len(d.Items) == 0 {
		return nil, dialogue.ErrEmptyDialogue
	}
	start := time.Now()
	out := &Output{}

	var err error
	if o.TTS.Capabilities().ConsistentBatch {
		o.logger().InfoContext(ctx, "synthesizing dialogue in batch mode", "provider", o.TTS.Name(), "items", len(d.Items))
		o.report(progress.NewEvent(progress.StageSynthesize, "Synthesizing audio", 0, 1, start))
		var a Artifact
		a, err = o.synthesizeText(ctx, d.Combine(), dialogue.CombinedSpeaker, 0, language, dir, out)
		if err == nil {
			out.Artifacts = append(out.Artifacts, a)
		}
	} else {
		o.logger().InfoContext(ctx, "synthesizing dialogue line by line", "provider", o.TTS.Name(), "items", len(d.Items))
		for i, it := range d.Items {
			o.report(progress.NewEvent(progress.StageSynthesize, "Synthesizing audio", i, len(d.Items), start))
			var a Artifact
			a, err = o.synthesizeText(ctx, it.Text, string(it.Speaker), i, language, dir, out)
			if err != nil {
				break
			}
			out.Artifacts = append(out.Artifacts, a)
		}
	}
	if err != nil {
		removeArtifacts(out.Artifacts)
		return nil, o.synthesisError(err)
	}

	o.logger().InfoContext(ctx, "synthesis complete",
		"provider", o.TTS.Name(),
		"artifacts", len(out.Artifacts),
		"total_characters", out.Characters,
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	return out, nil
}

// synthesizeText synthesizes one text as one or more segments and merges
// them into a single artifact.
func (o *Orchestrator) synthesizeText(ctx context.Context, text, speaker string, seq int, language, dir string, out *Output) (Artifact, error) {
	segments := segment.WithContext(segment.Split(text))

	var paths []string
	for i, seg := range segments {
		if i > 0 {
			if err := sleep(ctx, o.Delay); err != nil {
				removePaths(paths)
				return Artifact{}, err
			}
		}
		path, err := o.TTS.Synthesize(ctx, tts.Request{
			Text:      seg,
			Speaker:   speaker,
			Language:  language,
			OutputDir: dir,
			Seq:       seq,
		})
		if err != nil {
			removePaths(paths)
			return Artifact{}, err
		}
		out.Characters += len([]rune(seg))
		paths = append(paths, path)
	}
	if len(segments) > 1 {
		o.logger().DebugContext(ctx, "text split into segments", "speaker", speaker, "seq", seq, "segments", len(segments))
	}

	merged := filepath.Join(dir, fmt.Sprintf("%s_merged_%d.mp3", o.TTS.Name(), seq))
	res, err := o.Assembler.Assemble(ctx, paths, merged)
	if err != nil {
		removePaths(paths)
		return Artifact{}, err
	}
	if res.Degraded {
		out.Degraded = true
		// Only the first segment survives; the rest would be orphaned.
		removePaths(paths[1:])
	}
	return Artifact{Path: res.Path, Seq: seq, Speaker: speaker}, nil
}

func (o *Orchestrator) synthesisError(err error) error {
	var se *tts.SynthesisError
	if errors.As(err, &se) {
		return err
	}
	return &tts.SynthesisError{Provider: o.TTS.Name(), Seq: -1, Err: err}
}

func (o *Orchestrator) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.Default()
	}
	return o.Logger
}

func (o *Orchestrator) report(e progress.Event) {
	if o.Progress != nil {
		o.Progress(e)
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func removeArtifacts(as []Artifact) {
	for _, a := range as {
		os.Remove(a.Path)
	}
}

func removePaths(paths []string) {
	for _, p := range paths {
		os.Remove(p)
	}
}
