// Package pipeline runs a podcast request end to end: extract the sources,
// write the script, synthesize speech and assemble the episode.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/apresai/podcraft/internal/assembly"
	"github.com/apresai/podcraft/internal/config"
	"github.com/apresai/podcraft/internal/dialogue"
	"github.com/apresai/podcraft/internal/ingest"
	"github.com/apresai/podcraft/internal/llm"
	"github.com/apresai/podcraft/internal/observability"
	"github.com/apresai/podcraft/internal/progress"
	"github.com/apresai/podcraft/internal/script"
	"github.com/apresai/podcraft/internal/synth"
	"github.com/apresai/podcraft/internal/tts"
)

// Request is one podcast generation request. Choice fields accept the same
// values as the CLI flags; empty ones take the configured defaults.
type Request struct {
	Files       []string
	URL         string
	Question    string
	Tone        string // fun, formal
	Length      string // short, medium, long
	Language    string // display name or code
	LLMProvider string
	TTSProvider string

	// Script skips extraction and generation and synthesizes this dialogue.
	Script *dialogue.Dialogue
	// ScriptOnly stops after the script is written.
	ScriptOnly bool
	Progress   progress.Callback
}

// Result describes a finished request.
type Result struct {
	AudioPath  string // empty when ScriptOnly
	Transcript string
	SessionDir string
	SessionID  string
	ScriptPath string
	Dialogue   *dialogue.Dialogue
	// Degraded is set when audio merging failed and AudioPath holds only
	// the first clip.
	Degraded   bool
	Characters int
	Duration   time.Duration
}

// Extractor reads source documents.
type Extractor interface {
	Extract(ctx context.Context, files []string, url string) (string, error)
}

// Pipeline owns the provider registries and the session cache. It is safe
// for concurrent requests; each request runs its stages sequentially.
type Pipeline struct {
	cfg       config.Config
	extractor Extractor
	llms      func(ctx context.Context, kind string) (llm.Client, error)
	voices    func(ctx context.Context, kind string) (synth.Synthesizer, error)
	runner    assembly.Runner
	log       *slog.Logger
	now       func() time.Time
	closers   []func() error
}

// Option configures a Pipeline.
type Option func(*Pipeline)

func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.log = l }
}

func WithExtractor(e Extractor) Option {
	return func(p *Pipeline) { p.extractor = e }
}

// WithLLMSource replaces the LLM client registry.
func WithLLMSource(f func(ctx context.Context, kind string) (llm.Client, error)) Option {
	return func(p *Pipeline) { p.llms = f }
}

// WithTTSSource replaces the TTS client registry.
func WithTTSSource(f func(ctx context.Context, kind string) (synth.Synthesizer, error)) Option {
	return func(p *Pipeline) { p.voices = f }
}

// WithRunner replaces the command runner used for ffmpeg and ffprobe.
func WithRunner(r assembly.Runner) Option {
	return func(p *Pipeline) { p.runner = r }
}

// New builds a pipeline from cfg. Provider clients are created on first
// use and shared by later requests.
func New(cfg config.Config, opts ...Option) *Pipeline {
	p := &Pipeline{cfg: cfg, log: slog.Default(), runner: assembly.ExecRunner, now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	if p.extractor == nil {
		p.extractor = ingest.NewExtractor(p.log)
	}
	if p.llms == nil {
		reg := llm.NewRegistry(cfg.LLM, llm.WithLogger(p.log))
		p.llms = reg.Get
		p.closers = append(p.closers, reg.Close)
	}
	if p.voices == nil {
		reg := tts.NewRegistry(cfg.TTS, tts.WithLogger(p.log))
		p.voices = func(ctx context.Context, kind string) (synth.Synthesizer, error) {
			c, err := reg.Get(ctx, kind)
			if err != nil {
				return nil, err
			}
			return c, nil
		}
		p.closers = append(p.closers, reg.Close)
	}
	return p
}

// Close releases every provider client built so far.
func (p *Pipeline) Close() error {
	var errs []error
	for _, c := range p.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

// CacheDir is the directory sessions are created in.
func (p *Pipeline) CacheDir() string {
	if p.cfg.Pipeline.CacheDir == "" {
		return "./podcraft-cache"
	}
	return p.cfg.Pipeline.CacheDir
}

type plan struct {
	shape    dialogue.Shape
	options  script.Options
	llmKind  string
	ttsKind  string
	progress progress.Callback
}

func (p *Pipeline) plan(req Request) (plan, error) {
	fail := func(err error) (plan, error) {
		return plan{}, &PipelineError{Stage: StageInput, Message: err.Error(), Err: err}
	}
	if req.Script == nil && len(req.Files) == 0 && strings.TrimSpace(req.URL) == "" {
		return plan{}, &PipelineError{Stage: StageInput, Message: "please provide at least one file or a URL", Err: ErrNoInput}
	}
	shape, err := dialogue.ParseShape(req.Length)
	if err != nil {
		return fail(err)
	}
	tone, err := script.ParseTone(req.Tone)
	if err != nil {
		return fail(err)
	}
	lang, err := script.ParseLanguage(req.Language)
	if err != nil {
		return fail(err)
	}
	pl := plan{
		shape:    shape,
		options:  script.Options{Question: req.Question, Tone: tone, Shape: shape, Language: lang},
		llmKind:  firstNonEmpty(req.LLMProvider, p.cfg.LLM.Default, "siliconflow"),
		ttsKind:  firstNonEmpty(req.TTSProvider, p.cfg.TTS.Default, "siliconflow"),
		progress: req.Progress,
	}
	if pl.progress == nil {
		pl.progress = progress.NopCallback
	}
	return pl, nil
}

// GeneratePodcast runs one request. Every error it returns is a
// *PipelineError naming the failed stage; UserMessage renders it for
// people. Old sessions are reclaimed when it returns.
func (p *Pipeline) GeneratePodcast(ctx context.Context, req Request) (*Result, error) {
	ctx, span := observability.Tracer().Start(ctx, "pipeline.generate",
		trace.WithAttributes(
			attribute.String("llm_provider", req.LLMProvider),
			attribute.String("tts_provider", req.TTSProvider),
			attribute.Int("files", len(req.Files)),
		),
	)
	defer span.End()

	start := p.now()
	pl, err := p.plan(req)
	if err != nil {
		return nil, p.fail(ctx, span, err)
	}
	defer p.housekeep(context.WithoutCancel(ctx))

	log := p.log.With("llm", pl.llmKind, "tts", pl.ttsKind)
	log.InfoContext(ctx, "podcast request started", "shape", pl.shape, "language", pl.options.Language.Code)

	d := req.Script
	if d == nil {
		pl.progress(progress.NewEvent(progress.StageExtract, "Reading content", 0, 1, start))
		text, err := p.extract(ctx, req)
		if err != nil {
			return nil, p.fail(ctx, span, err)
		}

		pl.progress(progress.NewEvent(progress.StageScript, "Writing script", 0, 2, start))
		d, err = p.writeScript(ctx, pl, text, log)
		if err != nil {
			return nil, p.fail(ctx, span, err)
		}
	}

	// The session directory only exists once there is a script to keep.
	sess, err := newSession(p.CacheDir(), Slug(req.Files, req.URL), start)
	if err != nil {
		return nil, p.fail(ctx, span, &PipelineError{Stage: StageInput, Message: "failed to create session", Err: err})
	}
	log = log.With("session", sess.ID)
	log.InfoContext(ctx, "session created", "dir", sess.Dir)
	span.SetAttributes(attribute.String("session_id", sess.ID))

	res := &Result{
		Transcript: d.Transcript(),
		SessionDir: sess.Dir,
		SessionID:  sess.ID,
		Dialogue:   d,
		ScriptPath: filepath.Join(sess.Dir, "script.json"),
	}
	if err := script.Save(d, res.ScriptPath); err != nil {
		log.WarnContext(ctx, "failed to save script", "error", err)
		res.ScriptPath = ""
	}
	if err := os.WriteFile(filepath.Join(sess.Dir, "transcript.md"), []byte(res.Transcript), 0644); err != nil {
		log.WarnContext(ctx, "failed to save transcript", "error", err)
	}

	if req.ScriptOnly {
		pl.progress(progress.Event{Stage: progress.StageComplete, Message: "Script saved to " + res.ScriptPath})
		return res, nil
	}

	asm := assembly.NewAssembler(p.runner, log)
	out, err := p.synthesize(ctx, pl, d, sess, asm, log)
	if err != nil {
		return nil, p.fail(ctx, span, err)
	}
	res.Characters = out.Characters
	res.Degraded = out.Degraded

	pl.progress(progress.NewEvent(progress.StageAssemble, "Assembling podcast", 0, 1, start))
	merged, err := p.assemble(ctx, out.Artifacts, sess, asm)
	if err != nil {
		return nil, p.fail(ctx, span, err)
	}
	res.AudioPath = merged.Path
	res.Degraded = res.Degraded || merged.Degraded

	var sizeMB float64
	if info, err := os.Stat(res.AudioPath); err == nil {
		sizeMB = float64(info.Size()) / (1024 * 1024)
	}
	if dur, err := assembly.ProbeDuration(ctx, p.runner, res.AudioPath); err == nil {
		res.Duration = dur
	} else {
		log.DebugContext(ctx, "duration probe failed", "error", err)
	}

	log.InfoContext(ctx, "podcast generated",
		"audio", res.AudioPath,
		"items", len(d.Items),
		"total_characters", res.Characters,
		"degraded", res.Degraded,
		"elapsed", p.now().Sub(start).Round(time.Millisecond),
	)
	span.SetAttributes(
		attribute.Int("total_characters", res.Characters),
		attribute.Bool("degraded", res.Degraded),
	)
	span.SetStatus(codes.Ok, "complete")

	pl.progress(progress.Event{
		Stage:      progress.StageComplete,
		Message:    "Podcast ready",
		OutputFile: res.AudioPath,
		Duration:   res.Duration,
		SizeMB:     sizeMB,
		Degraded:   res.Degraded,
	})
	return res, nil
}

func (p *Pipeline) extract(ctx context.Context, req Request) (string, error) {
	ctx, span := observability.Tracer().Start(ctx, "pipeline.extract")
	defer span.End()

	text, err := p.extractor.Extract(ctx, req.Files, req.URL)
	if err != nil {
		msg := "failed to extract content"
		var ufe *ingest.UnsupportedFormatError
		if errors.As(err, &ufe) {
			msg = ufe.Error()
		}
		return "", &PipelineError{Stage: StageExtract, Message: msg, Err: err}
	}

	n := len([]rune(text))
	span.SetAttributes(attribute.Int("characters", n))
	limit := p.cfg.Pipeline.CharacterLimit
	if limit <= 0 {
		limit = 100000
	}
	if n > limit {
		return "", &PipelineError{
			Stage:   StageExtract,
			Message: fmt.Sprintf("the combined content is %d characters; keep files and URL under %d characters", n, limit),
			Err:     ErrTooLong,
		}
	}
	return text, nil
}

func (p *Pipeline) writeScript(ctx context.Context, pl plan, text string, log *slog.Logger) (*dialogue.Dialogue, error) {
	ctx, span := observability.Tracer().Start(ctx, "pipeline.script",
		trace.WithAttributes(attribute.String("provider", pl.llmKind), attribute.String("shape", string(pl.shape))),
	)
	defer span.End()

	client, err := p.llms(ctx, pl.llmKind)
	if err != nil {
		return nil, &PipelineError{Stage: StageScript, Message: "failed to set up the language model", Err: err}
	}
	d, err := script.NewGenerator(client, log).Generate(ctx, script.SystemPrompt(pl.options), text, pl.shape)
	if err != nil {
		return nil, &PipelineError{Stage: StageScript, Message: "failed to generate the podcast script", Err: err}
	}
	span.SetAttributes(attribute.Int("items", len(d.Items)))
	return d, nil
}

func (p *Pipeline) synthesize(ctx context.Context, pl plan, d *dialogue.Dialogue, sess Session, asm *assembly.Assembler, log *slog.Logger) (*synth.Output, error) {
	ctx, span := observability.Tracer().Start(ctx, "pipeline.synthesize",
		trace.WithAttributes(attribute.String("provider", pl.ttsKind)),
	)
	defer span.End()

	s, err := p.voices(ctx, pl.ttsKind)
	if err != nil {
		return nil, &PipelineError{Stage: StageSynthesize, Message: "failed to set up text-to-speech", Err: err}
	}
	orch := synth.New(s, asm, log)
	orch.Progress = pl.progress
	out, err := orch.Run(ctx, d, pl.options.Language.Code, sess.Dir)
	if err != nil {
		return nil, &PipelineError{Stage: StageSynthesize, Message: "failed to synthesize audio", Err: err}
	}
	span.SetAttributes(attribute.Int("artifacts", len(out.Artifacts)))
	return out, nil
}

// assemble joins the artifacts into the session's output file. A single
// artifact is renamed rather than re-encoded.
func (p *Pipeline) assemble(ctx context.Context, artifacts []synth.Artifact, sess Session, asm *assembly.Assembler) (assembly.Result, error) {
	ctx, span := observability.Tracer().Start(ctx, "pipeline.assemble",
		trace.WithAttributes(attribute.Int("artifacts", len(artifacts))),
	)
	defer span.End()

	paths := make([]string, len(artifacts))
	for i, a := range artifacts {
		paths[i] = a.Path
	}
	output := sess.OutputPath()
	res, err := asm.Assemble(ctx, paths, output)
	if err != nil {
		return assembly.Result{}, &PipelineError{Stage: StageAssemble, Message: "failed to assemble audio", Err: err}
	}
	if !res.Degraded && res.Path != output {
		if err := os.Rename(res.Path, output); err == nil {
			res.Path = output
		}
	}
	span.SetAttributes(attribute.Bool("degraded", res.Degraded), attribute.String("strategy", res.Strategy))
	return res, nil
}

func (p *Pipeline) housekeep(ctx context.Context) {
	ttl := p.cfg.Pipeline.CacheTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	removed, err := Housekeep(ctx, p.CacheDir(), ttl, p.now())
	if err != nil {
		p.log.WarnContext(ctx, "cache cleanup failed", "error", err)
	}
	for _, dir := range removed {
		p.log.InfoContext(ctx, "removed old session", "dir", dir)
	}
}

func (p *Pipeline) fail(ctx context.Context, span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, UserMessage(err))
	p.log.ErrorContext(ctx, "podcast request failed", "error", Redact(err.Error()))
	return err
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
