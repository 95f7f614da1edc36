package mcpserver

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/apresai/podcraft/internal/observability"
	"github.com/apresai/podcraft/internal/pipeline"
	"github.com/apresai/podcraft/internal/progress"
	"github.com/apresai/podcraft/internal/publish"
)

// GenerateRequest holds parameters for a podcast generation task.
type GenerateRequest struct {
	InputURL  string
	InputText string
	Title     string
	Question  string
	Tone      string
	Length    string
	Language  string
	LLM       string
	TTS       string
}

// Generator runs the podcast pipeline.
type Generator interface {
	GeneratePodcast(ctx context.Context, req pipeline.Request) (*pipeline.Result, error)
}

// Catalog records episode state.
type Catalog interface {
	Create(ctx context.Context, ep publish.Episode) error
	UpdateProgress(ctx context.Context, id string, status publish.Status, percent float64, message string) error
	Complete(ctx context.Context, id string, done publish.Completion) error
	Fail(ctx context.Context, id, errMsg string) error
	Get(ctx context.Context, id string) (*publish.Episode, error)
	List(ctx context.Context, limit int, cursor string) ([]publish.Episode, string, error)
}

// Uploader puts finished audio where listeners can reach it.
type Uploader interface {
	Upload(ctx context.Context, id, title string, res *pipeline.Result) (publish.Completion, error)
}

// progressInterval throttles catalog writes within one stage.
const progressInterval = 2 * time.Second

// TaskManager manages async podcast generation tasks.
type TaskManager struct {
	gen      Generator
	catalog  Catalog
	uploader Uploader
	log      *slog.Logger
	baseCtx  context.Context // cancelled on SIGTERM for graceful shutdown

	mu       sync.Mutex
	cancels  map[string]context.CancelFunc
	maxTasks int
	running  int
	wg       sync.WaitGroup

	newID func() (string, error)
}

// NewTaskManager creates a task manager.
// baseCtx should be cancelled on SIGTERM so pipeline goroutines can clean up.
func NewTaskManager(baseCtx context.Context, gen Generator, catalog Catalog, uploader Uploader, maxTasks int, logger *slog.Logger) *TaskManager {
	if maxTasks <= 0 {
		maxTasks = 5
	}
	return &TaskManager{
		gen:      gen,
		catalog:  catalog,
		uploader: uploader,
		log:      logger,
		baseCtx:  baseCtx,
		cancels:  make(map[string]context.CancelFunc),
		maxTasks: maxTasks,
		newID:    publish.NewID,
	}
}

// StartTask creates the catalog record and runs the pipeline in a
// goroutine. It returns the episode ID immediately.
func (tm *TaskManager) StartTask(ctx context.Context, req GenerateRequest) (string, error) {
	if req.InputURL == "" && req.InputText == "" {
		return "", fmt.Errorf("either input_url or input_text is required")
	}

	id, err := tm.newID()
	if err != nil {
		return "", err
	}

	tm.mu.Lock()
	if tm.running >= tm.maxTasks {
		tm.mu.Unlock()
		return "", fmt.Errorf("max concurrent tasks reached (%d)", tm.maxTasks)
	}
	tm.running++

	// The request context ends when the tool call returns; the task lives
	// on baseCtx and keeps the caller's trace.
	taskCtx := observability.DetachTraceContext(ctx, tm.baseCtx)
	taskCtx, cancel := context.WithCancel(taskCtx)
	tm.cancels[id] = cancel
	tm.mu.Unlock()

	ep := publish.Episode{
		ID:          id,
		Title:       title(req),
		Source:      req.InputURL,
		LLMProvider: req.LLM,
		TTSProvider: req.TTS,
		Language:    req.Language,
		Length:      req.Length,
	}
	if err := tm.catalog.Create(ctx, ep); err != nil {
		cancel()
		tm.release(id)
		return "", fmt.Errorf("create episode: %w", err)
	}

	tm.wg.Add(1)
	go tm.run(taskCtx, id, req)

	return id, nil
}

// CancelTask cancels a running task.
func (tm *TaskManager) CancelTask(id string) bool {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	cancel, ok := tm.cancels[id]
	if ok {
		cancel()
	}
	return ok
}

// Wait blocks until running tasks finish or ctx is done.
func (tm *TaskManager) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		tm.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (tm *TaskManager) release(id string) {
	tm.mu.Lock()
	delete(tm.cancels, id)
	tm.running--
	tm.mu.Unlock()
}

func (tm *TaskManager) run(ctx context.Context, id string, req GenerateRequest) {
	defer tm.wg.Done()
	defer tm.release(id)

	ctx, span := observability.Tracer().Start(ctx, "task.run",
		trace.WithAttributes(attribute.String("episode_id", id)),
	)
	defer span.End()

	log := tm.log.With("episode_id", id)
	start := time.Now()

	fail := func(err error) {
		msg := pipeline.UserMessage(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, msg)
		log.ErrorContext(ctx, "task failed", "error", err, "elapsed", time.Since(start).Round(time.Second).String())

		// The task context may be cancelled by shutdown; the failure still
		// needs recording.
		failCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if ferr := tm.catalog.Fail(failCtx, id, msg); ferr != nil {
			log.WarnContext(ctx, "mark episode failed", "error", ferr)
		}
	}

	preq := pipeline.Request{
		URL:         req.InputURL,
		Question:    req.Question,
		Tone:        req.Tone,
		Length:      req.Length,
		Language:    req.Language,
		LLMProvider: req.LLM,
		TTSProvider: req.TTS,
		Progress:    tm.progressWriter(ctx, id, span),
	}

	if req.InputURL == "" {
		workDir, err := os.MkdirTemp("", "podcraft-mcp-*")
		if err != nil {
			fail(fmt.Errorf("create work dir: %w", err))
			return
		}
		defer os.RemoveAll(workDir)

		inputPath := filepath.Join(workDir, "input.txt")
		if err := os.WriteFile(inputPath, []byte(req.InputText), 0o644); err != nil {
			fail(fmt.Errorf("write input text: %w", err))
			return
		}
		preq.Files = []string{inputPath}
	}

	log.InfoContext(ctx, "task starting", "llm", req.LLM, "tts", req.TTS, "length", req.Length, "language", req.Language)
	res, err := tm.gen.GeneratePodcast(ctx, preq)
	if err != nil {
		fail(err)
		return
	}

	if err := tm.catalog.UpdateProgress(ctx, id, publish.StatusUploading, 0.95, "Uploading..."); err != nil {
		log.WarnContext(ctx, "update progress failed", "error", err)
	}
	done, err := tm.uploader.Upload(ctx, id, title(req), res)
	if err != nil {
		fail(err)
		return
	}
	if err := tm.catalog.Complete(ctx, id, done); err != nil {
		log.ErrorContext(ctx, "complete episode failed", "error", err)
	}

	span.SetAttributes(
		attribute.String("audio_url", done.AudioURL),
		attribute.Float64("file_size_mb", done.FileSizeMB),
		attribute.Bool("degraded", done.Degraded),
	)
	span.SetStatus(codes.Ok, "complete")
	log.InfoContext(ctx, "task complete",
		"audio_url", done.AudioURL,
		"degraded", done.Degraded,
		"elapsed", time.Since(start).Round(time.Second).String())
}

// progressWriter records pipeline progress in the catalog, at most once per
// progressInterval except on stage transitions.
func (tm *TaskManager) progressWriter(ctx context.Context, id string, span trace.Span) progress.Callback {
	var (
		lastWrite time.Time
		lastStage progress.Stage
	)
	return func(evt progress.Event) {
		if evt.Stage == progress.StageComplete {
			return
		}
		now := time.Now()
		stageChanged := evt.Stage != lastStage
		if !stageChanged && now.Sub(lastWrite) < progressInterval {
			return
		}

		if stageChanged {
			span.AddEvent("stage_transition", trace.WithAttributes(
				attribute.String("stage", string(evt.Stage)),
				attribute.Float64("percent", evt.Percent),
			))
		}

		if err := tm.catalog.UpdateProgress(ctx, id, mapStage(evt.Stage), evt.Percent, evt.Message); err != nil {
			tm.log.WarnContext(ctx, "update progress failed", "episode_id", id, "error", err)
		}
		lastWrite = now
		lastStage = evt.Stage
	}
}

func title(req GenerateRequest) string {
	if req.Title != "" {
		return req.Title
	}
	if req.InputURL != "" {
		if u, err := url.Parse(req.InputURL); err == nil && u.Host != "" {
			return u.Host + u.Path
		}
		return req.InputURL
	}
	return "Podcast"
}

// mapStage maps a pipeline progress stage to an episode status.
func mapStage(stage progress.Stage) publish.Status {
	switch stage {
	case progress.StageExtract:
		return publish.StatusExtracting
	case progress.StageScript:
		return publish.StatusScripting
	case progress.StageSynthesize:
		return publish.StatusSynthesizing
	case progress.StageAssemble:
		return publish.StatusAssembling
	case progress.StageComplete:
		return publish.StatusComplete
	default:
		return publish.StatusSubmitted
	}
}
