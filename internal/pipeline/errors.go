package pipeline

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/apresai/podcraft/internal/ingest"
	"github.com/apresai/podcraft/internal/llm"
	"github.com/apresai/podcraft/internal/provider"
	"github.com/apresai/podcraft/internal/script"
	"github.com/apresai/podcraft/internal/tts"
)

// Stages named in errors and spans.
const (
	StageInput      = "input"
	StageExtract    = "extract"
	StageScript     = "script"
	StageSynthesize = "synthesize"
	StageAssemble   = "assemble"
)

var (
	ErrNoInput = errors.New("no input: provide at least one PDF, Word, TXT or Markdown file, or a URL")
	ErrTooLong = errors.New("content too long")
)

type PipelineError struct {
	Stage   string
	Message string
	Err     error
}

func (e *PipelineError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Stage, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Stage, e.Message)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// UserMessage turns any error returned by GeneratePodcast into one line
// for a person: the stage that failed and a short cause, with credentials
// removed.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	stage := ""
	var pe *PipelineError
	if errors.As(err, &pe) {
		stage = pe.Stage
	}

	msg := cause(err)
	if stage != "" {
		msg = fmt.Sprintf("%s failed: %s", stageLabel(stage), msg)
	}
	return Redact(msg)
}

func cause(err error) string {
	var (
		cfgErr      *provider.ConfigurationError
		unsupported *provider.UnsupportedProviderError
		notImpl     *provider.NotImplementedError
		format      *ingest.UnsupportedFormatError
		genErr      *script.GenerationError
		llmErr      *llm.ProviderError
		synthErr    *tts.SynthesisError
		pe          *PipelineError
	)
	switch {
	case errors.Is(err, context.Canceled):
		return "the request was cancelled"
	case errors.Is(err, context.DeadlineExceeded):
		return "the request timed out"
	case errors.As(err, &cfgErr):
		return cfgErr.Error()
	case errors.As(err, &unsupported):
		return unsupported.Error()
	case errors.As(err, &notImpl):
		return fmt.Sprintf("provider %s is not available yet, choose another one", notImpl.Provider)
	case errors.As(err, &format):
		return format.Error()
	case errors.Is(err, ErrNoInput), errors.Is(err, ErrTooLong), errors.Is(err, ingest.ErrNoText):
		if errors.As(err, &pe) {
			return pe.Message
		}
		return err.Error()
	case errors.As(err, &genErr):
		inner := genErr.Err
		if errors.As(inner, &llmErr) {
			inner = llmErr.Err
		}
		return fmt.Sprintf("%s could not write the %s script: %v", genErr.Provider, genErr.Pass, inner)
	case errors.As(err, &synthErr):
		return fmt.Sprintf("%s could not synthesize speech: %v", synthErr.Provider, synthErr.Err)
	case errors.As(err, &pe):
		if pe.Err != nil {
			return fmt.Sprintf("%s: %v", pe.Message, pe.Err)
		}
		return pe.Message
	default:
		return err.Error()
	}
}

func stageLabel(stage string) string {
	switch stage {
	case StageInput:
		return "Checking input"
	case StageExtract:
		return "Reading content"
	case StageScript:
		return "Writing script"
	case StageSynthesize:
		return "Synthesizing audio"
	case StageAssemble:
		return "Assembling audio"
	default:
		return stage
	}
}

var secretPatterns = []struct {
	re   *regexp.Regexp
	repl string
}{
	{regexp.MustCompile(`(?i)(bearer\s+)[A-Za-z0-9._~+/=-]+`), "${1}[REDACTED]"},
	{regexp.MustCompile(`(?i)\b((?:api[_-]?key|secret[_-]?key|access[_-]?token|client[_-]?secret|client[_-]?id|token|tok|key)["']?\s*[=:]\s*["']?)[^\s"'&,}]+`), "${1}[REDACTED]"},
	{regexp.MustCompile(`\bsk-[A-Za-z0-9_-]{8,}`), "sk-[REDACTED]"},
}

// Redact masks API keys, tokens and bearer credentials in s.
func Redact(s string) string {
	for _, p := range secretPatterns {
		s = p.re.ReplaceAllString(s, p.repl)
	}
	return s
}
