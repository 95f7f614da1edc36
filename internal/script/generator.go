// Package script asks an LLM for a podcast dialogue in two passes: a draft
// and a refinement of that draft.
package script

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/apresai/podcraft/internal/dialogue"
	"github.com/apresai/podcraft/internal/llm"
)

const (
	draftIntro        = "\n\nHere is the first draft of the dialogue you provided:\n\n"
	refineInstruction = "Improve the dialogue: make it more natural and engaging."
	refineUserPrompt  = "Please improve the dialogue: make it more natural and engaging."
)

// GenerationError reports which pass failed.
type GenerationError struct {
	Pass     string // "draft" or "refine"
	Provider string
	Err      error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("script %s pass (%s): %v", e.Pass, e.Provider, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// Generator runs the draft and refine passes against one LLM client. It
// does not retry; the client does.
type Generator struct {
	client llm.Client
	log    *slog.Logger
}

func NewGenerator(client llm.Client, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{client: client, log: logger}
}

// Generate drafts a dialogue from sourceText, then feeds the draft back for
// refinement and returns the refined dialogue. A failed refine pass is
// terminal; the draft is not returned.
func (g *Generator) Generate(ctx context.Context, system, sourceText string, shape dialogue.Shape) (*dialogue.Dialogue, error) {
	provider := g.client.Name()

	start := time.Now()
	draft, err := g.client.Generate(ctx, system, sourceText, shape)
	if err != nil {
		return nil, &GenerationError{Pass: "draft", Provider: provider, Err: err}
	}
	g.log.InfoContext(ctx, "draft dialogue generated",
		"provider", provider,
		"shape", shape,
		"items", len(draft.Items),
		"elapsed", time.Since(start).Round(time.Millisecond),
	)

	refineSystem, err := RefinePrompt(system, draft)
	if err != nil {
		return nil, &GenerationError{Pass: "refine", Provider: provider, Err: err}
	}

	start = time.Now()
	refined, err := g.client.Generate(ctx, refineSystem, refineUserPrompt, shape)
	if err != nil {
		return nil, &GenerationError{Pass: "refine", Provider: provider, Err: err}
	}
	g.log.InfoContext(ctx, "dialogue refined",
		"provider", provider,
		"items", len(refined.Items),
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	return refined, nil
}

// RefinePrompt is the system prompt of the refine pass: the original prompt
// with the draft appended as JSON.
func RefinePrompt(system string, draft *dialogue.Dialogue) (string, error) {
	js, err := draft.Canonical()
	if err != nil {
		return "", err
	}
	return system + draftIntro + js + "\n\n" + refineInstruction, nil
}
