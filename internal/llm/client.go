// Package llm talks to the language model providers that write podcast
// scripts. Every provider is reached through the same Client, which owns
// retries and response normalization.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/apresai/podcraft/internal/dialogue"
	"github.com/apresai/podcraft/internal/retry"
)

// Client generates a dialogue from a system and a user prompt.
type Client interface {
	Name() string
	Generate(ctx context.Context, systemPrompt, userPrompt string, shape dialogue.Shape) (*dialogue.Dialogue, error)
}

// ProviderError is returned when a provider call fails after retries or its
// response cannot be turned into a dialogue.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("llm provider %s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// request is one completion call as a backend sees it.
type request struct {
	System string
	User   string
	Shape  dialogue.Shape
	Schema string // JSON schema of the expected dialogue
}

// backend performs one attempt against a provider API.
type backend interface {
	complete(ctx context.Context, req request) (dialogue.Response, error)
}

type options struct {
	logger     *slog.Logger
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*options)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithHTTPClient replaces the HTTP client used by REST-based providers.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

func (o *options) client(timeout time.Duration) *http.Client {
	if o.httpClient != nil {
		return o.httpClient
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

type client struct {
	name    string
	backend backend
	policy  retry.Policy
	log     *slog.Logger
}

func (c *client) Name() string { return c.name }

func (c *client) Generate(ctx context.Context, systemPrompt, userPrompt string, shape dialogue.Shape) (*dialogue.Dialogue, error) {
	schema, err := dialogue.SchemaJSON(shape)
	if err != nil {
		return nil, &ProviderError{Provider: c.name, Err: err}
	}
	req := request{System: systemPrompt, User: userPrompt, Shape: shape, Schema: schema}

	var out *dialogue.Dialogue
	attempt := 0
	err = c.policy.Do(ctx, func(ctx context.Context) error {
		attempt++
		start := time.Now()
		resp, err := c.backend.complete(ctx, req)
		if err != nil {
			c.log.WarnContext(ctx, "llm call failed", "provider", c.name, "attempt", attempt, "error", err)
			return err
		}
		d, err := dialogue.Normalize(resp, shape)
		if err != nil {
			c.log.WarnContext(ctx, "llm response unusable", "provider", c.name, "attempt", attempt, "error", err)
			return err
		}
		c.log.DebugContext(ctx, "llm call done", "provider", c.name, "items", len(d.Items), "elapsed", time.Since(start))
		out = d
		return nil
	})
	if err != nil {
		return nil, &ProviderError{Provider: c.name, Err: err}
	}
	return out, nil
}

// Close releases the backend's resources, if it holds any.
func (c *client) Close() error {
	if cl, ok := c.backend.(io.Closer); ok {
		return cl.Close()
	}
	return nil
}

// withSchema appends the response schema to a system prompt for providers
// that cannot enforce it themselves.
func withSchema(system, schema string) string {
	return system + "\n\nRespond with a single JSON object that matches this JSON schema, and nothing else:\n" + schema
}

// structuredOrText wraps the reply of a backend whose server enforced the
// dialogue schema. A reply that decodes into a valid dialogue for shape is
// structured; anything else goes through the text normalizers.
func structuredOrText(text string, shape dialogue.Shape) dialogue.Response {
	var d dialogue.Dialogue
	if err := json.Unmarshal([]byte(text), &d); err == nil && d.Validate(shape) == nil {
		return dialogue.StructuredResult{Dialogue: &d}
	}
	return dialogue.TextResult{Text: text}
}
