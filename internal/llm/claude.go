package llm

import (
	"context"
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"

	"github.com/apresai/podcraft/internal/config"
	"github.com/apresai/podcraft/internal/dialogue"
	"github.com/apresai/podcraft/internal/provider"
)

var claudeModels = map[string]string{
	"haiku":  "claude-haiku-4-5-20251001",
	"sonnet": "claude-sonnet-4-5-20250929",
}

type claudeBackend struct {
	client      anthropic.Client
	model       string
	maxTokens   int64
	temperature float64
}

func newClaude(_ context.Context, cfg config.Platform, o *options) (backend, error) {
	if cfg.APIKey == "" {
		return nil, &provider.ConfigurationError{Provider: "claude", Field: "api_key", Hint: "ANTHROPIC_API_KEY"}
	}
	model := cfg.ModelID
	if alias, ok := claudeModels[model]; ok {
		model = alias
	}
	if model == "" {
		model = claudeModels["haiku"]
	}
	maxTokens := int64(cfg.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 8192
	}

	opts := []anthropicoption.RequestOption{
		anthropicoption.WithAPIKey(cfg.APIKey),
		anthropicoption.WithHTTPClient(o.client(cfg.Timeout)),
		anthropicoption.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, anthropicoption.WithBaseURL(cfg.BaseURL))
	}

	return &claudeBackend{
		client:      anthropic.NewClient(opts...),
		model:       model,
		maxTokens:   maxTokens,
		temperature: cfg.Temperature,
	}, nil
}

func (b *claudeBackend) complete(ctx context.Context, req request) (dialogue.Response, error) {
	message, err := b.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(b.model),
		MaxTokens:   b.maxTokens,
		Temperature: anthropic.Float(b.temperature),
		System: []anthropic.TextBlockParam{
			{Text: withSchema(req.System, req.Schema)},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.User)),
		},
	})
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return nil, provider.ClassifyStatus(err, apiErr.StatusCode)
		}
		return nil, err
	}

	text := extractClaudeText(message)
	if strings.TrimSpace(text) == "" {
		return nil, dialogue.ErrNoContent
	}
	return dialogue.TextResult{Text: text}, nil
}

func extractClaudeText(msg *anthropic.Message) string {
	var parts []string
	for _, block := range msg.Content {
		if tb, ok := block.AsAny().(anthropic.TextBlock); ok {
			parts = append(parts, tb.Text)
		}
	}
	return strings.Join(parts, "")
}
