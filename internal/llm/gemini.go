package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/apresai/podcraft/internal/config"
	"github.com/apresai/podcraft/internal/dialogue"
	"github.com/apresai/podcraft/internal/provider"
)

var geminiModels = map[string]string{
	"gemini-flash": "gemini-2.5-flash",
	"gemini-pro":   "gemini-2.5-pro",
}

type geminiBackend struct {
	client      *genai.Client
	model       string
	maxTokens   int32
	temperature float32
}

func newGemini(ctx context.Context, cfg config.Platform, o *options) (backend, error) {
	if cfg.APIKey == "" {
		return nil, &provider.ConfigurationError{Provider: "gemini", Field: "api_key", Hint: "GEMINI_API_KEY"}
	}
	cc := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: o.client(cfg.Timeout),
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("genai client: %w", err)
	}

	model := cfg.ModelID
	if alias, ok := geminiModels[model]; ok {
		model = alias
	}
	if model == "" {
		model = geminiModels["gemini-flash"]
	}
	return &geminiBackend{
		client:      client,
		model:       model,
		maxTokens:   int32(cfg.MaxTokens),
		temperature: float32(cfg.Temperature),
	}, nil
}

func (b *geminiBackend) complete(ctx context.Context, req request) (dialogue.Response, error) {
	schema, err := dialogue.SchemaFor(req.Shape)
	if err != nil {
		return nil, err
	}
	temperature := b.temperature
	gc := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{genai.NewPartFromText(req.System)},
		},
		ResponseMIMEType:   "application/json",
		ResponseJsonSchema: schema,
		Temperature:        &temperature,
	}
	if b.maxTokens > 0 {
		gc.MaxOutputTokens = b.maxTokens
	}

	resp, err := b.client.Models.GenerateContent(ctx, b.model, []*genai.Content{
		{Role: "user", Parts: []*genai.Part{{Text: req.User}}},
	}, gc)
	if err != nil {
		return nil, classifyGenAI(fmt.Errorf("genai generate: %w", err))
	}

	var sb strings.Builder
	if resp != nil && len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		for _, part := range resp.Candidates[0].Content.Parts {
			sb.WriteString(part.Text)
		}
	}
	if strings.TrimSpace(sb.String()) == "" {
		return nil, dialogue.ErrNoContent
	}
	return structuredOrText(sb.String(), req.Shape), nil
}

// classifyGenAI stops retries on client errors from the Gemini API.
func classifyGenAI(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return provider.ClassifyStatus(err, apiErr.Code)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return provider.ClassifyStatus(err, apiErrPtr.Code)
	}
	return err
}
