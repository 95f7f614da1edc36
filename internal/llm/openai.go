package llm

import (
	"context"
	"errors"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"

	"github.com/apresai/podcraft/internal/config"
	"github.com/apresai/podcraft/internal/dialogue"
	"github.com/apresai/podcraft/internal/provider"
)

// responseMode is how an OpenAI-compatible endpoint is asked for JSON.
type responseMode int

const (
	// modePrompt puts the schema in the system prompt only.
	modePrompt responseMode = iota
	// modeJSONObject asks for any JSON object and puts the schema in the prompt.
	modeJSONObject
	// modeJSONSchema has the server enforce the schema.
	modeJSONSchema
)

const (
	siliconFlowBaseURL = "https://api.siliconflow.cn/v1"
	deepSeekBaseURL    = "https://api.deepseek.com/v1"
)

type openaiBackend struct {
	client      openai.Client
	model       string
	maxTokens   int
	temperature float64
	mode        responseMode
}

func newSiliconFlow(_ context.Context, cfg config.Platform, o *options) (backend, error) {
	return newOpenAICompatible("siliconflow", "SILICONFLOW_API_KEY", siliconFlowBaseURL, modePrompt, cfg, o)
}

func newOpenAI(_ context.Context, cfg config.Platform, o *options) (backend, error) {
	return newOpenAICompatible("openai", "OPENAI_API_KEY", "", modeJSONSchema, cfg, o)
}

func newDeepSeek(_ context.Context, cfg config.Platform, o *options) (backend, error) {
	return newOpenAICompatible("deepseek", "DEEPSEEK_API_KEY", deepSeekBaseURL, modeJSONObject, cfg, o)
}

func newOpenAICompatible(name, envHint, defaultBaseURL string, mode responseMode, cfg config.Platform, o *options) (backend, error) {
	if cfg.APIKey == "" {
		return nil, &provider.ConfigurationError{Provider: name, Field: "api_key", Hint: envHint}
	}
	if cfg.ModelID == "" {
		return nil, &provider.ConfigurationError{Provider: name, Field: "model_id"}
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(o.client(cfg.Timeout)),
		option.WithMaxRetries(0),
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	return &openaiBackend{
		client:      openai.NewClient(opts...),
		model:       cfg.ModelID,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		mode:        mode,
	}, nil
}

func (b *openaiBackend) complete(ctx context.Context, req request) (dialogue.Response, error) {
	system := req.System
	if b.mode != modeJSONSchema {
		system = withSchema(system, req.Schema)
	}

	params := openai.ChatCompletionNewParams{
		Model: b.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(req.User),
		},
		Temperature: param.NewOpt(b.temperature),
	}
	if b.maxTokens > 0 {
		params.MaxCompletionTokens = param.NewOpt(int64(b.maxTokens))
	}

	switch b.mode {
	case modeJSONObject:
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &openai.ResponseFormatJSONObjectParam{},
		}
	case modeJSONSchema:
		schema, err := dialogue.SchemaFor(req.Shape)
		if err != nil {
			return nil, err
		}
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:        "podcast_dialogue",
					Description: param.NewOpt("a podcast script as ordered speaker turns"),
					Schema:      schema,
					Strict:      param.NewOpt(true),
				},
			},
		}
	}

	resp, err := b.client.Chat.Completions.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return nil, provider.ClassifyStatus(err, apiErr.StatusCode)
		}
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("response has no choices")
	}
	text := resp.Choices[0].Message.Content
	if strings.TrimSpace(text) == "" {
		return nil, dialogue.ErrNoContent
	}
	if b.mode == modeJSONSchema {
		return structuredOrText(text, req.Shape), nil
	}
	return dialogue.TextResult{Text: text}, nil
}
