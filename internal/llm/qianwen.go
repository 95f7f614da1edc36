package llm

import (
	"context"

	"github.com/apresai/podcraft/internal/config"
	"github.com/apresai/podcraft/internal/dialogue"
	"github.com/apresai/podcraft/internal/provider"
	"github.com/apresai/podcraft/internal/retry"
)

// qianwenBackend accepts credentials but has no API integration yet.
type qianwenBackend struct{}

func newQianwen(_ context.Context, cfg config.Platform, _ *options) (backend, error) {
	if cfg.APIKey == "" {
		return nil, &provider.ConfigurationError{Provider: "qianwen", Field: "api_key", Hint: "QIANWEN_API_KEY"}
	}
	if cfg.SecretKey == "" {
		return nil, &provider.ConfigurationError{Provider: "qianwen", Field: "secret_key", Hint: "QIANWEN_SECRET_KEY"}
	}
	return qianwenBackend{}, nil
}

func (qianwenBackend) complete(context.Context, request) (dialogue.Response, error) {
	return nil, retry.Permanent(&provider.NotImplementedError{Provider: "qianwen", Operation: "generate"})
}
