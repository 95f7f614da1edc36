package tts

import (
	"context"

	"github.com/apresai/podcraft/internal/config"
	"github.com/apresai/podcraft/internal/provider"
	"github.com/apresai/podcraft/internal/retry"
)

// stubProvider accepts credentials for a vendor whose API is not wired up
// yet and fails every synthesis call.
type stubProvider struct {
	name string
}

func newStub(name string, required map[string]string) func(context.Context, config.Platform, *options) (Provider, error) {
	return func(_ context.Context, cfg config.Platform, _ *options) (Provider, error) {
		fields := map[string]string{"app_id": cfg.AppID, "api_key": cfg.APIKey, "secret_key": cfg.SecretKey}
		for _, field := range []string{"app_id", "api_key", "secret_key"} {
			hint, ok := required[field]
			if ok && fields[field] == "" {
				return nil, &provider.ConfigurationError{Provider: name, Field: field, Hint: hint}
			}
		}
		return stubProvider{name: name}, nil
	}
}

func (p stubProvider) Name() string { return p.name }

func (p stubProvider) Capabilities() Capabilities { return Capabilities{} }

func (p stubProvider) VoiceFor(speaker, _ string) Voice { return Voice{ID: voiceKey(speaker)} }

func (p stubProvider) Synthesize(context.Context, string, Voice) (AudioResult, error) {
	return AudioResult{}, retry.Permanent(&provider.NotImplementedError{Provider: p.name, Operation: "synthesize"})
}

func (p stubProvider) Close() error { return nil }
