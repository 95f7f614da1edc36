package llm

import (
	"context"
	"log/slog"
	"sort"

	"github.com/apresai/podcraft/internal/config"
	"github.com/apresai/podcraft/internal/provider"
)

type constructor func(ctx context.Context, cfg config.Platform, o *options) (backend, error)

var constructors = map[string]constructor{
	"siliconflow": newSiliconFlow,
	"openai":      newOpenAI,
	"deepseek":    newDeepSeek,
	"claude":      newClaude,
	"nova":        newNova,
	"gemini":      newGemini,
	"ernie":       newErnie,
	"qianwen":     newQianwen,
}

// Kinds lists the provider kinds New accepts.
func Kinds() []string {
	kinds := make([]string, 0, len(constructors))
	for k := range constructors {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// New builds the client for kind. Unknown kinds and missing credentials are
// reported here, before any network traffic.
func New(ctx context.Context, kind string, cfg config.Platform, opts ...Option) (Client, error) {
	o := &options{logger: slog.Default()}
	for _, opt := range opts {
		opt(o)
	}

	ctor, ok := constructors[kind]
	if !ok {
		return nil, &provider.UnsupportedProviderError{Kind: kind, Known: Kinds()}
	}
	b, err := ctor(ctx, cfg, o)
	if err != nil {
		return nil, err
	}
	return &client{
		name:    kind,
		backend: b,
		policy:  cfg.Retry(),
		log:     o.logger,
	}, nil
}

// NewRegistry returns a registry that builds LLM clients from cfg on demand.
func NewRegistry(cfg config.ProvidersConfig, opts ...Option) *provider.Registry[Client] {
	return provider.NewRegistry[Client](func(ctx context.Context, kind string) (Client, error) {
		return New(ctx, kind, cfg.Platform(kind), opts...)
	})
}
