package tts

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/apresai/podcraft/internal/config"
	"github.com/apresai/podcraft/internal/provider"
)

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
		timeout = 60 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

type constructor func(ctx context.Context, cfg config.Platform, o *options) (Provider, error)

var constructors = map[string]constructor{
	"siliconflow": newSiliconFlow,
	"baidu":       newBaidu,
	"elevenlabs":  newElevenLabs,
	"google":      newGoogle,
	"polly":       newPolly,
	"ali": newStub("ali", map[string]string{
		"api_key":    "ALI_ACCESS_KEY_ID",
		"secret_key": "ALI_ACCESS_KEY_SECRET",
		"app_id":     "ALI_APP_KEY",
	}),
	"xunfei": newStub("xunfei", map[string]string{
		"app_id":     "XUNFEI_APP_ID",
		"api_key":    "XUNFEI_API_KEY",
		"secret_key": "XUNFEI_API_SECRET",
	}),
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
func New(ctx context.Context, kind string, cfg config.Platform, opts ...Option) (*Client, error) {
	o := &options{logger: slog.Default()}
	for _, opt := range opts {
		opt(o)
	}

	ctor, ok := constructors[kind]
	if !ok {
		return nil, &provider.UnsupportedProviderError{Kind: kind, Known: Kinds()}
	}
	p, err := ctor(ctx, cfg, o)
	if err != nil {
		return nil, err
	}
	return NewClient(p, cfg.Retry(), o.logger), nil
}

// NewRegistry returns a registry that builds TTS clients from cfg on demand.
func NewRegistry(cfg config.ProvidersConfig, opts ...Option) *provider.Registry[*Client] {
	return provider.NewRegistry[*Client](func(ctx context.Context, kind string) (*Client, error) {
		return New(ctx, kind, cfg.Platform(kind), opts...)
	})
}
