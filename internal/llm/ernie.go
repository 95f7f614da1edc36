package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2"

	"github.com/apresai/podcraft/internal/config"
	"github.com/apresai/podcraft/internal/dialogue"
	"github.com/apresai/podcraft/internal/provider"
	"github.com/apresai/podcraft/internal/retry"
)

// ernieEndpoints maps model IDs to their Qianfan chat endpoint names.
var ernieEndpoints = map[string]string{
	"ernie-4.0":       "completions_pro",
	"ernie-4.0-turbo": "ernie-4.0-turbo-8k",
	"ernie-3.5":       "completions",
	"ernie-speed":     "ernie_speed",
}

const ernieChatPath = "/rpc/2.0/ai_custom/v1/wenxinworkshop/chat/"

type ernieBackend struct {
	httpClient  *http.Client
	tokens      oauth2.TokenSource
	endpoint    string
	temperature float64
}

type ernieMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ernieRequest struct {
	Messages    []ernieMessage `json:"messages"`
	System      string         `json:"system,omitempty"`
	Temperature float64        `json:"temperature,omitempty"`
}

type ernieResponse struct {
	Result    string `json:"result"`
	ErrorCode int    `json:"error_code"`
	ErrorMsg  string `json:"error_msg"`
}

func newErnie(_ context.Context, cfg config.Platform, o *options) (backend, error) {
	if cfg.APIKey == "" {
		return nil, &provider.ConfigurationError{Provider: "ernie", Field: "api_key", Hint: "ERNIE_API_KEY"}
	}
	if cfg.SecretKey == "" {
		return nil, &provider.ConfigurationError{Provider: "ernie", Field: "secret_key", Hint: "ERNIE_SECRET_KEY"}
	}

	model := cfg.ModelID
	if model == "" {
		model = "ernie-4.0"
	}
	name, ok := ernieEndpoints[model]
	if !ok {
		name = model
	}
	base := cfg.BaseURL
	if base == "" {
		base = provider.BaiduBaseURL
	}
	base = strings.TrimRight(base, "/")

	httpClient := o.client(cfg.Timeout)
	return &ernieBackend{
		httpClient:  httpClient,
		tokens:      provider.BaiduTokenSource(httpClient, base, cfg.APIKey, cfg.SecretKey),
		endpoint:    base + ernieChatPath + name,
		temperature: ernieTemperature(cfg.Temperature),
	}, nil
}

// ernieTemperature clamps to the (0, 1] range the API accepts.
func ernieTemperature(t float64) float64 {
	switch {
	case t <= 0:
		return 0.01
	case t > 1:
		return 1
	default:
		return t
	}
}

func (b *ernieBackend) complete(ctx context.Context, req request) (dialogue.Response, error) {
	tok, err := b.tokens.Token()
	if err != nil {
		return nil, provider.ClassifyToken(fmt.Errorf("fetch access token: %w", err))
	}

	body, err := json.Marshal(ernieRequest{
		Messages:    []ernieMessage{{Role: "user", Content: req.User}},
		System:      withSchema(req.System, req.Schema),
		Temperature: b.temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	u := b.endpoint + "?access_token=" + url.QueryEscape(tok.AccessToken)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := b.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("ernie request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, provider.ClassifyStatus(&provider.StatusError{Provider: "ernie", StatusCode: resp.StatusCode, Body: string(data)}, resp.StatusCode)
	}

	var out ernieResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if out.ErrorCode != 0 {
		err := fmt.Errorf("ernie error %d: %s", out.ErrorCode, out.ErrorMsg)
		// 110/111 are invalid or expired tokens; 336xxx are request errors.
		if out.ErrorCode == 110 || out.ErrorCode == 111 || out.ErrorCode >= 336000 {
			return nil, retry.Permanent(err)
		}
		return nil, err
	}
	if strings.TrimSpace(out.Result) == "" {
		return nil, dialogue.ErrNoContent
	}
	return dialogue.TextResult{Text: out.Result}, nil
}
