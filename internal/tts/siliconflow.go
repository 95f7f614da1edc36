package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/apresai/podcraft/internal/config"
	"github.com/apresai/podcraft/internal/provider"
)

const (
	siliconFlowBaseURL      = "https://api.siliconflow.cn/v1"
	siliconFlowDefaultModel = "FunAudioLLM/CosyVoice2-0.5B"
)

type siliconFlowRequest struct {
	Model          string  `json:"model"`
	Input          string  `json:"input"`
	Voice          string  `json:"voice"`
	ResponseFormat string  `json:"response_format"`
	Speed          float64 `json:"speed"`
}

// SiliconFlowProvider implements Provider using the SiliconFlow speech API
// (CosyVoice). It understands [S1]..[S5] speaker tags, so a whole script
// can be synthesized in one consistent pass.
type SiliconFlowProvider struct {
	apiKey     string
	endpoint   string
	model      string
	speed      float64
	voices     voiceTable
	httpClient *http.Client
}

func newSiliconFlow(_ context.Context, cfg config.Platform, o *options) (Provider, error) {
	if cfg.APIKey == "" {
		return nil, &provider.ConfigurationError{Provider: "siliconflow", Field: "api_key", Hint: "SILICONFLOW_API_KEY"}
	}
	model := cfg.ModelID
	if model == "" {
		model = siliconFlowDefaultModel
	}
	base := cfg.BaseURL
	if base == "" {
		base = siliconFlowBaseURL
	}
	speed := cfg.Speed
	if speed <= 0 {
		speed = 1.0
	}
	return &SiliconFlowProvider{
		apiKey:   cfg.APIKey,
		endpoint: strings.TrimRight(base, "/") + "/audio/speech",
		model:    model,
		speed:    speed,
		voices: voiceTable{
			defaults: map[string]Voice{
				"host":  {ID: model + ":alex", Name: "alex"},
				"guest": {ID: model + ":anna", Name: "anna"},
			},
			overrides: cfg.Voices,
			fallback:  "host",
		},
		httpClient: o.client(cfg.Timeout),
	}, nil
}

func (p *SiliconFlowProvider) Name() string { return "siliconflow" }

func (p *SiliconFlowProvider) Capabilities() Capabilities {
	return Capabilities{ConsistentBatch: true, SpeakerTags: true}
}

// VoiceFor returns the configured voice for the speaker's role; roles
// without one use the host voice. Tags inside the text select the actual
// speaker, so the language is not needed.
func (p *SiliconFlowProvider) VoiceFor(speaker, _ string) Voice {
	return p.voices.lookup(speaker)
}

func (p *SiliconFlowProvider) Synthesize(ctx context.Context, text string, voice Voice) (AudioResult, error) {
	bodyBytes, err := json.Marshal(siliconFlowRequest{
		Model:          p.model,
		Input:          text,
		Voice:          voice.ID,
		ResponseFormat: "mp3",
		Speed:          p.speed,
	})
	if err != nil {
		return AudioResult{}, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return AudioResult{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Content-Type", "application/json")

	res, err := p.httpClient.Do(req)
	if err != nil {
		return AudioResult{}, fmt.Errorf("send request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(res.Body)
		return AudioResult{}, provider.ClassifyStatus(
			&provider.StatusError{Provider: "SiliconFlow", StatusCode: res.StatusCode, Body: string(errBody)},
			res.StatusCode,
		)
	}

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return AudioResult{}, fmt.Errorf("read response: %w", err)
	}
	return AudioResult{Data: data, Format: FormatMP3}, nil
}

func (p *SiliconFlowProvider) Close() error { return nil }

func siliconFlowAvailableVoices() []VoiceInfo {
	return []VoiceInfo{
		{ID: siliconFlowDefaultModel + ":alex", Name: "alex", Gender: "male", Description: "Steady male voice", DefaultFor: "Host"},
		{ID: siliconFlowDefaultModel + ":anna", Name: "anna", Gender: "female", Description: "Calm female voice", DefaultFor: "Guest"},
		{ID: siliconFlowDefaultModel + ":benjamin", Name: "benjamin", Gender: "male", Description: "Deep male voice"},
		{ID: siliconFlowDefaultModel + ":charles", Name: "charles", Gender: "male", Description: "Magnetic male voice"},
		{ID: siliconFlowDefaultModel + ":david", Name: "david", Gender: "male", Description: "Cheerful male voice"},
		{ID: siliconFlowDefaultModel + ":bella", Name: "bella", Gender: "female", Description: "Passionate female voice"},
		{ID: siliconFlowDefaultModel + ":claire", Name: "claire", Gender: "female", Description: "Gentle female voice"},
		{ID: siliconFlowDefaultModel + ":diana", Name: "diana", Gender: "female", Description: "Sweet female voice"},
	}
}
