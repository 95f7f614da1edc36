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
	elevenLabsBaseURL      = "https://api.elevenlabs.io/v1"
	elevenLabsModelID      = "eleven_multilingual_v2"
	elevenLabsOutputFormat = "mp3_44100_128"
)

type elevenLabsRequest struct {
	Text          string                 `json:"text"`
	ModelID       string                 `json:"model_id"`
	LanguageCode  string                 `json:"language_code,omitempty"`
	VoiceSettings *elevenLabsVoiceParams `json:"voice_settings,omitempty"`
}

type elevenLabsVoiceParams struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
	UseSpeakerBoost bool    `json:"use_speaker_boost"`
	Speed           float64 `json:"speed"`
}

// ElevenLabsProvider implements Provider using the ElevenLabs TTS API.
type ElevenLabsProvider struct {
	apiKey     string
	baseURL    string
	model      string
	speed      float64
	voices     voiceTable
	httpClient *http.Client
}

func newElevenLabs(_ context.Context, cfg config.Platform, o *options) (Provider, error) {
	if cfg.APIKey == "" {
		return nil, &provider.ConfigurationError{Provider: "elevenlabs", Field: "api_key", Hint: "ELEVENLABS_API_KEY"}
	}
	model := cfg.ModelID
	if model == "" {
		model = elevenLabsModelID
	}
	base := cfg.BaseURL
	if base == "" {
		base = elevenLabsBaseURL
	}
	speed := cfg.Speed
	if speed <= 0 {
		speed = 1.0
	}
	return &ElevenLabsProvider{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(base, "/"),
		model:   model,
		speed:   speed,
		voices: voiceTable{
			defaults: map[string]Voice{
				"host":   {ID: "EXAVITQu4vr4xnSDxMaL", Name: "Sarah"},
				"guest":  {ID: "JBFqnCBsd6RMkjVDRZzb", Name: "George"},
				"guest2": {ID: "ErXwobaYiN019PkySvjV", Name: "Antoni"},
				"guest3": {ID: "pFZP5JQG7iQjIQuC4Bku", Name: "Lily"},
				"guest4": {ID: "onwK4e9ZLuTAKqWW03F9", Name: "Daniel"},
			},
			overrides: cfg.Voices,
			fallback:  "guest",
		},
		httpClient: o.client(cfg.Timeout),
	}, nil
}

func (p *ElevenLabsProvider) Name() string { return "elevenlabs" }

func (p *ElevenLabsProvider) Capabilities() Capabilities { return Capabilities{} }

// VoiceFor ignores the language; multilingual voices detect it from text.
func (p *ElevenLabsProvider) VoiceFor(speaker, _ string) Voice {
	return p.voices.lookup(speaker)
}

func (p *ElevenLabsProvider) Synthesize(ctx context.Context, text string, voice Voice) (AudioResult, error) {
	reqBody := elevenLabsRequest{
		Text:    text,
		ModelID: p.model,
		VoiceSettings: &elevenLabsVoiceParams{
			Stability:       0.5,
			SimilarityBoost: 0.75,
			Style:           0.0,
			UseSpeakerBoost: true,
			Speed:           p.speed,
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return AudioResult{}, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/text-to-speech/%s?output_format=%s", p.baseURL, voice.ID, elevenLabsOutputFormat)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return AudioResult{}, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("xi-api-key", p.apiKey)
	req.Header.Set("Content-Type", "application/json")

	res, err := p.httpClient.Do(req)
	if err != nil {
		return AudioResult{}, fmt.Errorf("send request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(res.Body)
		return AudioResult{}, provider.ClassifyStatus(
			&provider.StatusError{Provider: "ElevenLabs", StatusCode: res.StatusCode, Body: string(errBody)},
			res.StatusCode,
		)
	}

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return AudioResult{}, fmt.Errorf("read response: %w", err)
	}

	return AudioResult{Data: data, Format: FormatMP3}, nil
}

func (p *ElevenLabsProvider) Close() error { return nil }

func elevenLabsAvailableVoices() []VoiceInfo {
	return []VoiceInfo{
		{ID: "EXAVITQu4vr4xnSDxMaL", Name: "Sarah", Gender: "female", Description: "Soft American female, friendly and engaging", DefaultFor: "Host"},
		{ID: "JBFqnCBsd6RMkjVDRZzb", Name: "George", Gender: "male", Description: "Warm British male, clear and authoritative", DefaultFor: "Guest"},
		{ID: "ErXwobaYiN019PkySvjV", Name: "Antoni", Gender: "male", Description: "Young American male, conversational", DefaultFor: "Guest 2"},
		{ID: "pFZP5JQG7iQjIQuC4Bku", Name: "Lily", Gender: "female", Description: "British female, warm storyteller", DefaultFor: "Guest 3"},
		{ID: "onwK4e9ZLuTAKqWW03F9", Name: "Daniel", Gender: "male", Description: "British male, authoritative news anchor", DefaultFor: "Guest 4"},
		{ID: "pNInz6obpgDQGcFmaJgB", Name: "Adam", Gender: "male", Description: "Deep American male, confident narrator"},
		{ID: "MF3mGyEYCl7XYWbV9V6O", Name: "Elli", Gender: "female", Description: "Young American female, bright and expressive"},
		{ID: "XB0fDUnXU5powFXDhCwa", Name: "Charlotte", Gender: "female", Description: "Swedish-English female, warm and natural"},
	}
}
