package tts

import (
	"context"
	"fmt"
	"strings"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	texttospeechpb "cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"google.golang.org/api/option"

	"github.com/apresai/podcraft/internal/config"
	"github.com/apresai/podcraft/internal/provider"
)

// googleLangVoices holds Chirp 3 HD voice names per language, in speaker
// order: host, guest, guest2, guest3, guest4.
var googleLangVoices = map[string][]string{
	"en": {"en-US-Chirp3-HD-Leda", "en-US-Chirp3-HD-Charon", "en-US-Chirp3-HD-Fenrir", "en-US-Chirp3-HD-Kore", "en-US-Chirp3-HD-Puck"},
	"zh": {"cmn-CN-Chirp3-HD-Leda", "cmn-CN-Chirp3-HD-Charon", "cmn-CN-Chirp3-HD-Fenrir", "cmn-CN-Chirp3-HD-Kore", "cmn-CN-Chirp3-HD-Puck"},
	"fr": {"fr-FR-Chirp3-HD-Leda", "fr-FR-Chirp3-HD-Charon", "fr-FR-Chirp3-HD-Fenrir", "fr-FR-Chirp3-HD-Kore", "fr-FR-Chirp3-HD-Puck"},
	"de": {"de-DE-Chirp3-HD-Leda", "de-DE-Chirp3-HD-Charon", "de-DE-Chirp3-HD-Fenrir", "de-DE-Chirp3-HD-Kore", "de-DE-Chirp3-HD-Puck"},
	"es": {"es-ES-Chirp3-HD-Leda", "es-ES-Chirp3-HD-Charon", "es-ES-Chirp3-HD-Fenrir", "es-ES-Chirp3-HD-Kore", "es-ES-Chirp3-HD-Puck"},
	"ja": {"ja-JP-Chirp3-HD-Leda", "ja-JP-Chirp3-HD-Charon", "ja-JP-Chirp3-HD-Fenrir", "ja-JP-Chirp3-HD-Kore", "ja-JP-Chirp3-HD-Puck"},
}

var googleVoiceKeys = []string{"host", "guest", "guest2", "guest3", "guest4"}

// GoogleProvider implements Provider using Google Cloud TTS (Chirp 3 HD).
type GoogleProvider struct {
	client    *texttospeech.Client
	speed     float64
	overrides map[string]string
}

func newGoogle(ctx context.Context, cfg config.Platform, _ *options) (Provider, error) {
	var opts []option.ClientOption
	if cfg.APIKey != "" {
		// api_key holds a service account credentials file path.
		opts = append(opts, option.WithCredentialsFile(cfg.APIKey))
	}
	client, err := texttospeech.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create Google TTS client: %w", err)
	}
	return &GoogleProvider{client: client, speed: cfg.Speed, overrides: cfg.Voices}, nil
}

func (p *GoogleProvider) Name() string { return "google" }

func (p *GoogleProvider) Capabilities() Capabilities { return Capabilities{} }

func (p *GoogleProvider) VoiceFor(speaker, language string) Voice {
	key := voiceKey(speaker)
	if id := p.overrides[key]; id != "" {
		return Voice{ID: id, Name: id}
	}
	voices, ok := googleLangVoices[language]
	if !ok {
		voices = googleLangVoices["en"]
	}
	for i, k := range googleVoiceKeys {
		if k == key {
			return Voice{ID: voices[i], Name: voiceShortName(voices[i])}
		}
	}
	return Voice{ID: voices[1], Name: voiceShortName(voices[1])}
}

func (p *GoogleProvider) Synthesize(ctx context.Context, text string, voice Voice) (AudioResult, error) {
	req := &texttospeechpb.SynthesizeSpeechRequest{
		Input: &texttospeechpb.SynthesisInput{
			InputSource: &texttospeechpb.SynthesisInput_Text{Text: text},
		},
		Voice: &texttospeechpb.VoiceSelectionParams{
			LanguageCode: voiceLanguage(voice.ID),
			Name:         voice.ID,
		},
		AudioConfig: p.audioConfig(),
	}

	resp, err := p.client.SynthesizeSpeech(ctx, req)
	if err != nil {
		return AudioResult{}, provider.ClassifyGRPC(fmt.Errorf("Google TTS synthesize: %w", err))
	}
	return AudioResult{Data: resp.AudioContent, Format: FormatMP3}, nil
}

func (p *GoogleProvider) audioConfig() *texttospeechpb.AudioConfig {
	cfg := &texttospeechpb.AudioConfig{
		AudioEncoding: texttospeechpb.AudioEncoding_MP3,
	}
	if p.speed != 0 {
		cfg.SpeakingRate = p.speed
	}
	return cfg
}

func (p *GoogleProvider) Close() error { return p.client.Close() }

// voiceLanguage extracts "en-US" from "en-US-Chirp3-HD-Leda".
func voiceLanguage(id string) string {
	parts := strings.SplitN(id, "-", 3)
	if len(parts) < 2 {
		return "en-US"
	}
	return parts[0] + "-" + parts[1]
}

func voiceShortName(id string) string {
	return id[strings.LastIndex(id, "-")+1:]
}

func googleAvailableVoices() []VoiceInfo {
	return []VoiceInfo{
		{ID: "en-US-Chirp3-HD-Leda", Name: "Leda", Gender: "female", Description: "Youthful, bright female voice", DefaultFor: "Host"},
		{ID: "en-US-Chirp3-HD-Charon", Name: "Charon", Gender: "male", Description: "Informative, clear male narrator", DefaultFor: "Guest"},
		{ID: "en-US-Chirp3-HD-Fenrir", Name: "Fenrir", Gender: "male", Description: "Deep, resonant male voice", DefaultFor: "Guest 2"},
		{ID: "en-US-Chirp3-HD-Kore", Name: "Kore", Gender: "female", Description: "Firm, confident female voice", DefaultFor: "Guest 3"},
		{ID: "en-US-Chirp3-HD-Puck", Name: "Puck", Gender: "male", Description: "Upbeat, energetic male voice", DefaultFor: "Guest 4"},
		{ID: "en-US-Chirp3-HD-Aoede", Name: "Aoede", Gender: "female", Description: "Bright, expressive female voice"},
		{ID: "en-US-Chirp3-HD-Orus", Name: "Orus", Gender: "male", Description: "Warm, steady male narrator"},
		{ID: "en-US-Chirp3-HD-Zephyr", Name: "Zephyr", Gender: "female", Description: "Breezy, relaxed female voice"},
	}
}
