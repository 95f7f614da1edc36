// Package tts turns dialogue text into speech files through swappable
// text-to-speech providers.
package tts

import (
	"context"
	"fmt"
	"strings"

	"github.com/apresai/podcraft/internal/dialogue"
)

// AudioFormat represents the audio encoding returned by a provider.
type AudioFormat string

const (
	FormatMP3 AudioFormat = "mp3"
)

// Voice holds a provider-specific voice identifier.
type Voice struct {
	ID   string // Provider-specific voice identifier
	Name string // Human-readable label
}

// AudioResult is the output of a synthesis call.
type AudioResult struct {
	Data   []byte
	Format AudioFormat
}

// Capabilities describes what a provider can do beyond plain synthesis.
type Capabilities struct {
	// ConsistentBatch providers accept a whole [S1]..[S5] tagged script in
	// one request and keep every speaker's timbre stable across it.
	ConsistentBatch bool
	// SpeakerTags providers expect every input to carry a speaker tag.
	SpeakerTags bool
}

// Provider synthesizes speech from text.
type Provider interface {
	Name() string
	Capabilities() Capabilities
	// VoiceFor picks the voice for a speaker role in a language.
	VoiceFor(speaker, language string) Voice
	Synthesize(ctx context.Context, text string, voice Voice) (AudioResult, error)
	Close() error
}

// VoiceInfo describes an available voice for display in the catalog.
type VoiceInfo struct {
	ID          string
	Name        string
	Gender      string // "male" or "female"
	Description string
	DefaultFor  string // speaker role, or ""
}

// AvailableVoices returns the voice catalog for the named provider.
func AvailableVoices(kind string) ([]VoiceInfo, error) {
	switch kind {
	case "siliconflow":
		return siliconFlowAvailableVoices(), nil
	case "baidu":
		return baiduAvailableVoices(), nil
	case "elevenlabs":
		return elevenLabsAvailableVoices(), nil
	case "google":
		return googleAvailableVoices(), nil
	case "polly":
		return pollyAvailableVoices(), nil
	case "ali", "xunfei":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown TTS provider %q", kind)
	}
}

// voiceKey is the config key of a speaker's voice override: "host",
// "guest", "guest2" and so on. The combined batch speaker uses the host key.
func voiceKey(speaker string) string {
	switch dialogue.Speaker(speaker) {
	case dialogue.Host:
		return "host"
	case dialogue.Guest:
		return "guest"
	case dialogue.Guest2, dialogue.Guest3, dialogue.Guest4:
		return strings.ToLower(strings.ReplaceAll(speaker, " ", ""))
	}
	if speaker == dialogue.CombinedSpeaker {
		return "host"
	}
	return "guest"
}

// voiceTable resolves a speaker to a voice from defaults and overrides keyed
// by voiceKey.
type voiceTable struct {
	defaults  map[string]Voice
	overrides map[string]string
	fallback  string
}

func (t voiceTable) lookup(speaker string) Voice {
	key := voiceKey(speaker)
	if id := t.overrides[key]; id != "" {
		return Voice{ID: id, Name: id}
	}
	if v, ok := t.defaults[key]; ok {
		return v
	}
	if id := t.overrides[t.fallback]; id != "" {
		return Voice{ID: id, Name: id}
	}
	return t.defaults[t.fallback]
}
