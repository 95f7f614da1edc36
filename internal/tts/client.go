package tts

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/apresai/podcraft/internal/dialogue"
	"github.com/apresai/podcraft/internal/retry"
)

// Request is one synthesis call.
type Request struct {
	Text      string
	Speaker   string // a dialogue speaker, or dialogue.CombinedSpeaker
	Language  string // language code, e.g. "zh"
	OutputDir string
	Seq       int // position of the item in the dialogue
}

// SynthesisError is returned when a provider cannot produce audio.
type SynthesisError struct {
	Provider string
	Speaker  string
	Seq      int
	Err      error
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("tts provider %s: synthesize %s #%d: %v", e.Provider, e.Speaker, e.Seq, e.Err)
}

func (e *SynthesisError) Unwrap() error { return e.Err }

// Client wraps a Provider with retries, voice selection and file output.
type Client struct {
	provider Provider
	policy   retry.Policy
	log      *slog.Logger
	now      func() time.Time
}

// NewClient wraps p. It is what New returns for configured kinds; tests use
// it directly with fake providers.
func NewClient(p Provider, policy retry.Policy, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{provider: p, policy: policy, log: logger, now: time.Now}
}

func (c *Client) Name() string { return c.provider.Name() }

func (c *Client) Capabilities() Capabilities { return c.provider.Capabilities() }

// Close releases the provider.
func (c *Client) Close() error { return c.provider.Close() }

// Synthesize produces one audio file for req and returns its path. The file
// is named <provider>_audio_<speaker>_<seq>_<unix time>.mp3.
func (c *Client) Synthesize(ctx context.Context, req Request) (string, error) {
	fail := func(err error) (string, error) {
		return "", &SynthesisError{Provider: c.Name(), Speaker: req.Speaker, Seq: req.Seq, Err: err}
	}

	text := req.Text
	if c.provider.Capabilities().SpeakerTags {
		text = tagText(text, req.Speaker)
	}
	if strings.TrimSpace(text) == "" {
		return fail(fmt.Errorf("empty text"))
	}
	voice := c.provider.VoiceFor(req.Speaker, req.Language)

	var audio AudioResult
	start := time.Now()
	err := c.policy.Do(ctx, func(ctx context.Context) error {
		var err error
		audio, err = c.provider.Synthesize(ctx, text, voice)
		if err != nil {
			c.log.WarnContext(ctx, "tts call failed", "provider", c.Name(), "speaker", req.Speaker, "seq", req.Seq, "error", err)
		}
		return err
	})
	if err != nil {
		return fail(err)
	}
	if len(audio.Data) == 0 {
		return fail(fmt.Errorf("provider returned no audio"))
	}

	dir := req.OutputDir
	if dir == "" {
		dir = "."
	}
	path := c.uniquePath(dir, req)
	if err := os.WriteFile(path, audio.Data, 0644); err != nil {
		return fail(fmt.Errorf("write audio: %w", err))
	}
	c.log.DebugContext(ctx, "tts segment written",
		"provider", c.Name(),
		"speaker", req.Speaker,
		"seq", req.Seq,
		"chars", len([]rune(text)),
		"bytes", len(audio.Data),
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	return path, nil
}

var unsafeChars = regexp.MustCompile(`[^\w\-]+`)

func (c *Client) uniquePath(dir string, req Request) string {
	speaker := strings.Trim(unsafeChars.ReplaceAllString(req.Speaker, "_"), "_")
	base := fmt.Sprintf("%s_audio_%s_%d_%d", c.Name(), speaker, req.Seq, c.now().Unix())
	path := filepath.Join(dir, base+".mp3")
	for n := 1; fileExists(path); n++ {
		path = filepath.Join(dir, fmt.Sprintf("%s_%d.mp3", base, n))
	}
	return path
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// tagText prefixes a single utterance with its speaker tag. Combined text
// that already carries tags is sent unchanged.
func tagText(text, speaker string) string {
	if speaker == dialogue.CombinedSpeaker && dialogue.HasTags(text) {
		return text
	}
	return dialogue.Tag(dialogue.Speaker(speaker)) + text
}
