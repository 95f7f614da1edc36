package tts

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/apresai/podcraft/internal/config"
	"github.com/apresai/podcraft/internal/dialogue"
	"github.com/apresai/podcraft/internal/provider"
)

var quiet = WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))

func TestNewUnsupportedKind(t *testing.T) {
	_, err := New(context.Background(), "acme", config.Platform{})
	var unsupported *provider.UnsupportedProviderError
	if !errors.As(err, &unsupported) {
		t.Fatalf("err = %v, want UnsupportedProviderError", err)
	}
}

func TestNewMissingCredentials(t *testing.T) {
	tests := []struct {
		kind  string
		cfg   config.Platform
		field string
	}{
		{"siliconflow", config.Platform{}, "api_key"},
		{"baidu", config.Platform{APIKey: "a", SecretKey: "s"}, "app_id"},
		{"baidu", config.Platform{AppID: "1", APIKey: "a"}, "secret_key"},
		{"elevenlabs", config.Platform{}, "api_key"},
		{"xunfei", config.Platform{APIKey: "a", SecretKey: "s"}, "app_id"},
	}
	for _, tt := range tests {
		_, err := New(context.Background(), tt.kind, tt.cfg)
		var cfgErr *provider.ConfigurationError
		if !errors.As(err, &cfgErr) || cfgErr.Field != tt.field {
			t.Errorf("%s: err = %v, want missing %s", tt.kind, err, tt.field)
		}
	}
}

func TestSiliconFlowSynthesize(t *testing.T) {
	var got siliconFlowRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/audio/speech" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer sk" {
			t.Errorf("authorization = %q", r.Header.Get("Authorization"))
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "audio/mpeg")
		w.Write([]byte("ID3fake"))
	}))
	defer srv.Close()

	c, err := New(context.Background(), "siliconflow", config.Platform{APIKey: "sk", BaseURL: srv.URL + "/v1"}, quiet)
	if err != nil {
		t.Fatal(err)
	}
	if !c.Capabilities().ConsistentBatch {
		t.Error("siliconflow should support consistent batch synthesis")
	}
	c.now = func() time.Time { return time.Unix(1700000000, 0) }

	dir := t.TempDir()
	path, err := c.Synthesize(context.Background(), Request{Text: "你好", Speaker: string(dialogue.Guest), Language: "zh", OutputDir: dir, Seq: 3})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if want := filepath.Join(dir, "siliconflow_audio_Guest_3_1700000000.mp3"); path != want {
		t.Errorf("path = %s, want %s", path, want)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "ID3fake" {
		t.Errorf("file content = %q", data)
	}
	if got.Input != "[S2]你好" || got.Voice != "FunAudioLLM/CosyVoice2-0.5B:anna" {
		t.Errorf("request = %+v", got)
	}
	if got.Model != "FunAudioLLM/CosyVoice2-0.5B" || got.ResponseFormat != "mp3" || got.Speed != 1.0 {
		t.Errorf("request = %+v", got)
	}

	// Same speaker and sequence within the same second gets a distinct file.
	path2, err := c.Synthesize(context.Background(), Request{Text: "再见", Speaker: string(dialogue.Guest), OutputDir: dir, Seq: 3})
	if err != nil {
		t.Fatal(err)
	}
	if path2 == path {
		t.Error("second file overwrote the first")
	}

	combined := "[S1]a\n[S2]b"
	if _, err := c.Synthesize(context.Background(), Request{Text: combined, Speaker: dialogue.CombinedSpeaker, OutputDir: dir}); err != nil {
		t.Fatal(err)
	}
	if got.Input != combined || got.Voice != "FunAudioLLM/CosyVoice2-0.5B:alex" {
		t.Errorf("combined request = %+v", got)
	}
}

func TestSynthesizeRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "busy", http.StatusTooManyRequests)
			return
		}
		w.Write([]byte("audio"))
	}))
	defer srv.Close()

	c, err := New(context.Background(), "siliconflow", config.Platform{APIKey: "sk", BaseURL: srv.URL, RetryAttempts: 3}, quiet)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.Synthesize(context.Background(), Request{Text: "hi", Speaker: string(dialogue.Host), OutputDir: t.TempDir()}); err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
}

func TestSynthesizeClientErrorIsFinal(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad voice", http.StatusBadRequest)
	}))
	defer srv.Close()

	c, err := New(context.Background(), "siliconflow", config.Platform{APIKey: "sk", BaseURL: srv.URL, RetryAttempts: 3}, quiet)
	if err != nil {
		t.Fatal(err)
	}
	_, err = c.Synthesize(context.Background(), Request{Text: "hi", Speaker: string(dialogue.Host), OutputDir: t.TempDir(), Seq: 4})
	var se *SynthesisError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want SynthesisError", err)
	}
	if se.Provider != "siliconflow" || se.Seq != 4 {
		t.Errorf("error = %+v", se)
	}
	var status *provider.StatusError
	if !errors.As(err, &status) || status.StatusCode != http.StatusBadRequest {
		t.Errorf("status error missing: %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestBaiduRejectedCredentialsNotRetried(t *testing.T) {
	var tokenCalls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenCalls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"error":"invalid_client","error_description":"unknown client id"}`)
	}))
	defer srv.Close()

	c, err := New(context.Background(), "baidu", config.Platform{AppID: "1", APIKey: "ak", SecretKey: "sk", BaseURL: srv.URL, RetryAttempts: 3}, quiet)
	if err != nil {
		t.Fatal(err)
	}
	_, err = c.Synthesize(context.Background(), Request{Text: "你好", Speaker: string(dialogue.Host), Language: "zh", OutputDir: t.TempDir()})
	if err == nil {
		t.Fatal("expected error for rejected credentials")
	}
	if got := tokenCalls.Load(); got != 1 {
		t.Errorf("token requests = %d, want 1", got)
	}
}

func TestBaiduSynthesize(t *testing.T) {
	var form map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/oauth/2.0/token":
			w.Header().Set("Content-Type", "application/json")
			io.WriteString(w, `{"access_token":"tok","expires_in":2592000}`)
		case "/text2audio":
			r.ParseForm()
			form = map[string]string{}
			for k := range r.PostForm {
				form[k] = r.PostForm.Get(k)
			}
			if form["tex"] == "error" {
				w.Header().Set("Content-Type", "application/json")
				io.WriteString(w, `{"err_no":502,"err_msg":"token invalid"}`)
				return
			}
			w.Header().Set("Content-Type", "audio/mp3")
			w.Write([]byte("mp3data"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c, err := New(context.Background(), "baidu", config.Platform{AppID: "1", APIKey: "ak", SecretKey: "sk", BaseURL: srv.URL, Speed: 1}, quiet)
	if err != nil {
		t.Fatal(err)
	}

	path, err := c.Synthesize(context.Background(), Request{Text: "大家好", Speaker: string(dialogue.Guest2), Language: "zh", OutputDir: t.TempDir(), Seq: 1})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if !strings.HasPrefix(filepath.Base(path), "baidu_audio_Guest_2_1_") {
		t.Errorf("file name = %s", filepath.Base(path))
	}
	want := map[string]string{"tex": "大家好", "tok": "tok", "per": "3", "spd": "5", "aue": "3", "lan": "zh", "ctp": "1"}
	for k, v := range want {
		if form[k] != v {
			t.Errorf("form[%s] = %q, want %q", k, form[k], v)
		}
	}
	if form["cuid"] == "" {
		t.Error("cuid not sent")
	}

	_, err = c.Synthesize(context.Background(), Request{Text: "error", Speaker: string(dialogue.Host), Language: "zh", OutputDir: t.TempDir()})
	if err == nil || !strings.Contains(err.Error(), "token invalid") {
		t.Errorf("err = %v, want Baidu error", err)
	}
}

func TestBaiduVoiceFor(t *testing.T) {
	p := &BaiduProvider{}
	tests := map[dialogue.Speaker]string{
		dialogue.Host:   "0",
		dialogue.Guest:  "1",
		dialogue.Guest2: "3",
		dialogue.Guest3: "4",
		dialogue.Guest4: "1",
	}
	for sp, want := range tests {
		if got := p.VoiceFor(string(sp), "zh").ID; got != want {
			t.Errorf("VoiceFor(%s) = %s, want %s", sp, got, want)
		}
	}
	if got := p.VoiceFor(string(dialogue.Guest), "en").ID; got != "0" {
		t.Errorf("non-Chinese voice = %s, want 0", got)
	}
}

func TestStubProvidersNotImplemented(t *testing.T) {
	c, err := New(context.Background(), "ali", config.Platform{AppID: "a", APIKey: "k", SecretKey: "s"}, quiet)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = c.Synthesize(context.Background(), Request{Text: "hi", Speaker: string(dialogue.Host), OutputDir: t.TempDir()})
	var nie *provider.NotImplementedError
	if !errors.As(err, &nie) || nie.Provider != "ali" {
		t.Fatalf("err = %v, want NotImplementedError", err)
	}
}

func TestVoiceKey(t *testing.T) {
	tests := map[string]string{
		string(dialogue.Host):    "host",
		string(dialogue.Guest):   "guest",
		string(dialogue.Guest3):  "guest3",
		dialogue.CombinedSpeaker: "host",
		"someone":                "guest",
	}
	for in, want := range tests {
		if got := voiceKey(in); got != want {
			t.Errorf("voiceKey(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestVoiceOverrides(t *testing.T) {
	table := voiceTable{
		defaults:  map[string]Voice{"host": {ID: "h"}, "guest": {ID: "g"}},
		overrides: map[string]string{"guest": "custom"},
		fallback:  "host",
	}
	if got := table.lookup(string(dialogue.Guest)).ID; got != "custom" {
		t.Errorf("guest = %s", got)
	}
	if got := table.lookup(string(dialogue.Guest4)).ID; got != "h" {
		t.Errorf("guest 4 = %s, want fallback h", got)
	}
}

func TestAvailableVoices(t *testing.T) {
	for _, kind := range []string{"siliconflow", "baidu", "elevenlabs", "google", "polly"} {
		voices, err := AvailableVoices(kind)
		if err != nil || len(voices) == 0 {
			t.Errorf("%s: %d voices, err %v", kind, len(voices), err)
		}
	}
	if _, err := AvailableVoices("acme"); err == nil {
		t.Error("expected error for unknown provider")
	}
}
