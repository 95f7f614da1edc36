package tts

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/apresai/podcraft/internal/config"
	"github.com/apresai/podcraft/internal/provider"
	"github.com/apresai/podcraft/internal/retry"
)

const baiduSynthURL = "https://tsn.baidu.com/text2audio"

// baiduZhVoices are the "per" values used for Chinese, by speaker role.
var baiduZhVoices = map[string]int{
	"host":   0, // standard female
	"guest":  1, // standard male
	"guest2": 3, // expressive male
	"guest3": 4, // expressive female
	"guest4": 1,
}

type baiduError struct {
	ErrNo  int    `json:"err_no"`
	ErrMsg string `json:"err_msg"`
}

// BaiduProvider implements Provider using Baidu's short-text TTS REST API.
type BaiduProvider struct {
	appID      string
	cuid       string
	synthURL   string
	speed      int
	tokens     oauth2.TokenSource
	overrides  map[string]string
	httpClient *http.Client
}

func newBaidu(_ context.Context, cfg config.Platform, o *options) (Provider, error) {
	required := []struct{ field, val string }{
		{"app_id", cfg.AppID},
		{"api_key", cfg.APIKey},
		{"secret_key", cfg.SecretKey},
	}
	for _, r := range required {
		if r.val == "" {
			return nil, &provider.ConfigurationError{Provider: "baidu", Field: r.field, Hint: "BAIDU_" + strings.ToUpper(r.field)}
		}
	}

	tokenBase, synthURL := provider.BaiduBaseURL, baiduSynthURL
	if cfg.BaseURL != "" {
		tokenBase = strings.TrimRight(cfg.BaseURL, "/")
		synthURL = tokenBase + "/text2audio"
	}
	httpClient := o.client(cfg.Timeout)

	return &BaiduProvider{
		appID:      cfg.AppID,
		cuid:       uuid.NewString(),
		synthURL:   synthURL,
		speed:      baiduSpeed(cfg.Speed),
		tokens:     provider.BaiduTokenSource(httpClient, tokenBase, cfg.APIKey, cfg.SecretKey),
		overrides:  cfg.Voices,
		httpClient: httpClient,
	}, nil
}

// baiduSpeed maps a speed multiplier (1.0 = normal) onto Baidu's 0-15 scale
// where 5 is normal.
func baiduSpeed(mult float64) int {
	if mult <= 0 {
		return 5
	}
	spd := int(mult*5 + 0.5)
	if spd > 15 {
		spd = 15
	}
	return spd
}

func (p *BaiduProvider) Name() string { return "baidu" }

func (p *BaiduProvider) Capabilities() Capabilities { return Capabilities{} }

// VoiceFor maps roles to Baidu voices for Chinese; other languages use the
// default female voice.
func (p *BaiduProvider) VoiceFor(speaker, language string) Voice {
	key := voiceKey(speaker)
	if id := p.overrides[key]; id != "" {
		return Voice{ID: id, Name: id}
	}
	per := 0
	if language == "" || language == "zh" {
		per = baiduZhVoices[key]
	}
	return Voice{ID: strconv.Itoa(per), Name: baiduVoiceNames[per]}
}

func (p *BaiduProvider) Synthesize(ctx context.Context, text string, voice Voice) (AudioResult, error) {
	tok, err := p.tokens.Token()
	if err != nil {
		return AudioResult{}, provider.ClassifyToken(fmt.Errorf("fetch access token: %w", err))
	}

	form := url.Values{
		"tex":  {text},
		"tok":  {tok.AccessToken},
		"cuid": {p.cuid},
		"ctp":  {"1"},
		"lan":  {"zh"},
		"per":  {voice.ID},
		"spd":  {strconv.Itoa(p.speed)},
		"pit":  {"5"},
		"vol":  {"5"},
		"aue":  {"3"}, // mp3
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.synthURL, strings.NewReader(form.Encode()))
	if err != nil {
		return AudioResult{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	res, err := p.httpClient.Do(req)
	if err != nil {
		return AudioResult{}, fmt.Errorf("send request: %w", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return AudioResult{}, fmt.Errorf("read response: %w", err)
	}
	if res.StatusCode != http.StatusOK {
		return AudioResult{}, provider.ClassifyStatus(
			&provider.StatusError{Provider: "Baidu", StatusCode: res.StatusCode, Body: string(body)},
			res.StatusCode,
		)
	}

	// Errors come back as JSON with a 200 status; audio has an audio/* type.
	if strings.HasPrefix(res.Header.Get("Content-Type"), "application/json") {
		var be baiduError
		if err := json.Unmarshal(body, &be); err != nil {
			return AudioResult{}, fmt.Errorf("decode error response: %w", err)
		}
		err := fmt.Errorf("Baidu TTS error %d: %s", be.ErrNo, be.ErrMsg)
		// 500-503 are bad parameters or credentials, 513 is text too long.
		if (be.ErrNo >= 500 && be.ErrNo <= 503) || be.ErrNo == 513 {
			return AudioResult{}, retry.Permanent(err)
		}
		return AudioResult{}, err
	}
	return AudioResult{Data: body, Format: FormatMP3}, nil
}

func (p *BaiduProvider) Close() error { return nil }

var baiduVoiceNames = map[int]string{
	0: "Du Xiaomei",
	1: "Du Xiaoyu",
	3: "Du Xiaoyao",
	4: "Du Yaya",
}

func baiduAvailableVoices() []VoiceInfo {
	return []VoiceInfo{
		{ID: "0", Name: "Du Xiaomei", Gender: "female", Description: "Standard female voice", DefaultFor: "Host"},
		{ID: "1", Name: "Du Xiaoyu", Gender: "male", Description: "Standard male voice", DefaultFor: "Guest"},
		{ID: "3", Name: "Du Xiaoyao", Gender: "male", Description: "Expressive male voice", DefaultFor: "Guest 2"},
		{ID: "4", Name: "Du Yaya", Gender: "female", Description: "Expressive female voice", DefaultFor: "Guest 3"},
	}
}
