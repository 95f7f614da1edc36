package tts

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/polly"
	"github.com/aws/aws-sdk-go-v2/service/polly/types"
	"go.opentelemetry.io/contrib/instrumentation/github.com/aws/aws-sdk-go-v2/otelaws"

	"github.com/apresai/podcraft/internal/config"
	"github.com/apresai/podcraft/internal/provider"
)

// pollyVoiceLang maps voice IDs to their language codes.
var pollyVoiceLang = map[string]types.LanguageCode{
	"Matthew":  types.LanguageCodeEnUs,
	"Ruth":     types.LanguageCodeEnUs,
	"Stephen":  types.LanguageCodeEnUs,
	"Danielle": types.LanguageCodeEnUs,
	"Amy":      types.LanguageCodeEnGb,
	"Olivia":   types.LanguageCodeEnAu,
	"Kajal":    types.LanguageCodeEnIn,
	"Zhiyu":    types.LanguageCodeCmnCn,
}

// speechSynthesizer is the subset of the Polly client used here.
type speechSynthesizer interface {
	SynthesizeSpeech(ctx context.Context, in *polly.SynthesizeSpeechInput, optFns ...func(*polly.Options)) (*polly.SynthesizeSpeechOutput, error)
}

// PollyProvider implements Provider using AWS Polly.
type PollyProvider struct {
	client speechSynthesizer
	engine types.Engine
	voices voiceTable
}

func newPolly(ctx context.Context, cfg config.Platform, _ *options) (Provider, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config for Polly: %w", err)
	}
	otelaws.AppendMiddlewares(&awsCfg.APIOptions)

	engine := types.Engine(cfg.ModelID)
	if engine == "" {
		engine = types.EngineGenerative
	}
	return &PollyProvider{
		client: polly.NewFromConfig(awsCfg),
		engine: engine,
		voices: voiceTable{
			defaults: map[string]Voice{
				"host":   {ID: "Ruth", Name: "Ruth"},
				"guest":  {ID: "Matthew", Name: "Matthew"},
				"guest2": {ID: "Stephen", Name: "Stephen"},
				"guest3": {ID: "Amy", Name: "Amy"},
				"guest4": {ID: "Danielle", Name: "Danielle"},
			},
			overrides: cfg.Voices,
			fallback:  "guest",
		},
	}, nil
}

func (p *PollyProvider) Name() string { return "polly" }

func (p *PollyProvider) Capabilities() Capabilities { return Capabilities{} }

// VoiceFor uses Zhiyu for Chinese, which Polly only offers in one voice.
func (p *PollyProvider) VoiceFor(speaker, language string) Voice {
	if language == "zh" && p.voices.overrides[voiceKey(speaker)] == "" {
		return Voice{ID: "Zhiyu", Name: "Zhiyu"}
	}
	return p.voices.lookup(speaker)
}

func (p *PollyProvider) Synthesize(ctx context.Context, text string, voice Voice) (AudioResult, error) {
	lang, ok := pollyVoiceLang[voice.ID]
	if !ok {
		lang = types.LanguageCodeEnUs
	}

	engine := p.engine
	if voice.ID == "Zhiyu" {
		engine = types.EngineNeural
	}

	resp, err := p.client.SynthesizeSpeech(ctx, &polly.SynthesizeSpeechInput{
		Engine:       engine,
		OutputFormat: types.OutputFormatMp3,
		SampleRate:   aws.String("24000"),
		Text:         aws.String(text),
		TextType:     types.TextTypeText,
		VoiceId:      types.VoiceId(voice.ID),
		LanguageCode: lang,
	})
	if err != nil {
		return AudioResult{}, provider.ClassifyAWS(fmt.Errorf("Polly synthesize: %w", err))
	}
	defer resp.AudioStream.Close()

	data, err := io.ReadAll(resp.AudioStream)
	if err != nil {
		return AudioResult{}, fmt.Errorf("Polly read audio: %w", err)
	}

	return AudioResult{Data: data, Format: FormatMP3}, nil
}

func (p *PollyProvider) Close() error { return nil }

func pollyAvailableVoices() []VoiceInfo {
	return []VoiceInfo{
		{ID: "Ruth", Name: "Ruth", Gender: "female", Description: "en-US, Generative", DefaultFor: "Host"},
		{ID: "Matthew", Name: "Matthew", Gender: "male", Description: "en-US, Generative", DefaultFor: "Guest"},
		{ID: "Stephen", Name: "Stephen", Gender: "male", Description: "en-US, Generative", DefaultFor: "Guest 2"},
		{ID: "Amy", Name: "Amy", Gender: "female", Description: "en-GB, Generative", DefaultFor: "Guest 3"},
		{ID: "Danielle", Name: "Danielle", Gender: "female", Description: "en-US, Generative", DefaultFor: "Guest 4"},
		{ID: "Olivia", Name: "Olivia", Gender: "female", Description: "en-AU, Generative"},
		{ID: "Kajal", Name: "Kajal", Gender: "female", Description: "en-IN, Generative"},
		{ID: "Zhiyu", Name: "Zhiyu", Gender: "female", Description: "cmn-CN, Neural"},
	}
}
