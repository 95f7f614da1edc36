// Package config loads the podcraft configuration from defaults, an optional
// YAML file, a .env file and environment variables.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/apresai/podcraft/internal/retry"
)

// Config is the root configuration.
type Config struct {
	LLM      ProvidersConfig `mapstructure:"llm"`
	TTS      ProvidersConfig `mapstructure:"tts"`
	Pipeline PipelineConfig  `mapstructure:"pipeline"`
	Logging  LoggingConfig   `mapstructure:"logging"`
	Publish  PublishConfig   `mapstructure:"publish"`
	Secrets  SecretsConfig   `mapstructure:"secrets"`
	MCP      MCPConfig       `mapstructure:"mcp"`
}

// ProvidersConfig selects a default provider kind and holds per-kind settings.
type ProvidersConfig struct {
	Default   string              `mapstructure:"default"`
	Platforms map[string]Platform `mapstructure:"platforms"`
}

// Platform is the settings of one provider kind. Fields a provider does not
// use are ignored.
type Platform struct {
	APIKey        string            `mapstructure:"api_key"`
	SecretKey     string            `mapstructure:"secret_key"`
	AppID         string            `mapstructure:"app_id"`
	BaseURL       string            `mapstructure:"base_url"`
	ModelID       string            `mapstructure:"model_id"`
	Region        string            `mapstructure:"region"`
	MaxTokens     int               `mapstructure:"max_tokens"`
	Temperature   float64           `mapstructure:"temperature"`
	Speed         float64           `mapstructure:"speed"`
	Voices        map[string]string `mapstructure:"voices"` // speaker -> voice ID
	RetryAttempts int               `mapstructure:"retry_attempts"`
	RetryDelay    time.Duration     `mapstructure:"retry_delay"`
	Timeout       time.Duration     `mapstructure:"timeout"`
}

// Retry returns the retry policy of this platform with missing fields
// backfilled.
func (p Platform) Retry() retry.Policy {
	return retry.Policy{Attempts: p.RetryAttempts, Delay: p.RetryDelay}.WithDefaults()
}

// PipelineConfig controls request handling.
type PipelineConfig struct {
	CacheDir       string        `mapstructure:"cache_dir"`
	CharacterLimit int           `mapstructure:"character_limit"`
	CacheTTL       time.Duration `mapstructure:"cache_ttl"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, text
}

// PublishConfig enables uploading finished episodes.
type PublishConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Bucket     string `mapstructure:"bucket"`
	Table      string `mapstructure:"table"`
	CDNBaseURL string `mapstructure:"cdn_base_url"`
	Region     string `mapstructure:"region"`
}

// SecretsConfig points at AWS Secrets Manager. An empty prefix disables it.
type SecretsConfig struct {
	Prefix string `mapstructure:"prefix"`
	Region string `mapstructure:"region"`
}

// MCPConfig configures the MCP tool server.
type MCPConfig struct {
	Port     int `mapstructure:"port"`
	MaxTasks int `mapstructure:"max_tasks"`
}

// vendorEnv maps the vendor environment variable names to config keys so
// existing deployments keep working without the PODCRAFT_ prefix.
var vendorEnv = map[string]string{
	"llm.default":                            "DEFAULT_LLM_PLATFORM",
	"llm.platforms.siliconflow.api_key":      "SILICONFLOW_API_KEY",
	"llm.platforms.siliconflow.model_id":     "SILICONFLOW_MODEL_ID",
	"llm.platforms.siliconflow.max_tokens":   "SILICONFLOW_MAX_TOKENS",
	"llm.platforms.siliconflow.temperature":  "SILICONFLOW_TEMPERATURE",
	"llm.platforms.ernie.api_key":            "ERNIE_API_KEY",
	"llm.platforms.ernie.secret_key":         "ERNIE_SECRET_KEY",
	"llm.platforms.ernie.model_id":           "ERNIE_MODEL_ID",
	"llm.platforms.qianwen.api_key":          "QIANWEN_API_KEY",
	"llm.platforms.qianwen.secret_key":       "QIANWEN_SECRET_KEY",
	"llm.platforms.qianwen.model_id":         "QIANWEN_MODEL_ID",
	"llm.platforms.openai.api_key":           "OPENAI_API_KEY",
	"llm.platforms.deepseek.api_key":         "DEEPSEEK_API_KEY",
	"llm.platforms.claude.api_key":           "ANTHROPIC_API_KEY",
	"llm.platforms.gemini.api_key":           "GEMINI_API_KEY",
	"tts.default":                            "DEFAULT_TTS_SERVICE",
	"tts.platforms.siliconflow.api_key":      "SILICONFLOW_API_KEY",
	"tts.platforms.siliconflow.model_id":     "SILICONFLOW_TTS_MODEL_ID",
	"tts.platforms.siliconflow.speed":        "SILICONFLOW_TTS_SPEED",
	"tts.platforms.siliconflow.voices.host":  "SILICONFLOW_TTS_VOICE_HOST",
	"tts.platforms.siliconflow.voices.guest": "SILICONFLOW_TTS_VOICE_GUEST",
	"tts.platforms.baidu.app_id":             "BAIDU_APP_ID",
	"tts.platforms.baidu.api_key":            "BAIDU_API_KEY",
	"tts.platforms.baidu.secret_key":         "BAIDU_SECRET_KEY",
	"tts.platforms.ali.api_key":              "ALI_ACCESS_KEY_ID",
	"tts.platforms.ali.secret_key":           "ALI_ACCESS_KEY_SECRET",
	"tts.platforms.ali.app_id":               "ALI_APP_KEY",
	"tts.platforms.xunfei.app_id":            "XUNFEI_APP_ID",
	"tts.platforms.xunfei.api_key":           "XUNFEI_API_KEY",
	"tts.platforms.xunfei.secret_key":        "XUNFEI_API_SECRET",
	"tts.platforms.elevenlabs.api_key":       "ELEVENLABS_API_KEY",
	"tts.platforms.google.api_key":           "GOOGLE_APPLICATION_CREDENTIALS",
}

// Load reads the configuration. If configFile is non-empty it is used
// directly; otherwise ./podcraft.yaml, ./configs/podcraft.yaml and
// $HOME/.config/podcraft/podcraft.yaml are searched. A .env file in the
// working directory is loaded first and never overrides the environment.
func Load(configFile string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("podcraft")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home + "/.config/podcraft")
		}
	}

	// PODCRAFT_LLM_DEFAULT, PODCRAFT_TTS_PLATFORMS_BAIDU_API_KEY, etc.
	v.SetEnvPrefix("PODCRAFT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range vendorEnv {
		prefixed := "PODCRAFT_" + strings.ToUpper(strings.NewReplacer(".", "_").Replace(key))
		if err := v.BindEnv(key, prefixed, env); err != nil {
			return nil, fmt.Errorf("binding %s: %w", env, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		slog.Debug("no config file found, using defaults and environment variables")
	} else {
		slog.Debug("loaded config file", "path", v.ConfigFileUsed())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	for _, set := range []map[string]Platform{cfg.LLM.Platforms, cfg.TTS.Platforms} {
		for kind, p := range set {
			p.APIKey = resolveEnvRef(p.APIKey)
			p.SecretKey = resolveEnvRef(p.SecretKey)
			p.AppID = resolveEnvRef(p.AppID)
			set[kind] = p
		}
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("llm.default", "siliconflow")
	v.SetDefault("tts.default", "siliconflow")

	llm := map[string]map[string]any{
		"siliconflow": {"base_url": "https://api.siliconflow.cn/v1", "model_id": "deepseek-ai/DeepSeek-R1-0528-Qwen3-8B", "timeout": "120s"},
		"ernie":       {"model_id": "ernie-4.0"},
		"qianwen":     {"model_id": "qwen-plus"},
		"openai":      {"model_id": "gpt-4o-mini"},
		"deepseek":    {"base_url": "https://api.deepseek.com/v1", "model_id": "deepseek-chat"},
		"claude":      {"model_id": "claude-haiku-4-5-20251001"},
		"nova":        {"model_id": "us.amazon.nova-2-lite-v1:0", "region": "us-east-1"},
		"gemini":      {"model_id": "gemini-2.5-flash"},
	}
	for kind, fields := range llm {
		prefix := "llm.platforms." + kind + "."
		v.SetDefault(prefix+"max_tokens", 16384)
		v.SetDefault(prefix+"temperature", 0.1)
		v.SetDefault(prefix+"retry_attempts", retry.DefaultAttempts)
		v.SetDefault(prefix+"retry_delay", retry.DefaultDelay)
		v.SetDefault(prefix+"timeout", "120s")
		for k, val := range fields {
			v.SetDefault(prefix+k, val)
		}
	}

	tts := map[string]map[string]any{
		"siliconflow": {
			"model_id": "FunAudioLLM/CosyVoice2-0.5B",
			"voices": map[string]string{
				"host":  "FunAudioLLM/CosyVoice2-0.5B:alex",
				"guest": "FunAudioLLM/CosyVoice2-0.5B:anna",
			},
		},
		"baidu":      {},
		"ali":        {},
		"xunfei":     {},
		"elevenlabs": {"model_id": "eleven_multilingual_v2"},
		"google":     {},
		"polly":      {"model_id": "generative", "region": "us-east-1"},
	}
	for kind, fields := range tts {
		prefix := "tts.platforms." + kind + "."
		v.SetDefault(prefix+"speed", 1.0)
		v.SetDefault(prefix+"retry_attempts", retry.DefaultAttempts)
		v.SetDefault(prefix+"retry_delay", retry.DefaultDelay)
		v.SetDefault(prefix+"timeout", "60s")
		for k, val := range fields {
			v.SetDefault(prefix+k, val)
		}
	}

	v.SetDefault("pipeline.cache_dir", "./podcraft-cache")
	v.SetDefault("pipeline.character_limit", 100000)
	v.SetDefault("pipeline.cache_ttl", "1h")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("publish.enabled", false)
	v.SetDefault("publish.table", "podcraft-episodes")
	v.SetDefault("publish.region", "us-east-1")
	v.SetDefault("secrets.prefix", "")
	v.SetDefault("secrets.region", "us-east-1")
	v.SetDefault("mcp.port", 8000)
	v.SetDefault("mcp.max_tasks", 5)
}

// Kinds returns the configured provider kinds, sorted.
func (p ProvidersConfig) Kinds() []string {
	kinds := make([]string, 0, len(p.Platforms))
	for k := range p.Platforms {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// Platform returns the settings for kind, or a zero Platform.
func (p ProvidersConfig) Platform(kind string) Platform {
	return p.Platforms[kind]
}

// resolveEnvRef replaces "${VAR_NAME}" patterns with the corresponding env var value.
func resolveEnvRef(val string) string {
	if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
		envKey := val[2 : len(val)-1]
		if envVal := os.Getenv(envKey); envVal != "" {
			return envVal
		}
	}
	return val
}
