package config

import (
	"context"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// SecretGetter is the subset of the Secrets Manager client used here.
type SecretGetter interface {
	GetSecretValue(ctx context.Context, in *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// LoadSecrets fills empty credential fields from Secrets Manager. Secret IDs
// are the prefix followed by the vendor variable name, for example
// "/podcraft/SILICONFLOW_API_KEY". Missing secrets are logged and skipped.
func (c *Config) LoadSecrets(ctx context.Context, client SecretGetter, logger *slog.Logger) {
	if c.Secrets.Prefix == "" {
		return
	}
	for key, env := range vendorEnv {
		parts := strings.Split(key, ".")
		if len(parts) != 4 || parts[1] != "platforms" {
			continue
		}
		section, kind, field := parts[0], parts[2], parts[3]
		set := c.LLM.Platforms
		if section == "tts" {
			set = c.TTS.Platforms
		}
		p, ok := set[kind]
		if !ok {
			continue
		}
		target := credentialField(&p, field)
		if target == nil || *target != "" {
			continue
		}

		secretID := c.Secrets.Prefix + env
		result, err := client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
			SecretId: &secretID,
		})
		if err != nil {
			logger.Debug("secret not found", "secret_id", secretID, "error", err)
			continue
		}
		if result.SecretString != nil {
			*target = *result.SecretString
			set[kind] = p
			logger.Info("loaded secret", "secret_id", secretID)
		}
	}
}

func credentialField(p *Platform, field string) *string {
	switch field {
	case "api_key":
		return &p.APIKey
	case "secret_key":
		return &p.SecretKey
	case "app_id":
		return &p.AppID
	default:
		return nil
	}
}
