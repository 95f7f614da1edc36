package publish

import (
	"context"
	"fmt"
	"log/slog"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.opentelemetry.io/contrib/instrumentation/github.com/aws/aws-sdk-go-v2/otelaws"

	"github.com/apresai/podcraft/internal/config"
)

// New builds a Publisher backed by the S3 bucket and DynamoDB table of cfg.
func New(ctx context.Context, cfg config.PublishConfig, logger *slog.Logger) (*Publisher, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("publish.bucket is required (set PODCRAFT_PUBLISH_BUCKET)")
	}
	if cfg.Table == "" {
		return nil, fmt.Errorf("publish.table is required (set PODCRAFT_PUBLISH_TABLE)")
	}

	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	otelaws.AppendMiddlewares(&awsCfg.APIOptions)

	return &Publisher{
		Storage: NewStorage(s3.NewFromConfig(awsCfg), cfg.Bucket, cfg.CDNBaseURL),
		Catalog: NewCatalog(dynamodb.NewFromConfig(awsCfg), cfg.Table),
		Logger:  logger,
	}, nil
}
