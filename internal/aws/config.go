package aws

import (
	"context"
	"fmt"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
)

// DefaultRegion is used when no region is configured.
const DefaultRegion = "us-east-1"

// ConfigOptions carries the settings needed to build an SDK config.
// Empty credentials fall back to the SDK default chain (env, shared config, role).
type ConfigOptions struct {
	Region           string
	AccessKeyID      string
	SecretAccessKey  string
	EndpointOverride string // e.g. http://localhost:4566 for localstack
}

func LoadAWSConfig(ctx context.Context, opts ConfigOptions) (sdkaws.Config, error) {
	region := opts.Region
	if region == "" {
		region = DefaultRegion // default fallback
	}

	loadOpts := []func(*config.LoadOptions) error{
		config.WithRegion(region),
	}
	if opts.AccessKeyID != "" && opts.SecretAccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, ""),
		))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return cfg, fmt.Errorf("failed to load AWS config: %w", err)
	}

	if opts.EndpointOverride != "" {
		cfg.BaseEndpoint = sdkaws.String(opts.EndpointOverride)
	}

	return cfg, nil
}
