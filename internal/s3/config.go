// Package s3 builds S3 clients for the examples and integration tests.
package s3

import (
	"context"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ClientConfig holds configuration for creating an S3 client.
type ClientConfig struct {
	// Region is the AWS region (required).
	Region string

	// Endpoint is an optional custom endpoint URL for S3-compatible services
	// (MinIO, LocalStack, R2). Example: "http://localhost:4566".
	Endpoint string

	// UsePathStyle enables path-style addressing. LocalStack and MinIO need it;
	// AWS S3 uses virtual-hosted style.
	UsePathStyle bool

	// Credentials are the AWS credentials to use.
	// If nil, uses the default credential chain.
	Credentials aws.CredentialsProvider
}

// Environment variables read by ConfigFromEnv.
const (
	EnvRegion    = "PSR7_S3_REGION"
	EnvEndpoint  = "PSR7_S3_ENDPOINT"
	EnvAccessKey = "PSR7_S3_ACCESS_KEY"
	EnvSecretKey = "PSR7_S3_SECRET_KEY"
)

// ConfigFromEnv builds a ClientConfig from PSR7_S3_* variables. It defaults to
// LocalStack: region us-east-1, endpoint http://localhost:4566, test/test.
func ConfigFromEnv() ClientConfig {
	cfg := ClientConfig{
		Region:   getenv(EnvRegion, "us-east-1"),
		Endpoint: getenv(EnvEndpoint, "http://localhost:4566"),
		Credentials: credentials.NewStaticCredentialsProvider(
			getenv(EnvAccessKey, "test"),
			getenv(EnvSecretKey, "test"),
			"",
		),
	}
	cfg.UsePathStyle = cfg.Endpoint != ""
	return cfg
}

// NewClient creates a new S3 client with the given configuration.
//
// For MinIO:
//
//	client, err := s3.NewClient(ctx, s3.ClientConfig{
//	    Region:       "us-east-1",
//	    Endpoint:     "http://localhost:9000",
//	    UsePathStyle: true,
//	    Credentials:  credentials.NewStaticCredentialsProvider("minioadmin", "minioadmin", ""),
//	})
func NewClient(ctx context.Context, cfg ClientConfig) (*s3.Client, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
	}
	if cfg.Credentials != nil {
		opts = append(opts, config.WithCredentialsProvider(cfg.Credentials))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	}), nil
}

// NewLocalStackClient creates an S3 client configured for LocalStack.
func NewLocalStackClient(ctx context.Context) (*s3.Client, error) {
	return NewClient(ctx, ClientConfig{
		Region:       "us-east-1",
		Endpoint:     "http://localhost:4566",
		UsePathStyle: true,
		Credentials:  credentials.NewStaticCredentialsProvider("test", "test", ""),
	})
}

// NewMinIOClient creates an S3 client configured for MinIO.
func NewMinIOClient(ctx context.Context) (*s3.Client, error) {
	return NewClient(ctx, ClientConfig{
		Region:       "us-east-1",
		Endpoint:     "http://localhost:9000",
		UsePathStyle: true,
		Credentials:  credentials.NewStaticCredentialsProvider("minioadmin", "minioadmin", ""),
	})
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
