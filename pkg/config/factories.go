package config

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/mitchellh/mapstructure"

	"github.com/marmos91/s3dav/internal/logger"
	"github.com/marmos91/s3dav/pkg/store/blob"
	blobMemory "github.com/marmos91/s3dav/pkg/store/blob/memory"
	blobS3 "github.com/marmos91/s3dav/pkg/store/blob/s3"
	"github.com/marmos91/s3dav/pkg/store/table"
	tableBadger "github.com/marmos91/s3dav/pkg/store/table/badger"
	tableDynamo "github.com/marmos91/s3dav/pkg/store/table/dynamo"
	tableMemory "github.com/marmos91/s3dav/pkg/store/table/memory"
)

// awsClientOptions are the connection settings shared by every AWS-backed
// store: region, optional custom endpoint (MinIO, Localstack, DynamoDB
// Local), optional static credentials and the retry budget.
type awsClientOptions struct {
	Region          string `mapstructure:"region"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	MaxRetries      int    `mapstructure:"max_retries"`
}

// loadAWSConfig builds an aws.Config from the shared client options.
func loadAWSConfig(ctx context.Context, opts awsClientOptions) (aws.Config, error) {
	var configOptions []func(*awsConfig.LoadOptions) error

	configOptions = append(configOptions, awsConfig.WithRegion(opts.Region))

	if opts.Endpoint != "" {
		//nolint:staticcheck // TODO: migrate to BaseEndpoint when AWS SDK v2 stabilizes the new API
		customResolver := aws.EndpointResolverWithOptionsFunc(
			func(service, region string, options ...interface{}) (aws.Endpoint, error) {
				//nolint:staticcheck // TODO: migrate to BaseEndpoint when AWS SDK v2 stabilizes the new API
				return aws.Endpoint{
					URL:               opts.Endpoint,
					HostnameImmutable: true,
					Source:            aws.EndpointSourceCustom,
				}, nil
			},
		)
		//nolint:staticcheck // TODO: migrate to BaseEndpoint when AWS SDK v2 stabilizes the new API
		configOptions = append(configOptions, awsConfig.WithEndpointResolverWithOptions(customResolver))
	}

	if opts.AccessKeyID != "" && opts.SecretAccessKey != "" {
		credProvider := credentials.NewStaticCredentialsProvider(
			opts.AccessKeyID,
			opts.SecretAccessKey,
			"", // session token (empty for static credentials)
		)
		configOptions = append(configOptions, awsConfig.WithCredentialsProvider(credProvider))
	}

	// Bounded retries inside the SDK absorb transient 5xx and throttling;
	// whatever still escapes surfaces as a classified error.
	maxRetries := opts.MaxRetries
	if maxRetries == 0 {
		maxRetries = 10
	}
	configOptions = append(configOptions, awsConfig.WithRetryer(func() aws.Retryer {
		return retry.NewStandard(func(o *retry.StandardOptions) {
			o.MaxAttempts = maxRetries
		})
	}))

	return awsConfig.LoadDefaultConfig(ctx, configOptions...)
}

// CreateBlobStore creates a blob store based on configuration.
//
// Supported types:
//   - "s3": Amazon S3 or compatible storage (MinIO, Localstack)
//   - "memory": in-process storage, ephemeral
func CreateBlobStore(ctx context.Context, cfg *BlobConfig) (blob.Store, error) {
	switch cfg.Type {
	case "s3":
		return createS3BlobStore(ctx, cfg.S3)
	case "memory":
		return blobMemory.NewMemoryBlobStore(), nil
	default:
		return nil, fmt.Errorf("unknown blob store type: %q (supported: s3, memory)", cfg.Type)
	}
}

func createS3BlobStore(ctx context.Context, options map[string]any) (blob.Store, error) {
	type S3BlobStoreOptions struct {
		Region          string `mapstructure:"region"`
		Bucket          string `mapstructure:"bucket"`
		KeyPrefix       string `mapstructure:"key_prefix"`
		Endpoint        string `mapstructure:"endpoint"`
		AccessKeyID     string `mapstructure:"access_key_id"`
		SecretAccessKey string `mapstructure:"secret_access_key"`
		PageSize        int32  `mapstructure:"page_size"`
		MaxRetries      int    `mapstructure:"max_retries"`
	}

	var storeCfg S3BlobStoreOptions
	if err := mapstructure.Decode(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode S3 blob store config: %w", err)
	}

	if storeCfg.Bucket == "" {
		return nil, fmt.Errorf("S3 blob store: bucket is required")
	}
	if storeCfg.Region == "" {
		return nil, fmt.Errorf("S3 blob store: region is required")
	}

	awsCfg, err := loadAWSConfig(ctx, awsClientOptions{
		Region:          storeCfg.Region,
		Endpoint:        storeCfg.Endpoint,
		AccessKeyID:     storeCfg.AccessKeyID,
		SecretAccessKey: storeCfg.SecretAccessKey,
		MaxRetries:      storeCfg.MaxRetries,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		// Path-style addressing for compatibility with MinIO/Localstack.
		if storeCfg.Endpoint != "" {
			o.UsePathStyle = true
		}
	})

	store, err := blobS3.NewS3BlobStore(ctx, blobS3.S3BlobStoreConfig{
		Client:    client,
		Bucket:    storeCfg.Bucket,
		KeyPrefix: storeCfg.KeyPrefix,
		PageSize:  storeCfg.PageSize,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 blob store: %w", err)
	}

	logger.Info("S3 blob store initialized: bucket=%s, region=%s, prefix=%s",
		storeCfg.Bucket, storeCfg.Region, storeCfg.KeyPrefix)

	return store, nil
}

// CreateTableStore creates a metadata table store based on configuration.
//
// Supported types:
//   - "dynamo": Amazon DynamoDB or compatible (DynamoDB Local)
//   - "badger": BadgerDB storage, persistent, single node
//   - "memory": in-process storage, ephemeral
func CreateTableStore(ctx context.Context, cfg *MetadataConfig) (table.Store, error) {
	switch cfg.Type {
	case "dynamo":
		return createDynamoTableStore(ctx, cfg.Dynamo)
	case "badger":
		return createBadgerTableStore(ctx, cfg.Badger)
	case "memory":
		return tableMemory.NewMemoryTableStore(), nil
	default:
		return nil, fmt.Errorf("unknown metadata store type: %q (supported: dynamo, badger, memory)", cfg.Type)
	}
}

func createDynamoTableStore(ctx context.Context, options map[string]any) (table.Store, error) {
	type DynamoTableStoreOptions struct {
		Region          string `mapstructure:"region"`
		Endpoint        string `mapstructure:"endpoint"`
		AccessKeyID     string `mapstructure:"access_key_id"`
		SecretAccessKey string `mapstructure:"secret_access_key"`
		MaxRetries      int    `mapstructure:"max_retries"`
		ReadCapacity    int64  `mapstructure:"read_capacity"`
		WriteCapacity   int64  `mapstructure:"write_capacity"`
	}

	var storeCfg DynamoTableStoreOptions
	if err := mapstructure.Decode(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode DynamoDB store config: %w", err)
	}

	if storeCfg.Region == "" {
		return nil, fmt.Errorf("DynamoDB store: region is required")
	}

	awsCfg, err := loadAWSConfig(ctx, awsClientOptions{
		Region:          storeCfg.Region,
		Endpoint:        storeCfg.Endpoint,
		AccessKeyID:     storeCfg.AccessKeyID,
		SecretAccessKey: storeCfg.SecretAccessKey,
		MaxRetries:      storeCfg.MaxRetries,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	store, err := tableDynamo.NewDynamoTableStore(tableDynamo.DynamoTableStoreConfig{
		Client:        dynamodb.NewFromConfig(awsCfg),
		ReadCapacity:  storeCfg.ReadCapacity,
		WriteCapacity: storeCfg.WriteCapacity,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create DynamoDB store: %w", err)
	}

	logger.Info("DynamoDB metadata store initialized: region=%s", storeCfg.Region)

	return store, nil
}

func createBadgerTableStore(ctx context.Context, options map[string]any) (table.Store, error) {
	type BadgerTableStoreOptions struct {
		Path string `mapstructure:"path"`
	}

	var storeCfg BadgerTableStoreOptions
	if err := mapstructure.Decode(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode Badger store config: %w", err)
	}

	if storeCfg.Path == "" {
		return nil, fmt.Errorf("badger store: path is required")
	}

	store, err := tableBadger.NewBadgerTableStore(ctx, tableBadger.BadgerTableStoreConfig{
		DBPath: storeCfg.Path,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Badger store: %w", err)
	}

	logger.Info("Badger metadata store initialized: path=%s", storeCfg.Path)

	return store, nil
}
