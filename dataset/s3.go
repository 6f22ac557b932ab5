package dataset

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/oarkflow/courselookup"
)

// S3Config configures the AWS client used by S3Source. Empty fields fall
// back to the SDK's default credential and region chain.
type S3Config struct {
	Region       string `mapstructure:"region"`
	Endpoint     string `mapstructure:"endpoint"`
	UsePathStyle bool   `mapstructure:"use_path_style"`
}

// S3Source downloads the dataset object from an S3 bucket.
type S3Source struct {
	Bucket string
	Key    string
	cfg    S3Config
	client manager.DownloadAPIClient
	logger *courselookup.Logger
}

// NewS3Source returns a source for s3://bucket/key. The client is created
// on first Load.
func NewS3Source(bucket, key string, cfg S3Config, logger *courselookup.Logger) *S3Source {
	if logger == nil {
		logger = courselookup.NoopLogger()
	}
	return &S3Source{Bucket: bucket, Key: key, cfg: cfg, logger: logger}
}

// WithClient replaces the S3 client, which is otherwise built from the
// default AWS configuration.
func (s *S3Source) WithClient(client manager.DownloadAPIClient) *S3Source {
	s.client = client
	return s
}

func (s *S3Source) newClient(ctx context.Context) (manager.DownloadAPIClient, error) {
	var opts []func(*config.LoadOptions) error
	if s.cfg.Region != "" {
		opts = append(opts, config.WithRegion(s.cfg.Region))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if s.cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(s.cfg.Endpoint)
		}
		o.UsePathStyle = s.cfg.UsePathStyle
	}), nil
}

// Load implements courselookup.Loader.
func (s *S3Source) Load(ctx context.Context) ([]courselookup.CourseRecord, error) {
	client := s.client
	if client == nil {
		c, err := s.newClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("dataset: loading aws config: %w", err)
		}
		client = c
	}
	buf := manager.NewWriteAtBuffer(nil)
	downloader := manager.NewDownloader(client, func(d *manager.Downloader) {
		d.Concurrency = 1
	})
	n, err := downloader.Download(ctx, buf, &s3.GetObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(s.Key),
	})
	if err != nil {
		return nil, fmt.Errorf("dataset: downloading s3://%s/%s: %w", s.Bucket, s.Key, err)
	}
	s.logger.DebugContext(ctx, "dataset downloaded", "source", "s3", "bucket", s.Bucket, "key", s.Key, "bytes", n)
	return decode(ctx, bytes.NewReader(buf.Bytes()), "s3://"+s.Bucket+"/"+s.Key, s.logger)
}
