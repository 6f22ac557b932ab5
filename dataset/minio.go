package dataset

import (
	"context"
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/oarkflow/courselookup"
)

// MinIOConfig configures the MinIO client used by MinIOSource.
type MinIOConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Region    string `mapstructure:"region"`
	Secure    bool   `mapstructure:"secure"`
}

// MinIOSource reads the dataset object from MinIO or any S3-compatible
// store.
type MinIOSource struct {
	Bucket string
	Key    string
	cfg    MinIOConfig
	client *minio.Client
	logger *courselookup.Logger
}

// NewMinIOSource returns a source for minio://endpoint/bucket/key.
func NewMinIOSource(bucket, key string, cfg MinIOConfig, logger *courselookup.Logger) *MinIOSource {
	if logger == nil {
		logger = courselookup.NoopLogger()
	}
	return &MinIOSource{Bucket: bucket, Key: key, cfg: cfg, logger: logger}
}

// WithClient replaces the MinIO client built from the configuration.
func (s *MinIOSource) WithClient(client *minio.Client) *MinIOSource {
	s.client = client
	return s
}

func (s *MinIOSource) newClient() (*minio.Client, error) {
	return minio.New(s.cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(s.cfg.AccessKey, s.cfg.SecretKey, ""),
		Secure: s.cfg.Secure,
		Region: s.cfg.Region,
	})
}

// Load implements courselookup.Loader.
func (s *MinIOSource) Load(ctx context.Context) ([]courselookup.CourseRecord, error) {
	client := s.client
	if client == nil {
		c, err := s.newClient()
		if err != nil {
			return nil, fmt.Errorf("dataset: creating minio client: %w", err)
		}
		client = c
	}
	obj, err := client.GetObject(ctx, s.Bucket, s.Key, minio.GetObjectOptions{})
	if err != nil {
		errResp := minio.ToErrorResponse(err)
		return nil, fmt.Errorf("dataset: reading minio object %s/%s (%s): %w", s.Bucket, s.Key, errResp.Code, err)
	}
	defer obj.Close()
	return decode(ctx, obj, "minio://"+s.cfg.Endpoint+"/"+s.Bucket+"/"+s.Key, s.logger)
}
