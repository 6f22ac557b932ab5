// Package dataset provides the sources a course search snapshot can be
// loaded from: the embedded snapshot, a local file, an SQL database, S3 and
// MinIO.
package dataset

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/oarkflow/courselookup"
)

//go:embed data/courses.json
var embeddedCourses []byte

// Config carries the settings needed by the sources that talk to external
// systems.
type Config struct {
	SQL    SQLConfig
	S3     S3Config
	MinIO  MinIOConfig
	Logger *courselookup.Logger
}

// Open returns the loader described by source:
//
//	embedded                      the dataset compiled into the binary
//	file:///path/courses.json     a local JSON file (a bare path works too)
//	sql                           rows selected through cfg.SQL
//	s3://bucket/key               an object fetched with the AWS SDK
//	minio://endpoint/bucket/key   an object fetched from MinIO
func Open(source string, cfg Config) (courselookup.Loader, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = courselookup.NoopLogger()
	}
	source = strings.TrimSpace(source)
	switch {
	case source == "" || source == "embedded":
		return &EmbeddedSource{logger: logger}, nil
	case source == "sql":
		return NewSQLSource(cfg.SQL, logger), nil
	}

	u, err := url.Parse(source)
	if err != nil || u.Scheme == "" {
		return &FileSource{Path: source, logger: logger}, nil
	}
	switch u.Scheme {
	case "file":
		return &FileSource{Path: u.Host + u.Path, logger: logger}, nil
	case "s3":
		bucket, key := u.Host, strings.TrimPrefix(u.Path, "/")
		if bucket == "" || key == "" {
			return nil, fmt.Errorf("dataset: s3 source needs s3://bucket/key, got %q", source)
		}
		return NewS3Source(bucket, key, cfg.S3, logger), nil
	case "minio":
		bucket, key, ok := strings.Cut(strings.TrimPrefix(u.Path, "/"), "/")
		if u.Host == "" || !ok || bucket == "" || key == "" {
			return nil, fmt.Errorf("dataset: minio source needs minio://endpoint/bucket/key, got %q", source)
		}
		mc := cfg.MinIO
		mc.Endpoint = u.Host
		return NewMinIOSource(bucket, key, mc, logger), nil
	default:
		return nil, fmt.Errorf("dataset: unsupported source scheme %q", u.Scheme)
	}
}

// decode reads a JSON array of courses, logging every skipped element.
func decode(ctx context.Context, r io.Reader, name string, logger *courselookup.Logger) ([]courselookup.CourseRecord, error) {
	if logger == nil {
		logger = courselookup.NoopLogger()
	}
	courses, err := courselookup.DecodeCourses(r, func(i int, err error) {
		logger.WarnContext(ctx, "skipping dataset record", "source", name, "index", i, "error", err)
	})
	if err != nil {
		return nil, fmt.Errorf("dataset: %s: %w", name, err)
	}
	return courses, nil
}

// EmbeddedSource serves the dataset compiled into the binary.
type EmbeddedSource struct {
	logger *courselookup.Logger
}

// Load implements courselookup.Loader.
func (s *EmbeddedSource) Load(ctx context.Context) ([]courselookup.CourseRecord, error) {
	return decode(ctx, bytes.NewReader(embeddedCourses), "embedded", s.logger)
}

// FileSource reads the dataset from a local file.
type FileSource struct {
	Path   string
	logger *courselookup.Logger
}

// Load implements courselookup.Loader.
func (s *FileSource) Load(ctx context.Context) ([]courselookup.CourseRecord, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("dataset: %w", err)
	}
	defer f.Close()
	return decode(ctx, f, s.Path, s.logger)
}
