// Package config resolves runtime settings from defaults, an optional YAML
// file, COURSELOOKUP_* environment variables and command line flags, in
// increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/oarkflow/courselookup"
	"github.com/oarkflow/courselookup/dataset"
)

// EnvPrefix prefixes every environment override, e.g.
// COURSELOOKUP_BACKEND_URL for backend.url.
const EnvPrefix = "COURSELOOKUP"

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type BackendConfig struct {
	URL string `mapstructure:"url"`
}

type ProxyConfig struct {
	Prefix    string        `mapstructure:"prefix"`
	Timeout   time.Duration `mapstructure:"timeout"`
	RateLimit float64       `mapstructure:"rate_limit"`
	Burst     int           `mapstructure:"burst"`
}

type SearchConfig struct {
	CoursesCap      int           `mapstructure:"courses_cap"`
	InstructorsCap  int           `mapstructure:"instructors_cap"`
	CacheSize       int           `mapstructure:"cache_size"`
	CacheTTL        time.Duration `mapstructure:"cache_ttl"`
	ForwardPrefixes bool          `mapstructure:"forward_prefixes"`
}

type DatasetConfig struct {
	Source string              `mapstructure:"source"`
	SQL    dataset.SQLConfig   `mapstructure:"sql"`
	S3     dataset.S3Config    `mapstructure:"s3"`
	MinIO  dataset.MinIOConfig `mapstructure:"minio"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Config is the resolved configuration of the service.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Backend BackendConfig `mapstructure:"backend"`
	Proxy   ProxyConfig   `mapstructure:"proxy"`
	Search  SearchConfig  `mapstructure:"search"`
	Dataset DatasetConfig `mapstructure:"dataset"`
	Log     LogConfig     `mapstructure:"log"`
}

var defaults = map[string]any{
	"server.addr":             ":8000",
	"server.shutdown_timeout": 10 * time.Second,

	"backend.url": "http://localhost:8080",

	"proxy.prefix":     "/api/",
	"proxy.timeout":    time.Duration(0),
	"proxy.rate_limit": 0.0,
	"proxy.burst":      1,

	"search.courses_cap":      courselookup.DefaultCourseCap,
	"search.instructors_cap":  courselookup.DefaultInstructorCap,
	"search.cache_size":       256,
	"search.cache_ttl":        time.Duration(0),
	"search.forward_prefixes": false,

	"dataset.source":            "embedded",
	"dataset.sql.driver":        "postgres",
	"dataset.sql.host":          "localhost",
	"dataset.sql.port":          5432,
	"dataset.sql.username":      "",
	"dataset.sql.password":      "",
	"dataset.sql.database":      "courses",
	"dataset.sql.query":         dataset.DefaultSQLQuery,
	"dataset.s3.region":         "",
	"dataset.s3.endpoint":       "",
	"dataset.s3.use_path_style": false,
	"dataset.minio.endpoint":    "",
	"dataset.minio.access_key":  "",
	"dataset.minio.secret_key":  "",
	"dataset.minio.region":      "",
	"dataset.minio.secure":      true,

	"log.level":  "info",
	"log.format": "text",
}

// flagKeys maps command line flag names to configuration keys.
var flagKeys = map[string]string{
	"addr":             "server.addr",
	"backend":          "backend.url",
	"proxy-prefix":     "proxy.prefix",
	"proxy-timeout":    "proxy.timeout",
	"rate-limit":       "proxy.rate_limit",
	"burst":            "proxy.burst",
	"courses":          "search.courses_cap",
	"instructors":      "search.instructors_cap",
	"cache-size":       "search.cache_size",
	"forward-prefixes": "search.forward_prefixes",
	"dataset":          "dataset.source",
	"log-level":        "log.level",
	"log-format":       "log.format",
}

// New returns a viper instance with defaults and environment lookup set up.
func New() *viper.Viper {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// BindFlags binds every known flag defined on cmd to its key. Flags the
// command does not define are skipped.
func BindFlags(v *viper.Viper, cmd *cobra.Command) error {
	for name, key := range flagKeys {
		flag := cmd.Flags().Lookup(name)
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("config: binding --%s: %w", name, err)
		}
	}
	return nil
}

// Load reads file (when non-empty) into v and decodes the result.
func Load(v *viper.Viper, file string) (*Config, error) {
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", file, err)
		}
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decoding: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges and the backend URL.
func (c *Config) Validate() error {
	var errs []error
	u, err := url.Parse(c.Backend.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("backend.url must be an absolute http(s) URL, got %q", c.Backend.URL))
	}
	if !strings.HasPrefix(c.Proxy.Prefix, "/") {
		errs = append(errs, fmt.Errorf("proxy.prefix must start with /, got %q", c.Proxy.Prefix))
	}
	if c.Search.CoursesCap < 0 || c.Search.CoursesCap > courselookup.MaxCap {
		errs = append(errs, fmt.Errorf("search.courses_cap must be between 0 and %d", courselookup.MaxCap))
	}
	if c.Search.InstructorsCap < 0 || c.Search.InstructorsCap > courselookup.MaxCap {
		errs = append(errs, fmt.Errorf("search.instructors_cap must be between 0 and %d", courselookup.MaxCap))
	}
	if c.Proxy.Timeout < 0 {
		errs = append(errs, errors.New("proxy.timeout must not be negative"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// Caps returns the configured result caps.
func (c *Config) Caps() courselookup.Caps {
	return courselookup.Caps{Courses: c.Search.CoursesCap, Instructors: c.Search.InstructorsCap}
}

// Sources returns the settings passed to dataset.Open.
func (c *Config) Sources(logger *courselookup.Logger) dataset.Config {
	return dataset.Config{
		SQL:    c.Dataset.SQL,
		S3:     c.Dataset.S3,
		MinIO:  c.Dataset.MinIO,
		Logger: logger,
	}
}
