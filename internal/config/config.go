// Package config loads connector configuration from an optional YAML
// file with environment variable overrides. Credentials are expected in
// the environment (or a .env file), never in the YAML file.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/quantarc/ticklake/ticklake"
)

// Environment variable names.
const (
	EnvMetadataURL      = "TICKLAKE_METADATA_URL"
	EnvMetadataUser     = "TICKLAKE_METADATA_USERNAME"
	EnvMetadataPassword = "TICKLAKE_METADATA_PASSWORD"
	EnvAWSRegion        = "TICKLAKE_AWS_REGION"
	EnvAWSEndpoint      = "TICKLAKE_AWS_ENDPOINT"
	EnvAWSAccessKeyID   = "TICKLAKE_AWS_ACCESS_KEY_ID"
	EnvAWSSecretKey     = "TICKLAKE_AWS_SECRET_ACCESS_KEY"
	EnvDownloadLimit    = "TICKLAKE_DOWNLOAD_LIMIT_BYTES"
	EnvDownloadWorkers  = "TICKLAKE_DOWNLOAD_WORKERS"
	EnvLogLevel         = "TICKLAKE_LOG_LEVEL"
)

// DefaultMetadataURL is the production metadata service.
const DefaultMetadataURL = "https://metadata.quantarc.io/api/v1/"

// Config holds connector configuration.
type Config struct {
	Metadata MetadataConfig `yaml:"metadata"`
	S3       S3Config       `yaml:"s3"`
	Download DownloadConfig `yaml:"download"`
	LogLevel string         `yaml:"log_level"`
}

// MetadataConfig points at the metadata service.
type MetadataConfig struct {
	BaseURL string `yaml:"base_url"`

	// User and Password come from the environment only.
	User     string `yaml:"-"`
	Password string `yaml:"-"`
}

// S3Config configures the object storage client.
type S3Config struct {
	Region       string `yaml:"region"`
	Endpoint     string `yaml:"endpoint"`
	UsePathStyle bool   `yaml:"use_path_style"`

	// AccessKeyID and SecretAccessKey come from the environment only.
	// When empty, the default AWS credential chain applies.
	AccessKeyID     string `yaml:"-"`
	SecretAccessKey string `yaml:"-"`
}

// DownloadConfig bounds download batches.
type DownloadConfig struct {
	// LimitBytes caps cumulative downloaded bytes. Zero means the
	// default limit; values above the hard cap are clamped.
	LimitBytes int64 `yaml:"limit_bytes"`

	// Workers is the number of concurrent fetches. Zero means the
	// downloader's default.
	Workers int `yaml:"workers"`
}

// Load reads configuration from path (optional, "" skips the file),
// then applies .env and environment overrides.
func Load(path string) (*Config, error) {
	// Load .env if present; real environment variables win.
	_ = godotenv.Load()

	cfg := &Config{
		Metadata: MetadataConfig{BaseURL: DefaultMetadataURL},
		S3:       S3Config{Region: "us-east-1"},
		LogLevel: "info",
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	cfg.Metadata.BaseURL = getEnv(EnvMetadataURL, cfg.Metadata.BaseURL)
	cfg.Metadata.User = getEnv(EnvMetadataUser, "")
	cfg.Metadata.Password = getEnv(EnvMetadataPassword, "")
	cfg.S3.Region = getEnv(EnvAWSRegion, cfg.S3.Region)
	cfg.S3.Endpoint = getEnv(EnvAWSEndpoint, cfg.S3.Endpoint)
	cfg.S3.AccessKeyID = getEnv(EnvAWSAccessKeyID, "")
	cfg.S3.SecretAccessKey = getEnv(EnvAWSSecretKey, "")
	cfg.LogLevel = getEnv(EnvLogLevel, cfg.LogLevel)

	var err error
	if cfg.Download.LimitBytes, err = getEnvAsInt64(EnvDownloadLimit, cfg.Download.LimitBytes); err != nil {
		return nil, err
	}
	workers, err := getEnvAsInt64(EnvDownloadWorkers, int64(cfg.Download.Workers))
	if err != nil {
		return nil, err
	}
	cfg.Download.Workers = int(workers)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Metadata.BaseURL == "" {
		return fmt.Errorf("config: metadata base URL is required")
	}
	if c.Download.LimitBytes < 0 {
		return fmt.Errorf("config: download limit must not be negative")
	}
	if c.Download.LimitBytes > ticklake.HardDownloadLimit {
		c.Download.LimitBytes = ticklake.HardDownloadLimit
	}
	if c.Download.Workers < 0 {
		return fmt.Errorf("config: download workers must not be negative")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvAsInt64(key string, fallback int64) (int64, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return n, nil
}
