package config

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"os"
	"runtime/debug"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	defaultDiskCacheSize     = 10 * 1024 * 1024
	defaultMemoryCacheSizeKB = 32 * 1024
)

type Config struct {
	ListenAddr        string        `mapstructure:"IMLOADER_LISTEN_ADDR"`
	CacheDir          string        `mapstructure:"IMLOADER_CACHE_DIR"`
	DiskCacheSize     int64         `mapstructure:"IMLOADER_DISK_CACHE_SIZE"`
	MemoryCacheSizeKB int           `mapstructure:"IMLOADER_MEMORY_CACHE_SIZE_KB"`
	AllowedDomains    []string      `mapstructure:"IMLOADER_ALLOWED_DOMAINS"`
	FetchRetries      int           `mapstructure:"IMLOADER_FETCH_RETRIES"`
	FetchTimeout      time.Duration `mapstructure:"IMLOADER_FETCH_TIMEOUT"`
	Workers           int           `mapstructure:"IMLOADER_WORKERS"`

	InvalidateSecurityToken string `mapstructure:"IMLOADER_INVALIDATE_SECURITY_TOKEN"`

	// --- MongoDB, optional ---
	MongoConnectionString string `mapstructure:"IMLOADER_MONGO_CONNECTION_STRING"`
	MongoDatabase         string `mapstructure:"IMLOADER_MONGO_DATABASE"`

	// --- MinIO / S3, optional ---
	MinioEndpoint  string `mapstructure:"IMLOADER_MINIO_ENDPOINT"`
	MinioAccessKey string `mapstructure:"IMLOADER_MINIO_ACCESS_KEY"`
	MinioSecretKey string `mapstructure:"IMLOADER_MINIO_SECRET_KEY"`
	MinioBucket    string `mapstructure:"IMLOADER_MINIO_BUCKET"`
	MinioLocation  string `mapstructure:"IMLOADER_MINIO_LOCATION"`
	MinioSSL       bool   `mapstructure:"IMLOADER_MINIO_SSL"`
}

var keys = []string{
	"IMLOADER_LISTEN_ADDR", "IMLOADER_CACHE_DIR", "IMLOADER_DISK_CACHE_SIZE",
	"IMLOADER_MEMORY_CACHE_SIZE_KB", "IMLOADER_ALLOWED_DOMAINS", "IMLOADER_FETCH_RETRIES",
	"IMLOADER_FETCH_TIMEOUT", "IMLOADER_WORKERS", "IMLOADER_INVALIDATE_SECURITY_TOKEN",
	"IMLOADER_MONGO_CONNECTION_STRING", "IMLOADER_MONGO_DATABASE",
	"IMLOADER_MINIO_ENDPOINT", "IMLOADER_MINIO_ACCESS_KEY", "IMLOADER_MINIO_SECRET_KEY",
	"IMLOADER_MINIO_BUCKET", "IMLOADER_MINIO_LOCATION", "IMLOADER_MINIO_SSL",
}

// LoadFromEnv reads the configuration from environment variables, loading
// a .env file from the working directory first when one exists.
func LoadFromEnv() (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return nil, fmt.Errorf("failed to load .env: %w", err)
		}
	}

	v := viper.New()
	v.AutomaticEnv()

	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	v.SetDefault("IMLOADER_LISTEN_ADDR", ":80")
	v.SetDefault("IMLOADER_DISK_CACHE_SIZE", defaultDiskCacheSize)
	v.SetDefault("IMLOADER_MEMORY_CACHE_SIZE_KB", defaultMemoryCacheSize())
	v.SetDefault("IMLOADER_ALLOWED_DOMAINS", "*")
	v.SetDefault("IMLOADER_FETCH_RETRIES", 2)
	v.SetDefault("IMLOADER_FETCH_TIMEOUT", time.Minute)
	v.SetDefault("IMLOADER_MONGO_DATABASE", "imloader")
	v.SetDefault("IMLOADER_MINIO_LOCATION", "us-east-1")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	cfg.AllowedDomains = normalizeList(cfg.AllowedDomains)
	if len(cfg.AllowedDomains) == 0 {
		cfg.AllowedDomains = []string{"*"}
	}

	return &cfg, nil
}

// Validate reports the first invalid or missing value.
func (c *Config) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("%w: IMLOADER_LISTEN_ADDR is empty", ErrInvalidConfig)
	}

	if c.DiskCacheSize <= 0 {
		return fmt.Errorf("%w: IMLOADER_DISK_CACHE_SIZE must be > 0", ErrInvalidConfig)
	}

	if c.MemoryCacheSizeKB <= 0 {
		return fmt.Errorf("%w: IMLOADER_MEMORY_CACHE_SIZE_KB must be > 0", ErrInvalidConfig)
	}

	if c.FetchRetries < 0 {
		return fmt.Errorf("%w: IMLOADER_FETCH_RETRIES must be >= 0", ErrInvalidConfig)
	}

	if c.FetchTimeout <= 0 {
		return fmt.Errorf("%w: IMLOADER_FETCH_TIMEOUT must be > 0", ErrInvalidConfig)
	}

	if c.MongoConnectionString != "" {
		parsed, err := url.Parse(c.MongoConnectionString)
		if err != nil {
			return fmt.Errorf("%w: cannot parse IMLOADER_MONGO_CONNECTION_STRING: %s", ErrInvalidConfig, err)
		}

		if parsed.User == nil {
			return fmt.Errorf("%w: IMLOADER_MONGO_CONNECTION_STRING must contain credentials", ErrInvalidConfig)
		}
	}

	if c.MinioEnabled() {
		if c.MinioAccessKey == "" || c.MinioSecretKey == "" {
			return fmt.Errorf("%w: IMLOADER_MINIO_ACCESS_KEY and IMLOADER_MINIO_SECRET_KEY are required with IMLOADER_MINIO_ENDPOINT", ErrInvalidConfig)
		}

		if c.MinioBucket == "" {
			return fmt.Errorf("%w: IMLOADER_MINIO_BUCKET is required with IMLOADER_MINIO_ENDPOINT", ErrInvalidConfig)
		}
	}

	return nil
}

func (c *Config) MongoEnabled() bool {
	return c.MongoConnectionString != ""
}

func (c *Config) MinioEnabled() bool {
	return c.MinioEndpoint != ""
}

func (c *Config) String() string {
	var sb strings.Builder
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("  ListenAddr: %s\n", c.ListenAddr))
	sb.WriteString(fmt.Sprintf("  CacheDir: %s\n", c.CacheDir))
	sb.WriteString(fmt.Sprintf("  DiskCacheSize: %d\n", c.DiskCacheSize))
	sb.WriteString(fmt.Sprintf("  MemoryCacheSizeKB: %d\n", c.MemoryCacheSizeKB))
	sb.WriteString(fmt.Sprintf("  AllowedDomains: %s\n", strings.Join(c.AllowedDomains, ",")))
	sb.WriteString(fmt.Sprintf("  FetchRetries: %d\n", c.FetchRetries))
	sb.WriteString(fmt.Sprintf("  FetchTimeout: %s\n", c.FetchTimeout))
	sb.WriteString(fmt.Sprintf("  Workers: %d\n", c.Workers))
	sb.WriteString(fmt.Sprintf("  InvalidateSecurityToken: %s\n", masked(c.InvalidateSecurityToken)))
	sb.WriteString(fmt.Sprintf("  MongoConnectionString: %s\n", masked(c.MongoConnectionString)))
	sb.WriteString(fmt.Sprintf("  MongoDatabase: %s\n", c.MongoDatabase))
	sb.WriteString(fmt.Sprintf("  MinioEndpoint: %s\n", c.MinioEndpoint))
	sb.WriteString(fmt.Sprintf("  MinioAccessKey: %s\n", masked(c.MinioAccessKey)))
	sb.WriteString(fmt.Sprintf("  MinioSecretKey: %s\n", masked(c.MinioSecretKey)))
	sb.WriteString(fmt.Sprintf("  MinioBucket: %s\n", c.MinioBucket))
	sb.WriteString(fmt.Sprintf("  MinioLocation: %s\n", c.MinioLocation))
	sb.WriteString(fmt.Sprintf("  MinioSSL: %v\n", c.MinioSSL))

	return sb.String()
}

func masked(secret string) string {
	if secret == "" {
		return "(empty)"
	}

	return "********"
}

// defaultMemoryCacheSize is an eighth of the Go memory limit when one is
// set, in kilobytes.
func defaultMemoryCacheSize() int {
	limit := debug.SetMemoryLimit(-1)
	if limit <= 0 || limit == math.MaxInt64 {
		return defaultMemoryCacheSizeKB
	}

	return int(limit / 8 / 1024)
}

func normalizeList(values []string) []string {
	result := []string{}
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				result = append(result, part)
			}
		}
	}

	return result
}

var ErrInvalidConfig = errors.New("invalid configuration")
