package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type S3 struct {
	Endpoint       string `yaml:"endpoint"`
	PublicEndpoint string `yaml:"public_endpoint"`
	Bucket         string `yaml:"bucket"`
	AccessKey      string `yaml:"access_key"`
	SecretKey      string `yaml:"secret_key"`
	Region         string `yaml:"region"`
}

type Analytics struct {
	WebhookURL    string `yaml:"webhook_url"`
	WebhookSecret string `yaml:"webhook_secret"`
}

type RateLimit struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

type Config struct {
	Port           string `yaml:"port"`
	BaseURL        string `yaml:"base_url"`
	DatabaseURL    string `yaml:"database_url"`
	SessionSecret  string `yaml:"session_secret"`
	LogLevel       string `yaml:"log_level"`
	GeoIPPath      string `yaml:"geoip_db_path"`
	FrameAncestors string `yaml:"frame_ancestors"`
	APIDocs        bool   `yaml:"api_docs_enabled"`

	FetchTimeout time.Duration `yaml:"fetch_timeout"`
	MaxCueBytes  int64         `yaml:"max_cue_bytes"`
	SessionTTL   time.Duration `yaml:"session_ttl"`
	VideoURLTTL  time.Duration `yaml:"video_url_ttl"`

	S3        S3        `yaml:"s3"`
	Analytics Analytics `yaml:"analytics"`
	RateLimit RateLimit `yaml:"rate_limit"`
}

func Default() *Config {
	return &Config{
		Port:         "8080",
		BaseURL:      "http://localhost:8080",
		LogLevel:     "info",
		FetchTimeout: 15 * time.Second,
		MaxCueBytes:  5 << 20,
		SessionTTL:   2 * time.Hour,
		VideoURLTTL:  4 * time.Hour,
		S3: S3{
			Endpoint: "http://localhost:3900",
			Bucket:   "lectures",
			Region:   "us-east-1",
		},
		RateLimit: RateLimit{
			RequestsPerSecond: 20,
			Burst:             40,
		},
	}
}

// Load builds the configuration from defaults, the optional YAML file at path
// and the environment, in that order.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.Port, "PORT")
	setString(&c.BaseURL, "BASE_URL")
	setString(&c.DatabaseURL, "DATABASE_URL")
	setString(&c.SessionSecret, "SESSION_SECRET")
	setString(&c.LogLevel, "LOG_LEVEL")
	setString(&c.GeoIPPath, "GEOIP_DB_PATH")
	setString(&c.FrameAncestors, "ALLOWED_FRAME_ANCESTORS")

	setString(&c.S3.Endpoint, "S3_ENDPOINT")
	setString(&c.S3.PublicEndpoint, "S3_PUBLIC_ENDPOINT")
	setString(&c.S3.Bucket, "S3_BUCKET")
	setString(&c.S3.AccessKey, "S3_ACCESS_KEY")
	setString(&c.S3.SecretKey, "S3_SECRET_KEY")
	setString(&c.S3.Region, "S3_REGION")

	setString(&c.Analytics.WebhookURL, "ANALYTICS_WEBHOOK_URL")
	setString(&c.Analytics.WebhookSecret, "ANALYTICS_WEBHOOK_SECRET")

	if err := setDuration(&c.FetchTimeout, "FETCH_TIMEOUT"); err != nil {
		return err
	}
	if err := setDuration(&c.SessionTTL, "SESSION_TTL"); err != nil {
		return err
	}
	if value := os.Getenv("API_DOCS_ENABLED"); value != "" {
		enabled, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("API_DOCS_ENABLED: %w", err)
		}
		c.APIDocs = enabled
	}
	if value := os.Getenv("MAX_CUE_BYTES"); value != "" {
		parsed, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("MAX_CUE_BYTES: %w", err)
		}
		c.MaxCueBytes = parsed
	}
	return nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	if c.SessionSecret == "" {
		errs = append(errs, errors.New("SESSION_SECRET is required"))
	}
	if c.FetchTimeout <= 0 {
		errs = append(errs, errors.New("fetch_timeout must be positive"))
	}
	if c.MaxCueBytes <= 0 {
		errs = append(errs, errors.New("max_cue_bytes must be positive"))
	}
	if c.SessionTTL <= 0 {
		errs = append(errs, errors.New("session_ttl must be positive"))
	}
	return errors.Join(errs...)
}

func setString(dst *string, key string) {
	if value := os.Getenv(key); value != "" {
		*dst = value
	}
}

func setDuration(dst *time.Duration, key string) error {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}
