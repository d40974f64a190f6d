package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	AWS        AWSConfig        `yaml:"aws"`
	Bedrock    BedrockConfig    `yaml:"bedrock"`
	Images     ImagesConfig     `yaml:"images"`
	Tracking   TrackingConfig   `yaml:"tracking"`
	Publishing PublishingConfig `yaml:"publishing"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port           int      `yaml:"port"`
	Host           string   `yaml:"host"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	DevMode        bool     `yaml:"dev_mode"` // accepts requests without X-Owner-ID
	DevOwnerID     string   `yaml:"dev_owner_id"`
}

// GetHost returns the server host, with ECS detection
func (c ServerConfig) GetHost() string {
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return "0.0.0.0"
	}
	if host := os.Getenv("SERVER_HOST"); host != "" {
		return host
	}
	return c.Host
}

// DatabaseConfig holds the Postgres connection. An empty URL selects the
// in-memory repository.
type DatabaseConfig struct {
	URL             string `yaml:"url"`
	MaxOpenConns    int    `yaml:"max_open_conns"`
	MaxIdleConns    int    `yaml:"max_idle_conns"`
	ConnMaxLifetime int    `yaml:"conn_max_lifetime_minutes"`
}

// Lifetime returns the connection max lifetime.
func (c DatabaseConfig) Lifetime() time.Duration {
	return time.Duration(c.ConnMaxLifetime) * time.Minute
}

// RedisConfig holds the Redis used for rotation stats and publish locks.
type RedisConfig struct {
	URL string `yaml:"url"`
}

// AWSConfig holds shared AWS settings.
type AWSConfig struct {
	Region  string `yaml:"region"`
	Profile string `yaml:"profile"`
}

// BedrockConfig holds content generation settings.
type BedrockConfig struct {
	Enabled        bool    `yaml:"enabled"`
	Region         string  `yaml:"region"`
	ModelID        string  `yaml:"model_id"`
	MaxTokens      int     `yaml:"max_tokens"`
	Temperature    float64 `yaml:"temperature"`
	Language       string  `yaml:"language"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
}

// Timeout returns the per-call regeneration deadline.
func (c BedrockConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// ImagesConfig holds the S3 bucket landing page images are uploaded to.
type ImagesConfig struct {
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	CDNDomain string `yaml:"cdn_domain"`
	Prefix    string `yaml:"prefix"`
	MaxWidth  int    `yaml:"max_width"`
}

// Enabled reports whether uploads are configured.
func (c ImagesConfig) Enabled() bool { return c.Bucket != "" }

// TrackingConfig holds the SQS queue contact selections are published to.
type TrackingConfig struct {
	QueueURL        string `yaml:"queue_url"`
	ConsumerEnabled bool   `yaml:"consumer_enabled"`
	RetentionDays   int    `yaml:"retention_days"` // contact_selections rows older than this are purged
}

// Retention returns the selection log retention as a duration.
func (t TrackingConfig) Retention() time.Duration {
	return time.Duration(t.RetentionDays) * 24 * time.Hour
}

// PublishingConfig holds the public addressing of published pages.
type PublishingConfig struct {
	BaseURL         string `yaml:"base_url"`
	DefaultCurrency string `yaml:"default_currency"`
	DefaultMessage  string `yaml:"default_message"`
	LockTTLSeconds  int    `yaml:"lock_ttl_seconds"`
}

// LockTTL returns how long a publish may hold its slug lock.
func (c PublishingConfig) LockTTL() time.Duration {
	return time.Duration(c.LockTTLSeconds) * time.Second
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Level     string `yaml:"level"`
	RedactPII *bool  `yaml:"redact_pii"`
}

// Redact reports whether PII redaction is on. Defaults to true.
func (c LoggingConfig) Redact() bool {
	return c.RedactPII == nil || *c.RedactPII
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.setDefaults()
	return &cfg, nil
}

func (cfg *Config) setDefaults() {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if len(cfg.Server.AllowedOrigins) == 0 {
		cfg.Server.AllowedOrigins = []string{"http://localhost:5173", "http://localhost:8080"}
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 20
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 30
	}
	if cfg.AWS.Region == "" {
		cfg.AWS.Region = "us-west-2"
	}
	if cfg.Bedrock.Region == "" {
		cfg.Bedrock.Region = cfg.AWS.Region
	}
	if cfg.Bedrock.ModelID == "" {
		cfg.Bedrock.ModelID = "anthropic.claude-3-haiku-20240307-v1:0"
	}
	if cfg.Bedrock.MaxTokens == 0 {
		cfg.Bedrock.MaxTokens = 1500
	}
	if cfg.Bedrock.Temperature == 0 {
		cfg.Bedrock.Temperature = 0.7
	}
	if cfg.Bedrock.Language == "" {
		cfg.Bedrock.Language = "Indonesian"
	}
	if cfg.Bedrock.TimeoutSeconds == 0 {
		cfg.Bedrock.TimeoutSeconds = 60
	}
	if cfg.Images.Region == "" {
		cfg.Images.Region = cfg.AWS.Region
	}
	if cfg.Images.Prefix == "" {
		cfg.Images.Prefix = "landing"
	}
	if cfg.Images.MaxWidth == 0 {
		cfg.Images.MaxWidth = 1600
	}
	if cfg.Publishing.BaseURL == "" {
		cfg.Publishing.BaseURL = "http://localhost:8080/p"
	}
	if cfg.Publishing.DefaultCurrency == "" {
		cfg.Publishing.DefaultCurrency = "IDR"
	}
	if cfg.Tracking.RetentionDays == 0 {
		cfg.Tracking.RetentionDays = 90
	}
	if cfg.Publishing.LockTTLSeconds == 0 {
		cfg.Publishing.LockTTLSeconds = 30
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}

// LoadFromEnv loads config.yaml (when present), the .env file, and then
// applies environment overrides.
func LoadFromEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg, err := Load(path)
	if os.IsNotExist(err) {
		cfg = &Config{}
		cfg.setDefaults()
	} else if err != nil {
		return nil, err
	}

	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		cfg.Server.AllowedOrigins = splitList(v)
	}
	if v := os.Getenv("DEV_MODE"); v != "" {
		cfg.Server.DevMode = v == "true"
	}

	// Database override (critical for ECS deployment where config.yaml has local defaults)
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Redis.URL = v
	}
	if v := os.Getenv("AWS_REGION"); v != "" {
		// Sections that inherited the shared region follow the override.
		if cfg.Bedrock.Region == cfg.AWS.Region {
			cfg.Bedrock.Region = v
		}
		if cfg.Images.Region == cfg.AWS.Region {
			cfg.Images.Region = v
		}
		cfg.AWS.Region = v
	}
	if v := os.Getenv("AWS_PROFILE"); v != "" {
		cfg.AWS.Profile = v
	}
	if v := os.Getenv("BEDROCK_MODEL_ID"); v != "" {
		cfg.Bedrock.ModelID = v
	}
	if v := os.Getenv("BEDROCK_ENABLED"); v != "" {
		cfg.Bedrock.Enabled = v == "true"
	}
	if v := os.Getenv("IMAGES_BUCKET"); v != "" {
		cfg.Images.Bucket = v
	}
	if v := os.Getenv("IMAGES_CDN_DOMAIN"); v != "" {
		cfg.Images.CDNDomain = v
	}
	if v := os.Getenv("TRACKING_QUEUE_URL"); v != "" {
		cfg.Tracking.QueueURL = v
	}
	if v := os.Getenv("PUBLIC_BASE_URL"); v != "" {
		cfg.Publishing.BaseURL = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
