package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	MinPort = 1
	MaxPort = 65535

	StoreBackendMemory = "memory"
	StoreBackendRedis  = "redis"
)

// readSecret reads a Docker secret from a file path specified by an env var
// with _FILE suffix. If FOO is already set directly, the file is skipped.
// If FOO_FILE is set, reads the file content and sets FOO.
func readSecret(envKey string) {
	if os.Getenv(envKey) != "" {
		return
	}
	filePath := os.Getenv(envKey + "_FILE")
	if filePath == "" {
		return
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return
	}
	os.Setenv(envKey, strings.TrimSpace(string(data)))
}

type Config struct {
	Server    ServerConfig
	Logging   LoggingConfig
	Redis     RedisConfig
	Store     StoreConfig
	JWT       JWTConfig
	RateLimit RateLimitConfig
	Pipeline  PipelineConfig
	Upload    UploadConfig
	R2        R2Config
	OIDC      OIDCConfig
	Gateway   GatewayConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

type LoggingConfig struct {
	Level        string // debug, info, warn, error
	Format       string // console, json
	Output       string // stdout, stderr
	EnableSource bool
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type StoreConfig struct {
	Backend string // memory or redis
}

type JWTConfig struct {
	Secret     string
	Expiration int // hours
}

type RateLimitConfig struct {
	ReceiptPerHour  int
	PipelinePerHour int
}

// PipelineConfig configures the remote automation service
type PipelineConfig struct {
	APIKey  string
	BaseURL string
	UserID  string

	ReceiptPipelineID string
	RecipePipelineID  string
	SuggestPipelineID string

	ReceiptOutput  string
	RecipeOutput   string
	MaxSuggestions int

	PollInterval      time.Duration
	MaxWait           time.Duration
	RequestTimeout    time.Duration
	MaxRequestsPerSec float64 // 0 disables outbound rate limiting
}

type UploadConfig struct {
	MaxBytes int64
	TempDir  string
}

type R2Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	PublicURL       string
}

type OIDCConfig struct {
	Issuer   string
	ClientID string
}

type GatewayConfig struct {
	Enabled bool
}

// Load reads configuration from .env, an optional config.yaml and the environment
func Load() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	// Read Docker Swarm secrets from _FILE env vars before Viper binds
	readSecret("REDIS_PASSWORD")
	readSecret("GUMLOOP_API_KEY")
	readSecret("JWT_SECRET")
	readSecret("R2_ACCOUNT_ID")
	readSecret("R2_ACCESS_KEY_ID")
	readSecret("R2_SECRET_ACCESS_KEY")

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.AutomaticEnv()

	bindEnv(v)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := fromViper(v)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func bindEnv(v *viper.Viper) {
	_ = v.BindEnv("server.port", "SERVER_PORT")
	_ = v.BindEnv("server.env", "SERVER_ENV")
	_ = v.BindEnv("logging.level", "LOG_LEVEL")
	_ = v.BindEnv("logging.format", "LOG_FORMAT")
	_ = v.BindEnv("logging.output", "LOG_OUTPUT")
	_ = v.BindEnv("logging.enable_source", "LOG_ENABLE_SOURCE")
	_ = v.BindEnv("redis.addr", "REDIS_ADDR")
	_ = v.BindEnv("redis.password", "REDIS_PASSWORD")
	_ = v.BindEnv("redis.db", "REDIS_DB")
	_ = v.BindEnv("store.backend", "STORE_BACKEND")
	_ = v.BindEnv("jwt.secret", "JWT_SECRET")
	_ = v.BindEnv("jwt.expiration", "JWT_EXPIRATION")
	_ = v.BindEnv("ratelimit.receipt_per_hour", "RATELIMIT_RECEIPT_PER_HOUR")
	_ = v.BindEnv("ratelimit.pipeline_per_hour", "RATELIMIT_PIPELINE_PER_HOUR")
	// GUMLOOP is still accepted from older .env files
	_ = v.BindEnv("pipeline.api_key", "GUMLOOP_API_KEY", "GUMLOOP")
	_ = v.BindEnv("pipeline.base_url", "GUMLOOP_BASE_URL")
	_ = v.BindEnv("pipeline.user_id", "GUMLOOP_USER_ID")
	_ = v.BindEnv("pipeline.receipt_pipeline_id", "GUMLOOP_RECEIPT_PIPELINE_ID")
	_ = v.BindEnv("pipeline.recipe_pipeline_id", "GUMLOOP_RECIPE_PIPELINE_ID")
	_ = v.BindEnv("pipeline.suggest_pipeline_id", "GUMLOOP_SUGGEST_PIPELINE_ID")
	_ = v.BindEnv("pipeline.receipt_output", "GUMLOOP_RECEIPT_OUTPUT")
	_ = v.BindEnv("pipeline.recipe_output", "GUMLOOP_RECIPE_OUTPUT")
	_ = v.BindEnv("pipeline.poll_interval", "GUMLOOP_POLL_INTERVAL")
	_ = v.BindEnv("pipeline.max_wait", "GUMLOOP_MAX_WAIT")
	_ = v.BindEnv("pipeline.request_timeout", "GUMLOOP_REQUEST_TIMEOUT")
	_ = v.BindEnv("pipeline.max_requests_per_sec", "GUMLOOP_MAX_REQUESTS_PER_SEC")
	_ = v.BindEnv("upload.max_bytes", "UPLOAD_MAX_BYTES")
	_ = v.BindEnv("upload.temp_dir", "UPLOAD_TEMP_DIR")
	_ = v.BindEnv("r2.account_id", "R2_ACCOUNT_ID")
	_ = v.BindEnv("r2.access_key_id", "R2_ACCESS_KEY_ID")
	_ = v.BindEnv("r2.secret_access_key", "R2_SECRET_ACCESS_KEY")
	_ = v.BindEnv("r2.bucket_name", "R2_BUCKET_NAME")
	_ = v.BindEnv("r2.public_url", "R2_PUBLIC_URL")
	_ = v.BindEnv("oidc.issuer", "OIDC_ISSUER")
	_ = v.BindEnv("oidc.client_id", "OIDC_CLIENT_ID")
	_ = v.BindEnv("gateway.enabled", "GATEWAY_ENABLED")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "5001")
	v.SetDefault("server.env", "development")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.enable_source", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("store.backend", StoreBackendMemory)
	v.SetDefault("jwt.secret", "change-me-in-production")
	v.SetDefault("jwt.expiration", 24)
	v.SetDefault("ratelimit.receipt_per_hour", 30)
	v.SetDefault("ratelimit.pipeline_per_hour", 60)

	// Pipeline defaults
	v.SetDefault("pipeline.base_url", "https://api.gumloop.com/api/v1")
	v.SetDefault("pipeline.receipt_output", "receipt_text")
	v.SetDefault("pipeline.recipe_output", "recipe_json")
	v.SetDefault("pipeline.max_suggestions", 3)
	v.SetDefault("pipeline.poll_interval", 2*time.Second)
	v.SetDefault("pipeline.max_wait", 300*time.Second)
	v.SetDefault("pipeline.request_timeout", 30*time.Second)
	v.SetDefault("pipeline.max_requests_per_sec", 0)

	v.SetDefault("upload.max_bytes", 10*1024*1024)
	v.SetDefault("upload.temp_dir", "")

	v.SetDefault("gateway.enabled", false)
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		Server: ServerConfig{
			Port: v.GetString("server.port"),
			Env:  v.GetString("server.env"),
		},
		Logging: LoggingConfig{
			Level:        v.GetString("logging.level"),
			Format:       v.GetString("logging.format"),
			Output:       v.GetString("logging.output"),
			EnableSource: v.GetBool("logging.enable_source"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Store: StoreConfig{
			Backend: strings.ToLower(v.GetString("store.backend")),
		},
		JWT: JWTConfig{
			Secret:     v.GetString("jwt.secret"),
			Expiration: v.GetInt("jwt.expiration"),
		},
		RateLimit: RateLimitConfig{
			ReceiptPerHour:  v.GetInt("ratelimit.receipt_per_hour"),
			PipelinePerHour: v.GetInt("ratelimit.pipeline_per_hour"),
		},
		Pipeline: PipelineConfig{
			APIKey:            v.GetString("pipeline.api_key"),
			BaseURL:           v.GetString("pipeline.base_url"),
			UserID:            v.GetString("pipeline.user_id"),
			ReceiptPipelineID: v.GetString("pipeline.receipt_pipeline_id"),
			RecipePipelineID:  v.GetString("pipeline.recipe_pipeline_id"),
			SuggestPipelineID: v.GetString("pipeline.suggest_pipeline_id"),
			ReceiptOutput:     v.GetString("pipeline.receipt_output"),
			RecipeOutput:      v.GetString("pipeline.recipe_output"),
			MaxSuggestions:    v.GetInt("pipeline.max_suggestions"),
			PollInterval:      v.GetDuration("pipeline.poll_interval"),
			MaxWait:           v.GetDuration("pipeline.max_wait"),
			RequestTimeout:    v.GetDuration("pipeline.request_timeout"),
			MaxRequestsPerSec: v.GetFloat64("pipeline.max_requests_per_sec"),
		},
		Upload: UploadConfig{
			MaxBytes: v.GetInt64("upload.max_bytes"),
			TempDir:  v.GetString("upload.temp_dir"),
		},
		R2: R2Config{
			AccountID:       v.GetString("r2.account_id"),
			AccessKeyID:     v.GetString("r2.access_key_id"),
			SecretAccessKey: v.GetString("r2.secret_access_key"),
			BucketName:      v.GetString("r2.bucket_name"),
			PublicURL:       v.GetString("r2.public_url"),
		},
		OIDC: OIDCConfig{
			Issuer:   v.GetString("oidc.issuer"),
			ClientID: v.GetString("oidc.client_id"),
		},
		Gateway: GatewayConfig{
			Enabled: v.GetBool("gateway.enabled"),
		},
	}
}

// Validate checks if the configuration is usable
func (c *Config) Validate() error {
	port, err := parsePort(c.Server.Port)
	if err != nil {
		return err
	}
	if port < MinPort || port > MaxPort {
		return fmt.Errorf("invalid server port: %d (must be between %d and %d)", port, MinPort, MaxPort)
	}

	switch c.Store.Backend {
	case StoreBackendMemory, StoreBackendRedis:
	default:
		return fmt.Errorf("invalid store backend: %q (must be %q or %q)", c.Store.Backend, StoreBackendMemory, StoreBackendRedis)
	}

	if c.Pipeline.PollInterval <= 0 {
		return fmt.Errorf("pipeline poll_interval must be greater than 0")
	}
	if c.Pipeline.MaxWait <= 0 {
		return fmt.Errorf("pipeline max_wait must be greater than 0")
	}
	if c.Pipeline.RequestTimeout <= 0 {
		return fmt.Errorf("pipeline request_timeout must be greater than 0")
	}
	if c.Pipeline.MaxRequestsPerSec < 0 {
		return fmt.Errorf("pipeline max_requests_per_sec must not be negative")
	}
	if c.Pipeline.MaxSuggestions <= 0 {
		return fmt.Errorf("pipeline max_suggestions must be greater than 0")
	}
	if c.Upload.MaxBytes <= 0 {
		return fmt.Errorf("upload max_bytes must be greater than 0")
	}

	// Without an API key the services run on mock results, so ids are only
	// required once the remote service is actually in use.
	if c.Pipeline.APIKey != "" {
		if c.Pipeline.UserID == "" {
			return fmt.Errorf("pipeline user_id is required when an api key is set")
		}
		if c.Pipeline.ReceiptPipelineID == "" || c.Pipeline.RecipePipelineID == "" || c.Pipeline.SuggestPipelineID == "" {
			return fmt.Errorf("pipeline ids (receipt, recipe, suggest) are required when an api key is set")
		}
	}

	return nil
}

func parsePort(raw string) (int, error) {
	var port int
	if _, err := fmt.Sscanf(raw, "%d", &port); err != nil {
		return 0, fmt.Errorf("invalid server port: %q", raw)
	}
	return port, nil
}
