package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config aggregates application settings that may be sourced from files or environment variables.
type Config struct {
	API      APIConfig      `mapstructure:"api"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	MinIO    MinIOConfig    `mapstructure:"minio"`
	Render   RenderConfig   `mapstructure:"render"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Delivery DeliveryConfig `mapstructure:"delivery"`
	Worker   WorkerConfig   `mapstructure:"worker"`
}

// APIConfig contains HTTP server settings.
type APIConfig struct {
	Port           int           `mapstructure:"port"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	SessionIdleTTL time.Duration `mapstructure:"session_idle_ttl"`
}

// DatabaseConfig contains connection options for PostgreSQL.
type DatabaseConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Name     string `mapstructure:"name"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	SSLMode  string `mapstructure:"sslmode"`
}

// RedisConfig 包含 Redis 连接配置。
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns host:port.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// MinIOConfig contains connection options for MinIO/S3-compatible storage.
type MinIOConfig struct {
	Endpoint         string `mapstructure:"endpoint"`
	PublicEndpoint   string `mapstructure:"public_endpoint"`
	AccessKeyID      string `mapstructure:"access_key_id"`
	SecretAccessKey  string `mapstructure:"secret_access_key"`
	UseSSL           bool   `mapstructure:"use_ssl"`
	Bucket           string `mapstructure:"bucket"`
	Region           string `mapstructure:"region"`
	BucketLookup     string `mapstructure:"bucket_lookup"`
	AutoCreateBucket bool   `mapstructure:"auto_create_bucket"`
}

// Render modes.
const (
	RenderModeLocal = "local"
	RenderModeQueue = "queue"
)

// RenderConfig 控制文档构建方式：本进程内渲染或投递到 worker 队列。
type RenderConfig struct {
	Mode         string        `mapstructure:"mode"`
	ChromeBin    string        `mapstructure:"chrome_bin"`
	PrintTimeout time.Duration `mapstructure:"print_timeout"`
	FontWait     time.Duration `mapstructure:"font_wait"`
	FontFamilies []string      `mapstructure:"font_families"`
}

// PipelineConfig tunes retries and the overall build timeout.
type PipelineConfig struct {
	MaxAttempts int             `mapstructure:"max_attempts"`
	Backoff     []time.Duration `mapstructure:"backoff"`
	Timeout     time.Duration   `mapstructure:"timeout"`
}

// DeliveryConfig tunes download strategies.
type DeliveryConfig struct {
	ReleaseDelay time.Duration `mapstructure:"release_delay"`
	// PresignTTL bounds the inline viewer link.
	PresignTTL   time.Duration `mapstructure:"presign_ttl"`
	MaxPasses    int           `mapstructure:"max_passes"`
}

// WorkerConfig contains asynq server settings.
type WorkerConfig struct {
	Concurrency int    `mapstructure:"concurrency"`
	Queue       string `mapstructure:"queue"`
	// MetricsPort serves /metrics of the worker; 0 disables it.
	MetricsPort int    `mapstructure:"metrics_port"`
}

// DSN builds a lib/pq compatible connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host,
		d.Port,
		d.User,
		d.Password,
		d.Name,
		d.SSLMode,
	)
}

// Load reads configuration solely from environment variables (with optional defaults).
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if err := bindEnv(v); err != nil {
		return nil, fmt.Errorf("bind env: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.Render.Mode = strings.ToLower(strings.TrimSpace(cfg.Render.Mode))

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// MustLoad wraps Load and panics on failure.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("api.session_idle_ttl", 2*time.Hour)
	v.SetDefault("database.enabled", true)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "resumekit")
	v.SetDefault("database.user", "resumekit")
	v.SetDefault("database.password", "resumekit")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("minio.endpoint", "localhost:9000")
	v.SetDefault("minio.public_endpoint", "http://localhost:9000")
	v.SetDefault("minio.use_ssl", false)
	v.SetDefault("minio.bucket", "resumes")
	v.SetDefault("minio.region", "us-east-1")
	v.SetDefault("minio.bucket_lookup", "auto")
	v.SetDefault("minio.auto_create_bucket", true)
	v.SetDefault("render.mode", RenderModeQueue)
	v.SetDefault("render.print_timeout", 30*time.Second)
	v.SetDefault("render.font_wait", 3*time.Second)
	v.SetDefault("render.font_families", []string{"Roboto", "Source Sans Pro", "Lato", "Open Sans"})
	v.SetDefault("pipeline.max_attempts", 3)
	v.SetDefault("pipeline.backoff", []time.Duration{time.Second, 2 * time.Second, 3 * time.Second})
	v.SetDefault("pipeline.timeout", 15*time.Second)
	v.SetDefault("delivery.release_delay", time.Second)
	v.SetDefault("delivery.presign_ttl", 10*time.Minute)
	v.SetDefault("delivery.max_passes", 3)
	v.SetDefault("worker.concurrency", 4)
	v.SetDefault("worker.queue", "render")
	v.SetDefault("worker.metrics_port", 9091)
}

func bindEnv(v *viper.Viper) error {
	mappings := map[string]string{
		"api.port":                 "API_PORT",
		"api.allowed_origins":      "API_ALLOWED_ORIGINS",
		"api.session_idle_ttl":     "API_SESSION_IDLE_TTL",
		"database.enabled":         "DATABASE_ENABLED",
		"database.host":            "DATABASE_HOST",
		"database.port":            "DATABASE_PORT",
		"database.name":            "POSTGRES_DB",
		"database.user":            "POSTGRES_USER",
		"database.password":        "POSTGRES_PASSWORD",
		"database.sslmode":         "DATABASE_SSLMODE",
		"redis.host":               "REDIS_HOST",
		"redis.port":               "REDIS_PORT",
		"redis.password":           "REDIS_PASSWORD",
		"redis.db":                 "REDIS_DB",
		"minio.endpoint":           "MINIO_ENDPOINT",
		"minio.public_endpoint":    "MINIO_PUBLIC_ENDPOINT",
		"minio.access_key_id":      "MINIO_ACCESS_KEY_ID",
		"minio.secret_access_key":  "MINIO_SECRET_ACCESS_KEY",
		"minio.use_ssl":            "MINIO_USE_SSL",
		"minio.bucket":             "MINIO_BUCKET",
		"minio.region":             "MINIO_REGION",
		"minio.bucket_lookup":      "MINIO_BUCKET_LOOKUP",
		"minio.auto_create_bucket": "MINIO_AUTO_CREATE_BUCKET",
		"render.mode":              "RENDER_MODE",
		"render.chrome_bin":        "RENDER_CHROME_BIN",
		"render.print_timeout":     "RENDER_PRINT_TIMEOUT",
		"render.font_wait":         "RENDER_FONT_WAIT",
		"render.font_families":     "RENDER_FONT_FAMILIES",
		"pipeline.max_attempts":    "PIPELINE_MAX_ATTEMPTS",
		"pipeline.backoff":         "PIPELINE_BACKOFF",
		"pipeline.timeout":         "PIPELINE_TIMEOUT",
		"delivery.release_delay":   "DELIVERY_RELEASE_DELAY",
		"delivery.presign_ttl":     "DELIVERY_PRESIGN_TTL",
		"delivery.max_passes":      "DELIVERY_MAX_PASSES",
		"worker.concurrency":       "WORKER_CONCURRENCY",
		"worker.queue":             "WORKER_QUEUE",
		"worker.metrics_port":      "WORKER_METRICS_PORT",
	}

	for key, env := range mappings {
		if err := v.BindEnv(key, env); err != nil {
			return fmt.Errorf("bind %s to %s: %w", key, env, err)
		}
	}

	return nil
}

func validate(cfg Config) error {
	if cfg.API.Port <= 0 {
		return errors.New("api port must be positive")
	}
	if cfg.Database.Enabled {
		if cfg.Database.Host == "" {
			return errors.New("database host is required")
		}
		if cfg.Database.Port <= 0 {
			return errors.New("database port must be positive")
		}
		if cfg.Database.Name == "" {
			return errors.New("database name is required")
		}
		if cfg.Database.User == "" {
			return errors.New("database user is required")
		}
		if cfg.Database.Password == "" {
			return errors.New("database password is required")
		}
		if cfg.Database.SSLMode == "" {
			return errors.New("database sslmode is required")
		}
	}
	if cfg.Redis.Host == "" {
		return errors.New("redis host is required")
	}
	if cfg.Redis.Port <= 0 {
		return errors.New("redis port must be positive")
	}
	if cfg.MinIO.Endpoint == "" {
		return errors.New("minio endpoint is required")
	}
	if cfg.MinIO.AccessKeyID == "" {
		return errors.New("minio access key id is required")
	}
	if cfg.MinIO.SecretAccessKey == "" {
		return errors.New("minio secret access key is required")
	}
	if cfg.MinIO.Bucket == "" {
		return errors.New("minio bucket is required")
	}
	switch cfg.Render.Mode {
	case RenderModeLocal, RenderModeQueue:
	default:
		return fmt.Errorf("render mode must be %q or %q, got %q", RenderModeLocal, RenderModeQueue, cfg.Render.Mode)
	}
	if cfg.Pipeline.MaxAttempts <= 0 {
		return errors.New("pipeline max attempts must be positive")
	}
	if cfg.Pipeline.Timeout <= 0 {
		return errors.New("pipeline timeout must be positive")
	}
	for _, d := range cfg.Pipeline.Backoff {
		if d < 0 {
			return errors.New("pipeline backoff must not be negative")
		}
	}
	if cfg.Delivery.PresignTTL <= 0 {
		return errors.New("delivery presign ttl must be positive")
	}
	if cfg.Delivery.MaxPasses <= 0 {
		return errors.New("delivery max passes must be positive")
	}
	if cfg.Worker.Concurrency <= 0 {
		return errors.New("worker concurrency must be positive")
	}
	return nil
}
