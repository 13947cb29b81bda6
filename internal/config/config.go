// Package config defines the configuration structures for KnowledgeVIS.
// No I/O or parsing logic lives here, only plain data types and validation.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/AdamCoscia/KnowledgeVIS/internal/infrastructure/monitoring/logging"
)

// ─────────────────────────────────────────────────────────────────────────────
// Sub-configuration structs
// ─────────────────────────────────────────────────────────────────────────────

// ServerConfig holds HTTP server tunables.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"` // "debug" | "release" | "test"
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxBodySize     int64         `mapstructure:"max_body_size"`
	// RateLimit is requests per second per client IP; 0 disables limiting.
	RateLimit      float64  `mapstructure:"rate_limit"`
	RateBurst      int      `mapstructure:"rate_burst"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Addr returns host:port for net/http.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// BackendConfig points at the prediction service that serves "/" and "/getData".
type BackendConfig struct {
	BaseURL    string        `mapstructure:"base_url"`
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxRetries int           `mapstructure:"max_retries"`
	UserAgent  string        `mapstructure:"user_agent"`
	// SkipHealthCheck disables the GET "/" probe that precedes every query.
	SkipHealthCheck bool `mapstructure:"skip_health_check"`
}

// CacheConfig controls the response cache placed in front of the backend.
// Driver "memory" uses an in-process cache; "redis" uses the Redis section;
// "none" disables caching.
type CacheConfig struct {
	Driver          string        `mapstructure:"driver"`
	TTL             time.Duration `mapstructure:"ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	KeyPrefix    string        `mapstructure:"key_prefix"`
}

// SessionConfig bounds the in-memory session registry.
type SessionConfig struct {
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
	// InitialSubjects is the minimum number of subjects selected after a
	// dataset loads; whole sentence groups are added until it is reached.
	InitialSubjects int `mapstructure:"initial_subjects"`
}

// ViewsConfig carries the default viewport and display modes of each view.
type ViewsConfig struct {
	Width          float64 `mapstructure:"width"`
	Height         float64 `mapstructure:"height"`
	HeatMapSort    string  `mapstructure:"heatmap_sort"`
	SetViewSort    string  `mapstructure:"setview_sort"`
	Scale          string  `mapstructure:"scale"`
	LabelDistance  float64 `mapstructure:"label_distance"`
	CharWidthRatio float64 `mapstructure:"char_width_ratio"`
}

// KafkaConfig holds the session-event producer parameters.
type KafkaConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Brokers      []string      `mapstructure:"brokers"`
	Topic        string        `mapstructure:"topic"`
	BatchSize    int           `mapstructure:"batch_size"`
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`
	MaxAttempts  int           `mapstructure:"max_attempts"`
	BufferSize   int           `mapstructure:"buffer_size"`

	// CreateTopic makes serve create Topic on startup when it is missing.
	CreateTopic bool `mapstructure:"create_topic"`
	Partitions  int  `mapstructure:"partitions"`
}

// MinIOConfig holds the object storage used for dataset exports.
type MinIOConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	UseSSL    bool   `mapstructure:"use_ssl"`

	// RetentionDays expires exports after this many days; 0 keeps them.
	RetentionDays int `mapstructure:"retention_days"`
}

// MetricsConfig controls the Prometheus registry and endpoint.
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Path      string `mapstructure:"path"`
	Namespace string `mapstructure:"namespace"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Root config
// ─────────────────────────────────────────────────────────────────────────────

// Config is the root configuration object.
type Config struct {
	Server  ServerConfig      `mapstructure:"server"`
	Backend BackendConfig     `mapstructure:"backend"`
	Cache   CacheConfig       `mapstructure:"cache"`
	Redis   RedisConfig       `mapstructure:"redis"`
	Session SessionConfig     `mapstructure:"session"`
	Views   ViewsConfig       `mapstructure:"views"`
	Kafka   KafkaConfig       `mapstructure:"kafka"`
	MinIO   MinIOConfig       `mapstructure:"minio"`
	Log     logging.LogConfig `mapstructure:"log"`
	Metrics MetricsConfig     `mapstructure:"metrics"`
}

var (
	validServerModes  = []string{"debug", "release", "test"}
	validCacheDrivers = []string{"memory", "redis", "none"}
	validSortModes    = []string{"name", "rank", "group-name", "group-rank"}
	validScaleModes   = []string{"log", "linear"}
)

func oneOf(v string, allowed []string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}

// Validate checks cross-field constraints. It expects ApplyDefaults to have run.
func (c *Config) Validate() error {
	var problems []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		problems = append(problems, fmt.Sprintf("server.port %d out of range", c.Server.Port))
	}
	if !oneOf(c.Server.Mode, validServerModes) {
		problems = append(problems, fmt.Sprintf("server.mode %q must be one of %v", c.Server.Mode, validServerModes))
	}
	if c.Server.RateLimit < 0 {
		problems = append(problems, "server.rate_limit must not be negative")
	}
	if c.Backend.BaseURL == "" {
		problems = append(problems, "backend.base_url is required")
	}
	if !oneOf(c.Cache.Driver, validCacheDrivers) {
		problems = append(problems, fmt.Sprintf("cache.driver %q must be one of %v", c.Cache.Driver, validCacheDrivers))
	}
	if c.Cache.Driver == "redis" && c.Redis.Addr == "" {
		problems = append(problems, "redis.addr is required when cache.driver is redis")
	}
	if c.Session.InitialSubjects < 1 {
		problems = append(problems, "session.initial_subjects must be at least 1")
	}
	if c.Views.Width <= 0 || c.Views.Height <= 0 {
		problems = append(problems, "views.width and views.height must be positive")
	}
	if !oneOf(c.Views.HeatMapSort, validSortModes) {
		problems = append(problems, fmt.Sprintf("views.heatmap_sort %q must be one of %v", c.Views.HeatMapSort, validSortModes))
	}
	if !oneOf(c.Views.SetViewSort, validSortModes) {
		problems = append(problems, fmt.Sprintf("views.setview_sort %q must be one of %v", c.Views.SetViewSort, validSortModes))
	}
	if !oneOf(c.Views.Scale, validScaleModes) {
		problems = append(problems, fmt.Sprintf("views.scale %q must be one of %v", c.Views.Scale, validScaleModes))
	}
	if c.Kafka.Enabled && (len(c.Kafka.Brokers) == 0 || c.Kafka.Topic == "") {
		problems = append(problems, "kafka.brokers and kafka.topic are required when kafka is enabled")
	}
	if c.MinIO.Enabled && (c.MinIO.Endpoint == "" || c.MinIO.Bucket == "") {
		problems = append(problems, "minio.endpoint and minio.bucket are required when minio is enabled")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%s", strings.Join(problems, "; "))
	}
	return nil
}
