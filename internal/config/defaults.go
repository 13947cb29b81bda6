package config

import "time"

// ─────────────────────────────────────────────────────────────────────────────
// Default value constants
// ─────────────────────────────────────────────────────────────────────────────

const (
	DefaultServerHost = "0.0.0.0"
	DefaultServerPort = 8080
	DefaultServerMode = "release"

	DefaultBackendURL     = "http://localhost:5000"
	DefaultBackendTimeout = 2 * time.Minute

	DefaultCacheDriver = "memory"
	DefaultCacheTTL    = 30 * time.Minute

	DefaultRedisAddr   = "localhost:6379"
	DefaultRedisPrefix = "knowledgevis:"

	DefaultSessionIdle     = 30 * time.Minute
	DefaultInitialSubjects = 6

	DefaultViewWidth     = 800
	DefaultViewHeight    = 600
	DefaultHeatMapSort   = "rank"
	DefaultSetViewSort   = "name"
	DefaultScale         = "log"
	DefaultLabelDistance = 15
	DefaultCharWidth     = 0.6

	DefaultKafkaTopic  = "knowledgevis.session-events"
	DefaultKafkaBuffer = 256

	DefaultMinIOBucket = "knowledgevis-exports"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultMetricsPath      = "/metrics"
	DefaultMetricsNamespace = "knowledgevis"
)

// ApplyDefaults fills every zero-value field in cfg with the default.
// Explicitly set fields are left unchanged.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	// ── Server ────────────────────────────────────────────────────────────────
	if cfg.Server.Host == "" {
		cfg.Server.Host = DefaultServerHost
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultServerPort
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = DefaultServerMode
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 30 * time.Second
	}
	// a query blocks until the backend answers, so writes get the backend budget
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultBackendTimeout + 10*time.Second
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 15 * time.Second
	}
	if cfg.Server.MaxBodySize == 0 {
		cfg.Server.MaxBodySize = 1 << 20
	}
	if cfg.Server.RateBurst == 0 {
		cfg.Server.RateBurst = 20
	}
	if len(cfg.Server.AllowedOrigins) == 0 {
		cfg.Server.AllowedOrigins = []string{"*"}
	}

	// ── Backend ───────────────────────────────────────────────────────────────
	if cfg.Backend.BaseURL == "" {
		cfg.Backend.BaseURL = DefaultBackendURL
	}
	if cfg.Backend.Timeout == 0 {
		cfg.Backend.Timeout = DefaultBackendTimeout
	}
	if cfg.Backend.UserAgent == "" {
		cfg.Backend.UserAgent = "knowledgevis/1.0"
	}

	// ── Cache ─────────────────────────────────────────────────────────────────
	if cfg.Cache.Driver == "" {
		cfg.Cache.Driver = DefaultCacheDriver
	}
	if cfg.Cache.TTL == 0 {
		cfg.Cache.TTL = DefaultCacheTTL
	}
	if cfg.Cache.CleanupInterval == 0 {
		cfg.Cache.CleanupInterval = 10 * time.Minute
	}

	// ── Redis ─────────────────────────────────────────────────────────────────
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = DefaultRedisAddr
	}
	if cfg.Redis.PoolSize == 0 {
		cfg.Redis.PoolSize = 10
	}
	if cfg.Redis.DialTimeout == 0 {
		cfg.Redis.DialTimeout = 5 * time.Second
	}
	if cfg.Redis.ReadTimeout == 0 {
		cfg.Redis.ReadTimeout = 3 * time.Second
	}
	if cfg.Redis.WriteTimeout == 0 {
		cfg.Redis.WriteTimeout = 3 * time.Second
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = DefaultRedisPrefix
	}

	// ── Session ───────────────────────────────────────────────────────────────
	if cfg.Session.IdleTimeout == 0 {
		cfg.Session.IdleTimeout = DefaultSessionIdle
	}
	if cfg.Session.CleanupInterval == 0 {
		cfg.Session.CleanupInterval = time.Minute
	}
	if cfg.Session.InitialSubjects == 0 {
		cfg.Session.InitialSubjects = DefaultInitialSubjects
	}

	// ── Views ─────────────────────────────────────────────────────────────────
	if cfg.Views.Width == 0 {
		cfg.Views.Width = DefaultViewWidth
	}
	if cfg.Views.Height == 0 {
		cfg.Views.Height = DefaultViewHeight
	}
	if cfg.Views.HeatMapSort == "" {
		cfg.Views.HeatMapSort = DefaultHeatMapSort
	}
	if cfg.Views.SetViewSort == "" {
		cfg.Views.SetViewSort = DefaultSetViewSort
	}
	if cfg.Views.Scale == "" {
		cfg.Views.Scale = DefaultScale
	}
	if cfg.Views.LabelDistance == 0 {
		cfg.Views.LabelDistance = DefaultLabelDistance
	}
	if cfg.Views.CharWidthRatio == 0 {
		cfg.Views.CharWidthRatio = DefaultCharWidth
	}

	// ── Kafka ─────────────────────────────────────────────────────────────────
	if cfg.Kafka.Topic == "" {
		cfg.Kafka.Topic = DefaultKafkaTopic
	}
	if cfg.Kafka.BatchSize == 0 {
		cfg.Kafka.BatchSize = 100
	}
	if cfg.Kafka.BatchTimeout == 0 {
		cfg.Kafka.BatchTimeout = 100 * time.Millisecond
	}
	if cfg.Kafka.MaxAttempts == 0 {
		cfg.Kafka.MaxAttempts = 3
	}
	if cfg.Kafka.BufferSize == 0 {
		cfg.Kafka.BufferSize = DefaultKafkaBuffer
	}

	// ── MinIO ─────────────────────────────────────────────────────────────────
	if cfg.MinIO.Bucket == "" {
		cfg.MinIO.Bucket = DefaultMinIOBucket
	}

	// ── Log ───────────────────────────────────────────────────────────────────
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}

	// ── Metrics ───────────────────────────────────────────────────────────────
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}
}

// Default returns a fully defaulted Config, useful for tests and for the CLI
// when no config file is given.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}
