package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_Defaults(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestValidate_Failures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"port", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
		{"mode", func(c *Config) { c.Server.Mode = "prod" }, "server.mode"},
		{"rate", func(c *Config) { c.Server.RateLimit = -1 }, "server.rate_limit"},
		{"backend", func(c *Config) { c.Backend.BaseURL = "" }, "backend.base_url"},
		{"cache driver", func(c *Config) { c.Cache.Driver = "memcached" }, "cache.driver"},
		{"redis addr", func(c *Config) { c.Cache.Driver = "redis"; c.Redis.Addr = "" }, "redis.addr"},
		{"initial subjects", func(c *Config) { c.Session.InitialSubjects = -1 }, "session.initial_subjects"},
		{"viewport", func(c *Config) { c.Views.Width = 0 }, "views.width"},
		{"heatmap sort", func(c *Config) { c.Views.HeatMapSort = "random" }, "views.heatmap_sort"},
		{"setview sort", func(c *Config) { c.Views.SetViewSort = "random" }, "views.setview_sort"},
		{"scale", func(c *Config) { c.Views.Scale = "sqrt" }, "views.scale"},
		{"kafka", func(c *Config) { c.Kafka.Enabled = true }, "kafka.brokers"},
		{"minio", func(c *Config) { c.MinIO.Enabled = true }, "minio.endpoint"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidate_CollectsAllProblems(t *testing.T) {
	cfg := Default()
	cfg.Server.Port = 0
	cfg.Views.Scale = "sqrt"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.port")
	assert.Contains(t, err.Error(), "views.scale")
}
