package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "callrpc", cfg.Client.Service)
	assert.Equal(t, "round_robin", cfg.Client.Balancer)
	assert.False(t, cfg.Client.Debug)
	assert.False(t, cfg.Client.RateLimit.Enabled)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "/rpc", cfg.Server.Path)
	assert.Equal(t, int64(10), cfg.Registry.TTLSeconds)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.UsesDiscovery())
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
client:
  service_url: http://accounts.internal:8080/rpc
  debug: true
  balancer: consistent_hash
  rate_limit:
    enabled: true
    rps: 5
    burst: 2
registry:
  endpoints: [etcd-0:2379, etcd-1:2379]
logging:
  level: debug
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://accounts.internal:8080/rpc", cfg.Client.ServiceURL)
	assert.True(t, cfg.Client.Debug)
	assert.Equal(t, "consistent_hash", cfg.Client.Balancer)
	assert.Equal(t, RateLimitConfig{Enabled: true, RPS: 5, Burst: 2}, cfg.Client.RateLimit)
	assert.Equal(t, []string{"etcd-0:2379", "etcd-1:2379"}, cfg.Registry.Endpoints)
	assert.True(t, cfg.UsesDiscovery())
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeConfig(t, "client:\n  service_url: http://a/rpc\n")
	t.Setenv("CALLRPC_CLIENT_SERVICE_URL", "http://b/rpc")
	t.Setenv("CALLRPC_CLIENT_DEBUG", "true")
	t.Setenv("CALLRPC_REGISTRY_ENDPOINTS", "etcd-0:2379, etcd-1:2379")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://b/rpc", cfg.Client.ServiceURL)
	assert.True(t, cfg.Client.Debug)
	assert.Equal(t, []string{"etcd-0:2379", "etcd-1:2379"}, cfg.Registry.Endpoints)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidateStatic(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Client:   ClientConfig{Service: "callrpc", Balancer: "round_robin"},
			Server:   ServerConfig{Addr: ":8080", Path: "/rpc"},
			Registry: RegistryConfig{TTLSeconds: 10},
			Logging:  LoggingConfig{Level: "info"},
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{name: "relative service url", mutate: func(c *Config) { c.Client.ServiceURL = "/rpc" }, field: "client.service_url"},
		{name: "ftp service url", mutate: func(c *Config) { c.Client.ServiceURL = "ftp://a/rpc" }, field: "client.service_url"},
		{name: "unknown balancer", mutate: func(c *Config) { c.Client.Balancer = "random" }, field: "client.balancer"},
		{name: "zero rps", mutate: func(c *Config) { c.Client.RateLimit = RateLimitConfig{Enabled: true, Burst: 1} }, field: "client.rate_limit.rps"},
		{name: "zero burst", mutate: func(c *Config) { c.Client.RateLimit = RateLimitConfig{Enabled: true, RPS: 1} }, field: "client.rate_limit.burst"},
		{name: "path without slash", mutate: func(c *Config) { c.Server.Path = "rpc" }, field: "server.path"},
		{name: "no addr", mutate: func(c *Config) { c.Server.Addr = "" }, field: "server.addr"},
		{name: "zero ttl", mutate: func(c *Config) {
			c.Registry = RegistryConfig{Endpoints: []string{"etcd:2379"}}
		}, field: "registry.ttl_seconds"},
		{name: "bad level", mutate: func(c *Config) { c.Logging.Level = "loud" }, field: "logging.level"},
	}

	require.NoError(t, ValidateStatic(valid()))

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)

			err := ValidateStatic(cfg)
			require.Error(t, err)
			var ve *ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}
