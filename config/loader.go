package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const envPrefix = "CALLRPC"

// Load reads configFile (YAML) when given, then applies CALLRPC_* environment overrides,
// e.g. CALLRPC_CLIENT_SERVICE_URL for client.service_url.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigType("yaml")
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Registry.Endpoints = splitEndpoints(cfg.Registry.Endpoints)

	if err := ValidateStatic(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("client.service_url", "")
	v.SetDefault("client.service", "callrpc")
	v.SetDefault("client.debug", false)
	v.SetDefault("client.balancer", "round_robin")
	v.SetDefault("client.rate_limit.enabled", false)
	v.SetDefault("client.rate_limit.rps", 100.0)
	v.SetDefault("client.rate_limit.burst", 10)

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.path", "/rpc")
	v.SetDefault("server.advertise_url", "")

	v.SetDefault("registry.endpoints", []string{})
	v.SetDefault("registry.ttl_seconds", 10)

	v.SetDefault("logging.level", "info")
}

// splitEndpoints accepts both a YAML list and a single comma separated env value.
func splitEndpoints(in []string) []string {
	var out []string
	for _, e := range in {
		for _, part := range strings.Split(e, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
