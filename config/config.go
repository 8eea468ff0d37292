package config

type Config struct {
	Client   ClientConfig   `mapstructure:"client"`
	Server   ServerConfig   `mapstructure:"server"`
	Registry RegistryConfig `mapstructure:"registry"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

type ClientConfig struct {
	ServiceURL string          `mapstructure:"service_url"`
	Service    string          `mapstructure:"service"`
	Debug      bool            `mapstructure:"debug"`
	Balancer   string          `mapstructure:"balancer"`
	RateLimit  RateLimitConfig `mapstructure:"rate_limit"`
}

type RateLimitConfig struct {
	Enabled bool    `mapstructure:"enabled"`
	RPS     float64 `mapstructure:"rps"`
	Burst   int     `mapstructure:"burst"`
}

type ServerConfig struct {
	Addr         string `mapstructure:"addr"`
	Path         string `mapstructure:"path"`
	AdvertiseURL string `mapstructure:"advertise_url"`
}

type RegistryConfig struct {
	Endpoints  []string `mapstructure:"endpoints"`
	TTLSeconds int64    `mapstructure:"ttl_seconds"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// UsesDiscovery reports whether endpoints come from etcd rather than client.service_url.
func (c *Config) UsesDiscovery() bool {
	return len(c.Registry.Endpoints) > 0
}
