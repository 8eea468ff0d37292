package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"callrpc/logger"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

var balancers = map[string]bool{
	"round_robin":     true,
	"weighted_random": true,
	"consistent_hash": true,
}

// ValidateStatic checks everything that can be checked without touching the network.
// All problems are reported together.
func ValidateStatic(cfg *Config) error {
	var errs []error
	errs = append(errs, validateClient(cfg.Client)...)
	errs = append(errs, validateServer(cfg.Server)...)
	errs = append(errs, validateRegistry(cfg.Registry)...)

	if _, err := logger.ParseLevel(cfg.Logging.Level); err != nil {
		errs = append(errs, &ValidationError{Field: "logging.level", Message: err.Error()})
	}
	return errors.Join(errs...)
}

func validateClient(cfg ClientConfig) []error {
	var errs []error
	if cfg.ServiceURL != "" {
		if err := validateURL(cfg.ServiceURL); err != nil {
			errs = append(errs, &ValidationError{Field: "client.service_url", Message: err.Error()})
		}
	}
	if !balancers[cfg.Balancer] {
		errs = append(errs, &ValidationError{
			Field:   "client.balancer",
			Message: fmt.Sprintf("unknown balancer %q", cfg.Balancer),
		})
	}
	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.RPS <= 0 {
			errs = append(errs, &ValidationError{Field: "client.rate_limit.rps", Message: "rps must be positive"})
		}
		if cfg.RateLimit.Burst < 1 {
			errs = append(errs, &ValidationError{Field: "client.rate_limit.burst", Message: "burst must be at least 1"})
		}
	}
	return errs
}

func validateServer(cfg ServerConfig) []error {
	var errs []error
	if cfg.Addr == "" {
		errs = append(errs, &ValidationError{Field: "server.addr", Message: "address is required"})
	}
	if !strings.HasPrefix(cfg.Path, "/") {
		errs = append(errs, &ValidationError{Field: "server.path", Message: "path must start with /"})
	}
	if cfg.AdvertiseURL != "" {
		if err := validateURL(cfg.AdvertiseURL); err != nil {
			errs = append(errs, &ValidationError{Field: "server.advertise_url", Message: err.Error()})
		}
	}
	return errs
}

func validateRegistry(cfg RegistryConfig) []error {
	if len(cfg.Endpoints) > 0 && cfg.TTLSeconds <= 0 {
		return []error{&ValidationError{Field: "registry.ttl_seconds", Message: "ttl must be positive"}}
	}
	return nil
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("host is required")
	}
	return nil
}
