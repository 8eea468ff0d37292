package main

import (
	"os"

	"github.com/spf13/cobra"

	"callrpc/config"
	"callrpc/logger"
	"callrpc/registry"
)

type closableRegistry interface {
	registry.Registry
	Close() error
}

// openRegistry connects to the configured etcd cluster; tests replace it.
var openRegistry = func(endpoints []string) (closableRegistry, error) {
	reg, err := registry.NewEtcdRegistry(endpoints)
	if err != nil {
		return nil, err
	}
	return reg, nil
}

// releaser closes reg, logging instead of failing: it runs on the way out of a command.
func releaser(reg closableRegistry, log logger.Logger) func() {
	return func() {
		if err := reg.Close(); err != nil {
			log.Warnw("failed to close registry", "error", err)
		}
	}
}

func noop() {}

var configFile string

func main() {
	rootCmd := &cobra.Command{
		Use:          "callrpc",
		Short:        "JSON-over-HTTP RPC client and demo endpoint",
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to config file (CONFIG_FILE when unset)")

	rootCmd.AddCommand(callCmd())
	rootCmd.AddCommand(serveCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setup loads the configuration and builds the process logger.
func setup() (*config.Config, logger.Logger, error) {
	if configFile == "" {
		configFile = os.Getenv("CONFIG_FILE")
	}

	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, nil, err
	}

	log, err := logger.New(cfg.Logging.Level)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}
