package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"callrpc/client"
	"callrpc/config"
	"callrpc/loadbalance"
	"callrpc/logger"
	"callrpc/message"
	"callrpc/middleware"
)

func callCmd() *cobra.Command {
	var (
		params      message.RequestParams
		payload     string
		count       int
		concurrency int
	)

	cmd := &cobra.Command{
		Use:   "call",
		Short: "Send one or more RPC requests and print the responses and call statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			if payload != "" {
				if !json.Valid([]byte(payload)) {
					return fmt.Errorf("--payload is not valid JSON")
				}
				params.Payload = json.RawMessage(payload)
			}
			if count < 1 || concurrency < 1 {
				return fmt.Errorf("--count and --concurrency must be at least 1")
			}

			cfg, log, err := setup()
			if err != nil {
				return err
			}
			defer log.Sync()

			c, release, err := newClient(cfg, log)
			if err != nil {
				return err
			}
			defer release()

			err = runCalls(c, params, count, concurrency, cmd.OutOrStdout())
			fmt.Fprint(cmd.OutOrStdout(), c.Stats().Describe())
			return err
		},
	}

	cmd.Flags().StringVar(&params.URI, "uri", "", "Resource uri, e.g. /user (required)")
	cmd.Flags().StringVar(&params.Method, "method", "", "RPC method, e.g. login (required)")
	cmd.Flags().StringVar(&params.SessionID, "session", "", "Session id")
	cmd.Flags().StringVar(&params.DeviceID, "device", "", "Device id")
	cmd.Flags().StringVar(&payload, "payload", "", "JSON payload")
	cmd.Flags().IntVar(&count, "count", 1, "Number of requests to send")
	cmd.Flags().IntVar(&concurrency, "concurrency", 1, "Maximum requests in flight")
	return cmd
}

// runCalls sends count requests with at most concurrency in flight and prints each outcome.
// The first failed call is returned after all calls finished.
func runCalls(c *client.Client, params message.RequestParams, count, concurrency int, out io.Writer) error {
	var (
		g  errgroup.Group
		mu sync.Mutex
	)
	g.SetLimit(concurrency)

	for i := 0; i < count; i++ {
		req, err := c.NewRequest(params)
		if err != nil {
			return err
		}
		g.Go(func() error {
			resp, err := c.Do(req)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				fmt.Fprintf(out, "%s: error: %v\n", req, err)
				return err
			}
			fmt.Fprintf(out, "%s: %d %s", req, resp.StatusCode(), resp.Message())
			if resp.HasPayload() {
				fmt.Fprintf(out, " %s", resp.Payload())
			}
			fmt.Fprintln(out)
			return nil
		})
	}
	return g.Wait()
}

// newClient wires the configured endpoint source and transport middlewares. The returned
// func releases the registry connection, if one was opened.
func newClient(cfg *config.Config, log logger.Logger) (*client.Client, func(), error) {
	var endpoint client.Resolver
	release := noop
	switch {
	case cfg.UsesDiscovery():
		reg, err := openRegistry(cfg.Registry.Endpoints)
		if err != nil {
			return nil, nil, err
		}
		release = releaser(reg, log)
		endpoint = client.NewDiscoveryEndpoint(reg, loadbalance.New(cfg.Client.Balancer), cfg.Client.Service)
	case cfg.Client.ServiceURL != "":
		endpoint = client.StaticEndpoint(cfg.Client.ServiceURL)
	default:
		return nil, nil, fmt.Errorf("client.service_url or registry.endpoints is required")
	}

	mws := []middleware.Middleware{middleware.LoggingMiddleware(log)}
	if rl := cfg.Client.RateLimit; rl.Enabled {
		mws = append(mws, middleware.RateLimitMiddleware(rl.RPS, rl.Burst))
	}

	c, err := client.NewClient(client.Options{
		Endpoint:    endpoint,
		Middlewares: mws,
		Logger:      log,
		Debug:       cfg.Client.Debug,
	})
	if err != nil {
		release()
		return nil, nil, err
	}
	return c, release, nil
}
