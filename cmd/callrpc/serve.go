package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"callrpc/config"
	"callrpc/logger"
	"callrpc/server"
)

const shutdownTimeout = 10 * time.Second

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the demo envelope endpoint with the /echo service",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			defer log.Sync()

			gin.SetMode(gin.ReleaseMode)
			srv, release, err := newServer(cfg, log)
			if err != nil {
				return err
			}
			defer release()

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			g, gCtx := errgroup.WithContext(ctx)
			g.Go(func() error {
				return srv.ListenAndServe(cfg.Server.Addr)
			})
			g.Go(func() error {
				<-gCtx.Done()
				log.Infow("shutting down server")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			})

			if err := g.Wait(); err != nil {
				log.Errorw("server exited with error", "error", err)
				return err
			}
			log.Infow("server exited")
			return nil
		},
	}
}

func newServer(cfg *config.Config, log logger.Logger) (*server.Server, func(), error) {
	opts := server.Options{
		Path:         cfg.Server.Path,
		Service:      cfg.Client.Service,
		AdvertiseURL: cfg.Server.AdvertiseURL,
		TTL:          cfg.Registry.TTLSeconds,
		Logger:       log,
	}
	release := noop
	if cfg.UsesDiscovery() {
		if opts.AdvertiseURL == "" {
			return nil, nil, fmt.Errorf("server.advertise_url is required when registry.endpoints is set")
		}
		reg, err := openRegistry(cfg.Registry.Endpoints)
		if err != nil {
			return nil, nil, err
		}
		release = releaser(reg, log)
		opts.Registry = reg
	}

	srv := server.NewServer(opts)
	if err := srv.Register("/echo", &Echo{}); err != nil {
		release()
		return nil, nil, err
	}
	return srv, release, nil
}

type EchoArgs struct {
	Text string `json:"text"`
}

type EchoReply struct {
	Text   string `json:"text"`
	Length int    `json:"length"`
}

// Echo is the demo service: /echo#say and /echo#shout.
type Echo struct{}

func (e *Echo) Say(args *EchoArgs, reply *EchoReply) error {
	reply.Text = args.Text
	reply.Length = len(args.Text)
	return nil
}

func (e *Echo) Shout(args *EchoArgs, reply *EchoReply) error {
	if args.Text == "" {
		return &server.StatusError{Code: 400, Message: "nothing to shout"}
	}
	reply.Text = strings.ToUpper(args.Text)
	reply.Length = len(args.Text)
	return nil
}
