// Package server is an HTTP endpoint that speaks the request/response envelope. It is the
// peer the client is exercised against and the demo service behind "callrpc serve".
//
// Request pipeline:
//
//	POST {path} → decode request envelope (HTTP 400 if invalid)
//	  → look up uri, then method (envelope 404)
//	  → decode payload into *Args (envelope 400)
//	  → reflect call → envelope 200 "ok" with *Reply, or 500 / StatusError code
//
// The response always echoes the request id. Every handled call is recorded in the server's
// own stats.Aggregator, exposed on GET /stats and, through prometheus, on GET /metrics.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"reflect"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/juju/clock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"callrpc/codec"
	"callrpc/logger"
	"callrpc/message"
	"callrpc/protocol"
	"callrpc/registry"
	"callrpc/stats"
)

const DefaultPath = "/rpc"

type Options struct {
	Path         string // Envelope endpoint, DefaultPath when empty
	Service      string // Name published in Registry
	AdvertiseURL string // Endpoint URL published in Registry, e.g. "http://10.0.0.5:8080/rpc"
	Registry     registry.Registry
	TTL          int64 // Registry lease in seconds
	Logger       logger.Logger
	Clock        clock.Clock
}

// StatusError lets a handler choose the envelope status code of its failure. Any other
// error is reported as 500.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%d %s", e.Code, e.Message)
}

type Server struct {
	opts     Options
	codec    codec.Codec
	log      logger.Logger
	clock    clock.Clock
	stats    *stats.Aggregator
	metrics  *prometheus.Registry
	mu       sync.RWMutex
	services map[string]*service // uri → service
	engine   *gin.Engine
	httpSrv  *http.Server
}

func NewServer(opts Options) *Server {
	if opts.Path == "" {
		opts.Path = DefaultPath
	}
	if opts.TTL <= 0 {
		opts.TTL = 10
	}
	if opts.Logger == nil {
		opts.Logger = logger.NopLogger()
	}
	if opts.Clock == nil {
		opts.Clock = clock.WallClock
	}

	s := &Server{
		opts:     opts,
		codec:    codec.GetCodec(codec.CodecTypeJSON),
		log:      opts.Logger,
		clock:    opts.Clock,
		stats:    stats.NewAggregator(),
		metrics:  prometheus.NewRegistry(),
		services: make(map[string]*service),
	}
	s.metrics.MustRegister(stats.NewCollector(s.stats, "callrpc_server"))
	s.engine = s.routes()
	return s
}

// Register mounts rcvr at uri. Registering the same uri again replaces the receiver.
func (s *Server) Register(uri string, rcvr any) error {
	svc, err := newService(uri, rcvr)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.services[uri] = svc
	s.mu.Unlock()
	s.log.Infow("service registered", "uri", uri, "methods", len(svc.methods))
	return nil
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) Stats() *stats.Aggregator {
	return s.stats
}

func (s *Server) routes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(s.log))

	router.POST(s.opts.Path, s.handleRPC)
	router.GET("/stats", func(c *gin.Context) {
		c.String(http.StatusOK, s.stats.Describe())
	})
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.metrics, promhttp.HandlerOpts{})))
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return router
}

func requestLogger(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debugw("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
		)
	}
}

func (s *Server) handleRPC(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var req message.Request
	if err := s.codec.Decode(body, &req); err != nil {
		s.log.Warnw("rejected request envelope", "error", err, "remote", c.ClientIP())
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	start := s.clock.Now()
	resp := s.dispatch(&req)
	elapsed := s.clock.Now().Sub(start)

	key := stats.KeyOf(req.URI(), req.Method())
	if resp.IsSuccess() {
		s.stats.RecordSuccess(key, elapsed)
	} else {
		s.stats.RecordError(key, elapsed)
	}

	data, err := s.codec.Encode(resp)
	if err != nil {
		s.log.Errorw("failed to encode response", "call_key", key, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}
	c.Data(http.StatusOK, protocol.ContentType, data)
}

func (s *Server) dispatch(req *message.Request) *message.Response {
	s.mu.RLock()
	svc := s.services[req.URI()]
	s.mu.RUnlock()
	if svc == nil {
		return reply(req.ID(), protocol.StatusNotFound, "unknown uri "+req.URI(), nil)
	}
	m := svc.methods[req.Method()]
	if m == nil {
		return reply(req.ID(), protocol.StatusNotFound, "unknown method "+req.Key(), nil)
	}

	argv := reflect.New(m.ArgType)
	if err := req.DecodePayload(argv.Interface()); err != nil {
		return reply(req.ID(), protocol.StatusBadRequest, "invalid payload: "+err.Error(), nil)
	}
	replyv := reflect.New(m.ReplyType)

	if err := svc.call(m, argv, replyv); err != nil {
		var se *StatusError
		if errors.As(err, &se) {
			return reply(req.ID(), se.Code, se.Message, nil)
		}
		s.log.Warnw("handler failed", "call_key", req.Key(), "request_id", req.ID(), "error", err)
		return reply(req.ID(), protocol.StatusInternalError, err.Error(), nil)
	}
	return reply(req.ID(), protocol.StatusOK, "ok", replyv.Interface())
}

func reply(id int64, code int, msg string, payload any) *message.Response {
	resp, err := message.NewResponse(id, code, msg, payload)
	if err != nil {
		resp, _ = message.NewResponse(id, protocol.StatusInternalError, "failed to encode reply: "+err.Error(), nil)
	}
	return resp
}

// ListenAndServe listens on addr and serves until Shutdown.
func (s *Server) ListenAndServe(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.Serve(ln)
}

// Serve publishes the advertise URL in the registry, when one is configured, and serves
// on ln until Shutdown. It returns nil after a clean shutdown.
func (s *Server) Serve(ln net.Listener) error {
	httpSrv := &http.Server{Handler: s.engine}
	s.mu.Lock()
	s.httpSrv = httpSrv
	s.mu.Unlock()

	if s.opts.Registry != nil {
		inst := registry.ServiceInstance{Addr: s.opts.AdvertiseURL, Weight: 1}
		if err := s.opts.Registry.Register(s.opts.Service, inst, s.opts.TTL); err != nil {
			ln.Close()
			return fmt.Errorf("failed to register %s: %w", s.opts.Service, err)
		}
		s.log.Infow("endpoint published", "service", s.opts.Service, "url", s.opts.AdvertiseURL)
	}

	s.log.Infow("server listening", "addr", ln.Addr().String(), "path", s.opts.Path)
	if err := httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown withdraws the endpoint from the registry first, so clients stop picking it, then
// waits for in-flight requests until ctx is done.
func (s *Server) Shutdown(ctx context.Context) error {
	var errs []error
	if s.opts.Registry != nil {
		if err := s.opts.Registry.Deregister(s.opts.Service, s.opts.AdvertiseURL); err != nil {
			errs = append(errs, fmt.Errorf("failed to deregister: %w", err))
		}
	}

	s.mu.RLock()
	httpSrv := s.httpSrv
	s.mu.RUnlock()
	if httpSrv != nil {
		if err := httpSrv.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("server shutdown: %w", err))
		}
	}
	return errors.Join(errs...)
}
