// Package client is the call orchestrator. It turns a request envelope into exactly one
// terminal outcome: a decoded response or an error.
//
// Lifecycle of one call:
//
//	Created ──Call/Go/Do──→ Dispatched ──event──→ Succeeded  (2xx, body parses)
//	                                        └────→ Failed     (transport failure or bad body)
//
// Every terminal outcome is recorded in the shared stats.Aggregator under the request's
// uri#method, with the time from dispatch to the transport's completion timestamp.
// There are no retries, timeouts or cancellation: a call whose transport never answers
// stays Dispatched.
package client

import (
	"errors"
	"fmt"
	"time"

	"github.com/juju/clock"

	"callrpc/codec"
	"callrpc/logger"
	"callrpc/message"
	"callrpc/middleware"
	"callrpc/protocol"
	"callrpc/stats"
	"callrpc/transport"
)

// ErrNoEndpoint is returned by NewClient when Options.Endpoint is nil.
var ErrNoEndpoint = errors.New("client: no endpoint configured")

type Options struct {
	Endpoint    Resolver                // Required: where requests are posted
	Transport   transport.Transport     // Defaults to an HTTPTransport on the client clock
	Middlewares []middleware.Middleware // Wrapped around Transport, first is outermost
	Stats       *stats.Aggregator       // Shared process-wide; a fresh one when nil
	IDs         *message.IDSource       // Request id allocation; a fresh one when nil
	Clock       clock.Clock             // Dispatch timestamps; wall clock when nil
	Logger      logger.Logger
	Debug       bool // Log endpoint, request and response bodies
}

type Client struct {
	endpoint Resolver
	send     transport.SendFunc
	codec    codec.Codec
	stats    *stats.Aggregator
	ids      *message.IDSource
	clock    clock.Clock
	log      logger.Logger
	debug    bool
}

func NewClient(opts Options) (*Client, error) {
	if opts.Endpoint == nil {
		return nil, ErrNoEndpoint
	}
	if opts.Clock == nil {
		opts.Clock = clock.WallClock
	}
	if opts.Transport == nil {
		opts.Transport = transport.NewHTTPTransport(nil, opts.Clock)
	}
	if opts.Stats == nil {
		opts.Stats = stats.NewAggregator()
	}
	if opts.IDs == nil {
		opts.IDs = message.NewIDSource()
	}
	if opts.Logger == nil {
		opts.Logger = logger.NopLogger()
	}

	return &Client{
		endpoint: opts.Endpoint,
		send:     middleware.Wrap(opts.Transport, opts.Middlewares...),
		codec:    codec.GetCodec(codec.CodecTypeJSON),
		stats:    opts.Stats,
		ids:      opts.IDs,
		clock:    opts.Clock,
		log:      opts.Logger,
		debug:    opts.Debug,
	}, nil
}

// NewRequest builds a request with the next id from the client's id source.
func (c *Client) NewRequest(params message.RequestParams) (*message.Request, error) {
	return message.NewRequest(c.ids, params)
}

// Stats returns the aggregator every call of this client records into.
func (c *Client) Stats() *stats.Aggregator {
	return c.stats
}

// Call dispatches req and returns at once. Exactly one of onSuccess or onError runs later,
// on a goroutine owned by the client; either may be nil.
//
// A non-nil return means the call never left Created: the endpoint could not be resolved or
// the request could not be encoded. No callback runs and nothing is recorded in that case.
func (c *Client) Call(req *message.Request, onSuccess func(*message.Response), onError func(error)) error {
	cl, events, err := c.dispatch(req)
	if err != nil {
		return err
	}

	go func() {
		resp, err := c.complete(cl, <-events)
		if err != nil {
			if onError != nil {
				onError(err)
			}
			return
		}
		if onSuccess != nil {
			onSuccess(resp)
		}
	}()
	return nil
}

// Go is the channel form of Call. The returned channel is buffered and receives exactly
// one Result.
func (c *Client) Go(req *message.Request) (<-chan Result, error) {
	cl, events, err := c.dispatch(req)
	if err != nil {
		return nil, err
	}

	done := make(chan Result, 1)
	go func() {
		resp, err := c.complete(cl, <-events)
		done <- Result{Request: req, Response: resp, Err: err}
	}()
	return done, nil
}

// Do dispatches req and blocks until its terminal outcome.
func (c *Client) Do(req *message.Request) (*message.Response, error) {
	done, err := c.Go(req)
	if err != nil {
		return nil, err
	}
	r := <-done
	return r.Response, r.Err
}

func (c *Client) dispatch(req *message.Request) (*call, <-chan transport.Event, error) {
	if req == nil {
		return nil, nil, fmt.Errorf("client: nil request")
	}
	cl := newCall(req)

	url, err := c.endpoint.Resolve(req.Key())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to resolve endpoint for %s: %w", req.Key(), err)
	}
	body, err := c.codec.Encode(req)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode %s: %w", req, err)
	}

	cl.url = url
	cl.start = c.clock.Now()
	if !cl.advance(Created, Dispatched) {
		return nil, nil, fmt.Errorf("client: %s dispatched twice", req)
	}

	if c.debug {
		c.log.Infow("rpc endpoint", "url", url)
		c.log.Infow(">> "+string(body), "request_id", req.ID(), "call_key", req.Key())
	}
	return cl, c.send(protocol.HTTPMethod, url, body), nil
}

// complete moves cl to its terminal state, records the outcome and returns what the caller
// sees.
func (c *Client) complete(cl *call, ev transport.Event) (*message.Response, error) {
	elapsed := c.elapsed(cl.start, ev.CompletedAt)

	if ev.Failed() {
		return nil, c.fail(cl, elapsed, &transport.Failure{Event: ev}, ev)
	}

	var resp message.Response
	if err := c.codec.Decode(ev.Body, &resp); err != nil {
		return nil, c.fail(cl, elapsed, &DecodeError{Event: ev, Err: err}, ev)
	}

	if !cl.advance(Dispatched, Succeeded) {
		c.log.Errorw("rpc call completed twice", "call", cl)
		return nil, errCompleted
	}
	c.stats.RecordSuccess(cl.key, elapsed)
	if c.debug {
		c.log.Infow("<< "+string(ev.Body), "request_id", cl.req.ID(), "call_key", cl.key, "elapsed", elapsed)
	}
	return &resp, nil
}

func (c *Client) fail(cl *call, elapsed time.Duration, err error, ev transport.Event) error {
	if !cl.advance(Dispatched, Failed) {
		c.log.Errorw("rpc call completed twice", "call", cl)
		return errCompleted
	}
	c.stats.RecordError(cl.key, elapsed)
	if c.debug {
		c.log.Warnw("rpc call failed",
			"url", cl.url,
			"call_key", cl.key,
			"status", ev.Status,
			"body", string(ev.Body),
			"error", err,
		)
	}
	return err
}

// elapsed measures from dispatch to the transport's completion timestamp. Events without a
// timestamp are measured against the client clock instead.
func (c *Client) elapsed(start, completedAt time.Time) time.Duration {
	if completedAt.IsZero() {
		completedAt = c.clock.Now()
	}
	return completedAt.Sub(start)
}
