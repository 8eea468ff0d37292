package client

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"callrpc/message"
	"callrpc/stats"
	"callrpc/transport"
)

// State is the lifecycle position of one call.
type State int32

const (
	Created State = iota
	Dispatched
	Succeeded
	Failed
)

func (s State) String() string {
	switch s {
	case Created:
		return "created"
	case Dispatched:
		return "dispatched"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == Succeeded || s == Failed
}

var errCompleted = errors.New("client: call already completed")

// call is the per-dispatch state. Nothing in it is shared with other calls.
type call struct {
	req   *message.Request
	key   stats.Key
	url   string
	start time.Time
	state atomic.Int32
}

func newCall(req *message.Request) *call {
	return &call{
		req: req,
		key: stats.KeyOf(req.URI(), req.Method()),
	}
}

// advance moves the call from one state to the next. It fails when the call is not in from,
// so a terminal state is entered at most once.
func (c *call) advance(from, to State) bool {
	return c.state.CompareAndSwap(int32(from), int32(to))
}

func (c *call) State() State {
	return State(c.state.Load())
}

func (c *call) String() string {
	return fmt.Sprintf("%s [%s]", c.req, c.State())
}

// Result is the terminal outcome delivered by Client.Go. Exactly one of Response and Err
// is set.
type Result struct {
	Request  *message.Request
	Response *message.Response
	Err      error
}

// Mismatched reports whether a successful response carries a request id other than the
// one that was sent. The client never checks this itself.
func (r Result) Mismatched() bool {
	return r.Response != nil && !r.Response.Answers(r.Request)
}

// DecodeError is reported when the transport completed but the body is not a valid
// response envelope. Event is the raw completion as the transport delivered it.
type DecodeError struct {
	Event transport.Event
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode response (http status %d): %v", e.Event.Status, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
