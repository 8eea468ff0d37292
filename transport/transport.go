// Package transport is the single-shot request/response primitive the client dispatches on.
//
// A Transport accepts a method, URL and body and answers with exactly one Event on the
// returned channel, some time later:
//
//	client ──Send(POST, url, body)──→ Transport ──→ endpoint
//	client ←──── <-chan Event ─────── (completion or failure, with a timestamp)
//
// The channel is buffered so the sending side never blocks on a caller that went away.
// There are no retries, timeouts or cancellation at this layer.
package transport

import (
	"errors"
	"fmt"
	"time"
)

// Event is the completion signal of one Send.
type Event struct {
	Status      int       // HTTP status, 0 when no response arrived
	Body        []byte    // Raw response text
	Err         error     // Transport diagnostic; nil on completion
	CompletedAt time.Time // When the transport observed the outcome
}

// Failed reports whether the event is a transport-level failure: no response at all, or a
// response outside the HTTP 2xx window.
func (e Event) Failed() bool {
	return e.Err != nil || e.Status < 200 || e.Status >= 300
}

// Failure is the error handed to callers when the transport itself failed.
type Failure struct {
	Event Event
}

func (f *Failure) Error() string {
	if f.Event.Err != nil {
		return fmt.Sprintf("transport failure: %v", f.Event.Err)
	}
	return fmt.Sprintf("transport failure: http status %d", f.Event.Status)
}

func (f *Failure) Unwrap() error { return f.Event.Err }

// ErrRateLimited is reported when a send was rejected before reaching the network.
var ErrRateLimited = errors.New("rate limit exceeded")

// Transport sends one body and reports one Event.
type Transport interface {
	Send(method, url string, body []byte) <-chan Event
}

// SendFunc adapts a function to Transport. Middlewares are written against it.
type SendFunc func(method, url string, body []byte) <-chan Event

func (f SendFunc) Send(method, url string, body []byte) <-chan Event {
	return f(method, url, body)
}

// Immediate returns an already resolved channel carrying ev.
func Immediate(ev Event) <-chan Event {
	ch := make(chan Event, 1)
	ch <- ev
	return ch
}
