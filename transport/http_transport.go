package transport

import (
	"bytes"
	"fmt"
	"io"
	"net/http"

	"github.com/juju/clock"

	"callrpc/protocol"
)

// HTTPTransport performs each Send as one HTTP request in its own goroutine.
type HTTPTransport struct {
	client *http.Client
	clock  clock.Clock
}

// NewHTTPTransport wraps client. A nil client means a plain &http.Client{}; a nil clock means
// the wall clock.
func NewHTTPTransport(client *http.Client, clk clock.Clock) *HTTPTransport {
	if client == nil {
		client = &http.Client{}
	}
	if clk == nil {
		clk = clock.WallClock
	}
	return &HTTPTransport{client: client, clock: clk}
}

func (t *HTTPTransport) Send(method, url string, body []byte) <-chan Event {
	ch := make(chan Event, 1)
	go func() {
		ch <- t.roundTrip(method, url, body)
	}()
	return ch
}

func (t *HTTPTransport) roundTrip(method, url string, body []byte) Event {
	req, err := http.NewRequest(method, url, bytes.NewReader(body))
	if err != nil {
		return Event{Err: fmt.Errorf("failed to create request: %w", err), CompletedAt: t.clock.Now()}
	}
	req.Header.Set("Content-Type", protocol.ContentType)
	req.Header.Set("Accept", protocol.ContentType)

	resp, err := t.client.Do(req)
	if err != nil {
		return Event{Err: fmt.Errorf("http request failed: %w", err), CompletedAt: t.clock.Now()}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	ev := Event{Status: resp.StatusCode, Body: data, CompletedAt: t.clock.Now()}
	if err != nil {
		ev.Err = fmt.Errorf("failed to read response body: %w", err)
	}
	return ev
}
