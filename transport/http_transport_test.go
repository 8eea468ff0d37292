package transport

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/juju/clock/testclock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(5 * time.Second):
		t.Fatal("no event from transport")
		return Event{}
	}
}

func TestHTTPTransportCompletes(t *testing.T) {
	type seen struct{ method, contentType, body string }
	seenCh := make(chan seen, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		seenCh <- seen{r.Method, r.Header.Get("Content-Type"), string(b)}
		w.Write([]byte(`{"request_id":1,"status_code":200,"message":"ok"}`))
	}))
	defer srv.Close()

	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	tr := NewHTTPTransport(srv.Client(), testclock.NewClock(now))

	ev := receive(t, tr.Send("POST", srv.URL, []byte(`{"request_id":1}`)))

	require.False(t, ev.Failed())
	assert.Equal(t, http.StatusOK, ev.Status)
	assert.Equal(t, `{"request_id":1,"status_code":200,"message":"ok"}`, string(ev.Body))
	assert.Equal(t, now, ev.CompletedAt)
	got := <-seenCh
	assert.Equal(t, "POST", got.method)
	assert.Equal(t, "application/json", got.contentType)
	assert.Equal(t, `{"request_id":1}`, got.body)
}

func TestHTTPTransportNon2xxFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream down"))
	}))
	defer srv.Close()

	ev := receive(t, NewHTTPTransport(nil, nil).Send("POST", srv.URL, nil))

	assert.True(t, ev.Failed())
	assert.NoError(t, ev.Err)
	assert.Equal(t, http.StatusBadGateway, ev.Status)
	assert.Equal(t, "upstream down", string(ev.Body))
	assert.Contains(t, (&Failure{Event: ev}).Error(), "502")
}

func TestHTTPTransportNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	ev := receive(t, NewHTTPTransport(nil, nil).Send("POST", url, nil))

	assert.True(t, ev.Failed())
	require.Error(t, ev.Err)
	assert.Equal(t, 0, ev.Status)
	assert.False(t, ev.CompletedAt.IsZero())
}

func TestHTTPTransportBadURL(t *testing.T) {
	ev := receive(t, NewHTTPTransport(nil, nil).Send("POST", "://nope", nil))
	assert.True(t, ev.Failed())
	assert.ErrorContains(t, ev.Err, "failed to create request")
}

func TestSendFuncAndImmediate(t *testing.T) {
	var tr Transport = SendFunc(func(method, url string, body []byte) <-chan Event {
		return Immediate(Event{Status: 204})
	})
	ev := receive(t, tr.Send("POST", "http://unused", nil))
	assert.False(t, ev.Failed())
	assert.Equal(t, 204, ev.Status)
}
