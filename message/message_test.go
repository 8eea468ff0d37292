package message

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRequestAllocatesIncreasingIDs(t *testing.T) {
	ids := NewIDSource()

	first, err := NewRequest(ids, RequestParams{URI: "/user", Method: "login"})
	require.NoError(t, err)
	second, err := NewRequest(ids, RequestParams{URI: "/user", Method: "logout"})
	require.NoError(t, err)

	assert.Equal(t, int64(1), first.ID())
	assert.Equal(t, int64(2), second.ID())
}

func TestNewRequestConcurrentIDsAreUnique(t *testing.T) {
	ids := NewIDSource()

	const n = 200
	got := make(chan int64, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req, err := NewRequest(ids, RequestParams{URI: "/x", Method: "y"})
			if err != nil {
				t.Errorf("NewRequest: %v", err)
				return
			}
			got <- req.ID()
		}()
	}
	wg.Wait()
	close(got)

	seen := make(map[int64]bool, n)
	for id := range got {
		assert.False(t, seen[id], "id %d issued twice", id)
		seen[id] = true
	}
	assert.Len(t, seen, n)
	assert.Equal(t, int64(n), ids.Last())
}

func TestNewRequestMissingFields(t *testing.T) {
	tests := []struct {
		name   string
		params RequestParams
		field  string
	}{
		{name: "missing both", params: RequestParams{}, field: "uri"},
		{name: "missing method", params: RequestParams{URI: "/x"}, field: "method"},
		{name: "missing uri", params: RequestParams{Method: "login"}, field: "uri"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ids := NewIDSource()
			req, err := NewRequest(ids, tt.params)
			require.Error(t, err)
			assert.Nil(t, req)
			assert.True(t, errors.Is(err, ErrProtocol))

			var pe *ProtocolError
			require.True(t, errors.As(err, &pe))
			assert.Equal(t, KindMissingField, pe.Kind)
			assert.Equal(t, tt.field, pe.Field)
			assert.Equal(t, int64(0), ids.Last(), "failed build must not consume an id")
		})
	}
}

func TestRequestMarshalOmitsAbsentFields(t *testing.T) {
	req, err := NewRequest(NewIDSource(), RequestParams{
		URI:     "/user",
		Method:  "login",
		Payload: map[string]string{"username": "a"},
	})
	require.NoError(t, err)

	data, err := json.Marshal(req)
	require.NoError(t, err)

	var generic map[string]any
	require.NoError(t, json.Unmarshal(data, &generic))

	assert.Len(t, generic, 4)
	assert.Equal(t, float64(1), generic["request_id"])
	assert.Equal(t, "/user", generic["uri"])
	assert.Equal(t, "login", generic["method"])
	assert.Equal(t, map[string]any{"username": "a"}, generic["payload"])
	assert.NotContains(t, generic, "device_id")
	assert.NotContains(t, generic, "session_id")
}

type loginArgs struct {
	Username string `json:"username"`
}

type nullMarshaler struct{}

func (nullMarshaler) MarshalJSON() ([]byte, error) { return []byte("null"), nil }

func TestRequestMarshalOmitsNullPayload(t *testing.T) {
	var nilArgs *loginArgs
	var nilMap map[string]any
	var nilSlice []int

	tests := []struct {
		name    string
		payload any
	}{
		{name: "raw null", payload: json.RawMessage("null")},
		{name: "raw null with spaces", payload: json.RawMessage("  null\n")},
		{name: "empty raw", payload: json.RawMessage{}},
		{name: "typed nil pointer", payload: nilArgs},
		{name: "nil map", payload: nilMap},
		{name: "nil slice", payload: nilSlice},
		{name: "marshals to null", payload: nullMarshaler{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := NewRequest(NewIDSource(), RequestParams{URI: "/x", Method: "m", Payload: tt.payload})
			require.NoError(t, err)

			data, err := json.Marshal(req)
			require.NoError(t, err)
			assert.JSONEq(t, `{"request_id":1,"uri":"/x","method":"m"}`, string(data))

			// the same value set later is dropped as well
			req.SetPayload(map[string]int{"n": 1})
			req.SetPayload(tt.payload)
			data, err = json.Marshal(req)
			require.NoError(t, err)
			assert.NotContains(t, string(data), "payload")
		})
	}
}

func TestRequestPayloadAbsentIsNil(t *testing.T) {
	var nilArgs *loginArgs
	req, err := NewRequest(NewIDSource(), RequestParams{URI: "/x", Method: "m", Payload: nilArgs})
	require.NoError(t, err)
	assert.Nil(t, req.Payload())

	req.SetPayload(json.RawMessage("null"))
	assert.Nil(t, req.Payload())

	req.SetPayload(json.RawMessage(`{"username":"a"}`))
	data, err := json.Marshal(req)
	require.NoError(t, err)
	assert.JSONEq(t, `{"request_id":1,"uri":"/x","method":"m","payload":{"username":"a"}}`, string(data))
}

func TestRequestMarshalOptionalFields(t *testing.T) {
	req, err := NewRequest(NewIDSource(), RequestParams{URI: "/user", Method: "profile", DeviceID: "dev-1"})
	require.NoError(t, err)
	req.SetSessionID("sess-9")

	data, err := json.Marshal(req)
	require.NoError(t, err)
	assert.JSONEq(t, `{"request_id":1,"uri":"/user","method":"profile","device_id":"dev-1","session_id":"sess-9"}`, string(data))
	assert.Equal(t, "/user#profile", req.Key())
}

func TestParseRequest(t *testing.T) {
	req, err := ParseRequest([]byte(`{"request_id":42,"uri":"/user","method":"login","session_id":"s","payload":{"username":"a"}}`))
	require.NoError(t, err)

	assert.Equal(t, int64(42), req.ID())
	assert.Equal(t, "s", req.SessionID())
	assert.Empty(t, req.DeviceID())

	var args struct {
		Username string `json:"username"`
	}
	require.NoError(t, req.DecodePayload(&args))
	assert.Equal(t, "a", args.Username)

	_, err = ParseRequest([]byte(`{"request_id":1,"uri":"/user"}`))
	assert.True(t, IsKind(err, KindMissingField))
}

func TestParseResponse(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		success bool
	}{
		{name: "204 is success", raw: `{"request_id":1,"status_code":204,"message":"ok"}`, success: true},
		{name: "200 is success", raw: `{"request_id":1,"status_code":200,"message":"ok"}`, success: true},
		{name: "404 is failure", raw: `{"request_id":1,"status_code":404,"message":"not found"}`, success: false},
		{name: "150 is failure", raw: `{"request_id":1,"status_code":150,"message":"weird"}`, success: false},
		{name: "integral float status", raw: `{"request_id":1.0,"status_code":200.0,"message":"ok"}`, success: true},
		{name: "exponent status", raw: `{"request_id":1,"status_code":2e2,"message":"ok"}`, success: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := ParseResponse([]byte(tt.raw))
			require.NoError(t, err)
			assert.Equal(t, tt.success, resp.IsSuccess())
			assert.Equal(t, int64(1), resp.RequestID())
			assert.False(t, resp.HasPayload())
		})
	}
}

func TestParseResponseErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		kind ErrorKind
	}{
		{name: "not json", raw: `not json`, kind: KindMalformedJSON},
		{name: "truncated", raw: `{"request_id":1,`, kind: KindMalformedJSON},
		{name: "empty", raw: ``, kind: KindMalformedJSON},
		{name: "null", raw: `null`, kind: KindMissingField},
		{name: "array", raw: `[1,2]`, kind: KindMissingField},
		{name: "only request id", raw: `{"request_id":1}`, kind: KindMissingField},
		{name: "null message", raw: `{"request_id":1,"status_code":200,"message":null}`, kind: KindMissingField},
		{name: "string status", raw: `{"request_id":1,"status_code":"200","message":"ok"}`, kind: KindInvalidField},
		{name: "fractional status", raw: `{"request_id":1,"status_code":200.5,"message":"ok"}`, kind: KindInvalidField},
		{name: "bool status", raw: `{"request_id":1,"status_code":true,"message":"ok"}`, kind: KindInvalidField},
		{name: "string request id", raw: `{"request_id":"1","status_code":200,"message":"ok"}`, kind: KindInvalidField},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := ParseResponse([]byte(tt.raw))
			require.Error(t, err)
			assert.Nil(t, resp)
			assert.ErrorIs(t, err, ErrProtocol)
			assert.True(t, IsKind(err, tt.kind), "got %v", err)
		})
	}
}

func TestResponsePayload(t *testing.T) {
	resp, err := ParseResponse([]byte(`{"request_id":1,"status_code":200,"message":"ok","payload":{"token":"t"}}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"token":"t"}`, string(resp.Payload()))

	var out struct {
		Token string `json:"token"`
	}
	require.NoError(t, resp.DecodePayload(&out))
	assert.Equal(t, "t", out.Token)

	resp, err = ParseResponse([]byte(`{"request_id":1,"status_code":200,"message":"ok","payload":null}`))
	require.NoError(t, err)
	assert.False(t, resp.HasPayload())
}

func TestResponseMarshal(t *testing.T) {
	resp, err := NewResponse(7, 200, "ok", nil)
	require.NoError(t, err)
	data, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.JSONEq(t, `{"request_id":7,"status_code":200,"message":"ok"}`, string(data))

	resp, err = NewResponse(7, 200, "ok", map[string]int{"n": 3})
	require.NoError(t, err)
	data, err = json.Marshal(resp)
	require.NoError(t, err)
	assert.JSONEq(t, `{"request_id":7,"status_code":200,"message":"ok","payload":{"n":3}}`, string(data))

	parsed, err := ParseResponse(data)
	require.NoError(t, err)
	assert.Equal(t, resp.StatusCode(), parsed.StatusCode())
	assert.Equal(t, resp.Message(), parsed.Message())
}

func TestResponseAnswers(t *testing.T) {
	req, err := NewRequest(NewIDSource(), RequestParams{URI: "/user", Method: "login"})
	require.NoError(t, err)

	resp, err := NewResponse(req.ID(), 200, "ok", nil)
	require.NoError(t, err)
	assert.True(t, resp.Answers(req))

	other, err := NewResponse(req.ID()+1, 200, "ok", nil)
	require.NoError(t, err)
	assert.False(t, other.Answers(req))
}
