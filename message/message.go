// Package message defines the request and response envelopes exchanged with an RPC endpoint.
//
// A Request is the "envelope" for every outbound call. It is validated when it is built,
// serialized to JSON by the codec layer and posted to the service endpoint. A Response is
// validated when it is parsed, so no caller ever holds a half-formed envelope.
//
//	request:  {"request_id":1,"uri":"/user","method":"login","session_id":"s","payload":{...}}
//	response: {"request_id":1,"status_code":200,"message":"ok","payload":{...}}
package message

import (
	"encoding/json"
	"fmt"
)

// RequestParams carries the caller supplied fields of a Request.
// Empty strings and a nil Payload mean "absent" and are left off the wire.
type RequestParams struct {
	URI       string // Required: opaque resource identifier agreed with the service, e.g. "/user"
	Method    string // Required: RPC operation on that resource, e.g. "login"
	SessionID string
	DeviceID  string
	Payload   any // Method arguments, any JSON-marshalable value
}

// Request is one outbound RPC call.
//
// URI, Method, DeviceID and the id are fixed at construction. SessionID and Payload may be
// changed until the request is handed to a client; mutating it after dispatch is the caller's
// problem (the body has already been serialized).
type Request struct {
	id        int64
	uri       string
	method    string
	sessionID string
	deviceID  string
	payload   any
}

// NewRequest validates params and allocates the next id from ids.
func NewRequest(ids *IDSource, params RequestParams) (*Request, error) {
	if params.URI == "" {
		return nil, missingField("uri")
	}
	if params.Method == "" {
		return nil, missingField("method")
	}
	return &Request{
		id:        ids.Next(),
		uri:       params.URI,
		method:    params.Method,
		sessionID: params.SessionID,
		deviceID:  params.DeviceID,
		payload:   payloadOrNil(params.Payload),
	}, nil
}

func (r *Request) ID() int64         { return r.id }
func (r *Request) URI() string       { return r.uri }
func (r *Request) Method() string    { return r.method }
func (r *Request) SessionID() string { return r.sessionID }
func (r *Request) DeviceID() string  { return r.deviceID }
func (r *Request) Payload() any      { return r.payload }

func (r *Request) SetSessionID(sessionID string) { r.sessionID = sessionID }
func (r *Request) SetPayload(payload any)        { r.payload = payloadOrNil(payload) }

// Key returns the "uri#method" identity used to bucket call statistics.
func (r *Request) Key() string {
	return r.uri + "#" + r.method
}

// DecodePayload unmarshals the payload into v. It is mostly useful on the server side,
// where the payload arrives as raw JSON.
func (r *Request) DecodePayload(v any) error {
	if r.payload == nil {
		return nil
	}
	raw, ok := r.payload.(json.RawMessage)
	if !ok {
		var err error
		if raw, err = json.Marshal(r.payload); err != nil {
			return err
		}
	}
	return json.Unmarshal(raw, v)
}

func (r *Request) String() string {
	return fmt.Sprintf("request %d %s", r.id, r.Key())
}

type requestWire struct {
	RequestID int64           `json:"request_id"`
	URI       string          `json:"uri"`
	Method    string          `json:"method"`
	DeviceID  string          `json:"device_id,omitempty"`
	SessionID string          `json:"session_id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// MarshalJSON emits request_id, uri and method always, and the optional fields only when set.
// The server distinguishes an absent field from a null one, so absent fields are never emitted.
// A payload whose own encoding is null counts as absent too.
func (r *Request) MarshalJSON() ([]byte, error) {
	wire := requestWire{
		RequestID: r.id,
		URI:       r.uri,
		Method:    r.method,
		DeviceID:  r.deviceID,
		SessionID: r.sessionID,
	}
	if r.payload != nil {
		raw, err := json.Marshal(r.payload)
		if err != nil {
			return nil, err
		}
		wire.Payload = normalizePayload(raw)
	}
	return json.Marshal(wire)
}

// ParseRequest decodes a request envelope received from a client. The id on the wire is kept
// as is; nothing is allocated.
func ParseRequest(raw []byte) (*Request, error) {
	fields, err := decodeObject(raw)
	if err != nil {
		return nil, err
	}

	req := &Request{}
	if err := integerField(fields, "request_id", &req.id); err != nil {
		return nil, err
	}
	if err := requiredField(fields, "uri", &req.uri); err != nil {
		return nil, err
	}
	if err := requiredField(fields, "method", &req.method); err != nil {
		return nil, err
	}
	if req.uri == "" {
		return nil, missingField("uri")
	}
	if req.method == "" {
		return nil, missingField("method")
	}
	if err := optionalField(fields, "session_id", &req.sessionID); err != nil {
		return nil, err
	}
	if err := optionalField(fields, "device_id", &req.deviceID); err != nil {
		return nil, err
	}
	if payload := rawField(fields, "payload"); payload != nil {
		req.payload = payload
	}
	return req, nil
}
