package message

import (
	"encoding/json"

	"callrpc/protocol"
)

// Response is one decoded reply. It is immutable once parsed.
//
// RequestID is expected to echo the id of the originating Request, but nothing here checks
// that; callers who care compare the two themselves.
type Response struct {
	requestID  int64
	statusCode int
	message    string
	payload    json.RawMessage // nil when the field was absent or null
}

// NewResponse builds a response envelope, marshaling payload when it is not nil.
func NewResponse(requestID int64, statusCode int, msg string, payload any) (*Response, error) {
	resp := &Response{
		requestID:  requestID,
		statusCode: statusCode,
		message:    msg,
	}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		resp.payload = normalizePayload(raw)
	}
	return resp, nil
}

// ParseResponse validates and decodes raw response text.
func ParseResponse(raw []byte) (*Response, error) {
	fields, err := decodeObject(raw)
	if err != nil {
		return nil, err
	}

	resp := &Response{}
	if err := integerField(fields, "request_id", &resp.requestID); err != nil {
		return nil, err
	}
	var status int64
	if err := integerField(fields, "status_code", &status); err != nil {
		return nil, err
	}
	resp.statusCode = int(status)
	if err := requiredField(fields, "message", &resp.message); err != nil {
		return nil, err
	}
	resp.payload = rawField(fields, "payload")
	return resp, nil
}

func (r *Response) RequestID() int64          { return r.requestID }
func (r *Response) StatusCode() int           { return r.statusCode }
func (r *Response) Message() string           { return r.message }
func (r *Response) Payload() json.RawMessage  { return r.payload }
func (r *Response) HasPayload() bool          { return r.payload != nil }
func (r *Response) IsSuccess() bool           { return protocol.IsSuccess(r.statusCode) }
func (r *Response) Answers(req *Request) bool { return req != nil && req.ID() == r.requestID }

// DecodePayload unmarshals the payload into v. An absent payload leaves v untouched.
func (r *Response) DecodePayload(v any) error {
	if r.payload == nil {
		return nil
	}
	return json.Unmarshal(r.payload, v)
}

type responseWire struct {
	RequestID  int64           `json:"request_id"`
	StatusCode int             `json:"status_code"`
	Message    string          `json:"message"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

// MarshalJSON is the inverse of ParseResponse: payload is emitted only when present.
func (r *Response) MarshalJSON() ([]byte, error) {
	return json.Marshal(responseWire{
		RequestID:  r.requestID,
		StatusCode: r.statusCode,
		Message:    r.message,
		Payload:    r.payload,
	})
}
