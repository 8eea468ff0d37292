package codec

import (
	"encoding/json"
	"errors"
	"fmt"

	"callrpc/message"
	"callrpc/protocol"
)

// JSONCodec is the only wire format the endpoint speaks.
// Envelopes are decoded through their validating parsers, so a Decode into *message.Response
// either yields a complete response or a *message.ProtocolError.
type JSONCodec struct{}

func (c *JSONCodec) Encode(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("JSONCodec: encode %T: %w", v, err)
	}
	return data, nil
}

func (c *JSONCodec) Decode(data []byte, v any) error {
	switch dst := v.(type) {
	case *message.Response:
		resp, err := message.ParseResponse(data)
		if err != nil {
			return err
		}
		*dst = *resp
		return nil
	case *message.Request:
		req, err := message.ParseRequest(data)
		if err != nil {
			return err
		}
		*dst = *req
		return nil
	}

	if err := json.Unmarshal(data, v); err != nil {
		var syntaxErr *json.SyntaxError
		if errors.As(err, &syntaxErr) {
			return &message.ProtocolError{Kind: message.KindMalformedJSON, Err: err}
		}
		return err
	}
	return nil
}

func (c *JSONCodec) Type() CodecType {
	return CodecTypeJSON
}

func (c *JSONCodec) ContentType() string {
	return protocol.ContentType
}
