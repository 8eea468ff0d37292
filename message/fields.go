package message

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
)

var jsonNull = []byte("null")

// decodeObject splits raw into top-level fields. Text that is not JSON is malformed;
// JSON that is null or not an object cannot carry the required fields.
func decodeObject(raw []byte) (map[string]json.RawMessage, error) {
	if !json.Valid(raw) {
		var probe any
		err := json.Unmarshal(raw, &probe)
		return nil, &ProtocolError{Kind: KindMalformedJSON, Err: err}
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, &ProtocolError{Kind: KindMissingField, Err: err}
	}
	if fields == nil {
		return nil, &ProtocolError{Kind: KindMissingField}
	}
	return fields, nil
}

// rawField returns the field's raw JSON, or nil when it is absent or null.
func rawField(fields map[string]json.RawMessage, name string) json.RawMessage {
	v, ok := fields[name]
	if !ok {
		return nil
	}
	return normalizePayload(v)
}

func requiredField(fields map[string]json.RawMessage, name string, dst any) error {
	v := rawField(fields, name)
	if v == nil {
		return missingField(name)
	}
	if err := json.Unmarshal(v, dst); err != nil {
		return &ProtocolError{Kind: KindInvalidField, Field: name, Err: err}
	}
	return nil
}

func optionalField(fields map[string]json.RawMessage, name string, dst any) error {
	v := rawField(fields, name)
	if v == nil {
		return nil
	}
	if err := json.Unmarshal(v, dst); err != nil {
		return &ProtocolError{Kind: KindInvalidField, Field: name, Err: err}
	}
	return nil
}

func normalizePayload(v json.RawMessage) json.RawMessage {
	v = bytes.TrimSpace(v)
	if len(v) == 0 || bytes.Equal(v, jsonNull) {
		return nil
	}
	out := make(json.RawMessage, len(v))
	copy(out, v)
	return out
}

// integerField reads a required JSON number that must hold an integral value. 200 and 200.0
// are both accepted; 200.5 and "200" are not.
func integerField(fields map[string]json.RawMessage, name string, dst *int64) error {
	v := rawField(fields, name)
	if v == nil {
		return missingField(name)
	}
	// json.Number would also accept a quoted number
	if v[0] == '"' {
		return &ProtocolError{Kind: KindInvalidField, Field: name, Err: fmt.Errorf("%s is a string", name)}
	}
	var n json.Number
	if err := json.Unmarshal(v, &n); err != nil {
		return &ProtocolError{Kind: KindInvalidField, Field: name, Err: err}
	}
	if i, err := n.Int64(); err == nil {
		*dst = i
		return nil
	}
	f, err := n.Float64()
	if err != nil || f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		return &ProtocolError{Kind: KindInvalidField, Field: name, Err: fmt.Errorf("%s is not an integer", n)}
	}
	*dst = int64(f)
	return nil
}

// absentPayload reports whether a payload would go on the wire as nothing or as null:
// a nil interface, a nil pointer, map, slice or interface, or raw JSON that is empty or null.
func absentPayload(p any) bool {
	switch v := p.(type) {
	case nil:
		return true
	case json.RawMessage:
		return normalizePayload(v) == nil
	}
	rv := reflect.ValueOf(p)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

func payloadOrNil(p any) any {
	if absentPayload(p) {
		return nil
	}
	return p
}
