package message

import (
	"errors"
	"fmt"
)

// ErrProtocol matches every *ProtocolError via errors.Is.
var ErrProtocol = errors.New("rpc protocol error")

// ErrorKind classifies a ProtocolError.
type ErrorKind string

const (
	KindMissingField  ErrorKind = "missing-required-field"
	KindMalformedJSON ErrorKind = "malformed-json"
	KindInvalidField  ErrorKind = "invalid-field"
)

// ProtocolError reports a malformed or incomplete envelope. It is raised when a request is
// built or a response is parsed, never later.
type ProtocolError struct {
	Kind  ErrorKind
	Field string // empty when the error is not about a single field
	Err   error  // underlying decode error, if any
}

func (e *ProtocolError) Error() string {
	msg := "rpc protocol error: " + string(e.Kind)
	if e.Field != "" {
		msg += fmt.Sprintf(" %q", e.Field)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ProtocolError) Unwrap() error { return e.Err }

func (e *ProtocolError) Is(target error) bool { return target == ErrProtocol }

// IsKind reports whether err is a ProtocolError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var pe *ProtocolError
	return errors.As(err, &pe) && pe.Kind == kind
}

func missingField(name string) error {
	return &ProtocolError{Kind: KindMissingField, Field: name}
}
