package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Sentinel errors for envelope decoding.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrUnknownMessageKind is returned when the leading type code is not
	// one of 2 (Call), 3 (CallResult) or 4 (CallError).
	ErrUnknownMessageKind = errors.New("protocol: unknown message kind")

	// ErrMalformed is returned when bytes are not a well-formed envelope:
	// invalid JSON, not an array, wrong arity, or wrong element types.
	ErrMalformed = errors.New("protocol: malformed message")
)

// CodecErrorKind classifies a CodecError.
type CodecErrorKind string

const (
	KindUnknownMessageKind CodecErrorKind = "unknown_message_kind"
	KindMalformed          CodecErrorKind = "malformed"
)

// CodecError describes why a message could not be encoded or decoded.
type CodecError struct {
	Kind   CodecErrorKind
	Detail string
	Err    error
}

func (e *CodecError) Error() string {
	msg := fmt.Sprintf("protocol: %s: %s", e.Kind, e.Detail)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause, if any.
func (e *CodecError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel corresponding to the error's Kind.
func (e *CodecError) Is(target error) bool {
	switch target {
	case ErrUnknownMessageKind:
		return e.Kind == KindUnknownMessageKind
	case ErrMalformed:
		return e.Kind == KindMalformed
	}
	return false
}

func malformed(detail string, err error) error {
	return &CodecError{Kind: KindMalformed, Detail: detail, Err: err}
}

func unknownKind(code json.Number) error {
	return &CodecError{Kind: KindUnknownMessageKind, Detail: "type code " + code.String()}
}
