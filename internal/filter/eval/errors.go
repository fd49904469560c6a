package eval

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// ErrEnvelopeMissingType is returned when an envelope carries a payload but
// no type name to decode it with.
var ErrEnvelopeMissingType = errors.New("protomatch: envelope payload has no type name")

// ProtocolSequenceError reports a decode callback received in a lifecycle
// state that cannot accept it.
type ProtocolSequenceError struct {
	State State
	Op    string
}

func (e *ProtocolSequenceError) Error() string {
	return fmt.Sprintf("protomatch: unexpected %s in %s state", e.Op, e.State)
}

// UnexpectedEnvelopeFieldError reports an envelope field outside the two
// reserved ones.
type UnexpectedEnvelopeFieldError struct {
	Number protowire.Number
}

func (e *UnexpectedEnvelopeFieldError) Error() string {
	return fmt.Sprintf("protomatch: unexpected envelope field %d", e.Number)
}

// DecodeIOError wraps a failure of the underlying decoder.
type DecodeIOError struct {
	Stage string
	Err   error
}

func (e *DecodeIOError) Error() string {
	return fmt.Sprintf("protomatch: decoding %s: %v", e.Stage, e.Err)
}

func (e *DecodeIOError) Unwrap() error {
	return e.Err
}

// UnknownEntityTypeError reports a type name the registry cannot resolve.
type UnknownEntityTypeError struct {
	TypeName string
	Err      error
}

func (e *UnknownEntityTypeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("protomatch: unknown entity type %q: %v", e.TypeName, e.Err)
	}
	return fmt.Sprintf("protomatch: unknown entity type %q", e.TypeName)
}

func (e *UnknownEntityTypeError) Unwrap() error {
	return e.Err
}
