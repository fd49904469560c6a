// Package wire is a streaming, schema-aware protobuf decoder. It reports a
// message as an ordered sequence of events instead of building an object
// graph, so callers decide per field what to keep.
package wire

import (
	"google.golang.org/protobuf/encoding/protowire"
	"google.golang.org/protobuf/reflect/protoreflect"
)

// EventKind enumerates the decode callbacks.
type EventKind uint8

const (
	ScalarEvent EventKind = iota + 1
	NestedStartEvent
	NestedEndEvent
	EndOfMessageEvent
)

func (k EventKind) String() string {
	switch k {
	case ScalarEvent:
		return "scalar"
	case NestedStartEvent:
		return "nested-start"
	case NestedEndEvent:
		return "nested-end"
	case EndOfMessageEvent:
		return "end-of-message"
	default:
		return "unknown"
	}
}

// Event is a single decode callback. Which fields are populated depends on
// Kind:
//
//   - ScalarEvent: Number, Name, Wire, Type, Field, Value. Fields missing from
//     the descriptor have a nil Field and carry their raw encoded bytes.
//   - NestedStartEvent, NestedEndEvent: Number, Name, Wire, Field, Message.
//   - EndOfMessageEvent: nothing.
type Event struct {
	Kind    EventKind
	Number  protowire.Number
	Name    protoreflect.Name
	Wire    protowire.Type
	Type    protoreflect.Kind
	Field   protoreflect.FieldDescriptor
	Message protoreflect.MessageDescriptor
	Value   any
}

// Unknown reports whether the event is a field the descriptor does not declare.
func (e Event) Unknown() bool {
	return e.Kind == ScalarEvent && e.Field == nil
}

// Handler consumes events in wire order. A non-nil error stops decoding and
// is returned unchanged from Decode.
type Handler func(Event) error
