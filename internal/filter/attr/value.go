package attr

import "fmt"

// Kind tags what a delivered Value carries.
type Kind uint8

const (
	// KindSet is a literal value read from the wire.
	KindSet Kind = iota + 1
	// KindDefault is the declared schema default of a field missing from the wire.
	KindDefault
	// KindAbsent marks a missing scalar field whose schema declares no default.
	KindAbsent
	// KindNull marks a missing message or repeated field, or any attribute below one.
	KindNull
	// KindPresent marks a repeated field observed on the wire at least once.
	KindPresent
)

func (k Kind) String() string {
	switch k {
	case KindSet:
		return "set"
	case KindDefault:
		return "default"
	case KindAbsent:
		return "absent"
	case KindNull:
		return "null"
	case KindPresent:
		return "present"
	default:
		return "invalid"
	}
}

// Value is what listeners receive. Only KindSet and KindDefault carry a
// payload; the marker kinds never compare equal to a real value.
type Value struct {
	kind Kind
	v    any
}

// Of wraps a literal wire value.
func Of(v any) Value { return Value{kind: KindSet, v: v} }

// DefaultOf wraps a declared schema default.
func DefaultOf(v any) Value { return Value{kind: KindDefault, v: v} }

// Absent returns the marker for a missing scalar without a declared default.
func Absent() Value { return Value{kind: KindAbsent} }

// Null returns the marker for a missing message or repeated subtree.
func Null() Value { return Value{kind: KindNull} }

// Present returns the sentinel fired once for an observed repeated field.
func Present() Value { return Value{kind: KindPresent} }

func (v Value) Kind() Kind { return v.kind }

// Interface returns the payload, or nil for marker kinds.
func (v Value) Interface() any { return v.v }

// IsNull reports whether the attribute has no value at all.
func (v Value) IsNull() bool { return v.kind == KindAbsent || v.kind == KindNull }

// IsSet reports whether the attribute was observed on the wire.
func (v Value) IsSet() bool { return v.kind == KindSet || v.kind == KindPresent }

func (v Value) String() string {
	switch v.kind {
	case KindSet, KindDefault:
		return fmt.Sprintf("%s(%v)", v.kind, v.v)
	default:
		return v.kind.String()
	}
}
