package wire

import (
	"errors"
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
	"google.golang.org/protobuf/reflect/protoreflect"
)

// DefaultRecursionLimit bounds message nesting when Decoder.RecursionLimit is zero.
const DefaultRecursionLimit = 100

var (
	// ErrRecursionLimit is returned when nesting exceeds the decoder limit.
	ErrRecursionLimit = errors.New("protomatch: exceeded maximum nesting depth")
	// ErrWireTypeMismatch is returned when a declared field arrives with a
	// wire type its kind cannot have.
	ErrWireTypeMismatch = errors.New("protomatch: wire type does not match field kind")
)

// Decoder walks encoded messages and reports them to a Handler.
// The zero value is ready to use.
type Decoder struct {
	// RecursionLimit caps nested message depth. Zero means DefaultRecursionLimit.
	RecursionLimit int
}

// Decode walks b using md with the default decoder.
func Decode(b []byte, md protoreflect.MessageDescriptor, h Handler) error {
	return Decoder{}.Decode(b, md, h)
}

// Decode walks b as a message of type md. Events are emitted strictly in wire
// order; every NestedStartEvent is matched by a NestedEndEvent and a single
// EndOfMessageEvent closes the top-level message. Values of BytesKind
// fields alias b.
func (d Decoder) Decode(b []byte, md protoreflect.MessageDescriptor, h Handler) error {
	if md == nil {
		return errors.New("protomatch: message descriptor is required")
	}
	if err := d.decodeMessage(b, md, h, 0); err != nil {
		return err
	}
	return h(Event{Kind: EndOfMessageEvent})
}

func (d Decoder) limit() int {
	if d.RecursionLimit > 0 {
		return d.RecursionLimit
	}
	return DefaultRecursionLimit
}

func (d Decoder) decodeMessage(b []byte, md protoreflect.MessageDescriptor, h Handler, depth int) error {
	fields := md.Fields()
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("protomatch: %s: %w", md.FullName(), protowire.ParseError(n))
		}
		b = b[n:]

		fd := fields.ByNumber(num)
		if fd == nil {
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return fmt.Errorf("protomatch: %s field %d: %w", md.FullName(), num, protowire.ParseError(n))
			}
			if err := h(Event{Kind: ScalarEvent, Number: num, Wire: typ, Value: b[:n]}); err != nil {
				return err
			}
			b = b[n:]
			continue
		}

		n, err := d.decodeField(b, fd, typ, h, depth)
		if err != nil {
			return err
		}
		b = b[n:]
	}
	return nil
}

func (d Decoder) decodeField(b []byte, fd protoreflect.FieldDescriptor, typ protowire.Type, h Handler, depth int) (int, error) {
	switch kind := fd.Kind(); {
	case kind == protoreflect.MessageKind && typ == protowire.BytesType:
		v, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return 0, fieldError(fd, protowire.ParseError(n))
		}
		return n, d.decodeNested(v, fd, typ, h, depth)

	case kind == protoreflect.GroupKind && typ == protowire.StartGroupType:
		v, n := protowire.ConsumeGroup(fd.Number(), b)
		if n < 0 {
			return 0, fieldError(fd, protowire.ParseError(n))
		}
		return n, d.decodeNested(v, fd, typ, h, depth)

	case fd.IsList() && typ == protowire.BytesType && isPackable(kind):
		v, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return 0, fieldError(fd, protowire.ParseError(n))
		}
		elemType := wireTypeOf(kind)
		for len(v) > 0 {
			val, m, err := consumeScalar(v, kind, elemType)
			if err != nil {
				return 0, fieldError(fd, err)
			}
			if err := h(scalarEvent(fd, elemType, val)); err != nil {
				return 0, err
			}
			v = v[m:]
		}
		return n, nil

	default:
		val, n, err := consumeScalar(b, kind, typ)
		if err != nil {
			return 0, fieldError(fd, err)
		}
		return n, h(scalarEvent(fd, typ, val))
	}
}

func (d Decoder) decodeNested(b []byte, fd protoreflect.FieldDescriptor, typ protowire.Type, h Handler, depth int) error {
	if depth+1 > d.limit() {
		return fieldError(fd, ErrRecursionLimit)
	}
	md := fd.Message()
	if err := h(Event{Kind: NestedStartEvent, Number: fd.Number(), Name: fd.Name(), Wire: typ, Type: fd.Kind(), Field: fd, Message: md}); err != nil {
		return err
	}
	if err := d.decodeMessage(b, md, h, depth+1); err != nil {
		return err
	}
	return h(Event{Kind: NestedEndEvent, Number: fd.Number(), Name: fd.Name(), Wire: typ, Type: fd.Kind(), Field: fd, Message: md})
}

func scalarEvent(fd protoreflect.FieldDescriptor, typ protowire.Type, val any) Event {
	return Event{
		Kind:   ScalarEvent,
		Number: fd.Number(),
		Name:   fd.Name(),
		Wire:   typ,
		Type:   fd.Kind(),
		Field:  fd,
		Value:  val,
	}
}

func fieldError(fd protoreflect.FieldDescriptor, err error) error {
	return fmt.Errorf("protomatch: field %s: %w", fd.FullName(), err)
}

func isPackable(kind protoreflect.Kind) bool {
	switch kind {
	case protoreflect.StringKind, protoreflect.BytesKind, protoreflect.MessageKind, protoreflect.GroupKind:
		return false
	}
	return true
}

func wireTypeOf(kind protoreflect.Kind) protowire.Type {
	switch kind {
	case protoreflect.Fixed32Kind, protoreflect.Sfixed32Kind, protoreflect.FloatKind:
		return protowire.Fixed32Type
	case protoreflect.Fixed64Kind, protoreflect.Sfixed64Kind, protoreflect.DoubleKind:
		return protowire.Fixed64Type
	case protoreflect.StringKind, protoreflect.BytesKind, protoreflect.MessageKind:
		return protowire.BytesType
	case protoreflect.GroupKind:
		return protowire.StartGroupType
	default:
		return protowire.VarintType
	}
}

// consumeScalar decodes one value of the given kind and returns it as the Go
// type protoreflect uses for that kind.
func consumeScalar(b []byte, kind protoreflect.Kind, typ protowire.Type) (any, int, error) {
	if want := wireTypeOf(kind); want != typ {
		return nil, 0, fmt.Errorf("%w: %v encoded as wire type %d", ErrWireTypeMismatch, kind, typ)
	}
	switch typ {
	case protowire.VarintType:
		v, n := protowire.ConsumeVarint(b)
		if n < 0 {
			return nil, 0, protowire.ParseError(n)
		}
		switch kind {
		case protoreflect.BoolKind:
			return protowire.DecodeBool(v), n, nil
		case protoreflect.EnumKind:
			return protoreflect.EnumNumber(int32(v)), n, nil
		case protoreflect.Int32Kind:
			return int32(v), n, nil
		case protoreflect.Sint32Kind:
			return int32(protowire.DecodeZigZag(v & math.MaxUint32)), n, nil
		case protoreflect.Uint32Kind:
			return uint32(v), n, nil
		case protoreflect.Int64Kind:
			return int64(v), n, nil
		case protoreflect.Sint64Kind:
			return protowire.DecodeZigZag(v), n, nil
		default:
			return v, n, nil
		}
	case protowire.Fixed32Type:
		v, n := protowire.ConsumeFixed32(b)
		if n < 0 {
			return nil, 0, protowire.ParseError(n)
		}
		switch kind {
		case protoreflect.FloatKind:
			return math.Float32frombits(v), n, nil
		case protoreflect.Sfixed32Kind:
			return int32(v), n, nil
		default:
			return v, n, nil
		}
	case protowire.Fixed64Type:
		v, n := protowire.ConsumeFixed64(b)
		if n < 0 {
			return nil, 0, protowire.ParseError(n)
		}
		switch kind {
		case protoreflect.DoubleKind:
			return math.Float64frombits(v), n, nil
		case protoreflect.Sfixed64Kind:
			return int64(v), n, nil
		default:
			return v, n, nil
		}
	default:
		v, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return nil, 0, protowire.ParseError(n)
		}
		if kind == protoreflect.StringKind {
			return string(v), n, nil
		}
		return v, n, nil
	}
}
