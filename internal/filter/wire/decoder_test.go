package wire_test

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"google.golang.org/protobuf/encoding/protowire"
	"google.golang.org/protobuf/reflect/protoreflect"

	"github.com/drblury/protomatch/internal/filter/schema/schematest"
	"github.com/drblury/protomatch/internal/filter/wire"
)

type recorder struct {
	events []wire.Event
}

func (r *recorder) handle(ev wire.Event) error {
	r.events = append(r.events, ev)
	return nil
}

func (r *recorder) trace() []string {
	out := make([]string, 0, len(r.events))
	for _, ev := range r.events {
		switch ev.Kind {
		case wire.ScalarEvent:
			out = append(out, fmt.Sprintf("%d=%v", ev.Number, ev.Value))
		case wire.NestedStartEvent:
			out = append(out, fmt.Sprintf("%d{", ev.Number))
		case wire.NestedEndEvent:
			out = append(out, fmt.Sprintf("}%d", ev.Number))
		case wire.EndOfMessageEvent:
			out = append(out, "end")
		}
	}
	return out
}

func TestDecodeEmitsEventsInWireOrder(t *testing.T) {
	reg := schematest.Registry()
	person := schematest.New(reg, schematest.PersonType)
	schematest.Set(person, "name", "Ann")
	schematest.Set(schematest.Nested(person, "address"), "city", "Metropolis")
	schematest.Append(person, "tags", "a")
	schematest.Append(person, "tags", "b")
	schematest.Append(person, "scores", int32(1))
	schematest.Append(person, "scores", int32(-2))
	schematest.Set(person, "status", protoreflect.EnumNumber(1))

	rec := &recorder{}
	if err := wire.Decode(schematest.Marshal(person), person.Descriptor(), rec.handle); err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	want := "1=Ann 2{ 1=Metropolis }2 3=a 3=b 6=1 6=-2 7=1 end"
	if got := strings.Join(rec.trace(), " "); got != want {
		t.Fatalf("unexpected events\n got: %s\nwant: %s", got, want)
	}

	nested := rec.events[1]
	if nested.Message == nil || nested.Message.FullName() != schematest.AddressType {
		t.Fatalf("expected nested Address descriptor, got %v", nested.Message)
	}
	if _, ok := rec.events[6].Value.(int32); !ok {
		t.Fatalf("expected int32 packed element, got %T", rec.events[6].Value)
	}
	if _, ok := rec.events[8].Value.(protoreflect.EnumNumber); !ok {
		t.Fatalf("expected enum number, got %T", rec.events[8].Value)
	}
	if rec.events[0].Type != protoreflect.StringKind || rec.events[0].Name != "name" {
		t.Fatalf("unexpected scalar metadata %+v", rec.events[0])
	}
}

func TestDecodeEmptyMessage(t *testing.T) {
	reg := schematest.Registry()
	md, _ := reg.Resolve(schematest.PersonType)

	rec := &recorder{}
	if err := wire.Decode(nil, md, rec.handle); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(rec.events) != 1 || rec.events[0].Kind != wire.EndOfMessageEvent {
		t.Fatalf("expected a single end-of-message, got %v", rec.trace())
	}
}

func TestDecodeReportsUnknownFields(t *testing.T) {
	reg := schematest.Registry()
	md, _ := reg.Resolve(schematest.AddressType)

	b := protowire.AppendTag(nil, 99, protowire.VarintType)
	b = protowire.AppendVarint(b, 5)
	b = protowire.AppendTag(b, 1, protowire.BytesType)
	b = protowire.AppendString(b, "Paris")

	rec := &recorder{}
	if err := wire.Decode(b, md, rec.handle); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(rec.events) != 3 {
		t.Fatalf("expected 3 events, got %v", rec.trace())
	}
	unknown := rec.events[0]
	if !unknown.Unknown() || unknown.Number != 99 {
		t.Fatalf("expected unknown field 99, got %+v", unknown)
	}
	if raw, ok := unknown.Value.([]byte); !ok || !bytes.Equal(raw, []byte{5}) {
		t.Fatalf("expected raw varint bytes, got %v", unknown.Value)
	}
	if rec.events[1].Unknown() {
		t.Fatal("declared field reported as unknown")
	}
}

func TestDecodeFailures(t *testing.T) {
	reg := schematest.Registry()
	md, _ := reg.Resolve(schematest.PersonType)

	mismatch := protowire.AppendTag(nil, 1, protowire.VarintType)
	mismatch = protowire.AppendVarint(mismatch, 1)

	truncated := protowire.AppendTag(nil, 1, protowire.BytesType)
	truncated = protowire.AppendVarint(truncated, 10)
	truncated = append(truncated, 'A')

	badTag := []byte{0x80}

	tests := []struct {
		name  string
		input []byte
		is    error
	}{
		{"wire type mismatch", mismatch, wire.ErrWireTypeMismatch},
		{"truncated length", truncated, nil},
		{"truncated tag", badTag, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recorder{}
			err := wire.Decode(tt.input, md, rec.handle)
			if err == nil {
				t.Fatal("expected decode error")
			}
			if tt.is != nil && !errors.Is(err, tt.is) {
				t.Fatalf("expected %v, got %v", tt.is, err)
			}
			for _, ev := range rec.events {
				if ev.Kind == wire.EndOfMessageEvent {
					t.Fatal("end-of-message emitted after a failure")
				}
			}
		})
	}
}

func TestDecodeRecursionLimit(t *testing.T) {
	reg := schematest.Registry()
	person := schematest.New(reg, schematest.PersonType)
	geo := schematest.Nested(schematest.Nested(person, "address"), "geo")
	schematest.Set(geo, "lat", 1.5)

	rec := &recorder{}
	err := wire.Decoder{RecursionLimit: 1}.Decode(schematest.Marshal(person), person.Descriptor(), rec.handle)
	if !errors.Is(err, wire.ErrRecursionLimit) {
		t.Fatalf("expected ErrRecursionLimit, got %v", err)
	}

	rec = &recorder{}
	if err := (wire.Decoder{RecursionLimit: 2}).Decode(schematest.Marshal(person), person.Descriptor(), rec.handle); err != nil {
		t.Fatalf("unexpected error at limit: %v", err)
	}
	if got := strings.Join(rec.trace(), " "); got != "2{ 3{ 1=1.5 }3 }2 end" {
		t.Fatalf("unexpected events %s", got)
	}
}

func TestDecodeStopsOnHandlerError(t *testing.T) {
	reg := schematest.Registry()
	person := schematest.New(reg, schematest.PersonType)
	schematest.Set(person, "name", "Ann")
	schematest.Set(person, "age", int32(40))

	boom := errors.New("boom")
	calls := 0
	err := wire.Decode(schematest.Marshal(person), person.Descriptor(), func(wire.Event) error {
		calls++
		return boom
	})
	if err != boom {
		t.Fatalf("expected handler error unchanged, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected decoding to stop after first event, got %d calls", calls)
	}
}

func TestDecodeRequiresDescriptor(t *testing.T) {
	if err := wire.Decode(nil, nil, func(wire.Event) error { return nil }); err == nil {
		t.Fatal("expected error for nil descriptor")
	}
}

func TestEventKindString(t *testing.T) {
	kinds := map[wire.EventKind]string{
		wire.ScalarEvent:       "scalar",
		wire.NestedStartEvent:  "nested-start",
		wire.NestedEndEvent:    "nested-end",
		wire.EndOfMessageEvent: "end-of-message",
		wire.EventKind(0):      "unknown",
	}
	for kind, want := range kinds {
		if got := kind.String(); got != want {
			t.Errorf("String() = %q, want %q", got, want)
		}
	}
}
