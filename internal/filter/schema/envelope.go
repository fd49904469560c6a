package schema

import (
	"google.golang.org/protobuf/encoding/protowire"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/descriptorpb"
)

// Envelope field numbers follow the wrapped-message layout used by data-grid
// clients, so existing producers can be consumed unchanged.
const (
	EnvelopeTypeNameField protowire.Number = 16
	EnvelopePayloadField  protowire.Number = 17

	EnvelopeFullName protoreflect.FullName = "protomatch.Envelope"
)

var envelopeDescriptor = buildEnvelopeDescriptor()

// Envelope returns the descriptor of the outer record that carries the
// entity type name and the encoded payload.
func Envelope() protoreflect.MessageDescriptor {
	return envelopeDescriptor
}

// Wrap encodes payload into an envelope tagged with typeName. Empty values are
// omitted, matching what a proto3 producer writes.
func Wrap(typeName string, payload []byte) []byte {
	b := make([]byte, 0, len(typeName)+len(payload)+8)
	if typeName != "" {
		b = protowire.AppendTag(b, EnvelopeTypeNameField, protowire.BytesType)
		b = protowire.AppendString(b, typeName)
	}
	if len(payload) > 0 {
		b = protowire.AppendTag(b, EnvelopePayloadField, protowire.BytesType)
		b = protowire.AppendBytes(b, payload)
	}
	return b
}

func buildEnvelopeDescriptor() protoreflect.MessageDescriptor {
	file := &descriptorpb.FileDescriptorProto{
		Name:    proto.String("protomatch/envelope.proto"),
		Package: proto.String("protomatch"),
		Syntax:  proto.String("proto3"),
		MessageType: []*descriptorpb.DescriptorProto{{
			Name: proto.String("Envelope"),
			Field: []*descriptorpb.FieldDescriptorProto{
				{
					Name:     proto.String("type_name"),
					JsonName: proto.String("typeName"),
					Number:   proto.Int32(int32(EnvelopeTypeNameField)),
					Label:    descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL.Enum(),
					Type:     descriptorpb.FieldDescriptorProto_TYPE_STRING.Enum(),
				},
				{
					Name:     proto.String("payload"),
					JsonName: proto.String("payload"),
					Number:   proto.Int32(int32(EnvelopePayloadField)),
					Label:    descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL.Enum(),
					Type:     descriptorpb.FieldDescriptorProto_TYPE_BYTES.Enum(),
				},
			},
		}},
	}
	fd, err := protodesc.NewFile(file, nil)
	if err != nil {
		panic("protomatch: building envelope descriptor: " + err.Error())
	}
	return fd.Messages().ByName("Envelope")
}
