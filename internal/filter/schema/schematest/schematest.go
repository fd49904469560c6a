// Package schematest provides the descriptors and encoding helpers shared by
// the filter packages' tests.
package schematest

import (
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/dynamicpb"

	"github.com/drblury/protomatch/internal/filter/schema"
)

const (
	PersonType  = "test.Person"
	AddressType = "test.Address"
	LegacyType  = "test.Legacy"
)

var (
	optional = descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL.Enum()
	repeated = descriptorpb.FieldDescriptorProto_LABEL_REPEATED.Enum()
)

func field(name string, number int32, label *descriptorpb.FieldDescriptorProto_Label, typ descriptorpb.FieldDescriptorProto_Type) *descriptorpb.FieldDescriptorProto {
	return &descriptorpb.FieldDescriptorProto{
		Name:   proto.String(name),
		Number: proto.Int32(number),
		Label:  label,
		Type:   typ.Enum(),
	}
}

func typed(fd *descriptorpb.FieldDescriptorProto, typeName string) *descriptorpb.FieldDescriptorProto {
	fd.TypeName = proto.String(typeName)
	return fd
}

func withDefault(fd *descriptorpb.FieldDescriptorProto, value string) *descriptorpb.FieldDescriptorProto {
	fd.DefaultValue = proto.String(value)
	return fd
}

// Files returns the test schema:
//
//	enum Status { STATUS_UNKNOWN = 0; STATUS_ACTIVE = 1; }
//	message Geo { double lat = 1; double lon = 2; }
//	message Address { string city = 1; string zip = 2; Geo geo = 3; }
//	message Person {
//	  string name = 1; Address address = 2; repeated string tags = 3;
//	  int32 age = 4; repeated Address previous = 5; repeated int32 scores = 6;
//	  Status status = 7; map<string, string> labels = 8;
//	}
//	// proto2
//	message Legacy {
//	  optional string label = 1 [default = "none"];
//	  optional int32 level = 2 [default = 7];
//	  optional string note = 3;
//	  optional bool flag = 4 [default = true];
//	}
func Files() *descriptorpb.FileDescriptorSet {
	person := &descriptorpb.FileDescriptorProto{
		Name:    proto.String("test/person.proto"),
		Package: proto.String("test"),
		Syntax:  proto.String("proto3"),
		EnumType: []*descriptorpb.EnumDescriptorProto{{
			Name: proto.String("Status"),
			Value: []*descriptorpb.EnumValueDescriptorProto{
				{Name: proto.String("STATUS_UNKNOWN"), Number: proto.Int32(0)},
				{Name: proto.String("STATUS_ACTIVE"), Number: proto.Int32(1)},
			},
		}},
		MessageType: []*descriptorpb.DescriptorProto{
			{
				Name: proto.String("Geo"),
				Field: []*descriptorpb.FieldDescriptorProto{
					field("lat", 1, optional, descriptorpb.FieldDescriptorProto_TYPE_DOUBLE),
					field("lon", 2, optional, descriptorpb.FieldDescriptorProto_TYPE_DOUBLE),
				},
			},
			{
				Name: proto.String("Address"),
				Field: []*descriptorpb.FieldDescriptorProto{
					field("city", 1, optional, descriptorpb.FieldDescriptorProto_TYPE_STRING),
					field("zip", 2, optional, descriptorpb.FieldDescriptorProto_TYPE_STRING),
					typed(field("geo", 3, optional, descriptorpb.FieldDescriptorProto_TYPE_MESSAGE), ".test.Geo"),
				},
			},
			{
				Name: proto.String("Person"),
				Field: []*descriptorpb.FieldDescriptorProto{
					field("name", 1, optional, descriptorpb.FieldDescriptorProto_TYPE_STRING),
					typed(field("address", 2, optional, descriptorpb.FieldDescriptorProto_TYPE_MESSAGE), ".test.Address"),
					field("tags", 3, repeated, descriptorpb.FieldDescriptorProto_TYPE_STRING),
					field("age", 4, optional, descriptorpb.FieldDescriptorProto_TYPE_INT32),
					typed(field("previous", 5, repeated, descriptorpb.FieldDescriptorProto_TYPE_MESSAGE), ".test.Address"),
					field("scores", 6, repeated, descriptorpb.FieldDescriptorProto_TYPE_INT32),
					typed(field("status", 7, optional, descriptorpb.FieldDescriptorProto_TYPE_ENUM), ".test.Status"),
					typed(field("labels", 8, repeated, descriptorpb.FieldDescriptorProto_TYPE_MESSAGE), ".test.Person.LabelsEntry"),
				},
				NestedType: []*descriptorpb.DescriptorProto{{
					Name: proto.String("LabelsEntry"),
					Field: []*descriptorpb.FieldDescriptorProto{
						field("key", 1, optional, descriptorpb.FieldDescriptorProto_TYPE_STRING),
						field("value", 2, optional, descriptorpb.FieldDescriptorProto_TYPE_STRING),
					},
					Options: &descriptorpb.MessageOptions{MapEntry: proto.Bool(true)},
				}},
			},
		},
	}
	legacy := &descriptorpb.FileDescriptorProto{
		Name:    proto.String("test/legacy.proto"),
		Package: proto.String("test"),
		Syntax:  proto.String("proto2"),
		MessageType: []*descriptorpb.DescriptorProto{{
			Name: proto.String("Legacy"),
			Field: []*descriptorpb.FieldDescriptorProto{
				withDefault(field("label", 1, optional, descriptorpb.FieldDescriptorProto_TYPE_STRING), "none"),
				withDefault(field("level", 2, optional, descriptorpb.FieldDescriptorProto_TYPE_INT32), "7"),
				field("note", 3, optional, descriptorpb.FieldDescriptorProto_TYPE_STRING),
				withDefault(field("flag", 4, optional, descriptorpb.FieldDescriptorProto_TYPE_BOOL), "true"),
			},
		}},
	}
	return &descriptorpb.FileDescriptorSet{File: []*descriptorpb.FileDescriptorProto{person, legacy}}
}

// Registry builds a registry over Files. It panics on error since the schema
// is static.
func Registry() *schema.FilesRegistry {
	reg, err := schema.NewRegistryFromSet(Files())
	if err != nil {
		panic(err)
	}
	return reg
}

// New returns an empty dynamic message of the given type.
func New(reg schema.Registry, typeName string) *dynamicpb.Message {
	md, err := reg.Resolve(typeName)
	if err != nil {
		panic(err)
	}
	return dynamicpb.NewMessage(md)
}

func fieldOf(m protoreflect.Message, name string) protoreflect.FieldDescriptor {
	fd := m.Descriptor().Fields().ByName(protoreflect.Name(name))
	if fd == nil {
		panic("schematest: unknown field " + name)
	}
	return fd
}

// Set assigns a scalar field.
func Set(m protoreflect.Message, name string, v any) {
	m.Set(fieldOf(m, name), protoreflect.ValueOf(v))
}

// Nested returns the (created on demand) message stored in a singular field.
func Nested(m protoreflect.Message, name string) protoreflect.Message {
	return m.Mutable(fieldOf(m, name)).Message()
}

// Append adds a scalar element to a repeated field.
func Append(m protoreflect.Message, name string, v any) {
	m.Mutable(fieldOf(m, name)).List().Append(protoreflect.ValueOf(v))
}

// Put stores value under key in a map field.
func Put(m protoreflect.Message, name, key string, value any) {
	m.Mutable(fieldOf(m, name)).Map().Set(protoreflect.ValueOfString(key).MapKey(), protoreflect.ValueOf(value))
}

// AppendMessage adds a new element to a repeated message field and returns it.
func AppendMessage(m protoreflect.Message, name string) protoreflect.Message {
	list := m.Mutable(fieldOf(m, name)).List()
	elem := list.NewElement()
	list.Append(elem)
	return elem.Message()
}

// Marshal encodes msg deterministically.
func Marshal(msg proto.Message) []byte {
	b, err := proto.MarshalOptions{Deterministic: true}.Marshal(msg)
	if err != nil {
		panic(err)
	}
	return b
}

// Envelope encodes msg and wraps it with its full type name.
func Envelope(msg proto.Message) []byte {
	return schema.Wrap(string(msg.ProtoReflect().Descriptor().FullName()), Marshal(msg))
}
