// Package schema resolves entity type names to protobuf message descriptors
// and owns the envelope that carries a type name next to its payload.
package schema

import (
	"errors"
	"fmt"
	"strings"

	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"
)

var (
	// ErrUnknownType is returned when a type name cannot be resolved to a message.
	ErrUnknownType = errors.New("protomatch: unknown entity type")
	// ErrInvalidPath is returned when an attribute path does not address a field.
	ErrInvalidPath = errors.New("protomatch: invalid attribute path")
	// ErrRegistryRequired is returned by constructors given a nil Registry.
	ErrRegistryRequired = errors.New("protomatch: schema registry is required")
)

// Registry resolves a fully qualified type name to its message descriptor.
// Implementations must be safe for concurrent use.
type Registry interface {
	Resolve(typeName string) (protoreflect.MessageDescriptor, error)
}

// FilesRegistry is a Registry backed by a protoregistry.Files set.
type FilesRegistry struct {
	files *protoregistry.Files
}

// NewFilesRegistry wraps an existing file registry.
func NewFilesRegistry(files *protoregistry.Files) *FilesRegistry {
	if files == nil {
		panic("protomatch: file registry cannot be nil")
	}
	return &FilesRegistry{files: files}
}

// NewRegistryFromSet builds a registry from a serialized descriptor set, as
// produced by `protoc --descriptor_set_out --include_imports`.
func NewRegistryFromSet(set *descriptorpb.FileDescriptorSet) (*FilesRegistry, error) {
	if set == nil {
		return nil, errors.New("protomatch: descriptor set is required")
	}
	files, err := protodesc.NewFiles(set)
	if err != nil {
		return nil, fmt.Errorf("protomatch: building descriptor registry: %w", err)
	}
	return &FilesRegistry{files: files}, nil
}

// GlobalRegistry resolves against every message linked into the binary.
func GlobalRegistry() *FilesRegistry {
	return &FilesRegistry{files: protoregistry.GlobalFiles}
}

// Resolve implements Registry.
func (r *FilesRegistry) Resolve(typeName string) (protoreflect.MessageDescriptor, error) {
	if typeName == "" {
		return nil, fmt.Errorf("%w: empty type name", ErrUnknownType)
	}
	desc, err := r.files.FindDescriptorByName(protoreflect.FullName(typeName))
	if err != nil {
		if errors.Is(err, protoregistry.NotFound) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownType, typeName)
		}
		return nil, err
	}
	md, ok := desc.(protoreflect.MessageDescriptor)
	if !ok {
		return nil, fmt.Errorf("%w: %q is not a message", ErrUnknownType, typeName)
	}
	return md, nil
}

// ResolvePath walks a dotted field-name path from md and returns the field
// descriptors along it. Every segment but the last must be message typed.
func ResolvePath(md protoreflect.MessageDescriptor, path string) ([]protoreflect.FieldDescriptor, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty path", ErrInvalidPath)
	}
	segments := strings.Split(path, ".")
	fields := make([]protoreflect.FieldDescriptor, 0, len(segments))
	current := md
	for i, segment := range segments {
		if current == nil {
			return nil, fmt.Errorf("%w: %q: %q is not a message", ErrInvalidPath, path, segments[i-1])
		}
		fd := current.Fields().ByName(protoreflect.Name(segment))
		if fd == nil {
			return nil, fmt.Errorf("%w: %q: %s has no field %q", ErrInvalidPath, path, current.FullName(), segment)
		}
		fields = append(fields, fd)
		current = fd.Message()
	}
	return fields, nil
}
