package eval

import (
	"google.golang.org/protobuf/encoding/protowire"
	"google.golang.org/protobuf/reflect/protoreflect"
)

// frame tracks which bound fields were observed at one nesting depth. Only
// fields with a bound attribute node are ever marked, so a slice scan beats
// a map here.
type frame struct {
	desc   protoreflect.MessageDescriptor
	seen   []protowire.Number
	parent *frame
}

// mark records num and reports whether this is its first observation.
func (f *frame) mark(num protowire.Number) bool {
	if f.observed(num) {
		return false
	}
	f.seen = append(f.seen, num)
	return true
}

func (f *frame) observed(num protowire.Number) bool {
	for _, n := range f.seen {
		if n == num {
			return true
		}
	}
	return false
}
