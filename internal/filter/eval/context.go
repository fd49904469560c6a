// Package eval runs one decode pass of an enveloped event against an
// attribute index tree. The Context is a small state machine fed by the
// streaming decoder: it prunes uninteresting subtrees, tracks which bound
// fields each nesting level saw, and reconciles the missing ones when the
// level closes so listeners see defaults and nulls as well as wire values.
//
// A Context is single use and must not be shared between goroutines. The
// tree it reads is immutable, so any number of contexts may run at once.
package eval

import (
	"google.golang.org/protobuf/reflect/protoreflect"

	"github.com/drblury/protomatch/internal/filter/attr"
	"github.com/drblury/protomatch/internal/filter/schema"
	"github.com/drblury/protomatch/internal/filter/wire"
)

// Option customises a Context.
type Option func(*Context)

// WithDecoder replaces the default decoder, for example to change its
// recursion limit.
func WithDecoder(d wire.Decoder) Option {
	return func(c *Context) {
		c.decoder = d
	}
}

// Context evaluates a single encoded event.
type Context struct {
	instance []byte
	registry schema.Registry
	tree     *attr.Tree
	decoder  wire.Decoder

	state      State
	typeName   string
	payload    []byte
	hasPayload bool
	desc       protoreflect.MessageDescriptor

	node  *attr.Node
	frame *frame
	depth int
	skip  int

	satisfied  []uint64
	deliveries int
	err        error
}

// New prepares the evaluation of instance, an encoded envelope.
func New(instance []byte, registry schema.Registry, tree *attr.Tree, opts ...Option) *Context {
	c := &Context{
		instance: instance,
		registry: registry,
		tree:     tree,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Evaluate decodes the envelope and then the payload, delivering values to
// the listeners bound in the tree. Any error aborts the pass; results of a
// failed pass must not be used.
func (c *Context) Evaluate() error {
	if c.state != StateInit {
		return &ProtocolSequenceError{State: c.state, Op: "evaluate"}
	}
	if c.registry == nil {
		c.state = StateDone
		c.err = schema.ErrRegistryRequired
		return c.err
	}
	c.satisfied = make([]uint64, (c.tree.Slots()+63)/64)
	c.state = StateEnvelope

	if err := c.decoder.Decode(c.instance, schema.Envelope(), c.Handle); err != nil {
		return c.fail("envelope", err)
	}
	if c.state == StateDone {
		return nil
	}
	if err := c.decoder.Decode(c.payload, c.desc, c.Handle); err != nil {
		return c.fail(c.typeName, err)
	}
	return nil
}

func (c *Context) fail(stage string, err error) error {
	c.state = StateDone
	if c.err != nil {
		return c.err
	}
	c.err = &DecodeIOError{Stage: stage, Err: err}
	return c.err
}

// Handle advances the state machine by one decode event. It is the Handler
// passed to the decoder and is exported so the sequencing rules can be
// driven directly.
func (c *Context) Handle(ev wire.Event) error {
	var err error
	switch c.state {
	case StateEnvelope:
		err = c.onEnvelope(ev)
	case StatePayload:
		err = c.onPayload(ev)
	default:
		err = c.sequenceError(ev)
	}
	if err != nil {
		c.err = err
		c.state = StateDone
	}
	return err
}

func (c *Context) sequenceError(ev wire.Event) error {
	return &ProtocolSequenceError{State: c.state, Op: ev.Kind.String()}
}

func (c *Context) onEnvelope(ev wire.Event) error {
	switch ev.Kind {
	case wire.ScalarEvent:
		switch ev.Number {
		case schema.EnvelopeTypeNameField:
			name, _ := ev.Value.(string)
			c.typeName = name
		case schema.EnvelopePayloadField:
			payload, _ := ev.Value.([]byte)
			c.payload = payload
			c.hasPayload = true
		default:
			return &UnexpectedEnvelopeFieldError{Number: ev.Number}
		}
		return nil
	case wire.EndOfMessageEvent:
		return c.openPayload()
	default:
		return c.sequenceError(ev)
	}
}

func (c *Context) openPayload() error {
	if c.typeName == "" {
		if c.hasPayload {
			return ErrEnvelopeMissingType
		}
		c.state = StateDone
		return nil
	}
	md, err := c.registry.Resolve(c.typeName)
	if err != nil {
		return &UnknownEntityTypeError{TypeName: c.typeName, Err: err}
	}
	c.desc = md
	c.node = c.tree.Root(c.typeName)
	if c.node == nil {
		c.state = StateDone
		return nil
	}
	c.frame = &frame{desc: md}
	c.state = StatePayload
	return nil
}

func (c *Context) onPayload(ev wire.Event) error {
	switch ev.Kind {
	case wire.ScalarEvent:
		if c.skip > 0 || ev.Field == nil {
			return nil
		}
		if child := c.node.Child(ev.Number); child != nil {
			c.observe(child, ev.Field)
			c.deliver(child, attr.Of(ev.Value))
		}
	case wire.NestedStartEvent:
		if c.skip == 0 && ev.Field != nil {
			if child := c.node.Child(ev.Number); child != nil {
				c.observe(child, ev.Field)
				c.frame = &frame{desc: ev.Message, parent: c.frame}
				c.depth++
				c.node = child
				return nil
			}
		}
		c.skip++
	case wire.NestedEndEvent:
		if c.skip > 0 {
			c.skip--
			return nil
		}
		if c.depth == 0 {
			return c.sequenceError(ev)
		}
		c.reconcile()
		c.frame = c.frame.parent
		c.depth--
		c.node = c.node.Parent()
	case wire.EndOfMessageEvent:
		if c.skip > 0 || c.depth > 0 {
			return c.sequenceError(ev)
		}
		c.reconcile()
		c.frame = nil
		c.state = StateDone
	}
	return nil
}

// observe marks the field in the current frame. A repeated field, lists and
// maps alike, fires its presence sentinel on the first observation only.
func (c *Context) observe(node *attr.Node, fd protoreflect.FieldDescriptor) {
	if c.frame.mark(fd.Number()) && fd.Cardinality() == protoreflect.Repeated {
		c.deliver(node, attr.Present())
	}
}

func (c *Context) deliver(node *attr.Node, v attr.Value) {
	c.deliveries++
	for _, b := range node.Bindings() {
		if b.Listener.Test(v) {
			c.satisfied[b.Slot/64] |= 1 << (uint(b.Slot) % 64)
		}
	}
}

// TypeName is the entity type read from the envelope.
func (c *Context) TypeName() string { return c.typeName }

// State reports the lifecycle position.
func (c *Context) State() State { return c.state }

// Deliveries counts the values delivered to attribute nodes during the pass.
func (c *Context) Deliveries() int { return c.deliveries }

// Satisfied reports whether the listener in slot accepted at least one value
// during the pass.
func (c *Context) Satisfied(slot int) bool {
	if slot < 0 || slot/64 >= len(c.satisfied) {
		return false
	}
	return c.satisfied[slot/64]&(1<<(uint(slot)%64)) != 0
}

// Err returns the error that aborted the pass, if any.
func (c *Context) Err() error { return c.err }
