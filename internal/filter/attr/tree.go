// Package attr holds the attribute index tree: the immutable, schema-bound
// tree of attribute paths referenced by active predicates. Nodes are keyed by
// field number within their parent and carry the listeners bound to that
// exact path.
//
// A Tree never changes after Builder.Build returns it, so any number of
// evaluation passes may walk it concurrently without synchronization.
package attr

import "google.golang.org/protobuf/encoding/protowire"

// Listener is a predicate bound to an attribute path. Implementations must be
// safe for concurrent use; per-pass results are recorded by the caller.
type Listener interface {
	Test(v Value) bool
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(Value) bool

func (f ListenerFunc) Test(v Value) bool { return f(v) }

// Binding ties a listener to the slot its results are recorded under.
// Slots are dense in [0, Tree.Slots()).
type Binding struct {
	Slot     int
	Listener Listener
}

// Node is one attribute path in the tree.
type Node struct {
	number   protowire.Number
	parent   *Node
	children map[protowire.Number]*Node
	ordered  []*Node
	bindings []Binding
}

// Number is the field number addressing this node in its parent. Roots have 0.
func (n *Node) Number() protowire.Number { return n.number }

// Parent returns the enclosing node, or nil for a root.
func (n *Node) Parent() *Node { return n.parent }

// Child returns the node bound to field number num, or nil.
func (n *Node) Child(num protowire.Number) *Node { return n.children[num] }

// Children returns the child nodes ordered by field number. The slice is
// shared and must not be modified.
func (n *Node) Children() []*Node { return n.ordered }

// Bindings returns the listeners bound to this node. The slice is shared and
// must not be modified.
func (n *Node) Bindings() []Binding { return n.bindings }

// Tree maps entity type names to their root nodes.
type Tree struct {
	roots map[string]*Node
	slots int
}

// Root returns the root for typeName, or nil when nothing is bound for it.
func (t *Tree) Root(typeName string) *Node {
	if t == nil {
		return nil
	}
	return t.roots[typeName]
}

// Slots is the number of bindings in the tree.
func (t *Tree) Slots() int {
	if t == nil {
		return 0
	}
	return t.slots
}

// Len is the number of entity types with a root.
func (t *Tree) Len() int {
	if t == nil {
		return 0
	}
	return len(t.roots)
}
