package attr

import (
	"errors"
	"sort"

	"google.golang.org/protobuf/encoding/protowire"
)

var (
	ErrEmptyPath       = errors.New("protomatch: attribute path is empty")
	ErrListenerMissing = errors.New("protomatch: listener is required")
	ErrTypeMissing     = errors.New("protomatch: entity type name is required")
)

type draft struct {
	children map[protowire.Number]*draft
	bindings []Binding
}

func (d *draft) child(num protowire.Number) *draft {
	if d.children == nil {
		d.children = make(map[protowire.Number]*draft)
	}
	c, ok := d.children[num]
	if !ok {
		c = &draft{}
		d.children[num] = c
	}
	return c
}

// Builder accumulates bindings and freezes them into a Tree. A Builder is not
// safe for concurrent use.
type Builder struct {
	roots map[string]*draft
	slots int
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{roots: make(map[string]*draft)}
}

// Root makes sure typeName has a root even when nothing is bound below it.
func (b *Builder) Root(typeName string) error {
	if typeName == "" {
		return ErrTypeMissing
	}
	b.root(typeName)
	return nil
}

func (b *Builder) root(typeName string) *draft {
	r, ok := b.roots[typeName]
	if !ok {
		r = &draft{}
		b.roots[typeName] = r
	}
	return r
}

// Bind attaches l to the attribute reached from typeName through path and
// returns the slot its results are recorded under.
func (b *Builder) Bind(typeName string, path []protowire.Number, l Listener) (int, error) {
	switch {
	case typeName == "":
		return 0, ErrTypeMissing
	case len(path) == 0:
		return 0, ErrEmptyPath
	case l == nil:
		return 0, ErrListenerMissing
	}
	d := b.root(typeName)
	for _, num := range path {
		d = d.child(num)
	}
	slot := b.slots
	b.slots++
	d.bindings = append(d.bindings, Binding{Slot: slot, Listener: l})
	return slot, nil
}

// Build freezes the bindings into a Tree. The builder may keep being used;
// later changes do not affect trees already built.
func (b *Builder) Build() *Tree {
	t := &Tree{roots: make(map[string]*Node, len(b.roots)), slots: b.slots}
	for name, d := range b.roots {
		t.roots[name] = freeze(d, 0, nil)
	}
	return t
}

func freeze(d *draft, num protowire.Number, parent *Node) *Node {
	n := &Node{number: num, parent: parent}
	if len(d.bindings) > 0 {
		n.bindings = append([]Binding(nil), d.bindings...)
	}
	if len(d.children) == 0 {
		return n
	}
	n.children = make(map[protowire.Number]*Node, len(d.children))
	n.ordered = make([]*Node, 0, len(d.children))
	for childNum, child := range d.children {
		c := freeze(child, childNum, n)
		n.children[childNum] = c
		n.ordered = append(n.ordered, c)
	}
	sort.Slice(n.ordered, func(i, j int) bool { return n.ordered[i].number < n.ordered[j].number })
	return n
}
