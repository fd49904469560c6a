package eval

import (
	"github.com/drblury/protomatch/internal/filter/attr"
)

// reconcile fires the bound children of the current node that the closing
// frame never observed, in field declaration order.
func (c *Context) reconcile() {
	if len(c.node.Children()) == 0 {
		return
	}
	fields := c.frame.desc.Fields()
	for i := 0; i < fields.Len(); i++ {
		fd := fields.Get(i)
		child := c.node.Child(fd.Number())
		if child == nil || c.frame.observed(fd.Number()) {
			continue
		}
		switch {
		case fd.IsList(), fd.Message() != nil:
			c.nullify(child)
		case fd.HasDefault():
			c.deliver(child, attr.DefaultOf(fd.Default().Interface()))
		default:
			c.deliver(child, attr.Absent())
		}
	}
}

// nullify delivers null to root and every node beneath it, preorder. The
// walk keeps its own stack so schema depth cannot exhaust the goroutine's.
func (c *Context) nullify(root *attr.Node) {
	stack := []*attr.Node{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		c.deliver(n, attr.Null())

		children := n.Children()
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, children[i])
		}
	}
}
