package model

import (
	"fmt"
	"sort"
	"strings"
)

// Node is one object of a typed graph.
//
// Type is a schema-qualified type id (namespace#Type). Children are owned
// (containment) and ordered; References are non-owning edges that may point
// anywhere in the same graph, including ancestors and the node itself.
type Node struct {
	Type       string
	Attributes map[string]any
	Children   []*Node
	References []*Node
}

// NewNode creates a node of the given type with no attributes.
func NewNode(typeID string) *Node {
	return &Node{Type: typeID, Attributes: make(map[string]any)}
}

// Set normalizes and stores an attribute value. NormalizeValue lists the
// accepted Go types.
func (n *Node) Set(name string, value any) error {
	v, err := NormalizeValue(value)
	if err != nil {
		return fmt.Errorf("attribute %q: %w", name, err)
	}
	if n.Attributes == nil {
		n.Attributes = make(map[string]any)
	}
	n.Attributes[name] = v
	return nil
}

// Attr returns an attribute value and whether it is set.
func (n *Node) Attr(name string) (any, bool) {
	v, ok := n.Attributes[name]
	return v, ok
}

// AttributeNames returns the attribute keys in sorted order.
func (n *Node) AttributeNames() []string {
	names := make([]string, 0, len(n.Attributes))
	for name := range n.Attributes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AddChild appends a contained node and returns it.
func (n *Node) AddChild(child *Node) *Node {
	n.Children = append(n.Children, child)
	return child
}

// AddReference appends a non-owning edge to target.
func (n *Node) AddReference(target *Node) {
	n.References = append(n.References, target)
}

// Namespace returns the namespace part of the node's type id.
func (n *Node) Namespace() string {
	ns, _ := SplitTypeID(n.Type)
	return ns
}

// TypeID joins a namespace and a local type name.
func TypeID(namespace, name string) string {
	return namespace + "#" + name
}

// SplitTypeID splits namespace#Type. A type id without a separator is
// returned as a bare local name with an empty namespace.
func SplitTypeID(typeID string) (namespace, name string) {
	idx := strings.LastIndex(typeID, "#")
	if idx < 0 {
		return "", typeID
	}
	return typeID[:idx], typeID[idx+1:]
}

// Walk visits every node reachable from roots through containment in
// preorder. It stops early when visit returns false. Containment is
// traversed with an explicit stack.
func Walk(roots []*Node, visit func(n *Node) bool) {
	stack := make([]*Node, 0, len(roots))
	for i := len(roots) - 1; i >= 0; i-- {
		stack = append(stack, roots[i])
	}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n == nil {
			continue
		}
		if !visit(n) {
			return
		}
		for i := len(n.Children) - 1; i >= 0; i-- {
			stack = append(stack, n.Children[i])
		}
	}
}

// Count returns the number of nodes reachable through containment.
func Count(roots []*Node) int {
	total := 0
	Walk(roots, func(*Node) bool {
		total++
		return true
	})
	return total
}
