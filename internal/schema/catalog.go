package schema

import (
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/danmuck/xformctl/internal/model"
)

// Catalog maps namespaces to registered schemas. It is safe for concurrent
// use.
type Catalog struct {
	mu    sync.RWMutex
	items map[string]*Schema
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{items: make(map[string]*Schema)}
}

var (
	defaultOnce     sync.Once
	defaultCatalog  *Catalog
	defaultRegistry *Registry
)

func initDefaults() {
	defaultOnce.Do(func() {
		defaultCatalog = NewCatalog()
		defaultRegistry = NewRegistry(defaultCatalog)
	})
}

// DefaultCatalog is the process-wide catalog, created at first use.
func DefaultCatalog() *Catalog {
	initDefaults()
	return defaultCatalog
}

// Register adds s under its namespace. Registering an identical definition
// again is a no-op; a different definition under a taken namespace fails.
func (c *Catalog) Register(s *Schema) error {
	if s == nil || s.Namespace == "" {
		return fmt.Errorf("%w: empty namespace", ErrSchemaLoad)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.items[s.Namespace]; ok {
		if existing.sameTypes(s) {
			return nil
		}
		return fmt.Errorf("%w: %s (first registered from %s)", ErrNamespaceConflict, s.Namespace, existing.SourcePath)
	}
	c.items[s.Namespace] = s
	return nil
}

// Lookup returns the schema registered under namespace.
func (c *Catalog) Lookup(namespace string) (*Schema, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.items[namespace]
	return s, ok
}

// LookupType resolves a qualified type id.
func (c *Catalog) LookupType(typeID string) (*Type, bool) {
	ns, name := model.SplitTypeID(typeID)
	s, ok := c.Lookup(ns)
	if !ok {
		return nil, false
	}
	return s.Type(name)
}

// Namespaces returns registered namespaces in sorted order.
func (c *Catalog) Namespaces() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	list := make([]string, 0, len(c.items))
	for ns := range c.items {
		list = append(list, ns)
	}
	sort.Strings(list)
	return list
}

// Len reports the number of registered namespaces.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

type checkFrame struct {
	node *model.Node
	path string
}

// Check verifies that every node reachable from roots conforms to the
// registered types. It returns the first violation as *ConformanceError.
func (c *Catalog) Check(roots []*model.Node) error {
	stack := make([]checkFrame, 0, len(roots))
	for i := len(roots) - 1; i >= 0; i-- {
		stack = append(stack, checkFrame{node: roots[i], path: "/" + strconv.Itoa(i)})
	}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if err := c.checkNode(f); err != nil {
			return err
		}
		for i := len(f.node.Children) - 1; i >= 0; i-- {
			stack = append(stack, checkFrame{node: f.node.Children[i], path: f.path + "/" + strconv.Itoa(i)})
		}
	}
	return nil
}

func (c *Catalog) checkNode(f checkFrame) error {
	n := f.node
	fail := func(format string, args ...any) error {
		return &ConformanceError{NodePath: f.path, TypeID: n.Type, Msg: fmt.Sprintf(format, args...)}
	}
	t, ok := c.LookupType(n.Type)
	if !ok {
		return fail("unknown type")
	}
	if t.Abstract {
		return fail("type is abstract")
	}
	for _, name := range n.AttributeNames() {
		decl, ok := t.Attribute(name)
		if !ok {
			return fail("undeclared attribute %q", name)
		}
		if err := checkValue(decl, n.Attributes[name]); err != nil {
			return fail("attribute %q: %v", name, err)
		}
	}
	for _, decl := range t.Attributes {
		if _, ok := n.Attributes[decl.Name]; decl.Required && !ok {
			return fail("missing required attribute %q", decl.Name)
		}
	}
	for i, child := range n.Children {
		if child == nil {
			return fail("child %d is nil", i)
		}
		if !t.allowsChild(child.Type) {
			return fail("child %d of type %s is not allowed", i, child.Type)
		}
	}
	for i, ref := range n.References {
		if ref == nil {
			return fail("reference %d is nil", i)
		}
		if !t.allowsReference(ref.Type) {
			return fail("reference %d to type %s is not allowed", i, ref.Type)
		}
	}
	return nil
}

func checkValue(decl Attribute, v any) error {
	kind, many, ok := model.KindOf(v)
	if !ok {
		return fmt.Errorf("unsupported value %T", v)
	}
	if many != decl.Many {
		if decl.Many {
			return fmt.Errorf("expected a list of %s", decl.Kind)
		}
		return fmt.Errorf("expected a single %s", decl.Kind)
	}
	if kind != decl.Kind {
		if many && listLen(v) == 0 {
			return nil
		}
		return fmt.Errorf("expected %s, got %s", decl.Kind, kind)
	}
	return nil
}

func listLen(v any) int {
	switch x := v.(type) {
	case []string:
		return len(x)
	case []int64:
		return len(x)
	case []float64:
		return len(x)
	case []bool:
		return len(x)
	default:
		return 0
	}
}
