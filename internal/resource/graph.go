package resource

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/danmuck/xformctl/internal/codec"
	"github.com/danmuck/xformctl/internal/model"
	"github.com/danmuck/xformctl/internal/observability"
	"github.com/danmuck/xformctl/internal/schema"
)

var (
	ErrReadOnly   = errors.New("resource: graph is read-only")
	ErrNoLocation = errors.New("resource: graph has no location")
)

// Graph is a named, role-bound object graph.
type Graph struct {
	Name     string
	Role     model.Role
	Location string
	Roots    []*model.Node
}

// Open reads and decodes the graph file at path. When catalog is non-nil the
// decoded graph must conform to it.
func Open(name string, role model.Role, path string, catalog *schema.Catalog) (*Graph, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resource: open %s: %w", name, err)
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("resource: open %s: %w", name, err)
	}
	roots, err := codec.Decode(data)
	observability.RecordCodec("decode", err)
	if err != nil {
		return nil, fmt.Errorf("resource: open %s (%s): %w", name, abs, err)
	}
	if catalog != nil {
		if err := catalog.Check(roots); err != nil {
			return nil, fmt.Errorf("resource: open %s (%s): %w", name, abs, err)
		}
	}
	return &Graph{Name: name, Role: role, Location: abs, Roots: roots}, nil
}

// Create returns an empty graph bound to path. Nothing is written until
// Save, so stale content at path never leaks into the graph.
func Create(name string, role model.Role, path string) (*Graph, error) {
	g := &Graph{Name: name, Role: role}
	if path != "" {
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("resource: create %s: %w", name, err)
		}
		g.Location = abs
	}
	return g, nil
}

// FromRoots wraps in-memory roots without a location.
func FromRoots(name string, role model.Role, roots []*model.Node) *Graph {
	return &Graph{Name: name, Role: role, Roots: roots}
}

// ReadOnly reports whether the graph rejects mutation.
func (g *Graph) ReadOnly() bool {
	return !g.Role.Writable()
}

// Append adds a root node.
func (g *Graph) Append(root *model.Node) error {
	if g.ReadOnly() {
		return fmt.Errorf("%w: %s", ErrReadOnly, g.Name)
	}
	g.Roots = append(g.Roots, root)
	return nil
}

// SetRoots replaces every root.
func (g *Graph) SetRoots(roots []*model.Node) error {
	if g.ReadOnly() {
		return fmt.Errorf("%w: %s", ErrReadOnly, g.Name)
	}
	g.Roots = roots
	return nil
}

// Encode renders the graph in canonical text form.
func (g *Graph) Encode() ([]byte, error) {
	data, err := codec.Encode(g.Roots)
	observability.RecordCodec("encode", err)
	if err != nil {
		return nil, fmt.Errorf("resource: encode %s: %w", g.Name, err)
	}
	return data, nil
}

// Save writes the graph to its location, replacing any previous content.
func (g *Graph) Save() error {
	if g.Location == "" {
		return fmt.Errorf("%w: %s", ErrNoLocation, g.Name)
	}
	return g.SaveAs(g.Location)
}

// SaveAs writes the graph to path. The write goes through a temporary file
// in the same directory and a rename.
func (g *Graph) SaveAs(path string) error {
	if path == "" {
		return fmt.Errorf("%w: %s", ErrNoLocation, g.Name)
	}
	data, err := g.Encode()
	if err != nil {
		return err
	}
	return WriteFileAtomic(path, data)
}

// WriteFileAtomic replaces path with data via a sibling temp file.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("resource: save %s: %w", path, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("resource: save %s: %w", path, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("resource: save %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("resource: save %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("resource: save %s: %w", path, err)
	}
	return nil
}

// Equal reports whether the file at path already holds data.
func Equal(path string, data []byte) bool {
	current, err := os.ReadFile(path)
	return err == nil && bytes.Equal(current, data)
}
