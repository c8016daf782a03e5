package schema

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/danmuck/xformctl/internal/model"
)

// KindSchema is the definition kind that carries a namespace.
const KindSchema = "Schema"

// Schema is one registered namespace and the types declared under it.
type Schema struct {
	Name       string
	Namespace  string
	SourcePath string
	Types      []*Type

	index map[string]*Type
}

// Type is a node type. Children and References hold qualified type ids of
// the allowed targets.
type Type struct {
	Name       string
	Abstract   bool
	Attributes []Attribute
	Children   []string
	References []string
}

// Attribute declares one attribute of a type.
type Attribute struct {
	Name     string
	Kind     model.ValueKind
	Many     bool
	Required bool
}

// Type returns the type with the given local name.
func (s *Schema) Type(name string) (*Type, bool) {
	t, ok := s.index[name]
	return t, ok
}

// TypeID returns the qualified id of a local type name.
func (s *Schema) TypeID(name string) string {
	return model.TypeID(s.Namespace, name)
}

// Attribute returns the declared attribute by name.
func (t *Type) Attribute(name string) (Attribute, bool) {
	for _, a := range t.Attributes {
		if a.Name == name {
			return a, true
		}
	}
	return Attribute{}, false
}

func (t *Type) allowsChild(typeID string) bool {
	return contains(t.Children, typeID)
}

func (t *Type) allowsReference(typeID string) bool {
	return contains(t.References, typeID)
}

func (s *Schema) sameTypes(other *Schema) bool {
	return reflect.DeepEqual(s.Types, other.Types)
}

// build indexes types and qualifies local target names. Local names must be
// declared in the same schema; qualified names are checked when graphs are.
func (s *Schema) build() error {
	s.index = make(map[string]*Type, len(s.Types))
	for _, t := range s.Types {
		if strings.TrimSpace(t.Name) == "" {
			return fmt.Errorf("type with empty name")
		}
		if strings.Contains(t.Name, "#") {
			return fmt.Errorf("type %q: name must not contain '#'", t.Name)
		}
		if _, dup := s.index[t.Name]; dup {
			return fmt.Errorf("duplicate type %q", t.Name)
		}
		s.index[t.Name] = t
	}
	for _, t := range s.Types {
		seen := make(map[string]bool, len(t.Attributes))
		for _, a := range t.Attributes {
			if strings.TrimSpace(a.Name) == "" {
				return fmt.Errorf("type %q: attribute with empty name", t.Name)
			}
			if seen[a.Name] {
				return fmt.Errorf("type %q: duplicate attribute %q", t.Name, a.Name)
			}
			seen[a.Name] = true
		}
		var err error
		if t.Children, err = s.qualify(t.Name, "children", t.Children); err != nil {
			return err
		}
		if t.References, err = s.qualify(t.Name, "references", t.References); err != nil {
			return err
		}
	}
	return nil
}

func (s *Schema) qualify(owner, field string, names []string) ([]string, error) {
	out := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if strings.Contains(name, "#") {
			out = append(out, name)
			continue
		}
		if _, ok := s.index[name]; !ok {
			return nil, fmt.Errorf("type %q %s: unknown type %q", owner, field, name)
		}
		out = append(out, s.TypeID(name))
	}
	return out, nil
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
