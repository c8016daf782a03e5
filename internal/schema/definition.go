package schema

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/danmuck/xformctl/internal/model"
	"gopkg.in/yaml.v3"
)

type definitionHead struct {
	Kind      string `yaml:"kind"`
	Namespace string `yaml:"namespace"`
}

type definitionFile struct {
	Kind      string           `yaml:"kind"`
	Name      string           `yaml:"name"`
	Namespace string           `yaml:"namespace"`
	Types     []typeDefinition `yaml:"types"`
}

type typeDefinition struct {
	Name       string                `yaml:"name"`
	Abstract   bool                  `yaml:"abstract"`
	Attributes []attributeDefinition `yaml:"attributes"`
	Children   []string              `yaml:"children"`
	References []string              `yaml:"references"`
}

type attributeDefinition struct {
	Name     string `yaml:"name"`
	Kind     string `yaml:"kind"`
	Many     bool   `yaml:"many"`
	Required bool   `yaml:"required"`
}

// Parse reads the first definition of a schema file. It returns the schema
// and the number of further definitions that were ignored.
func Parse(path string, data []byte) (*Schema, int, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	var first yaml.Node
	if err := dec.Decode(&first); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, 0, &SchemaMissingNamespaceError{Path: path}
		}
		return nil, 0, &SchemaLoadError{Path: path, Msg: "parse failed", Err: err}
	}

	var head definitionHead
	if err := first.Decode(&head); err != nil {
		return nil, 0, &SchemaMissingNamespaceError{Path: path}
	}
	if head.Kind != KindSchema || strings.TrimSpace(head.Namespace) == "" {
		return nil, 0, &SchemaMissingNamespaceError{Path: path, Kind: head.Kind}
	}

	var def definitionFile
	if err := first.Decode(&def); err != nil {
		return nil, 0, &SchemaLoadError{Path: path, Msg: "invalid schema definition", Err: err}
	}

	extra := 0
	for {
		var next yaml.Node
		err := dec.Decode(&next)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, 0, &SchemaLoadError{Path: path, Msg: "parse failed", Err: err}
		}
		extra++
	}

	s, err := def.schema()
	if err != nil {
		return nil, 0, &SchemaLoadError{Path: path, Msg: "invalid schema definition", Err: err}
	}
	s.SourcePath = path
	return s, extra, nil
}

func (d definitionFile) schema() (*Schema, error) {
	s := &Schema{
		Name:      strings.TrimSpace(d.Name),
		Namespace: strings.TrimSpace(d.Namespace),
		Types:     make([]*Type, 0, len(d.Types)),
	}
	for _, td := range d.Types {
		t := &Type{
			Name:       strings.TrimSpace(td.Name),
			Abstract:   td.Abstract,
			Attributes: make([]Attribute, 0, len(td.Attributes)),
			Children:   td.Children,
			References: td.References,
		}
		for _, ad := range td.Attributes {
			kind, ok := model.ParseValueKind(strings.TrimSpace(ad.Kind))
			if !ok {
				return nil, fmt.Errorf("type %q attribute %q: unknown kind %q", t.Name, ad.Name, ad.Kind)
			}
			t.Attributes = append(t.Attributes, Attribute{
				Name:     strings.TrimSpace(ad.Name),
				Kind:     kind,
				Many:     ad.Many,
				Required: ad.Required,
			})
		}
		s.Types = append(s.Types, t)
	}
	if err := s.build(); err != nil {
		return nil, err
	}
	return s, nil
}
