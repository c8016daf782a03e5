package schema

import (
	"errors"
	"fmt"
)

var (
	ErrSchemaLoad        = errors.New("schema: load failed")
	ErrMissingNamespace  = errors.New("schema: first definition is not a namespace-bearing schema")
	ErrNamespaceConflict = errors.New("schema: namespace already registered with a different definition")
	ErrConformance       = errors.New("schema: graph does not conform")
)

// SchemaLoadError reports a schema file that cannot be read, parsed or
// registered.
type SchemaLoadError struct {
	Path string
	Msg  string
	Err  error
}

func (e *SchemaLoadError) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Msg
	if msg == "" {
		msg = "load failed"
	}
	if e.Err != nil {
		return fmt.Sprintf("schema: %s (%s): %v", msg, e.Path, e.Err)
	}
	return fmt.Sprintf("schema: %s (%s)", msg, e.Path)
}

func (e *SchemaLoadError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrSchemaLoad, e.Err}
	}
	return []error{ErrSchemaLoad}
}

// SchemaMissingNamespaceError reports a schema file whose first top-level
// definition is not a Schema with a namespace.
type SchemaMissingNamespaceError struct {
	Path string
	Kind string
}

func (e *SchemaMissingNamespaceError) Error() string {
	if e == nil {
		return ""
	}
	kind := e.Kind
	if kind == "" {
		kind = "<none>"
	}
	return fmt.Sprintf("%s (%s): first definition kind=%s", ErrMissingNamespace.Error(), e.Path, kind)
}

func (e *SchemaMissingNamespaceError) Unwrap() error { return ErrMissingNamespace }

// ConformanceError reports the first node of a graph that violates the
// registered schemas.
type ConformanceError struct {
	NodePath string
	TypeID   string
	Msg      string
}

func (e *ConformanceError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: node %s (%s): %s", ErrConformance.Error(), e.NodePath, e.TypeID, e.Msg)
}

func (e *ConformanceError) Unwrap() error { return ErrConformance }
