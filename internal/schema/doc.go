// Package schema owns schema definitions and namespace resolution.
//
// Ownership boundary:
// - schema file parsing (first definition of a YAML stream)
// - the namespace catalog consulted when graphs are loaded
// - path-memoized resolution into the catalog
// - conformance checks of graphs against registered types
//
// A schema file may hold several YAML documents; only the first one is
// read and it must be a Schema definition carrying a namespace. Files with
// more definitions are accepted with a warning rather than merged.
package schema
