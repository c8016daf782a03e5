// Package model owns the in-memory object graph shape.
//
// Ownership boundary:
// - tagged node structure (type id, attributes, containment, references)
// - graph binding roles
// - attribute value normalization
// - structural comparison of graphs
package model
