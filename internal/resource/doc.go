// Package resource owns named graph handles.
//
// Ownership boundary:
// - opening graph files through the codec and checking them against a catalog
// - creating empty output graphs bound to a location
// - role-aware mutation guards
// - atomic saves back to the bound location
package resource
