// Package launch owns transformation configuration and execution.
//
// Ownership boundary:
// - accumulating schema, graph and module bindings (Builder)
// - validating them into an immutable Config
// - wiring a Config into a fresh engine environment and running it (Launcher)
// - scoped temporary files for in-memory graphs
//
// Configuration problems are reported before any engine interaction. Load
// problems are reported before execution, and a failed execution returns no
// partial result.
package launch
