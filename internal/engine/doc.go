// Package engine defines the contract between the launcher and a
// transformation engine.
//
// Ownership boundary:
// - the Factory and Env interfaces
// - the process-wide registry of named engine factories
//
// An Env is a fresh, single-use workspace. The launcher registers schemas
// and graphs, loads one module and calls Execute exactly once.
package engine
