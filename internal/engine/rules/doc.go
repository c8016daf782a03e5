// Package rules is the reference transformation engine.
//
// Ownership boundary:
// - loading YAML rule modules and their imports from one directory
// - checking module headers against registered schemas and graphs
// - compiling and evaluating attribute expressions
// - applying rules to bound graphs
//
// Module file (<dir>/<module>.yaml):
//
//	module: CountParts
//	imports: [Common]
//	from:   {IN: Composed}
//	create: {OUT: Simple}
//	rules:
//	  - name: summarize
//	    match: Composed!Composite
//	    to:
//	      model: OUT
//	      type: Simple!Simple
//	      attributes:
//	        count: count(children, Composed!Part)
//
// Expressions are literals (2, 1.5, "text", true), attr(name), type(),
// count(children|refs[, Schema!Type]) and sum(children, name). A quoted
// YAML value is always a string literal. Update rules write attributes of
// matched nodes in place and only apply to refine models.
package rules
