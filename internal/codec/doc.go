// Package codec owns the textual graph format.
//
// Ownership boundary:
// - encoding ordered root lists to canonical YAML text
// - decoding text into freshly allocated nodes
// - reference identifiers (containment paths and explicit ids)
//
// Document shape:
//
//	roots:
//	  - type: urn:composed#Composite
//	    attrs:
//	      name: box
//	    children:
//	      - type: urn:composed#Part
//	        refs: [/0]
//
// References name their target by containment path ("/0/1" is the second
// child of the first root) or by an explicit id given on the target node.
// Encoding always writes paths and never ids, so Encode(Decode(t)) is the
// canonical form of t.
package codec
