package model

import "reflect"

// Isomorphic reports whether a and b have the same shape: node count, types,
// attribute values, containment order and reference topology. Node identity
// is ignored.
func Isomorphic(a, b []*Node) bool {
	if len(a) != len(b) {
		return false
	}
	orderA, indexA := preorder(a)
	orderB, indexB := preorder(b)
	if len(orderA) != len(orderB) {
		return false
	}
	for i := range orderA {
		x, y := orderA[i], orderB[i]
		if x.Type != y.Type {
			return false
		}
		if !sameAttributes(x.Attributes, y.Attributes) {
			return false
		}
		if len(x.Children) != len(y.Children) || len(x.References) != len(y.References) {
			return false
		}
		for j := range x.Children {
			if indexA[x.Children[j]] != indexB[y.Children[j]] {
				return false
			}
		}
		for j := range x.References {
			ia, okA := indexA[x.References[j]]
			ib, okB := indexB[y.References[j]]
			if !okA || !okB || ia != ib {
				return false
			}
		}
	}
	return true
}

func preorder(roots []*Node) ([]*Node, map[*Node]int) {
	order := make([]*Node, 0)
	index := make(map[*Node]int)
	Walk(roots, func(n *Node) bool {
		index[n] = len(order)
		order = append(order, n)
		return true
	})
	return order, index
}

func sameAttributes(a, b map[string]any) bool {
	if len(a) != len(b) {
		return false
	}
	for k, va := range a {
		vb, ok := b[k]
		if !ok {
			return false
		}
		if emptyList(va) && emptyList(vb) {
			continue
		}
		if !reflect.DeepEqual(va, vb) {
			return false
		}
	}
	return true
}

// emptyList reports a list value with no elements; those carry no element
// kind once encoded.
func emptyList(v any) bool {
	_, many, ok := KindOf(v)
	return ok && many && reflect.ValueOf(v).Len() == 0
}
