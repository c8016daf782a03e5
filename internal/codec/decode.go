package codec

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/danmuck/xformctl/internal/model"
	"gopkg.in/yaml.v3"
)

// Decode parses graph text into freshly allocated root nodes. Containment is
// rebuilt with an explicit stack and references are resolved once every
// node exists, so cycles and self references terminate.
func Decode(data []byte) ([]*model.Node, error) {
	return DecodeFrom(bytes.NewReader(data))
}

// DecodeFrom reads one graph document from r.
func DecodeFrom(r io.Reader) ([]*model.Node, error) {
	dec := yaml.NewDecoder(r)
	var doc yaml.Node
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errorf("empty document")
		}
		return nil, &CodecError{Msg: "malformed yaml", Err: err}
	}
	var extra yaml.Node
	if err := dec.Decode(&extra); err == nil {
		return nil, errorAt(&extra, "multiple documents in graph text")
	} else if !errors.Is(err, io.EOF) {
		return nil, &CodecError{Msg: "malformed yaml", Err: err}
	}
	return decodeDocument(&doc)
}

type decodeFrame struct {
	in   *yaml.Node
	path string
	out  *model.Node
}

type pendingRef struct {
	owner *model.Node
	slot  int
	in    *yaml.Node
}

type decoder struct {
	byPath  map[string]*model.Node
	byID    map[string]*model.Node
	pending []pendingRef
	stack   []decodeFrame
}

func decodeDocument(doc *yaml.Node) ([]*model.Node, error) {
	top := doc
	if doc.Kind == yaml.DocumentNode {
		if len(doc.Content) == 0 {
			return nil, errorf("empty document")
		}
		top = doc.Content[0]
	}
	if err := checkPlain(top); err != nil {
		return nil, err
	}
	if top.Kind != yaml.MappingNode {
		return nil, errorAt(top, "document must be a mapping with a %q key", keyRoots)
	}

	var rootSeq *yaml.Node
	for i := 0; i+1 < len(top.Content); i += 2 {
		key, value := top.Content[i], top.Content[i+1]
		if key.Value != keyRoots {
			return nil, errorAt(key, "unknown document key %q", key.Value)
		}
		if rootSeq != nil {
			return nil, errorAt(key, "duplicate key %q", keyRoots)
		}
		if err := checkPlain(value); err != nil {
			return nil, err
		}
		if value.Kind != yaml.SequenceNode {
			return nil, errorAt(value, "%q must be a sequence", keyRoots)
		}
		rootSeq = value
	}
	if rootSeq == nil {
		return nil, errorAt(top, "missing %q", keyRoots)
	}

	d := &decoder{
		byPath: make(map[string]*model.Node),
		byID:   make(map[string]*model.Node),
	}
	roots := make([]*model.Node, len(rootSeq.Content))
	for i, in := range rootSeq.Content {
		roots[i] = &model.Node{}
		d.stack = append(d.stack, decodeFrame{in: in, path: childPath("", i), out: roots[i]})
	}
	for len(d.stack) > 0 {
		frame := d.stack[len(d.stack)-1]
		d.stack = d.stack[:len(d.stack)-1]
		if err := d.decodeNode(frame); err != nil {
			return nil, err
		}
	}
	if err := d.resolveReferences(); err != nil {
		return nil, err
	}
	return roots, nil
}

func (d *decoder) decodeNode(f decodeFrame) error {
	if err := checkPlain(f.in); err != nil {
		return err
	}
	if f.in.Kind != yaml.MappingNode {
		return errorAt(f.in, "node %s must be a mapping", f.path)
	}
	d.byPath[f.path] = f.out

	seen := make(map[string]bool, len(f.in.Content)/2)
	for i := 0; i+1 < len(f.in.Content); i += 2 {
		key, value := f.in.Content[i], f.in.Content[i+1]
		if seen[key.Value] {
			return errorAt(key, "node %s: duplicate key %q", f.path, key.Value)
		}
		seen[key.Value] = true
		if err := checkPlain(value); err != nil {
			return err
		}

		switch key.Value {
		case keyType:
			typeID, err := stringScalar(value)
			if err != nil || typeID == "" {
				return errorAt(value, "node %s: type must be a non-empty string", f.path)
			}
			f.out.Type = typeID
		case keyID:
			id, err := stringScalar(value)
			if err != nil || id == "" {
				return errorAt(value, "node %s: id must be a non-empty string", f.path)
			}
			if strings.HasPrefix(id, "/") {
				return errorAt(value, "node %s: id %q collides with containment paths", f.path, id)
			}
			if _, dup := d.byID[id]; dup {
				return errorAt(value, "duplicate id %q", id)
			}
			d.byID[id] = f.out
		case keyAttrs:
			attrs, err := decodeAttributes(value, f.path)
			if err != nil {
				return err
			}
			f.out.Attributes = attrs
		case keyChildren:
			if value.Kind != yaml.SequenceNode {
				return errorAt(value, "node %s: children must be a sequence", f.path)
			}
			f.out.Children = make([]*model.Node, len(value.Content))
			for j, in := range value.Content {
				child := &model.Node{}
				f.out.Children[j] = child
				d.stack = append(d.stack, decodeFrame{in: in, path: childPath(f.path, j), out: child})
			}
		case keyRefs:
			if value.Kind != yaml.SequenceNode {
				return errorAt(value, "node %s: refs must be a sequence", f.path)
			}
			f.out.References = make([]*model.Node, len(value.Content))
			for j, in := range value.Content {
				if err := checkPlain(in); err != nil {
					return err
				}
				d.pending = append(d.pending, pendingRef{owner: f.out, slot: j, in: in})
			}
		default:
			return errorAt(key, "node %s: unknown key %q", f.path, key.Value)
		}
	}
	if f.out.Type == "" {
		return errorAt(f.in, "node %s: missing type", f.path)
	}
	if f.out.Attributes == nil {
		f.out.Attributes = make(map[string]any)
	}
	return nil
}

func (d *decoder) resolveReferences() error {
	for _, ref := range d.pending {
		key, err := stringScalar(ref.in)
		if err != nil {
			return errorAt(ref.in, "reference must be a string")
		}
		target, ok := d.byID[key]
		if !ok {
			target, ok = d.byPath[key]
		}
		if !ok {
			return errorAt(ref.in, "unresolved reference %q", key)
		}
		ref.owner.References[ref.slot] = target
	}
	return nil
}

func decodeAttributes(in *yaml.Node, path string) (map[string]any, error) {
	if in.Kind != yaml.MappingNode {
		return nil, errorAt(in, "node %s: attrs must be a mapping", path)
	}
	attrs := make(map[string]any, len(in.Content)/2)
	for i := 0; i+1 < len(in.Content); i += 2 {
		key, value := in.Content[i], in.Content[i+1]
		name, err := stringScalar(key)
		if err != nil || name == "" {
			return nil, errorAt(key, "node %s: attribute names must be strings", path)
		}
		if _, dup := attrs[name]; dup {
			return nil, errorAt(key, "node %s: duplicate attribute %q", path, name)
		}
		v, err := decodeValue(value)
		if err != nil {
			return nil, err
		}
		attrs[name] = v
	}
	return attrs, nil
}

func decodeValue(in *yaml.Node) (any, error) {
	if err := checkPlain(in); err != nil {
		return nil, err
	}
	if in.Kind == yaml.SequenceNode {
		items := make([]any, 0, len(in.Content))
		for _, item := range in.Content {
			v, err := decodeScalar(item)
			if err != nil {
				return nil, err
			}
			items = append(items, v)
		}
		v, err := model.NormalizeValue(items)
		if err != nil {
			return nil, &CodecError{Line: in.Line, Column: in.Column, Msg: "invalid list", Err: err}
		}
		return v, nil
	}
	return decodeScalar(in)
}

func decodeScalar(in *yaml.Node) (any, error) {
	if err := checkPlain(in); err != nil {
		return nil, err
	}
	if in.Kind != yaml.ScalarNode {
		return nil, errorAt(in, "attribute values must be scalars or lists of scalars")
	}
	var (
		out any
		err error
	)
	switch in.ShortTag() {
	case "!!str":
		return in.Value, nil
	case "!!int":
		var v int64
		err = in.Decode(&v)
		out = v
	case "!!float":
		var v float64
		err = in.Decode(&v)
		out = v
	case "!!bool":
		var v bool
		err = in.Decode(&v)
		out = v
	case "!!null":
		return nil, errorAt(in, "null attribute values are not supported")
	default:
		return nil, errorAt(in, "unsupported scalar tag %s", in.ShortTag())
	}
	if err != nil {
		return nil, &CodecError{Line: in.Line, Column: in.Column, Msg: "invalid scalar", Err: err}
	}
	return out, nil
}

func stringScalar(in *yaml.Node) (string, error) {
	if in.Kind != yaml.ScalarNode || in.ShortTag() != "!!str" {
		return "", fmt.Errorf("not a string")
	}
	return in.Value, nil
}

// checkPlain rejects anchors and aliases: sharing must go through refs.
func checkPlain(in *yaml.Node) error {
	if in.Kind == yaml.AliasNode {
		return errorAt(in, "aliases are not supported; use refs")
	}
	if in.Anchor != "" {
		return errorAt(in, "anchors are not supported; use refs")
	}
	return nil
}

func errorAt(in *yaml.Node, format string, args ...any) *CodecError {
	return &CodecError{Line: in.Line, Column: in.Column, Msg: fmt.Sprintf(format, args...)}
}
